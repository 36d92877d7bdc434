package fsutil

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/afs"
	"github.com/vk/taskgraph/internal/testutil"
)

func TestFindFilesByExtension(t *testing.T) {
	ctx := context.Background()
	fs := afs.New()
	dir := testutil.WriteFiles(t, map[string]string{
		"main.hcl":          `task "build" "api" {}`,
		"nested/deploy.hcl": `task "deploy" "api" {}`,
		"notes.txt":         "ignored",
	})

	t.Run("directory is walked recursively", func(t *testing.T) {
		files, err := FindFilesByExtension(ctx, fs, dir, ".hcl")
		require.NoError(t, err)
		require.Len(t, files, 2)
		assert.True(t, strings.HasSuffix(files[0], "/main.hcl"), files[0])
		assert.True(t, strings.HasSuffix(files[1], "/nested/deploy.hcl"), files[1])
	})

	t.Run("single file", func(t *testing.T) {
		files, err := FindFilesByExtension(ctx, fs, filepath.Join(dir, "main.hcl"), ".hcl")
		require.NoError(t, err)
		require.Len(t, files, 1)
		assert.True(t, strings.HasSuffix(files[0], "/main.hcl"), files[0])
	})

	t.Run("missing path yields nothing", func(t *testing.T) {
		files, err := FindFilesByExtension(ctx, fs, filepath.Join(dir, "missing"), ".hcl")
		require.NoError(t, err)
		assert.Empty(t, files)
	})

	t.Run("empty extension is rejected", func(t *testing.T) {
		_, err := FindFilesByExtension(ctx, fs, dir, "")
		assert.Error(t, err)
	})
}

func TestDir(t *testing.T) {
	assert.Equal(t, "file:///work/project", Dir("file:///work/project/tasks.hcl"))
	assert.Equal(t, "mem://localhost/a", Dir("mem://localhost/a/b.hcl"))
}
