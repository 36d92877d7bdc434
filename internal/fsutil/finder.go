// Package fsutil provides file system helpers built on afs, so that taskfiles
// and sources can live on any storage afs supports.
package fsutil

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/afs/option"
	"github.com/viant/afs/url"
)

// FindFilesByExtension returns the URLs of all files under location ending
// with extension, sorted. location may be a single file, in which case it is
// returned when it matches. A missing location yields no files.
func FindFilesByExtension(ctx context.Context, fs afs.Service, location, extension string) ([]string, error) {
	if extension == "" {
		return nil, fmt.Errorf("extension must not be empty")
	}

	exists, err := fs.Exists(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("checking %s: %w", location, err)
	}
	if !exists {
		return nil, nil
	}

	objects, err := fs.List(ctx, location, option.NewRecursive(true))
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", location, err)
	}

	var files []string
	for _, object := range objects {
		if object.IsDir() || !strings.HasSuffix(object.Name(), extension) {
			continue
		}
		if !slices.Contains(files, object.URL()) {
			files = append(files, object.URL())
		}
	}
	slices.Sort(files)
	return files, nil
}

// Dir returns the parent URL of location.
func Dir(location string) string {
	parent, _ := url.Split(location, file.Scheme)
	return parent
}
