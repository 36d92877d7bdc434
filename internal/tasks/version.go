package tasks

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"slices"

	"github.com/viant/afs"
	"github.com/vk/taskgraph/internal/config"
)

const fingerprintLen = 16

// fingerprint hashes everything that determines what a task does: its
// identity, command, directory, environment and the content of its sources.
// A declared version is used as is.
func fingerprint(ctx context.Context, fs afs.Service, def *config.TaskDef) (string, error) {
	if def.Version != "" {
		return def.Version, nil
	}

	h := sha256.New()
	write := func(parts ...string) {
		for _, p := range parts {
			_, _ = io.WriteString(h, p)
			_, _ = h.Write([]byte{0})
		}
	}
	write(def.Type, def.Name, def.Command, def.Dir)

	envKeys := make([]string, 0, len(def.Env))
	for k := range def.Env {
		envKeys = append(envKeys, k)
	}
	slices.Sort(envKeys)
	for _, k := range envKeys {
		write(k, def.Env[k])
	}

	for _, src := range def.Sources {
		data, err := fs.DownloadWithURL(ctx, src)
		if err != nil {
			return "", fmt.Errorf("reading source %s of %s: %w", src, def.BaseKey(), err)
		}
		write(src)
		_, _ = h.Write(data)
	}
	return hex.EncodeToString(h.Sum(nil))[:fingerprintLen], nil
}
