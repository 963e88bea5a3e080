package config

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// SecretProvider resolves secret references. Keys are whatever the
// reference variables hold: file paths for FileSecretProvider, variable
// names for EnvVarProvider. Keys that cannot be found are omitted from the
// result rather than reported as errors.
type SecretProvider interface {
	ResolveBatch(ctx context.Context, keys []string) (map[string]string, error)
}

// EnvVarProvider resolves each key as the name of another environment
// variable.
type EnvVarProvider struct{}

// NewEnvVarProvider creates a new EnvVarProvider.
func NewEnvVarProvider() *EnvVarProvider {
	return &EnvVarProvider{}
}

// ResolveBatch implements SecretProvider.
func (p *EnvVarProvider) ResolveBatch(_ context.Context, keys []string) (map[string]string, error) {
	result := make(map[string]string, len(keys))
	for _, key := range keys {
		if val, ok := os.LookupEnv(key); ok {
			result[key] = val
		}
	}
	return result, nil
}

// FileSecretProvider resolves each key as a path to a mounted secret file,
// such as a Docker or Kubernetes secret. Trailing newlines are trimmed.
type FileSecretProvider struct {
	readFile func(name string) ([]byte, error)
}

// NewFileSecretProvider creates a FileSecretProvider reading from disk.
func NewFileSecretProvider() *FileSecretProvider {
	return &FileSecretProvider{readFile: os.ReadFile}
}

// ResolveBatch implements SecretProvider. A missing file is omitted; any
// other read failure aborts the batch.
func (p *FileSecretProvider) ResolveBatch(ctx context.Context, keys []string) (map[string]string, error) {
	result := make(map[string]string, len(keys))
	for _, path := range keys {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, err := p.readFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("reading secret file %s: %w", path, err)
		}
		result[path] = strings.TrimRight(string(data), "\r\n")
	}
	return result, nil
}
