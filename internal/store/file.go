package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/juju/utils/v4"
	"github.com/rs/zerolog/log"
)

// FileBackend keeps every collection in <dir>/<collection>.json.
type FileBackend struct {
	dir string
}

func OpenFileBackend(dir string) (*FileBackend, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("store: create data dir %s: %w", dir, err)
	}

	log.Info().Str("dir", dir).Msg("store: file backend opened")
	return &FileBackend{dir: dir}, nil
}

func (b *FileBackend) Path(c Collection) string {
	return filepath.Join(b.dir, string(c)+".json")
}

func (b *FileBackend) Read(ctx context.Context, c Collection) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(b.Path(c))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNoDocument
	}
	return data, err
}

// Write goes through a temp file and a rename, so a crash leaves either the
// old document or the new one on disk.
func (b *FileBackend) Write(ctx context.Context, c Collection, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return utils.AtomicWriteFile(b.Path(c), data, 0o644)
}

func (b *FileBackend) Close() error {
	return nil
}
