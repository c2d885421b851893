package mappings

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Backend loads and saves whole store images by store name.
type Backend interface {
	Load(ctx context.Context, name string) (*Image, error)
	Save(ctx context.Context, name string, img *Image) error
}

// FileBackend keeps each store as <dir>/<name>.json.
type FileBackend struct {
	dir string
}

func NewFileBackend(dir string) *FileBackend {
	return &FileBackend{dir: dir}
}

func (b *FileBackend) Dir() string {
	return b.dir
}

func (b *FileBackend) path(name string) string {
	return filepath.Join(b.dir, name+".json")
}

// Load returns an empty image when the file does not exist yet; ephemeral
// deployments start every process with an empty data directory.
func (b *FileBackend) Load(_ context.Context, name string) (*Image, error) {
	data, err := os.ReadFile(b.path(name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return NewImage(), nil
		}
		return nil, fmt.Errorf("read %s: %w", b.path(name), err)
	}

	img := NewImage()
	if len(bytes.TrimSpace(data)) == 0 {
		return img, nil
	}
	if err := json.Unmarshal(data, img); err != nil {
		return nil, fmt.Errorf("decode %s: %w", b.path(name), err)
	}
	return img, nil
}

// Save rewrites the whole file through a temp file and rename.
func (b *FileBackend) Save(_ context.Context, name string, img *Image) error {
	if err := os.MkdirAll(b.dir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	data, err := json.MarshalIndent(img, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}

	tmp, err := os.CreateTemp(b.dir, name+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmpName, err)
	}

	if err := os.Rename(tmpName, b.path(name)); err != nil {
		return fmt.Errorf("replace %s: %w", b.path(name), err)
	}
	return nil
}
