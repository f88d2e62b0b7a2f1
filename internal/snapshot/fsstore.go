package snapshot

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// FSStore writes snapshots into a local directory. Objects are committed by
// writing a temporary file and renaming it into place, so readers never see a
// partially written snapshot.
type FSStore struct {
	dir string
}

// NewFSStore builds a filesystem-backed object store rooted at dir.
func NewFSStore(dir string) (*FSStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("snapshot: directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create snapshot dir: %w", err)
	}
	return &FSStore{dir: dir}, nil
}

// Put publishes data under name. An existing object with the same name is
// never overwritten.
func (s *FSStore) Put(ctx context.Context, name string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	target := filepath.Join(s.dir, name)
	if _, err := os.Stat(target); err == nil {
		return fmt.Errorf("%w: %s", ErrExists, name)
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("stat snapshot target: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, name+".tmp-*")
	if err != nil {
		return fmt.Errorf("create snapshot temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write snapshot temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close snapshot temp file: %w", err)
	}

	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("publish snapshot: %w", err)
	}
	return nil
}

var _ ObjectStore = (*FSStore)(nil)
