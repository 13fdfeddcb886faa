package storage

import (
	"context"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Disk stores blobs on the local filesystem under a base directory.
type Disk struct {
	base string
}

// NewDisk creates a disk backend rooted at base, creating it if missing.
func NewDisk(base string) (*Disk, error) {
	if err := os.MkdirAll(base, 0o755); err != nil {
		return nil, err
	}
	return &Disk{base: base}, nil
}

func (d *Disk) resolve(key string) string {
	return filepath.Join(d.base, filepath.FromSlash(key))
}

func (d *Disk) Write(_ context.Context, key string, data []byte) error {
	path := d.resolve(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func (d *Disk) Read(_ context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(d.resolve(key))
	if os.IsNotExist(err) {
		return nil, ErrNotFound
	}
	return data, err
}

func (d *Disk) OpenStream(_ context.Context, key string) (io.ReadCloser, error) {
	f, err := os.Open(d.resolve(key))
	if os.IsNotExist(err) {
		return nil, ErrNotFound
	}
	return f, err
}

func (d *Disk) List(_ context.Context, prefix string) ([]string, error) {
	root := d.resolve(prefix)
	info, err := os.Stat(root)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{prefix}, nil
	}

	var keys []string
	err = filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(d.base, path)
		if err != nil {
			return err
		}
		keys = append(keys, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(keys)
	return keys, nil
}

func (d *Disk) Exists(_ context.Context, key string) (bool, error) {
	_, err := os.Stat(d.resolve(key))
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (d *Disk) Delete(_ context.Context, key string) error {
	err := os.Remove(d.resolve(key))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

func (d *Disk) ResolveURI(key string) string {
	return "file://" + filepath.ToSlash(d.resolve(strings.TrimPrefix(key, "/")))
}
