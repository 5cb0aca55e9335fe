package fileutil

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// WriteAtomic streams r into a temporary sibling of path and renames it into
// place, so readers never observe a partially written file. The temporary
// file is removed on any failure.
func WriteAtomic(path string, r io.Reader, mode os.FileMode) (int64, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("create directory %q: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.part")
	if err != nil {
		return 0, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}

	written, err := io.Copy(tmp, r)
	if err != nil {
		cleanup()
		return written, fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Chmod(mode); err != nil {
		cleanup()
		return written, fmt.Errorf("chmod %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return written, fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return written, fmt.Errorf("rename into %s: %w", path, err)
	}
	return written, nil
}

// WriteFileAtomic is WriteAtomic for in-memory content.
func WriteFileAtomic(path string, data []byte, mode os.FileMode) error {
	_, err := WriteAtomic(path, bytes.NewReader(data), mode)
	return err
}
