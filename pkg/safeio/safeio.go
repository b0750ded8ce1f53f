package safeio

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// CleanUserPath cleans a user-provided relative path and rejects traversal
// attempts. Returns paths with forward slashes for cross-platform consistency.
func CleanUserPath(p string) (string, error) {
	c := filepath.Clean(p)
	if filepath.IsAbs(c) {
		return "", errors.New("absolute path not allowed")
	}
	for _, seg := range strings.Split(filepath.ToSlash(c), "/") {
		if seg == ".." {
			return "", errors.New("path traversal detected")
		}
	}
	return filepath.ToSlash(c), nil
}

// JoinContained joins rel onto baseDir and fails if the result would escape
// baseDir.
func JoinContained(baseDir, rel string) (string, error) {
	clean, err := CleanUserPath(rel)
	if err != nil {
		return "", fmt.Errorf("%s: %w", rel, err)
	}
	return filepath.Join(baseDir, filepath.FromSlash(clean)), nil
}

// WriteFileAtomic replaces path with data so that readers observe either the
// old or the new contents, never a partial file. The temp file lives in the
// same directory so the final rename stays on one filesystem. An existing
// file's permission bits are kept; new files get 0644.
func WriteFileAtomic(path string, data []byte) (err error) {
	var mode os.FileMode = 0o644
	if st, statErr := os.Stat(path); statErr == nil {
		if m := st.Mode() & 0o777; m != 0 {
			mode = m
		}
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		return err
	}
	if err = tmp.Chmod(mode); err != nil {
		return err
	}
	if err = tmp.Sync(); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	if err = os.Rename(tmpName, path); err != nil {
		return err
	}
	syncDir(dir)
	return nil
}

// syncDir flushes the rename to disk where the platform allows it.
func syncDir(dir string) {
	d, err := os.Open(dir) // #nosec G304 -- directory of a path we just wrote
	if err != nil {
		return
	}
	_ = d.Sync()
	_ = d.Close()
}

// WriteFileMkdir writes data to path, creating parent directories as needed.
func WriteFileMkdir(path string, data []byte, mode os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, mode)
}
