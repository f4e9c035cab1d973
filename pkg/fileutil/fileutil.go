package fileutil

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rohmanhakim/docs-link-crawler/pkg/failure"
)

// EnsureDir creates dir joined with path if it does not exist yet.
func EnsureDir(dir string, path ...string) failure.ClassifiedError {
	target := filepath.Join(append([]string{dir}, path...)...)
	if err := os.MkdirAll(target, 0755); err != nil {
		return &FileError{
			Message:   fmt.Sprintf("%v", err),
			Retryable: false,
			Cause:     ErrCausePathError,
		}
	}
	return nil
}

// WriteFileAtomic writes data to a temporary file next to path and renames
// it into place, so readers never observe a partially written file.
// Missing parent directories are created.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) failure.ClassifiedError {
	dir := filepath.Dir(path)
	if err := EnsureDir(dir); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return writeError(err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return writeError(err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return writeError(err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return writeError(err)
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		cleanup()
		return writeError(err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return writeError(err)
	}
	return nil
}

func writeError(err error) *FileError {
	return &FileError{
		Message:   fmt.Sprintf("%v", err),
		Retryable: false,
		Cause:     ErrCauseWriteError,
	}
}
