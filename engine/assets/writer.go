package assets

import (
	"fmt"
	"os"
	"path/filepath"
)

// Writer abstracts the durable storage the save pipeline writes thumbnails
// to. Implementations must make WriteBytes atomic at the file level.
type Writer interface {
	CreateDirectory(path string) error
	WriteBytes(path string, data []byte) error
}

// FilesystemWriter writes through the local filesystem. WriteBytes goes to
// a temp file in the target directory and renames it into place.
type FilesystemWriter struct{}

func (fw *FilesystemWriter) CreateDirectory(path string) error {
	return os.MkdirAll(path, 0o755)
}

func (fw *FilesystemWriter) WriteBytes(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".vetrina-*")
	if err != nil {
		return fmt.Errorf("create temp file in '%s': %w", dir, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp file '%s': %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file '%s': %w", tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename temp file into '%s': %w", path, err)
	}
	return nil
}
