package core

import (
	"errors"
	"fmt"
)

var (
	// ErrImageNotFound is returned when a save is requested for an image
	// handle that has no backing pixel data.
	ErrImageNotFound = errors.New("image has no backing pixel data")
	ErrUnknown       = errors.New("unknown")
)

// ImageConversionError reports a failure to convert source pixels to the
// working color format.
type ImageConversionError struct {
	Reason string
}

func (e *ImageConversionError) Error() string {
	return fmt.Sprintf("failed to convert image to working format: %s", e.Reason)
}

// ImageEncodeError reports a failure to encode an image to the output codec.
type ImageEncodeError struct {
	Format string
	Reason string
}

func (e *ImageEncodeError) Error() string {
	return fmt.Sprintf("failed to encode image to %s: %s", e.Format, e.Reason)
}

// DirectoryCreationError reports a failure to create the target directory
// of a save task.
type DirectoryCreationError struct {
	Path   string
	Reason string
}

func (e *DirectoryCreationError) Error() string {
	return fmt.Sprintf("failed to create directory '%s': %s", e.Path, e.Reason)
}

// FileWriteError reports a failure to write bytes to the target path.
type FileWriteError struct {
	Path   string
	Reason string
}

func (e *FileWriteError) Error() string {
	return fmt.Sprintf("failed to write file to '%s': %s", e.Path, e.Reason)
}

// AssetLoadError is propagated from the asset system when a load fails.
type AssetLoadError struct {
	Path   string
	Reason string
}

func (e *AssetLoadError) Error() string {
	return fmt.Sprintf("asset load failed for '%s': %s", e.Path, e.Reason)
}

// AssetRemovedError reports that an asset disappeared while a request for
// it was still pending.
type AssetRemovedError struct {
	Path string
}

func (e *AssetRemovedError) Error() string {
	return fmt.Sprintf("asset was removed (possibly failed to load): '%s'", e.Path)
}
