package core

import (
	"errors"
	"io"
)

// ErrFileNotFound is returned by a FileStore when a handle does not resolve
// to a stored document.
var ErrFileNotFound = errors.New("file not found")

// FileStore is any service that can keep generated receipt documents.
// Upload returns an opaque handle that must be passed back to Download/Delete.
type FileStore interface {
	Upload(key string, r io.Reader) (handle string, err error)
	Download(handle string) ([]byte, error)
	Delete(handle string) error
}
