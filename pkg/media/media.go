// Package media provides the upload(file) -> url capability the user
// service depends on for avatars and cover images.
package media

import (
	"context"
	"errors"
	"io"
)

// ErrUnsupported is returned when the payload is not a decodable image.
var ErrUnsupported = errors.New("unsupported media type")

// File is an upload payload. Name is only a hint for the stored filename.
type File struct {
	Name   string
	Reader io.Reader
}

// Uploader stores a file and returns a public URL for it.
type Uploader interface {
	Upload(ctx context.Context, folder string, f File) (string, error)
}
