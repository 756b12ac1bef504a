// Package media describes uploaded binary assets such as product photos.
package media

import (
	"context"
	"errors"
	"io"
)

var ErrEmptyUpload = errors.New("media: empty upload")

type Upload struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// ImageStore persists an upload and returns its public URL.
type ImageStore interface {
	Upload(ctx context.Context, folder string, u Upload) (string, error)
}
