package storage

import (
	"context"
	"io"
)

// MediaStore keeps uploaded course media. Upload returns a public URL and a
// reference that Delete accepts later.
type MediaStore interface {
	Upload(ctx context.Context, folder, filename string, r io.Reader) (url, ref string, err error)
	Delete(ctx context.Context, ref string) error
}

// Folders used by the API.
const (
	FolderAvatars    = "avatars"
	FolderThumbnails = "thumbnails"
	FolderContents   = "contents"
	FolderAttachment = "attachments"
)

// Upload is a file received with a request.
type Upload struct {
	Filename string
	Body     io.Reader
}
