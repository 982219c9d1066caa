package media

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gabriel-vasile/mimetype"

	domainerrors "github.com/purriosity/purriosity-server/internal/errors"
	"github.com/purriosity/purriosity-server/internal/id"
)

// Folder is the top-level key prefix of an upload.
type Folder string

// Upload folders.
const (
	FolderBlog     Folder = "blog"
	FolderProducts Folder = "products"
)

// DefaultMaxUploadBytes caps a single upload.
const DefaultMaxUploadBytes = 10 << 20

// allowedTypes maps accepted content types to the stored file extension.
var allowedTypes = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/gif":  "gif",
	"image/webp": "webp",
}

// Upload is a stored image.
type Upload struct {
	Key         string `json:"key"`
	URL         string `json:"url"`
	ContentType string `json:"content_type"`
	Size        int    `json:"size"`
	Width       int    `json:"width,omitempty"`
	Height      int    `json:"height,omitempty"`
	BlurHash    string `json:"blurhash,omitempty"`
}

// Uploader validates images and writes them to an ObjectStore under
// "<folder>/<random>.<ext>".
type Uploader struct {
	store    ObjectStore
	logger   *slog.Logger
	maxBytes int
}

// NewUploader creates an uploader. maxBytes <= 0 means DefaultMaxUploadBytes.
func NewUploader(store ObjectStore, maxBytes int, logger *slog.Logger) *Uploader {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxUploadBytes
	}
	return &Uploader{store: store, logger: logger, maxBytes: maxBytes}
}

// Upload stores data in folder. The content type is sniffed from the bytes;
// the client-declared type is not trusted.
func (u *Uploader) Upload(ctx context.Context, folder Folder, data []byte) (*Upload, error) {
	switch folder {
	case FolderBlog, FolderProducts:
	default:
		return nil, domainerrors.Validationf("unknown upload folder %q", folder)
	}
	if len(data) == 0 {
		return nil, domainerrors.Validation("file is empty")
	}
	if len(data) > u.maxBytes {
		return nil, domainerrors.Validationf("file exceeds %d bytes", u.maxBytes)
	}

	mtype := mimetype.Detect(data)
	ext, ok := allowedTypes[mtype.String()]
	if !ok {
		return nil, domainerrors.ValidationWithDetails("unsupported file type", map[string]string{
			"content_type": mtype.String(),
		})
	}

	name, err := id.Object()
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "generate object name")
	}
	key := fmt.Sprintf("%s/%s.%s", folder, name, ext)

	result := &Upload{Key: key, ContentType: mtype.String(), Size: len(data)}

	// A missing placeholder never blocks the upload.
	if hash, w, h, err := ComputeBlurHash(data); err != nil {
		u.logger.Warn("failed to compute blurhash", "key", key, "error", err)
	} else {
		result.BlurHash, result.Width, result.Height = hash, w, h
	}

	url, err := u.store.Put(ctx, key, result.ContentType, data)
	if err != nil {
		u.logger.Error("upload failed", "store", u.store.Name(), "key", key, "error", err)
		return nil, domainerrors.Wrap(err, domainerrors.CodeUnavailable, "upload failed")
	}
	result.URL = url

	u.logger.Info("stored upload",
		"store", u.store.Name(),
		"key", key,
		"content_type", result.ContentType,
		"size", result.Size,
	)
	return result, nil
}
