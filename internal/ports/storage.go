package ports

import (
	"context"
	"io"
	"time"
)

type PutObjectInput struct {
	ObjectKey   string
	ContentType string
	Reader      io.Reader
	Size        int64
}

type PutObjectOutput struct {
	// En localfs será la misma object_key.
	// En gcs será la ruta dentro del bucket; en gdrive el fileId real.
	ObjectKey string
	Size      int64
}

type SignedURLOutput struct {
	URL       string
	ExpiresAt time.Time
}

// StorageProvider: implementaciones (gcs, localfs, gdrive, etc.)
type StorageProvider interface {
	Provider() string

	PutObject(ctx context.Context, in PutObjectInput) (PutObjectOutput, error)
	GetObject(ctx context.Context, objectKey string) (rc io.ReadCloser, contentType string, size int64, err error)
	DeleteObject(ctx context.Context, objectKey string) error

	// DeletePrefix borra todos los objetos de un video (prefix = "<video_id>/").
	// Best effort: el caller decide si el error es fatal.
	DeletePrefix(ctx context.Context, prefix string) error

	// Los providers sin URLs públicas devuelven URL vacía y el API
	// sirve el contenido via /videos/{id}/stream y /videos/{id}/thumbnail.
	GetSignedURL(ctx context.Context, objectKey string, expiresIn time.Duration) (SignedURLOutput, error)
}
