package gcs

import (
    "context"
    "fmt"
    "io"
    "time"

    "vodworks/internal/ports"

    "cloud.google.com/go/storage"
    "google.golang.org/api/iterator"
    "google.golang.org/api/option"
)

// Client implements ports.StorageProvider backed by a Google Cloud Storage
// bucket. ObjectKey is the object path inside the bucket, so the video
// layout (<video_id>/hls/..., <video_id>/thumbnails/...) maps directly.
type Client struct {
    client *storage.Client
    bucket string
}

// New dials GCS. With empty credentialsJSON it falls back to application
// default credentials.
func New(ctx context.Context, bucket string, credentialsJSON []byte) (*Client, error) {
    var opts []option.ClientOption
    if len(credentialsJSON) > 0 {
        opts = append(opts, option.WithCredentialsJSON(credentialsJSON))
    }

    c, err := storage.NewClient(ctx, opts...)
    if err != nil {
        return nil, fmt.Errorf("gcs client: %w", err)
    }
    return &Client{client: c, bucket: bucket}, nil
}

func (c *Client) Provider() string { return "gcs" }

func (c *Client) PutObject(ctx context.Context, in ports.PutObjectInput) (ports.PutObjectOutput, error) {
    if in.ObjectKey == "" {
        return ports.PutObjectOutput{}, fmt.Errorf("object_key is required")
    }

    w := c.client.Bucket(c.bucket).Object(in.ObjectKey).NewWriter(ctx)
    if in.ContentType != "" {
        w.ContentType = in.ContentType
    }

    n, err := io.Copy(w, in.Reader)
    if err != nil {
        _ = w.Close()
        return ports.PutObjectOutput{}, fmt.Errorf("gcs upload failed: %w", err)
    }
    if err := w.Close(); err != nil {
        return ports.PutObjectOutput{}, fmt.Errorf("gcs upload failed: %w", err)
    }

    return ports.PutObjectOutput{ObjectKey: in.ObjectKey, Size: n}, nil
}

func (c *Client) GetObject(ctx context.Context, objectKey string) (rc io.ReadCloser, contentType string, size int64, err error) {
    r, err := c.client.Bucket(c.bucket).Object(objectKey).NewReader(ctx)
    if err != nil {
        return nil, "", 0, err
    }
    return r, r.Attrs.ContentType, r.Attrs.Size, nil
}

func (c *Client) DeleteObject(ctx context.Context, objectKey string) error {
    return c.client.Bucket(c.bucket).Object(objectKey).Delete(ctx)
}

// DeletePrefix removes every object under prefix, typically a whole video
// folder. The first delete error aborts the sweep.
func (c *Client) DeletePrefix(ctx context.Context, prefix string) error {
    it := c.client.Bucket(c.bucket).Objects(ctx, &storage.Query{Prefix: prefix})
    for {
        attrs, err := it.Next()
        if err == iterator.Done {
            return nil
        }
        if err != nil {
            return fmt.Errorf("gcs list %q: %w", prefix, err)
        }
        if err := c.client.Bucket(c.bucket).Object(attrs.Name).Delete(ctx); err != nil {
            return fmt.Errorf("gcs delete %q: %w", attrs.Name, err)
        }
    }
}

// GetSignedURL returns the public object URL. The bucket serves uploaded
// renditions publicly, so the URL does not actually expire.
func (c *Client) GetSignedURL(ctx context.Context, objectKey string, expiresIn time.Duration) (ports.SignedURLOutput, error) {
    return ports.SignedURLOutput{
        URL:       fmt.Sprintf("https://storage.googleapis.com/%s/%s", c.bucket, objectKey),
        ExpiresAt: time.Now().UTC().Add(expiresIn),
    }, nil
}
