package gdrive

import (
    "context"
    "fmt"
    "io"
    "strings"
    "time"

    "vodworks/internal/ports"

    "google.golang.org/api/drive/v3"
    "google.golang.org/api/googleapi"
)

// Client implements ports.StorageProvider backed by Google Drive. Drive has
// no object paths, so the layout key (<video_id>/hls/720p.m3u8) is stored as
// the file Name and the returned ObjectKey is the Drive fileId, which later
// Get/Delete calls use.
type Client struct {
    srv      *drive.Service
    folderID string
}

func NewClient(srv *drive.Service, folderID string) *Client {
    return &Client{srv: srv, folderID: folderID}
}

func (c *Client) Provider() string { return "gdrive" }

func (c *Client) PutObject(ctx context.Context, in ports.PutObjectInput) (ports.PutObjectOutput, error) {
    if in.ObjectKey == "" {
        return ports.PutObjectOutput{}, fmt.Errorf("object_key is required")
    }

    file := &drive.File{Name: in.ObjectKey}
    if c.folderID != "" {
        file.Parents = []string{c.folderID}
    }

    call := c.srv.Files.Create(file)
    if in.ContentType != "" {
        call = call.Media(in.Reader, googleapi.ContentType(in.ContentType))
    } else {
        call = call.Media(in.Reader)
    }

    created, err := call.Context(ctx).Do()
    if err != nil {
        return ports.PutObjectOutput{}, fmt.Errorf("gdrive upload failed: %w", err)
    }

    return ports.PutObjectOutput{ObjectKey: created.Id, Size: in.Size}, nil
}

func (c *Client) GetObject(ctx context.Context, objectKey string) (rc io.ReadCloser, contentType string, size int64, err error) {
    // HLS artifacts are fetched by their layout name when the API streams
    // them; Drive fileIds never contain "/", so a slash means the key is a
    // name that has to be resolved first.
    fileID := objectKey
    if strings.ContainsRune(objectKey, '/') {
        fileID, err = c.findByName(ctx, objectKey)
        if err != nil {
            return nil, "", 0, err
        }
    }

    resp, err := c.srv.Files.Get(fileID).
        SupportsAllDrives(true).
        Download()
    if err != nil {
        return nil, "", 0, err
    }

    contentType = resp.Header.Get("Content-Type")
    size = resp.ContentLength
    return resp.Body, contentType, size, nil
}

func (c *Client) findByName(ctx context.Context, name string) (string, error) {
    safe := strings.ReplaceAll(name, `'`, `\'`)
    q := fmt.Sprintf("name = '%s' and trashed=false", safe)
    if c.folderID != "" {
        q += fmt.Sprintf(" and '%s' in parents", c.folderID)
    }

    list, err := c.srv.Files.List().
        Q(q).
        Fields("files(id)").
        PageSize(1).
        SupportsAllDrives(true).
        Context(ctx).
        Do()
    if err != nil {
        return "", fmt.Errorf("gdrive lookup %q: %w", name, err)
    }
    if len(list.Files) == 0 {
        return "", fmt.Errorf("gdrive object not found: %s", name)
    }
    return list.Files[0].Id, nil
}

func (c *Client) DeleteObject(ctx context.Context, objectKey string) error {
    return c.srv.Files.Delete(objectKey).
        SupportsAllDrives(true).
        Context(ctx).
        Do()
}

// DeletePrefix removes every file whose Name starts with prefix, i.e. all
// artifacts of one video. Drive only supports "contains" name queries, so
// matches are re-checked client-side.
func (c *Client) DeletePrefix(ctx context.Context, prefix string) error {
    q := fmt.Sprintf("name contains '%s' and trashed=false", prefix)
    if c.folderID != "" {
        q += fmt.Sprintf(" and '%s' in parents", c.folderID)
    }

    pageToken := ""
    for {
        call := c.srv.Files.List().
            Q(q).
            Fields("nextPageToken, files(id, name)").
            SupportsAllDrives(true).
            Context(ctx)
        if pageToken != "" {
            call = call.PageToken(pageToken)
        }

        list, err := call.Do()
        if err != nil {
            return fmt.Errorf("gdrive list %q: %w", prefix, err)
        }

        for _, f := range list.Files {
            if len(f.Name) < len(prefix) || f.Name[:len(prefix)] != prefix {
                continue
            }
            if err := c.DeleteObject(ctx, f.Id); err != nil {
                return fmt.Errorf("gdrive delete %q: %w", f.Name, err)
            }
        }

        if list.NextPageToken == "" {
            return nil
        }
        pageToken = list.NextPageToken
    }
}

func (c *Client) GetSignedURL(ctx context.Context, objectKey string, expiresIn time.Duration) (ports.SignedURLOutput, error) {
    // No public URLs for Drive; the API serves stream/thumbnail routes instead.
    return ports.SignedURLOutput{URL: "", ExpiresAt: time.Now().UTC().Add(expiresIn)}, nil
}
