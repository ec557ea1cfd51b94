package processor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"vodworks/internal/ports"
	"vodworks/internal/storage"
)

const masterPlaylistFilename = "playlist.m3u8"

type Uploader struct {
	sp ports.StorageProvider
}

func NewUploader(sp ports.StorageProvider) *Uploader {
	return &Uploader{sp: sp}
}

type HLSUploadResult struct {
	// MasterKey es la object key del master playlist según el provider
	// (en gdrive no coincide con la ruta lógica).
	MasterKey  string
	Count      int
	TotalBytes int64
}

// UploadHLS sube todo el contenido del directorio HLS (playlists y
// segmentos) bajo el prefijo del video. Cualquier upload fallido aborta
// el run: nunca se publica un set parcial.
func (u *Uploader) UploadHLS(ctx context.Context, videoID, hlsDir string) (*HLSUploadResult, error) {
	entries, err := os.ReadDir(hlsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read hls directory: %w", err)
	}

	result := &HLSUploadResult{}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		out, err := u.uploadFile(ctx,
			filepath.Join(hlsDir, entry.Name()),
			storage.HLSPath(videoID, entry.Name()),
			storage.ContentTypeFor(entry.Name()),
		)
		if err != nil {
			return nil, fmt.Errorf("upload hls artifact failed name=%s: %w", entry.Name(), err)
		}

		if entry.Name() == masterPlaylistFilename {
			result.MasterKey = out.ObjectKey
		}
		result.Count++
		result.TotalBytes += out.Size
	}

	if result.MasterKey == "" {
		return nil, fmt.Errorf("master playlist missing from hls directory %s", hlsDir)
	}

	return result, nil
}

// UploadThumbnail sube el poster y devuelve su object key.
func (u *Uploader) UploadThumbnail(ctx context.Context, videoID, localPath string) (string, error) {
	out, err := u.uploadFile(ctx, localPath, storage.ThumbnailPath(videoID), "image/jpeg")
	if err != nil {
		return "", fmt.Errorf("upload thumbnail failed: %w", err)
	}
	return out.ObjectKey, nil
}

func (u *Uploader) uploadFile(ctx context.Context, localPath, objectKey, contentType string) (ports.PutObjectOutput, error) {
	st, err := os.Stat(localPath)
	if err != nil {
		return ports.PutObjectOutput{}, fmt.Errorf("artifact file not found: %w", err)
	}

	f, err := os.Open(localPath)
	if err != nil {
		return ports.PutObjectOutput{}, fmt.Errorf("failed to open artifact: %w", err)
	}
	defer f.Close()

	return u.sp.PutObject(ctx, ports.PutObjectInput{
		ObjectKey:   objectKey,
		ContentType: contentType,
		Reader:      f,
		Size:        st.Size(),
	})
}
