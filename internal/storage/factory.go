package storage

import (
	"context"
	"fmt"
	"os"

	"vodworks/internal/adapters/storage/gcs"
	"vodworks/internal/adapters/storage/gdrive"
	"vodworks/internal/adapters/storage/localfs"
	"vodworks/internal/config"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	drive "google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

func NewProvider(ctx context.Context, cfg *config.Config) (Provider, error) {
	switch cfg.StorageProvider {
	case "gcs":
		return newGCSProvider(ctx, cfg)

	case "localfs":
		if cfg.StorageLocalRoot == "" {
			return nil, fmt.Errorf("STORAGE_LOCAL_ROOT is required for localfs storage")
		}
		return localfs.New(cfg.StorageLocalRoot), nil

	case "gdrive":
		return newGDriveProvider(ctx, cfg)

	default:
		return nil, fmt.Errorf("unknown storage provider: %s", cfg.StorageProvider)
	}
}

func newGCSProvider(ctx context.Context, cfg *config.Config) (Provider, error) {
	if cfg.GCSBucket == "" {
		return nil, fmt.Errorf("GCS_BUCKET is required for gcs storage")
	}

	var creds []byte
	if cfg.GCSCredentialsFile != "" {
		b, err := os.ReadFile(cfg.GCSCredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read gcs credentials: %w", err)
		}
		creds = b
	}

	return gcs.New(ctx, cfg.GCSBucket, creds)
}

func newGDriveProvider(ctx context.Context, cfg *config.Config) (Provider, error) {
	if cfg.GDriveClientID == "" || cfg.GDriveClientSecret == "" || cfg.GDriveRefreshToken == "" {
		return nil, fmt.Errorf("GDRIVE_CLIENT_ID, GDRIVE_CLIENT_SECRET and GDRIVE_REFRESH_TOKEN are required for gdrive storage")
	}

	conf := &oauth2.Config{
		ClientID:     cfg.GDriveClientID,
		ClientSecret: cfg.GDriveClientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{drive.DriveFileScope},
	}

	tok := &oauth2.Token{RefreshToken: cfg.GDriveRefreshToken}
	httpClient := conf.Client(ctx, tok)

	srv, err := drive.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, err
	}

	return gdrive.NewClient(srv, cfg.GDriveFolderID), nil
}
