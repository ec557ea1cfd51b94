package models

import "time"

// VideoStatus tracks a video through its processing lifecycle.
type VideoStatus string

const (
	StatusUploading  VideoStatus = "uploading"
	StatusProcessing VideoStatus = "processing"
	StatusReady      VideoStatus = "ready"
	StatusFailed     VideoStatus = "failed"
)

type Video struct {
	ID               string      `json:"id"`
	Title            string      `json:"title"`
	Description      *string     `json:"description,omitempty"`
	Filename         string      `json:"filename"`
	OriginalFilename string      `json:"original_filename"`
	FileSize         int64       `json:"file_size"`
	Duration         *int        `json:"duration,omitempty"` // seconds
	ThumbnailPath    *string     `json:"thumbnail_path,omitempty"`
	HLSPlaylistPath  *string     `json:"hls_playlist_path,omitempty"`
	Status           VideoStatus `json:"status"`
	UserID           string      `json:"user_id"`
	CreatedAt        time.Time   `json:"created_at"`
	UpdatedAt        time.Time   `json:"updated_at"`
}

// VideoResponse is the API view of a video, with playback URLs resolved
// against the storage backend.
type VideoResponse struct {
	ID              string      `json:"id"`
	Title           string      `json:"title"`
	Description     *string     `json:"description,omitempty"`
	Filename        string      `json:"filename"`
	FileSize        int64       `json:"file_size"`
	Duration        *int        `json:"duration,omitempty"`
	ThumbnailPath   *string     `json:"thumbnail_path,omitempty"`
	HLSPlaylistPath *string     `json:"hls_playlist_path,omitempty"`
	HLSStreamURL    *string     `json:"hls_stream_url,omitempty"`
	ThumbnailURL    *string     `json:"thumbnail_url,omitempty"`
	Status          VideoStatus `json:"status"`
	UserID          string      `json:"user_id"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

type HLSStreamingResponse struct {
	VideoID      string      `json:"video_id"`
	HLSURL       string      `json:"hls_url"`
	ThumbnailURL *string     `json:"thumbnail_url,omitempty"`
	Status       VideoStatus `json:"status"`
	Title        string      `json:"title"`
	Duration     *int        `json:"duration,omitempty"`
}

type VideoUploadResponse struct {
	VideoID     string      `json:"video_id"`
	Title       string      `json:"title"`
	Description *string     `json:"description,omitempty"`
	Status      VideoStatus `json:"status"`
	HLSCount    int         `json:"hls_files_count"`
	TotalSize   int64       `json:"total_size"`
	CreatedAt   time.Time   `json:"created_at"`
}

type UpdateVideoRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
}

type PaginationMeta struct {
	Total       int64 `json:"total"`
	Limit       int64 `json:"limit"`
	Offset      int64 `json:"offset"`
	CurrentPage int64 `json:"current_page"`
	TotalPages  int64 `json:"total_pages"`
	HasNext     bool  `json:"has_next"`
	HasPrevious bool  `json:"has_previous"`
}

// VideoPage is one page of a user's library.
type VideoPage struct {
	Videos     []Video
	Pagination PaginationMeta
}
