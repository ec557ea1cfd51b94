package handlers

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"vodworks/internal/auth"
	"vodworks/internal/httpkit"
	"vodworks/internal/media/ffmpeg"
	"vodworks/internal/media/validate"
	"vodworks/internal/models"
	"vodworks/internal/pkg/errors"
	"vodworks/internal/ports"
	"vodworks/internal/repositories"
	"vodworks/internal/storage"
	"vodworks/internal/worker/queue"
)

// signedURLTTL covers a full playback session when the provider signs URLs.
const signedURLTTL = 6 * time.Hour

// UploadVideo accepts a multipart upload, stores the original file and queues
// the transcode. The response is 202: HLS artifacts appear once the worker
// finishes.
func (h *Handler) UploadVideo(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := h.log.FromContext(ctx)
	handlerStart := time.Now()

	userID, ok := auth.UserID(ctx)
	if !ok {
		httpkit.WriteErr(w, 401, "UNAUTHORIZED", "Authentication required", nil)
		return
	}

	if err := r.ParseMultipartForm(512 << 20); err != nil {
		httpkit.WriteErr(w, 400, "VALIDATION_ERROR", "invalid multipart form", nil)
		return
	}

	title := strings.TrimSpace(r.FormValue("title"))
	if title == "" {
		httpkit.WriteErr(w, 400, "VALIDATION_ERROR", "Title is required", map[string]any{"field": "title"})
		return
	}
	description := nullIfEmpty(strings.TrimSpace(r.FormValue("description")))
	if details := videoDetailErrors(&title, description); len(details) > 0 {
		httpkit.WriteErr(w, 400, "VALIDATION_ERROR", "Validation failed", details)
		return
	}

	file, header, err := r.FormFile("files")
	if err != nil {
		httpkit.WriteErr(w, 400, "VALIDATION_ERROR", "Video file is required", map[string]any{"field": "files"})
		return
	}
	defer file.Close()

	if err := validate.File(header.Filename, header.Size); err != nil {
		var verr *errors.Error
		if errors.As(err, &verr) {
			httpkit.WriteErr(w, verr.HTTPStatus(), string(verr.Code), verr.Message, verr.Fields)
			return
		}
		httpkit.WriteErr(w, 400, "VALIDATION_ERROR", err.Error(), nil)
		return
	}

	// Sin ffmpeg/ffprobe en PATH el worker nunca podría procesar el video;
	// mejor rechazar el upload de entrada.
	if err := ffmpeg.Check(); err != nil {
		log.Error("transcoding tools unavailable", "error", err)
		httpkit.WriteErr(w, 503, "TOOL_UNAVAILABLE", "Video processing service is not available", nil)
		return
	}

	video := &models.Video{
		ID:               uuid.NewString(),
		Title:            title,
		Description:      description,
		Filename:         storage.StoredFilename(title, header.Filename),
		OriginalFilename: header.Filename,
		FileSize:         header.Size,
		Status:           models.StatusUploading,
		UserID:           userID,
	}
	if err := h.videos.Create(ctx, video); err != nil {
		log.Error("video insert failed", "error", err)
		httpkit.WriteErr(w, 500, "INTERNAL_ERROR", "Internal server error", nil)
		return
	}

	runID := h.startUploadRun(ctx, r, video)
	h.recordIntakeStep(ctx, runID, video.ID, "create_video_record", nil)

	objectKey := storage.VideoPath(video.ID, video.Filename)
	uploadStart := time.Now()
	out, err := h.sp.PutObject(ctx, ports.PutObjectInput{
		ObjectKey:   objectKey,
		ContentType: storage.ContentTypeFor(video.Filename),
		Reader:      file,
		Size:        header.Size,
	})
	if err != nil {
		h.recordIntakeStep(ctx, runID, video.ID, "upload_original_video_failed", msPtr(time.Since(uploadStart)))
		log.Error("original upload failed", "error", err, "video_id", video.ID)
		if uerr := h.videos.UpdateStatus(ctx, video.ID, models.StatusFailed); uerr != nil {
			log.Warn("status update failed", "error", uerr, "video_id", video.ID)
		}
		httpkit.WriteErr(w, 500, "STORAGE_ERROR", "Failed to store video file", nil)
		return
	}
	h.recordIntakeStep(ctx, runID, video.ID, "upload_original_video", msPtr(time.Since(uploadStart)))

	job := queue.TranscodeJob{
		VideoID:        video.ID,
		ObjectKey:      out.ObjectKey,
		Filename:       video.Filename,
		BenchmarkRunID: runID,
	}
	if err := h.queue.Enqueue(ctx, job); err != nil {
		log.Error("transcode enqueue failed", "error", err, "video_id", video.ID)
		if uerr := h.videos.UpdateStatus(ctx, video.ID, models.StatusFailed); uerr != nil {
			log.Warn("status update failed", "error", uerr, "video_id", video.ID)
		}
		httpkit.WriteErr(w, 500, "INTERNAL_ERROR", "Failed to queue video for processing", nil)
		return
	}

	log.Info("video accepted",
		"video_id", video.ID,
		"user_id", userID,
		"file_size", video.FileSize,
		"provider", h.sp.Provider(),
	)
	h.recordIntakeStep(ctx, runID, video.ID, "upload_handler_complete", msPtr(time.Since(handlerStart)))

	httpkit.WriteJSON(w, 202, models.VideoUploadResponse{
		VideoID:     video.ID,
		Title:       video.Title,
		Description: video.Description,
		Status:      video.Status,
		HLSCount:    0,
		TotalSize:   video.FileSize,
		CreatedAt:   video.CreatedAt,
	})
}

// ListVideos returns one page of the caller's library, newest first.
func (h *Handler) ListVideos(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := auth.UserID(ctx)
	if !ok {
		httpkit.WriteErr(w, 401, "UNAUTHORIZED", "Authentication required", nil)
		return
	}

	limit := int64(10)
	if s := strings.TrimSpace(r.URL.Query().Get("limit")); s != "" {
		if v, err := strconv.ParseInt(s, 10, 64); err == nil && v > 0 {
			if v > 100 {
				v = 100
			}
			limit = v
		}
	}
	offset := int64(0)
	if s := strings.TrimSpace(r.URL.Query().Get("offset")); s != "" {
		if v, err := strconv.ParseInt(s, 10, 64); err == nil && v >= 0 {
			offset = v
		}
	}

	page, err := h.videos.ListByUser(ctx, userID, limit, offset)
	if err != nil {
		h.log.FromContext(ctx).Error("video list failed", "error", err, "user_id", userID)
		httpkit.WriteErr(w, 500, "INTERNAL_ERROR", "Internal server error", nil)
		return
	}

	videos := make([]models.VideoResponse, 0, len(page.Videos))
	for i := range page.Videos {
		videos = append(videos, h.videoResponse(ctx, &page.Videos[i]))
	}

	httpkit.WriteJSON(w, 200, map[string]any{
		"videos":     videos,
		"pagination": page.Pagination,
	})
}

// GetVideo returns one of the caller's videos.
func (h *Handler) GetVideo(w http.ResponseWriter, r *http.Request) {
	video := h.fetchOwnedVideo(w, r)
	if video == nil {
		return
	}
	httpkit.WriteJSON(w, 200, h.videoResponse(r.Context(), video))
}

// UpdateVideo changes a video's title and/or description.
func (h *Handler) UpdateVideo(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req models.UpdateVideoRequest
	if err := httpkit.DecodeJSON(r, &req); err != nil {
		httpkit.WriteErr(w, 400, "VALIDATION_ERROR", "Invalid data provided", nil)
		return
	}
	if req.Title == nil && req.Description == nil {
		httpkit.WriteErr(w, 400, "VALIDATION_ERROR", "At least one field (title or description) must be provided", nil)
		return
	}
	if details := videoDetailErrors(req.Title, req.Description); len(details) > 0 {
		httpkit.WriteErr(w, 400, "VALIDATION_ERROR", "Validation failed", details)
		return
	}

	video := h.fetchOwnedVideo(w, r)
	if video == nil {
		return
	}

	// Un title en blanco conserva el actual; una description en blanco la borra.
	title := video.Title
	if req.Title != nil {
		if t := strings.TrimSpace(*req.Title); t != "" {
			title = t
		}
	}
	description := video.Description
	if req.Description != nil {
		description = nullIfEmpty(strings.TrimSpace(*req.Description))
	}

	updated, err := h.videos.UpdateDetails(ctx, video.ID, title, description)
	if err != nil {
		if errors.Is(err, repositories.ErrVideoNotFound) {
			httpkit.WriteErr(w, 404, "VIDEO_NOT_FOUND", "Video not found", map[string]any{"video_id": video.ID})
			return
		}
		h.log.FromContext(ctx).Error("video update failed", "error", err, "video_id", video.ID)
		httpkit.WriteErr(w, 500, "INTERNAL_ERROR", "Internal server error", nil)
		return
	}

	httpkit.WriteJSON(w, 200, h.videoResponse(ctx, updated))
}

// DeleteVideo removes the database row and then the stored objects. Storage
// cleanup is best effort: an orphaned prefix only costs space.
func (h *Handler) DeleteVideo(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := h.log.FromContext(ctx)

	userID, ok := auth.UserID(ctx)
	if !ok {
		httpkit.WriteErr(w, 401, "UNAUTHORIZED", "Authentication required", nil)
		return
	}
	videoID := chi.URLParam(r, "videoId")

	deleted, err := h.videos.Delete(ctx, videoID, userID)
	if err != nil {
		log.Error("video delete failed", "error", err, "video_id", videoID)
		httpkit.WriteErr(w, 500, "INTERNAL_ERROR", "Internal server error", nil)
		return
	}
	if !deleted {
		httpkit.WriteErr(w, 404, "VIDEO_NOT_FOUND", "Video not found", map[string]any{"video_id": videoID})
		return
	}

	if err := h.sp.DeletePrefix(ctx, storage.VideoPrefix(videoID)); err != nil {
		log.Warn("storage cleanup failed", "error", err, "video_id", videoID)
	}

	log.Info("video deleted", "video_id", videoID, "user_id", userID)
	httpkit.WriteJSON(w, 200, map[string]any{"message": "Video deleted successfully"})
}

// StreamVideo returns the playback descriptor for a processed video.
func (h *Handler) StreamVideo(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	video := h.fetchOwnedVideo(w, r)
	if video == nil {
		return
	}
	if video.HLSPlaylistPath == nil {
		httpkit.WriteErr(w, 400, "VIDEO_NOT_READY", "Video is not ready for streaming", map[string]any{"status": video.Status})
		return
	}

	hlsURL := h.resolveURL(ctx, *video.HLSPlaylistPath, "/api/v1/videos/"+video.ID+"/stream/playlist.m3u8")
	var thumbnailURL *string
	if video.ThumbnailPath != nil {
		u := h.resolveURL(ctx, *video.ThumbnailPath, "/api/v1/videos/"+video.ID+"/thumbnail")
		thumbnailURL = &u
	}

	httpkit.WriteJSON(w, 200, models.HLSStreamingResponse{
		VideoID:      video.ID,
		HLSURL:       hlsURL,
		ThumbnailURL: thumbnailURL,
		Status:       video.Status,
		Title:        video.Title,
		Duration:     video.Duration,
	})
}

// StreamVideoFile serves one HLS artifact through the API. Providers with
// public URLs never hit this route; localfs and gdrive playback depend on it.
func (h *Handler) StreamVideoFile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	video := h.fetchOwnedVideo(w, r)
	if video == nil {
		return
	}
	if video.HLSPlaylistPath == nil {
		httpkit.WriteErr(w, 400, "VIDEO_NOT_READY", "Video is not ready for streaming", map[string]any{"status": video.Status})
		return
	}

	name := chi.URLParam(r, "file")
	if !validStreamArtifact(name) {
		httpkit.WriteErr(w, 404, "NOT_FOUND", "File not found", map[string]any{"file": name})
		return
	}

	rc, ct, size, err := h.sp.GetObject(ctx, storage.HLSPath(video.ID, name))
	if err != nil {
		httpkit.WriteErr(w, 404, "NOT_FOUND", "File not found", map[string]any{"file": name})
		return
	}
	defer rc.Close()

	if ct == "" {
		ct = storage.ContentTypeFor(name)
	}
	w.Header().Set("Content-Type", ct)
	if size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
	}
	_, _ = io.Copy(w, rc)
}

// GetThumbnail serves the poster frame.
func (h *Handler) GetThumbnail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	video := h.fetchOwnedVideo(w, r)
	if video == nil {
		return
	}
	if video.ThumbnailPath == nil {
		httpkit.WriteErr(w, 404, "THUMBNAIL_NOT_FOUND", "Thumbnail not available", map[string]any{"video_id": video.ID})
		return
	}

	rc, ct, size, err := h.sp.GetObject(ctx, *video.ThumbnailPath)
	if err != nil {
		httpkit.WriteErr(w, 404, "THUMBNAIL_NOT_FOUND", "Thumbnail not found", map[string]any{"video_id": video.ID})
		return
	}
	defer rc.Close()

	if ct == "" {
		ct = "image/jpeg"
	}
	w.Header().Set("Content-Type", ct)
	w.Header().Set("Cache-Control", "public, max-age=86400")
	if size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
	}
	_, _ = io.Copy(w, rc)
}

// fetchOwnedVideo loads the {videoId} route param and enforces ownership.
// On failure it writes the error response and returns nil.
func (h *Handler) fetchOwnedVideo(w http.ResponseWriter, r *http.Request) *models.Video {
	ctx := r.Context()

	userID, ok := auth.UserID(ctx)
	if !ok {
		httpkit.WriteErr(w, 401, "UNAUTHORIZED", "Authentication required", nil)
		return nil
	}
	videoID := chi.URLParam(r, "videoId")

	video, err := h.videos.Get(ctx, videoID)
	if err != nil {
		if errors.Is(err, repositories.ErrVideoNotFound) {
			httpkit.WriteErr(w, 404, "VIDEO_NOT_FOUND", "Video not found", map[string]any{"video_id": videoID})
			return nil
		}
		h.log.FromContext(ctx).Error("video lookup failed", "error", err, "video_id", videoID)
		httpkit.WriteErr(w, 500, "INTERNAL_ERROR", "Internal server error", nil)
		return nil
	}
	if video.UserID != userID {
		httpkit.WriteErr(w, 403, "ACCESS_DENIED", "Access denied", nil)
		return nil
	}
	return video
}

// videoResponse resolves playback URLs for one video. Providers that sign
// URLs (gcs) resolve directly; the rest fall back to the API streaming routes.
func (h *Handler) videoResponse(ctx context.Context, v *models.Video) models.VideoResponse {
	resp := models.VideoResponse{
		ID:              v.ID,
		Title:           v.Title,
		Description:     v.Description,
		Filename:        v.Filename,
		FileSize:        v.FileSize,
		Duration:        v.Duration,
		ThumbnailPath:   v.ThumbnailPath,
		HLSPlaylistPath: v.HLSPlaylistPath,
		Status:          v.Status,
		UserID:          v.UserID,
		CreatedAt:       v.CreatedAt,
		UpdatedAt:       v.UpdatedAt,
	}
	if v.HLSPlaylistPath != nil {
		u := h.resolveURL(ctx, *v.HLSPlaylistPath, "/api/v1/videos/"+v.ID+"/stream/playlist.m3u8")
		resp.HLSStreamURL = &u
	}
	if v.ThumbnailPath != nil {
		u := h.resolveURL(ctx, *v.ThumbnailPath, "/api/v1/videos/"+v.ID+"/thumbnail")
		resp.ThumbnailURL = &u
	}
	return resp
}

func (h *Handler) resolveURL(ctx context.Context, objectKey, fallback string) string {
	out, err := h.sp.GetSignedURL(ctx, objectKey, signedURLTTL)
	if err != nil || out.URL == "" {
		return fallback
	}
	return out.URL
}

// startUploadRun opens the benchmark run that follows one upload through
// intake and transcoding. Metrics failures never block an upload.
func (h *Handler) startUploadRun(ctx context.Context, r *http.Request, video *models.Video) string {
	notes := map[string]any{
		"video_id":          video.ID,
		"user_id":           video.UserID,
		"filename":          video.Filename,
		"original_filename": video.OriginalFilename,
		"file_size":         video.FileSize,
		"route":             "/api/v1/videos",
		"method":            r.Method,
	}
	runID, err := h.metrics.StartBenchmarkRun(ctx, "video_upload", notes)
	if err != nil {
		h.log.FromContext(ctx).Warn("benchmark run start failed", "error", err, "video_id", video.ID)
		return ""
	}
	return runID
}

func (h *Handler) recordIntakeStep(ctx context.Context, runID, videoID, step string, durationMs *int64) {
	var runPtr *string
	if runID != "" {
		runPtr = &runID
	}
	if err := h.metrics.RecordProcessingStep(ctx, runPtr, &videoID, step, durationMs, nil, nil); err != nil {
		h.log.FromContext(ctx).Warn("failed to record processing step",
			"step", step,
			"video_id", videoID,
			"error", err.Error(),
		)
	}
}

// videoDetailErrors validates title and description limits. A nil field is
// not checked; callers pass only what the request carries.
func videoDetailErrors(title, description *string) map[string]any {
	details := map[string]any{}
	if title != nil {
		if n := utf8.RuneCountInString(*title); n < 1 || n > 200 {
			details["title"] = "must be between 1 and 200 characters"
		}
	}
	if description != nil {
		if utf8.RuneCountInString(*description) > 1000 {
			details["description"] = "must be at most 1000 characters"
		}
	}
	return details
}

// validStreamArtifact accepts only flat HLS artifact names, keeping the
// object key inside the video's hls/ prefix.
func validStreamArtifact(name string) bool {
	if name == "" || strings.ContainsAny(name, "/\\") || strings.Contains(name, "..") {
		return false
	}
	return strings.HasSuffix(name, ".m3u8") || strings.HasSuffix(name, ".ts")
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func msPtr(d time.Duration) *int64 {
	ms := d.Milliseconds()
	return &ms
}
