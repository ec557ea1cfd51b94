package storage

import (
	"strings"

	"vodworks/internal/media/validate"
)

// Object layout per video:
//
//	<video_id>/videos/<filename>         original upload
//	<video_id>/hls/<quality>.m3u8        media playlists
//	<video_id>/hls/<quality>_NNN.ts      segments
//	<video_id>/hls/playlist.m3u8         master playlist
//	<video_id>/thumbnails/thumbnail.jpg  poster frame

func VideoPath(videoID, filename string) string {
	return videoID + "/videos/" + filename
}

func HLSPrefix(videoID string) string {
	return videoID + "/hls/"
}

func HLSPath(videoID, name string) string {
	return HLSPrefix(videoID) + name
}

func MasterPlaylistPath(videoID string) string {
	return HLSPath(videoID, "playlist.m3u8")
}

func ThumbnailPath(videoID string) string {
	return videoID + "/thumbnails/thumbnail.jpg"
}

// VideoPrefix covers every object belonging to one video.
func VideoPrefix(videoID string) string {
	return videoID + "/"
}

// StoredFilename derives the object filename for an upload from its title,
// keeping the original extension.
func StoredFilename(title, originalFilename string) string {
	ext := validate.Ext(originalFilename)
	if ext == "" {
		ext = "mp4"
	}
	base := strings.ToLower(title)
	base = strings.ReplaceAll(base, " ", "_")
	base = strings.ReplaceAll(base, ".", "")
	return base + "." + ext
}

// ContentTypeFor maps a stored object's extension to its MIME type.
func ContentTypeFor(filename string) string {
	ext := validate.Ext(filename)
	switch ext {
	case "mp4":
		return "video/mp4"
	case "mov":
		return "video/quicktime"
	case "avi":
		return "video/x-msvideo"
	case "mkv":
		return "video/x-matroska"
	case "webm":
		return "video/webm"
	case "flv":
		return "video/x-flv"
	case "wmv":
		return "video/x-ms-wmv"
	case "m4v":
		return "video/x-m4v"
	case "jpg", "jpeg":
		return "image/jpeg"
	case "png":
		return "image/png"
	case "gif":
		return "image/gif"
	case "m3u8":
		return "application/vnd.apple.mpegurl"
	case "ts":
		return "video/mp2t"
	default:
		return "application/octet-stream"
	}
}
