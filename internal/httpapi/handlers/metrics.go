package handlers

import (
	"net"
	"net/http"
	"strings"

	"vodworks/internal/httpkit"
	"vodworks/internal/models"
)

// RecordPlayback ingests one client-reported playback sample. When the client
// names a benchmark run source, a fresh run is opened and the sample hangs
// off it; anonymous samples are stored without a run.
func (h *Handler) RecordPlayback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := h.log.FromContext(ctx)

	var sample models.PlaybackSample
	if err := httpkit.DecodeJSON(r, &sample); err != nil {
		httpkit.WriteErr(w, 400, "VALIDATION_ERROR", "Invalid data provided", nil)
		return
	}

	var runID *string
	if sample.BenchmarkRunSource != nil && strings.TrimSpace(*sample.BenchmarkRunSource) != "" {
		source := strings.TrimSpace(*sample.BenchmarkRunSource)
		id, err := h.metrics.StartBenchmarkRun(ctx, source, playbackRunNotes(r, sample))
		if err != nil {
			log.Error("benchmark run start failed", "error", err, "source", source)
			httpkit.WriteErr(w, 500, "INTERNAL_ERROR", "Failed to initialize benchmark run", nil)
			return
		}
		runID = &id
	}

	if err := h.metrics.RecordPlayback(ctx, runID, sample); err != nil {
		log.Error("playback metric insert failed", "error", err)
		httpkit.WriteErr(w, 500, "INTERNAL_ERROR", "Failed to record playback metric", nil)
		return
	}

	httpkit.WriteJSON(w, 202, map[string]any{"message": "metric recorded"})
}

// GetInsights serves the aggregated benchmark view.
func (h *Handler) GetInsights(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	insights, err := h.metrics.Insights(ctx)
	if err != nil {
		h.log.FromContext(ctx).Error("insights query failed", "error", err)
		httpkit.WriteErr(w, 500, "INTERNAL_ERROR", "Failed to load metrics insights", nil)
		return
	}

	httpkit.WriteJSON(w, 200, insights)
}

// playbackRunNotes builds the run notes: client metadata as the base, the
// structured sample fields filled in only where the client did not already
// supply a value. bandwidth_mbps always reflects the sample so the run row
// picks it up.
func playbackRunNotes(r *http.Request, s models.PlaybackSample) map[string]any {
	notes := map[string]any{}
	switch m := s.BenchmarkMetadata.(type) {
	case map[string]any:
		for k, v := range m {
			notes[k] = v
		}
	case nil:
	default:
		notes["payload"] = m
	}

	if s.VideoID != nil {
		setIfAbsent(notes, "video_id", *s.VideoID)
	}
	if s.Country != nil {
		setIfAbsent(notes, "country", *s.Country)
	}
	if s.ISP != nil {
		setIfAbsent(notes, "isp", *s.ISP)
	}
	if s.DeviceType != nil {
		setIfAbsent(notes, "device_type", *s.DeviceType)
	}
	setIfAbsent(notes, "client_ip", clientIP(r))
	if s.BandwidthMbps != nil {
		notes["bandwidth_mbps"] = *s.BandwidthMbps
	}
	return notes
}

func setIfAbsent(m map[string]any, key string, v any) {
	if _, ok := m[key]; !ok {
		m[key] = v
	}
}

// clientIP takes the first X-Forwarded-For hop when present; direct
// connections fall back to the socket peer.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
