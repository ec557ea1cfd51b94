package handlers

import (
	"net/http/httptest"
	"testing"

	"vodworks/internal/models"
)

func TestPlaybackRunNotes(t *testing.T) {
	t.Run("metadata object merges and wins over structured fields", func(t *testing.T) {
		r := httptest.NewRequest("POST", "/api/v1/metrics/playback", nil)
		r.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")

		video := "vid-1"
		country := "France"
		bw := 25.5
		sample := models.PlaybackSample{
			BenchmarkMetadata: map[string]any{"experiment": "e1", "country": "Spain", "bandwidth_mbps": 1.0},
			VideoID:           &video,
			Country:           &country,
			BandwidthMbps:     &bw,
		}

		notes := playbackRunNotes(r, sample)
		if notes["experiment"] != "e1" {
			t.Errorf("experiment = %v", notes["experiment"])
		}
		if notes["country"] != "Spain" {
			t.Errorf("country = %v, client metadata should win", notes["country"])
		}
		if notes["video_id"] != "vid-1" {
			t.Errorf("video_id = %v", notes["video_id"])
		}
		if notes["client_ip"] != "203.0.113.9" {
			t.Errorf("client_ip = %v", notes["client_ip"])
		}
		if notes["bandwidth_mbps"] != 25.5 {
			t.Errorf("bandwidth_mbps = %v, the sample value should win", notes["bandwidth_mbps"])
		}
	})

	t.Run("non-object metadata is wrapped", func(t *testing.T) {
		r := httptest.NewRequest("POST", "/api/v1/metrics/playback", nil)
		sample := models.PlaybackSample{BenchmarkMetadata: "free text"}

		notes := playbackRunNotes(r, sample)
		if notes["payload"] != "free text" {
			t.Errorf("payload = %v", notes["payload"])
		}
	})

	t.Run("nil metadata keeps structured fields", func(t *testing.T) {
		r := httptest.NewRequest("POST", "/api/v1/metrics/playback", nil)
		device := "mobile"
		isp := "Movistar"
		sample := models.PlaybackSample{DeviceType: &device, ISP: &isp}

		notes := playbackRunNotes(r, sample)
		if notes["device_type"] != "mobile" || notes["isp"] != "Movistar" {
			t.Errorf("notes = %v", notes)
		}
		if _, ok := notes["payload"]; ok {
			t.Errorf("unexpected payload key: %v", notes["payload"])
		}
		if notes["client_ip"] == "" {
			t.Error("client_ip missing from notes")
		}
	})
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		xff        string
		want       string
	}{
		{"socket peer", "203.0.113.7:41234", "", "203.0.113.7"},
		{"peer without port", "203.0.113.7", "", "203.0.113.7"},
		{"single forwarded hop", "10.0.0.1:80", "198.51.100.4", "198.51.100.4"},
		{"first of multiple hops", "10.0.0.1:80", "198.51.100.4, 10.0.0.1, 10.0.0.2", "198.51.100.4"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			r.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				r.Header.Set("X-Forwarded-For", tt.xff)
			}
			if got := clientIP(r); got != tt.want {
				t.Errorf("clientIP = %q, want %q", got, tt.want)
			}
		})
	}
}
