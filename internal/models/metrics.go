package models

import "time"

// PlaybackSample is the client-reported playback metric payload.
type PlaybackSample struct {
	BenchmarkRunSource *string `json:"benchmark_run_source"`
	// BenchmarkMetadata is free-form; objects merge into the run notes,
	// anything else lands under a "payload" key.
	BenchmarkMetadata any      `json:"benchmark_metadata"`
	VideoID           *string  `json:"video_id"`
	Country           *string  `json:"country"`
	ISP               *string  `json:"isp"`
	DeviceType        *string  `json:"device_type"`
	BandwidthMbps     *float64 `json:"bandwidth_mbps"`
	FirstFrameMs      *int64   `json:"first_frame_ms"`
	TotalStartupMs    *int64   `json:"total_startup_ms"`
	BufferingEvents   *int32   `json:"buffering_events"`
}

// MetricsInsights aggregates the recorded benchmark data for the
// insights endpoint.
type MetricsInsights struct {
	VideoProcessing VideoProcessingInsights `json:"video_processing"`
	APILatency      APILatencyInsights      `json:"api_latency"`
	Playback        PlaybackInsights        `json:"playback"`
	ServerStartup   ServerStartupInsights   `json:"server_startup"`
}

type VideoProcessingInsights struct {
	Totals        ProcessingAggregate    `json:"totals"`
	StepBreakdown []ProcessingStepStats  `json:"step_breakdown"`
	RecentRuns    []ProcessingRunSummary `json:"recent_runs"`
}

type ProcessingAggregate struct {
	RunCount           int64  `json:"run_count"`
	AvgTotalDurationMs *int64 `json:"avg_total_duration_ms"`
	FastestRunMs       *int64 `json:"fastest_run_ms"`
	SlowestRunMs       *int64 `json:"slowest_run_ms"`
}

type ProcessingStepStats struct {
	Step          string   `json:"step"`
	SampleCount   int64    `json:"sample_count"`
	AvgDurationMs *int64   `json:"avg_duration_ms"`
	AvgCPU        *float64 `json:"avg_cpu"`
	PeakMemBytes  *int64   `json:"peak_mem_bytes"`
}

type ProcessingRunSummary struct {
	ID              string    `json:"id"`
	StartedAt       time.Time `json:"started_at"`
	Source          string    `json:"source"`
	RunnerHost      string    `json:"runner_host"`
	CPUModel        *string   `json:"cpu_model"`
	BandwidthMbps   *float64  `json:"bandwidth_mbps"`
	TotalDurationMs int64     `json:"total_duration_ms"`
	StepCount       int64     `json:"step_count"`
	AvgCPU          *float64  `json:"avg_cpu"`
	PeakMemBytes    *int64    `json:"peak_mem_bytes"`
}

type APILatencyInsights struct {
	Totals  APILatencyTotals  `json:"totals"`
	ByRoute []APIRouteLatency `json:"by_route"`
}

type APILatencyTotals struct {
	SampleCount  int64  `json:"sample_count"`
	AvgLatencyMs *int64 `json:"avg_latency_ms"`
	P95LatencyMs *int64 `json:"p95_latency_ms"`
	P99LatencyMs *int64 `json:"p99_latency_ms"`
}

type APIRouteLatency struct {
	Route         string               `json:"route"`
	Method        string               `json:"method"`
	SampleCount   int64                `json:"sample_count"`
	AvgLatencyMs  *int64               `json:"avg_latency_ms"`
	P95LatencyMs  *int64               `json:"p95_latency_ms"`
	P99LatencyMs  *int64               `json:"p99_latency_ms"`
	AvgConcurrent *float64             `json:"avg_concurrent"`
	TopStatuses   []APIStatusBreakdown `json:"top_statuses"`
}

type APIStatusBreakdown struct {
	Status      string `json:"status"`
	SampleCount int64  `json:"sample_count"`
}

type PlaybackInsights struct {
	Totals    PlaybackTotals          `json:"totals"`
	ByCountry []PlaybackGeoSummary    `json:"by_country"`
	ByDevice  []PlaybackDeviceSummary `json:"by_device"`
}

type PlaybackTotals struct {
	SampleCount        int64    `json:"sample_count"`
	AvgFirstFrameMs    *int64   `json:"avg_first_frame_ms"`
	AvgTotalStartupMs  *int64   `json:"avg_total_startup_ms"`
	AvgBufferingEvents *float64 `json:"avg_buffering_events"`
}

type PlaybackGeoSummary struct {
	Country            string   `json:"country"`
	SampleCount        int64    `json:"sample_count"`
	AvgFirstFrameMs    *int64   `json:"avg_first_frame_ms"`
	AvgTotalStartupMs  *int64   `json:"avg_total_startup_ms"`
	AvgBufferingEvents *float64 `json:"avg_buffering_events"`
}

type PlaybackDeviceSummary struct {
	DeviceType         string   `json:"device_type"`
	SampleCount        int64    `json:"sample_count"`
	AvgFirstFrameMs    *int64   `json:"avg_first_frame_ms"`
	AvgTotalStartupMs  *int64   `json:"avg_total_startup_ms"`
	AvgBufferingEvents *float64 `json:"avg_buffering_events"`
}

type ServerStartupInsights struct {
	Totals        ServerStartupTotals   `json:"totals"`
	RecentSamples []ServerStartupSample `json:"recent_samples"`
}

type ServerStartupTotals struct {
	SampleCount    int64  `json:"sample_count"`
	AvgStartupMs   *int64 `json:"avg_startup_ms"`
	MinStartupMs   *int64 `json:"min_startup_ms"`
	MaxStartupMs   *int64 `json:"max_startup_ms"`
	ColdStartAvgMs *int64 `json:"cold_start_avg_ms"`
	WarmStartAvgMs *int64 `json:"warm_start_avg_ms"`
	ColdStartCount int64  `json:"cold_start_count"`
	WarmStartCount int64  `json:"warm_start_count"`
}

type ServerStartupSample struct {
	RecordedAt        time.Time `json:"recorded_at"`
	ServiceName       string    `json:"service_name"`
	Revision          *string   `json:"revision"`
	ColdStart         bool      `json:"cold_start"`
	StartupDurationMs int64     `json:"startup_duration_ms"`
}
