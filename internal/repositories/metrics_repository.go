package repositories

import (
	"context"
	"os"
	"runtime"
	"sort"

	"vodworks/internal/httpkit"
	"vodworks/internal/models"

	"github.com/jackc/pgx/v5/pgxpool"
)

// MetricsRepository persists benchmark runs and the per-step, per-request
// and playback samples hanging off them. Recording failures are returned to
// the caller, which logs and moves on; metrics never fail the operation that
// produced them.
type MetricsRepository struct {
	db       *pgxpool.Pool
	hostname string
	region   string
	service  string
}

func NewMetricsRepository(db *pgxpool.Pool) *MetricsRepository {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "unknown-host"
	}
	region := os.Getenv("GOOGLE_CLOUD_REGION")
	if region == "" {
		region = os.Getenv("X_GOOGLE_GCE_REGION")
	}
	return &MetricsRepository{
		db:       db,
		hostname: host,
		region:   region,
		service:  os.Getenv("K_SERVICE"),
	}
}

// BaseEnvironment snapshots where the sample was taken. It is merged into
// every notes/context payload.
func (r *MetricsRepository) BaseEnvironment() map[string]any {
	env := map[string]any{
		"hostname":   r.hostname,
		"go_version": runtime.Version(),
		"num_cpu":    runtime.NumCPU(),
	}
	if r.region != "" {
		env["region"] = r.region
	}
	if r.service != "" {
		env["service_name"] = r.service
	}
	return env
}

func (r *MetricsRepository) mergeEnvironment(extra map[string]any) map[string]any {
	payload := r.BaseEnvironment()
	for k, v := range extra {
		payload[k] = v
	}
	return payload
}

// StartBenchmarkRun opens a run and returns its id. Notes may carry
// cpu_model and bandwidth_mbps overrides that are promoted to columns.
func (r *MetricsRepository) StartBenchmarkRun(ctx context.Context, source string, notes map[string]any) (string, error) {
	var cpuModel *string
	if v, ok := notes["cpu_model"].(string); ok && v != "" {
		cpuModel = &v
	}
	var bandwidth *float64
	if v, ok := notes["bandwidth_mbps"].(float64); ok {
		bandwidth = &v
	}

	var id string
	err := r.db.QueryRow(ctx, `
		INSERT INTO benchmark_runs (source, runner_host, cpu_model, bandwidth_mbps, notes)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING id
	`, source, r.hostname, cpuModel, bandwidth, r.mergeEnvironment(notes)).Scan(&id)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (r *MetricsRepository) RecordProcessingStep(ctx context.Context, runID, videoID *string, step string, durationMs *int64, cpuAvg *float64, memPeak *int64) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO video_processing_metrics (benchmark_run_id, video_id, step, duration_ms, cpu_avg, mem_peak)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, runID, videoID, step, durationMs, cpuAvg, memPeak)
	return err
}

func (r *MetricsRepository) RecordAPILatency(ctx context.Context, runID *string, route, method, status string, latencyMs int64, concurrent *int32) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO api_latency_metrics (benchmark_run_id, route, method, status, latency_ms, concurrent_requests)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, runID, route, method, status, latencyMs, concurrent)
	return err
}

func (r *MetricsRepository) RecordPlayback(ctx context.Context, runID *string, s models.PlaybackSample) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO playback_metrics (benchmark_run_id, country, isp, device_type, first_frame_ms, total_startup_ms, buffering_events)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, runID, s.Country, s.ISP, s.DeviceType, s.FirstFrameMs, s.TotalStartupMs, s.BufferingEvents)
	return err
}

func (r *MetricsRepository) RecordServerStartup(ctx context.Context, service string, revision *string, coldStart bool, startupMs int64, extra map[string]any) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO server_startup_metrics (service_name, revision, cold_start, startup_duration_ms, context)
		VALUES ($1,$2,$3,$4,$5)
	`, service, revision, coldStart, startupMs, r.mergeEnvironment(extra))
	return err
}

// Insights assembles the aggregate view served by the insights endpoint.
// Sections whose tables do not exist yet come back empty instead of failing.
func (r *MetricsRepository) Insights(ctx context.Context) (*models.MetricsInsights, error) {
	processing, err := r.videoProcessingInsights(ctx)
	if err != nil {
		return nil, err
	}
	latency, err := r.apiLatencyInsights(ctx)
	if err != nil {
		return nil, err
	}
	playback, err := r.playbackInsights(ctx)
	if err != nil {
		return nil, err
	}
	startup, err := r.serverStartupInsights(ctx)
	if err != nil {
		return nil, err
	}
	return &models.MetricsInsights{
		VideoProcessing: *processing,
		APILatency:      *latency,
		Playback:        *playback,
		ServerStartup:   *startup,
	}, nil
}

func (r *MetricsRepository) videoProcessingInsights(ctx context.Context) (*models.VideoProcessingInsights, error) {
	out := &models.VideoProcessingInsights{
		StepBreakdown: []models.ProcessingStepStats{},
		RecentRuns:    []models.ProcessingRunSummary{},
	}

	err := r.db.QueryRow(ctx, `
		SELECT
			COALESCE(COUNT(DISTINCT benchmark_run_id), 0)::bigint,
			AVG(total_duration_ms)::bigint,
			MIN(total_duration_ms)::bigint,
			MAX(total_duration_ms)::bigint
		FROM (
			SELECT benchmark_run_id, SUM(COALESCE(duration_ms, 0)) AS total_duration_ms
			FROM video_processing_metrics
			GROUP BY benchmark_run_id
		) totals
	`).Scan(
		&out.Totals.RunCount,
		&out.Totals.AvgTotalDurationMs,
		&out.Totals.FastestRunMs,
		&out.Totals.SlowestRunMs,
	)
	if err != nil {
		if httpkit.IsUndefinedTable(err) {
			return out, nil
		}
		return nil, err
	}

	rows, err := r.db.Query(ctx, `
		SELECT
			step,
			COUNT(*)::bigint AS sample_count,
			AVG(duration_ms)::bigint AS avg_duration_ms,
			AVG(cpu_avg)::double precision AS avg_cpu,
			MAX(mem_peak)::bigint AS peak_mem_bytes
		FROM video_processing_metrics
		GROUP BY step
		ORDER BY avg_duration_ms NULLS LAST, step
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var s models.ProcessingStepStats
		if err := rows.Scan(&s.Step, &s.SampleCount, &s.AvgDurationMs, &s.AvgCPU, &s.PeakMemBytes); err != nil {
			return nil, err
		}
		out.StepBreakdown = append(out.StepBreakdown, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	runRows, err := r.db.Query(ctx, `
		SELECT
			br.id,
			br.started_at,
			br.source,
			br.runner_host,
			br.cpu_model,
			br.bandwidth_mbps,
			COALESCE(SUM(vpm.duration_ms), 0)::bigint AS total_duration_ms,
			COALESCE(COUNT(vpm.id), 0)::bigint AS step_count,
			AVG(vpm.cpu_avg)::double precision AS avg_cpu,
			MAX(vpm.mem_peak)::bigint AS peak_mem_bytes
		FROM benchmark_runs br
		LEFT JOIN video_processing_metrics vpm ON vpm.benchmark_run_id = br.id
		WHERE br.source = 'video_processing'
		GROUP BY br.id
		ORDER BY br.started_at DESC
		LIMIT 10
	`)
	if err != nil {
		return nil, err
	}
	defer runRows.Close()
	for runRows.Next() {
		var s models.ProcessingRunSummary
		var host *string
		if err := runRows.Scan(
			&s.ID,
			&s.StartedAt,
			&s.Source,
			&host,
			&s.CPUModel,
			&s.BandwidthMbps,
			&s.TotalDurationMs,
			&s.StepCount,
			&s.AvgCPU,
			&s.PeakMemBytes,
		); err != nil {
			return nil, err
		}
		if host != nil {
			s.RunnerHost = *host
		}
		out.RecentRuns = append(out.RecentRuns, s)
	}
	if err := runRows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *MetricsRepository) apiLatencyInsights(ctx context.Context) (*models.APILatencyInsights, error) {
	out := &models.APILatencyInsights{ByRoute: []models.APIRouteLatency{}}

	err := r.db.QueryRow(ctx, `
		SELECT
			COUNT(*)::bigint,
			AVG(latency_ms)::bigint,
			(PERCENTILE_CONT(0.95) WITHIN GROUP (ORDER BY latency_ms))::bigint,
			(PERCENTILE_CONT(0.99) WITHIN GROUP (ORDER BY latency_ms))::bigint
		FROM api_latency_metrics
	`).Scan(
		&out.Totals.SampleCount,
		&out.Totals.AvgLatencyMs,
		&out.Totals.P95LatencyMs,
		&out.Totals.P99LatencyMs,
	)
	if err != nil {
		if httpkit.IsUndefinedTable(err) {
			return out, nil
		}
		return nil, err
	}

	type routeKey struct{ route, method string }
	statuses := map[routeKey][]models.APIStatusBreakdown{}

	statusRows, err := r.db.Query(ctx, `
		SELECT route, method, status, COUNT(*)::bigint
		FROM api_latency_metrics
		GROUP BY route, method, status
	`)
	if err != nil {
		return nil, err
	}
	defer statusRows.Close()
	for statusRows.Next() {
		var k routeKey
		var b models.APIStatusBreakdown
		if err := statusRows.Scan(&k.route, &k.method, &b.Status, &b.SampleCount); err != nil {
			return nil, err
		}
		statuses[k] = append(statuses[k], b)
	}
	if err := statusRows.Err(); err != nil {
		return nil, err
	}
	for k, list := range statuses {
		sort.Slice(list, func(i, j int) bool { return list[i].SampleCount > list[j].SampleCount })
		if len(list) > 3 {
			list = list[:3]
		}
		statuses[k] = list
	}

	routeRows, err := r.db.Query(ctx, `
		SELECT
			route,
			method,
			COUNT(*)::bigint AS sample_count,
			AVG(latency_ms)::bigint AS avg_latency_ms,
			(PERCENTILE_CONT(0.95) WITHIN GROUP (ORDER BY latency_ms))::bigint AS p95_latency_ms,
			(PERCENTILE_CONT(0.99) WITHIN GROUP (ORDER BY latency_ms))::bigint AS p99_latency_ms,
			AVG(concurrent_requests)::double precision AS avg_concurrent
		FROM api_latency_metrics
		GROUP BY route, method
		ORDER BY p95_latency_ms DESC NULLS LAST, sample_count DESC
		LIMIT 15
	`)
	if err != nil {
		return nil, err
	}
	defer routeRows.Close()
	for routeRows.Next() {
		var l models.APIRouteLatency
		if err := routeRows.Scan(
			&l.Route,
			&l.Method,
			&l.SampleCount,
			&l.AvgLatencyMs,
			&l.P95LatencyMs,
			&l.P99LatencyMs,
			&l.AvgConcurrent,
		); err != nil {
			return nil, err
		}
		l.TopStatuses = statuses[routeKey{l.Route, l.Method}]
		if l.TopStatuses == nil {
			l.TopStatuses = []models.APIStatusBreakdown{}
		}
		out.ByRoute = append(out.ByRoute, l)
	}
	if err := routeRows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *MetricsRepository) playbackInsights(ctx context.Context) (*models.PlaybackInsights, error) {
	out := &models.PlaybackInsights{
		ByCountry: []models.PlaybackGeoSummary{},
		ByDevice:  []models.PlaybackDeviceSummary{},
	}

	err := r.db.QueryRow(ctx, `
		SELECT
			COUNT(*)::bigint,
			AVG(first_frame_ms)::bigint,
			AVG(total_startup_ms)::bigint,
			AVG(buffering_events)::double precision
		FROM playback_metrics
	`).Scan(
		&out.Totals.SampleCount,
		&out.Totals.AvgFirstFrameMs,
		&out.Totals.AvgTotalStartupMs,
		&out.Totals.AvgBufferingEvents,
	)
	if err != nil {
		if httpkit.IsUndefinedTable(err) {
			return out, nil
		}
		return nil, err
	}

	countryRows, err := r.db.Query(ctx, `
		SELECT
			COALESCE(country, 'Unknown') AS country,
			COUNT(*)::bigint AS sample_count,
			AVG(first_frame_ms)::bigint AS avg_first_frame_ms,
			AVG(total_startup_ms)::bigint AS avg_total_startup_ms,
			AVG(buffering_events)::double precision AS avg_buffering_events
		FROM playback_metrics
		GROUP BY COALESCE(country, 'Unknown')
		ORDER BY avg_total_startup_ms NULLS LAST, sample_count DESC
		LIMIT 15
	`)
	if err != nil {
		return nil, err
	}
	defer countryRows.Close()
	for countryRows.Next() {
		var s models.PlaybackGeoSummary
		if err := countryRows.Scan(&s.Country, &s.SampleCount, &s.AvgFirstFrameMs, &s.AvgTotalStartupMs, &s.AvgBufferingEvents); err != nil {
			return nil, err
		}
		out.ByCountry = append(out.ByCountry, s)
	}
	if err := countryRows.Err(); err != nil {
		return nil, err
	}

	deviceRows, err := r.db.Query(ctx, `
		SELECT
			COALESCE(device_type, 'Unknown') AS device_type,
			COUNT(*)::bigint AS sample_count,
			AVG(first_frame_ms)::bigint AS avg_first_frame_ms,
			AVG(total_startup_ms)::bigint AS avg_total_startup_ms,
			AVG(buffering_events)::double precision AS avg_buffering_events
		FROM playback_metrics
		GROUP BY COALESCE(device_type, 'Unknown')
		ORDER BY avg_total_startup_ms NULLS LAST, sample_count DESC
	`)
	if err != nil {
		return nil, err
	}
	defer deviceRows.Close()
	for deviceRows.Next() {
		var s models.PlaybackDeviceSummary
		if err := deviceRows.Scan(&s.DeviceType, &s.SampleCount, &s.AvgFirstFrameMs, &s.AvgTotalStartupMs, &s.AvgBufferingEvents); err != nil {
			return nil, err
		}
		out.ByDevice = append(out.ByDevice, s)
	}
	if err := deviceRows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *MetricsRepository) serverStartupInsights(ctx context.Context) (*models.ServerStartupInsights, error) {
	out := &models.ServerStartupInsights{RecentSamples: []models.ServerStartupSample{}}

	err := r.db.QueryRow(ctx, `
		SELECT
			COUNT(*)::bigint,
			AVG(startup_duration_ms)::bigint,
			MIN(startup_duration_ms)::bigint,
			MAX(startup_duration_ms)::bigint,
			(AVG(startup_duration_ms) FILTER (WHERE cold_start))::bigint,
			(AVG(startup_duration_ms) FILTER (WHERE NOT cold_start))::bigint,
			COALESCE(COUNT(*) FILTER (WHERE cold_start), 0)::bigint,
			COALESCE(COUNT(*) FILTER (WHERE NOT cold_start), 0)::bigint
		FROM server_startup_metrics
	`).Scan(
		&out.Totals.SampleCount,
		&out.Totals.AvgStartupMs,
		&out.Totals.MinStartupMs,
		&out.Totals.MaxStartupMs,
		&out.Totals.ColdStartAvgMs,
		&out.Totals.WarmStartAvgMs,
		&out.Totals.ColdStartCount,
		&out.Totals.WarmStartCount,
	)
	if err != nil {
		if httpkit.IsUndefinedTable(err) {
			return out, nil
		}
		return nil, err
	}

	rows, err := r.db.Query(ctx, `
		SELECT recorded_at, service_name, revision, cold_start, startup_duration_ms
		FROM server_startup_metrics
		ORDER BY recorded_at DESC
		LIMIT 20
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var s models.ServerStartupSample
		if err := rows.Scan(&s.RecordedAt, &s.ServiceName, &s.Revision, &s.ColdStart, &s.StartupDurationMs); err != nil {
			return nil, err
		}
		out.RecentSamples = append(out.RecentSamples, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
