package processor

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"vodworks/internal/media/plan"
	"vodworks/internal/media/playlist"
	"vodworks/internal/models"
	"vodworks/internal/pkg/errors"
	"vodworks/internal/pkg/logger"
	"vodworks/internal/ports"
	"vodworks/internal/worker/queue"
)

// MetadataStore es el subconjunto del repositorio de videos que usa el worker.
type MetadataStore interface {
	UpdateStatus(ctx context.Context, id string, status models.VideoStatus) error
	CommitProcessingResult(ctx context.Context, id string, duration *int, thumbnailPath, hlsPlaylistPath *string) (int64, error)
}

// MetricsSink registra la duración de cada paso del run. Los errores se
// loguean y el run continúa: las métricas nunca tiran un job.
type MetricsSink interface {
	RecordProcessingStep(ctx context.Context, runID, videoID *string, step string, durationMs *int64, cpuAvg *float64, memPeak *int64) error
}

// Encoder abstrae la herramienta de encode (ffmpeg en producción).
type Encoder interface {
	EncodeRendition(ctx context.Context, inputPath, outDir string, r plan.Rendition) error
	ExtractThumbnail(ctx context.Context, inputPath, outPath string) error
}

// MediaProber abstrae la herramienta de probe (ffprobe en producción).
type MediaProber interface {
	Duration(ctx context.Context, path string) (float64, error)
	Dimensions(ctx context.Context, path string) (int, int, error)
}

type Deps struct {
	Videos            MetadataStore
	Metrics           MetricsSink
	SP                ports.StorageProvider
	Encoder           Encoder
	Prober            MediaProber
	WorkDir           string
	EncodeConcurrency int
	Log               *logger.Logger
}

type Processor struct {
	videos  MetadataStore
	metrics MetricsSink
	encoder Encoder
	prober  MediaProber
	log     *logger.Logger

	// Componentes internos
	workspace  *Workspace
	transcoder *Transcoder
	uploader   *Uploader
}

func New(d Deps) *Processor {
	log := d.Log
	if log == nil {
		log = logger.NewDefault()
	}
	log = log.WithComponent("processor")

	p := &Processor{
		videos:  d.Videos,
		metrics: d.Metrics,
		encoder: d.Encoder,
		prober:  d.Prober,
		log:     log,
	}

	// Inicializar componentes
	p.workspace = NewWorkspace(d.SP, d.WorkDir)
	p.transcoder = NewTranscoder(d.Encoder, d.EncodeConcurrency)
	p.uploader = NewUploader(d.SP)

	return p
}

// ProcessJob orquesta el flujo completo de un run de transcodificación.
func (p *Processor) ProcessJob(ctx context.Context, job queue.TranscodeJob) error {
	log := p.log.FromContext(ctx).WithFields(map[string]any{"video_id": job.VideoID})
	runStarted := time.Now()

	// 1. Marcar como processing. Un fallo acá se loguea y el run sigue;
	// el estado final lo decide el commit.
	if err := p.videos.UpdateStatus(ctx, job.VideoID, models.StatusProcessing); err != nil {
		log.Warn("failed to mark video as processing", "error", err.Error())
	}

	// 2. Preparar workspace y descargar el original
	log.Debug("preparing workspace")
	stepStart := time.Now()
	ws, err := p.workspace.Prepare(ctx, job)
	p.recordStep(ctx, job, "workspace_setup", time.Since(stepStart).Milliseconds())
	defer p.cleanupWorkspace(ctx, ws)
	if err != nil {
		return p.failJob(ctx, job, errors.WrapWithCode(err, errors.CodeStorage, "processor.workspace", "failed to prepare workspace"))
	}

	// 3. Probar metadata. La duración es obligatoria; si las dimensiones
	// no se pueden leer, el planner cae a las cajas máximas de cada perfil.
	stepStart = time.Now()
	durationSecs, width, height, err := p.probeMetadata(ctx, log, ws.InputPath)
	p.recordStep(ctx, job, "probe_metadata", time.Since(stepStart).Milliseconds())
	if err != nil {
		return p.failJob(ctx, job, err)
	}

	// 4. Plan de renditions en orden de ladder
	renditions := plan.Renditions(width, height)
	log.Info("starting transcode",
		"renditions", len(renditions),
		"width", width,
		"height", height,
		"duration_secs", durationSecs,
	)

	// 5. Encodes en paralelo + thumbnail. El thumbnail corre junto a los
	// encodes y sus fallos también abortan el run: un video ready siempre
	// tiene poster.
	thumbCh := make(chan thumbResult, 1)
	go func() {
		started := time.Now()
		err := p.encoder.ExtractThumbnail(ctx, ws.InputPath, ws.ThumbnailPath)
		thumbCh <- thumbResult{durationMs: time.Since(started).Milliseconds(), err: err}
	}()

	encodeStart := time.Now()
	results := p.transcoder.EncodeAll(ctx, ws.InputPath, ws.HLSDir, renditions)
	for _, res := range results {
		p.recordStep(ctx, job, "transcode_"+res.Quality, res.DurationMs)
	}
	p.recordStep(ctx, job, "transcode_all", time.Since(encodeStart).Milliseconds())

	thumb := <-thumbCh
	p.recordStep(ctx, job, "generate_thumbnail", thumb.durationMs)

	if err := FirstError(results); err != nil {
		return p.failJob(ctx, job, err)
	}
	if thumb.err != nil {
		return p.failJob(ctx, job, thumb.err)
	}
	log.Debug("transcode completed")

	// 6. Sintetizar el master playlist en orden de ladder y escribirlo
	// junto a los playlists por rendition
	master := playlist.Master(renditions)
	if err := os.WriteFile(filepath.Join(ws.HLSDir, masterPlaylistFilename), []byte(master), 0o644); err != nil {
		return p.failJob(ctx, job, errors.Wrap(err, "processor.playlist", "failed to write master playlist"))
	}

	// 7. Subir artefactos HLS
	stepStart = time.Now()
	hlsResult, err := p.uploader.UploadHLS(ctx, job.VideoID, ws.HLSDir)
	p.recordStep(ctx, job, "upload_hls_artifacts", time.Since(stepStart).Milliseconds())
	if err != nil {
		return p.failJob(ctx, job, errors.WrapWithCode(err, errors.CodeStorage, "processor.upload", "failed to upload hls artifacts"))
	}
	log.Debug("hls artifacts uploaded", "count", hlsResult.Count, "bytes", hlsResult.TotalBytes)

	// 8. Subir thumbnail
	stepStart = time.Now()
	thumbKey, err := p.uploader.UploadThumbnail(ctx, job.VideoID, ws.ThumbnailPath)
	p.recordStep(ctx, job, "upload_thumbnail", time.Since(stepStart).Milliseconds())
	if err != nil {
		return p.failJob(ctx, job, errors.WrapWithCode(err, errors.CodeStorage, "processor.upload", "failed to upload thumbnail"))
	}

	// 9. Commit final: duración, paths y estado ready en un solo statement
	stepStart = time.Now()
	duration := int(durationSecs)
	rows, err := p.videos.CommitProcessingResult(ctx, job.VideoID, &duration, &thumbKey, &hlsResult.MasterKey)
	p.recordStep(ctx, job, "finalize_metadata", time.Since(stepStart).Milliseconds())
	if err != nil {
		return p.failJob(ctx, job, errors.WrapWithCode(err, errors.CodeMetadataStore, "processor.commit", "failed to commit processing result"))
	}
	if rows == 0 {
		// El video fue borrado durante el procesamiento; no queda fila que
		// actualizar. Los artefactos remotos los limpió (o limpiará) el delete.
		log.Warn("video row vanished during processing, nothing to commit")
	}

	p.recordStep(ctx, job, "processing_total", time.Since(runStarted).Milliseconds())
	log.Info("processing completed", "duration_ms", time.Since(runStarted).Milliseconds())
	return nil
}

type thumbResult struct {
	durationMs int64
	err        error
}

// probeMetadata lee duración y dimensiones del original. La duración es
// metadata obligatoria y su fallo aborta el run; las dimensiones no.
func (p *Processor) probeMetadata(ctx context.Context, log *logger.Logger, inputPath string) (float64, int, int, error) {
	width, height, err := p.prober.Dimensions(ctx, inputPath)
	if err != nil {
		log.Warn("failed to probe dimensions, falling back to profile maxima", "error", err.Error())
		width, height = 0, 0
	}

	durationSecs, err := p.prober.Duration(ctx, inputPath)
	if err != nil {
		return 0, 0, 0, errors.Wrap(err, "processor.probe", "failed to probe duration")
	}

	return durationSecs, width, height, nil
}

func (p *Processor) recordStep(ctx context.Context, job queue.TranscodeJob, step string, durationMs int64) {
	if p.metrics == nil {
		return
	}

	var runID *string
	if job.BenchmarkRunID != "" {
		runID = &job.BenchmarkRunID
	}
	videoID := job.VideoID
	d := durationMs

	if err := p.metrics.RecordProcessingStep(ctx, runID, &videoID, step, &d, nil, nil); err != nil {
		p.log.FromContext(ctx).Warn("failed to record processing step",
			"step", step,
			"video_id", job.VideoID,
			"error", err.Error(),
		)
	}
}

func (p *Processor) cleanupWorkspace(ctx context.Context, ws *JobWorkspace) {
	if err := p.workspace.Cleanup(ws); err != nil {
		p.log.FromContext(ctx).Warn("workspace cleanup failed", "path", ws.Root, "error", err.Error())
	}
}

func (p *Processor) failJob(ctx context.Context, job queue.TranscodeJob, cause error) error {
	log := p.log.FromContext(ctx).WithFields(map[string]any{"video_id": job.VideoID})

	var perr *errors.Error
	if errors.As(cause, &perr) {
		log.Error("processing failed",
			"code", string(perr.Code),
			"op", perr.Op,
			"message", perr.Message,
		)
	} else if cause != nil {
		log.Error("processing failed", "error", cause.Error())
	}

	// Best effort: si este update también falla solo queda el log.
	if err := p.videos.UpdateStatus(ctx, job.VideoID, models.StatusFailed); err != nil {
		log.Error("failed to mark video as failed", "error", err.Error())
	}

	return cause
}
