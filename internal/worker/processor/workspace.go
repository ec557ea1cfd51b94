package processor

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"vodworks/internal/ports"
	"vodworks/internal/worker/queue"
)

// JobWorkspace es el área de trabajo local, exclusiva de un run. Nadie más
// escribe bajo Root, así que no hace falta ningún lock.
type JobWorkspace struct {
	Root          string
	InputPath     string
	HLSDir        string
	ThumbnailPath string
}

type Workspace struct {
	sp      ports.StorageProvider
	workDir string
}

func NewWorkspace(sp ports.StorageProvider, workDir string) *Workspace {
	return &Workspace{sp: sp, workDir: workDir}
}

// Prepare crea los directorios del run y descarga el video original del
// storage. Siempre devuelve el workspace, incluso con error, para que el
// caller pueda limpiarlo.
func (w *Workspace) Prepare(ctx context.Context, job queue.TranscodeJob) (*JobWorkspace, error) {
	root := filepath.Join(w.workDir, job.VideoID)

	filename := filepath.Base(job.Filename)
	if filename == "" || filename == "." || filename == string(filepath.Separator) {
		filename = "input.mp4"
	}

	jw := &JobWorkspace{
		Root:          root,
		InputPath:     filepath.Join(root, filename),
		HLSDir:        filepath.Join(root, "hls"),
		ThumbnailPath: filepath.Join(root, "thumbnail.jpg"),
	}

	if err := os.MkdirAll(jw.HLSDir, 0o755); err != nil {
		return jw, fmt.Errorf("failed to create working directory: %w", err)
	}

	if err := w.downloadOriginal(ctx, job.ObjectKey, jw.InputPath); err != nil {
		return jw, err
	}

	return jw, nil
}

func (w *Workspace) downloadOriginal(ctx context.Context, objectKey, localPath string) error {
	rc, _, _, err := w.sp.GetObject(ctx, objectKey)
	if err != nil {
		return fmt.Errorf("download original failed object_key=%s: %w", objectKey, err)
	}
	defer rc.Close()

	f, err := os.Create(localPath)
	if err != nil {
		return fmt.Errorf("failed to create input file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, rc); err != nil {
		return fmt.Errorf("failed to write input file: %w", err)
	}

	return nil
}

// Cleanup borra el workspace completo. El error se devuelve para que el
// caller lo loguee; nunca cambia el resultado del run.
func (w *Workspace) Cleanup(jw *JobWorkspace) error {
	if jw == nil || jw.Root == "" {
		return nil
	}
	return os.RemoveAll(jw.Root)
}
