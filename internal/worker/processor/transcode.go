package processor

import (
	"context"
	"sync"
	"time"

	"vodworks/internal/media/plan"
)

// Transcoder ejecuta los encodes de un run en paralelo. El semáforo vive en
// el Transcoder y se comparte entre todos los runs del proceso, así el tope
// de procesos ffmpeg simultáneos vale sin importar cuántos consumers haya.
type Transcoder struct {
	encoder Encoder
	sem     chan struct{}
}

func NewTranscoder(encoder Encoder, maxConcurrent int) *Transcoder {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &Transcoder{
		encoder: encoder,
		sem:     make(chan struct{}, maxConcurrent),
	}
}

// EncodeResult es el resultado de un encode individual.
type EncodeResult struct {
	Quality    string
	DurationMs int64
	Err        error
}

// EncodeAll lanza un encode por rendition y espera a que terminen todos.
// Un encode fallido no cancela a sus hermanos: el run falla igual, pero los
// procesos en curso corren hasta el final.
func (t *Transcoder) EncodeAll(ctx context.Context, inputPath, outDir string, renditions []plan.Rendition) []EncodeResult {
	results := make([]EncodeResult, len(renditions))

	var wg sync.WaitGroup
	for i, r := range renditions {
		wg.Add(1)
		go func(i int, r plan.Rendition) {
			defer wg.Done()

			t.sem <- struct{}{}
			defer func() { <-t.sem }()

			started := time.Now()
			err := t.encoder.EncodeRendition(ctx, inputPath, outDir, r)
			results[i] = EncodeResult{
				Quality:    r.Quality,
				DurationMs: time.Since(started).Milliseconds(),
				Err:        err,
			}
		}(i, r)
	}
	wg.Wait()

	return results
}

// FirstError devuelve el primer error en orden de ladder, no de finalización.
func FirstError(results []EncodeResult) error {
	for _, res := range results {
		if res.Err != nil {
			return res.Err
		}
	}
	return nil
}
