// Package stampserver exposes the timestamp pipeline over MCP and REST.
package stampserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/anatolykoptev/go_ytstamps/internal/engine"
	"github.com/anatolykoptev/go_ytstamps/internal/toolutil"
)

// Pipeline errors. Everything else is recovered inside the pipeline.
var (
	ErrMissingURL   = errors.New("video URL is required")
	ErrInvalidURL   = errors.New("invalid YouTube URL")
	ErrNoTranscript = errors.New("no transcript available for this video")
	ErrInternal     = errors.New("internal error")
)

// StatusFor maps a pipeline error to an HTTP status code.
func StatusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrMissingURL), errors.Is(err, ErrInvalidURL):
		return http.StatusBadRequest
	case errors.Is(err, ErrNoTranscript):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// TranscriptSource acquires a transcript. Acquire must not fail.
type TranscriptSource interface {
	Acquire(ctx context.Context, id engine.VideoID) engine.Transcript
}

// TimestampSynth produces topic timestamps for a transcript.
type TimestampSynth interface {
	Synthesize(ctx context.Context, tr engine.Transcript) []engine.TimestampSegment
}

// SummarySynth produces a prose summary for a transcript.
type SummarySynth interface {
	Summarize(ctx context.Context, tr engine.Transcript) string
}

// Pipeline runs URL → transcript → timestamps + summary.
type Pipeline struct {
	Acquirer        TranscriptSource
	Timestamper     TimestampSynth
	Summarizer      SummarySynth
	Cache           *engine.Cache // nil disables result caching
	RejectSynthetic bool          // report ErrNoTranscript instead of summarising placeholder text
}

// Run is a pipeline result with the provenance the MCP tool reports.
type Run struct {
	VideoID engine.VideoID          `json:"video_id"`
	Channel string                  `json:"channel"`
	Result  engine.GenerationResult `json:"result"`
	Cached  bool                    `json:"-"`
}

// Generate returns timestamps and a summary for the video at rawURL.
func (p *Pipeline) Generate(ctx context.Context, rawURL string) (engine.GenerationResult, error) {
	run, err := p.GenerateDetailed(ctx, rawURL)
	return run.Result, err
}

// GenerateDetailed is Generate plus the video id and transcript channel.
func (p *Pipeline) GenerateDetailed(ctx context.Context, rawURL string) (Run, error) {
	engine.IncrGenerate()
	start := time.Now()

	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return Run{}, ErrMissingURL
	}
	id, ok := engine.ExtractVideoID(rawURL)
	if !ok {
		return Run{}, fmt.Errorf("%w: %s", ErrInvalidURL, rawURL)
	}

	cacheKey := engine.CacheKey("generate", id.String())
	if run, ok := toolutil.CacheLoadJSON[Run](ctx, p.Cache, cacheKey); ok {
		run.Cached = true
		return run, nil
	}

	tr := p.Acquirer.Acquire(ctx, id)
	if len(tr.Entries) == 0 || (tr.Synthetic() && p.RejectSynthetic) {
		return Run{VideoID: id, Channel: tr.Channel}, ErrNoTranscript
	}

	result, err := p.synthesize(ctx, tr)
	engine.ObserveStage("generate", start, err)
	if err != nil {
		return Run{VideoID: id, Channel: tr.Channel}, err
	}

	run := Run{VideoID: id, Channel: tr.Channel, Result: result}
	if !tr.Synthetic() {
		toolutil.CacheStoreJSON(ctx, p.Cache, cacheKey, run)
	}
	slog.Info("generate: done",
		slog.String("id", id.String()),
		slog.String("channel", tr.Channel),
		slog.Int("timestamps", len(result.Timestamps)),
		slog.Duration("elapsed", time.Since(start)))
	return run, nil
}

// synthesize runs both synthesizers concurrently over the read-only
// transcript. A panic in either becomes ErrInternal.
func (p *Pipeline) synthesize(ctx context.Context, tr engine.Transcript) (engine.GenerationResult, error) {
	var (
		result engine.GenerationResult
		errs   [2]error
		wg     sync.WaitGroup
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		defer recoverInto(&errs[0], "timestamps")
		result.Timestamps = p.Timestamper.Synthesize(ctx, tr)
	}()
	go func() {
		defer wg.Done()
		defer recoverInto(&errs[1], "summary")
		result.Summary = p.Summarizer.Summarize(ctx, tr)
	}()
	wg.Wait()

	if err := errors.Join(errs[0], errs[1]); err != nil {
		return engine.GenerationResult{}, err
	}
	if result.Timestamps == nil {
		result.Timestamps = []engine.TimestampSegment{}
	}
	return result, nil
}

func recoverInto(dst *error, stage string) {
	if r := recover(); r != nil {
		slog.Error("generate: panic in synthesis",
			slog.String("stage", stage), slog.Any("panic", r), slog.String("stack", string(debug.Stack())))
		*dst = fmt.Errorf("%w: %s: %v", ErrInternal, stage, r)
	}
}

// Transcript resolves rawURL and returns the acquired transcript only.
func (p *Pipeline) Transcript(ctx context.Context, rawURL string) (engine.Transcript, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return engine.Transcript{}, ErrMissingURL
	}
	id, ok := engine.ExtractVideoID(rawURL)
	if !ok {
		return engine.Transcript{}, fmt.Errorf("%w: %s", ErrInvalidURL, rawURL)
	}
	tr := p.Acquirer.Acquire(ctx, id)
	if len(tr.Entries) == 0 || (tr.Synthetic() && p.RejectSynthetic) {
		return tr, ErrNoTranscript
	}
	return tr, nil
}
