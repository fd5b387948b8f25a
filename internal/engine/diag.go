package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Diagnostic layers.
const (
	LayerPrimary        = "transcript.primary"
	LayerLookup         = "transcript.lookup"
	LayerSynthetic      = "transcript.synthetic"
	LayerTimestampsLLM  = "timestamps.request"
	LayerTimestampParse = "timestamps.parse"
	LayerTimestampFix   = "timestamps.repair"
	LayerSummaryLLM     = "summary.request"
)

// Diagnostic records a failure that was recovered locally and never reached
// the caller.
type Diagnostic struct {
	ID        string    `json:"id"`
	RequestID string    `json:"request_id,omitempty"`
	VideoID   string    `json:"video_id,omitempty"`
	Layer     string    `json:"layer"`
	Cause     string    `json:"cause"`
	At        time.Time `json:"at"`
}

// Recorder receives diagnostics. Implementations must not block for long
// and must be safe for concurrent use.
type Recorder interface {
	Record(ctx context.Context, d Diagnostic)
}

// NewDiagnostic stamps a diagnostic with an id, the request id from ctx and the current time.
func NewDiagnostic(ctx context.Context, id VideoID, layer string, cause error) Diagnostic {
	msg := "unknown"
	if cause != nil {
		msg = cause.Error()
	}
	return Diagnostic{
		ID:        uuid.NewString(),
		RequestID: RequestID(ctx),
		VideoID:   string(id),
		Layer:     layer,
		Cause:     msg,
		At:        time.Now().UTC(),
	}
}

// Note builds and records a diagnostic in one call. A nil recorder is a no-op.
func Note(ctx context.Context, rec Recorder, id VideoID, layer string, cause error) {
	IncrFallback(layer)
	if rec == nil {
		return
	}
	rec.Record(ctx, NewDiagnostic(ctx, id, layer, cause))
}

// LogRecorder writes diagnostics to slog at warn level.
type LogRecorder struct {
	Logger *slog.Logger // nil = slog.Default()
}

func (r LogRecorder) Record(ctx context.Context, d Diagnostic) {
	l := r.Logger
	if l == nil {
		l = slog.Default()
	}
	l.WarnContext(ctx, "fallback engaged",
		slog.String("layer", d.Layer),
		slog.String("video_id", d.VideoID),
		slog.String("request_id", d.RequestID),
		slog.String("cause", d.Cause),
		slog.String("diag_id", d.ID),
	)
}

// MultiRecorder fans a diagnostic out to every non-nil recorder.
type MultiRecorder []Recorder

func (m MultiRecorder) Record(ctx context.Context, d Diagnostic) {
	for _, r := range m {
		if r != nil {
			r.Record(ctx, d)
		}
	}
}

// MemoryRecorder keeps diagnostics in memory.
type MemoryRecorder struct {
	mu    sync.Mutex
	items []Diagnostic
}

func (m *MemoryRecorder) Record(_ context.Context, d Diagnostic) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = append(m.items, d)
}

// All returns a copy of recorded diagnostics.
func (m *MemoryRecorder) All() []Diagnostic {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Diagnostic, len(m.items))
	copy(out, m.items)
	return out
}

// Layers lists the layer of every recorded diagnostic, in order.
func (m *MemoryRecorder) Layers() []string {
	all := m.All()
	out := make([]string, len(all))
	for i, d := range all {
		out[i] = d.Layer
	}
	return out
}

type requestIDKey struct{}

// WithRequestID attaches a request id to ctx. An empty id generates one.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		id = uuid.NewString()
	}
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestID returns the request id carried by ctx, or "".
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
