package stampserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/anatolykoptev/go_ytstamps/internal/engine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type generatorFunc func(ctx context.Context, rawURL string) (engine.GenerationResult, error)

func (f generatorFunc) Generate(ctx context.Context, rawURL string) (engine.GenerationResult, error) {
	return f(ctx, rawURL)
}

type stubDiags struct{ items []engine.Diagnostic }

func (s stubDiags) Recent(context.Context, int) ([]engine.Diagnostic, error) { return s.items, nil }

func (s stubDiags) CountByLayer(context.Context) (map[string]int64, error) {
	out := map[string]int64{}
	for _, d := range s.items {
		out[d.Layer]++
	}
	return out, nil
}

func serve(t *testing.T, h http.Handler, req *http.Request) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	var body map[string]any
	if rec.Body.Len() > 0 && strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	}
	return rec, body
}

func TestAPIGenerate(t *testing.T) {
	var gotURL string
	e := NewAPI(generatorFunc(func(ctx context.Context, rawURL string) (engine.GenerationResult, error) {
		gotURL = rawURL
		assert.NotEmpty(t, engine.RequestID(ctx))
		return engine.GenerationResult{
			Timestamps: []engine.TimestampSegment{{Time: "0:00", Title: "Intro"}},
			Summary:    "A summary.",
		}, nil
	}), nil)

	req := httptest.NewRequest(http.MethodPost, "/generate", strings.NewReader(`{"videoUrl":"https://youtu.be/dQw4w9WgXcQ"}`))
	req.Header.Set("Content-Type", "application/json")
	rec, body := serve(t, e, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "https://youtu.be/dQw4w9WgXcQ", gotURL)
	assert.Equal(t, "A summary.", body["summary"])
	assert.Len(t, body["timestamps"], 1)
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
}

func TestAPIGenerateForm(t *testing.T) {
	var gotURL string
	e := NewAPI(generatorFunc(func(_ context.Context, rawURL string) (engine.GenerationResult, error) {
		gotURL = rawURL
		return engine.GenerationResult{Timestamps: []engine.TimestampSegment{}}, nil
	}), nil)

	form := url.Values{"videoUrl": {"https://youtu.be/dQw4w9WgXcQ"}}
	req := httptest.NewRequest(http.MethodPost, "/generate", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec, _ := serve(t, e, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "https://youtu.be/dQw4w9WgXcQ", gotURL)
}

func TestAPIGenerateErrorMapping(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantMsg  string
	}{
		{"missing", ErrMissingURL, http.StatusBadRequest, "Video URL is required"},
		{"invalid", ErrInvalidURL, http.StatusBadRequest, "Invalid YouTube URL"},
		{"no transcript", ErrNoTranscript, http.StatusNotFound, "No transcript found for this video"},
		{"unexpected", errors.New("kaboom"), http.StatusInternalServerError, "Failed to process video"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewAPI(generatorFunc(func(context.Context, string) (engine.GenerationResult, error) {
				return engine.GenerationResult{}, tt.err
			}), nil)
			req := httptest.NewRequest(http.MethodPost, "/generate", strings.NewReader(`{"videoUrl":"x"}`))
			req.Header.Set("Content-Type", "application/json")
			rec, body := serve(t, e, req)

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, tt.wantMsg, body["error"])
		})
	}
}

func TestAPIGenerateWithPipeline(t *testing.T) {
	e := NewAPI(newTestPipeline(&stubAcquirer{tr: realTranscript()}), nil)

	req := httptest.NewRequest(http.MethodPost, "/generate", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	rec, body := serve(t, e, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Video URL is required", body["error"])

	req = httptest.NewRequest(http.MethodPost, "/generate", strings.NewReader(`{"videoUrl":"https://www.youtube.com/watch?v=dQw4w9WgXcQ"}`))
	req.Header.Set("Content-Type", "application/json")
	rec, body = serve(t, e, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "summary text", body["summary"])
}

func TestAPIHealth(t *testing.T) {
	e := NewAPI(generatorFunc(nil), nil)
	rec, body := serve(t, e, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "Server is running", body["message"])
}

func TestAPILink(t *testing.T) {
	e := NewAPI(generatorFunc(nil), nil)

	rec, body := serve(t, e, httptest.NewRequest(http.MethodGet, "/api/link?v=dQw4w9WgXcQ&t=1:01:01", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "https://www.youtube.com/watch?v=dQw4w9WgXcQ&t=3661s", body["url"])

	rec, _ = serve(t, e, httptest.NewRequest(http.MethodGet, "/api/link?v=bad&t=0:10", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = serve(t, e, httptest.NewRequest(http.MethodGet, "/api/link?v=dQw4w9WgXcQ&t=soon", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPIDiagnostics(t *testing.T) {
	rec, _ := serve(t, NewAPI(generatorFunc(nil), nil), httptest.NewRequest(http.MethodGet, "/api/diagnostics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	diags := stubDiags{items: []engine.Diagnostic{{ID: "1", Layer: engine.LayerLookup}, {ID: "2", Layer: engine.LayerLookup}}}
	rec, body := serve(t, NewAPI(generatorFunc(nil), diags), httptest.NewRequest(http.MethodGet, "/api/diagnostics?limit=5", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, body["items"], 2)
	assert.Equal(t, map[string]any{engine.LayerLookup: float64(2)}, body["counts"])
}

func TestAPIMetrics(t *testing.T) {
	engine.ObserveStage("test", time.Now(), nil)
	e := NewAPI(generatorFunc(nil), nil)

	rec, _ := serve(t, e, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ytstamps_stage_duration_seconds")

	rec, _ = serve(t, e, httptest.NewRequest(http.MethodGet, "/metrics/counters", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "generate_requests")
}
