package journal

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/anatolykoptev/go_ytstamps/internal/engine"
)

func openTemp(t *testing.T) *SQLite {
	t.Helper()
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "nested", "journal.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLiteRecordAndRecent(t *testing.T) {
	s := openTemp(t)
	ctx := engine.WithRequestID(context.Background(), "req-42")

	first := engine.NewDiagnostic(ctx, "dQw4w9WgXcQ", engine.LayerPrimary, errors.New("timeout"))
	first.At = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	second := engine.NewDiagnostic(ctx, "dQw4w9WgXcQ", engine.LayerLookup, errors.New("HTTP 503"))
	second.At = first.At.Add(time.Second)

	s.Record(ctx, first)
	s.Record(ctx, second)

	got, err := s.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d diagnostics, want 2", len(got))
	}
	if got[0].Layer != engine.LayerLookup || got[1].Layer != engine.LayerPrimary {
		t.Errorf("want newest first, got %s then %s", got[0].Layer, got[1].Layer)
	}
	if got[1].RequestID != "req-42" || got[1].Cause != "timeout" || !got[1].At.Equal(first.At) {
		t.Errorf("round trip mismatch: %+v", got[1])
	}
}

func TestSQLiteRecentLimit(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		s.Record(ctx, engine.NewDiagnostic(ctx, "", engine.LayerSummaryLLM, errors.New("x")))
	}
	got, err := s.Recent(ctx, 3)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 3 {
		t.Errorf("got %d, want 3", len(got))
	}
}

func TestSQLiteCountByLayer(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	for _, layer := range []string{engine.LayerPrimary, engine.LayerPrimary, engine.LayerSynthetic} {
		s.Record(ctx, engine.NewDiagnostic(ctx, "", layer, errors.New("x")))
	}

	counts, err := s.CountByLayer(ctx)
	if err != nil {
		t.Fatalf("CountByLayer: %v", err)
	}
	if counts[engine.LayerPrimary] != 2 || counts[engine.LayerSynthetic] != 1 {
		t.Errorf("counts = %v", counts)
	}
}

func TestSQLiteRecordAfterCancel(t *testing.T) {
	s := openTemp(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s.Record(ctx, engine.NewDiagnostic(ctx, "", engine.LayerLookup, errors.New("late")))

	got, err := s.Recent(context.Background(), 0)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("cancelled request context should not drop the write, got %d rows", len(got))
	}
}

func TestOpenNoBackend(t *testing.T) {
	store, err := Open(context.Background(), engine.Config{})
	if err != nil || store != nil {
		t.Errorf("Open(empty) = (%v, %v), want (nil, nil)", store, err)
	}
}

func TestOpenSQLiteFromConfig(t *testing.T) {
	store, err := Open(context.Background(), engine.Config{DiagSQLitePath: filepath.Join(t.TempDir(), "j.db")})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer store.Close()
	if _, ok := store.(*SQLite); !ok {
		t.Errorf("got %T, want *SQLite", store)
	}
}
