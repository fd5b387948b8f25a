// Package journal persists recovered-failure diagnostics so operators can
// inspect fallbacks after the fact.
package journal

import (
	"context"
	"time"

	"github.com/anatolykoptev/go_ytstamps/internal/engine"
)

// writeTimeout bounds a single journal write. Writes are detached from the
// request context so a finished request still gets its diagnostics stored.
const writeTimeout = 2 * time.Second

// DefaultLimit is used by Recent when limit <= 0.
const DefaultLimit = 50

// Store is a diagnostics journal backend.
type Store interface {
	engine.Recorder
	Recent(ctx context.Context, limit int) ([]engine.Diagnostic, error)
	CountByLayer(ctx context.Context) (map[string]int64, error)
	Close() error
}

func writeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), writeTimeout)
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	return min(limit, 1000)
}
