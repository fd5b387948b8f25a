// Package toolutil provides helpers shared by the go_ytstamps transports.
package toolutil

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/anatolykoptev/go_ytstamps/internal/engine"
)

// CacheLoadJSON loads a cached value of type T. Returns the decoded value
// and true on hit; zero value and false on miss or decode error.
func CacheLoadJSON[T any](ctx context.Context, c *engine.Cache, key string) (T, bool) {
	var zero T
	data, ok := c.Get(ctx, key)
	if !ok {
		return zero, false
	}
	var out T
	if err := json.Unmarshal(data, &out); err != nil {
		slog.Debug("cache: undecodable entry", slog.String("key", key), slog.Any("error", err))
		return zero, false
	}
	return out, true
}

// CacheStoreJSON marshals v and stores it under key.
func CacheStoreJSON[T any](ctx context.Context, c *engine.Cache, key string, v T) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	c.Set(ctx, key, data)
}

// LinkSegments attaches a playback deep link to each segment. Segments whose
// time does not parse keep an empty URL.
func LinkSegments(id engine.VideoID, segs []engine.TimestampSegment) []engine.LinkedSegment {
	out := make([]engine.LinkedSegment, len(segs))
	for i, s := range segs {
		out[i] = engine.LinkedSegment{Time: s.Time, Title: s.Title}
		if u, err := engine.DeepLink(id, s.Time); err == nil {
			out[i].URL = u
		}
	}
	return out
}
