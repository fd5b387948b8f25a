package toolutil

import (
	"context"
	"testing"
	"time"

	"github.com/anatolykoptev/go_ytstamps/internal/engine"
)

func TestCacheJSONRoundTrip(t *testing.T) {
	c := engine.NewCache("", time.Minute, 10, time.Minute)
	defer c.Close()
	ctx := context.Background()
	key := engine.CacheKey("generate", "dQw4w9WgXcQ")

	if _, ok := CacheLoadJSON[engine.GenerationResult](ctx, c, key); ok {
		t.Fatal("expected miss")
	}
	in := engine.GenerationResult{Summary: "s", Timestamps: []engine.TimestampSegment{{Time: "0:00", Title: "Intro"}}}
	CacheStoreJSON(ctx, c, key, in)

	out, ok := CacheLoadJSON[engine.GenerationResult](ctx, c, key)
	if !ok {
		t.Fatal("expected hit")
	}
	if out.Summary != "s" || len(out.Timestamps) != 1 || out.Timestamps[0].Title != "Intro" {
		t.Errorf("got %+v", out)
	}
}

func TestCacheLoadJSONBadData(t *testing.T) {
	c := engine.NewCache("", time.Minute, 10, time.Minute)
	defer c.Close()
	ctx := context.Background()
	c.Set(ctx, "k", []byte("{not json"))

	if _, ok := CacheLoadJSON[engine.GenerationResult](ctx, c, "k"); ok {
		t.Error("undecodable entry must be a miss")
	}
}

func TestLinkSegments(t *testing.T) {
	got := LinkSegments("dQw4w9WgXcQ", []engine.TimestampSegment{
		{Time: "1:15", Title: "a"},
		{Time: "soon", Title: "b"},
	})
	if got[0].URL != "https://www.youtube.com/watch?v=dQw4w9WgXcQ&t=75s" {
		t.Errorf("URL = %q", got[0].URL)
	}
	if got[1].URL != "" {
		t.Errorf("unparseable time should have no URL, got %q", got[1].URL)
	}
}
