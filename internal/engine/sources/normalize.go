package sources

import (
	"sort"

	"github.com/anatolykoptev/go_ytstamps/internal/engine"
)

// Defaults applied to caption entries missing optional fields.
const (
	defaultEntryDurationMs = 3000
	defaultEntrySpacingMs  = 3000
)

// RawEntry is a caption entry as a channel produced it. Nil fields were
// absent in the source payload.
type RawEntry struct {
	Text       *string
	OffsetMs   *int64
	DurationMs *int64
}

// Entry builds a RawEntry with every field present.
func Entry(text string, offsetMs, durationMs int64) RawEntry {
	return RawEntry{Text: &text, OffsetMs: &offsetMs, DurationMs: &durationMs}
}

// Normalize fills missing fields and orders entries by offset. Entries are
// never dropped for missing optional fields.
func Normalize(raw []RawEntry) []engine.TranscriptEntry {
	out := make([]engine.TranscriptEntry, len(raw))
	for i, r := range raw {
		e := engine.TranscriptEntry{
			OffsetMs:   int64(i) * defaultEntrySpacingMs,
			DurationMs: defaultEntryDurationMs,
		}
		if r.Text != nil {
			e.Text = *r.Text
		}
		if r.OffsetMs != nil && *r.OffsetMs >= 0 {
			e.OffsetMs = *r.OffsetMs
		}
		if r.DurationMs != nil && *r.DurationMs > 0 {
			e.DurationMs = *r.DurationMs
		}
		out[i] = e
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].OffsetMs < out[b].OffsetMs })
	return out
}
