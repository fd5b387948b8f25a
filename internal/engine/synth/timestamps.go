package synth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/anatolykoptev/go_ytstamps/internal/engine"
)

// maxTitleRunes keeps titles under 60 characters.
const maxTitleRunes = 59

// defaultSegments is the fixed set returned when the model gives nothing usable.
var defaultSegments = []struct {
	fraction float64
	title    string
}{
	{0, "Introduction"},
	{0.2, "First Key Point"},
	{0.4, "Second Key Point"},
	{0.6, "Third Key Point"},
	{0.8, "Fourth Key Point"},
	{0.95, "Conclusion"},
}

var errNoCompleter = errors.New("no llm configured")

// Timestamper turns a transcript into topic timestamps. It never fails:
// every error ends in a repaired or default segment list.
type Timestamper struct {
	llm        engine.Completer
	rec        engine.Recorder
	strategies []ParseStrategy
}

// NewTimestamper wires a model client and a diagnostics recorder (may be nil).
func NewTimestamper(llm engine.Completer, rec engine.Recorder) *Timestamper {
	return &Timestamper{llm: llm, rec: rec, strategies: DefaultStrategies}
}

// Synthesize returns timestamp segments for tr.
func (t *Timestamper) Synthesize(ctx context.Context, tr engine.Transcript) []engine.TimestampSegment {
	total := tr.TotalSeconds()

	raw, err := t.complete(ctx, fmt.Sprintf(timestampsPrompt, Listing(tr)))
	if err != nil {
		engine.Note(ctx, t.rec, tr.VideoID, engine.LayerTimestampsLLM, err)
		return DefaultTimestamps(total)
	}
	slog.Debug("timestamps: raw model output", slog.String("id", tr.VideoID.String()),
		slog.String("raw", engine.Truncate(raw, 2000)))

	segs, strategy, ok := runStrategies(t.strategies, raw)
	if !ok {
		engine.Note(ctx, t.rec, tr.VideoID, engine.LayerTimestampParse,
			fmt.Errorf("no parse strategy matched %d bytes of output", len(raw)))
		return DefaultTimestamps(total)
	}
	slog.Debug("timestamps: parsed", slog.String("strategy", strategy), slog.Int("segments", len(segs)))

	segs = canonicalize(segs)
	if degenerate(segs) {
		engine.Note(ctx, t.rec, tr.VideoID, engine.LayerTimestampFix,
			fmt.Errorf("all %d segment times were zero or empty", len(segs)))
		Redistribute(segs, total)
	}
	return segs
}

func (t *Timestamper) complete(ctx context.Context, prompt string) (string, error) {
	if t.llm == nil {
		return "", errNoCompleter
	}
	start := time.Now()
	out, err := t.llm.Complete(ctx, "", prompt)
	engine.ObserveStage("timestamps", start, err)
	return out, err
}

// Listing renders the transcript as "m:ss: text" lines.
func Listing(tr engine.Transcript) string {
	lines := make([]string, len(tr.Entries))
	for i, e := range tr.Entries {
		lines[i] = engine.FormatTime(float64(e.OffsetMs)/1000) + ": " + e.Text
	}
	return strings.Join(lines, "\n")
}

// canonicalize trims and clamps titles and rewrites parseable times in the
// FormatTime layout.
func canonicalize(segs []engine.TimestampSegment) []engine.TimestampSegment {
	for i := range segs {
		segs[i].Title = engine.TruncateRunes(strings.TrimSpace(segs[i].Title), maxTitleRunes, "")
		if secs, err := engine.ParseTime(segs[i].Time); err == nil {
			segs[i].Time = engine.FormatTime(float64(secs))
		}
	}
	return segs
}

// degenerate reports whether every segment time is zero or empty.
func degenerate(segs []engine.TimestampSegment) bool {
	for _, s := range segs {
		if s.Time != "" && s.Time != "0:00" {
			return false
		}
	}
	return len(segs) > 0
}

// Redistribute spaces segment i of n at total*(i+1)/(n+1) seconds, keeping titles.
func Redistribute(segs []engine.TimestampSegment, total float64) {
	n := float64(len(segs))
	for i := range segs {
		segs[i].Time = engine.FormatTime(math.Floor(total * float64(i+1) / (n + 1)))
	}
}

// DefaultTimestamps returns the fixed six-point set spread over total seconds.
func DefaultTimestamps(total float64) []engine.TimestampSegment {
	out := make([]engine.TimestampSegment, len(defaultSegments))
	for i, d := range defaultSegments {
		out[i] = engine.TimestampSegment{Time: engine.FormatTime(total * d.fraction), Title: d.title}
	}
	return out
}
