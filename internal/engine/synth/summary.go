package synth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/anatolykoptev/go_ytstamps/internal/engine"
)

// quoteEntries is how many entries the fallback quotes from each end.
const quoteEntries = 3

// Summarizer produces a prose summary of a transcript. It never fails.
type Summarizer struct {
	llm engine.Completer
	rec engine.Recorder
}

// NewSummarizer wires a model client and a diagnostics recorder (may be nil).
func NewSummarizer(llm engine.Completer, rec engine.Recorder) *Summarizer {
	return &Summarizer{llm: llm, rec: rec}
}

// Summarize returns the model's summary, or a deterministic description of
// the transcript when the model fails or returns nothing.
func (s *Summarizer) Summarize(ctx context.Context, tr engine.Transcript) string {
	if len(tr.Entries) == 0 {
		return summaryNoTranscript
	}

	out, err := s.complete(ctx, fmt.Sprintf(summaryPrompt, joinTexts(tr.Entries)))
	if err == nil {
		if out = strings.TrimSpace(out); out != "" {
			return out
		}
		err = errors.New("empty summary response")
	}
	engine.Note(ctx, s.rec, tr.VideoID, engine.LayerSummaryLLM, err)
	return FallbackSummary(tr)
}

func (s *Summarizer) complete(ctx context.Context, prompt string) (string, error) {
	if s.llm == nil {
		return "", errNoCompleter
	}
	start := time.Now()
	out, err := s.llm.Complete(ctx, "", prompt)
	engine.ObserveStage("summary", start, err)
	return out, err
}

// FallbackSummary describes the transcript by length, word count and its
// opening and closing lines. Short transcripts quote what they have.
func FallbackSummary(tr engine.Transcript) string {
	n := len(tr.Entries)
	if n == 0 {
		return summaryNoTranscript
	}
	minutes := tr.Entries[n-1].OffsetMs / 60000
	words := len(strings.Fields(joinTexts(tr.Entries)))
	k := min(quoteEntries, n)
	return fmt.Sprintf(summaryFallbackTemplate, minutes, words,
		joinTexts(tr.Entries[:k]), joinTexts(tr.Entries[n-k:]))
}

func joinTexts(entries []engine.TranscriptEntry) string {
	texts := make([]string, len(entries))
	for i, e := range entries {
		texts[i] = e.Text
	}
	return strings.Join(texts, " ")
}
