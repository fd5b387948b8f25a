package synth

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/anatolykoptev/go_ytstamps/internal/engine"
)

// ParseStrategy extracts timestamp segments from raw model output. Parse
// reports false when the strategy does not apply or yields nothing.
type ParseStrategy struct {
	Name  string
	Parse func(raw string) ([]engine.TimestampSegment, bool)
}

// DefaultStrategies is the cascade tried against model output, in order.
var DefaultStrategies = []ParseStrategy{
	{Name: "whole", Parse: parseWhole},
	{Name: "wrapped", Parse: parseWrapped},
	{Name: "embedded", Parse: parseEmbedded},
	{Name: "pairs", Parse: parsePairs},
}

// wrapperKeys are object keys models use to wrap the array.
var wrapperKeys = []string{"timestamps", "chapters", "segments", "items"}

var (
	embeddedArrayRE = regexp.MustCompile(`(?s)\[\s*\{.*\}\s*\]`)
	timePairRE      = regexp.MustCompile(`"time"\s*:\s*"([^"]*)"`)
	titlePairRE     = regexp.MustCompile(`"title"\s*:\s*"([^"]*)"`)
)

// parseWhole decodes the whole (fence-stripped) response as a JSON array.
func parseWhole(raw string) ([]engine.TimestampSegment, bool) {
	return decodeArray([]byte(engine.StripFences(raw)))
}

// parseWrapped decodes {"timestamps": [...]} and similar wrappers.
func parseWrapped(raw string) ([]engine.TimestampSegment, bool) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(engine.StripFences(raw)), &obj); err != nil {
		return nil, false
	}
	for _, k := range wrapperKeys {
		if v, ok := obj[k]; ok {
			if segs, ok := decodeArray(v); ok {
				return segs, true
			}
		}
	}
	return nil, false
}

// parseEmbedded finds the first array-of-objects substring in surrounding prose.
func parseEmbedded(raw string) ([]engine.TimestampSegment, bool) {
	m := embeddedArrayRE.FindString(raw)
	if m == "" {
		return nil, false
	}
	return decodeArray([]byte(m))
}

// parsePairs pairs the i-th "time" with the i-th "title" when the counts agree.
func parsePairs(raw string) ([]engine.TimestampSegment, bool) {
	times := timePairRE.FindAllStringSubmatch(raw, -1)
	titles := titlePairRE.FindAllStringSubmatch(raw, -1)
	if len(times) == 0 || len(times) != len(titles) {
		return nil, false
	}
	out := make([]engine.TimestampSegment, len(times))
	for i := range times {
		out[i] = engine.TimestampSegment{Time: times[i][1], Title: titles[i][1]}
	}
	return out, true
}

// decodeArray decodes a JSON array of segment objects. Non-object elements
// and elements with neither a time nor a title are skipped.
func decodeArray(data []byte) ([]engine.TimestampSegment, bool) {
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, false
	}
	out := make([]engine.TimestampSegment, 0, len(items))
	for _, item := range items {
		var fields map[string]any
		if err := json.Unmarshal(item, &fields); err != nil {
			continue
		}
		seg := engine.TimestampSegment{
			Time:  timeField(fields["time"]),
			Title: textField(fields["title"]),
		}
		if seg.Time == "" && seg.Title == "" {
			continue
		}
		out = append(out, seg)
	}
	return out, len(out) > 0
}

// timeField accepts "m:ss" strings and numeric seconds.
func timeField(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return engine.FormatTime(t)
	default:
		return ""
	}
}

func textField(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	default:
		return fmt.Sprint(t)
	}
}

// runStrategies returns the result of the first strategy that succeeds.
func runStrategies(strategies []ParseStrategy, raw string) ([]engine.TimestampSegment, string, bool) {
	for _, s := range strategies {
		if segs, ok := s.Parse(raw); ok {
			return segs, s.Name, true
		}
	}
	return nil, "", false
}
