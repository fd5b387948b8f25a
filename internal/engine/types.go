package engine

// VideoID is the canonical 11-character YouTube video identifier.
type VideoID string

func (id VideoID) String() string { return string(id) }

// Transcript channels.
const (
	ChannelPrimary   = "primary"
	ChannelLookup    = "lookup"
	ChannelSynthetic = "synthetic"
)

// TranscriptEntry is one caption line. Offsets and durations are milliseconds.
type TranscriptEntry struct {
	Text       string `json:"text"`
	OffsetMs   int64  `json:"offset"`
	DurationMs int64  `json:"duration"`
}

// Transcript is the normalized result of acquisition. Entries are sorted by
// non-decreasing offset and are never mutated after construction.
type Transcript struct {
	VideoID VideoID           `json:"video_id"`
	Channel string            `json:"channel"`
	Entries []TranscriptEntry `json:"entries"`
}

// TotalSeconds is the video length as seen by the synthesizers: the offset
// of the last entry. Zero for an empty transcript.
func (t Transcript) TotalSeconds() float64 {
	if len(t.Entries) == 0 {
		return 0
	}
	return float64(t.Entries[len(t.Entries)-1].OffsetMs) / 1000
}

// Synthetic reports whether the transcript is the placeholder fallback.
func (t Transcript) Synthetic() bool { return t.Channel == ChannelSynthetic }

// TimestampSegment marks a topic boundary.
type TimestampSegment struct {
	Time  string `json:"time"`  // m:ss or h:mm:ss
	Title string `json:"title"` // under 60 characters
}

// GenerationResult is the complete response to one generate request.
type GenerationResult struct {
	Timestamps []TimestampSegment `json:"timestamps"`
	Summary    string             `json:"summary"`
}

// --- MCP tool types ---

type VideoTimestampsInput struct {
	URL string `json:"url" jsonschema:"YouTube video URL (watch, youtu.be, embed, shorts-style /v/ links)"`
}

// LinkedSegment is a timestamp with its playback deep link.
type LinkedSegment struct {
	Time  string `json:"time"`
	Title string `json:"title"`
	URL   string `json:"url,omitempty"`
}

type VideoTimestampsOutput struct {
	VideoID    string          `json:"video_id"`
	Channel    string          `json:"channel"`
	Timestamps []LinkedSegment `json:"timestamps"`
	Summary    string          `json:"summary"`
}

type VideoTranscriptInput struct {
	URL string `json:"url" jsonschema:"YouTube video URL"`
}

type VideoTranscriptOutput struct {
	VideoID string            `json:"video_id"`
	Channel string            `json:"channel"`
	Entries []TranscriptEntry `json:"entries"`
}
