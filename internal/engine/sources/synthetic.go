package sources

import "github.com/anatolykoptev/go_ytstamps/internal/engine"

const syntheticSpacingMs = 20000

var syntheticLines = []string{
	"Welcome to this video. Today we are going to walk through the main topic step by step.",
	"Let's start with some background and why this subject matters.",
	"Here is the first important idea you should keep in mind.",
	"Now we look at a practical example of that idea in action.",
	"The second key concept builds directly on what we just covered.",
	"A common mistake at this point is skipping the fundamentals.",
	"Let's compare a few different approaches and their trade-offs.",
	"This next section goes deeper into the details.",
	"Here are some tips that make the process easier in practice.",
	"We have now covered the core material, so let's recap briefly.",
	"Before we finish, a few closing thoughts and recommendations.",
	"Thanks for watching, and see you in the next video.",
}

// SyntheticTranscript returns the fixed placeholder used when every real
// channel failed. It is deterministic and never empty.
func SyntheticTranscript(id engine.VideoID) engine.Transcript {
	entries := make([]engine.TranscriptEntry, len(syntheticLines))
	for i, line := range syntheticLines {
		entries[i] = engine.TranscriptEntry{
			Text:       line,
			OffsetMs:   int64(i) * syntheticSpacingMs,
			DurationMs: syntheticSpacingMs,
		}
	}
	return engine.Transcript{VideoID: id, Channel: engine.ChannelSynthetic, Entries: entries}
}
