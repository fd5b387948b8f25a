package synth

// LLM prompt templates.

// timestampsPrompt asks for 5–10 {time, title} objects.
// Args: transcript listing, one "m:ss: text" line per entry.
const timestampsPrompt = `You are a smart assistant that generates clear, engaging YouTube timestamps from video transcripts.

Your task:

Read the full transcript and extract 5–10 meaningful segments or topic changes.

Assign each segment a concise title (under 60 characters) that accurately reflects the content.

Determine the exact timestamp (in mm:ss or h:mm:ss format) where each topic begins.

Ensure timestamps are spread throughout the video and not clustered at the beginning.

Avoid vague titles like "Topic 1" or "Discussion"; be specific and helpful to viewers.

Output format:

Return a JSON array of objects with the following format:

[
  {"time": "0:00", "title": "Video Introduction"},
  {"time": "2:13", "title": "How the Algorithm Works"},
  ...
]
Here's the transcript:
%s`

// summaryPrompt asks for a 300-500 word prose summary.
// Args: transcript text joined with spaces.
const summaryPrompt = `You are a helpful assistant that creates concise, informative summaries of YouTube videos.

I'll provide you with a video transcript. Your task is to:
1. Analyze the transcript and identify the main topics and key points
2. Create a comprehensive summary (300-500 words) that captures the essence of the video
3. Make the summary easy to read with clear paragraphs and structure

Here's the transcript:
%s`

// summaryFallbackTemplate is returned when the model cannot produce a summary.
// Args: minutes, word count, opening entries, closing entries.
const summaryFallbackTemplate = `This video is approximately %d minutes long and contains %d words of transcript.

The transcript begins with: "%s..."

And concludes with: "...%s"

Unable to generate a complete AI summary. Please try again later or check the timestamps for key moments in the video.`

const summaryNoTranscript = "No transcript was available for this video, so a summary could not be generated."
