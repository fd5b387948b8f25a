package stampserver

import (
	"context"
	"fmt"

	"github.com/anatolykoptev/go_ytstamps/internal/engine"
	"github.com/anatolykoptev/go_ytstamps/internal/toolutil"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// RegisterTools registers video_timestamps and video_transcript on server.
func RegisterTools(server *mcp.Server, p *Pipeline) {
	registerVideoTimestamps(server, p)
	registerVideoTranscript(server, p)
}

func registerVideoTimestamps(server *mcp.Server, p *Pipeline) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "video_timestamps",
		Description: "Generate chapter timestamps and a 300-500 word summary for a YouTube video from its captions. Returns JSON with video_id, the transcript channel used (primary, lookup or synthetic), timestamps with playback deep links, and the summary.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, func(ctx context.Context, req *mcp.CallToolRequest, input engine.VideoTimestampsInput) (*mcp.CallToolResult, engine.VideoTimestampsOutput, error) {
		ctx = engine.WithRequestID(ctx, "")
		run, err := p.GenerateDetailed(ctx, input.URL)
		if err != nil {
			return nil, engine.VideoTimestampsOutput{}, fmt.Errorf("video_timestamps: %w", err)
		}
		return nil, engine.VideoTimestampsOutput{
			VideoID:    run.VideoID.String(),
			Channel:    run.Channel,
			Timestamps: toolutil.LinkSegments(run.VideoID, run.Result.Timestamps),
			Summary:    run.Result.Summary,
		}, nil
	})
}

func registerVideoTranscript(server *mcp.Server, p *Pipeline) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "video_transcript",
		Description: "Fetch the normalized caption transcript of a YouTube video. Entries carry text, offset and duration in milliseconds. Falls back to a lookup service, then to a placeholder transcript (channel=synthetic).",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, func(ctx context.Context, req *mcp.CallToolRequest, input engine.VideoTranscriptInput) (*mcp.CallToolResult, engine.VideoTranscriptOutput, error) {
		ctx = engine.WithRequestID(ctx, "")
		tr, err := p.Transcript(ctx, input.URL)
		if err != nil {
			return nil, engine.VideoTranscriptOutput{}, fmt.Errorf("video_transcript: %w", err)
		}
		return nil, engine.VideoTranscriptOutput{
			VideoID: tr.VideoID.String(),
			Channel: tr.Channel,
			Entries: tr.Entries,
		}, nil
	})
}
