package sources

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/anatolykoptev/go_ytstamps/internal/engine"
)

// Primary caption channel, tried in order:
//  1. watch page ytInitialPlayerResponse → caption track → timedtext XML
//  2. WEB /next engagement panel → /get_transcript segments
//  3. ANDROID Innertube /player → caption track → timedtext XML

var errNoCaptions = errors.New("no caption tracks")

// getTranscriptRE extracts the continuation token from a raw /next JSON response.
var getTranscriptRE = regexp.MustCompile(`"getTranscriptEndpoint":\{"params":"([^"]+)"`)

// ytInitialPlayerResponseMarker marks the start of the player response JSON in watch page HTML.
const ytInitialPlayerResponseMarker = "ytInitialPlayerResponse = "

// Primary fetches timed captions straight from YouTube.
type Primary struct {
	BaseURL   string       // "" = https://www.youtube.com
	Client    *http.Client // nil = http.DefaultClient
	Languages []string     // preferred caption languages, in order
}

// NewPrimary builds the primary channel from cfg.
func NewPrimary(cfg engine.Config) *Primary {
	langs := cfg.Languages
	if len(langs) == 0 {
		langs = []string{"en"}
	}
	return &Primary{Client: cfg.HTTPClient, Languages: langs}
}

func (p *Primary) Name() string { return engine.ChannelPrimary }

func (p *Primary) baseURL() string {
	if p.BaseURL == "" {
		return ytDefaultBaseURL
	}
	return strings.TrimRight(p.BaseURL, "/")
}

func (p *Primary) client() *http.Client {
	if p.Client == nil {
		return http.DefaultClient
	}
	return p.Client
}

// Fetch returns the caption entries for id.
func (p *Primary) Fetch(ctx context.Context, id engine.VideoID) ([]RawEntry, error) {
	engine.IncrPrimaryFetch()
	vid := id.String()

	entries, scrapeErr := p.viaPageScrape(ctx, vid)
	if scrapeErr == nil {
		return entries, nil
	}
	slog.Debug("youtube: page scrape failed, trying engagement panel",
		slog.String("id", vid), slog.Any("err", scrapeErr))

	entries, panelErr := p.viaEngagementPanel(ctx, vid)
	if panelErr == nil {
		return entries, nil
	}
	slog.Debug("youtube: engagement panel failed, trying player",
		slog.String("id", vid), slog.Any("err", panelErr))

	entries, playerErr := p.viaPlayer(ctx, vid)
	if playerErr == nil {
		return entries, nil
	}
	return nil, errors.Join(
		fmt.Errorf("page scrape: %w", scrapeErr),
		fmt.Errorf("engagement panel: %w", panelErr),
		fmt.Errorf("player: %w", playerErr),
	)
}

// viaPageScrape reads the caption track list embedded in the watch page.
func (p *Primary) viaPageScrape(ctx context.Context, videoID string) ([]RawEntry, error) {
	watchURL := p.baseURL() + "/watch?v=" + url.QueryEscape(videoID)

	resp, err := engine.RetryHTTP(ctx, engine.CaptionRetryConfig, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, watchURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", engine.RandomUserAgent())
		req.Header.Set("Accept-Language", "en-US,en;q=0.9")
		req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
		return p.client().Do(req)
	})
	if err != nil {
		return nil, fmt.Errorf("watch page: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("watch page: HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 6*1024*1024))
	if err != nil {
		return nil, fmt.Errorf("read watch page: %w", err)
	}

	idx := strings.Index(string(body), ytInitialPlayerResponseMarker)
	if idx < 0 {
		return nil, errors.New("ytInitialPlayerResponse not found in watch page")
	}
	jsonData := extractJSON(body[idx+len(ytInitialPlayerResponseMarker):])
	if jsonData == nil {
		return nil, errors.New("failed to extract ytInitialPlayerResponse JSON")
	}

	var pr playerResp
	if err := json.Unmarshal(jsonData, &pr); err != nil {
		return nil, fmt.Errorf("decode ytInitialPlayerResponse: %w", err)
	}
	return p.fromTracks(ctx, pr)
}

// viaEngagementPanel uses /next for a transcript token, then /get_transcript.
// Works from datacenter IPs where /player returns LOGIN_REQUIRED.
func (p *Primary) viaEngagementPanel(ctx context.Context, videoID string) ([]RawEntry, error) {
	visitorData := generateVisitorData()

	nextData, err := p.postJSON(ctx, ytNextPath, map[string]any{
		"videoId": videoID,
		"context": webContext(visitorData),
	}, webHeaders(visitorData))
	if err != nil {
		return nil, fmt.Errorf("/next: %w", err)
	}

	token, err := extractTranscriptToken(nextData)
	if err != nil {
		return nil, err
	}

	data, err := p.postJSON(ctx, ytGetTranscriptPath, map[string]any{
		"params":  token,
		"context": webContext(visitorData),
	}, webHeaders(visitorData))
	if err != nil {
		return nil, fmt.Errorf("/get_transcript: %w", err)
	}

	var tr getTranscriptResp
	if err := json.Unmarshal(data, &tr); err != nil {
		return nil, fmt.Errorf("decode transcript: %w", err)
	}
	entries := parseTranscriptSegments(tr)
	if len(entries) == 0 {
		return nil, errors.New("empty transcript segments")
	}
	return entries, nil
}

// viaPlayer uses the ANDROID Innertube /player endpoint.
func (p *Primary) viaPlayer(ctx context.Context, videoID string) ([]RawEntry, error) {
	data, err := p.postJSON(ctx, ytPlayerPath, innertubeReq{
		VideoID: videoID,
		Context: innertubeCtx{
			Client: innertubeClient{
				ClientName:        "ANDROID",
				ClientVersion:     ytAndroidVersion,
				AndroidSdkVersion: 30,
				Hl:                "en",
				Gl:                "US",
			},
		},
		RacyCheckOk:    true,
		ContentCheckOk: true,
	}, androidHeaders())
	if err != nil {
		return nil, err
	}

	var pr playerResp
	if err := json.Unmarshal(data, &pr); err != nil {
		return nil, fmt.Errorf("decode player: %w", err)
	}
	return p.fromTracks(ctx, pr)
}

func (p *Primary) fromTracks(ctx context.Context, pr playerResp) ([]RawEntry, error) {
	tracks, err := pr.tracks()
	if err != nil {
		return nil, err
	}
	track, ok := pickBestTrack(tracks, p.Languages)
	if !ok {
		return nil, errors.New("all caption tracks require PoToken")
	}
	return p.fetchTimedText(ctx, track.BaseURL)
}

// fetchTimedText downloads and parses a timedtext caption URL.
func (p *Primary) fetchTimedText(ctx context.Context, trackURL string) ([]RawEntry, error) {
	resp, err := engine.RetryHTTP(ctx, engine.CaptionRetryConfig, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, trackURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", engine.UserAgentBot)
		return p.client().Do(req)
	})
	if err != nil {
		return nil, fmt.Errorf("fetch timedtext: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch timedtext: HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 2*1024*1024))
	if err != nil {
		return nil, err
	}
	return parseTimedText(body)
}

// parseTimedText decodes legacy and srv3 caption XML into entries.
func parseTimedText(body []byte) ([]RawEntry, error) {
	var tt timedText
	if err := xml.Unmarshal(body, &tt); err != nil {
		return nil, fmt.Errorf("parse timedtext XML: %w", err)
	}

	var out []RawEntry
	for _, l := range tt.Lines {
		if text := engine.CleanCaption(l.Inner); text != "" {
			out = append(out, RawEntry{Text: &text, OffsetMs: secondsToMs(l.Start), DurationMs: secondsToMs(l.Dur)})
		}
	}
	for _, para := range tt.Body.Paras {
		if text := engine.CleanCaption(para.Inner); text != "" {
			out = append(out, RawEntry{Text: &text, OffsetMs: parseMs(para.T), DurationMs: parseMs(para.D)})
		}
	}
	if len(out) == 0 {
		return nil, errors.New("timedtext has no caption lines")
	}
	return out, nil
}

// parseTranscriptSegments extracts timed entries from a /get_transcript response.
func parseTranscriptSegments(resp getTranscriptResp) []RawEntry {
	var out []RawEntry
	for _, action := range resp.Actions {
		if action.UpdateEngagementPanelAction == nil {
			continue
		}
		segs := action.UpdateEngagementPanelAction.Content.
			TranscriptRenderer.Content.
			TranscriptSearchPanelRenderer.Body.
			TranscriptSegmentListRenderer.InitialSegments
		for _, seg := range segs {
			r := seg.TranscriptSegmentRenderer
			if r == nil {
				continue
			}
			parts := make([]string, 0, len(r.Snippet.Runs))
			for _, run := range r.Snippet.Runs {
				if run.Text != "" {
					parts = append(parts, run.Text)
				}
			}
			text := engine.CleanCaption(strings.Join(parts, " "))
			if text == "" {
				continue
			}
			start := parseMs(r.StartMs)
			var dur *int64
			if end := parseMs(r.EndMs); start != nil && end != nil {
				d := *end - *start
				dur = &d
			}
			out = append(out, RawEntry{Text: &text, OffsetMs: start, DurationMs: dur})
		}
	}
	return out
}

func extractTranscriptToken(data []byte) (string, error) {
	m := getTranscriptRE.FindSubmatch(data)
	if len(m) < 2 {
		return "", errors.New("getTranscriptEndpoint not found in engagement panels")
	}
	// /next returns the params URL-encoded; /get_transcript wants raw base64.
	decoded, err := url.QueryUnescape(string(m[1]))
	if err != nil {
		return string(m[1]), nil
	}
	return decoded, nil
}

// needsPoToken reports whether a caption track URL requires a PoToken (browser-only).
func needsPoToken(baseURL string) bool {
	return strings.Contains(baseURL, "&exp=xpe")
}

// pickBestTrack selects the best usable caption track: manual in a preferred
// language, then auto-generated in a preferred language, then any English,
// then the first usable one. Tracks needing a PoToken are skipped.
func pickBestTrack(tracks []captionTrack, langs []string) (captionTrack, bool) {
	usable := make([]captionTrack, 0, len(tracks))
	for _, t := range tracks {
		if !needsPoToken(t.BaseURL) {
			usable = append(usable, t)
		}
	}
	if len(usable) == 0 {
		return captionTrack{}, false
	}
	for _, lang := range langs {
		for _, t := range usable {
			if t.LanguageCode == lang && t.Kind != "asr" {
				return t, true
			}
		}
	}
	for _, lang := range langs {
		for _, t := range usable {
			if t.LanguageCode == lang {
				return t, true
			}
		}
	}
	for _, t := range usable {
		if strings.HasPrefix(t.LanguageCode, "en") {
			return t, true
		}
	}
	return usable[0], true
}

// secondsToMs parses a decimal seconds attribute. Unparseable input is absent.
func secondsToMs(s string) *int64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	ms := int64(math.Round(f * 1000))
	return &ms
}

// parseMs parses an integer milliseconds attribute. Unparseable input is absent.
func parseMs(s string) *int64 {
	ms, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return nil
	}
	return &ms
}
