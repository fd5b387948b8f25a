package sources

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const legacyCaptions = `<?xml version="1.0" encoding="utf-8" ?><transcript>
<text start="0.5" dur="2.25">Hello &amp;#39;world&amp;#39;</text>
<text start="3" dur="1.5">  second   line </text>
<text start="5" dur="1"></text>
</transcript>`

const srv3Captions = `<?xml version="1.0" encoding="utf-8" ?><timedtext format="3"><body>
<p t="1200" d="800"><s>first</s><s t="300"> part</s></p>
<p t="2000" d="bogus">second</p>
</body></timedtext>`

func TestParseTimedTextLegacy(t *testing.T) {
	entries, err := parseTimedText([]byte(legacyCaptions))
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "Hello 'world'", *entries[0].Text)
	assert.Equal(t, int64(500), *entries[0].OffsetMs)
	assert.Equal(t, int64(2250), *entries[0].DurationMs)
	assert.Equal(t, "second line", *entries[1].Text)
	assert.Equal(t, int64(3000), *entries[1].OffsetMs)
}

func TestParseTimedTextSrv3(t *testing.T) {
	entries, err := parseTimedText([]byte(srv3Captions))
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "first part", *entries[0].Text)
	assert.Equal(t, int64(1200), *entries[0].OffsetMs)
	assert.Equal(t, int64(800), *entries[0].DurationMs)
	assert.Nil(t, entries[1].DurationMs, "bad duration is left for Normalize")
}

func TestParseTimedTextErrors(t *testing.T) {
	_, err := parseTimedText([]byte("not xml <"))
	assert.Error(t, err)
	_, err = parseTimedText([]byte(`<transcript></transcript>`))
	assert.Error(t, err)
}

func TestPickBestTrack(t *testing.T) {
	tracks := []captionTrack{
		{BaseURL: "u1&exp=xpe", LanguageCode: "en"},
		{BaseURL: "u2", LanguageCode: "de", Kind: "asr"},
		{BaseURL: "u3", LanguageCode: "de"},
		{BaseURL: "u4", LanguageCode: "en-GB", Kind: "asr"},
	}
	tests := []struct {
		name  string
		langs []string
		want  string
	}{
		{"manual preferred", []string{"de"}, "u3"},
		{"english fallback", []string{"fr"}, "u4"},
		{"po token skipped", []string{"en"}, "u4"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := pickBestTrack(tracks, tt.langs)
			require.True(t, ok)
			assert.Equal(t, tt.want, got.BaseURL)
		})
	}

	_, ok := pickBestTrack([]captionTrack{{BaseURL: "x&exp=xpe"}}, []string{"en"})
	assert.False(t, ok)
}

func TestExtractJSON(t *testing.T) {
	in := []byte(`{"a":"}\"{","b":{"c":1}};var x = 1;`)
	assert.Equal(t, `{"a":"}\"{","b":{"c":1}}`, string(extractJSON(in)))
	assert.Nil(t, extractJSON([]byte(`[1]`)))
	assert.Nil(t, extractJSON([]byte(`{"open":`)))
}

func TestExtractTranscriptToken(t *testing.T) {
	tok, err := extractTranscriptToken([]byte(`{"getTranscriptEndpoint":{"params":"CgtkUXc0dzlXZ1hjUQ%3D%3D"}}`))
	require.NoError(t, err)
	assert.Equal(t, "CgtkUXc0dzlXZ1hjUQ==", tok)

	_, err = extractTranscriptToken([]byte(`{}`))
	assert.Error(t, err)
}

func TestPrimaryFetchWatchPage(t *testing.T) {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/watch":
			fmt.Fprintf(w, `<html><script>var ytInitialPlayerResponse = {"captions":{"playerCaptionsTracklistRenderer":{"captionTracks":[{"baseUrl":"%s/api/timedtext?v=%s","languageCode":"en"}]}}};</script></html>`,
				srv.URL, r.URL.Query().Get("v"))
		case "/api/timedtext":
			_, _ = w.Write([]byte(legacyCaptions))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	p := &Primary{BaseURL: srv.URL, Client: srv.Client(), Languages: []string{"en"}}
	entries, err := p.Fetch(context.Background(), "dQw4w9WgXcQ")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "Hello 'world'", *entries[0].Text)
}

func TestPrimaryFallsBackToPlayer(t *testing.T) {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/watch":
			_, _ = w.Write([]byte(`<html>no player here</html>`))
		case "/youtubei/v1/next":
			_, _ = w.Write([]byte(`{"contents":{}}`))
		case "/youtubei/v1/player":
			if r.Method != http.MethodPost || r.Header.Get("X-Youtube-Client-Name") != "3" {
				http.Error(w, "bad client", http.StatusBadRequest)
				return
			}
			fmt.Fprintf(w, `{"captions":{"playerCaptionsTracklistRenderer":{"captionTracks":[{"baseUrl":"%s/srv3","languageCode":"en"}]}}}`, srv.URL)
		case "/srv3":
			_, _ = w.Write([]byte(srv3Captions))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	p := &Primary{BaseURL: srv.URL, Client: srv.Client(), Languages: []string{"en"}}
	entries, err := p.Fetch(context.Background(), "dQw4w9WgXcQ")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "first part", *entries[0].Text)
}

func TestPrimaryEngagementPanel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/youtubei/v1/next":
			_, _ = w.Write([]byte(`{"engagementPanels":[{"getTranscriptEndpoint":{"params":"abc"}}]}`))
		case "/youtubei/v1/get_transcript":
			_, _ = w.Write([]byte(`{"actions":[{"updateEngagementPanelAction":{"content":{"transcriptRenderer":{"content":{"transcriptSearchPanelRenderer":{"body":{"transcriptSegmentListRenderer":{"initialSegments":[
				{"transcriptSegmentRenderer":{"startMs":"0","endMs":"1500","snippet":{"runs":[{"text":"intro"}]}}},
				{"transcriptSegmentRenderer":{"startMs":"1500","endMs":"4000","snippet":{"runs":[{"text":"main"},{"text":"point"}]}}}
			]}}}}}}}}]}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	p := &Primary{BaseURL: srv.URL, Client: srv.Client()}
	entries, err := p.Fetch(context.Background(), "dQw4w9WgXcQ")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "main point", *entries[1].Text)
	assert.Equal(t, int64(1500), *entries[1].OffsetMs)
	assert.Equal(t, int64(2500), *entries[1].DurationMs)
}

func TestPrimaryAllPathsFail(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	p := &Primary{BaseURL: srv.URL, Client: srv.Client()}
	_, err := p.Fetch(context.Background(), "dQw4w9WgXcQ")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "page scrape")
	assert.Contains(t, err.Error(), "player")
}
