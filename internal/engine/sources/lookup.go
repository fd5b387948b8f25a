package sources

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/anatolykoptev/go_ytstamps/internal/engine"
)

// Lookup queries a public transcript-lookup service. The response is plain
// or lightly marked-up text, one caption per line, without timing.
type Lookup struct {
	URLTemplate string        // %s = video id
	Client      *http.Client  // nil = http.DefaultClient
	Timeout     time.Duration // 0 = rely on ctx and client
}

// NewLookup builds the lookup channel from cfg.
func NewLookup(cfg engine.Config) *Lookup {
	tmpl := cfg.LookupURL
	if tmpl == "" {
		tmpl = engine.DefaultLookupURL
	}
	return &Lookup{URLTemplate: tmpl, Client: cfg.HTTPClient, Timeout: cfg.FetchTimeout}
}

func (l *Lookup) Name() string { return engine.ChannelLookup }

// Fetch downloads and parses the lookup response for id.
func (l *Lookup) Fetch(ctx context.Context, id engine.VideoID) ([]RawEntry, error) {
	engine.IncrLookupFetch()
	if l.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.Timeout)
		defer cancel()
	}

	client := l.Client
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf(l.URLTemplate, id), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", engine.UserAgentBot)
	req.Header.Set("Accept", "text/plain, text/html, text/xml;q=0.9, */*;q=0.5")

	resp, err := engine.RetryHTTP(ctx, engine.CaptionRetryConfig, func() (*http.Response, error) {
		return client.Do(req)
	})
	if err != nil {
		return nil, fmt.Errorf("lookup: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("lookup: HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 2*1024*1024))
	if err != nil {
		return nil, fmt.Errorf("lookup: read body: %w", err)
	}

	entries := ParseLookupText(string(body))
	if len(entries) == 0 {
		return nil, errors.New("lookup: no caption lines in response")
	}
	return entries, nil
}

var lineBreaker = strings.NewReplacer("</text>", "\n", "<br>", "\n", "<br/>", "\n", "<br />", "\n", "\r\n", "\n")

// ParseLookupText turns a line-oriented response into entries with a fixed
// duration and a running offset. Blank lines are skipped.
func ParseLookupText(body string) []RawEntry {
	var out []RawEntry
	var offset int64
	for _, line := range strings.Split(lineBreaker.Replace(body), "\n") {
		text := engine.CleanCaption(line)
		if text == "" {
			continue
		}
		out = append(out, Entry(text, offset, defaultEntryDurationMs))
		offset += defaultEntryDurationMs
	}
	return out
}
