package engine

import (
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ChannelOrder selects which transcript channel is tried first.
type ChannelOrder string

const (
	OrderAuto         ChannelOrder = "auto"
	OrderPrimaryFirst ChannelOrder = "primary-first"
	OrderLookupFirst  ChannelOrder = "lookup-first"
)

// ParseChannelOrder normalises a TRANSCRIPT_ORDER value. Empty means auto.
func ParseChannelOrder(s string) (ChannelOrder, error) {
	switch o := ChannelOrder(strings.ToLower(strings.TrimSpace(s))); o {
	case "", OrderAuto:
		return OrderAuto, nil
	case OrderPrimaryFirst, OrderLookupFirst:
		return o, nil
	default:
		return "", fmt.Errorf("unknown channel order %q (valid: auto, primary-first, lookup-first)", s)
	}
}

// Resolve turns auto into a concrete order. Production environments try the
// lookup service before the embedded caption scraper.
func (o ChannelOrder) Resolve(appEnv string) ChannelOrder {
	if o != OrderAuto && o != "" {
		return o
	}
	if strings.EqualFold(appEnv, "production") {
		return OrderLookupFirst
	}
	return OrderPrimaryFirst
}

// Config holds all engine configuration, built once in main and injected.
type Config struct {
	AppEnv          string
	ChannelOrder    ChannelOrder
	PrimaryTimeout  time.Duration // race budget for the embedded caption channel
	FetchTimeout    time.Duration // per-request budget for the lookup channel
	LookupURL       string        // transcript lookup URL template, %s = video id
	Languages       []string      // preferred caption languages
	RejectSynthetic bool          // surface 404 instead of a placeholder transcript

	LLMProvider        string // "gokit" (default) or "openai"
	LLMAPIKey          string
	LLMAPIKeyFallbacks []string
	LLMAPIBase         string
	LLMModel           string
	LLMTemperature     float64
	LLMMaxTokens       int
	LLMRequestsPerSec  float64 // 0 = unlimited
	LLMBurst           int

	RedisURL             string
	CacheTTL             time.Duration
	CacheMaxEntries      int
	CacheCleanupInterval time.Duration

	DiagSQLitePath string
	DatabaseURL    string

	HTTPClient *http.Client
}

// DefaultLookupURL is the public transcript lookup endpoint used when
// TRANSCRIPT_LOOKUP_URL is not set.
const DefaultLookupURL = "https://youtubetranscript.com/?server_vid2=%s"

// Validate checks the fields the pipeline cannot run without.
func (c Config) Validate() error {
	if c.LLMModel == "" {
		return fmt.Errorf("LLM_MODEL is required")
	}
	if c.LookupURL != "" && !strings.Contains(c.LookupURL, "%s") {
		return fmt.Errorf("TRANSCRIPT_LOOKUP_URL must contain %%s for the video id")
	}
	switch c.LLMProvider {
	case "", "gokit", "openai":
	default:
		return fmt.Errorf("LLM_PROVIDER %q not supported (valid: gokit, openai)", c.LLMProvider)
	}
	return nil
}
