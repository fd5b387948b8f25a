package engine

import (
	"context"
	"net/http"
	"time"

	stealth "github.com/anatolykoptev/go-stealth"
)

// Re-export stealth retry helpers for engine consumers.
type RetryConfig = stealth.RetryConfig

// CaptionRetryConfig keeps caption fetches inside the primary channel budget.
var CaptionRetryConfig = stealth.RetryConfig{
	MaxRetries:  1,
	InitialWait: 300 * time.Millisecond,
	MaxWait:     2 * time.Second,
	Multiplier:  2.0,
}

func RandomUserAgent() string         { return stealth.RandomUserAgent() }
func IsRetryableStatus(code int) bool { return stealth.IsRetryableStatus(code) }

func RetryHTTP(ctx context.Context, rc stealth.RetryConfig, fn func() (*http.Response, error)) (*http.Response, error) {
	return stealth.RetryHTTP(ctx, rc, fn)
}
