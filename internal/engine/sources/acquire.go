package sources

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/anatolykoptev/go_ytstamps/internal/engine"
)

// DefaultPrimaryTimeout bounds the primary channel when none is configured.
const DefaultPrimaryTimeout = 15 * time.Second

// Channel is a source of caption data for a video.
type Channel interface {
	Name() string
	Fetch(ctx context.Context, id engine.VideoID) ([]RawEntry, error)
}

// AcquirerConfig wires the channels and policy of an Acquirer.
type AcquirerConfig struct {
	Primary        Channel
	Lookup         Channel
	Order          engine.ChannelOrder // auto is resolved against AppEnv
	AppEnv         string
	PrimaryTimeout time.Duration // 0 = DefaultPrimaryTimeout
	Recorder       engine.Recorder
}

// Acquirer tries each channel in a fixed order and falls back to the
// synthetic transcript. It never fails.
type Acquirer struct {
	channels       []Channel
	primaryTimeout time.Duration
	rec            engine.Recorder
}

// NewAcquirer resolves the channel order once; it does not change afterwards.
func NewAcquirer(cfg AcquirerConfig) *Acquirer {
	order := cfg.Order.Resolve(cfg.AppEnv)
	first, second := cfg.Primary, cfg.Lookup
	if order == engine.OrderLookupFirst {
		first, second = cfg.Lookup, cfg.Primary
	}

	a := &Acquirer{primaryTimeout: cfg.PrimaryTimeout, rec: cfg.Recorder}
	if a.primaryTimeout <= 0 {
		a.primaryTimeout = DefaultPrimaryTimeout
	}
	for _, ch := range []Channel{first, second} {
		if ch != nil {
			a.channels = append(a.channels, ch)
		}
	}
	slog.Info("acquirer: channel order resolved",
		slog.String("order", string(order)), slog.Any("channels", a.Order()))
	return a
}

// NewAcquirerFromConfig builds the production channels from cfg.
func NewAcquirerFromConfig(cfg engine.Config, rec engine.Recorder) *Acquirer {
	return NewAcquirer(AcquirerConfig{
		Primary:        NewPrimary(cfg),
		Lookup:         NewLookup(cfg),
		Order:          cfg.ChannelOrder,
		AppEnv:         cfg.AppEnv,
		PrimaryTimeout: cfg.PrimaryTimeout,
		Recorder:       rec,
	})
}

// Order lists the channel names in the order they are tried.
func (a *Acquirer) Order() []string {
	names := make([]string, 0, len(a.channels)+1)
	for _, ch := range a.channels {
		names = append(names, ch.Name())
	}
	return append(names, engine.ChannelSynthetic)
}

// Acquire returns a normalized, non-empty transcript for id.
func (a *Acquirer) Acquire(ctx context.Context, id engine.VideoID) engine.Transcript {
	engine.IncrTranscriptRequests()

	for _, ch := range a.channels {
		start := time.Now()
		entries, err := a.fetch(ctx, ch, id)
		engine.ObserveStage("transcript."+ch.Name(), start, err)
		if err == nil {
			slog.Debug("acquirer: transcript fetched",
				slog.String("channel", ch.Name()), slog.String("id", id.String()),
				slog.Int("entries", len(entries)))
			return engine.Transcript{VideoID: id, Channel: ch.Name(), Entries: entries}
		}
		engine.Note(ctx, a.rec, id, layerFor(ch.Name()), err)
	}

	engine.Note(ctx, a.rec, id, engine.LayerSynthetic, errors.New("all transcript channels failed"))
	return SyntheticTranscript(id)
}

// fetch runs one channel and normalizes its result. An empty result is a failure.
func (a *Acquirer) fetch(ctx context.Context, ch Channel, id engine.VideoID) ([]engine.TranscriptEntry, error) {
	var (
		raw []RawEntry
		err error
	)
	if ch.Name() == engine.ChannelPrimary {
		raw, err = race(ctx, a.primaryTimeout, ch, id)
	} else {
		raw, err = ch.Fetch(ctx, id)
	}
	if err != nil {
		return nil, err
	}
	entries := Normalize(raw)
	if len(entries) == 0 {
		return nil, fmt.Errorf("%s: empty transcript", ch.Name())
	}
	return entries, nil
}

// race runs the channel in a goroutine against a deadline. When the deadline
// wins, the goroutine is abandoned and its result discarded.
func race(ctx context.Context, timeout time.Duration, ch Channel, id engine.VideoID) ([]RawEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		entries []RawEntry
		err     error
	}
	done := make(chan result, 1)
	go func() {
		entries, err := ch.Fetch(ctx, id)
		done <- result{entries, err}
	}()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", ch.Name(), ctx.Err())
	case r := <-done:
		return r.entries, r.err
	}
}

func layerFor(channel string) string {
	switch channel {
	case engine.ChannelPrimary:
		return engine.LayerPrimary
	case engine.ChannelLookup:
		return engine.LayerLookup
	default:
		return "transcript." + channel
	}
}
