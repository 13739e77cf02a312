package audio

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"github.com/mrdg/bleeper/mask"
	"golang.org/x/sync/errgroup"
)

// Channel is a score played by a single instrument.
type Channel struct {
	Name       string
	Score      *mask.Score
	Instrument Instrument
	Tuning     float64 // reference frequency in Hz
	Gain       float64 // applied after decoding, 1 leaves the samples unchanged
	Envelope   *Envelope
}

// NewChannel checks that score can be decoded and returns a channel with unity
// gain.
func NewChannel(name string, score *mask.Score, inst Instrument, tuning float64) (*Channel, error) {
	if err := score.Validate(); err != nil {
		return nil, &ChannelError{Channel: name, Err: err}
	}
	if inst == nil {
		return nil, &ChannelError{Channel: name, Err: fmt.Errorf("no instrument")}
	}
	if tuning <= 0 {
		return nil, &ChannelError{Channel: name, Err: fmt.Errorf("tuning must be positive, got %v", tuning)}
	}
	return &Channel{
		Name:       name,
		Score:      score,
		Instrument: inst,
		Tuning:     tuning,
		Gain:       1,
	}, nil
}

// ChannelError names the channel an error occurred in.
type ChannelError struct {
	Channel string
	Err     error
}

func (e *ChannelError) Error() string {
	return fmt.Sprintf("channel %s: %v", e.Channel, e.Err)
}

func (e *ChannelError) Unwrap() error { return e.Err }

// Decode renders the channel at bpm and the given sample rate. A positive
// limit caps the number of samples.
func (c *Channel) Decode(ctx context.Context, bpm, rate, limit int) ([]float32, error) {
	gen, err := c.Instrument.NewGenerator(Tuning{
		Size:      c.Score.Size(),
		Reference: c.Tuning,
		Rate:      rate,
	})
	if err != nil {
		return nil, err
	}
	if c.Envelope != nil {
		gen = c.Envelope.Apply(gen, rate)
	}
	d := NewDecoder(SamplesPerWhole(rate), bpm)
	if limit > 0 {
		d.Limit = uint64(limit)
	}
	samples, err := d.Decode(ctx, c.Score.Flatten(), gen)
	if err != nil {
		return nil, err
	}
	if c.Gain != 1 {
		g := float32(c.Gain)
		for i := range samples {
			samples[i] *= g
		}
	}
	return samples, nil
}

// Track is a set of channels played together.
type Track struct {
	BPM        int
	Rate       int
	MaxSamples int // per channel, 0 means no limit
	Channels   []*Channel
}

func (t *Track) rate() int {
	if t.Rate > 0 {
		return t.Rate
	}
	return DefaultRate
}

// Process decodes every channel concurrently. The buffers are returned in
// channel order. The first error cancels the remaining channels.
func (t *Track) Process(ctx context.Context) ([][]float32, error) {
	if t.BPM <= 0 {
		return nil, fmt.Errorf("bpm must be positive, got %d", t.BPM)
	}
	rate := t.rate()
	bufs := make([][]float32, len(t.Channels))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, ch := range t.Channels {
		i, ch := i, ch
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			start := time.Now()
			samples, err := ch.Decode(ctx, t.BPM, rate, t.MaxSamples)
			if err != nil {
				return &ChannelError{Channel: ch.Name, Err: err}
			}
			slog.Debug("decoded channel",
				"channel", ch.Name,
				"samples", len(samples),
				"elapsed", time.Since(start))
			bufs[i] = samples
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return bufs, nil
}

// Render decodes all channels and mixes them down.
func (t *Track) Render(ctx context.Context) ([]float32, error) {
	bufs, err := t.Process(ctx)
	if err != nil {
		return nil, err
	}
	return Mix(bufs), nil
}
