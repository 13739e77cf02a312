package audio

import (
	"context"
	"sync"

	"github.com/gordonklaus/portaudio"
)

const bufferSize = 512

// Sink plays rendered buffers on the default output device.
type Sink struct {
	mu       sync.Mutex
	samples  []float32
	pos      int
	done     chan struct{}
	finished bool
	stream   *portaudio.Stream
}

// NewSink opens a mono output stream at rate.
func NewSink(rate int) (*Sink, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, err
	}
	s := &Sink{done: make(chan struct{})}
	stream, err := portaudio.OpenDefaultStream(0, 1, float64(rate), bufferSize, s.Process)
	if err != nil {
		portaudio.Terminate()
		return nil, err
	}
	s.stream = stream
	return s, nil
}

// Play plays samples and returns once they are done or ctx is cancelled.
func (s *Sink) Play(ctx context.Context, samples []float32) error {
	s.mu.Lock()
	s.samples = samples
	s.pos = 0
	s.done = make(chan struct{})
	s.finished = false
	done := s.done
	s.mu.Unlock()

	if err := s.stream.Start(); err != nil {
		return err
	}
	select {
	case <-done:
	case <-ctx.Done():
	}
	if err := s.stream.Stop(); err != nil {
		return err
	}
	return ctx.Err()
}

func (s *Sink) Close() error {
	err := s.stream.Close()
	portaudio.Terminate()
	return err
}

// Process fills out with the next samples and pads with silence once
// playback has finished.
func (s *Sink) Process(out []float32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := copy(out, s.samples[s.pos:])
	s.pos += n
	for i := n; i < len(out); i++ {
		out[i] = 0.
	}
	if s.pos >= len(s.samples) && !s.finished {
		s.finished = true
		close(s.done)
	}
}

// Play opens the default device, plays samples and closes it again.
func Play(ctx context.Context, samples []float32, rate int) error {
	sink, err := NewSink(rate)
	if err != nil {
		return err
	}
	defer sink.Close()
	return sink.Play(ctx, samples)
}
