// Package midi renders tracks as Standard MIDI Files.
package midi

import (
	"context"
	"fmt"
	"io"
	"math"

	"github.com/mrdg/bleeper/audio"
	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

// Pulses per quarter note
const PPQN = 960

// ticksPerWhole makes the decoder count in ticks: a whole note is four
// quarters regardless of the tempo.
const ticksPerWhole = 4 * PPQN

// Render converts every channel of track into its own SMF track. The first
// track only holds the tempo.
func Render(track *audio.Track) (*smf.SMF, error) {
	if track.BPM <= 0 {
		return nil, fmt.Errorf("bpm must be positive, got %d", track.BPM)
	}
	s := smf.New()
	s.TimeFormat = smf.MetricTicks(PPQN)

	var tempo smf.Track
	tempo.Add(0, smf.MetaTempo(float64(track.BPM)))
	tempo.Close(0)
	if err := s.Add(tempo); err != nil {
		return nil, err
	}

	for i, ch := range track.Channels {
		tr, err := renderChannel(ch, uint8(i%16))
		if err != nil {
			return nil, &audio.ChannelError{Channel: ch.Name, Err: err}
		}
		if err := s.Add(tr); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Write renders track and writes it to w.
func Write(w io.Writer, track *audio.Track) error {
	s, err := Render(track)
	if err != nil {
		return err
	}
	_, err = s.WriteTo(w)
	return err
}

type trackWriter struct {
	tr   smf.Track
	last uint64 // absolute time of the last event
	err  error
}

func (w *trackWriter) add(at uint64, msg []byte) {
	if w.err != nil {
		return
	}
	delta := at - w.last
	if delta > math.MaxUint32 {
		w.err = fmt.Errorf("gap of %d ticks is too long", delta)
		return
	}
	w.tr.Add(uint32(delta), msg)
	w.last = at
}

func renderChannel(ch *audio.Channel, channel uint8) (smf.Track, error) {
	w := &trackWriter{}
	w.add(0, smf.MetaTrackSequenceName(ch.Name))

	tuning := audio.Tuning{Size: ch.Score.Size(), Reference: ch.Tuning}
	var (
		now     uint64 // absolute time in ticks
		key     uint8
		off     uint64 // when the sounding note ends
		playing bool
	)
	release := func() {
		if playing {
			w.add(off, gomidi.NoteOff(channel, key))
			playing = false
		}
	}

	d := audio.NewDecoder(ticksPerWhole, 1)
	err := d.Walk(context.Background(), ch.Score.Flatten(), func(ev audio.Event) error {
		start := now
		now += uint64(ev.Duration)
		switch ev.Kind {
		case audio.NoteEvent:
			release()
			if ev.Pitch.Volume == 0 || ev.Duration == 0 {
				return nil
			}
			key = Key(tuning, ev.Pitch)
			w.add(start, gomidi.NoteOn(channel, key, Velocity(ev.Pitch.Volume)))
			off = now
			playing = true
		case audio.RestEvent:
			release()
		case audio.TieEvent:
			if playing {
				off = now
			}
		}
		return w.err
	})
	if err != nil {
		return nil, err
	}
	release()
	if w.err != nil {
		return nil, w.err
	}
	w.tr.Close(uint32(now - w.last))
	return w.tr, nil
}

// Key returns the MIDI key of p. Twelve note sets map octaves directly onto
// MIDI octaves, other sets use the nearest key to the note's frequency.
func Key(t audio.Tuning, p audio.Pitch) uint8 {
	var k float64
	if t.Size == 12 {
		k = float64(12*(p.Octave+1) + p.Index)
	} else {
		k = math.Round(69 + 12*math.Log2(t.Frequency(p)/440))
	}
	switch {
	case k < 0:
		return 0
	case k > 127:
		return 127
	}
	return uint8(k)
}

// Velocity maps a volume onto the MIDI velocity range.
func Velocity(volume int) uint8 {
	switch {
	case volume < 1:
		return 1
	case volume > 127:
		return 127
	}
	return uint8(volume)
}
