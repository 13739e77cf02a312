package audio

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/bits"

	"github.com/mrdg/bleeper/mask"
)

// DefaultRate is the sample rate used when none is configured.
const DefaultRate = 48000

// Default decoder state. The octave is stored zero based, so the default
// corresponds to @4 in a score.
const (
	DefaultOctave = 3
	DefaultLength = 4
	DefaultVolume = 100
)

var (
	ErrLengthOverflow  = errors.New("length overflow")
	ErrLengthUnderflow = errors.New("length underflow")
	ErrVolumeRange     = errors.New("volume out of range")
	ErrTimingOverflow  = errors.New("timing overflow")
	ErrTooLong         = errors.New("score exceeds the length limit")
)

// cancelCheck is the number of atoms decoded between two context checks.
const cancelCheck = 1024

// DecodeError reports the position, in the flattened score, of the atom that
// failed to decode.
type DecodeError struct {
	Pos int
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("atom %d: %v", e.Pos, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// SamplesPerWhole returns the number of samples a whole note lasts at one
// beat per minute.
func SamplesPerWhole(rate int) uint64 {
	return uint64(rate) * 4 * 60
}

type EventKind int

const (
	NoteEvent EventKind = iota
	RestEvent
	TieEvent
)

func (k EventKind) String() string {
	switch k {
	case NoteEvent:
		return "note"
	case RestEvent:
		return "rest"
	case TieEvent:
		return "tie"
	}
	return "unknown"
}

// Event is a note, rest or tie with its duration resolved.
type Event struct {
	Kind     EventKind
	Pos      int // position of the atom in the flattened score
	Duration int
	Pitch    Pitch
}

// Decoder turns a flattened score into timed events. Durations are computed
// with integer division; the remainder is carried to the next event so that
// rounding errors never accumulate.
type Decoder struct {
	// Limit caps the summed duration of all events, in the units of the
	// decoder. Zero means no limit.
	Limit uint64

	total     uint64
	whole     uint64
	bpm       uint64
	octave    int
	length    int
	volume    int
	tuplet    int
	remainder uint64
}

// NewDecoder returns a decoder where a whole note at one beat per minute lasts
// whole units. The unit is usually a sample, see SamplesPerWhole.
func NewDecoder(whole uint64, bpm int) *Decoder {
	return &Decoder{
		whole:  whole,
		bpm:    uint64(bpm),
		octave: DefaultOctave,
		length: DefaultLength,
		volume: DefaultVolume,
		tuplet: 1,
	}
}

func (d *Decoder) duration() (int, error) {
	num, carry := bits.Add64(d.whole, d.remainder, 0)
	if carry != 0 {
		return 0, ErrTimingOverflow
	}
	hi, denom := bits.Mul64(d.bpm, uint64(d.length))
	if hi != 0 {
		return 0, ErrTimingOverflow
	}
	hi, denom = bits.Mul64(denom, uint64(d.tuplet))
	if hi != 0 || denom == 0 {
		return 0, ErrTimingOverflow
	}
	n := num / denom
	if n > math.MaxInt32 {
		return 0, ErrTimingOverflow
	}
	d.remainder = num % denom
	return int(n), nil
}

func (d *Decoder) pitch(index int) Pitch {
	return Pitch{Index: index, Octave: d.octave, Volume: d.volume}
}

// Run calls fn for every note, rest and tie in it. Events shorter than a
// single unit are skipped.
func (d *Decoder) Run(ctx context.Context, it *mask.Iterator, fn func(Event) error) error {
	return d.Walk(ctx, it, func(ev Event) error {
		if ev.Duration == 0 {
			return nil
		}
		return fn(ev)
	})
}

// Walk is like Run but also reports events shorter than a single unit, so
// that callers can tell which event a tie follows.
func (d *Decoder) Walk(ctx context.Context, it *mask.Iterator, fn func(Event) error) error {
	for pos := 0; ; pos++ {
		if pos%cancelCheck == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		atom, ok := it.Next()
		if !ok {
			break
		}
		ev, ok, err := d.step(atom)
		if err != nil {
			return &DecodeError{Pos: pos, Err: err}
		}
		if !ok {
			continue
		}
		d.total += uint64(ev.Duration)
		if d.Limit > 0 && d.total > d.Limit {
			return &DecodeError{Pos: pos, Err: ErrTooLong}
		}
		ev.Pos = pos
		if err := fn(ev); err != nil {
			return err
		}
	}
	return it.Err()
}

// step applies atom to the decoder state and returns the event it produces,
// if any.
func (d *Decoder) step(atom mask.Atom) (Event, bool, error) {
	var ev Event
	switch a := atom.(type) {
	case mask.Octave:
		d.octave = int(a) - 1
	case mask.Length:
		d.length = int(a)
	case mask.Volume:
		d.volume = int(a)
	case mask.OctaveIncr:
		d.octave++
	case mask.OctaveDecr:
		d.octave--
	case mask.LengthIncr:
		if d.length*2 > mask.MaxLength {
			return ev, false, ErrLengthOverflow
		}
		d.length *= 2
	case mask.LengthDecr:
		if d.length%2 != 0 {
			return ev, false, ErrLengthUnderflow
		}
		d.length /= 2
	case mask.VolumeIncr:
		if d.volume == mask.MaxVolume {
			return ev, false, ErrVolumeRange
		}
		d.volume++
	case mask.VolumeDecr:
		if d.volume == 0 {
			return ev, false, ErrVolumeRange
		}
		d.volume--
	case mask.Note:
		ev.Kind = NoteEvent
		ev.Pitch = d.pitch(a.Index)
		return d.timed(ev, a.Tuplet)
	case mask.Rest:
		ev.Kind = RestEvent
		return d.timed(ev, a.Tuplet)
	case mask.More:
		ev.Kind = TieEvent
		return d.timed(ev, a.Tuplet)
	default:
		panic(fmt.Sprintf("decoder: unexpected atom %T", atom))
	}
	return ev, false, nil
}

func (d *Decoder) timed(ev Event, tuplet int) (Event, bool, error) {
	d.tuplet = tuplet
	n, err := d.duration()
	if err != nil {
		return ev, false, err
	}
	ev.Duration = n
	return ev, true, nil
}

// Decode renders it into samples, calling gen for every note. A tie extends
// the note or rest before it, so gen is called once for the whole duration.
// A tie after a note too short to sound extends silence.
func (d *Decoder) Decode(ctx context.Context, it *mask.Iterator, gen Generator) ([]float32, error) {
	var (
		out     []float32
		pending Event
		held    bool
	)
	flush := func() error {
		if !held {
			return nil
		}
		held = false
		if pending.Kind == RestEvent {
			out = append(out, make([]float32, pending.Duration)...)
			return nil
		}
		buf, err := gen.Generate(pending.Duration, pending.Pitch)
		if err != nil {
			return &DecodeError{Pos: pending.Pos, Err: err}
		}
		if len(buf) != pending.Duration {
			return &DecodeError{
				Pos: pending.Pos,
				Err: fmt.Errorf("generator returned %d samples, want %d", len(buf), pending.Duration),
			}
		}
		out = append(out, buf...)
		return nil
	}

	err := d.Walk(ctx, it, func(ev Event) error {
		if ev.Kind == TieEvent {
			switch {
			case ev.Duration == 0:
			case held:
				pending.Duration += ev.Duration
			default:
				pending = Event{Kind: RestEvent, Pos: ev.Pos, Duration: ev.Duration}
				held = true
			}
			return nil
		}
		if err := flush(); err != nil {
			return err
		}
		if ev.Duration > 0 {
			pending, held = ev, true
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return out, nil
}
