package audio

import (
	"context"
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/mrdg/bleeper/mask"
)

const chromatic = "aAbcCdDefFgG"

type call struct {
	n int
	p Pitch
}

// recorder is a generator that returns ones and remembers its calls.
type recorder struct {
	calls []call
}

func (r *recorder) Generate(n int, p Pitch) ([]float32, error) {
	r.calls = append(r.calls, call{n, p})
	buf := make([]float32, n)
	for i := range buf {
		buf[i] = 1
	}
	return buf, nil
}

func decode(t *testing.T, score string, bpm int) ([]float32, *recorder) {
	t.Helper()
	rec := &recorder{}
	s := mask.MustParse(score, chromatic)
	out, err := NewDecoder(SamplesPerWhole(48000), bpm).Decode(context.Background(), s.Flatten(), rec)
	if err != nil {
		t.Fatalf("%q: %v", score, err)
	}
	return out, rec
}

func TestDecodeNote(t *testing.T) {
	out, rec := decode(t, "@4$4!100 a", 60)
	if want, got := 48000, len(out); want != got {
		t.Fatalf("want %d samples, got %d", want, got)
	}
	want := []call{{48000, Pitch{Index: 0, Octave: 3, Volume: 100}}}
	if !reflect.DeepEqual(want, rec.calls) {
		t.Errorf("wrong calls:\nwant: %+v\ngot:  %+v", want, rec.calls)
	}
}

func TestDecodeRest(t *testing.T) {
	out, rec := decode(t, "@4$4!100 .", 60)
	if want, got := 48000, len(out); want != got {
		t.Fatalf("want %d samples, got %d", want, got)
	}
	for i, v := range out {
		if v != 0 {
			t.Fatalf("sample %d: want silence, got %v", i, v)
		}
	}
	if len(rec.calls) != 0 {
		t.Errorf("generator called for a rest: %+v", rec.calls)
	}
}

func TestDecodeState(t *testing.T) {
	_, rec := decode(t, "c > c << c ^^ c __ _ c $8 c ` c ' c !0 c", 60)
	want := []call{
		{48000, Pitch{Index: 3, Octave: 3, Volume: 100}},
		{48000, Pitch{Index: 3, Octave: 4, Volume: 100}},
		{48000, Pitch{Index: 3, Octave: 2, Volume: 100}},
		{48000, Pitch{Index: 3, Octave: 2, Volume: 102}},
		{48000, Pitch{Index: 3, Octave: 2, Volume: 99}},
		{24000, Pitch{Index: 3, Octave: 2, Volume: 99}},
		{12000, Pitch{Index: 3, Octave: 2, Volume: 99}},
		{24000, Pitch{Index: 3, Octave: 2, Volume: 99}},
		{24000, Pitch{Index: 3, Octave: 2, Volume: 0}},
	}
	if !reflect.DeepEqual(want, rec.calls) {
		t.Errorf("wrong calls:\nwant: %+v\ngot:  %+v", want, rec.calls)
	}
}

func TestDecodeTuplet(t *testing.T) {
	out, rec := decode(t, "[a b c]", 60)
	if want, got := 48000, len(out); want != got {
		t.Errorf("want %d samples, got %d", want, got)
	}
	if want, got := 3, len(rec.calls); want != got {
		t.Fatalf("want %d notes, got %d", want, got)
	}
	for _, c := range rec.calls {
		if c.n != 16000 {
			t.Errorf("want notes of 16000 samples, got %d", c.n)
		}
	}

	// 48000 samples don't divide by 7, the remainder goes to later notes
	out, rec = decode(t, "[a a a a a a a]", 60)
	if want, got := 48000, len(out); want != got {
		t.Errorf("want %d samples, got %d", want, got)
	}
	var lengths []int
	for _, c := range rec.calls {
		lengths = append(lengths, c.n)
	}
	want := []int{6857, 6857, 6857, 6857, 6857, 6857, 6858}
	if !reflect.DeepEqual(want, lengths) {
		t.Errorf("wrong note lengths:\nwant: %v\ngot:  %v", want, lengths)
	}
}

func TestDecodeTie(t *testing.T) {
	out, rec := decode(t, "a ~ ~ b", 60)
	if want, got := 4*48000, len(out); want != got {
		t.Errorf("want %d samples, got %d", want, got)
	}
	want := []call{
		{3 * 48000, Pitch{Index: 0, Octave: 3, Volume: 100}},
		{48000, Pitch{Index: 2, Octave: 3, Volume: 100}},
	}
	if !reflect.DeepEqual(want, rec.calls) {
		t.Errorf("wrong calls:\nwant: %+v\ngot:  %+v", want, rec.calls)
	}

	// a tie without a note extends silence
	out, rec = decode(t, "~ a", 60)
	if want, got := 2*48000, len(out); want != got {
		t.Errorf("want %d samples, got %d", want, got)
	}
	if out[0] != 0 || out[48000] != 1 {
		t.Errorf("expected silence followed by the note")
	}
	if want, got := 1, len(rec.calls); want != got {
		t.Errorf("want %d calls, got %d", want, got)
	}
}

func TestDecodeEvents(t *testing.T) {
	var events []Event
	d := NewDecoder(SamplesPerWhole(48000), 120)
	err := d.Run(context.Background(), mask.MustParse("$8 a . ~", chromatic).Flatten(), func(ev Event) error {
		events = append(events, ev)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	want := []Event{
		{Kind: NoteEvent, Pos: 1, Duration: 12000, Pitch: Pitch{Octave: 3, Volume: 100}},
		{Kind: RestEvent, Pos: 2, Duration: 12000},
		{Kind: TieEvent, Pos: 3, Duration: 12000},
	}
	if !reflect.DeepEqual(want, events) {
		t.Errorf("wrong events:\nwant: %+v\ngot:  %+v", want, events)
	}
}

func TestDecodeSkipsEmptyNotes(t *testing.T) {
	// 10 units per whole note at one bpm, a quarter at 60 bpm is 1/24 of a unit
	var events []Event
	d := NewDecoder(10, 60)
	score := mask.MustParse("(24 a)", chromatic)
	err := d.Run(context.Background(), score.Flatten(), func(ev Event) error {
		events = append(events, ev)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if want, got := 1, len(events); want != got {
		t.Fatalf("want %d event, got %d", want, got)
	}
	if want, got := 23, events[0].Pos; want != got {
		t.Errorf("want the event at %d, got %d", want, got)
	}
}

func TestDecodeTieAfterEmptyNote(t *testing.T) {
	// a quarter note lasts 2 units, the $255 note rounds down to nothing
	rec := &recorder{}
	s := mask.MustParse("a $255 b $4 ~", chromatic)
	out, err := NewDecoder(480, 60).Decode(context.Background(), s.Flatten(), rec)
	if err != nil {
		t.Fatal(err)
	}
	if want := []float32{1, 1, 0, 0, 0, 0}; !reflect.DeepEqual(want, out) {
		t.Errorf("wrong samples:\nwant: %v\ngot:  %v", want, out)
	}
	want := []call{{2, Pitch{Index: 0, Octave: 3, Volume: 100}}}
	if !reflect.DeepEqual(want, rec.calls) {
		t.Errorf("wrong calls:\nwant: %+v\ngot:  %+v", want, rec.calls)
	}
}

func TestWalkReportsEmptyEvents(t *testing.T) {
	var kinds []EventKind
	var durations []int
	d := NewDecoder(480, 60)
	err := d.Walk(context.Background(), mask.MustParse("a $255 b ~", chromatic).Flatten(), func(ev Event) error {
		kinds = append(kinds, ev.Kind)
		durations = append(durations, ev.Duration)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if want := []EventKind{NoteEvent, NoteEvent, TieEvent}; !reflect.DeepEqual(want, kinds) {
		t.Errorf("wrong kinds:\nwant: %v\ngot:  %v", want, kinds)
	}
	if want := []int{2, 0, 0}; !reflect.DeepEqual(want, durations) {
		t.Errorf("wrong durations:\nwant: %v\ngot:  %v", want, durations)
	}
}

func TestDecodeLimit(t *testing.T) {
	d := NewDecoder(SamplesPerWhole(48000), 60)
	d.Limit = 96000
	_, err := d.Decode(context.Background(), mask.MustParse("a b c", chromatic).Flatten(), &recorder{})
	if !errors.Is(err, ErrTooLong) {
		t.Fatalf("want %v, got %v", ErrTooLong, err)
	}
	var derr *DecodeError
	if !errors.As(err, &derr) || derr.Pos != 2 {
		t.Errorf("want a decode error at 2, got %v", err)
	}

	d = NewDecoder(SamplesPerWhole(48000), 60)
	d.Limit = 96000
	if _, err := d.Decode(context.Background(), mask.MustParse("a b", chromatic).Flatten(), &recorder{}); err != nil {
		t.Errorf("unexpected error at the limit: %v", err)
	}
}

func TestDecodeCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := mask.MustParse("(65535 (65535 (65535 a)))", chromatic)
	_, err := NewDecoder(SamplesPerWhole(48000), 60).Decode(ctx, s.Flatten(), &recorder{})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("want %v, got %v", context.Canceled, err)
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		score string
		pos   int
		err   error
	}{
		{"$3 ' a", 1, ErrLengthUnderflow},
		{"$1 '", 1, ErrLengthUnderflow},
		{"$128 `", 1, ErrLengthOverflow},
		{"a !255 ^", 2, ErrVolumeRange},
		{"!0 _", 1, ErrVolumeRange},
	}
	for _, test := range tests {
		s := mask.MustParse(test.score, chromatic)
		_, err := NewDecoder(SamplesPerWhole(48000), 60).Decode(context.Background(), s.Flatten(), &recorder{})
		if !errors.Is(err, test.err) {
			t.Errorf("%q: want %v, got %v", test.score, test.err, err)
			continue
		}
		var derr *DecodeError
		if !errors.As(err, &derr) {
			t.Errorf("%q: want a decode error, got %T", test.score, err)
			continue
		}
		if derr.Pos != test.pos {
			t.Errorf("%q: want error at %d, got %d", test.score, test.pos, derr.Pos)
		}
	}
}

func TestDecodeTimingOverflow(t *testing.T) {
	s := mask.MustParse("a", chromatic)
	tests := []*Decoder{
		NewDecoder(math.MaxUint64, 1),
		NewDecoder(1, math.MaxInt),
	}
	for i, d := range tests {
		_, err := d.Decode(context.Background(), s.Flatten(), &recorder{})
		if !errors.Is(err, ErrTimingOverflow) {
			t.Errorf("%d: want %v, got %v", i, ErrTimingOverflow, err)
		}
	}
}

func TestDecodeGeneratorErrors(t *testing.T) {
	s := mask.MustParse("a b", chromatic)
	short := GeneratorFunc(func(n int, p Pitch) ([]float32, error) {
		return make([]float32, n-1), nil
	})
	if _, err := NewDecoder(SamplesPerWhole(48000), 60).Decode(context.Background(), s.Flatten(), short); err == nil {
		t.Error("expected an error for a short buffer")
	}

	boom := errors.New("boom")
	failing := GeneratorFunc(func(n int, p Pitch) ([]float32, error) {
		if p.Index == 2 {
			return nil, boom
		}
		return make([]float32, n), nil
	})
	_, err := NewDecoder(SamplesPerWhole(48000), 60).Decode(context.Background(), s.Flatten(), failing)
	var derr *DecodeError
	if !errors.As(err, &derr) || !errors.Is(err, boom) {
		t.Fatalf("want a decode error wrapping %v, got %v", boom, err)
	}
	if want, got := 1, derr.Pos; want != got {
		t.Errorf("want error at %d, got %d", want, got)
	}
}

// The sum of the durations of n equal notes stays within one sample of the
// exact value.
func TestDecodeDrift(t *testing.T) {
	const rate = 44100
	for _, bpm := range []int{60, 97, 133, 241} {
		for _, length := range []int{1, 3, 4, 7, 16} {
			for _, tuplet := range []int{1, 3, 5} {
				d := NewDecoder(SamplesPerWhole(rate), bpm)
				d.length = length
				whole := SamplesPerWhole(rate)
				denom := uint64(bpm * length * tuplet)
				var sum uint64
				for n := uint64(1); n <= 500; n++ {
					ev, _, err := d.step(mask.Note{Tuplet: tuplet})
					if err != nil {
						t.Fatal(err)
					}
					sum += uint64(ev.Duration)
					exact := n * whole
					if sum*denom > exact || exact-sum*denom >= denom {
						t.Fatalf("bpm %d length %d tuplet %d: %d notes took %d samples, want %d/%d",
							bpm, length, tuplet, n, sum, exact, denom)
					}
				}
			}
		}
	}
}
