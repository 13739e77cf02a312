package mask

import (
	"fmt"
	"math"
)

// Atom is a single element of a parsed score. Loop and Tuplet are containers,
// every other atom is primitive.
type Atom interface {
	isAtom()
}

func (Octave) isAtom()     {}
func (Length) isAtom()     {}
func (Volume) isAtom()     {}
func (Note) isAtom()       {}
func (Rest) isAtom()       {}
func (More) isAtom()       {}
func (OctaveIncr) isAtom() {}
func (OctaveDecr) isAtom() {}
func (LengthIncr) isAtom() {}
func (LengthDecr) isAtom() {}
func (VolumeIncr) isAtom() {}
func (VolumeDecr) isAtom() {}
func (Loop) isAtom()       {}
func (Tuplet) isAtom()     {}

// Octave sets the octave. The value is the one written in the score (1 based).
type Octave int

// Length sets the note value as a divisor of a whole note: 4 is a quarter note.
type Length int

// Volume sets the volume, 0 to 255.
type Volume int

// Note is a pitched event. Index points into the note set of the score.
type Note struct {
	Index  int
	Tuplet int // duration divisor, 1 outside of tuplets
}

// Rest is a silent event.
type Rest struct {
	Tuplet int
}

// More extends the previous event by one slot without a new onset.
type More struct {
	Tuplet int
}

type (
	OctaveIncr struct{}
	OctaveDecr struct{}
	LengthIncr struct{}
	LengthDecr struct{}
	VolumeIncr struct{}
	VolumeDecr struct{}
)

// Loop repeats Body Repeat times.
type Loop struct {
	Repeat int
	Body   []Atom
}

// Tuplet squeezes Body into the duration of a single slot.
type Tuplet struct {
	Body []Atom
}

const (
	DefaultRepeat = 2
	MaxRepeat     = 65535
	MaxOctave     = 255
	MaxLength     = 255
	MaxVolume     = 255
)

// Score is a parsed mask together with the note set it was parsed against.
type Score struct {
	Set   []rune
	Atoms []Atom
}

// Size is the number of divisions of an octave.
func (s *Score) Size() int {
	return len(s.Set)
}

// Flatten returns an iterator over the primitive atoms of the score.
func (s *Score) Flatten() *Iterator {
	return Flatten(s.Atoms)
}

func (s *Score) String() string {
	return Format(s.Atoms, s.Set)
}

// Validate checks a score that was not produced by Parse.
func (s *Score) Validate() error {
	if len(s.Set) == 0 {
		return fmt.Errorf("empty note set")
	}
	return validate(s.Atoms, len(s.Set))
}

func validate(atoms []Atom, size int) error {
	for _, atom := range atoms {
		switch a := atom.(type) {
		case Octave:
			if a < 1 || a > MaxOctave {
				return fmt.Errorf("octave out of range: %d", a)
			}
		case Length:
			if a < 1 || a > MaxLength {
				return fmt.Errorf("length out of range: %d", a)
			}
		case Volume:
			if a < 0 || a > MaxVolume {
				return fmt.Errorf("volume out of range: %d", a)
			}
		case Note:
			if a.Index < 0 || a.Index >= size {
				return fmt.Errorf("note index %d out of range for a set of %d notes", a.Index, size)
			}
			if a.Tuplet < 1 {
				return fmt.Errorf("note with tuplet divisor %d", a.Tuplet)
			}
		case Rest:
			if a.Tuplet < 1 {
				return fmt.Errorf("rest with tuplet divisor %d", a.Tuplet)
			}
		case More:
			if a.Tuplet < 1 {
				return fmt.Errorf("tie with tuplet divisor %d", a.Tuplet)
			}
		case Loop:
			if a.Repeat < 1 || a.Repeat > MaxRepeat {
				return fmt.Errorf("loop repeated %d times", a.Repeat)
			}
			if err := validate(a.Body, size); err != nil {
				return err
			}
		case Tuplet:
			if slots(a.Body) == 0 {
				return ErrEmptyTuplet
			}
			if err := validate(a.Body, size); err != nil {
				return err
			}
		}
	}
	return nil
}

// slots counts the time slots of a sequence. A nested tuplet takes one slot.
func slots(atoms []Atom) int {
	var n int
	for _, atom := range atoms {
		switch a := atom.(type) {
		case Note, Rest, More:
			n++
		case Tuplet:
			if slots(a.Body) > 0 {
				n++
			}
		case Loop:
			n += satMul(a.Repeat, slots(a.Body))
			if n < 0 {
				n = math.MaxInt
			}
		}
	}
	return n
}

// satMul multiplies two non-negative ints, saturating at math.MaxInt.
func satMul(a, b int) int {
	if a == 0 || b == 0 {
		return 0
	}
	if a > math.MaxInt/b {
		return math.MaxInt
	}
	return a * b
}
