package audio

import "math"

// Pitch is everything a generator needs to know about a note.
type Pitch struct {
	Index  int // index into the note set
	Octave int // zero based
	Volume int // 0 to 255, 100 is unity
}

// Generator renders a single note of n samples.
type Generator interface {
	Generate(n int, p Pitch) ([]float32, error)
}

type GeneratorFunc func(n int, p Pitch) ([]float32, error)

func (f GeneratorFunc) Generate(n int, p Pitch) ([]float32, error) { return f(n, p) }

// Tuning maps pitches to frequencies. Size is the number of notes in an
// octave and Reference the tuning frequency in Hz.
type Tuning struct {
	Size      int
	Reference float64
	Rate      int
}

// Frequency returns the frequency of p in Hz. Octaves are divided into Size
// equal steps.
func (t Tuning) Frequency(p Pitch) float64 {
	return Frequency(t.Reference, t.Size, p.Octave, p.Index)
}

func Frequency(reference float64, size, octave, index int) float64 {
	step := float64(size*octave+index) / float64(size)
	return reference / 16 * math.Pow(2, step)
}

// Instrument creates generators. A generator is used by a single channel and
// need not be safe for concurrent use.
type Instrument interface {
	NewGenerator(t Tuning) (Generator, error)
}

func gain(volume int) float64 {
	return float64(volume) / 100
}
