package audio

import (
	"fmt"
	"io"
	"math"
	"os"

	"github.com/youpy/go-wav"
)

// Sound is a mono recording loaded into memory.
type Sound struct {
	buf  []float64
	rate int
	file string
}

// NewSound wraps samples recorded at rate.
func NewSound(samples []float64, rate int) *Sound {
	return &Sound{buf: samples, rate: rate}
}

func (s *Sound) Len() int  { return len(s.buf) }
func (s *Sound) Rate() int { return s.rate }

// LoadSound reads a WAV file. Multi channel files are mixed down to mono.
func LoadSound(file string) (*Sound, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := wav.NewReader(f)
	format, err := r.Format()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", file, err)
	}
	if format.NumChannels == 0 {
		return nil, fmt.Errorf("%s: no channels", file)
	}
	snd := Sound{file: file, rate: int(format.SampleRate)}
	for {
		samples, err := r.ReadSamples()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", file, err)
		}
		for _, sample := range samples {
			var sum float64
			for ch := uint(0); ch < uint(format.NumChannels); ch++ {
				sum += r.FloatValue(sample, ch)
			}
			snd.buf = append(snd.buf, sum/float64(format.NumChannels))
		}
	}
	return &snd, nil
}

// Sample is an instrument that plays a sound, pitched by resampling. Root is
// the frequency the sound was recorded at; when zero the frequency of the
// first note of the default octave is used.
type Sample struct {
	Sound *Sound
	Root  float64
	Loop  bool
}

func (s *Sample) NewGenerator(t Tuning) (Generator, error) {
	if s.Sound == nil || s.Sound.Len() == 0 {
		return nil, fmt.Errorf("sampler: empty sound")
	}
	root := s.Root
	if root <= 0 {
		root = t.Frequency(Pitch{Octave: DefaultOctave})
	}
	return &samplerVoice{sound: s.Sound, root: root, loop: s.Loop, tuning: t}, nil
}

type samplerVoice struct {
	sound  *Sound
	root   float64
	loop   bool
	tuning Tuning
}

// Generate resamples the sound with linear interpolation. Unless the voice
// loops, the note is padded with silence once the sound runs out.
func (v *samplerVoice) Generate(n int, p Pitch) ([]float32, error) {
	buf := make([]float32, n)
	src := v.sound.buf
	step := v.tuning.Frequency(p) / v.root * float64(v.sound.rate) / float64(v.tuning.Rate)
	level := gain(p.Volume)
	length := float64(len(src))

	var pos float64
	for i := range buf {
		if pos >= length {
			if !v.loop {
				break
			}
			pos = math.Mod(pos, length)
		}
		idx := int(pos)
		frac := pos - float64(idx)
		a := src[idx]
		var b float64
		if idx+1 < len(src) {
			b = src[idx+1]
		} else if v.loop {
			b = src[0]
		}
		buf[i] = float32((a + (b-a)*frac) * level)
		pos += step
	}
	return buf, nil
}
