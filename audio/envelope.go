package audio

type envelopeState int

const (
	stateInit envelopeState = iota
	stateAttack
	stateSustain
	stateRelease
)

// Envelope shapes every note of a channel with a linear attack and release,
// both in seconds. The release ends with the note.
type Envelope struct {
	Attack  float64
	Release float64
}

// Apply wraps gen so that its notes are shaped by the envelope.
func (e Envelope) Apply(gen Generator, rate int) Generator {
	return GeneratorFunc(func(n int, p Pitch) ([]float32, error) {
		buf, err := gen.Generate(n, p)
		if err != nil {
			return nil, err
		}
		attack, release := e.samples(len(buf), rate)
		var env envelope
		env.process(buf, attack, release)
		return buf, nil
	})
}

// samples converts the envelope to sample counts. Notes shorter than attack
// and release together get both phases shortened in proportion.
func (e Envelope) samples(n, rate int) (attack, release int) {
	a := e.Attack * float64(rate)
	r := e.Release * float64(rate)
	if a < 0 {
		a = 0
	}
	if r < 0 {
		r = 0
	}
	if total := a + r; total > float64(n) {
		a = a * float64(n) / total
		r = r * float64(n) / total
	}
	return int(a), int(r)
}

type envelope struct {
	attackRate  float64
	releaseRate float64

	val       float64
	remaining int // samples left in the current phase
	state     envelopeState
}

func (e *envelope) value() float64 {
	switch e.state {
	case stateInit:
		return 0.
	case stateAttack:
		e.remaining--
		e.val += e.attackRate
		if e.remaining <= 0 || e.val >= 1 {
			e.val = 1.0
			e.state = stateSustain
		}
	case stateSustain:
		e.val = 1.0
	case stateRelease:
		e.remaining--
		e.val -= e.releaseRate
		if e.remaining <= 0 || e.val <= 0 {
			e.val = 0
			e.state = stateInit
		}
	}
	return e.val
}

func (e *envelope) process(buf []float32, attack, release int) {
	e.startAttack(attack)
	releaseAt := len(buf) - release
	for n := range buf {
		if n == releaseAt {
			e.startRelease(release)
		}
		buf[n] *= float32(e.value())
	}
}

func (e *envelope) startAttack(samples int) {
	if samples <= 0 {
		e.val = 1
		e.state = stateSustain
		return
	}
	e.val = 0
	e.state = stateAttack
	e.remaining = samples
	e.attackRate = 1.0 / float64(samples)
}

func (e *envelope) startRelease(samples int) {
	if samples <= 0 {
		return
	}
	e.state = stateRelease
	e.remaining = samples
	e.releaseRate = e.val / float64(samples)
}
