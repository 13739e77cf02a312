package mask

// Iterator yields the primitive atoms of a score one at a time. Loops are
// expanded by repetition and tuplets by multiplying the divisor of every
// note, rest and tie in their body by the number of slots in it. Memory use
// is bounded by the nesting depth of the score, not by its expanded length.
type Iterator struct {
	stack []frame // innermost sequence on top
	err   error
}

// frame is a sequence being walked.
type frame struct {
	atoms  []Atom
	pos    int
	repeat int // remaining passes over atoms after the current one
	tuplet int // divisor applied to notes, rests and ties
}

// Flatten returns an iterator over atoms. It can be called any number of
// times on the same atoms.
func Flatten(atoms []Atom) *Iterator {
	return &Iterator{stack: []frame{{atoms: atoms, tuplet: 1}}}
}

// Next returns the next primitive atom. It returns false when the score is
// exhausted or an error occurred.
func (it *Iterator) Next() (Atom, bool) {
	for it.err == nil && len(it.stack) > 0 {
		top := &it.stack[len(it.stack)-1]
		if top.pos == len(top.atoms) {
			if top.repeat > 0 {
				top.repeat--
				top.pos = 0
			} else {
				it.stack = it.stack[:len(it.stack)-1]
			}
			continue
		}
		atom := top.atoms[top.pos]
		top.pos++
		tuplet := top.tuplet

		switch a := atom.(type) {
		case Loop:
			if a.Repeat > 0 && !empty(a.Body) {
				it.stack = append(it.stack, frame{atoms: a.Body, repeat: a.Repeat - 1, tuplet: tuplet})
			}
		case Tuplet:
			k := slots(a.Body)
			if k == 0 {
				it.err = ErrEmptyTuplet
				return nil, false
			}
			it.stack = append(it.stack, frame{atoms: a.Body, tuplet: satMul(tuplet, k)})
		case Note:
			a.Tuplet = satMul(a.Tuplet, tuplet)
			return a, true
		case Rest:
			a.Tuplet = satMul(a.Tuplet, tuplet)
			return a, true
		case More:
			a.Tuplet = satMul(a.Tuplet, tuplet)
			return a, true
		default:
			return a, true
		}
	}
	return nil, false
}

// Err returns the error that stopped the iteration, if any.
func (it *Iterator) Err() error {
	return it.err
}

// empty reports whether atoms holds no primitive atom at any depth.
func empty(atoms []Atom) bool {
	for _, atom := range atoms {
		switch a := atom.(type) {
		case Loop:
			if !empty(a.Body) {
				return false
			}
		case Tuplet:
			if !empty(a.Body) {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// Collect drains it into a slice.
func Collect(it *Iterator) ([]Atom, error) {
	var atoms []Atom
	for {
		a, ok := it.Next()
		if !ok {
			break
		}
		atoms = append(atoms, a)
	}
	return atoms, it.Err()
}
