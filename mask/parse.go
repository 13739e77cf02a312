package mask

import (
	"errors"
	"fmt"
)

// ErrEmptyTuplet is returned for a tuplet without any note, rest or tie.
var ErrEmptyTuplet = errors.New("tuplet has no notes")

// ParseError locates a syntax error in a score.
type ParseError struct {
	Msg  string
	Line int
	Col  int
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%d:%d: %s", e.Line, e.Col, e.Msg)
}

func newParseError(lines []int, input string, offset int, msg string) *ParseError {
	line, col := position(lines, input, offset)
	return &ParseError{Msg: msg, Line: line, Col: col}
}

// Parse parses a score written with the symbols of set. A symbol's note index
// is its position in set.
func Parse(input, set string) (*Score, error) {
	symbols := []rune(set)
	if len(symbols) == 0 {
		return nil, &ParseError{Msg: "empty note set", Line: 1, Col: 1}
	}
	tokens, err := lex(input, symbols)
	if err != nil {
		return nil, err
	}
	p := parser{tokens: tokens, input: input, lines: lineStarts(input)}
	atoms, err := p.parse()
	if err != nil {
		return nil, err
	}
	return &Score{Set: symbols, Atoms: atoms}, nil
}

// MustParse is like Parse but panics on error.
func MustParse(input, set string) *Score {
	s, err := Parse(input, set)
	if err != nil {
		panic(err)
	}
	return s
}

type parser struct {
	pos    int
	depth  int // number of open loops and tuplets
	tokens []token
	input  string
	lines  []int
}

func (p *parser) next() token {
	t := p.tokens[p.pos]
	p.pos++
	return t
}

func (p *parser) peek() token {
	t := p.next()
	p.pos--
	return t
}

func (p *parser) parse() ([]Atom, error) {
	atoms, err := p.sequence()
	if err != nil {
		return nil, err
	}
	if t := p.next(); t.typ != typeEOF {
		return nil, p.unexpected(t)
	}
	return atoms, nil
}

// sequence parses atoms up to, but not including, a closing bracket or the end
// of input.
func (p *parser) sequence() ([]Atom, error) {
	atoms := []Atom{}
	for {
		t := p.peek()
		switch t.typ {
		case typeEOF, typeLoopClose, typeTupletClose:
			return atoms, nil
		}
		p.next()

		var atom Atom
		switch t.typ {
		case typeNote:
			atom = Note{Index: t.val, Tuplet: 1}
		case typeOctave:
			atom = Octave(t.val)
		case typeLength:
			atom = Length(t.val)
		case typeVolume:
			atom = Volume(t.val)
		case typeRest:
			atom = Rest{Tuplet: 1}
		case typeMore:
			atom = More{Tuplet: 1}
		case typeOctaveIncr:
			atom = OctaveIncr{}
		case typeOctaveDecr:
			atom = OctaveDecr{}
		case typeLengthIncr:
			atom = LengthIncr{}
		case typeLengthDecr:
			atom = LengthDecr{}
		case typeVolumeIncr:
			atom = VolumeIncr{}
		case typeVolumeDecr:
			atom = VolumeDecr{}
		case typeLoopOpen:
			body, err := p.group(t, typeLoopClose, "loop")
			if err != nil {
				return nil, err
			}
			atom = Loop{Repeat: t.val, Body: body}
		case typeTupletOpen:
			body, err := p.group(t, typeTupletClose, "tuplet")
			if err != nil {
				return nil, err
			}
			if slots(body) == 0 {
				return nil, p.errorAt(t, ErrEmptyTuplet.Error())
			}
			atom = Tuplet{Body: body}
		default:
			return nil, p.unexpected(t)
		}
		atoms = append(atoms, atom)
	}
}

// group parses the body of a bracketed container opened by open.
func (p *parser) group(open token, close tokenType, name string) ([]Atom, error) {
	p.depth++
	body, err := p.sequence()
	if err != nil {
		return nil, err
	}
	switch t := p.next(); t.typ {
	case close:
		p.depth--
		return body, nil
	case typeEOF:
		return nil, p.errorAt(open, fmt.Sprintf("unterminated %s", name))
	default:
		return nil, p.unexpected(t)
	}
}

func (p *parser) errorAt(t token, msg string) error {
	return newParseError(p.lines, p.input, t.pos, msg)
}

func (p *parser) unexpected(t token) error {
	if p.depth == 0 && (t.typ == typeLoopClose || t.typ == typeTupletClose) {
		return p.errorAt(t, fmt.Sprintf("unmatched %q", t.text))
	}
	return p.errorAt(t, fmt.Sprintf("unexpected %q", t.text))
}
