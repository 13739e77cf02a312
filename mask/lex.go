package mask

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

type tokenType int

const (
	typeUnknown tokenType = iota
	typeNote
	typeOctave
	typeLength
	typeVolume
	typeRest
	typeMore
	typeOctaveIncr
	typeOctaveDecr
	typeLengthIncr
	typeLengthDecr
	typeVolumeIncr
	typeVolumeDecr
	typeLoopOpen
	typeLoopClose
	typeTupletOpen
	typeTupletClose
	typeEOF
)

const eof = -1

const (
	symOctave      = '@'
	symLength      = '$'
	symVolume      = '!'
	symRest        = '.'
	symMore        = '~'
	symOctaveIncr  = '>'
	symOctaveDecr  = '<'
	symLengthIncr  = '`'
	symLengthDecr  = '\''
	symVolumeIncr  = '^'
	symVolumeDecr  = '_'
	symLoopOpen    = '('
	symLoopClose   = ')'
	symTupletOpen  = '['
	symTupletClose = ']'
)

var simpleTokens = map[rune]tokenType{
	symRest:        typeRest,
	symMore:        typeMore,
	symOctaveIncr:  typeOctaveIncr,
	symOctaveDecr:  typeOctaveDecr,
	symLengthIncr:  typeLengthIncr,
	symLengthDecr:  typeLengthDecr,
	symVolumeIncr:  typeVolumeIncr,
	symVolumeDecr:  typeVolumeDecr,
	symLoopClose:   typeLoopClose,
	symTupletOpen:  typeTupletOpen,
	symTupletClose: typeTupletClose,
}

// numberTokens are a prefix followed by a decimal argument.
var numberTokens = map[rune]struct {
	typ      tokenType
	name     string
	min, max int
}{
	symOctave: {typeOctave, "octave", 1, MaxOctave},
	symLength: {typeLength, "length", 1, MaxLength},
	symVolume: {typeVolume, "volume", 0, MaxVolume},
}

type token struct {
	typ  tokenType
	pos  int // byte offset of the first character
	text string
	val  int // note index, numeric argument or loop count
}

func lex(input string, set []rune) ([]token, error) {
	l := &lexer{
		input: input,
		notes: make(map[rune]int, len(set)),
		lines: lineStarts(input),
	}
	for i, r := range set {
		// the first occurrence of a duplicated symbol wins
		if _, ok := l.notes[r]; !ok {
			l.notes[r] = i
		}
	}
	return l.lex()
}

type lexer struct {
	input string
	notes map[rune]int
	lines []int

	width int
	start int
	pos   int

	tokens []token
	err    error
}

func (l *lexer) lex() ([]token, error) {
	for {
		switch r := l.next(); {
		case r == eof:
			l.yieldToken(typeEOF, 0)
			return l.tokens, l.err
		case unicode.IsSpace(r):
			l.ignoreSpace()
		case l.isNote(r):
			l.yieldToken(typeNote, l.notes[r])
		case r == symLoopOpen:
			l.lexLoopOpen()
		default:
			if _, ok := numberTokens[r]; ok {
				l.lexNumber(r)
			} else if typ, ok := simpleTokens[r]; ok {
				l.yieldToken(typ, 0)
			} else {
				l.invalidChar(r)
			}
		}
		if l.err != nil {
			return l.tokens, l.err
		}
	}
}

func (l *lexer) next() rune {
	if len(l.input) == l.pos {
		l.width = 0
		return eof
	}
	r, w := utf8.DecodeRuneInString(l.input[l.pos:])
	l.width = w
	l.pos += l.width
	return r
}

func (l *lexer) peek() rune {
	r := l.next()
	l.backup()
	return r
}

func (l *lexer) backup() {
	l.pos -= l.width
}

func (l *lexer) isNote(r rune) bool {
	_, ok := l.notes[r]
	return ok
}

func (l *lexer) yieldToken(t tokenType, val int) {
	s := l.input[l.start:l.pos]
	l.tokens = append(l.tokens, token{typ: t, pos: l.start, text: s, val: val})
	l.start = l.pos
	l.width = 0
}

func (l *lexer) errorf(offset int, format string, args ...interface{}) {
	l.err = newParseError(l.lines, l.input, offset, fmt.Sprintf(format, args...))
}

func (l *lexer) invalidChar(r rune) {
	l.errorf(l.start, "unknown symbol %q", r)
}

func (l *lexer) ignoreSpace() {
	for unicode.IsSpace(l.peek()) {
		l.next()
	}
	l.start = l.pos
}

func (l *lexer) take(set string) int {
	var n int
	for strings.IndexRune(set, l.next()) >= 0 {
		n++
	}
	l.backup()
	return n
}

const digits = "0123456789"

// lexNumber reads the decimal argument of an octave, length or volume token.
// The prefix has already been consumed.
func (l *lexer) lexNumber(prefix rune) {
	num := numberTokens[prefix]
	if l.take(digits) == 0 {
		l.errorf(l.start, "expected a %s number after %q", num.name, prefix)
		return
	}
	text := l.input[l.start+utf8.RuneLen(prefix) : l.pos]
	n, err := strconv.Atoi(text)
	if err != nil || n < num.min || n > num.max {
		l.errorf(l.start, "%s must be between %d and %d, got %s", num.name, num.min, num.max, text)
		return
	}
	l.yieldToken(num.typ, n)
}

// lexLoopOpen reads an opening loop bracket and its optional repeat count.
func (l *lexer) lexLoopOpen() {
	if l.take(digits) == 0 {
		l.yieldToken(typeLoopOpen, DefaultRepeat)
		return
	}
	text := l.input[l.start+1 : l.pos]
	n, err := strconv.Atoi(text)
	if err != nil || n < 1 || n > MaxRepeat {
		l.errorf(l.start, "loop repeat count must be between 1 and %d, got %s", MaxRepeat, text)
		return
	}
	l.yieldToken(typeLoopOpen, n)
}

// lineStarts returns the byte offset of every line in input.
func lineStarts(input string) []int {
	starts := []int{0}
	for i := 0; i < len(input); i++ {
		if input[i] == '\n' {
			starts = append(starts, i+1)
		}
	}
	return starts
}

// position converts a byte offset into a 1-based line and column. Columns
// count runes, not bytes.
func position(lines []int, input string, offset int) (line, col int) {
	i := sort.Search(len(lines), func(i int) bool { return lines[i] > offset }) - 1
	if i < 0 {
		i = 0
	}
	if offset > len(input) {
		offset = len(input)
	}
	return i + 1, utf8.RuneCountInString(input[lines[i]:offset]) + 1
}
