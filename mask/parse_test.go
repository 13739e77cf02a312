package mask

import (
	"errors"
	"reflect"
	"testing"
)

const chromatic = "aAbcCdDefFgG"

func TestParse(t *testing.T) {
	type test struct {
		input string
		set   string
		want  []Atom
	}
	tests := []test{
		{
			input: "@4$4!100 a",
			set:   chromatic,
			want:  []Atom{Octave(4), Length(4), Volume(100), Note{Index: 0, Tuplet: 1}},
		},
		{
			input: "c . ~ > < ` ' ^ _",
			set:   chromatic,
			want: []Atom{
				Note{Index: 3, Tuplet: 1},
				Rest{Tuplet: 1},
				More{Tuplet: 1},
				OctaveIncr{},
				OctaveDecr{},
				LengthIncr{},
				LengthDecr{},
				VolumeIncr{},
				VolumeDecr{},
			},
		},
		{
			input: "(3 a (b)) [a [b c]]",
			set:   "abc",
			want: []Atom{
				Loop{Repeat: 3, Body: []Atom{
					Note{Index: 0, Tuplet: 1},
					Loop{Repeat: 2, Body: []Atom{Note{Index: 1, Tuplet: 1}}},
				}},
				Tuplet{Body: []Atom{
					Note{Index: 0, Tuplet: 1},
					Tuplet{Body: []Atom{
						Note{Index: 1, Tuplet: 1},
						Note{Index: 2, Tuplet: 1},
					}},
				}},
			},
		},
		{
			input: "()",
			set:   "a",
			want:  []Atom{Loop{Repeat: 2, Body: []Atom{}}},
		},
		{
			input: "  ",
			set:   "a",
			want:  []Atom{},
		},
	}

	for _, test := range tests {
		score, err := Parse(test.input, test.set)
		if err != nil {
			t.Fatalf("%q: %v", test.input, err)
		}
		if !reflect.DeepEqual(test.want, score.Atoms) {
			t.Errorf("%q: wrong atoms:\nwant: %+v\ngot:  %+v", test.input, test.want, score.Atoms)
		}
		if want, got := len([]rune(test.set)), score.Size(); want != got {
			t.Errorf("%q: want size %d, got %d", test.input, want, got)
		}
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		input string
		set   string
		want  ParseError
	}{
		{"$0", chromatic, ParseError{Msg: "length must be between 1 and 255, got 0", Line: 1, Col: 1}},
		{"a (b", chromatic, ParseError{Msg: "unterminated loop", Line: 1, Col: 3}},
		{"a\n [b (c)", chromatic, ParseError{Msg: "unterminated tuplet", Line: 2, Col: 2}},
		{"a b)", chromatic, ParseError{Msg: `unmatched ")"`, Line: 1, Col: 4}},
		{"(a]", chromatic, ParseError{Msg: `unexpected "]"`, Line: 1, Col: 3}},
		{"[@2 ^]", chromatic, ParseError{Msg: "tuplet has no notes", Line: 1, Col: 1}},
		{"[a []]", chromatic, ParseError{Msg: "tuplet has no notes", Line: 1, Col: 4}},
		{"a", "", ParseError{Msg: "empty note set", Line: 1, Col: 1}},
		{"a z", chromatic, ParseError{Msg: "unknown symbol 'z'", Line: 1, Col: 3}},
	}
	for _, test := range tests {
		_, err := Parse(test.input, test.set)
		var perr *ParseError
		if !errors.As(err, &perr) {
			t.Errorf("%q: expected a parse error, got %v", test.input, err)
			continue
		}
		if *perr != test.want {
			t.Errorf("%q: want %+v, got %+v", test.input, test.want, *perr)
		}
	}
}

func TestFormatRoundTrip(t *testing.T) {
	inputs := []string{
		"@4 $4 !100 a",
		"@1 $255 !0 c C . G",
		"(3 a (2 b)) [a [b c] .]",
		"(5 [a b] [c d e])",
		"(2) [(4 a)]",
	}
	for _, input := range inputs {
		score := MustParse(input, chromatic)
		if got := score.String(); got != input {
			t.Errorf("format: want %q, got %q", input, got)
		}
		again, err := Parse(score.String(), chromatic)
		if err != nil {
			t.Fatalf("%q: %v", input, err)
		}
		if !reflect.DeepEqual(score.Atoms, again.Atoms) {
			t.Errorf("%q: round trip changed atoms:\nwant: %+v\ngot:  %+v", input, score.Atoms, again.Atoms)
		}
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		score *Score
		ok    bool
	}{
		{&Score{Set: []rune("ab"), Atoms: []Atom{Note{Index: 1, Tuplet: 1}}}, true},
		{&Score{Set: []rune("ab"), Atoms: []Atom{Note{Index: 2, Tuplet: 1}}}, false},
		{&Score{Set: []rune("ab"), Atoms: []Atom{Length(0)}}, false},
		{&Score{Set: []rune("ab"), Atoms: []Atom{Loop{Repeat: 0}}}, false},
		{&Score{Set: []rune("ab"), Atoms: []Atom{Loop{Repeat: MaxRepeat}}}, true},
		{&Score{Set: []rune("ab"), Atoms: []Atom{Loop{Repeat: MaxRepeat + 1}}}, false},
		{&Score{Set: []rune("ab"), Atoms: []Atom{Rest{Tuplet: 0}}}, false},
		{&Score{Set: []rune("ab"), Atoms: []Atom{Tuplet{Body: []Atom{Volume(3)}}}}, false},
		{&Score{Atoms: []Atom{}}, false},
	}
	for i, test := range tests {
		err := test.score.Validate()
		if test.ok && err != nil {
			t.Errorf("%d: unexpected error: %v", i, err)
		}
		if !test.ok && err == nil {
			t.Errorf("%d: expected an error", i)
		}
	}
}
