package dub

import "testing"

func TestLexer(t *testing.T) {
	type test struct {
		input  string
		expect []token
	}
	tests := []test{
		{
			input: "mute '* 2",
			expect: []token{
				{typ: typeIdentifier, text: "mute"},
				{typ: typeQuote, text: "'"},
				{typ: typeAsterisk, text: "*"},
				{typ: typeInt, text: "2"},
				{typ: typeEOF},
			},
		},
		{
			input: "bpm 140",
			expect: []token{
				{typ: typeIdentifier, text: "bpm"},
				{typ: typeInt, text: "140"},
				{typ: typeEOF},
			},
		},
		{
			input: "'1:2  \t 3,4",
			expect: []token{
				{typ: typeQuote, text: "'"},
				{typ: typeInt, text: "1"},
				{typ: typeColon, text: ":"},
				{typ: typeInt, text: "2"},
				{typ: typeInt, text: "3"},
				{typ: typeComma, text: ","},
				{typ: typeInt, text: "4"},
				{typ: typeEOF},
			},
		},
		{
			input: "1.0",
			expect: []token{
				{typ: typeFloat, text: "1.0"},
				{typ: typeEOF},
			},
		},
		{
			input: "-1.",
			expect: []token{
				{typ: typeFloat, text: "-1."},
				{typ: typeEOF},
			},
		},
		{
			input: "-.1",
			expect: []token{
				{typ: typeFloat, text: "-.1"},
				{typ: typeEOF},
			},
		},
		{
			input: `score lead-2 "$2 c'c (3 [ab])"`,
			expect: []token{
				{typ: typeIdentifier, text: "score"},
				{typ: typeIdentifier, text: "lead-2"},
				{typ: typeString, text: `"$2 c'c (3 [ab])"`},
				{typ: typeEOF},
			},
		},
		{
			input: `signal "a \"b\""`,
			expect: []token{
				{typ: typeIdentifier, text: "signal"},
				{typ: typeString, text: `"a \"b\""`},
				{typ: typeEOF},
			},
		},
	}
	for _, test := range tests {
		t.Log(test.input)
		tokens, err := lex(test.input)
		if err != nil {
			t.Errorf("unexpected lex error: %v", err)
			continue
		}
		if len(tokens) != len(test.expect) {
			t.Fatalf("token mismatch: \nwant: %+v, \ngot:  %+v", test.expect, tokens)
		}
		for i, got := range tokens {
			want := test.expect[i]
			if want.typ != got.typ {
				t.Errorf("wrong type: want %v, got %v", want, got)
			}
			if want.text != got.text {
				t.Errorf("wrong text: want %v, got %v", want, got)
			}
		}
	}
}

func TestLexerPositions(t *testing.T) {
	tokens, err := lex(`set  "ab"`)
	if err != nil {
		t.Fatal(err)
	}
	want := []int{0, 5, 9}
	for i, tok := range tokens {
		if tok.pos != want[i] {
			t.Errorf("wrong position for %q: want %d, got %d", tok.text, want[i], tok.pos)
		}
	}
}

func TestLexerErrors(t *testing.T) {
	for _, input := range []string{
		"a -",
		"a .-",
		`a "open`,
		`a "open\`,
		"a ; b",
		"a 1x",
	} {
		_, err := lex(input)
		if err == nil {
			t.Errorf("expected error for input: %q", input)
		}
	}
}
