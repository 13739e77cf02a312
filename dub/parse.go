package dub

import (
	"fmt"
	"strconv"
	"strings"
)

type Node interface {
	isNode()
}

func (Identifier) isNode() {}
func (Int) isNode()        {}
func (Float) isNode()      {}
func (String) isNode()     {}
func (Selector) isNode()   {}

type Command struct {
	Name Identifier
	Args []Node
}

type Identifier string
type Int int
type Float float64
type String string

func (s String) String() string { return string(s) }

func Parse(input string) (Command, error) {
	tokens, err := lex(input)
	if err != nil {
		return Command{}, err
	}
	p := parser{tokens: tokens}
	return p.parse()
}

type parser struct {
	pos    int
	tokens []token
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

func (p *parser) backup() {
	p.pos--
}

func (p *parser) parse() (Command, error) {
	var cmd Command
	token := p.next()
	if token.typ != typeIdentifier {
		return cmd, unexpected(token)
	}
	cmd.Name = Identifier(token.text)
	for token := p.next(); token.typ != typeEOF; token = p.next() {
		var arg Node
		switch token.typ {
		case typeIdentifier:
			arg = Identifier(token.text)
		case typeString:
			arg = String(unescape(token.text[1 : len(token.text)-1]))
		case typeFloat:
			f, err := strconv.ParseFloat(token.text, 64)
			if err != nil {
				return cmd, err
			}
			arg = Float(f)
		case typeInt:
			n, err := strconv.Atoi(token.text)
			if err != nil {
				return cmd, err
			}
			arg = Int(n)
		case typeQuote:
			sel, err := p.selector(p.next())
			if err != nil {
				return cmd, err
			}
			arg = sel
		default:
			return cmd, unexpected(token)
		}
		cmd.Args = append(cmd.Args, arg)
	}
	return cmd, nil
}

func (p *parser) selector(start token) (Selector, error) {
	switch start.typ {
	case typeAsterisk:
		return Selector{matchAll}, nil
	case typeInt:
		switch next := p.peek(); next.typ {
		case typeColon:
			p.next()
			first, err := strconv.Atoi(start.text)
			if err != nil {
				return Selector{}, err
			}
			t := p.next()
			if t.typ != typeInt {
				return Selector{}, unexpected(t)
			}
			last, err := strconv.Atoi(t.text)
			if err != nil {
				return Selector{}, err
			}
			return Selector{rangeMatch{start: first, end: last}}, nil
		default:
			list, err := p.listMatch(start)
			if err != nil {
				return Selector{}, err
			}
			return Selector{list}, nil
		}
	}
	return Selector{}, unexpected(start)
}

func (p *parser) listMatch(start token) (listMatch, error) {
	var list listMatch
	current := start
	for {
		switch current.typ {
		case typeInt:
			n, err := strconv.Atoi(current.text)
			if err != nil {
				return list, err
			}
			list = append(list, n)
			if p.peek().typ != typeComma {
				return list, nil
			}
		case typeComma:
			if p.peek().typ != typeInt {
				return list, unexpected(p.next())
			}
		default:
			return list, unexpected(current)
		}
		current = p.next()
	}
}

func unescape(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			i++
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

func unexpected(t token) error {
	if t.typ == typeEOF {
		return fmt.Errorf("unexpected end of input at position %d", t.pos)
	}
	return fmt.Errorf("unexpected token %q at position %d", t.text, t.pos)
}
