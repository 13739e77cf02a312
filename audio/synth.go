package audio

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// Expression is an instrument defined by a formula of the time t in seconds
// and the frequency f in Hz. Defs are "name = expr" variables or
// "name(x) = expr" functions, in order. Each can use the ones before it and
// all of them can be used in Body.
type Expression struct {
	Body string
	Defs []string
}

func (e Expression) String() string {
	return strings.Join(append(append([]string{}, e.Defs...), e.Body), "; ")
}

var mathFuncs = map[string]func(float64) float64{
	"sin":  math.Sin,
	"cos":  math.Cos,
	"tan":  math.Tan,
	"asin": math.Asin,
	"acos": math.Acos,
	"atan": math.Atan,
	"sqrt": math.Sqrt,
	"exp":  math.Exp,
	"ln":   math.Log,
	"log":  math.Log10,
	"signum": func(x float64) float64 {
		switch {
		case x > 0:
			return 1
		case x < 0:
			return -1
		}
		return 0
	},
}

func toFloat(v interface{}) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	case float32:
		return float64(n), nil
	case int64:
		return float64(n), nil
	default:
		return 0, fmt.Errorf("not a number: %v", v)
	}
}

func options(env map[string]interface{}) []expr.Option {
	opts := []expr.Option{expr.Env(env), expr.AsFloat64()}
	for name, fn := range mathFuncs {
		name, fn := name, fn
		opts = append(opts, expr.Function(name, func(params ...interface{}) (interface{}, error) {
			if len(params) != 1 {
				return nil, fmt.Errorf("%s: want 1 argument, got %d", name, len(params))
			}
			x, err := toFloat(params[0])
			if err != nil {
				return nil, fmt.Errorf("%s: %w", name, err)
			}
			return fn(x), nil
		}))
	}
	opts = append(opts, expr.Function("mod", func(params ...interface{}) (interface{}, error) {
		if len(params) != 2 {
			return nil, fmt.Errorf("mod: want 2 arguments, got %d", len(params))
		}
		x, err := toFloat(params[0])
		if err != nil {
			return nil, err
		}
		y, err := toFloat(params[1])
		if err != nil {
			return nil, err
		}
		m := math.Mod(x, y)
		if m < 0 {
			m += y
		}
		return m, nil
	}))
	return opts
}

var (
	identPattern = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]*`)
	defPattern   = regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_]*)\s*(\(([^()]*)\))?$`)
)

// function is a definition like "f(x) = 2*x". Calls are replaced by the body
// with the parameters substituted, since let can only bind values.
type function struct {
	params []string
	body   string
}

// source turns variable definitions into let bindings in front of the body
// and inlines calls to defined functions.
func (e Expression) source() (string, error) {
	funcs := make(map[string]function)
	var b strings.Builder
	for _, def := range e.Defs {
		lhs, value, ok := strings.Cut(def, "=")
		value = strings.TrimSpace(value)
		m := defPattern.FindStringSubmatch(strings.TrimSpace(lhs))
		if !ok || m == nil || value == "" {
			return "", fmt.Errorf("invalid definition %q: want name = expression or name(x) = expression", def)
		}
		value, err := inline(value, funcs)
		if err != nil {
			return "", fmt.Errorf("definition %q: %w", def, err)
		}
		if m[2] == "" {
			fmt.Fprintf(&b, "let %s = %s; ", m[1], value)
			continue
		}
		var params []string
		if strings.TrimSpace(m[3]) != "" {
			for _, p := range strings.Split(m[3], ",") {
				p = strings.TrimSpace(p)
				if p == "" || identPattern.FindString(p) != p {
					return "", fmt.Errorf("invalid definition %q: bad parameter %q", def, p)
				}
				params = append(params, p)
			}
		}
		funcs[m[1]] = function{params: params, body: value}
	}
	body, err := inline(e.Body, funcs)
	if err != nil {
		return "", err
	}
	b.WriteString(body)
	return b.String(), nil
}

// inline replaces calls to funcs in src. A name that is not followed by an
// argument list is left alone, so a function f does not hide the frequency.
func inline(src string, funcs map[string]function) (string, error) {
	if len(funcs) == 0 {
		return src, nil
	}
	var b strings.Builder
	i := 0
	for i < len(src) {
		loc := identPattern.FindStringIndex(src[i:])
		if loc == nil {
			break
		}
		start, end := i+loc[0], i+loc[1]
		name := src[start:end]
		open := end
		for open < len(src) && src[open] == ' ' {
			open++
		}
		fn, ok := funcs[name]
		if !ok || open == len(src) || src[open] != '(' || inNumber(src, start) {
			b.WriteString(src[i:end])
			i = end
			continue
		}
		args, rparen, err := callArgs(src, open)
		if err != nil {
			return "", fmt.Errorf("%s: %w", name, err)
		}
		if len(args) != len(fn.params) {
			return "", fmt.Errorf("%s: want %d arguments, got %d", name, len(fn.params), len(args))
		}
		for j := range args {
			if args[j], err = inline(args[j], funcs); err != nil {
				return "", err
			}
		}
		b.WriteString(src[i:start])
		b.WriteString("(" + substitute(fn, args) + ")")
		i = rparen + 1
	}
	b.WriteString(src[i:])
	return b.String(), nil
}

// inNumber reports whether the identifier at start is part of a number like
// 1e5 or a member like x.y.
func inNumber(src string, start int) bool {
	if start == 0 {
		return false
	}
	c := src[start-1]
	return c == '.' || c >= '0' && c <= '9'
}

// callArgs splits the argument list that opens at src[open] and returns the
// position of the closing parenthesis.
func callArgs(src string, open int) ([]string, int, error) {
	var args []string
	depth, from := 0, open+1
	for i := open; i < len(src); i++ {
		switch src[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				last := src[from:i]
				if len(args) > 0 || strings.TrimSpace(last) != "" {
					args = append(args, last)
				}
				return args, i, nil
			}
		case ',':
			if depth == 1 {
				args = append(args, src[from:i])
				from = i + 1
			}
		}
	}
	return nil, 0, fmt.Errorf("unbalanced parentheses")
}

func substitute(fn function, args []string) string {
	var b strings.Builder
	i := 0
	for _, loc := range identPattern.FindAllStringIndex(fn.body, -1) {
		name := fn.body[loc[0]:loc[1]]
		for j, p := range fn.params {
			if p == name && !inNumber(fn.body, loc[0]) {
				b.WriteString(fn.body[i:loc[0]])
				b.WriteString("(" + strings.TrimSpace(args[j]) + ")")
				i = loc[1]
				break
			}
		}
	}
	b.WriteString(fn.body[i:])
	return b.String()
}

// Check compiles the expression without rendering anything.
func (e Expression) Check() error {
	_, err := e.NewGenerator(Tuning{Size: 12, Reference: 440, Rate: DefaultRate})
	return err
}

func (e Expression) NewGenerator(t Tuning) (Generator, error) {
	if strings.TrimSpace(e.Body) == "" {
		return nil, fmt.Errorf("empty signal")
	}
	src, err := e.source()
	if err != nil {
		return nil, err
	}
	s := &synth{
		tuning: t,
		env: map[string]interface{}{
			"t":  0.0,
			"f":  0.0,
			"pi": math.Pi,
			"e":  math.E,
		},
	}
	program, err := expr.Compile(src, options(s.env)...)
	if err != nil {
		return nil, fmt.Errorf("signal %q: %w", e.Body, err)
	}
	s.program = program
	return s, nil
}

type synth struct {
	tuning  Tuning
	program *vm.Program
	vm      vm.VM
	env     map[string]interface{}
}

func (s *synth) Generate(n int, p Pitch) ([]float32, error) {
	buf := make([]float32, n)
	s.env["f"] = s.tuning.Frequency(p)
	level := gain(p.Volume)
	rate := float64(s.tuning.Rate)
	for i := range buf {
		s.env["t"] = float64(i+1) / rate
		out, err := s.vm.Run(s.program, s.env)
		if err != nil {
			return nil, err
		}
		v, ok := out.(float64)
		if !ok {
			return nil, fmt.Errorf("signal returned %T, want a number", out)
		}
		buf[i] = float32(v * level)
	}
	return buf, nil
}
