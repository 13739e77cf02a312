package audio

import (
	"fmt"
	"sort"
)

var presets = map[string]Expression{
	"sine":     {Body: "sin(2*pi*f*t)"},
	"saw":      {Body: "2*mod(f*t, 1) - 1"},
	"square":   {Body: "signum(sin(2*pi*f*t))"},
	"triangle": {Body: "4*abs(mod(f*t, 1) - 0.5) - 1"},
	"fm": {
		Body: "sin(2*pi*f*t + depth*sin(2*pi*ratio*f*t))",
		Defs: []string{"depth = 2", "ratio = 3"},
	},
}

// LoadPreset returns the named signal expression.
func LoadPreset(name string) (Expression, error) {
	p, ok := presets[name]
	if !ok {
		return Expression{}, fmt.Errorf("unknown preset: %v", name)
	}
	return p, nil
}

// Presets returns the names of all presets in order.
func Presets() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
