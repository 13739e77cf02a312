package dub

import (
	"fmt"
	"strconv"
	"strings"
)

// Selector picks channels by their 1-based position.
type Selector struct {
	matcher matcher
}

type matcher interface {
	match(i int) bool
}

type rangeMatch struct {
	start, end int
}

func (r rangeMatch) match(i int) bool {
	return (i >= r.start || r.start == -1) && (i <= r.end || r.end == -1)
}

var matchAll = rangeMatch{-1, -1}

type listMatch []int

func (l listMatch) match(i int) bool {
	for _, k := range l {
		if k == i {
			return true
		}
	}
	return false
}

// Match reports whether position i is selected.
func (s Selector) Match(i int) bool {
	return s.matcher != nil && s.matcher.match(i)
}

// Select returns the selected positions out of 1..n.
func (s Selector) Select(n int) ([]int, error) {
	var selected []int
	for i := 1; i <= n; i++ {
		if s.Match(i) {
			selected = append(selected, i)
		}
	}
	if len(selected) == 0 {
		return nil, fmt.Errorf("%v selects none of %d channels", s, n)
	}
	return selected, nil
}

func (s Selector) String() string {
	switch m := s.matcher.(type) {
	case rangeMatch:
		if m == matchAll {
			return "'*"
		}
		return fmt.Sprintf("'%d:%d", m.start, m.end)
	case listMatch:
		items := make([]string, len(m))
		for i, n := range m {
			items[i] = strconv.Itoa(n)
		}
		return "'" + strings.Join(items, ",")
	}
	return "'"
}
