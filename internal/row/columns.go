package row

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
)

// columnSet is the immutable column layout shared by every row a cursor
// produces and by their copies.
type columnSet struct {
	names []string

	// index maps a folded column name to the positions carrying it, in
	// column order. Position [0] is the leftmost match.
	index map[string][]int
}

func newColumnSet(names []string) *columnSet {
	cs := &columnSet{
		names: append([]string(nil), names...),
		index: make(map[string][]int, len(names)),
	}
	for i, name := range cs.names {
		key := FoldName(name)
		cs.index[key] = append(cs.index[key], i)
	}
	return cs
}

// position resolves name to its leftmost case-insensitive match.
// Every name-based read on a Row goes through here.
func (cs *columnSet) position(name string) (int, bool) {
	positions, ok := cs.index[FoldName(name)]
	if !ok {
		return -1, false
	}
	return positions[0], true
}

func (cs *columnSet) len() int { return len(cs.names) }

// slice returns the layout of columns [from, to).
func (cs *columnSet) slice(from, to int) *columnSet {
	return newColumnSet(cs.names[from:to])
}

// FoldName returns the key column names are compared by. Two names match
// when their folded forms are equal.
func FoldName(name string) string {
	if isASCII(name) {
		return strings.ToLower(name)
	}
	return cases.Fold().String(name)
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}
