package header

import (
	"github.com/bisegni/jsoncsv/pkg/parser"
)

// Iterator is the pull contract Reconcile and the row projection drain.
type Iterator interface {
	HasNext() (bool, error)
	Next() (parser.Record, error)
}

// Set is an insertion-ordered set of field names. Order is first-seen order
// across the whole stream, never sorted.
type Set struct {
	names  []string
	index  map[string]int
	frozen bool
}

// NewSet creates a set seeded with names, duplicates dropped.
func NewSet(names ...string) *Set {
	s := &Set{index: make(map[string]int, len(names))}
	for _, n := range names {
		s.Add(n)
	}
	return s
}

// Add appends name if it has not been seen. Adding to a frozen set panics.
func (s *Set) Add(name string) bool {
	if s.frozen {
		panic("header: Add on frozen set")
	}
	if _, ok := s.index[name]; ok {
		return false
	}
	s.index[name] = len(s.names)
	s.names = append(s.names, name)
	return true
}

// Freeze makes the set immutable.
func (s *Set) Freeze() *Set {
	s.frozen = true
	return s
}

// Frozen reports whether Freeze has been called.
func (s *Set) Frozen() bool { return s.frozen }

// Len returns the number of names.
func (s *Set) Len() int { return len(s.names) }

// Index returns the column position of name, or -1.
func (s *Set) Index(name string) int {
	if i, ok := s.index[name]; ok {
		return i
	}
	return -1
}

// Names returns a copy of the names in order.
func (s *Set) Names() []string {
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}

// Reconcile drains it and returns the frozen union of all field names along
// with the number of records seen.
func Reconcile(it Iterator) (*Set, int, error) {
	set := NewSet()
	count := 0
	for {
		ok, err := it.HasNext()
		if err != nil {
			return nil, count, err
		}
		if !ok {
			break
		}
		rec, err := it.Next()
		if err != nil {
			return nil, count, err
		}
		count++
		for _, f := range rec {
			set.Add(f.Name)
		}
	}
	return set.Freeze(), count, nil
}

// Project lays out rec against set: one cell per header name, empty when the
// record does not carry the field. Fields outside the set are ignored.
func Project(rec parser.Record, set *Set) []string {
	cells := make([]string, set.Len())
	for _, f := range rec {
		if i := set.Index(f.Name); i >= 0 {
			cells[i] = parser.Cell(f.Value)
		}
	}
	return cells
}
