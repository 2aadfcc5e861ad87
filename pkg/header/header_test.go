package header

import (
	"strings"
	"testing"

	"github.com/bisegni/jsoncsv/pkg/parser"
)

type MockIterator struct {
	records []parser.Record
	index   int
}

func (it *MockIterator) HasNext() (bool, error) {
	return it.index < len(it.records), nil
}

func (it *MockIterator) Next() (parser.Record, error) {
	rec := it.records[it.index]
	it.index++
	return rec, nil
}

func rec(kv ...string) parser.Record {
	r := parser.Record{}
	for i := 0; i+1 < len(kv); i += 2 {
		r.Set(kv[i], kv[i+1])
	}
	return r
}

func TestReconcileFirstSeenOrder(t *testing.T) {
	it := &MockIterator{records: []parser.Record{
		rec("a", "1", "b", "2"),
		rec("c", "3", "a", "4"),
	}}

	set, n, err := Reconcile(it)
	if err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}
	if n != 2 {
		t.Errorf("Expected 2 records, got %d", n)
	}
	if got := strings.Join(set.Names(), ","); got != "a,b,c" {
		t.Errorf("Expected header a,b,c, got %s", got)
	}
	if !set.Frozen() {
		t.Error("Expected reconciled set to be frozen")
	}
}

func TestReconcileBounds(t *testing.T) {
	records := []parser.Record{
		rec("x", "1"),
		rec("y", "1", "z", "2", "x", "3"),
		rec("w", "1", "y", "2"),
	}
	set, _, err := Reconcile(&MockIterator{records: records})
	if err != nil {
		t.Fatal(err)
	}

	union := map[string]bool{}
	widest := 0
	for _, r := range records {
		if len(r) > widest {
			widest = len(r)
		}
		for _, f := range r {
			union[f.Name] = true
		}
	}
	if set.Len() < widest || set.Len() != len(union) {
		t.Errorf("Header size %d outside [%d, %d]", set.Len(), widest, len(union))
	}
}

func TestReconcileEmpty(t *testing.T) {
	set, n, err := Reconcile(&MockIterator{})
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 || set.Len() != 0 {
		t.Errorf("Expected empty header and no records, got %d names and %d records", set.Len(), n)
	}
}

func TestProject(t *testing.T) {
	set := NewSet("id", "name", "instrument").Freeze()

	tests := []struct {
		rec  parser.Record
		want string
	}{
		{rec("id", "1", "name", "Sam"), "1|Sam|"},
		{rec("id", "2", "instrument", "guitar"), "2||guitar"},
		{rec("instrument", "drums", "id", "3"), "3||drums"},
		{rec("other", "x"), "||"},
		{parser.Record{}, "||"},
	}

	for _, tt := range tests {
		cells := Project(tt.rec, set)
		if len(cells) != set.Len() {
			t.Fatalf("Expected %d cells, got %d", set.Len(), len(cells))
		}
		if got := strings.Join(cells, "|"); got != tt.want {
			t.Errorf("Project(%v) = %q, want %q", tt.rec, got, tt.want)
		}
	}
}

func TestProjectRoundTrip(t *testing.T) {
	records := []parser.Record{
		rec("b", "2", "a", "1"),
		rec("c", "3"),
		rec("a", "x", "c", "y", "d", "z"),
	}
	set, _, err := Reconcile(&MockIterator{records: records})
	if err != nil {
		t.Fatal(err)
	}
	for _, r := range records {
		cells := Project(r, set)
		for i, name := range set.Names() {
			v, ok := r.Get(name)
			if ok && cells[i] != v {
				t.Errorf("Cell %s: expected %v, got %q", name, v, cells[i])
			}
			if !ok && cells[i] != "" {
				t.Errorf("Cell %s: expected empty, got %q", name, cells[i])
			}
		}
	}
}

func TestFrozenSetPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("Expected Add on a frozen set to panic")
		}
	}()
	NewSet("a").Freeze().Add("b")
}
