package parser

import (
	"encoding/json"
)

// FieldStats counts how often a field appeared and with which JSON types.
type FieldStats struct {
	Name    string
	Present int
	Types   map[string]int
}

// Summary describes a whole array stream.
type Summary struct {
	Records int
	// Fields are in first-seen order.
	Fields []*FieldStats
}

// Summarize drains it and gathers per-field statistics without keeping any
// record around.
func Summarize(it *ObjectIterator) (*Summary, error) {
	s := &Summary{}
	index := make(map[string]*FieldStats)

	for {
		ok, err := it.HasNext()
		if err != nil {
			return s, err
		}
		if !ok {
			break
		}
		rec, err := it.Next()
		if err != nil {
			return s, err
		}
		s.Records++

		for _, f := range rec {
			fs, exists := index[f.Name]
			if !exists {
				fs = &FieldStats{Name: f.Name, Types: make(map[string]int)}
				index[f.Name] = fs
				s.Fields = append(s.Fields, fs)
			}
			fs.Present++
			fs.Types[TypeName(f.Value)]++
		}
	}
	return s, nil
}

// TypeName returns the JSON type name of a decoded value.
func TypeName(v interface{}) string {
	if v == nil {
		return "null"
	}

	switch v.(type) {
	case bool:
		return "boolean"
	case json.Number, float64, int, int64, float32:
		return "number"
	case string:
		return "string"
	case []interface{}:
		return "array"
	case Record, map[string]interface{}:
		return "object"
	default:
		return "unknown"
	}
}
