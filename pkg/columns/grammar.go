package columns

import (
	"fmt"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"github.com/bisegni/jsoncsv/pkg/header"
)

// AST for Participle Parser

type astSelection struct {
	All     bool         `parser:"  @'*'"`
	Columns []*astColumn `parser:"| @@ (',' @@)*"`
}

type astColumn struct {
	Name  string `parser:"(@Ident | @String)"`
	Alias string `parser:"('AS' (@Ident | @String))?"`
}

// Lexer definition
var (
	selectionLexer = lexer.MustSimple([]lexer.SimpleRule{
		{Name: "Keyword", Pattern: `(?i)\bAS\b`},
		{Name: "Ident", Pattern: `[a-zA-Z_][a-zA-Z0-9_.\-]*`},
		{Name: "String", Pattern: `'[^']*'|"[^"]*"`},
		{Name: "Punct", Pattern: `[,*]`},
		{Name: "Whitespace", Pattern: `\s+`},
	})

	selectionParser = participle.MustBuild[astSelection](
		participle.Lexer(selectionLexer),
		participle.Unquote("String"),
		participle.CaseInsensitive("Keyword"),
		participle.Elide("Whitespace"),
	)
)

// Column is one output column: the source field and its display name.
type Column struct {
	Name  string
	Alias string
}

// Label is the header text written for the column.
func (c Column) Label() string {
	if c.Alias != "" {
		return c.Alias
	}
	return c.Name
}

func (c Column) String() string {
	if c.Alias != "" && c.Alias != c.Name {
		return c.Name + " AS " + c.Alias
	}
	return c.Name
}

// Selection restricts and renames the reconciled header. A nil Selection or
// one built from "*" keeps every column.
type Selection struct {
	All     bool
	Columns []Column
}

// Parse reads a column list such as `id, name AS player, "creation date"`.
func Parse(input string) (*Selection, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, fmt.Errorf("empty column selection")
	}

	ast, err := selectionParser.ParseString("", input)
	if err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}

	sel := &Selection{All: ast.All}
	seen := make(map[string]bool, len(ast.Columns))
	for _, c := range ast.Columns {
		if seen[c.Name] {
			return nil, fmt.Errorf("column %q selected twice", c.Name)
		}
		seen[c.Name] = true
		sel.Columns = append(sel.Columns, Column{Name: c.Name, Alias: c.Alias})
	}
	return sel, nil
}

// Apply returns the header set rows are projected against and the labels of
// the header line. Selected columns missing from set still get a (empty)
// cell, so every row stays as wide as the header line.
func (s *Selection) Apply(set *header.Set) (*header.Set, []string) {
	if s == nil || s.All {
		return set, set.Names()
	}
	proj := header.NewSet()
	labels := make([]string, 0, len(s.Columns))
	for _, c := range s.Columns {
		proj.Add(c.Name)
		labels = append(labels, c.Label())
	}
	return proj.Freeze(), labels
}

func (s *Selection) String() string {
	if s == nil || s.All {
		return "*"
	}
	parts := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		parts[i] = c.String()
	}
	return strings.Join(parts, ", ")
}
