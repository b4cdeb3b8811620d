package export

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/template"
)

type Column struct {
	Name  string
	Width int
}

// Table is a titled console table with an optional key/value summary
// block above the rows.
type Table struct {
	Title   string
	Summary map[string]string
	Columns []Column
	Rows    [][]any
}

type Reporter struct {
	writer io.Writer
}

func NewReporter(writer io.Writer) *Reporter {
	if writer == nil {
		writer = os.Stdout
	}
	return &Reporter{writer: writer}
}

func (c *Reporter) Handle(table *Table) error {
	funcMap := template.FuncMap{
		"formatRow": func(values []any) string {
			cells := make([]string, 0, len(table.Columns))
			for i, col := range table.Columns {
				var v any
				if i < len(values) {
					v = values[i]
				}
				cells = append(cells, fmt.Sprintf(" %-*v ", col.Width, v))
			}
			return "|" + strings.Join(cells, "|") + "|"
		},
		"header": func() []any {
			names := make([]any, 0, len(table.Columns))
			for _, col := range table.Columns {
				names = append(names, col.Name)
			}
			return names
		},
		"separator": func() string {
			parts := make([]string, 0, len(table.Columns))
			for _, col := range table.Columns {
				parts = append(parts, strings.Repeat("-", col.Width+2))
			}
			return "+" + strings.Join(parts, "+") + "+"
		},
	}

	tmpl := `
=== {{.Title}} ===
{{range $key, $value := .Summary}}
{{$key}}: {{$value}}
{{end}}
{{separator}}
{{formatRow header}}
{{separator}}
{{range .Rows}}{{formatRow .}}
{{end}}{{separator}}
`

	t, err := template.New("table").Funcs(funcMap).Parse(tmpl)
	if err != nil {
		return fmt.Errorf("failed to parse template: %w", err)
	}

	return t.Execute(c.writer, table)
}
