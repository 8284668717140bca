package projector

import (
	"fmt"
	"strings"

	"github.com/lxhmx/text2sql/pkg/sanitize"
)

// PreviewMaxRows bounds the textual preview handed to the answer-generation
// step, so prompt size stays flat regardless of result cardinality.
const PreviewMaxRows = 10

// EmptyPreview is the fixed sentinel used instead of rendering an empty table.
const EmptyPreview = "The query returned no rows."

// Table is the full, sanitized columnar view of a query result.
type Table struct {
	Columns  []string                 `json:"columns"`
	Rows     []map[string]interface{} `json:"rows"`
	RowCount int                      `json:"row_count"`
}

// Project turns a raw row set into the sanitized table representation plus a
// size-capped textual preview. Columns keep their first-seen order.
func Project(columns []string, rows []map[string]interface{}) (*Table, string) {
	sanitized := sanitize.Rows(rows)

	table := &Table{
		Columns:  columns,
		Rows:     sanitized,
		RowCount: len(sanitized),
	}

	return table, renderPreview(columns, sanitized)
}

func renderPreview(columns []string, rows []map[string]interface{}) string {
	if len(rows) == 0 {
		return EmptyPreview
	}

	previewRows := rows
	truncated := false
	if len(rows) > PreviewMaxRows {
		previewRows = rows[:PreviewMaxRows]
		truncated = true
	}

	// Column widths from header and cell content.
	widths := make([]int, len(columns))
	for i, col := range columns {
		widths[i] = len(col)
	}
	cells := make([][]string, len(previewRows))
	for r, row := range previewRows {
		cells[r] = make([]string, len(columns))
		for i, col := range columns {
			text := formatCell(row[col])
			cells[r][i] = text
			if len(text) > widths[i] {
				widths[i] = len(text)
			}
		}
	}

	var b strings.Builder
	writeLine := func(values []string) {
		b.WriteString("|")
		for i, v := range values {
			b.WriteString(" ")
			b.WriteString(v)
			b.WriteString(strings.Repeat(" ", widths[i]-len(v)))
			b.WriteString(" |")
		}
		b.WriteString("\n")
	}

	writeLine(columns)
	b.WriteString("|")
	for i := range columns {
		b.WriteString(strings.Repeat("-", widths[i]+2))
		b.WriteString("|")
	}
	b.WriteString("\n")
	for _, row := range cells {
		writeLine(row)
	}

	if truncated {
		b.WriteString(fmt.Sprintf("\n... %d rows total", len(rows)))
	}

	return strings.TrimRight(b.String(), "\n")
}

func formatCell(v interface{}) string {
	if v == nil {
		return "NULL"
	}
	return fmt.Sprintf("%v", v)
}
