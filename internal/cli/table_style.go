package cli

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

// PlainTableWriter writes aligned columns without box-drawing
// characters, so response listings can be piped to grep, awk or cut.
// Widths are counted in runes; API payloads carry accented Portuguese text.
type PlainTableWriter struct {
	headers      []string
	rows         [][]string
	columnWidths []int
	// minPadding is the minimum space between columns
	minPadding  int
	showHeaders bool
	output      io.Writer
}

// NewPlainTableWriter creates a writer that shows headers by default.
func NewPlainTableWriter(output io.Writer) *PlainTableWriter {
	return &PlainTableWriter{
		headers:      []string{},
		rows:         [][]string{},
		columnWidths: []int{},
		minPadding:   3,
		showHeaders:  true,
		output:       output,
	}
}

// SetHeaders sets the column headers. Headers are displayed in uppercase.
func (w *PlainTableWriter) SetHeaders(headers []string) {
	w.headers = make([]string, len(headers))
	w.columnWidths = make([]int, len(headers))
	for i, h := range headers {
		upper := strings.ToUpper(h)
		w.headers[i] = upper
		w.columnWidths[i] = utf8.RuneCountInString(upper)
	}
}

// SetNoHeaders controls whether to suppress the header row.
func (w *PlainTableWriter) SetNoHeaders(noHeaders bool) {
	w.showHeaders = !noHeaders
}

// AppendRow adds a row. Missing cells are blank and extra cells are dropped.
func (w *PlainTableWriter) AppendRow(row []string) {
	normalizedRow := make([]string, len(w.headers))
	for i := range w.headers {
		if i >= len(row) {
			continue
		}
		normalizedRow[i] = row[i]
		if n := utf8.RuneCountInString(row[i]); n > w.columnWidths[i] {
			w.columnWidths[i] = n
		}
	}
	w.rows = append(w.rows, normalizedRow)
}

// Render writes the table. Nothing is written when there are no headers, or
// no rows with headers suppressed.
func (w *PlainTableWriter) Render() {
	if len(w.headers) == 0 {
		return
	}
	if len(w.rows) == 0 && !w.showHeaders {
		return
	}

	if w.showHeaders {
		w.printRow(w.headers)
	}
	for _, row := range w.rows {
		w.printRow(row)
	}
}

func (w *PlainTableWriter) printRow(row []string) {
	var sb strings.Builder
	for i, cell := range row {
		if i == len(row)-1 {
			sb.WriteString(cell)
			continue
		}
		// fmt pads by rune count, matching the widths above
		fmt.Fprintf(&sb, "%-*s", w.columnWidths[i]+w.minPadding, cell)
	}
	fmt.Fprintln(w.output, strings.TrimRight(sb.String(), " "))
}
