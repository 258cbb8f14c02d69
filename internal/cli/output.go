package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"sigs.k8s.io/yaml"

	"github.com/Gustavo032/leankeep-api-guard/internal/domain"
	"github.com/Gustavo032/leankeep-api-guard/internal/redact"
	pkgstrings "github.com/Gustavo032/leankeep-api-guard/pkg/strings"
)

// OutputFormat selects how response bodies are written.
type OutputFormat string

const (
	// OutputFormatJSON writes indented JSON.
	OutputFormatJSON OutputFormat = "json"
	// OutputFormatYAML writes YAML converted from the JSON form.
	OutputFormatYAML OutputFormat = "yaml"
	// OutputFormatTable writes lists as aligned columns and objects as
	// FIELD/VALUE rows.
	OutputFormatTable OutputFormat = "table"
)

// ValidateOutputFormat reports an error for anything but table, json or yaml.
func ValidateOutputFormat(format string) error {
	switch OutputFormat(format) {
	case OutputFormatJSON, OutputFormatYAML, OutputFormatTable:
		return nil
	default:
		return fmt.Errorf("unsupported output format: %q (valid: table, json, yaml)", format)
	}
}

// listKeys are the envelope fields the API wraps lists in.
var listKeys = []string{"items", "data", "list", "result", "content"}

// Printer writes command results.
type Printer struct {
	Out       io.Writer
	Format    OutputFormat
	NoHeaders bool
	// Redact applies display redaction to bodies and hides the bearer token
	// in request panels and cURL exports.
	Redact bool
}

// PrintData writes v in the configured format. Bodies are redacted first
// when Redact is set.
func (p *Printer) PrintData(v any) error {
	if p.Redact {
		v = redact.Response(v)
	}

	switch p.Format {
	case OutputFormatYAML:
		return p.writeYAML(v)
	case OutputFormatTable:
		return p.writeTable(v)
	default:
		return p.writeJSON(v)
	}
}

// PrintRequest writes the request panel: method and URL, query, headers and
// the body that was sent.
func (p *Printer) PrintRequest(info domain.RequestInfo) error {
	fmt.Fprintf(p.Out, "%s %s\n", info.Method, info.URL)
	if qs := redact.DisplayQuery(info.Query); qs != "" {
		fmt.Fprintf(p.Out, "Query: %s\n", qs)
	}

	headers := info.DisplayHeaders(!p.Redact)
	names := make([]string, 0, len(headers))
	for k := range headers {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, k := range names {
		fmt.Fprintf(p.Out, "%s: %s\n", k, headers[k])
	}

	if info.Data != nil {
		fmt.Fprintln(p.Out)
		return p.writeJSON(info.Data)
	}
	return nil
}

// PrintCurl writes the cURL export of info.
func (p *Printer) PrintCurl(info domain.RequestInfo) {
	fmt.Fprintln(p.Out, info.Curl(!p.Redact))
}

// PrintResult writes the response status line and body of res.
func (p *Printer) PrintResult(res *domain.Result) error {
	if res == nil || res.Response == nil {
		return nil
	}
	if p.Format == OutputFormatTable {
		fmt.Fprintf(p.Out, "HTTP %d\n", res.Response.Status)
	}
	data := res.Response.Data()
	if data == nil {
		return nil
	}
	return p.PrintData(data)
}

func (p *Printer) writeJSON(v any) error {
	if s, ok := v.(string); ok {
		_, err := fmt.Fprintln(p.Out, s)
		return err
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	_, err := p.Out.Write(buf.Bytes())
	return err
}

func (p *Printer) writeYAML(v any) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	_, err = p.Out.Write(data)
	return err
}

func (p *Printer) writeTable(v any) error {
	switch t := v.(type) {
	case []any:
		p.renderList(t)
		return nil
	case map[string]any:
		if items, ok := envelopeList(t); ok {
			p.renderList(items)
			return nil
		}
		p.renderObject(t)
		return nil
	default:
		return p.writeJSON(v)
	}
}

// envelopeList finds a list wrapped in a single well-known field.
func envelopeList(obj map[string]any) ([]any, bool) {
	for _, k := range listKeys {
		if items, ok := obj[k].([]any); ok {
			return items, true
		}
	}
	return nil, false
}

func (p *Printer) renderList(items []any) {
	if len(items) == 0 {
		fmt.Fprintln(p.Out, "No items.")
		return
	}

	columns := listColumns(items)
	if len(columns) == 0 {
		tw := NewPlainTableWriter(p.Out)
		tw.SetHeaders([]string{"value"})
		tw.SetNoHeaders(p.NoHeaders)
		for _, item := range items {
			tw.AppendRow([]string{cellValue(item)})
		}
		tw.Render()
		return
	}

	tw := NewPlainTableWriter(p.Out)
	tw.SetHeaders(columns)
	tw.SetNoHeaders(p.NoHeaders)
	for _, item := range items {
		obj, _ := item.(map[string]any)
		row := make([]string, len(columns))
		for i, col := range columns {
			row[i] = cellValue(obj[col])
		}
		tw.AppendRow(row)
	}
	tw.Render()
}

func (p *Printer) renderObject(obj map[string]any) {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	tw := NewPlainTableWriter(p.Out)
	tw.SetHeaders([]string{"field", "value"})
	tw.SetNoHeaders(p.NoHeaders)
	for _, k := range keys {
		tw.AppendRow([]string{k, cellValue(obj[k])})
	}
	tw.Render()
}

// listColumns is the union of keys across items, with "id"
// first and the rest sorted.
func listColumns(items []any) []string {
	seen := map[string]bool{}
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		for k := range obj {
			seen[k] = true
		}
	}

	var columns []string
	for k := range seen {
		columns = append(columns, k)
	}
	sort.Slice(columns, func(i, j int) bool {
		ii, jj := isIDColumn(columns[i]), isIDColumn(columns[j])
		if ii != jj {
			return ii
		}
		return columns[i] < columns[j]
	})
	return columns
}

func isIDColumn(name string) bool {
	return strings.EqualFold(name, "id")
}

func cellValue(v any) string {
	switch t := v.(type) {
	case nil:
		return "-"
	case string:
		if t == "" {
			return "-"
		}
		return pkgstrings.Truncate(t, pkgstrings.DefaultCellMaxLen)
	case map[string]any, []any:
		data, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return pkgstrings.Truncate(string(data), pkgstrings.DefaultCellMaxLen)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}
