package normalize

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// Row is one raw input row: field values keyed by canonicalized
// (lowercased, trimmed) header name, plus the 1-based data row index used
// in error reports.
type Row struct {
	Index  int
	Fields map[string]string
}

// Lookup returns the first non-empty value among the given header aliases.
func (r Row) Lookup(aliases ...string) string {
	for _, alias := range aliases {
		if v, ok := r.Fields[alias]; ok && strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// utf8BOM is stripped from the start of exports produced by spreadsheet
// tools.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ReadRows reads a delimited-text table into raw rows. The delimiter is
// sniffed from the header line (comma, tab, or semicolon); headers are
// trimmed of whitespace and stray quotes and lowercased.
func ReadRows(r io.Reader) ([]Row, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}
	data = bytes.TrimPrefix(data, utf8BOM)

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = sniffDelimiter(data)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse table: %w", err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("table has no data rows")
	}

	headers := make([]string, len(records[0]))
	for i, h := range records[0] {
		headers[i] = canonicalHeader(h)
	}

	rows := make([]Row, 0, len(records)-1)
	for i, record := range records[1:] {
		fields := make(map[string]string, len(headers))
		for j, value := range record {
			if j < len(headers) {
				fields[headers[j]] = strings.TrimSpace(value)
			}
		}
		rows = append(rows, Row{Index: i + 1, Fields: fields})
	}

	return rows, nil
}

// sniffDelimiter picks the delimiter that occurs most often in the header
// line, defaulting to comma.
func sniffDelimiter(data []byte) rune {
	header := data
	if idx := bytes.IndexByte(data, '\n'); idx >= 0 {
		header = data[:idx]
	}

	best, bestCount := ',', bytes.Count(header, []byte{','})
	for _, cand := range []byte{'\t', ';'} {
		if n := bytes.Count(header, []byte{cand}); n > bestCount {
			best, bestCount = rune(cand), n
		}
	}
	return best
}

// canonicalHeader lowercases a header and strips surrounding whitespace and
// quote characters left behind by spreadsheet exports.
func canonicalHeader(h string) string {
	h = strings.TrimSpace(h)
	h = strings.Trim(h, `"'`)
	return strings.ToLower(strings.TrimSpace(h))
}
