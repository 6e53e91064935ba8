// Package importer turns loosely structured tabular exports and explorer API
// records into canonical ledger transactions.
//
// Parsing is deliberately permissive: real-world explorer exports are noisy,
// so malformed cells degrade to defaults and malformed rows are skipped.
// Only structural problems (no data rows, too few transaction identifiers)
// are errors.
package importer

import (
	"strings"

	apperrors "github.com/kislikjeka/gnosistrack/internal/shared/errors"
)

// ParsedRow maps original header strings to cell values for one data row.
type ParsedRow map[string]string

// ParsedImport is the intermediate result of parsing raw delimited text.
type ParsedImport struct {
	Headers []string
	Rows    []ParsedRow
}

// ParseImport parses comma-delimited text into header-keyed row maps.
//
// The first non-empty line is the header row. Cells are split on commas with
// surrounding double quotes stripped; embedded commas or quotes inside a
// value are not supported. A data line whose cell count differs from the
// header count is silently skipped. Fewer than two non-empty lines is a
// structural INVALID_FORMAT error.
func ParseImport(rawText string) (*ParsedImport, error) {
	var lines []string
	for _, line := range strings.Split(rawText, "\n") {
		line = strings.TrimSpace(strings.TrimSuffix(line, "\r"))
		if line != "" {
			lines = append(lines, line)
		}
	}

	if len(lines) < 2 {
		return nil, apperrors.InvalidFormat("import must contain a header row and at least one data row")
	}

	headers := splitLine(lines[0])

	rows := make([]ParsedRow, 0, len(lines)-1)
	for _, line := range lines[1:] {
		cells := splitLine(line)
		if len(cells) != len(headers) {
			continue
		}
		row := make(ParsedRow, len(headers))
		for i, h := range headers {
			row[h] = cells[i]
		}
		rows = append(rows, row)
	}

	return &ParsedImport{Headers: headers, Rows: rows}, nil
}

// splitLine splits on commas and strips surrounding double quotes from each
// cell. No escaping support: values containing commas will misparse, which
// downstream handles by skipping the row on a width mismatch.
func splitLine(line string) []string {
	cells := strings.Split(line, ",")
	for i, c := range cells {
		c = strings.TrimSpace(c)
		if len(c) >= 2 && strings.HasPrefix(c, `"`) && strings.HasSuffix(c, `"`) {
			c = c[1 : len(c)-1]
		}
		cells[i] = strings.TrimSpace(c)
	}
	return cells
}
