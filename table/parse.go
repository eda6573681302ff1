package table

import (
	"encoding/csv"
	"errors"
	"regexp"
	"strings"
)

var (
	dashRE     = regexp.MustCompile(`-{3,}`)
	twoSpaceRE = regexp.MustCompile(`\s{2,}`)
)

// ParseText parses a text-form table into a Table. Supported formats:
// markdown pipe tables, CSV, TSV, and whitespace-aligned tables.
func ParseText(text string) (*Table, error) {
	var lines []string
	for _, ln := range strings.Split(strings.Trim(text, "\n"), "\n") {
		if strings.TrimSpace(ln) != "" {
			lines = append(lines, strings.TrimRight(ln, "\n"))
		}
	}
	if len(lines) == 0 {
		return nil, errors.New("empty table text")
	}

	if looksLikeMarkdownPipe(lines) {
		return parseMarkdownPipe(lines), nil
	}
	if delim := inferDelimiter(lines); delim != 0 && strings.Count(lines[0], string(delim)) >= 1 {
		return parseDelimited(lines, delim)
	}
	return parseWhitespaceAligned(lines), nil
}

func inferDelimiter(lines []string) rune {
	n := len(lines)
	if n > 3 {
		n = 3
	}
	for _, ln := range lines[:n] {
		if strings.Contains(ln, "\t") {
			return '\t'
		}
	}
	for _, ln := range lines[:n] {
		if strings.Contains(ln, ",") {
			return ','
		}
	}
	return 0
}

func looksLikeMarkdownPipe(lines []string) bool {
	if len(lines) < 2 {
		return false
	}
	return strings.Contains(lines[0], "|") && strings.Contains(lines[1], "|") &&
		dashRE.MatchString(lines[1])
}

func parseMarkdownPipe(lines []string) *Table {
	splitRow := func(ln string) []string {
		ln = strings.TrimSpace(ln)
		ln = strings.TrimPrefix(ln, "|")
		ln = strings.TrimSuffix(ln, "|")
		parts := strings.Split(ln, "|")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts
	}

	headers := splitRow(lines[0])
	var rows [][]string
	if len(lines) >= 3 {
		for _, ln := range lines[2:] {
			if strings.TrimSpace(ln) == "" {
				continue
			}
			rows = append(rows, padRow(splitRow(ln), len(headers)))
		}
	}
	return New(headers, rows)
}

func parseDelimited(lines []string, delim rune) (*Table, error) {
	reader := csv.NewReader(strings.NewReader(strings.Join(lines, "\n")))
	reader.Comma = delim
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}

	var cells [][]string
	for _, rec := range records {
		empty := true
		for i := range rec {
			rec[i] = strings.TrimSpace(rec[i])
			if rec[i] != "" {
				empty = false
			}
		}
		if !empty {
			cells = append(cells, rec)
		}
	}
	if len(cells) < 2 {
		return nil, errors.New("delimited table must have a header and at least one row")
	}

	headers := cells[0]
	rows := make([][]string, 0, len(cells)-1)
	for _, r := range cells[1:] {
		rows = append(rows, padRow(r, len(headers)))
	}
	return New(headers, rows), nil
}

func parseWhitespaceAligned(lines []string) *Table {
	splitWS := func(ln string) []string {
		parts := twoSpaceRE.Split(strings.TrimSpace(ln), -1)
		if len(parts) <= 1 {
			parts = spaceRE.Split(strings.TrimSpace(ln), -1)
		}
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts
	}

	headers := splitWS(lines[0])
	var rows [][]string
	for _, ln := range lines[1:] {
		rows = append(rows, padRow(splitWS(ln), len(headers)))
	}
	return New(headers, rows)
}

func padRow(row []string, width int) []string {
	if len(row) > width {
		row = row[:width]
	}
	for len(row) < width {
		row = append(row, "")
	}
	return row
}
