package contacts

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Format is a supported contact list file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

const utf8BOM = "\ufeff"

// FormatFromFilename infers the format from a file extension (case-insensitive).
func FormatFromFilename(name string) (Format, error) {
	switch strings.ToLower(filepath.Ext(strings.TrimSpace(name))) {
	case ".csv":
		return FormatCSV, nil
	case ".xlsx":
		return FormatXLSX, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, name)
	}
}

// LoadFile parses an uploaded file, picking the format from its name.
func LoadFile(name string, data []byte) (*Set, error) {
	format, err := FormatFromFilename(name)
	if err != nil {
		return nil, err
	}
	return Load(bytes.NewReader(data), format)
}

// Load parses a contact list in the given format.
func Load(r io.Reader, format Format) (*Set, error) {
	var (
		records [][]string
		err     error
	)

	switch format {
	case FormatCSV:
		records, err = readCSV(r)
	case FormatXLSX:
		records, err = readXLSX(r)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	if err != nil {
		return nil, errors.Join(ErrMalformed, err)
	}

	return build(records)
}

func readCSV(r io.Reader) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1 // ragged rows are checked against the header in build

	return cr.ReadAll()
}

func readXLSX(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, err
	}
	widenHeader(rows)
	return rows, nil
}

// widenHeader names cells beyond the header row "Unnamed: <index>", so stray
// values in a sheet become extra columns instead of a parse error.
func widenHeader(rows [][]string) {
	if len(rows) == 0 {
		return
	}
	width := 0
	for _, row := range rows {
		width = max(width, len(row))
	}
	for j := len(rows[0]); j < width; j++ {
		rows[0] = append(rows[0], fmt.Sprintf("Unnamed: %d", j))
	}
}

// build turns raw records (header first) into a Set.
func build(records [][]string) (*Set, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: no header row", ErrMalformed)
	}

	header := records[0]
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], utf8BOM)
	}

	columns, err := canonicalColumns(header)
	if err != nil {
		return nil, err
	}

	s := &Set{columns: columns}
	for i, rec := range records[1:] {
		line := i + 2
		if blank(rec) {
			continue
		}
		if len(rec) > len(columns) {
			return nil, fmt.Errorf("%w: line %d has %d fields, header has %d", ErrMalformed, line, len(rec), len(columns))
		}

		row := make(Row, len(columns))
		for j, col := range columns {
			if j < len(rec) {
				row[col] = rec[j]
			} else {
				row[col] = ""
			}
		}

		row[KeyEmail] = strings.TrimSpace(row[KeyEmail])
		if row[KeyEmail] == "" {
			s.skipped = append(s.skipped, line)
			continue
		}
		s.rows = append(s.rows, row)
	}

	return s, nil
}

// canonicalColumns renames the first email/name headers to their canonical keys
// and disambiguates any remaining duplicate names with a numeric suffix.
func canonicalColumns(header []string) ([]string, error) {
	columns := make([]string, len(header))
	emailIdx, nameIdx := -1, -1

	for i, h := range header {
		switch headerKey(h) {
		case KeyEmail:
			if emailIdx < 0 {
				emailIdx = i
			}
		case KeyName:
			if nameIdx < 0 {
				nameIdx = i
			}
		}
	}
	if emailIdx < 0 {
		return nil, ErrMissingEmailColumn
	}

	seen := map[string]int{KeyEmail: 0}
	if nameIdx >= 0 {
		seen[KeyName] = 0
	}

	for i, h := range header {
		switch i {
		case emailIdx:
			columns[i] = KeyEmail
			continue
		case nameIdx:
			columns[i] = KeyName
			continue
		}

		col := h
		if n, ok := seen[col]; ok {
			for {
				n++
				candidate := fmt.Sprintf("%s.%d", h, n)
				if _, taken := seen[candidate]; !taken {
					seen[h] = n
					col = candidate
					break
				}
			}
		}
		seen[col] = 0
		columns[i] = col
	}

	return columns, nil
}

// headerKey is the form a header is compared in: trimmed and lower-cased.
func headerKey(h string) string {
	return strings.ToLower(strings.TrimSpace(h))
}

func blank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
