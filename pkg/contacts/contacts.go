package contacts

import (
	"encoding/json"
	"slices"
	"sort"
	"strings"
)

// Canonical column keys.
const (
	KeyEmail = "email"
	KeyName  = "name"
)

// Row maps column names to cell values for a single contact.
type Row map[string]string

// Email returns the recipient address.
func (r Row) Email() string { return r[KeyEmail] }

// Name returns the contact name, or an empty string when the list has no name column.
func (r Row) Name() string { return r[KeyName] }

func (r Row) clone() Row {
	c := make(Row, len(r))
	for k, v := range r {
		c[k] = v
	}
	return c
}

// Set is an ordered, immutable list of contacts built from one upload.
// Row order matches the source file and determines send order.
type Set struct {
	columns []string
	rows    []Row
	skipped []int
}

// FromRows builds a Set from in-memory rows.
// Rows without an email are rejected and their 1-based positions recorded in Skipped.
// Columns are ordered email, name, then the remaining keys alphabetically.
func FromRows(rows ...Row) *Set {
	s := &Set{}
	seen := make(map[string]struct{})
	var extra []string

	for i, r := range rows {
		for k := range r {
			if _, ok := seen[k]; ok || k == KeyEmail || k == KeyName {
				continue
			}
			seen[k] = struct{}{}
			extra = append(extra, k)
		}

		row := r.clone()
		row[KeyEmail] = strings.TrimSpace(row[KeyEmail])
		if row[KeyEmail] == "" {
			s.skipped = append(s.skipped, i+1)
			continue
		}
		s.rows = append(s.rows, row)
	}

	sort.Strings(extra)
	s.columns = append([]string{KeyEmail}, extra...)
	for _, r := range rows {
		if _, ok := r[KeyName]; ok {
			s.columns = slices.Insert(s.columns, 1, KeyName)
			break
		}
	}

	return s
}

// Len returns the number of usable rows.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.rows)
}

// Columns returns the column names in source order.
func (s *Set) Columns() []string {
	if s == nil {
		return nil
	}
	return slices.Clone(s.columns)
}

// Rows returns a copy of every row in source order.
func (s *Set) Rows() []Row {
	if s == nil {
		return nil
	}
	out := make([]Row, len(s.rows))
	for i, r := range s.rows {
		out[i] = r.clone()
	}
	return out
}

// Row returns a copy of the row at index i, or nil when i is out of range.
func (s *Set) Row(i int) Row {
	if s == nil || i < 0 || i >= len(s.rows) {
		return nil
	}
	return s.rows[i].clone()
}

// Preview returns up to n leading rows.
func (s *Set) Preview(n int) []Row {
	if s == nil {
		return nil
	}
	n = min(n, len(s.rows))
	return s.Rows()[:n]
}

// Skipped returns the 1-based source line numbers of rows rejected for a blank email.
func (s *Set) Skipped() []int {
	if s == nil {
		return nil
	}
	return slices.Clone(s.skipped)
}

// Validate reports ErrEmptyContactSet when there is nothing to send to.
func (s *Set) Validate() error {
	if s.Len() == 0 {
		return ErrEmptyContactSet
	}
	return nil
}

type setJSON struct {
	Columns []string `json:"columns"`
	Rows    []Row    `json:"rows"`
	Skipped []int    `json:"skipped,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (s *Set) MarshalJSON() ([]byte, error) {
	return json.Marshal(setJSON{Columns: s.columns, Rows: s.rows, Skipped: s.skipped})
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *Set) UnmarshalJSON(data []byte) error {
	var v setJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	s.columns, s.rows, s.skipped = v.Columns, v.Rows, v.Skipped
	return nil
}
