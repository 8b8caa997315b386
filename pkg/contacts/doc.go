// Package contacts loads tabular contact lists (CSV or XLSX) into an ordered,
// immutable set of rows keyed by column name.
//
// Every loaded row is guaranteed to carry a non-empty "email" field. The first
// header that equals "email" after trimming and lower-casing is renamed to the
// canonical "email" key; the same applies to "name" when present. All other
// columns are preserved verbatim and can be used as template placeholders.
//
// # Usage
//
//	set, err := contacts.LoadFile(header.Filename, data)
//	if err != nil {
//		switch {
//		case errors.Is(err, contacts.ErrUnsupportedFormat):
//			// ask for a .csv or .xlsx file
//		case errors.Is(err, contacts.ErrMissingEmailColumn):
//			// the file has no email column
//		}
//		return err
//	}
//
//	if err := set.Validate(); err != nil {
//		return err // contacts.ErrEmptyContactSet
//	}
//
//	for _, row := range set.Rows() {
//		fmt.Println(row.Email(), row.Name())
//	}
//
// Rows whose email cell is blank are rejected at load time. Their 1-based line
// numbers in the source file are kept in Set.Skipped for reporting.
//
// # Errors
//
//   - ErrUnsupportedFormat: the upload is neither .csv nor .xlsx
//   - ErrMissingEmailColumn: no header matches "email"
//   - ErrMalformed: the file could not be parsed
//   - ErrEmptyContactSet: the set has no usable rows (returned by Validate)
package contacts
