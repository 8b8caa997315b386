package contacts

import "errors"

var (
	// ErrUnsupportedFormat indicates the upload is not a CSV or XLSX file.
	ErrUnsupportedFormat = errors.New("contacts: unsupported file format")

	// ErrMissingEmailColumn indicates no header matches "email" case-insensitively.
	ErrMissingEmailColumn = errors.New("contacts: file must include an email column")

	// ErrMalformed indicates the file content could not be parsed.
	ErrMalformed = errors.New("contacts: malformed file")

	// ErrEmptyContactSet indicates the set holds no rows to send to.
	ErrEmptyContactSet = errors.New("contacts: contact list is empty")
)
