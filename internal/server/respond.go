package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

const maxJSONBody = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// decodeJSON reads a single JSON object with unknown fields rejected.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	dec.DisallowUnknownFields()

	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return err
		}
		he := newHTTPError(http.StatusBadRequest, fmt.Sprintf("invalid JSON body: %v", err))
		he.Err = err
		return he
	}
	if dec.Decode(&struct{}{}) != io.EOF {
		return newHTTPError(http.StatusBadRequest, "invalid JSON body: trailing data")
	}
	return nil
}

// readUpload returns the bytes and filename of the multipart "file" field.
func readUpload(w http.ResponseWriter, r *http.Request, limit int64) ([]byte, string, error) {
	// Leave room for multipart framing around the file part.
	r.Body = http.MaxBytesReader(w, r.Body, limit+64<<10)

	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, "", err
		}
		he := newHTTPError(http.StatusBadRequest, `multipart field "file" is required`)
		he.Err = err
		return nil, "", he
	}
	defer func() { _ = file.Close() }()

	if header.Size > limit {
		return nil, "", &http.MaxBytesError{Limit: limit}
	}

	data, err := io.ReadAll(io.LimitReader(file, limit+1))
	if err != nil {
		return nil, "", err
	}
	if int64(len(data)) > limit {
		return nil, "", &http.MaxBytesError{Limit: limit}
	}
	return data, header.Filename, nil
}
