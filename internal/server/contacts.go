package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/campaigner/pkg/contacts"
	"github.com/dmitrymomot/campaigner/pkg/id"
)

type contactsResponse struct {
	ID      string         `json:"id"`
	Columns []string       `json:"columns"`
	Preview []contacts.Row `json:"preview"`
	Skipped []int          `json:"skipped,omitempty"`
	Count   int            `json:"count"`
}

func newContactsResponse(key string, set *contacts.Set) contactsResponse {
	return contactsResponse{
		ID:      key,
		Columns: set.Columns(),
		Preview: set.Preview(previewRows),
		Skipped: set.Skipped(),
		Count:   set.Len(),
	}
}

// uploadContacts parses a CSV or XLSX file and keeps the set for a later campaign.
func (s *Server) uploadContacts(w http.ResponseWriter, r *http.Request) error {
	data, filename, err := readUpload(w, r, s.cfg.MaxUploadSize)
	if err != nil {
		return err
	}

	set, err := contacts.LoadFile(filename, data)
	if err != nil {
		return err
	}

	key := id.NewULID()
	if err := s.deps.Uploads.Save(r.Context(), key, set); err != nil {
		return err
	}

	writeJSON(w, http.StatusCreated, newContactsResponse(key, set))
	return nil
}

func (s *Server) getContacts(w http.ResponseWriter, r *http.Request) error {
	key := chi.URLParam(r, "id")
	set, err := s.deps.Uploads.Load(r.Context(), key)
	if err != nil {
		return err
	}

	writeJSON(w, http.StatusOK, newContactsResponse(key, set))
	return nil
}
