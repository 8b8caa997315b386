package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (s *Server) uploadMaterial(w http.ResponseWriter, r *http.Request) error {
	data, filename, err := readUpload(w, r, s.cfg.MaxUploadSize)
	if err != nil {
		return err
	}

	info, err := s.deps.Materials.Put(r.Context(), filename, data)
	if err != nil {
		return err
	}

	writeJSON(w, http.StatusCreated, info)
	return nil
}

func (s *Server) deleteMaterial(w http.ResponseWriter, r *http.Request) error {
	if err := s.deps.Materials.Delete(r.Context(), chi.URLParam(r, "*")); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}
