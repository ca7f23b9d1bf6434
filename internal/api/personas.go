package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sells-group/lead-engine/internal/model"
)

func (s *Server) listPersonas(w http.ResponseWriter, r *http.Request) {
	personas, err := s.personas.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, personas)
}

func (s *Server) createPersona(w http.ResponseWriter, r *http.Request) {
	var p model.Persona
	if err := decode(r, &p); err != nil {
		writeError(w, r, err)
		return
	}
	created, err := s.personas.Create(r.Context(), p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) getPersona(w http.ResponseWriter, r *http.Request) {
	p, err := s.personas.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) updatePersona(w http.ResponseWriter, r *http.Request) {
	var p model.Persona
	if err := decode(r, &p); err != nil {
		writeError(w, r, err)
		return
	}
	updated, err := s.personas.Update(r.Context(), chi.URLParam(r, "id"), p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) deletePersona(w http.ResponseWriter, r *http.Request) {
	if err := s.personas.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
