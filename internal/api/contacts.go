package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rotisserie/eris"

	"github.com/sells-group/lead-engine/internal/model"
	"github.com/sells-group/lead-engine/internal/store"
)

func (s *Server) listContacts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.ContactFilter{EventID: q.Get("eventId")}
	for _, st := range q["status"] {
		filter.Statuses = append(filter.Statuses, model.EnrichmentStatus(strings.ToUpper(st)))
	}
	var err error
	if filter.Limit, err = intParam(q.Get("limit")); err != nil {
		writeError(w, r, err)
		return
	}
	if filter.Offset, err = intParam(q.Get("offset")); err != nil {
		writeError(w, r, err)
		return
	}

	contacts, err := s.store.ListContacts(r.Context(), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, contacts)
}

func (s *Server) createContact(w http.ResponseWriter, r *http.Request) {
	var c model.Contact
	if err := decode(r, &c); err != nil {
		writeError(w, r, err)
		return
	}
	if strings.TrimSpace(c.Company) == "" && strings.TrimSpace(c.Name) == "" {
		writeError(w, r, eris.Wrap(errBadRequest, "name or company is required"))
		return
	}
	c.Status, c.StatusReason = "", ""

	if err := s.store.CreateContact(r.Context(), &c); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (s *Server) getContact(w http.ResponseWriter, r *http.Request) {
	q, err := s.pipeline.Qualification(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

func (s *Server) enrichContact(w http.ResponseWriter, r *http.Request) {
	q, err := s.pipeline.EnrichContact(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

type reportRefRequest struct {
	PersonaID string `json:"personaId"`
}

func (s *Server) createReportRef(w http.ResponseWriter, r *http.Request) {
	var req reportRefRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	contactID := chi.URLParam(r, "id")
	if _, err := s.store.GetContact(r.Context(), contactID); err != nil {
		writeError(w, r, err)
		return
	}
	if _, err := s.store.GetPersona(r.Context(), req.PersonaID); err != nil {
		writeError(w, r, err)
		return
	}

	ref := model.ReportRef{ContactID: contactID, PersonaID: req.PersonaID}
	if err := s.store.CreateReportRef(r.Context(), &ref); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, ref)
}

func intParam(v string) (int, error) {
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, eris.Wrapf(errBadRequest, "invalid integer %q", v)
	}
	return n, nil
}
