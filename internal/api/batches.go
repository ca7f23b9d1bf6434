package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/sells-group/lead-engine/internal/batch"
)

type startBatchRequest struct {
	EventID          string `json:"eventId"`
	IncludeCompleted bool   `json:"includeCompleted"`
}

func (s *Server) startBatch(w http.ResponseWriter, r *http.Request) {
	var req startBatchRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	job, err := s.pipeline.StartBatch(s.jobCtx, s.batches, req.EventID, req.IncludeCompleted)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Location", "/v1/batches/"+job.ID())
	writeJSON(w, http.StatusAccepted, job.Snapshot())
}

func (s *Server) listBatches(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.batches.List())
}

func (s *Server) getBatch(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	job, err := s.batches.Get(id)
	if err == nil {
		writeJSON(w, http.StatusOK, job.Snapshot())
		return
	}
	if errors.Is(err, batch.ErrJobNotFound) && s.mirror != nil {
		p, ok, merr := s.mirror.Get(r.Context(), id)
		if merr != nil {
			writeError(w, r, merr)
			return
		}
		if ok {
			writeJSON(w, http.StatusOK, p)
			return
		}
	}
	writeError(w, r, err)
}

func (s *Server) abortBatch(w http.ResponseWriter, r *http.Request) {
	p, err := s.batches.Abort(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, p)
}

// batchEvents streams progress as server-sent events until the job is
// terminal or the client goes away.
func (s *Server) batchEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "streaming unsupported"})
		return
	}
	updates, cancel, err := s.batches.Subscribe(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case p, open := <-updates:
			if !open {
				return
			}
			data, err := json.Marshal(p)
			if err != nil {
				zap.L().Warn("api: marshal progress", zap.Error(err))
				return
			}
			if _, err := fmt.Fprintf(w, "event: progress\ndata: %s\n\n", data); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
