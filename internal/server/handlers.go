package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/jonathan/book-foundry/internal/schemas"
	"github.com/jonathan/book-foundry/internal/types"
)

// createRunResponse is returned when a run is accepted.
type createRunResponse struct {
	RunID  uuid.UUID `json:"run_id"`
	Status string    `json:"status"`
}

// handleCreateRun validates the request body and starts a pipeline run. The
// run executes asynchronously; the response carries the run id for polling
// and the event stream.
func (s *Server) handleCreateRun(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	if err := schemas.Validate(schemas.RunConfigSchema, body); err != nil {
		var ve *schemas.ValidationError
		if errors.As(err, &ve) {
			s.errorResponse(w, http.StatusBadRequest, strings.TrimSpace(ve.Error()))
			return
		}
		s.errorResponse(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	var cfg types.RunConfig
	if err := json.Unmarshal(body, &cfg); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	runID, err := s.pipeline.Start(r.Context(), cfg)
	if err != nil {
		if types.IsConfigError(err) {
			s.errorResponse(w, http.StatusBadRequest, err.Error())
			return
		}
		s.errorResponse(w, http.StatusInternalServerError, "failed to start run")
		return
	}

	s.jsonResponse(w, http.StatusAccepted, createRunResponse{RunID: runID, Status: string(types.RunPending)})
}

// handleListRuns returns snapshots of all known runs.
func (s *Server) handleListRuns(w http.ResponseWriter, _ *http.Request) {
	runs := s.pipeline.Runs()
	s.jsonResponse(w, http.StatusOK, map[string]any{"runs": runs, "count": len(runs)})
}

// handleGetRun returns a snapshot of one run.
func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	runID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid run id")
		return
	}

	run, err := s.pipeline.Status(runID)
	if err != nil {
		s.errorResponse(w, http.StatusNotFound, "run not found")
		return
	}
	s.jsonResponse(w, http.StatusOK, run)
}

// handleAbortRun requests cancellation of a run. The abort takes effect at
// the next stage boundary.
func (s *Server) handleAbortRun(w http.ResponseWriter, r *http.Request) {
	runID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid run id")
		return
	}

	if err := s.pipeline.Abort(runID); err != nil {
		s.errorResponse(w, http.StatusNotFound, "run not found")
		return
	}
	s.jsonResponse(w, http.StatusAccepted, map[string]string{"run_id": runID.String(), "status": "abort_requested"})
}
