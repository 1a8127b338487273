package debugserver

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/prasetyo/artifex/pkg/pipeline"
)

// Dispatcher accepts raw wire actions and returns per-action results.
// *pipeline.Pipeline satisfies it.
type Dispatcher interface {
	DispatchRaw(ctx context.Context, raw [][]byte) []pipeline.Result
}

// AttachDispatcher enables the /actions intake endpoint. Call before Start.
func (s *Server) AttachDispatcher(d Dispatcher) {
	s.dispatcher = d
}

// actionResult is the wire form of one dispatch outcome.
type actionResult struct {
	OperationID string `json:"operation_id"`
	Kind        string `json:"kind"`
	Status      string `json:"status"`
	Error       string `json:"error,omitempty"`
	DurationMs  int64  `json:"duration_ms"`
}

// handleActions accepts a JSON array of wire actions and dispatches the
// batch through the pipeline, responding with per-action results in input
// order.
func (s *Server) handleActions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.dispatcher == nil {
		http.Error(w, "no dispatcher configured", http.StatusServiceUnavailable)
		return
	}

	var batch []json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&batch); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	raw := make([][]byte, len(batch))
	for i, msg := range batch {
		raw[i] = []byte(msg)
	}

	results := s.dispatcher.DispatchRaw(r.Context(), raw)

	out := make([]actionResult, len(results))
	failed := 0
	for i, res := range results {
		out[i] = actionResult{
			OperationID: res.Descriptor.OperationID,
			Kind:        res.Descriptor.Kind.String(),
			Status:      "ok",
			DurationMs:  res.Duration.Milliseconds(),
		}
		if res.Err != nil {
			out[i].Status = "error"
			out[i].Error = res.Err.Error()
			failed++
		}
	}

	s.logger.Info().
		Int("actions", len(out)).
		Int("failed", failed).
		Msg("Action batch dispatched")

	writeJSON(w, http.StatusOK, out)
}
