package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/hshukla4/stt-project/internal/engine"
	"github.com/hshukla4/stt-project/internal/errors"
	"github.com/hshukla4/stt-project/internal/orchestrator"
	"github.com/hshukla4/stt-project/internal/sentry"
)

// transcriptionResponse is the flat shape returned for auto and single
// mode requests.
type transcriptionResponse struct {
	Text             string `json:"text"`
	LanguageDetected string `json:"language_detected"`
	Confidence       string `json:"confidence"`
	Engine           string `json:"engine"`
	Model            string `json:"model"`
	EngineUsed       string `json:"engine_used"`
	FallbackUsed     bool   `json:"fallback_used"`
	PrimaryError     string `json:"primary_error,omitempty"`
}

// engineEntry is one engine's slot in an all-mode response.
type engineEntry struct {
	Status           string `json:"status"`
	Text             string `json:"text,omitempty"`
	LanguageDetected string `json:"language_detected,omitempty"`
	Model            string `json:"model,omitempty"`
	ErrorKind        string `json:"error_kind,omitempty"`
	Message          string `json:"message,omitempty"`
}

type allEnginesResponse struct {
	Engines  map[string]engineEntry `json:"engines"`
	DualMode bool                   `json:"dual_mode"`
	Filename string                 `json:"filename,omitempty"`
}

type errorResponse struct {
	Status    string                 `json:"status"`
	ErrorKind string                 `json:"error_kind"`
	Message   string                 `json:"message"`
	Engines   map[string]engineEntry `json:"engines,omitempty"`
}

// normalizeResult converts an orchestration result into the
// caller-facing response body. Text is whitespace-trimmed here so every
// engine's output looks the same to callers.
func normalizeResult(result *orchestrator.Result, filename string) any {
	switch result.Mode {
	case orchestrator.ModeAll:
		return allEnginesResponse{
			Engines:  engineEntries(result.Outcomes),
			DualMode: true,
			Filename: filename,
		}
	default:
		outcome := result.Outcome
		if outcome == nil {
			// Single mode stores its one outcome in the map.
			o := result.Outcomes[result.EngineUsed]
			outcome = &o
		}
		resp := transcriptionResponse{
			Text:             strings.TrimSpace(outcome.Transcript.Text),
			LanguageDetected: outcome.Transcript.DetectedLanguage,
			Confidence:       "N/A",
			Engine:           string(outcome.Engine),
			Model:            outcome.Transcript.Model,
			EngineUsed:       string(result.EngineUsed),
			FallbackUsed:     result.FallbackUsed,
		}
		if result.PrimaryErr != nil {
			resp.PrimaryError = result.PrimaryErr.Error()
		}
		return resp
	}
}

func engineEntries(outcomes map[engine.ID]orchestrator.Outcome) map[string]engineEntry {
	entries := make(map[string]engineEntry, len(outcomes))
	for id, out := range outcomes {
		if out.Err != nil {
			entries[string(id)] = engineEntry{
				Status:    "error",
				ErrorKind: string(out.Err.Kind),
				Message:   out.Err.Error(),
			}
			continue
		}
		entries[string(id)] = engineEntry{
			Status:           "success",
			Text:             strings.TrimSpace(out.Transcript.Text),
			LanguageDetected: out.Transcript.DetectedLanguage,
			Model:            out.Transcript.Model,
		}
	}
	return entries
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError renders an AppError without ever exposing internals beyond
// its kind and message. When per-engine detail exists it is attached so
// callers can see which engine failed how.
func writeError(w http.ResponseWriter, appErr *errors.AppError, result *orchestrator.Result) {
	// Client-caused failures are expected traffic; only server-side
	// failures are worth an alert.
	if appErr.StatusCode >= http.StatusInternalServerError {
		sentry.CaptureError(appErr)
	}

	resp := errorResponse{
		Status:    "error",
		ErrorKind: string(appErr.Kind),
		Message:   appErr.Error(),
	}
	if result != nil && len(result.Outcomes) > 0 {
		resp.Engines = engineEntries(result.Outcomes)
	}
	writeJSON(w, appErr.StatusCode, resp)
}
