package api

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/hshukla4/stt-project/internal/engine"
	"github.com/hshukla4/stt-project/internal/errors"
	"github.com/hshukla4/stt-project/internal/logger"
	"github.com/hshukla4/stt-project/internal/orchestrator"
	"github.com/hshukla4/stt-project/internal/staging"
)

// maxUploadBytes caps a single audio upload.
const maxUploadBytes = 100 << 20

type rootResponse struct {
	Message   string            `json:"message"`
	Engines   map[string]bool   `json:"engines_available"`
	Endpoints map[string]string `json:"endpoints"`
}

func (s *Server) HandleRoot(w http.ResponseWriter, r *http.Request) {
	available := make(map[string]bool)
	for _, id := range s.registry.IDs() {
		available[string(id)] = s.registry.IsAvailable(id)
	}

	writeJSON(w, http.StatusOK, rootResponse{
		Message: "STT Dual Engine Server",
		Engines: available,
		Endpoints: map[string]string{
			"health":     "/health",
			"engines":    "/engines",
			"transcribe": "/transcribe (POST)",
		},
	})
}

type engineHealth struct {
	Available bool   `json:"available"`
	ModelSize string `json:"model_size,omitempty"`
	Model     string `json:"model,omitempty"`
}

type healthResponse struct {
	Status            string                  `json:"status"`
	Engines           map[string]engineHealth `json:"engines"`
	PrimaryEngine     string                  `json:"primary_engine"`
	FallbackEngine    string                  `json:"fallback_engine,omitempty"`
	DualEngineEnabled bool                    `json:"dual_engine_enabled"`
}

func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	engines := make(map[string]engineHealth)
	for _, id := range s.registry.IDs() {
		eng, _ := s.registry.Get(id)
		h := engineHealth{Available: s.registry.IsAvailable(id)}
		// A down engine has no meaningful model to report.
		if h.Available {
			if id == engine.Local {
				h.ModelSize = eng.Descriptor()
			} else {
				h.Model = eng.Descriptor()
			}
		}
		engines[string(id)] = h
	}

	resp := healthResponse{
		Status:            "healthy",
		Engines:           engines,
		PrimaryEngine:     s.cfg.Transcription.PrimaryEngine,
		DualEngineEnabled: s.cfg.Transcription.FallbackEnabled,
	}
	if s.cfg.Transcription.FallbackEnabled {
		resp.FallbackEngine = s.cfg.Transcription.FallbackEngine
	}

	writeJSON(w, http.StatusOK, resp)
}

type engineStatus struct {
	Available bool   `json:"available"`
	ModelSize string `json:"model_size,omitempty"`
	Model     string `json:"model,omitempty"`
	Status    string `json:"status"`
}

func (s *Server) HandleEngines(w http.ResponseWriter, r *http.Request) {
	engines := make(map[string]engineStatus)
	for _, id := range s.registry.IDs() {
		eng, _ := s.registry.Get(id)
		available := s.registry.IsAvailable(id)
		st := engineStatus{
			Available: available,
			Status:    statusWord(id, available),
		}
		if id == engine.Local {
			st.ModelSize = eng.Descriptor()
		} else {
			st.Model = eng.Descriptor()
		}
		engines[string(id)] = st
	}

	writeJSON(w, http.StatusOK, engines)
}

func statusWord(id engine.ID, available bool) string {
	if id == engine.Local {
		if available {
			return "loaded"
		}
		return "not_loaded"
	}
	if available {
		return "connected"
	}
	return "not_configured"
}

func (s *Server) HandleTranscribe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	file, header, err := r.FormFile("audio")
	if err != nil {
		writeError(w, errors.NewInvalidInputError("audio file is required"), nil)
		return
	}
	defer file.Close()

	if ct := header.Header.Get("Content-Type"); !strings.HasPrefix(ct, "audio/") {
		writeError(w, errors.NewInvalidInputError("file must be an audio file"), nil)
		return
	}

	mode, engineID, appErr := orchestrator.ParseMode(r.FormValue("mode"))
	if appErr != nil {
		writeError(w, appErr, nil)
		return
	}

	lang := r.FormValue("language")

	req := orchestrator.Request{
		Language: lang,
		Mode:     mode,
		Engine:   engineID,
	}

	// Reject requests that cannot be served before the payload ever
	// touches disk.
	if appErr := s.orchestrator.Resolve(req); appErr != nil {
		writeError(w, appErr, nil)
		return
	}

	payload, err := staging.Stage(s.cfg.TempDir, header.Filename, file)
	if err != nil {
		slog.Error("Failed to stage upload", "error", err, logger.WithTraceContext(ctx))
		writeError(w, errors.NewUnknownError("failed to stage audio payload", err), nil)
		return
	}
	defer payload.Release()

	req.AudioPath = payload.Path()

	slog.Info("Transcribing upload",
		"filename", header.Filename,
		"size", header.Size,
		"mode", mode,
		"language", lang,
		logger.WithTraceContext(ctx))

	result, appErr := s.orchestrator.Transcribe(ctx, req)
	if appErr != nil {
		writeError(w, appErr, result)
		return
	}

	writeJSON(w, http.StatusOK, normalizeResult(result, header.Filename))
}
