package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/hshukla4/stt-project/internal/errors"
	"github.com/hshukla4/stt-project/internal/httpclient"
)

// DefaultWhisperServerURL is where a locally started whisper-server
// listens by default.
const DefaultWhisperServerURL = "http://localhost:8178"

// LocalEngine transcribes audio through a locally hosted whisper.cpp
// server. Inference is CPU/GPU bound in a single process, so concurrent
// calls are capped with a semaphore instead of being passed through
// unbounded.
type LocalEngine struct {
	baseURL    string
	modelSize  string
	httpClient *http.Client
	sem        *semaphore.Weighted
}

// NewLocalEngine creates the local whisper engine. maxConcurrent bounds
// the number of in-flight inference calls.
func NewLocalEngine(baseURL, modelSize string, maxConcurrent int64) *LocalEngine {
	if baseURL == "" {
		baseURL = DefaultWhisperServerURL
	}
	if modelSize == "" {
		modelSize = "base"
	}
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &LocalEngine{
		baseURL:    baseURL,
		modelSize:  modelSize,
		httpClient: httpclient.NewInstrumentedClient(10 * time.Minute),
		sem:        semaphore.NewWeighted(maxConcurrent),
	}
}

func (e *LocalEngine) ID() ID {
	return Local
}

func (e *LocalEngine) Descriptor() string {
	return e.modelSize
}

// Probe checks that the whisper server is up and has its model loaded.
func (e *LocalEngine) Probe(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.baseURL+"/health", nil)
	if err != nil {
		return errors.NewBackendError("failed to create whisper server probe request", err)
	}

	resp, err := e.httpClient.Do(req.WithContext(httpclient.WithProvider(req.Context(), "local-whisper")))
	if err != nil {
		return errors.NewNotAvailableError("whisper server unreachable")
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return errors.NewNotAvailableError(fmt.Sprintf("whisper server health returned status %d", resp.StatusCode))
	}
	return nil
}

// inferenceResponse matches whisper-server's json response format.
type inferenceResponse struct {
	Text     string `json:"text"`
	Language string `json:"language"`
	Error    string `json:"error"`
}

// Transcribe posts the staged file to the whisper server's inference
// endpoint.
func (e *LocalEngine) Transcribe(ctx context.Context, audioPath, language string) (*Transcript, error) {
	if err := e.sem.Acquire(ctx, 1); err != nil {
		return nil, errors.From(err)
	}
	defer e.sem.Release(1)

	audioFile, err := os.Open(audioPath)
	if err != nil {
		return nil, errors.NewBackendError("failed to open audio file", err)
	}
	defer audioFile.Close()

	pr, pw := io.Pipe()
	writer := multipart.NewWriter(pw)

	go func() {
		defer pw.Close()
		defer writer.Close()

		part, err := writer.CreateFormFile("file", "audio"+ext(audioPath))
		if err != nil {
			return
		}
		if _, err := io.Copy(part, audioFile); err != nil {
			return
		}
		if err := writer.WriteField("response_format", "json"); err != nil {
			return
		}
		if language != "" {
			if err := writer.WriteField("language", language); err != nil {
				return
			}
		}
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/inference", pr)
	if err != nil {
		return nil, errors.NewBackendError("failed to create whisper server request", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := e.httpClient.Do(req.WithContext(httpclient.WithProvider(req.Context(), "local-whisper")))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, errors.From(ctxErr)
		}
		return nil, errors.NewBackendError("failed to call whisper server", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.NewBackendError("failed to read whisper server response", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, errors.NewBackendError(fmt.Sprintf("whisper server error (status %d): %s", resp.StatusCode, string(respBody)), nil)
	}

	var parsed inferenceResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, errors.NewBackendError("failed to parse whisper server response", err)
	}
	if parsed.Error != "" {
		return nil, errors.NewBackendError("whisper server reported: "+parsed.Error, nil)
	}

	detected := parsed.Language
	if detected == "" {
		detected = detectedOrRequested(language)
	}

	return &Transcript{
		Text:             parsed.Text,
		DetectedLanguage: detected,
		Model:            e.modelSize,
	}, nil
}

func ext(path string) string {
	if x := filepath.Ext(path); x != "" {
		return x
	}
	return ".wav"
}

// detectedOrRequested fills the detected language when the backend
// response omits it.
func detectedOrRequested(requested string) string {
	if requested != "" {
		return requested
	}
	return "unknown"
}
