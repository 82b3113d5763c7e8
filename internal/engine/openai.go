package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"time"

	"github.com/hshukla4/stt-project/internal/errors"
	"github.com/hshukla4/stt-project/internal/httpclient"
)

const openAIModel = "whisper-1"

// OpenAIEngine transcribes audio through OpenAI's hosted Whisper API.
type OpenAIEngine struct {
	apiKey     string
	httpClient *http.Client
	baseURL    string
}

// NewOpenAIEngine creates the hosted OpenAI Whisper engine. An empty
// API key produces an engine that fails its availability probe.
func NewOpenAIEngine(apiKey string) *OpenAIEngine {
	return &OpenAIEngine{
		apiKey:     apiKey,
		httpClient: httpclient.NewInstrumentedClient(10 * time.Minute),
		baseURL:    "https://api.openai.com/v1",
	}
}

func (e *OpenAIEngine) ID() ID {
	return OpenAI
}

func (e *OpenAIEngine) Descriptor() string {
	return openAIModel
}

// Probe checks API reachability with a lightweight models listing, the
// same call the key is validated with.
func (e *OpenAIEngine) Probe(ctx context.Context) error {
	if e.apiKey == "" {
		return errors.NewNotAvailableError("OpenAI API key not configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.baseURL+"/models", nil)
	if err != nil {
		return errors.NewBackendError("failed to create OpenAI probe request", err)
	}
	req.Header.Set("Authorization", "Bearer "+e.apiKey)

	resp, err := e.httpClient.Do(req.WithContext(httpclient.WithProvider(req.Context(), "openai")))
	if err != nil {
		return errors.NewNotAvailableError("OpenAI API unreachable")
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return errors.NewNotAvailableError(fmt.Sprintf("OpenAI probe returned status %d", resp.StatusCode))
	}
	return nil
}

// verboseTranscription matches OpenAI's verbose_json response format,
// which carries the detected language alongside the text.
type verboseTranscription struct {
	Text     string `json:"text"`
	Language string `json:"language"`
}

// Transcribe uploads the audio file and returns the transcription.
func (e *OpenAIEngine) Transcribe(ctx context.Context, audioPath, language string) (*Transcript, error) {
	audioFile, err := os.Open(audioPath)
	if err != nil {
		return nil, errors.NewBackendError("failed to open audio file", err)
	}
	defer audioFile.Close()

	// Stream the multipart form via a pipe to avoid buffering the
	// whole file in memory.
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
		if err := writer.WriteField("model", openAIModel); err != nil {
			return
		}
		if err := writer.WriteField("response_format", "verbose_json"); err != nil {
			return
		}
		if language != "" {
			if err := writer.WriteField("language", language); err != nil {
				return
			}
		}
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/audio/transcriptions", pr)
	if err != nil {
		return nil, errors.NewBackendError("failed to create OpenAI request", err)
	}
	req.Header.Set("Authorization", "Bearer "+e.apiKey)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := e.httpClient.Do(req.WithContext(httpclient.WithProvider(req.Context(), "openai")))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, errors.From(ctxErr)
		}
		return nil, errors.NewBackendError("failed to call OpenAI transcription API", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.NewBackendError("failed to read OpenAI response", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, errors.NewBackendError(fmt.Sprintf("OpenAI API error (status %d): %s", resp.StatusCode, string(respBody)), nil)
	}

	var parsed verboseTranscription
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, errors.NewBackendError("failed to parse OpenAI response", err)
	}

	detected := parsed.Language
	if detected == "" {
		detected = detectedOrRequested(language)
	}

	return &Transcript{
		Text:             parsed.Text,
		DetectedLanguage: detected,
		Model:            openAIModel,
	}, nil
}
