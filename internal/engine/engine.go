package engine

import (
	"context"
)

// ID identifies a configured transcription backend. The set is closed
// and fixed at startup.
type ID string

const (
	Local  ID = "local"
	OpenAI ID = "openai"
)

// Transcript is the raw result of one successful engine invocation.
type Transcript struct {
	Text             string
	DetectedLanguage string
	Model            string
}

// Capability is implemented by every transcription backend. Transcribe
// must honor ctx cancellation and return failures as errors rather than
// panicking; language is an engine-native code, empty for auto-detect.
type Capability interface {
	ID() ID
	Descriptor() string
	Probe(ctx context.Context) error
	Transcribe(ctx context.Context, audioPath, language string) (*Transcript, error)
}
