package stt

import (
	"context"
	"fmt"
	"strings"

	"github.com/alonePlayerr1/MAI-Bot/internal/platform/errors"
)

// Config selects and parameterizes a transcription provider.
type Config struct {
	Provider string
	APIKey   string
	BaseURL  string
	Model    string
	Language string

	// ResolvePath maps an object URI to a readable local file.
	ResolvePath func(uri string) string
}

// Request carries one transcription job. SampleRate and URI are validated
// before any remote call is made.
type Request struct {
	URI        string
	SampleRate int
}

// Transcriber converts an uploaded recording into text. An empty string is
// a valid degenerate transcript.
type Transcriber interface {
	Transcribe(ctx context.Context, req Request) (string, error)
}

// ValidateRequest enforces the preconditions shared by all providers.
func ValidateRequest(req Request, scheme string) error {
	if req.SampleRate <= 0 {
		return errors.New(errors.KindStage, "stt.validate",
			fmt.Sprintf("invalid sample rate: %d", req.SampleRate))
	}
	if !strings.HasPrefix(req.URI, scheme) {
		return errors.New(errors.KindStage, "stt.validate",
			fmt.Sprintf("unsupported audio uri: %s", req.URI))
	}
	return nil
}

// Factory builds a provider from its configuration.
type Factory func(cfg Config) (Transcriber, error)

var factories = make(map[string]Factory)

// Register adds a provider factory under a name.
func Register(name string, factory Factory) {
	factories[name] = factory
}

// Create instantiates the named provider.
func Create(name string, cfg Config) (Transcriber, error) {
	factory, ok := factories[name]
	if !ok {
		return nil, fmt.Errorf("unknown transcription provider: %s", name)
	}
	provider, err := factory(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create transcription provider: %w", err)
	}
	return provider, nil
}
