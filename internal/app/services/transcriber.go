package services

import (
	"context"
	"time"

	"github.com/alonePlayerr1/MAI-Bot/internal/domain/stt"
)

// STTTranscriber adapts a speech-to-text provider to the pipeline port and
// caps each recognition call with the configured timeout.
type STTTranscriber struct {
	backend stt.Transcriber
	timeout time.Duration
}

// NewSTTTranscriber wraps the provider.
func NewSTTTranscriber(backend stt.Transcriber, timeout time.Duration) *STTTranscriber {
	return &STTTranscriber{backend: backend, timeout: timeout}
}

// Transcribe runs recognition for an uploaded artifact.
func (t *STTTranscriber) Transcribe(ctx context.Context, uri string, sampleRate int) (string, error) {
	if t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}
	return t.backend.Transcribe(ctx, stt.Request{URI: uri, SampleRate: sampleRate})
}
