package stt

import (
	"context"

	openai "github.com/sashabaranov/go-openai"

	"github.com/alonePlayerr1/MAI-Bot/internal/domain/objstore"
	"github.com/alonePlayerr1/MAI-Bot/internal/platform/errors"
)

func init() {
	Register("whisper", NewWhisper)
}

type whisperProvider struct {
	client      *openai.Client
	model       string
	language    string
	resolvePath func(uri string) string
}

// NewWhisper builds the whisper transcription provider.
func NewWhisper(cfg Config) (Transcriber, error) {
	if cfg.APIKey == "" {
		return nil, errors.New(errors.KindConfig, "stt.whisper", "api key required")
	}
	if cfg.ResolvePath == nil {
		return nil, errors.New(errors.KindConfig, "stt.whisper", "path resolver required")
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	model := cfg.Model
	if model == "" {
		model = openai.Whisper1
	}
	return &whisperProvider{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       model,
		language:    cfg.Language,
		resolvePath: cfg.ResolvePath,
	}, nil
}

func (p *whisperProvider) Transcribe(ctx context.Context, req Request) (string, error) {
	if err := ValidateRequest(req, objstore.URIScheme); err != nil {
		return "", err
	}

	path := p.resolvePath(req.URI)
	if path == "" {
		return "", errors.New(errors.KindStage, "stt.whisper",
			"audio uri does not resolve to a readable file")
	}

	resp, err := p.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    p.model,
		FilePath: path,
		Language: p.language,
	})
	if err != nil {
		return "", errors.Wrap(errors.KindStage, "stt.whisper", "transcription request failed", err)
	}
	return resp.Text, nil
}
