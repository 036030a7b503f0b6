package analyze

import (
	"context"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/sync/errgroup"

	"github.com/alonePlayerr1/MAI-Bot/internal/platform/errors"
)

// maxTranscriptChars bounds the prompt payload; longer transcripts are
// truncated before prompting.
const maxTranscriptChars = 80000

const (
	promptTeacher = "Создай краткий конспект (summary) следующего транскрипта лекции для преподавателя. Выдели основные темы, структуру и ключевые выводы.\n\nТранскрипт:\n"
	promptStudent = "Создай подробный конспект следующего транскрипта лекции для студента. Сохрани структуру изложения, определения и примеры.\n\nТранскрипт:\n"
	promptKeyword = "Выдели список ключевых слов и терминов из следующего транскрипта лекции. Перечисли их через запятую.\n\nТранскрипт:\n"
)

const (
	fallbackTeacher = "Не удалось сгенерировать конспект для преподавателя."
	fallbackStudent = "Не удалось сгенерировать конспект для студента."
	fallbackKeyword = "Не удалось выделить ключевые слова."
)

// Result carries the three analysis sections. A failed section holds its
// fallback text instead of failing the run.
type Result struct {
	TeacherSummary string
	StudentSummary string
	Keywords       string
}

// Analyzer produces lecture summaries from a transcript.
type Analyzer interface {
	Analyze(ctx context.Context, transcript string) (Result, error)
}

// Config parameterizes the chat-completion backend.
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature float32
}

type openaiAnalyzer struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float32
}

// NewOpenAI builds the chat-completion analyzer.
func NewOpenAI(cfg Config) (Analyzer, error) {
	if cfg.APIKey == "" {
		return nil, errors.New(errors.KindConfig, "analyze.new", "api key required")
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	model := cfg.Model
	if model == "" {
		model = openai.GPT4oMini
	}
	temperature := cfg.Temperature
	if temperature == 0 {
		temperature = 0.3
	}
	return &openaiAnalyzer{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       model,
		maxTokens:   cfg.MaxTokens,
		temperature: temperature,
	}, nil
}

// Analyze issues the three prompts concurrently. A blank transcript returns
// an empty result without touching the backend; per-prompt failure yields
// the section fallback.
func (a *openaiAnalyzer) Analyze(ctx context.Context, transcript string) (Result, error) {
	if strings.TrimSpace(transcript) == "" {
		return Result{}, nil
	}

	if runes := []rune(transcript); len(runes) > maxTranscriptChars {
		transcript = string(runes[:maxTranscriptChars])
	}

	var result Result
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		result.TeacherSummary = a.generate(gctx, promptTeacher+transcript, fallbackTeacher)
		return nil
	})
	g.Go(func() error {
		result.StudentSummary = a.generate(gctx, promptStudent+transcript, fallbackStudent)
		return nil
	})
	g.Go(func() error {
		result.Keywords = a.generate(gctx, promptKeyword+transcript, fallbackKeyword)
		return nil
	})
	_ = g.Wait()

	return result, nil
}

// generate runs one prompt, returning the fallback on any failure.
func (a *openaiAnalyzer) generate(ctx context.Context, prompt, fallback string) string {
	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       a.model,
		MaxTokens:   a.maxTokens,
		Temperature: a.temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return fallback
	}
	if len(resp.Choices) == 0 {
		return fallback
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return fallback
	}
	return text
}
