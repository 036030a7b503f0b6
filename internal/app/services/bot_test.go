package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alonePlayerr1/MAI-Bot/internal/domain/analyze"
	"github.com/alonePlayerr1/MAI-Bot/internal/domain/dialog"
	"github.com/alonePlayerr1/MAI-Bot/internal/domain/eventbus"
	"github.com/alonePlayerr1/MAI-Bot/internal/domain/pipeline"
	"github.com/alonePlayerr1/MAI-Bot/internal/domain/session"
	"github.com/alonePlayerr1/MAI-Bot/internal/domain/session/store"
	"github.com/alonePlayerr1/MAI-Bot/internal/platform/logging"
	"github.com/alonePlayerr1/MAI-Bot/internal/transport/telegram"
)

type fakeSender struct {
	mu        sync.Mutex
	texts     []string
	documents []string
	actions   []string
	docErr    error
}

func (f *fakeSender) SendText(ctx context.Context, chatID, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.texts = append(f.texts, text)
	return nil
}

func (f *fakeSender) SendDocument(ctx context.Context, chatID, filePath, caption string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.docErr != nil {
		return f.docErr
	}
	f.documents = append(f.documents, filePath)
	return nil
}

func (f *fakeSender) SendChatAction(ctx context.Context, chatID, action string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.actions = append(f.actions, action)
	return nil
}

func (f *fakeSender) allTexts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.texts...)
}

func (f *fakeSender) sentDocuments() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.documents...)
}

func (f *fakeSender) hasText(substr string) bool {
	for _, text := range f.allTexts() {
		if strings.Contains(text, substr) {
			return true
		}
	}
	return false
}

type fakeDocs struct {
	content string
	err     error
}

func (f *fakeDocs) ReadDocument(ctx context.Context, fileID string) (string, error) {
	return f.content, f.err
}

type stageFakes struct {
	dir       string
	uploadErr error
	analyzed  string
	mu        sync.Mutex
}

func (s *stageFakes) Fetch(ctx context.Context, link string) (string, error) {
	path := filepath.Join(s.dir, "download.mp3")
	return path, os.WriteFile(path, []byte("audio"), 0o644)
}

func (s *stageFakes) Normalize(inputPath string) (string, int, error) {
	path := filepath.Join(s.dir, "normalized.ogg")
	return path, 16000, os.WriteFile(path, []byte("ogg"), 0o644)
}

func (s *stageFakes) Upload(ctx context.Context, localPath, objectName string) (string, error) {
	if s.uploadErr != nil {
		return "", s.uploadErr
	}
	return "gs://lectures/" + objectName, nil
}

func (s *stageFakes) Transcribe(ctx context.Context, uri string, sampleRate int) (string, error) {
	return "распознанный текст лекции", nil
}

func (s *stageFakes) Analyze(ctx context.Context, transcript string) (analyze.Result, error) {
	s.mu.Lock()
	s.analyzed = transcript
	s.mu.Unlock()
	return analyze.Result{TeacherSummary: "конспект", StudentSummary: "конспект", Keywords: "слова"}, nil
}

func (s *stageFakes) Write(fields session.Fields, analysis analyze.Result, transcript string) (string, error) {
	path := filepath.Join(s.dir, "report.md")
	return path, os.WriteFile(path, []byte("# Отчет"), 0o644)
}

func (s *stageFakes) analyzedTranscript() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.analyzed
}

type botFixture struct {
	bot    *Bot
	sender *fakeSender
	stages *stageFakes
	store  store.Store
	docs   *fakeDocs
	bus    *eventbus.Bus
}

func newBotFixture(t *testing.T) *botFixture {
	t.Helper()

	logger, err := logging.New(logging.Config{Dir: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { logger.Close() })

	st := store.NewMemory(store.Config{TTL: time.Hour})
	t.Cleanup(func() { st.Close(context.Background()) })

	sender := &fakeSender{}
	docs := &fakeDocs{content: "готовый транскрипт"}
	stages := &stageFakes{dir: t.TempDir()}
	bus := eventbus.New()

	runner := pipeline.NewRunner(pipeline.Deps{
		Fetcher:     stages,
		Normalizer:  stages,
		Uploader:    stages,
		Transcriber: stages,
		Analyzer:    stages,
		Reporter:    stages,
		Deliverer:   NewReportDeliverer(sender, logger),
		Bus:         bus,
		Logger:      logger,
	})

	bot, err := NewBot(BotOptions{
		Engine:  dialog.NewEngine(st, docs, logger),
		Runner:  runner,
		Sender:  sender,
		Store:   st,
		Bus:     bus,
		Logger:  logger,
		Workers: 1,
	})
	require.NoError(t, err)
	t.Cleanup(bot.Stop)

	return &botFixture{bot: bot, sender: sender, stages: stages, store: st, docs: docs, bus: bus}
}

func (f *botFixture) text(chatID int64, text string) {
	f.bot.HandleUpdate(context.Background(), telegram.Update{
		Message: &telegram.Message{Chat: telegram.Chat{ID: chatID}, Text: text},
	})
}

func (f *botFixture) document(chatID int64, name, mime string) {
	f.bot.HandleUpdate(context.Background(), telegram.Update{
		Message: &telegram.Message{
			Chat:     telegram.Chat{ID: chatID},
			Document: &telegram.Document{FileID: "doc-1", FileName: name, MimeType: mime, FileSize: 10},
		},
	})
}

func (f *botFixture) waitSessionCleared(t *testing.T, chatID string) {
	t.Helper()
	require.Eventually(t, func() bool {
		_, found, err := f.store.Get(context.Background(), chatID)
		return err == nil && !found
	}, 5*time.Second, 10*time.Millisecond, "session was not cleared after the run")
	f.bus.WaitAsync()
}

func TestBotFullRegistrationRun(t *testing.T) {
	f := newBotFixture(t)

	f.text(42, "/start")
	f.text(42, "Матанализ")
	f.text(42, "Иванов")
	f.text(42, "10:15-01.09.2025")
	f.text(42, "https://drive.google.com/file/d/abc123/view")

	f.waitSessionCleared(t, "42")

	assert.True(t, f.sender.hasText(msgRunDone), "missing completion message, got: %v", f.sender.allTexts())
	assert.True(t, f.sender.hasText(msgTranscribeDone))
	require.Len(t, f.sender.sentDocuments(), 1)
	assert.Equal(t, "распознанный текст лекции", f.stages.analyzedTranscript())
}

func TestBotUploadFailureReportsStage(t *testing.T) {
	f := newBotFixture(t)
	f.stages.uploadErr = fmt.Errorf("bucket gone")

	f.text(42, "/start")
	f.text(42, "Физика")
	f.text(42, "Петров")
	f.text(42, "09:00-02.09.2025")
	f.text(42, "https://drive.google.com/open?id=xyz789")

	f.waitSessionCleared(t, "42")

	require.Eventually(t, func() bool {
		return f.sender.hasText(msgUploadFailed)
	}, 5*time.Second, 10*time.Millisecond)
	assert.False(t, f.sender.hasText(msgRunDone))
	assert.Empty(t, f.sender.sentDocuments())
}

func TestBotDevModeRunSkipsAudioStages(t *testing.T) {
	f := newBotFixture(t)

	f.text(7, "/dev_process_txt")
	f.text(7, "Матанализ")
	f.text(7, "Иванов")
	f.text(7, "10:15-01.09.2025")
	f.document(7, "lecture.txt", "text/plain")

	f.waitSessionCleared(t, "7")

	assert.Equal(t, "готовый транскрипт", f.stages.analyzedTranscript())
	assert.False(t, f.sender.hasText(msgTranscribeDone))
	require.Len(t, f.sender.sentDocuments(), 1)
}

func TestBotTeacherWithSpacesRejected(t *testing.T) {
	f := newBotFixture(t)

	f.text(42, "/start")
	f.text(42, "Матанализ")
	f.text(42, "Иванов ИИ")

	sess, found, err := f.store.Get(context.Background(), "42")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, session.StateWaitingTeacher, sess.State)
	assert.True(t, f.sender.hasText("без пробелов"))
}

func TestBotIgnoresUpdatesWithoutMessage(t *testing.T) {
	f := newBotFixture(t)
	f.bot.HandleUpdate(context.Background(), telegram.Update{UpdateID: 1})
	assert.Empty(t, f.sender.allTexts())
}
