package services

import (
	"context"
	"errors"
	"strconv"
	"sync"

	"github.com/google/uuid"

	"github.com/alonePlayerr1/MAI-Bot/internal/domain/dialog"
	"github.com/alonePlayerr1/MAI-Bot/internal/domain/eventbus"
	"github.com/alonePlayerr1/MAI-Bot/internal/domain/pipeline"
	"github.com/alonePlayerr1/MAI-Bot/internal/domain/session"
	"github.com/alonePlayerr1/MAI-Bot/internal/domain/session/store"
	"github.com/alonePlayerr1/MAI-Bot/internal/platform/logging"
	"github.com/alonePlayerr1/MAI-Bot/internal/transport/telegram"
	"github.com/alonePlayerr1/MAI-Bot/internal/util/work"
)

// Progress messages sent while a run moves through its stages.
const (
	msgFetchStarted      = "📥 Начинаю скачивание файла из Google Drive..."
	msgFetchDone         = "👍 Файл из Google Drive успешно скачан."
	msgNormalizeStarted  = "⚙️ Готовлю аудиофайл (конвертирую в формат Opus)..."
	msgNormalizeDone     = "👍 Аудио подготовлено и готово к загрузке."
	msgUploadStarted     = "☁️⬆️ Загружаю файл в облачное хранилище..."
	msgUploadDone        = "👍 Файл успешно загружен в облако."
	msgTranscribeStarted = "🧠 Запускаю распознавание речи (это может занять длительное время)..."
	msgTranscribeDone    = "✅ Распознавание речи успешно завершено!"
	msgAnalyzeStarted    = "📊 Анализирую текст..."
	msgReportStarted     = "✍️ Создаю отчет..."
	msgRunDone           = "✨ Обработка полностью завершена!"
)

// Terminal failure messages, one per fallible stage.
const (
	msgFetchFailed      = "❌ Не удалось скачать файл из Google Drive. Проверьте ссылку и доступ к файлу. Используйте /reset."
	msgNormalizeFailed  = "❌ Не удалось обработать аудиофайл. Используйте /reset."
	msgUploadFailed     = "❌ Не удалось загрузить файл в облачное хранилище. Используйте /reset."
	msgTranscribeFailed = "❌ Не удалось распознать речь в аудио. Используйте /reset."
	msgAnalyzeFailed    = "❌ Не удалось проанализировать текст. Используйте /reset."
	msgDeliverFailed    = "⚠️ Не удалось отправить файл с отчетом."
	msgFatalFailure     = "❌ Произошла непредвиденная ошибка при обработке. Попробуйте снова или используйте /reset."
	msgReportMissing    = "⚠️ Не удалось создать файл отчета."
	msgReportCaption    = "Ваш отчет готов."
)

// runJob carries one pipeline run through the work pool.
type runJob struct {
	ctx context.Context
	req pipeline.Request
}

// BotOptions collects the collaborators of the bot service.
type BotOptions struct {
	Engine  *dialog.Engine
	Runner  *pipeline.Runner
	Sender  telegram.Sender
	Store   store.Store
	Bus     *eventbus.Bus
	Logger  *logging.Logger
	Workers int
}

// Bot glues the transport, the dialog engine and the pipeline together.
type Bot struct {
	engine *dialog.Engine
	runner *pipeline.Runner
	sender telegram.Sender
	store  store.Store
	bus    *eventbus.Bus
	logger *logging.Logger
	pool   *work.Pool

	mu   sync.Mutex
	runs map[string]context.CancelFunc
}

// NewBot wires the service and subscribes it to the pipeline events.
func NewBot(opts BotOptions) (*Bot, error) {
	if opts.Workers <= 0 {
		opts.Workers = 2
	}
	b := &Bot{
		engine: opts.Engine,
		runner: opts.Runner,
		sender: opts.Sender,
		store:  opts.Store,
		bus:    opts.Bus,
		logger: opts.Logger,
		runs:   make(map[string]context.CancelFunc),
	}
	b.pool = work.NewWorkPool(opts.Workers, opts.Workers*4, b.handleJob)
	b.pool.OnError(func(job work.Job, err error) {
		b.logger.ErrorTag("BOT", "run job failed: %v", err)
	})

	if b.bus != nil {
		if err := b.bus.SubscribeAsync(eventbus.TopicStageStarted, b.onStageStarted); err != nil {
			return nil, err
		}
		if err := b.bus.SubscribeAsync(eventbus.TopicStageFinished, b.onStageFinished); err != nil {
			return nil, err
		}
		if err := b.bus.SubscribeAsync(eventbus.TopicRunFinished, b.onRunFinished); err != nil {
			return nil, err
		}
	}
	return b, nil
}

// Stop drains the worker pool and waits for in-flight event handlers.
func (b *Bot) Stop() {
	b.mu.Lock()
	for _, cancel := range b.runs {
		cancel()
	}
	b.mu.Unlock()

	b.pool.Stop()
	if b.bus != nil {
		b.bus.WaitAsync()
	}
}

// HandleUpdate is the webhook entry point.
func (b *Bot) HandleUpdate(ctx context.Context, update telegram.Update) {
	if update.Message == nil {
		return
	}
	ev := dialog.Event{
		ChatID: strconv.FormatInt(update.Message.Chat.ID, 10),
		Text:   update.Message.Text,
	}
	if doc := update.Message.Document; doc != nil {
		ev.Document = &dialog.Document{
			FileID:   doc.FileID,
			FileName: doc.FileName,
			MimeType: doc.MimeType,
			Size:     doc.FileSize,
		}
	}

	action, err := b.engine.Handle(ctx, ev)
	if err != nil {
		b.logger.ErrorTag("BOT", "dialog turn failed for chat %s: %v", ev.ChatID, err)
		return
	}

	if action.CancelRun {
		b.cancelRun(ev.ChatID)
	}
	for _, reply := range action.Replies {
		b.send(ctx, ev.ChatID, reply)
	}
	if action.StartRun && action.Session != nil {
		b.startRun(ev.ChatID, *action.Session)
	}
}

func (b *Bot) startRun(chatID string, sess session.Session) {
	runCtx, cancel := context.WithCancel(context.Background())

	b.mu.Lock()
	if _, busy := b.runs[chatID]; busy {
		b.mu.Unlock()
		cancel()
		b.logger.WarnTag("BOT", "chat %s already has a run in flight", chatID)
		return
	}
	b.runs[chatID] = cancel
	b.mu.Unlock()

	req := pipeline.Request{
		RunID:  uuid.NewString(),
		ChatID: chatID,
		Mode:   sess.Mode,
		Fields: sess.Fields,
	}
	b.logger.InfoTag("BOT", "starting run %s for chat %s (mode %s)", req.RunID, chatID, sess.Mode)

	if err := b.pool.Submit(runJob{ctx: runCtx, req: req}); err != nil {
		b.clearRun(chatID)
		b.logger.ErrorTag("BOT", "failed to queue run for chat %s: %v", chatID, err)
		b.send(context.Background(), chatID, msgFatalFailure)
		if derr := b.store.Delete(context.Background(), chatID); derr != nil {
			b.logger.WarnTag("BOT", "failed to clear session for chat %s: %v", chatID, derr)
		}
	}
}

func (b *Bot) handleJob(job work.Job) error {
	run, ok := job.(runJob)
	if !ok {
		return errors.New("unexpected job type")
	}
	result := b.runner.Run(run.ctx, run.req)
	if result.Err != nil {
		b.logger.WarnTag("BOT", "run %s ended at stage %s: %v", result.RunID, result.Stage, result.Err)
	}
	return nil
}

func (b *Bot) cancelRun(chatID string) {
	b.mu.Lock()
	cancel, ok := b.runs[chatID]
	b.mu.Unlock()
	if ok {
		cancel()
	}
}

func (b *Bot) clearRun(chatID string) {
	b.mu.Lock()
	if cancel, ok := b.runs[chatID]; ok {
		cancel()
		delete(b.runs, chatID)
	}
	b.mu.Unlock()
}

func (b *Bot) onStageStarted(ev eventbus.StageEvent) {
	msg, ok := stageStartedMessages[pipeline.Stage(ev.Stage)]
	if !ok {
		return
	}
	ctx := context.Background()
	if err := b.sender.SendChatAction(ctx, ev.ChatID, telegram.ActionTyping); err != nil {
		b.logger.DebugTag("BOT", "chat action failed for chat %s: %v", ev.ChatID, err)
	}
	b.send(ctx, ev.ChatID, msg)
}

func (b *Bot) onStageFinished(ev eventbus.StageEvent) {
	if ev.Err != nil {
		return
	}
	msg, ok := stageFinishedMessages[pipeline.Stage(ev.Stage)]
	if !ok {
		return
	}
	b.send(context.Background(), ev.ChatID, msg)
}

func (b *Bot) onRunFinished(result pipeline.Result) {
	b.clearRun(result.ChatID)

	ctx := context.Background()
	if derr := b.store.Delete(ctx, result.ChatID); derr != nil {
		b.logger.WarnTag("BOT", "failed to clear session for chat %s: %v", result.ChatID, derr)
	}

	switch result.Status {
	case pipeline.StatusSuccess:
		b.logger.InfoTag("BOT", "run %s finished for chat %s", result.RunID, result.ChatID)
	case pipeline.StatusStageFailure:
		if errors.Is(result.Err, context.Canceled) {
			b.logger.InfoTag("BOT", "run %s cancelled for chat %s", result.RunID, result.ChatID)
			return
		}
		b.send(ctx, result.ChatID, stageFailureMessage(result.Stage))
	case pipeline.StatusFatal:
		b.send(ctx, result.ChatID, msgFatalFailure)
	}
}

func (b *Bot) send(ctx context.Context, chatID, text string) {
	if err := b.sender.SendText(ctx, chatID, text); err != nil {
		b.logger.WarnTag("BOT", "failed to message chat %s: %v", chatID, err)
	}
}

var stageStartedMessages = map[pipeline.Stage]string{
	pipeline.StageFetch:      msgFetchStarted,
	pipeline.StageNormalize:  msgNormalizeStarted,
	pipeline.StageUpload:     msgUploadStarted,
	pipeline.StageTranscribe: msgTranscribeStarted,
	pipeline.StageAnalyze:    msgAnalyzeStarted,
	pipeline.StageReport:     msgReportStarted,
}

var stageFinishedMessages = map[pipeline.Stage]string{
	pipeline.StageFetch:      msgFetchDone,
	pipeline.StageNormalize:  msgNormalizeDone,
	pipeline.StageUpload:     msgUploadDone,
	pipeline.StageTranscribe: msgTranscribeDone,
}

func stageFailureMessage(stage pipeline.Stage) string {
	switch stage {
	case pipeline.StageFetch:
		return msgFetchFailed
	case pipeline.StageNormalize:
		return msgNormalizeFailed
	case pipeline.StageUpload:
		return msgUploadFailed
	case pipeline.StageTranscribe:
		return msgTranscribeFailed
	case pipeline.StageAnalyze:
		return msgAnalyzeFailed
	case pipeline.StageDeliver:
		return msgDeliverFailed
	default:
		return msgFatalFailure
	}
}
