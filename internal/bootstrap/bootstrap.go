package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alonePlayerr1/MAI-Bot/internal/app/services"
	"github.com/alonePlayerr1/MAI-Bot/internal/domain/analyze"
	"github.com/alonePlayerr1/MAI-Bot/internal/domain/audio"
	"github.com/alonePlayerr1/MAI-Bot/internal/domain/dialog"
	"github.com/alonePlayerr1/MAI-Bot/internal/domain/eventbus"
	"github.com/alonePlayerr1/MAI-Bot/internal/domain/fetch"
	"github.com/alonePlayerr1/MAI-Bot/internal/domain/objstore"
	"github.com/alonePlayerr1/MAI-Bot/internal/domain/pipeline"
	"github.com/alonePlayerr1/MAI-Bot/internal/domain/report"
	sessionstore "github.com/alonePlayerr1/MAI-Bot/internal/domain/session/store"
	"github.com/alonePlayerr1/MAI-Bot/internal/domain/stt"
	platformconfig "github.com/alonePlayerr1/MAI-Bot/internal/platform/config"
	platformerrors "github.com/alonePlayerr1/MAI-Bot/internal/platform/errors"
	platformlogging "github.com/alonePlayerr1/MAI-Bot/internal/platform/logging"
	"github.com/alonePlayerr1/MAI-Bot/internal/transport/telegram"
)

type stepFn func(context.Context, *appState) error

type initStep struct {
	ID        string
	Title     string
	DependsOn []string
	Kind      platformerrors.Kind
	Execute   stepFn
}

type appState struct {
	config     *platformconfig.Config
	configPath string
	logger     *platformlogging.Logger

	sessions    sessionstore.Store
	objects     *objstore.BucketStore
	transcriber stt.Transcriber
	analyzer    analyze.Analyzer
	bus         *eventbus.Bus
	runner      *pipeline.Runner
	client      *telegram.Client
	bot         *services.Bot
	server      *telegram.Server
}

// Run drives the full service lifecycle: configuration, wiring, serving and
// graceful shutdown.
func Run(ctx context.Context) error {
	state := &appState{}

	if err := executeInitSteps(ctx, InitGraph(), state); err != nil {
		return err
	}

	logger := state.logger
	if state.config == nil || logger == nil {
		return platformerrors.New(
			platformerrors.KindBootstrap,
			"bootstrap state validation",
			"config/logger not initialised",
		)
	}
	defer logger.Close()
	defer func() {
		if closeErr := state.sessions.Close(context.Background()); closeErr != nil {
			logger.ErrorTag("STORE", "session store did not close cleanly: %v", closeErr)
		}
	}()

	rootCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	signalCtx, stop := signal.NotifyContext(rootCtx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(rootCtx)
	group.Go(func() error {
		return state.server.Run()
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		return state.server.Shutdown(shutdownCtx)
	})
	group.Go(func() error {
		return runSessionGC(groupCtx, state.sessions, logger)
	})

	logger.InfoTag("BOT", "service started, config loaded from %s", state.configPath)

	<-signalCtx.Done()
	logger.InfoTag("BOT", "shutdown signal received")
	cancel()

	err := group.Wait()
	state.bot.Stop()
	if err != nil && !errors.Is(err, context.Canceled) {
		return platformerrors.Wrap(platformerrors.KindBootstrap, "bootstrap shutdown", "service exited with error", err)
	}
	logger.InfoTag("BOT", "service stopped")
	return nil
}

// runSessionGC periodically evicts expired sessions for stores without a
// native TTL.
func runSessionGC(ctx context.Context, st sessionstore.Store, logger *platformlogging.Logger) error {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := st.CleanupExpired(ctx); err != nil {
				logger.WarnTag("STORE", "session cleanup failed: %v", err)
			}
		}
	}
}

func executeInitSteps(ctx context.Context, steps []initStep, state *appState) error {
	if state == nil {
		return platformerrors.New(
			platformerrors.KindBootstrap,
			"execute init steps",
			"nil bootstrap state",
		)
	}

	completed := make(map[string]struct{}, len(steps))
	for _, step := range steps {
		for _, dep := range step.DependsOn {
			if _, ok := completed[dep]; !ok {
				return platformerrors.New(
					platformerrors.KindBootstrap,
					step.ID,
					fmt.Sprintf("dependency %s not satisfied", dep),
				)
			}
		}
		if step.Execute == nil {
			return platformerrors.New(
				platformerrors.KindBootstrap,
				step.ID,
				"missing execute function",
			)
		}
		if err := step.Execute(ctx, state); err != nil {
			var typed *platformerrors.Error
			if errors.As(err, &typed) {
				return err
			}

			kind := step.Kind
			if kind == "" {
				kind = platformerrors.KindBootstrap
			}
			return platformerrors.Wrap(kind, step.ID, "bootstrap step failed", err)
		}
		completed[step.ID] = struct{}{}
	}
	return nil
}

// InitGraph lists the initialisation steps in dependency order.
func InitGraph() []initStep {
	return []initStep{
		{
			ID:      "config:load",
			Title:   "Load configuration",
			Kind:    platformerrors.KindConfig,
			Execute: stepLoadConfig,
		},
		{
			ID:        "logging:init-provider",
			Title:     "Initialise logging provider",
			DependsOn: []string{"config:load"},
			Execute:   stepInitLogging,
		},
		{
			ID:        "storage:init-session-store",
			Title:     "Initialise session store",
			DependsOn: []string{"config:load", "logging:init-provider"},
			Kind:      platformerrors.KindStorage,
			Execute:   stepInitSessionStore,
		},
		{
			ID:        "storage:init-object-store",
			Title:     "Initialise object store",
			DependsOn: []string{"config:load", "logging:init-provider"},
			Kind:      platformerrors.KindStorage,
			Execute:   stepInitObjectStore,
		},
		{
			ID:        "providers:init-stt",
			Title:     "Initialise speech recognition provider",
			DependsOn: []string{"storage:init-object-store"},
			Execute:   stepInitSTT,
		},
		{
			ID:        "providers:init-analyzer",
			Title:     "Initialise text analyzer",
			DependsOn: []string{"config:load"},
			Execute:   stepInitAnalyzer,
		},
		{
			ID:        "transport:init-client",
			Title:     "Initialise bot API client",
			DependsOn: []string{"config:load"},
			Kind:      platformerrors.KindTransport,
			Execute:   stepInitClient,
		},
		{
			ID:        "pipeline:init-runner",
			Title:     "Initialise processing pipeline",
			DependsOn: []string{"providers:init-stt", "providers:init-analyzer", "transport:init-client"},
			Kind:      platformerrors.KindPipeline,
			Execute:   stepInitRunner,
		},
		{
			ID:        "services:init-bot",
			Title:     "Initialise bot service",
			DependsOn: []string{"storage:init-session-store", "pipeline:init-runner"},
			Execute:   stepInitBot,
		},
	}
}

func stepLoadConfig(_ context.Context, state *appState) error {
	result, err := platformconfig.NewLoader().Load()
	if err != nil {
		return err
	}
	state.config = result.Config
	state.configPath = result.Path
	return nil
}

func stepInitLogging(_ context.Context, state *appState) error {
	logger, err := platformlogging.New(state.config.Log)
	if err != nil {
		return err
	}
	state.logger = logger
	return nil
}

func stepInitSessionStore(_ context.Context, state *appState) error {
	cfg := state.config.Session.Store
	storeCfg := sessionstore.Config{
		Driver: cfg.Type,
		TTL:    state.config.SessionTTL(),
	}
	deps := sessionstore.Dependencies{}

	switch cfg.Type {
	case sessionstore.DriverSQLite:
		db, err := sessionstore.OpenSQLite(cfg.Sqlite.DSN)
		if err != nil {
			return err
		}
		deps.SQLiteDB = db
		storeCfg.SQLite = &sessionstore.SQLiteConfig{DSN: cfg.Sqlite.DSN}
	case sessionstore.DriverRedis:
		storeCfg.Redis = &sessionstore.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Username: cfg.Redis.Username,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}
	case sessionstore.DriverMemory, "":
		if cfg.Memory.Cleanup != "" {
			if interval, err := time.ParseDuration(cfg.Memory.Cleanup); err == nil {
				storeCfg.Memory = &sessionstore.MemoryConfig{GCInterval: interval}
			}
		}
	}

	st, err := sessionstore.New(storeCfg, deps)
	if err != nil {
		return err
	}
	state.sessions = st
	state.logger.InfoTag("STORE", "session store ready (driver %s)", storeCfg.Driver)
	return nil
}

func stepInitObjectStore(_ context.Context, state *appState) error {
	if err := os.MkdirAll(state.config.Pipeline.ScratchDir, 0o755); err != nil {
		return fmt.Errorf("create scratch dir: %w", err)
	}
	store, err := objstore.NewBucketStore(state.config.Storage.Bucket, state.config.Storage.Root)
	if err != nil {
		return err
	}
	state.objects = store
	return nil
}

func stepInitSTT(_ context.Context, state *appState) error {
	cfg := state.config.STT
	transcriber, err := stt.Create(cfg.Provider, stt.Config{
		Provider:    cfg.Provider,
		APIKey:      cfg.APIKey,
		BaseURL:     cfg.BaseURL,
		Model:       cfg.Model,
		Language:    cfg.Language,
		ResolvePath: state.objects.LocalPath,
	})
	if err != nil {
		return err
	}
	state.transcriber = transcriber
	state.logger.InfoTag("STT", "provider %s ready", cfg.Provider)
	return nil
}

func stepInitAnalyzer(_ context.Context, state *appState) error {
	cfg := state.config.LLM
	analyzer, err := analyze.NewOpenAI(analyze.Config{
		APIKey:      cfg.APIKey,
		BaseURL:     cfg.BaseURL,
		Model:       cfg.Model,
		MaxTokens:   cfg.MaxTokens,
		Temperature: cfg.Temperature,
	})
	if err != nil {
		return err
	}
	state.analyzer = analyzer
	return nil
}

func stepInitClient(_ context.Context, state *appState) error {
	opts := []telegram.ClientOption{}
	if state.config.Telegram.APIBase != "" {
		opts = append(opts, telegram.WithAPIBase(state.config.Telegram.APIBase))
	}
	client, err := telegram.NewClient(state.config.Telegram.Token, opts...)
	if err != nil {
		return err
	}
	state.client = client
	return nil
}

func stepInitRunner(_ context.Context, state *appState) error {
	scratch := state.config.Pipeline.ScratchDir
	state.bus = eventbus.New()
	state.runner = pipeline.NewRunner(pipeline.Deps{
		Fetcher:     fetch.NewFetcher(scratch),
		Normalizer:  audio.NewNormalizer(scratch),
		Uploader:    state.objects,
		Transcriber: services.NewSTTTranscriber(state.transcriber, state.config.TranscribeTimeout()),
		Analyzer:    state.analyzer,
		Reporter:    report.NewWriter(scratch),
		Deliverer:   services.NewReportDeliverer(state.client, state.logger),
		Bus:         state.bus,
		Logger:      state.logger,
	})
	return nil
}

func stepInitBot(_ context.Context, state *appState) error {
	bot, err := services.NewBot(services.BotOptions{
		Engine:  dialog.NewEngine(state.sessions, state.client, state.logger),
		Runner:  state.runner,
		Sender:  state.client,
		Store:   state.sessions,
		Bus:     state.bus,
		Logger:  state.logger,
		Workers: state.config.Pipeline.Workers,
	})
	if err != nil {
		return err
	}
	state.bot = bot

	server, err := telegram.NewServer(telegram.ServerOptions{
		Addr:        fmt.Sprintf("%s:%d", state.config.Telegram.WebhookIP, state.config.Telegram.WebhookPort),
		WebhookPath: state.config.Telegram.WebhookPath,
		Logger:      state.logger,
		Handler:     bot.HandleUpdate,
		Debug:       strings.EqualFold(state.config.Log.Level, "debug"),
		Stats:       state.sessions.Stats,
	})
	if err != nil {
		return err
	}
	state.server = server
	return nil
}
