package telegram

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/alonePlayerr1/MAI-Bot/internal/platform/logging"
)

// UpdateHandler consumes decoded webhook updates.
type UpdateHandler func(ctx context.Context, update Update)

// ServerOptions configures the webhook server.
type ServerOptions struct {
	Addr        string
	WebhookPath string
	Logger      *logging.Logger
	Handler     UpdateHandler
	Debug       bool

	// Stats is polled by the status endpoint; optional.
	Stats func(ctx context.Context) (map[string]any, error)
}

// Server receives webhook updates and exposes health/status endpoints on
// the same router.
type Server struct {
	engine *gin.Engine
	http   *http.Server
	logger *logging.Logger
	start  time.Time
}

// NewServer builds the gin engine with logging, recovery and CORS.
func NewServer(opts ServerOptions) (*Server, error) {
	if opts.Handler == nil {
		return nil, fmt.Errorf("webhook server requires update handler")
	}
	if opts.WebhookPath == "" {
		opts.WebhookPath = "/webhook"
	}

	if opts.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(loggingMiddleware(opts.Logger))
	engine.SetTrustedProxies([]string{"0.0.0.0"})

	engine.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	s := &Server{
		engine: engine,
		logger: opts.Logger,
		start:  time.Now(),
	}

	engine.POST(opts.WebhookPath, s.webhookHandler(opts.Handler))
	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	engine.GET("/api/status", func(c *gin.Context) {
		status := gin.H{
			"status":         "ok",
			"uptime_seconds": int(time.Since(s.start).Seconds()),
		}
		if opts.Stats != nil {
			if stats, err := opts.Stats(c.Request.Context()); err == nil {
				status["sessions"] = stats
			}
		}
		c.JSON(http.StatusOK, status)
	})

	s.http = &http.Server{
		Addr:    opts.Addr,
		Handler: engine,
	}
	return s, nil
}

func (s *Server) webhookHandler(handler UpdateHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
			return
		}

		var update Update
		if err := sonic.Unmarshal(body, &update); err != nil {
			if s.logger != nil {
				s.logger.WarnTag("HTTP", "malformed webhook payload: %v", err)
			}
			c.JSON(http.StatusBadRequest, gin.H{"error": "malformed update"})
			return
		}

		handler(c.Request.Context(), update)
		c.JSON(http.StatusOK, gin.H{"ok": true})
	}
}

// Engine exposes the router, used by tests.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Run serves until the listener fails or Shutdown is called.
func (s *Server) Run() error {
	if s.logger != nil {
		s.logger.InfoTag("HTTP", "webhook server listening on %s", s.http.Addr)
	}
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops the HTTP server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func loggingMiddleware(logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		if logger != nil {
			logger.InfoTag("HTTP", "%s %s -> %d (%s)",
				c.Request.Method,
				c.Request.URL.Path,
				c.Writer.Status(),
				time.Since(start),
			)
		}
	}
}
