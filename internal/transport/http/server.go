package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"heylon/internal/config"
	"heylon/internal/logger"
	"heylon/internal/store"

	"github.com/gin-gonic/gin"
)

// Processor triggers async normalization of a raw event. *signal.Normalizer
// satisfies it.
type Processor interface {
	Process(ctx context.Context, rawID string) error
}

// Server is the HTTP boundary: the PineScript webhook plus the read API the
// dashboard consumes.
type Server struct {
	addr      string
	cfg       *config.Manager
	raw       store.RawEventStore
	signals   store.SignalStore
	decisions store.DecisionStore
	contexts  store.ContextStore
	learning  store.LearningStore
	notes     store.NotificationStore
	processor Processor

	router *gin.Engine
	srv    *http.Server
}

type ServerConfig struct {
	Addr          string
	Config        *config.Manager
	Raw           store.RawEventStore
	Signals       store.SignalStore
	Decisions     store.DecisionStore
	Contexts      store.ContextStore
	Learning      store.LearningStore
	Notifications store.NotificationStore
	Processor     Processor
}

func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Raw == nil || cfg.Processor == nil {
		return nil, errors.New("raw store and processor are required")
	}
	if cfg.Addr == "" {
		cfg.Addr = ":9980"
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())

	s := &Server{
		addr:      cfg.Addr,
		cfg:       cfg.Config,
		raw:       cfg.Raw,
		signals:   cfg.Signals,
		decisions: cfg.Decisions,
		contexts:  cfg.Contexts,
		learning:  cfg.Learning,
		notes:     cfg.Notifications,
		processor: cfg.Processor,
		router:    router,
	}
	s.registerRoutes()
	return s, nil
}

func (s *Server) registerRoutes() {
	s.router.GET("/healthz", s.handleHealth)
	s.router.POST("/webhook/pinescript", s.handleWebhook)

	api := s.router.Group("/api")
	api.GET("/state", s.handleFullState)
	api.GET("/decision/:symbol", s.handleDecision)
	api.GET("/signals/:symbol", s.handleSignals)
	api.GET("/context/:symbol", s.handleContext)
	api.GET("/logs", s.handleLearningLogs)
	api.POST("/logs/:id/outcome", s.handleOutcome)
	api.GET("/notifications", s.handleNotifications)
}

// Run serves until ctx is cancelled, then drains with a short grace period.
func (s *Server) Run(ctx context.Context) error {
	s.srv = &http.Server{Addr: s.addr, Handler: s.router}
	errCh := make(chan error, 1)
	go func() {
		logger.Infof("[http] listening on %s", s.addr)
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return <-errCh
	}
}

// Handler exposes the router. Tests use it with httptest.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "time": time.Now().UnixMilli()})
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debugf("[http] %s %s -> %d (%s)", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}
