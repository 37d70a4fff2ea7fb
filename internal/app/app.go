package app

import (
	"context"
	"fmt"
	"time"

	"heylon/internal/config"
	"heylon/internal/contextagg"
	"heylon/internal/engine"
	"heylon/internal/feeds"
	"heylon/internal/jury"
	"heylon/internal/logger"
	"heylon/internal/notifier"
	"heylon/internal/signal"
	"heylon/internal/store/gormstore"
	transporthttp "heylon/internal/transport/http"

	"github.com/robfig/cron/v3"
)

const jobTimeout = 2 * time.Minute

// App wires the full pipeline: webhook server, normalizer, engine, jury,
// context heartbeat and the feed jobs.
type App struct {
	cfg    *config.Manager
	store  *gormstore.Store
	runner *jury.Runner
	server *transporthttp.Server
	agg    *contextagg.Aggregator
	cron   *cron.Cron

	news   *feeds.NewsFetcher
	macro  *feeds.MacroFetcher
	market *feeds.MarketFetcher
	social *feeds.SocialFetcher
}

// New builds the application from the config at path.
func New(cfgPath string) (*App, error) {
	manager, err := config.NewManager(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return build(manager)
}

func build(manager *config.Manager) (*App, error) {
	cfg := manager.Current()

	st, err := gormstore.Open(cfg.App.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	panel := jury.BuildPanel(cfg.Jury)
	runner := jury.NewRunner(st, st, st, panel,
		time.Duration(cfg.Jury.TimeoutSeconds)*time.Second, cfg.Jury.QueueSize)
	runner.SetNotifier(notifier.NewDispatcher(manager))

	eng := engine.New(manager, st, st, st, runner)
	normalizer := signal.NewNormalizer(st, st, eng)
	agg := contextagg.New(manager, st, st, st)

	server, err := transporthttp.NewServer(transporthttp.ServerConfig{
		Addr:          cfg.App.HTTPAddr,
		Config:        manager,
		Raw:           st,
		Signals:       st,
		Decisions:     st,
		Contexts:      st,
		Learning:      st,
		Notifications: st,
		Processor:     normalizer,
	})
	if err != nil {
		return nil, fmt.Errorf("building http server: %w", err)
	}

	return &App{
		cfg:    manager,
		store:  st,
		runner: runner,
		server: server,
		agg:    agg,
		cron:   cron.New(),
		news:   feeds.NewNewsFetcher(manager, st),
		macro:  feeds.NewMacroFetcher(manager, st),
		market: feeds.NewMarketFetcher(manager, st),
		social: feeds.NewSocialFetcher(manager, st, agg),
	}, nil
}

// Run starts the jury consumer, the scheduled jobs and the HTTP server, and
// blocks until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	a.runner.Start(ctx)

	if err := a.schedule(); err != nil {
		return fmt.Errorf("scheduling jobs: %w", err)
	}
	a.cron.Start()
	defer a.cron.Stop()

	logger.Infof("heylon up: %d symbols on watch", len(a.cfg.Current().Watchlist.Symbols))
	return a.server.Run(ctx)
}

func (a *App) schedule() error {
	jobs := []struct {
		spec string
		name string
		fn   func(context.Context) error
	}{
		{"@every 1m", "risk-heartbeat", a.agg.RunRiskCycle},
		{"@every 5m", "market-tick", a.market.Run},
		{"@every 15m", "news-fetch", a.news.Run},
		{"@every 4h", "macro-calendar", a.macro.Run},
		{"@every 30m", "social-scrape", a.social.Run},
	}
	for _, job := range jobs {
		job := job
		_, err := a.cron.AddFunc(job.spec, func() {
			ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
			defer cancel()
			if err := job.fn(ctx); err != nil {
				logger.Errorf("[cron] %s failed: %v", job.name, err)
			}
		})
		if err != nil {
			return fmt.Errorf("adding %s job: %w", job.name, err)
		}
	}
	return nil
}
