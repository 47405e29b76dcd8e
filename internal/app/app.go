package app

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"oraclewatcher/internal/alerting"
	"oraclewatcher/internal/client"
	"oraclewatcher/internal/config"
	"oraclewatcher/internal/consumer"
	"oraclewatcher/internal/events"
	"oraclewatcher/internal/queue"
	"oraclewatcher/internal/scheduler"
	"oraclewatcher/internal/service"
	"oraclewatcher/internal/storage"
	"oraclewatcher/internal/submit"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

func (a *App) newDiscoverer() client.Discoverer {
	return client.NewDiscovery(client.DiscoveryOptions{
		RPCURL:  a.Config.Discovery.RPCURL,
		Timeout: a.Config.Discovery.RequestTimeout,
	}, a.Logger)
}

func (a *App) newCrossbar() *client.Crossbar {
	return client.NewCrossbar(client.CrossbarOptions{
		URL:       a.Config.Crossbar.URL,
		Timeout:   a.Config.Crossbar.RequestTimeout,
		UserAgent: a.Config.Crossbar.UserAgent,
	}, a.Logger)
}

func (a *App) newNotifier() alerting.Notifier {
	if a.Config.Alerting.Telegram.Enabled {
		cfg := a.Config.Alerting.Telegram
		return alerting.NewTelegramNotifier(cfg.BotToken, cfg.ChatID, cfg.APIBase, 10*time.Second, a.Logger)
	}
	return nil
}

func (a *App) openStore(ctx context.Context) (*storage.Store, func(), error) {
	if a.Config.Database.DSN == "" {
		return nil, nil, nil
	}

	pool, err := storage.NewPool(ctx, a.Config.Database)
	if err != nil {
		return nil, nil, err
	}

	store := storage.NewStore(pool)
	closer := func() {
		store.Close()
	}
	return store, closer, nil
}

// eventProxy forwards to whichever Sink is bound after construction. It
// exists because the submit engine and consumer verifier are built before
// the Service that ultimately serves as their event sink.
type eventProxy struct {
	target events.Sink
}

func (p *eventProxy) bind(sink events.Sink) { p.target = sink }

func (p *eventProxy) QuoteVerified(e events.QuoteVerified) {
	if p.target != nil {
		p.target.QuoteVerified(e)
	}
}
func (p *eventProxy) SignatureInvalid(e events.SignatureInvalid) {
	if p.target != nil {
		p.target.SignatureInvalid(e)
	}
}
func (p *eventProxy) AggregatorAuthorityUpdated(e events.AggregatorAuthorityUpdated) {
	if p.target != nil {
		p.target.AggregatorAuthorityUpdated(e)
	}
}
func (p *eventProxy) QueueAuthorityUpdated(e events.QueueAuthorityUpdated) {
	if p.target != nil {
		p.target.QueueAuthorityUpdated(e)
	}
}
func (p *eventProxy) QueueFeeTypeAdded(e events.QueueFeeTypeAdded) {
	if p.target != nil {
		p.target.QueueFeeTypeAdded(e)
	}
}
func (p *eventProxy) QueueFeeTypeRemoved(e events.QueueFeeTypeRemoved) {
	if p.target != nil {
		p.target.QueueFeeTypeRemoved(e)
	}
}
func (p *eventProxy) QueueCreated(e events.QueueCreated) {
	if p.target != nil {
		p.target.QueueCreated(e)
	}
}

var _ events.Sink = (*eventProxy)(nil)

// resolveCommittee discovers the queue and its committee over RPC and
// constructs the submit engine and consumer verifier bound to it, emitting
// through sink.
func (a *App) resolveCommittee(ctx context.Context, discoverer client.Discoverer, sink events.Sink) (*submit.Engine, *consumer.Verifier, []*queue.Oracle, error) {
	queueID, err := client.ParseID(a.Config.Discovery.QueueID)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("parse discovery.queue_id: %w", err)
	}

	q, err := discoverer.FetchQueue(ctx, queueID)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("fetch queue: %w", err)
	}

	oracles, err := discoverer.FetchOracles(ctx, queueID)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("fetch oracles: %w", err)
	}

	committee := make([]*queue.Oracle, len(oracles))
	for i := range oracles {
		committee[i] = &oracles[i]
	}

	engine := submit.NewEngine(&q, sink)
	verifier := consumer.New(q.QueueKey, sink)
	return engine, verifier, committee, nil
}

// Run executes the long-running verifier service.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		a.Logger.Warn().Msg("database.dsn not configured; persistence disabled")
	}
	if closeStore != nil {
		defer closeStore()
	}

	sched := scheduler.New(scheduler.Options{
		Interval:     a.Config.Scheduler.Interval,
		AlignToStart: a.Config.Scheduler.AlignToBucket,
		StartupDelay: a.Config.Scheduler.StartupDelay,
	}, a.Logger)

	discoverer := a.newDiscoverer()
	crossbar := a.newCrossbar()
	if err := crossbar.Connect(ctx); err != nil {
		return fmt.Errorf("connect to crossbar: %w", err)
	}
	defer crossbar.Close()

	notifier := a.newNotifier()

	var quoteStore storage.QuoteStore
	var eventStore storage.EventStore
	if store != nil {
		quoteStore = store
		eventStore = store
	}

	proxy := &eventProxy{}
	engine, verifier, committee, err := a.resolveCommittee(ctx, discoverer, proxy)
	if err != nil {
		return err
	}

	svc := service.New(a.Config, sched, crossbar, engine, verifier, committee, quoteStore, eventStore, notifier, a.Logger)
	proxy.bind(svc)

	a.Logger.Info().Msg("starting verifier service")
	err = svc.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("service terminated with error")
		return err
	}

	a.Logger.Info().Msg("verifier service stopped")
	return nil
}

// ExportOptions hold parameters for exporting a feed's historical quotes.
type ExportOptions struct {
	FeedID    [32]byte
	From      *time.Time
	To        *time.Time
	PNGPath   string
	CSVPath   string
	MaxPoints int
}

// ShowOptions configure the show command. When FeedID is set, Show prints
// that feed's recent quotes instead of the recent event log.
type ShowOptions struct {
	Limit  int
	FeedID *[32]byte
}

// BackfillOptions configure the backfill job.
type BackfillOptions struct {
	Submissions []submit.CommitteeSubmission
	DryRun      bool
	Workers     int
}
