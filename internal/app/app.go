// Package app wires all screeningd subsystems into a running application.
//
// The App struct owns the full lifecycle: New creates and connects all
// subsystems, Run starts the HTTP/WebSocket server and blocks until ctx is
// cancelled, and Shutdown tears everything down in order.
//
// For testing, inject repository/publisher doubles via functional options
// (WithApplicationRepository, WithEventPublisher, etc.). When an option is
// not provided, New creates the real Postgres/AMQP-backed implementation
// from the config.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"go.opentelemetry.io/otel"

	"github.com/MrWong99/screeningd/internal/analysis"
	"github.com/MrWong99/screeningd/internal/application"
	"github.com/MrWong99/screeningd/internal/call"
	"github.com/MrWong99/screeningd/internal/config"
	"github.com/MrWong99/screeningd/internal/dialog"
	"github.com/MrWong99/screeningd/internal/domain"
	"github.com/MrWong99/screeningd/internal/embeddingstore"
	"github.com/MrWong99/screeningd/internal/eventbus"
	"github.com/MrWong99/screeningd/internal/health"
	"github.com/MrWong99/screeningd/internal/modelclient"
	"github.com/MrWong99/screeningd/internal/observe"
	"github.com/MrWong99/screeningd/internal/outbox"
	"github.com/MrWong99/screeningd/internal/storage"
	"github.com/MrWong99/screeningd/internal/subscribers"
	"github.com/MrWong99/screeningd/internal/transcriber"
	"github.com/MrWong99/screeningd/internal/transport/httpapi"
	"github.com/MrWong99/screeningd/internal/transport/wsapi"
	"github.com/MrWong99/screeningd/internal/upstream"
	"github.com/MrWong99/screeningd/internal/workerpool"
)

// modelClientRetries bounds the embed/chat model clients' internal retry
// count. Upstream lookup retries are separately configured via
// config.UpstreamConfig.Retries.
const modelClientRetries = 3

// workerPoolSize bounds concurrent CreateApplication event publishes.
const workerPoolSize = 8

// App owns all subsystem lifetimes and serves the screening HTTP/WebSocket API.
type App struct {
	cfg *config.Config

	// Repositories — a *storage.Pool backs all four unless individually
	// injected via options.
	storagePool    *storage.Pool
	applications   domain.ApplicationRepository
	callRepo       domain.CallRepository
	analysisRepo   domain.AnalysisRepository
	outboxStore    outbox.Store
	embeddingStore domain.EmbeddingStore

	publisher domain.EventPublisher
	broker    *eventbus.Broker // nil when a publisher was injected
	reliable  *eventbus.ReliablePublisher

	metrics *observe.Metrics

	applicationService *application.Service
	callService        *call.Service
	analysisService    *analysis.Service
	dialogEngine       *dialog.Engine

	httpServer *http.Server

	otelShutdown func(context.Context) error

	// closers are called in reverse order during Shutdown.
	closers []func() error

	stopOnce sync.Once
}

// Option is a functional option for New. Use these to inject test doubles.
type Option func(*App)

// WithApplicationRepository injects the applications/candidates/job-offer
// repository instead of creating one from config.
func WithApplicationRepository(r domain.ApplicationRepository) Option {
	return func(a *App) { a.applications = r }
}

// WithCallRepository injects the call repository.
func WithCallRepository(r domain.CallRepository) Option {
	return func(a *App) { a.callRepo = r }
}

// WithAnalysisRepository injects the analysis repository.
func WithAnalysisRepository(r domain.AnalysisRepository) Option {
	return func(a *App) { a.analysisRepo = r }
}

// WithEmbeddingStore injects the embedding store.
func WithEmbeddingStore(s domain.EmbeddingStore) Option {
	return func(a *App) { a.embeddingStore = s }
}

// WithOutboxStore injects the outbox store backing the reliable publisher.
func WithOutboxStore(s outbox.Store) Option {
	return func(a *App) { a.outboxStore = s }
}

// WithEventPublisher injects the event publisher directly, bypassing the
// AMQP broker and outbox entirely (e.g. an in-process bus in tests).
func WithEventPublisher(p domain.EventPublisher) Option {
	return func(a *App) { a.publisher = p }
}

// WithMetrics injects a Metrics instance instead of creating one from the
// global OTel provider.
func WithMetrics(m *observe.Metrics) Option {
	return func(a *App) { a.metrics = m }
}

// New wires every subsystem together: storage, the outbox-backed event
// bus, upstream/model clients, the application/call/analysis services,
// the event subscribers, the dialog engine, and the HTTP/WebSocket
// transport. New performs all initialisation synchronously; Run starts
// serving.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	a := &App{cfg: cfg}
	for _, o := range opts {
		o(a)
	}

	if err := a.initObservability(ctx); err != nil {
		return nil, fmt.Errorf("app: init observability: %w", err)
	}

	if err := a.initStorage(ctx); err != nil {
		return nil, fmt.Errorf("app: init storage: %w", err)
	}

	if err := a.initEventBus(ctx); err != nil {
		return nil, fmt.Errorf("app: init event bus: %w", err)
	}

	embedder, chat, bios, opportunities := a.buildInstrumentedClients()

	pool := workerpool.New(workerPoolSize)
	a.applicationService = application.New(bios, opportunities, a.applications, a.publisher, pool)
	a.callService = call.New(a.callRepo, a.publisher)
	a.analysisService = analysis.New(a.callRepo, a.applications, embeddingsLookup(a.embeddingStore), a.analysisRepo, a.publisher)

	a.registerSubscribers(embedder)

	interviewer := dialog.NewEmma(chat)
	var audioTranscriber transcriber.Transcriber
	if cfg.Model.BaseURL != "" {
		audioTranscriber = transcriber.NewWhisperClient(cfg.Model.BaseURL, "en", cfg.Model.Timeout)
	}
	a.dialogEngine = dialog.New(a.callService, interviewer, audioTranscriber, dialogConfigFromCfg(cfg.Dialog))

	a.httpServer = &http.Server{
		Addr:    cfg.Server.ListenAddr,
		Handler: a.buildRootHandler(),
	}

	return a, nil
}

// initObservability starts the OTel SDK (metrics + tracing) unless a
// Metrics instance was injected.
func (a *App) initObservability(ctx context.Context) error {
	if a.metrics != nil {
		return nil
	}

	shutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{ServiceName: "screeningd"})
	if err != nil {
		return err
	}
	a.otelShutdown = shutdown

	m, err := observe.NewMetrics(otel.GetMeterProvider())
	if err != nil {
		return err
	}
	a.metrics = m
	return nil
}

// buildRootHandler composes the application HTTP API, the WebSocket call
// endpoint, and the health checks under one mux, wrapped with the
// metrics/tracing middleware.
func (a *App) buildRootHandler() http.Handler {
	apiServer := httpapi.New(a.applicationService, a.analysisService, a.cfg.CORS.AllowedOrigins)
	wsHandler := wsapi.NewHandler(a.dialogEngine, a.cfg.CORS.AllowedOrigins, a.metrics)
	healthHandler := health.New(a.healthCheckers()...)

	mux := http.NewServeMux()
	mux.Handle("/", apiServer.Handler())
	mux.Handle("/ws/call", wsHandler)
	healthHandler.Register(mux)

	return observe.Middleware(a.metrics)(mux)
}

// healthCheckers builds the readiness checks exposed at /readyz.
func (a *App) healthCheckers() []health.Checker {
	var checkers []health.Checker
	if a.storagePool != nil {
		checkers = append(checkers, health.Checker{
			Name:  "database",
			Check: func(ctx context.Context) error { return a.storagePool.Ping(ctx) },
		})
	}
	return checkers
}

// initStorage connects the Postgres-backed repositories and the
// pgvector-backed embedding store, unless every repository was injected.
func (a *App) initStorage(ctx context.Context) error {
	needPool := a.applications == nil || a.callRepo == nil || a.analysisRepo == nil || a.outboxStore == nil
	if needPool {
		if a.cfg.Database.URL == "" {
			return fmt.Errorf("database.url is required when repositories are not injected")
		}
		pool, err := storage.Open(ctx, a.cfg.Database.URL)
		if err != nil {
			return err
		}
		a.storagePool = pool
		a.closers = append(a.closers, func() error { pool.Close(); return nil })

		if a.applications == nil {
			a.applications = pool.Applications()
		}
		if a.callRepo == nil {
			a.callRepo = pool.Calls()
		}
		if a.analysisRepo == nil {
			a.analysisRepo = pool.Analyses()
		}
		if a.outboxStore == nil {
			a.outboxStore = pool.Outbox()
		}
	}

	if a.embeddingStore == nil {
		store, err := embeddingstore.NewStore(ctx, a.cfg.Database.URL, a.cfg.Database.EmbeddingDimensions)
		if err != nil {
			return err
		}
		a.embeddingStore = store
		a.closers = append(a.closers, func() error { store.Close(); return nil })
	}

	return nil
}

// initEventBus wires the AMQP broker, the outbox-backed reliable
// publisher, and starts the relay goroutine, unless a publisher was
// injected.
func (a *App) initEventBus(ctx context.Context) error {
	if a.publisher != nil {
		return nil
	}

	broker := eventbus.NewBroker(a.cfg.Broker.URL)
	reliable := eventbus.NewReliablePublisher(broker, a.outboxStore, a.cfg.Broker.OutboxFlushInterval)
	reliable.StartRelay(ctx)

	a.broker = broker
	a.reliable = reliable
	a.publisher = reliable

	a.closers = append(a.closers, func() error { reliable.Stop(); return nil })
	a.closers = append(a.closers, func() error { broker.Stop(); return nil })

	return nil
}

// registerSubscribers builds the JobOfferApplied/CallFinished handler
// sets and registers them, plus the event-driven metrics counters, on the
// broker (or on an injected publisher that also implements Subscribe).
func (a *App) registerSubscribers(embedder subscribers.Embedder) {
	embeddings := subscribers.NewEmbeddings(a.applications, a.applications, embedder, a.embeddingStore)
	callPrompt := subscribers.NewCallPrompt(a.applications, a.callService)
	analysisSub := subscribers.NewAnalysis(a.analysisService)

	type subscriber interface {
		Subscribe(kind domain.EventKind, handler eventbus.Handler)
	}

	var sub subscriber
	switch {
	case a.broker != nil:
		sub = a.broker
	default:
		if s, ok := a.publisher.(subscriber); ok {
			sub = s
		}
	}
	if sub == nil {
		slog.Warn("app: event publisher does not support subscriptions; embeddings, call prompts, and analysis will not run")
		return
	}

	sub.Subscribe(domain.EventJobOfferApplied, embeddings.GenerateCandidateEmbeddings)
	sub.Subscribe(domain.EventJobOfferApplied, embeddings.GenerateJobOfferEmbeddings)
	sub.Subscribe(domain.EventJobOfferApplied, callPrompt.GenerateCallPrompt)
	sub.Subscribe(domain.EventCallFinished, analysisSub.RunAnalysis)

	sub.Subscribe(domain.EventJobOfferApplied, a.recordApplicationCreated)
	sub.Subscribe(domain.EventCallFinished, a.recordCallFinished)
	sub.Subscribe(domain.EventAnalysisCompleted, a.recordAnalysisCompleted)
}

// recordApplicationCreated, recordCallFinished, and recordAnalysisCompleted
// are registered as ordinary event handlers so the success counters stay
// accurate without threading a metrics field through every service.
func (a *App) recordApplicationCreated(ctx context.Context, _ domain.Event) error {
	a.metrics.RecordApplicationCreated(ctx)
	return nil
}

func (a *App) recordCallFinished(ctx context.Context, _ domain.Event) error {
	a.metrics.RecordCallFinished(ctx, "completed")
	return nil
}

func (a *App) recordAnalysisCompleted(ctx context.Context, _ domain.Event) error {
	a.metrics.RecordAnalysisCompleted(ctx, "completed")
	return nil
}

// buildInstrumentedClients constructs the upstream and model clients and
// wraps each in a metrics-recording decorator.
func (a *App) buildInstrumentedClients() (subscribers.Embedder, dialog.ChatCompleter, domain.BiosPort, domain.OpportunitiesPort) {
	embedClient := modelclient.NewEmbedClient(a.cfg.Model.BaseURL, a.cfg.Model.EmbedModel, a.cfg.Model.Timeout, modelClientRetries)
	chatClient := modelclient.NewChatClient(a.cfg.Model.BaseURL, a.cfg.Model.ChatModel, a.cfg.Model.Timeout, modelClientRetries)
	biosClient := upstream.NewBiosClient(a.cfg.Upstream.BaseURL, a.cfg.Upstream.Timeout, a.cfg.Upstream.Retries)
	opportunitiesClient := upstream.NewOpportunitiesClient(a.cfg.Upstream.BaseURL, a.cfg.Upstream.Timeout, a.cfg.Upstream.Retries)

	return &instrumentedEmbedder{delegate: embedClient, metrics: a.metrics},
		&instrumentedChatCompleter{delegate: chatClient, metrics: a.metrics},
		&instrumentedBiosPort{delegate: biosClient, metrics: a.metrics},
		&instrumentedOpportunitiesPort{delegate: opportunitiesClient, metrics: a.metrics}
}

// Run starts the broker consumer loop (if a broker was created) and the
// HTTP server, and blocks until ctx is cancelled or the server fails.
func (a *App) Run(ctx context.Context) error {
	if a.broker != nil {
		a.broker.StartConsumer(ctx)
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server listening", "addr", a.httpServer.Addr)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// Shutdown tears down the HTTP server and all subsystems in reverse-init
// order. It respects the context deadline: if ctx expires before all
// closers finish, remaining closers are skipped and the context error is
// returned.
func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error
	a.stopOnce.Do(func() {
		slog.Info("shutting down", "closers", len(a.closers))

		if err := a.httpServer.Shutdown(ctx); err != nil {
			slog.Warn("http server shutdown error", "err", err)
		}

		for i := len(a.closers) - 1; i >= 0; i-- {
			select {
			case <-ctx.Done():
				slog.Warn("shutdown deadline exceeded", "remaining", i+1)
				shutdownErr = ctx.Err()
				return
			default:
			}
			if err := a.closers[i](); err != nil {
				slog.Warn("closer error", "index", i, "err", err)
			}
		}

		if a.otelShutdown != nil {
			if err := a.otelShutdown(ctx); err != nil {
				slog.Warn("otel shutdown error", "err", err)
			}
		}

		slog.Info("shutdown complete")
	})
	return shutdownErr
}

// dialogConfigFromCfg translates the YAML-facing config.DialogConfig into
// dialog.Config.
func dialogConfigFromCfg(c config.DialogConfig) dialog.Config {
	return dialog.Config{
		ReadyBaseTimeout:        c.ReadyBaseTimeout,
		ReadyMaxTimeout:         c.ReadyMaxTimeout,
		AnswerTimeout:           c.AnswerTimeout,
		SilenceRetries:          c.SilenceRetries,
		FragmentMergeWindow:     c.FragmentMergeWindow,
		EchoSimilarityThreshold: c.EchoSimilarityThreshold,
	}
}

// embeddingsLookup adapts an embedding store to the narrow
// domain.EmbeddingsLookup function signature the analysis service scores
// against. A lookup error is treated as "no embedding available" rather
// than failing analysis; the scorer falls back to rule-based scoring.
func embeddingsLookup(store domain.EmbeddingStore) domain.EmbeddingsLookup {
	return func(ctx context.Context, candidateID domain.CandidateID, jobOfferID domain.JobOfferID) ([]float32, []float32) {
		candidateEmbedding, _ := store.GetCandidateEmbedding(ctx, candidateID)
		jobOfferEmbedding, _ := store.GetJobOfferEmbedding(ctx, jobOfferID)
		return candidateEmbedding, jobOfferEmbedding
	}
}
