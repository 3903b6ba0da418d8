package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/c360studio/semcoach/api"
	"github.com/c360studio/semcoach/coaching"
	"github.com/c360studio/semcoach/config"
	"github.com/c360studio/semcoach/llm"
	"github.com/c360studio/semcoach/model"
	"github.com/c360studio/semcoach/recommend"
	"github.com/c360studio/semcoach/search"
	"github.com/c360studio/semcoach/storage"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// App holds what lives for the whole process. Everything derived from the
// config is rebuilt per snapshot by Build.
type App struct {
	logger   *slog.Logger
	registry *prometheus.Registry

	llmMetrics    *llm.Metrics
	searchMetrics *search.Metrics

	store    storage.Store
	natsConn *nats.Conn
}

// NewApp creates the process-wide infrastructure and opens storage.
func NewApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	a := &App{
		logger:        logger,
		registry:      reg,
		llmMetrics:    llm.NewMetrics(reg),
		searchMetrics: search.NewMetrics(reg),
	}
	if err := a.openStore(ctx, cfg.Storage); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *App) openStore(ctx context.Context, cfg config.StorageConfig) error {
	if cfg.NATSURL == "" {
		a.logger.Info("Using in-memory storage")
		a.store = storage.NewMemoryStore()
		return nil
	}

	conn, err := nats.Connect(cfg.NATSURL, nats.Name(appName), nats.Timeout(5*time.Second))
	if err != nil {
		return fmt.Errorf("connect to NATS at %s: %w", cfg.NATSURL, err)
	}
	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return fmt.Errorf("create JetStream context: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	store, err := storage.NewKVStore(ctx, js, cfg.BucketPrefix)
	if err != nil {
		conn.Close()
		return fmt.Errorf("initialize storage: %w", err)
	}

	a.logger.Info("Using NATS KV storage", "url", cfg.NATSURL, "bucket_prefix", cfg.BucketPrefix)
	a.natsConn = conn
	a.store = store
	return nil
}

// Close releases the storage connection.
func (a *App) Close() {
	if a.natsConn != nil {
		_ = a.natsConn.Drain()
		a.natsConn.Close()
	}
}

// Build wires router, search, recommendation and coaching for one config
// snapshot.
func (a *App) Build(cfg *config.Config) *api.Services {
	router := a.buildRouter(cfg.Providers)
	searcher := a.buildSearcher(cfg.Search)

	keywords := recommend.DefaultKeywordExtractor()
	recommender := recommend.NewRecommender(
		recommend.NewPlanner(router, recommend.WithPlannerKeywords(keywords), recommend.WithPlannerLogger(a.logger)),
		searcher,
		recommend.NewRanker(router, recommend.WithRankerKeywords(keywords), recommend.WithRankerLogger(a.logger)),
		a.logger,
	)

	svc := coaching.NewService(a.store, router,
		coaching.WithRecommender(recommender),
		coaching.WithLogger(a.logger))

	return &api.Services{
		Coaching:    svc,
		Recommender: recommender,
		Providers:   router,
	}
}

func (a *App) buildRouter(cfg config.ProvidersConfig) *llm.Router {
	catalog := model.NewDefaultCatalog()
	endpoints := make(map[llm.ProviderID]llm.Endpoint, 3)
	for id, pc := range map[llm.ProviderID]config.ProviderConfig{
		llm.ProviderOpenAI: cfg.OpenAI,
		llm.ProviderGemini: cfg.Gemini,
		llm.ProviderClaude: cfg.Claude,
	} {
		if len(pc.AllowedModels) > 0 {
			catalog.Set(string(id), model.Spec{Allowed: pc.AllowedModels})
		}
		endpoints[id] = llm.Endpoint{
			Provider: id,
			APIKey:   pc.APIKey,
			BaseURL:  pc.BaseURL,
			Model:    pc.Model,
		}
	}

	priority := make([]llm.ProviderID, 0, len(cfg.Priority))
	for _, p := range cfg.Priority {
		priority = append(priority, llm.ProviderID(p))
	}

	backends := llm.BuildBackends(priority, endpoints, a.logger,
		llm.WithCatalog(catalog))

	router := llm.NewRouter(backends,
		llm.WithAttemptTimeout(cfg.Timeout),
		llm.WithMetrics(a.llmMetrics),
		llm.WithLogger(a.logger))
	if !router.Available() {
		a.logger.Warn("No AI provider credentials configured; coaching is unavailable and recommendations use fallbacks")
	}
	return router
}

func (a *App) buildSearcher(cfg config.SearchConfig) *search.Searcher {
	s := search.New([]search.Backend{
		search.NewYouTube(cfg.YouTube.APIKey, search.WithBaseURL(cfg.YouTube.BaseURL)),
		search.NewWeb(cfg.Web.APIKey, cfg.Web.EngineID, search.WithBaseURL(cfg.Web.BaseURL)),
		search.NewBooks(cfg.Books.APIKey, search.WithBaseURL(cfg.Books.BaseURL)),
	},
		search.WithResultsPerSource(cfg.ResultsPerSource),
		search.WithTimeout(cfg.Timeout),
		search.WithCache(cfg.CacheSize, cfg.CacheTTL),
		search.WithRateLimit(cfg.RequestsPerSecond),
		search.WithMetrics(a.searchMetrics),
		search.WithLogger(a.logger),
	)
	a.logger.Debug("Search sources configured", "sources", s.Sources())
	return s
}
