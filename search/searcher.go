package search

import (
	"context"
	"log/slog"
	"time"

	"github.com/c360studio/semcoach/recommend"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

const (
	DefaultTimeout          = 10 * time.Second
	DefaultResultsPerSource = 5
	DefaultCacheSize        = 256
	DefaultCacheTTL         = 10 * time.Minute
)

// Searcher queries every configured backend for every query concurrently.
type Searcher struct {
	backends []*source
	limit    int
	timeout  time.Duration
	metrics  *Metrics
	logger   *slog.Logger

	cacheSize int
	cacheTTL  time.Duration
	rps       float64
}

// source is a configured backend with its own cache and pacing.
type source struct {
	backend Backend
	cache   *resultCache
	limiter *rate.Limiter
}

// Option configures a Searcher.
type Option func(*Searcher)

// WithResultsPerSource sets how many results each backend returns per query.
func WithResultsPerSource(n int) Option {
	return func(s *Searcher) {
		if n > 0 {
			s.limit = n
		}
	}
}

// WithTimeout bounds each backend request.
func WithTimeout(d time.Duration) Option {
	return func(s *Searcher) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithCache sets the per-source result cache. A size of zero disables caching
// and a zero ttl keeps entries until they are evicted.
func WithCache(size int, ttl time.Duration) Option {
	return func(s *Searcher) {
		s.cacheSize = size
		s.cacheTTL = ttl
	}
}

// WithRateLimit paces outbound requests per source. Zero disables pacing.
func WithRateLimit(rps float64) Option {
	return func(s *Searcher) {
		s.rps = rps
	}
}

// WithMetrics records lookups.
func WithMetrics(m *Metrics) Option {
	return func(s *Searcher) {
		s.metrics = m
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Searcher) {
		s.logger = l
	}
}

// New creates a searcher. Backends that are not configured are dropped and
// never attempted.
func New(backends []Backend, opts ...Option) *Searcher {
	s := &Searcher{
		limit:     DefaultResultsPerSource,
		timeout:   DefaultTimeout,
		cacheSize: DefaultCacheSize,
		cacheTTL:  DefaultCacheTTL,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	for _, b := range backends {
		if b == nil || !b.Configured() {
			continue
		}
		src := &source{backend: b}
		if s.cacheSize > 0 {
			src.cache = newResultCache(s.cacheSize, s.cacheTTL)
		}
		if s.rps > 0 {
			src.limiter = rate.NewLimiter(rate.Limit(s.rps), max(1, int(s.rps)))
		}
		s.backends = append(s.backends, src)
	}
	return s
}

// Sources lists the configured sources in backend order.
func (s *Searcher) Sources() []recommend.Source {
	out := make([]recommend.Source, len(s.backends))
	for i, src := range s.backends {
		out[i] = src.backend.Source()
	}
	return out
}

// Search runs every query against every configured backend. It never fails:
// a failing lookup contributes no candidates and the others are unaffected.
// Results are ordered by query, then by backend, whatever order lookups
// finish in.
func (s *Searcher) Search(ctx context.Context, queries []string) []recommend.Candidate {
	if len(s.backends) == 0 || len(queries) == 0 {
		return nil
	}

	slots := make([][]recommend.Candidate, len(queries)*len(s.backends))
	var g errgroup.Group
	for qi, q := range queries {
		for bi, src := range s.backends {
			slot := qi*len(s.backends) + bi
			g.Go(func() error {
				slots[slot] = s.lookup(ctx, src, q)
				return nil
			})
		}
	}
	_ = g.Wait()

	var out []recommend.Candidate
	for _, results := range slots {
		out = append(out, results...)
	}
	return out
}

func (s *Searcher) lookup(ctx context.Context, src *source, query string) []recommend.Candidate {
	name := string(src.backend.Source())

	if src.cache != nil {
		if cached, ok := src.cache.get(query); ok {
			s.metrics.record(name, "cache_hit", len(cached))
			return cached
		}
	}

	if src.limiter != nil {
		if err := src.limiter.Wait(ctx); err != nil {
			s.logger.Warn("Search source skipped", "source", name, "query", query, "error", err)
			s.metrics.record(name, "error", 0)
			return nil
		}
	}

	reqCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	results, err := src.backend.Search(reqCtx, query, s.limit)
	if err != nil {
		s.logger.Warn("Search source failed", "source", name, "query", query, "error", err)
		s.metrics.record(name, "error", 0)
		return nil
	}
	if len(results) > s.limit {
		results = results[:s.limit]
	}

	s.metrics.record(name, "success", len(results))
	if src.cache != nil {
		src.cache.add(query, results)
	}
	return results
}
