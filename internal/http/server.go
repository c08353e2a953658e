package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"tracker/internal/cache"
	"tracker/internal/config"
	"tracker/internal/core"
	applog "tracker/internal/log"
	"tracker/internal/middleware/ratelimit"
	"tracker/internal/middleware/security"
	"tracker/internal/middleware/trace"
	"tracker/internal/receipt"
	"tracker/internal/store"
)

const (
	viewCacheSize     = 64
	viewCacheTTL      = 5 * time.Minute
	cacheSweepEvery   = 10 * time.Minute
	maxReceiptBytes   = 10 << 20
	readHeaderTimeout = 10 * time.Second
)

// ExpenseStore is the state store the handlers drive.
type ExpenseStore interface {
	Snapshot() store.State
	Refresh(ctx context.Context) error
	Add(ctx context.Context, e core.NewExpense) (core.Expense, error)
	Clear(ctx context.Context) error
}

// TextParser turns free text into a draft.
type TextParser interface {
	ParseValue(ctx context.Context, v any) (core.Draft, error)
}

// ReceiptScanner turns a receipt image into a draft.
type ReceiptScanner interface {
	Scan(ctx context.Context, src receipt.Source, img []byte) (core.Draft, error)
}

// Pinger reports database readiness.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the collaborators a Server needs. DB and Now are optional.
type Deps struct {
	Store   ExpenseStore
	Parser  TextParser
	Scanner ReceiptScanner
	DB      Pinger
	Config  *config.Config
	Logger  *applog.Logger
	Now     func() time.Time
}

type Server struct {
	http.Server
	store   ExpenseStore
	parser  TextParser
	scanner ReceiptScanner
	db      Pinger
	cfg     *config.Config
	logger  *applog.Logger
	now     func() time.Time

	limiter  *ratelimit.Limiter
	detector *security.Detector
	headers  *security.HeadersMiddleware
	tracer   *trace.Middleware

	// Grouped views keyed by store version and local day.
	sectionsCache *cache.LRUCache[[]SectionDTO]
	flatCache     *cache.LRUCache[FlatResponse]
	cacheManager  *cache.Manager

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run http.Server.
func NewServer(addr string, deps Deps) *Server {
	cfg := deps.Config
	if cfg == nil {
		cfg = config.Load()
	}
	logger := deps.Logger
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}

	s := &Server{
		store:         deps.Store,
		parser:        deps.Parser,
		scanner:       deps.Scanner,
		db:            deps.DB,
		cfg:           cfg,
		logger:        logger.WithComponent(applog.ComponentHTTP),
		now:           now,
		detector:      security.NewDetector(),
		headers:       security.NewHeadersMiddleware(security.DefaultHeadersConfig()),
		sectionsCache: cache.NewLRUCache[[]SectionDTO](viewCacheSize, viewCacheTTL),
		flatCache:     cache.NewLRUCache[FlatResponse](viewCacheSize, viewCacheTTL),
		cacheManager:  cache.NewManager(logger.WithComponent(applog.ComponentCache).Logger),
	}
	s.limiter = ratelimit.NewLimiter(ratelimit.Config{
		RequestsPerMinute: cfg.RateLimitPerMinute,
		CleanupInterval:   ratelimit.DefaultConfig().CleanupInterval,
	})
	s.tracer = trace.NewMiddleware(logger.WithComponent(applog.ComponentTrace), s.detector.ExtractClientIP)

	s.cacheManager.Register(s.sectionsCache)
	s.cacheManager.Register(s.flatCache)
	s.cacheManager.StartCleanup(cacheSweepEvery)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)
	mux.HandleFunc("/api/expenses", s.handleExpenses)
	mux.HandleFunc("/api/summary", s.handleSummary)
	mux.HandleFunc("/api/categories", s.handleCategories)
	mux.HandleFunc("/api/parse", s.handleParse)
	mux.HandleFunc("/api/receipts/scan", s.handleScanReceipt)
	mux.HandleFunc("/api/metrics", s.handleMetrics)

	var handler http.Handler = mux
	handler = s.limiter.Middleware(s.detector.ExtractClientIP, s.handleRateLimited, http.MethodPost, http.MethodDelete)(handler)
	handler = s.headers.Middleware(handler)
	handler = s.withSuspiciousRequestLogging(handler)
	handler = s.tracer.Middleware(handler)
	handler = applog.Middleware(s.logger)(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
	}
	return s
}

// withSuspiciousRequestLogging flags scanner-like traffic. Requests are
// still served.
func (s *Server) withSuspiciousRequestLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.detector.DetectSuspiciousRequest(r) {
			applog.FromContext(r.Context()).WithComponent(applog.ComponentSecurity).WarnContext(r.Context(),
				"Suspicious request detected",
				applog.FieldClientIP, s.detector.ExtractClientIP(r),
				applog.FieldMethod, r.Method,
				applog.FieldPath, r.URL.Path,
				applog.FieldUserAgent, r.UserAgent())
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleRateLimited(w http.ResponseWriter, r *http.Request) {
	applog.FromContext(r.Context()).WithComponent(applog.ComponentRateLimit).WarnContext(r.Context(),
		"Rate limit exceeded",
		applog.FieldClientIP, s.detector.ExtractClientIP(r),
		applog.FieldMethod, r.Method,
		applog.FieldPath, r.URL.Path)
	TooManyRequestsError().Write(w)
}

// Shutdown gracefully shuts down the server and cleanup routines
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}
