package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"fluxo/internal/log"
	"fluxo/internal/middleware/ratelimit"
	"fluxo/internal/middleware/security"
	"fluxo/internal/middleware/trace"
	"fluxo/internal/services"
)

// Services are the use cases exposed by the API.
type Services struct {
	Ledger    *services.LedgerService
	Reference *services.ReferenceService
	Generator *services.RecurringGenerator
	Profit    *services.ProfitService
	Dashboard *services.DashboardService
	Advisory  *services.AdvisoryService
}

// Options configure the server. Zero values pick defaults.
type Options struct {
	Addr               string
	Location           *time.Location
	RateLimitPerMinute int
	Logger             *log.Logger
	// Ready backs /readyz, typically the store's Ping.
	Ready func(context.Context) error
}

type Server struct {
	http.Server
	svc         Services
	loc         *time.Location
	now         func() time.Time
	ready       func(context.Context) error
	rateLimiter *ratelimit.Limiter
	tracer      *trace.Middleware

	// streams is cancelled on Shutdown to end open summary streams.
	streams      context.Context
	stopStreams  context.CancelFunc
	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run
// server.
func NewServer(svc Services, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}

	detector := security.NewDetector()
	streams, stopStreams := context.WithCancel(context.Background())
	s := &Server{
		streams:     streams,
		stopStreams: stopStreams,
		svc:         svc,
		loc:         loc,
		now:         time.Now,
		ready:       opts.Ready,
		rateLimiter: ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
		tracer:      trace.NewMiddleware(logger, detector.ExtractClientIP),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("GET /api/entries", s.handleListEntries)
	mux.HandleFunc("POST /api/entries", s.handleCreateEntry)
	mux.HandleFunc("GET /api/entries/{id}", s.handleGetEntry)
	mux.HandleFunc("PUT /api/entries/{id}", s.handleUpdateEntry)
	mux.HandleFunc("DELETE /api/entries/{id}", s.handleDeleteEntry)

	ref := svc.Reference
	mux.HandleFunc("GET /api/accounts", listHandler(ref.ListAccounts, newAccountView))
	mux.HandleFunc("POST /api/accounts", createHandler(buildAccount, ref.CreateAccount, newAccountView))
	mux.HandleFunc("DELETE /api/accounts/{id}", cascadeDeleteHandler(ref.DeleteAccount))
	mux.HandleFunc("GET /api/categories", listHandler(ref.ListCategories, newCategoryView))
	mux.HandleFunc("POST /api/categories", createHandler(buildCategory, ref.CreateCategory, newCategoryView))
	mux.HandleFunc("DELETE /api/categories/{id}", cascadeDeleteHandler(ref.DeleteCategory))
	mux.HandleFunc("GET /api/partners", listHandler(ref.ListPartners, newPartnerView))
	mux.HandleFunc("POST /api/partners", createHandler(buildPartner, ref.CreatePartner, newPartnerView))
	mux.HandleFunc("DELETE /api/partners/{id}", deleteHandler(ref.DeletePartner))
	mux.HandleFunc("GET /api/fixed-expenses", listHandler(ref.ListFixedExpenses, newFixedExpenseView))
	mux.HandleFunc("POST /api/fixed-expenses", createHandler(buildFixedExpense, ref.CreateFixedExpense, newFixedExpenseView))
	mux.HandleFunc("DELETE /api/fixed-expenses/{id}", deleteHandler(ref.DeleteFixedExpense))
	mux.HandleFunc("GET /api/salaries", listHandler(ref.ListSalaries, newSalaryView))
	mux.HandleFunc("POST /api/salaries", createHandler(buildSalary, ref.CreateSalary, newSalaryView))
	mux.HandleFunc("DELETE /api/salaries/{id}", deleteHandler(ref.DeleteSalary))

	mux.HandleFunc("POST /api/generate", s.handleGenerate)
	mux.HandleFunc("GET /api/summary", s.handleSummary)
	mux.HandleFunc("GET /api/summary/stream", s.handleSummaryStream)
	mux.HandleFunc("GET /api/profit", s.handleProfit)
	mux.HandleFunc("POST /api/profit/withdrawals", s.handleWithdrawal)
	mux.HandleFunc("POST /api/advisory", s.handleAdvisory)
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		NotFoundError("no route for " + r.Method + " " + r.URL.Path).Write(w)
	})

	onLimit := func(w http.ResponseWriter, r *http.Request) {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
			log.FieldClientIP, detector.ExtractClientIP(r),
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path)
		ErrorResponse(http.StatusTooManyRequests, "rate limit exceeded").Write(w)
	}
	onSuspicious := func(w http.ResponseWriter, r *http.Request) {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Suspicious request rejected",
			log.FieldClientIP, detector.ExtractClientIP(r),
			log.FieldPath, r.URL.Path)
		BadRequestError("bad request").Write(w)
	}

	var handler http.Handler = mux
	handler = s.rateLimiter.Middleware(detector.ExtractClientIP, onLimit)(handler)
	handler = detector.Guard(onSuspicious)(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = s.tracer.Middleware(handler)

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// Shutdown ends open summary streams, stops the rate limiter and
// gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.stopStreams()
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// Metrics returns the request counters.
func (s *Server) Metrics() trace.Metrics {
	return s.tracer.GetMetrics()
}
