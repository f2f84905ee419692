// Package router assembles the service's HTTP surface: every component
// registers its routes on one mux, and the shared middleware chain wraps it.
package router

import (
	"net/http"

	gwmw "github.com/Adithya-Monish-Kumar-K/docsearch/internal/gateway/middleware"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/gateway/ratelimit"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/metrics"
	pkgmw "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/middleware"
)

// Registrar is implemented by every handler that owns routes.
type Registrar interface {
	Register(mux *http.ServeMux)
}

// Options carries the optional collaborators of the chain.
type Options struct {
	Metrics *metrics.Metrics
	Limiter *ratelimit.Limiter
	Health  *health.Checker
}

// RateLimitedPaths are the endpoints that do real work per request.
var RateLimitedPaths = []string{"/api/upload", "/api/chat"}

// New builds the full HTTP handler.
//
// Route table:
//
//	POST   /api/upload                 → ingest one file (multipart "file")
//	POST   /api/chat                   → answer a question
//	GET    /api/v1/documents           → list documents
//	GET    /api/v1/documents/{id}      → one document
//	GET    /api/v1/analytics           → usage stats (kafka enabled)
//	GET    /api/v1/cache/stats         → query cache counters
//	POST   /api/v1/cache/invalidate    → drop cached rankings
//	GET    /health/live, /health/ready → probes
//
// Middleware chain (outermost first):
//
//	RequestID → Metrics → CORS → RateLimit → Timeout → mux
func New(cfg config.ServerConfig, opts Options, registrars ...Registrar) http.Handler {
	mux := http.NewServeMux()
	for _, r := range registrars {
		r.Register(mux)
	}
	if opts.Health != nil {
		mux.HandleFunc("GET /health/live", opts.Health.LiveHandler())
		mux.HandleFunc("GET /health/ready", opts.Health.ReadyHandler())
	}

	var chain http.Handler = mux
	chain = pkgmw.Timeout(cfg.RequestTimeout)(chain)
	if opts.Limiter != nil {
		chain = gwmw.RateLimit(opts.Limiter, RateLimitedPaths...)(chain)
	}
	if len(cfg.AllowOrigins) > 0 {
		chain = pkgmw.CORS(pkgmw.DefaultCORSConfig(cfg.AllowOrigins))(chain)
	}
	if opts.Metrics != nil {
		chain = pkgmw.Metrics(opts.Metrics)(chain)
	}
	chain = pkgmw.RequestID(chain)

	return chain
}
