package httpserver

import (
	"net/http"

	"github.com/yndnr/qrtoken-go/internal/server/httpserver/handler"
	"github.com/yndnr/qrtoken-go/internal/telemetry/logger"
	"github.com/yndnr/qrtoken-go/internal/telemetry/metric"
)

// RouterConfig holds configuration for the HTTP router.
type RouterConfig struct {
	// Tokens serves the token routes.
	Tokens handler.TokenService

	// Ready backs GET /ready. Nil means always ready.
	Ready handler.ReadyFunc

	Logger   logger.Logger
	Recorder metric.Recorder

	// Metrics is mounted at GET /metrics. Nil disables the route.
	Metrics http.Handler
}

// NewRouter creates the HTTP router with all routes and middleware.
//
// Order: Recover -> RequestID -> AccessLog -> mux.
func NewRouter(cfg *RouterConfig) http.Handler {
	log := cfg.Logger
	if log == nil {
		log = logger.Nop()
	}
	rec := cfg.Recorder
	if rec == nil {
		rec = metric.Nop{}
	}

	h := handler.New(cfg.Tokens, cfg.Ready, log)

	mux := http.NewServeMux()
	for _, pattern := range handler.Routes() {
		mux.Handle(pattern, h)
	}
	if cfg.Metrics != nil {
		mux.Handle("GET /metrics", cfg.Metrics)
	}

	return Chain(mux,
		Recover(log),
		RequestID(log),
		AccessLog(log, rec),
	)
}
