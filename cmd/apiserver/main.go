package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/slicingmelon/go-apiserver/internal/config"
	"github.com/slicingmelon/go-apiserver/internal/examplehandlers"
	"github.com/slicingmelon/go-apiserver/internal/httpparser"
	"github.com/slicingmelon/go-apiserver/internal/logger"
	"github.com/slicingmelon/go-apiserver/internal/metrics"
	"github.com/slicingmelon/go-apiserver/internal/response"
	"github.com/slicingmelon/go-apiserver/internal/router"
	"github.com/slicingmelon/go-apiserver/internal/server"
	"github.com/slicingmelon/go-apiserver/internal/validator"
)

func main() {
	logger.Info().Msgf("Initializing go-apiserver...")

	cfg, err := config.Load()
	if err != nil {
		logger.Error().Msgf("Configuration failed: %v", err)
		os.Exit(1)
	}

	r := router.New()
	srv := server.New(cfg, r)
	registerRoutes(r, srv, cfg)

	// Signal-fd-style shutdown: signal.NotifyContext cancels ctx when
	// SIGINT or SIGTERM arrives while the main goroutine blocks in
	// srv.Run, the portable analogue of a signal fd read (spec §5
	// "Signal-delivery thread... suspends on read of the signal fd").
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.Run(ctx); err != nil {
		logger.Error().Msgf("Server exited with error: %v", err)
		os.Exit(1)
	}
}

func registerRoutes(r *router.Router, srv *server.Server, cfg *config.Config) {
	mustRegister(r, router.Endpoint{
		Path:    "/ping",
		Method:  "GET",
		Handler: examplehandlers.Ping,
	})

	h := &examplehandlers.Handlers{
		Users:     examplehandlers.NewUserStore(),
		Customers: examplehandlers.NewCustomerStore(),
		JWT:       srv.JWT(),
		PodName:   cfg.PodName,
		Version:   cfg.Version,
	}

	mustRegister(r, router.Endpoint{
		Path:   "/login",
		Method: "POST",
		Handler: h.Login,
	})

	mustRegister(r, router.Endpoint{
		Path:      "/customer",
		Method:    "GET",
		IsSecure:  true,
		Validator: validator.New(validator.Rule{
			Name:     "id",
			Required: true,
			Target:   validator.TypeString,
			Check:    validator.ExactLenAlpha(5),
			Message:  "Customer ID must be exactly 5 alphabetic characters.",
		}),
		Handler: h.Customer,
	})

	// /metrics, /metricsp and /version are internal endpoints gated by
	// API_KEY (spec §4.7, §6 "internal-endpoint check"), a distinct
	// mechanism from the router's generic is_secure/JWT check applied to
	// /customer above — each handler enforces its own bearer-API-key
	// requirement instead.
	reg := srv.Metrics()
	mustRegister(r, router.Endpoint{
		Path:    "/metrics",
		Method:  "GET",
		Handler: reg.JSONHandler(cfg.APIKey),
	})
	mustRegister(r, router.Endpoint{
		Path:    "/metricsp",
		Method:  "GET",
		Handler: metrics.PrometheusHandler(cfg.APIKey),
	})
	mustRegister(r, router.Endpoint{
		Path:   "/version",
		Method: "GET",
		Handler: func(req *httpparser.Request, resp *response.Response) error {
			if err := metrics.CheckAPIKey(req, cfg.APIKey); err != nil {
				return err
			}
			return h.Version(req, resp)
		},
	})
}

func mustRegister(r *router.Router, e router.Endpoint) {
	if err := r.Register(e); err != nil {
		logger.Error().Msgf("route registration failed for %s: %v", e.Path, err)
		os.Exit(1)
	}
}
