// Package server is the façade from spec §4.9/§2: it takes the loaded
// configuration and the caller-built router, owns the JWT service and
// metrics registry, starts K I/O workers, and orchestrates shutdown.
package server

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/slicingmelon/go-apiserver/internal/config"
	"github.com/slicingmelon/go-apiserver/internal/cors"
	"github.com/slicingmelon/go-apiserver/internal/ioworker"
	"github.com/slicingmelon/go-apiserver/internal/jwtauth"
	"github.com/slicingmelon/go-apiserver/internal/logger"
	"github.com/slicingmelon/go-apiserver/internal/metrics"
	"github.com/slicingmelon/go-apiserver/internal/router"
)

const readTimeout = 30 * time.Second

// Server owns every long-lived component the spec's architecture
// requires a single instance of: the config, the router, the JWT
// service, the metrics registry and the set of I/O workers.
type Server struct {
	cfg     *config.Config
	router  *router.Router
	jwt     *jwtauth.Service
	metrics *metrics.Registry
	workers []*ioworker.Worker
}

// New constructs a Server from cfg and the caller's router. The router
// must be fully populated before Run is called — registration is not safe
// once I/O workers start (spec §4.4).
func New(cfg *config.Config, r *router.Router) *Server {
	return &Server{
		cfg:     cfg,
		router:  r,
		jwt:     jwtauth.New([]byte(cfg.JWTSecret), time.Duration(cfg.JWTTimeoutSeconds)*time.Second),
		metrics: metrics.New(),
	}
}

// JWT returns the server's JWT service, for wiring into example handlers
// that need to mint or verify tokens.
func (s *Server) JWT() *jwtauth.Service { return s.jwt }

// Metrics returns the server's metrics registry, for wiring into
// built-in endpoint handlers.
func (s *Server) Metrics() *metrics.Registry { return s.metrics }

// Run starts cfg.IOThreads I/O workers, each bound to the same port via
// SO_REUSEPORT, and blocks until ctx is cancelled (typically by a signal
// handler installed by the caller), then waits for every worker's drain
// phase to finish.
func (s *Server) Run(ctx context.Context) error {
	addr := ":" + strconv.Itoa(s.cfg.Port)
	gate := cors.New(s.cfg.CORSOrigins)

	group, gctx := errgroup.WithContext(ctx)
	for i := 0; i < s.cfg.IOThreads; i++ {
		id := i
		ln, err := ioworker.Listen(addr)
		if err != nil {
			return fmt.Errorf("server: io worker %d: listen %s: %w", id, addr, err)
		}

		w := ioworker.New(ioworker.Config{
			ID:             id,
			MaxRequestSize: s.cfg.MaxRequestSize,
			ReadTimeout:    readTimeout,
			PoolSize:       s.cfg.WorkersPerIOWorker(),
			QueueCapacity:  s.cfg.QueueCapacity,
		}, ln, s.router, gate, s.jwt, s.metrics)
		s.workers = append(s.workers, w)

		group.Go(func() error {
			logger.Info().Msgf("io worker %d listening on %s", id, addr)
			return w.Serve(gctx)
		})
	}

	err := group.Wait()
	logger.Info().Msgf("server shut down")
	return err
}
