package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/ManouchehrRasoulli/hotserve/pkg"
	"github.com/ManouchehrRasoulli/hotserve/pkg/filehandler"
	"github.com/ManouchehrRasoulli/hotserve/pkg/protocol"
	"github.com/ManouchehrRasoulli/hotserve/pkg/watcher"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

const shutdownTimeout = 5 * time.Second

var (
	ErrServerNotListening = errors.New("server is not listening")
)

type Option func(s *Server)

// WithHubOptions passes extra options to the watch hub.
func WithHubOptions(options ...watcher.Option) Option {
	return func(s *Server) {
		s.hubOptions = append(s.hubOptions, options...)
	}
}

type Server struct {
	cfg        pkg.Config
	files      *filehandler.Handler
	hub        *watcher.Hub
	hubOptions []watcher.Option
	router     *chi.Mux
	metrics    *Metrics
	logger     zerolog.Logger

	base   context.Context
	cancel context.CancelFunc

	l          net.Listener
	ml         net.Listener
	httpSrv    *http.Server
	metricsSrv *http.Server
	closeOnce  sync.Once
}

// NewServer validates cfg and wires the router, hub and metrics. Nothing
// listens until Listen is called.
func NewServer(cfg pkg.Config, files *filehandler.Handler, lg zerolog.Logger, options ...Option) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &Server{
		cfg:     cfg,
		files:   files,
		metrics: NewMetrics(),
		logger:  lg,
	}
	for _, op := range options {
		op(s)
	}

	hubOptions := append([]watcher.Option{
		watcher.WithLogger(lg),
		watcher.WithEventHook(s.metrics.watchEvent),
	}, s.hubOptions...)
	s.hub = watcher.NewHub(files.Root(), hubOptions...)

	s.base, s.cancel = context.WithCancel(context.Background())
	s.router = chi.NewRouter()
	s.setupMiddleware()
	s.setupRoutes()

	baseContext := func(net.Listener) context.Context { return s.base }
	s.httpSrv = &http.Server{
		Handler:           s.router,
		BaseContext:       baseContext,
		ReadHeaderTimeout: 10 * time.Second,
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", s.metrics.Handler())
	s.metricsSrv = &http.Server{
		Handler:           mux,
		BaseContext:       baseContext,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s, nil
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(s.requestLogger)
	s.router.Use(middleware.Recoverer)
}

func (s *Server) setupRoutes() {
	r := s.router

	r.Get(protocol.NotifyPath, s.handleNotify)
	r.Get(protocol.IndexPath, s.handleIndex)
	r.Get(protocol.GlobPath, s.handleGlob)
	r.Get("/*", s.handleStatic)
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			s.logger.Debug().
				Str("id", middleware.GetReqID(r.Context())).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("took", time.Since(start)).
				Msg("server :: request")
		}()
		next.ServeHTTP(ww, r)
	})
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Hub() *watcher.Hub {
	return s.hub
}

func (s *Server) Metrics() *Metrics {
	return s.metrics
}

func (s *Server) Listen() error {
	l, err := net.Listen("tcp", s.cfg.Address)
	if err != nil {
		return err
	}
	s.l = l

	if s.cfg.MetricsAddress != "" {
		ml, err := net.Listen("tcp", s.cfg.MetricsAddress)
		if err != nil {
			_ = l.Close()
			return err
		}
		s.ml = ml
	}
	return nil
}

func (s *Server) Addr() string {
	if s.l == nil {
		return ""
	}
	return s.l.Addr().String()
}

func (s *Server) MetricsAddr() string {
	if s.ml == nil {
		return ""
	}
	return s.ml.Addr().String()
}

// Run serves until Close is called. It returns nil after a clean close.
func (s *Server) Run() error {
	if s.l == nil {
		return ErrServerNotListening
	}

	if s.ml != nil {
		go func() {
			if err := s.metricsSrv.Serve(s.ml); err != nil && !errors.Is(err, http.ErrServerClosed) {
				s.logger.Error().Err(err).Msg("server :: metrics listener stopped")
			}
		}()
		s.logger.Info().Str("address", s.MetricsAddr()).Msg("server :: metrics")
	}

	s.logger.Info().Str("address", s.Addr()).Str("root", s.files.Root()).Msg("server :: running")
	err := s.httpSrv.Serve(s.l)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Close ends open streams, stops both listeners and releases the watch
// subscription.
func (s *Server) Close() error {
	var errs []error
	s.closeOnce.Do(func() {
		s.cancel()

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		errs = append(errs, s.httpSrv.Shutdown(ctx), s.metricsSrv.Shutdown(ctx))
		// listeners never handed to Serve are still open
		for _, l := range []net.Listener{s.l, s.ml} {
			if l == nil {
				continue
			}
			if err := l.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
				errs = append(errs, err)
			}
		}
		errs = append(errs, s.hub.Close())
	})
	return errors.Join(errs...)
}
