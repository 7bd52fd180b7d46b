// Package api hosts the tickbars listeners: the HTTP REST API and a gRPC
// health endpoint, run together and shut down together.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"tickbars/internal/config"
)

const shutdownTimeout = 5 * time.Second

// Server is the main API server that hosts HTTP and gRPC endpoints.
type Server struct {
	cfg     config.Server
	httpSrv *http.Server
	grpcSrv *grpc.Server
	health  *healthService
	log     *slog.Logger
}

// NewServer creates a Server serving handler over HTTP. The gRPC listener
// is enabled when cfg.GRPCPort is non-zero.
func NewServer(cfg config.Server, handler http.Handler, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	gs := grpc.NewServer()
	return &Server{
		cfg: cfg,
		httpSrv: &http.Server{
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
		grpcSrv: gs,
		health:  registerHealth(gs),
		log:     log.With("component", "api"),
	}
}

// ListenAndServe opens the configured listeners and blocks until ctx is
// cancelled or a listener fails. Cancelling ctx triggers a graceful
// shutdown.
func (s *Server) ListenAndServe(ctx context.Context) error {
	httpLn, err := net.Listen("tcp", s.cfg.Addr())
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.cfg.Addr(), err)
	}

	var grpcLn net.Listener
	if s.cfg.GRPCPort != 0 {
		grpcLn, err = net.Listen("tcp", s.cfg.GRPCAddr())
		if err != nil {
			httpLn.Close()
			return fmt.Errorf("listening on %s: %w", s.cfg.GRPCAddr(), err)
		}
	}
	return s.Serve(ctx, httpLn, grpcLn)
}

// Serve runs the servers on the given listeners. grpcLn may be nil.
func (s *Server) Serve(ctx context.Context, httpLn, grpcLn net.Listener) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.log.Info("HTTP server listening", "addr", httpLn.Addr().String())
		if err := s.httpSrv.Serve(httpLn); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	if grpcLn != nil {
		g.Go(func() error {
			s.log.Info("gRPC server listening", "addr", grpcLn.Addr().String())
			if err := s.grpcSrv.Serve(grpcLn); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
				return fmt.Errorf("grpc server: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		return s.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// Shutdown marks the service NOT_SERVING, then stops both servers, waiting
// for in-flight requests until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("shutting down")
	s.health.shutdown()

	stopped := make(chan struct{})
	go func() {
		s.grpcSrv.GracefulStop()
		close(stopped)
	}()

	err := s.httpSrv.Shutdown(ctx)

	select {
	case <-stopped:
	case <-ctx.Done():
		s.grpcSrv.Stop()
	}
	if err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}
