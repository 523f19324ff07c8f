// routes_serve.go - Start und Lifecycle der Web-Ansicht
// Enthaelt: Serve() - startet HTTP-Server und beendet Sitzungen bei Signalen

package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/latentlab/ganinvert/envconfig"
	"github.com/latentlab/ganinvert/logutil"
)

const shutdownTimeout = 5 * time.Second

// Serve bedient ln bis SIGINT/SIGTERM eintrifft
func Serve(ln net.Listener, cfg Config) error {
	slog.SetDefault(logutil.NewLogger(os.Stderr, envconfig.LogLevel()))
	slog.Info("server config", "env", envconfig.Values())

	s := NewServer(cfg)
	s.addr = ln.Addr()

	srvr := &http.Server{
		Handler:           s.GenerateRoutes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("listening", "addr", ln.Addr().String(), "data", s.cfg.DataDir)
		if err := srvr.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		slog.Info("server wird beendet")
		s.Shutdown()

		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srvr.Shutdown(sctx)
	})

	return g.Wait()
}
