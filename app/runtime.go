package app

import (
	"context"
	"errors"
	"net"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"golang.org/x/net/netutil"
)

// shutdownGrace is how long open connections get to finish after the
// listener closes.
const shutdownGrace = 10 * time.Second

// Run listens on the configured binding and serves until ctx is
// cancelled or SIGINT/SIGTERM arrives, then drains open connections.
func (a *App) Run(ctx context.Context) error {
	ln, err := a.Listen()
	if err != nil {
		return err
	}
	return a.Serve(ctx, ln)
}

// Listen opens the configured binding, applying the connection cap.
func (a *App) Listen() (net.Listener, error) {
	ln, err := net.Listen("tcp", a.binding)
	if err != nil {
		return nil, err
	}
	if a.maxConnections > 0 {
		ln = netutil.LimitListener(ln, a.maxConnections)
	}
	return ln, nil
}

// Serve accepts connections on ln until ctx is cancelled or a
// termination signal arrives. Each connection runs in its own goroutine
// through the protocol registry.
func (a *App) Serve(ctx context.Context, ln net.Listener) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a.logger.Info().
		Str("binding", ln.Addr().String()).
		Str("mode", string(a.mode)).
		Int("protocols", a.registry.Len()).
		Msg("server listening")

	var wg sync.WaitGroup
	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			if errors.Is(err, net.ErrClosed) {
				break
			}
			a.logger.Warn().Err(err).Msg("accept failed")
			continue
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			a.serveConn(ctx, conn)
		}()
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(shutdownGrace):
		a.logger.Warn().Msg("shutdown grace expired, abandoning connections")
	}

	a.logger.Info().Msg("server stopped")
	return nil
}

func (a *App) serveConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	if a.maxConnectionTime > 0 {
		_ = conn.SetDeadline(time.Now().Add(a.maxConnectionTime))
	}

	if err := a.registry.Dispatch(ctx, conn); err != nil {
		a.logger.Debug().Err(err).
			Str("remote", conn.RemoteAddr().String()).
			Msg("connection ended with error")
	}
}
