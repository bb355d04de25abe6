package http

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/Redstone-D/starberry/core/middleware"
)

// Logging emits one structured log line per request after the handler
// chain unwinds, carrying method, path, status and elapsed time.
func Logging() middleware.Middleware[*Rc] {
	return func(next middleware.Handler[*Rc]) middleware.Handler[*Rc] {
		return func(ctx context.Context, rc *Rc) error {
			start := time.Now()
			err := next(ctx, rc)
			rc.Logger.Info().
				Str("method", string(rc.Method())).
				Str("path", rc.Path()).
				Int("status", int(rc.Response.Status())).
				Dur("elapsed", time.Since(start)).
				Msg("request")
			return err
		}
	}
}

// Recovery converts a handler panic into a 500 response instead of
// tearing down the connection goroutine.
func Recovery() middleware.Middleware[*Rc] {
	return func(next middleware.Handler[*Rc]) middleware.Handler[*Rc] {
		return func(ctx context.Context, rc *Rc) (err error) {
			defer func() {
				if v := recover(); v != nil {
					rc.Logger.Error().Interface("panic", v).
						Str("path", rc.Path()).Msg("handler panicked")
					rc.Status(StatusInternalServerError)
					err = nil
				}
			}()
			return next(ctx, rc)
		}
	}
}

var requestCounter atomic.Uint64

// RequestID stamps each request with a monotonically increasing id,
// stored in the locals and echoed in the X-Request-Id response header.
func RequestID() middleware.Middleware[*Rc] {
	return func(next middleware.Handler[*Rc]) middleware.Handler[*Rc] {
		return func(ctx context.Context, rc *Rc) error {
			id := fmt.Sprintf("%d", requestCounter.Add(1))
			rc.Locals.Set("request_id", id)
			err := next(ctx, rc)
			rc.Response.Meta.SetHeader("X-Request-Id", id)
			return err
		}
	}
}
