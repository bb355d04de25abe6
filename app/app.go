// Package app assembles protocols, routes, stores, and limits into a
// runnable server. A Builder collects configuration and Build freezes it
// into an immutable App; everything reachable from request handlers is
// read-only after that point.
package app

import (
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/Redstone-D/starberry/config"
	"github.com/Redstone-D/starberry/core/connection"
	"github.com/Redstone-D/starberry/core/extensions"
	"github.com/Redstone-D/starberry/core/http"
	"github.com/Redstone-D/starberry/core/middleware"
	"github.com/Redstone-D/starberry/core/router"
)

// RunMode selects the operational profile.
type RunMode string

const (
	ModeDevelopment RunMode = "development"
	ModeProduction  RunMode = "production"
	ModeBeta        RunMode = "beta"
	ModeBuild       RunMode = "build"
)

// Builder accumulates server configuration. Zero value is not usable;
// start from New.
type Builder struct {
	binding           string
	mode              RunMode
	maxConnections    int
	maxConnectionTime time.Duration
	safety            http.Safety
	defaults          middleware.Chain[*http.Rc]
	extraProtocols    []connection.Protocol
	config            *extensions.Params
	statics           *extensions.Locals
	logger            *zerolog.Logger
}

// New starts a builder with development defaults.
func New() *Builder {
	return &Builder{
		binding: "127.0.0.1:3003",
		mode:    ModeDevelopment,
		safety:  http.DefaultSafety(),
		config:  extensions.NewParams(),
		statics: extensions.NewLocals(),
	}
}

// FromSettings seeds a builder from loaded configuration.
func FromSettings(s config.Settings) *Builder {
	b := New()
	b.binding = s.Binding
	b.mode = RunMode(s.Mode)
	b.maxConnections = s.MaxConnections
	b.maxConnectionTime = s.MaxConnectionTime
	b.safety = http.Safety{
		MaxBodySize:   s.MaxBodySize,
		MaxHeaderSize: s.MaxHeaderSize,
		MaxHeaders:    s.MaxHeaders,
		MaxLineLength: s.MaxHeaderSize,
	}
	if lvl, err := zerolog.ParseLevel(s.LogLevel); err == nil && s.LogLevel != "" {
		l := defaultLogger(b.mode).Level(lvl)
		b.logger = &l
	}
	return b
}

// Binding sets the listen address.
func (b *Builder) Binding(addr string) *Builder {
	b.binding = addr
	return b
}

// Mode sets the run mode.
func (b *Builder) Mode(m RunMode) *Builder {
	b.mode = m
	return b
}

// MaxConnections bounds concurrently accepted connections; zero means
// unbounded.
func (b *Builder) MaxConnections(n int) *Builder {
	b.maxConnections = n
	return b
}

// MaxConnectionTime bounds how long one connection may live; zero means
// unbounded.
func (b *Builder) MaxConnectionTime(d time.Duration) *Builder {
	b.maxConnectionTime = d
	return b
}

// Safety sets the app-wide request limits.
func (b *Builder) Safety(s http.Safety) *Builder {
	b.safety = s
	return b
}

// Middleware appends to the default chain handed to every route.
func (b *Builder) Middleware(mws ...middleware.Middleware[*http.Rc]) *Builder {
	b.defaults = b.defaults.Append(mws...)
	return b
}

// Protocol registers an additional wire protocol after HTTP.
func (b *Builder) Protocol(p connection.Protocol) *Builder {
	b.extraProtocols = append(b.extraProtocols, p)
	return b
}

// Logger replaces the mode-derived logger.
func (b *Builder) Logger(l zerolog.Logger) *Builder {
	b.logger = &l
	return b
}

// SetConfig stores a typed app-level value readable from every request.
func SetConfig[T any](b *Builder, value T) *Builder {
	extensions.SetParam(b.config, value)
	return b
}

// Static stores a named app-level value readable from every request.
func (b *Builder) Static(key string, value any) *Builder {
	b.statics.Set(key, value)
	return b
}

// Build freezes the builder into an App. The HTTP protocol always sits
// first in selection precedence; extra protocols follow in registration
// order.
func (b *Builder) Build() *App {
	logger := defaultLogger(b.mode)
	if b.logger != nil {
		logger = *b.logger
	}

	web := http.NewProtocol(b.defaults)
	web.SetSafety(b.safety)
	web.SetStores(b.config, b.statics)
	web.SetLogger(logger)

	protocols := append([]connection.Protocol{web}, b.extraProtocols...)
	for _, p := range b.extraProtocols {
		if lp, ok := p.(interface{ SetLogger(zerolog.Logger) }); ok {
			lp.SetLogger(logger)
		}
	}

	return &App{
		binding:           b.binding,
		mode:              b.mode,
		web:               web,
		registry:          connection.NewRegistry(protocols...),
		maxConnections:    b.maxConnections,
		maxConnectionTime: b.maxConnectionTime,
		logger:            logger,
	}
}

func defaultLogger(mode RunMode) zerolog.Logger {
	switch mode {
	case ModeProduction:
		return zerolog.New(os.Stderr).With().Timestamp().Logger().Level(zerolog.InfoLevel)
	case ModeBuild:
		return zerolog.Nop()
	default:
		out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}
		return zerolog.New(out).With().Timestamp().Logger().Level(zerolog.DebugLevel)
	}
}

// App is the built, immutable server.
type App struct {
	binding           string
	mode              RunMode
	web               *http.Protocol
	registry          *connection.Registry
	maxConnections    int
	maxConnectionTime time.Duration
	logger            zerolog.Logger
}

// Mode reports the run mode.
func (a *App) Mode() RunMode { return a.mode }

// Web exposes the HTTP protocol.
func (a *App) Web() *http.Protocol { return a.web }

// Tree exposes the URL tree.
func (a *App) Tree() *router.Tree[*http.Rc] { return a.web.Tree() }

// Handle registers a literal route.
func (a *App) Handle(path string, h middleware.Handler[*http.Rc]) *router.Node[*http.Rc] {
	return a.web.Handle(path, h)
}

// Register descends the URL tree along the pattern sequence.
func (a *App) Register(patterns ...router.Pattern) *router.Node[*http.Rc] {
	return a.web.Register(patterns...)
}
