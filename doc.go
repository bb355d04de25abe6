/*
Package starberry is a full-stack web framework built around a
pattern-per-segment URL tree, lazily parsed HTTP messages, and a
protocol registry that multiplexes wire protocols on a single port.

Quick start:

	package main

	import (
	    "context"
	    "log"

	    "github.com/Redstone-D/starberry/app"
	    "github.com/Redstone-D/starberry/core/http"
	)

	func main() {
	    a := app.New().Binding("127.0.0.1:3003").Build()

	    a.Handle("/hello", func(ctx context.Context, rc *http.Rc) error {
	        rc.Text("Hello, World!")
	        return nil
	    })

	    if err := a.Run(context.Background()); err != nil {
	        log.Fatal(err)
	    }
	}

Modules:

  - app: builder, run modes, listener runtime, graceful shutdown
  - config: file and environment configuration
  - core/router: URL tree with literal, regex, any, and any-path patterns
  - core/http: lazy request/response metadata and bodies, Rx serve loop,
    Tx client with connection pooling
  - core/middleware: generic continuation-passing middleware chains
  - core/connection: protocol registry, dial builder, client pool
  - core/rpc: framed call protocol sharing the HTTP port
  - core/static: file serving with handle caching and sendfile
  - core/extensions: type-keyed and string-keyed context stores
*/
package starberry
