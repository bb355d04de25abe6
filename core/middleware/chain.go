// Package middleware implements an ordered, continuation-passing middleware
// chain. A middleware receives the next handler and returns a wrapping
// handler: work done before calling next runs head-to-tail, work done after
// next returns runs tail-to-head, and a middleware aborts the chain early by
// returning without calling next.
package middleware

import "context"

// Handler processes a request context of type C.
type Handler[C any] func(ctx context.Context, c C) error

// Middleware wraps a handler with additional behavior.
type Middleware[C any] func(next Handler[C]) Handler[C]

// Chain is an immutable ordered list of middlewares. Append and Prepend
// return new chains, leaving the receiver untouched, so a chain can be
// shared and extended per route.
type Chain[C any] struct {
	stack []Middleware[C]
}

// NewChain builds a chain running the given middlewares in order.
func NewChain[C any](mws ...Middleware[C]) Chain[C] {
	return Chain[C]{stack: append([]Middleware[C]{}, mws...)}
}

// Append returns a chain with mws added after the existing middlewares.
func (c Chain[C]) Append(mws ...Middleware[C]) Chain[C] {
	stack := make([]Middleware[C], 0, len(c.stack)+len(mws))
	stack = append(stack, c.stack...)
	stack = append(stack, mws...)
	return Chain[C]{stack: stack}
}

// Prepend returns a chain with mws inserted before the existing middlewares.
func (c Chain[C]) Prepend(mws ...Middleware[C]) Chain[C] {
	stack := make([]Middleware[C], 0, len(c.stack)+len(mws))
	stack = append(stack, mws...)
	stack = append(stack, c.stack...)
	return Chain[C]{stack: stack}
}

// Len reports the number of middlewares in the chain.
func (c Chain[C]) Len() int {
	return len(c.stack)
}

// Then folds the chain around final. The fold runs in reverse so that the
// first appended middleware is the outermost wrapper and therefore the
// first to observe the request.
func (c Chain[C]) Then(final Handler[C]) Handler[C] {
	if final == nil {
		final = func(context.Context, C) error { return nil }
	}
	h := final
	for i := len(c.stack) - 1; i >= 0; i-- {
		h = c.stack[i](h)
	}
	return h
}

// Run builds the chain around final and executes it in one call.
func (c Chain[C]) Run(ctx context.Context, rc C, final Handler[C]) error {
	return c.Then(final)(ctx, rc)
}
