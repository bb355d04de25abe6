package http

import (
	"bufio"
	"io"

	"github.com/rs/zerolog"

	"github.com/Redstone-D/starberry/core/extensions"
	"github.com/Redstone-D/starberry/core/router"
)

// Rc is the per-request context: request metadata and lazy body, the live
// connection handles, the matched endpoint, the in-progress response, and
// the two request-scoped stores. Everything mutable during a request
// lives here; the app-level config and statics are shared read-only.
type Rc struct {
	Request  *Request
	Response *Response

	Reader *bufio.Reader
	writer io.Writer

	Endpoint *router.Match[*Rc]

	// Params is the request-scoped type-keyed store, Locals the
	// string-keyed one. Both are last-write-wins.
	Params *extensions.Params
	Locals *extensions.Locals

	// Config and Statics are the app-level stores, shared across
	// requests without synchronization; the app is immutable once built.
	Config  *extensions.Params
	Statics *extensions.Locals

	Logger zerolog.Logger

	safety Safety
	sent   bool
}

// NewRc assembles a context for one request.
func NewRc(req *Request, r *bufio.Reader, w io.Writer, safety Safety) *Rc {
	return &Rc{
		Request:  req,
		Response: StatusResponse(StatusNotFound),
		Reader:   r,
		writer:   w,
		Params:   extensions.NewParams(),
		Locals:   extensions.NewLocals(),
		safety:   safety,
	}
}

// Method returns the request method.
func (rc *Rc) Method() Method { return rc.Request.Meta.Method() }

// Path returns the decoded request path without the query string.
func (rc *Rc) Path() string { return rc.Request.Meta.PathOnly() }

// Query returns the first query value for key.
func (rc *Rc) Query(key string) string { return rc.Request.Meta.Query(key) }

// Arg returns the path segment captured under name by the matched route.
func (rc *Rc) Arg(name string) string {
	if rc.Endpoint == nil {
		return ""
	}
	return rc.Endpoint.Args[name]
}

// Rest returns the segments swallowed by a terminal any-path pattern.
func (rc *Rc) Rest() []string {
	if rc.Endpoint == nil {
		return nil
	}
	return rc.Endpoint.Rest
}

// Cookie returns the named request cookie.
func (rc *Rc) Cookie(name string) (Cookie, bool) { return rc.Request.Meta.Cookie(name) }

// Safety returns the limits in force for this request: the app baseline
// merged with the endpoint's override, when one is stored in the
// endpoint params.
func (rc *Rc) Safety() Safety {
	s := rc.safety
	if rc.Endpoint != nil && rc.Endpoint.Node != nil {
		if override, ok := extensions.GetParam[Safety](rc.Endpoint.Node.Params()); ok {
			s = s.Merge(override)
		}
	}
	return s
}

// ParseBody materializes the request body. The body is never parsed
// automatically; handlers opt in. Idempotent.
func (rc *Rc) ParseBody() error {
	return rc.Request.Body.Parse(rc.Reader, rc.Request.Meta, rc.Safety())
}

// Form parses the body and returns its fields for urlencoded and
// multipart requests.
func (rc *Rc) Form() (Form, error) {
	if err := rc.ParseBody(); err != nil {
		return nil, err
	}
	form, ok := rc.Request.Body.Form()
	if !ok {
		return Form{}, nil
	}
	return form, nil
}

// Files parses the body and returns multipart file uploads.
func (rc *Rc) Files() (map[string][]*FilePart, error) {
	if err := rc.ParseBody(); err != nil {
		return nil, err
	}
	files, ok := rc.Request.Body.Files()
	if !ok {
		return map[string][]*FilePart{}, nil
	}
	return files, nil
}

// JSON parses the body and returns the decoded document.
func (rc *Rc) JSON() (any, error) {
	if err := rc.ParseBody(); err != nil {
		return nil, err
	}
	v, _ := rc.Request.Body.JSON()
	return v, nil
}

// Text sets a plain-text response.
func (rc *Rc) Text(text string) { rc.Response = TextResponse(text) }

// HTML sets an HTML response.
func (rc *Rc) HTML(html string) { rc.Response = HTMLResponse(html) }

// RespondJSON sets a JSON response.
func (rc *Rc) RespondJSON(v any) { rc.Response = JSONResponse(v) }

// Redirect sets a 302 response targeting url.
func (rc *Rc) Redirect(url string) { rc.Response = RedirectResponse(url) }

// Status sets a status-only response.
func (rc *Rc) Status(code StatusCode) { rc.Response = StatusResponse(code) }

// Writer exposes the raw connection writer for handlers that stream
// their own payload. A handler that writes directly must call MarkSent
// so the prepared response is not sent on top of the stream.
func (rc *Rc) Writer() io.Writer { return rc.writer }

// MarkSent records that the response bytes already went out.
func (rc *Rc) MarkSent() { rc.sent = true }

// Sent reports whether response bytes already went out.
func (rc *Rc) Sent() bool { return rc.sent }

// SendResponse writes the prepared response to the connection. It is a
// no-op when a handler already streamed the response itself.
func (rc *Rc) SendResponse() error {
	if rc.sent {
		return nil
	}
	rc.sent = true
	w := bufio.NewWriter(rc.writer)
	if err := rc.Response.Send(w); err != nil {
		return err
	}
	return w.Flush()
}
