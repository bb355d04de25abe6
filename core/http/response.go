package http

import (
	"bufio"
	"io"
)

// Response pairs response metadata with its body.
type Response struct {
	Meta *Meta
	Body *Body
}

// NewResponse builds a response for the given status.
func NewResponse(status StatusCode) *Response {
	return &Response{Meta: NewMeta(StatusLine(status)), Body: EmptyBody()}
}

// ParseResponseLazy reads only the status line and headers; the body
// stays in the reader until ParseBody.
func ParseResponseLazy(r *bufio.Reader, safety Safety) (*Response, error) {
	meta, err := ParseMeta(r, safety, false)
	if err != nil {
		return nil, err
	}
	return &Response{Meta: meta, Body: NewBody()}, nil
}

// ParseBody materializes a lazily-parsed response body.
func (r *Response) ParseBody(reader *bufio.Reader, safety Safety) error {
	return r.Body.Parse(reader, r.Meta, safety)
}

// Status returns the response status code.
func (r *Response) Status() StatusCode { return r.Meta.Status() }

// SetCookie attaches a Set-Cookie header to the response.
func (r *Response) SetCookie(name string, c Cookie) *Response {
	r.Meta.AddSetCookie(name, c)
	return r
}

// Send renders the response, framing the body with Content-Length.
func (r *Response) Send(w io.Writer) error {
	payload := r.Body.Raw()
	r.Meta.SetContentLength(len(payload))
	if err := r.Meta.Render(w); err != nil {
		return err
	}
	if len(payload) > 0 {
		if _, err := w.Write(payload); err != nil {
			return err
		}
	}
	if f, ok := w.(interface{ Flush() error }); ok {
		return f.Flush()
	}
	return nil
}

// TextResponse builds a 200 text/plain response.
func TextResponse(text string) *Response {
	resp := NewResponse(StatusOK)
	resp.Meta.SetContentType(ContentType{Type: "text", SubType: "plain", Params: map[string]string{"charset": "utf-8"}})
	resp.Body = TextBody(text)
	return resp
}

// HTMLResponse builds a 200 text/html response.
func HTMLResponse(html string) *Response {
	resp := NewResponse(StatusOK)
	resp.Meta.SetContentType(ContentType{Type: "text", SubType: "html", Params: map[string]string{"charset": "utf-8"}})
	resp.Body = TextBody(html)
	return resp
}

// JSONResponse builds a 200 application/json response from v.
func JSONResponse(v any) *Response {
	resp := NewResponse(StatusOK)
	resp.Meta.SetContentType(ContentType{Type: "application", SubType: "json"})
	resp.Body = JSONBody(v)
	return resp
}

// StatusResponse builds a response with only a status line and the
// reason phrase as a plain-text body.
func StatusResponse(status StatusCode) *Response {
	resp := NewResponse(status)
	resp.Meta.SetContentType(ContentType{Type: "text", SubType: "plain"})
	resp.Body = TextBody(status.Text())
	return resp
}

// RedirectResponse builds a 302 response carrying the target in the
// Location header and an empty body.
func RedirectResponse(target string) *Response {
	resp := NewResponse(StatusFound)
	resp.Meta.SetLocation(target)
	return resp
}

// PermanentRedirectResponse is RedirectResponse with a 301 status.
func PermanentRedirectResponse(target string) *Response {
	resp := NewResponse(StatusMovedPermanently)
	resp.Meta.SetLocation(target)
	return resp
}

// DataResponse builds a 200 response with an explicit media type.
func DataResponse(ct ContentType, data []byte) *Response {
	resp := NewResponse(StatusOK)
	resp.Meta.SetContentType(ct)
	resp.Body = BinaryBody(data)
	return resp
}
