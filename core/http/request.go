package http

import (
	"bufio"
	"io"
)

// Request pairs request metadata with its lazily-parsed body.
type Request struct {
	Meta *Meta
	Body *Body
}

// NewRequest builds a request for the given method and path.
func NewRequest(method Method, path string) *Request {
	return &Request{Meta: NewMeta(RequestLine(method, path)), Body: EmptyBody()}
}

// ParseRequestLazy reads only the metadata off the wire; the body stays
// unparsed in the reader until first access.
func ParseRequestLazy(r *bufio.Reader, safety Safety) (*Request, error) {
	meta, err := ParseMeta(r, safety, true)
	if err != nil {
		return nil, err
	}
	return &Request{Meta: meta, Body: NewBody()}, nil
}

// Send renders the request, framing the body with Content-Length.
func (r *Request) Send(w io.Writer) error {
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
	return nil
}

// GetRequest builds a GET request for the path.
func GetRequest(path string) *Request {
	return NewRequest(MethodGet, path)
}

// PostRequest builds a POST request carrying a urlencoded form.
func PostRequest(path string, form map[string]string) *Request {
	req := NewRequest(MethodPost, path)
	req.Meta.SetContentType(ContentType{Type: "application", SubType: "x-www-form-urlencoded"})
	encoded := ""
	for k, v := range form {
		if encoded != "" {
			encoded += "&"
		}
		encoded += urlEncode(k) + "=" + urlEncode(v)
	}
	req.Body = TextBody(encoded)
	return req
}

// JSONRequest builds a POST request carrying a JSON payload.
func JSONRequest(path string, v any) *Request {
	req := NewRequest(MethodPost, path)
	req.Meta.SetContentType(ContentType{Type: "application", SubType: "json"})
	req.Body = JSONBody(v)
	return req
}

func urlEncode(s string) string {
	const hex = "0123456789ABCDEF"
	var b []byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9',
			c == '-', c == '_', c == '.', c == '~':
			b = append(b, c)
		case c == ' ':
			b = append(b, '+')
		default:
			b = append(b, '%', hex[c>>4], hex[c&0xf])
		}
	}
	return string(b)
}
