package http

import (
	"bufio"
	"fmt"
	"io"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"
)

// HeaderValue holds one or more values for a header name. Repeated
// headers accumulate; Set-Cookie values are never joined.
type HeaderValue []string

// First returns the first value, empty when none.
func (h HeaderValue) First() string {
	if len(h) == 0 {
		return ""
	}
	return h[0]
}

// Join renders the values comma-separated, the usual combined form.
func (h HeaderValue) Join() string { return strings.Join(h, ", ") }

// Meta is the request or response metadata: the start line plus the raw
// header map, populated exactly once at parse (or construction) time.
// Derived views (content type, content length, cookies, location, query)
// are computed lazily on first access and memoized. The memo is never
// invalidated against the raw map: the map is write-once by discipline,
// and the explicit setters below refresh both map and memo together.
type Meta struct {
	Start   StartLine
	headers map[string]HeaderValue

	contentType   *ContentType
	contentLength *int
	cookies       CookieMap
	location      *string
	pathOnly      *string
	query         url.Values
}

// NewMeta builds metadata from a start line and optional initial headers.
func NewMeta(start StartLine) *Meta {
	return &Meta{Start: start, headers: map[string]HeaderValue{}}
}

// ParseMeta reads a start line and header block from r, enforcing the
// safety limits. isRequest selects request-line versus status-line
// parsing.
func ParseMeta(r *bufio.Reader, safety Safety, isRequest bool) (*Meta, error) {
	line, err := readLimitedLine(r, safety.MaxLineLength)
	if err != nil {
		return nil, err
	}
	var start StartLine
	if isRequest {
		start, err = ParseRequestLine(line)
	} else {
		start, err = ParseStatusLine(line)
	}
	if err != nil {
		return nil, err
	}

	meta := NewMeta(start)
	total := 0
	for {
		line, err := readLimitedLine(r, safety.MaxLineLength)
		if err != nil {
			return nil, err
		}
		if line == "" {
			break
		}
		total += len(line) + 2
		if safety.MaxHeaderSize != 0 && total > safety.MaxHeaderSize {
			return nil, ErrHeaderTooLarge
		}
		if safety.MaxHeaders != 0 && len(meta.headers) >= safety.MaxHeaders {
			return nil, ErrTooManyHeaders
		}
		colon := strings.IndexByte(line, ':')
		if colon <= 0 {
			return nil, fmt.Errorf("%w: %q", ErrMalformedHeader, line)
		}
		key := textproto.CanonicalMIMEHeaderKey(strings.TrimSpace(line[:colon]))
		value := strings.TrimSpace(line[colon+1:])
		meta.headers[key] = append(meta.headers[key], value)
	}
	return meta, nil
}

// readLimitedLine reads one CRLF- (or LF-) terminated line, rejecting
// lines longer than max. The limit is enforced per buffered chunk so an
// overlong line is rejected as soon as the budget runs out, never
// accumulated first.
func readLimitedLine(r *bufio.Reader, max int) (string, error) {
	var b strings.Builder
	for {
		chunk, err := r.ReadSlice('\n')
		b.Write(chunk)
		if max != 0 && b.Len() > max+2 {
			return "", ErrHeaderLineTooLong
		}
		if err == bufio.ErrBufferFull {
			continue
		}
		if err != nil {
			if err == io.EOF && b.Len() > 0 {
				break
			}
			return "", err
		}
		break
	}
	return strings.TrimRight(b.String(), "\r\n"), nil
}

// Method returns the request method.
func (m *Meta) Method() Method { return m.Start.Method }

// Path returns the raw request target, query string included.
func (m *Meta) Path() string { return m.Start.Path }

// Status returns the response status.
func (m *Meta) Status() StatusCode { return m.Start.Status }

// Header returns all values recorded for the given name.
func (m *Meta) Header(name string) HeaderValue {
	return m.headers[textproto.CanonicalMIMEHeaderKey(name)]
}

// HeaderNames lists recorded header names in unspecified order.
func (m *Meta) HeaderNames() []string {
	names := make([]string, 0, len(m.headers))
	for k := range m.headers {
		names = append(names, k)
	}
	return names
}

// SetHeader replaces the values for a header name, refreshing any memo
// derived from it.
func (m *Meta) SetHeader(name, value string) {
	key := textproto.CanonicalMIMEHeaderKey(name)
	m.headers[key] = HeaderValue{value}
	m.refresh(key)
}

// AddHeader appends a value under the header name.
func (m *Meta) AddHeader(name, value string) {
	key := textproto.CanonicalMIMEHeaderKey(name)
	m.headers[key] = append(m.headers[key], value)
	m.refresh(key)
}

// DeleteHeader removes the header and its memo.
func (m *Meta) DeleteHeader(name string) {
	key := textproto.CanonicalMIMEHeaderKey(name)
	delete(m.headers, key)
	m.refresh(key)
}

func (m *Meta) refresh(canonicalKey string) {
	switch canonicalKey {
	case "Content-Type":
		m.contentType = nil
	case "Content-Length":
		m.contentLength = nil
	case "Cookie":
		m.cookies = nil
	case "Location":
		m.location = nil
	}
}

// PathOnly returns the request path with any query string stripped,
// decoded per URL escaping rules.
func (m *Meta) PathOnly() string {
	if m.pathOnly == nil {
		raw := m.Start.Path
		if q := strings.IndexByte(raw, '?'); q >= 0 {
			raw = raw[:q]
		}
		if decoded, err := url.PathUnescape(raw); err == nil {
			raw = decoded
		}
		m.pathOnly = &raw
	}
	return *m.pathOnly
}

// Segment returns the i-th path segment (zero-based, leading slash
// skipped), empty when out of range.
func (m *Meta) Segment(i int) string {
	segs := strings.Split(strings.TrimPrefix(m.PathOnly(), "/"), "/")
	if i < 0 || i >= len(segs) {
		return ""
	}
	return segs[i]
}

// Query returns the first query value for key, parsing the query string
// on first access.
func (m *Meta) Query(key string) string {
	if m.query == nil {
		m.query = url.Values{}
		if q := strings.IndexByte(m.Start.Path, '?'); q >= 0 {
			if parsed, err := url.ParseQuery(m.Start.Path[q+1:]); err == nil {
				m.query = parsed
			}
		}
	}
	return m.query.Get(key)
}

// ContentLength returns the parsed Content-Length, zero when absent or
// malformed. Parsed once, memoized.
func (m *Meta) ContentLength() int {
	if m.contentLength == nil {
		n := 0
		if raw := m.Header("Content-Length").First(); raw != "" {
			if parsed, err := strconv.Atoi(raw); err == nil && parsed >= 0 {
				n = parsed
			}
		}
		m.contentLength = &n
	}
	return *m.contentLength
}

// SetContentLength records the Content-Length header and memo together.
func (m *Meta) SetContentLength(n int) {
	m.headers["Content-Length"] = HeaderValue{strconv.Itoa(n)}
	m.contentLength = &n
}

// ContentType returns the parsed Content-Type. Parsed once, memoized.
func (m *Meta) ContentType() ContentType {
	if m.contentType == nil {
		ct := ParseContentType(m.Header("Content-Type").First())
		m.contentType = &ct
	}
	return *m.contentType
}

// SetContentType records the Content-Type header and memo together.
func (m *Meta) SetContentType(ct ContentType) {
	m.headers["Content-Type"] = HeaderValue{ct.String()}
	m.contentType = &ct
}

// Cookies returns the request cookies, parsed once from the Cookie
// header and memoized.
func (m *Meta) Cookies() CookieMap {
	if m.cookies == nil {
		m.cookies = CookieMap{}
		for _, v := range m.Header("Cookie") {
			for name, c := range ParseCookies(v) {
				m.cookies[name] = c
			}
		}
	}
	return m.cookies
}

// Cookie returns the named request cookie.
func (m *Meta) Cookie(name string) (Cookie, bool) {
	c, ok := m.Cookies()[name]
	return c, ok
}

// AddSetCookie appends a Set-Cookie header for the named cookie.
func (m *Meta) AddSetCookie(name string, c Cookie) {
	m.headers["Set-Cookie"] = append(m.headers["Set-Cookie"], c.SetCookieValue(name))
}

// Location returns the Location header, memoized.
func (m *Meta) Location() string {
	if m.location == nil {
		loc := m.Header("Location").First()
		m.location = &loc
	}
	return *m.location
}

// SetLocation records the Location header and memo together.
func (m *Meta) SetLocation(target string) {
	m.headers["Location"] = HeaderValue{target}
	m.location = &target
}

// Host returns the Host header.
func (m *Meta) Host() string { return m.Header("Host").First() }

// SetHost records the Host header.
func (m *Meta) SetHost(host string) { m.SetHeader("Host", host) }

// KeepAlive reports whether the connection should persist after this
// exchange: HTTP/1.0 defaults to close, HTTP/1.1 to keep-alive, and an
// explicit Connection header wins either way.
func (m *Meta) KeepAlive() bool {
	conn := strings.ToLower(m.Header("Connection").First())
	if conn == "close" {
		return false
	}
	if m.Start.Version == "HTTP/1.0" {
		return conn == "keep-alive"
	}
	return true
}

// ContentEncoding returns the lowercased Content-Encoding token, empty
// when absent or identity.
func (m *Meta) ContentEncoding() string {
	coding := strings.ToLower(strings.TrimSpace(m.Header("Content-Encoding").First()))
	if coding == "identity" {
		return ""
	}
	return coding
}

// Chunked reports whether the body uses chunked transfer encoding.
func (m *Meta) Chunked() bool {
	for _, v := range m.Header("Transfer-Encoding") {
		if strings.Contains(strings.ToLower(v), "chunked") {
			return true
		}
	}
	return false
}

// Render writes the start line and header block, terminated by the
// blank line.
func (m *Meta) Render(w io.Writer) error {
	var b strings.Builder
	b.WriteString(m.Start.Render())
	b.WriteString("\r\n")
	for name, values := range m.headers {
		for _, v := range values {
			b.WriteString(name)
			b.WriteString(": ")
			b.WriteString(v)
			b.WriteString("\r\n")
		}
	}
	b.WriteString("\r\n")
	_, err := io.WriteString(w, b.String())
	return err
}
