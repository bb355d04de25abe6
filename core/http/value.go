package http

import (
	"fmt"
	"strings"
)

// Method is an HTTP request method token.
type Method string

const (
	MethodGet     Method = "GET"
	MethodPost    Method = "POST"
	MethodPut     Method = "PUT"
	MethodDelete  Method = "DELETE"
	MethodPatch   Method = "PATCH"
	MethodHead    Method = "HEAD"
	MethodOptions Method = "OPTIONS"
	MethodTrace   Method = "TRACE"
	MethodConnect Method = "CONNECT"
)

var knownMethods = map[Method]bool{
	MethodGet: true, MethodPost: true, MethodPut: true, MethodDelete: true,
	MethodPatch: true, MethodHead: true, MethodOptions: true,
	MethodTrace: true, MethodConnect: true,
}

// Valid reports whether m is a known method token.
func (m Method) Valid() bool { return knownMethods[m] }

// StatusCode is an HTTP response status.
type StatusCode int

const (
	StatusOK                   StatusCode = 200
	StatusCreated              StatusCode = 201
	StatusNoContent            StatusCode = 204
	StatusMovedPermanently     StatusCode = 301
	StatusFound                StatusCode = 302
	StatusSeeOther             StatusCode = 303
	StatusNotModified          StatusCode = 304
	StatusTemporaryRedirect    StatusCode = 307
	StatusBadRequest           StatusCode = 400
	StatusUnauthorized         StatusCode = 401
	StatusForbidden            StatusCode = 403
	StatusNotFound             StatusCode = 404
	StatusMethodNotAllowed     StatusCode = 405
	StatusRequestTimeout       StatusCode = 408
	StatusPayloadTooLarge      StatusCode = 413
	StatusUnsupportedMedia     StatusCode = 415
	StatusTooManyRequests      StatusCode = 429
	StatusInternalServerError  StatusCode = 500
	StatusNotImplemented       StatusCode = 501
	StatusBadGateway           StatusCode = 502
	StatusServiceUnavailable   StatusCode = 503
	StatusVersionNotSupported  StatusCode = 505
)

var statusText = map[StatusCode]string{
	StatusOK:                   "OK",
	StatusCreated:              "Created",
	StatusNoContent:            "No Content",
	StatusMovedPermanently:     "Moved Permanently",
	StatusFound:                "Found",
	StatusSeeOther:             "See Other",
	StatusNotModified:          "Not Modified",
	StatusTemporaryRedirect:    "Temporary Redirect",
	StatusBadRequest:           "Bad Request",
	StatusUnauthorized:         "Unauthorized",
	StatusForbidden:            "Forbidden",
	StatusNotFound:             "Not Found",
	StatusMethodNotAllowed:     "Method Not Allowed",
	StatusRequestTimeout:       "Request Timeout",
	StatusPayloadTooLarge:      "Payload Too Large",
	StatusUnsupportedMedia:     "Unsupported Media Type",
	StatusTooManyRequests:      "Too Many Requests",
	StatusInternalServerError:  "Internal Server Error",
	StatusNotImplemented:       "Not Implemented",
	StatusBadGateway:           "Bad Gateway",
	StatusServiceUnavailable:   "Service Unavailable",
	StatusVersionNotSupported:  "HTTP Version Not Supported",
}

// Text returns the reason phrase for the status code.
func (s StatusCode) Text() string {
	if t, ok := statusText[s]; ok {
		return t
	}
	return "Unknown"
}

// Redirect reports whether the status signals a redirect.
func (s StatusCode) Redirect() bool {
	switch s {
	case StatusMovedPermanently, StatusFound, StatusSeeOther, StatusTemporaryRedirect:
		return true
	}
	return false
}

// ContentType is a parsed media type with its parameters (charset,
// boundary and the like).
type ContentType struct {
	Type    string
	SubType string
	Params  map[string]string
}

// ParseContentType parses a Content-Type header value. Parameters with
// no '=' are ignored; quoted parameter values are unquoted.
func ParseContentType(value string) ContentType {
	ct := ContentType{Params: map[string]string{}}
	parts := strings.Split(value, ";")
	media := strings.TrimSpace(parts[0])
	if slash := strings.IndexByte(media, '/'); slash >= 0 {
		ct.Type = strings.ToLower(media[:slash])
		ct.SubType = strings.ToLower(media[slash+1:])
	} else {
		ct.Type = strings.ToLower(media)
	}
	for _, p := range parts[1:] {
		p = strings.TrimSpace(p)
		eq := strings.IndexByte(p, '=')
		if eq < 0 {
			continue
		}
		key := strings.ToLower(strings.TrimSpace(p[:eq]))
		val := strings.TrimSpace(p[eq+1:])
		val = strings.Trim(val, `"`)
		ct.Params[key] = val
	}
	return ct
}

// Media renders the type/subtype pair without parameters.
func (c ContentType) Media() string {
	if c.SubType == "" {
		return c.Type
	}
	return c.Type + "/" + c.SubType
}

func (c ContentType) String() string {
	s := c.Media()
	for k, v := range c.Params {
		s += fmt.Sprintf("; %s=%s", k, v)
	}
	return s
}

// Is reports whether the media type equals the given "type/subtype".
func (c ContentType) Is(media string) bool {
	return strings.EqualFold(c.Media(), media)
}
