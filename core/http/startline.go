package http

import (
	"fmt"
	"strconv"
	"strings"
)

// StartLine is either a request line (METHOD PATH VERSION) or a status
// line (VERSION CODE REASON).
type StartLine struct {
	Request bool
	Method  Method
	Path    string
	Version string
	Status  StatusCode
}

// RequestLine builds a request start line.
func RequestLine(method Method, path string) StartLine {
	return StartLine{Request: true, Method: method, Path: path, Version: "HTTP/1.1"}
}

// StatusLine builds a response start line.
func StatusLine(status StatusCode) StartLine {
	return StartLine{Version: "HTTP/1.1", Status: status}
}

// ParseRequestLine parses "METHOD PATH VERSION".
func ParseRequestLine(line string) (StartLine, error) {
	parts := strings.SplitN(strings.TrimRight(line, "\r\n"), " ", 3)
	if len(parts) != 3 {
		return StartLine{}, fmt.Errorf("%w: %q", ErrMalformedStartLine, line)
	}
	method := Method(parts[0])
	if !method.Valid() {
		return StartLine{}, fmt.Errorf("%w: unknown method %q", ErrMalformedStartLine, parts[0])
	}
	version := parts[2]
	if version != "HTTP/1.1" && version != "HTTP/1.0" {
		return StartLine{}, fmt.Errorf("%w: unsupported version %q", ErrMalformedStartLine, version)
	}
	return StartLine{Request: true, Method: method, Path: parts[1], Version: version}, nil
}

// ParseStatusLine parses "VERSION CODE REASON".
func ParseStatusLine(line string) (StartLine, error) {
	parts := strings.SplitN(strings.TrimRight(line, "\r\n"), " ", 3)
	if len(parts) < 2 {
		return StartLine{}, fmt.Errorf("%w: %q", ErrMalformedStartLine, line)
	}
	code, err := strconv.Atoi(parts[1])
	if err != nil || code < 100 || code > 599 {
		return StartLine{}, fmt.Errorf("%w: bad status %q", ErrMalformedStartLine, parts[1])
	}
	return StartLine{Version: parts[0], Status: StatusCode(code)}, nil
}

// Render writes the start line without the terminating CRLF.
func (s StartLine) Render() string {
	if s.Request {
		return fmt.Sprintf("%s %s %s", s.Method, s.Path, s.Version)
	}
	return fmt.Sprintf("%s %d %s", s.Version, s.Status, s.Status.Text())
}
