package http

import "errors"

// Parse failures surfaced by the metadata and body layers. They map to an
// error response at the protocol boundary, never a panic.
var (
	ErrMalformedStartLine = errors.New("http: malformed start line")
	ErrHeaderTooLarge     = errors.New("http: headers exceed size limit")
	ErrHeaderLineTooLong  = errors.New("http: header line exceeds length limit")
	ErrTooManyHeaders     = errors.New("http: too many headers")
	ErrMalformedHeader    = errors.New("http: malformed header line")
	ErrBodyTooLarge       = errors.New("http: body exceeds size limit")
	ErrMalformedBody      = errors.New("http: malformed body")
	ErrMalformedChunk     = errors.New("http: malformed chunked encoding")
)
