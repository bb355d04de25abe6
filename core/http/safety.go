package http

// Safety bounds what a request may carry. A zero limit or empty allow
// list means unrestricted. The app carries one Safety as its baseline;
// endpoints may override it through their typed params, with the endpoint
// value taking precedence field by field.
type Safety struct {
	MaxBodySize         int
	MaxHeaderSize       int
	MaxHeaders          int
	MaxLineLength       int
	AllowedMethods      []Method
	AllowedContentTypes []string
}

// DefaultSafety mirrors the framework's stock parse limits.
func DefaultSafety() Safety {
	return Safety{
		MaxBodySize:   1 << 20,
		MaxHeaderSize: 8192,
		MaxHeaders:    100,
		MaxLineLength: 8192,
	}
}

// WithMaxBodySize returns a copy with the body limit set.
func (s Safety) WithMaxBodySize(n int) Safety {
	s.MaxBodySize = n
	return s
}

// WithMethods returns a copy restricted to the given methods.
func (s Safety) WithMethods(methods ...Method) Safety {
	s.AllowedMethods = methods
	return s
}

// WithContentTypes returns a copy restricted to the given media types.
func (s Safety) WithContentTypes(types ...string) Safety {
	s.AllowedContentTypes = types
	return s
}

// Merge overlays non-zero fields of o onto s and returns the result.
func (s Safety) Merge(o Safety) Safety {
	if o.MaxBodySize != 0 {
		s.MaxBodySize = o.MaxBodySize
	}
	if o.MaxHeaderSize != 0 {
		s.MaxHeaderSize = o.MaxHeaderSize
	}
	if o.MaxHeaders != 0 {
		s.MaxHeaders = o.MaxHeaders
	}
	if o.MaxLineLength != 0 {
		s.MaxLineLength = o.MaxLineLength
	}
	if len(o.AllowedMethods) != 0 {
		s.AllowedMethods = o.AllowedMethods
	}
	if len(o.AllowedContentTypes) != 0 {
		s.AllowedContentTypes = o.AllowedContentTypes
	}
	return s
}

// CheckBodySize reports whether a body of n bytes is acceptable.
func (s Safety) CheckBodySize(n int) bool {
	return s.MaxBodySize == 0 || n <= s.MaxBodySize
}

// CheckMethod reports whether the method is allowed.
func (s Safety) CheckMethod(m Method) bool {
	if len(s.AllowedMethods) == 0 {
		return true
	}
	for _, allowed := range s.AllowedMethods {
		if allowed == m {
			return true
		}
	}
	return false
}

// CheckContentType reports whether the media type is allowed. Requests
// without a content type always pass.
func (s Safety) CheckContentType(ct ContentType) bool {
	if len(s.AllowedContentTypes) == 0 || ct.Media() == "" {
		return true
	}
	for _, allowed := range s.AllowedContentTypes {
		if ct.Is(allowed) {
			return true
		}
	}
	return false
}

// Check validates request metadata against the limits, returning the
// status to answer with on violation.
func (s Safety) Check(meta *Meta) (StatusCode, bool) {
	if !s.CheckBodySize(meta.ContentLength()) {
		return StatusPayloadTooLarge, false
	}
	if !s.CheckMethod(meta.Method()) {
		return StatusMethodNotAllowed, false
	}
	if !s.CheckContentType(meta.ContentType()) {
		return StatusUnsupportedMedia, false
	}
	return 0, true
}
