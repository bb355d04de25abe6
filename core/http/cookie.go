package http

import (
	"fmt"
	"strings"
)

// Cookie is a single cookie value with its response attributes. Request
// cookies carry only Value.
type Cookie struct {
	Value    string
	Path     string
	Domain   string
	MaxAge   int
	Secure   bool
	HTTPOnly bool
	SameSite string
}

// NewCookie returns a bare cookie with the given value.
func NewCookie(value string) Cookie {
	return Cookie{Value: value}
}

// WithPath sets the Path attribute.
func (c Cookie) WithPath(path string) Cookie {
	c.Path = path
	return c
}

// WithDomain sets the Domain attribute.
func (c Cookie) WithDomain(domain string) Cookie {
	c.Domain = domain
	return c
}

// WithMaxAge sets the Max-Age attribute in seconds.
func (c Cookie) WithMaxAge(seconds int) Cookie {
	c.MaxAge = seconds
	return c
}

// WithSecure sets the Secure attribute.
func (c Cookie) WithSecure() Cookie {
	c.Secure = true
	return c
}

// WithHTTPOnly sets the HttpOnly attribute.
func (c Cookie) WithHTTPOnly() Cookie {
	c.HTTPOnly = true
	return c
}

// WithSameSite sets the SameSite attribute (Strict, Lax or None).
func (c Cookie) WithSameSite(mode string) Cookie {
	c.SameSite = mode
	return c
}

// SetCookieValue renders the Set-Cookie header value for the named cookie.
func (c Cookie) SetCookieValue(name string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s=%s", name, c.Value)
	if c.Path != "" {
		fmt.Fprintf(&b, "; Path=%s", c.Path)
	}
	if c.Domain != "" {
		fmt.Fprintf(&b, "; Domain=%s", c.Domain)
	}
	if c.MaxAge != 0 {
		fmt.Fprintf(&b, "; Max-Age=%d", c.MaxAge)
	}
	if c.SameSite != "" {
		fmt.Fprintf(&b, "; SameSite=%s", c.SameSite)
	}
	if c.Secure {
		b.WriteString("; Secure")
	}
	if c.HTTPOnly {
		b.WriteString("; HttpOnly")
	}
	return b.String()
}

// CookieMap holds cookies by name.
type CookieMap map[string]Cookie

// ParseCookies parses a request Cookie header ("a=1; b=2"). Malformed
// pairs are skipped.
func ParseCookies(header string) CookieMap {
	cookies := CookieMap{}
	for _, pair := range strings.Split(header, ";") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		eq := strings.IndexByte(pair, '=')
		if eq <= 0 {
			continue
		}
		name := strings.TrimSpace(pair[:eq])
		value := strings.TrimSpace(pair[eq+1:])
		cookies[name] = NewCookie(value)
	}
	return cookies
}
