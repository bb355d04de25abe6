package router

import (
	"fmt"
	"regexp"
)

// Kind discriminates how a pattern matches one path segment.
type Kind uint8

const (
	// KindLiteral matches a segment byte-for-byte. The empty literal is
	// how an explicit trailing slash is registered.
	KindLiteral Kind = iota
	// KindRegex matches a segment against a compiled expression.
	KindRegex
	// KindAny matches any single segment.
	KindAny
	// KindAnyPath greedily matches all remaining segments, including none.
	// It is necessarily terminal.
	KindAnyPath
)

// Pattern is the match unit for a single path segment. Patterns are built
// at route-registration time and immutable afterwards.
type Pattern struct {
	kind    Kind
	literal string
	expr    string
	re      *regexp.Regexp
	name    string
}

// Literal returns a pattern matching exactly seg.
func Literal(seg string) Pattern {
	return Pattern{kind: KindLiteral, literal: seg}
}

// TrailingSlash returns the empty-literal pattern used to register an
// explicit trailing slash segment.
func TrailingSlash() Pattern {
	return Literal("")
}

// Regex returns a pattern matching a segment against expr. The expression
// is anchored to the whole segment. Invalid expressions panic, consistent
// with route registration being setup-time configuration.
func Regex(expr string) Pattern {
	return Pattern{
		kind: KindRegex,
		expr: expr,
		re:   regexp.MustCompile("^(?:" + expr + ")$"),
	}
}

// RegexArg is Regex with a capture name; the matched segment is recorded
// under name during resolution.
func RegexArg(expr, name string) Pattern {
	p := Regex(expr)
	p.name = name
	return p
}

// Any returns a pattern matching any single segment.
func Any() Pattern {
	return Pattern{kind: KindAny}
}

// Arg is Any with a capture name.
func Arg(name string) Pattern {
	return Pattern{kind: KindAny, name: name}
}

// AnyPath returns the terminal pattern matching all remaining segments.
func AnyPath() Pattern {
	return Pattern{kind: KindAnyPath}
}

// Kind reports the pattern's discriminant.
func (p Pattern) Kind() Kind { return p.kind }

// Name reports the capture name, empty for unnamed patterns.
func (p Pattern) Name() string { return p.name }

// Match reports whether p accepts the given segment. AnyPath always
// matches; its greediness is handled by the tree walk.
func (p Pattern) Match(seg string) bool {
	switch p.kind {
	case KindLiteral:
		return p.literal == seg
	case KindRegex:
		return p.re.MatchString(seg)
	default:
		return true
	}
}

// Equal reports whether two patterns denote the same match unit. It is
// used to dedupe siblings at registration.
func (p Pattern) Equal(o Pattern) bool {
	return p.kind == o.kind && p.literal == o.literal && p.expr == o.expr && p.name == o.name
}

func (p Pattern) String() string {
	switch p.kind {
	case KindLiteral:
		if p.literal == "" {
			return "<trailing-slash>"
		}
		return p.literal
	case KindRegex:
		if p.name != "" {
			return fmt.Sprintf("<%s:%s>", p.name, p.expr)
		}
		return fmt.Sprintf("<%s>", p.expr)
	case KindAny:
		if p.name != "" {
			return "*" + p.name
		}
		return "*"
	default:
		return "**"
	}
}
