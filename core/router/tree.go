// Package router implements the URL tree: a hierarchy of nodes in which
// each level matches exactly one path segment. Registration descends the
// tree creating nodes for a pattern sequence; resolution walks it segment
// by segment and yields the matched node together with captured segments.
//
// Sibling precedence during resolution is deterministic: literal patterns
// are tried first, then regex patterns, then single-segment wildcards.
// An any-path sibling is the fallback when no other sibling accepts the
// head segment, and it swallows everything that remains. Within one
// precedence class, siblings are tried in registration order. Once a
// sibling accepts the head segment the walk commits to that branch; there
// is no backtracking.
package router

import (
	"strings"

	"github.com/Redstone-D/starberry/core/extensions"
	"github.com/Redstone-D/starberry/core/middleware"
)

// Node is one level of the URL tree. It owns a pattern, its children, an
// optional final handler, the middleware chain to run in front of the
// handler, and a typed parameter store inherited from its ancestors at
// registration time.
type Node[C any] struct {
	pattern  Pattern
	parent   *Node[C]
	children []*Node[C]
	handler  middleware.Handler[C]
	chain    middleware.Chain[C]
	params   *extensions.Params
}

// Match is the result of resolving a path against the tree.
type Match[C any] struct {
	Node *Node[C]
	// Args holds segments captured by named patterns, last name wins.
	Args map[string]string
	// Rest holds the segments swallowed by a terminal any-path pattern.
	Rest []string
}

// Tree owns the root node and the default middleware chain applied to
// nodes created through it.
type Tree[C any] struct {
	root     *Node[C]
	defaults middleware.Chain[C]
}

// NewTree returns an empty tree whose registered nodes start with the
// given default chain.
func NewTree[C any](defaults middleware.Chain[C]) *Tree[C] {
	return &Tree[C]{
		root: &Node[C]{
			pattern: Any(),
			chain:   defaults,
			params:  extensions.NewParams(),
		},
		defaults: defaults,
	}
}

// Root returns the root node.
func (t *Tree[C]) Root() *Node[C] { return t.root }

// Register descends from the root creating nodes for the pattern sequence
// and returns the final node.
func (t *Tree[C]) Register(patterns ...Pattern) *Node[C] {
	n := t.root
	for _, p := range patterns {
		n = n.Child(p)
	}
	return n
}

// Handle registers a literal path (segments split on '/') and binds the
// handler to the final node. A trailing slash registers an explicit
// empty-literal segment. Binding to an already-bound node replaces the
// previous handler.
func (t *Tree[C]) Handle(path string, h middleware.Handler[C]) *Node[C] {
	n := t.Register(literalPatterns(path)...)
	n.SetHandler(h)
	return n
}

// Resolve walks the tree for the given request path. It returns nil when
// no node matches.
func (t *Tree[C]) Resolve(path string) *Match[C] {
	m := &Match[C]{Args: make(map[string]string)}
	node := t.root.walk(splitPath(path), m)
	if node == nil {
		return nil
	}
	m.Node = node
	return m
}

func literalPatterns(path string) []Pattern {
	path = strings.TrimPrefix(path, "/")
	segs := strings.Split(path, "/")
	patterns := make([]Pattern, len(segs))
	for i, s := range segs {
		patterns[i] = Literal(s)
	}
	return patterns
}

func splitPath(path string) []string {
	path = strings.TrimPrefix(path, "/")
	return strings.Split(path, "/")
}

// Child returns the existing child with an equal pattern or creates one.
// New nodes inherit the parent's params and chain.
func (n *Node[C]) Child(p Pattern) *Node[C] {
	for _, c := range n.children {
		if c.pattern.Equal(p) {
			return c
		}
	}
	child := &Node[C]{
		pattern: p,
		parent:  n,
		chain:   n.chain,
		params:  n.params.Clone(),
	}
	n.children = append(n.children, child)
	return child
}

// Remove deletes the child with an equal pattern, reporting whether one
// was found.
func (n *Node[C]) Remove(p Pattern) bool {
	for i, c := range n.children {
		if c.pattern.Equal(p) {
			n.children = append(n.children[:i], n.children[i+1:]...)
			return true
		}
	}
	return false
}

// SetHandler binds the final handler, replacing any previous binding.
func (n *Node[C]) SetHandler(h middleware.Handler[C]) { n.handler = h }

// Handler returns the bound handler, nil when the node is unbound.
func (n *Node[C]) Handler() middleware.Handler[C] { return n.handler }

// Use appends middlewares to this node's chain.
func (n *Node[C]) Use(mws ...middleware.Middleware[C]) *Node[C] {
	n.chain = n.chain.Append(mws...)
	return n
}

// SetChain replaces this node's chain.
func (n *Node[C]) SetChain(c middleware.Chain[C]) { n.chain = c }

// Chain returns the middleware chain to run in front of the handler.
func (n *Node[C]) Chain() middleware.Chain[C] { return n.chain }

// Params returns the node's typed parameter store.
func (n *Node[C]) Params() *extensions.Params { return n.params }

// Pattern returns the node's pattern.
func (n *Node[C]) Pattern() Pattern { return n.pattern }

// Path renders the registration path of this node, for logging.
func (n *Node[C]) Path() string {
	if n.parent == nil {
		return "/"
	}
	prefix := n.parent.Path()
	if prefix == "/" {
		return "/" + n.pattern.String()
	}
	return prefix + "/" + n.pattern.String()
}

func (n *Node[C]) walk(segs []string, m *Match[C]) *Node[C] {
	if len(segs) == 0 {
		return n
	}
	head, tail := segs[0], segs[1:]

	var fallback *Node[C]
	for _, kind := range []Kind{KindLiteral, KindRegex, KindAny} {
		for _, c := range n.children {
			if c.pattern.kind != kind {
				continue
			}
			if !c.pattern.Match(head) {
				continue
			}
			if name := c.pattern.name; name != "" {
				m.Args[name] = head
			}
			return c.walk(tail, m)
		}
	}
	for _, c := range n.children {
		if c.pattern.kind == KindAnyPath {
			fallback = c
			break
		}
	}
	if fallback != nil {
		m.Rest = segs
		return fallback
	}
	return nil
}
