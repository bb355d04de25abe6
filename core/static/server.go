// Package static serves files from a directory tree, normally mounted
// behind a trailing wildcard route. Repeat hits reuse cached open file
// handles and the payload goes out through sendfile where the platform
// offers it.
package static

import (
	"bufio"
	"context"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/Redstone-D/starberry/core/http"
	"github.com/Redstone-D/starberry/core/middleware"
)

const defaultCacheSize = 1000

// Server maps request paths onto a directory root.
type Server struct {
	root  string
	index string
	cache *FileCache
}

// Option configures a Server.
type Option func(*Server)

// WithIndex sets the file served for directory paths.
func WithIndex(name string) Option {
	return func(s *Server) { s.index = name }
}

// WithCacheSize bounds the open-handle cache.
func WithCacheSize(n int) Option {
	return func(s *Server) { s.cache = NewFileCache(n) }
}

// NewServer builds a file server rooted at dir.
func NewServer(dir string, opts ...Option) (*Server, error) {
	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	s := &Server{
		root:  root,
		index: "index.html",
		cache: NewFileCache(defaultCacheSize),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Close releases cached file handles.
func (s *Server) Close() { s.cache.Close() }

// Handler answers GET and HEAD for files under the root. The request
// path relative to the mount point is taken from the route's trailing
// wildcard capture.
func (s *Server) Handler() middleware.Handler[*http.Rc] {
	return func(ctx context.Context, rc *http.Rc) error {
		if m := rc.Method(); m != http.MethodGet && m != http.MethodHead {
			rc.Status(http.StatusMethodNotAllowed)
			return nil
		}

		full, ok := s.resolve(rc.Rest())
		if !ok {
			rc.Status(http.StatusForbidden)
			return nil
		}

		info, err := os.Stat(full)
		if err != nil {
			rc.Status(http.StatusNotFound)
			return nil
		}
		if info.IsDir() {
			full = filepath.Join(full, s.index)
		}

		file, size, err := s.cache.Get(full)
		if err != nil {
			rc.Status(http.StatusNotFound)
			return nil
		}

		resp := http.NewResponse(http.StatusOK)
		resp.Meta.SetHeader("Content-Type", TypeFor(full))
		resp.Meta.SetContentLength(int(size))

		w := bufio.NewWriter(rc.Writer())
		if err := resp.Meta.Render(w); err != nil {
			return err
		}
		if err := w.Flush(); err != nil {
			return err
		}
		rc.MarkSent()

		if rc.Method() == http.MethodHead {
			return nil
		}
		_, err = Transfer(rc.Writer(), file, 0, size)
		return err
	}
}

// resolve joins the captured segments under the root, rejecting any
// path that escapes it.
func (s *Server) resolve(segments []string) (string, bool) {
	rel := path.Clean("/" + strings.Join(segments, "/"))
	full := filepath.Join(s.root, filepath.FromSlash(rel))
	if full != s.root && !strings.HasPrefix(full, s.root+string(filepath.Separator)) {
		return "", false
	}
	return full, true
}
