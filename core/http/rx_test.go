package http

import (
	"bufio"
	"context"
	"errors"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/Redstone-D/starberry/core/extensions"
	"github.com/Redstone-D/starberry/core/middleware"
	"github.com/Redstone-D/starberry/core/router"
)

func TestProtocolTestSniff(t *testing.T) {
	p := NewProtocol(middleware.NewChain[*Rc]())
	for _, preface := range []string{"GET / HT", "POST /ap", "DELETE /", "HEAD / H"} {
		if !p.Test([]byte(preface)) {
			t.Errorf("Test(%q) should match", preface)
		}
	}
	for _, preface := range []string{"SBRP\x01\x01\x00\x00", "\x16\x03\x01\x02\x00", "garbage!"} {
		if p.Test([]byte(preface)) {
			t.Errorf("Test(%q) should not match", preface)
		}
	}
}

// startServe runs the protocol against one end of an in-memory pipe and
// hands back the client end.
func startServe(t *testing.T, p *Protocol) (net.Conn, chan error) {
	t.Helper()
	server, client := net.Pipe()
	errc := make(chan error, 1)
	go func() {
		errc <- p.Serve(context.Background(), server, bufio.NewReader(server))
		server.Close()
	}()
	t.Cleanup(func() { client.Close() })
	return client, errc
}

func readResponse(t *testing.T, r *bufio.Reader) (*Response, string) {
	t.Helper()
	resp, err := ParseResponseLazy(r, DefaultSafety())
	if err != nil {
		t.Fatalf("ParseResponseLazy: %v", err)
	}
	if err := resp.ParseBody(r, DefaultSafety()); err != nil {
		t.Fatalf("ParseBody: %v", err)
	}
	text, _ := resp.Body.Text()
	return resp, text
}

func TestServeKeepAlive(t *testing.T) {
	p := NewProtocol(middleware.NewChain[*Rc]())
	p.Handle("/hello", func(ctx context.Context, rc *Rc) error {
		rc.Text("hi " + rc.Query("name"))
		return nil
	})

	client, errc := startServe(t, p)
	r := bufio.NewReader(client)

	client.Write([]byte("GET /hello?name=ada HTTP/1.1\r\nHost: t\r\n\r\n"))
	resp, text := readResponse(t, r)
	if resp.Status() != StatusOK || text != "hi ada" {
		t.Fatalf("first exchange: %d %q", resp.Status(), text)
	}

	// Same connection serves a second request.
	client.Write([]byte("GET /hello?name=bob HTTP/1.1\r\nConnection: close\r\n\r\n"))
	resp, text = readResponse(t, r)
	if resp.Status() != StatusOK || text != "hi bob" {
		t.Fatalf("second exchange: %d %q", resp.Status(), text)
	}

	select {
	case err := <-errc:
		if err != nil {
			t.Fatalf("Serve: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Serve did not stop after Connection: close")
	}
}

func TestServeRouteArgs(t *testing.T) {
	p := NewProtocol(middleware.NewChain[*Rc]())
	p.Register(router.Literal("posts"), router.Arg("slug")).SetHandler(
		func(ctx context.Context, rc *Rc) error {
			rc.Text("post " + rc.Arg("slug"))
			return nil
		})

	client, _ := startServe(t, p)
	r := bufio.NewReader(client)

	client.Write([]byte("GET /posts/intro HTTP/1.1\r\nConnection: close\r\n\r\n"))
	_, text := readResponse(t, r)
	if text != "post intro" {
		t.Fatalf("text = %q", text)
	}
}

func TestServeUnmatchedPathIs404(t *testing.T) {
	p := NewProtocol(middleware.NewChain[*Rc]())
	p.Handle("/only", func(ctx context.Context, rc *Rc) error { return nil })

	client, _ := startServe(t, p)
	r := bufio.NewReader(client)

	client.Write([]byte("GET /other HTTP/1.1\r\nConnection: close\r\n\r\n"))
	resp, _ := readResponse(t, r)
	if resp.Status() != StatusNotFound {
		t.Fatalf("Status = %d, want 404", resp.Status())
	}
}

func TestServeMalformedRequestIs400(t *testing.T) {
	p := NewProtocol(middleware.NewChain[*Rc]())

	client, errc := startServe(t, p)
	r := bufio.NewReader(client)

	client.Write([]byte("TOTAL GARBAGE\r\n\r\n"))
	resp, _ := readResponse(t, r)
	if resp.Status() != StatusBadRequest {
		t.Fatalf("Status = %d, want 400", resp.Status())
	}

	select {
	case err := <-errc:
		if !errors.Is(err, ErrMalformedStartLine) {
			t.Fatalf("Serve error = %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Serve did not stop after malformed request")
	}
}

func TestServeHandlerErrorIs500(t *testing.T) {
	p := NewProtocol(middleware.NewChain[*Rc]())
	p.Handle("/boom", func(ctx context.Context, rc *Rc) error {
		return errors.New("storage offline")
	})

	client, _ := startServe(t, p)
	r := bufio.NewReader(client)

	client.Write([]byte("GET /boom HTTP/1.1\r\nConnection: close\r\n\r\n"))
	resp, _ := readResponse(t, r)
	if resp.Status() != StatusInternalServerError {
		t.Fatalf("Status = %d, want 500", resp.Status())
	}
}

func TestServeEndpointSafetyOverride(t *testing.T) {
	p := NewProtocol(middleware.NewChain[*Rc]())
	node := p.Handle("/upload", func(ctx context.Context, rc *Rc) error {
		rc.Text("stored")
		return nil
	})
	extensions.SetParam(node.Params(), Safety{MaxBodySize: 4})

	client, _ := startServe(t, p)
	r := bufio.NewReader(client)

	client.Write([]byte("POST /upload HTTP/1.1\r\nConnection: close\r\nContent-Length: 10\r\n\r\n0123456789"))
	resp, _ := readResponse(t, r)
	if resp.Status() != StatusPayloadTooLarge {
		t.Fatalf("Status = %d, want 413", resp.Status())
	}
}

func TestServeKeepAliveAfterOversizedBody(t *testing.T) {
	p := NewProtocol(middleware.NewChain[*Rc]())
	node := p.Handle("/up", func(ctx context.Context, rc *Rc) error {
		rc.Text("stored")
		return nil
	})
	extensions.SetParam(node.Params(), Safety{MaxBodySize: 4})

	client, _ := startServe(t, p)
	r := bufio.NewReader(client)

	// The rejected body must be cleared off the wire, not framed as
	// the next request's start line.
	client.Write([]byte("POST /up HTTP/1.1\r\nHost: t\r\nContent-Length: 10\r\n\r\n0123456789"))
	resp, _ := readResponse(t, r)
	if resp.Status() != StatusPayloadTooLarge {
		t.Fatalf("first status = %d, want 413", resp.Status())
	}

	client.Write([]byte("GET /up HTTP/1.1\r\nConnection: close\r\n\r\n"))
	resp, text := readResponse(t, r)
	if resp.Status() != StatusOK || text != "stored" {
		t.Fatalf("second exchange = %d %q, want 200 %q", resp.Status(), text, "stored")
	}
}

func TestServeClosesWhenBodyUndrainable(t *testing.T) {
	p := NewProtocol(middleware.NewChain[*Rc]())
	node := p.Handle("/up", func(ctx context.Context, rc *Rc) error {
		rc.Text("stored")
		return nil
	})
	extensions.SetParam(node.Params(), Safety{MaxBodySize: 4})

	client, errc := startServe(t, p)
	r := bufio.NewReader(client)

	// Declared body far beyond the drain budget: the 413 still goes
	// out, then the connection closes instead of waiting for megabytes
	// of payload.
	client.Write([]byte("POST /up HTTP/1.1\r\nHost: t\r\nContent-Length: 2097152\r\n\r\n"))
	resp, _ := readResponse(t, r)
	if resp.Status() != StatusPayloadTooLarge {
		t.Fatalf("status = %d, want 413", resp.Status())
	}

	select {
	case err := <-errc:
		if err != nil {
			t.Fatalf("Serve: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Serve kept the connection open with body bytes pending")
	}
}

func TestServeDrainsUnreadBody(t *testing.T) {
	p := NewProtocol(middleware.NewChain[*Rc]())
	p.Handle("/ignore", func(ctx context.Context, rc *Rc) error {
		// Never touches the body.
		rc.Text("ok")
		return nil
	})

	client, _ := startServe(t, p)
	r := bufio.NewReader(client)

	client.Write([]byte("POST /ignore HTTP/1.1\r\nContent-Length: 5\r\n\r\nhello"))
	if _, text := readResponse(t, r); text != "ok" {
		t.Fatalf("first text = %q", text)
	}

	// The unread body must not bleed into the next request's framing.
	client.Write([]byte("GET /ignore HTTP/1.1\r\nConnection: close\r\n\r\n"))
	if resp, _ := readResponse(t, r); resp.Status() != StatusOK {
		t.Fatalf("second status = %d", resp.Status())
	}
}

func TestServeRunsDefaultChain(t *testing.T) {
	var order []string
	mw := func(name string) middleware.Middleware[*Rc] {
		return func(next middleware.Handler[*Rc]) middleware.Handler[*Rc] {
			return func(ctx context.Context, rc *Rc) error {
				order = append(order, name+":pre")
				err := next(ctx, rc)
				order = append(order, name+":post")
				return err
			}
		}
	}

	p := NewProtocol(middleware.NewChain(mw("outer"), mw("inner")))
	p.Handle("/", func(ctx context.Context, rc *Rc) error {
		order = append(order, "handler")
		rc.Text("done")
		return nil
	})

	client, _ := startServe(t, p)
	r := bufio.NewReader(client)
	client.Write([]byte("GET / HTTP/1.1\r\nConnection: close\r\n\r\n"))
	readResponse(t, r)

	want := strings.Join([]string{"outer:pre", "inner:pre", "handler", "inner:post", "outer:post"}, ",")
	if got := strings.Join(order, ","); got != want {
		t.Fatalf("order = %s, want %s", got, want)
	}
}
