package http

import (
	"bufio"
	"bytes"
	"strings"
	"testing"
)

func sendWire(t *testing.T, resp *Response) string {
	t.Helper()
	var buf bytes.Buffer
	if err := resp.Send(&buf); err != nil {
		t.Fatalf("Send: %v", err)
	}
	return buf.String()
}

func TestTextResponseWire(t *testing.T) {
	out := sendWire(t, TextResponse("hello"))
	if !strings.HasPrefix(out, "HTTP/1.1 200 OK\r\n") {
		t.Errorf("status line: %q", out)
	}
	if !strings.Contains(out, "Content-Type: text/plain") {
		t.Errorf("content type: %q", out)
	}
	if !strings.Contains(out, "Content-Length: 5\r\n") {
		t.Errorf("content length: %q", out)
	}
	if !strings.HasSuffix(out, "\r\n\r\nhello") {
		t.Errorf("payload: %q", out)
	}
}

func TestJSONResponseWire(t *testing.T) {
	out := sendWire(t, JSONResponse(map[string]int{"n": 7}))
	if !strings.Contains(out, "Content-Type: application/json") {
		t.Errorf("content type: %q", out)
	}
	if !strings.HasSuffix(out, `{"n":7}`) {
		t.Errorf("payload: %q", out)
	}
}

func TestRedirectResponseWire(t *testing.T) {
	resp := RedirectResponse("/login")
	if resp.Status() != StatusFound {
		t.Errorf("Status = %d, want 302", resp.Status())
	}
	out := sendWire(t, resp)
	if !strings.Contains(out, "Location: /login\r\n") {
		t.Errorf("location: %q", out)
	}
	if !strings.Contains(out, "Content-Length: 0\r\n") {
		t.Errorf("redirect must have an empty body: %q", out)
	}

	if PermanentRedirectResponse("/x").Status() != StatusMovedPermanently {
		t.Error("permanent redirect should be 301")
	}
}

func TestStatusResponseBodyMatchesReason(t *testing.T) {
	out := sendWire(t, StatusResponse(StatusNotFound))
	if !strings.HasPrefix(out, "HTTP/1.1 404 Not Found\r\n") {
		t.Errorf("status line: %q", out)
	}
	if !strings.HasSuffix(out, "Not Found") {
		t.Errorf("payload: %q", out)
	}
}

func TestResponseSetCookie(t *testing.T) {
	resp := TextResponse("ok").SetCookie("session", NewCookie("abc").WithHTTPOnly())
	out := sendWire(t, resp)
	if !strings.Contains(out, "Set-Cookie: session=abc; HttpOnly") {
		t.Errorf("set-cookie: %q", out)
	}
}

func TestRequestSendParseRoundTrip(t *testing.T) {
	req := JSONRequest("/api/items?limit=5", map[string]string{"name": "widget"})
	req.Meta.SetHost("example.com")

	var buf bytes.Buffer
	if err := req.Send(&buf); err != nil {
		t.Fatalf("Send: %v", err)
	}

	r := bufio.NewReader(&buf)
	parsed, err := ParseRequestLazy(r, DefaultSafety())
	if err != nil {
		t.Fatalf("ParseRequestLazy: %v", err)
	}
	if parsed.Meta.Method() != MethodPost {
		t.Errorf("Method = %s", parsed.Meta.Method())
	}
	if parsed.Meta.PathOnly() != "/api/items" {
		t.Errorf("PathOnly = %q", parsed.Meta.PathOnly())
	}
	if parsed.Meta.Query("limit") != "5" {
		t.Errorf("Query(limit) = %q", parsed.Meta.Query("limit"))
	}
	if err := parsed.Body.Parse(r, parsed.Meta, DefaultSafety()); err != nil {
		t.Fatalf("Parse body: %v", err)
	}
	v, ok := parsed.Body.JSON()
	if !ok || v.(map[string]any)["name"] != "widget" {
		t.Errorf("json = %v ok=%v", v, ok)
	}
}

func TestResponseRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	if err := HTMLResponse("<p>hi</p>").Send(&buf); err != nil {
		t.Fatal(err)
	}

	r := bufio.NewReader(&buf)
	resp, err := ParseResponseLazy(r, DefaultSafety())
	if err != nil {
		t.Fatalf("ParseResponseLazy: %v", err)
	}
	if resp.Status() != StatusOK {
		t.Errorf("Status = %d", resp.Status())
	}
	if err := resp.ParseBody(r, DefaultSafety()); err != nil {
		t.Fatal(err)
	}
	if text, _ := resp.Body.Text(); text != "<p>hi</p>" {
		t.Errorf("text = %q", text)
	}
}

func TestSafetyCheck(t *testing.T) {
	base := DefaultSafety().
		WithMaxBodySize(10).
		WithMethods(MethodGet, MethodPost).
		WithContentTypes("application/json")

	cases := []struct {
		name string
		wire string
		code StatusCode
		ok   bool
	}{
		{
			"allowed",
			"POST /a HTTP/1.1\r\nContent-Type: application/json\r\nContent-Length: 5\r\n\r\n",
			0, true,
		},
		{
			"body too large",
			"POST /a HTTP/1.1\r\nContent-Type: application/json\r\nContent-Length: 50\r\n\r\n",
			StatusPayloadTooLarge, false,
		},
		{
			"method not allowed",
			"DELETE /a HTTP/1.1\r\n\r\n",
			StatusMethodNotAllowed, false,
		},
		{
			"unsupported media type",
			"POST /a HTTP/1.1\r\nContent-Type: text/csv\r\nContent-Length: 2\r\n\r\n",
			StatusUnsupportedMedia, false,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			meta := parseWire(t, tc.wire)
			code, ok := base.Check(meta)
			if ok != tc.ok {
				t.Fatalf("ok = %v, want %v", ok, tc.ok)
			}
			if !ok && code != tc.code {
				t.Errorf("code = %d, want %d", code, tc.code)
			}
		})
	}
}

func TestSafetyMerge(t *testing.T) {
	base := DefaultSafety().WithMethods(MethodGet)
	override := Safety{MaxBodySize: 42}

	merged := base.Merge(override)
	if merged.MaxBodySize != 42 {
		t.Errorf("MaxBodySize = %d", merged.MaxBodySize)
	}
	// Fields the override leaves zero keep the base values.
	if merged.MaxHeaders != base.MaxHeaders {
		t.Errorf("MaxHeaders = %d", merged.MaxHeaders)
	}
	if len(merged.AllowedMethods) != 1 || merged.AllowedMethods[0] != MethodGet {
		t.Errorf("AllowedMethods = %v", merged.AllowedMethods)
	}
}
