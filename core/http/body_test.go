package http

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"compress/zlib"
	"errors"
	"mime/multipart"
	"strconv"
	"strings"
	"testing"
)

func parseBody(t *testing.T, wire string, safety Safety) (*Body, error) {
	t.Helper()
	r := bufio.NewReader(strings.NewReader(wire))
	meta, err := ParseMeta(r, safety, true)
	if err != nil {
		t.Fatalf("ParseMeta: %v", err)
	}
	body := NewBody()
	return body, body.Parse(r, meta, safety)
}

func TestParseFormBody(t *testing.T) {
	payload := "name=ada&lang=go&lang=rust"
	wire := "POST /submit HTTP/1.1\r\n" +
		"Content-Type: application/x-www-form-urlencoded\r\n" +
		"Content-Length: " + itoa(len(payload)) + "\r\n\r\n" + payload

	body, err := parseBody(t, wire, DefaultSafety())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	form, ok := body.Form()
	if !ok {
		t.Fatalf("state = %d, want form", body.State())
	}
	if form.Get("name") != "ada" {
		t.Errorf("name = %q", form.Get("name"))
	}
	if len(form["lang"]) != 2 {
		t.Errorf("lang values = %v", form["lang"])
	}
}

func TestParseJSONBody(t *testing.T) {
	payload := `{"title":"hello","count":3}`
	wire := "POST /api HTTP/1.1\r\n" +
		"Content-Type: application/json\r\n" +
		"Content-Length: " + itoa(len(payload)) + "\r\n\r\n" + payload

	body, err := parseBody(t, wire, DefaultSafety())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	v, ok := body.JSON()
	if !ok {
		t.Fatalf("state = %d, want json", body.State())
	}
	doc := v.(map[string]any)
	if doc["title"] != "hello" {
		t.Errorf("title = %v", doc["title"])
	}
}

func TestParseMultipartBody(t *testing.T) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	mw.WriteField("caption", "sunset")
	fw, _ := mw.CreateFormFile("photo", "sunset.png")
	fw.Write([]byte("PNGDATA"))
	mw.Close()

	wire := "POST /upload HTTP/1.1\r\n" +
		"Content-Type: " + mw.FormDataContentType() + "\r\n" +
		"Content-Length: " + itoa(buf.Len()) + "\r\n\r\n" + buf.String()

	body, err := parseBody(t, wire, DefaultSafety())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	form, ok := body.Form()
	if !ok || form.Get("caption") != "sunset" {
		t.Errorf("caption = %q ok=%v", form.Get("caption"), ok)
	}
	files, ok := body.Files()
	if !ok {
		t.Fatalf("state = %d, want files", body.State())
	}
	parts := files["photo"]
	if len(parts) != 1 || parts[0].Filename != "sunset.png" || string(parts[0].Data) != "PNGDATA" {
		t.Errorf("photo parts = %+v", parts)
	}
}

func TestParseChunkedBody(t *testing.T) {
	wire := "POST /api HTTP/1.1\r\n" +
		"Content-Type: text/plain\r\n" +
		"Transfer-Encoding: chunked\r\n\r\n" +
		"5\r\nhello\r\n" +
		"6\r\n world\r\n" +
		"0\r\n\r\n"

	body, err := parseBody(t, wire, DefaultSafety())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	text, ok := body.Text()
	if !ok || text != "hello world" {
		t.Errorf("text = %q ok=%v", text, ok)
	}
}

func TestParseChunkedMalformedSize(t *testing.T) {
	wire := "POST /api HTTP/1.1\r\n" +
		"Transfer-Encoding: chunked\r\n\r\n" +
		"zz\r\nhello\r\n0\r\n\r\n"

	_, err := parseBody(t, wire, DefaultSafety())
	if !errors.Is(err, ErrMalformedChunk) {
		t.Fatalf("want ErrMalformedChunk, got %v", err)
	}
}

func TestParseBodyTooLarge(t *testing.T) {
	payload := strings.Repeat("x", 100)
	wire := "POST /api HTTP/1.1\r\n" +
		"Content-Length: " + itoa(len(payload)) + "\r\n\r\n" + payload

	body, err := parseBody(t, wire, DefaultSafety().WithMaxBodySize(10))
	if !errors.Is(err, ErrBodyTooLarge) {
		t.Fatalf("want ErrBodyTooLarge, got %v", err)
	}
	if body.State() != BodyEmpty {
		t.Errorf("state = %d, want empty", body.State())
	}
}

func TestParseMalformedJSONLeavesBinary(t *testing.T) {
	payload := `{"broken":`
	wire := "POST /api HTTP/1.1\r\n" +
		"Content-Type: application/json\r\n" +
		"Content-Length: " + itoa(len(payload)) + "\r\n\r\n" + payload

	body, err := parseBody(t, wire, DefaultSafety())
	if !errors.Is(err, ErrMalformedBody) {
		t.Fatalf("want ErrMalformedBody, got %v", err)
	}
	if body.State() != BodyBinary {
		t.Errorf("state = %d, want binary", body.State())
	}
	if string(body.Raw()) != payload {
		t.Errorf("raw bytes lost: %q", body.Raw())
	}
}

func TestParseIsIdempotent(t *testing.T) {
	payload := "hello"
	wire := "POST /api HTTP/1.1\r\n" +
		"Content-Type: text/plain\r\n" +
		"Content-Length: 5\r\n\r\n" + payload

	r := bufio.NewReader(strings.NewReader(wire))
	meta, err := ParseMeta(r, DefaultSafety(), true)
	if err != nil {
		t.Fatal(err)
	}
	body := NewBody()
	if err := body.Parse(r, meta, DefaultSafety()); err != nil {
		t.Fatal(err)
	}
	// Second parse must not touch the reader again.
	if err := body.Parse(r, meta, DefaultSafety()); err != nil {
		t.Fatal(err)
	}
	if text, _ := body.Text(); text != "hello" {
		t.Errorf("text = %q", text)
	}
}

func gzipBytes(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestParseGzipBody(t *testing.T) {
	payload := gzipBytes(t, []byte(`{"lang":"go","fast":true}`))
	wire := "POST /submit HTTP/1.1\r\n" +
		"Content-Type: application/json\r\n" +
		"Content-Encoding: gzip\r\n" +
		"Content-Length: " + itoa(len(payload)) + "\r\n\r\n" + string(payload)

	body, err := parseBody(t, wire, DefaultSafety())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	v, ok := body.JSON()
	if !ok {
		t.Fatalf("state = %d, want json", body.State())
	}
	m, ok := v.(map[string]any)
	if !ok || m["lang"] != "go" {
		t.Errorf("json = %#v", v)
	}
}

func TestParseDeflateBody(t *testing.T) {
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	if _, err := zw.Write([]byte("name=ada&lang=go")); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	payload := buf.String()

	wire := "POST /submit HTTP/1.1\r\n" +
		"Content-Type: application/x-www-form-urlencoded\r\n" +
		"Content-Encoding: deflate\r\n" +
		"Content-Length: " + itoa(len(payload)) + "\r\n\r\n" + payload

	body, err := parseBody(t, wire, DefaultSafety())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	form, ok := body.Form()
	if !ok {
		t.Fatalf("state = %d, want form", body.State())
	}
	if form.Get("name") != "ada" {
		t.Errorf("name = %q", form.Get("name"))
	}
}

func TestParseUnknownEncodingKeptAsBinary(t *testing.T) {
	payload := "\x1b\x02compressed-elsewhere"
	wire := "POST /submit HTTP/1.1\r\n" +
		"Content-Type: application/json\r\n" +
		"Content-Encoding: br\r\n" +
		"Content-Length: " + itoa(len(payload)) + "\r\n\r\n" + payload

	body, err := parseBody(t, wire, DefaultSafety())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if body.State() != BodyBinary {
		t.Fatalf("state = %d, want binary", body.State())
	}
	if string(body.Raw()) != payload {
		t.Errorf("Raw = %q", body.Raw())
	}
}

func TestParseGzipBodyDecompressedOverLimit(t *testing.T) {
	payload := gzipBytes(t, bytes.Repeat([]byte("a"), 1<<16))
	safety := DefaultSafety()
	// Compressed size clears the check; the decompressed size must not.
	safety.MaxBodySize = len(payload) + 1

	wire := "POST /submit HTTP/1.1\r\n" +
		"Content-Encoding: gzip\r\n" +
		"Content-Length: " + itoa(len(payload)) + "\r\n\r\n" + string(payload)

	_, err := parseBody(t, wire, safety)
	if !errors.Is(err, ErrBodyTooLarge) {
		t.Fatalf("want ErrBodyTooLarge, got %v", err)
	}
}

func TestDrainReportsDirtyAfterFailedParse(t *testing.T) {
	wire := "POST /a HTTP/1.1\r\nContent-Length: 10\r\n\r\n0123456789"
	r := bufio.NewReader(strings.NewReader(wire))
	safety := DefaultSafety()
	safety.MaxBodySize = 4

	meta, err := ParseMeta(r, safety, true)
	if err != nil {
		t.Fatal(err)
	}
	body := NewBody()
	if err := body.Parse(r, meta, safety); !errors.Is(err, ErrBodyTooLarge) {
		t.Fatalf("Parse = %v, want ErrBodyTooLarge", err)
	}
	if body.Drain(r, meta) {
		t.Fatal("Drain reported a clean wire after a failed body read")
	}
}

func TestDrainRefusesBodyBeyondBudget(t *testing.T) {
	wire := "POST /a HTTP/1.1\r\nContent-Length: 2097152\r\n\r\n"
	r := bufio.NewReader(strings.NewReader(wire))

	meta, err := ParseMeta(r, DefaultSafety(), true)
	if err != nil {
		t.Fatal(err)
	}
	if NewBody().Drain(r, meta) {
		t.Fatal("Drain claimed to clear a body beyond its budget")
	}
}

func TestDrainLeavesNextRequestReadable(t *testing.T) {
	wire := "POST /a HTTP/1.1\r\nContent-Length: 5\r\n\r\nhello" +
		"GET /b HTTP/1.1\r\n\r\n"

	r := bufio.NewReader(strings.NewReader(wire))
	safety := DefaultSafety()

	meta, err := ParseMeta(r, safety, true)
	if err != nil {
		t.Fatal(err)
	}
	body := NewBody()
	if !body.Drain(r, meta) {
		t.Fatal("Drain reported a dirty wire for a framed body")
	}

	next, err := ParseMeta(r, safety, true)
	if err != nil {
		t.Fatalf("second request unreadable: %v", err)
	}
	if next.Path() != "/b" {
		t.Errorf("Path = %q, want /b", next.Path())
	}
}

func itoa(n int) string { return strconv.Itoa(n) }
