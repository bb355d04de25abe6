package http

import (
	"bufio"
	"bytes"
	"compress/flate"
	"compress/gzip"
	"compress/zlib"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/url"
	"strconv"
	"strings"
)

// BodyState tracks how far a body has been materialized.
type BodyState uint8

const (
	// BodyUnparsed means the bytes are still sitting in the connection
	// buffer.
	BodyUnparsed BodyState = iota
	BodyBinary
	BodyText
	BodyForm
	BodyFiles
	BodyJSON
	// BodyEmpty marks a request that carried no body.
	BodyEmpty
)

// FilePart is one uploaded file from a multipart body.
type FilePart struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Form holds urlencoded or multipart text fields.
type Form map[string][]string

// Get returns the first value for the field.
func (f Form) Get(key string) string {
	if vs := f[key]; len(vs) > 0 {
		return vs[0]
	}
	return ""
}

// Body is the lazily-parsed request or response payload. The raw bytes
// are fetched from the connection reader once, on the first access that
// needs them, then interpreted according to the content type; the
// interpretation is memoized.
type Body struct {
	state BodyState
	// dirty marks payload bytes left on the wire after a failed read.
	dirty bool
	raw   []byte
	text  string
	form  Form
	files map[string][]*FilePart
	json  any
}

// NewBody returns an unparsed body.
func NewBody() *Body { return &Body{state: BodyUnparsed} }

// BinaryBody wraps raw bytes as an already-materialized body.
func BinaryBody(data []byte) *Body { return &Body{state: BodyBinary, raw: data} }

// TextBody wraps a string payload.
func TextBody(s string) *Body { return &Body{state: BodyText, raw: []byte(s), text: s} }

// JSONBody marshals v as the payload. Marshal failure yields an empty
// body; callers constructing responses from their own types are expected
// to pass marshalable values.
func JSONBody(v any) *Body {
	data, err := json.Marshal(v)
	if err != nil {
		return &Body{state: BodyEmpty}
	}
	return &Body{state: BodyJSON, raw: data, json: v}
}

// EmptyBody is a body with no payload.
func EmptyBody() *Body { return &Body{state: BodyEmpty} }

// State reports the materialization state.
func (b *Body) State() BodyState { return b.state }

// Raw returns the materialized bytes. Empty until Parse has run on a
// lazy body.
func (b *Body) Raw() []byte { return b.raw }

// Parse fetches the payload from r according to meta and interprets it
// by content type. It is idempotent: any state other than BodyUnparsed
// returns immediately. A request larger than the safety limit or with a
// malformed framing returns an error and leaves the body empty; a payload
// that fails content decoding keeps its raw bytes as binary.
func (b *Body) Parse(r *bufio.Reader, meta *Meta, safety Safety) error {
	if b.state != BodyUnparsed {
		return nil
	}
	raw, err := readPayload(r, meta, safety)
	if err != nil {
		b.state = BodyEmpty
		b.dirty = true
		return err
	}
	if len(raw) == 0 {
		b.state = BodyEmpty
		return nil
	}
	if coding := meta.ContentEncoding(); coding != "" {
		decoded, err := decodeBody(raw, coding, safety.MaxBodySize)
		if err != nil {
			b.raw = raw
			b.state = BodyBinary
			return err
		}
		if decoded == nil {
			// A coding this server does not speak: hand the caller
			// the compressed bytes rather than garbage fields.
			b.raw = raw
			b.state = BodyBinary
			return nil
		}
		raw = decoded
	}
	b.raw = raw

	ct := meta.ContentType()
	switch {
	case ct.Is("application/x-www-form-urlencoded"):
		values, err := url.ParseQuery(string(raw))
		if err != nil {
			b.state = BodyBinary
			return fmt.Errorf("%w: %v", ErrMalformedBody, err)
		}
		b.form = Form(values)
		b.state = BodyForm
	case ct.Is("multipart/form-data"):
		if err := b.parseMultipart(raw, ct.Params["boundary"]); err != nil {
			b.state = BodyBinary
			return err
		}
		b.state = BodyFiles
	case ct.Is("application/json"):
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			b.state = BodyBinary
			return fmt.Errorf("%w: %v", ErrMalformedBody, err)
		}
		b.json = v
		b.state = BodyJSON
	case ct.Type == "text" || ct.Media() == "":
		b.text = string(raw)
		b.state = BodyText
	default:
		b.state = BodyBinary
	}
	return nil
}

func (b *Body) parseMultipart(raw []byte, boundary string) error {
	if boundary == "" {
		return fmt.Errorf("%w: multipart body without boundary", ErrMalformedBody)
	}
	mr := multipart.NewReader(bytes.NewReader(raw), boundary)
	form := Form{}
	files := map[string][]*FilePart{}
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("%w: %v", ErrMalformedBody, err)
		}
		data, err := io.ReadAll(part)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrMalformedBody, err)
		}
		name := part.FormName()
		if filename := part.FileName(); filename != "" {
			files[name] = append(files[name], &FilePart{
				Filename:    filename,
				ContentType: part.Header.Get("Content-Type"),
				Data:        data,
			})
		} else {
			form[name] = append(form[name], string(data))
		}
	}
	b.form = form
	b.files = files
	return nil
}

// Text returns the payload as text for text-like bodies.
func (b *Body) Text() (string, bool) {
	if b.state == BodyText {
		return b.text, true
	}
	return "", false
}

// Form returns the parsed field map for urlencoded and multipart bodies.
func (b *Body) Form() (Form, bool) {
	if b.state == BodyForm || b.state == BodyFiles {
		return b.form, true
	}
	return nil, false
}

// Files returns the uploaded files of a multipart body.
func (b *Body) Files() (map[string][]*FilePart, bool) {
	if b.state == BodyFiles {
		return b.files, true
	}
	return nil, false
}

// JSON returns the decoded JSON document.
func (b *Body) JSON() (any, bool) {
	if b.state == BodyJSON {
		return b.json, true
	}
	return nil, false
}

// readPayload pulls the raw payload bytes off the wire: Content-Length
// framed, chunked, or absent.
func readPayload(r *bufio.Reader, meta *Meta, safety Safety) ([]byte, error) {
	if meta.Chunked() {
		return readChunked(r, safety.MaxBodySize)
	}
	n := meta.ContentLength()
	if n == 0 {
		return nil, nil
	}
	if !safety.CheckBodySize(n) {
		return nil, ErrBodyTooLarge
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedBody, err)
	}
	return buf, nil
}

// readChunked decodes a chunked transfer encoding, bounded by max.
func readChunked(r *bufio.Reader, max int) ([]byte, error) {
	var out bytes.Buffer
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedChunk, err)
		}
		line = strings.TrimRight(line, "\r\n")
		if semi := strings.IndexByte(line, ';'); semi >= 0 {
			line = line[:semi]
		}
		size, err := strconv.ParseInt(line, 16, 64)
		if err != nil || size < 0 {
			return nil, fmt.Errorf("%w: bad chunk size %q", ErrMalformedChunk, line)
		}
		if size == 0 {
			// Trailer section ends with a blank line.
			for {
				t, err := r.ReadString('\n')
				if err != nil {
					return nil, fmt.Errorf("%w: %v", ErrMalformedChunk, err)
				}
				if strings.TrimRight(t, "\r\n") == "" {
					break
				}
			}
			return out.Bytes(), nil
		}
		if max != 0 && out.Len()+int(size) > max {
			return nil, ErrBodyTooLarge
		}
		if _, err := io.CopyN(&out, r, size); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedChunk, err)
		}
		// Chunk data is followed by CRLF.
		if _, err := r.ReadString('\n'); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedChunk, err)
		}
	}
}

// maxDrainBytes bounds how much of an unread body Drain discards to
// keep a connection reusable. Past this, closing the connection is
// cheaper than clearing it.
const maxDrainBytes = 1 << 20

// Drain discards an unread body so the connection can be reused for the
// next request. It reports whether the wire is actually clear; on false,
// payload bytes remain buffered and the connection must be closed, or
// they would be framed as the next request.
func (b *Body) Drain(r *bufio.Reader, meta *Meta) bool {
	if b.state != BodyUnparsed {
		return !b.dirty
	}
	b.state = BodyEmpty
	if meta.Chunked() {
		if _, err := readChunked(r, maxDrainBytes); err != nil {
			b.dirty = true
			return false
		}
		return true
	}
	n := meta.ContentLength()
	if n == 0 {
		return true
	}
	if n > maxDrainBytes {
		b.dirty = true
		return false
	}
	if _, err := io.CopyN(io.Discard, r, int64(n)); err != nil {
		b.dirty = true
		return false
	}
	return true
}

// decodeBody reverses the Content-Encoding applied to raw, bounded by
// max after decompression. Codings this server does not implement
// return nil bytes and a nil error so the caller can fall back to the
// compressed payload.
func decodeBody(raw []byte, coding string, max int) ([]byte, error) {
	var src io.Reader
	switch coding {
	case "gzip", "x-gzip":
		zr, err := gzip.NewReader(bytes.NewReader(raw))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedBody, err)
		}
		defer zr.Close()
		src = zr
	case "deflate":
		// Peers disagree on whether deflate means a zlib-wrapped or a
		// raw stream. Sniff the zlib header.
		if len(raw) > 1 && raw[0] == 0x78 {
			zr, err := zlib.NewReader(bytes.NewReader(raw))
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrMalformedBody, err)
			}
			defer zr.Close()
			src = zr
		} else {
			fr := flate.NewReader(bytes.NewReader(raw))
			defer fr.Close()
			src = fr
		}
	default:
		return nil, nil
	}

	if max == 0 {
		out, err := io.ReadAll(src)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedBody, err)
		}
		return out, nil
	}
	out, err := io.ReadAll(io.LimitReader(src, int64(max)+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedBody, err)
	}
	if len(out) > max {
		return nil, ErrBodyTooLarge
	}
	return out, nil
}
