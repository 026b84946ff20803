// Package httpparser implements the incremental HTTP/1.1 request parser
// described in spec §4.2: the I/O worker repeatedly asks the parser for a
// writable region (Buffer), reports how many bytes landed there (Advance),
// and polls Eof/Finalize once the request line, headers and any body are
// complete. The parser never blocks and never performs I/O itself — that
// separation is what lets the same state machine serve both an
// edge-triggered non-blocking reader and, as used here, a goroutine doing
// plain blocking net.Conn.Read calls (see internal/ioworker).
package httpparser

import (
	"bytes"
	"net/textproto"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

const (
	maxHeaderSection = 32 * 1024
	maxURILength     = 8 * 1024
	initialBufSize   = 4096
)

// Parser is an incremental, single-request HTTP/1.1 parser. It is not
// goroutine-safe and is owned exclusively by one connection at a time,
// matching the connection record's single-owner invariant (spec §3).
type Parser struct {
	buf    []byte
	max    int
	header Header

	headerEnd     int // index just past the header-terminating CRLFCRLF; -1 until found
	contentLength int // -1 until known

	method   string
	path     string
	rawQuery string

	err error
}

// NewParser creates a parser bounded by maxSize bytes (MAX_REQUEST_SIZE).
func NewParser(maxSize int) *Parser {
	p := &Parser{max: maxSize}
	p.Reset()
	return p
}

// Reset reinitializes the parser for the next request on the same
// connection (spec §4.9: "Resetting is kept for completeness").
func (p *Parser) Reset() {
	initial := initialBufSize
	if p.max < initial {
		initial = p.max
	}
	p.buf = make([]byte, 0, initial)
	p.header = nil
	p.headerEnd = -1
	p.contentLength = -1
	p.method = ""
	p.path = ""
	p.rawQuery = ""
	p.err = nil
}

// Buffer returns a writable span into the free region of the internal
// buffer, growing it geometrically up to max. An empty span means either
// the MAX_REQUEST_SIZE cap has been reached — the caller should treat this
// as the 413-equivalent boundary condition — or a parse error has already
// been recorded; Finalize reports which.
func (p *Parser) Buffer() []byte {
	if p.err != nil || len(p.buf) >= p.max {
		return nil
	}
	if len(p.buf) == cap(p.buf) {
		newCap := cap(p.buf) * 2
		if newCap > p.max {
			newCap = p.max
		}
		if newCap <= cap(p.buf) {
			return nil
		}
		grown := make([]byte, len(p.buf), newCap)
		copy(grown, p.buf)
		p.buf = grown
	}
	return p.buf[len(p.buf):cap(p.buf)]
}

// Advance reports that n bytes were written into the span last returned
// by Buffer, and opportunistically tries to locate the end of the header
// section.
func (p *Parser) Advance(n int) {
	p.buf = p.buf[:len(p.buf)+n]
	if p.err == nil && p.headerEnd < 0 {
		p.scanHeaders()
	}
}

// Eof reports whether the request line, headers and any declared body are
// fully buffered (or a parse error has already been determined).
func (p *Parser) Eof() bool {
	if p.err != nil {
		return true
	}
	if p.headerEnd < 0 {
		return len(p.buf) >= p.max
	}
	total := p.headerEnd + p.contentLength
	if total > p.max {
		p.err = ErrRequestTooLarge
		return true
	}
	return len(p.buf) >= total
}

func (p *Parser) scanHeaders() {
	idx := bytes.Index(p.buf, []byte("\r\n\r\n"))
	if idx < 0 {
		if len(p.buf) > maxHeaderSection {
			p.err = ErrHeaderTooLarge
		}
		return
	}
	if idx > maxHeaderSection {
		p.err = ErrHeaderTooLarge
		return
	}
	if err := p.parseHead(p.buf[:idx]); err != nil {
		p.err = err
		return
	}
	p.headerEnd = idx + 4
}

func (p *Parser) parseHead(head []byte) error {
	lines := strings.Split(string(head), "\r\n")
	if len(lines) == 0 || lines[0] == "" {
		return ErrMalformedRequestLine
	}

	fields := strings.Fields(lines[0])
	if len(fields) != 3 {
		return ErrMalformedRequestLine
	}
	method, uri := fields[0], fields[1]
	if len(uri) > maxURILength {
		return ErrURITooLong
	}

	path, rawQuery, _ := strings.Cut(uri, "?")

	header := newHeader()
	sawContentLength := false
	chunked := false
	for _, line := range lines[1:] {
		if line == "" {
			continue
		}
		name, value, ok := strings.Cut(line, ":")
		if !ok {
			return ErrMalformedHeaderLine
		}
		name = strings.TrimSpace(name)
		value = strings.TrimSpace(value)
		canon := textproto.CanonicalMIMEHeaderKey(name)

		if canon == "Content-Length" {
			if sawContentLength {
				return ErrDuplicateContentLength
			}
			sawContentLength = true
		}
		if canon == "Transfer-Encoding" && strings.EqualFold(value, "chunked") {
			chunked = true
		}
		header.Set(name, value)
	}
	if chunked {
		return ErrChunkedUnsupported
	}

	contentLength := 0
	if cl := header.Get("Content-Length"); cl != "" {
		n, convErr := strconv.Atoi(cl)
		if convErr != nil || n < 0 {
			return ErrMalformedContentLength
		}
		contentLength = n
	}

	p.method = method
	p.path = path
	p.rawQuery = rawQuery
	p.header = header
	p.contentLength = contentLength
	return nil
}

// Finalize consumes the buffered bytes and produces a Request, decoding
// the query string and, for recognized content types, the body.
func (p *Parser) Finalize(remoteIP string) (*Request, error) {
	if p.err != nil {
		return nil, p.err
	}
	if p.headerEnd < 0 {
		if len(p.buf) >= p.max {
			return nil, ErrRequestTooLarge
		}
		return nil, ErrIncomplete
	}

	total := p.headerEnd + p.contentLength
	if total > p.max {
		return nil, ErrRequestTooLarge
	}
	if len(p.buf) < total {
		return nil, ErrIncomplete
	}

	body := p.buf[p.headerEnd:total]
	query := parseURLEncoded(p.rawQuery)

	var form map[string]string
	var parts []Part
	ct := p.header.Get("Content-Type")
	switch {
	case strings.HasPrefix(ct, "application/x-www-form-urlencoded"):
		form = parseURLEncoded(string(body))
		for k, v := range form {
			query[k] = v
		}
	case strings.HasPrefix(ct, "multipart/form-data"):
		boundary, err := extractBoundary(ct)
		if err != nil {
			return nil, err
		}
		parts, err = splitMultipart(body, boundary)
		if err != nil {
			return nil, err
		}
	}

	requestID := p.header.Get("X-Request-Id")
	if requestID == "" {
		requestID = uuid.NewString()
	}

	return &Request{
		Method:    p.method,
		Path:      p.path,
		RawQuery:  p.rawQuery,
		Query:     query,
		Header:    p.header,
		Body:      body,
		Form:      form,
		Multipart: parts,
		RemoteIP:  remoteIP,
		RequestID: requestID,
	}, nil
}
