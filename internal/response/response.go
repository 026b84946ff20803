// Package response implements the response builder described in spec §4.3:
// a minimal status-line+headers+body serializer with a send cursor the I/O
// worker uses to drive non-blocking writes, plus the CORS/OPTIONS responder.
package response

import (
	"bytes"
	"strconv"
	"sync"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const crlf = "\r\n"

// Response is mutable until Build is called, after which the byte form is
// appended-only by the writer until drained (spec §3). Cursor tracks bytes
// already written to the socket.
type Response struct {
	Status  int
	Header  map[string]string
	Body    []byte
	wire    []byte
	cursor  int
}

var pool = sync.Pool{New: func() any { return &Response{Header: make(map[string]string, 4)} }}

// Acquire returns a Response ready for reuse, status defaulted to 200 and
// Content-Type defaulted to application/json per spec §4.3.
func Acquire() *Response {
	r := pool.Get().(*Response)
	r.Status = 200
	r.Body = nil
	r.wire = r.wire[:0]
	r.cursor = 0
	for k := range r.Header {
		delete(r.Header, k)
	}
	r.Header["Content-Type"] = "application/json"
	r.Header["Connection"] = "close"
	return r
}

// Release returns r to the pool. Callers must not touch r afterward.
func Release(r *Response) {
	pool.Put(r)
}

// Set sets a response header, overwriting any previous value.
func (r *Response) Set(key, value string) {
	r.Header[key] = value
}

// JSON marshals v with the hot-path encoder and sets it as the body.
func (r *Response) JSON(status int, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return err
	}
	r.Status = status
	r.Body = body
	return nil
}

// Text sets a plain-text body and switches Content-Type accordingly.
func (r *Response) Text(status int, body string) {
	r.Status = status
	r.Header["Content-Type"] = "text/plain; charset=utf-8"
	r.Body = []byte(body)
}

var statusText = map[int]string{
	200: "OK",
	204: "No Content",
	400: "Bad Request",
	401: "Unauthorized",
	403: "Forbidden",
	404: "Not Found",
	405: "Method Not Allowed",
	413: "Payload Too Large",
	500: "Internal Server Error",
	503: "Service Unavailable",
}

// Build serializes the status line, headers and body into the internal
// wire buffer and rewinds the send cursor to zero. Content-Length is
// always set here, overriding any caller-supplied value, since it must
// match Body exactly (spec §4.3).
func (r *Response) Build() {
	r.Header["Content-Length"] = strconv.Itoa(len(r.Body))

	var buf bytes.Buffer
	buf.Grow(256 + len(r.Body))

	text := statusText[r.Status]
	if text == "" {
		text = "Unknown"
	}
	buf.WriteString("HTTP/1.1 ")
	buf.WriteString(strconv.Itoa(r.Status))
	buf.WriteByte(' ')
	buf.WriteString(text)
	buf.WriteString(crlf)

	for k, v := range r.Header {
		buf.WriteString(k)
		buf.WriteString(": ")
		buf.WriteString(v)
		buf.WriteString(crlf)
	}
	buf.WriteString(crlf)
	buf.Write(r.Body)

	r.wire = buf.Bytes()
	r.cursor = 0
}

// Pending returns the unsent suffix of the built wire form, for the I/O
// worker's non-blocking write loop.
func (r *Response) Pending() []byte {
	return r.wire[r.cursor:]
}

// Advance reports n bytes were written to the socket.
func (r *Response) Advance(n int) {
	r.cursor += n
}

// Done reports whether the entire response has been flushed.
func (r *Response) Done() bool {
	return r.cursor >= len(r.wire)
}

// ApplyCORS echoes an allowed Origin back per spec §4.3: when present,
// sets Access-Control-Allow-Origin and Vary: Origin.
func (r *Response) ApplyCORS(origin string) {
	if origin == "" {
		return
	}
	r.Header["Access-Control-Allow-Origin"] = origin
	r.Header["Vary"] = "Origin"
}

// Preflight builds the standard 204 OPTIONS response, advertising the
// methods allowed at the matched path.
func Preflight(origin string, allowMethods []string) *Response {
	r := Acquire()
	r.Status = 204
	r.Body = nil
	if len(allowMethods) > 0 {
		allow := allowMethods[0]
		for _, m := range allowMethods[1:] {
			allow += ", " + m
		}
		r.Header["Allow"] = allow
		r.Header["Access-Control-Allow-Methods"] = allow
	}
	r.Header["Access-Control-Allow-Headers"] = "Content-Type, Authorization, X-Request-ID"
	r.ApplyCORS(origin)
	return r
}

// MethodNotAllowed builds the 405 response with an Allow header, per the
// standards-conformant resolution of the method-mismatch open question
// (spec §9 "Open question: 405 vs 400").
func MethodNotAllowed(allowMethods []string) *Response {
	r := Acquire()
	allow := ""
	for i, m := range allowMethods {
		if i > 0 {
			allow += ", "
		}
		allow += m
	}
	r.Header["Allow"] = allow
	_ = r.JSON(405, map[string]string{"error": "Method Not Allowed"})
	return r
}
