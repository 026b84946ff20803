package httpparser

import "errors"

var (
	ErrHeaderTooLarge         = errors.New("httpparser: header section exceeds 32 KiB")
	ErrURITooLong             = errors.New("httpparser: URI exceeds 8 KiB")
	ErrMalformedRequestLine   = errors.New("httpparser: malformed request line")
	ErrMalformedHeaderLine    = errors.New("httpparser: malformed header line")
	ErrDuplicateContentLength = errors.New("httpparser: duplicate Content-Length")
	ErrChunkedUnsupported     = errors.New("httpparser: chunked transfer-encoding is unsupported")
	ErrMalformedContentLength = errors.New("httpparser: malformed Content-Length")
	ErrRequestTooLarge        = errors.New("httpparser: request exceeds MAX_REQUEST_SIZE")
	ErrIncomplete             = errors.New("httpparser: request incomplete")
	ErrMultipartNoBoundary    = errors.New("httpparser: multipart/form-data missing boundary")
	ErrMultipartMalformed     = errors.New("httpparser: malformed multipart body")
)
