package httpparser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func feed(t *testing.T, p *Parser, data string) {
	t.Helper()
	remaining := []byte(data)
	for len(remaining) > 0 {
		buf := p.Buffer()
		require.NotEmpty(t, buf, "parser ran out of buffer space before EOF")
		n := copy(buf, remaining)
		p.Advance(n)
		remaining = remaining[n:]
	}
}

func TestParseSimpleGet(t *testing.T) {
	p := NewParser(5 << 20)
	feed(t, p, "GET /ping?x=1 HTTP/1.1\r\nHost: x\r\n\r\n")
	require.True(t, p.Eof())

	req, err := p.Finalize("127.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, "GET", req.Method)
	assert.Equal(t, "/ping", req.Path)
	assert.Equal(t, "1", req.Query["x"])
	assert.Equal(t, "x", req.Header.Get("host"))
	assert.NotEmpty(t, req.RequestID)
}

func TestParsePropagatesRequestID(t *testing.T) {
	p := NewParser(5 << 20)
	feed(t, p, "GET / HTTP/1.1\r\nX-Request-ID: abc-123\r\n\r\n")
	req, err := p.Finalize("10.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, "abc-123", req.RequestID)
}

func TestParseBodyWithContentLength(t *testing.T) {
	p := NewParser(5 << 20)
	body := `{"username":"mcordova","password":"basica"}`
	req := "POST /login HTTP/1.1\r\nContent-Type: application/json\r\nContent-Length: " +
		itoa(len(body)) + "\r\n\r\n" + body
	feed(t, p, req)
	require.True(t, p.Eof())

	parsed, err := p.Finalize("127.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, body, string(parsed.Body))
}

func TestParseFormURLEncodedPopulatesQuery(t *testing.T) {
	p := NewParser(5 << 20)
	body := "a=1&b=two+words"
	req := "POST /submit HTTP/1.1\r\nContent-Type: application/x-www-form-urlencoded\r\nContent-Length: " +
		itoa(len(body)) + "\r\n\r\n" + body
	feed(t, p, req)

	parsed, err := p.Finalize("127.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, "1", parsed.Query["a"])
	assert.Equal(t, "two words", parsed.Query["b"])
}

func TestParseMultipart(t *testing.T) {
	p := NewParser(5 << 20)
	boundary := "XYZ"
	body := "--" + boundary + "\r\n" +
		`Content-Disposition: form-data; name="field1"` + "\r\n\r\n" +
		"value1\r\n" +
		"--" + boundary + "\r\n" +
		`Content-Disposition: form-data; name="file"; filename="a.txt"` + "\r\n" +
		"Content-Type: text/plain\r\n\r\n" +
		"file contents\r\n" +
		"--" + boundary + "--\r\n"

	req := "POST /upload HTTP/1.1\r\nContent-Type: multipart/form-data; boundary=" + boundary +
		"\r\nContent-Length: " + itoa(len(body)) + "\r\n\r\n" + body
	feed(t, p, req)

	parsed, err := p.Finalize("127.0.0.1")
	require.NoError(t, err)
	require.Len(t, parsed.Multipart, 2)
	assert.Equal(t, "field1", parsed.Multipart[0].Name)
	assert.Equal(t, "value1", string(parsed.Multipart[0].Data))
	assert.Equal(t, "file", parsed.Multipart[1].Name)
	assert.Equal(t, "a.txt", parsed.Multipart[1].Filename)
	assert.Equal(t, "file contents", string(parsed.Multipart[1].Data))
}

func TestParseMultipartMissingBoundary(t *testing.T) {
	p := NewParser(5 << 20)
	feed(t, p, "POST /upload HTTP/1.1\r\nContent-Type: multipart/form-data\r\nContent-Length: 0\r\n\r\n")
	_, err := p.Finalize("127.0.0.1")
	assert.ErrorIs(t, err, ErrMultipartNoBoundary)
}

func TestParseRejectsDuplicateContentLength(t *testing.T) {
	p := NewParser(5 << 20)
	feed(t, p, "POST / HTTP/1.1\r\nContent-Length: 0\r\nContent-Length: 5\r\n\r\n")
	assert.True(t, p.Eof())
	_, err := p.Finalize("127.0.0.1")
	assert.ErrorIs(t, err, ErrDuplicateContentLength)
}

func TestParseRejectsChunked(t *testing.T) {
	p := NewParser(5 << 20)
	feed(t, p, "POST / HTTP/1.1\r\nTransfer-Encoding: chunked\r\n\r\n")
	_, err := p.Finalize("127.0.0.1")
	assert.ErrorIs(t, err, ErrChunkedUnsupported)
}

func TestParseRejectsOversizeHeaders(t *testing.T) {
	p := NewParser(5 << 20)
	big := make([]byte, 40*1024)
	for i := range big {
		big[i] = 'a'
	}
	req := "GET / HTTP/1.1\r\nX-Big: " + string(big) + "\r\n\r\n"

	remaining := []byte(req)
	for len(remaining) > 0 && !p.Eof() {
		buf := p.Buffer()
		if len(buf) == 0 {
			break
		}
		n := copy(buf, remaining)
		p.Advance(n)
		remaining = remaining[n:]
	}
	require.True(t, p.Eof())
	_, err := p.Finalize("127.0.0.1")
	assert.ErrorIs(t, err, ErrHeaderTooLarge)
}

func TestParseRejectsOversizedBody(t *testing.T) {
	p := NewParser(64)
	req := "POST / HTTP/1.1\r\nContent-Length: 1000\r\n\r\n"

	remaining := []byte(req)
	for len(remaining) > 0 {
		buf := p.Buffer()
		if len(buf) == 0 {
			break
		}
		n := copy(buf, remaining)
		p.Advance(n)
		remaining = remaining[n:]
	}
	require.True(t, p.Eof())
	_, err := p.Finalize("127.0.0.1")
	assert.ErrorIs(t, err, ErrRequestTooLarge)
}

func TestResetAllowsReuseForNextRequest(t *testing.T) {
	p := NewParser(5 << 20)
	feed(t, p, "GET /ping HTTP/1.1\r\nHost: x\r\n\r\n")
	_, err := p.Finalize("127.0.0.1")
	require.NoError(t, err)

	p.Reset()
	assert.False(t, p.Eof())

	feed(t, p, "GET /version HTTP/1.1\r\nHost: x\r\n\r\n")
	req, err := p.Finalize("127.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, "/version", req.Path)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	digits := []byte{}
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	return string(digits)
}
