package response

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildSetsContentLengthAndDefaults(t *testing.T) {
	r := Acquire()
	defer Release(r)

	require.NoError(t, r.JSON(200, map[string]string{"status": "OK"}))
	r.Build()

	wire := string(r.Pending())
	assert.True(t, strings.HasPrefix(wire, "HTTP/1.1 200 OK\r\n"))
	assert.Contains(t, wire, "Content-Length: 15\r\n")
	assert.Contains(t, wire, "Connection: close\r\n")
	assert.True(t, strings.HasSuffix(wire, `{"status":"OK"}`))
}

func TestCursorAdvancesToDone(t *testing.T) {
	r := Acquire()
	defer Release(r)
	r.Text(200, "hello")
	r.Build()

	total := len(r.Pending())
	assert.False(t, r.Done())
	r.Advance(total - 1)
	assert.False(t, r.Done())
	r.Advance(1)
	assert.True(t, r.Done())
	assert.Empty(t, r.Pending())
}

func TestApplyCORSEchoesOrigin(t *testing.T) {
	r := Acquire()
	defer Release(r)
	r.ApplyCORS("https://example.com")
	assert.Equal(t, "https://example.com", r.Header["Access-Control-Allow-Origin"])
	assert.Equal(t, "Origin", r.Header["Vary"])
}

func TestApplyCORSNoOriginIsNoop(t *testing.T) {
	r := Acquire()
	defer Release(r)
	r.ApplyCORS("")
	assert.NotContains(t, r.Header, "Access-Control-Allow-Origin")
}

func TestPreflightBuildsAllowHeaders(t *testing.T) {
	r := Preflight("https://example.com", []string{"GET", "POST"})
	defer Release(r)
	assert.Equal(t, 204, r.Status)
	assert.Equal(t, "GET, POST", r.Header["Allow"])
	assert.Equal(t, "https://example.com", r.Header["Access-Control-Allow-Origin"])
}

func TestMethodNotAllowedSetsAllowHeader(t *testing.T) {
	r := MethodNotAllowed([]string{"GET", "PUT"})
	defer Release(r)
	assert.Equal(t, 405, r.Status)
	assert.Equal(t, "GET, PUT", r.Header["Allow"])
}
