package ioworker

import (
	"bufio"
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slicingmelon/go-apiserver/internal/cors"
	"github.com/slicingmelon/go-apiserver/internal/httpparser"
	"github.com/slicingmelon/go-apiserver/internal/jwtauth"
	"github.com/slicingmelon/go-apiserver/internal/metrics"
	"github.com/slicingmelon/go-apiserver/internal/response"
	"github.com/slicingmelon/go-apiserver/internal/router"
)

func newTestWorker(t *testing.T) (*Worker, string, *jwtauth.Service) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	r := router.New()
	require.NoError(t, r.Register(router.Endpoint{
		Path:   "/ping",
		Method: "GET",
		Handler: func(req *httpparser.Request, resp *response.Response) error {
			return resp.JSON(200, map[string]string{"status": "OK"})
		},
	}))
	require.NoError(t, r.Register(router.Endpoint{
		Path:     "/secure",
		Method:   "GET",
		IsSecure: true,
		Handler: func(req *httpparser.Request, resp *response.Response) error {
			return resp.JSON(200, map[string]string{"status": "OK"})
		},
	}))

	jwt := jwtauth.New([]byte("test-secret-key-32-bytes-long!!"), time.Hour)
	w := New(Config{
		MaxRequestSize: 1 << 20,
		ReadTimeout:    2 * time.Second,
		PoolSize:       2,
		QueueCapacity:  8,
	}, ln, r, cors.New(nil), jwt, metrics.New())

	return w, ln.Addr().String(), jwt
}

func TestPingRoundTrip(t *testing.T) {
	w, addr, _ := newTestWorker(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Serve(ctx)
	time.Sleep(10 * time.Millisecond)

	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte("GET /ping HTTP/1.1\r\nHost: x\r\n\r\n"))
	require.NoError(t, err)

	reader := bufio.NewReader(conn)
	statusLine, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Contains(t, statusLine, "200")
}

func TestUnknownPathReturns404(t *testing.T) {
	w, addr, _ := newTestWorker(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Serve(ctx)
	time.Sleep(10 * time.Millisecond)

	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte("GET /nope HTTP/1.1\r\nHost: x\r\n\r\n"))
	require.NoError(t, err)

	reader := bufio.NewReader(conn)
	statusLine, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Contains(t, statusLine, "404")
}

func TestMethodMismatchReturns405WithAllowHeader(t *testing.T) {
	w, addr, _ := newTestWorker(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Serve(ctx)
	time.Sleep(10 * time.Millisecond)

	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte("POST /ping HTTP/1.1\r\nHost: x\r\nContent-Length: 0\r\n\r\n"))
	require.NoError(t, err)

	reader := bufio.NewReader(conn)
	statusLine, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Contains(t, statusLine, "405")

	sawAllow := false
	for {
		line, err := reader.ReadString('\n')
		if err != nil || line == "\r\n" {
			break
		}
		if line == "Allow: GET\r\n" {
			sawAllow = true
		}
	}
	assert.True(t, sawAllow)
}

func TestSecureEndpointRejectsMissingToken(t *testing.T) {
	w, addr, _ := newTestWorker(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Serve(ctx)
	time.Sleep(10 * time.Millisecond)

	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte("GET /secure HTTP/1.1\r\nHost: x\r\n\r\n"))
	require.NoError(t, err)

	reader := bufio.NewReader(conn)
	statusLine, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Contains(t, statusLine, "401")
}

func TestSecureEndpointAcceptsValidToken(t *testing.T) {
	w, addr, jwt := newTestWorker(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Serve(ctx)
	time.Sleep(10 * time.Millisecond)

	token, err := jwt.Mint(map[string]any{"user": "test"})
	require.NoError(t, err)

	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte("GET /secure HTTP/1.1\r\nHost: x\r\nAuthorization: Bearer " + token + "\r\n\r\n"))
	require.NoError(t, err)

	reader := bufio.NewReader(conn)
	statusLine, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Contains(t, statusLine, "200")
}
