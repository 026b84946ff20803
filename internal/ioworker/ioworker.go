// Package ioworker implements the I/O worker from spec §4.9: it owns a
// listening socket, a connection table, a worker pool and a response
// path, and drives the accept/read/dispatch/write cycle.
//
// The source's I/O worker is epoll-driven: one thread owns an epoll set
// and a non-blocking listening fd, edge-triggered, looping reads/writes
// until EAGAIN. Go's netpoller already multiplexes blocking-looking
// socket calls onto an OS-level epoll/kqueue internally, so reproducing
// raw epoll here would fight the runtime rather than use it — the
// translation kept is the *shape* of the design (K independent workers,
// each with its own listening socket bound via SO_REUSEPORT, each with
// its own connection table and worker pool) while the polling primitive
// itself is goroutine-per-connection, relying on the runtime's netpoller
// as the I/O worker's de facto event loop. The parser's pull-based
// Buffer/Advance/Eof/Finalize contract is unchanged either way, which is
// what actually matters for spec conformance (spec §4.2, §9 "Callable
// handler contract" makes the same kind of substitution explicit for
// handlers).
package ioworker

import (
	"context"
	"errors"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/slicingmelon/go-apiserver/internal/apierror"
	"github.com/slicingmelon/go-apiserver/internal/cors"
	"github.com/slicingmelon/go-apiserver/internal/httpparser"
	"github.com/slicingmelon/go-apiserver/internal/jwtauth"
	"github.com/slicingmelon/go-apiserver/internal/logger"
	"github.com/slicingmelon/go-apiserver/internal/metrics"
	"github.com/slicingmelon/go-apiserver/internal/queue"
	"github.com/slicingmelon/go-apiserver/internal/response"
	"github.com/slicingmelon/go-apiserver/internal/router"
	"github.com/slicingmelon/go-apiserver/internal/workerpool"
)

// Config bundles the per-worker tunables derived from the global config
// (spec §6).
type Config struct {
	ID             int
	MaxRequestSize int
	ReadTimeout    time.Duration
	PoolSize       int
	QueueCapacity  int
}

// responseEnvelope is one item on a worker's response queue: a finished
// response together with the connection it belongs to and a signal the
// connection goroutine waits on before it tears the socket down (spec §3
// "Queues", §4.9 step 3: "Worker completes -> pushes a (fd, response)
// item on the per-I/O response queue").
type responseEnvelope struct {
	conn net.Conn
	resp *response.Response
	done chan struct{}
}

// Worker is one I/O worker: one listening socket, one connection table
// (read only by OpenConnections; idle connections are closed by per-read
// deadlines, the drain phase waits on wg, and Go's runtime owns the
// actual fd multiplexing), one worker pool and one response queue.
type Worker struct {
	cfg      Config
	listener net.Listener
	router   *router.Router
	cors     *cors.Gate
	jwt      *jwtauth.Service
	pool     *workerpool.Pool
	metrics  *metrics.Registry

	// responseQueue is the per-I/O-worker response queue from spec §3,
	// bounded at 2x the task queue capacity (C_resp = 2*C_task). Worker
	// pool threads push finished responses onto it; a dedicated goroutine
	// drains it and writes each response back to its connection, the
	// translation of "the I/O worker drains the response queue each loop
	// iteration" into the goroutine-per-connection model.
	responseQueue     *queue.Queue[*responseEnvelope]
	responseDrainDone chan struct{}

	mu    sync.Mutex
	conns map[net.Conn]struct{}

	draining chan struct{}
	wg       sync.WaitGroup
}

// New builds a Worker bound to listener, which the caller is expected to
// have opened with SO_REUSEPORT so multiple Workers can share one port
// (spec §4.9).
func New(cfg Config, listener net.Listener, r *router.Router, gate *cors.Gate, jwt *jwtauth.Service, reg *metrics.Registry) *Worker {
	return &Worker{
		cfg:               cfg,
		listener:          listener,
		router:            r,
		cors:              gate,
		jwt:               jwt,
		pool:              workerpool.New(cfg.PoolSize, cfg.QueueCapacity, reg),
		metrics:           reg,
		responseQueue:     queue.New[*responseEnvelope](2 * cfg.QueueCapacity),
		responseDrainDone: make(chan struct{}),
		conns:             make(map[net.Conn]struct{}),
		draining:          make(chan struct{}),
	}
}

// bearerToken extracts the token from an "Authorization: Bearer <token>"
// header value.
func bearerToken(header string) (string, bool) {
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, prefix))
	if token == "" {
		return "", false
	}
	return token, true
}

// Serve runs the accept loop until ctx is cancelled, then enters the
// drain phase from spec §4.9: keep serving in-flight work, stop only
// once the worker pool and every open connection have finished.
func (w *Worker) Serve(ctx context.Context) error {
	go w.drainResponses()

	go func() {
		<-ctx.Done()
		close(w.draining)
		w.listener.Close()
	}()

	for {
		conn, err := w.listener.Accept()
		if err != nil {
			select {
			case <-w.draining:
				w.wg.Wait()
				w.pool.Stop(context.Background())
				w.responseQueue.Stop()
				<-w.responseDrainDone
				return nil
			default:
				if errors.Is(err, net.ErrClosed) {
					return nil
				}
				return err
			}
		}

		w.mu.Lock()
		w.conns[conn] = struct{}{}
		w.mu.Unlock()
		w.metrics.ConnOpened()

		w.wg.Add(1)
		go w.handleConnection(conn)
	}
}

func (w *Worker) forgetConn(conn net.Conn) {
	w.mu.Lock()
	delete(w.conns, conn)
	w.mu.Unlock()
	conn.Close()
	w.metrics.ConnClosed()
	w.wg.Done()
}

// drainResponses is the I/O worker's response-queue consumer: it runs for
// the worker's whole lifetime, popping finished responses and writing
// each one to its own connection (spec §4.9 step 3, "the I/O worker
// drains the response queue each loop iteration, attaches the response to
// the connection record, and re-arms epoll for write"). It keeps running
// through the drain phase — ctx is never passed to PopBlocking here — so
// every response already queued by the time shutdown starts still gets
// written; Serve stops the queue only after every connection goroutine
// has finished waiting on it.
func (w *Worker) drainResponses() {
	defer close(w.responseDrainDone)
	for {
		env, err := w.responseQueue.PopBlocking(context.Background())
		if err != nil {
			return
		}
		w.writeResponse(env.conn, env.resp)
		response.Release(env.resp)
		close(env.done)
	}
}

// handleConnection runs the READING -> DISPATCHED -> WRITING state
// machine for a single accepted socket (spec §4.9 per-connection state
// diagram). Every response carries Connection: close (spec §6, §9 "Open
// question: Connection: close" — kept, the simpler option), so one
// request per connection is served before it is torn down; Reset exists
// on the parser for symmetry with a keep-alive variant but is not
// exercised on this path.
func (w *Worker) handleConnection(conn net.Conn) {
	defer w.forgetConn(conn)

	parser := httpparser.NewParser(w.cfg.MaxRequestSize)
	remoteIP, _, _ := net.SplitHostPort(conn.RemoteAddr().String())

	for {
		buf := parser.Buffer()
		if buf == nil {
			break
		}
		conn.SetReadDeadline(time.Now().Add(w.cfg.ReadTimeout))
		n, err := conn.Read(buf)
		if n > 0 {
			parser.Advance(n)
		}
		if parser.Eof() {
			break
		}
		if err != nil {
			// Idle past READ_TIMEOUT, peer reset, or any other transport
			// error: no response is possible (spec §7 propagation policy).
			return
		}
	}

	req, err := parser.Finalize(remoteIP)
	if err != nil {
		w.writeError(conn, apierror.BadRequest("Bad Request"))
		return
	}

	w.dispatch(conn, req)
}

// dispatch performs the CORS check, the OPTIONS preflight reply,
// routing, the secure check and validation, then hands the matched
// handler to the worker pool. Every outcome — including the short-circuit
// rejections — counts toward total_requests (spec §4.7 "total requests").
// A pool-dispatched request's response travels back through the
// per-worker response queue instead of being written here directly; the
// "park the connection until the response arrives" step from spec §4.9 is
// the blocked read on env.done, since this connection goroutine has no
// other work to interleave while waiting.
func (w *Worker) dispatch(conn net.Conn, req *httpparser.Request) {
	w.metrics.IncRequests()
	origin := req.Header.Get("Origin")

	if !w.cors.Allow(origin) {
		w.writeAndRelease(conn, errorResponse(apierror.Forbidden("CORS origin not allowed")))
		return
	}

	if req.Method == "OPTIONS" {
		methods := []string{}
		if ep, ok := w.router.FindByPath(req.Path); ok {
			methods = append(methods, ep.Method)
		}
		w.writeAndRelease(conn, response.Preflight(origin, methods))
		return
	}

	lookup := w.router.Find(req.Path, req.Method)
	if lookup.Endpoint == nil && !lookup.PathExists {
		w.writeAndRelease(conn, errorResponse(apierror.NotFound("Not Found")))
		return
	}
	if !lookup.MethodMatches {
		w.writeAndRelease(conn, response.MethodNotAllowed([]string{lookup.Endpoint.Method}))
		return
	}

	ep := lookup.Endpoint
	if ep.IsSecure {
		token, ok := bearerToken(req.Header.Get("Authorization"))
		if !ok {
			w.writeAndRelease(conn, errorResponse(apierror.Unauthorized("Invalid or missing token")))
			return
		}
		if _, verifyErr := w.jwt.Verify(token); verifyErr != nil {
			w.writeAndRelease(conn, errorResponse(apierror.Unauthorized("Invalid or missing token")))
			return
		}
	}

	if ep.Validator != nil {
		if verr := ep.Validator.Validate(req.Query); verr != nil {
			w.writeAndRelease(conn, errorResponse(apierror.BadRequest(verr.Error())))
			return
		}
	}

	env := &responseEnvelope{conn: conn, done: make(chan struct{})}
	start := time.Now()
	submitErr := w.pool.TryPush(func() error {
		w.metrics.WorkerStarted()
		defer func() {
			w.metrics.WorkerFinished(time.Since(start).Nanoseconds())
		}()

		resp := response.Acquire()
		if hErr := ep.Handler(req, resp); hErr != nil {
			response.Release(resp)
			resp = errorResponse(toAPIError(hErr))
		} else {
			resp.ApplyCORS(origin)
		}
		env.resp = resp

		if pushErr := w.responseQueue.Push(context.Background(), env); pushErr != nil {
			// Worker is draining and the response queue has already been
			// stopped; nothing left to write to, release directly.
			response.Release(resp)
			close(env.done)
		}
		return nil
	})
	w.metrics.SetPendingTasks(w.cfg.ID, w.pool.PendingTasks())
	if submitErr != nil {
		w.writeAndRelease(conn, errorResponse(apierror.Overloaded()))
		return
	}

	<-env.done
}

// writeAndRelease writes resp directly to conn and releases it, for
// outcomes decided before a task ever reaches the worker pool — these
// never touch the response queue, since no worker-pool thread is
// involved.
func (w *Worker) writeAndRelease(conn net.Conn, resp *response.Response) {
	w.writeResponse(conn, resp)
	response.Release(resp)
}

func toAPIError(err error) *apierror.Error {
	var apiErr *apierror.Error
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return apierror.Internal(err)
}

func errorResponse(apiErr *apierror.Error) *response.Response {
	resp := response.Acquire()
	_ = resp.JSON(apiErr.StatusCode(), map[string]string{"error": apiErr.Message})
	return resp
}

func (w *Worker) writeResponse(conn net.Conn, resp *response.Response) {
	resp.Build()
	conn.SetWriteDeadline(time.Now().Add(w.cfg.ReadTimeout))
	for !resp.Done() {
		n, err := conn.Write(resp.Pending())
		if n > 0 {
			resp.Advance(n)
		}
		if err != nil {
			logger.Warning().Msgf("ioworker: write error: %v", err)
			return
		}
	}
}

func (w *Worker) writeError(conn net.Conn, apiErr *apierror.Error) {
	resp := errorResponse(apiErr)
	defer response.Release(resp)
	w.writeResponse(conn, resp)
}

// OpenConnections reports the number of sockets currently tracked by
// this worker, for diagnostics and tests.
func (w *Worker) OpenConnections() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.conns)
}
