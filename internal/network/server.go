package network

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"
)

const PoweredBy = "AtLang/0.0.1"

const (
	notFoundBody = "404 Not Found"
	busyBody     = "503 Service Unavailable: too many requests"
)

// rejectReadTimeout bounds how long a rejected client may take to send
// its request before it gets the 503.
var rejectReadTimeout = time.Second

// Server serves static files from Root. The accept loop itself is not
// here: the program drives it through Accept, Admit, Serve and Reject.
type Server struct {
	Root string

	ctx  context.Context
	ln   net.Listener
	gate *Gate
	wg   sync.WaitGroup

	closed atomic.Bool

	mu    sync.Mutex
	conns map[*Conn]struct{}
}

// Conn is an accepted connection and, once admitted, its ticket.
type Conn struct {
	net.Conn

	ticket *Ticket
}

// Listen binds any-address:port.
func Listen(ctx context.Context, root, port string, gate *Gate) (*Server, error) {
	var lc net.ListenConfig

	ln, err := lc.Listen(ctx, "tcp", net.JoinHostPort("", strings.TrimSpace(port)))
	if err != nil {
		return nil, errors.Wrap(err, "listen on port %q", port)
	}

	if gate == nil {
		gate = NewGate(DefaultCeiling)
	}

	s := &Server{
		Root: root,
		ctx:  ctx,
		ln:   ln,
		gate: gate,
	}

	tlog.Printw("listening", "addr", ln.Addr(), "root", root, "ceiling", gate.Ceiling())

	return s, nil
}

func (s *Server) Addr() net.Addr { return s.ln.Addr() }

func (s *Server) Gate() *Gate { return s.gate }

// Accept waits for the next connection. Failures such as running out of
// file descriptors are retried with backoff; Accept only gives up once the
// server is closed or its context is done.
func (s *Server) Accept() (*Conn, error) {
	ctx := s.ctx
	if ctx == nil {
		ctx = context.Background()
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 5 * time.Millisecond
	b.MaxInterval = time.Second
	b.MaxElapsedTime = 0

	var c net.Conn

	op := func() (err error) {
		c, err = s.ln.Accept()
		if err != nil && s.closed.Load() {
			return backoff.Permanent(err)
		}

		return err
	}

	notify := func(err error, d time.Duration) {
		tlog.Printw("accept failed", "err", err, "retry_in", d)
	}

	err := backoff.RetryNotify(op, backoff.WithContext(b, ctx), notify)
	if err != nil {
		return nil, err
	}

	return &Conn{Conn: c}, nil
}

// Admit takes a slot for c. It reports false if the server is full.
func (s *Server) Admit(c *Conn) bool {
	c.ticket = s.gate.TryAdmit()

	return c.ticket != nil
}

// Serve processes an admitted connection in its own goroutine.
// The slot is released when processing ends, whatever the outcome.
func (s *Server) Serve(c *Conn) {
	s.wg.Add(1)

	s.track(c)

	go func() {
		defer s.wg.Done()
		defer func() {
			if c.ticket != nil {
				c.ticket.Release()
			}
		}()
		defer s.untrack(c)
		defer closeConn(c)

		if err := s.handle(c); err != nil {
			tlog.Printw("request failed", "remote", c.RemoteAddr(), "err", err)
		}
	}()
}

// Reject answers 503 and closes c. It does not wait for the client.
func (s *Server) Reject(c *Conn) {
	tlog.Printw("rejected", "remote", c.RemoteAddr(), "in_flight", s.gate.InFlight())

	s.wg.Add(1)
	s.track(c)

	go func() {
		defer s.wg.Done()
		defer s.untrack(c)
		defer closeConn(c)

		_ = c.SetReadDeadline(time.Now().Add(rejectReadTimeout))

		req, _ := http.ReadRequest(bufio.NewReader(c))
		if req != nil && req.Body != nil {
			_ = req.Body.Close()
		}

		_ = c.SetReadDeadline(time.Time{})

		resp := textResponse(req, http.StatusServiceUnavailable, busyBody)
		_ = resp.Write(c)
	}()
}

// Close stops accepting, unblocks connections still waiting for their
// request and waits for all of them to finish.
func (s *Server) Close() error {
	if s.closed.Swap(true) {
		s.wg.Wait()
		return nil
	}

	err := s.ln.Close()

	s.mu.Lock()
	for c := range s.conns {
		_ = c.SetDeadline(time.Now())
	}
	s.mu.Unlock()

	s.wg.Wait()

	return err
}

func (s *Server) track(c *Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conns == nil {
		s.conns = make(map[*Conn]struct{})
	}

	s.conns[c] = struct{}{}

	if s.closed.Load() {
		_ = c.SetDeadline(time.Now())
	}
}

func (s *Server) untrack(c *Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.conns, c)
}

func (s *Server) handle(c *Conn) error {
	req, err := http.ReadRequest(bufio.NewReader(c))
	if err != nil {
		return errors.Wrap(err, "read request")
	}

	defer func() {
		_ = req.Body.Close()
	}()

	tlog.Printw("request", "method", req.Method, "path", req.URL.Path, "remote", c.RemoteAddr())

	resp, f := s.respond(req)
	if f != nil {
		defer func() {
			_ = f.Close()
		}()
	}

	err = resp.Write(c)
	if err != nil {
		return errors.Wrap(err, "write response")
	}

	return nil
}

// respond builds the response for req. If it returns a file, the caller
// closes it after the response is written.
func (s *Server) respond(req *http.Request) (*http.Response, *os.File) {
	name, ok := s.Resolve(req.URL.Path)
	if !ok {
		return textResponse(req, http.StatusNotFound, notFoundBody), nil
	}

	f, err := os.Open(name)
	if err != nil {
		tlog.Printw("not found", "path", name)
		return textResponse(req, http.StatusNotFound, notFoundBody), nil
	}

	inf, err := f.Stat()
	if err != nil || !inf.Mode().IsRegular() {
		_ = f.Close()

		tlog.Printw("not found", "path", name)

		return textResponse(req, http.StatusNotFound, notFoundBody), nil
	}

	ctype := ContentType(name)

	tlog.Printw("found", "path", name, "type", ctype, "bytes", inf.Size())

	resp := newResponse(req, http.StatusOK)
	resp.Header.Set("Content-Type", ctype)
	resp.ContentLength = inf.Size()

	if req.Method == http.MethodHead {
		resp.Body = http.NoBody
		_ = f.Close()

		return resp, nil
	}

	resp.Body = f

	return resp, f
}

// Resolve maps a request path to a file under Root. Leading and trailing
// slashes, dots and separators are trimmed and an empty path means
// index.html. ok is false for paths escaping Root.
func (s *Server) Resolve(urlPath string) (name string, ok bool) {
	rel := strings.Trim(urlPath, "/.\\"+string(filepath.Separator))
	if strings.TrimSpace(rel) == "" {
		rel = "index.html"
	}

	root := filepath.Clean(s.Root)
	name = filepath.Join(root, filepath.FromSlash(rel))

	r, err := filepath.Rel(root, name)
	if err != nil || r == ".." || strings.HasPrefix(r, ".."+string(filepath.Separator)) {
		return "", false
	}

	return name, true
}

func newResponse(req *http.Request, status int) *http.Response {
	resp := &http.Response{
		StatusCode: status,
		Status:     fmt.Sprintf("%d %s", status, http.StatusText(status)),
		ProtoMajor: 1,
		ProtoMinor: 1,
		Header:     make(http.Header),
		Request:    req,
		Close:      true,
	}

	resp.Header.Set("X-Powered-By", PoweredBy)

	return resp
}

func textResponse(req *http.Request, status int, text string) *http.Response {
	resp := newResponse(req, status)
	resp.Header.Set("Content-Type", "text/plain")
	resp.ContentLength = int64(len(text))
	resp.Body = io.NopCloser(bytes.NewReader([]byte(text)))

	return resp
}

func closeConn(c *Conn) {
	if tc, ok := c.Conn.(*net.TCPConn); ok {
		_ = tc.CloseWrite()
	}

	_ = c.Close()
}
