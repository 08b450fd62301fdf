package network

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGateCeiling(t *testing.T) {
	g := NewGate(DefaultCeiling)

	tickets := make([]*Ticket, 0, DefaultCeiling)

	for i := 0; i < DefaultCeiling; i++ {
		tk := g.TryAdmit()
		require.NotNil(t, tk, "request %d", i)

		tickets = append(tickets, tk)
	}

	assert.EqualValues(t, DefaultCeiling, g.InFlight())
	assert.Nil(t, g.TryAdmit(), "request over the ceiling")

	tickets[0].Release()
	tickets[0].Release()

	assert.EqualValues(t, DefaultCeiling-1, g.InFlight())

	tk := g.TryAdmit()
	require.NotNil(t, tk)
	assert.Nil(t, g.TryAdmit())

	tk.Release()

	for _, tk := range tickets[1:] {
		tk.Release()
	}

	assert.EqualValues(t, 0, g.InFlight())
	assert.EqualValues(t, DefaultCeiling, g.Ceiling())
	assert.EqualValues(t, DefaultCeiling, NewGate(0).Ceiling())
}

func TestResolve(t *testing.T) {
	root := filepath.Join("srv", "www")
	s := &Server{Root: root}

	for _, tc := range []struct {
		path string
		name string
		ok   bool
	}{
		{"/", "index.html", true},
		{"", "index.html", true},
		{"/./", "index.html", true},
		{"/about.html", "about.html", true},
		{"/css/site.css/", "css/site.css", true},
		{"/../secret.txt", "secret.txt", true},
		{"/css/../../secret.txt", "", false},
	} {
		name, ok := s.Resolve(tc.path)
		assert.Equal(t, tc.ok, ok, "%q", tc.path)

		if tc.ok {
			assert.Equal(t, filepath.Join(root, filepath.FromSlash(tc.name)), name, "%q", tc.path)
		}
	}
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "text/html", ContentType("index.html"))
	assert.Equal(t, "text/html", ContentType("INDEX.HTM"))
	assert.Equal(t, "image/png", ContentType("a/b/logo.png"))
	assert.Equal(t, "application/octet-stream", ContentType("Makefile"))
	assert.Equal(t, "application/octet-stream", ContentType("data.nosuchext"))
}

func serveLoop(s *Server) {
	for {
		c, err := s.Accept()
		if err != nil {
			return
		}

		if s.Admit(c) {
			s.Serve(c)
		} else {
			s.Reject(c)
		}
	}
}

func TestServer(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "index.html"), []byte("<h1>hi</h1>"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(root, "dir"), 0o755))

	gate := NewGate(1)

	s, err := Listen(context.Background(), root, "0", gate)
	require.NoError(t, err)

	go serveLoop(s)

	defer func() {
		_ = s.Close()
	}()

	base := "http://" + s.Addr().String()

	get := func(path string) (*http.Response, string) {
		resp, err := http.Get(base + path)
		require.NoError(t, err)

		defer func() {
			_ = resp.Body.Close()
		}()

		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)

		return resp, string(body)
	}

	resp, body := get("/")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/html", resp.Header.Get("Content-Type"))
	assert.Equal(t, PoweredBy, resp.Header.Get("X-Powered-By"))
	assert.Equal(t, "<h1>hi</h1>", body)

	resp, body = get("/missing.css")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, PoweredBy, resp.Header.Get("X-Powered-By"))
	assert.Equal(t, notFoundBody, body)

	resp, _ = get("/dir")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	require.Eventually(t, func() bool { return gate.InFlight() == 0 }, 5*time.Second, 10*time.Millisecond)

	held := gate.TryAdmit()
	require.NotNil(t, held)

	resp, body = get("/")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, PoweredBy, resp.Header.Get("X-Powered-By"))
	assert.Equal(t, busyBody, body)

	held.Release()

	resp, _ = get("/")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.Eventually(t, func() bool { return gate.InFlight() == 0 }, 5*time.Second, 10*time.Millisecond)
}

func testRoot(t *testing.T) string {
	t.Helper()

	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "index.html"), []byte("<h1>hi</h1>"), 0o644))

	return root
}

func status(t *testing.T, url string) int {
	t.Helper()

	resp, err := http.Get(url)
	require.NoError(t, err)

	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()

	return resp.StatusCode
}

func TestServerCeilingWithIdleClients(t *testing.T) {
	gate := NewGate(3)

	s, err := Listen(context.Background(), testRoot(t), "0", gate)
	require.NoError(t, err)

	go serveLoop(s)

	defer func() {
		_ = s.Close()
	}()

	addr := s.Addr().String()

	var idle []net.Conn

	defer func() {
		for _, c := range idle {
			_ = c.Close()
		}
	}()

	for i := 0; i < 3; i++ {
		c, err := net.Dial("tcp", addr)
		require.NoError(t, err)

		idle = append(idle, c)
	}

	require.Eventually(t, func() bool { return gate.InFlight() == 3 }, 5*time.Second, 10*time.Millisecond)

	assert.Equal(t, http.StatusServiceUnavailable, status(t, "http://"+addr+"/"))

	require.NoError(t, idle[0].Close())
	idle = idle[1:]

	require.Eventually(t, func() bool { return gate.InFlight() == 2 }, 5*time.Second, 10*time.Millisecond)

	assert.Equal(t, http.StatusOK, status(t, "http://"+addr+"/"))
}

// flakyListener fails the first accepts the way an exhausted
// descriptor table does.
type flakyListener struct {
	net.Listener

	failures atomic.Int32
}

func (l *flakyListener) Accept() (net.Conn, error) {
	if l.failures.Add(-1) >= 0 {
		return nil, &net.OpError{Op: "accept", Net: "tcp", Err: os.NewSyscallError("accept4", syscall.EMFILE)}
	}

	return l.Listener.Accept()
}

func TestAcceptRetriesTemporaryErrors(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	fl := &flakyListener{Listener: ln}
	fl.failures.Store(3)

	s := &Server{Root: testRoot(t), ctx: context.Background(), ln: fl, gate: NewGate(1)}

	stopped := make(chan struct{})

	go func() {
		defer close(stopped)
		serveLoop(s)
	}()

	assert.Equal(t, http.StatusOK, status(t, "http://"+ln.Addr().String()+"/"))
	assert.LessOrEqual(t, fl.failures.Load(), int32(-1), "failed accepts were retried")

	require.NoError(t, s.Close())

	select {
	case <-stopped:
	case <-time.After(5 * time.Second):
		t.Fatalf("Accept did not return after Close")
	}
}

func TestAcceptStopsOnContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	defer func() {
		_ = ln.Close()
	}()

	fl := &flakyListener{Listener: ln}
	fl.failures.Store(1 << 30)

	s := &Server{ctx: ctx, ln: fl, gate: NewGate(1)}

	errc := make(chan error, 1)

	go func() {
		_, err := s.Accept()
		errc <- err
	}()

	cancel()

	select {
	case err := <-errc:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatalf("Accept kept retrying")
	}
}

func TestCloseUnblocksIdleClients(t *testing.T) {
	gate := NewGate(2)

	s, err := Listen(context.Background(), testRoot(t), "0", gate)
	require.NoError(t, err)

	go serveLoop(s)

	c, err := net.Dial("tcp", s.Addr().String())
	require.NoError(t, err)

	defer func() {
		_ = c.Close()
	}()

	require.Eventually(t, func() bool { return gate.InFlight() == 1 }, 5*time.Second, 10*time.Millisecond)

	closed := make(chan error, 1)

	go func() {
		closed <- s.Close()
	}()

	select {
	case <-closed:
	case <-time.After(5 * time.Second):
		t.Fatalf("Close waits for a client that never sends a request")
	}

	assert.EqualValues(t, 0, gate.InFlight())
}

func TestClient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		assert.Equal(t, UserAgent, req.Header.Get("User-Agent"))

		switch req.URL.Path {
		case "/get":
			assert.Equal(t, http.MethodGet, req.Method)
			_, _ = io.WriteString(w, "got")
		case "/post":
			assert.Equal(t, http.MethodPost, req.Method)
			assert.Contains(t, req.Header.Get("Content-Type"), "text/plain")

			data, _ := io.ReadAll(req.Body)
			_, _ = io.WriteString(w, "echo:"+string(data))
		default:
			http.Error(w, "boom", http.StatusInternalServerError)
		}
	}))
	defer srv.Close()

	ctx := context.Background()
	c := NewClient()

	body, err := c.Get(ctx, srv.URL+"/get")
	require.NoError(t, err)
	assert.Equal(t, "got", body)

	body, err = c.Post(ctx, srv.URL+"/post", "ping")
	require.NoError(t, err)
	assert.Equal(t, "echo:ping", body)

	_, err = c.Get(ctx, srv.URL+"/fail")
	assert.ErrorContains(t, err, "500")

	_, err = c.Get(ctx, "http://127.0.0.1:1/unreachable")
	assert.Error(t, err)
}
