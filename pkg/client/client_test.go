package client

import (
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ManouchehrRasoulli/hotserve/internal"
	"github.com/ManouchehrRasoulli/hotserve/pkg"
	"github.com/ManouchehrRasoulli/hotserve/pkg/filehandler"
	"github.com/ManouchehrRasoulli/hotserve/pkg/protocol"
	"github.com/ManouchehrRasoulli/hotserve/pkg/server"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

var (
	lg zerolog.Logger
)

func TestMain(m *testing.M) {
	lg = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Str("test", "client").Logger()
	os.Exit(m.Run())
}

func startServer(t *testing.T, files map[string]string) (string, *server.Server, *httptest.Server) {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		full := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	}

	fh, err := filehandler.NewHandler(root, "index.html", lg)
	require.NoError(t, err)

	cfg := pkg.DefaultConfig()
	cfg.Root = root
	cfg.Notify.KeepAlive = 0
	s, err := server.NewServer(cfg, fh, lg)
	require.NoError(t, err)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		_ = s.Close()
		ts.Close()
	})
	return root, s, ts
}

func TestClient_IndexAndGlob(t *testing.T) {
	_, _, ts := startServer(t, map[string]string{
		"index.html":   "<h1>hi</h1>",
		"js/a.js":      "a()",
		"js/b.js":      "b()",
		".env":         "SECRET=1",
		"css/main.css": "body{}",
	})
	c := NewClient(ts.URL+"/", WithLogger(lg))
	ctx := context.Background()

	files, err := c.Index(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"css/main.css", "index.html", "js/a.js", "js/b.js"}, files)

	matched, err := c.Glob(ctx, "js/*.js")
	require.NoError(t, err)
	require.Equal(t, []protocol.GlobFile{
		{Name: "js/a.js", Content: []byte("a()")},
		{Name: "js/b.js", Content: []byte("b()")},
	}, matched)

	matched, err = c.Glob(ctx, "*.go")
	require.NoError(t, err)
	require.Empty(t, matched)
}

func TestClient_UnexpectedStatus(t *testing.T) {
	root, _, ts := startServer(t, nil)
	require.NoError(t, os.RemoveAll(root))

	_, err := NewClient(ts.URL).Index(context.Background())
	require.ErrorIs(t, err, ErrUnexpectedStatus)
	require.ErrorContains(t, err, filehandler.ErrFilesystem.Error())
}

func nextEvent(t *testing.T, events <-chan internal.WatchEvent, path string) internal.WatchEvent {
	t.Helper()
	timeout := time.After(5 * time.Second)
	for {
		select {
		case e := <-events:
			if e.Path == path {
				return e
			}
		case <-timeout:
			t.Fatalf("no event for %s", path)
		}
	}
}

func TestClient_RunReceivesChanges(t *testing.T) {
	root, s, ts := startServer(t, map[string]string{"index.html": "x"})
	c := NewClient(ts.URL, WithLogger(lg))

	events := make(chan internal.WatchEvent, 64)
	done := make(chan error, 1)
	go func() {
		done <- c.Run(context.Background(), func(e internal.WatchEvent) {
			events <- e
		})
	}()

	require.Eventually(t, func() bool { return s.Hub().Len() == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(root, "new.txt"), []byte("1"), 0o644))
	e := nextEvent(t, events, "new.txt")
	require.Contains(t, []internal.Kind{internal.KindCreate, internal.KindModify}, e.Kind)

	require.NoError(t, os.MkdirAll(filepath.Join(root, ".cache"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, ".cache", "x"), []byte("1"), 0o644))

	require.NoError(t, os.Remove(filepath.Join(root, "new.txt")))
	for {
		e = nextEvent(t, events, "new.txt")
		if e.Kind == internal.KindRemove {
			break
		}
	}

	require.NoError(t, c.Exit())
	require.NoError(t, <-done)
	require.NoError(t, c.Exit())

	close(events)
	for e := range events {
		require.True(t, internal.Accepts(e.Path), "hidden path delivered: %s", e.Path)
	}
	require.Eventually(t, func() bool { return s.Hub().Len() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestClient_RunContextCancel(t *testing.T) {
	_, s, ts := startServer(t, nil)
	c := NewClient(ts.URL)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx, func(internal.WatchEvent) {}) }()

	require.Eventually(t, func() bool { return s.Hub().Len() == 1 }, 2*time.Second, 10*time.Millisecond)
	cancel()
	require.NoError(t, <-done)
}

func TestClient_RunServerClosed(t *testing.T) {
	root := t.TempDir()
	fh, err := filehandler.NewHandler(root, "index.html", lg)
	require.NoError(t, err)

	cfg := pkg.DefaultConfig()
	cfg.Address = "127.0.0.1:0"
	cfg.Root = root
	s, err := server.NewServer(cfg, fh, lg)
	require.NoError(t, err)
	require.NoError(t, s.Listen())
	go func() { _ = s.Run() }()
	defer s.Close()

	c := NewClient("http://" + s.Addr())
	done := make(chan error, 1)
	go func() { done <- c.Run(context.Background(), func(internal.WatchEvent) {}) }()

	require.Eventually(t, func() bool { return s.Hub().Len() == 1 }, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, s.Close())
	require.Error(t, <-done, "stream ended by the server.")
}
