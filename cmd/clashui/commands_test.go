package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/clashui/internal/config"
	"github.com/jmylchreest/clashui/internal/repl"
)

const scenarioProxies = `{"proxies":{
	"A":{"name":"A","type":"Selector","now":"B","all":["B","C"],"alive":true,"history":[]},
	"B":{"name":"B","type":"URLTest","alive":true,"history":[]},
	"C":{"name":"C","type":"URLTest","alive":false,"history":[]}
}}`

// daemon is a fake controller that records mutating requests.
type daemon struct {
	mu      sync.Mutex
	hello   string
	proxies string
	puts    []string
}

func newDaemon(t *testing.T) (*daemon, *httptest.Server) {
	t.Helper()
	d := &daemon{hello: "{\"hello\":\"clash\"}\n", proxies: scenarioProxies}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		d.mu.Lock()
		defer d.mu.Unlock()

		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/":
			_, _ = io.WriteString(w, d.hello)
		case r.Method == http.MethodGet && r.URL.Path == "/proxies":
			if d.proxies == "" {
				http.Error(w, "boom", http.StatusInternalServerError)
				return
			}
			_, _ = io.WriteString(w, d.proxies)
		case r.Method == http.MethodGet && strings.HasSuffix(r.URL.Path, "/delay"):
			switch r.URL.Path {
			case "/proxies/A/delay":
				_, _ = io.WriteString(w, `{"delay":300}`)
			case "/proxies/B/delay":
				_, _ = io.WriteString(w, `{"delay":120}`)
			default:
				http.Error(w, `{"message":"An error occurred in the delay test"}`, http.StatusServiceUnavailable)
			}
		case r.Method == http.MethodGet && r.URL.Path == "/version":
			_, _ = io.WriteString(w, `{"version":"v1.18.0"}`)
		case r.Method == http.MethodPut:
			body, _ := io.ReadAll(r.Body)
			d.puts = append(d.puts, r.URL.Path+" "+strings.TrimSpace(string(body)))
			w.WriteHeader(http.StatusNoContent)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return d, srv
}

func (d *daemon) putLog() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.puts...)
}

func testConfig(url string) *config.Config {
	cfg := config.DefaultConfig()
	cfg.Controller.URL = url
	cfg.Output.Color = false
	return cfg
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// runScript starts the app against srv and feeds it input.
func runScript(t *testing.T, srv *httptest.Server, input string) string {
	t.Helper()
	var out bytes.Buffer
	ctx := context.Background()

	a, err := startApp(ctx, testConfig(srv.URL), &out, quietLogger())
	require.NoError(t, err)

	d := repl.NewDispatcher(a.registry(), &out, quietLogger())
	require.NoError(t, d.Run(ctx, repl.NewScannerReader(strings.NewReader(input), "", nil)))
	return out.String()
}

func TestStartApp_Banner(t *testing.T) {
	_, srv := newDaemon(t)
	out := runScript(t, srv, "")
	assert.Equal(t, "Clash Version: v1.18.0\nClient Version: dev\n", out)
}

func TestStartApp_Unavailable(t *testing.T) {
	d, srv := newDaemon(t)
	d.hello = "nginx"

	_, err := startApp(context.Background(), testConfig(srv.URL), io.Discard, quietLogger())
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "clash API is not available"))
}

func TestStartApp_InitialRefreshFails(t *testing.T) {
	d, srv := newDaemon(t)
	d.proxies = ""

	_, err := startApp(context.Background(), testConfig(srv.URL), io.Discard, quietLogger())
	assert.Error(t, err)
}

func TestSelect_OutOfRangeSendsNothing(t *testing.T) {
	d, srv := newDaemon(t)
	out := runScript(t, srv, "select A 5\nselect A x\n")

	assert.Contains(t, out, "x select A 5 failed: proxy index out of range")
	assert.Contains(t, out, "x select A x failed: invalid proxy index \"x\"")
	assert.Empty(t, d.putLog())
}

func TestSelect_ByIndex(t *testing.T) {
	d, srv := newDaemon(t)
	out := runScript(t, srv, "select A 1\nq\nselect A 0\n")

	assert.NotContains(t, out, "failed")
	assert.Equal(t, []string{`/proxies/A {"name":"C"}`}, d.putLog())
}

func TestUnknownCommand(t *testing.T) {
	_, srv := newDaemon(t)
	out := runScript(t, srv, "foo bar\n")
	assert.Contains(t, out, "x foo bar failed: unknown command \"foo\"")
}

func TestPrint_NoSubcommand(t *testing.T) {
	_, srv := newDaemon(t)
	out := runScript(t, srv, "print\n")

	assert.Contains(t, out, "Args: [selector, selectors, proxies, proxy, delay, delays, version, config, rules, connections, traffic, logs, providers, provider]\n")
	assert.Contains(t, out, "x print failed:")
}

func TestPrint_Selectors(t *testing.T) {
	_, srv := newDaemon(t)
	out := runScript(t, srv, "print selectors\nprint selector A\n")

	assert.Contains(t, out, "\nA\n")
	assert.Contains(t, out, "Selector: A\n")
	assert.Contains(t, out, "0 : Proxy: B (alive: true)")
	assert.NotContains(t, out, "Proxy: C")
}

func TestUpdate_RefreshFailureKeepsSession(t *testing.T) {
	d, srv := newDaemon(t)

	var out bytes.Buffer
	ctx := context.Background()
	a, err := startApp(ctx, testConfig(srv.URL), &out, quietLogger())
	require.NoError(t, err)

	d.mu.Lock()
	d.proxies = ""
	d.mu.Unlock()

	dispatcher := repl.NewDispatcher(a.registry(), &out, quietLogger())
	require.NoError(t, dispatcher.Run(ctx, repl.NewScannerReader(strings.NewReader("update\nprint selector A\n"), "", nil)))

	assert.Contains(t, out.String(), "x update failed:")
	assert.Contains(t, out.String(), "Selector: A\n")
	assert.Equal(t, uint64(1), a.session.Generation())
}

func TestHelp(t *testing.T) {
	_, srv := newDaemon(t)
	out := runScript(t, srv, "h\n")

	assert.Contains(t, out, "Available commands:\n[print, select, pselect, update, reload, healthcheck, h, q]\n")
	assert.Contains(t, out, "Quit client")
}

func TestReload(t *testing.T) {
	d, srv := newDaemon(t)
	out := runScript(t, srv, "reload /etc/clash/config.yaml\nreload\n")

	assert.Equal(t, []string{`/configs {"path":"/etc/clash/config.yaml"}`}, d.putLog())
	assert.Contains(t, out, "x reload failed: wrong number of arguments (0), usage: reload <path>")
}

func TestPrint_Delays(t *testing.T) {
	_, srv := newDaemon(t)

	out := runScript(t, srv, "print delays\n")
	assert.Contains(t, out, "A  300 ms\nB  120 ms\nC  error: ")

	out = runScript(t, srv, "print delays delay\n")
	assert.Contains(t, out, "B  120 ms\nA  300 ms\nC  error: ")

	out = runScript(t, srv, "print delays speed\n")
	assert.Contains(t, out, "x print delays speed failed: unknown sort field")
}

func TestPrint_SubcommandUsage(t *testing.T) {
	_, srv := newDaemon(t)
	out := runScript(t, srv, "print selector\nprint delay\nprint delays name asc extra\n")

	assert.Contains(t, out, "x print selector failed: wrong number of arguments (0), usage: print selector <name>\n")
	assert.Contains(t, out, "x print delay failed: wrong number of arguments (0), usage: print delay <name>\n")
	assert.Contains(t, out, "usage: print delays [delay|name] [asc|desc]\n")
}

func TestUpdate_UnreachableDaemon(t *testing.T) {
	_, srv := newDaemon(t)

	var out bytes.Buffer
	ctx := context.Background()
	a, err := startApp(ctx, testConfig(srv.URL), &out, quietLogger())
	require.NoError(t, err)
	srv.Close()

	dispatcher := repl.NewDispatcher(a.registry(), &out, quietLogger())
	require.NoError(t, dispatcher.Run(ctx, repl.NewScannerReader(strings.NewReader("update\nprint selector A\n"), "", nil)))

	assert.Contains(t, out.String(), "x update failed: daemon at "+srv.URL+" unreachable, keeping previous proxies: ")
	assert.Contains(t, out.String(), "Selector: A\n")
}

func TestWriteConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clashui", "config.toml")
	cfg := testConfig("http://127.0.0.1:9191")

	var out bytes.Buffer
	require.NoError(t, writeConfig(cfg, path, &out))
	assert.Equal(t, "Wrote config to "+path+"\n", out.String())

	loaded, err := config.LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:9191", loaded.Controller.URL)
	assert.False(t, loaded.Output.Color)
}

func TestPipedReader_WritesPrompt(t *testing.T) {
	cfg := testConfig("http://127.0.0.1:9090")
	cfg.REPL.Prompt = "clash> "

	var out bytes.Buffer
	reader := pipedReader(cfg, strings.NewReader("h\n"), &out)

	line, err := reader.Readline()
	require.NoError(t, err)
	assert.Equal(t, "h", line)
	assert.Equal(t, "clash> ", out.String())
}
