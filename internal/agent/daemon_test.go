package agent

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"logpush/internal/agent/workers"
	"logpush/internal/externalio/zmq"
	"logpush/pkg/protocol"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitRun(t *testing.T, daemon *Daemon) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		daemon.Run()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("daemon run loop did not return")
	}
}

func TestStartWithoutValidWorkers(t *testing.T) {
	daemon := NewDaemon(Config{
		Hostname: "app1",
		Workers:  []workers.Definition{{ID: "broken", Type: "watch"}},
	})
	err := daemon.Start(context.Background())
	require.Error(t, err)
	assert.Len(t, daemon.ConfigErrors, 1)
	assert.ErrorIs(t, daemon.ConfigErrors[0], workers.ErrInvalidDefinition)
}

func TestStartFailsWhenCollectorUnreachable(t *testing.T) {
	dir := t.TempDir()
	daemon := NewDaemon(Config{
		Hostname: "app1",
		Workers: []workers.Definition{
			{ID: "logs", Type: "watch", Files: []string{filepath.Join(dir, "*.log")}, Output: []string{"main"}},
			{ID: "main", Type: "emit", Address: "127.0.0.1:1"},
		},
	})
	assert.Error(t, daemon.Start(context.Background()))
	waitRun(t, daemon)

	err := daemon.Health()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "main")
}

func TestDaemonShipsLines(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	collector, err := zmq.NewInput(ctx, "127.0.0.1:0")
	require.NoError(t, err)
	defer collector.Shutdown()

	dir, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	path := filepath.Join(dir, "syslog")
	require.NoError(t, os.WriteFile(path, []byte("boot ok\nservice started\n"), 0o644))

	daemon := NewDaemon(Config{
		Hostname:            "app1",
		MetricServerEnabled: true,
		MetricServerAddress: "127.0.0.1:0",
		Workers: []workers.Definition{
			{ID: "syslog", Type: "watch", Files: []string{path}, TailLines: 5, Interval: "20ms", Output: []string{"main"}},
			{ID: "main", Type: "emit", Address: collector.Address(), PollInterval: "20ms"},
		},
	})
	require.NoError(t, daemon.Start(context.Background()))

	var got []protocol.Envelope
	for len(got) < 2 {
		payloads, err := collector.Read(ctx)
		require.NoError(t, err)
		for _, payload := range payloads {
			envelope, err := protocol.Unmarshal(payload)
			require.NoError(t, err)
			got = append(got, envelope)
		}
	}
	assert.Equal(t, "boot ok", got[0].Message)
	assert.Equal(t, "service started", got[1].Message)
	assert.Equal(t, "app1", got[0].SourceHost)
	assert.Equal(t, "file://app1"+path, got[0].Source)

	daemon.Shutdown()
	daemon.Shutdown()
	waitRun(t, daemon)
	assert.False(t, daemon.Failed())
}

func TestMetricsHandlerExposesWorkers(t *testing.T) {
	dir := t.TempDir()
	daemon := NewDaemon(Config{
		Hostname: "app1",
		Workers: []workers.Definition{
			{ID: "logs", Type: "watch", Files: []string{filepath.Join(dir, "*.log")}},
		},
	})
	require.NoError(t, daemon.Start(context.Background()))
	defer daemon.Shutdown()
	assert.NoError(t, daemon.Health())

	server := httptest.NewServer(daemon.Metrics.Handler())
	defer server.Close()

	resp, err := http.Get(server.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `logpush_queue_depth{worker="logs"}`)
}
