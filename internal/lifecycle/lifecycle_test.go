package lifecycle

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Fake service manager socket, returns the received datagrams channel
func listenNotify(t *testing.T) (received chan string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "notify.sock")
	conn, err := net.ListenUnixgram(NotifyNetwork, &net.UnixAddr{Name: path, Net: NotifyNetwork})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	t.Setenv(EnvNameNotifySocket, path)

	received = make(chan string, 10)
	go func() {
		buf := make([]byte, 1024)
		for {
			n, err := conn.Read(buf)
			if err != nil {
				return
			}
			received <- string(buf[:n])
		}
	}()
	return
}

func nextMessage(t *testing.T, received chan string) (msg string) {
	t.Helper()
	select {
	case msg = <-received:
	case <-time.After(2 * time.Second):
		t.Fatal("no notify message received")
	}
	return
}

func TestNotifyWithoutSocket(t *testing.T) {
	t.Setenv(EnvNameNotifySocket, "")
	assert.NoError(t, NotifyReady(context.Background()))
	assert.NoError(t, NotifyStatus(context.Background(), "ok"))
	assert.NoError(t, NotifyStopping(context.Background()))
}

func TestNotifyMessages(t *testing.T) {
	received := listenNotify(t)
	ctx := context.Background()

	require.NoError(t, NotifyReady(ctx))
	assert.Equal(t, "READY=1", nextMessage(t, received))

	require.NoError(t, NotifyStatus(ctx, "2 workers running"))
	assert.Equal(t, "STATUS=2 workers running", nextMessage(t, received))

	require.NoError(t, NotifyStopping(ctx))
	msg := nextMessage(t, received)
	assert.True(t, strings.HasPrefix(msg, "STOPPING=1\nMONOTONIC_USEC="), msg)
}

func TestNotifyMissingSocket(t *testing.T) {
	t.Setenv(EnvNameNotifySocket, filepath.Join(t.TempDir(), "absent.sock"))
	assert.Error(t, NotifyReady(context.Background()))
}

type countingDaemon struct {
	shutdowns atomic.Int32
}

func (daemon *countingDaemon) Shutdown() {
	daemon.shutdowns.Add(1)
}

func TestHandleSignals(t *testing.T) {
	t.Setenv(EnvNameNotifySocket, "")

	tests := []struct {
		name   string
		signal os.Signal
	}{
		{"interrupt", syscall.SIGINT},
		{"terminate", syscall.SIGTERM},
		{"hangup", syscall.SIGHUP},
		{"quit", syscall.SIGQUIT},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			daemon := &countingDaemon{}
			sigChan := make(chan os.Signal, 1)
			sigChan <- tt.signal

			handleSignals(context.Background(), sigChan, daemon)
			assert.Equal(t, int32(1), daemon.shutdowns.Load())
		})
	}
}

func TestHandleSignalsContextDone(t *testing.T) {
	daemon := &countingDaemon{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	handleSignals(ctx, make(chan os.Signal), daemon)
	assert.Equal(t, int32(0), daemon.shutdowns.Load())
}
