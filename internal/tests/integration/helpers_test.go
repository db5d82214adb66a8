package integration

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"logpush/internal/collector"
	"logpush/internal/global"
	"logpush/internal/logctx"

	"github.com/stretchr/testify/require"
)

// Log sink safe for the watcher goroutine
type syncBuffer struct {
	mutex  sync.Mutex
	buffer bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return b.buffer.Write(p)
}

func (b *syncBuffer) String() string {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return b.buffer.String()
}

// Context with a logger writing into the returned buffer. Stopped at test cleanup.
func newLogContext(t *testing.T) (ctx context.Context, logs *syncBuffer) {
	t.Helper()
	logs = &syncBuffer{}

	loggerCtx, cancel := context.WithCancel(context.Background())
	logger := logctx.NewLogger(global.NSTest, global.VerbosityProgress, loggerCtx.Done())
	ctx = logctx.WithLogger(context.Background(), logger)
	ctx = logctx.AppendCtxTag(ctx, global.NSTest)
	logctx.StartWatcher(logger, logs)

	t.Cleanup(func() {
		cancel()
		logger.Wake()
		logger.Wait()
	})
	return
}

func appendFile(t *testing.T, path string, content string) {
	t.Helper()
	handle, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	require.NoError(t, err)
	_, err = handle.WriteString(content)
	require.NoError(t, err)
	require.NoError(t, handle.Close())
}

func tempDir(t *testing.T) (dir string) {
	dir, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	return
}

func waitDecoded(t *testing.T, daemon *collector.Daemon, count uint64) {
	t.Helper()
	require.Eventually(t, func() bool {
		decoded, _ := daemon.Counts()
		return decoded >= count
	}, 15*time.Second, 20*time.Millisecond)
}

// Messages of collector text lines, in file order
func messagesOf(text string) (messages []string) {
	for _, line := range strings.Split(strings.TrimSpace(text), "\n") {
		_, message, found := strings.Cut(line, "]: ")
		if found {
			messages = append(messages, message)
		}
	}
	return
}
