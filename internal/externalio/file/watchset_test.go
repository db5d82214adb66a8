package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func linesOf(batches []Batch) (lines []string) {
	for _, batch := range batches {
		lines = append(lines, batch.Lines...)
	}
	return
}

func TestNewWatchSetPatterns(t *testing.T) {
	ctx := context.Background()

	_, err := NewWatchSet(ctx, []string{"["}, 0)
	assert.Error(t, err, "only malformed patterns")

	_, err = NewWatchSet(ctx, nil, 0)
	assert.Error(t, err)

	set, err := NewWatchSet(ctx, []string{"[", "/var/log/*.log"}, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"/var/log/*.log"}, set.Patterns())
}

func TestReconcileNoMatches(t *testing.T) {
	ctx := context.Background()
	set, err := NewWatchSet(ctx, []string{filepath.Join(tempDir(t), "*.log")}, 0)
	require.NoError(t, err)

	assert.Empty(t, set.Reconcile(ctx))
	assert.Empty(t, set.Tracked())
	assert.Empty(t, set.Poll(ctx))
}

func TestReconcileIdempotent(t *testing.T) {
	ctx := context.Background()
	dir := tempDir(t)
	path := filepath.Join(dir, "app.log")
	appendFile(t, path, "existing\n")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.log"), 0755))

	set, err := NewWatchSet(ctx, []string{filepath.Join(dir, "*.log")}, 0)
	require.NoError(t, err)
	defer set.Close(ctx)

	assert.Empty(t, set.Reconcile(ctx), "new files start at end without back-read")
	assert.Equal(t, []string{path}, set.Tracked(), "directories are ignored")

	appendFile(t, path, "one\n")
	assert.Empty(t, set.Reconcile(ctx))
	assert.Empty(t, set.Reconcile(ctx))
	assert.Equal(t, uint64(1), set.Metrics.Opened.Load())

	assert.Equal(t, []string{"one"}, linesOf(set.Poll(ctx)))
	assert.Empty(t, set.Poll(ctx))
}

func TestRotationOrder(t *testing.T) {
	ctx := context.Background()
	dir := tempDir(t)
	path := filepath.Join(dir, "app.log")
	appendFile(t, path, "")

	set, err := NewWatchSet(ctx, []string{path}, 0)
	require.NoError(t, err)
	defer set.Close(ctx)

	var emitted []string
	cycle := func() {
		emitted = append(emitted, linesOf(set.Reconcile(ctx))...)
		emitted = append(emitted, linesOf(set.Poll(ctx))...)
	}
	cycle()

	appendFile(t, path, "A\nB\n")
	cycle()
	appendFile(t, path, "tail")

	require.NoError(t, os.Rename(path, path+".1"))
	appendFile(t, path, "C\n")

	batches := set.Reconcile(ctx)
	require.Len(t, batches, 1)
	assert.True(t, batches[0].Final)
	emitted = append(emitted, linesOf(batches)...)
	emitted = append(emitted, linesOf(set.Poll(ctx))...)

	assert.Equal(t, []string{"A", "B", "tail", "C"}, emitted)
	assert.Equal(t, uint64(1), set.Metrics.Finalized.Load())
}

func TestRotationBeforeFirstPoll(t *testing.T) {
	ctx := context.Background()
	dir := tempDir(t)
	path := filepath.Join(dir, "app.log")
	appendFile(t, path, "")

	set, err := NewWatchSet(ctx, []string{path}, 0)
	require.NoError(t, err)
	defer set.Close(ctx)
	set.Reconcile(ctx)

	appendFile(t, path, "A\nB\n")
	require.NoError(t, os.Rename(path, path+".1"))
	appendFile(t, path, "C\n")

	var emitted []string
	emitted = append(emitted, linesOf(set.Reconcile(ctx))...)
	emitted = append(emitted, linesOf(set.Poll(ctx))...)
	assert.Equal(t, []string{"A", "B", "C"}, emitted)
}

func TestRotationIntoWatchedName(t *testing.T) {
	ctx := context.Background()
	dir := tempDir(t)
	path := filepath.Join(dir, "app.log")
	appendFile(t, path, "")

	set, err := NewWatchSet(ctx, []string{filepath.Join(dir, "app.log*")}, 0)
	require.NoError(t, err)
	defer set.Close(ctx)
	set.Reconcile(ctx)

	appendFile(t, path, "A\nB\n")
	require.NoError(t, os.Rename(path, path+".1"))
	appendFile(t, path, "C\n")

	var emitted []string
	emitted = append(emitted, linesOf(set.Reconcile(ctx))...)
	emitted = append(emitted, linesOf(set.Poll(ctx))...)
	assert.Equal(t, []string{"A", "B", "C"}, emitted, "renamed file must not be read again")
	assert.Equal(t, []string{path, path + ".1"}, set.Tracked())
}

func TestRemovedFile(t *testing.T) {
	ctx := context.Background()
	dir := tempDir(t)
	path := filepath.Join(dir, "app.log")
	appendFile(t, path, "")

	set, err := NewWatchSet(ctx, []string{path}, 0)
	require.NoError(t, err)
	set.Reconcile(ctx)

	appendFile(t, path, "last\nfragment")
	require.NoError(t, os.Remove(path))

	assert.Equal(t, []string{"last", "fragment"}, linesOf(set.Reconcile(ctx)))
	assert.Empty(t, set.Tracked())
	assert.Empty(t, set.Reconcile(ctx))
}

func TestBackReadOnFirstReconcileOnly(t *testing.T) {
	ctx := context.Background()
	dir := tempDir(t)
	first := filepath.Join(dir, "a.log")
	_, content := numberedLines(10, 0)
	appendFile(t, first, content)

	set, err := NewWatchSet(ctx, []string{filepath.Join(dir, "*.log")}, 3)
	require.NoError(t, err)
	defer set.Close(ctx)

	batches := set.Reconcile(ctx)
	require.Len(t, batches, 1)
	assert.Equal(t, []string{"line-08", "line-09", "line-10"}, batches[0].Lines)
	assert.False(t, batches[0].Final)

	second := filepath.Join(dir, "b.log")
	appendFile(t, second, content)
	assert.Empty(t, set.Reconcile(ctx), "files discovered later start at end")
	assert.Equal(t, []string{first, second}, set.Tracked())
}

func TestWatchSetBehind(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(tempDir(t), "app.log")
	appendFile(t, path, "")

	set, err := NewWatchSet(ctx, []string{path}, 0)
	require.NoError(t, err)
	defer set.Close(ctx)
	assert.Empty(t, set.Reconcile(ctx))
	assert.False(t, set.Behind())

	tailer := set.tailers[path]
	tailer.readBuf = make([]byte, 64)
	tailer.readLimit = 64

	expected, content := numberedLines(40, 30)
	appendFile(t, path, content)

	var got []string
	got = append(got, linesOf(set.Poll(ctx))...)
	assert.True(t, set.Behind())
	for set.Behind() {
		got = append(got, linesOf(set.Poll(ctx))...)
	}
	assert.Equal(t, expected, got)
	assert.Equal(t, uint64(40), set.Metrics.LinesRead.Load())
}

func TestSymlinkTrackedOnce(t *testing.T) {
	ctx := context.Background()
	dir := tempDir(t)
	path := filepath.Join(dir, "app.log")
	appendFile(t, path, "")
	require.NoError(t, os.Symlink(path, filepath.Join(dir, "current.log")))

	set, err := NewWatchSet(ctx, []string{filepath.Join(dir, "*.log")}, 0)
	require.NoError(t, err)
	defer set.Close(ctx)
	set.Reconcile(ctx)
	assert.Equal(t, []string{path}, set.Tracked())

	appendFile(t, path, "x\n")
	assert.Equal(t, []string{"x"}, linesOf(set.PollPath(ctx, filepath.Join(dir, "current.log"))))
	assert.Empty(t, set.PollPath(ctx, filepath.Join(dir, "unknown.log")))
}

func TestCloseAbandonsFragments(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(tempDir(t), "app.log")
	appendFile(t, path, "")

	set, err := NewWatchSet(ctx, []string{path}, 0)
	require.NoError(t, err)
	set.Reconcile(ctx)

	appendFile(t, path, "half")
	assert.Empty(t, set.Poll(ctx))
	assert.Equal(t, 4, set.PendingBytes())

	set.Close(ctx)
	assert.Empty(t, set.Tracked())
}
