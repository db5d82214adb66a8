package journald

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"logpush/pkg/protocol"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Journal remote stand-in keeping every non-empty upload
type uploadRecorder struct {
	mutex   sync.Mutex
	bodies  []string
	status  int
	headers []string
}

func (rec *uploadRecorder) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	rec.mutex.Lock()
	defer rec.mutex.Unlock()
	rec.headers = append(rec.headers, r.URL.Path+" "+r.Header.Get("Content-Type"))
	if len(body) > 0 {
		rec.bodies = append(rec.bodies, string(body))
	}
	if rec.status != 0 && len(body) > 0 {
		http.Error(w, "bad entry", rec.status)
	}
}

func (rec *uploadRecorder) uploads() (bodies []string) {
	rec.mutex.Lock()
	defer rec.mutex.Unlock()
	bodies = append(bodies, rec.bodies...)
	return
}

func TestFieldName(t *testing.T) {
	tests := []struct {
		key      string
		expected string
	}{
		{"env", "ENV"},
		{"Request-ID", "REQUEST_ID"},
		{"__cursor", "CURSOR"},
		{"9lives", "LIVES"},
		{"123", ""},
		{"zone.a1", "ZONE_A1"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			assert.Equal(t, tt.expected, fieldName(tt.key))
		})
	}
}

func TestFieldValue(t *testing.T) {
	assert.Equal(t, "", fieldValue(nil))
	assert.Equal(t, "prod", fieldValue("prod"))
	assert.Equal(t, "3", fieldValue(float64(3)))
	assert.Equal(t, "true", fieldValue(true))
	assert.Equal(t, `{"a":1}`, fieldValue(map[string]any{"a": 1}))
	assert.Equal(t, `["x","y"]`, fieldValue([]any{"x", "y"}))
}

func TestEncodeEntry(t *testing.T) {
	entry := encodeEntry(map[string]string{
		"MESSAGE":  "hello",
		"HOSTNAME": "web1",
		"EMPTY":    "",
	})
	assert.Equal(t, "HOSTNAME=web1\nMESSAGE=hello\n\n", string(entry))

	multiline := encodeEntry(map[string]string{"MESSAGE": "a\nb"})
	expected := "MESSAGE\n" + "\x03\x00\x00\x00\x00\x00\x00\x00" + "a\nb" + "\n\n"
	assert.Equal(t, expected, string(multiline))
}

func TestNewOutputEmptyURL(t *testing.T) {
	module, err := NewOutput("")
	require.NoError(t, err)
	assert.Nil(t, module)

	// Nil module is a no-op output
	written, err := module.Write(context.Background(), protocol.Envelope{})
	require.NoError(t, err)
	assert.Equal(t, 0, written)
	assert.NoError(t, module.Shutdown())
}

func TestNewOutputInvalidURL(t *testing.T) {
	_, err := NewOutput("ftp://journal.local")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scheme must be http or https")
}

func TestWriteUploadsEntry(t *testing.T) {
	recorder := &uploadRecorder{}
	srv := httptest.NewServer(recorder)
	defer srv.Close()

	module, err := NewOutput(srv.URL)
	require.NoError(t, err)
	defer module.Shutdown()

	envelope := protocol.Template{
		Host:   "app1",
		Type:   "nginx-access",
		Tags:   []string{"prod", "edge"},
		Fields: map[string]any{"region": "eu", "MESSAGE": "override attempt", "123": "dropped"},
	}.Wrap("/var/log/nginx/access.log", "GET /\n", time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC))

	written, err := module.Write(context.Background(), envelope)
	require.NoError(t, err)
	assert.Equal(t, 1, written)

	uploads := recorder.uploads()
	require.Len(t, uploads, 1)
	body := uploads[0]
	assert.True(t, strings.HasSuffix(body, "\n\n"))
	for _, line := range []string{
		"__REALTIME_TIMESTAMP=1714557600000000\n",
		"_BOOT_ID=" + bootID() + "\n",
		"MESSAGE=GET /\n",
		"HOSTNAME=app1\n",
		"SYSLOG_IDENTIFIER=nginx-access\n",
		"LOG_SOURCE=file://app1/var/log/nginx/access.log\n",
		"LOG_FILE_PATH=/var/log/nginx/access.log\n",
		"LOG_TAGS=prod,edge\n",
		"REGION=eu\n",
	} {
		assert.Contains(t, body, line)
	}
	assert.NotContains(t, body, "override attempt")
	assert.NotContains(t, body, "dropped")

	recorder.mutex.Lock()
	defer recorder.mutex.Unlock()
	for _, header := range recorder.headers {
		assert.Equal(t, "/upload "+exportContentType, header)
	}
}

func TestWriteRejected(t *testing.T) {
	recorder := &uploadRecorder{status: http.StatusBadRequest}
	srv := httptest.NewServer(recorder)
	defer srv.Close()

	module, err := NewOutput(srv.URL)
	require.NoError(t, err)
	defer module.Shutdown()

	envelope := protocol.Template{Host: "app1"}.Wrap("/var/log/app.log", "line\n", time.Now())
	written, err := module.Write(context.Background(), envelope)
	require.Error(t, err)
	assert.Equal(t, 0, written)
	assert.Contains(t, err.Error(), "400")
	assert.Contains(t, err.Error(), "bad entry")
	assert.Contains(t, err.Error(), "file://app1/var/log/app.log")
}

func TestNewOutputUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	endpoint := srv.URL
	srv.Close()

	_, err := NewOutput(endpoint)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to test HTTP connection")
}
