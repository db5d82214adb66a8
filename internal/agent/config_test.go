package agent

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"logpush/internal/agent/workers"
	"logpush/internal/global"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const jsonConfig string = `{
	// shipping host
	"hostname": "app1",
	"debug": true,
	"logpath": "/var/log/logpush",
	"address": "0.0.0.0:5556",
	"metrics": {"enabled": true},
	"workers": [
		{"id": "syslog", "type": "watch", "files": ["/var/log/syslog"], "output": ["main"], "tailLines": 3},
		{"id": "main", "type": "emit", "address": "collector", "reconnect": {"enabled": true, "maxAttempts": 2}},
	]
}`

const yamlConfig string = `hostname: app2
background: true
verbosity: 3
workers:
  - id: web
    type: watch
    files: ["/var/log/nginx/*.log"]
    tags: [nginx]
    fields:
      env: prod
    output: [main]
  - id: main
    type: emit
    address: 10.0.0.1:6000
    protocol: lumberjack
    queue:
      capacity: 100
      policy: drop-oldest
`

func writeConfig(t *testing.T, name string, content string) (path string) {
	t.Helper()
	path = filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return
}

func TestLoadConfigJSON(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, "logpush.json", jsonConfig))
	require.NoError(t, err)

	assert.Equal(t, "app1", cfg.Hostname)
	assert.True(t, cfg.Debug)
	assert.Equal(t, "/var/log/logpush", cfg.LogPath)
	assert.True(t, cfg.Metrics.Enabled)
	require.Len(t, cfg.Workers, 2)
	assert.Equal(t, workers.Definition{
		ID:        "syslog",
		Type:      "watch",
		Files:     []string{"/var/log/syslog"},
		Output:    []string{"main"},
		TailLines: 3,
	}, cfg.Workers[0])
	assert.True(t, cfg.Workers[1].Reconnect.Enabled)
	assert.Equal(t, 2, cfg.Workers[1].Reconnect.MaxAttempts)
}

func TestLoadConfigYAML(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, "logpush.yaml", yamlConfig))
	require.NoError(t, err)

	assert.Equal(t, "app2", cfg.Hostname)
	assert.True(t, cfg.Background)
	assert.Equal(t, 3, cfg.Verbosity)
	require.Len(t, cfg.Workers, 2)
	assert.Equal(t, []string{"nginx"}, cfg.Workers[0].Tags)
	assert.Equal(t, map[string]any{"env": "prod"}, cfg.Workers[0].Fields)
	assert.Equal(t, workers.QueueDef{Capacity: 100, Policy: "drop-oldest"}, cfg.Workers[1].Queue)
	assert.Equal(t, "lumberjack", cfg.Workers[1].Protocol)
}

func TestLoadConfigMissing(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.json"))
	assert.Error(t, err)
}

func TestNewDaemonConfDefaults(t *testing.T) {
	conf, err := JSONConfig{}.NewDaemonConf()
	require.NoError(t, err)

	hostname, err := os.Hostname()
	require.NoError(t, err)
	assert.Equal(t, hostname, conf.Hostname)
	assert.False(t, conf.MetricServerEnabled)
	assert.Equal(t, global.HTTPListenAddr, conf.MetricServerAddress)
	assert.Equal(t, global.AgentShutdownTimeout, conf.ShutdownTimeout)

	conf, err = JSONConfig{Hostname: "app1", Metrics: global.MetricConf{Enabled: true, Address: "127.0.0.1:9100"}}.NewDaemonConf()
	require.NoError(t, err)
	assert.Equal(t, "app1", conf.Hostname)
	assert.Equal(t, "127.0.0.1:9100", conf.MetricServerAddress)
	assert.Greater(t, conf.ShutdownTimeout, time.Duration(0))
}
