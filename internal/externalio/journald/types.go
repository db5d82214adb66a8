package journald

import "net/http"

// Upload client for a systemd-journal-remote endpoint
type OutModule struct {
	sink   *http.Client
	url    string
	bootID string
}
