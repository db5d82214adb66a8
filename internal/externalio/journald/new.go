// Collector output writing envelopes to systemd-journal-remote in journal export format
package journald

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

const (
	exportContentType string        = "application/vnd.fdo.journal"
	uploadPath        string        = "upload" // only path accepted by the remote server
	connectTimeout    time.Duration = 3 * time.Second
)

// Creates new journald output module. Tests connection. Returns nil nil if no url.
func NewOutput(endpoint string) (module *OutModule, err error) {
	if endpoint == "" {
		return
	}

	baseURL, err := url.Parse(endpoint)
	if err != nil {
		err = fmt.Errorf("invalid journald URL: %w", err)
		return
	}
	if baseURL.Scheme != "http" && baseURL.Scheme != "https" {
		err = fmt.Errorf("invalid journald URL '%s': scheme must be http or https", endpoint)
		return
	}

	transport := &http.Transport{
		MaxIdleConns:          10,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: -1, // Not supported by journal remote server
	}

	new := &OutModule{
		sink:   &http.Client{Transport: transport},
		url:    baseURL.ResolveReference(&url.URL{Path: uploadPath}).String(),
		bootID: bootID(),
	}

	testCtx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(testCtx, http.MethodPost, new.url, bytes.NewReader(nil))
	if err != nil {
		err = fmt.Errorf("failed to create test HTTP connection to journald: %w", err)
		return
	}
	req.Header.Set("Content-Type", exportContentType)

	resp, err := new.sink.Do(req)
	if err != nil {
		err = fmt.Errorf("failed to test HTTP connection to journald: %w", err)
		return
	}
	resp.Body.Close()

	module = new
	return
}
