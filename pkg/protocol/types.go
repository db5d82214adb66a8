package protocol

// Wire record for one log line
type Envelope struct {
	Source     string         `json:"source"`
	Type       string         `json:"type"`
	Tags       []string       `json:"tags"`
	Fields     map[string]any `json:"fields"`
	Timestamp  string         `json:"timestamp"`
	SourceHost string         `json:"source_host"`
	SourcePath string         `json:"source_path"`
	Message    string         `json:"message"`
}

// Per-producer envelope metadata, fixed for the lifetime of a watch worker
type Template struct {
	Host   string
	Type   string
	Tags   []string
	Fields map[string]any
}
