package global

import "time"

const (
	// Descriptive Names for available verbosity levels
	VerbosityNone int = iota
	VerbosityStandard
	VerbosityProgress
	VerbosityData
	VerbosityFullData
	VerbosityDebug

	// Descriptive names for available severity levels
	ErrorLog string = "Error"
	WarnLog  string = "Warn"
	InfoLog  string = "Info"
)

const (
	ProgVersion  string = "v0.4.0"
	ProgBaseName string = "logpush"

	// Context keys
	LoggerKey  CtxKey = "logger"  // Event queue (mostly for variable log verbosity handling)
	LogTagsKey CtxKey = "logtags" // List of tags in order of broad->specific appended/popped at various parts of the program

	DefaultConfigPath string = "/etc/logpush.json"

	// Log file rotation (size in megabytes)
	LogFileMaxSizeMB  int = 1
	LogFileMaxBackups int = 99

	// Watch worker defaults
	DefaultPollInterval   time.Duration = 100 * time.Millisecond
	DefaultRescanInterval time.Duration = 5 * time.Second
	DefaultLogType        string        = "linux-syslog"

	// Emit worker defaults
	DefaultDequeueWait       time.Duration = 1 * time.Second
	DefaultReconnectAttempts int           = 5
	DefaultReconnectDelay    time.Duration = 250 * time.Millisecond
	DefaultReconnectMaxDelay time.Duration = 30 * time.Second
	DefaultSendTimeout       time.Duration = 3 * time.Second

	// Collector defaults
	DefaultFlushInterval time.Duration = 1 * time.Second

	// Upper bound for memory-derived queue capacity
	MaxDerivedQueueCapacity int    = 1 << 20
	EstimatedEnvelopeBytes  uint64 = 512

	// Timeout values
	DefaultDrainTimeout      time.Duration = 2 * time.Second // emitters empty their queues before stop
	AgentShutdownTimeout     time.Duration = 5 * time.Second
	CollectorShutdownTimeout time.Duration = 10 * time.Second

	// Metric HTTP server
	HTTPListenAddr   string        = "localhost:15556" // Metric scrapes only exposed to local machine by default
	HTTPMetricsPath  string        = "/metrics"
	HTTPHealthPath   string        = "/healthz"
	HTTPReadTimeout  time.Duration = 30 * time.Second
	HTTPWriteTimeout time.Duration = 10 * time.Second
	HTTPIdleTimeout  time.Duration = 180 * time.Second

	// Namespacing Name Components
	NSMetric    string = "Metrics"
	NSMetricSrv string = "Server"
	NSTest      string = "Test"
	NSCLI       string = "CLI"
	NSAgent     string = "Agent"
	NSCollector string = "Collector"
	NSWorkers   string = "Workers"
	NSOut       string = "Output"
	NSQueue     string = "Queue"
	NSListen    string = "Listener"
	NSWatcher   string = "Watcher"
	NSZMQ       string = "ZMQ"
	NSBeats     string = "Beats"
	NSoFile     string = "File"
	NSoStdout   string = "Stdout"
	NSoJournald string = "Journald"
)
