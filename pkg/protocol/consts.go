package protocol

const (
	// Port appended to transport addresses that do not carry one
	DefaultPort string = "5556"

	TransportScheme string = "tcp://"
	SourceScheme    string = "file://"

	// UTC, microsecond precision, always Z suffixed
	TimestampLayout string = "2006-01-02T15:04:05.000000Z"
)
