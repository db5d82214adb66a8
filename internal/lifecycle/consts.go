package lifecycle

const (
	EnvNameNotifySocket string = "NOTIFY_SOCKET"
	NotifyNetwork       string = "unixgram"
)
