package global

type CommandSet struct {
	CommandName     string                 // Exact name of cli command
	UsageOption     string                 // Expected command value in usage top line
	Description     string                 // Short text displayed on parent command
	FullDescription string                 // Long text displayed on current command
	ChildCommands   map[string]*CommandSet // Available subcommands
}

type CtxKey string

// Settings shared by agent and collector config files
type Logging struct {
	Debug      bool   `json:"debug" yaml:"debug"`
	Verbosity  int    `json:"verbosity,omitempty" yaml:"verbosity,omitempty"`
	LogPath    string `json:"logpath,omitempty" yaml:"logpath,omitempty"`
	Background bool   `json:"background" yaml:"background"`
}

type MetricConf struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Address string `json:"address,omitempty" yaml:"address,omitempty"`
}
