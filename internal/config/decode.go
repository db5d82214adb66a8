// Reads configuration files shared by the agent and collector
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// Decodes the file at path into out. Files ending in .yaml or .yml are YAML,
// anything else is JSON with optional comments and trailing commas.
func Decode(path string, out any) (err error) {
	configFile, err := os.ReadFile(path)
	if err != nil {
		err = fmt.Errorf("failed to read config file: %w", err)
		return
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(configFile, out)
	default:
		decoder := json.NewDecoder(bytes.NewReader(jsonc.ToJSON(configFile)))
		err = decoder.Decode(out)
	}
	if err != nil {
		err = fmt.Errorf("invalid config syntax in '%s': %w", path, err)
		return
	}
	return
}
