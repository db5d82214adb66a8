package journald

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
)

const bootIDPath string = "/proc/sys/kernel/random/boot_id"

var (
	bootIDOnce  sync.Once
	bootIDValue string
)

// Boot id of this host without dashes, required on every uploaded entry
func bootID() (id string) {
	bootIDOnce.Do(func() {
		raw, err := os.ReadFile(bootIDPath)
		if err != nil {
			bootIDValue = strings.Repeat("0", 32)
			return
		}
		bootIDValue = strings.ReplaceAll(strings.TrimSpace(string(raw)), "-", "")
	})
	id = bootIDValue
	return
}

// Journal field name: upper case letters, digits and underscores, no leading digit or underscore
func fieldName(key string) (name string) {
	var builder strings.Builder
	for _, char := range strings.ToUpper(key) {
		if (char >= 'A' && char <= 'Z') || (char >= '0' && char <= '9') {
			builder.WriteRune(char)
		} else {
			builder.WriteByte('_')
		}
	}
	name = strings.TrimLeft(builder.String(), "_0123456789")
	return
}

// Text form of a decoded field value
func fieldValue(value any) (text string) {
	switch typed := value.(type) {
	case nil:
		return
	case string:
		text = typed
	case bool, float64, int, int64:
		text = fmt.Sprint(typed)
	default:
		encoded, err := json.Marshal(typed)
		if err != nil {
			text = fmt.Sprint(typed)
			return
		}
		text = string(encoded)
	}
	return
}

// Serializes one entry in export format. Values containing newlines use the
// length-prefixed binary form. Output is sorted by field name.
func encodeEntry(fields map[string]string) (entry []byte) {
	names := make([]string, 0, len(fields))
	for name, value := range fields {
		if name == "" || value == "" {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	var buf bytes.Buffer
	for _, name := range names {
		value := fields[name]
		buf.WriteString(name)
		if strings.ContainsRune(value, '\n') {
			buf.WriteByte('\n')
			binary.Write(&buf, binary.LittleEndian, uint64(len(value)))
			buf.WriteString(value)
		} else {
			buf.WriteByte('=')
			buf.WriteString(value)
		}
		buf.WriteByte('\n')
	}
	// Entries are separated by an empty line
	buf.WriteByte('\n')

	entry = buf.Bytes()
	return
}
