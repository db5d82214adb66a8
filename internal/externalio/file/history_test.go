package file

import (
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func numberedLines(count int, width int) (lines []string, content string) {
	for i := 1; i <= count; i++ {
		line := fmt.Sprintf("line-%02d", i)
		if width > len(line) {
			line += strings.Repeat(".", width-len(line))
		}
		lines = append(lines, line)
	}
	content = strings.Join(lines, "\n") + "\n"
	return
}

func TestReadHistory(t *testing.T) {
	dir := tempDir(t)

	tests := []struct {
		name       string
		content    string
		count      int
		wantLines  []string
		wantOffset func(content string) int64
	}{
		{
			name:       "last 3 of 10",
			content:    func() string { _, c := numberedLines(10, 0); return c }(),
			count:      3,
			wantLines:  []string{"line-08", "line-09", "line-10"},
			wantOffset: func(c string) int64 { return int64(len(c)) },
		},
		{
			name:       "unterminated tail left pending",
			content:    func() string { _, c := numberedLines(10, 0); return c + "partial" }(),
			count:      3,
			wantLines:  []string{"line-08", "line-09", "line-10"},
			wantOffset: func(c string) int64 { return int64(len(c) - len("partial")) },
		},
		{
			name:       "lines spanning several blocks",
			content:    func() string { _, c := numberedLines(10, 700); return c }(),
			count:      3,
			wantLines:  func() []string { l, _ := numberedLines(10, 700); return l[7:] }(),
			wantOffset: func(c string) int64 { return int64(len(c)) },
		},
		{
			name:       "fewer lines than requested",
			content:    "a\nb\n",
			count:      5,
			wantLines:  []string{"a", "b"},
			wantOffset: func(c string) int64 { return int64(len(c)) },
		},
		{
			name:       "no terminator",
			content:    "only a fragment",
			count:      2,
			wantLines:  nil,
			wantOffset: func(c string) int64 { return 0 },
		},
		{
			name:       "zero lines requested",
			content:    "a\nb\n",
			count:      0,
			wantLines:  nil,
			wantOffset: func(c string) int64 { return int64(len(c)) },
		},
		{
			name:       "empty file",
			content:    "",
			count:      3,
			wantLines:  nil,
			wantOffset: func(c string) int64 { return 0 },
		},
	}

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, fmt.Sprintf("history-%d.log", i))
			appendFile(t, path, tt.content)

			lines, offset, err := ReadHistory(path, tt.count)
			require.NoError(t, err)
			assert.Equal(t, tt.wantLines, lines)
			assert.Equal(t, tt.wantOffset(tt.content), offset)
		})
	}
}

func TestReadHistoryMissing(t *testing.T) {
	_, _, err := ReadHistory(filepath.Join(tempDir(t), "missing"), 3)
	assert.Error(t, err)
}
