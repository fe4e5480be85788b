package oplog

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/starford/quicknote/internal/models"
)

// TimeLayout is ISO-8601 in UTC with millisecond precision.
const TimeLayout = "2006-01-02T15:04:05.000Z07:00"

var lineRe = regexp.MustCompile(`^\[([^\]]+)\] User\[([^\]]*)\] (\S+) ?(.*)$`)

var flatten = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ")

// FormatLine renders an entry as
// "[<timestamp>] User[<actor>] <operation> <details>\n".
// Line breaks inside fields are replaced by spaces.
func FormatLine(e models.LogEntry) string {
	return fmt.Sprintf("[%s] User[%s] %s %s\n",
		e.Timestamp.UTC().Format(TimeLayout),
		flatten.Replace(e.Actor),
		flatten.Replace(e.Operation),
		flatten.Replace(e.Details))
}

// ParseLine parses a line produced by FormatLine.
func ParseLine(line string) (models.LogEntry, error) {
	m := lineRe.FindStringSubmatch(strings.TrimRight(line, "\r\n"))
	if m == nil {
		return models.LogEntry{}, fmt.Errorf("oplog: malformed line %q", line)
	}
	ts, err := time.Parse(time.RFC3339Nano, m[1])
	if err != nil {
		return models.LogEntry{}, fmt.Errorf("oplog: bad timestamp %q: %w", m[1], err)
	}
	return models.LogEntry{
		Timestamp: ts,
		Actor:     m[2],
		Operation: m[3],
		Details:   m[4],
	}, nil
}

// ReadEntries parses every well-formed line of the log at path. Malformed
// lines are skipped. A missing file yields no entries.
func ReadEntries(path string) ([]models.LogEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("oplog: open %s: %w", path, err)
	}
	defer f.Close()

	var out []models.LogEntry
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		if sc.Text() == "" {
			continue
		}
		e, err := ParseLine(sc.Text())
		if err != nil {
			continue
		}
		out = append(out, e)
	}
	if err := sc.Err(); err != nil {
		return out, fmt.Errorf("oplog: scan %s: %w", path, err)
	}
	return out, nil
}
