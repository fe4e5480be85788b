// Package parser derives display information (title, preview) from note
// content. It never changes what is stored.
package parser

import (
	"bytes"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/starford/quicknote/internal/models"
)

const (
	maxTitleRunes   = 60
	maxPreviewRunes = 80
)

// Summary is what list views show for a note.
type Summary struct {
	Title   string `json:"title"`
	Preview string `json:"preview"`
}

// Summarize returns the display title and preview for a note. Markdown notes
// take their title from frontmatter "title" or the first H1; any note falls
// back to its first non-empty line and then to the file name stem.
func Summarize(n models.Note) Summary {
	body := n.Content
	var title string

	if n.Kind() == models.KindMarkdown {
		fm, rest := splitFrontmatter([]byte(n.Content))
		body = rest
		title = frontmatterTitle(fm)
		if title == "" {
			title = firstHeading(body)
		}
	}

	lines := contentLines(body)
	if title == "" && len(lines) > 0 {
		title = lines[0]
	}
	if title == "" {
		title = strings.TrimSuffix(n.Name, filepath.Ext(n.Name))
	}

	var preview string
	for _, l := range lines {
		if l != title && !isHeadingOf(l, title) {
			preview = l
			break
		}
	}

	return Summary{
		Title:   truncate(title, maxTitleRunes),
		Preview: truncate(preview, maxPreviewRunes),
	}
}

// splitFrontmatter separates YAML frontmatter (between leading --- delimiters)
// from the Markdown body. If no valid frontmatter is found the entire content
// is body.
func splitFrontmatter(data []byte) (map[string]interface{}, string) {
	const delim = "---"
	trimmed := bytes.TrimLeft(data, "\n\r")

	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return nil, string(data)
	}

	rest := trimmed[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		return nil, string(data)
	}

	yamlBlock := rest[:idx]
	afterDelim := rest[idx+1+len(delim):]
	body := strings.TrimLeft(string(afterDelim), "\n\r")

	var fm map[string]interface{}
	if err := yaml.Unmarshal(yamlBlock, &fm); err != nil {
		return nil, string(data)
	}
	return fm, body
}

func frontmatterTitle(fm map[string]interface{}) string {
	if fm == nil {
		return ""
	}
	if s, ok := fm["title"].(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}

func firstHeading(body string) string {
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") {
			return strings.TrimSpace(trimmed[2:])
		}
	}
	return ""
}

func isHeadingOf(line, title string) bool {
	return strings.HasPrefix(line, "#") && strings.TrimSpace(strings.TrimLeft(line, "#")) == title
}

// contentLines returns the trimmed non-empty lines of body.
func contentLines(body string) []string {
	var out []string
	for _, line := range strings.Split(body, "\n") {
		if t := strings.TrimSpace(line); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "…"
}
