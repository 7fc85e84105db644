package catalog

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"go.yaml.in/yaml/v3"
)

const (
	// NoDescription is shown when a file yields nothing usable.
	NoDescription = "No description available"

	maxDescriptionLen = 100
)

var (
	frontmatterRe = regexp.MustCompile(`(?s)\A\s*---\r?\n(.*?)\r?\n---[ \t]*(?:\r?\n|\z)`)
	descriptionRe = regexp.MustCompile(`(?m)^description:[ \t]*(?:"([^"]*)"|'([^']*)'|(.*?))[ \t]*\r?$`)
)

// Describe derives a one-line description: the frontmatter description
// field, else the first non-empty body line that is not a heading or
// comment, else NoDescription.
func Describe(content []byte) string {
	text := string(content)
	body := text

	if m := frontmatterRe.FindStringSubmatchIndex(text); m != nil {
		block := text[m[2]:m[3]]
		body = text[m[1]:]
		if d := frontmatterDescription(block); d != "" {
			return d
		}
	}

	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "<!--") || strings.HasPrefix(line, "//") {
			continue
		}
		return truncate(line, maxDescriptionLen)
	}
	return NoDescription
}

func frontmatterDescription(block string) string {
	var meta struct {
		Description interface{} `yaml:"description"`
	}
	if err := yaml.Unmarshal([]byte(block), &meta); err == nil {
		if s, ok := meta.Description.(string); ok {
			return strings.TrimSpace(s)
		}
	}

	// Frontmatter in prompt files is often not valid YAML (unquoted colons,
	// tabs), so fall back to a line match.
	m := descriptionRe.FindStringSubmatch(block)
	if m == nil {
		return ""
	}
	for _, g := range m[1:] {
		if g = strings.TrimSpace(g); g != "" {
			return g
		}
	}
	return ""
}

func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max]) + "..."
}

// CountLines counts newline-separated lines. A trailing newline does not
// start a new line.
func CountLines(content []byte) int {
	if len(content) == 0 {
		return 0
	}
	n := strings.Count(string(content), "\n")
	if content[len(content)-1] != '\n' {
		n++
	}
	return n
}
