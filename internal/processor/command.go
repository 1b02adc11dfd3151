package processor

import (
	"regexp"
	"strings"
)

// CommandParser extracts a command from cleaned text, or returns nil for a
// conversational message.
type CommandParser interface {
	Parse(text string) *Command
}

type commandPattern struct {
	name string
	re   *regexp.Regexp
}

// Patterns are tried in order; the first match wins.
var defaultCommandPatterns = []commandPattern{
	{"slash", regexp.MustCompile(`^/([A-Za-z][A-Za-z0-9_-]*)(?:\s+(.+))?$`)},
	{"bang", regexp.MustCompile(`^!([A-Za-z][A-Za-z0-9_-]*)(?:\s+(.+))?$`)},
	{"colon", regexp.MustCompile(`^([A-Za-z]+):\s+(.+)$`)},
}

// PrefixParser recognizes "/word args", "!word" and "word: args".
type PrefixParser struct {
	patterns []commandPattern
}

// NewPrefixParser returns the default command grammar.
func NewPrefixParser() *PrefixParser {
	return &PrefixParser{patterns: defaultCommandPatterns}
}

// Parse implements CommandParser.
func (p *PrefixParser) Parse(text string) *Command {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	for _, pattern := range p.patterns {
		m := pattern.re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		cmd := &Command{Name: strings.ToLower(m[1])}
		if len(m) > 2 {
			cmd.Args = strings.TrimSpace(m[2])
		}
		return cmd
	}
	return nil
}
