package interpreter

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/papercomputeco/treeagent/pkg/utils"
)

// MaxOutput bounds what an interpreter feeds back into the conversation.
const MaxOutput = 8000

// Block is the shared part of every fenced-block interpreter. Its pattern
// matches "```<header>\n<body>\n```" anywhere in the buffer; the body may be
// empty ("```<header>\n```").
type Block struct {
	name    string
	pattern *regexp.Regexp
}

// NewBlock builds a Block. header is a regular expression for the text that
// follows the opening fence, e.g. `python` or `(?:shell|bash|sh)`.
func NewBlock(name, header string) Block {
	return Block{
		name:    name,
		pattern: regexp.MustCompile(fmt.Sprintf("(?s)```%s(?:\\n(.*?))?\\n```", header)),
	}
}

func (b Block) Name() string { return b.name }

func (b Block) Pattern() *regexp.Regexp { return b.pattern }

func (b Block) Terminator() string { return Fence }

// Submatches returns the capture groups of the first match in content, or nil.
func (b Block) Submatches(content string) []string {
	m := b.pattern.FindStringSubmatch(content)
	if m == nil {
		return nil
	}
	return m[1:]
}

// Body returns the last capture group of the first match, which is the block
// body for every pattern built by NewBlock.
func (b Block) Body(content string) string {
	m := b.Submatches(content)
	if len(m) == 0 {
		return ""
	}
	return m[len(m)-1]
}

// Clip trims output to MaxOutput bytes and substitutes a marker for nothing.
func Clip(out string) string {
	out = strings.TrimRight(out, "\n")
	if out == "" {
		return "(no output)"
	}
	return utils.Truncate(out, MaxOutput)
}
