package summary

import (
	"regexp"
	"strings"
)

var (
	showPattern = regexp.MustCompile("(?s)```\n?show\n(.*?)\n```")
	hidePattern = regexp.MustCompile("(?s)```\n?hide\n(.*?)\n```")
)

// Block is a titled body parsed from model output.
type Block struct {
	Title string
	Body  string
}

// ShowDirective finds the first complete show directive in content. It
// returns the listed keys and the byte range of the directive.
func ShowDirective(content string) (keys []string, start, end int, ok bool) {
	loc := showPattern.FindStringSubmatchIndex(content)
	if loc == nil {
		return nil, 0, 0, false
	}
	return directiveKeys(content[loc[2]:loc[3]]), loc[0], loc[1], true
}

// HideDirectives collects the keys of every hide directive and returns
// content with the directives removed.
func HideDirectives(content string) (keys []string, stripped string) {
	for _, m := range hidePattern.FindAllStringSubmatch(content, -1) {
		keys = append(keys, directiveKeys(m[1])...)
	}
	if len(keys) == 0 {
		return nil, content
	}
	return keys, hidePattern.ReplaceAllLiteralString(content, "")
}

// ParseBlocks splits content into <<title>> blocks. Body lines are trimmed
// and accumulate until the next title; a title seen twice appends to its
// first block. Lines before the first title, and ROOT blocks, are returned
// as leftover.
func ParseBlocks(content string) (blocks []Block, leftover string) {
	var (
		rest    []string
		current = -1
		index   = make(map[string]int)
		bodies  [][]string
	)

	for _, line := range strings.Split(strings.TrimSpace(content), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if title, ok := titleOf(line); ok {
			if title == RootKey {
				current = -1
				continue
			}
			i, seen := index[title]
			if !seen {
				i = len(blocks)
				index[title] = i
				blocks = append(blocks, Block{Title: title})
				bodies = append(bodies, nil)
			}
			current = i
			continue
		}

		if current < 0 {
			rest = append(rest, line)
			continue
		}
		bodies[current] = append(bodies[current], line)
	}

	for i := range blocks {
		blocks[i].Body = strings.Join(bodies[i], "\n")
	}
	return blocks, strings.Join(rest, "\n")
}

func titleOf(line string) (string, bool) {
	if !strings.HasPrefix(line, "<<") || !strings.HasSuffix(line, ">>") || len(line) < 5 {
		return "", false
	}
	title := strings.TrimSpace(line[2 : len(line)-2])
	return title, title != ""
}

func directiveKeys(body string) []string {
	var keys []string
	for _, line := range strings.Split(strings.TrimSpace(body), "\n") {
		line = strings.TrimSpace(line)
		if title, ok := titleOf(line); ok {
			line = title
		}
		if line != "" {
			keys = append(keys, line)
		}
	}
	return keys
}
