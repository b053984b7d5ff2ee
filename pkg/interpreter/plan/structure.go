package plan

import (
	"regexp"
	"strings"
)

// AskMarker flags a plan item that needs an answer from the user.
const AskMarker = "###ask"

// Item is one step of a structured plan.
type Item struct {
	// Title is the trimmed item line, numbering included ("1.1 fetch data").
	Title string

	// Body holds continuation lines, trimmed and newline-joined.
	Body string

	Children []*Item
}

// Content is the text stored on the item's memory node.
func (it *Item) Content() string {
	if it.Body == "" {
		return it.Title
	}
	return it.Title + "\n" + it.Body
}

// flatten renders it and its descendants as an indented outline.
func (it *Item) flatten(level int) string {
	var sb strings.Builder
	indent := strings.Repeat("    ", level)
	sb.WriteString(indent + it.Title)
	if it.Body != "" {
		for _, line := range strings.Split(it.Body, "\n") {
			sb.WriteString("\n" + indent + line)
		}
	}
	for _, child := range it.Children {
		sb.WriteString("\n" + child.flatten(level+1))
	}
	return sb.String()
}

// itemPattern recognizes "1.", "2)", "1.2", "1.2.3." and bullet items.
var itemPattern = regexp.MustCompile(`^(?:(\d+(?:\.\d+)+)\.?|(\d+)[.)]|[-*+])\s*\S`)

type frame struct {
	indent int
	number string
	item   *Item
}

// StructurePlan turns an outline into a forest of items. Deeper-indented
// items, and same-indented items whose dotted number extends the previous
// item's number, become children. Lines that are not items continue the
// previous item; blank lines are ignored; tabs count as four spaces.
func StructurePlan(text string) []*Item {
	roots := []*Item{}
	stack := []frame{}
	var last *Item

	for _, raw := range strings.Split(text, "\n") {
		line := strings.ReplaceAll(raw, "\t", "    ")
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}

		m := itemPattern.FindStringSubmatch(trimmed)
		if m == nil {
			if last != nil {
				if last.Body != "" {
					last.Body += "\n"
				}
				last.Body += trimmed
			}
			continue
		}

		indent := len(line) - len(strings.TrimLeft(line, " "))
		number := m[1]
		if number == "" {
			number = m[2]
		}
		item := &Item{Title: trimmed}

		for len(stack) > 0 {
			top := stack[len(stack)-1]
			if top.indent < indent || extends(number, top.number) {
				break
			}
			stack = stack[:len(stack)-1]
		}

		if len(stack) == 0 {
			roots = append(roots, item)
		} else {
			parent := stack[len(stack)-1].item
			parent.Children = append(parent.Children, item)
		}

		stack = append(stack, frame{indent: indent, number: number, item: item})
		last = item
	}

	return roots
}

// extends reports whether number is a sub-number of parent ("1.2" of "1").
func extends(number, parent string) bool {
	return number != "" && parent != "" && strings.HasPrefix(number, parent+".")
}

// CheckHasAsk reports whether content contains AskMarker and returns the
// concatenation of every segment that follows a marker, verbatim. Without a
// marker content is returned unchanged.
func CheckHasAsk(content string) (bool, string) {
	if !strings.Contains(content, AskMarker) {
		return false, content
	}
	parts := strings.Split(content, AskMarker)
	return true, strings.Join(parts[1:], "")
}
