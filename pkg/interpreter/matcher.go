package interpreter

import "strings"

// Matcher tests a growing buffer against interpreters in priority order.
// It remembers how much of the buffer each interpreter has already seen so
// terminated interpreters are only re-evaluated when their terminator shows
// up in the new bytes.
type Matcher struct {
	interpreters []Interpreter
	seen         []int
}

// NewMatcher returns a Matcher over interpreters, first has highest priority.
func NewMatcher(interpreters ...Interpreter) *Matcher {
	return &Matcher{
		interpreters: interpreters,
		seen:         make([]int, len(interpreters)),
	}
}

// Reset forgets the progress of a previous turn.
func (m *Matcher) Reset() {
	clear(m.seen)
}

// Match returns the first interpreter whose pattern matches buf. buf must
// only grow between calls until Reset.
func (m *Matcher) Match(buf string) (Interpreter, bool) {
	for i, interp := range m.interpreters {
		seen := m.seen[i]
		m.seen[i] = len(buf)

		if t, ok := interp.(Terminated); ok && t.Terminator() != "" && seen > 0 {
			term := t.Terminator()
			// A terminator completed by the new bytes ends after seen.
			start := max(seen-len(term)+1, 0)
			if start > len(buf) || !strings.Contains(buf[start:], term) {
				continue
			}
		}

		if interp.Pattern().MatchString(buf) {
			return interp, true
		}
	}
	return nil, false
}

// Interpreters returns the interpreters in priority order.
func (m *Matcher) Interpreters() []Interpreter {
	return m.interpreters
}
