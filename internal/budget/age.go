package budget

import "github.com/hpungsan/rnupgrade/internal/session"

// Age shortens the content and function-call arguments of every message
// except the newest keepRecent ones to at most maxChars characters. Order
// and roles are never changed. It returns the number of messages shortened.
func Age(messages []session.Message, keepRecent, maxChars int) int {
	if maxChars <= 0 {
		return 0
	}
	end := len(messages) - keepRecent
	shortened := 0
	for i := 0; i < end; i++ {
		m := &messages[i]
		changed := false
		if m.Content != nil {
			if cut := Truncate(*m.Content, maxChars); cut != *m.Content {
				m.Content = session.Str(cut)
				changed = true
			}
		}
		if m.FunctionCall != nil {
			if cut := Truncate(m.FunctionCall.Arguments, maxChars); cut != m.FunctionCall.Arguments {
				fc := *m.FunctionCall
				fc.Arguments = cut
				m.FunctionCall = &fc
				changed = true
			}
		}
		if changed {
			shortened++
		}
	}
	return shortened
}
