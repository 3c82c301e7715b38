package family

import "fmt"

// ErrorInfo describes malformed family input. Line is 1-based and is zero
// when the problem is not tied to a single line.
type ErrorInfo struct {
	Family  string
	Line    int
	Message string
}

func (e ErrorInfo) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("Family: %s, Line: %d, Message: %s", e.Family, e.Line, e.Message)
	}

	return fmt.Sprintf("Family: %s, Message: %s", e.Family, e.Message)
}
