package registry

import (
	"fmt"
	"strings"
)

// Violation is one configuration problem, attributed to a component and field.
type Violation struct {
	Component string
	Field     string
	Message   string
}

func (v Violation) String() string {
	if v.Field == "" {
		return fmt.Sprintf("%s: %s", v.Component, v.Message)
	}
	return fmt.Sprintf("%s: %s: %s", v.Component, v.Field, v.Message)
}

// ValidationError aggregates every violation found in one Build pass.
// It is always returned before any simulation executes.
type ValidationError struct {
	Violations []Violation
}

func (e *ValidationError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "invalid configuration: %d violation(s)", len(e.Violations))
	for _, v := range e.Violations {
		sb.WriteString("\n  - ")
		sb.WriteString(v.String())
	}
	return sb.String()
}
