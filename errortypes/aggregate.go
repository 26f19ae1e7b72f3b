package errortypes

import (
	"fmt"
	"strings"
)

// AggregateErrors collects every problem found while validating a configuration or an ad unit
// request, so callers can report them all at once.
type AggregateErrors struct {
	Message string
	Errors  []error
}

// NewAggregateErrors wraps errs under a summary such as "invalid ad unit request".
func NewAggregateErrors(msg string, errs []error) AggregateErrors {
	return AggregateErrors{Message: msg, Errors: errs}
}

// Error lists each problem on its own indented line. It is empty when there are no problems.
func (e AggregateErrors) Error() string {
	if len(e.Errors) == 0 {
		return ""
	}

	var b strings.Builder
	noun := "problems"
	if len(e.Errors) == 1 {
		noun = "problem"
	}
	fmt.Fprintf(&b, "%s: %d %s\n", e.Message, len(e.Errors), noun)
	for _, err := range e.Errors {
		fmt.Fprintf(&b, "  - %v\n", err)
	}
	return b.String()
}
