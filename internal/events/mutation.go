package events

import "time"

// MutationStart is emitted before a mutation touches the store.
type MutationStart struct {
	Mutation  string
	Operation string
}

// MutationFinish is emitted when a mutation reaches a terminal state.
// Errors holds the field errors of a failed payload; Err is set when the
// mutation aborted with a request-level error such as a permission denial.
type MutationFinish struct {
	Mutation  string
	Operation string
	OK        bool
	Errors    int
	Err       error
	Duration  time.Duration
}
