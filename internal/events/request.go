// Package events defines the payloads published on the event bus while a
// request is served. Subscribers correlate events of one request through the
// request ID in the context they are delivered with.
package events

import (
	"net/http"
	"time"
)

// HTTPStart is published when the server accepts a request.
type HTTPStart struct {
	Request *http.Request
}

// HTTPFinish is published once the response has been written.
type HTTPFinish struct {
	Request  *http.Request
	Status   int
	Duration time.Duration
}

// GraphQLStart is published before an operation is executed. OperationType
// is "query", "mutation" or "subscription".
type GraphQLStart struct {
	Query         string
	OperationName string
	OperationType string
}

// GraphQLFinish is published after execution with the located errors of the
// result.
type GraphQLFinish struct {
	Query         string
	OperationName string
	OperationType string
	Errors        []error
	Duration      time.Duration
}
