package executor

import (
	"errors"
	"maps"
	"strconv"
	"strings"

	"github.com/hanpama/relaygraph/internal/fault"
)

// Path locates a value in the response by response keys and list indices.
type Path []PathElement

// PathElement is a string response key or an int list index.
type PathElement any

// String renders p as widgets.edges[0].node.
func (p Path) String() string {
	var b strings.Builder
	for _, elem := range p {
		switch v := elem.(type) {
		case string:
			if b.Len() > 0 {
				b.WriteByte('.')
			}
			b.WriteString(v)
		case int:
			b.WriteByte('[')
			b.WriteString(strconv.Itoa(v))
			b.WriteByte(']')
		}
	}
	return b.String()
}

// GraphQLError is a located execution error.
type GraphQLError struct {
	Message    string         `json:"message"`
	Path       Path           `json:"path,omitempty"`
	Extensions map[string]any `json:"extensions,omitempty"`
}

func (e GraphQLError) Error() string {
	return e.Message
}

type ExecutionResult struct {
	Data   any            `json:"data"`
	Errors []GraphQLError `json:"errors,omitempty"`
}

// Extender is implemented by resolver errors that carry their own
// extensions.
type Extender interface {
	Extensions() map[string]any
}

var errorCodes = []struct {
	err  error
	code string
}{
	{fault.ErrPermissionDenied, "PERMISSION_DENIED"},
	{fault.ErrNotFound, "NOT_FOUND"},
	{fault.ErrValidation, "BAD_USER_INPUT"},
	{fault.ErrNotImplemented, "NOT_IMPLEMENTED"},
	{fault.ErrTypeMismatch, "INTERNAL_SERVER_ERROR"},
}

// NewError converts a resolver error into a GraphQLError at path. Errors
// wrapping a fault sentinel get an extensions code unless they set one.
func NewError(err error, path Path) GraphQLError {
	var gqlErr GraphQLError
	if errors.As(err, &gqlErr) {
		if gqlErr.Path == nil {
			gqlErr.Path = path
		}
		return gqlErr
	}
	out := GraphQLError{Message: err.Error(), Path: path}
	var ext Extender
	if errors.As(err, &ext) {
		out.Extensions = maps.Clone(ext.Extensions())
	}
	for _, c := range errorCodes {
		if !errors.Is(err, c.err) {
			continue
		}
		if out.Extensions == nil {
			out.Extensions = make(map[string]any)
		}
		if _, ok := out.Extensions["code"]; !ok {
			out.Extensions["code"] = c.code
		}
		break
	}
	return out
}
