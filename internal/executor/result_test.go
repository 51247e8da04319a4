package executor

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hanpama/relaygraph/internal/fault"
)

type coded struct{ code string }

func (c coded) Error() string              { return "coded" }
func (c coded) Extensions() map[string]any { return map[string]any{"code": c.code, "retry": true} }
func (c coded) Unwrap() error              { return fault.ErrNotFound }

func TestNewError(t *testing.T) {
	at := Path{"widget"}
	tests := []struct {
		name string
		err  error
		want GraphQLError
	}{
		{"plain", errors.New("boom"), GraphQLError{Message: "boom", Path: at}},
		{"wrapped sentinel", fmt.Errorf("lookup: %w", fault.ErrNotFound),
			GraphQLError{Message: "lookup: not found", Path: at, Extensions: map[string]any{"code": "NOT_FOUND"}}},
		{"validation", fault.Validation(fault.List{fault.New("name", "required")}),
			GraphQLError{Message: "validation failed: name: required", Path: at, Extensions: map[string]any{"code": "BAD_USER_INPUT"}}},
		{"own extensions win", coded{code: "GONE"},
			GraphQLError{Message: "coded", Path: at, Extensions: map[string]any{"code": "GONE", "retry": true}}},
		{"graphql error kept", GraphQLError{Message: "as is", Path: Path{"other"}},
			GraphQLError{Message: "as is", Path: Path{"other"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, NewError(tt.err, at))
		})
	}
}

func TestPathString(t *testing.T) {
	require.Equal(t, "widgets.edges[0].node", Path{"widgets", "edges", 0, "node"}.String())
	require.Equal(t, "", Path{}.String())
}
