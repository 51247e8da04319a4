package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	executor "github.com/hanpama/relaygraph/internal/executor"
	language "github.com/hanpama/relaygraph/internal/language"
)

type specLocation struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

type specError struct {
	Message    string         `json:"message"`
	Locations  []specLocation `json:"locations,omitempty"`
	Path       []any          `json:"path,omitempty"`
	Extensions map[string]any `json:"extensions,omitempty"`
}

type specResult struct {
	Data   any         `json:"data"`
	Errors []specError `json:"errors,omitempty"`
}

// errorResult answers a request that produced no data.
func errorResult(err *language.Error) specResult {
	se := specError{Message: err.Message, Extensions: err.Extensions}
	for _, l := range err.Locations {
		se.Locations = append(se.Locations, specLocation{Line: l.Line, Column: l.Column})
	}
	return specResult{Errors: []specError{se}}
}

// resultOf renders an execution result, keeping partial data next to the
// errors.
func resultOf(res *executor.ExecutionResult) specResult {
	out := specResult{Data: res.Data}
	for _, e := range res.Errors {
		se := specError{Message: e.Message, Extensions: e.Extensions}
		for _, elem := range e.Path {
			switch elem.(type) {
			case string, int:
				se.Path = append(se.Path, elem)
			default:
				se.Path = append(se.Path, fmt.Sprint(elem))
			}
		}
		out.Errors = append(out.Errors, se)
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any, pretty bool) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	if pretty {
		enc.SetIndent("", "  ")
	}
	_ = enc.Encode(v)
}
