package server

import (
	"bytes"
	"encoding/json"
	"io"
	"mime"
	"net/http"
)

type GraphQLRequest struct {
	Query         string         `json:"query"`
	OperationName string         `json:"operationName,omitempty"`
	Variables     map[string]any `json:"variables,omitempty"`
	Extensions    map[string]any `json:"extensions,omitempty"`
}

// envelope is the decoded body: one operation, or a batch answered with an
// array. files holds uploads by operation index.
type envelope struct {
	ops     []GraphQLRequest
	batched bool
	files   uploads
}

// requestError rejects a request before any operation runs.
type requestError struct {
	status  int
	message string
}

func badRequest(message string) *requestError {
	return &requestError{status: http.StatusBadRequest, message: message}
}

const errBodyTooLargeMessage = "body too large"

var errBodyTooLarge = &requestError{status: http.StatusRequestEntityTooLarge, message: errBodyTooLargeMessage}

func parseRequest(r *http.Request, maxBody int64) (*envelope, *requestError) {
	if r.Method == http.MethodGet {
		return parseQueryString(r)
	}

	mediaType := ""
	if ct := r.Header.Get("Content-Type"); ct != "" {
		mt, _, err := mime.ParseMediaType(ct)
		if err != nil {
			return nil, badRequest("unsupported Content-Type")
		}
		mediaType = mt
	}
	switch mediaType {
	case "", "application/json":
	case "multipart/form-data":
		return parseMultipart(r, maxBody)
	default:
		return nil, badRequest("unsupported Content-Type")
	}

	defer r.Body.Close()
	body := io.Reader(r.Body)
	if maxBody > 0 {
		body = io.LimitReader(r.Body, maxBody+1)
	}
	raw, err := io.ReadAll(body)
	if err != nil {
		return nil, badRequest("failed to read body")
	}
	if maxBody > 0 && int64(len(raw)) > maxBody {
		return nil, errBodyTooLarge
	}
	return decodeOperations(raw, "invalid JSON")
}

func parseQueryString(r *http.Request) (*envelope, *requestError) {
	q := r.URL.Query()
	req := GraphQLRequest{
		Query:         q.Get("query"),
		OperationName: q.Get("operationName"),
		Variables:     map[string]any{},
	}
	if req.Query == "" {
		return nil, badRequest("missing 'query'")
	}
	if v := q.Get("variables"); v != "" {
		if err := json.Unmarshal([]byte(v), &req.Variables); err != nil {
			return nil, badRequest("invalid 'variables' JSON")
		}
	}
	return &envelope{ops: []GraphQLRequest{req}}, nil
}

// decodeOperations decodes a request object or a non-empty batch array.
// Batch members are executed as they are; a single request needs a query.
func decodeOperations(raw []byte, invalid string) (*envelope, *requestError) {
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '[' {
		var batch []GraphQLRequest
		if err := json.Unmarshal(raw, &batch); err != nil {
			return nil, badRequest(invalid)
		}
		if len(batch) == 0 {
			return nil, badRequest("empty batch")
		}
		return &envelope{ops: batch, batched: true}, nil
	}
	var req GraphQLRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return nil, badRequest(invalid)
	}
	if req.Query == "" {
		return nil, badRequest("missing 'query'")
	}
	if req.Variables == nil {
		req.Variables = map[string]any{}
	}
	return &envelope{ops: []GraphQLRequest{req}}, nil
}
