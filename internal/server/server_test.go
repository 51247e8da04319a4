package server

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	reqid "github.com/hanpama/relaygraph/internal/reqid"
	"github.com/hanpama/relaygraph/internal/request"
	"github.com/hanpama/relaygraph/internal/runtime"
	schema "github.com/hanpama/relaygraph/internal/schema"
)

func newTestHandler(t *testing.T, hello func(ctx context.Context, args map[string]any) (any, error), opts ...Option) *Handler {
	t.Helper()
	sch, err := schema.BuildFromSDL(`
		type Query { hello(name: String): String }
		type Mutation { upload(file: Upload, note: String): String }
		scalar Upload
	`)
	require.NoError(t, err)
	rt := runtime.New(sch)
	rt.Bind("Query", "hello", func(ctx context.Context, _ any, args map[string]any) (any, error) {
		return hello(ctx, args)
	})
	rt.Bind("Mutation", "upload", func(ctx context.Context, _ any, args map[string]any) (any, error) {
		f := request.FromContext(ctx).Files["file"]
		if f == nil {
			return "none", nil
		}
		return f.Filename + ":" + string(f.Content), nil
	})
	h, err := New(rt, sch, opts...)
	require.NoError(t, err)
	return h
}

func world(context.Context, map[string]any) (any, error) { return "world", nil }

func postJSON(t *testing.T, h http.Handler, body string, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestPostAndGet(t *testing.T) {
	h := newTestHandler(t, func(_ context.Context, args map[string]any) (any, error) {
		return "hello " + args["name"].(string), nil
	})

	w := postJSON(t, h, `{"query":"query($n: String) { hello(name: $n) }","variables":{"n":"gear"}}`)
	require.Equal(t, http.StatusOK, w.Code)
	if diff := cmp.Diff(map[string]any{"data": map[string]any{"hello": "hello gear"}}, decode(t, w)); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}

	req := httptest.NewRequest(http.MethodGet, "/?query="+url.QueryEscape(`{ hello(name: "cog") }`), nil)
	gw := httptest.NewRecorder()
	h.ServeHTTP(gw, req)
	require.Equal(t, http.StatusOK, gw.Code)
	require.Equal(t, map[string]any{"data": map[string]any{"hello": "hello cog"}}, decode(t, gw))
}

func TestBatch(t *testing.T) {
	h := newTestHandler(t, world)
	w := postJSON(t, h, `[{"query":"{ hello }"},{"query":"{ nope }"}]`)
	require.Equal(t, http.StatusOK, w.Code)
	var out []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	require.Len(t, out, 2)
	require.Equal(t, map[string]any{"hello": "world"}, out[0]["data"])
	require.Len(t, out[1]["errors"], 1)
}

func TestSyntaxErrorHasLocation(t *testing.T) {
	h := newTestHandler(t, world)
	w := postJSON(t, h, `{"query":"{ hello "}`)
	require.Equal(t, http.StatusOK, w.Code)
	errs := decode(t, w)["errors"].([]any)
	require.Len(t, errs, 1)
	require.NotEmpty(t, errs[0].(map[string]any)["locations"])
}

func TestForwardedHeaders(t *testing.T) {
	var captured *request.Request
	h := newTestHandler(t, func(ctx context.Context, _ map[string]any) (any, error) {
		captured = request.FromContext(ctx)
		return "world", nil
	}, WithMetadataHeaders("X-Test"))

	w := postJSON(t, h, `{"query":"{ hello }"}`, "X-Test", "abc", "X-Other", "nope")
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, captured)
	require.Equal(t, []string{"abc"}, captured.Header.Get("x-test"))
	require.Empty(t, captured.Header.Get("x-other"))
	require.Equal(t, http.MethodPost, captured.Method)
	require.Equal(t, "application/json", captured.ContentType)
	require.False(t, captured.Authenticated())
}

func TestForwardedHeadersDefaultEmpty(t *testing.T) {
	var captured *request.Request
	h := newTestHandler(t, func(ctx context.Context, _ map[string]any) (any, error) {
		captured = request.FromContext(ctx)
		return "world", nil
	})
	w := postJSON(t, h, `{"query":"{ hello }"}`, "X-Test", "abc")
	require.Equal(t, http.StatusOK, w.Code)
	require.Empty(t, captured.Header.Get("x-test"))
}

func TestCORSAndPreflight(t *testing.T) {
	h := newTestHandler(t, world, WithCORS("*"))

	w := postJSON(t, h, `{"query":"{ hello }"}`, "Origin", "http://example.com")
	require.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))

	pre := httptest.NewRequest(http.MethodOptions, "/", nil)
	pre.Header.Set("Origin", "http://example.com")
	pre.Header.Set("Access-Control-Request-Headers", "X-Test")
	pw := httptest.NewRecorder()
	h.ServeHTTP(pw, pre)
	require.Equal(t, http.StatusNoContent, pw.Code)
	require.Equal(t, "*", pw.Header().Get("Access-Control-Allow-Origin"))
	require.Equal(t, "X-Test", pw.Header().Get("Access-Control-Allow-Headers"))

	only := newTestHandler(t, world, WithCORS("http://allowed.example"))
	w = postJSON(t, only, `{"query":"{ hello }"}`, "Origin", "http://other.example")
	require.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestMaxBodyBytes(t *testing.T) {
	h := newTestHandler(t, world, WithMaxBodyBytes(10))
	w := postJSON(t, h, `{"query":"1234567890"}`)
	require.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestUnsupportedRequests(t *testing.T) {
	h := newTestHandler(t, world)

	req := httptest.NewRequest(http.MethodPut, "/", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	require.Equal(t, http.StatusMethodNotAllowed, w.Code)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader("query"))
	req.Header.Set("Content-Type", "text/plain")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "unsupported Content-Type", decode(t, w)["errors"].([]any)[0].(map[string]any)["message"])
}

func TestGraphiQL(t *testing.T) {
	h := newTestHandler(t, world)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Accept", "text/html")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "graphiql")
}

func TestRequestID(t *testing.T) {
	var captured string
	h := newTestHandler(t, func(ctx context.Context, _ map[string]any) (any, error) {
		captured, _ = reqid.FromContext(ctx)
		return "world", nil
	})

	w := postJSON(t, h, `{"query":"{ hello }"}`)
	require.NotEmpty(t, captured)
	require.Equal(t, captured, w.Header().Get(reqid.Header))

	given := "6f1a8cf4-5f9c-4a54-9a0b-2f7f3b0fbd1e"
	w = postJSON(t, h, `{"query":"{ hello }"}`, reqid.Header, given)
	require.Equal(t, given, captured)
	require.Equal(t, given, w.Header().Get(reqid.Header))
}

func TestBearerAuthentication(t *testing.T) {
	auth := NewAuthenticator([]byte("s3cret"))
	var user *request.User
	h := newTestHandler(t, func(ctx context.Context, _ map[string]any) (any, error) {
		user = request.FromContext(ctx).User
		return "world", nil
	}, WithAuthenticator(auth))

	token, err := auth.Sign(&request.User{ID: "7", Username: "ada", Staff: true, Permissions: []string{"widgets.add"}}, time.Hour)
	require.NoError(t, err)

	w := postJSON(t, h, `{"query":"{ hello }"}`, "Authorization", "Bearer "+token)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, &request.User{ID: "7", Username: "ada", Staff: true, Permissions: []string{"widgets.add"}}, user)

	user = nil
	w = postJSON(t, h, `{"query":"{ hello }"}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.Nil(t, user)

	forged, err := NewAuthenticator([]byte("other")).Sign(&request.User{ID: "1", Superuser: true}, time.Hour)
	require.NoError(t, err)
	w = postJSON(t, h, `{"query":"{ hello }"}`, "Authorization", "Bearer "+forged)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Equal(t, "Bearer", w.Header().Get("WWW-Authenticate"))

	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "7",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
	}}).SignedString([]byte("s3cret"))
	require.NoError(t, err)
	w = postJSON(t, h, `{"query":"{ hello }"}`, "Authorization", "Bearer "+expired)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = postJSON(t, h, `{"query":"{ hello }"}`, "Authorization", "Basic abc")
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func multipartRequest(t *testing.T, operations, fileMap string, files map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("operations", operations))
	require.NoError(t, mw.WriteField("map", fileMap))
	for key, content := range files {
		fw, err := mw.CreateFormFile(key, key+".txt")
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, "/", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestMultipartUpload(t *testing.T) {
	h := newTestHandler(t, world)

	req := multipartRequest(t,
		`{"query":"mutation($file: Upload) { upload(file: $file) }","variables":{"file":null}}`,
		`{"0":["variables.file"]}`,
		map[string]string{"0": "spec sheet"},
	)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, map[string]any{"data": map[string]any{"upload": "0.txt:spec sheet"}}, decode(t, w))

	req = multipartRequest(t,
		`[{"query":"mutation { upload }"},{"query":"mutation($f: Upload) { upload(file: $f) }","variables":{"f":null}}]`,
		`{"a":["1.variables.file"]}`,
		map[string]string{"a": "batch"},
	)
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	var out []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	require.Equal(t, map[string]any{"upload": "none"}, out[0]["data"])
	require.Equal(t, map[string]any{"upload": "a.txt:batch"}, out[1]["data"])

	req = multipartRequest(t, `{"query":"mutation { upload }"}`, `{"0":["variables.file"]}`, nil)
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUploadTarget(t *testing.T) {
	tests := []struct {
		path    string
		batched bool
		idx     int
		name    string
		ok      bool
	}{
		{"variables.file", false, 0, "file", true},
		{"variables.input.manual", false, 0, "manual", true},
		{"2.variables.files.0", true, 2, "0", true},
		{"query", false, 0, "", false},
		{"x.variables.file", true, 0, "", false},
	}
	for _, tt := range tests {
		idx, name, ok := uploadTarget(tt.path, tt.batched)
		require.Equal(t, tt.ok, ok, tt.path)
		if ok {
			require.Equal(t, tt.idx, idx, tt.path)
			require.Equal(t, tt.name, name, tt.path)
		}
	}
}
