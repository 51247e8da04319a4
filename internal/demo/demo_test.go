package demo

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/hanpama/relaygraph/internal/request"
	"github.com/hanpama/relaygraph/internal/server"
	"github.com/hanpama/relaygraph/internal/store/sqlstore"
)

type client struct {
	t     *testing.T
	url   string
	token string
}

type response struct {
	Data   map[string]any `json:"data"`
	Errors []struct {
		Message string `json:"message"`
		Path    []any  `json:"path"`
	} `json:"errors"`
}

func (c *client) do(query string, vars map[string]any) response {
	c.t.Helper()
	body, err := json.Marshal(map[string]any{"query": query, "variables": vars})
	require.NoError(c.t, err)
	req, err := http.NewRequest(http.MethodPost, c.url, bytes.NewReader(body))
	require.NoError(c.t, err)
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(c.t, err)
	defer resp.Body.Close()
	require.Equal(c.t, http.StatusOK, resp.StatusCode)
	var out response
	require.NoError(c.t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func (c *client) as(u *request.User, auth *server.Authenticator) *client {
	c.t.Helper()
	tok, err := auth.Sign(u, time.Minute)
	require.NoError(c.t, err)
	return &client{t: c.t, url: c.url, token: tok}
}

func setup(t *testing.T) (anon, clerk, staff *client) {
	t.Helper()
	st, err := sqlstore.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	require.NoError(t, st.Migrate(context.Background(), Widget))

	app, err := New(st, Options{DefaultPageSize: 2, Introspection: true})
	require.NoError(t, err)
	auth := server.NewAuthenticator([]byte("test-secret"))
	h, err := server.New(app.Runtime, app.Schema, server.WithAuthenticator(auth))
	require.NoError(t, err)
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	anon = &client{t: t, url: srv.URL}
	clerk = anon.as(&request.User{ID: "7", Username: "clerk"}, auth)
	staff = anon.as(&request.User{ID: "1", Username: "boss", Staff: true}, auth)
	return anon, clerk, staff
}

func TestCatalogue(t *testing.T) {
	anon, clerk, _ := setup(t)

	res := anon.do(`mutation { createWidget(name: "axle", price: 100) { ok } }`, nil)
	require.Len(t, res.Errors, 1, "anonymous users cannot create")
	require.Nil(t, res.Data["createWidget"])

	for _, w := range []map[string]any{
		{"name": "cog", "price": 250, "finish": "HIGH_GLOSS"},
		{"name": "axle", "price": 100},
		{"name": "bolt", "price": 5, "finish": "SATIN"},
	} {
		res := clerk.do(`mutation($name: String!, $price: Int!, $finish: WidgetFinish) {
			createWidget(name: $name, price: $price, finish: $finish) { ok errors { field messages } }
		}`, w)
		require.Empty(t, res.Errors)
		require.Equal(t, true, res.Data["createWidget"].(map[string]any)["ok"])
	}

	res = anon.do(`{ widgets { totalCount edges { node { name finish } } pageInfo { hasNextPage endCursor } } }`, nil)
	require.Empty(t, res.Errors)
	page := res.Data["widgets"].(map[string]any)
	want := []any{
		map[string]any{"node": map[string]any{"name": "axle", "finish": "MATTE"}},
		map[string]any{"node": map[string]any{"name": "bolt", "finish": "SATIN"}},
	}
	if diff := cmp.Diff(want, page["edges"]); diff != "" {
		t.Fatalf("first page ordered by name (-want +got):\n%s", diff)
	}
	require.Equal(t, float64(3), page["totalCount"])
	info := page["pageInfo"].(map[string]any)
	require.Equal(t, true, info["hasNextPage"])

	res = anon.do(`query($after: String) { widgets(after: $after, ordering: "-price") { edges { node { name } } } }`,
		map[string]any{"after": info["endCursor"]})
	require.Empty(t, res.Errors)
	require.Equal(t, []any{map[string]any{"node": map[string]any{"name": "bolt"}}},
		res.Data["widgets"].(map[string]any)["edges"])
}

func TestRestockAndInventory(t *testing.T) {
	_, clerk, staff := setup(t)
	res := clerk.do(`mutation { createWidget(name: "gear", price: 30, stock: 2) { widget { id stock restockedAt } } }`, nil)
	require.Empty(t, res.Errors)
	created := res.Data["createWidget"].(map[string]any)["widget"].(map[string]any)
	require.Equal(t, float64(2), created["stock"])
	require.Nil(t, created["restockedAt"])
	id := created["id"]

	res = clerk.do(`mutation($id: ID!) { restockWidget(id: $id, quantity: 0) { ok errors { field messages } } }`, map[string]any{"id": id})
	require.Empty(t, res.Errors)
	payload := res.Data["restockWidget"].(map[string]any)
	require.Equal(t, false, payload["ok"])
	require.Equal(t, "quantity", payload["errors"].([]any)[0].(map[string]any)["field"])

	res = clerk.do(`mutation($id: ID!) { restockWidget(id: $id, quantity: 5) { ok widget { stock restockedAt } } }`, map[string]any{"id": id})
	require.Empty(t, res.Errors)
	w := res.Data["restockWidget"].(map[string]any)["widget"].(map[string]any)
	require.Equal(t, float64(7), w["stock"])
	_, err := time.Parse(time.RFC3339, w["restockedAt"].(string))
	require.NoError(t, err)

	res = clerk.do(`{ inventory { units } }`, nil)
	require.Len(t, res.Errors, 1, "inventory is staff only")

	res = staff.do(`{ inventory { widgets units value } }`, nil)
	require.Empty(t, res.Errors)
	if diff := cmp.Diff(map[string]any{"widgets": float64(1), "units": float64(7), "value": float64(210)}, res.Data["inventory"]); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}

	res = clerk.do(`mutation { restockWidget(id: "99", quantity: 1) { ok errors { field messages } } }`, nil)
	require.Empty(t, res.Errors)
	require.Equal(t, []any{map[string]any{"field": "id", "messages": []any{"Widget with id 99 does not exist"}}},
		res.Data["restockWidget"].(map[string]any)["errors"])
}

func TestDeleteAndRetrieve(t *testing.T) {
	anon, clerk, _ := setup(t)
	res := clerk.do(`mutation { createWidget(name: "pin", price: 1) { widget { id } } }`, nil)
	require.Empty(t, res.Errors)
	id := res.Data["createWidget"].(map[string]any)["widget"].(map[string]any)["id"]

	res = anon.do(`query($id: ID!) { widget(id: $id) { name } }`, map[string]any{"id": id})
	require.Equal(t, map[string]any{"name": "pin"}, res.Data["widget"])

	res = clerk.do(`mutation($id: ID!) { deleteWidget(id: $id) { ok widget { id name } } }`, map[string]any{"id": id})
	require.Empty(t, res.Errors)
	require.Equal(t, map[string]any{"ok": true, "widget": map[string]any{"id": id, "name": "pin"}}, res.Data["deleteWidget"])

	res = anon.do(`query($id: ID!) { widget(id: $id) { name } }`, map[string]any{"id": id})
	require.Empty(t, res.Errors)
	require.Nil(t, res.Data["widget"])
}

func TestIntrospection(t *testing.T) {
	anon, _, _ := setup(t)
	res := anon.do(`{ __type(name: "WidgetFinish") { kind enumValues { name } } }`, nil)
	require.Empty(t, res.Errors)
	want := map[string]any{"kind": "ENUM", "enumValues": []any{
		map[string]any{"name": "MATTE"},
		map[string]any{"name": "SATIN"},
		map[string]any{"name": "HIGH_GLOSS"},
	}}
	require.Equal(t, want, res.Data["__type"])
}
