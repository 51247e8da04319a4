package sqlstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/hanpama/relaygraph/internal/store"
)

var gadget = &store.Model{
	Name: "Gadget",
	Attributes: []store.Attribute{
		{Name: "id", Kind: store.KindInt},
		{Name: "name", Kind: store.KindString},
		{Name: "price", Kind: store.KindFloat},
		{Name: "active", Kind: store.KindBool},
		{Name: "created", Kind: store.KindTime},
	},
}

func open(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background(), gadget))
	return s
}

func TestInsertLookupRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := open(t)
	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	rec, err := s.Insert(ctx, gadget, store.Record{"name": "lamp", "price": 9.5, "active": true, "created": created})
	require.NoError(t, err)

	want := store.Record{"id": 1, "name": "lamp", "price": 9.5, "active": true, "created": created}
	if diff := cmp.Diff(want, rec); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}

	got, err := s.Lookup(ctx, gadget, "id", "1")
	require.NoError(t, err)
	require.Equal(t, "lamp", got["name"])

	none, err := s.Lookup(ctx, gadget, "id", 7)
	require.NoError(t, err)
	require.Nil(t, none)
}

func TestUpdateAndDelete(t *testing.T) {
	ctx := context.Background()
	s := open(t)
	rec, err := s.Insert(ctx, gadget, store.Record{"name": "lamp"})
	require.NoError(t, err)

	rec["name"] = "desk lamp"
	updated, err := s.Update(ctx, gadget, rec)
	require.NoError(t, err)
	require.Equal(t, "desk lamp", updated["name"])

	require.NoError(t, s.Delete(ctx, gadget, updated))
	require.Nil(t, updated["id"])

	err = s.Delete(ctx, gadget, store.Record{"id": 1})
	require.Error(t, err)
}

func TestCollectionWindowing(t *testing.T) {
	ctx := context.Background()
	s := open(t)
	for _, n := range []string{"d", "b", "a", "c"} {
		_, err := s.Insert(ctx, gadget, store.Record{"name": n, "price": 1.0})
		require.NoError(t, err)
	}
	col, err := s.Query(gadget).OrderBy(ctx, []store.OrderKey{{Field: "name"}})
	require.NoError(t, err)

	n, err := col.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, 4, n)

	items, err := col.Slice(ctx, 1, 3)
	require.NoError(t, err)
	got := make([]string, len(items))
	for i, it := range items {
		got[i] = it.(store.Record)["name"].(string)
	}
	require.Equal(t, []string{"b", "c"}, got)

	_, err = s.Query(gadget).OrderBy(ctx, []store.OrderKey{{Field: "colour"}})
	require.True(t, errors.Is(err, store.ErrUnknownAttribute))
}

func TestCollectionFilter(t *testing.T) {
	ctx := context.Background()
	s := open(t)
	_, err := s.Insert(ctx, gadget, store.Record{"name": "a", "active": true})
	require.NoError(t, err)
	_, err = s.Insert(ctx, gadget, store.Record{"name": "b", "active": false})
	require.NoError(t, err)

	col, err := s.Query(gadget).Filter(ctx, map[string]any{"active": true})
	require.NoError(t, err)
	items, err := col.Items(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, "a", items[0].(store.Record)["name"])
}
