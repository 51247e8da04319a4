package memstore

import (
	"context"
	"slices"

	"github.com/hanpama/relaygraph/internal/store"
)

// Collection is an immutable snapshot of records.
type Collection struct {
	model *store.Model
	rows  []store.Record
}

var _ store.Collection = (*Collection)(nil)

// NewCollection wraps rows as a collection of model.
func NewCollection(model *store.Model, rows []store.Record) *Collection {
	return &Collection{model: model, rows: rows}
}

func (c *Collection) Items(ctx context.Context) ([]any, error) {
	return c.Slice(ctx, 0, len(c.rows))
}

func (c *Collection) Count(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return len(c.rows), nil
}

func (c *Collection) Slice(ctx context.Context, start, end int) ([]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start = max(start, 0)
	end = min(end, len(c.rows))
	if start >= end {
		return []any{}, nil
	}
	out := make([]any, 0, end-start)
	for _, r := range c.rows[start:end] {
		out = append(out, r)
	}
	return out, nil
}

func (c *Collection) OrderBy(ctx context.Context, keys []store.OrderKey) (store.Collection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for _, k := range keys {
		if err := c.model.CheckAttributes(k.Field); err != nil {
			return nil, err
		}
	}
	rows := slices.Clone(c.rows)
	slices.SortStableFunc(rows, func(a, b store.Record) int {
		for _, k := range keys {
			n := store.Compare(a[k.Field], b[k.Field])
			if k.Desc {
				n = -n
			}
			if n != 0 {
				return n
			}
		}
		return 0
	})
	return &Collection{model: c.model, rows: rows}, nil
}

func (c *Collection) Filter(ctx context.Context, where map[string]any) (store.Collection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	want := make(map[string]any, len(where))
	for field, v := range where {
		if err := c.model.CheckAttributes(field); err != nil {
			return nil, err
		}
		n, err := normalizeFor(c.model, field, v)
		if err != nil {
			return &Collection{model: c.model}, nil
		}
		want[field] = n
	}
	var rows []store.Record
	for _, r := range c.rows {
		match := true
		for field, v := range want {
			if store.Compare(r[field], v) != 0 {
				match = false
				break
			}
		}
		if match {
			rows = append(rows, r)
		}
	}
	return &Collection{model: c.model, rows: rows}, nil
}
