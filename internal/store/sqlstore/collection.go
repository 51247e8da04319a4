package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/hanpama/relaygraph/internal/store"
)

type clause struct {
	field string
	arg   any
}

type query struct {
	model *store.Model
	where []clause
	order []store.OrderKey
}

func (q query) build(sel string) (string, []any) {
	var b strings.Builder
	fmt.Fprintf(&b, "SELECT %s FROM %s", sel, quote(table(q.model)))
	args := make([]any, 0, len(q.where))
	for i, c := range q.where {
		if i == 0 {
			b.WriteString(" WHERE ")
		} else {
			b.WriteString(" AND ")
		}
		b.WriteString(quote(c.field) + " = ?")
		args = append(args, c.arg)
	}
	return b.String(), args
}

func (q query) orderBy() string {
	keys := make([]string, 0, len(q.order)+1)
	for _, k := range q.order {
		dir := "ASC"
		if k.Desc {
			dir = "DESC"
		}
		keys = append(keys, quote(k.Field)+" "+dir)
	}
	// Earlier orderings and finally the key break ties, so re-sorting is stable.
	keys = append(keys, quote(q.model.PK())+" ASC")
	return " ORDER BY " + strings.Join(keys, ", ")
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// fetch reads rows [offset, offset+limit); a negative limit reads to the end.
func (q query) fetch(ctx context.Context, db querier, offset, limit int) ([]store.Record, error) {
	cols := make([]string, len(q.model.Attributes))
	for i, a := range q.model.Attributes {
		cols[i] = quote(a.Name)
	}
	stmt, args := q.build(strings.Join(cols, ", "))
	stmt += q.orderBy() + " LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	rows, err := db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", q.model.Name, err)
	}
	defer rows.Close()

	var out []store.Record
	for rows.Next() {
		dest := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range dest {
			ptrs[i] = &dest[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		rec := make(store.Record, len(cols))
		for i, a := range q.model.Attributes {
			v, err := store.Normalize(a.Kind, dest[i])
			if err != nil {
				return nil, fmt.Errorf("scan %s.%s: %w", q.model.Name, a.Name, err)
			}
			rec[a.Name] = v
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Collection is a lazily evaluated query. Count and Slice each issue a
// single statement, so windows are fetched with LIMIT and OFFSET.
type Collection struct {
	s *Store
	q query
}

var _ store.Collection = (*Collection)(nil)

func (c *Collection) Items(ctx context.Context) ([]any, error) {
	return c.window(ctx, 0, -1)
}

func (c *Collection) Count(ctx context.Context) (int, error) {
	if err := c.s.ensure(ctx, c.q.model); err != nil {
		return 0, err
	}
	stmt, args := c.q.build("COUNT(*)")
	var n int
	if err := c.s.db.QueryRowContext(ctx, stmt, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", c.q.model.Name, err)
	}
	return n, nil
}

func (c *Collection) Slice(ctx context.Context, start, end int) ([]any, error) {
	start = max(start, 0)
	if end <= start {
		return []any{}, nil
	}
	return c.window(ctx, start, end-start)
}

func (c *Collection) window(ctx context.Context, offset, limit int) ([]any, error) {
	if err := c.s.ensure(ctx, c.q.model); err != nil {
		return nil, err
	}
	recs, err := c.q.fetch(ctx, c.s.db, offset, limit)
	if err != nil {
		return nil, err
	}
	out := make([]any, len(recs))
	for i, r := range recs {
		out[i] = r
	}
	return out, nil
}

func (c *Collection) OrderBy(_ context.Context, keys []store.OrderKey) (store.Collection, error) {
	for _, k := range keys {
		if err := c.q.model.CheckAttributes(k.Field); err != nil {
			return nil, err
		}
	}
	next := c.q
	next.order = append(append([]store.OrderKey{}, keys...), c.q.order...)
	return &Collection{s: c.s, q: next}, nil
}

func (c *Collection) Filter(_ context.Context, where map[string]any) (store.Collection, error) {
	next := c.q
	next.where = append([]clause{}, c.q.where...)
	for field, v := range where {
		a, ok := c.q.model.Attribute(field)
		if !ok {
			return nil, fmt.Errorf("%s.%s: %w", c.q.model.Name, field, store.ErrUnknownAttribute)
		}
		arg, err := encode(a.Kind, v)
		if err != nil {
			return nil, fmt.Errorf("filter %s.%s: %w", c.q.model.Name, field, err)
		}
		next.where = append(next.where, clause{field: field, arg: arg})
	}
	return &Collection{s: c.s, q: next}, nil
}
