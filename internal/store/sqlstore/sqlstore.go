// Package sqlstore implements store.Store on SQLite.
//
// Each model maps to one table whose columns are the model's declared
// attributes. Times are stored as RFC 3339 text and booleans as integers;
// values read back are passed through store.Normalize so callers see the
// same shapes the in-memory store produces.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/hanpama/relaygraph/internal/store"
)

// ErrNoAttributes is returned by Migrate for models without declared attributes.
var ErrNoAttributes = errors.New("sqlstore: model declares no attributes")

type Store struct {
	db *sql.DB

	mu       sync.RWMutex
	migrated map[string]bool
}

var _ store.Store = (*Store)(nil)

// Open connects to the SQLite database at path. ":memory:" yields a private
// in-memory database.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// SQLite serializes writers; a single connection also keeps ":memory:"
	// databases shared across calls.
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db, migrated: make(map[string]bool)}, nil
}

func (s *Store) Close() error { return s.db.Close() }

func table(model *store.Model) string {
	if model.Table != "" {
		return model.Table
	}
	return strings.ToLower(model.Name)
}

func quote(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

func columnType(k store.Kind) string {
	switch k {
	case store.KindInt, store.KindBool:
		return "INTEGER"
	case store.KindFloat:
		return "REAL"
	default:
		return "TEXT"
	}
}

// Migrate creates the tables for models when they do not exist yet.
func (s *Store) Migrate(ctx context.Context, models ...*store.Model) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range models {
		if len(m.Attributes) == 0 {
			return fmt.Errorf("%s: %w", m.Name, ErrNoAttributes)
		}
		cols := make([]string, 0, len(m.Attributes))
		for _, a := range m.Attributes {
			col := quote(a.Name) + " " + columnType(a.Kind)
			if a.Name == m.PK() {
				col += " PRIMARY KEY"
				if a.Kind == store.KindInt {
					col += " AUTOINCREMENT"
				}
			}
			cols = append(cols, col)
		}
		stmt := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", quote(table(m)), strings.Join(cols, ", "))
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate %s: %w", m.Name, err)
		}
		s.migrated[m.Name] = true
	}
	return nil
}

func (s *Store) ensure(ctx context.Context, model *store.Model) error {
	s.mu.RLock()
	ok := s.migrated[model.Name]
	s.mu.RUnlock()
	if ok {
		return nil
	}
	return s.Migrate(ctx, model)
}

// encode converts a normalized value into a driver argument.
func encode(kind store.Kind, v any) (any, error) {
	n, err := store.Normalize(kind, v)
	if err != nil || n == nil {
		return nil, err
	}
	switch x := n.(type) {
	case time.Time:
		return x.Format(time.RFC3339Nano), nil
	case bool:
		if x {
			return 1, nil
		}
		return 0, nil
	}
	return n, nil
}

func (s *Store) Lookup(ctx context.Context, model *store.Model, field string, value any) (store.Record, error) {
	if err := s.ensure(ctx, model); err != nil {
		return nil, err
	}
	if err := model.CheckAttributes(field); err != nil {
		return nil, err
	}
	if value == nil {
		return nil, nil
	}
	a, _ := model.Attribute(field)
	arg, err := encode(a.Kind, value)
	if err != nil {
		return nil, nil
	}
	q := query{model: model, where: []clause{{field: field, arg: arg}}}
	rows, err := q.fetch(ctx, s.db, 0, 1)
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return rows[0], nil
}

func (s *Store) values(model *store.Model, rec store.Record) ([]string, []any, error) {
	var cols []string
	var args []any
	for _, a := range model.Attributes {
		v, ok := rec[a.Name]
		if !ok {
			continue
		}
		arg, err := encode(a.Kind, v)
		if err != nil {
			return nil, nil, fmt.Errorf("%s.%s: %w", model.Name, a.Name, err)
		}
		cols = append(cols, quote(a.Name))
		args = append(args, arg)
	}
	return cols, args, nil
}

// Insert writes rec and returns it as stored, including a generated key.
func (s *Store) Insert(ctx context.Context, model *store.Model, rec store.Record) (store.Record, error) {
	if err := s.ensure(ctx, model); err != nil {
		return nil, err
	}
	row := rec.Clone()
	pk := model.PK()
	if row[pk] == nil {
		delete(row, pk)
	}
	cols, args, err := s.values(model, row)
	if err != nil {
		return nil, err
	}
	var stmt string
	if len(cols) == 0 {
		stmt = fmt.Sprintf("INSERT INTO %s DEFAULT VALUES", quote(table(model)))
	} else {
		stmt = fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", quote(table(model)),
			strings.Join(cols, ", "), strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", "))
	}
	res, err := s.db.ExecContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("insert %s: %w", model.Name, err)
	}
	if _, ok := row[pk]; !ok {
		id, err := res.LastInsertId()
		if err != nil {
			return nil, err
		}
		row[pk] = int(id)
	}
	return s.Lookup(ctx, model, pk, row[pk])
}

// Update rewrites the attributes present in rec on the row with rec's key.
func (s *Store) Update(ctx context.Context, model *store.Model, rec store.Record) (store.Record, error) {
	if err := s.ensure(ctx, model); err != nil {
		return nil, err
	}
	pk := model.PK()
	row := rec.Clone()
	id := row[pk]
	delete(row, pk)
	cols, args, err := s.values(model, row)
	if err != nil {
		return nil, err
	}
	if len(cols) > 0 {
		sets := make([]string, len(cols))
		for i, c := range cols {
			sets[i] = c + " = ?"
		}
		a, _ := model.Attribute(pk)
		key, err := encode(a.Kind, id)
		if err != nil {
			return nil, err
		}
		stmt := fmt.Sprintf("UPDATE %s SET %s WHERE %s = ?", quote(table(model)), strings.Join(sets, ", "), quote(pk))
		res, err := s.db.ExecContext(ctx, stmt, append(args, key)...)
		if err != nil {
			return nil, fmt.Errorf("update %s: %w", model.Name, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return nil, fmt.Errorf("update %s %v: %w", model.Name, id, sql.ErrNoRows)
		}
	}
	return s.Lookup(ctx, model, pk, id)
}

// Delete removes the row with rec's key and clears the key on rec.
func (s *Store) Delete(ctx context.Context, model *store.Model, rec store.Record) error {
	if err := s.ensure(ctx, model); err != nil {
		return err
	}
	pk := model.PK()
	a, _ := model.Attribute(pk)
	key, err := encode(a.Kind, rec[pk])
	if err != nil {
		return err
	}
	stmt := fmt.Sprintf("DELETE FROM %s WHERE %s = ?", quote(table(model)), quote(pk))
	res, err := s.db.ExecContext(ctx, stmt, key)
	if err != nil {
		return fmt.Errorf("delete %s: %w", model.Name, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("delete %s %v: %w", model.Name, rec[pk], sql.ErrNoRows)
	}
	rec[pk] = nil
	return nil
}

// Query returns a lazy collection over the model's table in key order.
func (s *Store) Query(model *store.Model) store.Collection {
	return &Collection{s: s, q: query{model: model}}
}
