// Package memstore is an in-process store.Store. Records live in insertion
// order per model; collections are snapshots taken when Query is called.
package memstore

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/hanpama/relaygraph/internal/store"
)

type table struct {
	rows   []store.Record
	nextID int
}

type Store struct {
	mu     sync.RWMutex
	tables map[string]*table
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{tables: make(map[string]*table)}
}

func (s *Store) table(model *store.Model) *table {
	t, ok := s.tables[model.Name]
	if !ok {
		t = &table{nextID: 1}
		s.tables[model.Name] = t
	}
	return t
}

// rows returns the stored records of model without creating its table.
func (s *Store) rows(model *store.Model) []store.Record {
	if t, ok := s.tables[model.Name]; ok {
		return t.rows
	}
	return nil
}

// Lookup returns a copy of the first record whose field equals value.
func (s *Store) Lookup(ctx context.Context, model *store.Model, field string, value any) (store.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if value == nil {
		return nil, nil
	}
	want, err := normalizeFor(model, field, value)
	if err != nil {
		// A value that cannot be an attribute value matches nothing.
		return nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, row := range s.rows(model) {
		if store.Compare(row[field], want) == 0 {
			return row.Clone(), nil
		}
	}
	return nil, nil
}

// Insert stores a copy of rec, assigning the next integer primary key when
// rec does not carry one.
func (s *Store) Insert(ctx context.Context, model *store.Model, rec store.Record) (store.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.table(model)
	row := rec.Clone()
	pk := model.PK()
	if row[pk] == nil {
		row[pk] = t.nextID
		t.nextID++
	} else if id, ok := row[pk].(int); ok && id >= t.nextID {
		t.nextID = id + 1
	}
	t.rows = append(t.rows, row)
	return row.Clone(), nil
}

// Update replaces the stored record with the same primary key.
func (s *Store) Update(ctx context.Context, model *store.Model, rec store.Record) (store.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	pk := model.PK()
	t := s.table(model)
	for i, row := range t.rows {
		if store.Compare(row[pk], rec[pk]) == 0 {
			t.rows[i] = rec.Clone()
			return rec.Clone(), nil
		}
	}
	return nil, fmt.Errorf("memstore: %s %v: %w", model.Name, rec[pk], errMissing)
}

// Delete removes the stored record and clears the primary key on rec.
func (s *Store) Delete(ctx context.Context, model *store.Model, rec store.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	pk := model.PK()
	t := s.table(model)
	for i, row := range t.rows {
		if store.Compare(row[pk], rec[pk]) == 0 {
			t.rows = slices.Delete(t.rows, i, i+1)
			rec[pk] = nil
			return nil
		}
	}
	return fmt.Errorf("memstore: %s %v: %w", model.Name, rec[pk], errMissing)
}

// Query snapshots the model's records in insertion order.
func (s *Store) Query(model *store.Model) store.Collection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows := s.rows(model)
	snap := make([]store.Record, len(rows))
	for i, r := range rows {
		snap[i] = r.Clone()
	}
	return &Collection{model: model, rows: snap}
}

// Len returns the number of stored records for model.
func (s *Store) Len(model *store.Model) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rows(model))
}

var errMissing = fmt.Errorf("record does not exist")

func normalizeFor(model *store.Model, field string, value any) (any, error) {
	if a, ok := model.Attribute(field); ok {
		return store.Normalize(a.Kind, value)
	}
	return value, nil
}
