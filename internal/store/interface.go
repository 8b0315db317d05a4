package store

import "context"

// RowStore is the narrow generic CRUD contract the core uses for persistence.
// Schema and connection management live behind the implementation; the core
// only saves and loads canonical records.
type RowStore interface {
	Insert(ctx context.Context, table string, record interface{}) error
	Update(ctx context.Context, table, id string, record interface{}) error
	// Select decodes all rows matching the equality filters into dest, which
	// must be a pointer to a slice.
	Select(ctx context.Context, table string, filters map[string]string, dest interface{}) error
	Delete(ctx context.Context, table, id string) error
}
