package repository

import "context"

// ExecRaw runs a statement against the underlying database, bypassing the
// write-side validation of the store.
func (s *SQLStore) ExecRaw(ctx context.Context, query string, args ...any) error {
	_, err := s.db.ExecContext(ctx, query, args...)
	return err
}
