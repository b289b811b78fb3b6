package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SQLStore keeps each collection in a table of (id, doc) rows.
type SQLStore struct {
	db      *sql.DB
	q       queryer
	dialect Dialect
}

// NewSQL returns a store backed by db, speaking the given dialect.
func NewSQL(db *sql.DB, dialect Dialect) *SQLStore {
	return &SQLStore{db: db, q: db, dialect: dialect}
}

// Dialect returns the SQL dialect in use.
func (s *SQLStore) Dialect() Dialect {
	return s.dialect
}

// EnsureSchema creates the collection tables and indexes if they don't already exist.
func (s *SQLStore) EnsureSchema(ctx context.Context) error {
	for _, c := range Collections {
		for _, stmt := range s.dialect.schema(c) {
			if _, err := s.q.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("creating collection %s: %w", c, err)
			}
		}
	}
	return nil
}

func (s *SQLStore) newQuery() *query {
	return &query{d: s.dialect}
}

// Insert implements Store.
func (s *SQLStore) Insert(ctx context.Context, c Collection, doc Document) (string, error) {
	if err := checkCollection(c); err != nil {
		return "", err
	}
	if doc.ID == "" {
		doc.ID = NewID()
	}

	q := s.newQuery()
	stmt := s.dialect.insert(string(c), q, doc.ID, doc.Data)
	result, err := s.q.ExecContext(ctx, stmt, q.args...)
	if err != nil {
		return "", unavailable("inserting document", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return "", unavailable("inserting document", err)
	}
	if n == 0 {
		return "", fmt.Errorf("inserting %s/%s: %w", c, doc.ID, ErrDuplicateID)
	}
	return doc.ID, nil
}

// Find implements Store.
func (s *SQLStore) Find(ctx context.Context, c Collection, f Filter, limit int) ([]Document, error) {
	if err := checkCollection(c); err != nil {
		return nil, err
	}
	if err := f.validate(); err != nil {
		return nil, err
	}

	q := s.newQuery()
	stmt := fmt.Sprintf(`SELECT id, doc FROM %s`, c)
	where, err := q.where(f)
	if err != nil {
		return nil, err
	}
	if where != "" {
		stmt += " WHERE " + where
	}
	if limit > 0 {
		stmt += " LIMIT " + q.arg(limit)
	}

	rows, err := s.q.QueryContext(ctx, stmt, q.args...)
	if err != nil {
		return nil, unavailable("finding documents", err)
	}
	defer rows.Close()

	docs := []Document{}
	for rows.Next() {
		var d Document
		var data []byte
		if err := rows.Scan(&d.ID, &data); err != nil {
			return nil, unavailable("scanning document", err)
		}
		d.Data = data
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("finding documents", err)
	}
	return docs, nil
}

// FindOne implements Store.
func (s *SQLStore) FindOne(ctx context.Context, c Collection, id string) (*Document, error) {
	if err := checkCollection(c); err != nil {
		return nil, err
	}

	q := s.newQuery()
	stmt := fmt.Sprintf(`SELECT doc FROM %s WHERE id = %s`, c, q.arg(id))

	var data []byte
	err := s.q.QueryRowContext(ctx, stmt, q.args...).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, unavailable("getting document", err)
	}
	return &Document{ID: id, Data: data}, nil
}

// UpdateOne implements Store.
func (s *SQLStore) UpdateOne(ctx context.Context, c Collection, id string, p Patch, cond Filter) (bool, error) {
	if err := checkCollection(c); err != nil {
		return false, err
	}
	if err := cond.validate(); err != nil {
		return false, err
	}
	set, inc, unset, err := p.normalize()
	if err != nil {
		return false, err
	}

	q := s.newQuery()
	stmt := fmt.Sprintf(`UPDATE %s SET doc = %s WHERE id = %s`, c, s.dialect.patch(q, set, inc, unset), q.arg(id))
	where, err := q.where(cond)
	if err != nil {
		return false, err
	}
	if where != "" {
		stmt += " AND " + where
	}

	result, err := s.q.ExecContext(ctx, stmt, q.args...)
	if err != nil {
		return false, unavailable("updating document", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, unavailable("updating document", err)
	}
	return n > 0, nil
}

// DeleteOne implements Store.
func (s *SQLStore) DeleteOne(ctx context.Context, c Collection, id string) (bool, error) {
	if err := checkCollection(c); err != nil {
		return false, err
	}

	q := s.newQuery()
	stmt := fmt.Sprintf(`DELETE FROM %s WHERE id = %s`, c, q.arg(id))
	result, err := s.q.ExecContext(ctx, stmt, q.args...)
	if err != nil {
		return false, unavailable("deleting document", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, unavailable("deleting document", err)
	}
	return n > 0, nil
}

// Atomically runs fn inside a database transaction. Calls nested inside an
// open transaction join it.
func (s *SQLStore) Atomically(ctx context.Context, fn func(ctx context.Context, tx Store) error) error {
	if _, inTx := s.q.(*sql.Tx); inTx {
		return fn(ctx, s)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return unavailable("beginning transaction", err)
	}
	defer tx.Rollback()

	if err := fn(ctx, &SQLStore{db: s.db, q: tx, dialect: s.dialect}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		if errors.Is(err, sql.ErrTxDone) {
			return err
		}
		return unavailable("committing transaction", err)
	}
	return nil
}

// Ping implements Store.
func (s *SQLStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return unavailable("pinging database", err)
	}
	return nil
}
