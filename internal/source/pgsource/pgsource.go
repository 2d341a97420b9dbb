// Package pgsource reads layer documents from a Postgres table:
//
//	CREATE TABLE layers (
//	    name       text PRIMARY KEY,
//	    document   jsonb NOT NULL,
//	    object_key text NOT NULL DEFAULT '',
//	    add_all    boolean NOT NULL DEFAULT false
//	);
package pgsource

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/mohammed-shakir/wherewolf/internal/source"
)

const DefaultTable = "layers"

type Store struct {
	db    *sql.DB
	table string
}

// Open does not contact the server; the first query does.
func Open(dsn, table string) (*Store, error) {
	if dsn == "" {
		return nil, errors.New("postgres dsn is required")
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(8)
	db.SetMaxIdleConns(2)
	return New(db, table), nil
}

func New(db *sql.DB, table string) *Store {
	if table == "" {
		table = DefaultTable
	}
	return &Store{db: db, table: pq.QuoteIdentifier(table)}
}

func (s *Store) EnsureSchema(ctx context.Context) error {
	q := `CREATE TABLE IF NOT EXISTS ` + s.table + ` (
		name       text PRIMARY KEY,
		document   jsonb NOT NULL,
		object_key text NOT NULL DEFAULT '',
		add_all    boolean NOT NULL DEFAULT false
	)`
	if _, err := s.db.ExecContext(ctx, q); err != nil {
		return fmt.Errorf("ensure %s: %w", s.table, err)
	}
	return nil
}

func (s *Store) Put(ctx context.Context, doc source.Document) error {
	q := `INSERT INTO ` + s.table + ` (name, document, object_key, add_all)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (name) DO UPDATE
		SET document = EXCLUDED.document, object_key = EXCLUDED.object_key, add_all = EXCLUDED.add_all`
	if _, err := s.db.ExecContext(ctx, q, doc.Name, string(doc.Data), doc.Object, doc.All); err != nil {
		return fmt.Errorf("put layer %q: %w", doc.Name, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, name string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM `+s.table+` WHERE name = $1`, name); err != nil {
		return fmt.Errorf("delete layer %q: %w", name, err)
	}
	return nil
}

// Load returns every row ordered by name.
func (s *Store) Load(ctx context.Context) ([]source.Document, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, document::text, object_key, add_all FROM `+s.table+` ORDER BY name`)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "42P01" {
			return nil, fmt.Errorf("layers table %s missing: %w", s.table, err)
		}
		return nil, fmt.Errorf("query layers: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var docs []source.Document
	for rows.Next() {
		var d source.Document
		var data string
		if err := rows.Scan(&d.Name, &data, &d.Object, &d.All); err != nil {
			return nil, fmt.Errorf("scan layer: %w", err)
		}
		d.Data = []byte(data)
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate layers: %w", err)
	}
	return docs, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
