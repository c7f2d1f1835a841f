package collections

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/tursodatabase/go-libsql"
)

// SQLStore is a Store persisted in a libsql database.
type SQLStore struct {
	db *sql.DB
}

// OpenSQLStore opens or creates the collection database. A plain file path
// is turned into a "file:" DSN and its directory is created.
func OpenSQLStore(dsn string) (*SQLStore, error) {
	if !strings.Contains(dsn, ":") {
		if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
			return nil, fmt.Errorf("could not create collections directory: %w", err)
		}
		dsn = "file:" + dsn
	}
	db, err := sql.Open("libsql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open collections database: %w", err)
	}
	store := &SQLStore{db: db}
	if err := store.init(); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// init sets up the collection tables.
func (s *SQLStore) init() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS collections (
		name_key TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		parent_key TEXT
	)`)
	if err != nil {
		return fmt.Errorf("failed to create collections table: %w", err)
	}

	_, err = s.db.Exec(`CREATE TABLE IF NOT EXISTS collection_items (
		collection_key TEXT NOT NULL,
		identity TEXT NOT NULL,
		PRIMARY KEY (collection_key, identity)
	)`)
	if err != nil {
		return fmt.Errorf("failed to create collection_items table: %w", err)
	}
	return nil
}

func (s *SQLStore) exists(ctx context.Context, q interface {
	QueryRowContext(context.Context, string, ...any) *sql.Row
}, key string) (bool, error) {
	var n int
	if err := q.QueryRowContext(ctx, "SELECT COUNT(*) FROM collections WHERE name_key = ?", key).Scan(&n); err != nil {
		return false, fmt.Errorf("failed to look up collection: %w", err)
	}
	return n > 0, nil
}

func (s *SQLStore) Create(ctx context.Context, name, parent string) error {
	key := collectionKey(name)
	if key == "" {
		return fmt.Errorf("%w: empty name", ErrUnknownCollection)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if ok, err := s.exists(ctx, tx, key); err != nil {
		return err
	} else if ok {
		return fmt.Errorf("%w: %s", ErrCollectionExists, name)
	}

	var parentKey sql.NullString
	if parent != "" {
		pk := collectionKey(parent)
		ok, err := s.exists(ctx, tx, pk)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: parent %s", ErrUnknownCollection, parent)
		}
		parentKey = sql.NullString{String: pk, Valid: true}
	}

	if _, err := tx.ExecContext(ctx, "INSERT INTO collections (name_key, name, parent_key) VALUES (?, ?, ?)", key, name, parentKey); err != nil {
		return fmt.Errorf("failed to insert collection: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Delete removes a collection and its items. Its children become top level.
func (s *SQLStore) Delete(ctx context.Context, name string) error {
	key := collectionKey(name)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, "DELETE FROM collections WHERE name_key = ?", key)
	if err != nil {
		return fmt.Errorf("failed to delete collection: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrUnknownCollection, name)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM collection_items WHERE collection_key = ?", key); err != nil {
		return fmt.Errorf("failed to delete collection items: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "UPDATE collections SET parent_key = NULL WHERE parent_key = ?", key); err != nil {
		return fmt.Errorf("failed to detach child collections: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *SQLStore) Add(ctx context.Context, name string, identities ...string) error {
	return s.editItems(ctx, name, "INSERT OR IGNORE INTO collection_items (collection_key, identity) VALUES (?, ?)", identities)
}

func (s *SQLStore) Remove(ctx context.Context, name string, identities ...string) error {
	return s.editItems(ctx, name, "DELETE FROM collection_items WHERE collection_key = ? AND identity = ?", identities)
}

func (s *SQLStore) editItems(ctx context.Context, name, stmt string, identities []string) error {
	key := collectionKey(name)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if ok, err := s.exists(ctx, tx, key); err != nil {
		return err
	} else if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCollection, name)
	}
	for _, id := range identities {
		if _, err := tx.ExecContext(ctx, stmt, key, IdentityKey(id)); err != nil {
			return fmt.Errorf("failed to update collection %s: %w", name, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *SQLStore) List(ctx context.Context) ([]Collection, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.name, COALESCE(p.name, ''), COUNT(i.identity)
		FROM collections c
		LEFT JOIN collections p ON p.name_key = c.parent_key
		LEFT JOIN collection_items i ON i.collection_key = c.name_key
		GROUP BY c.name_key, c.name, p.name
		ORDER BY c.name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list collections: %w", err)
	}
	defer rows.Close()

	var out []Collection
	for rows.Next() {
		var c Collection
		if err := rows.Scan(&c.Name, &c.Parent, &c.Size); err != nil {
			return nil, fmt.Errorf("failed to scan collection: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Members returns the union of the named collections, following child
// collections with a recursive query when includeChildren is set.
func (s *SQLStore) Members(ctx context.Context, names []string, includeChildren bool) ([]string, error) {
	if len(names) == 0 {
		return nil, nil
	}
	placeholders := make([]string, len(names))
	args := make([]any, len(names))
	for i, name := range names {
		placeholders[i] = "?"
		args[i] = collectionKey(name)
	}
	in := strings.Join(placeholders, ", ")

	var query string
	if includeChildren {
		query = fmt.Sprintf(`
			WITH RECURSIVE selected(name_key) AS (
				SELECT name_key FROM collections WHERE name_key IN (%s)
				UNION
				SELECT c.name_key FROM collections c JOIN selected s ON c.parent_key = s.name_key
			)
			SELECT DISTINCT identity FROM collection_items
			WHERE collection_key IN (SELECT name_key FROM selected)
			ORDER BY identity`, in)
	} else {
		query = fmt.Sprintf(`
			SELECT DISTINCT identity FROM collection_items
			WHERE collection_key IN (%s)
			ORDER BY identity`, in)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query collection members: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan collection member: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (s *SQLStore) Close() error { return s.db.Close() }
