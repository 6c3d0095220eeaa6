package catalog

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/starford/hours/internal/apperr"
	"github.com/starford/hours/internal/models"
)

// EntityRow is one stored catalog entity.
type EntityRow struct {
	ID   string
	Body json.RawMessage
}

// ReplaceKind swaps every entity of kind for rows and records the data file
// checksum, within a transaction. Row order is preserved.
func (db *DB) ReplaceKind(kind models.Kind, checksum string, rows []EntityRow) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("catalog: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	if _, err := tx.Exec(`DELETE FROM entities WHERE kind = ?`, string(kind)); err != nil {
		return fmt.Errorf("catalog: clear %s: %w", kind, err)
	}

	if len(rows) > 0 {
		stmt, err := tx.Prepare(`INSERT INTO entities (kind, id, ord, body) VALUES (?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("catalog: prepare insert: %w", err)
		}
		defer stmt.Close()
		for i, r := range rows {
			if _, err := stmt.Exec(string(kind), r.ID, i, string(r.Body)); err != nil {
				return fmt.Errorf("catalog: insert %s %q: %w", kind, r.ID, err)
			}
		}
	}

	_, err = tx.Exec(`
		INSERT INTO data_files (kind, checksum, loaded_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(kind) DO UPDATE SET
			checksum  = excluded.checksum,
			loaded_at = excluded.loaded_at
	`, string(kind), checksum)
	if err != nil {
		return fmt.Errorf("catalog: record checksum: %w", err)
	}

	return tx.Commit()
}

// DropKind removes every entity of kind and its checksum.
func (db *DB) DropKind(kind models.Kind) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("catalog: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	_, _ = tx.Exec(`DELETE FROM entities WHERE kind = ?`, string(kind))
	_, _ = tx.Exec(`DELETE FROM data_files WHERE kind = ?`, string(kind))

	return tx.Commit()
}

// Checksums returns the recorded checksum of every loaded kind.
func (db *DB) Checksums() (map[models.Kind]string, error) {
	rows, err := db.conn.Query(`SELECT kind, checksum FROM data_files`)
	if err != nil {
		return nil, fmt.Errorf("catalog: checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[models.Kind]string)
	for rows.Next() {
		var k, cs string
		if err := rows.Scan(&k, &cs); err != nil {
			return nil, err
		}
		out[models.Kind(k)] = cs
	}
	return out, rows.Err()
}

// Bodies returns the stored JSON of every entity of kind in file order.
func (db *DB) Bodies(kind models.Kind) ([]json.RawMessage, error) {
	rows, err := db.conn.Query(`SELECT body FROM entities WHERE kind = ? ORDER BY ord`, string(kind))
	if err != nil {
		return nil, fmt.Errorf("catalog: bodies %s: %w", kind, err)
	}
	defer rows.Close()
	var out []json.RawMessage
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, err
		}
		out = append(out, json.RawMessage(body))
	}
	return out, rows.Err()
}

// Body returns the stored JSON of one entity.
func (db *DB) Body(kind models.Kind, id string) (json.RawMessage, error) {
	var body string
	err := db.conn.QueryRow(`SELECT body FROM entities WHERE kind = ? AND id = ?`, string(kind), id).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("catalog: body %s %q: %w", kind, id, err)
	}
	return json.RawMessage(body), nil
}

// Count returns the number of stored entities of kind.
func (db *DB) Count(kind models.Kind) (int, error) {
	var n int
	if err := db.conn.QueryRow(`SELECT count(*) FROM entities WHERE kind = ?`, string(kind)).Scan(&n); err != nil {
		return 0, fmt.Errorf("catalog: count %s: %w", kind, err)
	}
	return n, nil
}
