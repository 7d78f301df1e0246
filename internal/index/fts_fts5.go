//go:build sqlite_fts5

package index

import (
	"database/sql"
	"fmt"

	"github.com/starford/licaudit/internal/models"
)

func initFTS(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS attributions_fts USING fts5(
			kind UNINDEXED,
			id UNINDEXED,
			package_name,
			license_name,
			copyright,
			purl,
			tokenize = 'unicode61 remove_diacritics 2'
		);
	`)
	return err
}

func ftsUpsert(tx *sql.Tx, kind models.Kind, id string, info models.PackageInfo, purl string) error {
	if err := ftsDelete(tx, kind, id); err != nil {
		return err
	}
	_, err := tx.Exec(`
		INSERT INTO attributions_fts (kind, id, package_name, license_name, copyright, purl)
		VALUES (?, ?, ?, ?, ?, ?)
	`, string(kind), id, info.PackageName, info.LicenseName, info.Copyright, purl)
	if err != nil {
		return fmt.Errorf("index: upsert fts: %w", err)
	}
	return nil
}

func ftsDelete(tx execer, kind models.Kind, id string) error {
	if _, err := tx.Exec(`DELETE FROM attributions_fts WHERE kind = ? AND id = ?`, string(kind), id); err != nil {
		return fmt.Errorf("index: delete fts: %w", err)
	}
	return nil
}

func ftsDeleteKind(tx execer, kind models.Kind) error {
	if _, err := tx.Exec(`DELETE FROM attributions_fts WHERE kind = ?`, string(kind)); err != nil {
		return fmt.Errorf("index: clear fts: %w", err)
	}
	return nil
}

// Search performs an FTS5 full-text search and returns matching results with
// snippets. An empty kind searches both collections.
func (db *DB) Search(query string, kind models.Kind, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.conn.Query(`
		SELECT kind,
		       id,
		       package_name,
		       license_name,
		       snippet(attributions_fts, 4, '<b>', '</b>', '...', 32)
		FROM attributions_fts
		WHERE attributions_fts MATCH ?
		  AND (? = '' OR kind = ?)
		ORDER BY rank
		LIMIT ?
	`, query, string(kind), string(kind), limit)
	if err != nil {
		return nil, fmt.Errorf("index: search: %w", err)
	}
	defer rows.Close()

	var out []SearchResult
	for rows.Next() {
		var r SearchResult
		var k string
		if err := rows.Scan(&k, &r.ID, &r.PackageName, &r.LicenseName, &r.Snippet); err != nil {
			return nil, err
		}
		r.Kind = models.Kind(k)
		out = append(out, r)
	}
	return out, rows.Err()
}
