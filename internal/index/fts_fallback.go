//go:build !sqlite_fts5

package index

import (
	"database/sql"
	"fmt"

	"github.com/starford/licaudit/internal/models"
)

func initFTS(_ *sql.DB) error {
	// FTS5 not available; search uses LIKE on the attributions table.
	return nil
}

func ftsUpsert(_ *sql.Tx, _ models.Kind, _ string, _ models.PackageInfo, _ string) error {
	return nil
}

func ftsDelete(_ execer, _ models.Kind, _ string) error { return nil }

func ftsDeleteKind(_ execer, _ models.Kind) error { return nil }

// Search performs a LIKE-based search (fallback when FTS5 is not compiled in).
// An empty kind searches both collections.
func (db *DB) Search(query string, kind models.Kind, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	like := "%" + query + "%"
	rows, err := db.conn.Query(`
		SELECT kind, id, package_name, license_name, substr(copyright, 1, 200)
		FROM attributions
		WHERE (? = '' OR kind = ?)
		  AND (package_name LIKE ? OR license_name LIKE ? OR copyright LIKE ? OR purl LIKE ?)
		ORDER BY kind, package_name, id
		LIMIT ?
	`, string(kind), string(kind), like, like, like, like, limit)
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
