package index

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/starford/licaudit/internal/apperr"
	"github.com/starford/licaudit/internal/models"
	"github.com/starford/licaudit/internal/signals"
)

const metaProjectID = "project_id"

// AttributionRow is one stored attribution with its resource paths.
type AttributionRow struct {
	Kind  models.Kind
	ID    string
	Info  models.PackageInfo
	Paths []string
}

// SearchResult represents one search hit.
type SearchResult struct {
	Kind        models.Kind `json:"kind"`
	ID          string      `json:"id"`
	PackageName string      `json:"packageName"`
	LicenseName string      `json:"licenseName"`
	Snippet     string      `json:"snippet"`
}

// ReviewState is the persisted manual collection and resolved ids of one project.
type ReviewState struct {
	Manual   models.AttributionData
	Resolved map[string]struct{}
}

// execer is satisfied by *sql.Tx.
type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

func upsertRow(tx *sql.Tx, kind models.Kind, id string, info models.PackageInfo, paths []string) error {
	body, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("index: encode attribution %s: %w", id, err)
	}
	purl := signals.Purl(info)
	_, err = tx.Exec(`
		INSERT INTO attributions (kind, id, package_name, license_name, copyright, purl, body)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(kind, id) DO UPDATE SET
			package_name = excluded.package_name,
			license_name = excluded.license_name,
			copyright    = excluded.copyright,
			purl         = excluded.purl,
			body         = excluded.body
	`, string(kind), id, info.PackageName, info.LicenseName, info.Copyright, purl, string(body))
	if err != nil {
		return fmt.Errorf("index: upsert attribution: %w", err)
	}

	if err := ftsUpsert(tx, kind, id, info, purl); err != nil {
		return err
	}

	if _, err := tx.Exec(`DELETE FROM attribution_resources WHERE kind = ? AND attribution_id = ?`, string(kind), id); err != nil {
		return fmt.Errorf("index: clear resources: %w", err)
	}
	if len(paths) > 0 {
		stmt, err := tx.Prepare(`INSERT OR IGNORE INTO attribution_resources (kind, attribution_id, path) VALUES (?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("index: prepare resource insert: %w", err)
		}
		defer stmt.Close()
		for _, p := range paths {
			if _, err := stmt.Exec(string(kind), id, p); err != nil {
				return fmt.Errorf("index: insert resource: %w", err)
			}
		}
	}
	return nil
}

func deleteKind(tx execer, kind models.Kind) error {
	if _, err := tx.Exec(`DELETE FROM attribution_resources WHERE kind = ?`, string(kind)); err != nil {
		return fmt.Errorf("index: clear resources: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM attributions WHERE kind = ?`, string(kind)); err != nil {
		return fmt.Errorf("index: clear attributions: %w", err)
	}
	return ftsDeleteKind(tx, kind)
}

func insertAll(tx *sql.Tx, data models.AttributionData) error {
	ids := make([]string, 0, len(data.Attributions))
	for id := range data.Attributions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		if err := upsertRow(tx, data.Kind, id, data.Attributions[id], data.AttributionsToResources[id]); err != nil {
			return err
		}
	}
	return nil
}

// ReplaceAttributions swaps every stored attribution of data.Kind for data
// within a transaction.
func (db *DB) ReplaceAttributions(data models.AttributionData) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	if err := deleteKind(tx, data.Kind); err != nil {
		return err
	}
	if err := insertAll(tx, data); err != nil {
		return err
	}
	return tx.Commit()
}

// UpsertAttribution inserts or replaces one attribution and its resource paths.
func (db *DB) UpsertAttribution(kind models.Kind, id string, info models.PackageInfo, paths []string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := upsertRow(tx, kind, id, info, paths); err != nil {
		return err
	}
	return tx.Commit()
}

// DeleteAttribution removes one attribution, its FTS entry and its resource paths.
func (db *DB) DeleteAttribution(kind models.Kind, id string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := deleteRow(tx, kind, id); err != nil {
		return err
	}
	return tx.Commit()
}

// WriteAttributions removes deletes and upserts rows of one kind in a single
// transaction. Either every change is stored or none is.
func (db *DB) WriteAttributions(kind models.Kind, upserts []AttributionRow, deletes []string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	for _, id := range deletes {
		if err := deleteRow(tx, kind, id); err != nil {
			return err
		}
	}
	for _, row := range upserts {
		if err := upsertRow(tx, kind, row.ID, row.Info, row.Paths); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func deleteRow(tx execer, kind models.Kind, id string) error {
	if err := ftsDelete(tx, kind, id); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM attribution_resources WHERE kind = ? AND attribution_id = ?`, string(kind), id); err != nil {
		return fmt.Errorf("index: delete resources of %s: %w", id, err)
	}
	if _, err := tx.Exec(`DELETE FROM attributions WHERE kind = ? AND id = ?`, string(kind), id); err != nil {
		return fmt.Errorf("index: delete attribution %s: %w", id, err)
	}
	if kind == models.KindExternal {
		if _, err := tx.Exec(`DELETE FROM resolved WHERE attribution_id = ?`, id); err != nil {
			return fmt.Errorf("index: delete resolved %s: %w", id, err)
		}
	}
	return nil
}

// GetAttribution loads one stored attribution. Returns apperr.ErrNotFound
// when it does not exist.
func (db *DB) GetAttribution(kind models.Kind, id string) (*AttributionRow, error) {
	var body string
	err := db.conn.QueryRow(`SELECT body FROM attributions WHERE kind = ? AND id = ?`, string(kind), id).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("index: attribution %s/%s: %w", kind, id, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("index: get attribution: %w", err)
	}
	row := &AttributionRow{Kind: kind, ID: id}
	if err := json.Unmarshal([]byte(body), &row.Info); err != nil {
		return nil, fmt.Errorf("index: decode attribution %s: %w", id, err)
	}

	rows, err := db.conn.Query(`SELECT path FROM attribution_resources WHERE kind = ? AND attribution_id = ? ORDER BY path`, string(kind), id)
	if err != nil {
		return nil, fmt.Errorf("index: attribution resources: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		row.Paths = append(row.Paths, p)
	}
	return row, rows.Err()
}

// SetResolved marks or unmarks external attribution ids as resolved.
func (db *DB) SetResolved(ids []string, resolved bool) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	query := `DELETE FROM resolved WHERE attribution_id = ?`
	if resolved {
		query = `INSERT OR IGNORE INTO resolved (attribution_id) VALUES (?)`
	}
	stmt, err := tx.Prepare(query)
	if err != nil {
		return fmt.Errorf("index: prepare resolved: %w", err)
	}
	defer stmt.Close()
	for _, id := range ids {
		if _, err := stmt.Exec(id); err != nil {
			return fmt.Errorf("index: set resolved: %w", err)
		}
	}
	return tx.Commit()
}

// ReviewState loads the manual collection and resolved ids stored for
// projectID. It returns nil when the database holds no state for it.
func (db *DB) ReviewState(projectID string) (*ReviewState, error) {
	var owner string
	err := db.conn.QueryRow(`SELECT value FROM meta WHERE key = ?`, metaProjectID).Scan(&owner)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && owner != projectID) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("index: review owner: %w", err)
	}

	attrs := models.Attributions{}
	rows, err := db.conn.Query(`SELECT id, body FROM attributions WHERE kind = ?`, string(models.KindManual))
	if err != nil {
		return nil, fmt.Errorf("index: manual attributions: %w", err)
	}
	for rows.Next() {
		var id, body string
		if err := rows.Scan(&id, &body); err != nil {
			rows.Close()
			return nil, err
		}
		var info models.PackageInfo
		if err := json.Unmarshal([]byte(body), &info); err != nil {
			rows.Close()
			return nil, fmt.Errorf("index: decode attribution %s: %w", id, err)
		}
		attrs[id] = info
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	r2a := models.ResourcesToAttributions{}
	rows, err = db.conn.Query(`
		SELECT path, attribution_id FROM attribution_resources
		WHERE kind = ? ORDER BY path, attribution_id
	`, string(models.KindManual))
	if err != nil {
		return nil, fmt.Errorf("index: manual resources: %w", err)
	}
	for rows.Next() {
		var p, id string
		if err := rows.Scan(&p, &id); err != nil {
			rows.Close()
			return nil, err
		}
		r2a[p] = append(r2a[p], id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	resolved, err := db.resolvedIDs()
	if err != nil {
		return nil, err
	}
	return &ReviewState{
		Manual:   models.NewAttributionData(models.KindManual, attrs, r2a),
		Resolved: resolved,
	}, nil
}

func (db *DB) resolvedIDs() (map[string]struct{}, error) {
	rows, err := db.conn.Query(`SELECT attribution_id FROM resolved`)
	if err != nil {
		return nil, fmt.Errorf("index: resolved: %w", err)
	}
	defer rows.Close()
	out := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out[id] = struct{}{}
	}
	return out, rows.Err()
}

// ClaimProject makes the database hold the review state of projectID,
// replacing any state stored for another project.
func (db *DB) ClaimProject(projectID string, manual models.AttributionData, resolved []string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.Exec(`
		INSERT INTO meta (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, metaProjectID, projectID); err != nil {
		return fmt.Errorf("index: claim project: %w", err)
	}
	if err := deleteKind(tx, models.KindManual); err != nil {
		return err
	}
	manual.Kind = models.KindManual
	if err := insertAll(tx, manual); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM resolved`); err != nil {
		return fmt.Errorf("index: clear resolved: %w", err)
	}
	for _, id := range resolved {
		if _, err := tx.Exec(`INSERT OR IGNORE INTO resolved (attribution_id) VALUES (?)`, id); err != nil {
			return fmt.Errorf("index: insert resolved: %w", err)
		}
	}
	return tx.Commit()
}

// GetChecksum returns the stored checksum for an input file, or empty string if not found.
func (db *DB) GetChecksum(path string) (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT checksum FROM inputs WHERE path = ?`, path).Scan(&cs)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("index: get checksum: %w", err)
	}
	return cs, nil
}

// SetChecksum records the checksum of the last synced input file.
func (db *DB) SetChecksum(path, projectID, checksum string) error {
	_, err := db.conn.Exec(`
		INSERT INTO inputs (path, project_id, checksum, loaded_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(path) DO UPDATE SET
			project_id = excluded.project_id,
			checksum   = excluded.checksum,
			loaded_at  = excluded.loaded_at
	`, path, projectID, checksum)
	if err != nil {
		return fmt.Errorf("index: set checksum: %w", err)
	}
	return nil
}
