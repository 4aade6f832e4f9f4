// Pack record storage: CRUD, filtered fetch and entry statistics over the
// packs and pack_entries tables, with JSONL persistence after every write.
package sqlite

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/mesh-intelligence/annopack/pkg/types"
)

// timeFormat is fixed-width so timestamps order lexically in SQLite.
const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

const selectPackColumns = "SELECT packs.pack_id, packs.doc_id, packs.process_state, packs.entry_count, packs.payload, packs.checksum, packs.created_at, packs.updated_at FROM packs"

// Put creates or replaces a pack record and its entry rows. When rec.PackID
// is empty a UUID v7 is generated. PackID, Checksum, CreatedAt, UpdatedAt
// and EntryCount are written back to rec.
func (b *Backend) Put(rec *types.PackRecord) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return "", types.ErrArchiveDetached
	}
	if rec == nil || rec.Payload == "" {
		return "", types.ErrInvalidData
	}
	sum := types.PayloadChecksum(rec.Payload)
	if rec.Checksum != "" && rec.Checksum != sum {
		return "", fmt.Errorf("checksum mismatch: %w", types.ErrInvalidData)
	}
	rec.Checksum = sum
	if rec.Entries != nil {
		rec.EntryCount = len(rec.Entries)
	}
	if rec.PackID == "" {
		rec.PackID = generateUUID()
	}

	now := time.Now().UTC()

	tx, err := b.db.Begin()
	if err != nil {
		return "", fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	createdAt := now.Format(timeFormat)
	var existing string
	err = tx.QueryRow("SELECT created_at FROM packs WHERE pack_id = ?", rec.PackID).Scan(&existing)
	switch {
	case err == nil:
		createdAt = existing
	case errors.Is(err, sql.ErrNoRows):
	default:
		return "", fmt.Errorf("checking pack existence: %w", err)
	}

	_, err = tx.Exec(
		`INSERT INTO packs (pack_id, doc_id, process_state, entry_count, payload, checksum, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(pack_id) DO UPDATE SET doc_id = excluded.doc_id, process_state = excluded.process_state,
entry_count = excluded.entry_count, payload = excluded.payload, checksum = excluded.checksum,
updated_at = excluded.updated_at`,
		rec.PackID, rec.DocID, rec.ProcessState, rec.EntryCount, rec.Payload, rec.Checksum, createdAt, now.Format(timeFormat),
	)
	if err != nil {
		return "", fmt.Errorf("persisting pack: %w", err)
	}

	if _, err := tx.Exec("DELETE FROM pack_entries WHERE pack_id = ?", rec.PackID); err != nil {
		return "", fmt.Errorf("clearing pack entries: %w", err)
	}
	if len(rec.Entries) > 0 {
		stmt, err := tx.Prepare("INSERT OR IGNORE INTO pack_entries (pack_id, tid, entry_type, component) VALUES (?, ?, ?, ?)")
		if err != nil {
			return "", fmt.Errorf("preparing entry insert: %w", err)
		}
		defer stmt.Close()
		for _, e := range rec.Entries {
			if _, err := stmt.Exec(rec.PackID, e.TID, e.EntryType, e.Component); err != nil {
				return "", fmt.Errorf("inserting entry %s: %w", e.TID, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("committing pack: %w", err)
	}

	rec.CreatedAt = parseTime(createdAt)
	rec.UpdatedAt = parseTime(now.Format(timeFormat))

	if err := b.persist(packsFile, packEntriesFile); err != nil {
		return "", err
	}
	b.logger.Debug("pack archived", "pack_id", rec.PackID, "doc_id", rec.DocID, "entries", rec.EntryCount)
	return rec.PackID, nil
}

// Get retrieves a pack record by ID together with its entry summaries.
func (b *Backend) Get(id string) (*types.PackRecord, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.attached {
		return nil, types.ErrArchiveDetached
	}
	if id == "" {
		return nil, types.ErrInvalidID
	}

	row := b.db.QueryRow(selectPackColumns+" WHERE pack_id = ?", id)
	rec, err := hydratePack(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, types.ErrNotFound
		}
		return nil, fmt.Errorf("getting pack %s: %w", id, err)
	}
	if err := b.hydrateEntries(rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// GetByDocID retrieves the most recently updated pack record of a document.
func (b *Backend) GetByDocID(docID string) (*types.PackRecord, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.attached {
		return nil, types.ErrArchiveDetached
	}
	if docID == "" {
		return nil, types.ErrInvalidID
	}

	row := b.db.QueryRow(selectPackColumns+" WHERE doc_id = ? ORDER BY updated_at DESC, rowid DESC LIMIT 1", docID)
	rec, err := hydratePack(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, types.ErrNotFound
		}
		return nil, fmt.Errorf("getting pack for document %s: %w", docID, err)
	}
	if err := b.hydrateEntries(rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// Delete removes a pack record and its entry rows.
func (b *Backend) Delete(id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return types.ErrArchiveDetached
	}
	if id == "" {
		return types.ErrInvalidID
	}

	tx, err := b.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM pack_entries WHERE pack_id = ?", id); err != nil {
		return fmt.Errorf("deleting pack entries: %w", err)
	}
	res, err := tx.Exec("DELETE FROM packs WHERE pack_id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting pack: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting pack: %w", err)
	}
	if n == 0 {
		return types.ErrNotFound
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing pack deletion: %w", err)
	}

	if err := b.persist(packsFile, packEntriesFile); err != nil {
		return err
	}
	b.logger.Debug("pack deleted", "pack_id", id)
	return nil
}

// Fetch returns the pack records matching filter, most recently updated
// first. entry_type and component select packs holding at least one such
// entry. Limit and offset apply after ordering.
func (b *Backend) Fetch(filter types.Filter) ([]*types.PackRecord, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.attached {
		return nil, types.ErrArchiveDetached
	}

	query := selectPackColumns
	var conditions []string
	var args []any

	stringFilters := []struct {
		key  string
		cond string
	}{
		{"doc_id", "packs.doc_id = ?"},
		{"process_state", "packs.process_state = ?"},
		{"entry_type", "EXISTS (SELECT 1 FROM pack_entries pe WHERE pe.pack_id = packs.pack_id AND pe.entry_type = ?)"},
		{"component", "EXISTS (SELECT 1 FROM pack_entries pe WHERE pe.pack_id = packs.pack_id AND pe.component = ?)"},
		{"checksum", "packs.checksum = ?"},
	}
	for _, f := range stringFilters {
		v, ok := filter[f.key]
		if !ok {
			continue
		}
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("%w: %s must be a string", types.ErrInvalidFilter, f.key)
		}
		conditions = append(conditions, f.cond)
		args = append(args, s)
	}

	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY packs.updated_at DESC, packs.rowid DESC"

	limit, err := intFilter(filter, "limit")
	if err != nil {
		return nil, err
	}
	offset, err := intFilter(filter, "offset")
	if err != nil {
		return nil, err
	}
	switch {
	case limit > 0:
		query += fmt.Sprintf(" LIMIT %d", limit)
	case offset > 0:
		query += " LIMIT -1"
	}
	if offset > 0 {
		query += fmt.Sprintf(" OFFSET %d", offset)
	}

	rows, err := b.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("fetching packs: %w", err)
	}
	results := []*types.PackRecord{}
	for rows.Next() {
		rec, err := hydratePack(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("hydrating pack: %w", err)
		}
		results = append(results, rec)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating packs: %w", err)
	}

	for _, rec := range results {
		if err := b.hydrateEntries(rec); err != nil {
			return nil, err
		}
	}
	return results, nil
}

// EntryStats counts the entries of one pack by entry type and by component.
func (b *Backend) EntryStats(id string) (*types.EntryStats, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.attached {
		return nil, types.ErrArchiveDetached
	}
	if id == "" {
		return nil, types.ErrInvalidID
	}

	var exists bool
	if err := b.db.QueryRow("SELECT 1 FROM packs WHERE pack_id = ?", id).Scan(&exists); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, types.ErrNotFound
		}
		return nil, fmt.Errorf("checking pack existence: %w", err)
	}

	stats := &types.EntryStats{
		ByType:      make(map[string]int),
		ByComponent: make(map[string]int),
	}
	if err := b.countEntries(id, "entry_type", stats.ByType); err != nil {
		return nil, err
	}
	if err := b.countEntries(id, "component", stats.ByComponent); err != nil {
		return nil, err
	}
	return stats, nil
}

func (b *Backend) countEntries(id, column string, into map[string]int) error {
	rows, err := b.db.Query(
		fmt.Sprintf("SELECT %s, COUNT(*) FROM pack_entries WHERE pack_id = ? GROUP BY %s", column, column),
		id,
	)
	if err != nil {
		return fmt.Errorf("counting entries by %s: %w", column, err)
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		var n int
		if err := rows.Scan(&key, &n); err != nil {
			return fmt.Errorf("scanning entry count: %w", err)
		}
		into[key] = n
	}
	return rows.Err()
}

// intFilter reads an optional integer filter value.
func intFilter(filter types.Filter, key string) (int, error) {
	v, ok := filter[key]
	if !ok {
		return 0, nil
	}
	n, ok := v.(int)
	if !ok || n < 0 {
		return 0, fmt.Errorf("%w: %s must be a non-negative int", types.ErrInvalidFilter, key)
	}
	return n, nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func hydratePack(row scanner) (*types.PackRecord, error) {
	var rec types.PackRecord
	var checksum sql.NullString
	var createdAt, updatedAt string
	if err := row.Scan(&rec.PackID, &rec.DocID, &rec.ProcessState, &rec.EntryCount, &rec.Payload, &checksum, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	rec.Checksum = checksum.String
	rec.CreatedAt = parseTime(createdAt)
	rec.UpdatedAt = parseTime(updatedAt)
	return &rec, nil
}

func (b *Backend) hydrateEntries(rec *types.PackRecord) error {
	rows, err := b.db.Query(
		"SELECT tid, entry_type, component FROM pack_entries WHERE pack_id = ? ORDER BY rowid",
		rec.PackID,
	)
	if err != nil {
		return fmt.Errorf("querying entries of pack %s: %w", rec.PackID, err)
	}
	defer rows.Close()

	rec.Entries = []types.EntrySummary{}
	for rows.Next() {
		var e types.EntrySummary
		if err := rows.Scan(&e.TID, &e.EntryType, &e.Component); err != nil {
			return fmt.Errorf("scanning entry: %w", err)
		}
		rec.Entries = append(rec.Entries, e)
	}
	return rows.Err()
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// JSONL persistence. Each method reads all rows of one table and rewrites
// the corresponding file atomically.

func (b *Backend) persistPacksJSONL() error {
	rows, err := b.db.Query(
		"SELECT pack_id, doc_id, process_state, entry_count, payload, checksum, created_at, updated_at FROM packs ORDER BY created_at, pack_id",
	)
	if err != nil {
		return fmt.Errorf("reading packs for JSONL: %w", err)
	}
	defer rows.Close()

	var records []json.RawMessage
	for rows.Next() {
		var p packJSON
		var checksum sql.NullString
		if err := rows.Scan(&p.PackID, &p.DocID, &p.ProcessState, &p.EntryCount, &p.Payload, &checksum, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return fmt.Errorf("scanning pack for JSONL: %w", err)
		}
		p.Checksum = checksum.String
		rec, err := json.Marshal(p)
		if err != nil {
			return err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	return writeJSONL(filepath.Join(b.dataDir, packsFile), records)
}

func (b *Backend) persistPackEntriesJSONL() error {
	rows, err := b.db.Query("SELECT pack_id, tid, entry_type, component FROM pack_entries ORDER BY rowid")
	if err != nil {
		return fmt.Errorf("reading pack entries for JSONL: %w", err)
	}
	defer rows.Close()

	var records []json.RawMessage
	for rows.Next() {
		var e packEntryJSON
		if err := rows.Scan(&e.PackID, &e.TID, &e.EntryType, &e.Component); err != nil {
			return fmt.Errorf("scanning pack entry for JSONL: %w", err)
		}
		rec, err := json.Marshal(e)
		if err != nil {
			return err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	return writeJSONL(filepath.Join(b.dataDir, packEntriesFile), records)
}
