package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"scenekit/internal/models"
)

// LedgerSchemaVersion is the record shape written by this build. Rows with a
// higher version are skipped on load.
const LedgerSchemaVersion = 1

// Ledger is the durable override collection. Writes replace the whole
// collection; there is no per-entry diffing.
type Ledger struct {
	st     *Store
	logger *slog.Logger
}

// NewLedger wraps st. A nil store yields a ledger whose reads fail with
// ErrStorageUnavailable and whose writes are dropped.
func NewLedger(st *Store, logger *slog.Logger) *Ledger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ledger{st: st, logger: logger.With("component", "ledger")}
}

func (l *Ledger) available() bool {
	return l != nil && l.st != nil && l.st.db != nil
}

// Load returns the persisted entries in write order. Rows that cannot be
// decoded are skipped and logged.
func (l *Ledger) Load(ctx context.Context) ([]models.LedgerEntry, error) {
	if !l.available() {
		return []models.LedgerEntry{}, fmt.Errorf("load ledger: %w", models.ErrStorageUnavailable)
	}

	rows, err := l.st.db.QueryContext(ctx, `
		SELECT id, record, schema_version FROM ledger_entries ORDER BY ordinal ASC, id ASC
	`)
	if err != nil {
		return []models.LedgerEntry{}, fmt.Errorf("load ledger: %w: %w", models.ErrStorageUnavailable, err)
	}
	defer rows.Close()

	entries := []models.LedgerEntry{}
	for rows.Next() {
		var (
			id      string
			raw     string
			version int
		)
		if err := rows.Scan(&id, &raw, &version); err != nil {
			return []models.LedgerEntry{}, fmt.Errorf("load ledger: %w: %w", models.ErrStorageUnavailable, err)
		}
		if version > LedgerSchemaVersion {
			l.logger.Warn("skipping ledger entry with newer schema", "id", id, "schema_version", version)
			continue
		}
		var entry models.LedgerEntry
		if err := json.Unmarshal([]byte(raw), &entry); err != nil {
			l.logger.Warn("skipping malformed ledger entry", "id", id, "error", fmt.Errorf("%w: %w", models.ErrMalformedPayload, err))
			continue
		}
		if strings.TrimSpace(entry.ID) == "" {
			entry.ID = id
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return []models.LedgerEntry{}, fmt.Errorf("load ledger: %w: %w", models.ErrStorageUnavailable, err)
	}
	return entries, nil
}

// Save replaces the collection with entries. Session handles are stripped
// from entries that reference a vault blob.
func (l *Ledger) Save(ctx context.Context, entries []models.LedgerEntry) (err error) {
	if !l.available() {
		l.logger.Warn("ledger unavailable, dropping write", "entries", len(entries))
		return nil
	}

	tx, err := l.st.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save ledger: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, "DELETE FROM ledger_entries"); err != nil {
		return fmt.Errorf("save ledger: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO ledger_entries (id, ordinal, record, schema_version, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("save ledger: %w", err)
	}
	defer stmt.Close()

	now := dbFormatTime(time.Now())
	for i, entry := range entries {
		if strings.TrimSpace(entry.ID) == "" {
			l.logger.Warn("skipping ledger entry without id", "ordinal", i)
			continue
		}
		raw, marshalErr := json.Marshal(entry.ForPersistence())
		if marshalErr != nil {
			err = fmt.Errorf("encode ledger entry %s: %w", entry.ID, marshalErr)
			return err
		}
		if _, err = stmt.ExecContext(ctx, entry.ID, i, string(raw), LedgerSchemaVersion, now); err != nil {
			return fmt.Errorf("save ledger entry %s: %w", entry.ID, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("save ledger: %w", err)
	}
	return nil
}

// Clear removes every entry.
func (l *Ledger) Clear(ctx context.Context) error {
	if !l.available() {
		return nil
	}
	if _, err := l.st.db.ExecContext(ctx, "DELETE FROM ledger_entries"); err != nil {
		return fmt.Errorf("clear ledger: %w", err)
	}
	return nil
}

// Count returns the number of stored entries.
func (l *Ledger) Count(ctx context.Context) (int, error) {
	if !l.available() {
		return 0, fmt.Errorf("count ledger: %w", models.ErrStorageUnavailable)
	}
	var n int
	if err := l.st.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM ledger_entries").Scan(&n); err != nil {
		return 0, fmt.Errorf("count ledger: %w", err)
	}
	return n, nil
}
