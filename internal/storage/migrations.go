package storage

import (
	"context"
	"database/sql"
	"fmt"
)

// Migration represents a single database migration.
type Migration struct {
	Up          func(tx *sql.Tx) error
	Description string
	Version     int
}

// migrations is the ordered list of all schema migrations.
var migrations = []Migration{
	{
		Version:     1,
		Description: "Create assets table",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
				CREATE TABLE IF NOT EXISTS assets (
					id TEXT PRIMARY KEY,
					description TEXT NOT NULL,
					category TEXT NOT NULL DEFAULT '',
					external_id TEXT NOT NULL DEFAULT '',
					transfer_note TEXT NOT NULL DEFAULT '',
					cost_basis REAL NOT NULL,
					business_use_pct REAL NOT NULL DEFAULT 100,
					acquisition_date TIMESTAMP NOT NULL,
					in_service_date TIMESTAMP NOT NULL,
					disposal_date TIMESTAMP
				);
				CREATE INDEX IF NOT EXISTS idx_assets_external_id ON assets(external_id);
				CREATE INDEX IF NOT EXISTS idx_assets_in_service ON assets(in_service_date);
			`)
			return err
		},
	},
	{
		Version:     2,
		Description: "Create classifications table",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
				CREATE TABLE IF NOT EXISTS classifications (
					asset_id TEXT PRIMARY KEY REFERENCES assets(id),
					class_name TEXT NOT NULL,
					recovery_years REAL NOT NULL,
					method TEXT NOT NULL,
					convention TEXT NOT NULL,
					source TEXT NOT NULL,
					confidence REAL NOT NULL,
					bonus_eligible BOOLEAN NOT NULL DEFAULT 0,
					qip BOOLEAN NOT NULL DEFAULT 0,
					real_property BOOLEAN NOT NULL DEFAULT 0,
					listed_auto BOOLEAN NOT NULL DEFAULT 0,
					needs_review BOOLEAN NOT NULL DEFAULT 0,
					reason TEXT NOT NULL DEFAULT '',
					classified_at TIMESTAMP NOT NULL
				);
				CREATE INDEX IF NOT EXISTS idx_classifications_class ON classifications(class_name);
				CREATE INDEX IF NOT EXISTS idx_classifications_review ON classifications(needs_review);
			`)
			return err
		},
	},
	{
		Version:     3,
		Description: "Create audit_entries table",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
				CREATE TABLE IF NOT EXISTS audit_entries (
					id TEXT PRIMARY KEY,
					asset_id TEXT NOT NULL,
					action TEXT NOT NULL,
					source TEXT NOT NULL,
					class_name TEXT NOT NULL DEFAULT '',
					confidence REAL NOT NULL DEFAULT 0,
					reason TEXT NOT NULL DEFAULT '',
					created_at TIMESTAMP NOT NULL
				);
				CREATE INDEX IF NOT EXISTS idx_audit_asset ON audit_entries(asset_id);
			`)
			return err
		},
	},
}

// Migrate runs all pending migrations inside transactions.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	var current int
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&current)
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	for _, m := range migrations {
		if m.Version <= current {
			continue
		}

		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin migration %d: %w", m.Version, err)
		}

		if err := m.Up(tx); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d (%s) failed: %w", m.Version, m.Description, err)
		}

		if _, err := tx.Exec(
			`INSERT INTO schema_migrations (version, description) VALUES (?, ?)`,
			m.Version, m.Description); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", m.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", m.Version, err)
		}
	}

	return nil
}
