// Package storage provides the sqlite-backed record store: assets,
// classification results, and the audit trail, behind the narrow CRUD
// contract the computation core depends on.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fixedassets/depflow/internal/common"
	"github.com/fixedassets/depflow/internal/model"

	sqlite3 "github.com/mattn/go-sqlite3"
)

// SQLiteStorage implements the service.Storage contract using SQLite.
type SQLiteStorage struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteStorage creates a new SQLite storage instance.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if strings.TrimSpace(dbPath) == "" {
		return nil, fmt.Errorf("dbPath cannot be empty")
	}

	if dbPath != ":memory:" {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite doesn't benefit from multiple connections.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &SQLiteStorage{db: db, dbPath: dbPath}, nil
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// GetAssetByID fetches one asset record.
func (s *SQLiteStorage) GetAssetByID(ctx context.Context, id string) (*model.AssetRecord, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("asset id cannot be empty")
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT id, description, category, external_id, transfer_note,
		       cost_basis, business_use_pct, acquisition_date, in_service_date, disposal_date
		FROM assets WHERE id = ?`, id)

	asset, err := scanAsset(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("asset %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get asset %s: %w", id, err)
	}
	return asset, nil
}

// BatchGetAssets fetches the given asset records, skipping unknown ids.
func (s *SQLiteStorage) BatchGetAssets(ctx context.Context, ids []string) ([]model.AssetRecord, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := strings.Repeat("?,", len(ids))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT id, description, category, external_id, transfer_note,
		       cost_basis, business_use_pct, acquisition_date, in_service_date, disposal_date
		FROM assets WHERE id IN (%s) ORDER BY id`, placeholders), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to batch-get assets: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return collectAssets(rows)
}

// ListAssets returns every stored asset record.
func (s *SQLiteStorage) ListAssets(ctx context.Context) ([]model.AssetRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, description, category, external_id, transfer_note,
		       cost_basis, business_use_pct, acquisition_date, in_service_date, disposal_date
		FROM assets ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list assets: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return collectAssets(rows)
}

// UpsertAssets inserts or replaces asset records in one transaction.
func (s *SQLiteStorage) UpsertAssets(ctx context.Context, assets []model.AssetRecord) error {
	if len(assets) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO assets (id, description, category, external_id, transfer_note,
			cost_basis, business_use_pct, acquisition_date, in_service_date, disposal_date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			description = excluded.description,
			category = excluded.category,
			external_id = excluded.external_id,
			transfer_note = excluded.transfer_note,
			cost_basis = excluded.cost_basis,
			business_use_pct = excluded.business_use_pct,
			acquisition_date = excluded.acquisition_date,
			in_service_date = excluded.in_service_date,
			disposal_date = excluded.disposal_date`)
	if err != nil {
		return fmt.Errorf("failed to prepare upsert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for i := range assets {
		a := &assets[i]
		if err := a.Validate(); err != nil {
			return fmt.Errorf("invalid asset record: %w", err)
		}
		var disposal any
		if a.DisposalDate != nil {
			disposal = a.DisposalDate.UTC()
		}
		if _, err := stmt.ExecContext(ctx,
			a.ID, a.Description, a.Category, a.ExternalID, a.TransferNote,
			a.CostBasis, a.BusinessUsePct, a.AcquisitionDate.UTC(), a.InServiceDate.UTC(), disposal); err != nil {
			return fmt.Errorf("failed to upsert asset %s: %w", a.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit upsert: %w", err)
	}
	return nil
}

// SaveClassification stores (or replaces) one classification result.
func (s *SQLiteStorage) SaveClassification(ctx context.Context, result *model.ClassificationResult) error {
	if result == nil {
		return fmt.Errorf("classification result cannot be nil")
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO classifications (asset_id, class_name, recovery_years, method, convention,
			source, confidence, bonus_eligible, qip, real_property, listed_auto,
			needs_review, reason, classified_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(asset_id) DO UPDATE SET
			class_name = excluded.class_name,
			recovery_years = excluded.recovery_years,
			method = excluded.method,
			convention = excluded.convention,
			source = excluded.source,
			confidence = excluded.confidence,
			bonus_eligible = excluded.bonus_eligible,
			qip = excluded.qip,
			real_property = excluded.real_property,
			listed_auto = excluded.listed_auto,
			needs_review = excluded.needs_review,
			reason = excluded.reason,
			classified_at = excluded.classified_at`,
		result.AssetID, result.ClassName, result.RecoveryYears, string(result.Method),
		string(result.Convention), string(result.Source), result.Confidence,
		result.BonusEligible, result.QIP, result.IsRealProperty, result.IsListedAuto,
		result.NeedsReview, result.Reason, result.ClassifiedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to save classification for %s: %w", result.AssetID, err)
	}
	return nil
}

// GetClassification fetches the stored classification for an asset.
func (s *SQLiteStorage) GetClassification(ctx context.Context, assetID string) (*model.ClassificationResult, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT asset_id, class_name, recovery_years, method, convention, source,
		       confidence, bonus_eligible, qip, real_property, listed_auto,
		       needs_review, reason, classified_at
		FROM classifications WHERE asset_id = ?`, assetID)

	var r model.ClassificationResult
	var method, convention, source string
	err := row.Scan(&r.AssetID, &r.ClassName, &r.RecoveryYears, &method, &convention,
		&source, &r.Confidence, &r.BonusEligible, &r.QIP, &r.IsRealProperty,
		&r.IsListedAuto, &r.NeedsReview, &r.Reason, &r.ClassifiedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("classification for %s: %w", assetID, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get classification for %s: %w", assetID, err)
	}
	r.Method = model.DepreciationMethod(method)
	r.Convention = model.Convention(convention)
	r.Source = model.ClassificationSource(source)
	return &r, nil
}

// AppendAudit stores one audit-trail entry.
func (s *SQLiteStorage) AppendAudit(ctx context.Context, entry *model.AuditEntry) error {
	if entry == nil {
		return fmt.Errorf("audit entry cannot be nil")
	}
	createdAt := entry.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_entries (id, asset_id, action, source, class_name, confidence, reason, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.AssetID, string(entry.Action), string(entry.Source),
		entry.ClassName, entry.Confidence, entry.Reason, createdAt)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey {
			return fmt.Errorf("audit entry %s: %w", entry.ID, common.ErrDuplicateEntry)
		}
		return fmt.Errorf("failed to append audit entry: %w", err)
	}
	return nil
}

// GetAuditTrail returns an asset's audit entries, oldest first.
func (s *SQLiteStorage) GetAuditTrail(ctx context.Context, assetID string) ([]model.AuditEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, asset_id, action, source, class_name, confidence, reason, created_at
		FROM audit_entries WHERE asset_id = ? ORDER BY created_at, id`, assetID)
	if err != nil {
		return nil, fmt.Errorf("failed to get audit trail for %s: %w", assetID, err)
	}
	defer func() { _ = rows.Close() }()

	var entries []model.AuditEntry
	for rows.Next() {
		var e model.AuditEntry
		var action, source string
		if err := rows.Scan(&e.ID, &e.AssetID, &action, &source, &e.ClassName,
			&e.Confidence, &e.Reason, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		e.Action = model.AuditAction(action)
		e.Source = model.ClassificationSource(source)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAsset(row rowScanner) (*model.AssetRecord, error) {
	var a model.AssetRecord
	var disposal sql.NullTime
	err := row.Scan(&a.ID, &a.Description, &a.Category, &a.ExternalID, &a.TransferNote,
		&a.CostBasis, &a.BusinessUsePct, &a.AcquisitionDate, &a.InServiceDate, &disposal)
	if err != nil {
		return nil, err
	}
	if disposal.Valid {
		t := disposal.Time
		a.DisposalDate = &t
	}
	a.Hash = a.GenerateHash()
	return &a, nil
}

func collectAssets(rows *sql.Rows) ([]model.AssetRecord, error) {
	var assets []model.AssetRecord
	for rows.Next() {
		asset, err := scanAsset(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan asset: %w", err)
		}
		assets = append(assets, *asset)
	}
	return assets, rows.Err()
}
