package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fixedassets/depflow/internal/common"
	"github.com/fixedassets/depflow/internal/model"
)

func openTestStorage(t *testing.T) *SQLiteStorage {
	t.Helper()
	s, err := NewSQLiteStorage(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testAsset(id string) model.AssetRecord {
	a := model.AssetRecord{
		ID:              id,
		Description:     "Dell laptop",
		Category:        "IT",
		ExternalID:      "EXT-" + id,
		CostBasis:       1500,
		BusinessUsePct:  100,
		AcquisitionDate: time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC),
		InServiceDate:   time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
	}
	a.Hash = a.GenerateHash()
	return a
}

func TestNewSQLiteStorageRequiresPath(t *testing.T) {
	_, err := NewSQLiteStorage("")
	assert.Error(t, err)
}

func TestMigrateIsIdempotent(t *testing.T) {
	s := openTestStorage(t)
	require.NoError(t, s.Migrate(context.Background()))
}

func TestUpsertAndGetAsset(t *testing.T) {
	s := openTestStorage(t)
	ctx := context.Background()

	asset := testAsset("a1")
	require.NoError(t, s.UpsertAssets(ctx, []model.AssetRecord{asset}))

	got, err := s.GetAssetByID(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, asset.Description, got.Description)
	assert.Equal(t, asset.ExternalID, got.ExternalID)
	assert.InDelta(t, asset.CostBasis, got.CostBasis, 0.001)
	assert.True(t, got.InServiceDate.Equal(asset.InServiceDate))
	assert.Nil(t, got.DisposalDate)
}

func TestUpsertReplacesExistingAsset(t *testing.T) {
	s := openTestStorage(t)
	ctx := context.Background()

	asset := testAsset("a1")
	require.NoError(t, s.UpsertAssets(ctx, []model.AssetRecord{asset}))

	asset.CostBasis = 2000
	disposal := time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)
	asset.DisposalDate = &disposal
	require.NoError(t, s.UpsertAssets(ctx, []model.AssetRecord{asset}))

	got, err := s.GetAssetByID(ctx, "a1")
	require.NoError(t, err)
	assert.InDelta(t, 2000, got.CostBasis, 0.001)
	require.NotNil(t, got.DisposalDate)
	assert.True(t, got.DisposalDate.Equal(disposal))

	all, err := s.ListAssets(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestUpsertRejectsInvalidAssets(t *testing.T) {
	s := openTestStorage(t)

	err := s.UpsertAssets(context.Background(), []model.AssetRecord{{ID: "bad"}})
	assert.Error(t, err)
}

func TestGetAssetByIDNotFound(t *testing.T) {
	s := openTestStorage(t)

	_, err := s.GetAssetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestBatchGetAssetsSkipsUnknownIDs(t *testing.T) {
	s := openTestStorage(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertAssets(ctx, []model.AssetRecord{testAsset("a1"), testAsset("a2")}))

	got, err := s.BatchGetAssets(ctx, []string{"a1", "missing", "a2"})
	require.NoError(t, err)
	assert.Len(t, got, 2)

	got, err = s.BatchGetAssets(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestClassificationRoundTrip(t *testing.T) {
	s := openTestStorage(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertAssets(ctx, []model.AssetRecord{testAsset("a1")}))

	result := &model.ClassificationResult{
		AssetID:       "a1",
		ClassName:     "Computers & Peripherals",
		RecoveryYears: 5,
		Method:        model.Method200DB,
		Convention:    model.ConventionHalfYear,
		Source:        model.SourceRule,
		Confidence:    0.92,
		BonusEligible: true,
		Reason:        "rule match",
		ClassifiedAt:  time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC),
	}
	require.NoError(t, s.SaveClassification(ctx, result))

	got, err := s.GetClassification(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, result.ClassName, got.ClassName)
	assert.Equal(t, result.Method, got.Method)
	assert.Equal(t, result.Convention, got.Convention)
	assert.Equal(t, result.Source, got.Source)
	assert.InDelta(t, result.Confidence, got.Confidence, 0.001)
	assert.True(t, got.BonusEligible)

	// Saving again replaces in place.
	result.ClassName = "Office Machinery"
	result.Source = model.SourceOverride
	require.NoError(t, s.SaveClassification(ctx, result))

	got, err = s.GetClassification(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, "Office Machinery", got.ClassName)
	assert.Equal(t, model.SourceOverride, got.Source)
}

func TestGetClassificationNotFound(t *testing.T) {
	s := openTestStorage(t)

	_, err := s.GetClassification(context.Background(), "missing")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestAppendAuditRejectsDuplicateID(t *testing.T) {
	s := openTestStorage(t)
	ctx := context.Background()

	entry := model.AuditEntry{
		ID:        "e1",
		AssetID:   "a1",
		Action:    model.AuditClassified,
		Source:    model.SourceRule,
		ClassName: "Automobiles",
	}
	require.NoError(t, s.AppendAudit(ctx, &entry))

	err := s.AppendAudit(ctx, &entry)
	assert.ErrorIs(t, err, common.ErrDuplicateEntry)
}

func TestAuditTrailOrdering(t *testing.T) {
	s := openTestStorage(t)
	ctx := context.Background()

	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	entries := []model.AuditEntry{
		{ID: "e1", AssetID: "a1", Action: model.AuditClassified, Source: model.SourceExternal, ClassName: "Automobiles", Confidence: 0.8, CreatedAt: base},
		{ID: "e2", AssetID: "a1", Action: model.AuditOverrideApplied, Source: model.SourceOverride, ClassName: "Light Trucks & Vans", Confidence: 1.0, CreatedAt: base.Add(time.Hour)},
		{ID: "e3", AssetID: "other", Action: model.AuditClassified, Source: model.SourceRule, ClassName: "Automobiles", Confidence: 0.9, CreatedAt: base},
	}
	for i := range entries {
		require.NoError(t, s.AppendAudit(ctx, &entries[i]))
	}

	trail, err := s.GetAuditTrail(ctx, "a1")
	require.NoError(t, err)
	require.Len(t, trail, 2)
	assert.Equal(t, "e1", trail[0].ID)
	assert.Equal(t, "e2", trail[1].ID)
	assert.Equal(t, model.AuditOverrideApplied, trail[1].Action)

	trail, err = s.GetAuditTrail(ctx, "unknown")
	require.NoError(t, err)
	assert.Empty(t, trail)
}
