package classify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/fixedassets/depflow/internal/model"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestTypeClassifierPrecedence(t *testing.T) {
	c := NewTypeClassifier(2025, TransferPolicy{})
	disposal := date(2025, time.June, 1)
	oldDisposal := date(2023, time.June, 1)

	tests := []struct {
		name          string
		asset         model.AssetRecord
		wantType      model.TransactionType
		wantDirection model.TransferDirection
		wantDefaulted bool
	}{
		{
			name: "disposal in tax year wins over everything",
			asset: model.AssetRecord{
				ID:            "a1",
				InServiceDate: date(2025, time.January, 1),
				DisposalDate:  &disposal,
				TransferNote:  "transfer out to subsidiary",
			},
			wantType: model.TypeDisposal,
		},
		{
			name: "old disposal does not shadow current activity",
			asset: model.AssetRecord{
				ID:            "a2",
				InServiceDate: date(2022, time.January, 1),
				DisposalDate:  &oldDisposal,
			},
			wantType: model.TypeExistingAsset,
		},
		{
			name: "transfer note with explicit in direction",
			asset: model.AssetRecord{
				ID:            "a3",
				InServiceDate: date(2024, time.May, 1),
				TransferNote:  "received from plant 7",
			},
			wantType:      model.TypeTransfer,
			wantDirection: model.TransferIn,
		},
		{
			name: "transfer note with explicit out direction",
			asset: model.AssetRecord{
				ID:            "a4",
				InServiceDate: date(2024, time.May, 1),
				TransferNote:  "xfer out per reorg",
			},
			wantType:      model.TypeTransfer,
			wantDirection: model.TransferOut,
		},
		{
			name: "directionless transfer falls back to default",
			asset: model.AssetRecord{
				ID:            "a5",
				InServiceDate: date(2024, time.May, 1),
				TransferNote:  "intercompany move",
			},
			wantType:      model.TypeTransfer,
			wantDirection: model.TransferOut,
			wantDefaulted: true,
		},
		{
			name: "in service this year is an addition",
			asset: model.AssetRecord{
				ID:            "a6",
				InServiceDate: date(2025, time.March, 15),
			},
			wantType: model.TypeCurrentYearAddition,
		},
		{
			name: "in service earlier is existing",
			asset: model.AssetRecord{
				ID:            "a7",
				InServiceDate: date(2019, time.March, 15),
			},
			wantType: model.TypeExistingAsset,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Classify(tt.asset)
			assert.Equal(t, tt.wantType, got.Type)
			assert.Equal(t, tt.wantDirection, got.Direction)
			assert.Equal(t, tt.wantDefaulted, got.Defaulted)
			assert.NotEmpty(t, got.Reason)
		})
	}
}

func TestTypeClassifierFutureInServiceFlagsVerification(t *testing.T) {
	c := NewTypeClassifier(2025, TransferPolicy{})

	got := c.Classify(model.AssetRecord{
		ID:            "future",
		InServiceDate: date(2026, time.January, 15),
	})
	assert.Equal(t, model.TypeExistingAsset, got.Type)
	assert.InDelta(t, 0.5, got.Confidence, 0.001)
}

func TestTypeClassifierConfigurableTransferDefault(t *testing.T) {
	c := NewTypeClassifier(2025, TransferPolicy{DefaultDirection: model.TransferIn})

	got := c.Classify(model.AssetRecord{
		ID:            "a1",
		InServiceDate: date(2024, time.May, 1),
		TransferNote:  "moved between divisions",
	})
	assert.Equal(t, model.TransferIn, got.Direction)
	assert.True(t, got.Defaulted)
	assert.InDelta(t, 0.6, got.Confidence, 0.001)
}

func TestSection179EligibilityByType(t *testing.T) {
	addition := model.TransactionTypeResult{Type: model.TypeCurrentYearAddition}
	existing := model.TransactionTypeResult{Type: model.TypeExistingAsset}
	transfer := model.TransactionTypeResult{Type: model.TypeTransfer, Direction: model.TransferIn}

	assert.True(t, addition.Section179Eligible())
	assert.False(t, existing.Section179Eligible())
	assert.False(t, transfer.Section179Eligible())
}
