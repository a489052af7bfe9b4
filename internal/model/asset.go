// Package model defines the core domain models used throughout the application.
package model

import (
	"crypto/sha256"
	"fmt"
	"time"
)

// AssetRecord represents a single fixed-asset row from any source.
// It is immutable input to classification; the caller owns it for its lifetime.
type AssetRecord struct {
	AcquisitionDate time.Time
	InServiceDate   time.Time
	DisposalDate    *time.Time
	ID              string
	Description     string
	Category        string // Optional client-supplied category hint
	ExternalID      string // Optional identifier from the client's ledger
	TransferNote    string // Raw transfer metadata, empty when not a transfer
	Hash            string
	CostBasis       float64
	BusinessUsePct  float64 // (0,100]; 0 means unstated and treated as 100
}

// GenerateHash creates a stable hash for duplicate detection and caching.
func (a *AssetRecord) GenerateHash() string {
	data := fmt.Sprintf("%s:%.2f:%s:%s",
		a.InServiceDate.Format("2006-01-02"),
		a.CostBasis,
		a.Description,
		a.ExternalID)
	hash := sha256.Sum256([]byte(data))
	return fmt.Sprintf("%x", hash)
}

// DepreciableBasis returns the cost basis reduced to business use.
func (a *AssetRecord) DepreciableBasis() float64 {
	pct := a.BusinessUsePct
	if pct <= 0 || pct > 100 {
		pct = 100
	}
	return RoundCents(a.CostBasis * pct / 100)
}

// Validate checks the fields the computation core requires.
func (a *AssetRecord) Validate() error {
	if a.ID == "" {
		return fmt.Errorf("asset record missing ID")
	}
	if a.Description == "" {
		return fmt.Errorf("asset %s: missing description", a.ID)
	}
	if a.CostBasis < 0 {
		return fmt.Errorf("asset %s: negative cost basis %.2f", a.ID, a.CostBasis)
	}
	if a.InServiceDate.IsZero() {
		return fmt.Errorf("asset %s: missing in-service date", a.ID)
	}
	if a.DisposalDate != nil && a.DisposalDate.Before(a.InServiceDate) {
		return fmt.Errorf("asset %s: disposal date %s precedes in-service date %s",
			a.ID, a.DisposalDate.Format("2006-01-02"), a.InServiceDate.Format("2006-01-02"))
	}
	return nil
}

// RoundCents rounds a dollar amount to the nearest cent.
func RoundCents(amount float64) float64 {
	if amount < 0 {
		return -RoundCents(-amount)
	}
	return float64(int64(amount*100+0.5)) / 100
}
