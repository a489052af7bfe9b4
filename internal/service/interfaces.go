// Package service defines the interfaces between the computation core and
// its external collaborators.
package service

import (
	"context"
	"time"

	"github.com/fixedassets/depflow/internal/model"
)

// Storage is the narrow record-store contract the core depends on.
// Transaction boundaries belong to the store, not the core.
type Storage interface {
	// Asset operations
	GetAssetByID(ctx context.Context, id string) (*model.AssetRecord, error)
	BatchGetAssets(ctx context.Context, ids []string) ([]model.AssetRecord, error)
	UpsertAssets(ctx context.Context, assets []model.AssetRecord) error
	ListAssets(ctx context.Context) ([]model.AssetRecord, error)

	// Classification operations
	SaveClassification(ctx context.Context, result *model.ClassificationResult) error
	GetClassification(ctx context.Context, assetID string) (*model.ClassificationResult, error)

	// Audit trail
	AppendAudit(ctx context.Context, entry *model.AuditEntry) error
	GetAuditTrail(ctx context.Context, assetID string) ([]model.AuditEntry, error)

	// Database management
	Migrate(ctx context.Context) error
	Close() error
}

// ClassifierResponse is the external service's answer to a classification request.
type ClassifierResponse struct {
	ClassName  string
	Method     string
	Life       float64
	Confidence float64
	Reason     string
}

// ExternalClassifier is the remote classification capability. Both calls
// suspend for network I/O and carry the caller's context deadline.
type ExternalClassifier interface {
	ClassifyDescription(ctx context.Context, description string) (ClassifierResponse, error)
	EmbedDescription(ctx context.Context, description string) ([]float32, error)
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
