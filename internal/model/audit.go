package model

import "time"

// AuditAction names what produced an audit entry.
type AuditAction string

// Audit action constants.
const (
	AuditClassified      AuditAction = "CLASSIFIED"
	AuditOverrideApplied AuditAction = "OVERRIDE_APPLIED"
	AuditMemoryStored    AuditAction = "MEMORY_STORED"
)

// AuditEntry records one decision for the audit trail.
type AuditEntry struct {
	CreatedAt  time.Time
	ID         string
	AssetID    string
	Action     AuditAction
	Source     ClassificationSource
	ClassName  string
	Reason     string
	Confidence float64
}
