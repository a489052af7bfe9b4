package model

// Severity grades an issue for user-visible reporting.
type Severity string

// Severity constants.
const (
	SeverityCritical Severity = "CRITICAL"
	SeverityError    Severity = "ERROR"
	SeverityWarning  Severity = "WARNING"
	SeverityInfo     Severity = "INFO"
)

// IssueKind names the error-taxonomy bucket an issue belongs to.
type IssueKind string

// Issue kind constants.
const (
	IssueData            IssueKind = "DATA_ERROR"
	IssueCompliance      IssueKind = "COMPLIANCE_VIOLATION"
	IssueAmbiguity       IssueKind = "CLASSIFICATION_AMBIGUITY"
	IssueExternalService IssueKind = "EXTERNAL_SERVICE_ERROR"
	IssueAuthentication  IssueKind = "AUTHENTICATION_ERROR"
	IssueReconciliation  IssueKind = "RECONCILIATION_IMBALANCE"
)

// Issue is one reportable problem, attached either to a record or to the batch.
type Issue struct {
	AssetID     string // empty for batch-level issues
	Kind        IssueKind
	Severity    Severity
	Message     string
	Remediation string
}

// BlocksExport reports whether this issue must prevent export-readiness.
func (i Issue) BlocksExport() bool {
	switch i.Kind {
	case IssueCompliance, IssueReconciliation:
		return true
	}
	return i.Severity == SeverityCritical
}
