package model

// TransactionType categorizes what happened to an asset during the tax year.
type TransactionType string

// Transaction type constants.
const (
	TypeCurrentYearAddition TransactionType = "CURRENT_YEAR_ADDITION"
	TypeExistingAsset       TransactionType = "EXISTING_ASSET"
	TypeDisposal            TransactionType = "DISPOSAL"
	TypeTransfer            TransactionType = "TRANSFER"
)

// TransferDirection indicates which way a transfer moved.
type TransferDirection string

// Transfer direction constants.
const (
	TransferIn  TransferDirection = "IN"
	TransferOut TransferDirection = "OUT"
)

// TransactionTypeResult carries the typed decision for one record.
// Only current-year additions are eligible for Section 179 or bonus.
type TransactionTypeResult struct {
	AssetID    string
	Type       TransactionType
	Direction  TransferDirection // set only for transfers
	Reason     string
	Confidence float64
	Defaulted  bool // true when an ambiguous transfer fell back to the configured direction
}

// Section179Eligible reports whether this record may receive Section 179 or bonus.
func (r *TransactionTypeResult) Section179Eligible() bool {
	return r.Type == TypeCurrentYearAddition
}
