package coa

import "time"

// AccountLevel enumerates chart-of-accounts depths.
type AccountLevel string

const (
	AccountLevelGroup      AccountLevel = "GROUP"
	AccountLevelGeneral    AccountLevel = "GENERAL"
	AccountLevelSubsidiary AccountLevel = "SUBSIDIARY"
)

// AccountNature enumerates an account's expected balance side.
type AccountNature string

const (
	AccountNatureDebit  AccountNature = "DEBIT"
	AccountNatureCredit AccountNature = "CREDIT"
	AccountNatureNone   AccountNature = "NONE"
)

// NatureControl governs how strictly the account's nature is enforced.
type NatureControl string

const (
	NatureControlNone  NatureControl = "none"
	NatureControlWarn  NatureControl = "warn"
	NatureControlBlock NatureControl = "block"
)

// Metadata holds the dimension and feature settings declared on an account.
// It is decoded once at the repository boundary from the stored JSON blob.
type Metadata struct {
	DimensionTypes  []int64       `json:"tafsils"`
	TrackFeature    bool          `json:"track_feature"`
	TrackMandatory  bool          `json:"track_mandatory"`
	QtyFeature      bool          `json:"qty_feature"`
	QtyMandatory    bool          `json:"qty_mandatory"`
	CurrencyCode    string        `json:"currency_code"`
	NatureControl   NatureControl `json:"nature_control"`
	ContraAccountID *int64        `json:"contra_account_id"`
}

// Account models a chart of accounts node.
type Account struct {
	ID        int64
	Code      string
	Name      string
	Level     AccountLevel
	Nature    AccountNature
	ParentID  *int64
	IsActive  bool
	Meta      Metadata
	CreatedAt time.Time
	UpdatedAt time.Time
}
