package models

import "time"

// Ledger records which items an owner is accountable for.
type Ledger struct {
	ID                 int64     `json:"id" db:"id"`
	OwnerID            int64     `json:"owner_id" db:"owner_id"`
	AccountabilityCode string    `json:"accountability_code" db:"accountability_code"`
	TrackingCode       string    `json:"tracking_code" db:"tracking_code"`
	AssetIDs           IDSet     `json:"asset_ids" db:"-"`
	ComputerIDs        IDSet     `json:"computer_ids" db:"-"`
	CreatedAt          time.Time `json:"created_at" db:"created_at"`
}

// Set returns the id set holding items of the given kind.
func (l *Ledger) Set(kind ItemKind) *IDSet {
	if kind == KindComputer {
		return &l.ComputerIDs
	}
	return &l.AssetIDs
}

// Contains reports whether ref is recorded in the ledger.
func (l *Ledger) Contains(ref ItemRef) bool {
	return l.Set(ref.Kind).Contains(ref.ID)
}

// Empty reports whether both id sets are empty.
func (l *Ledger) Empty() bool {
	return len(l.AssetIDs) == 0 && len(l.ComputerIDs) == 0
}

// Clone returns a deep copy.
func (l *Ledger) Clone() *Ledger {
	c := *l
	c.AssetIDs = append(IDSet(nil), l.AssetIDs...)
	c.ComputerIDs = append(IDSet(nil), l.ComputerIDs...)
	return &c
}

// LedgerView is a ledger with its owner resolved.
type LedgerView struct {
	Ledger
	Owner *User `json:"owner,omitempty"`
}
