package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ItemKind discriminates standalone assets from composite computers.
type ItemKind string

const (
	KindAsset    ItemKind = "asset"
	KindComputer ItemKind = "computer"
)

// Valid reports whether k is one of the known kinds.
func (k ItemKind) Valid() bool {
	return k == KindAsset || k == KindComputer
}

// NoDescription is stored when none of the descriptive fields are filled in.
const NoDescription = "No description available"

// ItemFields holds the mutable descriptive fields shared by assets and computers.
type ItemFields struct {
	Type         string          `json:"type" db:"type"`
	DateAcquired string          `json:"date_acquired" db:"date_acquired"`
	Barcode      string          `json:"barcode" db:"barcode"`
	Brand        string          `json:"brand" db:"brand"`
	Model        string          `json:"model" db:"model"`
	RAM          string          `json:"ram" db:"ram"`
	SSD          string          `json:"ssd" db:"ssd"`
	HDD          string          `json:"hdd" db:"hdd"`
	GPU          string          `json:"gpu" db:"gpu"`
	Size         string          `json:"size" db:"size"`
	Color        string          `json:"color" db:"color"`
	SerialNo     string          `json:"serial_no" db:"serial_no"`
	PO           string          `json:"po" db:"po"`
	Warranty     string          `json:"warranty" db:"warranty"`
	Cost         decimal.Decimal `json:"cost" db:"cost"`
	Remarks      string          `json:"remarks" db:"remarks"`
	ImageRef     *string         `json:"image_ref,omitempty" db:"image_ref"`
}

// Description joins the descriptive fields with single spaces, skipping blanks.
func (f ItemFields) Description() string {
	parts := make([]string, 0, 9)
	for _, p := range []string{f.Brand, f.Type, f.Model, f.RAM, f.SSD, f.HDD, f.GPU, f.Size, f.Color} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		return NoDescription
	}
	return strings.Join(parts, " ")
}

// Item is an inventory row of either kind.
type Item struct {
	ID   int64    `json:"id" db:"id"`
	Kind ItemKind `json:"kind" db:"kind"`
	ItemFields
	Description string     `json:"description" db:"description"`
	History     []string   `json:"history" db:"history"`
	OwnerID     *int64     `json:"owner_id,omitempty" db:"owner_id"`
	IsDeleted   bool       `json:"is_deleted" db:"is_deleted"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	ModifiedAt  *time.Time `json:"modified_at,omitempty" db:"modified_at"`
}

// Ref returns the ledger reference for the item.
func (it *Item) Ref() ItemRef {
	return ItemRef{Kind: it.Kind, ID: it.ID}
}

// Vacant reports whether the item has no current owner.
func (it *Item) Vacant() bool {
	return it.OwnerID == nil
}

// HasOwner reports whether the item is currently owned by ownerID.
func (it *Item) HasOwner(ownerID int64) bool {
	return it.OwnerID != nil && *it.OwnerID == ownerID
}

// ItemRef identifies an item inside a ledger.
type ItemRef struct {
	Kind ItemKind `json:"kind"`
	ID   int64    `json:"id"`
}

// ItemView is an item as returned by reads: owner resolved, history capped.
type ItemView struct {
	Item
	Owner        *User `json:"owner,omitempty"`
	HistoryTotal int   `json:"history_total"`
}

// CreateItemRequest is the request body for creating an item.
type CreateItemRequest struct {
	ItemFields
	OwnerID *int64        `json:"owner_id,omitempty"`
	Owner   *UserIdentity `json:"owner,omitempty"`
}

// UpdateItemRequest is the request body for updating an item.
type UpdateItemRequest struct {
	ItemFields
	OwnerID *int64 `json:"owner_id,omitempty"`
}

// AssignOwnerRequest is the request body for assigning or claiming an item.
type AssignOwnerRequest struct {
	OwnerID int64 `json:"owner_id"`
}
