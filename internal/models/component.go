package models

import "time"

// ComponentKind is the fixed vocabulary of computer sub-parts.
type ComponentKind string

const (
	ComponentRAM ComponentKind = "RAM"
	ComponentSSD ComponentKind = "SSD"
	ComponentHDD ComponentKind = "HDD"
	ComponentGPU ComponentKind = "GPU"
)

// ComponentStatus only ever moves from New or Available to Released.
type ComponentStatus string

const (
	StatusNew       ComponentStatus = "New"
	StatusAvailable ComponentStatus = "Available"
	StatusReleased  ComponentStatus = "Released"
)

// Component is a sub-part belonging to exactly one computer.
type Component struct {
	ID          int64           `json:"id" db:"id"`
	ComputerID  int64           `json:"computer_id" db:"computer_id"`
	Kind        ComponentKind   `json:"kind" db:"kind"`
	Description string          `json:"description" db:"description"`
	Barcode     string          `json:"barcode" db:"barcode"`
	Status      ComponentStatus `json:"status" db:"status"`
	OwnerID     *int64          `json:"owner_id,omitempty" db:"owner_id"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
}
