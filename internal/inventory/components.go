package inventory

import (
	"context"
	"fmt"
	"strings"

	"itam-api/internal/models"
)

var componentSources = []struct {
	kind  models.ComponentKind
	field func(*models.ItemFields) string
}{
	{models.ComponentRAM, func(f *models.ItemFields) string { return f.RAM }},
	{models.ComponentSSD, func(f *models.ItemFields) string { return f.SSD }},
	{models.ComponentHDD, func(f *models.ItemFields) string { return f.HDD }},
	{models.ComponentGPU, func(f *models.ItemFields) string { return f.GPU }},
}

func componentField(f *models.ItemFields, kind models.ComponentKind) (string, bool) {
	for _, src := range componentSources {
		if src.kind == kind {
			return src.field(f), true
		}
	}
	return "", false
}

// ComponentSynchronizer keeps a computer's components in step with it.
//
// Status is one-way: New or Available components become Released once the
// computer has an owner, and nothing moves them back when it is vacated.
type ComponentSynchronizer struct{}

// OnCreate creates one component per non-blank RAM/SSD/HDD/GPU field.
func (ComponentSynchronizer) OnCreate(ctx context.Context, tx Tx, computer *models.Item) ([]models.Component, error) {
	status := models.StatusAvailable
	if !computer.Vacant() {
		status = models.StatusReleased
	}

	var created []models.Component
	for _, src := range componentSources {
		desc := strings.TrimSpace(src.field(&computer.ItemFields))
		if desc == "" {
			continue
		}
		c := models.Component{
			ComputerID:  computer.ID,
			Kind:        src.kind,
			Description: desc,
			Barcode:     computer.Barcode,
			Status:      status,
			OwnerID:     copyID(computer.OwnerID),
		}
		if err := tx.CreateComponent(ctx, &c); err != nil {
			return nil, fmt.Errorf("create %s component for computer %d: %w", src.kind, computer.ID, err)
		}
		created = append(created, c)
	}
	return created, nil
}

// OnUpdate copies the computer's owner onto every component, releases them
// when owned and refreshes descriptions that drifted from the parent.
func (ComponentSynchronizer) OnUpdate(ctx context.Context, tx Tx, computer *models.Item) error {
	comps, err := tx.ComponentsOf(ctx, computer.ID)
	if err != nil {
		return fmt.Errorf("load components of computer %d: %w", computer.ID, err)
	}

	for i := range comps {
		c := &comps[i]
		changed := false

		if !sameID(c.OwnerID, computer.OwnerID) {
			c.OwnerID = copyID(computer.OwnerID)
			changed = true
		}
		if computer.OwnerID != nil && c.Status != models.StatusReleased {
			c.Status = models.StatusReleased
			changed = true
		}
		if v, ok := componentField(&computer.ItemFields, c.Kind); ok && v != c.Description {
			c.Description = v
			changed = true
		}

		if !changed {
			continue
		}
		if err := tx.SaveComponent(ctx, c); err != nil {
			return fmt.Errorf("save component %d: %w", c.ID, err)
		}
	}
	return nil
}

func copyID(id *int64) *int64 {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}

func sameID(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
