package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"itam-api/internal/models"
)

// SoftDeleter retires items. Rows are flagged, never removed.
type SoftDeleter struct {
	ledgers *LedgerManager
	now     func() time.Time
}

// Delete flags the item as deleted and removes it from whichever ledger
// holds it. Deleting twice is a conflict.
func (d *SoftDeleter) Delete(ctx context.Context, tx Tx, itemID int64) (*models.Item, error) {
	item, err := tx.LockItem(ctx, itemID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, notFoundf("item %d", itemID)
		}
		return nil, err
	}
	if item.IsDeleted {
		return nil, conflictf("item %d is already deleted", itemID)
	}

	now := d.now()
	item.IsDeleted = true
	item.ModifiedAt = &now
	if err := tx.SaveItem(ctx, item); err != nil {
		return nil, fmt.Errorf("save item %d: %w", itemID, err)
	}

	l, err := tx.LockLedgerHolding(ctx, item.Ref())
	switch {
	case err == nil:
		if _, err := d.ledgers.RemoveItem(ctx, tx, l, item.Ref()); err != nil {
			return nil, err
		}
	case !errors.Is(err, ErrNotFound):
		return nil, err
	}

	if err := appendLog(ctx, tx, models.SubjectItem, item.ID, "Deleted",
		fmt.Sprintf("%s %d (barcode %s) retired.", item.Kind, item.ID, item.Barcode)); err != nil {
		return nil, err
	}
	return item, nil
}
