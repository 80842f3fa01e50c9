package inventory

import (
	"context"
	"errors"
	"fmt"

	"itam-api/internal/models"
)

// TransferOrchestrator moves an item between owners.
type TransferOrchestrator struct {
	ledgers  *LedgerManager
	recorder Recorder
}

// Transfer reassigns item to newOwnerID inside tx. Nothing happens when the
// item already belongs to newOwnerID. Otherwise the previous owner's display
// name is appended to the history, the item leaves the previous owner's
// ledger and joins the new owner's, and the owner field is set. The caller
// persists the item.
func (o *TransferOrchestrator) Transfer(ctx context.Context, tx Tx, item *models.Item, newOwnerID int64) (bool, error) {
	if item.HasOwner(newOwnerID) {
		return false, nil
	}
	if _, err := tx.GetUser(ctx, newOwnerID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, notFoundf("owner %d", newOwnerID)
		}
		return false, err
	}
	ref := item.Ref()

	if prev := item.OwnerID; prev != nil {
		name := models.UnknownOwner
		owner, err := tx.GetUser(ctx, *prev)
		switch {
		case err == nil:
			name = owner.DisplayName()
		case !errors.Is(err, ErrNotFound):
			return false, err
		}
		item.History = append(item.History, name)

		old, err := tx.LockLedgerByOwner(ctx, *prev)
		switch {
		case err == nil:
			if _, err := o.ledgers.RemoveItem(ctx, tx, old, ref); err != nil {
				return false, err
			}
		case !errors.Is(err, ErrNotFound):
			return false, err
		}
	}

	l, err := o.ledgers.EnsureLedger(ctx, tx, newOwnerID)
	if err != nil {
		return false, err
	}
	if err := o.ledgers.AddItem(ctx, tx, l, ref); err != nil {
		return false, err
	}

	from := "vacant"
	if item.OwnerID != nil {
		from = fmt.Sprintf("user %d", *item.OwnerID)
	}
	owner := newOwnerID
	item.OwnerID = &owner

	if err := appendLog(ctx, tx, models.SubjectItem, item.ID, "Owner Assigned",
		fmt.Sprintf("%s %d moved from %s to user %d (ledger %s).", item.Kind, item.ID, from, newOwnerID, l.AccountabilityCode)); err != nil {
		return false, err
	}
	o.recorder.OwnershipTransferred(item.Kind)
	return true, nil
}
