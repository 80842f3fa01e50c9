package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"itam-api/internal/models"
)

// LedgerManager owns the per-owner accountability ledgers. A ledger exists
// exactly while at least one item is recorded in it.
type LedgerManager struct {
	codes    CodeGenerator
	recorder Recorder
	log      zerolog.Logger
}

// NewLedgerManager returns a manager reporting to recorder.
func NewLedgerManager(recorder Recorder, log zerolog.Logger) *LedgerManager {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &LedgerManager{recorder: recorder, log: log}
}

// EnsureLedger returns the owner's ledger, creating it with fresh codes and
// empty sets when none exists. The owner row is locked first so two
// transactions cannot both create a ledger for the same owner.
func (m *LedgerManager) EnsureLedger(ctx context.Context, tx Tx, ownerID int64) (*models.Ledger, error) {
	if _, err := tx.LockUser(ctx, ownerID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, notFoundf("owner %d", ownerID)
		}
		return nil, err
	}

	l, err := tx.LockLedgerByOwner(ctx, ownerID)
	if err == nil {
		return l, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	acid, err := m.codes.Next(ctx, tx, AccountabilityCode)
	if err != nil {
		return nil, err
	}
	trid, err := m.codes.Next(ctx, tx, TrackingCode)
	if err != nil {
		return nil, err
	}

	l = &models.Ledger{OwnerID: ownerID, AccountabilityCode: acid, TrackingCode: trid}
	if err := tx.CreateLedger(ctx, l); err != nil {
		return nil, fmt.Errorf("create ledger: %w", err)
	}
	if err := appendLog(ctx, tx, models.SubjectLedger, l.ID, "Ledger Created",
		fmt.Sprintf("Ledger %s/%s opened for user %d.", acid, trid, ownerID)); err != nil {
		return nil, err
	}

	m.recorder.LedgerOp("create")
	m.log.Debug().Int64("owner_id", ownerID).Str("accountability_code", acid).
		Str("tracking_code", trid).Msg("ledger created")
	return l, nil
}

// AddItem records ref in l. Adding an item that is already present is a
// no-op. If drift left the item in another ledger, it is moved.
func (m *LedgerManager) AddItem(ctx context.Context, tx Tx, l *models.Ledger, ref models.ItemRef) error {
	if l.Contains(ref) {
		return nil
	}

	other, err := tx.LockLedgerHolding(ctx, ref)
	switch {
	case err == nil && other.ID != l.ID:
		m.log.Warn().Int64("item_id", ref.ID).Int64("ledger_id", other.ID).
			Msg("item found in another ledger; moving it")
		if _, err := m.RemoveItem(ctx, tx, other, ref); err != nil {
			return err
		}
	case err == nil:
		// Loaded set was stale; the row is already there.
		l.Set(ref.Kind).Add(ref.ID)
		return nil
	case !errors.Is(err, ErrNotFound):
		return err
	}

	if err := tx.AddLedgerItem(ctx, l.ID, ref); err != nil {
		return fmt.Errorf("add %s %d to ledger %d: %w", ref.Kind, ref.ID, l.ID, err)
	}
	l.Set(ref.Kind).Add(ref.ID)
	m.recorder.LedgerOp("add")
	return nil
}

// RemoveItem drops ref from l by exact id match and deletes the ledger when
// both sets end up empty. It reports whether the ledger was deleted.
func (m *LedgerManager) RemoveItem(ctx context.Context, tx Tx, l *models.Ledger, ref models.ItemRef) (bool, error) {
	if l.Set(ref.Kind).Remove(ref.ID) {
		if err := tx.RemoveLedgerItem(ctx, l.ID, ref); err != nil {
			return false, fmt.Errorf("remove %s %d from ledger %d: %w", ref.Kind, ref.ID, l.ID, err)
		}
		m.recorder.LedgerOp("remove")
	}

	if !l.Empty() {
		return false, nil
	}
	if err := tx.DeleteLedger(ctx, l.ID); err != nil {
		return false, fmt.Errorf("delete ledger %d: %w", l.ID, err)
	}
	if err := appendLog(ctx, tx, models.SubjectLedger, l.ID, "Ledger Closed",
		fmt.Sprintf("Ledger %s/%s closed for user %d.", l.AccountabilityCode, l.TrackingCode, l.OwnerID)); err != nil {
		return false, err
	}
	m.recorder.LedgerOp("delete")
	m.log.Debug().Int64("owner_id", l.OwnerID).Str("accountability_code", l.AccountabilityCode).
		Msg("ledger deleted")
	return true, nil
}
