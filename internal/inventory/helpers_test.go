package inventory_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"itam-api/internal/inventory"
	"itam-api/internal/models"
	"itam-api/internal/store/memstore"
)

var fixedNow = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

type countingRecorder struct {
	ledgerOps map[string]int
	transfers map[models.ItemKind]int
	imports   map[string]int
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{
		ledgerOps: map[string]int{},
		transfers: map[models.ItemKind]int{},
		imports:   map[string]int{},
	}
}

func (r *countingRecorder) LedgerOp(op string)                        { r.ledgerOps[op]++ }
func (r *countingRecorder) OwnershipTransferred(kind models.ItemKind) { r.transfers[kind]++ }
func (r *countingRecorder) ImportRow(outcome string)                  { r.imports[outcome]++ }

type fixture struct {
	svc      *inventory.Service
	store    *memstore.Store
	recorder *countingRecorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memstore.New()
	rec := newCountingRecorder()
	svc := inventory.NewService(store, inventory.Options{
		Recorder: rec,
		Now:      func() time.Time { return fixedNow },
	})
	return &fixture{svc: svc, store: store, recorder: rec}
}

func (f *fixture) user(t *testing.T, name string) *models.User {
	t.Helper()
	u := &models.User{Name: name, Company: "AcmeCo", Department: "IT"}
	require.NoError(t, f.svc.CreateUser(context.Background(), u))
	return u
}

func (f *fixture) asset(t *testing.T, barcode string, owner *models.User) *models.Item {
	t.Helper()
	var ownerID *int64
	if owner != nil {
		ownerID = &owner.ID
	}
	it, err := f.svc.CreateItem(context.Background(), models.ItemFields{
		Type:    "Monitor",
		Barcode: barcode,
		Brand:   "Dell",
		Cost:    decimal.RequireFromString("120.50"),
	}, ownerID)
	require.NoError(t, err)
	require.Equal(t, models.KindAsset, it.Kind)
	return it
}

func (f *fixture) computer(t *testing.T, barcode string, owner *models.User, fields models.ItemFields) *models.Item {
	t.Helper()
	var ownerID *int64
	if owner != nil {
		ownerID = &owner.ID
	}
	fields.Type = "Laptop"
	fields.Barcode = barcode
	it, err := f.svc.CreateItem(context.Background(), fields, ownerID)
	require.NoError(t, err)
	require.Equal(t, models.KindComputer, it.Kind)
	return it
}

func (f *fixture) ledgerOf(t *testing.T, ownerID int64) *models.Ledger {
	t.Helper()
	l, err := f.store.GetLedgerByOwner(context.Background(), ownerID)
	require.NoError(t, err)
	return l
}

func (f *fixture) noLedger(t *testing.T, ownerID int64) {
	t.Helper()
	_, err := f.store.GetLedgerByOwner(context.Background(), ownerID)
	require.ErrorIs(t, err, inventory.ErrNotFound)
}
