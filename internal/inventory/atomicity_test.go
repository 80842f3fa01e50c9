package inventory_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"itam-api/internal/inventory"
	"itam-api/internal/models"
	"itam-api/internal/store/memstore"
)

var errDiskFull = errors.New("disk full")

// flakyStore fails AddLedgerItem while armed.
type flakyStore struct {
	*memstore.Store
	armed bool
}

func (s *flakyStore) WithTx(ctx context.Context, fn func(tx inventory.Tx) error) error {
	return s.Store.WithTx(ctx, func(tx inventory.Tx) error {
		if s.armed {
			tx = flakyTx{tx}
		}
		return fn(tx)
	})
}

type flakyTx struct {
	inventory.Tx
}

func (flakyTx) AddLedgerItem(context.Context, int64, models.ItemRef) error {
	return errDiskFull
}

func TestCreateItem_RollsBackOnStoreFailure(t *testing.T) {
	ctx := context.Background()
	store := &flakyStore{Store: memstore.New()}
	svc := inventory.NewService(store, inventory.Options{})

	alice := &models.User{Name: "Alice"}
	require.NoError(t, svc.CreateUser(ctx, alice))

	store.armed = true
	_, err := svc.CreateItem(ctx, models.ItemFields{Type: "Laptop", Barcode: "PC-1", RAM: "8GB"}, &alice.ID)
	require.ErrorIs(t, err, inventory.ErrPersistence)
	assert.ErrorIs(t, err, errDiskFull)
	assert.Equal(t, "internal server error", inventory.PublicMessage(err))

	_, total, err := svc.ListItems(ctx, inventory.ItemFilter{IncludeDeleted: true})
	require.NoError(t, err)
	assert.Zero(t, total)
	comps, err := store.Components(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, comps)
	_, err = store.GetLedgerByOwner(ctx, alice.ID)
	assert.ErrorIs(t, err, inventory.ErrNotFound)

	store.armed = false
	_, err = svc.CreateItem(ctx, models.ItemFields{Type: "Laptop", Barcode: "PC-1"}, &alice.ID)
	require.NoError(t, err)
	l, err := store.GetLedgerByOwner(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "ACID-0001", l.AccountabilityCode, "counter increments were rolled back")
}

func TestAssignOwner_RollsBackOnStoreFailure(t *testing.T) {
	ctx := context.Background()
	store := &flakyStore{Store: memstore.New()}
	svc := inventory.NewService(store, inventory.Options{})

	alice := &models.User{Name: "Alice"}
	bob := &models.User{Name: "Bob"}
	require.NoError(t, svc.CreateUser(ctx, alice))
	require.NoError(t, svc.CreateUser(ctx, bob))
	asset, err := svc.CreateItem(ctx, models.ItemFields{Type: "Monitor", Barcode: "BC-1"}, &alice.ID)
	require.NoError(t, err)

	store.armed = true
	_, err = svc.AssignOwner(ctx, asset.ID, bob.ID)
	require.ErrorIs(t, err, inventory.ErrPersistence)

	view, err := svc.GetItem(ctx, asset.ID, 0)
	require.NoError(t, err)
	assert.True(t, view.HasOwner(alice.ID))
	assert.Empty(t, view.History)

	l, err := store.GetLedgerByOwner(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, models.IDSet{asset.ID}, l.AssetIDs)
	_, err = store.GetLedgerByOwner(ctx, bob.ID)
	assert.ErrorIs(t, err, inventory.ErrNotFound)
}

func TestImportBatch_StopsOnPersistenceFailure(t *testing.T) {
	ctx := context.Background()
	store := &flakyStore{Store: memstore.New()}
	svc := inventory.NewService(store, inventory.Options{})

	store.armed = true
	res, err := svc.ImportBatch(ctx, []inventory.ImportRow{
		{Line: 3, Fields: models.ItemFields{Type: "Monitor", Barcode: "BC1"}},
		aliceRow(4, "Monitor", "BC2"),
		aliceRow(5, "Monitor", "BC3"),
	})
	require.ErrorIs(t, err, inventory.ErrPersistence)
	require.Len(t, res.Created, 1, "the vacant row never touches a ledger")

	_, total, err := svc.ListItems(ctx, inventory.ItemFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	_, total, err = svc.ListUsers(ctx, "", inventory.Page{})
	require.NoError(t, err)
	assert.Zero(t, total)
}
