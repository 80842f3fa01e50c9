package inventory_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"itam-api/internal/inventory"
	"itam-api/internal/models"
)

func TestDeleteItem_RemovesFromLedger(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	alice := f.user(t, "Alice")
	a3 := f.asset(t, "BC-3", alice)
	a7 := f.asset(t, "BC-7", alice)
	a9 := f.asset(t, "BC-9", alice)

	require.NoError(t, f.svc.DeleteItem(ctx, a7.ID))

	assert.Equal(t, models.IDSet{a3.ID, a9.ID}, f.ledgerOf(t, alice.ID).AssetIDs)

	view, err := f.svc.GetItem(ctx, a7.ID, 0)
	require.NoError(t, err)
	assert.True(t, view.IsDeleted)
	assert.True(t, view.HasOwner(alice.ID))
}

func TestDeleteItem_ExactIDMatch(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	alice := f.user(t, "Alice")

	var ids []int64
	for i := 0; i < 12; i++ {
		ids = append(ids, f.asset(t, "BC", alice).ID)
	}
	require.Equal(t, int64(1), ids[0])
	require.Equal(t, int64(12), ids[11])

	require.NoError(t, f.svc.DeleteItem(ctx, 1))

	l := f.ledgerOf(t, alice.ID)
	assert.False(t, l.AssetIDs.Contains(1))
	assert.True(t, l.AssetIDs.Contains(12))
	assert.True(t, l.AssetIDs.Contains(11))
	assert.Len(t, l.AssetIDs, 11)
}

func TestDeleteItem_LastItemClosesLedger(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	alice := f.user(t, "Alice")
	laptop := f.computer(t, "PC-1", alice, models.ItemFields{})

	require.NoError(t, f.svc.DeleteItem(ctx, laptop.ID))
	f.noLedger(t, alice.ID)

	// A new ledger gets fresh codes; old ones are never reused.
	f.asset(t, "BC-2", alice)
	l := f.ledgerOf(t, alice.ID)
	assert.Equal(t, "ACID-0002", l.AccountabilityCode)
	assert.Equal(t, "TRID-0002", l.TrackingCode)
}

func TestDeleteItem_Errors(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	alice := f.user(t, "Alice")
	bob := f.user(t, "Bob")
	asset := f.asset(t, "BC-1", alice)

	assert.ErrorIs(t, f.svc.DeleteItem(ctx, 404), inventory.ErrNotFound)

	require.NoError(t, f.svc.DeleteItem(ctx, asset.ID))
	assert.ErrorIs(t, f.svc.DeleteItem(ctx, asset.ID), inventory.ErrConflict)

	_, err := f.svc.AssignOwner(ctx, asset.ID, bob.ID)
	assert.ErrorIs(t, err, inventory.ErrConflict)
	f.noLedger(t, bob.ID)

	_, err = f.svc.UpdateItem(ctx, asset.ID, models.ItemFields{Type: "Monitor", Barcode: "BC-1"}, nil)
	assert.ErrorIs(t, err, inventory.ErrConflict)
}

func TestDeleteItem_VacantItem(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	asset := f.asset(t, "BC-1", nil)

	require.NoError(t, f.svc.DeleteItem(ctx, asset.ID))

	items, total, err := f.svc.ListItems(ctx, inventory.ItemFilter{})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, items)

	_, total, err = f.svc.ListItems(ctx, inventory.ItemFilter{IncludeDeleted: true})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
}
