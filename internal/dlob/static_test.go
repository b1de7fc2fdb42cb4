package dlob

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrders_BidAskOrdering(t *testing.T) {
	o := NewOrders()
	o.InsertRaw(true, StaticEntry{ID: 1, Price: 100, Size: 1})
	o.InsertRaw(true, StaticEntry{ID: 2, Price: 105, Size: 1})
	o.InsertRaw(true, StaticEntry{ID: 3, Price: 105, Size: 1}) // tie on price, lower id wins

	bids := o.BidItems()
	require.Len(t, bids, 3)
	assert.Equal(t, uint64(105), bids[0].Price)
	assert.Equal(t, uint64(2), bids[0].ID, "equal-priced bids tie-break on ascending internal order id")
	assert.Equal(t, uint64(105), bids[1].Price)
	assert.Equal(t, uint64(3), bids[1].ID)
	assert.Equal(t, uint64(100), bids[2].Price)

	o.InsertRaw(false, StaticEntry{ID: 4, Price: 110, Size: 1})
	o.InsertRaw(false, StaticEntry{ID: 5, Price: 108, Size: 1})
	asks := o.AskItems()
	require.Len(t, asks, 2)
	assert.Equal(t, uint64(108), asks[0].Price, "asks sort ascending, best (lowest) first")
	assert.Equal(t, uint64(110), asks[1].Price)
}

func TestOrders_RemoveMissIsFalse(t *testing.T) {
	o := NewOrders()
	assert.False(t, o.Remove(true, 100, 999))
}

func TestOrders_UpdateMovesPriceKey(t *testing.T) {
	o := NewOrders()
	o.InsertRaw(true, StaticEntry{ID: 1, Price: 100, Size: 10})

	ok := o.Update(true, 1, 100, StaticEntry{ID: 1, Price: 150, Size: 5})
	require.True(t, ok)

	_, foundOld := o.Get(true, 100, 1)
	assert.False(t, foundOld)

	entry, foundNew := o.Get(true, 150, 1)
	require.True(t, foundNew)
	assert.Equal(t, uint64(5), entry.Size)
}

func TestOrders_UpdateToZeroSizeDropsEntry(t *testing.T) {
	o := NewOrders()
	o.InsertRaw(true, StaticEntry{ID: 1, Price: 100, Size: 10})

	ok := o.Update(true, 1, 100, StaticEntry{ID: 1, Price: 100, Size: 0})
	require.True(t, ok, "Update reports the old key was found even though it isn't reinserted")

	bids, _ := o.Len()
	assert.Equal(t, 0, bids)
}

func TestOrders_Len(t *testing.T) {
	o := NewOrders()
	o.InsertRaw(true, StaticEntry{ID: 1, Price: 100, Size: 1})
	o.InsertRaw(false, StaticEntry{ID: 2, Price: 200, Size: 1})
	o.InsertRaw(false, StaticEntry{ID: 3, Price: 201, Size: 1})

	bids, asks := o.Len()
	assert.Equal(t, 1, bids)
	assert.Equal(t, 2, asks)
}
