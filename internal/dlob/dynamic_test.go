package dlob

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDynamicOrders_InsertSortMarksClean(t *testing.T) {
	var d DynamicOrders[MarketEntry]
	assert.False(t, d.IsDirty())

	d.InsertRaw(true, MarketEntry{ID: 1, StartPrice: 100, EndPrice: 100, Size: 10})
	assert.True(t, d.IsDirty())

	d.Sort(0, 0, 1)
	assert.False(t, d.IsDirty())
}

func TestDynamicOrders_SortOrdersByLivePrice(t *testing.T) {
	var d DynamicOrders[MarketEntry]
	// Three bids with distinct completed-auction (duration 0) prices;
	// descending sort should put the highest price first.
	d.InsertRaw(true, MarketEntry{ID: 1, StartPrice: 100, EndPrice: 100, Size: 1})
	d.InsertRaw(true, MarketEntry{ID: 2, StartPrice: 300, EndPrice: 300, Size: 1})
	d.InsertRaw(true, MarketEntry{ID: 3, StartPrice: 200, EndPrice: 200, Size: 1})

	d.Sort(0, 0, 1)
	require.Len(t, d.Bids, 3)
	assert.Equal(t, uint64(2), d.Bids[0].ID)
	assert.Equal(t, uint64(3), d.Bids[1].ID)
	assert.Equal(t, uint64(1), d.Bids[2].ID)
}

func TestDynamicOrders_SortIsIdempotent(t *testing.T) {
	var d DynamicOrders[MarketEntry]
	d.InsertRaw(true, MarketEntry{ID: 1, StartPrice: 100, EndPrice: 100, Size: 1})
	d.InsertRaw(true, MarketEntry{ID: 2, StartPrice: 300, EndPrice: 300, Size: 1})
	d.InsertRaw(true, MarketEntry{ID: 3, StartPrice: 300, EndPrice: 300, Size: 1})

	d.Sort(0, 0, 1)
	first := append([]MarketEntry(nil), d.Bids...)

	d.markDirty()
	d.Sort(0, 0, 1)
	assert.Equal(t, first, d.Bids, "re-sorting at the same (slot, oracle) preserves order")
}

func TestDynamicOrders_RemoveMissReturnsFalse(t *testing.T) {
	var d DynamicOrders[MarketEntry]
	d.InsertRaw(true, MarketEntry{ID: 1, Size: 1})
	assert.False(t, d.Remove(true, 999))
	assert.True(t, d.Remove(true, 1))
	assert.Empty(t, d.Bids)
}

func TestDynamicOrders_UpdateFallsBackWhenMissingOrZeroSize(t *testing.T) {
	var d DynamicOrders[MarketEntry]
	d.InsertRaw(true, MarketEntry{ID: 1, Size: 10})

	// Updating with zero remaining size removes without reinserting, and
	// reports false so the caller knows the order is gone from here.
	ok := d.Update(true, 1, MarketEntry{ID: 1, Size: 0})
	assert.False(t, ok)
	assert.Empty(t, d.Bids)

	// Updating an id that was never there also reports false.
	ok = d.Update(true, 2, MarketEntry{ID: 2, Size: 5})
	assert.False(t, ok)
}

func TestDynamicOrders_Find(t *testing.T) {
	var d DynamicOrders[MarketEntry]
	d.InsertRaw(false, MarketEntry{ID: 1, Size: 7})

	entry, ok := d.Find(false, 1)
	require.True(t, ok)
	assert.Equal(t, uint64(7), entry.Size)

	_, ok = d.Find(false, 2)
	assert.False(t, ok)
}

func TestMarketAuctionPrice_Interpolation(t *testing.T) {
	// Halfway through a 10-slot auction from 100 to 200.
	price := marketAuctionPrice(100, 200, 0, 10, 5, 1)
	assert.Equal(t, uint64(150), price)

	// Before the auction starts: clamp to start.
	price = marketAuctionPrice(100, 200, 10, 10, 5, 1)
	assert.Equal(t, uint64(100), price)

	// After the auction completes: clamp to end.
	price = marketAuctionPrice(100, 200, 0, 10, 999, 1)
	assert.Equal(t, uint64(200), price)
}

func TestStandardize_RoundsUpToTick(t *testing.T) {
	assert.Equal(t, uint64(100), standardize(100, 10))
	assert.Equal(t, uint64(110), standardize(101, 10))
	assert.Equal(t, uint64(110), standardize(109, 10))
	assert.Equal(t, uint64(55), standardize(55, 1))
}
