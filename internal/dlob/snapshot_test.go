package dlob

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestBuildL2Book_AggregatesAcrossContainers: a resting limit, a
// floating limit and a live market-auction bid sharing one price level
// sum into a single L2 entry, with no double counting.
func TestBuildL2Book_AggregatesAcrossContainers(t *testing.T) {
	ob := NewOrderbook(0, 1)

	ob.RestingLimit.InsertRaw(true, StaticEntry{ID: 1, Price: 100, Size: 5})
	// Floating bid at oracle 90 + offset 10 = 100.
	ob.FloatingLimit.InsertRaw(true, FloatingLimitEntry{ID: 2, Offset: 10, Size: 3})
	// Completed-auction market bid pinned at its end price 100.
	ob.MarketOrders.InsertRaw(true, MarketEntry{ID: 3, StartPrice: 100, EndPrice: 100, Size: 2})
	// An ask well away from the bids.
	ob.RestingLimit.InsertRaw(false, StaticEntry{ID: 4, Price: 110, Size: 7})

	book := buildL2Book(ob, 5, 90)

	require.Len(t, book.Bids, 1)
	assert.Equal(t, uint64(100), book.Bids[0].Price)
	assert.Equal(t, uint64(10), book.Bids[0].Size, "5 resting + 3 floating + 2 auction at one level")

	require.Len(t, book.Asks, 1)
	assert.Equal(t, uint64(110), book.Asks[0].Price)
	assert.Equal(t, uint64(5), book.Slot, "snapshot carries the build slot")
	assert.Equal(t, uint64(90), book.OraclePrice)
}

func TestBuildL2Book_SkipsExpiredOrders(t *testing.T) {
	ob := NewOrderbook(0, 1)
	ob.RestingLimit.InsertRaw(true, StaticEntry{ID: 1, Price: 100, Size: 5, MaxTs: 1})
	ob.MarketOrders.InsertRaw(true, MarketEntry{ID: 2, StartPrice: 90, EndPrice: 90, Size: 2, MaxTs: 1})

	book := buildL2Book(ob, 1, 0)
	assert.Empty(t, book.Bids, "orders past MaxTs never reach the snapshot")
}

// TestBuildL3Book: L3 lists only resting and floating limit orders,
// maker identity attached, and silently drops an entry whose metadata
// vanished mid-read.
func TestBuildL3Book(t *testing.T) {
	ob := NewOrderbook(0, 1)
	metadata := newMetadataMap()
	maker := testUser(1)

	ob.RestingLimit.InsertRaw(true, StaticEntry{ID: 1, Price: 100, Size: 5})
	ob.FloatingLimit.InsertRaw(false, FloatingLimitEntry{ID: 2, Offset: 5, Size: 3})
	ob.MarketOrders.InsertRaw(true, MarketEntry{ID: 3, StartPrice: 100, EndPrice: 100, Size: 2})
	metadata.Set(1, OrderMetadata{User: maker, Kind: KindLimit})
	metadata.Set(2, OrderMetadata{User: maker, Kind: KindFloatingLimit})
	// id 3 is an auction order: not part of L3 regardless of metadata.

	book := buildL3Book(ob, 4, 100, metadata)

	require.Len(t, book.Bids, 1)
	assert.Equal(t, uint64(1), book.Bids[0].ID)
	assert.Equal(t, maker, book.Bids[0].Maker)

	require.Len(t, book.Asks, 1)
	assert.Equal(t, uint64(2), book.Asks[0].ID)
	assert.Equal(t, uint64(105), book.Asks[0].Price, "floating ask priced off the oracle")

	// A maker whose metadata disappeared is dropped, not zero-valued.
	metadata.Remove(1)
	book = buildL3Book(ob, 4, 100, metadata)
	assert.Empty(t, book.Bids)
}
