package dlob

import "github.com/fenrir-dlob/dlob/internal/common"

// LimitOrderView is a single resting order's public-facing price/size,
// shared by L2 aggregation and the taker-side cross engine's limit book
// view.
type LimitOrderView struct {
	ID       uint64
	Price    uint64
	Size     uint64
	PostOnly bool
	Slot     uint64
	Floating bool
}

// L2PriceLevel is one aggregated price point in an L2Book: every live
// order at that price summed into a single size.
type L2PriceLevel struct {
	Price uint64
	Size  uint64
}

// L2Book is the read-only, atomically-published price-aggregated
// snapshot for one market. It is rebuilt wholesale on every
// UpdateSlotAndOraclePrice call and swapped in via atomic.Pointer, so
// readers never observe a torn or partially-updated book.
type L2Book struct {
	Bids        []L2PriceLevel
	Asks        []L2PriceLevel
	Slot        uint64
	OraclePrice uint64
}

// L3Order is a single order's full public identity within an L3Book:
// price, remaining size, and which account owns it.
type L3Order struct {
	ID       uint64
	Price    uint64
	Size     uint64
	Maker    common.User
	PostOnly bool
}

// L3Book is the per-order snapshot: every resting-limit and
// floating-limit order, best price first, maker identity attached.
// Equal-priced resting orders are ordered by internal order id, not by
// age.
type L3Book struct {
	Bids        []L3Order
	Asks        []L3Order
	Slot        uint64
	OraclePrice uint64
}

// buildL2Book walks four containers at the current (slot, oracle):
// resting and floating limits via the shared limit view, plus the live
// interpolated prices of every market- and oracle-auction order.
// Untriggered orders waiting in the Trigger container are not included.
// Expired orders are filtered by every contributing path.
func buildL2Book(ob *Orderbook, slot, oraclePrice uint64) *L2Book {
	now := nowUnixWithBuffer()
	bids := ob.getLimitBids(slot, oraclePrice)
	asks := ob.getLimitAsks(slot, oraclePrice)

	appendDynamic := func(views []LimitOrderView, entries []MarketEntry) []LimitOrderView {
		for _, e := range entries {
			if e.isExpired(now) {
				continue
			}
			views = append(views, LimitOrderView{
				ID: e.ID, Price: e.price(slot, oraclePrice, ob.MarketTickSize),
				Size: e.Size, Slot: e.Slot,
			})
		}
		return views
	}
	appendOracle := func(views []LimitOrderView, entries []OracleEntry) []LimitOrderView {
		for _, e := range entries {
			if e.isExpired(now) {
				continue
			}
			views = append(views, LimitOrderView{
				ID: e.ID, Price: e.price(slot, oraclePrice, ob.MarketTickSize),
				Size: e.Size, Slot: e.Slot,
			})
		}
		return views
	}

	bids = appendDynamic(bids, ob.MarketOrders.Bids)
	bids = appendOracle(bids, ob.OracleOrders.Bids)
	asks = appendDynamic(asks, ob.MarketOrders.Asks)
	asks = appendOracle(asks, ob.OracleOrders.Asks)

	sortLimitViews(bids, true)
	sortLimitViews(asks, false)

	return &L2Book{
		Bids:        aggregateByPrice(bids),
		Asks:        aggregateByPrice(asks),
		Slot:        slot,
		OraclePrice: oraclePrice,
	}
}

// aggregateByPrice collapses same-price LimitOrderViews into a single
// L2PriceLevel per price, preserving the input's price priority order
// since buildL2Book sorts it before passing it in.
func aggregateByPrice(views []LimitOrderView) []L2PriceLevel {
	out := make([]L2PriceLevel, 0, len(views))
	for _, v := range views {
		if n := len(out); n > 0 && out[n-1].Price == v.Price {
			out[n-1].Size += v.Size
			continue
		}
		out = append(out, L2PriceLevel{Price: v.Price, Size: v.Size})
	}
	return out
}

func buildL3Book(ob *Orderbook, slot, oraclePrice uint64, metadata *metadataMap) *L3Book {
	bids := ob.getLimitBids(slot, oraclePrice)
	asks := ob.getLimitAsks(slot, oraclePrice)
	return &L3Book{
		Bids:        attachMakers(bids, metadata),
		Asks:        attachMakers(asks, metadata),
		Slot:        slot,
		OraclePrice: oraclePrice,
	}
}

func attachMakers(views []LimitOrderView, metadata *metadataMap) []L3Order {
	out := make([]L3Order, 0, len(views))
	for _, v := range views {
		meta, ok := metadata.Get(v.ID)
		if !ok {
			// Metadata was removed concurrently with this read (the
			// order's cancel event hadn't yet reached this container).
			// Drop it from the snapshot rather than surface a zero-value
			// maker identity.
			continue
		}
		out = append(out, L3Order{
			ID: v.ID, Price: v.Price, Size: v.Size, Maker: meta.User, PostOnly: v.PostOnly,
		})
	}
	return out
}
