package dlob

import (
	"sync/atomic"
	"time"
)

// ExpiryBuffer is added to "now" before filtering expired orders out of
// L2/L3 snapshots and crossing-region reports, so an order a few
// seconds from expiring doesn't flicker in and out of the book between
// polls.
const ExpiryBuffer = 4 * time.Second

// Orderbook holds one market's containers plus its published snapshots.
// It is exclusively mutated by the DLOB event loop goroutine; reads of
// its snapshot fields happen from any goroutine via the atomic pointers
// in snapshot.go.
type Orderbook struct {
	MarketOrders  DynamicOrders[MarketEntry]
	OracleOrders  DynamicOrders[OracleEntry]
	RestingLimit  *Orders
	FloatingLimit DynamicOrders[FloatingLimitEntry]
	Trigger       *Orders

	l2Snapshot atomic.Pointer[L2Book]
	l3Snapshot atomic.Pointer[L3Book]

	MarketTickSize   uint64
	LastModifiedSlot uint64
	MarketIndex      uint16
}

func NewOrderbook(marketIndex uint16, tickSize uint64) *Orderbook {
	if tickSize == 0 {
		tickSize = 1
	}
	ob := &Orderbook{
		RestingLimit:   NewOrders(),
		Trigger:        NewOrders(),
		MarketTickSize: tickSize,
		MarketIndex:    marketIndex,
	}
	ob.l2Snapshot.Store(&L2Book{})
	ob.l3Snapshot.Store(&L3Book{})
	return ob
}

// UpdateSlotAndOraclePrice re-evaluates every dynamic order's price for
// the new (slot, oracle_price), expiring auctions first, then re-sorting
// and rebuilding the L2 snapshot. metadata receives the kind transitions
// auction expiry causes (LimitAuction -> Limit, FloatingLimitAuction ->
// FloatingLimit) and loses the entries for auctions that vanished
// outright; nil skips the bookkeeping for container-level tests.
func (ob *Orderbook) UpdateSlotAndOraclePrice(slot, oraclePrice uint64, metadata *metadataMap) {
	ob.expireAuctionOrders(slot, metadata)

	ob.MarketOrders.Sort(slot, oraclePrice, ob.MarketTickSize)
	ob.OracleOrders.Sort(slot, oraclePrice, ob.MarketTickSize)
	ob.FloatingLimit.Sort(slot, oraclePrice, ob.MarketTickSize)

	ob.publishL2(slot, oraclePrice)
	ob.LastModifiedSlot = slot
}

// expireAuctionOrders moves any limit-flavoured auction order whose
// window has closed into the corresponding resting container (if it
// still has size), or drops it outright (plain Market/Oracle orders
// always vanish once their auction ends). A moved order keeps its
// metadata with only the kind rewritten; a dropped order truly leaves
// the book, so its metadata goes with it.
func (ob *Orderbook) expireAuctionOrders(slot uint64, metadata *metadataMap) {
	setKind := func(id uint64, kind OrderKind) {
		if metadata == nil {
			return
		}
		if meta, ok := metadata.Get(id); ok {
			meta.Kind = kind
			metadata.Set(id, meta)
		}
	}
	dropMeta := func(id uint64) {
		if metadata != nil {
			metadata.Remove(id)
		}
	}

	expireMarketSide := func(isBid bool) {
		side := &ob.MarketOrders.Asks
		if isBid {
			side = &ob.MarketOrders.Bids
		}
		kept := (*side)[:0]
		for _, e := range *side {
			if e.Slot+uint64(e.Duration) <= slot {
				if e.IsLimit && e.Size > 0 {
					ob.RestingLimit.InsertRaw(isBid, StaticEntry{
						ID:    e.ID,
						Price: clampNonNegative(e.EndPrice),
						Size:  e.Size,
						Slot:  e.Slot,
						MaxTs: e.MaxTs,
					})
					setKind(e.ID, KindLimit)
				} else {
					dropMeta(e.ID)
				}
				continue
			}
			kept = append(kept, e)
		}
		*side = kept
		ob.MarketOrders.markDirty()
	}
	expireMarketSide(true)
	expireMarketSide(false)

	expireOracleSide := func(isBid bool) {
		side := &ob.OracleOrders.Asks
		if isBid {
			side = &ob.OracleOrders.Bids
		}
		kept := (*side)[:0]
		for _, e := range *side {
			if e.Slot+uint64(e.Duration) <= slot {
				if e.IsLimit && e.Size > 0 {
					ob.FloatingLimit.InsertRaw(isBid, FloatingLimitEntry{
						ID:     e.ID,
						Slot:   e.Slot,
						Offset: e.EndOffset,
						Size:   e.Size,
						MaxTs:  e.MaxTs,
					})
					setKind(e.ID, KindFloatingLimit)
				} else {
					dropMeta(e.ID)
				}
				continue
			}
			kept = append(kept, e)
		}
		*side = kept
		ob.OracleOrders.markDirty()
	}
	expireOracleSide(true)
	expireOracleSide(false)
}

func (ob *Orderbook) publishL2(slot, oraclePrice uint64) {
	book := buildL2Book(ob, slot, oraclePrice)
	ob.l2Snapshot.Store(book)
}

// PublishL3 rebuilds and publishes the L3 snapshot. Separate from
// UpdateSlotAndOraclePrice because building L3 requires the metadata map
// for maker identity, which the per-market Orderbook does not hold a
// reference to.
func (ob *Orderbook) PublishL3(slot, oraclePrice uint64, metadata *metadataMap) {
	book := buildL3Book(ob, slot, oraclePrice, metadata)
	ob.l3Snapshot.Store(book)
}

// L2 returns the most recently published L2 snapshot.
func (ob *Orderbook) L2() *L2Book { return ob.l2Snapshot.Load() }

// L3 returns the most recently published L3 snapshot.
func (ob *Orderbook) L3() *L3Book { return ob.l3Snapshot.Load() }

func nowUnixWithBuffer() int64 {
	return time.Now().Add(ExpiryBuffer).Unix()
}

// getLimitBids returns resting-limit + floating-limit bids as
// LimitOrderView, sorted best (highest price) first, skipping expired
// orders.
func (ob *Orderbook) getLimitBids(slot, oraclePrice uint64) []LimitOrderView {
	now := nowUnixWithBuffer()
	out := make([]LimitOrderView, 0, ob.RestingLimit.Bids.Len()+len(ob.FloatingLimit.Bids))
	for _, o := range ob.RestingLimit.BidItems() {
		if o.isExpired(now) {
			continue
		}
		out = append(out, LimitOrderView{ID: o.ID, Price: o.Price, Size: o.Size, PostOnly: o.PostOnly, Slot: o.Slot})
	}
	for _, o := range ob.FloatingLimit.Bids {
		if o.isExpired(now) {
			continue
		}
		out = append(out, LimitOrderView{
			ID: o.ID, Price: o.price(slot, oraclePrice, ob.MarketTickSize), Size: o.Size,
			PostOnly: o.PostOnly, Slot: o.Slot, Floating: true,
		})
	}
	sortLimitViews(out, true)
	return out
}

// getLimitAsks is getLimitBids's mirror: best (lowest price) first.
func (ob *Orderbook) getLimitAsks(slot, oraclePrice uint64) []LimitOrderView {
	now := nowUnixWithBuffer()
	out := make([]LimitOrderView, 0, ob.RestingLimit.Asks.Len()+len(ob.FloatingLimit.Asks))
	for _, o := range ob.RestingLimit.AskItems() {
		if o.isExpired(now) {
			continue
		}
		out = append(out, LimitOrderView{ID: o.ID, Price: o.Price, Size: o.Size, PostOnly: o.PostOnly, Slot: o.Slot})
	}
	for _, o := range ob.FloatingLimit.Asks {
		if o.isExpired(now) {
			continue
		}
		out = append(out, LimitOrderView{
			ID: o.ID, Price: o.price(slot, oraclePrice, ob.MarketTickSize), Size: o.Size,
			PostOnly: o.PostOnly, Slot: o.Slot, Floating: true,
		})
	}
	sortLimitViews(out, false)
	return out
}

// fillRestingLimit reduces a resting-limit order's size by fillSize,
// removing it outright if fully consumed. Returns whether the order is
// still live afterward.
func (ob *Orderbook) fillRestingLimit(isBid bool, id, price, fillSize uint64) bool {
	entry, ok := ob.RestingLimit.Get(isBid, price, id)
	if !ok {
		return false
	}
	newSize := entry.Size - fillSize
	entry.Size = newSize
	return ob.RestingLimit.Update(isBid, id, price, entry)
}

// fillFloatingLimit is fillRestingLimit's DynamicOrders counterpart.
func (ob *Orderbook) fillFloatingLimit(isBid bool, id, fillSize uint64) bool {
	entry, ok := ob.FloatingLimit.Find(isBid, id)
	if !ok {
		return false
	}
	entry.Size -= fillSize
	return ob.FloatingLimit.Update(isBid, id, entry)
}

func sortLimitViews(views []LimitOrderView, descending bool) {
	for i := 1; i < len(views); i++ {
		j := i
		for j > 0 {
			var swap bool
			if descending {
				swap = views[j].Price > views[j-1].Price
			} else {
				swap = views[j].Price < views[j-1].Price
			}
			if !swap {
				break
			}
			views[j], views[j-1] = views[j-1], views[j]
			j--
		}
	}
}

// takerCandidate is a synthesized taker quote from an auctioning or
// just-triggered order: its current live price plus remaining size.
type takerCandidate struct {
	ID    uint64
	Price uint64
	Size  uint64
}

// getTakerAsks returns market-auction, oracle-auction and
// about-to-trigger trigger asks as synthesized taker quotes, ascending
// by price (best/most aggressive taker first).
func (ob *Orderbook) getTakerAsks(slot, oraclePrice, triggerPrice uint64) []takerCandidate {
	out := make([]takerCandidate, 0, len(ob.MarketOrders.Asks)+len(ob.OracleOrders.Asks)+ob.Trigger.Asks.Len())
	for _, e := range ob.MarketOrders.Asks {
		out = append(out, takerCandidate{e.ID, e.price(slot, oraclePrice, ob.MarketTickSize), e.Size})
	}
	for _, e := range ob.OracleOrders.Asks {
		out = append(out, takerCandidate{e.ID, e.price(slot, oraclePrice, ob.MarketTickSize), e.Size})
	}
	for _, e := range ob.Trigger.AskItems() {
		if willTriggerAt(e, triggerPrice) {
			out = append(out, takerCandidate{e.ID, oraclePrice, e.Size})
		}
	}
	sortTakerCandidates(out, false)
	return out
}

// getTakerBids mirrors getTakerAsks, descending by price.
func (ob *Orderbook) getTakerBids(slot, oraclePrice, triggerPrice uint64) []takerCandidate {
	out := make([]takerCandidate, 0, len(ob.MarketOrders.Bids)+len(ob.OracleOrders.Bids)+ob.Trigger.Bids.Len())
	for _, e := range ob.MarketOrders.Bids {
		out = append(out, takerCandidate{e.ID, e.price(slot, oraclePrice, ob.MarketTickSize), e.Size})
	}
	for _, e := range ob.OracleOrders.Bids {
		out = append(out, takerCandidate{e.ID, e.price(slot, oraclePrice, ob.MarketTickSize), e.Size})
	}
	for _, e := range ob.Trigger.BidItems() {
		if willTriggerAt(e, triggerPrice) {
			out = append(out, takerCandidate{e.ID, oraclePrice, e.Size})
		}
	}
	sortTakerCandidates(out, true)
	return out
}

func sortTakerCandidates(cands []takerCandidate, descending bool) {
	for i := 1; i < len(cands); i++ {
		j := i
		for j > 0 {
			var swap bool
			if descending {
				swap = cands[j].Price > cands[j-1].Price
			} else {
				swap = cands[j].Price < cands[j-1].Price
			}
			if !swap {
				break
			}
			cands[j], cands[j-1] = cands[j-1], cands[j]
			j--
		}
	}
}

// willTriggerAt encodes the untriggered trigger-condition watch: an
// Above trigger fires once the reference price rises to or past
// TriggerPrice; a Below trigger fires once it falls to or below it.
// StaticEntry doesn't carry TriggerCondition directly (it's a plain
// (price,id) keyed record shared with resting-limit), so the watch
// direction rides on the entry's Slot field; see newTriggerEntry in
// dlob.go for how entries are constructed.
func willTriggerAt(e StaticEntry, triggerPrice uint64) bool {
	// e.Price holds the order's own TriggerPrice; e.Slot's high bit
	// records the watch direction (Above=1).
	isAbove := e.Slot&triggerAboveBit != 0
	if isAbove {
		return triggerPrice >= e.Price
	}
	return triggerPrice <= e.Price
}

// triggerAboveBit is an unrealistic slot value (2^63) used as a tag bit
// on Trigger container entries' Slot field, see newTriggerEntry in
// dlob.go. Order slots never reach this magnitude in any real chain, so
// this never collides with a genuine creation slot.
const triggerAboveBit = uint64(1) << 63
