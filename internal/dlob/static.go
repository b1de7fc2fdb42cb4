package dlob

import "github.com/tidwall/btree"

// StaticEntry is the fixed-field order record for resting limit orders
// and waiting trigger orders. Both shapes are identical in Go: the Orders
// container's caller decides whether Price means "limit price" or
// "trigger price".
type StaticEntry struct {
	ID       uint64
	Price    uint64
	Size     uint64
	Slot     uint64
	MaxTs    int64
	PostOnly bool
}

func (e StaticEntry) isExpired(nowUnixS int64) bool {
	return e.MaxTs != 0 && e.MaxTs < nowUnixS
}

// staticLessAsc orders ask entries by (price, internal_order_id)
// ascending, so equal-priced orders stay individually addressable.
func staticLessAsc(a, b StaticEntry) bool {
	if a.Price != b.Price {
		return a.Price < b.Price
	}
	return a.ID < b.ID
}

// staticLessDesc orders bids by price descending, with the same
// (price, id) tie-break rule but applied to a reversed price ordering.
func staticLessDesc(a, b StaticEntry) bool {
	if a.Price != b.Price {
		return a.Price > b.Price
	}
	return a.ID < b.ID
}

// Orders holds two btree-ordered maps of StaticEntry, one per side,
// keyed by (price, internal_order_id) so every O(log n) operation can
// address a specific order even when many orders share a price.
type Orders struct {
	Bids *btree.BTreeG[StaticEntry]
	Asks *btree.BTreeG[StaticEntry]
}

func NewOrders() *Orders {
	return &Orders{
		Bids: btree.NewBTreeG(staticLessDesc),
		Asks: btree.NewBTreeG(staticLessAsc),
	}
}

// InsertRaw places an already-constructed entry directly, used by
// auction-expiry transitions moving an order in from a DynamicOrders
// container.
func (o *Orders) InsertRaw(isBid bool, entry StaticEntry) {
	if isBid {
		o.Bids.Set(entry)
	} else {
		o.Asks.Set(entry)
	}
}

// Remove deletes the entry with the given (price, id) key from the
// given side. Returns false without side effects if not present.
func (o *Orders) Remove(isBid bool, price, id uint64) bool {
	key := StaticEntry{Price: price, ID: id}
	if isBid {
		_, ok := o.Bids.Delete(key)
		return ok
	}
	_, ok := o.Asks.Delete(key)
	return ok
}

// Get fetches the entry at the given (price, id) key without removing
// it, used by the cross engine to read a resting order's full static
// fields (Slot, MaxTs, PostOnly) before reducing its size.
func (o *Orders) Get(isBid bool, price, id uint64) (StaticEntry, bool) {
	key := StaticEntry{Price: price, ID: id}
	if isBid {
		return o.Bids.Get(key)
	}
	return o.Asks.Get(key)
}

// Update removes the entry at (oldPrice, id) and, if remainingSize is
// non-zero, reinserts it at (newPrice, id). Returns whether it was
// found at the old key at all (not whether it was reinserted) so the
// caller can distinguish "moved/removed here" from "never was here".
func (o *Orders) Update(isBid bool, id uint64, oldPrice uint64, newEntry StaticEntry) bool {
	removed := o.Remove(isBid, oldPrice, id)
	if !removed {
		return false
	}
	if newEntry.Size > 0 {
		o.InsertRaw(isBid, newEntry)
	}
	return true
}

// FindByID scans a side for the entry carrying the given internal order
// id regardless of its price key, used when an update or remove arrives
// with a price the container was never keyed under (the order re-priced,
// or rested at an auction end price).
func (o *Orders) FindByID(isBid bool, id uint64) (StaticEntry, bool) {
	tr := o.Asks
	if isBid {
		tr = o.Bids
	}
	var found StaticEntry
	ok := false
	tr.Scan(func(item StaticEntry) bool {
		if item.ID == id {
			found = item
			ok = true
			return false
		}
		return true
	})
	return found, ok
}

// RemoveByID deletes the entry carrying id wherever it sits on the side,
// returning false if absent.
func (o *Orders) RemoveByID(isBid bool, id uint64) bool {
	entry, ok := o.FindByID(isBid, id)
	if !ok {
		return false
	}
	return o.Remove(isBid, entry.Price, id)
}

// Len returns the number of bid and ask entries.
func (o *Orders) Len() (bids int, asks int) {
	return o.Bids.Len(), o.Asks.Len()
}

// items drains a btree side into a plain slice in its tree order (best
// price first on both sides, thanks to staticLessDesc/staticLessAsc).
func items(tr *btree.BTreeG[StaticEntry]) []StaticEntry {
	out := make([]StaticEntry, 0, tr.Len())
	tr.Scan(func(item StaticEntry) bool {
		out = append(out, item)
		return true
	})
	return out
}

// BidItems returns the bid side in best-first order.
func (o *Orders) BidItems() []StaticEntry { return items(o.Bids) }

// AskItems returns the ask side in best-first order.
func (o *Orders) AskItems() []StaticEntry { return items(o.Asks) }
