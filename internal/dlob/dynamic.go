package dlob

import "sync/atomic"

// dynamicEntry is implemented by MarketEntry, OracleEntry and
// FloatingLimitEntry: the three order shapes whose price changes every
// slot/oracle tick and therefore live in a DynamicOrders container.
type dynamicEntry interface {
	internalID() uint64
	remainingSize() uint64
	price(slot, oraclePrice, tick uint64) uint64
}

// DynamicOrders holds two unsorted slices (bids, asks) for one pricing
// kind and defers sorting until a consumer needs order. Insertion is O(1)
// append; removal is O(n) linear scan plus swap-remove, which is correct
// because every order's price is transient anyway: there is no stable
// position to preserve.
type DynamicOrders[T dynamicEntry] struct {
	Bids  []T
	Asks  []T
	dirty atomic.Bool
}

func (d *DynamicOrders[T]) markDirty() { d.dirty.Store(true) }
func (d *DynamicOrders[T]) markClean() { d.dirty.Store(false) }

// IsDirty reports whether Sort must re-sort before the containers can
// be relied on for price priority.
func (d *DynamicOrders[T]) IsDirty() bool { return d.dirty.Load() }

// InsertRaw appends an already-constructed entry to the given side
// without computing the side from an Order's Direction. Used by auction
// expiry when moving an order between sibling containers.
func (d *DynamicOrders[T]) InsertRaw(isBid bool, entry T) {
	if isBid {
		d.Bids = append(d.Bids, entry)
	} else {
		d.Asks = append(d.Asks, entry)
	}
	d.markDirty()
}

// Remove deletes the entry with the given internal order id from the
// given side. Returns false if not found; callers must not remove the
// order's metadata in that case.
func (d *DynamicOrders[T]) Remove(isBid bool, id uint64) bool {
	side := &d.Bids
	if !isBid {
		side = &d.Asks
	}
	for i, entry := range *side {
		if entry.internalID() == id {
			n := len(*side)
			(*side)[i] = (*side)[n-1]
			*side = (*side)[:n-1]
			d.markDirty()
			return true
		}
	}
	return false
}

// Update removes the old entry and, if the new entry still has
// remaining size, inserts it; otherwise the order is gone for good.
// Returns true iff the order was re-inserted (still live in this
// container); a false return tells the caller (updateInPlace in dlob.go) to try a
// sibling container, since an auction-expiry transition may have moved
// the order elsewhere between updates.
func (d *DynamicOrders[T]) Update(isBid bool, id uint64, newEntry T) bool {
	removed := d.Remove(isBid, id)
	if !removed {
		return false
	}
	if newEntry.remainingSize() == 0 {
		return false
	}
	d.InsertRaw(isBid, newEntry)
	return true
}

// Find returns a copy of the live entry with the given internal order
// id on the given side, used by the cross engine to read a floating
// order's full fields before reducing its size.
func (d *DynamicOrders[T]) Find(isBid bool, id uint64) (T, bool) {
	side := d.Bids
	if !isBid {
		side = d.Asks
	}
	for _, entry := range side {
		if entry.internalID() == id {
			return entry, true
		}
	}
	var zero T
	return zero, false
}

// Sort re-sorts both sides by live price (bids descending, asks
// ascending) if dirty, then marks clean. Ties keep whatever relative
// order the insertion sort leaves among equal prices.
func (d *DynamicOrders[T]) Sort(slot, oraclePrice, tick uint64) {
	if !d.IsDirty() {
		return
	}
	sortByPrice(d.Bids, slot, oraclePrice, tick, true)
	sortByPrice(d.Asks, slot, oraclePrice, tick, false)
	d.markClean()
}

func sortByPrice[T dynamicEntry](entries []T, slot, oraclePrice, tick uint64, descending bool) {
	// Insertion sort: these slices are small (dozens of live auctions
	// per market, not thousands) and re-sort happens once per dirty
	// slot tick, so O(n^2) worst case is not a concern at this scale.
	for i := 1; i < len(entries); i++ {
		j := i
		for j > 0 {
			pj := entries[j].price(slot, oraclePrice, tick)
			pjm1 := entries[j-1].price(slot, oraclePrice, tick)
			var swap bool
			if descending {
				swap = pj > pjm1
			} else {
				swap = pj < pjm1
			}
			if !swap {
				break
			}
			entries[j], entries[j-1] = entries[j-1], entries[j]
			j--
		}
	}
}
