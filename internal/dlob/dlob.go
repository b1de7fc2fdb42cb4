package dlob

import (
	"context"

	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"

	"github.com/fenrir-dlob/dlob/internal/common"
)

// command is the single-writer mailbox's synchronous unit of work: every
// public mutator and cross query builds one and sends it to the
// event-loop goroutine, so every container write happens from exactly
// one goroutine.
type command struct {
	apply func(d *DLOB)
	done  chan struct{}
}

// DLOB is the top-level aggregate: every market's Orderbook, the global
// order-id metadata index, and the single-writer event loop that
// serializes every mutation. Reads (GetL2Snapshot, GetL3Snapshot)
// bypass the loop entirely and read the atomically
// published snapshots directly, so they never contend with the writer.
type DLOB struct {
	markets  *marketsMap
	metadata *metadataMap
	metrics  *Metrics

	// events carries asynchronous inbound work from Notifier handles;
	// commands carries synchronous work from this process's own callers.
	// Both drain into the same goroutine, which is the sole mutator.
	events   chan Event
	commands chan command
	t        *tomb.Tomb
}

// New constructs an empty DLOB. Call Run to start its event loop before
// sending any events or commands.
func New() *DLOB {
	return &DLOB{
		markets:  newMarketsMap(),
		metadata: newMetadataMap(),
		events:   make(chan Event, eventChanCapacity),
		commands: make(chan command, eventChanCapacity),
	}
}

// SetMetrics attaches a metric set for the event loop and notifier to
// count against. Call before Run; a nil-metrics DLOB counts nothing.
func (d *DLOB) SetMetrics(m *Metrics) { d.metrics = m }

// Notifier returns the producer handle collaborators use to feed events
// in. Handles are cheap value types and safe to share.
func (d *DLOB) Notifier() Notifier { return Notifier{d: d} }

// Run starts the single-writer event loop under a tomb. It blocks until
// ctx is canceled, Stop is called, or the event channel is closed.
func (d *DLOB) Run(ctx context.Context) error {
	d.t, ctx = tomb.WithContext(ctx)
	d.t.Go(func() error {
		for {
			select {
			case <-d.t.Dying():
				return nil
			case ev, ok := <-d.events:
				if !ok {
					log.Info().Msg("dlob event channel closed, stopping")
					return nil
				}
				d.applyEvent(ev)
			case cmd := <-d.commands:
				cmd.apply(d)
				close(cmd.done)
			}
		}
	})
	<-d.t.Dying()
	return d.t.Err()
}

// Stop signals the event loop to exit and waits for it to finish.
func (d *DLOB) Stop() error {
	if d.t == nil {
		return nil
	}
	d.t.Kill(nil)
	return d.t.Wait()
}

// submit sends a closure to the writer goroutine and blocks until it has
// been applied. Used by every exported mutator and cross query so
// callers observe their own write before returning.
func (d *DLOB) submit(apply func(d *DLOB)) {
	done := make(chan struct{})
	d.commands <- command{apply: apply, done: done}
	<-done
}

func (d *DLOB) applyEvent(ev Event) {
	switch ev.Kind {
	case EventSlotOrPriceUpdate:
		d.applySlotUpdate(ev.Market, ev.Slot, ev.OraclePrice)
	case EventOrder:
		d.applyDelta(ev.Delta)
	}
}

// BootstrapMarket registers a market's tick size, creating its Orderbook
// if one does not already exist. Safe to call more than once; later
// calls are no-ops once the market exists (the
// tick size is fixed at first touch, matching on-chain market
// configuration being immutable post-launch).
func (d *DLOB) BootstrapMarket(market common.MarketId, tickSize uint64) {
	d.markets.GetOrCreate(market, tickSize)
}

// GetL2Snapshot returns the most recently published L2 book for market,
// or nil if the market has never been bootstrapped.
func (d *DLOB) GetL2Snapshot(market common.MarketId) *L2Book {
	ob, ok := d.markets.Get(market)
	if !ok {
		return nil
	}
	return ob.L2()
}

// GetL3Snapshot returns the most recently published L3 book for market,
// or nil if the market has never been bootstrapped.
func (d *DLOB) GetL3Snapshot(market common.MarketId) *L3Book {
	ob, ok := d.markets.Get(market)
	if !ok {
		return nil
	}
	return ob.L3()
}

// UpdateSlotAndOraclePrice advances one market's clock synchronously:
// expires finished auctions, re-sorts dynamic containers, and
// republishes L2/L3. Collaborators that don't need to observe their
// own tick send an EventSlotOrPriceUpdate through the Notifier
// instead; both paths drain into the same goroutine.
func (d *DLOB) UpdateSlotAndOraclePrice(market common.MarketId, slot, oraclePrice uint64) {
	d.submit(func(d *DLOB) {
		d.applySlotUpdate(market, slot, oraclePrice)
	})
}

func (d *DLOB) applySlotUpdate(market common.MarketId, slot, oraclePrice uint64) {
	ob, ok := d.markets.Get(market)
	if !ok {
		log.Warn().Stringer("market", market).Msg("slot update for unbootstrapped market")
		return
	}
	ob.UpdateSlotAndOraclePrice(slot, oraclePrice, d.metadata)
	ob.PublishL3(slot, oraclePrice, d.metadata)
	if d.metrics != nil {
		d.metrics.SnapshotsPublished.WithLabelValues("l2").Inc()
		d.metrics.SnapshotsPublished.WithLabelValues("l3").Inc()
	}
}

// ApplyDelta applies a single OrderDelta synchronously. It is the
// command-loop twin of sending an EventOrder through the Notifier.
func (d *DLOB) ApplyDelta(delta OrderDelta) {
	d.submit(func(d *DLOB) {
		d.applyDelta(delta)
	})
}

func (d *DLOB) applyDelta(delta OrderDelta) {
	switch delta.Kind {
	case DeltaCreate:
		d.insertOrder(delta.User, delta.Order)
	case DeltaUpdate:
		d.updateOrder(delta.User, delta.Order)
	case DeltaRemove:
		d.removeOrder(delta.User, delta.Order)
	}
	if d.metrics != nil {
		d.metrics.OrdersApplied.WithLabelValues(delta.Kind.String()).Inc()
	}
}

// FindCrossesForTakerOrder sweeps taker against the opposite side of its
// market's resting+floating book. It runs on the writer goroutine
// because fills mutate maker sizes in place. vammPrice is
// optional; zero means no vAMM quote is available.
func (d *DLOB) FindCrossesForTakerOrder(slot, oraclePrice uint64, taker TakerOrder, vammPrice uint64) MakerCrosses {
	var out MakerCrosses
	d.submit(func(d *DLOB) {
		ob, ok := d.markets.Get(taker.Market)
		if !ok {
			out = MakerCrosses{
				TakerOrderID:   taker.ID,
				TakerDirection: taker.Direction,
				RemainingSize:  taker.Size,
				IsPartial:      taker.Size > 0,
				HasVammCross:   vammCrosses(taker.Direction, taker.Price, vammPrice),
				Slot:           slot,
			}
			return
		}
		out = findCrossesForTakerOrder(ob, taker, slot, oraclePrice, vammPrice, d.metadata)
		if d.metrics != nil {
			d.metrics.CrossesFound.Add(float64(len(out.Crosses)))
		}
	})
	return out
}

// FindCrossesForAuctions sweeps every live auction and about-to-trigger
// order in market against the opposite resting book, and reports the
// top-of-book limit cross, vAMM-taker candidates and top maker
// identities alongside. perp carries the market's vAMM quote and
// minimum order size; nil skips the vAMM-taker checks.
func (d *DLOB) FindCrossesForAuctions(market common.MarketId, slot, oraclePrice, triggerPrice uint64, perp *common.PerpMarket) CrossesAndTopMakers {
	var out CrossesAndTopMakers
	d.submit(func(d *DLOB) {
		ob, ok := d.markets.Get(market)
		if !ok {
			out = CrossesAndTopMakers{Slot: slot}
			return
		}
		out = findCrossesForAuctions(ob, slot, oraclePrice, triggerPrice, perp, d.metadata)
		if d.metrics != nil {
			for _, c := range out.Crosses {
				d.metrics.CrossesFound.Add(float64(len(c.Crosses)))
			}
		}
	})
	return out
}

// FindCrossingRegion reports the resting-limit orders on each side priced
// through the opposite top of book, read-only. ok is false when the
// book does not cross or the market is unknown.
func (d *DLOB) FindCrossingRegion(slot, oraclePrice uint64, market common.MarketId) (region CrossingRegion, ok bool) {
	d.submit(func(d *DLOB) {
		ob, found := d.markets.Get(market)
		if !found {
			return
		}
		region, ok = findCrossingRegion(ob, slot, oraclePrice, d.metadata)
	})
	return region, ok
}

func (d *DLOB) orderbookFor(o common.Order) (*Orderbook, common.MarketId) {
	market := o.MarketId()
	return d.markets.GetOrCreate(market, 1), market
}

// insertOrder classifies o and inserts it into the correct container,
// recording its metadata in the same step. Trigger orders are
// classified by their untriggered TriggerCondition and placed in the
// Trigger static container, watching for the price crossing
// TriggerPrice; Market/Oracle/Limit family orders go straight to their
// pricing container.
func (d *DLOB) insertOrder(user common.User, o common.Order) {
	if o.RemainingSize() == 0 {
		log.Trace().Uint32("orderID", o.OrderID).Msg("skipping insert of zero-size order")
		return
	}
	ob, market := d.orderbookFor(o)
	id := OrderHash(user, o.OrderID)
	kind := classifyInsert(o)

	d.metadata.Set(id, OrderMetadata{User: user, ExternalOrderID: o.OrderID, Kind: kind, MaxTs: o.MaxTs})
	insertIntoContainer(ob, o, id, kind)

	log.Debug().
		Uint64("id", id).
		Stringer("market", market).
		Stringer("kind", kind).
		Msg("order inserted")
}

// classifyInsert maps an Order's OrderType (and, for Limit, the
// ClassifyLimit table) onto its OrderKind.
func classifyInsert(o common.Order) OrderKind {
	switch o.OrderType {
	case common.OrderTypeMarket:
		return KindMarket
	case common.OrderTypeOracle:
		return KindOracle
	case common.OrderTypeLimit:
		return ClassifyLimit(o.PostOnly, o.AuctionDuration, o.OraclePriceOffset)
	case common.OrderTypeTriggerMarket:
		return KindTriggerMarket
	case common.OrderTypeTriggerLimit:
		return KindTriggerLimit
	default:
		return KindLimit
	}
}

func isBidSide(d common.Direction) bool { return d == common.DirectionLong }

// insertIntoContainer places o's entry into the container its kind owns.
func insertIntoContainer(ob *Orderbook, o common.Order, id uint64, kind OrderKind) {
	isBid := isBidSide(o.Direction)
	switch kind {
	case KindMarket, KindMarketTriggered:
		ob.MarketOrders.InsertRaw(isBid, MarketEntry{
			ID: id, Slot: o.Slot, Duration: o.AuctionDuration,
			StartPrice: o.AuctionStartPrice, EndPrice: o.AuctionEndPrice,
			Size: o.RemainingSize(), MaxTs: o.MaxTs,
		})
	case KindOracle, KindOracleTriggered:
		ob.OracleOrders.InsertRaw(isBid, OracleEntry{
			ID: id, Slot: o.Slot, Duration: o.AuctionDuration,
			StartOffset: int32(o.AuctionStartPrice), EndOffset: int32(o.AuctionEndPrice),
			Size: o.RemainingSize(), MaxTs: o.MaxTs,
		})
	case KindLimit:
		ob.RestingLimit.InsertRaw(isBid, StaticEntry{
			ID: id, Price: o.Price, Size: o.RemainingSize(), Slot: o.Slot,
			MaxTs: o.MaxTs, PostOnly: o.PostOnly,
		})
	case KindFloatingLimit:
		ob.FloatingLimit.InsertRaw(isBid, FloatingLimitEntry{
			ID: id, Slot: o.Slot, Offset: o.OraclePriceOffset,
			Size: o.RemainingSize(), MaxTs: o.MaxTs, PostOnly: o.PostOnly,
		})
	case KindLimitAuction, KindLimitTriggered:
		// A just-triggered limit order auctions like any limit auction and
		// rests at its auction end price once the window closes.
		ob.MarketOrders.InsertRaw(isBid, MarketEntry{
			ID: id, Slot: o.Slot, Duration: o.AuctionDuration,
			StartPrice: o.AuctionStartPrice, EndPrice: o.AuctionEndPrice,
			Size: o.RemainingSize(), MaxTs: o.MaxTs, IsLimit: true,
		})
	case KindFloatingLimitAuction:
		ob.OracleOrders.InsertRaw(isBid, OracleEntry{
			ID: id, Slot: o.Slot, Duration: o.AuctionDuration,
			StartOffset: int32(o.AuctionStartPrice), EndOffset: int32(o.AuctionEndPrice),
			Size: o.RemainingSize(), MaxTs: o.MaxTs, IsLimit: true,
		})
	case KindTriggerMarket, KindTriggerLimit:
		ob.Trigger.InsertRaw(isBid, newTriggerEntry(o, id))
	}
}

// newTriggerEntry builds the Trigger container's StaticEntry, tagging
// the watch direction (Above/Below) onto the unused high bit of Slot
// (see willTriggerAt in orderbook.go) since StaticEntry has no
// dedicated TriggerCondition field.
func newTriggerEntry(o common.Order, id uint64) StaticEntry {
	slot := o.Slot
	if o.TriggerCondition == common.TriggerConditionAbove || o.TriggerCondition == common.TriggerConditionTriggeredAbove {
		slot |= triggerAboveBit
	}
	return StaticEntry{ID: id, Price: o.TriggerPrice, Size: o.RemainingSize(), Slot: slot, MaxTs: o.MaxTs}
}

// updateOrder re-derives o's kind (a trigger firing changes it) and
// attempts to update it in place in the container its previous metadata
// said it lived in. If that container reports the order is no longer
// there (an auction-expiry transition moved it to a sibling container
// between updates), it falls back to removing the stale id and
// re-inserting fresh, keeping metadata and containers in lockstep.
func (d *DLOB) updateOrder(user common.User, o common.Order) {
	ob, market := d.orderbookFor(o)
	id := OrderHash(user, o.OrderID)

	prevMeta, known := d.metadata.Get(id)
	newKind := resolveUpdateKind(o, prevMeta, known)

	if o.RemainingSize() == 0 || o.Status != common.OrderStatusOpen {
		kind := newKind
		if known {
			kind = prevMeta.Kind
		}
		if removeFromContainer(ob, o, id, kind) {
			d.metadata.Remove(id)
		}
		return
	}

	d.metadata.Set(id, OrderMetadata{User: user, ExternalOrderID: o.OrderID, Kind: newKind, MaxTs: o.MaxTs})

	isBid := isBidSide(o.Direction)
	if known && newKind == prevMeta.Kind && updateInPlace(ob, o, id, isBid, newKind) {
		log.Debug().Uint64("id", id).Stringer("market", market).Msg("order updated in place")
		return
	}

	// Kind changed (trigger fired, or auction expired between updates) or
	// the order wasn't found where expected: remove from wherever it
	// might still be, then insert fresh under the new kind.
	if known {
		removeFromContainer(ob, o, id, prevMeta.Kind)
	}
	insertIntoContainer(ob, o, id, newKind)
}

// resolveUpdateKind decides the order's kind for this update: a trigger
// order whose condition just flipped to Triggered is reclassified to its
// *Triggered kind BEFORE the new entry is constructed, so it is inserted
// into the market/oracle/limit container under its triggered pricing
// immediately rather than on a subsequent update.
func resolveUpdateKind(o common.Order, prevMeta OrderMetadata, known bool) OrderKind {
	if o.TriggerCondition.IsTriggered() {
		switch o.OrderType {
		case common.OrderTypeTriggerMarket:
			if o.IsOracleTriggerMarket() {
				return KindOracleTriggered
			}
			return KindMarketTriggered
		case common.OrderTypeTriggerLimit:
			return KindLimitTriggered
		}
	}
	if known {
		return prevMeta.Kind
	}
	return classifyInsert(o)
}

// updateInPlace attempts to update o's container entry without removing
// metadata, returning whether the order is still live in that container
// afterward (false signals the caller to fall back to remove+reinsert).
func updateInPlace(ob *Orderbook, o common.Order, id uint64, isBid bool, kind OrderKind) bool {
	switch kind {
	case KindMarket, KindMarketTriggered:
		return ob.MarketOrders.Update(isBid, id, MarketEntry{
			ID: id, Slot: o.Slot, Duration: o.AuctionDuration,
			StartPrice: o.AuctionStartPrice, EndPrice: o.AuctionEndPrice,
			Size: o.RemainingSize(), MaxTs: o.MaxTs,
		})
	case KindOracle, KindOracleTriggered:
		return ob.OracleOrders.Update(isBid, id, OracleEntry{
			ID: id, Slot: o.Slot, Duration: o.AuctionDuration,
			StartOffset: int32(o.AuctionStartPrice), EndOffset: int32(o.AuctionEndPrice),
			Size: o.RemainingSize(), MaxTs: o.MaxTs,
		})
	case KindLimit:
		return updateRestingInPlace(ob, o, id, isBid)
	case KindFloatingLimit:
		return ob.FloatingLimit.Update(isBid, id, FloatingLimitEntry{
			ID: id, Slot: o.Slot, Offset: o.OraclePriceOffset,
			Size: o.RemainingSize(), MaxTs: o.MaxTs, PostOnly: o.PostOnly,
		})
	case KindLimitAuction, KindLimitTriggered:
		// The auction may have completed between updates, moving the order
		// to the resting-limit container.
		if ob.MarketOrders.Update(isBid, id, MarketEntry{
			ID: id, Slot: o.Slot, Duration: o.AuctionDuration,
			StartPrice: o.AuctionStartPrice, EndPrice: o.AuctionEndPrice,
			Size: o.RemainingSize(), MaxTs: o.MaxTs, IsLimit: true,
		}) {
			return true
		}
		return updateRestingInPlace(ob, o, id, isBid)
	case KindFloatingLimitAuction:
		if ob.OracleOrders.Update(isBid, id, OracleEntry{
			ID: id, Slot: o.Slot, Duration: o.AuctionDuration,
			StartOffset: int32(o.AuctionStartPrice), EndOffset: int32(o.AuctionEndPrice),
			Size: o.RemainingSize(), MaxTs: o.MaxTs, IsLimit: true,
		}) {
			return true
		}
		return ob.FloatingLimit.Update(isBid, id, FloatingLimitEntry{
			ID: id, Slot: o.Slot, Offset: o.OraclePriceOffset,
			Size: o.RemainingSize(), MaxTs: o.MaxTs, PostOnly: o.PostOnly,
		})
	case KindTriggerMarket, KindTriggerLimit:
		oldPrice := o.TriggerPrice
		if _, ok := ob.Trigger.Get(isBid, oldPrice, id); !ok {
			entry, found := ob.Trigger.FindByID(isBid, id)
			if !found {
				return false
			}
			oldPrice = entry.Price
		}
		return ob.Trigger.Update(isBid, id, oldPrice, newTriggerEntry(o, id))
	default:
		return false
	}
}

// updateRestingInPlace re-keys a resting-limit entry to the order's
// current price. The entry may sit under a price this update never saw
// (an auction-expiry transition rested it at its auction end price), so
// a miss on o.Price falls back to locating the live entry by id.
func updateRestingInPlace(ob *Orderbook, o common.Order, id uint64, isBid bool) bool {
	oldPrice := o.Price
	if _, ok := ob.RestingLimit.Get(isBid, oldPrice, id); !ok {
		entry, found := ob.RestingLimit.FindByID(isBid, id)
		if !found {
			return false
		}
		oldPrice = entry.Price
	}
	return ob.RestingLimit.Update(isBid, id, oldPrice, StaticEntry{
		ID: id, Price: o.Price, Size: o.RemainingSize(), Slot: o.Slot,
		MaxTs: o.MaxTs, PostOnly: o.PostOnly,
	})
}

// removeOrder removes o from whichever container its current metadata
// says it lives in, then drops the metadata entry. Metadata is never
// removed unless a container actually gave up the entry.
func (d *DLOB) removeOrder(user common.User, o common.Order) {
	ob, market := d.orderbookFor(o)
	id := OrderHash(user, o.OrderID)

	meta, ok := d.metadata.Get(id)
	if !ok {
		log.Warn().Uint64("id", id).Stringer("market", market).Msg("remove for unknown order id")
		return
	}
	if removeFromContainer(ob, o, id, meta.Kind) {
		d.metadata.Remove(id)
		return
	}
	log.Trace().Uint64("id", id).Stringer("market", market).Msg("remove found no container entry")
}

// removeFromContainer deletes the entry for id from the container kind
// owns, reporting whether anything was actually removed. It tries the
// expected container first and falls back to every sibling it could
// have transitioned into via auction expiry, so a remove racing an
// expiry transition still succeeds.
func removeFromContainer(ob *Orderbook, o common.Order, id uint64, kind OrderKind) bool {
	isBid := isBidSide(o.Direction)
	switch kind {
	case KindMarket, KindMarketTriggered:
		return ob.MarketOrders.Remove(isBid, id)
	case KindLimitAuction, KindLimitTriggered:
		if ob.MarketOrders.Remove(isBid, id) {
			return true
		}
		if ob.RestingLimit.Remove(isBid, o.Price, id) {
			return true
		}
		// The expiry transition rested it at its auction end price, which
		// need not equal o.Price.
		return ob.RestingLimit.RemoveByID(isBid, id)
	case KindOracle, KindOracleTriggered:
		return ob.OracleOrders.Remove(isBid, id)
	case KindFloatingLimitAuction:
		if ob.OracleOrders.Remove(isBid, id) {
			return true
		}
		return ob.FloatingLimit.Remove(isBid, id)
	case KindLimit:
		if ob.RestingLimit.Remove(isBid, o.Price, id) {
			return true
		}
		return ob.RestingLimit.RemoveByID(isBid, id)
	case KindFloatingLimit:
		return ob.FloatingLimit.Remove(isBid, id)
	case KindTriggerMarket, KindTriggerLimit:
		if ob.Trigger.Remove(isBid, o.TriggerPrice, id) {
			return true
		}
		return ob.Trigger.RemoveByID(isBid, id)
	default:
		return false
	}
}
