package dlob

import (
	"github.com/rs/zerolog/log"

	"github.com/fenrir-dlob/dlob/internal/common"
)

// cross.go implements the matching sweep: a taker order (real or
// synthesized from an auctioning/triggering order) is swept against the
// opposite side's resting+floating limit book in price priority,
// mutating the book in place as fills consume maker size.

const (
	maxCrossesPerTaker = 16
	maxAuctionCrosses  = 16
	maxTopMakers       = 3
)

// TakerOrder is a taker-side quote to cross against the limit book.
type TakerOrder struct {
	ID        uint64
	Market    common.MarketId
	Direction common.Direction
	Price     uint64
	Size      uint64
}

// MakerCross is one fill produced by crossing a taker against a single
// resting maker order.
type MakerCross struct {
	MakerOrderID uint64
	Maker        common.User
	Price        uint64
	Size         uint64
}

// MakerCrosses is the full result of sweeping one taker against the
// book: up to maxCrossesPerTaker fills, whether the taker still carries
// size afterward, and whether the vAMM quote crossed the taker's price
// regardless of book state.
type MakerCrosses struct {
	Crosses        []MakerCross
	IsPartial      bool
	HasVammCross   bool
	RemainingSize  uint64
	TakerOrderID   uint64
	TakerDirection common.Direction
	Slot           uint64
}

// findLimitCross reports whether a taker at takerPrice in takerDirection
// crosses a maker resting at makerPrice: a buy crosses any ask at or
// below its price; a sell crosses any bid at or above its price.
func findLimitCross(takerDirection common.Direction, takerPrice, makerPrice uint64) bool {
	if takerDirection == common.DirectionLong {
		return takerPrice >= makerPrice
	}
	return takerPrice <= makerPrice
}

// vammCrosses applies the same predicate to the vAMM quote; zero means
// no quote was supplied.
func vammCrosses(takerDirection common.Direction, takerPrice, vammPrice uint64) bool {
	if vammPrice == 0 {
		return false
	}
	return findLimitCross(takerDirection, takerPrice, vammPrice)
}

// findCrossesForTakerOrder sweeps taker against the opposite side's
// limit views (already price-sorted best-first), filling up to
// maxCrossesPerTaker makers or until price no longer crosses or the
// taker is exhausted. Each fill mutates the maker's live container
// directly. A metadata-map miss on a maker (its cancel raced ahead of
// this read) is skipped without consuming a cross slot.
func findCrossesForTakerOrder(ob *Orderbook, taker TakerOrder, slot, oraclePrice, vammPrice uint64, metadata *metadataMap) MakerCrosses {
	var opposite []LimitOrderView
	if taker.Direction == common.DirectionLong {
		opposite = ob.getLimitAsks(slot, oraclePrice)
	} else {
		opposite = ob.getLimitBids(slot, oraclePrice)
	}

	result := MakerCrosses{
		TakerOrderID:   taker.ID,
		TakerDirection: taker.Direction,
		HasVammCross:   vammCrosses(taker.Direction, taker.Price, vammPrice),
		Slot:           slot,
	}
	remaining := taker.Size

	for _, view := range opposite {
		if remaining == 0 {
			break
		}
		if len(result.Crosses) >= maxCrossesPerTaker {
			result.IsPartial = true
			break
		}
		if !findLimitCross(taker.Direction, taker.Price, view.Price) {
			break
		}
		meta, ok := metadata.Get(view.ID)
		if !ok {
			log.Warn().Uint64("id", view.ID).Msg("metadata missing for resting maker, skipping")
			continue
		}

		fillSize := min(remaining, view.Size)
		isBid := taker.Direction == common.DirectionShort
		var stillLive bool
		if view.Floating {
			stillLive = ob.fillFloatingLimit(isBid, view.ID, fillSize)
		} else {
			stillLive = ob.fillRestingLimit(isBid, view.ID, view.Price, fillSize)
		}
		if !stillLive {
			metadata.Remove(view.ID)
		}

		result.Crosses = append(result.Crosses, MakerCross{
			MakerOrderID: view.ID,
			Maker:        meta.User,
			Price:        view.Price,
			Size:         fillSize,
		})
		remaining -= fillSize
	}

	result.RemainingSize = remaining
	if remaining > 0 {
		result.IsPartial = true
	}
	return result
}

// LimitCross reports a crossed top-of-book between the resting bids and
// asks themselves, with the taker side designated as follows: if exactly
// one side is post-only, the other side is the taker; otherwise the
// older order (lower creation slot) takes.
type LimitCross struct {
	TakerOrderID   uint64
	MakerOrderID   uint64
	Taker          OrderMetadata
	Maker          OrderMetadata
	TakerDirection common.Direction
}

// findTopLimitCross inspects the best resting bid and ask and reports
// their cross, if any. Read-only.
func findTopLimitCross(ob *Orderbook, slot, oraclePrice uint64, metadata *metadataMap) *LimitCross {
	bids := ob.getLimitBids(slot, oraclePrice)
	asks := ob.getLimitAsks(slot, oraclePrice)
	if len(bids) == 0 || len(asks) == 0 {
		return nil
	}
	bid, ask := bids[0], asks[0]
	if bid.Price < ask.Price {
		return nil
	}
	bidMeta, okBid := metadata.Get(bid.ID)
	askMeta, okAsk := metadata.Get(ask.ID)
	if !okBid || !okAsk {
		log.Warn().Uint64("bid", bid.ID).Uint64("ask", ask.ID).Msg("metadata missing on crossed top of book")
		return nil
	}

	var bidTakes bool
	switch {
	case bid.PostOnly && !ask.PostOnly:
		bidTakes = false
	case !bid.PostOnly && ask.PostOnly:
		bidTakes = true
	default:
		bidTakes = bid.Slot <= ask.Slot
	}

	if bidTakes {
		return &LimitCross{
			TakerOrderID: bid.ID, MakerOrderID: ask.ID,
			Taker: bidMeta, Maker: askMeta,
			TakerDirection: common.DirectionLong,
		}
	}
	return &LimitCross{
		TakerOrderID: ask.ID, MakerOrderID: bid.ID,
		Taker: askMeta, Maker: bidMeta,
		TakerDirection: common.DirectionShort,
	}
}

// VammTaker is a post-only resting maker the vAMM quote crosses: from
// the book's perspective the vAMM acts as counterparty and the resting
// order becomes a taker candidate.
type VammTaker struct {
	OrderID uint64
	Meta    OrderMetadata
	Price   uint64
	Size    uint64
}

// CrossesAndTopMakers is the auction-side sweep's full result:
// every non-empty auction/trigger cross (capped), the top-of-book limit
// cross, vAMM-taker candidates on both sides, and up to three maker
// identities per side for callers ranking counterparties.
type CrossesAndTopMakers struct {
	Crosses      []MakerCrosses
	LimitCross   *LimitCross
	VammTakerBid *VammTaker
	VammTakerAsk *VammTaker
	TopMakerBids []common.User
	TopMakerAsks []common.User
	Slot         uint64
}

// findCrossesForAuctions sweeps every live market/oracle/trigger
// candidate on both sides against the opposite resting book. Candidates
// arrive best-price-first, and the book is also best-price-first, so the
// moment a candidate fails to cross, every candidate behind it (strictly
// worse-priced) cannot cross either, so the loop stops immediately rather
// than checking the rest. The read-only reports (limit cross, vAMM
// takers, top makers) are computed before the sweep consumes liquidity.
func findCrossesForAuctions(ob *Orderbook, slot, oraclePrice, triggerPrice uint64, perp *common.PerpMarket, metadata *metadataMap) CrossesAndTopMakers {
	out := CrossesAndTopMakers{
		LimitCross:   findTopLimitCross(ob, slot, oraclePrice, metadata),
		TopMakerBids: topMakers(ob, true, slot, oraclePrice, metadata),
		TopMakerAsks: topMakers(ob, false, slot, oraclePrice, metadata),
		Slot:         slot,
	}
	if perp != nil {
		out.VammTakerBid, out.VammTakerAsk = findVammTakers(ob, slot, oraclePrice, perp, metadata)
	}

	bidCandidates := ob.getTakerBids(slot, oraclePrice, triggerPrice)
	for _, c := range bidCandidates {
		if len(out.Crosses) >= maxAuctionCrosses {
			break
		}
		taker := TakerOrder{ID: c.ID, Direction: common.DirectionLong, Price: c.Price, Size: c.Size}
		crosses := findCrossesForTakerOrder(ob, taker, slot, oraclePrice, 0, metadata)
		if len(crosses.Crosses) == 0 {
			break
		}
		out.Crosses = append(out.Crosses, crosses)
	}

	askCandidates := ob.getTakerAsks(slot, oraclePrice, triggerPrice)
	for _, c := range askCandidates {
		if len(out.Crosses) >= maxAuctionCrosses {
			break
		}
		taker := TakerOrder{ID: c.ID, Direction: common.DirectionShort, Price: c.Price, Size: c.Size}
		crosses := findCrossesForTakerOrder(ob, taker, slot, oraclePrice, 0, metadata)
		if len(crosses.Crosses) == 0 {
			break
		}
		out.Crosses = append(out.Crosses, crosses)
	}

	return out
}

// findVammTakers checks both sides of the resting book against the vAMM
// quote: a vAMM bid crossing the best resting ask makes that ask a
// vAMM-taker candidate, provided the ask is post-only and at least the
// market's minimum order size; symmetric for the vAMM ask against the
// best resting bid.
func findVammTakers(ob *Orderbook, slot, oraclePrice uint64, perp *common.PerpMarket, metadata *metadataMap) (vammBid, vammAsk *VammTaker) {
	asVammTaker := func(v LimitOrderView) *VammTaker {
		if !v.PostOnly || v.Size < perp.MinOrderSize {
			return nil
		}
		meta, ok := metadata.Get(v.ID)
		if !ok {
			log.Warn().Uint64("id", v.ID).Msg("metadata missing for vamm-taker candidate")
			return nil
		}
		return &VammTaker{OrderID: v.ID, Meta: meta, Price: v.Price, Size: v.Size}
	}

	if asks := ob.getLimitAsks(slot, oraclePrice); len(asks) > 0 && perp.VammBid != 0 && perp.VammBid >= asks[0].Price {
		vammAsk = asVammTaker(asks[0])
	}
	if bids := ob.getLimitBids(slot, oraclePrice); len(bids) > 0 && perp.VammAsk != 0 && perp.VammAsk <= bids[0].Price {
		vammBid = asVammTaker(bids[0])
	}
	return vammBid, vammAsk
}

// CrossedOrder is one resting order inside a crossing region, joined
// with its metadata.
type CrossedOrder struct {
	OrderID uint64
	Price   uint64
	Size    uint64
	Meta    OrderMetadata
}

// CrossingRegion lists every resting-limit bid priced at or above the
// best ask and every resting-limit ask priced at or below the best bid
// Both sides are populated whenever the region exists at all.
type CrossingRegion struct {
	Bids []CrossedOrder
	Asks []CrossedOrder
	Slot uint64
}

// findCrossingRegion reports the crossed portion of the resting-limit
// book without consuming liquidity; ok is false when best_bid < best_ask
// or either side is empty. Expired orders (MaxTs within ExpiryBuffer of
// now) are left out. An entry with no metadata is skipped with a
// warning.
func findCrossingRegion(ob *Orderbook, slot, oraclePrice uint64, metadata *metadataMap) (CrossingRegion, bool) {
	now := nowUnixWithBuffer()
	live := func(entries []StaticEntry) []StaticEntry {
		out := entries[:0]
		for _, e := range entries {
			if !e.isExpired(now) {
				out = append(out, e)
			}
		}
		return out
	}
	bids := live(ob.RestingLimit.BidItems())
	asks := live(ob.RestingLimit.AskItems())
	if len(bids) == 0 || len(asks) == 0 {
		return CrossingRegion{}, false
	}
	bestBid, bestAsk := bids[0].Price, asks[0].Price
	if bestBid < bestAsk {
		return CrossingRegion{}, false
	}

	joined := func(e StaticEntry) (CrossedOrder, bool) {
		meta, ok := metadata.Get(e.ID)
		if !ok {
			log.Warn().Uint64("id", e.ID).Msg("metadata missing in crossing region")
			return CrossedOrder{}, false
		}
		return CrossedOrder{OrderID: e.ID, Price: e.Price, Size: e.Size, Meta: meta}, true
	}

	region := CrossingRegion{Slot: slot}
	for _, b := range bids {
		if b.Price < bestAsk {
			break
		}
		if co, ok := joined(b); ok {
			region.Bids = append(region.Bids, co)
		}
	}
	for _, a := range asks {
		if a.Price > bestBid {
			break
		}
		if co, ok := joined(a); ok {
			region.Asks = append(region.Asks, co)
		}
	}
	return region, true
}

// topMakers returns up to maxTopMakers distinct maker identities from
// the best-priced end of one side of the limit book.
func topMakers(ob *Orderbook, isBid bool, slot, oraclePrice uint64, metadata *metadataMap) []common.User {
	var views []LimitOrderView
	if isBid {
		views = ob.getLimitBids(slot, oraclePrice)
	} else {
		views = ob.getLimitAsks(slot, oraclePrice)
	}

	out := make([]common.User, 0, maxTopMakers)
	seen := make(map[common.User]bool, maxTopMakers)
	for _, v := range views {
		if len(out) >= maxTopMakers {
			break
		}
		meta, ok := metadata.Get(v.ID)
		if !ok || seen[meta.User] {
			continue
		}
		seen[meta.User] = true
		out = append(out, meta.User)
	}
	return out
}
