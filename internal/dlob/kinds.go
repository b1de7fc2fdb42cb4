package dlob

import (
	"fmt"

	"github.com/fenrir-dlob/dlob/internal/common"
)

// OrderKind is the internal classification computed at insert time. It
// determines which container an order lives in and how its live price is
// computed; it may change in place when an auction expires into a resting
// order or a trigger condition fires.
type OrderKind uint8

const (
	KindMarket OrderKind = iota
	KindOracle
	KindLimit
	KindFloatingLimit
	KindLimitAuction
	KindFloatingLimitAuction
	KindTriggerMarket
	KindTriggerLimit
	KindMarketTriggered
	KindOracleTriggered
	KindLimitTriggered
)

func (k OrderKind) String() string {
	switch k {
	case KindMarket:
		return "market"
	case KindOracle:
		return "oracle"
	case KindLimit:
		return "limit"
	case KindFloatingLimit:
		return "floating_limit"
	case KindLimitAuction:
		return "limit_auction"
	case KindFloatingLimitAuction:
		return "floating_limit_auction"
	case KindTriggerMarket:
		return "trigger_market"
	case KindTriggerLimit:
		return "trigger_limit"
	case KindMarketTriggered:
		return "market_triggered"
	case KindOracleTriggered:
		return "oracle_triggered"
	case KindLimitTriggered:
		return "limit_triggered"
	default:
		return fmt.Sprintf("OrderKind(%d)", uint8(k))
	}
}

// ClassifyLimit classifies an OrderTypeLimit order from its auction and
// oracle-offset fields. It is the only classification with more than one
// possible outcome; every other OrderType maps onto exactly one OrderKind
// (see insertOrder in dlob.go).
func ClassifyLimit(postOnly bool, auctionDuration uint8, oraclePriceOffset int32) OrderKind {
	isAuction := auctionDuration > 0
	isFloating := oraclePriceOffset != 0

	if postOnly {
		// post-only orders never auction; maker-only.
		if isFloating {
			return KindFloatingLimit
		}
		return KindLimit
	}

	switch {
	case isAuction && isFloating:
		return KindFloatingLimitAuction
	case isAuction && !isFloating:
		return KindLimitAuction
	case !isAuction && isFloating:
		return KindFloatingLimit
	default:
		return KindLimit
	}
}

// OrderMetadata is the single process-wide record keyed by internal
// order id: an order exists in exactly one container iff its metadata
// entry exists.
type OrderMetadata struct {
	User            common.User
	ExternalOrderID uint32
	Kind            OrderKind
	MaxTs           int64
}
