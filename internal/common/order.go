package common

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// PricePrecision is the fixed-point scale for every price field on Order.
const PricePrecision = 1_000_000

// OrderStatus mirrors the on-chain order lifecycle state.
type OrderStatus uint8

const (
	OrderStatusInit OrderStatus = iota
	OrderStatusOpen
	OrderStatusFilled
	OrderStatusCanceled
)

func (s OrderStatus) String() string {
	switch s {
	case OrderStatusInit:
		return "init"
	case OrderStatusOpen:
		return "open"
	case OrderStatusFilled:
		return "filled"
	case OrderStatusCanceled:
		return "canceled"
	default:
		return fmt.Sprintf("OrderStatus(%d)", uint8(s))
	}
}

// OrderType selects the order's base pricing behaviour.
type OrderType uint8

const (
	OrderTypeMarket OrderType = iota
	OrderTypeLimit
	OrderTypeOracle
	OrderTypeTriggerMarket
	OrderTypeTriggerLimit
)

func (t OrderType) String() string {
	switch t {
	case OrderTypeMarket:
		return "market"
	case OrderTypeLimit:
		return "limit"
	case OrderTypeOracle:
		return "oracle"
	case OrderTypeTriggerMarket:
		return "trigger_market"
	case OrderTypeTriggerLimit:
		return "trigger_limit"
	default:
		return fmt.Sprintf("OrderType(%d)", uint8(t))
	}
}

// Direction is the side of the book an order rests on or takes from.
type Direction uint8

const (
	DirectionLong Direction = iota
	DirectionShort
)

func (d Direction) String() string {
	if d == DirectionLong {
		return "long"
	}
	return "short"
}

func (d Direction) Opposite() Direction {
	if d == DirectionLong {
		return DirectionShort
	}
	return DirectionLong
}

// TriggerCondition is the state machine for TriggerMarket/TriggerLimit
// orders: Above/Below describe the untriggered watch condition,
// TriggeredAbove/TriggeredBelow mark that the condition fired and the
// order now behaves as an ordinary auction order.
type TriggerCondition uint8

const (
	TriggerConditionAbove TriggerCondition = iota
	TriggerConditionBelow
	TriggerConditionTriggeredAbove
	TriggerConditionTriggeredBelow
)

func (c TriggerCondition) IsTriggered() bool {
	return c == TriggerConditionTriggeredAbove || c == TriggerConditionTriggeredBelow
}

// BitFlags holds the single-bit order flags the core reads.
type BitFlags uint8

const (
	// BitFlagOracleTriggerMarket marks a TriggerMarket order that, once
	// triggered, should be priced/routed as an Oracle order rather than
	// a plain Market order.
	BitFlagOracleTriggerMarket BitFlags = 1 << iota
)

func (f BitFlags) Has(flag BitFlags) bool {
	return f&flag != 0
}

// Order is the canonical order as seen from the user-account collaborator.
// It is immutable from the DLOB's point of view: every mutation arrives as
// a brand new Order value inside an OrderDelta.
type Order struct {
	OrderID     uint32
	Slot        uint64
	Status      OrderStatus
	OrderType   OrderType
	Direction   Direction
	MarketIndex uint16
	MarketType  MarketType

	Price                 uint64
	BaseAssetAmount       uint64
	BaseAssetAmountFilled uint64

	AuctionStartPrice int64
	AuctionEndPrice   int64
	AuctionDuration   uint8

	OraclePriceOffset int32

	TriggerPrice     uint64
	TriggerCondition TriggerCondition

	PostOnly bool
	MaxTs    int64
	BitFlags BitFlags
}

// MarketId is the market this order belongs to.
func (o Order) MarketId() MarketId {
	return NewMarketId(o.MarketIndex, o.MarketType)
}

// RemainingSize is the quantity of the order still eligible to fill.
func (o Order) RemainingSize() uint64 {
	if o.BaseAssetAmountFilled >= o.BaseAssetAmount {
		return 0
	}
	return o.BaseAssetAmount - o.BaseAssetAmountFilled
}

// IsFullyFilled reports whether the order has nothing left to match.
func (o Order) IsFullyFilled() bool {
	return o.BaseAssetAmountFilled >= o.BaseAssetAmount
}

// IsOracleTriggerMarket reports whether a triggered TriggerMarket order
// should be routed through the oracle-auction container instead of the
// market-auction container.
func (o Order) IsOracleTriggerMarket() bool {
	return o.BitFlags.Has(BitFlagOracleTriggerMarket)
}

// IsAuctioning reports whether the order is still within its auction
// window at the given slot.
func (o Order) IsAuctioning(slot uint64) bool {
	return o.AuctionDuration > 0 && o.Slot+uint64(o.AuctionDuration) > slot
}

func (o Order) String() string {
	return fmt.Sprintf(
		"Order{id=%d slot=%d status=%v type=%v dir=%v market=%s price=%d size=%d/%d}",
		o.OrderID, o.Slot, o.Status, o.OrderType, o.Direction, o.MarketId(),
		o.Price, o.BaseAssetAmountFilled, o.BaseAssetAmount,
	)
}

// User is the account identity an order belongs to. The core treats it
// as an opaque, comparable key; the collaborator layer supplies it as a
// Solana account public key.
type User = solana.PublicKey
