// Package ingest is the TCP front door: it decodes NewOrder/CancelOrder
// wire messages from connected clients and turns them into dlob.OrderDelta
// events submitted through the DLOB's notifier.
package ingest

import (
	"encoding/binary"
	"errors"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"

	"github.com/fenrir-dlob/dlob/internal/common"
	"github.com/fenrir-dlob/dlob/internal/dlob"
)

var (
	ErrInvalidMessageType = errors.New("ingest: invalid message type")
	ErrMessageTooShort    = errors.New("ingest: message too short")
)

// MessageType tags a wire message's variant.
type MessageType uint16

const (
	Heartbeat MessageType = iota
	NewOrder
	CancelOrder
)

// wireOrderLen is the fixed-size NewOrder body: Owner(32) + OrderID(4) +
// Slot(8) + OrderType(1) + Direction(1) + MarketIndex(2) + MarketType(1) +
// Price(8) + BaseAssetAmount(8) + AuctionStartPrice(8) + AuctionEndPrice(8)
// + AuctionDuration(1) + OraclePriceOffset(4) + TriggerPrice(8) +
// TriggerCondition(1) + PostOnly(1) + MaxTs(8) + BitFlags(1).
const wireOrderLen = 32 + 4 + 8 + 1 + 1 + 2 + 1 + 8 + 8 + 8 + 8 + 1 + 4 + 8 + 1 + 1 + 8 + 1

// cancelOrderLen is Owner(32) + OrderID(4) + MarketIndex(2) + MarketType(1)
// + Direction(1). Direction travels with the cancel so removeOrder can
// pick the correct book side without a metadata lookup that might have
// already raced away.
const cancelOrderLen = 32 + 4 + 2 + 1 + 1

// NewOrderMessage carries a freshly-placed order and the account it
// belongs to.
type NewOrderMessage struct {
	User  common.User
	Order common.Order
}

// CancelOrderMessage identifies an order to remove by its external id.
type CancelOrderMessage struct {
	User        common.User
	OrderID     uint32
	MarketIndex uint16
	MarketType  common.MarketType
	Direction   common.Direction
}

// decodeMessage parses a frame's 2-byte type header followed by its body.
func decodeMessage(frame []byte) (any, error) {
	if len(frame) < 2 {
		return nil, ErrMessageTooShort
	}
	typeOf := MessageType(binary.BigEndian.Uint16(frame[0:2]))
	body := frame[2:]
	switch typeOf {
	case NewOrder:
		return decodeNewOrder(body)
	case CancelOrder:
		return decodeCancelOrder(body)
	case Heartbeat:
		return nil, nil
	default:
		return nil, ErrInvalidMessageType
	}
}

func decodeNewOrder(b []byte) (NewOrderMessage, error) {
	if len(b) < wireOrderLen {
		return NewOrderMessage{}, ErrMessageTooShort
	}
	var owner [32]byte
	copy(owner[:], b[0:32])
	b = b[32:]

	o := common.Order{
		OrderID:     binary.BigEndian.Uint32(b[0:4]),
		Slot:        binary.BigEndian.Uint64(b[4:12]),
		OrderType:   common.OrderType(b[12]),
		Direction:   common.Direction(b[13]),
		MarketIndex: binary.BigEndian.Uint16(b[14:16]),
		MarketType:  common.MarketType(b[16]),
		Status:      common.OrderStatusOpen,
	}
	b = b[17:]
	o.Price = binary.BigEndian.Uint64(b[0:8])
	o.BaseAssetAmount = binary.BigEndian.Uint64(b[8:16])
	o.AuctionStartPrice = int64(binary.BigEndian.Uint64(b[16:24]))
	o.AuctionEndPrice = int64(binary.BigEndian.Uint64(b[24:32]))
	o.AuctionDuration = b[32]
	o.OraclePriceOffset = int32(binary.BigEndian.Uint32(b[33:37]))
	o.TriggerPrice = binary.BigEndian.Uint64(b[37:45])
	o.TriggerCondition = common.TriggerCondition(b[45])
	o.PostOnly = b[46] != 0
	o.MaxTs = int64(binary.BigEndian.Uint64(b[47:55]))
	o.BitFlags = common.BitFlags(b[55])

	return NewOrderMessage{User: solana.PublicKey(owner), Order: o}, nil
}

func encodeNewOrder(user common.User, o common.Order) []byte {
	buf := make([]byte, 2+wireOrderLen)
	binary.BigEndian.PutUint16(buf[0:2], uint16(NewOrder))
	copy(buf[2:34], user[:])
	b := buf[34:]
	binary.BigEndian.PutUint32(b[0:4], o.OrderID)
	binary.BigEndian.PutUint64(b[4:12], o.Slot)
	b[12] = byte(o.OrderType)
	b[13] = byte(o.Direction)
	binary.BigEndian.PutUint16(b[14:16], o.MarketIndex)
	b[16] = byte(o.MarketType)
	b = b[17:]
	binary.BigEndian.PutUint64(b[0:8], o.Price)
	binary.BigEndian.PutUint64(b[8:16], o.BaseAssetAmount)
	binary.BigEndian.PutUint64(b[16:24], uint64(o.AuctionStartPrice))
	binary.BigEndian.PutUint64(b[24:32], uint64(o.AuctionEndPrice))
	b[32] = o.AuctionDuration
	binary.BigEndian.PutUint32(b[33:37], uint32(o.OraclePriceOffset))
	binary.BigEndian.PutUint64(b[37:45], o.TriggerPrice)
	b[45] = byte(o.TriggerCondition)
	if o.PostOnly {
		b[46] = 1
	}
	binary.BigEndian.PutUint64(b[47:55], uint64(o.MaxTs))
	b[55] = byte(o.BitFlags)
	return buf
}

func decodeCancelOrder(b []byte) (CancelOrderMessage, error) {
	if len(b) < cancelOrderLen {
		return CancelOrderMessage{}, ErrMessageTooShort
	}
	var owner [32]byte
	copy(owner[:], b[0:32])
	return CancelOrderMessage{
		User:        solana.PublicKey(owner),
		OrderID:     binary.BigEndian.Uint32(b[32:36]),
		MarketIndex: binary.BigEndian.Uint16(b[36:38]),
		MarketType:  common.MarketType(b[38]),
		Direction:   common.Direction(b[39]),
	}, nil
}

func encodeCancelOrder(user common.User, orderID uint32, market common.MarketId, direction common.Direction) []byte {
	buf := make([]byte, 2+cancelOrderLen)
	binary.BigEndian.PutUint16(buf[0:2], uint16(CancelOrder))
	copy(buf[2:34], user[:])
	binary.BigEndian.PutUint32(buf[34:38], orderID)
	binary.BigEndian.PutUint16(buf[38:40], market.Index)
	buf[40] = byte(market.Kind)
	buf[41] = byte(direction)
	return buf
}

// toDelta converts a decoded wire message into the dlob.OrderDelta the
// DLOB event loop expects, generating a correlation id for log tracing
// (the DLOB itself keys on the 64-bit order hash).
func toDelta(msg any) (dlob.OrderDelta, string, bool) {
	switch m := msg.(type) {
	case NewOrderMessage:
		return dlob.OrderDelta{Kind: dlob.DeltaCreate, User: m.User, Order: m.Order}, uuid.New().String(), true
	case CancelOrderMessage:
		order := common.Order{
			OrderID:     m.OrderID,
			MarketIndex: m.MarketIndex,
			MarketType:  m.MarketType,
			Direction:   m.Direction,
			Status:      common.OrderStatusCanceled,
		}
		return dlob.OrderDelta{Kind: dlob.DeltaRemove, User: m.User, Order: order}, uuid.New().String(), true
	default:
		return dlob.OrderDelta{}, "", false
	}
}
