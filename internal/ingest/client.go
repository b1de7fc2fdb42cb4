package ingest

import (
	"net"

	"github.com/fenrir-dlob/dlob/internal/common"
)

// SendNewOrder writes a NewOrder frame for o (owned by user) to conn,
// the wire-level counterpart to decodeNewOrder in messages.go.
func SendNewOrder(conn net.Conn, user common.User, o common.Order) error {
	_, err := conn.Write(encodeNewOrder(user, o))
	return err
}

// SendCancelOrder writes a CancelOrder frame to conn.
func SendCancelOrder(conn net.Conn, user common.User, orderID uint32, market common.MarketId, direction common.Direction) error {
	_, err := conn.Write(encodeCancelOrder(user, orderID, market, direction))
	return err
}
