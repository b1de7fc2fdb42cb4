package dlob

import "github.com/fenrir-dlob/dlob/internal/common"

// diff.go implements account-order diffing: given a user's full
// order list before and after an account update, produce the minimal set
// of Create/Update/Remove deltas the event loop needs to apply. Orders
// are identified by OrderID within a user, not by position.

// DeltaKind tags an OrderDelta's variant.
type DeltaKind uint8

const (
	DeltaCreate DeltaKind = iota
	DeltaUpdate
	DeltaRemove
)

func (k DeltaKind) String() string {
	switch k {
	case DeltaCreate:
		return "create"
	case DeltaUpdate:
		return "update"
	case DeltaRemove:
		return "remove"
	default:
		return "unknown"
	}
}

// OrderDelta is one change to a single order, derived by comparing a
// user's previous and current order snapshots.
type OrderDelta struct {
	Kind DeltaKind
	User common.User
	// Order is the new order value for Create/Update, or the last-known
	// value (for its OrderID/MarketId) for Remove.
	Order common.Order
}

// CompareUserOrders diffs a user's order list between two account
// states and returns the deltas needed to bring the DLOB's view in
// sync. Removes for previously-open orders that vanished come first, so
// an OrderID freed and reused within one account update never produces
// a Create for an id still occupying a container. Init orders are
// on-chain placeholders and never produce deltas; a non-open order
// appearing with no prior state still emits a Remove so a missed
// earlier update cannot leave it stranded in a container.
func CompareUserOrders(user common.User, old, new []common.Order) []OrderDelta {
	oldByID := make(map[uint32]common.Order, len(old))
	for _, o := range old {
		oldByID[o.OrderID] = o
	}
	newByID := make(map[uint32]common.Order, len(new))
	for _, o := range new {
		newByID[o.OrderID] = o
	}

	var removes, rest []OrderDelta

	for _, o := range old {
		if o.Status != common.OrderStatusOpen {
			continue
		}
		if _, stillPresent := newByID[o.OrderID]; !stillPresent {
			removes = append(removes, OrderDelta{Kind: DeltaRemove, User: user, Order: o})
		}
	}

	for _, o := range new {
		if o.Status == common.OrderStatusInit {
			continue
		}
		prev, existed := oldByID[o.OrderID]
		switch {
		case !existed && o.Status == common.OrderStatusOpen:
			rest = append(rest, OrderDelta{Kind: DeltaCreate, User: user, Order: o})
		case !existed:
			rest = append(rest, OrderDelta{Kind: DeltaRemove, User: user, Order: o})
		case prev.Status == common.OrderStatusOpen && o.Status != common.OrderStatusOpen:
			rest = append(rest, OrderDelta{Kind: DeltaRemove, User: user, Order: o})
		case prev.Status == common.OrderStatusOpen && prev != o:
			rest = append(rest, OrderDelta{Kind: DeltaUpdate, User: user, Order: o})
		}
	}

	deltas := make([]OrderDelta, 0, len(removes)+len(rest))
	deltas = append(deltas, removes...)
	deltas = append(deltas, rest...)
	return deltas
}
