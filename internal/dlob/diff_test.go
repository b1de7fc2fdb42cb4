package dlob

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fenrir-dlob/dlob/internal/common"
)

func testUser(b byte) common.User {
	var u common.User
	u[0] = b
	return u
}

func openOrder(id uint32, price uint64, size uint64) common.Order {
	return common.Order{OrderID: id, Status: common.OrderStatusOpen, Price: price, BaseAssetAmount: size}
}

func TestCompareUserOrders_CreateUpdateRemove(t *testing.T) {
	user := testUser(1)

	old := []common.Order{
		openOrder(1, 100, 10),
		openOrder(2, 200, 20),
	}
	updated := openOrder(1, 100, 10)
	updated.BaseAssetAmountFilled = 5
	next := []common.Order{
		updated,               // updated
		openOrder(3, 300, 30), // created
		// OrderID 2 disappeared -> removed
	}

	deltas := CompareUserOrders(user, old, next)

	assert.Len(t, deltas, 3)
	assert.Equal(t, DeltaRemove, deltas[0].Kind)
	assert.Equal(t, uint32(2), deltas[0].Order.OrderID)

	kinds := map[uint32]DeltaKind{}
	for _, d := range deltas[1:] {
		kinds[d.Order.OrderID] = d.Kind
	}
	assert.Equal(t, DeltaUpdate, kinds[1])
	assert.Equal(t, DeltaCreate, kinds[3])
}

func TestCompareUserOrders_ReusedIDIsUpdate(t *testing.T) {
	user := testUser(1)

	old := []common.Order{openOrder(7, 100, 10)}
	next := []common.Order{openOrder(7, 999, 1)}

	// Same OrderID but entirely different order (a freed slot reused in the
	// same account update) is still treated as an Update by identity, not a
	// remove+create, since CompareUserOrders keys purely on OrderID.
	deltas := CompareUserOrders(user, old, next)
	assert.Len(t, deltas, 1)
	assert.Equal(t, DeltaUpdate, deltas[0].Kind)
}

func TestCompareUserOrders_StatusTransitions(t *testing.T) {
	user := testUser(1)

	// An Init order in the new snapshot is a placeholder: no delta.
	initOrder := openOrder(1, 100, 10)
	initOrder.Status = common.OrderStatusInit
	deltas := CompareUserOrders(user, nil, []common.Order{initOrder})
	assert.Empty(t, deltas)

	// A new order already past Open produces a Remove for idempotent
	// safety, never a Create.
	canceled := openOrder(2, 100, 10)
	canceled.Status = common.OrderStatusCanceled
	deltas = CompareUserOrders(user, nil, []common.Order{canceled})
	require.Len(t, deltas, 1)
	assert.Equal(t, DeltaRemove, deltas[0].Kind)

	// A known Open order whose status leaves Open is removed.
	open := openOrder(3, 100, 10)
	filled := open
	filled.Status = common.OrderStatusFilled
	filled.BaseAssetAmountFilled = 10
	deltas = CompareUserOrders(user, []common.Order{open}, []common.Order{filled})
	require.Len(t, deltas, 1)
	assert.Equal(t, DeltaRemove, deltas[0].Kind)

	// An old order that was never Open vanishing produces nothing.
	neverOpen := openOrder(4, 100, 10)
	neverOpen.Status = common.OrderStatusCanceled
	deltas = CompareUserOrders(user, []common.Order{neverOpen}, nil)
	assert.Empty(t, deltas)
}

func TestCompareUserOrders_NoChangeProducesNoDelta(t *testing.T) {
	user := testUser(1)
	o := openOrder(1, 100, 10)

	deltas := CompareUserOrders(user, []common.Order{o}, []common.Order{o})
	assert.Empty(t, deltas)
}

func TestCompareUserOrders_EmptyToEmpty(t *testing.T) {
	deltas := CompareUserOrders(testUser(1), nil, nil)
	assert.Empty(t, deltas)
}
