package dlob

import (
	"encoding/binary"
	"hash/maphash"

	"github.com/fenrir-dlob/dlob/internal/common"
)

// hashSeed is fixed once per process: internal order ids only need to
// be stable for the lifetime of one DLOB instance, never across
// restarts or processes.
var hashSeed = maphash.MakeSeed()

// OrderHash computes the 64-bit internal order id for an externally
// visible (user, order_id) pair. Collisions are negligible at any
// realistic number of live orders; nothing in the core treats a
// collision as anything other than "should not happen".
func OrderHash(user common.User, orderID uint32) uint64 {
	var h maphash.Hash
	h.SetSeed(hashSeed)
	h.Write(user[:])
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], orderID)
	h.Write(buf[:])
	return h.Sum64()
}
