package dlob

import "github.com/fenrir-dlob/dlob/internal/common"

// marketsMap is the MarketId -> *Orderbook index. Orderbooks are
// bootstrapped lazily: the first order for a market that was never
// bootstrapped creates its Orderbook via GetOrCreate at tick size 1, and
// a later BootstrapMarket call (dlob.go) does not change it. Slot
// updates for an unknown market are ignored rather than creating one.
type marketsMap struct {
	m *shardedMap[common.MarketId, *Orderbook]
}

func newMarketsMap() *marketsMap {
	return &marketsMap{m: newShardedMap[common.MarketId, *Orderbook](marketIDHash)}
}

func marketIDHash(id common.MarketId) uint64 {
	return uint64(id.Index)<<8 | uint64(id.Kind)
}

func (mm *marketsMap) Get(id common.MarketId) (*Orderbook, bool) { return mm.m.Get(id) }

// GetOrCreate returns the market's Orderbook, bootstrapping a fresh one
// at tickSize (falling back to 1 if zero) the first time this MarketId
// is touched.
func (mm *marketsMap) GetOrCreate(id common.MarketId, tickSize uint64) *Orderbook {
	return mm.m.GetOrCreate(id, func() *Orderbook {
		return NewOrderbook(id.Index, tickSize)
	})
}

func (mm *marketsMap) Len() int { return mm.m.Len() }
