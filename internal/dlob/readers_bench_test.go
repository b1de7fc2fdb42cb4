package dlob

import (
	"sync"
	"testing"

	"github.com/panjf2000/ants/v2"

	"github.com/fenrir-dlob/dlob/internal/common"
)

// BenchmarkConcurrentSnapshotReads drives many parallel GetL2Snapshot /
// GetL3Snapshot calls through a bounded ants.Pool rather than an
// unbounded goroutine fan-out. It exercises the lock-free atomic.Pointer
// snapshot read path under read contention while one writer republishes
// between runs.
func BenchmarkConcurrentSnapshotReads(b *testing.B) {
	d := New()
	market := common.NewMarketId(0, common.MarketTypePerp)
	d.BootstrapMarket(market, 1)

	ob, _ := d.markets.Get(market)
	ob.RestingLimit.InsertRaw(true, StaticEntry{ID: 1, Price: 100, Size: 10})
	ob.RestingLimit.InsertRaw(false, StaticEntry{ID: 2, Price: 101, Size: 10})
	ob.UpdateSlotAndOraclePrice(1, 100, d.metadata)
	ob.PublishL3(1, 100, d.metadata)

	pool, err := ants.NewPool(8)
	if err != nil {
		b.Fatalf("ants.NewPool: %v", err)
	}
	defer pool.Release()

	b.ResetTimer()
	var wg sync.WaitGroup
	for i := 0; i < b.N; i++ {
		wg.Add(1)
		err := pool.Submit(func() {
			defer wg.Done()
			d.GetL2Snapshot(market)
			d.GetL3Snapshot(market)
		})
		if err != nil {
			wg.Done()
			b.Fatalf("pool.Submit: %v", err)
		}
	}
	wg.Wait()
}
