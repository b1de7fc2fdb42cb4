package dlob

import (
	"github.com/rs/zerolog/log"

	"github.com/fenrir-dlob/dlob/internal/common"
)

// eventChanCapacity is the bounded inbound event channel's size.
// Past this many unconsumed events producers drop rather than block: a
// slow consumer must not stall the collaborators feeding it.
const eventChanCapacity = 2048

// EventKind tags an Event's variant.
type EventKind uint8

const (
	EventSlotOrPriceUpdate EventKind = iota
	EventOrder
)

// Event is one unit of inbound work for the DLOB's single-consumer
// loop: either a slot/oracle-price tick for one market, or an
// order-level delta derived from a user-account diff.
type Event struct {
	Kind EventKind

	// Populated when Kind == EventSlotOrPriceUpdate.
	Market      common.MarketId
	Slot        uint64
	OraclePrice uint64

	// Populated when Kind == EventOrder.
	Delta OrderDelta
}

// Notifier is the producer handle external collaborators (RPC listeners,
// the diff engine, the ingest server) use to feed events into the DLOB's
// single-consumer loop. Any number of goroutines may share one handle.
type Notifier struct {
	d *DLOB
}

// Send enqueues ev without blocking. A full channel means the consumer
// is behind; the event is dropped with an error log and Send returns
// false; backpressure is the producer's responsibility.
func (n Notifier) Send(ev Event) bool {
	select {
	case n.d.events <- ev:
		return true
	default:
		log.Error().
			Uint8("kind", uint8(ev.Kind)).
			Msg("dlob event channel full, dropping event")
		if m := n.d.metrics; m != nil {
			m.EventsDropped.Inc()
		}
		return false
	}
}
