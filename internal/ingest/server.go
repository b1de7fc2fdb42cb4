package ingest

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"

	"github.com/fenrir-dlob/dlob/internal/dlob"
)

const (
	maxFrameSize       = 4 * 1024
	defaultConnTimeout = 5 * time.Second
)

// EventSink is the slice of dlob.Notifier the ingest server depends on,
// narrowed so tests can substitute a fake.
type EventSink interface {
	Send(ev dlob.Event) bool
}

// Server is the TCP front door: it accepts connections, decodes
// NewOrder/CancelOrder frames off a bounded worker pool, and forwards
// each decoded message into the DLOB's event channel through a producer
// handle. Sends are non-blocking; an event that finds the DLOB's channel
// full is dropped, so a stalled book never stalls ingest.
type Server struct {
	address string
	port    int
	sink    EventSink
	pool    *workerPool
}

// New constructs an ingest server bound to address:port, forwarding
// decoded order deltas into sink (normally dlob.DLOB.Notifier()).
func New(address string, port int, sink EventSink, workers int) *Server {
	s := &Server{address: address, port: port, sink: sink}
	s.pool = newWorkerPool(workers, s.handleConnection)
	return s
}

// Run starts the TCP listener and worker pool under a tomb, blocking
// until ctx is canceled.
func (s *Server) Run(ctx context.Context) error {
	t, ctx := tomb.WithContext(ctx)

	var lc net.ListenConfig
	listener, err := lc.Listen(ctx, "tcp", fmt.Sprintf("%s:%d", s.address, s.port))
	if err != nil {
		return fmt.Errorf("ingest: listen: %w", err)
	}
	defer listener.Close()

	t.Go(func() error {
		s.pool.run(t)
		return nil
	})

	log.Info().Str("addr", listener.Addr().String()).Msg("ingest server listening")

	t.Go(func() error {
		for {
			conn, err := listener.Accept()
			if err != nil {
				select {
				case <-t.Dying():
					return nil
				default:
					log.Error().Err(err).Msg("ingest: accept failed")
					continue
				}
			}
			s.pool.submit(conn)
		}
	})

	<-t.Dying()
	return t.Err()
}

// handleConnection reads one frame off conn, decodes it, and forwards it
// to the sink as an order event, then resubmits conn so the next frame is served by
// whichever worker is free next.
func (s *Server) handleConnection(t *tomb.Tomb, conn net.Conn) {
	if err := conn.SetDeadline(time.Now().Add(defaultConnTimeout)); err != nil {
		log.Error().Err(err).Str("addr", conn.RemoteAddr().String()).Msg("ingest: set deadline")
		conn.Close()
		return
	}

	buf := make([]byte, maxFrameSize)
	n, err := conn.Read(buf)
	if err != nil {
		conn.Close()
		return
	}

	msg, err := decodeMessage(buf[:n])
	if err != nil {
		log.Warn().Err(err).Str("addr", conn.RemoteAddr().String()).Msg("ingest: malformed frame")
		s.pool.submit(conn)
		return
	}

	if delta, corrID, ok := toDelta(msg); ok {
		if s.sink.Send(dlob.Event{Kind: dlob.EventOrder, Delta: delta}) {
			log.Debug().Str("corrID", corrID).Stringer("delta", delta.Kind).Msg("ingest: forwarded order delta")
		} else {
			log.Warn().Str("corrID", corrID).Msg("ingest: dlob event channel full, delta dropped")
		}
	}

	s.pool.submit(conn)
}
