package ingest

import (
	"net"

	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"
)

// connTaskQueueSize bounds how many accepted connections can be waiting
// for a free worker before new connections are shed.
const connTaskQueueSize = 256

// workerPool runs a fixed number of goroutines that each pull a
// connection off tasks and hand it to handle.
type workerPool struct {
	n      int
	tasks  chan net.Conn
	handle func(t *tomb.Tomb, conn net.Conn)
}

func newWorkerPool(n int, handle func(t *tomb.Tomb, conn net.Conn)) *workerPool {
	if n <= 0 {
		n = 8
	}
	return &workerPool{n: n, tasks: make(chan net.Conn, connTaskQueueSize), handle: handle}
}

func (p *workerPool) submit(conn net.Conn) {
	select {
	case p.tasks <- conn:
	default:
		log.Warn().Msg("ingest: worker pool saturated, closing connection")
		conn.Close()
	}
}

// run spawns p.n worker goroutines under t and blocks until t is dying.
func (p *workerPool) run(t *tomb.Tomb) {
	for i := 0; i < p.n; i++ {
		t.Go(func() error {
			for {
				select {
				case <-t.Dying():
					return nil
				case conn := <-p.tasks:
					p.handle(t, conn)
				}
			}
		})
	}
	<-t.Dying()
}
