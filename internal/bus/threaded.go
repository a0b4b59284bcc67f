package bus

import (
	"github.com/meshbus/meshbus/internal/packet"
	"github.com/meshbus/meshbus/internal/threadpool"
)

// ThreadedBus clones the outgoing packet and schedules the actual routing
// on a worker pool, so the caller's goroutine returns immediately. This
// mirrors LocalThreadedBus::sendMessage, which clones the packet and calls
// IThreadPool::schedule with a closure that performs routeMessage and then
// frees the clone. In Go the clone is simply dropped once the scheduled
// closure returns; there is no explicit free step.
type ThreadedBus struct {
	*Bus
	pool *threadpool.Pool
}

// NewThreadedBus creates a bus whose fan-out runs on pool. Routing runs only
// while the pool is started; packets sent before Start wait in the pool's
// queue until the workers launch.
func NewThreadedBus(pool *threadpool.Pool) *ThreadedBus {
	return &ThreadedBus{Bus: newBus(), pool: pool}
}

// SendMessage clones p and schedules routing on the worker pool. It returns
// whatever Schedule returns, which is always nil: a stopped pool still
// queues the task.
func (b *ThreadedBus) SendMessage(sender Connection, p *packet.Packet) error {
	clone := p.Clone()
	return b.pool.Schedule(func() {
		b.routeMessage(sender, clone)
	})
}
