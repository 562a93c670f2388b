// Package dispatch runs event handlers in arrival order per key while
// letting different keys run concurrently.
package dispatch

import (
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/sourcegraph/conc"
	"go.uber.org/zap"
)

// Defaults used when the config leaves them unset.
const (
	DefaultIdleTimeout = time.Minute
	DefaultQueueSize   = 256
)

// VoiceKey orders a user's voice state changes.
func VoiceKey(userID uint64) string { return "voice:" + strconv.FormatUint(userID, 10) }

// MessageKey orders a user's messages.
func MessageKey(userID uint64) string { return "msg:" + strconv.FormatUint(userID, 10) }

// MemberKey orders a user's membership events.
func MemberKey(userID uint64) string { return "member:" + strconv.FormatUint(userID, 10) }

type queue struct {
	tasks chan func()
	// pending counts tasks submitted but not yet finished. Guarded by Dispatcher.mu.
	pending int
}

// Dispatcher keeps one FIFO queue and one worker goroutine per active key.
// Workers exit after being idle for the idle timeout.
type Dispatcher struct {
	mu          sync.Mutex
	queues      map[string]*queue
	closed      bool
	done        chan struct{}
	wg          conc.WaitGroup
	idleTimeout time.Duration
	queueSize   int
	logger      *zap.Logger
}

// New creates a Dispatcher.
func New(idleTimeout time.Duration, queueSize int, logger *zap.Logger) *Dispatcher {
	if idleTimeout <= 0 {
		idleTimeout = DefaultIdleTimeout
	}
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}

	return &Dispatcher{
		queues:      make(map[string]*queue),
		done:        make(chan struct{}),
		idleTimeout: idleTimeout,
		queueSize:   queueSize,
		logger:      logger.Named("dispatcher"),
	}
}

// Submit queues a task behind every earlier task with the same key. It never
// blocks: the task is dropped and false returned when the key's queue is full
// or the dispatcher is closed.
func (d *Dispatcher) Submit(key string, task func()) bool {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return false
	}

	q, ok := d.queues[key]
	if !ok {
		q = &queue{tasks: make(chan func(), d.queueSize)}
		d.queues[key] = q
		d.wg.Go(func() { d.run(key, q) })
	}

	select {
	case q.tasks <- task:
		q.pending++
		d.mu.Unlock()
		return true
	default:
		d.mu.Unlock()
		d.logger.Warn("Dropping event, queue full",
			zap.String("key", key),
			zap.Int("queueSize", d.queueSize))
		return false
	}
}

// Workers returns the number of live workers.
func (d *Dispatcher) Workers() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.queues)
}

// Close stops accepting tasks and waits for every queued task to finish.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.done)
	d.mu.Unlock()

	d.wg.Wait()
}

func (d *Dispatcher) run(key string, q *queue) {
	timer := time.NewTimer(d.idleTimeout)
	defer timer.Stop()

	for {
		select {
		case task := <-q.tasks:
			d.execute(key, q, task)
			timer.Reset(d.idleTimeout)

		case <-timer.C:
			d.mu.Lock()
			if q.pending == 0 {
				delete(d.queues, key)
				d.mu.Unlock()
				return
			}
			d.mu.Unlock()
			timer.Reset(d.idleTimeout)

		case <-d.done:
			d.drain(key, q)
			return
		}
	}
}

// drain runs the tasks still queued at shutdown.
func (d *Dispatcher) drain(key string, q *queue) {
	for {
		d.mu.Lock()
		pending := q.pending
		if pending == 0 {
			delete(d.queues, key)
		}
		d.mu.Unlock()

		if pending == 0 {
			return
		}
		d.execute(key, q, <-q.tasks)
	}
}

func (d *Dispatcher) execute(key string, q *queue, task func()) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("Recovered from panic in event handler",
				zap.String("key", key),
				zap.Error(fmt.Errorf("%v", r)),
				zap.Stack("stack"))
		}

		d.mu.Lock()
		q.pending--
		d.mu.Unlock()
	}()

	task()
}
