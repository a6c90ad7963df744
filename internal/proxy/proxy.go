// Package proxy implements the UI-side half of the command channel: it
// turns a method call into a queued command, waits for the worker's
// response with a deadline, and republishes everything the worker
// emits as ordinary events — snapshots, readiness, queue status, and
// whatever ad hoc stateManager:<name> events a game-specific handler
// chooses to publish.
package proxy

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/archipelago-tracker/core/internal/domain"
	domainerrors "github.com/archipelago-tracker/core/internal/domain/errors"
	"github.com/archipelago-tracker/core/internal/queue"
	"github.com/archipelago-tracker/core/internal/staticdata"
)

// mutatingCommands marks which command names cause the snapshot cache
// to go stale the moment they are sent, ahead of any response. Queries
// (getFullSnapshot, evaluateRuleRemote, ping, ...) are not listed here.
var mutatingCommands = map[string]bool{
	"loadRules":                      true,
	"addItemToInventory":             true,
	"removeItemFromInventory":        true,
	"checkLocation":                  true,
	"uncheckLocation":                true,
	"beginBatchUpdate":               true,
	"commitBatchUpdate":              true,
	"syncCheckedLocationsFromServer": true,
	"clearStateAndReset":             true,
	"clearEventItems":                true,
	"applyRuntimeState":              true,
	"applyTestInventoryAndEvaluate":  true,
	"recalculateAccessibility":       true,
}

// DefaultTimeout is used by Send when a caller does not specify one.
const DefaultTimeout = 2 * time.Second

// Proxy sits between a UI-facing caller and the single-goroutine
// worker's queue: every call becomes a queue.Command, tracked in a
// pendingTable until it resolves, times out, or the worker fails
// globally.
type Proxy struct {
	q       *queue.Queue
	bus     *EventBus
	pending *pendingTable

	queryCounter atomic.Uint64

	mu          sync.RWMutex
	snapshot    *domain.Snapshot
	static      *staticdata.StaticData
	stale       bool
	ready       bool
	readyWaiters []chan struct{}

	cleanupStop chan struct{}
	cleanupDone chan struct{}

	introspect IntrospectFunc
}

// IntrospectFunc answers a queue-introspection command directly from
// the worker's own bookkeeping, bypassing the FIFO entirely so a
// getWorkerQueueStatus call is never stuck behind a slow command. It
// matches queue.Worker.HandleIntrospection's signature structurally;
// proxy never imports the queue.Worker type itself to keep this
// package usable without a worker wired up yet (e.g. in tests that
// drive a Queue directly).
type IntrospectFunc func(command string, payload any) (any, bool)

// New creates a Proxy bound to q and starts its periodic cleanup
// sweep. Stop must be called to release the sweep goroutine.
// introspect may be nil if no queue-introspection commands are wired.
func New(q *queue.Queue, introspect IntrospectFunc) *Proxy {
	p := &Proxy{
		q:           q,
		bus:         NewEventBus(),
		pending:     newPendingTable(),
		cleanupStop: make(chan struct{}),
		cleanupDone: make(chan struct{}),
		introspect:  introspect,
	}
	go p.cleanupLoop()
	return p
}

// Events returns the bus UI consumers subscribe to.
func (p *Proxy) Events() *EventBus { return p.bus }

// Stop ends the periodic cleanup sweep.
func (p *Proxy) Stop() {
	close(p.cleanupStop)
	<-p.cleanupDone
}

func (p *Proxy) cleanupLoop() {
	defer close(p.cleanupDone)
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-p.cleanupStop:
			return
		case <-ticker.C:
			p.pending.sweep()
		}
	}
}

func (p *Proxy) nextQueryID() string {
	n := p.queryCounter.Add(1)
	return "q" + itoa(n)
}

// itoa avoids pulling in strconv just for one call site's worth of
// uint64 formatting.
func itoa(n uint64) string {
	if n == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}

// Send enqueues command with payload, waits up to timeout for the
// worker's response, and returns its result. A mutating command marks
// the snapshot cache stale immediately, before any response arrives.
// On timeout the pending entry is kept (not deleted) so a late
// response can still be matched and discarded cleanly; the worker
// itself is never interrupted and still runs the command to
// completion.
func (p *Proxy) Send(command string, payload any, timeout time.Duration) (any, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	if p.introspect != nil {
		if result, ok := p.introspect(command, payload); ok {
			return result, nil
		}
	}

	queryID := p.nextQueryID()
	cmd := queue.New(queryID, command, payload)
	entry := p.pending.register(queryID, cmd.CorrelationID, command)

	if mutatingCommands[command] {
		p.markStale()
	}

	p.q.Push(cmd)

	go func() {
		result, err := cmd.Wait()
		p.pending.deliver(queryID, result, err)
	}()

	select {
	case <-entry.done:
		value, err := entry.result()
		p.observeResult(command, value, err)
		return value, err
	case <-time.After(timeout):
		p.pending.markTimedOut(queryID)
		return nil, &ErrTimeout{Command: command, QueryID: queryID}
	}
}

// observeResult updates the snapshot/static caches and publishes the
// matching event whenever a successful response carries a well-known
// result shape.
func (p *Proxy) observeResult(command string, value any, err error) {
	if err != nil {
		p.bus.Publish(EventWorkerError, err)
		return
	}

	// loadRules' confirmation carries its own static+snapshot pair and
	// is applied through HandleRulesLoaded instead of here, since the
	// static-data cache must be set in the same step as the snapshot.
	if snap, ok := value.(*domain.Snapshot); ok {
		p.setSnapshot(snap)
	}

	if command == "checkLocation" || command == "uncheckLocation" || command == "addItemToInventory" || command == "removeItemFromInventory" {
		p.bus.Publish(EventInventoryChanged, value)
	}
}

// HandleRulesLoaded is called by whoever owns the LoadRules call path
// once a loadRules command completes, so the proxy can materialise its
// static-data cache and fire the load/ready events exactly once.
func (p *Proxy) HandleRulesLoaded(static *staticdata.StaticData, snapshot *domain.Snapshot) {
	p.mu.Lock()
	p.static = static
	p.snapshot = snapshot
	p.stale = false
	wasReady := p.ready
	p.ready = true
	waiters := p.readyWaiters
	p.readyWaiters = nil
	p.mu.Unlock()

	p.bus.Publish(EventRulesLoaded, static)
	p.bus.Publish(EventSnapshotUpdated, snapshot)
	if !wasReady {
		p.bus.Publish(EventReady, struct{}{})
		for _, w := range waiters {
			close(w)
		}
	}
}

func (p *Proxy) setSnapshot(s *domain.Snapshot) {
	p.mu.Lock()
	if p.snapshot != nil && s.Generation < p.snapshot.Generation {
		p.mu.Unlock()
		return
	}
	p.snapshot = s
	p.stale = false
	p.mu.Unlock()
	p.bus.Publish(EventSnapshotUpdated, s)
}

func (p *Proxy) markStale() {
	p.mu.Lock()
	p.stale = true
	p.mu.Unlock()
}

// GetSnapshot returns the most recently cached snapshot and whether it
// is potentially stale (a mutating command is in flight with no
// response yet).
func (p *Proxy) GetSnapshot() (*domain.Snapshot, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.snapshot, p.stale
}

// StaticData returns the cached static data from the last successful
// loadRules, or nil if none has completed yet.
func (p *Proxy) StaticData() *staticdata.StaticData {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.static
}

// EnsureReady blocks until both static data and an initial snapshot
// have arrived, or timeout elapses.
func (p *Proxy) EnsureReady(timeout time.Duration) bool {
	p.mu.Lock()
	if p.ready {
		p.mu.Unlock()
		return true
	}
	w := make(chan struct{})
	p.readyWaiters = append(p.readyWaiters, w)
	p.mu.Unlock()

	select {
	case <-w:
		p.mu.RLock()
		defer p.mu.RUnlock()
		return p.ready
	case <-time.After(timeout):
		return false
	}
}

// PublishEvent republishes an arbitrary worker-originated event under
// stateManager:<name>, the eventPublish fan-out.
func (p *Proxy) PublishEvent(name string, payload any) {
	p.bus.Publish("stateManager:"+name, payload)
}

// PublishQueueStatus republishes the worker's queue introspection
// reply under its fixed event name.
func (p *Proxy) PublishQueueStatus(status queue.QueueStatus) {
	p.bus.Publish(EventWorkerQueueStatus, status)
}

// RejectAll is called once the worker reports a WorkerFatalError: every
// outstanding pending command is rejected and the proxy requires a
// fresh loadRules before it will consider itself ready again.
func (p *Proxy) RejectAll(cause error) {
	fatal := domainerrors.NewWorkerFatalError("worker failed, reinitialise the tracker", cause)
	p.pending.cancelAll(fatal)

	p.mu.Lock()
	p.ready = false
	waiters := p.readyWaiters
	p.readyWaiters = nil
	p.mu.Unlock()
	for _, w := range waiters {
		close(w)
	}

	log.Error().Err(cause).Msg("worker fatal, rejecting all pending commands and requiring reinitialisation")
	p.bus.Publish(EventWorkerError, fatal)
}
