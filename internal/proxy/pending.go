package proxy

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// pendingState is where a query sits relative to its deadline.
type pendingState int

const (
	pendingActive pendingState = iota
	pendingTimedOut
)

// pendingEntry tracks one in-flight request from the moment it is
// handed to the queue until its response is delivered or it is
// garbage-collected. done is closed at most once, by deliver or
// reject (a timed-out entry's done is never closed); whichever
// goroutine is selecting on it reads value/err only after that.
type pendingEntry struct {
	queryID       string
	correlationID string
	command       string
	createdAt     time.Time
	timedOutAt    time.Time
	state         pendingState

	mu    sync.Mutex
	value any
	err   error
	done  chan struct{}
}

// staleAfter bounds how long a timed-out entry is kept waiting for a
// late response before the periodic cleanup reclaims it.
const staleAfter = 60 * time.Second

// lateResponseGrace is how long an unrecognised response is buffered
// in case it turns out to belong to a query registered moments later
// (covers reordering across a transport boundary).
const lateResponseGrace = 5 * time.Second

// cleanupInterval is how often the periodic sweep runs.
const cleanupInterval = 10 * time.Second

type bufferedResponse struct {
	value      any
	err        error
	receivedAt time.Time
}

// pendingTable is the proxy's bookkeeping for outstanding requests: an
// active table plus diagnostic maps that exist purely to explain, in
// logs, why a response showed up with no matching entry.
type pendingTable struct {
	mu sync.Mutex

	entries map[string]*pendingEntry

	timedOutPings    map[string]time.Time
	erroredQueries   map[string]time.Time
	cancelledQueries map[string]time.Time
	deletionHistory  []string

	lateBuffer map[string]bufferedResponse
}

const maxDeletionHistory = 200

func newPendingTable() *pendingTable {
	return &pendingTable{
		entries:          make(map[string]*pendingEntry),
		timedOutPings:    make(map[string]time.Time),
		erroredQueries:   make(map[string]time.Time),
		cancelledQueries: make(map[string]time.Time),
		lateBuffer:       make(map[string]bufferedResponse),
	}
}

// register creates and stores a new pendingEntry for queryID.
func (t *pendingTable) register(queryID, correlationID, command string) *pendingEntry {
	e := &pendingEntry{
		queryID:       queryID,
		correlationID: correlationID,
		command:       command,
		createdAt:     time.Now(),
		state:         pendingActive,
		done:          make(chan struct{}),
	}
	t.mu.Lock()
	t.entries[queryID] = e
	t.mu.Unlock()
	return e
}

// deleteLocked removes queryID from entries and records it in the
// bounded deletion history. Caller must hold t.mu.
func (t *pendingTable) deleteLocked(queryID string) {
	delete(t.entries, queryID)
	t.deletionHistory = append(t.deletionHistory, queryID)
	if len(t.deletionHistory) > maxDeletionHistory {
		t.deletionHistory = t.deletionHistory[len(t.deletionHistory)-maxDeletionHistory:]
	}
}

// markTimedOut flips queryID to the timedOut state without deleting
// it, so a late response can still be matched and explained.
func (t *pendingTable) markTimedOut(queryID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[queryID]
	if !ok {
		return
	}
	e.state = pendingTimedOut
	e.timedOutAt = time.Now()
	t.timedOutPings[queryID] = e.timedOutAt
}

// cancel rejects an active entry with err (used for a worker fatal
// cascade) and records it as cancelled rather than errored.
func (t *pendingTable) cancel(queryID string, err error) {
	t.mu.Lock()
	e, ok := t.entries[queryID]
	if ok {
		t.cancelledQueries[queryID] = time.Now()
		t.deleteLocked(queryID)
	}
	t.mu.Unlock()
	if ok {
		e.reject(err)
	}
}

// cancelAll rejects every active entry, used when the worker reports a
// fatal error and every outstanding future must reject together.
func (t *pendingTable) cancelAll(err error) {
	t.mu.Lock()
	victims := make([]*pendingEntry, 0, len(t.entries))
	for id, e := range t.entries {
		victims = append(victims, e)
		t.cancelledQueries[id] = time.Now()
		t.deleteLocked(id)
	}
	t.mu.Unlock()
	for _, e := range victims {
		e.reject(err)
	}
}

// deliver handles a response arriving for queryID. Three cases: the
// query is still active (normal resolve), the query already timed out
// (late response: log and drop), or the query is unknown (buffer it
// briefly in case registration is still in flight, logging whichever
// diagnostic map explains it if one does).
func (t *pendingTable) deliver(queryID string, value any, err error) {
	t.mu.Lock()
	e, ok := t.entries[queryID]
	if !ok {
		t.bufferUnknownLocked(queryID, value, err)
		t.mu.Unlock()
		return
	}

	if e.state == pendingTimedOut {
		t.deleteLocked(queryID)
		if err != nil {
			t.erroredQueries[queryID] = time.Now()
		}
		t.mu.Unlock()
		log.Warn().
			Str("query_id", queryID).
			Str("command", e.command).
			Dur("latency_since_timeout", time.Since(e.timedOutAt)).
			Msg("late response for a timed-out query, discarding")
		return
	}

	t.deleteLocked(queryID)
	if err != nil {
		t.erroredQueries[queryID] = time.Now()
	}
	t.mu.Unlock()
	e.resolve(value, err)
}

// bufferUnknownLocked is called with t.mu held. It explains the
// unknown id from the diagnostic maps if it can, and otherwise buffers
// the response for lateResponseGrace.
func (t *pendingTable) bufferUnknownLocked(queryID string, value any, err error) {
	reason := "no matching pending entry"
	switch {
	case !t.timedOutPings[queryID].IsZero():
		reason = "already recorded as timed out"
	case !t.erroredQueries[queryID].IsZero():
		reason = "already recorded as errored"
	case !t.cancelledQueries[queryID].IsZero():
		reason = "already recorded as cancelled"
	default:
		for _, id := range t.deletionHistory {
			if id == queryID {
				reason = "already deleted from the pending table"
				break
			}
		}
	}
	log.Debug().Str("query_id", queryID).Str("reason", reason).Msg("response for unrecognised query id, buffering")
	t.lateBuffer[queryID] = bufferedResponse{value: value, err: err, receivedAt: time.Now()}
}

// sweep runs the periodic cleanup: drops buffered responses older than
// the grace period and entries stuck in timedOut for longer than
// staleAfter.
func (t *pendingTable) sweep() {
	now := time.Now()
	t.mu.Lock()
	defer t.mu.Unlock()

	for id, b := range t.lateBuffer {
		if now.Sub(b.receivedAt) > lateResponseGrace {
			delete(t.lateBuffer, id)
		}
	}
	for id, e := range t.entries {
		if e.state == pendingTimedOut && now.Sub(e.timedOutAt) > staleAfter {
			t.deleteLocked(id)
		}
	}
}

func (e *pendingEntry) resolve(value any, err error) {
	e.mu.Lock()
	e.value, e.err = value, err
	e.mu.Unlock()
	close(e.done)
}

func (e *pendingEntry) reject(err error) {
	e.mu.Lock()
	e.err = err
	e.mu.Unlock()
	close(e.done)
}

func (e *pendingEntry) result() (any, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.value, e.err
}

// ErrTimeout is returned by Proxy.Send when a command's deadline
// elapses before the worker responds. The worker still completes the
// command; its result, if any, is absorbed silently as a late
// response.
type ErrTimeout struct {
	Command string
	QueryID string
}

func (e *ErrTimeout) Error() string {
	return fmt.Sprintf("command %q (query %s) timed out", e.Command, e.QueryID)
}
