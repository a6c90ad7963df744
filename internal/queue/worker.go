package queue

import (
	"errors"

	"github.com/rs/zerolog/log"

	domainerrors "github.com/archipelago-tracker/core/internal/domain/errors"
)

// Dispatcher routes a command by name to whatever handles it (normally
// a StateManager method) and returns its result or error. The worker
// never inspects Payload itself; decoding it into the right argument
// types is the dispatcher's job.
type Dispatcher func(name string, payload any) (any, error)

// FatalHandler is invoked once when the dispatcher returns a
// *domainerrors.WorkerFatalError, after the queue has already rejected
// every pending command. The worker loop exits after calling it.
type FatalHandler func(err error)

// Worker drains a Queue on a single goroutine, one command at a time.
// A per-command error fails only that command; a WorkerFatalError
// cascades into rejecting everything else still queued and stops the
// loop, matching the no-partial-recovery contract for unrecoverable
// engine failures.
type Worker struct {
	queue      *Queue
	dispatch   Dispatcher
	onFatal    FatalHandler
	stop       chan struct{}
	stopped    chan struct{}
	reportOpen bool
}

// NewWorker creates a Worker bound to q, routing every popped command
// through dispatch. Either argument may be nil and supplied later via
// SetDispatcher/SetFatalHandler — useful when the dispatcher itself
// needs a handle to something that in turn needs this Worker (e.g. a
// Proxy built from Worker.HandleIntrospection), as long as both are
// set before Run starts.
func NewWorker(q *Queue, dispatch Dispatcher, onFatal FatalHandler) *Worker {
	return &Worker{
		queue:    q,
		dispatch: dispatch,
		onFatal:  onFatal,
		stop:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}
}

// SetDispatcher replaces the dispatcher. Must not be called after Run.
func (w *Worker) SetDispatcher(d Dispatcher) { w.dispatch = d }

// SetFatalHandler replaces the fatal-error callback. Must not be
// called after Run.
func (w *Worker) SetFatalHandler(f FatalHandler) { w.onFatal = f }

// Run processes commands until Stop is called or a fatal error is
// hit. It is meant to be launched with `go w.Run()`; Wait blocks the
// caller until the loop has actually exited.
func (w *Worker) Run() {
	defer close(w.stopped)

	for {
		select {
		case <-w.stop:
			return
		default:
		}

		cmd := w.queue.Pop()
		if cmd == nil {
			w.queue.WaitNonEmpty(w.stop)
			continue
		}

		w.runOne(cmd)
	}
}

func (w *Worker) runOne(cmd *Command) {
	defer w.queue.FinishCurrent()

	result, err := w.safeDispatch(cmd)

	var fatal *domainerrors.WorkerFatalError
	if errors.As(err, &fatal) {
		log.Error().
			Str("command", cmd.Name).
			Str("correlation_id", cmd.CorrelationID).
			Err(fatal).
			Msg("worker hit a fatal error, rejecting all pending commands")
		cmd.complete(nil, fatal)
		w.queue.CancelAll()
		if w.onFatal != nil {
			w.onFatal(fatal)
		}
		close(w.stop)
		return
	}

	if err != nil {
		log.Warn().
			Str("command", cmd.Name).
			Str("correlation_id", cmd.CorrelationID).
			Err(err).
			Msg("command failed")
		cmd.complete(nil, domainerrors.NewCommandError(cmd.Name, err))
		return
	}

	cmd.complete(result, nil)
}

// safeDispatch recovers a panicking dispatcher so one broken command
// handler cannot kill the worker goroutine outright; a recovered panic
// becomes a WorkerFatalError, which the caller handles as fatal.
func (w *Worker) safeDispatch(cmd *Command) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = domainerrors.NewWorkerFatalError("command handler panicked", asError(r))
		}
	}()
	return w.dispatch(cmd.Name, cmd.Payload)
}

func asError(r any) error {
	if e, ok := r.(error); ok {
		return e
	}
	return errors.New("panic: non-error recover value")
}

// Stop requests the loop to exit after its current command, then
// blocks until it has.
func (w *Worker) Stop() {
	select {
	case <-w.stop:
	default:
		close(w.stop)
	}
	<-w.stopped
}

// Wait blocks until the loop has exited, whether from Stop or a fatal
// error.
func (w *Worker) Wait() {
	<-w.stopped
}

// QueueStatusCommand and ToggleQueueReportingCommand are the two
// command names the worker answers directly from the Queue's own
// bookkeeping, without ever reaching the dispatcher: they describe the
// queue itself, not engine state.
const (
	QueueStatusCommand          = "getWorkerQueueStatus"
	ToggleQueueReportingCommand = "toggleQueueReporting"
)

// HandleIntrospection answers the two queue-introspection commands
// directly, returning (result, true) if name was one of them. Callers
// should check the second return value before enqueueing name onto the
// regular command path.
func (w *Worker) HandleIntrospection(name string, payload any) (any, bool) {
	switch name {
	case QueueStatusCommand:
		return w.queue.Snapshot(), true
	case ToggleQueueReportingCommand:
		if enabled, ok := payload.(bool); ok {
			w.reportOpen = enabled
		}
		return w.reportOpen, true
	default:
		return nil, false
	}
}
