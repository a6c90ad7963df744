package proxy

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/archipelago-tracker/core/internal/domain"
	"github.com/archipelago-tracker/core/internal/queue"
)

// runDispatcher drives q with a real queue.Worker so Proxy.Send tests
// exercise the same completion path production code uses.
func runDispatcher(t *testing.T, q *queue.Queue, dispatch func(name string, payload any) (any, error)) (stop func()) {
	t.Helper()
	w := queue.NewWorker(q, dispatch, nil)
	go w.Run()
	return w.Stop
}

func TestProxySendResolvesSuccessfully(t *testing.T) {
	q := queue.NewQueue()
	p := New(q, nil)
	defer p.Stop()

	stop := runDispatcher(t, q, func(name string, payload any) (any, error) {
		return "pong", nil
	})
	defer stop()

	result, err := p.Send("ping", nil, time.Second)
	require.NoError(t, err)
	require.Equal(t, "pong", result)
}

func TestProxySendPropagatesCommandError(t *testing.T) {
	q := queue.NewQueue()
	p := New(q, nil)
	defer p.Stop()

	wantErr := errors.New("nope")
	stop := runDispatcher(t, q, func(name string, payload any) (any, error) {
		return nil, wantErr
	})
	defer stop()

	_, err := p.Send("breakThings", nil, time.Second)
	require.Equal(t, wantErr, err)
}

func TestProxySendTimesOutWhenWorkerNeverResponds(t *testing.T) {
	q := queue.NewQueue()
	p := New(q, nil)
	defer p.Stop()

	// Nothing ever pops the queue, so the command cannot complete.
	_, err := p.Send("slowCommand", nil, 20*time.Millisecond)

	var timeoutErr *ErrTimeout
	require.True(t, errors.As(err, &timeoutErr), "err = %v, want *ErrTimeout", err)
}

func TestProxySendUsesIntrospectBeforeQueueing(t *testing.T) {
	q := queue.NewQueue()
	introspectCalled := false
	p := New(q, func(command string, payload any) (any, bool) {
		if command == "getWorkerQueueStatus" {
			introspectCalled = true
			return queue.QueueStatus{Pending: 0}, true
		}
		return nil, false
	})
	defer p.Stop()

	result, err := p.Send("getWorkerQueueStatus", nil, time.Second)
	require.NoError(t, err)
	require.True(t, introspectCalled, "introspect must be consulted before the command reaches the queue")
	_, ok := result.(queue.QueueStatus)
	require.True(t, ok, "result = %v (%T), want queue.QueueStatus", result, result)
}

func TestProxyMarksSnapshotStaleOnMutatingSend(t *testing.T) {
	q := queue.NewQueue()
	p := New(q, nil)
	defer p.Stop()

	block := make(chan struct{})
	stop := runDispatcher(t, q, func(name string, payload any) (any, error) {
		<-block
		return &domain.Snapshot{}, nil
	})
	defer stop()
	defer close(block)

	go p.Send("checkLocation", nil, time.Second)

	deadline := time.After(time.Second)
	for {
		if _, stale := p.GetSnapshot(); stale {
			break
		}
		select {
		case <-deadline:
			t.Fatal("snapshot never went stale after a mutating command was sent")
		case <-time.After(time.Millisecond):
		}
	}
}

func TestProxyHandleRulesLoadedMarksReadyOnce(t *testing.T) {
	q := queue.NewQueue()
	p := New(q, nil)
	defer p.Stop()

	readyEvents := 0
	p.Events().On(EventReady, func(any) { readyEvents++ })

	snap := &domain.Snapshot{}
	p.HandleRulesLoaded(nil, snap)
	p.HandleRulesLoaded(nil, snap)

	require.Equal(t, 1, readyEvents, "EventReady must fire exactly once")

	got, stale := p.GetSnapshot()
	require.Equal(t, snap, got)
	require.False(t, stale)
}

func TestProxyEnsureReadyUnblocksOnRulesLoaded(t *testing.T) {
	q := queue.NewQueue()
	p := New(q, nil)
	defer p.Stop()

	unblocked := make(chan bool, 1)
	go func() {
		unblocked <- p.EnsureReady(time.Second)
	}()

	time.Sleep(10 * time.Millisecond)
	p.HandleRulesLoaded(nil, &domain.Snapshot{})

	select {
	case ok := <-unblocked:
		require.True(t, ok, "EnsureReady must return true once rules have loaded")
	case <-time.After(time.Second):
		t.Fatal("EnsureReady never unblocked")
	}
}

func TestProxyEnsureReadyTimesOutIfNeverReady(t *testing.T) {
	q := queue.NewQueue()
	p := New(q, nil)
	defer p.Stop()

	require.False(t, p.EnsureReady(20*time.Millisecond),
		"EnsureReady must return false when rules never load within the deadline")
}

func TestProxyRejectAllFlipsReadyFalseAndRejectsPending(t *testing.T) {
	q := queue.NewQueue()
	p := New(q, nil)
	defer p.Stop()

	p.HandleRulesLoaded(nil, &domain.Snapshot{})

	errEvents := 0
	p.Events().On(EventWorkerError, func(any) { errEvents++ })

	p.RejectAll(errors.New("worker exploded"))

	require.False(t, p.EnsureReady(10*time.Millisecond), "proxy must not be ready immediately after RejectAll")
	require.Equal(t, 1, errEvents)
}
