package queue

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	domainerrors "github.com/archipelago-tracker/core/internal/domain/errors"
)

func waitStatus(t *testing.T, c *Command, want Status) {
	t.Helper()
	select {
	case <-c.done:
	case <-time.After(time.Second):
		t.Fatalf("command %s never reached a terminal state", c.Name)
	}
	require.Equal(t, want, c.Status())
}

func TestWorkerDispatchesSuccess(t *testing.T) {
	q := NewQueue()
	w := NewWorker(q, func(name string, payload any) (any, error) {
		require.Equal(t, "echo", name)
		return payload, nil
	}, nil)

	go w.Run()
	defer w.Stop()

	c := New("q1", "echo", "hello")
	q.Push(c)

	waitStatus(t, c, StatusCompleted)
	result, err := c.Wait()
	require.NoError(t, err)
	require.Equal(t, "hello", result)
}

func TestWorkerCommandErrorDoesNotStopLoop(t *testing.T) {
	q := NewQueue()
	w := NewWorker(q, func(name string, payload any) (any, error) {
		if name == "bad" {
			return nil, errors.New("nope")
		}
		return "ok", nil
	}, nil)

	go w.Run()
	defer w.Stop()

	bad := New("q1", "bad", nil)
	q.Push(bad)
	waitStatus(t, bad, StatusFailed)

	good := New("q2", "good", nil)
	q.Push(good)
	waitStatus(t, good, StatusCompleted)

	result, err := good.Wait()
	require.NoError(t, err)
	require.Equal(t, "ok", result, "subsequent command should still run fine")
}

func TestWorkerFatalErrorCancelsPendingAndStopsLoop(t *testing.T) {
	q := NewQueue()
	var fatalSeen error
	var mu sync.Mutex

	w := NewWorker(q, func(name string, payload any) (any, error) {
		if name == "explode" {
			return nil, domainerrors.NewWorkerFatalError("boom", errors.New("root cause"))
		}
		return "ok", nil
	}, func(err error) {
		mu.Lock()
		fatalSeen = err
		mu.Unlock()
	})

	go w.Run()

	boom := New("q1", "explode", nil)
	trailing := New("q2", "trailing", nil)
	q.Push(boom)
	q.Push(trailing)

	waitStatus(t, boom, StatusFailed)
	waitStatus(t, trailing, StatusCancelled)

	w.Wait()

	mu.Lock()
	defer mu.Unlock()
	require.NotNil(t, fatalSeen, "FatalHandler was never invoked")
	var fatal *domainerrors.WorkerFatalError
	require.True(t, errors.As(fatalSeen, &fatal), "fatalSeen = %v, want *WorkerFatalError", fatalSeen)
}

func TestWorkerRecoversPanicAsFatal(t *testing.T) {
	q := NewQueue()
	fatalCh := make(chan error, 1)

	w := NewWorker(q, func(name string, payload any) (any, error) {
		panic("dispatcher exploded")
	}, func(err error) {
		fatalCh <- err
	})

	go w.Run()

	c := New("q1", "anything", nil)
	q.Push(c)

	waitStatus(t, c, StatusFailed)

	select {
	case err := <-fatalCh:
		var fatal *domainerrors.WorkerFatalError
		require.True(t, errors.As(err, &fatal), "err = %v, want *WorkerFatalError", err)
	case <-time.After(time.Second):
		t.Fatal("FatalHandler was never invoked after a panic")
	}
}

func TestWorkerSetDispatcherAndFatalHandlerBeforeRun(t *testing.T) {
	q := NewQueue()
	w := NewWorker(q, nil, nil)

	w.SetDispatcher(func(name string, payload any) (any, error) {
		return "late-bound", nil
	})
	fatalCalled := false
	w.SetFatalHandler(func(err error) { fatalCalled = true })

	go w.Run()
	defer w.Stop()

	c := New("q1", "anything", nil)
	q.Push(c)

	waitStatus(t, c, StatusCompleted)
	result, _ := c.Wait()
	require.Equal(t, "late-bound", result)
	require.False(t, fatalCalled, "fatal handler must not be called on a successful run")
}

func TestWorkerStopIsIdempotent(t *testing.T) {
	q := NewQueue()
	w := NewWorker(q, func(name string, payload any) (any, error) {
		return nil, nil
	}, nil)

	go w.Run()
	w.Stop()
	w.Stop()
}

func TestWorkerHandleIntrospection(t *testing.T) {
	q := NewQueue()
	w := NewWorker(q, nil, nil)

	q.Push(New("q1", "pending-work", nil))

	result, ok := w.HandleIntrospection(QueueStatusCommand, nil)
	require.True(t, ok, "HandleIntrospection must handle getWorkerQueueStatus")
	status, ok := result.(QueueStatus)
	require.True(t, ok)
	require.Equal(t, 1, status.Pending)

	result, ok = w.HandleIntrospection(ToggleQueueReportingCommand, true)
	require.True(t, ok, "HandleIntrospection must handle toggleQueueReporting")
	enabled, ok := result.(bool)
	require.True(t, ok)
	require.True(t, enabled)

	_, ok = w.HandleIntrospection("unknownCommand", nil)
	require.False(t, ok, "HandleIntrospection must report false for unknown commands")
}
