package proxy

import (
	"sync"

	"github.com/rs/zerolog/log"
)

// Event names the proxy republishes on the UI-facing bus. Their
// payload types are not documented here; eventPublish payloads
// are whatever the worker chose to send and are republished verbatim
// under stateManager:<name> instead of one of these fixed names.
const (
	EventReady               = "stateManager:ready"
	EventRulesLoaded         = "stateManager:rulesLoaded"
	EventSnapshotUpdated     = "stateManager:snapshotUpdated"
	EventInventoryChanged    = "stateManager:inventoryChanged"
	EventComputationProgress = "stateManager:computationProgress"
	EventWorkerError         = "stateManager:workerError"
	EventWorkerQueueStatus   = "stateManager:workerQueueStatus"
)

// EventBus is a minimal named pub/sub: handlers are plain callbacks,
// not goroutines, so a slow subscriber blocks Publish. That is
// intentional here — the only subscribers are in-process UI
// view-models, never network peers.
type EventBus struct {
	mu   sync.RWMutex
	subs map[string][]func(any)
}

// NewEventBus creates an empty EventBus.
func NewEventBus() *EventBus {
	return &EventBus{subs: make(map[string][]func(any))}
}

// On registers fn to run on every Publish under name.
func (b *EventBus) On(name string, fn func(any)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[name] = append(b.subs[name], fn)
}

// Publish invokes every handler registered for name, in registration
// order. A handler is never allowed to panic the publisher: a
// recovered panic is logged and the remaining handlers still run.
func (b *EventBus) Publish(name string, payload any) {
	b.mu.RLock()
	handlers := make([]func(any), len(b.subs[name]))
	copy(handlers, b.subs[name])
	b.mu.RUnlock()

	for _, h := range handlers {
		b.invoke(name, h, payload)
	}
}

func (b *EventBus) invoke(name string, h func(any), payload any) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("event", name).Interface("recover", r).Msg("event subscriber panicked")
		}
	}()
	h(payload)
}
