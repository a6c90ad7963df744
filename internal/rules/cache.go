package rules

import (
	"container/list"
	"fmt"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// programCache is a thread-safe LRU cache of compiled expr-lang
// programs, keyed by expression source. The interpreter only ever
// compiles one fixed template (see exprbridge.go), so the
// default capacity is small compared to a general-purpose rule engine.
type programCache struct {
	capacity int
	entries  map[string]*list.Element
	order    *list.List
	mu       sync.RWMutex
}

type cacheEntry struct {
	key     string
	program *vm.Program
}

func newProgramCache(capacity int) *programCache {
	if capacity <= 0 {
		capacity = 16
	}
	return &programCache{
		capacity: capacity,
		entries:  make(map[string]*list.Element),
		order:    list.New(),
	}
}

func (c *programCache) get(source string) (*vm.Program, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.entries[source]; ok {
		c.order.MoveToFront(el)
		return el.Value.(*cacheEntry).program, true
	}
	return nil, false
}

func (c *programCache) put(source string, program *vm.Program) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.entries[source]; ok {
		c.order.MoveToFront(el)
		el.Value.(*cacheEntry).program = program
		return
	}
	el := c.order.PushFront(&cacheEntry{key: source, program: program})
	c.entries[source] = el
	if c.order.Len() > c.capacity {
		oldest := c.order.Back()
		if oldest != nil {
			c.order.Remove(oldest)
			delete(c.entries, oldest.Value.(*cacheEntry).key)
		}
	}
}

// compileAndCache compiles source against env's variable set if it is
// not already cached, reusing the cached program for every later call
// with the same source regardless of env's runtime values.
func (c *programCache) compileAndCache(source string, env any, opts ...expr.Option) (*vm.Program, error) {
	if program, ok := c.get(source); ok {
		return program, nil
	}
	allOpts := append([]expr.Option{expr.Env(env)}, opts...)
	program, err := expr.Compile(source, allOpts...)
	if err != nil {
		return nil, fmt.Errorf("compile %q: %w", source, err)
	}
	c.put(source, program)
	return program, nil
}
