// Package helpers implements the per-game helper registry: named, pure
// functions callable from rule ASTs, grouped by game and merged at load
// time with game-specific entries overriding generic ones.
package helpers

import (
	"fmt"
	"strings"
	"sync"

	"github.com/archipelago-tracker/core/internal/domain"
	"github.com/archipelago-tracker/core/internal/staticdata"
)

// View is the read-only snapshot a helper function is allowed to see.
// Helpers must not mutate engine state; this interface exposes only
// queries, never setters, so that guarantee is structural rather than
// a convention helpers must remember to honor.
type View interface {
	Has(item string) bool
	Count(item string) int
	CountGroup(group string) int
	HasFlag(name string) bool
	HasEvent(name string) bool
	Setting(name string) (any, bool)
	CanReach(name, kind string, player int) bool
	Player() int
}

// Func is a helper implementation. It receives the snapshot view, the
// static data, and whatever arguments the rule AST's helper node
// resolved.
type Func func(view View, static *staticdata.StaticData, args ...any) (any, error)

// maxRecursionDepth bounds helper-calls-helper chains. The registry
// itself has no cycle detector; it simply refuses to go deeper than
// this.
const maxRecursionDepth = 64

// ErrTooDeep is returned by Call when maxRecursionDepth is exceeded.
var ErrTooDeep = fmt.Errorf("helper recursion exceeded depth %d", maxRecursionDepth)

// ItemMutator is the narrow inventory surface a ResolvedItemPolicy may
// act on: materialize resolved items, nothing else.
type ItemMutator interface {
	Add(name string, n int)
	Resolve(item string) []domain.ProgressionEntry
}

// ResolvedItemPolicy decides, for one game, which progression-resolved
// items materialize into the inventory when a location's checked item
// is a base progressive item and the use_resolved_items setting is on.
// Left per-game rather than hard-coded, since the interaction between
// resolved-item display and progressive counting is genuinely
// game-specific.
type ResolvedItemPolicy func(mut ItemMutator, base string, count int)

// Registry merges a generic helper set with per-game overrides.
type Registry struct {
	mu               sync.RWMutex
	generic          map[string]Func
	byGame           map[string]map[string]Func
	resolvedPolicies map[string]ResolvedItemPolicy
	game             string
}

// New creates a Registry for the named game (e.g. "alttp", "kh2"). An
// unrecognised game name simply has no overrides; only generic helpers
// apply.
func New(game string) *Registry {
	return &Registry{
		generic:          make(map[string]Func),
		byGame:           make(map[string]map[string]Func),
		resolvedPolicies: make(map[string]ResolvedItemPolicy),
		game:             game,
	}
}

// SetGame changes which game's overrides Lookup prefers. loadRules
// calls this once the rules document's game_name is known — the
// registry itself is built once at startup with every game pack
// registered, since which game is active can change across a reload.
func (r *Registry) SetGame(game string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.game = game
}

// RegisterResolvedItemPolicy installs the resolved-item materialization
// policy for a game.
func (r *Registry) RegisterResolvedItemPolicy(game string, policy ResolvedItemPolicy) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resolvedPolicies[game] = policy
}

// ResolvedItemPolicyFor returns the active game's resolved-item policy,
// if one was registered.
func (r *Registry) ResolvedItemPolicyFor() (ResolvedItemPolicy, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.resolvedPolicies[r.game]
	return p, ok
}

// RegisterGeneric adds a helper available to every game unless
// overridden.
func (r *Registry) RegisterGeneric(name string, fn Func) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.generic[name] = fn
}

// RegisterGame adds a game-specific helper that overrides any generic
// helper of the same name when Registry.game matches.
func (r *Registry) RegisterGame(game, name string, fn Func) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.byGame[game] == nil {
		r.byGame[game] = make(map[string]Func)
	}
	r.byGame[game][name] = fn
}

// Lookup resolves a helper by name, preferring the active game's
// override over the generic entry. The second return is false if no
// helper of that name exists at all — the caller must treat that as
// "evaluates to false, logged", not an error.
func (r *Registry) Lookup(name string) (Func, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if game, ok := r.byGame[r.game]; ok {
		if fn, ok := game[name]; ok {
			return fn, true
		}
	}
	if fn, ok := r.generic[name]; ok {
		return fn, true
	}
	if isBossRulesName(name) {
		return bossRulesTrue, true
	}
	return nil, false
}

// isBossRulesName recognises the get_*_rules boss-gating convention: a
// per-boss helper a game's rules reference by name without ever
// registering (e.g. get_ganon_rules, get_agahnim_rules). Any such name
// resolves to "always satisfied" rather than "unknown helper".
func isBossRulesName(name string) bool {
	return strings.HasPrefix(name, "get_") && strings.HasSuffix(name, "_rules")
}

func bossRulesTrue(View, *staticdata.StaticData, ...any) (any, error) {
	return true, nil
}

// Call looks up and invokes a helper, enforcing the recursion-depth
// guard. depth is passed in by the rule interpreter from its own
// evaluation depth argument, one more than the calling node's depth.
func (r *Registry) Call(depth int, name string, view View, static *staticdata.StaticData, args ...any) (any, bool, error) {
	if depth > maxRecursionDepth {
		return nil, true, ErrTooDeep
	}
	fn, ok := r.Lookup(name)
	if !ok {
		return nil, false, nil
	}
	v, err := fn(view, static, args...)
	return v, true, err
}
