// Package statemanager implements the command façade: one method per
// worker command, each reading/mutating Inventory/State/StaticData and
// triggering the reachability engine's snapshot emission policy.
package statemanager

import (
	"sync"

	domainerrors "github.com/archipelago-tracker/core/internal/domain/errors"
	"github.com/archipelago-tracker/core/internal/helpers"
	"github.com/archipelago-tracker/core/internal/helpers/alttp"
	genericHelpers "github.com/archipelago-tracker/core/internal/helpers/generic"
	"github.com/archipelago-tracker/core/internal/helpers/kh2"
	"github.com/archipelago-tracker/core/internal/inventory"
	"github.com/archipelago-tracker/core/internal/reachability"
	"github.com/archipelago-tracker/core/internal/staticdata"
	"github.com/archipelago-tracker/core/internal/state"
)

// StateManager owns the live engine state for one player: inventory,
// state, static data, and the reachability engine built on top of
// them. Every command runs to completion on the worker's single
// goroutine; the mutex only exists to let read-only diagnostic
// commands (evaluateRuleRemote et al.) run safely if ever called off
// that goroutine.
type StateManager struct {
	mu sync.Mutex

	player  int
	static  *staticdata.StaticData
	inv     *inventory.Inventory
	state   *state.State
	helpers *helpers.Registry
	engine  *reachability.Engine

	checkRecords map[string]checkRecord

	spoilerTestMode bool
}

// New creates a StateManager with no rules loaded yet. Every game pack
// this module knows about is registered up front; which one is active
// is decided per loadRules by the document's game_name.
func New(player int) *StateManager {
	reg := helpers.New("")
	genericHelpers.RegisterInto(reg)
	alttp.RegisterInto(reg)
	kh2.RegisterInto(reg)

	return &StateManager{
		player:       player,
		helpers:      reg,
		checkRecords: make(map[string]checkRecord),
	}
}

// Player returns the tracked player id.
func (sm *StateManager) Player() int { return sm.player }

// HasRules reports whether loadRules has ever completed successfully.
func (sm *StateManager) HasRules() bool {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return sm.static != nil && sm.engine != nil
}

func (sm *StateManager) requireLoadedLocked() error {
	if sm.static == nil || sm.engine == nil {
		return domainerrors.NewUnknownNameError("rules", "not loaded")
	}
	return nil
}
