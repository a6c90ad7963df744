package main

import (
	"encoding/json"
	"fmt"

	"github.com/archipelago-tracker/core/internal/domain"
	"github.com/archipelago-tracker/core/internal/proxy"
	"github.com/archipelago-tracker/core/internal/statemanager"
)

// buildDispatcher adapts StateManager's typed methods to
// queue.Dispatcher's (name string, payload any) (any, error) shape. It
// re-marshals payload to JSON and back into each command's request
// struct, so the same dispatcher serves both a wire payload (a
// map[string]any fresh off json.Unmarshal) and a typed struct handed
// in directly by in-process test code.
func buildDispatcher(sm *statemanager.StateManager, p *proxy.Proxy) func(name string, payload any) (any, error) {
	return func(name string, payload any) (any, error) {
		switch name {
		case "loadRules":
			var req statemanager.LoadRulesRequest
			if err := decode(payload, &req); err != nil {
				return nil, err
			}
			conf, err := sm.LoadRules(req)
			if err != nil {
				return nil, err
			}
			p.HandleRulesLoaded(conf.Static, conf.Snapshot)
			return conf, nil

		case "addItemToInventory":
			var req struct {
				Item     string
				Quantity int
			}
			if err := decode(payload, &req); err != nil {
				return nil, err
			}
			return sm.AddItemToInventory(req.Item, req.Quantity)

		case "removeItemFromInventory":
			var req struct {
				Item     string
				Quantity int
			}
			if err := decode(payload, &req); err != nil {
				return nil, err
			}
			return sm.RemoveItemFromInventory(req.Item, req.Quantity)

		case "checkLocation":
			var req struct {
				LocationName string
				AddItems     bool
				ForceCheck   bool
			}
			if err := decode(payload, &req); err != nil {
				return nil, err
			}
			return sm.CheckLocation(req.LocationName, req.AddItems, req.ForceCheck)

		case "uncheckLocation":
			var req struct{ LocationName string }
			if err := decode(payload, &req); err != nil {
				return nil, err
			}
			return sm.UncheckLocation(req.LocationName)

		case "beginBatchUpdate":
			var req struct{ DeferRegionComputation bool }
			if err := decode(payload, &req); err != nil {
				return nil, err
			}
			return nil, sm.BeginBatchUpdate(req.DeferRegionComputation)

		case "commitBatchUpdate":
			return sm.CommitBatchUpdate()

		case "syncCheckedLocationsFromServer":
			var req struct{ CheckedLocationIDs []string }
			if err := decode(payload, &req); err != nil {
				return nil, err
			}
			return sm.SyncCheckedLocationsFromServer(req.CheckedLocationIDs)

		case "clearStateAndReset":
			return sm.ClearStateAndReset()

		case "clearEventItems":
			return sm.ClearEventItems()

		case "applyRuntimeState":
			var req domain.SavableState
			if err := decode(payload, &req); err != nil {
				return nil, err
			}
			return sm.ApplyRuntimeState(req)

		case "recalculateAccessibility":
			return sm.RecalculateAccessibility()

		case "evaluateRuleRemote":
			var req struct{ RuleJSON json.RawMessage }
			if err := decode(payload, &req); err != nil {
				return nil, err
			}
			return sm.EvaluateRuleRemote(req.RuleJSON)

		case "evaluateLocationAccessibilityForTest":
			var req struct {
				LocationName  string
				RequiredItems []string
				ExcludedItems []string
			}
			if err := decode(payload, &req); err != nil {
				return nil, err
			}
			return sm.EvaluateLocationAccessibilityForTest(req.LocationName, req.RequiredItems, req.ExcludedItems)

		case "applyTestInventoryAndEvaluate":
			var req struct {
				LocationName  string
				RequiredItems []string
				ExcludedItems []string
			}
			if err := decode(payload, &req); err != nil {
				return nil, err
			}
			return sm.ApplyTestInventoryAndEvaluate(req.LocationName, req.RequiredItems, req.ExcludedItems)

		case "setAutoCollectEventsConfig":
			var req struct{ Enabled bool }
			if err := decode(payload, &req); err != nil {
				return nil, err
			}
			return nil, sm.SetAutoCollectEventsConfig(req.Enabled)

		case "setSpoilerTestMode":
			var req struct{ Enabled bool }
			if err := decode(payload, &req); err != nil {
				return nil, err
			}
			return nil, sm.SetSpoilerTestMode(req.Enabled)

		case "spoilerTestMode":
			return sm.SpoilerTestMode(), nil

		case "ping":
			return sm.Ping(payload)

		case "getFullSnapshot":
			return sm.GetFullSnapshot()

		default:
			return nil, fmt.Errorf("unknown command %q", name)
		}
	}
}

// decode round-trips payload through JSON into dst. A nil payload with
// a zero-value dst is a no-op success, matching commands with no
// arguments.
func decode(payload any, dst any) error {
	if payload == nil {
		return nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dst)
}
