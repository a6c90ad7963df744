package rules

import "github.com/archipelago-tracker/core/internal/helpers"

// contextView adapts a Context to helpers.View, the read-only surface
// helper functions are allowed to query.
type contextView struct {
	ctx *Context
}

func view(ctx *Context) helpers.View {
	return contextView{ctx: ctx}
}

func (v contextView) Has(item string) bool {
	return v.ctx.Inventory.Has(item, v.ctx.State.HasEvent(item))
}

func (v contextView) Count(item string) int {
	return v.ctx.Inventory.Count(item)
}

func (v contextView) CountGroup(group string) int {
	return v.ctx.Inventory.CountGroup(group)
}

func (v contextView) HasFlag(name string) bool {
	return v.ctx.State.HasFlag(name)
}

func (v contextView) HasEvent(name string) bool {
	return v.ctx.State.HasEvent(name)
}

func (v contextView) Setting(name string) (any, bool) {
	return v.ctx.State.Setting(name)
}

func (v contextView) CanReach(name, kind string, player int) bool {
	if v.ctx.CanReach == nil {
		return false
	}
	return v.ctx.CanReach(name, kind, player)
}

func (v contextView) Player() int {
	return v.ctx.Player
}
