/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package dispatch

import "context"

// PluginAction is one action a plugin declares, with the event names that
// should trigger it.
type PluginAction struct {
	ID     string
	Events []string
}

// PluginInfo describes one enabled plugin and its declared actions.
type PluginInfo struct {
	Key     string
	Actions []PluginAction
}

// PluginDirectory is the boundary to the plugin subsystem. The dispatcher
// only consumes it; discovery, caching, and execution live elsewhere.
type PluginDirectory interface {
	EnabledWithActions(ctx context.Context) ([]PluginInfo, error)
	InvokeAction(ctx context.Context, pluginKey, actionID string, params map[string]any) error
}
