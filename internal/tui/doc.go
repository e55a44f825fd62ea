// Package tui renders an interactive terminal dashboard over the list
// synchronizer and the detail controller.
//
// The model never calls the network from Update. Every mutation runs as a
// tea.Cmd, and state arrives back as listMsg/detailMsg values forwarded from
// the components' Subscribe callbacks, so the view always reflects the same
// snapshots the CLI and MCP surfaces see.
package tui
