// Package main hosts the transcribe CLI entrypoint and command graph.
//
// The Cobra-based command tree translates terminal invocations into calls
// against the transcription API: session management, job submission and
// listing, ratings, insight generation, a live watch loop, the terminal
// dashboard, and an MCP stdio server. It centralizes configuration
// resolution, logging setup, and client construction in commandContext so
// subcommands only deal with presentation.
package main
