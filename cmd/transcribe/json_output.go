package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"transcribe/internal/jobs"
)

// writeJSON encodes v as indented JSON to the command's stdout. A nil job
// list is written as [] and URLs keep their & unescaped.
func writeJSON(cmd *cobra.Command, v any) error {
	if list, ok := v.(jobs.Collection); ok && list == nil {
		v = jobs.Collection{}
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
