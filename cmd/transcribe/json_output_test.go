package main

import (
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"transcribe/internal/jobs"
)

func TestWriteJSONNilCollectionIsEmptyArray(t *testing.T) {
	var buf strings.Builder
	cmd := &cobra.Command{}
	cmd.SetOut(&buf)
	var list jobs.Collection
	if err := writeJSON(cmd, list); err != nil {
		t.Fatalf("writeJSON: %v", err)
	}
	if got := strings.TrimSpace(buf.String()); got != "[]" {
		t.Fatalf("expected [], got %q", got)
	}
}

func TestWriteJSONKeepsURLQuery(t *testing.T) {
	var buf strings.Builder
	cmd := &cobra.Command{}
	cmd.SetOut(&buf)
	if err := writeJSON(cmd, map[string]string{"url": "https://www.youtube.com/watch?v=a&t=1"}); err != nil {
		t.Fatalf("writeJSON: %v", err)
	}
	requireContains(t, buf.String(), "watch?v=a&t=1")
}
