package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"transcribe/internal/jobs"
	"transcribe/internal/preflight"
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
	statusSkip
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
	ansiGray   = "\x1b[90m"
)

const (
	statusLabelWidth = 20
	statusIndent     = "  "
)

func renderStatusLine(label string, kind statusKind, message string, colorize bool) string {
	statusText := statusKindLabel(kind)
	if message != "" {
		statusText = fmt.Sprintf("[%s] %s", statusText, message)
	} else {
		statusText = fmt.Sprintf("[%s]", statusText)
	}
	base := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, label+":", statusText)
	if colorize {
		if color := statusKindColor(kind); color != "" {
			return color + base + ansiReset
		}
	}
	return base
}

func statusKindLabel(kind statusKind) string {
	switch kind {
	case statusOK:
		return "OK"
	case statusWarn:
		return "WARN"
	case statusError:
		return "ERROR"
	case statusSkip:
		return "SKIP"
	default:
		return "INFO"
	}
}

func statusKindColor(kind statusKind) string {
	switch kind {
	case statusOK:
		return ansiGreen
	case statusWarn:
		return ansiYellow
	case statusError:
		return ansiRed
	case statusInfo:
		return ansiBlue
	case statusSkip:
		return ansiGray
	default:
		return ""
	}
}

// jobStatusKind maps a job's lifecycle onto the status palette.
func jobStatusKind(job *jobs.Job) statusKind {
	if job == nil {
		return statusInfo
	}
	switch job.Status {
	case jobs.StatusCompleted:
		return statusOK
	case jobs.StatusFailed:
		return statusError
	case jobs.StatusProcessing:
		return statusWarn
	default:
		return statusInfo
	}
}

// colorJobStatus renders the localized status label in the job's color.
func colorJobStatus(job *jobs.Job, colorize bool) string {
	label := jobs.StatusText(job)
	if !colorize {
		return label
	}
	if color := statusKindColor(jobStatusKind(job)); color != "" {
		return color + label + ansiReset
	}
	return label
}

func renderSectionHeader(title string, colorize bool) []string {
	line := fmt.Sprintf("== %s ==", strings.TrimSpace(title))
	rule := strings.Repeat("-", len([]rune(line)))
	if colorize {
		line = ansiBlue + line + ansiReset
		rule = ansiBlue + rule + ansiReset
	}
	return []string{line, rule}
}

// preflightLines renders doctor results followed by a summary line.
func preflightLines(results []preflight.Result, colorize bool) []string {
	lines := make([]string, 0, len(results)+1)
	failed := 0
	for _, r := range results {
		kind := statusOK
		switch {
		case r.Skipped:
			kind = statusSkip
		case !r.Passed:
			kind = statusError
			failed++
		}
		lines = append(lines, renderStatusLine(r.Name, kind, r.Detail, colorize))
	}
	if failed > 0 {
		lines = append(lines, renderStatusLine("Summary", statusError, fmt.Sprintf("%d check(s) failed", failed), colorize))
	} else {
		lines = append(lines, renderStatusLine("Summary", statusOK, "all checks passed", colorize))
	}
	return lines
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
