package main

import (
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"transcribe/internal/jobs"
)

var printer = message.NewPrinter(language.Russian)

// formatCount groups digits the Russian way, e.g. "12 345".
func formatCount(n int) string {
	return printer.Sprintf("%d", n)
}

func displayTitle(job *jobs.Job) string {
	if job == nil {
		return ""
	}
	if title := strings.TrimSpace(job.Title); title != "" {
		return title
	}
	if job.URL != "" {
		return job.URL
	}
	return job.ID
}

func truncateRunes(s string, max int) string {
	r := []rune(s)
	if max <= 0 || len(r) <= max {
		return s
	}
	if max == 1 {
		return "…"
	}
	return string(r[:max-1]) + "…"
}

func ratingStars(rating int) string {
	if rating <= 0 {
		return "-"
	}
	if rating > 5 {
		rating = 5
	}
	return strings.Repeat("★", rating) + strings.Repeat("☆", 5-rating)
}

func timeAgo(job *jobs.Job, now time.Time) string {
	return jobs.FormatTimeAgo(job.CreatedTime(), now)
}
