package jobs

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

// StatusText returns the label shown next to a job.
func StatusText(job *Job) string {
	if job == nil {
		return "В очереди"
	}
	switch job.Status {
	case StatusCompleted:
		return "Готово"
	case StatusProcessing:
		switch job.ProcessingStage {
		case StageDownloading:
			return "Загрузка видео..."
		case StageTranscribing:
			return "Транскрибация..."
		case StageGeneratingInsights:
			return "Генерация инсайтов..."
		default:
			return "Обработка"
		}
	case StatusFailed:
		return "Ошибка"
	case StatusPending:
		return "Ожидание"
	default:
		return "В очереди"
	}
}

// TimeSaved sums the durations, in seconds, of completed jobs.
func TimeSaved(c Collection) int {
	total := 0
	for _, job := range c {
		if job != nil && job.Status == StatusCompleted && job.Duration > 0 {
			total += job.Duration
		}
	}
	return total
}

// CountByStatus tallies jobs per status.
func CountByStatus(c Collection) map[Status]int {
	counts := make(map[Status]int, len(allStatuses))
	for _, job := range c {
		if job != nil {
			counts[job.Status]++
		}
	}
	return counts
}

// FormatTimeSaved renders a TimeSaved total as hours and minutes.
func FormatTimeSaved(totalSeconds int) string {
	if totalSeconds <= 0 {
		return "0 мин"
	}
	hours := totalSeconds / 3600
	minutes := (totalSeconds % 3600) / 60
	if hours > 0 {
		return fmt.Sprintf("%dч %dм", hours, minutes)
	}
	return fmt.Sprintf("%dм", minutes)
}

// FormatDuration renders seconds as "1h 2m 3s" or "2m 3s".
func FormatDuration(seconds int) string {
	if seconds <= 0 {
		return "неизвестно"
	}
	hours := seconds / 3600
	minutes := (seconds % 3600) / 60
	rest := seconds % 60
	if hours > 0 {
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, rest)
	}
	return fmt.Sprintf("%dm %ds", minutes, rest)
}

// FormatTimeAgo renders t relative to now in Russian. Older than a week falls
// back to a dd.mm.yyyy date.
func FormatTimeAgo(t, now time.Time) string {
	if t.IsZero() {
		return "неизвестно"
	}
	minutes := int(now.Sub(t) / time.Minute)
	if minutes < 1 {
		return "только что"
	}
	if minutes < 60 {
		return fmt.Sprintf("%d минут назад", minutes)
	}
	hours := minutes / 60
	if hours < 24 {
		suffix := ""
		if hours > 1 {
			suffix = "ов"
		}
		return fmt.Sprintf("%d час%s назад", hours, suffix)
	}
	days := hours / 24
	if days < 7 {
		if days == 1 {
			return "1 день назад"
		}
		return fmt.Sprintf("%d дней назад", days)
	}
	return t.Local().Format("02.01.2006")
}

// Section is one heading-delimited block of insights markdown.
type Section struct {
	Title string
	Body  string
	Long  bool
}

const longSectionRunes = 500

var headingPrefix = regexp.MustCompile(`^#+\s*`)

// SplitSections splits markdown on top-level "# " headings. Sections whose
// body is at least 500 characters are marked Long.
func SplitSections(content string) []Section {
	var raw []string
	var current strings.Builder
	for _, line := range strings.SplitAfter(content, "\n") {
		if strings.HasPrefix(line, "# ") && current.Len() > 0 {
			raw = append(raw, current.String())
			current.Reset()
		}
		current.WriteString(line)
	}
	if current.Len() > 0 {
		raw = append(raw, current.String())
	}

	sections := make([]Section, 0, len(raw))
	for _, block := range raw {
		trimmed := strings.TrimSpace(block)
		if trimmed == "" {
			continue
		}
		lines := strings.Split(trimmed, "\n")
		body := strings.Join(lines[1:], "\n")
		section := Section{Long: utf8.RuneCountInString(body) >= longSectionRunes}
		if strings.HasPrefix(lines[0], "#") {
			section.Title = headingPrefix.ReplaceAllString(lines[0], "")
			section.Body = strings.TrimSpace(body)
		} else {
			section.Title = fmt.Sprintf("Раздел %d", len(sections)+1)
			section.Body = trimmed
		}
		sections = append(sections, section)
	}
	return sections
}
