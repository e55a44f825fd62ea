package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"transcribe/internal/detail"
	"transcribe/internal/jobs"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true)
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	panelStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	selectStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("230")).Background(lipgloss.Color("62")).Bold(true)
)

func statusStyle(job *jobs.Job) lipgloss.Style {
	switch job.Status {
	case jobs.StatusCompleted:
		return okStyle
	case jobs.StatusFailed:
		return errorStyle
	case jobs.StatusProcessing:
		return warnStyle
	default:
		return mutedStyle
	}
}

func (m Model) View() string {
	width := m.width
	if width <= 0 {
		width = 100
	}
	var body string
	switch m.screen {
	case screenDetail:
		body = m.detailView(width)
	case screenAdd:
		body = m.addView()
	default:
		body = m.listView(width)
	}
	if m.status != "" {
		body += "\n" + warnStyle.Render(m.status)
	}
	return body
}

func (m Model) listView(width int) string {
	var b strings.Builder
	counts := jobs.CountByStatus(m.list.Jobs)
	header := fmt.Sprintf("Транскрипции  %d всего · %d готово · %d в работе · сэкономлено %s",
		len(m.list.Jobs),
		counts[jobs.StatusCompleted],
		counts[jobs.StatusProcessing]+counts[jobs.StatusQueued]+counts[jobs.StatusPending],
		jobs.FormatTimeSaved(jobs.TimeSaved(m.list.Jobs)),
	)
	b.WriteString(titleStyle.Render(header))
	if m.list.Loading {
		b.WriteString(" " + m.spinner.View())
	}
	b.WriteString("\n")
	b.WriteString(mutedStyle.Render(fmt.Sprintf("sort: %s %s", sortCycle[m.sortIdx], m.order)))
	b.WriteString("\n\n")

	if m.list.Message != "" {
		b.WriteString(errorStyle.Render(m.list.Message))
		b.WriteString(mutedStyle.Render("  (r: повторить, x: скрыть)"))
		b.WriteString("\n\n")
	} else if m.list.Retries > 0 {
		b.WriteString(warnStyle.Render(fmt.Sprintf("Нет соединения, повтор %d...", m.list.Retries)))
		b.WriteString("\n\n")
	}

	if len(m.rows) == 0 && !m.list.Loading {
		b.WriteString(mutedStyle.Render("Пока нет видео. Нажмите a, чтобы добавить."))
		b.WriteString("\n")
	}
	now := time.Now()
	titleWidth := width - 40
	if titleWidth < 20 {
		titleWidth = 20
	}
	for i, job := range m.rows {
		title := job.Title
		if title == "" {
			title = job.URL
		}
		line := fmt.Sprintf("%-*s  %-22s %-16s %s",
			titleWidth, truncate(title, titleWidth),
			statusStyle(job).Render(jobs.StatusText(job)),
			mutedStyle.Render(jobs.FormatTimeAgo(job.CreatedTime(), now)),
			stars(job.Rating),
		)
		if i == m.cursor {
			line = selectStyle.Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(mutedStyle.Render("↑/↓ выбрать · enter открыть · a добавить · r обновить · s сортировка · o порядок · q выход"))
	return b.String()
}

func (m Model) detailView(width int) string {
	v := m.view
	var b strings.Builder
	switch {
	case v.Loading && v.Job == nil:
		b.WriteString(m.spinner.View() + " Загрузка...")
		return panelStyle.Width(width - 2).Render(b.String())
	case v.NotFound:
		b.WriteString(errorStyle.Render("Видео не найдено"))
		b.WriteString("\n" + mutedStyle.Render("esc: назад"))
		return panelStyle.Width(width - 2).Render(b.String())
	case v.Job == nil:
		if msg := v.Error(detail.SurfaceLoad); msg != "" {
			b.WriteString(errorStyle.Render(msg))
		}
		b.WriteString("\n" + mutedStyle.Render("esc: назад"))
		return panelStyle.Width(width - 2).Render(b.String())
	}

	job := v.Job
	title := job.Title
	if title == "" {
		title = job.URL
	}
	b.WriteString(titleStyle.Render(title))
	b.WriteString("\n")
	b.WriteString(statusStyle(job).Render(jobs.StatusText(job)))
	b.WriteString(mutedStyle.Render("  ·  " + jobs.FormatDuration(job.Duration)))
	b.WriteString("\n")
	if job.Error != "" {
		b.WriteString(errorStyle.Render(job.Error))
		b.WriteString("\n")
	}

	b.WriteString("\nОценка: " + stars(job.Rating))
	if v.RatingBusy {
		b.WriteString(" " + m.spinner.View())
	}
	if msg := v.Error(detail.SurfaceRating); msg != "" {
		b.WriteString("  " + errorStyle.Render(msg))
	}
	b.WriteString("\n\n")

	b.WriteString(titleStyle.Render("Инсайты"))
	b.WriteString("\n")
	if v.Generating {
		line := m.spinner.View() + " Генерация..."
		if v.Progress != nil {
			line = fmt.Sprintf("%s %d%% (%d/%d)", line, v.Progress.Percent, v.Progress.Attempt, v.Progress.MaxAttempts)
		}
		b.WriteString(line + "\n")
	}
	if msg := v.Error(detail.SurfaceInsights); msg != "" {
		b.WriteString(errorStyle.Render(msg) + "\n")
	}
	if job.Insights != nil {
		if content := job.Insights.Content(); content != "" {
			for _, section := range jobs.SplitSections(content) {
				if section.Title != "" {
					b.WriteString(okStyle.Render(section.Title) + "\n")
				}
				body := section.Body
				if section.Long {
					body = truncate(body, 500) + mutedStyle.Render(" [...]")
				}
				b.WriteString(body + "\n")
			}
		}
	} else if !v.Generating {
		b.WriteString(mutedStyle.Render("Инсайты ещё не созданы") + "\n")
	}

	b.WriteString("\n")
	b.WriteString(mutedStyle.Render("1-5 оценка · g создать · G пересоздать · x скрыть ошибки · esc назад"))
	return panelStyle.Width(width - 2).Render(b.String())
}

func (m Model) addView() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Новое видео"))
	b.WriteString("\n\n")
	b.WriteString(m.input.View())
	b.WriteString("\n\n")
	b.WriteString(mutedStyle.Render("enter отправить · esc отмена"))
	return panelStyle.Render(b.String())
}

func stars(rating int) string {
	if rating <= 0 {
		return mutedStyle.Render("☆☆☆☆☆")
	}
	if rating > 5 {
		rating = 5
	}
	return strings.Repeat("★", rating) + strings.Repeat("☆", 5-rating)
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	if max <= 1 {
		return string(r[:max])
	}
	return string(r[:max-1]) + "…"
}
