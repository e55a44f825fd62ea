package tui

import (
	"context"
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"transcribe/internal/detail"
	"transcribe/internal/errclass"
	"transcribe/internal/jobs"
	"transcribe/internal/listsync"
	"transcribe/internal/services"
)

// Submitter creates a new transcription job.
type Submitter interface {
	AddVideo(ctx context.Context, rawURL string) (*jobs.Job, error)
}

// Deps are the components the dashboard drives.
type Deps struct {
	Sync   *listsync.Synchronizer
	Detail *detail.Controller
	Submit Submitter
}

type screen int

const (
	screenList screen = iota
	screenDetail
	screenAdd
)

type listMsg listsync.State

type detailMsg detail.View

type addedMsg struct {
	job *jobs.Job
	err error
}

type refetchMsg struct {
	err error
}

// actionMsg carries the result of a detail action. Failures the controller
// already shows on one of its surfaces are not repeated in the status line.
type actionMsg struct {
	err error
}

var sortCycle = []jobs.SortKey{jobs.SortByCreatedAt, jobs.SortByRating, jobs.SortByDuration}

// Model is the bubbletea model for the dashboard.
type Model struct {
	ctx  context.Context
	deps Deps

	screen  screen
	list    listsync.State
	view    detail.View
	rows    jobs.Collection
	cursor  int
	sortIdx int
	order   jobs.Order

	input   textinput.Model
	spinner spinner.Model
	status  string
	width   int
	height  int
}

// NewModel builds a dashboard model. ctx bounds every command it issues.
func NewModel(ctx context.Context, deps Deps) Model {
	input := textinput.New()
	input.Placeholder = "https://www.youtube.com/watch?v=..."
	input.CharLimit = 256
	input.Width = 60

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = mutedStyle

	m := Model{
		ctx:     ctx,
		deps:    deps,
		screen:  screenList,
		order:   jobs.Desc,
		input:   input,
		spinner: sp,
	}
	if deps.Sync != nil {
		m.list = deps.Sync.State()
		m.rows = m.sorted()
	}
	return m
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, startSyncCmd(m.ctx, m.deps.Sync))
}

func startSyncCmd(ctx context.Context, sync *listsync.Synchronizer) tea.Cmd {
	if sync == nil {
		return nil
	}
	return func() tea.Msg {
		sync.Start(ctx)
		return nil
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case listMsg:
		m.list = listsync.State(msg)
		m.rows = m.sorted()
		m.clampCursor()
		return m, nil
	case detailMsg:
		m.view = detail.View(msg)
		return m, nil
	case addedMsg:
		if msg.err != nil {
			m.status = errclass.ToUserMessage(msg.err)
			return m, nil
		}
		m.screen = screenList
		m.input.Reset()
		m.input.Blur()
		m.status = "Видео добавлено: " + msg.job.ID
		return m, refetchCmd(m.ctx, m.deps.Sync)
	case refetchMsg:
		if msg.err != nil {
			m.status = errclass.ToUserMessage(msg.err)
		}
		return m, nil
	case actionMsg:
		switch {
		case msg.err == nil:
		case errors.Is(msg.err, detail.ErrNoJob):
			m.status = "Видео ещё не загружено"
		case errors.Is(msg.err, services.ErrValidation):
			m.status = "Транскрипт ещё не готов"
		}
		return m, nil
	}

	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch m.screen {
	case screenDetail:
		return m.updateDetail(keyMsg)
	case screenAdd:
		return m.updateAdd(keyMsg)
	default:
		return m.updateList(keyMsg)
	}
}

func (m Model) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.rows)-1 {
			m.cursor++
		}
	case "r":
		m.status = ""
		return m, refetchCmd(m.ctx, m.deps.Sync)
	case "s":
		m.sortIdx = (m.sortIdx + 1) % len(sortCycle)
		m.rows = m.sorted()
	case "o":
		if m.order == jobs.Desc {
			m.order = jobs.Asc
		} else {
			m.order = jobs.Desc
		}
		m.rows = m.sorted()
	case "x":
		if m.deps.Sync != nil {
			m.deps.Sync.DismissError()
		}
	case "a":
		m.screen = screenAdd
		m.status = ""
		return m, m.input.Focus()
	case "enter":
		if m.cursor >= len(m.rows) || m.deps.Detail == nil {
			return m, nil
		}
		m.screen = screenDetail
		m.status = ""
		return m, loadCmd(m.ctx, m.deps.Detail, m.rows[m.cursor].ID)
	}
	return m, nil
}

func (m Model) updateDetail(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	switch key {
	case "ctrl+c", "q":
		return m, tea.Quit
	case "esc", "backspace":
		m.screen = screenList
		return m, nil
	case "1", "2", "3", "4", "5":
		return m, rateCmd(m.ctx, m.deps.Detail, int(key[0]-'0'))
	case "g":
		return m, generateCmd(m.ctx, m.deps.Detail, false)
	case "G":
		return m, generateCmd(m.ctx, m.deps.Detail, true)
	case "x":
		for _, s := range []detail.Surface{detail.SurfaceLoad, detail.SurfaceRating, detail.SurfaceInsights} {
			m.deps.Detail.DismissError(s)
		}
	}
	return m, nil
}

func (m Model) updateAdd(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "esc":
		m.screen = screenList
		m.input.Reset()
		m.input.Blur()
		m.status = ""
		return m, nil
	case "enter":
		raw := strings.TrimSpace(m.input.Value())
		if !jobs.IsYouTubeURL(raw) {
			m.status = jobs.InvalidURLMessage
			return m, nil
		}
		m.status = ""
		return m, addCmd(m.ctx, m.deps.Submit, raw)
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) sorted() jobs.Collection {
	return jobs.Sort(m.list.Jobs, sortCycle[m.sortIdx], m.order)
}

func (m *Model) clampCursor() {
	if m.cursor > len(m.rows)-1 {
		m.cursor = len(m.rows) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func refetchCmd(ctx context.Context, sync *listsync.Synchronizer) tea.Cmd {
	if sync == nil {
		return nil
	}
	return func() tea.Msg {
		return refetchMsg{err: sync.Refetch(ctx)}
	}
}

func loadCmd(ctx context.Context, ctrl *detail.Controller, id string) tea.Cmd {
	return func() tea.Msg {
		_ = ctrl.Load(ctx, id)
		return nil
	}
}

func rateCmd(ctx context.Context, ctrl *detail.Controller, rating int) tea.Cmd {
	if ctrl == nil {
		return nil
	}
	return func() tea.Msg {
		return actionMsg{err: ctrl.SetRating(ctx, rating)}
	}
}

func generateCmd(ctx context.Context, ctrl *detail.Controller, regenerate bool) tea.Cmd {
	if ctrl == nil {
		return nil
	}
	return func() tea.Msg {
		if regenerate {
			return actionMsg{err: ctrl.RegenerateInsights(ctx)}
		}
		return actionMsg{err: ctrl.GenerateInsights(ctx)}
	}
}

func addCmd(ctx context.Context, submit Submitter, raw string) tea.Cmd {
	if submit == nil {
		return nil
	}
	return func() tea.Msg {
		job, err := submit.AddVideo(ctx, raw)
		return addedMsg{job: job, err: err}
	}
}
