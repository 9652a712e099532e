package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"yt-publish-scheduler/internal/model"
)

type manageMode int

const (
	manageModeBrowse manageMode = iota
	manageModeReschedule
	manageModeCancelConfirm
)

const manageListLimit = 200

// manageStore is the slice of the ledger the browser needs.
type manageStore interface {
	ListRecent(ctx context.Context, limit int) ([]model.ScheduleRecord, error)
	Cancel(ctx context.Context, id int64) error
	UpdateScheduleTime(ctx context.Context, id int64, t time.Time) error
}

// manageRemote rewrites the remote publish time for records already
// uploaded; the drift job aligns the ledger afterwards.
type manageRemote interface {
	UpdateScheduledVisibility(ctx context.Context, id string, newTime time.Time) error
}

type manageModel struct {
	store    manageStore
	remote   manageRemote
	location *time.Location

	records []model.ScheduleRecord
	cursor  int
	width   int
	height  int
	mode    manageMode

	input         textinput.Model
	inputError    string
	statusMessage string
	fatalErr      error
}

type manageLoadedMsg struct {
	records []model.ScheduleRecord
	err     error
}

type manageActionMsg struct {
	message string
	err     error
}

var (
	manageTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	manageMutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	manageErrorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true)
	manageOKStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	manageSelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("230")).Background(lipgloss.Color("62")).Bold(true)
)

func runManage(args []string) error {
	fs := flag.NewFlagSet("manage", flag.ContinueOnError)
	fs.SetOutput(flag.CommandLine.Output())
	if err := fs.Parse(args); err != nil {
		return err
	}
	if !stdinIsTTY() {
		return errors.New("manage requires an interactive terminal (TTY)")
	}

	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.Close()

	m := manageModel{
		store:    a.store,
		remote:   a.yt,
		location: a.cfg.Location(),
		mode:     manageModeBrowse,
	}
	p := tea.NewProgram(m, tea.WithAltScreen())
	finalModel, err := p.Run()
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "tty") {
			return errors.New("manage requires an interactive terminal (TTY)")
		}
		return err
	}
	if fm, ok := finalModel.(manageModel); ok {
		return fm.fatalErr
	}
	return nil
}

func loadRecordsCmd(store manageStore) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		records, err := store.ListRecent(ctx, manageListLimit)
		return manageLoadedMsg{records: records, err: err}
	}
}

func cancelRecordCmd(store manageStore, id int64) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := store.Cancel(ctx, id); err != nil {
			return manageActionMsg{err: err}
		}
		return manageActionMsg{message: fmt.Sprintf("schedule %d canceled", id)}
	}
}

func rescheduleCmd(store manageStore, remote manageRemote, rec model.ScheduleRecord, newTime time.Time) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		switch rec.Status {
		case model.StatusScheduled:
			if err := store.UpdateScheduleTime(ctx, rec.ID, newTime); err != nil {
				return manageActionMsg{err: err}
			}
			return manageActionMsg{message: fmt.Sprintf("schedule %d moved to %s", rec.ID, newTime.Format("2006-01-02 15:04"))}
		case model.StatusUploaded:
			if err := remote.UpdateScheduledVisibility(ctx, rec.YoutubeVideoID, newTime); err != nil {
				return manageActionMsg{err: err}
			}
			return manageActionMsg{message: fmt.Sprintf("remote publish time of %s moved; drift will align the ledger", rec.YoutubeVideoID)}
		default:
			return manageActionMsg{err: fmt.Errorf("cannot reschedule a %s record", rec.Status)}
		}
	}
}

func (m manageModel) Init() tea.Cmd {
	return loadRecordsCmd(m.store)
}

func (m manageModel) selected() *model.ScheduleRecord {
	if m.cursor < 0 || m.cursor >= len(m.records) {
		return nil
	}
	return &m.records[m.cursor]
}

func (m manageModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case manageLoadedMsg:
		if msg.err != nil {
			m.fatalErr = msg.err
			return m, tea.Quit
		}
		m.records = msg.records
		if m.cursor > len(m.records)-1 {
			m.cursor = len(m.records) - 1
		}
		if m.cursor < 0 {
			m.cursor = 0
		}
		return m, nil
	case manageActionMsg:
		if msg.err != nil {
			if m.mode == manageModeReschedule {
				m.inputError = msg.err.Error()
				return m, nil
			}
			m.statusMessage = "error: " + msg.err.Error()
			m.mode = manageModeBrowse
			return m, nil
		}
		m.mode = manageModeBrowse
		m.inputError = ""
		m.statusMessage = msg.message
		return m, loadRecordsCmd(m.store)
	}

	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch m.mode {
	case manageModeBrowse:
		return m.updateBrowse(keyMsg)
	case manageModeReschedule:
		return m.updateReschedule(keyMsg)
	case manageModeCancelConfirm:
		return m.updateCancelConfirm(keyMsg)
	default:
		return m, nil
	}
}

func (m manageModel) updateBrowse(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil
	case "down", "j":
		if m.cursor < len(m.records)-1 {
			m.cursor++
		}
		return m, nil
	case "g":
		m.cursor = 0
		return m, nil
	case "G":
		if len(m.records) > 0 {
			m.cursor = len(m.records) - 1
		}
		return m, nil
	case "r":
		m.statusMessage = ""
		return m, loadRecordsCmd(m.store)
	case "c":
		rec := m.selected()
		if rec == nil {
			m.statusMessage = "select a record to cancel"
			return m, nil
		}
		if model.IsTerminalStatus(rec.Status) {
			m.statusMessage = fmt.Sprintf("record %d is already %s", rec.ID, rec.Status)
			return m, nil
		}
		m.mode = manageModeCancelConfirm
		return m, nil
	case "enter", "e":
		rec := m.selected()
		if rec == nil {
			m.statusMessage = "nothing to reschedule"
			return m, nil
		}
		if rec.Status != model.StatusScheduled && rec.Status != model.StatusUploaded {
			m.statusMessage = fmt.Sprintf("cannot reschedule a %s record", rec.Status)
			return m, nil
		}
		input := textinput.New()
		input.Placeholder = "2006-01-02 15:04"
		input.SetValue(rec.ScheduleTime.In(m.location).Format("2006-01-02 15:04"))
		input.Focus()
		m.input = input
		m.inputError = ""
		m.mode = manageModeReschedule
		return m, nil
	}
	return m, nil
}

func (m manageModel) updateReschedule(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "esc":
		m.mode = manageModeBrowse
		m.inputError = ""
		m.statusMessage = "reschedule cancelled"
		return m, nil
	case "enter":
		rec := m.selected()
		if rec == nil {
			m.mode = manageModeBrowse
			return m, nil
		}
		newTime, err := time.ParseInLocation("2006-01-02 15:04", strings.TrimSpace(m.input.Value()), m.location)
		if err != nil {
			m.inputError = "expected format 2006-01-02 15:04"
			return m, nil
		}
		if !newTime.After(time.Now()) {
			m.inputError = "new time must be in the future"
			return m, nil
		}
		return m, rescheduleCmd(m.store, m.remote, *rec, newTime.UTC())
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m manageModel) updateCancelConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch strings.ToLower(msg.String()) {
	case "y":
		rec := m.selected()
		if rec == nil {
			m.mode = manageModeBrowse
			return m, nil
		}
		return m, cancelRecordCmd(m.store, rec.ID)
	case "n", "esc", "ctrl+c":
		m.mode = manageModeBrowse
		m.statusMessage = "cancel aborted"
		return m, nil
	}
	return m, nil
}

func statusGlyph(status string) string {
	switch status {
	case model.StatusPublished:
		return manageOKStyle.Render("●")
	case model.StatusFailed, model.StatusError:
		return manageErrorStyle.Render("✗")
	case model.StatusDeleted, model.StatusCanceled:
		return manageMutedStyle.Render("○")
	default:
		return "◌"
	}
}

func (m manageModel) View() string {
	var b strings.Builder
	b.WriteString(manageTitleStyle.Render("publish schedule"))
	b.WriteString(manageMutedStyle.Render(fmt.Sprintf("  %d records", len(m.records))))
	b.WriteString("\n\n")

	if len(m.records) == 0 {
		b.WriteString(manageMutedStyle.Render("no records yet; run a scan first"))
		b.WriteString("\n")
	}

	visible := m.height - 8
	if visible < 5 {
		visible = 5
	}
	start := 0
	if m.cursor >= visible {
		start = m.cursor - visible + 1
	}
	for i := start; i < len(m.records) && i < start+visible; i++ {
		rec := m.records[i]
		line := fmt.Sprintf("%s %6d  %-9s  %-5s  %s  %s",
			statusGlyph(rec.Status), rec.ID, rec.Status, rec.VideoType,
			rec.ScheduleTime.In(m.location).Format("2006-01-02 15:04"),
			rec.FolderName)
		if i == m.cursor {
			line = manageSelStyle.Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	b.WriteString("\n")
	switch m.mode {
	case manageModeReschedule:
		rec := m.selected()
		if rec != nil {
			b.WriteString(fmt.Sprintf("new publish time for %d (%s):\n", rec.ID, rec.Status))
		}
		b.WriteString(m.input.View())
		b.WriteString("\n")
		if m.inputError != "" {
			b.WriteString(manageErrorStyle.Render(m.inputError))
			b.WriteString("\n")
		}
		b.WriteString(manageMutedStyle.Render("enter save · esc back"))
	case manageModeCancelConfirm:
		rec := m.selected()
		if rec != nil {
			b.WriteString(manageErrorStyle.Render(fmt.Sprintf("cancel schedule %d (%s)? [y/N]", rec.ID, rec.FolderName)))
		}
	default:
		if m.statusMessage != "" {
			b.WriteString(manageOKStyle.Render(m.statusMessage))
			b.WriteString("\n")
		}
		b.WriteString(manageMutedStyle.Render("↑/↓ move · enter reschedule · c cancel · r reload · q quit"))
	}
	b.WriteString("\n")
	return b.String()
}
