// internal/tui/batch.go
//
// Progress view for `savefile apply --tui`. Each manifest entry runs inside
// its own tea.Cmd so the spinner keeps moving between writes. The flow is the
// usual bubbletea loop: Cmd -> entryDoneMsg -> Update -> next Cmd.

package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kingrea/savefile/internal/args"
	"github.com/kingrea/savefile/internal/manifest"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF"))
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#4CAF50")).Bold(true)
	failStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true)
	detailStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#A0AEC0"))
	summaryStyle = lipgloss.NewStyle().MarginTop(1)
)

type entryDoneMsg struct {
	result manifest.Result
}

// BatchModel runs manifest entries one at a time and renders their status.
type BatchModel struct {
	title   string
	fn      manifest.Caller
	entries []args.Bag
	results []manifest.Result
	spinner spinner.Model
	done    bool
	aborted bool
}

// NewBatchModel prepares a model that will call fn for every entry.
func NewBatchModel(title string, fn manifest.Caller, entries []args.Bag) *BatchModel {
	s := spinner.New(spinner.WithSpinner(spinner.Dot))
	s.Style = detailStyle
	return &BatchModel{
		title:   title,
		fn:      fn,
		entries: entries,
		spinner: s,
		done:    len(entries) == 0,
	}
}

func (m *BatchModel) Init() tea.Cmd {
	if m.done {
		return tea.Quit
	}
	return tea.Batch(m.spinner.Tick, m.runNext())
}

func (m *BatchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			if !m.done {
				m.aborted = true
			}
			return m, tea.Quit
		}
		return m, nil
	case entryDoneMsg:
		m.results = append(m.results, msg.result)
		if len(m.results) >= len(m.entries) {
			m.done = true
			return m, tea.Quit
		}
		if m.aborted {
			return m, nil
		}
		return m, m.runNext()
	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *BatchModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(m.title))
	b.WriteString("\n\n")
	for _, res := range m.results {
		b.WriteString(ResultLine(res))
		b.WriteString("\n")
	}
	if !m.done && !m.aborted && len(m.results) < len(m.entries) {
		next := m.entries[len(m.results)]
		path, _ := next.RequiredString("path")
		fmt.Fprintf(&b, "%s writing %s\n", m.spinner.View(), path)
	}
	if m.done || m.aborted {
		b.WriteString(summaryStyle.Render(Summary(m.results, len(m.entries))))
		b.WriteString("\n")
	} else {
		b.WriteString(detailStyle.Render("q to stop after the current write"))
		b.WriteString("\n")
	}
	return b.String()
}

// Results returns the outcomes recorded so far.
func (m *BatchModel) Results() []manifest.Result {
	return append([]manifest.Result(nil), m.results...)
}

// Aborted reports whether the user quit before every entry ran.
func (m *BatchModel) Aborted() bool { return m.aborted }

// Done reports whether every entry has run.
func (m *BatchModel) Done() bool { return m.done }

func (m *BatchModel) runNext() tea.Cmd {
	index := len(m.results)
	if index >= len(m.entries) {
		return nil
	}
	fn, entry := m.fn, m.entries[index]
	return func() tea.Msg {
		return entryDoneMsg{result: manifest.RunOne(fn, index, entry)}
	}
}

// ResultLine renders a single result the way the progress view does.
func ResultLine(res manifest.Result) string {
	label := fmt.Sprintf("#%d %s", res.Index+1, displayPath(res.Path))
	if res.OK() {
		return okStyle.Render("ok  ") + " " + label
	}
	return failStyle.Render("FAIL") + " " + label + " " + detailStyle.Render(res.Err.Error())
}

// Summary renders the one-line tally shown at the end of a run.
func Summary(results []manifest.Result, total int) string {
	failed := manifest.Failed(results)
	written := len(results) - failed
	line := fmt.Sprintf("%d written, %d failed", written, failed)
	if skipped := total - len(results); skipped > 0 {
		line += fmt.Sprintf(", %d skipped", skipped)
	}
	if failed > 0 {
		return failStyle.Render(line)
	}
	return okStyle.Render(line)
}

func displayPath(path string) string {
	if strings.TrimSpace(path) == "" {
		return "(no path)"
	}
	return path
}
