package tui

import (
	"errors"
	"strings"
	"testing"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/kingrea/savefile/internal/args"
	"github.com/kingrea/savefile/internal/manifest"
)

type stubCaller struct {
	calls []string
	fail  map[string]error
}

func (s *stubCaller) Call(bag args.Bag) (args.Value, error) {
	path, _ := bag.RequiredString("path")
	s.calls = append(s.calls, path)
	if err := s.fail[path]; err != nil {
		return args.Value{}, err
	}
	return args.Bool(true), nil
}

func entries(paths ...string) []args.Bag {
	out := make([]args.Bag, len(paths))
	for i, p := range paths {
		out[i] = args.Bag{"path": args.String(p), "data": args.String("x")}
	}
	return out
}

// runCommands drives the model until no further work is queued, skipping
// spinner ticks so tests do not sleep.
func runCommands(t *testing.T, model tea.Model, cmd tea.Cmd) (*BatchModel, bool) {
	t.Helper()
	m, ok := model.(*BatchModel)
	if !ok {
		t.Fatalf("unexpected model type: %T", model)
	}
	quit := false
	queue := []tea.Cmd{cmd}
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		if next == nil {
			continue
		}
		msg := next()
		switch msg := msg.(type) {
		case nil:
			continue
		case tea.BatchMsg:
			queue = append(queue, msg...)
			continue
		case tea.QuitMsg:
			quit = true
			continue
		case spinner.TickMsg:
			continue
		}
		nextModel, nextCmd := m.Update(msg)
		m, ok = nextModel.(*BatchModel)
		if !ok {
			t.Fatalf("unexpected model type: %T", nextModel)
		}
		queue = append(queue, nextCmd)
	}
	return m, quit
}

func TestBatchRunsEveryEntryInOrder(t *testing.T) {
	caller := &stubCaller{fail: map[string]error{"b.txt": errors.New("disk full")}}
	model := NewBatchModel("Writing", caller, entries("a.txt", "b.txt", "c.txt"))
	m, quit := runCommands(t, model, model.Init())
	if !quit {
		t.Fatalf("expected the program to quit after the last entry")
	}
	if !m.Done() || m.Aborted() {
		t.Fatalf("expected done and not aborted")
	}
	if got := strings.Join(caller.calls, ","); got != "a.txt,b.txt,c.txt" {
		t.Fatalf("unexpected call order %s", got)
	}
	results := m.Results()
	if len(results) != 3 || manifest.Failed(results) != 1 {
		t.Fatalf("unexpected results %+v", results)
	}
	view := m.View()
	for _, want := range []string{"Writing", "#1 a.txt", "FAIL", "disk full", "2 written, 1 failed"} {
		if !strings.Contains(view, want) {
			t.Fatalf("view missing %q:\n%s", want, view)
		}
	}
}

func TestBatchQuitStopsFurtherWrites(t *testing.T) {
	caller := &stubCaller{}
	model := NewBatchModel("Writing", caller, entries("a.txt", "b.txt", "c.txt"))
	first := model.runNext()
	next, cmd := model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Fatalf("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatalf("expected tea.QuitMsg")
	}
	m := next.(*BatchModel)
	if !m.Aborted() {
		t.Fatalf("expected aborted after q")
	}
	_, cmd = m.Update(first())
	if cmd != nil {
		t.Fatalf("expected no follow-up write after abort")
	}
	if len(caller.calls) != 1 {
		t.Fatalf("expected exactly one write, got %d", len(caller.calls))
	}
	if view := m.View(); !strings.Contains(view, "1 written, 0 failed, 2 skipped") {
		t.Fatalf("unexpected summary:\n%s", view)
	}
}

func TestBatchWithNoEntriesQuitsImmediately(t *testing.T) {
	model := NewBatchModel("Writing", &stubCaller{}, nil)
	cmd := model.Init()
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatalf("expected immediate quit")
	}
	if !model.Done() {
		t.Fatalf("expected empty batch to be done")
	}
}

func TestResultLineNamesMissingPath(t *testing.T) {
	line := ResultLine(manifest.Result{Index: 0, Err: errors.New("missing path")})
	if !strings.Contains(line, "(no path)") || !strings.Contains(line, "missing path") {
		t.Fatalf("unexpected line %q", line)
	}
}
