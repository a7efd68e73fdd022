// Package tui is the interactive task list.
package tui

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Makepad-fr/tada/internal/model"
	"github.com/Makepad-fr/tada/internal/syncer"
)

// Session is the part of syncer.Session the list drives.
type Session interface {
	Tasks() []model.Task
	Add(text, project string) (model.Task, error)
	Toggle(id model.ID) error
	Edit(id model.ID, text string) error
	Delete(id model.ID) error
	Restore(t model.Task) error
	ClearCompleted() (int, error)
	Enabled() bool
	PushPending() bool
	LastSync() time.Time
	LoadAndSync(ctx context.Context) error
	Flush(ctx context.Context) error
	Suspend(reason syncer.SuspendReason)
}

// Options tune the list.
type Options struct {
	Filter  model.Filter
	Project string // default project for new tasks
	Theme   string
	Synced  bool // whether a remote is configured at all
}

// listItem adapts a task to bubbles/list.Item.
type listItem struct {
	task model.Task
}

func (i listItem) Title() string       { return i.task.Text }
func (i listItem) Description() string { return i.task.Project }
func (i listItem) FilterValue() string { return i.task.Text + " " + i.task.Project }

// itemDelegate renders each task on a single line.
type itemDelegate struct{}

func (d itemDelegate) Height() int                         { return 1 }
func (d itemDelegate) Spacing() int                        { return 0 }
func (d itemDelegate) Update(tea.Msg, *list.Model) tea.Cmd { return nil }
func (d itemDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	it, ok := item.(listItem)
	if !ok {
		return
	}
	box := mutedStyle.Render(boxUnchecked)
	text := it.task.Text
	if it.task.Completed {
		box = successStyle.Render(boxChecked)
		text = doneStyle.Render(text)
	}
	line := box + " " + text
	if it.task.Project != "" {
		line += " " + projectStyle.Render("#"+it.task.Project)
	}
	prefix := "  "
	if index == m.Index() {
		prefix = selectedStyle.Render("> ")
	}
	fmt.Fprintln(w, prefix+line)
}

type syncDoneMsg struct{ err error }

type keyMap struct {
	add, edit, undo, clear, filter, sync key.Binding
}

var keys = keyMap{
	add:    key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add")),
	edit:   key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "edit")),
	undo:   key.NewBinding(key.WithKeys("u"), key.WithHelp("u", "undo")),
	clear:  key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "clear done")),
	filter: key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "filter")),
	sync:   key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "sync")),
}

func (k keyMap) bindings() []key.Binding {
	return []key.Binding{k.add, k.edit, k.undo, k.clear, k.filter, k.sync}
}

// Model is the Bubble Tea model over a sync session.
type Model struct {
	session  Session
	notifier *Notifier
	opts     Options

	list   list.Model
	filter model.Filter
	width  int
	height int

	// inline add / edit share one text input
	adding   bool
	editing  bool
	editID   model.ID
	ti       textinput.Model
	inputErr string

	// single-level undo of the last delete
	undo *model.Task

	syncing bool
	status  string
}

// New builds the model. notifier may be nil when nothing changes the session
// behind the list's back.
func New(s Session, notifier *Notifier, opts Options) Model {
	applyTheme(opts.Theme)

	l := list.New(nil, itemDelegate{}, 0, 0)
	l.SetShowHelp(true)
	l.SetShowPagination(true)
	l.SetShowStatusBar(true)
	l.SetFilteringEnabled(true)
	l.Styles.Title = titleStyle
	l.Styles.HelpStyle = helpStyle
	l.Styles.PaginationStyle = helpStyle
	l.FilterInput.Prompt = "/ "
	l.SetStatusBarItemName("task", "tasks")
	l.AdditionalShortHelpKeys = keys.bindings
	l.AdditionalFullHelpKeys = keys.bindings

	ti := textinput.New()
	ti.Prompt = "> "
	ti.CharLimit = 500

	m := Model{
		session:  s,
		notifier: notifier,
		opts:     opts,
		list:     l,
		filter:   opts.Filter,
		ti:       ti,
	}
	m.width, m.height = widthHeight()
	m.resize()
	m.refresh()
	return m
}

// Run shows the list until the user quits. The caller closes the session.
func Run(s Session, notifier *Notifier, opts Options) error {
	p := tea.NewProgram(New(s, notifier, opts), tea.WithAltScreen(), tea.WithReportFocus())
	_, err := p.Run()
	return err
}

func (m Model) Init() tea.Cmd {
	if m.notifier == nil {
		return nil
	}
	return m.notifier.wait()
}

func (m *Model) refresh() {
	tasks := m.session.Tasks()
	done, pending := model.Stats(tasks)
	m.list.Title = fmt.Sprintf("%s   %s %d  %s %d  %s %d",
		titleStyle.Render("Todos"),
		successStyle.Render("✔"), done,
		pendingStyle.Render("•"), pending,
		accentStyle.Render("Total"), len(tasks),
	)

	shown := m.filter.Apply(tasks)
	items := make([]list.Item, 0, len(shown))
	for _, t := range shown {
		items = append(items, listItem{task: t})
	}
	m.list.SetItems(items)
}

func (m *Model) resize() {
	h := m.height - 5
	if m.adding || m.editing {
		h -= 3
	}
	if h < 3 {
		h = 3
	}
	m.list.SetSize(m.width-4, h)
}

func (m Model) selected() (model.Task, bool) {
	it, ok := m.list.SelectedItem().(listItem)
	if !ok {
		return model.Task{}, false
	}
	return it.task, true
}

func (m *Model) report(err error) {
	if err != nil {
		m.status = errorStyle.Render(err.Error())
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.resize()
		return m, nil

	case changedMsg:
		m.refresh()
		return m, m.notifier.wait()

	case syncDoneMsg:
		m.syncing = false
		if msg.err != nil {
			m.status = errorStyle.Render("sync failed: " + msg.err.Error())
		} else {
			m.status = ""
		}
		m.refresh()
		return m, nil

	case tea.BlurMsg:
		// terminal lost focus: push now rather than wait for the debounce
		m.session.Suspend(syncer.SuspendHidden)
		return m, nil
	}

	if m.adding || m.editing {
		return m.updateInput(msg)
	}

	if km, ok := msg.(tea.KeyMsg); ok && m.list.FilterState() != list.Filtering {
		if next, cmd, handled := m.handleKey(km); handled {
			return next, cmd
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd, bool) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit, true

	case " ", "x":
		if t, ok := m.selected(); ok {
			m.report(m.session.Toggle(t.ID))
			m.refresh()
		}
		return m, nil, true

	case "d":
		if t, ok := m.selected(); ok {
			if err := m.session.Delete(t.ID); err != nil {
				m.report(err)
			} else {
				m.undo = &t
			}
			m.refresh()
		}
		return m, nil, true

	case "u":
		if m.undo != nil {
			m.report(m.session.Restore(*m.undo))
			m.undo = nil
			m.refresh()
		}
		return m, nil, true

	case "a":
		m.adding = true
		m.inputErr = ""
		m.ti.SetValue("")
		m.ti.Placeholder = "New task..."
		m.resize()
		return m, m.ti.Focus(), true

	case "e":
		t, ok := m.selected()
		if !ok {
			return m, nil, true
		}
		m.editing = true
		m.editID = t.ID
		m.inputErr = ""
		m.ti.SetValue(t.Text)
		m.ti.CursorEnd()
		m.ti.Placeholder = "Edit task..."
		m.resize()
		return m, m.ti.Focus(), true

	case "c":
		n, err := m.session.ClearCompleted()
		m.report(err)
		if err == nil && n > 0 {
			m.status = mutedStyle.Render(fmt.Sprintf("cleared %d", n))
		}
		m.refresh()
		return m, nil, true

	case "f":
		m.filter = m.filter.Next()
		m.refresh()
		return m, nil, true

	case "s":
		if !m.opts.Synced || m.syncing {
			return m, nil, true
		}
		m.syncing = true
		s := m.session
		return m, func() tea.Msg {
			ctx := context.Background()
			if err := s.LoadAndSync(ctx); err != nil {
				return syncDoneMsg{err: err}
			}
			return syncDoneMsg{err: s.Flush(ctx)}
		}, true
	}
	return m, nil, false
}

func (m Model) updateInput(msg tea.Msg) (tea.Model, tea.Cmd) {
	if km, ok := msg.(tea.KeyMsg); ok {
		switch km.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "enter":
			text := strings.TrimSpace(m.ti.Value())
			if text == "" {
				m.inputErr = "Text cannot be empty"
				return m, nil
			}
			var err error
			if m.adding {
				_, err = m.session.Add(text, m.opts.Project)
			} else {
				err = m.session.Edit(m.editID, text)
			}
			if err != nil {
				m.inputErr = err.Error()
				return m, nil
			}
			m.closeInput()
			m.refresh()
			return m, nil
		case "esc":
			m.closeInput()
			return m, nil
		}
	}
	var cmd tea.Cmd
	m.ti, cmd = m.ti.Update(msg)
	return m, cmd
}

func (m *Model) closeInput() {
	m.adding, m.editing = false, false
	m.editID = model.ID{}
	m.inputErr = ""
	m.ti.SetValue("")
	m.ti.Blur()
	m.resize()
}

func (m Model) View() string {
	content := m.list.View()
	if m.adding || m.editing {
		title := "Add task"
		if m.editing {
			title = "Edit task"
		}
		if m.inputErr != "" {
			title += "  " + errorStyle.Render(m.inputErr)
		}
		content += "\n" + frameStyle.Render(title+"\n"+m.ti.View())
	}
	content += "\n" + m.statusLine()
	return frameStyle.Render(content)
}

func (m Model) statusLine() string {
	parts := []string{mutedStyle.Render("filter: " + m.filter.String())}
	switch {
	case !m.opts.Synced:
		parts = append(parts, mutedStyle.Render("local only"))
	case m.syncing:
		parts = append(parts, accentStyle.Render("syncing..."))
	case m.session.Enabled():
		parts = append(parts, successStyle.Render("● synced "+m.session.LastSync().Format("15:04:05")))
		if m.session.PushPending() {
			parts = append(parts, mutedStyle.Render("saving..."))
		}
	default:
		parts = append(parts, pendingStyle.Render("○ offline"))
	}
	if m.status != "" {
		parts = append(parts, m.status)
	}
	return strings.Join(parts, "  ")
}
