// Package tui provides the BubbleTea-based live view of JACK notifications.
package tui

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"gopkg.in/yaml.v3"

	"github.com/jmylchreest/jacknotify/internal/history"
	"github.com/jmylchreest/jacknotify/internal/notify"
)

// DefaultMaxItems bounds the number of records kept in the list.
const DefaultMaxItems = 1000

// Mode represents the current UI mode.
type Mode int

const (
	ModeList Mode = iota
	ModeDetail
	ModeHelp
)

// Model is the main TUI model.
type Model struct {
	client   string
	records  <-chan []history.Record
	maxItems int

	mode Mode

	// Components
	list     list.Model
	viewport viewport.Model

	// State, newest first
	items    []history.Record
	selected *history.Record
	counts   map[notify.Kind]int
	paused   bool
	pending  []history.Record
	closed   bool
	width    int
	height   int
	ready    bool

	keys KeyMap

	statusMsg string
	statusErr bool
}

// recordItem wraps a record for the list component.
type recordItem struct {
	record history.Record
}

func (i recordItem) Title() string {
	return i.record.Text
}

func (i recordItem) Description() string {
	return fmt.Sprintf("[%s] %s", i.record.Kind, i.record.RelativeTime())
}

func (i recordItem) FilterValue() string {
	return i.record.Kind.String() + " " + i.record.Text
}

// recordDelegate renders severe kinds in red.
type recordDelegate struct {
	list.DefaultDelegate
}

func newRecordDelegate() recordDelegate {
	return recordDelegate{DefaultDelegate: list.NewDefaultDelegate()}
}

// Render renders a list item, highlighting xruns and shutdowns.
func (d recordDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	ri, ok := item.(recordItem)
	if !ok {
		d.DefaultDelegate.Render(w, m, index, item)
		return
	}

	titleStyle := d.Styles.NormalTitle
	descStyle := d.Styles.NormalDesc
	if index == m.Index() {
		titleStyle = d.Styles.SelectedTitle
		descStyle = d.Styles.SelectedDesc
	}
	if severe(ri.record.Kind) {
		titleStyle = titleStyle.Foreground(lipgloss.Color("9"))
	}

	itemWidth := m.Width() - d.Styles.NormalTitle.GetHorizontalPadding()
	title := truncate(ri.Title(), itemWidth)
	desc := truncate(ri.Description(), itemWidth)

	fmt.Fprint(w, titleStyle.Render(title))
	fmt.Fprint(w, "\n")
	fmt.Fprint(w, descStyle.Render(desc))
}

func severe(k notify.Kind) bool {
	return k == notify.KindXRun || k == notify.KindShutdown
}

func truncate(s string, width int) string {
	if width > 1 && len(s) > width {
		return s[:width-1] + "…"
	}
	return s
}

// New creates a TUI model fed by records. initial is shown oldest first.
func New(client string, records <-chan []history.Record, initial []history.Record) Model {
	l := list.New(nil, newRecordDelegate(), 0, 0)
	l.Title = "JACK notifications"
	l.SetShowStatusBar(true)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(true)
	l.DisableQuitKeybindings()

	m := Model{
		client:   client,
		records:  records,
		maxItems: DefaultMaxItems,
		mode:     ModeList,
		list:     l,
		counts:   history.CountByKind(initial),
		keys:     DefaultKeyMap(),
	}
	m.insert(initial)
	return m
}

type recordsMsg []history.Record

type streamClosedMsg struct{}

type statusMsg struct {
	text  string
	isErr bool
}

type clearStatusMsg struct{}

type copyResultMsg struct {
	err error
}

// Init starts listening for records.
func (m Model) Init() tea.Cmd {
	return m.waitForRecords
}

// waitForRecords blocks until the watcher delivers the next batch.
func (m Model) waitForRecords() tea.Msg {
	if m.records == nil {
		return nil
	}
	rs, ok := <-m.records
	if !ok {
		return streamClosedMsg{}
	}
	return recordsMsg(rs)
}

// add counts rs and shows them, or holds them back while paused.
func (m *Model) add(rs []history.Record) {
	for _, r := range rs {
		m.counts[r.Kind]++
	}
	if m.paused {
		m.pending = append(m.pending, rs...)
		return
	}
	m.insert(rs)
}

// insert prepends rs (oldest first) so the newest record is at the top.
func (m *Model) insert(rs []history.Record) {
	if len(rs) == 0 {
		return
	}
	fresh := make([]history.Record, 0, len(rs)+len(m.items))
	for i := len(rs) - 1; i >= 0; i-- {
		fresh = append(fresh, rs[i])
	}
	fresh = append(fresh, m.items...)
	if m.maxItems > 0 && len(fresh) > m.maxItems {
		fresh = fresh[:m.maxItems]
	}
	m.items = fresh
	m.list.SetItems(m.buildListItems())
}

func (m Model) buildListItems() []list.Item {
	items := make([]list.Item, len(m.items))
	for i, r := range m.items {
		items[i] = recordItem{record: r}
	}
	return items
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.list.SetSize(msg.Width, msg.Height-3)
		m.viewport = viewport.New(msg.Width, msg.Height-4)
		m.viewport.YPosition = 2
		return m, nil

	case recordsMsg:
		m.add(msg)
		return m, m.waitForRecords

	case streamClosedMsg:
		m.closed = true
		return m, setStatus("JACK client disconnected", true)

	case statusMsg:
		m.statusMsg = msg.text
		m.statusErr = msg.isErr
		return m, tea.Tick(3*time.Second, func(time.Time) tea.Msg {
			return clearStatusMsg{}
		})

	case clearStatusMsg:
		m.statusMsg = ""
		m.statusErr = false
		return m, nil

	case copyResultMsg:
		if msg.err != nil {
			return m, setStatus("Copy failed: "+msg.err.Error(), true)
		}
		return m, setStatus("Copied to clipboard", false)
	}

	var cmd tea.Cmd
	switch m.mode {
	case ModeList:
		m.list, cmd = m.list.Update(msg)
	case ModeDetail:
		m.viewport, cmd = m.viewport.Update(msg)
	}
	return m, cmd
}

func setStatus(text string, isErr bool) tea.Cmd {
	return func() tea.Msg {
		return statusMsg{text: text, isErr: isErr}
	}
}

// handleKey handles key presses.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Typing into the list filter takes precedence over shortcuts.
	if m.mode == ModeList && m.list.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.list, cmd = m.list.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		if m.mode == ModeHelp {
			m.mode = ModeList
		} else {
			m.mode = ModeHelp
		}
		return m, nil
	}

	switch m.mode {
	case ModeList:
		return m.handleListKey(msg)
	case ModeDetail:
		return m.handleDetailKey(msg)
	case ModeHelp:
		if key.Matches(msg, m.keys.Back) {
			m.mode = ModeList
		}
	}
	return m, nil
}

func (m Model) handleListKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Enter):
		if item, ok := m.list.SelectedItem().(recordItem); ok {
			r := item.record
			m.selected = &r
			m.mode = ModeDetail
			m.viewport.SetContent(renderDetail(r))
			m.viewport.GotoTop()
		}
		return m, nil

	case key.Matches(msg, m.keys.Copy):
		if item, ok := m.list.SelectedItem().(recordItem); ok {
			return m, copyToClipboard(item.record.Text)
		}
		return m, nil

	case key.Matches(msg, m.keys.CopyJSON):
		data, err := json.MarshalIndent(m.visible(), "", "  ")
		if err != nil {
			return m, setStatus("Failed to marshal JSON: "+err.Error(), true)
		}
		return m, copyToClipboard(string(data))

	case key.Matches(msg, m.keys.CopyYAML):
		data, err := yaml.Marshal(m.visible())
		if err != nil {
			return m, setStatus("Failed to marshal YAML: "+err.Error(), true)
		}
		return m, copyToClipboard(string(data))

	case key.Matches(msg, m.keys.Pause):
		m.paused = !m.paused
		if m.paused {
			return m, setStatus("Paused", false)
		}
		pending := m.pending
		m.pending = nil
		m.insert(pending)
		return m, setStatus(fmt.Sprintf("Resumed, %d new", len(pending)), false)

	case key.Matches(msg, m.keys.Clear):
		m.items = nil
		m.pending = nil
		m.counts = make(map[notify.Kind]int)
		m.list.SetItems(nil)
		return m, setStatus("Cleared", false)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) handleDetailKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Back):
		m.mode = ModeList
		m.selected = nil
		return m, nil
	case key.Matches(msg, m.keys.Copy):
		if m.selected != nil {
			return m, copyToClipboard(m.selected.Text)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// visible returns the records currently shown by the list, newest first.
func (m Model) visible() []history.Record {
	items := m.list.VisibleItems()
	out := make([]history.Record, 0, len(items))
	for _, item := range items {
		if ri, ok := item.(recordItem); ok {
			out = append(out, ri.record)
		}
	}
	return out
}

func copyToClipboard(text string) tea.Cmd {
	return func() tea.Msg {
		return copyResultMsg{err: copyText(text)}
	}
}

// renderDetail renders the detail view for a record.
func renderDetail(r history.Record) string {
	headerStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("12"))
	labelStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("8"))

	var sb strings.Builder
	sb.WriteString(headerStyle.Render(r.Text) + "\n\n")
	sb.WriteString(labelStyle.Render("Kind: ") + r.Kind.String() + "\n")
	sb.WriteString(labelStyle.Render("Time: ") + r.Time().Format(time.RFC3339) + " (" + r.RelativeTime() + ")\n")
	if r.Client != "" {
		sb.WriteString(labelStyle.Render("Client: ") + r.Client + "\n")
	}
	sb.WriteString(labelStyle.Render("ID: ") + r.ID + "\n")

	if data, err := yaml.Marshal(r); err == nil {
		sb.WriteString("\n" + labelStyle.Render("Record:") + "\n")
		sb.Write(data)
	}
	return sb.String()
}

// summary renders per-kind counts in declaration order.
func (m Model) summary() string {
	var parts []string
	total := 0
	for _, k := range notify.AllKinds() {
		if n := m.counts[k]; n > 0 {
			parts = append(parts, fmt.Sprintf("%s %d", k, n))
			total += n
		}
	}
	if len(parts) == 0 {
		return "no events yet"
	}
	return fmt.Sprintf("%d events: %s", total, strings.Join(parts, "  "))
}

// View renders the TUI.
func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	switch m.mode {
	case ModeDetail:
		return m.viewDetail()
	case ModeHelp:
		return m.viewHelp()
	default:
		return m.viewList()
	}
}

func (m Model) viewList() string {
	headerStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	header := m.summary()
	if m.client != "" {
		header = m.client + " · " + header
	}
	if m.paused {
		header += fmt.Sprintf("  [paused, %d pending]", len(m.pending))
	}
	if m.closed {
		header += "  [disconnected]"
	}

	s := headerStyle.Render(header) + "\n" + m.list.View()
	if m.statusMsg != "" {
		statusStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("7"))
		if m.statusErr {
			statusStyle = statusStyle.Foreground(lipgloss.Color("9"))
		}
		s += "\n" + statusStyle.Render(m.statusMsg)
	} else {
		s += "\n" + m.buildKeybindBar(m.width, ModeList)
	}
	return s
}

func (m Model) viewDetail() string {
	header := lipgloss.NewStyle().Bold(true).Padding(0, 1).Render("Notification Detail")
	return header + "\n" + m.viewport.View() + "\n" + m.buildKeybindBar(m.width, ModeDetail)
}

func (m Model) viewHelp() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("12")).
		MarginBottom(1)
	sectionStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	keyStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("10"))

	sections := []string{"Navigation", "Actions", "General"}
	var sb strings.Builder
	sb.WriteString(titleStyle.Render("Keyboard Shortcuts") + "\n\n")
	for i, group := range m.keys.FullHelp() {
		sb.WriteString(sectionStyle.Render(sections[i]) + "\n")
		for _, b := range group {
			h := b.Help()
			sb.WriteString(keyStyle.Render(fmt.Sprintf("  %-12s", h.Key)) + " " + h.Desc + "\n")
		}
		sb.WriteString("\n")
	}
	sb.WriteString(sectionStyle.Render("Press ? or esc to return"))
	return sb.String()
}

// buildKeybindBar lists the most important bindings for mode that fit width.
func (m Model) buildKeybindBar(width int, mode Mode) string {
	style := lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	keyStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("10"))

	var binds []key.Binding
	switch mode {
	case ModeList:
		binds = []key.Binding{m.keys.Quit, m.keys.Enter, m.keys.Help, m.keys.Pause, m.keys.Copy, m.keys.Clear}
	case ModeDetail:
		binds = []key.Binding{m.keys.Quit, m.keys.Back, m.keys.Copy}
	}

	const separator = "  "
	result := ""
	for _, b := range binds {
		h := b.Help()
		item := keyStyle.Render(h.Key) + " " + h.Desc
		if result != "" {
			item = separator + item
		}
		if width > 0 && lipgloss.Width(result+item) > width {
			break
		}
		result += item
	}
	return style.Render(result)
}

// RunOptions configures the TUI.
type RunOptions struct {
	Client  string
	Records <-chan []history.Record
	Initial []history.Record
}

// Run starts the TUI and blocks until the user quits or ctx is done.
func Run(ctx context.Context, opts RunOptions) error {
	m := New(opts.Client, opts.Records, opts.Initial)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))

	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
