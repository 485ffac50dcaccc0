package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/quill-lang/quill/quill"
)

var (
	accentColor = lipgloss.Color("#3B82F6")
	errorColor  = lipgloss.Color("#EF4444")
	mutedColor  = lipgloss.Color("#6B7280")
	eventColor  = lipgloss.Color("#10B981")

	titleStyle = lipgloss.NewStyle().
			Foreground(accentColor).
			Bold(true).
			Padding(0, 1)

	kindStyle = lipgloss.NewStyle().
			Foreground(eventColor).
			Width(16)

	errKindStyle = lipgloss.NewStyle().
			Foreground(errorColor).
			Width(16)

	metaStyle = lipgloss.NewStyle().
			Foreground(mutedColor)

	selectedStyle = lipgloss.NewStyle().
			Foreground(accentColor).
			Bold(true)
)

type inspectModel struct {
	ctx      *quill.Context
	filter   textinput.Model
	events   []quill.Event
	cursor   int
	height   int
	quitting bool
}

func newInspectModel(ctx *quill.Context) inspectModel {
	ti := textinput.New()
	ti.Placeholder = "filter by kind..."
	ti.Prompt = "/ "
	ti.CharLimit = 40
	ti.Width = 30
	return inspectModel{
		ctx:    ctx,
		filter: ti,
		events: ctx.GetEvents(0, 0),
		height: 24,
	}
}

func (m inspectModel) Init() tea.Cmd {
	return nil
}

func (m inspectModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		if m.filter.Focused() {
			switch msg.String() {
			case "enter", "esc":
				m.filter.Blur()
				m.events = m.filteredEvents()
				m.cursor = 0
				return m, nil
			default:
				var cmd tea.Cmd
				m.filter, cmd = m.filter.Update(msg)
				return m, cmd
			}
		}
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.events)-1 {
				m.cursor++
			}
		case "/":
			m.filter.Focus()
			return m, textinput.Blink
		}
	}
	return m, nil
}

func (m inspectModel) filteredEvents() []quill.Event {
	query := strings.TrimSpace(strings.ToLower(m.filter.Value()))
	all := m.ctx.GetEvents(0, 0)
	if query == "" {
		return all
	}
	matched := make([]quill.Event, 0, len(all))
	for _, ev := range all {
		if strings.Contains(ev.Kind.String(), query) {
			matched = append(matched, ev)
		}
	}
	return matched
}

func (m inspectModel) View() string {
	if m.quitting {
		return ""
	}
	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("quill trace — %s — %d events", m.ctx.Status(), len(m.events))))
	b.WriteString("\n")
	b.WriteString(m.filter.View())
	b.WriteString("\n\n")

	visible := m.height - 6
	if visible < 1 {
		visible = 1
	}
	start := 0
	if m.cursor >= visible {
		start = m.cursor - visible + 1
	}
	for i := start; i < len(m.events) && i < start+visible; i++ {
		ev := m.events[i]
		style := kindStyle
		if ev.Kind == quill.EventError || ev.Kind == quill.EventStackOverflow {
			style = errKindStyle
		}
		line := fmt.Sprintf("%s %s %s",
			style.Render(ev.Kind.String()),
			renderEventData(ev.Data),
			metaStyle.Render(ev.Time.Format("15:04:05.000")),
		)
		if i == m.cursor {
			line = selectedStyle.Render("> ") + line
		} else {
			line = "  " + line
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(metaStyle.Render("↑/↓ move · / filter · q quit"))
	return b.String()
}

func renderEventData(data any) string {
	switch v := data.(type) {
	case nil:
		return ""
	case *quill.Error:
		return v.Error()
	case quill.Value:
		return v.String()
	case map[string]quill.Value:
		keys := make([]string, 0, len(v))
		for key := range v {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, key := range keys {
			parts = append(parts, fmt.Sprintf("%s=%s", key, v[key].String()))
		}
		return strings.Join(parts, " ")
	default:
		return fmt.Sprintf("%v", v)
	}
}
