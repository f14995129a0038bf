package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/wippyai/stable-abi/check"
	"github.com/wippyai/stable-abi/layout"
	"github.com/wippyai/stable-abi/wire"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

type browseState int

const (
	stateTypeList browseState = iota
	stateTypeDetail
)

type interactiveModel struct {
	err          error
	lib          *wire.Manifest
	host         *wire.Manifest
	manifestFile string
	againstFile  string
	names        []string
	byName       map[string]*layout.TypeLayout
	hostByName   map[string]*layout.TypeLayout
	viewport     viewport.Model
	selected     int
	state        browseState
	ready        bool
}

func newInteractiveModel(manifestFile, againstFile string) *interactiveModel {
	return &interactiveModel{
		manifestFile: manifestFile,
		againstFile:  againstFile,
		state:        stateTypeList,
	}
}

type loadedMsg struct {
	err  error
	lib  *wire.Manifest
	host *wire.Manifest
}

func (m *interactiveModel) Init() tea.Cmd {
	return m.loadManifests
}

func (m *interactiveModel) loadManifests() tea.Msg {
	lib, err := loadManifest(m.manifestFile)
	if err != nil {
		return loadedMsg{err: err}
	}
	var host *wire.Manifest
	if m.againstFile != "" {
		if host, err = loadManifest(m.againstFile); err != nil {
			return loadedMsg{err: err}
		}
	}
	return loadedMsg{lib: lib, host: host}
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit

		case "up", "k":
			if m.state == stateTypeList && m.selected > 0 {
				m.selected--
			}

		case "down", "j":
			if m.state == stateTypeList && m.selected < len(m.names)-1 {
				m.selected++
			}

		case "enter":
			if m.state == stateTypeList && len(m.names) > 0 {
				m.viewport.SetContent(m.detailContent(m.names[m.selected]))
				m.viewport.GotoTop()
				m.state = stateTypeDetail
			}

		case "esc":
			if m.state == stateTypeDetail {
				m.state = stateTypeList
			}
		}

	case tea.WindowSizeMsg:
		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-4)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height - 4
		}

	case loadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.lib = msg.lib
		m.host = msg.host
		m.byName = make(map[string]*layout.TypeLayout, len(msg.lib.Layouts))
		for _, l := range msg.lib.Layouts {
			m.byName[l.Name] = l
			m.names = append(m.names, l.Name)
		}
		sort.Strings(m.names)
		m.hostByName = make(map[string]*layout.TypeLayout)
		if msg.host != nil {
			for _, l := range msg.host.Layouts {
				m.hostByName[l.Name] = l
			}
		}
	}

	if m.state == stateTypeDetail {
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m *interactiveModel) detailContent(name string) string {
	l := m.byName[name]
	var b strings.Builder

	b.WriteString(typeNameStyle.Render(l.Name))
	b.WriteString("  ")
	b.WriteString(dimStyle.Render(describeLayout(l)))
	b.WriteString("\n\n")

	switch l.Kind {
	case layout.KindStruct:
		for _, f := range l.Fields {
			fmt.Fprintf(&b, "  %-20s %-16s offset %d\n", f.Name, f.Type.Name, f.Offset)
		}
	case layout.KindEnum:
		fmt.Fprintf(&b, "  discriminant: %d bytes, payload at %d, cap %d bytes align %d\n\n",
			l.DiscSize, l.PayloadOffset, l.PayloadSize, l.PayloadAlign)
		for _, v := range l.Variants {
			fmt.Fprintf(&b, "  [%d] %s (%d payload bytes)\n", v.Discriminant, v.Name, v.Size)
			for _, f := range v.Fields {
				fmt.Fprintf(&b, "        %-18s %-16s offset %d\n", f.Name, f.Type.Name, f.Offset)
			}
		}
	case layout.KindPointer:
		fmt.Fprintf(&b, "  -> %s\n", l.Elem().Name)
	}

	fmt.Fprintf(&b, "\n  fingerprint %s\n", dimStyle.Render(l.Fingerprint()))

	if expected, ok := m.hostByName[name]; ok {
		b.WriteString("\n")
		if err := check.Check(expected, l); err != nil {
			b.WriteString(failStyle.Render("INCOMPATIBLE with host declaration"))
			b.WriteString("\n\n")
			b.WriteString(err.Error())
			b.WriteString("\n")
		} else {
			b.WriteString(okStyle.Render("compatible with host declaration"))
			b.WriteString("\n")
		}
	}

	return b.String()
}

func (m *interactiveModel) View() string {
	if m.err != nil {
		return failStyle.Render(fmt.Sprintf("Error: %v\n\nPress q to quit.", m.err))
	}

	if m.lib == nil {
		return "Loading manifest..."
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("ABI Check"))
	b.WriteString(" ")
	b.WriteString(fmt.Sprintf("%s %s", m.lib.ModuleName, m.lib.Version))
	b.WriteString("\n\n")

	switch m.state {
	case stateTypeList:
		for i, name := range m.names {
			line := name + "  " + dimStyle.Render(describeLayout(m.byName[name]))
			if i == m.selected {
				b.WriteString(selectedStyle.Render("> " + name))
				b.WriteString("  " + dimStyle.Render(describeLayout(m.byName[name])))
			} else {
				b.WriteString("  " + line)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("↑/↓ select • enter inspect • q quit"))

	case stateTypeDetail:
		if m.ready {
			b.WriteString(m.viewport.View())
		} else {
			b.WriteString(m.detailContent(m.names[m.selected]))
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("↑/↓ scroll • esc back • q quit"))
	}

	return b.String()
}

func runInteractive(manifestFile, againstFile string) error {
	p := tea.NewProgram(newInteractiveModel(manifestFile, againstFile), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
