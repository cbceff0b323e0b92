package cli

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/depscout/depscout/pkg/hosting/github"
)

// List styles
var (
	listDimStyle = lipgloss.NewStyle().Foreground(colorDim)
)

// RepoPickModel is the bubbletea model for interactive repository
// selection before a scan. Repositories are multi-selectable; an empty
// selection on confirm means scan everything.
type RepoPickModel struct {
	Repos     []github.Repo
	Picked    map[int]bool
	Cursor    int
	Height    int
	Offset    int
	Confirmed bool
}

// NewRepoPickModel creates a new repository picker with nothing selected.
func NewRepoPickModel(repos []github.Repo) RepoPickModel {
	return RepoPickModel{
		Repos:  repos,
		Picked: make(map[int]bool),
		Height: 15,
	}
}

// Selection returns the confirmed repositories. An empty pick set means
// the whole list.
func (m RepoPickModel) Selection() []github.Repo {
	if !m.Confirmed {
		return nil
	}
	if len(m.Picked) == 0 {
		return m.Repos
	}
	var picked []github.Repo
	for i, r := range m.Repos {
		if m.Picked[i] {
			picked = append(picked, r)
		}
	}
	return picked
}

func (m RepoPickModel) Init() tea.Cmd {
	return nil
}

func (m RepoPickModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			if m.Cursor > 0 {
				m.Cursor--
				if m.Cursor < m.Offset {
					m.Offset = m.Cursor
				}
			}
		case "down", "j":
			if m.Cursor < len(m.Repos)-1 {
				m.Cursor++
				if m.Cursor >= m.Offset+m.Height {
					m.Offset = m.Cursor - m.Height + 1
				}
			}
		case " ":
			if m.Picked[m.Cursor] {
				delete(m.Picked, m.Cursor)
			} else {
				m.Picked[m.Cursor] = true
			}
		case "a":
			if len(m.Picked) == len(m.Repos) {
				m.Picked = make(map[int]bool)
			} else {
				for i := range m.Repos {
					m.Picked[i] = true
				}
			}
		case "enter":
			m.Confirmed = true
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.Height = msg.Height - 6
		if m.Height < 5 {
			m.Height = 5
		}
	}
	return m, nil
}

func (m RepoPickModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Select Repositories"))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  space toggle  a all  ⏎ scan  q quit"))
	b.WriteString("\n\n")

	end := m.Offset + m.Height
	if end > len(m.Repos) {
		end = len(m.Repos)
	}

	rows := [][]string{}
	for i := m.Offset; i < end; i++ {
		r := m.Repos[i]

		cursor := "  "
		if i == m.Cursor {
			cursor = "▸ "
		}
		mark := " "
		if m.Picked[i] {
			mark = "●"
		}
		visibility := "public"
		if r.Private {
			visibility = "private"
		}
		branch := r.DefaultBranch
		if branch == "" {
			branch = "—"
		}

		rows = append(rows, []string{cursor, mark, r.FullName, visibility, branch})
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("", "", "Repository", "Visibility", "Branch").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}
			actualIdx := m.Offset + row
			if actualIdx >= len(m.Repos) {
				return lipgloss.NewStyle()
			}

			base := lipgloss.NewStyle()
			if col >= 3 {
				base = base.Foreground(colorDim)
			}
			if actualIdx == m.Cursor {
				return base.Foreground(colorCyan).Bold(true)
			}
			if m.Picked[actualIdx] {
				return base.Foreground(colorGreen)
			}
			return base
		})

	b.WriteString(t.Render())
	b.WriteString("\n\n")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d]  %d selected", m.Cursor+1, len(m.Repos), len(m.Picked))))

	return b.String()
}
