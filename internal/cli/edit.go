package cli

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"golang.org/x/net/html"

	"github.com/fourbar/fourbar/pkg/dom"
	"github.com/fourbar/fourbar/pkg/layout"
	"github.com/fourbar/fourbar/pkg/pipeline"
	"github.com/fourbar/fourbar/pkg/widget"
)

// editCommand creates the edit command.
func (c *CLI) editCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "edit [layout.json]",
		Short: "Edit a layout file in the terminal",
		Long: `Edit a layout file in a terminal grid editor.

Keys:
  arrows/hjkl  move the cursor        tab    switch grid/palette
  r / R        add / remove row       c / C  add / remove column
  enter        pick up or drop        p      return widget to palette
  s            save                   q      quit`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runner, err := c.newRunner(true)
			if err != nil {
				return err
			}
			m, err := newEditModel(cmd.Context(), runner, args[0])
			if err != nil {
				return err
			}
			final, err := tea.NewProgram(m, tea.WithContext(cmd.Context())).Run()
			if err != nil {
				return err
			}
			if fm, ok := final.(editModel); ok && fm.dirty {
				printWarning("Quit with unsaved changes")
			}
			return nil
		},
	}
}

type editFocus int

const (
	focusGrid editFocus = iota
	focusPalette
)

var (
	cellStyle       = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(colorDim).Width(22).Padding(0, 1)
	cellCursorStyle = cellStyle.BorderForeground(colorCyan)
	heldStyle       = lipgloss.NewStyle().Bold(true).Foreground(colorYellow)
	paletteStyle    = lipgloss.NewStyle().Foreground(colorWhite)
	paletteCursor   = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
)

// editModel is the bubbletea model of the terminal editor. The engine runs
// in edit mode; moves go through its drag-and-drop collaborator.
type editModel struct {
	ctx    context.Context
	engine *layout.Engine
	path   string

	y, x    int // grid cursor
	palette int // palette cursor
	focus   editFocus
	held    *html.Node

	status string
	dirty  bool
}

// newEditModel reads the layout at path and builds an edit-mode engine whose
// save callback writes the file back with payloads restored.
func newEditModel(ctx context.Context, runner *pipeline.Runner, path string) (editModel, error) {
	l, err := layout.ReadFile(path)
	if err != nil {
		return editModel{}, err
	}

	var records []widget.Template
	for _, d := range l.Widgets {
		if d.Data != nil {
			records = append(records, d.Template())
		}
	}
	records = append(records, l.Available...)

	save := func(_ context.Context, ds []layout.Descriptor) error {
		out := layout.Layout{
			CommunityID: l.CommunityID,
			Background:  l.Background,
			Version:     l.Version,
			UpdatedAt:   l.UpdatedAt,
			Widgets:     layout.Hydrate(ds, records),
			Available:   layout.Unplaced(ds, records),
		}
		return layout.WriteFile(out, path)
	}

	engine, warnings, err := runner.Build(ctx, &l, pipeline.Options{
		CommunityID:  l.CommunityID,
		Template:     true,
		SaveCallback: save,
	})
	if err != nil {
		return editModel{}, err
	}

	m := editModel{ctx: ctx, engine: engine, path: path}
	if len(warnings) > 0 {
		m.status = fmt.Sprintf("%d widget(s) skipped", len(warnings))
	}
	return m, nil
}

func (m editModel) Init() tea.Cmd {
	return nil
}

func (m editModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	m.status = ""

	switch key.String() {
	case "q", "ctrl+c", "esc":
		return m, tea.Quit
	case "tab":
		if m.focus == focusGrid {
			m.focus = focusPalette
		} else {
			m.focus = focusGrid
		}
	case "up", "k":
		m.move(-1, 0)
	case "down", "j":
		m.move(1, 0)
	case "left", "h":
		m.move(0, -1)
	case "right", "l":
		m.move(0, 1)
	case "r":
		m.engine.AddRow()
		m.y = len(m.engine.Rows()) - 1
		m.x = 0
		m.dirty = true
	case "R":
		m.engine.RemoveRow()
		m.clamp()
		m.dirty = true
	case "c":
		if row := m.engine.Row(m.y); row != nil {
			m.engine.AddColumn(row)
			m.x = len(m.engine.Columns(row)) - 1
			m.dirty = true
		}
	case "C":
		if row := m.engine.Row(m.y); row != nil {
			m.engine.RemoveColumn(row)
			m.clamp()
			m.dirty = true
		}
	case "enter", " ":
		m.pickOrDrop()
	case "p":
		m.returnToPalette()
	case "s":
		if err := m.engine.Save(m.ctx); err != nil {
			m.status = "save failed: " + err.Error()
		} else {
			m.status = "saved " + m.path
			m.dirty = false
		}
	}
	return m, nil
}

func (m *editModel) move(dy, dx int) {
	if m.focus == focusPalette {
		m.palette += dy + dx
		m.clamp()
		return
	}
	m.y += dy
	m.x += dx
	m.clamp()
}

// clamp keeps both cursors inside the current grid and palette.
func (m *editModel) clamp() {
	rows := len(m.engine.Rows())
	m.y = min(max(m.y, 0), max(rows-1, 0))
	cols := len(m.engine.Columns(m.engine.Row(m.y)))
	m.x = min(max(m.x, 0), max(cols-1, 0))
	m.palette = min(max(m.palette, 0), max(len(m.engine.Available())-1, 0))
}

// pickOrDrop picks up the palette entry or the top widget of the cell under
// the cursor, or drops the held widget at the end of the cell.
func (m *editModel) pickOrDrop() {
	if m.focus == focusPalette {
		avail := m.engine.Available()
		if len(avail) == 0 {
			m.status = "palette is empty"
			return
		}
		m.held = avail[m.palette]
		m.focus = focusGrid
		m.status = "holding " + layout.KeyOf(m.held).String()
		return
	}

	col := m.engine.Column(m.y, m.x)
	if col == nil {
		m.status = "no column here: add one with c"
		return
	}
	if m.held == nil {
		ws := m.engine.Widgets(col)
		if len(ws) == 0 {
			m.status = "cell is empty"
			return
		}
		m.held = ws[len(ws)-1]
		m.status = "holding " + layout.KeyOf(m.held).String()
		return
	}

	if err := m.engine.Drake().Move(m.held, col, nil); err != nil {
		m.status = "drop failed: " + err.Error()
		return
	}
	m.held = nil
	m.dirty = true
	m.clamp()
}

func (m *editModel) returnToPalette() {
	target := m.held
	if target == nil {
		ws := m.engine.Widgets(m.engine.Column(m.y, m.x))
		if len(ws) == 0 {
			m.status = "cell is empty"
			return
		}
		target = ws[len(ws)-1]
	}
	if m.engine.ReturnToPalette(layout.KeyOf(target)) {
		m.dirty = true
	}
	m.held = nil
	m.clamp()
}

func (m editModel) View() string {
	var b strings.Builder

	title := "Editing " + m.path
	if m.dirty {
		title += " *"
	}
	b.WriteString(StyleTitle.Render(title))
	b.WriteString("\n")
	b.WriteString(StyleDim.Render("hjkl move  tab palette  r/R row  c/C column  enter pick/drop  p return  s save  q quit"))
	b.WriteString("\n\n")

	rows := m.engine.Rows()
	if len(rows) == 0 {
		b.WriteString(StyleDim.Render("(empty grid: press r to add a row)"))
		b.WriteString("\n")
	}
	for y, row := range rows {
		var cells []string
		for x, col := range m.engine.Columns(row) {
			style := cellStyle
			if m.focus == focusGrid && y == m.y && x == m.x {
				style = cellCursorStyle
			}
			cells = append(cells, style.Render(m.cellText(col)))
		}
		if len(cells) == 0 {
			cells = append(cells, StyleDim.Render(fmt.Sprintf("row %d: no columns", y)))
		}
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, cells...))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(StyleTitle.Render("Palette"))
	b.WriteString("\n")
	avail := m.engine.Available()
	if len(avail) == 0 {
		b.WriteString(StyleDim.Render("  (empty)"))
		b.WriteString("\n")
	}
	for i, c := range avail {
		if m.focus == focusPalette && i == m.palette {
			b.WriteString(paletteCursor.Render("▸ " + m.label(c)))
		} else {
			b.WriteString(paletteStyle.Render("  " + m.label(c)))
		}
		b.WriteString("\n")
	}

	if m.status != "" {
		b.WriteString("\n")
		b.WriteString(StyleWarning.Render(m.status))
		b.WriteString("\n")
	}
	return b.String()
}

func (m editModel) cellText(col *html.Node) string {
	ws := m.engine.Widgets(col)
	if len(ws) == 0 {
		return StyleDim.Render("empty")
	}
	lines := make([]string, len(ws))
	for i, w := range ws {
		lines[i] = m.label(w)
	}
	return strings.Join(lines, "\n")
}

func (m editModel) label(c *html.Node) string {
	s := layout.KeyOf(c).String()
	if text := strings.Join(strings.Fields(dom.InnerText(c)), " "); text != "" {
		s += " " + StyleDim.Render(truncate(text, labelText))
	}
	if c == m.held {
		return heldStyle.Render(s + " (held)")
	}
	return s
}

// labelText caps the payload text shown next to a widget key.
const labelText = 24

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
