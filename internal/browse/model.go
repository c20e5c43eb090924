// Package browse provides a Bubble Tea browser over the windows of a built
// dataset.
package browse

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/verte-zerg/ecgprep/internal/dataset"
	"github.com/verte-zerg/ecgprep/internal/plot"
)

const (
	pageStep       = 10
	frameCacheSize = 64
	defaultWidth   = 80
	chromeHeight   = 12
	minPlotHeight  = 4
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F0F0F0")).
			Bold(true).
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#C89A3A"))
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
)

type frameKey struct {
	index  int
	width  int
	height int
}

// Options configures the browser.
type Options struct {
	// Fs is used to label the time axis; window sample indices are shown
	// when it is zero.
	Fs    float64
	Color bool
}

// Model implements the Bubble Tea dataset browser.
type Model struct {
	data *dataset.Dataset
	opts Options

	index  int
	width  int
	height int

	help   help.Model
	frames *lru.Cache[frameKey, string]
}

// NewModel constructs a browser over d.
func NewModel(d *dataset.Dataset, opts Options) (*Model, error) {
	if d == nil || d.Len() == 0 {
		return nil, dataset.ErrEmpty
	}
	frames, err := lru.New[frameKey, string](frameCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create frame cache: %w", err)
	}
	return &Model{
		data:   d,
		opts:   opts,
		width:  defaultWidth,
		help:   help.New(),
		frames: frames,
	}, nil
}

// Index returns the window currently shown.
func (m *Model) Index() int {
	return m.index
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, keys.Help):
			m.help.ShowAll = !m.help.ShowAll
		case key.Matches(msg, keys.Prev):
			m.move(-1)
		case key.Matches(msg, keys.Next):
			m.move(1)
		case key.Matches(msg, keys.PageUp):
			m.move(-pageStep)
		case key.Matches(msg, keys.PageDown):
			m.move(pageStep)
		case key.Matches(msg, keys.First):
			m.index = 0
		case key.Matches(msg, keys.Last):
			m.index = m.data.Len() - 1
		}
	}
	return m, nil
}

// View implements tea.Model.
func (m *Model) View() string {
	var b strings.Builder
	title := fmt.Sprintf("window %s/%s", humanize.Comma(int64(m.index+1)), humanize.Comma(int64(m.data.Len())))
	b.WriteString(titleStyle.Render(title))
	b.WriteString("\n")
	b.WriteString(mutedStyle.Render(m.caption()))
	b.WriteString("\n\n")
	frame, err := m.frame()
	if err != nil {
		b.WriteString(errorStyle.Render(err.Error()))
	} else {
		b.WriteString(frame)
	}
	b.WriteString("\n")
	b.WriteString(m.help.View(keys))
	return b.String()
}

func (m *Model) move(delta int) {
	next := m.index + delta
	if next < 0 {
		next = 0
	}
	if last := m.data.Len() - 1; next > last {
		next = last
	}
	m.index = next
}

func (m *Model) caption() string {
	positives := 0
	for _, v := range m.data.Label(m.index) {
		if v != 0 {
			positives++
		}
	}
	return fmt.Sprintf("%d samples, %d labelled", m.data.WindowLen, positives)
}

func (m *Model) plotHeight() int {
	if m.height == 0 {
		return 0
	}
	h := m.height - chromeHeight - lipgloss.Height(m.help.View(keys))
	if h < minPlotHeight {
		return minPlotHeight
	}
	return h
}

// frame renders the current window, reusing a cached rendering for the same
// index and terminal size.
func (m *Model) frame() (string, error) {
	k := frameKey{index: m.index, width: m.width, height: m.plotHeight()}
	if cached, ok := m.frames.Get(k); ok {
		return cached, nil
	}

	label := m.data.Label(m.index)
	indicator := make([]float64, len(label))
	for i, v := range label {
		indicator[i] = float64(v)
	}
	fs := m.opts.Fs
	if fs <= 0 {
		fs = 1
	}
	fig := plot.Figure{
		Label:     "input",
		Signal:    m.data.Input(m.index),
		Fs:        fs,
		Indicator: indicator,
	}

	var buf bytes.Buffer
	opts := plot.Options{Width: plot.PlotWidthFor(m.width), Height: k.height, ForceColor: m.opts.Color}
	if err := plot.Terminal(&buf, fig, opts); err != nil {
		return "", fmt.Errorf("failed to render window %d: %w", m.index, err)
	}
	out := strings.TrimRight(buf.String(), "\n")
	m.frames.Add(k, out)
	return out, nil
}
