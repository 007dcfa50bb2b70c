package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	viewer "github.com/legend-exp/leds_go/pkg"
	"github.com/spf13/cobra"
)

func newViewCmd() *cobra.Command {
	var sel viewer.Selection
	cmd := &cobra.Command{
		Use:   "view",
		Short: "Browse events interactively",
		RunE: func(cmd *cobra.Command, _ []string) error {
			// the terminal belongs to the UI, logs go to a file
			logFile, err := os.OpenFile(configuration.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
			if err != nil {
				return fmt.Errorf("error opening log file: %w", err)
			}
			defer logFile.Close()
			logger = NewLogger(logFile, logFile)
			viewer.SetLogger(logger)

			app, err := openViewer(configuration)
			if err != nil {
				return err
			}
			defer app.Close()

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			if _, err := app.session.Select(ctx, sel); err != nil {
				return err
			}
			m := newModel(ctx, app.session)
			_, err = tea.NewProgram(m, tea.WithAltScreen()).Run()
			// the warm-up may still be reading tier files
			cancel()
			app.session.WaitWarm()
			return err
		},
	}
	selectionFlags(cmd, &sel)
	return cmd
}

// warmDoneMsg reports the end of the background browser construction.
type warmDoneMsg struct {
	err error
}

// playTickMsg drives playback. Ticks from an earlier play/pause cycle carry
// a stale generation and are dropped.
type playTickMsg struct {
	gen int
}

type model struct {
	ctx     context.Context
	session *viewer.Session
	config  viewer.Configuration

	width  int
	height int

	status string
	err    error

	playing       bool
	playGen       int
	isolating     bool
	warmErr       error
	showWaveforms bool
	showHistogram bool
	exploded      bool
	handles       map[string]viewer.BrowserHandle

	categories  []viewer.PlotCategory
	categoryIdx int
	lineIdx     int
	legend      *legendState

	jumping bool
	input   textinput.Model
}

func newModel(ctx context.Context, session *viewer.Session) model {
	ti := textinput.New()
	ti.Placeholder = "event index"
	ti.CharLimit = 12
	ti.Width = 14

	m := model{
		ctx:     ctx,
		session: session,
		config:  session.Config(),
		width:   terminalWidthBackup,
		height:  40,
		legend:  newLegendState(),
		input:   ti,
	}
	m.refreshCategories()
	return m
}

func (m model) Init() tea.Cmd {
	return waitWarm(m.session.StartWarm(m.ctx, m.session.Selection()))
}

func waitWarm(done <-chan error) tea.Cmd {
	return func() tea.Msg {
		return warmDoneMsg{err: <-done}
	}
}

func (m model) playTick() tea.Cmd {
	interval := time.Duration(m.config.PlayIntervalMs) * time.Millisecond
	gen := m.playGen
	return tea.Tick(interval, func(time.Time) tea.Msg {
		return playTickMsg{gen: gen}
	})
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case warmDoneMsg:
		m.warmErr = msg.err
		if msg.err != nil {
			m.status = "waveform browsers unavailable"
			return m, nil
		}
		m.status = "waveform browsers ready"
		return m, nil

	case playTickMsg:
		// the pause flag is polled once per step
		if !m.playing || msg.gen != m.playGen {
			return m, nil
		}
		snap, err := m.session.Step(m.ctx)
		if err != nil {
			m.playing = false
			m.setError(err)
			return m, nil
		}
		m.afterNavigation(snap)
		return m, m.playTick()

	case tea.KeyMsg:
		if m.jumping {
			return m.updateJump(msg)
		}
		return m.updateKey(msg)
	}
	return m, nil
}

func (m model) updateJump(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		m.jumping = false
		m.input.Blur()
		index, err := strconv.Atoi(strings.TrimSpace(m.input.Value()))
		m.input.SetValue("")
		if err != nil {
			m.setError(fmt.Errorf("invalid event index: %w", err))
			return m, nil
		}
		m.navigate(func(ctx context.Context) (*viewer.EventSnapshot, error) {
			return m.session.Jump(ctx, index)
		})
		return m, nil
	case tea.KeyEsc:
		m.jumping = false
		m.input.Blur()
		m.input.SetValue("")
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m model) updateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	isolating := m.isolating
	m.isolating = false
	switch key {
	case "ctrl+c", "q":
		return m, tea.Quit
	case "n":
		m.navigate(m.session.Next)
	case "p":
		m.navigate(m.session.Previous)
	case "g":
		m.jumping = true
		m.playing = false
		return m, m.input.Focus()
	case " ":
		m.playing = !m.playing
		if m.playing {
			m.playGen++
			m.status = "playing"
			return m, m.playTick()
		}
		m.status = "paused"
	case "w":
		if !m.session.Ready() {
			if m.warmErr != nil {
				m.setError(m.warmErr)
			} else {
				m.status = "waveform browsers are still loading"
			}
			return m, nil
		}
		m.showWaveforms = !m.showWaveforms
		m.refreshBrowsers()
	case "e":
		m.exploded = !m.exploded
	case "c":
		m.categoryIdx = (m.categoryIdx + 1) % len(m.categories)
		m.legend.Reset()
		m.legend.FirstPage()
	case "l":
		m.lineIdx = (m.lineIdx + 1) % len(viewer.LineParameters)
	case "h":
		m.showHistogram = !m.showHistogram
	case "i":
		m.isolating = true
		m.status = "isolate legend entry 1-9"
		return m, nil
	case "P", "R", "C":
		m.cycleSelector(key)
	case "1", "2", "3", "4", "5", "6", "7", "8", "9":
		n, _ := strconv.Atoi(key)
		labels := m.legendLabels()
		if label, ok := m.legend.Entry(labels, n); ok {
			if isolating {
				m.legend.Isolate(label, labels)
			} else {
				m.legend.Toggle(label)
			}
		}
	case "L":
		m.legend.NextPage(len(m.legendLabels()))
	}
	return m, nil
}

// navigate applies a selection change; on failure the event stays as it was.
func (m *model) navigate(step func(context.Context) (*viewer.EventSnapshot, error)) {
	snap, err := step(m.ctx)
	if err != nil {
		m.setError(err)
		return
	}
	m.afterNavigation(snap)
}

func (m *model) afterNavigation(snap *viewer.EventSnapshot) {
	m.err = nil
	m.status = snap.Title()
	m.refreshCategories()
	m.refreshBrowsers()
}

func (m *model) refreshBrowsers() {
	if !m.showWaveforms || !m.session.Ready() {
		return
	}
	handles, err := m.session.Browsers(m.ctx)
	if err != nil {
		m.handles = nil
		m.setError(err)
		return
	}
	m.handles = handles
}

func (m *model) refreshCategories() {
	snap := m.session.Snapshot()
	if snap == nil {
		m.categories = []viewer.PlotCategory{{Kind: viewer.CategoryAll}}
		m.categoryIdx = 0
		return
	}
	current := viewer.PlotCategory{}
	if m.categoryIdx < len(m.categories) {
		current = m.categories[m.categoryIdx]
	}
	m.categories = viewer.CategoryOptions(snap.ChannelMap)
	m.categoryIdx = 0
	for i, c := range m.categories {
		if c == current {
			m.categoryIdx = i
		}
	}
}

func (m *model) cycleSelector(key string) {
	paths := m.session.Locator().Paths()
	sel := m.session.Selection()
	var (
		options []string
		err     error
	)
	switch key {
	case "P":
		options, err = paths.ListPeriods()
	case "R":
		options, err = paths.ListRuns(sel.Period)
	case "C":
		options, err = paths.ListCycles(sel.Period, sel.Run)
	}
	if err != nil {
		m.setError(err)
		return
	}
	options = append([]string{viewer.Wildcard}, options...)

	next := func(current string) string {
		for i, o := range options {
			if o == current {
				return options[(i+1)%len(options)]
			}
		}
		return options[0]
	}
	switch key {
	case "P":
		sel.Period = next(sel.Period)
		sel.Run = viewer.Wildcard
		sel.Cycle = viewer.Wildcard
	case "R":
		sel.Run = next(sel.Run)
		sel.Cycle = viewer.Wildcard
	case "C":
		sel.Cycle = next(sel.Cycle)
	}
	sel.Index = 0
	m.navigate(func(ctx context.Context) (*viewer.EventSnapshot, error) {
		return m.session.Select(ctx, sel)
	})
}

func (m *model) setError(err error) {
	m.err = err
	var selErr *viewer.SelectionError
	if errors.As(err, &selErr) {
		m.status = "selection unchanged"
		return
	}
	m.status = "error"
	logger.Error(err.Error())
}

func (m model) category() viewer.PlotCategory {
	if m.categoryIdx < len(m.categories) {
		return m.categories[m.categoryIdx]
	}
	return viewer.PlotCategory{Kind: viewer.CategoryAll}
}

func (m model) legendLabels() []string {
	snap := m.session.Snapshot()
	if snap == nil {
		return nil
	}
	return groupLabels(plotGroups(snap, m.category(), m.config.EnergyThreshold))
}

func (m model) View() string {
	snap := m.session.Snapshot()
	if snap == nil {
		return "no event selected\n"
	}
	sel := m.session.Selection()

	header := titleStyle.Render(fmt.Sprintf("period %s  run %s  cycle %s  event %d", sel.Period, sel.Run, sel.Cycle, sel.Index))
	sections := []string{header, dimStyle.Render(snap.Title()), "", renderHeatmap(snap, m.config.EnergyThreshold)}

	if m.showWaveforms && m.handles != nil {
		view := waveformView{
			Category:  m.category(),
			Line:      viewer.LineParameters[m.lineIdx],
			Threshold: m.config.EnergyThreshold,
			Exploded:  m.exploded,
			Width:     m.width - 2,
			Height:    defaultPlotHeight,
		}
		sections = append(sections, "", renderWaveforms(snap, m.handles, view, m.legend))
	}
	if m.showHistogram {
		sections = append(sections, "", renderHistogram(m.session.Histogram(), m.width-2, 8))
	}
	if m.jumping {
		sections = append(sections, "", "jump to "+m.input.View())
	}

	sections = append(sections, "", m.statusLine(), dimStyle.Render(m.help()))
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m model) statusLine() string {
	waveforms := "waveforms loading"
	switch {
	case m.warmErr != nil:
		waveforms = "waveforms unavailable"
	case m.session.Ready():
		waveforms = "waveforms ready"
	}
	line := fmt.Sprintf("[%s] [%s] [%s] %s", waveforms, m.category(), viewer.LineParameters[m.lineIdx], m.status)
	if m.err != nil {
		return line + "\n" + errorStyle.Render(m.err.Error())
	}
	return line
}

func (m model) help() string {
	return "n/p next/prev  g jump  space play  w waveforms  e explode  c category  l line  1-9 legend  L legend page  i<n> isolate  P/R/C period/run/cycle  h histogram  q quit"
}
