package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	viewer "github.com/legend-exp/leds_go/pkg"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true)
	dimStyle    = lipgloss.NewStyle().Faint(true)
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("245"))
	panelStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240")).Padding(0, 1)
)

// energyScale maps energies above threshold onto a blue to red ramp.
var energyScale = []lipgloss.Color{"17", "19", "27", "33", "44", "48", "118", "226", "214", "202", "196"}

const (
	heatmapCellWidth = 7
	energyScaleMax   = 3000.0
)

// renderHeatmap draws one column per string and one row per position, each
// cell holding the energy of the detector.
func renderHeatmap(snap *viewer.EventSnapshot, threshold float64) string {
	strs := snap.ChannelMap.Strings()
	maxPosition := 0
	for _, s := range strs {
		for _, ch := range snap.ChannelMap.ByString(s) {
			if ch.Position > maxPosition {
				maxPosition = ch.Position
			}
		}
	}

	cell := lipgloss.NewStyle().Width(heatmapCellWidth).Align(lipgloss.Center)
	var b strings.Builder
	b.WriteString(cell.Render(""))
	for _, s := range strs {
		b.WriteString(headerStyle.Inherit(cell).Render(fmt.Sprintf("S%02d", s)))
	}
	b.WriteString("\n")

	for pos := 1; pos <= maxPosition; pos++ {
		b.WriteString(headerStyle.Inherit(cell).Render(fmt.Sprintf("P%02d", pos)))
		for _, s := range strs {
			ch, ok := snap.ChannelMap.ByPosition(s, pos)
			if !ok {
				b.WriteString(cell.Render(""))
				continue
			}
			b.WriteString(heatmapCell(cell, snap, ch, threshold))
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func heatmapCell(cell lipgloss.Style, snap *viewer.EventSnapshot, ch viewer.Channel, threshold float64) string {
	e, ok := snap.Energy(ch.Name)
	if !ok {
		return dimStyle.Inherit(cell).Render("·")
	}
	text := fmt.Sprintf("%.0f", e)
	if e <= threshold {
		return cell.Foreground(lipgloss.Color("240")).Render(text)
	}
	return cell.Background(energyColor(e)).Foreground(lipgloss.Color("0")).Render(text)
}

func energyColor(e float64) lipgloss.Color {
	i := int(e / energyScaleMax * float64(len(energyScale)-1))
	if i < 0 {
		i = 0
	}
	if i >= len(energyScale) {
		i = len(energyScale) - 1
	}
	return energyScale[i]
}

// renderEnergyTable lists every channel of the map with its energy.
func renderEnergyTable(snap *viewer.EventSnapshot, threshold float64) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%-10s %-10s %6s %8s %12s\n", "name", "channel", "string", "position", "energy (keV)")
	for _, ch := range snap.ChannelMap.Channels() {
		if ch.System != viewer.SystemGeds {
			continue
		}
		energy := "-"
		if e, ok := snap.Energy(ch.Name); ok {
			energy = fmt.Sprintf("%.1f", e)
			if e > threshold {
				energy += " *"
			}
		}
		fmt.Fprintf(&b, "%-10s %-10s %6d %8d %12s\n", ch.Name, ch.ID(), ch.String, ch.Position, energy)
	}
	return b.String()
}

// waveformView describes what the waveform panel draws.
type waveformView struct {
	Category  viewer.PlotCategory
	Line      viewer.LineParameter
	Threshold float64
	Exploded  bool
	Width     int
	Height    int
}

// renderWaveforms draws the selected line of every visible channel of the
// category. It only reads the handles.
func renderWaveforms(snap *viewer.EventSnapshot, handles map[string]viewer.BrowserHandle, v waveformView, legend *legendState) string {
	groups := plotGroups(snap, v.Category, v.Threshold)
	if len(groups) == 0 {
		return dimStyle.Render(fmt.Sprintf("no channels in category %s", v.Category))
	}
	header := titleStyle.Render(fmt.Sprintf("%s  %s  [%s]", snap.Title(), v.Line, v.Category))
	if !v.Exploded {
		series := groupSeries(groups, handles, v.Line, legend)
		r := seriesRange(series, 200)
		body := strings.Join(plotBraille(series, v.Width, v.Height, r), "\n")
		axis := dimStyle.Render(fmt.Sprintf("value (adc) %.0f .. %.0f, time (ns) 0 .. %.0f", r.min, r.max, timeSpan(groups, handles)))
		return lipgloss.JoinVertical(lipgloss.Left, header, body, axis, renderLegend(groups, legend))
	}

	if v.Category.Kind == viewer.CategoryAboveThreshold && len(groups) > viewer.MaxExplodedChannels {
		groups = groups[:viewer.MaxExplodedChannels]
	}
	const columns = 3
	panelWidth := v.Width/columns - 4
	panelHeight := v.Height / 3
	if panelHeight < 3 {
		panelHeight = 3
	}

	var all []Series
	for _, g := range groups {
		all = append(all, groupSeries([]plotGroup{g}, handles, v.Line, legend)...)
	}
	r := seriesRange(all, 200)

	var rows []string
	var row []string
	for _, g := range groups {
		series := groupSeries([]plotGroup{g}, handles, v.Line, legend)
		title := colorStyle(g.Color).Render(g.Label)
		if !legend.Visible(g.Label) {
			title = dimStyle.Render(g.Label)
		}
		body := strings.Join(plotBraille(series, panelWidth, panelHeight, r), "\n")
		row = append(row, panelStyle.Render(lipgloss.JoinVertical(lipgloss.Left, title, body)))
		if len(row) == columns {
			rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, row...))
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, row...))
	}
	axis := dimStyle.Render(fmt.Sprintf("value (adc) %.0f .. %.0f, time (ns) 0 .. %.0f", r.min, r.max, timeSpan(groups, handles)))
	return lipgloss.JoinVertical(lipgloss.Left, append(append([]string{header}, rows...), axis)...)
}

func groupSeries(groups []plotGroup, handles map[string]viewer.BrowserHandle, line viewer.LineParameter, legend *legendState) []Series {
	var series []Series
	for _, g := range groups {
		if !legend.Visible(g.Label) {
			continue
		}
		for _, ch := range g.Channels {
			handle, ok := handles[ch.ID()]
			if !ok {
				continue
			}
			values := handle.Line(line)
			if len(values) == 0 {
				continue
			}
			series = append(series, Series{Name: ch.Name, Values: values, Color: g.Color})
		}
	}
	return series
}

// timeSpan is the length of the time axis of the first plotted channel.
func timeSpan(groups []plotGroup, handles map[string]viewer.BrowserHandle) float64 {
	for _, g := range groups {
		for _, ch := range g.Channels {
			h, ok := handles[ch.ID()]
			if !ok {
				continue
			}
			if t := h.TimeAxis(); len(t) > 0 {
				return t[len(t)-1]
			}
		}
	}
	return 0
}

var histogramBlocks = []rune(" ▁▂▃▄▅▆▇█")

// renderHistogram draws the accumulated energy spectrum as vertical bars.
func renderHistogram(h *viewer.EnergyHistogram, width int, height int) string {
	if width < minPlotWidth {
		width = minPlotWidth
	}
	if height < 1 {
		height = 1
	}
	counts := h.Rebin(width)
	peak := 0
	for _, c := range counts {
		if c > peak {
			peak = c
		}
	}
	start, stop := h.Range()
	title := titleStyle.Render(fmt.Sprintf("energy spectrum: %d entries (%d below, %d above)", h.Total(), h.Underflow(), h.Overflow()))

	rows := make([]string, height)
	for y := 0; y < height; y++ {
		var b strings.Builder
		level := height - 1 - y
		for _, c := range counts {
			if peak == 0 {
				b.WriteRune(' ')
				continue
			}
			scaled := float64(c) / float64(peak) * float64(height*8)
			fill := int(scaled) - level*8
			switch {
			case fill >= 8:
				b.WriteRune(histogramBlocks[8])
			case fill <= 0:
				b.WriteRune(' ')
			default:
				b.WriteRune(histogramBlocks[fill])
			}
		}
		rows[y] = b.String()
	}
	axis := dimStyle.Render(fmt.Sprintf("%.0f keV%s%.0f keV", start, strings.Repeat(" ", max(1, width-16)), stop))
	return lipgloss.JoinVertical(lipgloss.Left, title, strings.Join(rows, "\n"), axis)
}

// joinWrapped joins the parts without letting a line exceed the terminal.
func joinWrapped(parts []string, sep string) string {
	width := terminalWidth()
	var lines []string
	line := ""
	for _, p := range parts {
		candidate := p
		if line != "" {
			candidate = line + sep + p
		}
		if line != "" && lipgloss.Width(candidate) > width {
			lines = append(lines, line)
			line = p
			continue
		}
		line = candidate
	}
	if line != "" {
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}
