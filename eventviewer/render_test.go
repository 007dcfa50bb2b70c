package main

import (
	"fmt"
	"strings"
	"testing"

	viewer "github.com/legend-exp/leds_go/pkg"
)

type staticHandle struct {
	channel string
	values  []float64
	period  float64
}

func (h *staticHandle) Channel() string                     { return h.channel }
func (h *staticHandle) ConfigID() string                    { return "cfg" }
func (h *staticHandle) FindEntry(string, int) error         { return nil }
func (h *staticHandle) Entry() (string, int)                { return "", 0 }
func (h *staticHandle) Line(viewer.LineParameter) []float64 { return h.values }
func (h *staticHandle) TimeAxis() []float64 {
	period := h.period
	if period == 0 {
		period = 16
	}
	t := make([]float64, len(h.values))
	for i := range t {
		t[i] = float64(i) * period
	}
	return t
}

func rampHandles(snap *viewer.EventSnapshot) map[string]viewer.BrowserHandle {
	handles := make(map[string]viewer.BrowserHandle)
	for i, ch := range snap.Processable {
		values := make([]float64, 64)
		for j := range values {
			values[j] = float64(j * (i + 1) * 10)
		}
		handles[ch.ID()] = &staticHandle{channel: ch.ID(), values: values}
	}
	return handles
}

func TestRenderHeatmap(t *testing.T) {
	snap := testSnapshot(map[string]float64{"V01001": 1460.8, "V01002": 5, "V02001": 0})
	out := renderHeatmap(snap, 25)
	if !containsAll(out, []string{"S01", "S02", "P01", "P02", "1461", "5", "·"}) {
		t.Fatalf("heatmap missing expected cells:\n%s", out)
	}
	if lines := strings.Split(out, "\n"); len(lines) != 3 {
		t.Fatalf("expected header plus two positions, got %d lines", len(lines))
	}
}

func TestRenderEnergyTable(t *testing.T) {
	snap := testSnapshot(map[string]float64{"V01001": 1460.8})
	out := renderEnergyTable(snap, 25)
	if !containsAll(out, []string{"V01001", "ch1080101", "1460.8"}) {
		t.Fatalf("energy table missing channel row:\n%s", out)
	}
}

func TestRenderWaveformsCompressed(t *testing.T) {
	snap := testSnapshot(map[string]float64{"V01001": 100, "V01002": 50, "V02001": 30})
	view := waveformView{
		Category:  viewer.PlotCategory{Kind: viewer.CategoryAll},
		Line:      viewer.LineBaselineSubtracted,
		Threshold: 25,
		Width:     40,
		Height:    8,
	}
	out := renderWaveforms(snap, rampHandles(snap), view, newLegendState())
	if !containsAll(out, []string{"String:01", "String:02", "[all]", "time (ns)"}) {
		t.Fatalf("waveform view missing expected segments:\n%s", out)
	}
	if !hasBrailleDots(out) {
		t.Fatalf("expected braille plot in output:\n%s", out)
	}
}

func TestRenderWaveformsEmptyCategory(t *testing.T) {
	snap := testSnapshot(map[string]float64{"V01001": 1})
	view := waveformView{Category: viewer.PlotCategory{Kind: viewer.CategoryAboveThreshold}, Line: viewer.LineBaselineSubtracted, Threshold: 25, Width: 40, Height: 8}
	out := renderWaveforms(snap, nil, view, newLegendState())
	if !strings.Contains(out, "no channels") {
		t.Fatalf("expected empty category message, got %s", out)
	}
}

func TestRenderWaveformsExplodedCap(t *testing.T) {
	var channels []viewer.Channel
	energies := make(map[string]*float64)
	for i := 1; i <= 15; i++ {
		ch := viewer.Channel{Name: fmt.Sprintf("V%03d", i), DAQID: 1080000 + i, System: viewer.SystemGeds, String: 1 + i/6, Position: 1 + i%6, Usable: true, Processable: true}
		channels = append(channels, ch)
		e := 100.0 + float64(i)
		energies[ch.Name] = &e
	}
	chmap := viewer.NewChannelMap(channels)
	snap := &viewer.EventSnapshot{ChannelMap: chmap, Processable: chmap.Processable(), Energies: energies}

	view := waveformView{
		Category:  viewer.PlotCategory{Kind: viewer.CategoryAboveThreshold},
		Line:      viewer.LineBaselineSubtracted,
		Threshold: 25,
		Exploded:  true,
		Width:     120,
		Height:    12,
	}
	out := renderWaveforms(snap, rampHandles(snap), view, newLegendState())
	if panels := strings.Count(out, "╭"); panels != viewer.MaxExplodedChannels {
		t.Fatalf("expected %d panels, got %d", viewer.MaxExplodedChannels, panels)
	}
}

func TestTimeSpanFollowsFirstPlottedChannel(t *testing.T) {
	snap := testSnapshot(map[string]float64{"V01001": 100, "V01002": 50, "V02001": 30})
	groups := plotGroups(snap, viewer.PlotCategory{Kind: viewer.CategoryAll}, 25)
	values := make([]float64, 11)
	handles := map[string]viewer.BrowserHandle{
		"ch1080101": &staticHandle{channel: "ch1080101", values: values, period: 16},
		"ch1080102": &staticHandle{channel: "ch1080102", values: values, period: 8},
		"ch1080201": &staticHandle{channel: "ch1080201", values: values, period: 4},
	}
	for i := 0; i < 20; i++ {
		if span := timeSpan(groups, handles); span != 160 {
			t.Fatalf("expected the span of V01001 (160 ns), got %v", span)
		}
	}
	delete(handles, "ch1080101")
	if span := timeSpan(groups, handles); span != 80 {
		t.Fatalf("expected the span of V01002 (80 ns), got %v", span)
	}
}

func TestRenderHistogram(t *testing.T) {
	h := viewer.NewEnergyHistogram(100, 0, 100)
	for i := 0; i < 10; i++ {
		h.Fill(50)
	}
	h.Fill(-1)
	h.Fill(200)
	out := renderHistogram(h, 20, 4)
	if !containsAll(out, []string{"10 entries", "1 below", "1 above", "█"}) {
		t.Fatalf("histogram missing expected segments:\n%s", out)
	}
}

func TestPlotBraille(t *testing.T) {
	series := []Series{{Name: "A", Values: []float64{-100, 0, 100, 0, -100}}}
	rows := plotBraille(series, 20, 5, seriesRange(series, 200))
	if len(rows) != 5 {
		t.Fatalf("expected 5 rows, got %d", len(rows))
	}
	if !hasBrailleDots(strings.Join(rows, "")) {
		t.Fatalf("expected the series to set braille dots")
	}
	r := seriesRange([]Series{{Values: []float64{-500, 10}}}, 200)
	if r.min != -500 || r.max != 200 {
		t.Fatalf("unexpected range %+v", r)
	}
}

func hasBrailleDots(s string) bool {
	for _, r := range s {
		if r > 0x2800 && r <= 0x28ff {
			return true
		}
	}
	return false
}

func containsAll(haystack string, needles []string) bool {
	for _, needle := range needles {
		if !strings.Contains(haystack, needle) {
			return false
		}
	}
	return true
}
