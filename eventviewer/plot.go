package main

import (
	"math"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

const (
	minPlotWidth        = 10
	defaultPlotHeight   = 12
	terminalWidthBackup = 100
)

// palette holds one color per string, cycled for more than twelve strings.
var palette = []lipgloss.Color{
	"39", "208", "70", "196", "141", "94", "213", "245", "184", "44", "27", "166",
}

// Series is a named waveform drawn with the color of its legend group.
type Series struct {
	Name   string
	Values []float64
	Color  int
}

// plotRange is the y range drawn by a panel.
type plotRange struct {
	min float64
	max float64
}

// seriesRange is the smallest range holding every series and at least
// [-floor, floor].
func seriesRange(series []Series, floor float64) plotRange {
	r := plotRange{min: -floor, max: floor}
	for _, s := range series {
		for _, v := range s.Values {
			if math.IsNaN(v) {
				continue
			}
			r.min = math.Min(r.min, v)
			r.max = math.Max(r.max, v)
		}
	}
	if r.max-r.min < 1e-9 {
		r.min--
		r.max++
	}
	return r
}

// plotBraille draws the series on a width x height grid of braille cells
// with a shared y range. Each cell takes the color of the first series that
// sets a dot in it.
func plotBraille(series []Series, width int, height int, r plotRange) []string {
	if width < minPlotWidth {
		width = minPlotWidth
	}
	if height <= 0 {
		height = defaultPlotHeight
	}
	cells := make([][][]uint8, len(series))
	for si, s := range series {
		cells[si] = makeCells(height, width)
		values := resampleSeries(s.Values, width*2)
		prevX, prevY := -1, -1
		for x, v := range values {
			y := valueToRow(v, r.min, r.max, height*4)
			if prevX >= 0 {
				drawLine(prevX, prevY, x, y, func(dx, dy int) {
					setBrailleDot(cells[si], dx, dy)
				})
			} else {
				setBrailleDot(cells[si], x, y)
			}
			prevX, prevY = x, y
		}
	}

	rows := make([]string, height)
	for y := 0; y < height; y++ {
		var row strings.Builder
		for x := 0; x < width; x++ {
			mask, owner := composeCell(cells, x, y)
			ch := string(brailleFromMask(mask))
			if owner >= 0 {
				ch = colorStyle(series[owner].Color).Render(ch)
			}
			row.WriteString(ch)
		}
		rows[y] = row.String()
	}
	return rows
}

func colorStyle(color int) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(palette[color%len(palette)])
}

func terminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return terminalWidthBackup
	}
	return width
}

func makeCells(height, width int) [][]uint8 {
	cells := make([][]uint8, height)
	for y := 0; y < height; y++ {
		cells[y] = make([]uint8, width)
	}
	return cells
}

func composeCell(seriesCells [][][]uint8, x, y int) (uint8, int) {
	var mask uint8
	owner := -1
	for i, cells := range seriesCells {
		if y < 0 || y >= len(cells) || x < 0 || x >= len(cells[y]) {
			continue
		}
		if cells[y][x] == 0 {
			continue
		}
		if owner == -1 {
			owner = i
		}
		mask |= cells[y][x]
	}
	return mask, owner
}

// resampleSeries averages down or interpolates up to width points.
func resampleSeries(values []float64, width int) []float64 {
	if len(values) == 0 || width <= 0 {
		return nil
	}
	out := make([]float64, width)
	if len(values) >= width {
		for i := 0; i < width; i++ {
			start := i * len(values) / width
			end := (i + 1) * len(values) / width
			if end <= start {
				end = start + 1
			}
			var sum float64
			for _, v := range values[start:end] {
				sum += v
			}
			out[i] = sum / float64(end-start)
		}
		return out
	}
	if len(values) == 1 || width == 1 {
		for i := range out {
			out[i] = values[0]
		}
		return out
	}
	for i := 0; i < width; i++ {
		pos := float64(i) * float64(len(values)-1) / float64(width-1)
		idx := int(math.Floor(pos))
		if idx >= len(values)-1 {
			out[i] = values[len(values)-1]
			continue
		}
		frac := pos - float64(idx)
		out[i] = values[idx]*(1-frac) + values[idx+1]*frac
	}
	return out
}

func valueToRow(v, minVal, maxVal float64, height int) int {
	if height <= 1 || math.IsNaN(v) {
		return 0
	}
	pos := (v - minVal) / (maxVal - minVal)
	row := int(math.Round((1 - pos) * float64(height-1)))
	if row < 0 {
		row = 0
	}
	if row >= height {
		row = height - 1
	}
	return row
}

// drawLine walks a Bresenham line between two dots.
func drawLine(x0, y0, x1, y1 int, plot func(x, y int)) {
	dx := x1 - x0
	if dx < 0 {
		dx = -dx
	}
	sx := -1
	if x0 < x1 {
		sx = 1
	}
	dy := y1 - y0
	if dy > 0 {
		dy = -dy
	}
	sy := -1
	if y0 < y1 {
		sy = 1
	}
	err := dx + dy
	for {
		plot(x0, y0)
		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

func setBrailleDot(cells [][]uint8, x, y int) {
	if y < 0 || x < 0 {
		return
	}
	cellY := y / 4
	cellX := x / 2
	if cellY >= len(cells) || cellX >= len(cells[cellY]) {
		return
	}
	cells[cellY][cellX] |= brailleDotMask(x%2, y%4)
}

func brailleDotMask(x, y int) uint8 {
	masks := [2][4]uint8{
		{0x01, 0x02, 0x04, 0x40},
		{0x08, 0x10, 0x20, 0x80},
	}
	return masks[x][y]
}

func brailleFromMask(mask uint8) rune {
	return rune(0x2800 + int(mask))
}
