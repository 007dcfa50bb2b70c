package viewer

import "math"

// EnergyHistogram accumulates channel energies over the events shown during
// playback.
type EnergyHistogram struct {
	start     float64
	stop      float64
	counts    []int
	underflow int
	overflow  int
}

func NewEnergyHistogram(bins int, start float64, stop float64) *EnergyHistogram {
	if bins < 1 {
		bins = 1
	}
	return &EnergyHistogram{start: start, stop: stop, counts: make([]int, bins)}
}

// DefaultEnergyHistogram covers 25 to 10000 keV in 1 keV bins.
func DefaultEnergyHistogram() *EnergyHistogram {
	return NewEnergyHistogram(10000-25, 25, 10000)
}

func (h *EnergyHistogram) Fill(value float64) {
	switch {
	case math.IsNaN(value):
		return
	case value < h.start:
		h.underflow++
	case value >= h.stop:
		h.overflow++
	default:
		bin := int((value - h.start) / (h.stop - h.start) * float64(len(h.counts)))
		if bin >= len(h.counts) {
			bin = len(h.counts) - 1
		}
		h.counts[bin]++
	}
}

// FillSnapshot adds the energy of every processed channel.
func (h *EnergyHistogram) FillSnapshot(snap *EventSnapshot) {
	for _, e := range snap.Energies {
		if e != nil {
			h.Fill(*e)
		}
	}
}

func (h *EnergyHistogram) Counts() []int {
	out := make([]int, len(h.counts))
	copy(out, h.counts)
	return out
}

// Total is the number of entries inside the range.
func (h *EnergyHistogram) Total() int {
	total := 0
	for _, c := range h.counts {
		total += c
	}
	return total
}

func (h *EnergyHistogram) Underflow() int {
	return h.underflow
}

func (h *EnergyHistogram) Overflow() int {
	return h.overflow
}

func (h *EnergyHistogram) Range() (float64, float64) {
	return h.start, h.stop
}

// Rebin merges the bins into n groups for display.
func (h *EnergyHistogram) Rebin(n int) []int {
	if n < 1 {
		n = 1
	}
	if n > len(h.counts) {
		n = len(h.counts)
	}
	out := make([]int, n)
	for i, c := range h.counts {
		out[i*n/len(h.counts)] += c
	}
	return out
}

func (h *EnergyHistogram) Reset() {
	for i := range h.counts {
		h.counts[i] = 0
	}
	h.underflow = 0
	h.overflow = 0
}
