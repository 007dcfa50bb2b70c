package viewer

import (
	"fmt"
	"math"
)

// LineParameter selects one of the waveforms produced by a processing chain.
type LineParameter string

const (
	LineBaselineSubtracted LineParameter = "wf_blsub"
	LinePoleZero           LineParameter = "wf_pz"
	LineTrapezoid          LineParameter = "wf_trap"
	LineCurrent            LineParameter = "curr"
)

// LineParameters lists the selectable lines in menu order.
var LineParameters = []LineParameter{
	LineBaselineSubtracted,
	LinePoleZero,
	LineTrapezoid,
	LineCurrent,
}

func ParseLineParameter(s string) (LineParameter, error) {
	for _, p := range LineParameters {
		if string(p) == s {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown line parameter %q", s)
}

// ChainDefinition is the processing configuration identified by a config id.
type ChainDefinition struct {
	ID              string  `db:"ConfigID" json:"id"`
	BaselineSamples int     `db:"BaselineSamples" json:"baseline_samples"`
	PoleZeroTau     float64 `db:"PoleZeroTau" json:"pz_tau"`
	TrapRise        int     `db:"TrapRise" json:"trap_rise"`
	TrapFlat        int     `db:"TrapFlat" json:"trap_flat"`
	SamplePeriodNs  float64 `db:"SamplePeriodNs" json:"sample_period_ns"`
}

// Chain is a compiled processing chain.
type Chain struct {
	def      ChainDefinition
	pzFactor float64
}

func CompileChain(def ChainDefinition) (*Chain, error) {
	if def.BaselineSamples <= 0 {
		return nil, fmt.Errorf("chain %q: baseline_samples must be positive", def.ID)
	}
	if def.PoleZeroTau <= 0 {
		return nil, fmt.Errorf("chain %q: pz_tau must be positive", def.ID)
	}
	if def.TrapRise <= 0 || def.TrapFlat < 0 {
		return nil, fmt.Errorf("chain %q: invalid trapezoid %d/%d", def.ID, def.TrapRise, def.TrapFlat)
	}
	if def.SamplePeriodNs <= 0 {
		return nil, fmt.Errorf("chain %q: sample_period_ns must be positive", def.ID)
	}
	return &Chain{def: def, pzFactor: math.Exp(-1 / def.PoleZeroTau)}, nil
}

func (c *Chain) Definition() ChainDefinition {
	return c.def
}

// Process runs the chain over one raw waveform.
func (c *Chain) Process(waveform []float64) map[LineParameter][]float64 {
	blsub := subtractBaseline(waveform, c.def.BaselineSamples)
	pz := poleZero(blsub, c.pzFactor)
	return map[LineParameter][]float64{
		LineBaselineSubtracted: blsub,
		LinePoleZero:           pz,
		LineTrapezoid:          trapezoid(pz, c.def.TrapRise, c.def.TrapFlat),
		LineCurrent:            derivative(pz),
	}
}

// TimeAxis returns the sample times in ns for a waveform of n samples.
func (c *Chain) TimeAxis(n int) []float64 {
	t := make([]float64, n)
	for i := range t {
		t[i] = float64(i) * c.def.SamplePeriodNs
	}
	return t
}

func subtractBaseline(waveform []float64, samples int) []float64 {
	out := make([]float64, len(waveform))
	if len(waveform) == 0 {
		return out
	}
	if samples > len(waveform) {
		samples = len(waveform)
	}
	baseline := 0.0
	for _, v := range waveform[:samples] {
		baseline += v
	}
	baseline /= float64(samples)
	for i, v := range waveform {
		out[i] = v - baseline
	}
	return out
}

// poleZero removes the exponential decay of the preamplifier:
// out[i] = out[i-1] + in[i] - k*in[i-1]
func poleZero(waveform []float64, k float64) []float64 {
	out := make([]float64, len(waveform))
	for i, v := range waveform {
		if i == 0 {
			out[i] = v
			continue
		}
		out[i] = out[i-1] + v - k*waveform[i-1]
	}
	return out
}

// trapezoid is the moving difference of two windows of length rise separated
// by flat samples, normalised by rise.
func trapezoid(waveform []float64, rise int, flat int) []float64 {
	n := len(waveform)
	cumsum := make([]float64, n+1)
	for i, v := range waveform {
		cumsum[i+1] = cumsum[i] + v
	}
	window := func(end int) float64 {
		// sum of waveform[end-rise+1 .. end]
		if end < 0 {
			return 0
		}
		start := end - rise + 1
		if start < 0 {
			start = 0
		}
		return cumsum[end+1] - cumsum[start]
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = (window(i) - window(i-rise-flat)) / float64(rise)
	}
	return out
}

func derivative(waveform []float64) []float64 {
	out := make([]float64, len(waveform))
	for i := 1; i < len(waveform); i++ {
		out[i] = waveform[i] - waveform[i-1]
	}
	return out
}
