package main

import (
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"

	viewer "github.com/legend-exp/leds_go/pkg"
	"github.com/legend-exp/leds_go/pkg/lh5"
	"golang.org/x/exp/slices"
)

// fixtureJob asks a worker to synthesize one cycle.
type fixtureJob struct {
	Key    viewer.FileKey
	Events int
	Seed   int64
	Tau    float64
}

// fixtureCycle holds the datasets of one cycle, keyed by DAQ id.
type fixtureCycle struct {
	Key       viewer.FileKey
	Baselines []uint16
	Waveforms map[int][][]int16
	DspEnergy map[int][]float64
	Energies  map[int][]float64
	Err       error
}

const (
	fixtureBaseline = 15000
	fixtureGain     = 4.0 // adc per keV
	fixtureSamples  = 512
)

func fixtureWorker(id int, geds []viewer.Channel, jobs <-chan fixtureJob, results chan<- fixtureCycle) {
	for job := range jobs {
		results <- synthesizeCycle(id, geds, job)
	}
}

func synthesizeCycle(id int, geds []viewer.Channel, job fixtureJob) (cycle fixtureCycle) {
	defer func() {
		if r := recover(); r != nil {
			cycle = fixtureCycle{Key: job.Key, Err: fmt.Errorf("worker %d recovered from panic: %v", id, r)}
		}
	}()
	if configuration.Verbosity > 1 {
		message := fmt.Sprintf("Worker %d synthesizing %s", id, job.Key.Label())
		logger.Info(message, "fixtures")
	}

	rng := rand.New(rand.NewSource(job.Seed))
	cycle = fixtureCycle{
		Key:       job.Key,
		Baselines: make([]uint16, job.Events),
		Waveforms: make(map[int][][]int16, len(geds)),
		DspEnergy: make(map[int][]float64, len(geds)),
		Energies:  make(map[int][]float64, len(geds)),
	}
	for i := range cycle.Baselines {
		cycle.Baselines[i] = uint16(fixtureBaseline + rng.Intn(20))
	}
	for _, ch := range geds {
		waveforms := make([][]int16, job.Events)
		dsp := make([]float64, job.Events)
		energies := make([]float64, job.Events)
		for evt := 0; evt < job.Events; evt++ {
			energy := fixtureEnergy(rng)
			waveforms[evt] = fixtureWaveform(rng, energy, job.Tau)
			dsp[evt] = energy * fixtureGain
			energies[evt] = energy
			// channels without a trigger store no energy
			if rng.Float64() < 0.1 {
				energies[evt] = math.NaN()
			}
		}
		cycle.Waveforms[ch.DAQID] = waveforms
		cycle.DspEnergy[ch.DAQID] = dsp
		cycle.Energies[ch.DAQID] = energies
	}
	return cycle
}

// fixtureEnergy samples a toy spectrum: mostly noise below threshold, a
// continuum and the 40K and 208Tl lines.
func fixtureEnergy(rng *rand.Rand) float64 {
	switch r := rng.Float64(); {
	case r < 0.6:
		return rng.Float64() * 20
	case r < 0.9:
		return 25 + rng.ExpFloat64()*400
	case r < 0.96:
		return rng.NormFloat64()*1.5 + 1460.8
	default:
		return rng.NormFloat64()*1.5 + 2614.5
	}
}

func fixtureWaveform(rng *rand.Rand, energy float64, tau float64) []int16 {
	wf := make([]int16, fixtureSamples)
	t0 := fixtureSamples / 2
	for i := range wf {
		v := fixtureBaseline + rng.NormFloat64()*3
		if i >= t0 {
			v += energy * fixtureGain * math.Exp(-float64(i-t0)/tau)
		}
		wf[i] = int16(math.Max(math.Min(v, math.MaxInt16), math.MinInt16))
	}
	return wf
}

func sendFixtureJobs(jobs chan<- fixtureJob, keys []viewer.FileKey, events int, seed int64, tau float64) {
	for i, key := range keys {
		jobs <- fixtureJob{Key: key, Events: events, Seed: seed + int64(i), Tau: tau}
	}
	close(jobs)
}

// writeFixtureResults writes the cycles as they arrive. HDF5 calls are not
// thread safe, so this is the only goroutine touching files.
func writeFixtureResults(results <-chan fixtureCycle, paths viewer.TierPaths, baseline viewer.Channel, energyParameter string, nCycles int) error {
	written := 0
	for cycle := range results {
		if cycle.Err != nil {
			return cycle.Err
		}
		if err := writeCycle(cycle, paths, baseline, energyParameter); err != nil {
			return fmt.Errorf("error writing %s: %w", cycle.Key.Label(), err)
		}
		if configuration.Verbosity > 0 {
			message := fmt.Sprintf("Written %s (%d events)", cycle.Key.Label(), len(cycle.Baselines))
			logger.Info(message, "fixtures")
		}
		written++
		if written >= nCycles {
			break
		}
	}
	return nil
}

func writeCycle(cycle fixtureCycle, paths viewer.TierPaths, baseline viewer.Channel, energyParameter string) error {
	ids := make([]int, 0, len(cycle.Waveforms))
	for id := range cycle.Waveforms {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	write := func(tier viewer.Tier, fill func(w *lh5.TierWriter) error) (err error) {
		key := cycle.Key
		key.Tier = tier
		filename := paths.Path(key)
		if err := os.MkdirAll(filepath.Dir(filename), 0o755); err != nil {
			return err
		}
		w, err := lh5.NewTierWriter(filename, 4)
		if err != nil {
			return err
		}
		defer func() {
			if cerr := w.Close(); err == nil {
				err = cerr
			}
		}()
		return fill(w)
	}

	err := write(viewer.TierRaw, func(w *lh5.TierWriter) error {
		if err := w.WriteCounters(viewer.BaselineDataset(baseline.DAQID), cycle.Baselines); err != nil {
			return err
		}
		for _, id := range ids {
			if err := w.WriteWaveforms(viewer.WaveformDataset(id), cycle.Waveforms[id]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	err = write(viewer.TierDsp, func(w *lh5.TierWriter) error {
		for _, id := range ids {
			if err := w.WriteScalars(viewer.DspDataset(id, "trapEmax"), cycle.DspEnergy[id]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	return write(viewer.TierHit, func(w *lh5.TierWriter) error {
		for _, id := range ids {
			if err := w.WriteScalars(viewer.EnergyDataset(id, energyParameter), cycle.Energies[id]); err != nil {
				return err
			}
		}
		return nil
	})
}
