package lh5

import (
	"errors"
	"fmt"
	"path"
	"strings"

	hdf5 "github.com/jmbenlloch/go-hdf5"
)

// TierWriter appends per-channel datasets to a new tier file. Dataset paths
// look like ch1027201/raw/waveform/values; the groups are created on demand.
type TierWriter struct {
	File             *hdf5.File
	Filename         string
	CompressionLevel int
	groups           map[string]*hdf5.Group
	groupOrder       []string
	datasets         map[string]*hdf5.Dataset
	rows             map[string]int
}

func NewTierWriter(filename string, compressionLevel int) (*TierWriter, error) {
	f, err := createFile(filename)
	if err != nil {
		return nil, fmt.Errorf("error creating file %s: %w", filename, err)
	}
	return &TierWriter{
		File:             f,
		Filename:         filename,
		CompressionLevel: compressionLevel,
		groups:           make(map[string]*hdf5.Group),
		datasets:         make(map[string]*hdf5.Dataset),
		rows:             make(map[string]int),
	}, nil
}

func (w *TierWriter) group(name string) (*hdf5.Group, error) {
	if g, ok := w.groups[name]; ok {
		return g, nil
	}
	var (
		g   *hdf5.Group
		err error
	)
	parent, base := path.Split(name)
	parent = strings.TrimSuffix(parent, "/")
	if parent == "" {
		g, err = w.File.CreateGroup(base)
	} else {
		var p *hdf5.Group
		p, err = w.group(parent)
		if err != nil {
			return nil, err
		}
		g, err = p.CreateGroup(base)
	}
	if err != nil {
		return nil, &ErrCreateGroup{GroupName: name, Err: err}
	}
	w.groups[name] = g
	w.groupOrder = append(w.groupOrder, name)
	return g, nil
}

func (w *TierWriter) dataset(name string, create func(*hdf5.Group, string) (*hdf5.Dataset, error)) (*hdf5.Dataset, error) {
	if d, ok := w.datasets[name]; ok {
		return d, nil
	}
	parent, base := path.Split(name)
	g, err := w.group(strings.TrimSuffix(parent, "/"))
	if err != nil {
		return nil, err
	}
	d, err := create(g, base)
	if err != nil {
		return nil, err
	}
	w.datasets[name] = d
	return d, nil
}

// WriteScalars appends float64 values to a one-dimensional dataset.
func (w *TierWriter) WriteScalars(name string, values []float64) error {
	return writeColumn(w, name, hdf5.T_NATIVE_DOUBLE, values)
}

// WriteCounters appends uint16 values to a one-dimensional dataset.
func (w *TierWriter) WriteCounters(name string, values []uint16) error {
	return writeColumn(w, name, hdf5.T_NATIVE_UINT16, values)
}

// WriteWaveforms appends rows of nSamples int16 samples to a two-dimensional
// dataset.
func (w *TierWriter) WriteWaveforms(name string, waveforms [][]int16) error {
	if len(waveforms) == 0 {
		return nil
	}
	nSamples := len(waveforms[0])
	dset, err := w.dataset(name, func(g *hdf5.Group, base string) (*hdf5.Dataset, error) {
		return create2dArray(g, base, hdf5.T_NATIVE_INT16, nSamples, w.CompressionLevel)
	})
	if err != nil {
		return err
	}
	data := make([]int16, len(waveforms)*nSamples)
	for i, wf := range waveforms {
		if len(wf) != nSamples {
			return fmt.Errorf("waveform %d of %s has %d samples, expected %d", i, name, len(wf), nSamples)
		}
		copy(data[i*nSamples:], wf)
	}
	if err := appendRows(dset, &data, w.rows[name], []uint{uint(nSamples)}); err != nil {
		return fmt.Errorf("error writing %s: %w", name, err)
	}
	w.rows[name] += len(waveforms)
	return nil
}

func writeColumn[T any](w *TierWriter, name string, dtype *hdf5.Datatype, values []T) error {
	if len(values) == 0 {
		return nil
	}
	dset, err := w.dataset(name, func(g *hdf5.Group, base string) (*hdf5.Dataset, error) {
		return create1dArray(g, base, dtype, w.CompressionLevel)
	})
	if err != nil {
		return err
	}
	data := make([]T, len(values))
	copy(data, values)
	if err := appendRows(dset, &data, w.rows[name], nil); err != nil {
		return fmt.Errorf("error writing %s: %w", name, err)
	}
	w.rows[name] += len(values)
	return nil
}

func (w *TierWriter) Close() error {
	var errs []error

	for name, dset := range w.datasets {
		if err := dset.Close(); err != nil {
			errs = append(errs, fmt.Errorf("error closing dataset %s: %w", name, err))
		}
	}
	for i := len(w.groupOrder) - 1; i >= 0; i-- {
		name := w.groupOrder[i]
		if err := w.groups[name].Close(); err != nil {
			errs = append(errs, fmt.Errorf("error closing group %s: %w", name, err))
		}
	}
	if err := w.File.Close(); err != nil {
		errs = append(errs, fmt.Errorf("error closing file: %w", err))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
