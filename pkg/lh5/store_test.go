package lh5

import (
	"errors"
	"math"
	"path/filepath"
	"testing"

	viewer "github.com/legend-exp/leds_go/pkg"
)

func writeTestFile(t *testing.T) string {
	t.Helper()
	filename := filepath.Join(t.TempDir(), "l200-p03-r001-phy-20230311T235840Z-tier_raw.lh5")
	w, err := NewTierWriter(filename, 4)
	if err != nil {
		t.Fatalf("NewTierWriter failed: %v", err)
	}
	if err := w.WriteCounters(viewer.BaselineDataset(1), []uint16{10, 11, 12}); err != nil {
		t.Fatalf("WriteCounters failed: %v", err)
	}
	// appended in two batches
	if err := w.WriteCounters(viewer.BaselineDataset(1), []uint16{13, 14}); err != nil {
		t.Fatalf("WriteCounters failed: %v", err)
	}
	waveforms := [][]int16{{1, 2, 3, 4}, {5, 6, 7, 8}, {9, 10, 11, 12}}
	if err := w.WriteWaveforms(viewer.WaveformDataset(1001), waveforms); err != nil {
		t.Fatalf("WriteWaveforms failed: %v", err)
	}
	energies := []float64{1460.8, math.NaN(), 2614.5}
	if err := w.WriteScalars(viewer.EnergyDataset(1001, "cuspEmax_ctc_cal"), energies); err != nil {
		t.Fatalf("WriteScalars failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	return filename
}

func TestStoreRoundTrip(t *testing.T) {
	filename := writeTestFile(t)
	store := NewStore()
	defer store.Close()

	n, err := store.ReadRowCount(filename, viewer.BaselineDataset(1))
	if err != nil {
		t.Fatalf("ReadRowCount failed: %v", err)
	}
	if n != 5 {
		t.Fatalf("expected 5 rows, got %d", n)
	}
	v, err := store.ReadScalar(filename, viewer.BaselineDataset(1), 4)
	if err != nil || v != 14 {
		t.Fatalf("ReadScalar = %v, %v", v, err)
	}

	wf, err := store.ReadWaveform(filename, viewer.WaveformDataset(1001), 1)
	if err != nil {
		t.Fatalf("ReadWaveform failed: %v", err)
	}
	if len(wf) != 4 || wf[0] != 5 || wf[3] != 8 {
		t.Fatalf("unexpected waveform %v", wf)
	}

	e, err := store.ReadScalar(filename, viewer.EnergyDataset(1001, "cuspEmax_ctc_cal"), 1)
	if err != nil || !math.IsNaN(e) {
		t.Fatalf("expected NaN to be read back, got %v, %v", e, err)
	}
	e, err = store.ReadScalar(filename, viewer.EnergyDataset(1001, "cuspEmax_ctc_cal"), 2)
	if err != nil || e != 2614.5 {
		t.Fatalf("ReadScalar = %v, %v", e, err)
	}
}

func TestStoreErrors(t *testing.T) {
	filename := writeTestFile(t)
	store := NewStore()
	defer store.Close()

	_, err := store.ReadRowCount(filepath.Join(t.TempDir(), "missing.lh5"), viewer.BaselineDataset(1))
	var openErr *viewer.ErrOpenFile
	if !errors.As(err, &openErr) {
		t.Fatalf("expected ErrOpenFile, got %v", err)
	}

	_, err = store.ReadScalar(filename, viewer.BaselineDataset(2), 0)
	var readErr *viewer.ErrReadDataset
	if !errors.As(err, &readErr) {
		t.Fatalf("expected ErrReadDataset for a missing channel, got %v", err)
	}
	_, err = store.ReadScalar(filename, viewer.BaselineDataset(1), 5)
	if !errors.As(err, &readErr) {
		t.Fatalf("expected ErrReadDataset past the last row, got %v", err)
	}
}

func TestWriterRejectsRaggedWaveforms(t *testing.T) {
	w, err := NewTierWriter(filepath.Join(t.TempDir(), "ragged.lh5"), 0)
	if err != nil {
		t.Fatalf("NewTierWriter failed: %v", err)
	}
	defer w.Close()
	if err := w.WriteWaveforms("ch1/raw/waveform/values", [][]int16{{1, 2}, {3}}); err == nil {
		t.Fatalf("expected ragged waveforms to be rejected")
	}
}
