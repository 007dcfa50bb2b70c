package viewer

import "fmt"

// DatasetReader reads per-channel datasets from tier files.
type DatasetReader interface {
	// ReadScalar reads one value of a one-dimensional dataset.
	ReadScalar(file string, dataset string, row int) (float64, error)
	// ReadRowCount returns the length of the first dimension of a dataset.
	ReadRowCount(file string, dataset string) (int, error)
	// ReadWaveform reads one row of a two-dimensional dataset.
	ReadWaveform(file string, dataset string, row int) ([]float64, error)
}

func BaselineDataset(daqID int) string {
	return fmt.Sprintf("ch%d/raw/baseline", daqID)
}

func WaveformDataset(daqID int) string {
	return fmt.Sprintf("ch%d/raw/waveform/values", daqID)
}

func EnergyDataset(daqID int, parameter string) string {
	return fmt.Sprintf("ch%d/hit/%s", daqID, parameter)
}

func DspDataset(daqID int, parameter string) string {
	return fmt.Sprintf("ch%d/dsp/%s", daqID, parameter)
}
