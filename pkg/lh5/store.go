// Package lh5 reads and writes the HDF5 tier files of the event viewer.
package lh5

import (
	"errors"
	"fmt"
	"sync"

	hdf5 "github.com/jmbenlloch/go-hdf5"
	viewer "github.com/legend-exp/leds_go/pkg"
	"golang.org/x/exp/constraints"
)

// maxOpenFiles bounds the read-only file handles kept by a Store.
const maxOpenFiles = 16

// Store reads per-channel datasets. It is safe for concurrent use; calls into
// the HDF5 library are serialized.
type Store struct {
	mu    sync.Mutex
	files map[string]*hdf5.File
	order []string
}

func NewStore() *Store {
	return &Store{files: make(map[string]*hdf5.File)}
}

func (s *Store) open(filename string) (*hdf5.File, error) {
	if f, ok := s.files[filename]; ok {
		return f, nil
	}
	f, err := hdf5.OpenFile(filename, hdf5.F_ACC_RDONLY)
	if err != nil {
		return nil, &viewer.ErrOpenFile{Filename: filename, Err: err}
	}
	if len(s.order) >= maxOpenFiles {
		oldest := s.order[0]
		s.order = s.order[1:]
		s.files[oldest].Close()
		delete(s.files, oldest)
	}
	s.files[filename] = f
	s.order = append(s.order, filename)
	return f, nil
}

func (s *Store) dataset(filename string, dataset string) (*hdf5.Dataset, error) {
	f, err := s.open(filename)
	if err != nil {
		return nil, err
	}
	dset, err := f.OpenDataset(dataset)
	if err != nil {
		return nil, &viewer.ErrReadDataset{Filename: filename, Dataset: dataset, Err: err}
	}
	return dset, nil
}

func (s *Store) ReadRowCount(filename string, dataset string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	dset, err := s.dataset(filename, dataset)
	if err != nil {
		return 0, err
	}
	defer dset.Close()

	dims, err := datasetDims(dset)
	if err != nil {
		return 0, &viewer.ErrReadDataset{Filename: filename, Dataset: dataset, Err: err}
	}
	return int(dims[0]), nil
}

func (s *Store) ReadScalar(filename string, dataset string, row int) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	dset, err := s.dataset(filename, dataset)
	if err != nil {
		return 0, err
	}
	defer dset.Close()

	values, err := readRows(dset, row, 1)
	if err != nil {
		return 0, &viewer.ErrReadDataset{Filename: filename, Dataset: dataset, Err: err}
	}
	return values[0], nil
}

func (s *Store) ReadWaveform(filename string, dataset string, row int) ([]float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	dset, err := s.dataset(filename, dataset)
	if err != nil {
		return nil, err
	}
	defer dset.Close()

	values, err := readRows(dset, row, 1)
	if err != nil {
		return nil, &viewer.ErrReadDataset{Filename: filename, Dataset: dataset, Err: err}
	}
	return values, nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	for _, name := range s.order {
		if err := s.files[name].Close(); err != nil {
			errs = append(errs, fmt.Errorf("error closing file %s: %w", name, err))
		}
	}
	s.files = make(map[string]*hdf5.File)
	s.order = nil

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

func datasetDims(dset *hdf5.Dataset) ([]uint, error) {
	filespace := dset.Space()
	defer filespace.Close()
	dims, _, err := filespace.SimpleExtentDims()
	if err != nil {
		return nil, err
	}
	if len(dims) == 0 {
		return nil, fmt.Errorf("dataset is a scalar")
	}
	return dims, nil
}

// readRows reads nRows rows starting at row. For two-dimensional datasets a
// row is the full second dimension.
func readRows(dset *hdf5.Dataset, row int, nRows int) ([]float64, error) {
	dims, err := datasetDims(dset)
	if err != nil {
		return nil, err
	}
	if row < 0 || uint(row+nRows) > dims[0] {
		return nil, fmt.Errorf("row %d out of range (%d rows)", row, dims[0])
	}

	start := make([]uint, len(dims))
	count := make([]uint, len(dims))
	start[0] = uint(row)
	count[0] = uint(nRows)
	total := nRows
	for i := 1; i < len(dims); i++ {
		count[i] = dims[i]
		total *= int(dims[i])
	}

	filespace := dset.Space()
	defer filespace.Close()
	err = filespace.SelectHyperslab(start, nil, count, nil)
	if err != nil {
		return nil, err
	}
	memspace, err := hdf5.CreateSimpleDataspace(count, nil)
	if err != nil {
		return nil, err
	}
	defer memspace.Close()

	dtype, err := dset.Datatype()
	if err != nil {
		return nil, err
	}
	defer dtype.Close()

	// The dataset type is used as memory type, so read into a slice of the
	// matching Go type and convert.
	switch {
	case dtype.Equal(hdf5.T_NATIVE_DOUBLE):
		return readAs[float64](dset, total, memspace, filespace)
	case dtype.Equal(hdf5.T_NATIVE_FLOAT):
		return readAs[float32](dset, total, memspace, filespace)
	case dtype.Equal(hdf5.T_NATIVE_INT16):
		return readAs[int16](dset, total, memspace, filespace)
	case dtype.Equal(hdf5.T_NATIVE_UINT16):
		return readAs[uint16](dset, total, memspace, filespace)
	case dtype.Equal(hdf5.T_NATIVE_INT32):
		return readAs[int32](dset, total, memspace, filespace)
	case dtype.Equal(hdf5.T_NATIVE_UINT32):
		return readAs[uint32](dset, total, memspace, filespace)
	case dtype.Equal(hdf5.T_NATIVE_INT64):
		return readAs[int64](dset, total, memspace, filespace)
	case dtype.Equal(hdf5.T_NATIVE_UINT64):
		return readAs[uint64](dset, total, memspace, filespace)
	default:
		return nil, fmt.Errorf("unsupported datatype")
	}
}

func readAs[T constraints.Integer | constraints.Float](dset *hdf5.Dataset, n int, memspace *hdf5.Dataspace, filespace *hdf5.Dataspace) ([]float64, error) {
	data := make([]T, n)
	if err := dset.ReadSubset(&data, memspace, filespace); err != nil {
		return nil, err
	}
	out := make([]float64, n)
	for i, v := range data {
		out[i] = float64(v)
	}
	return out, nil
}
