package lh5

import (
	hdf5 "github.com/jmbenlloch/go-hdf5"
)

var unlimitedDims = -1 // H5S_UNLIMITED is -1L

func createFile(fname string) (*hdf5.File, error) {
	return hdf5.CreateFile(fname, hdf5.F_ACC_TRUNC)
}

func create1dArray(group *hdf5.Group, name string, dtype *hdf5.Datatype, compression int) (*hdf5.Dataset, error) {
	dims := []uint{0}
	maxDims := []uint{uint(unlimitedDims)}
	chunks := []uint{32768}
	return createArray(group, name, dtype, dims, maxDims, chunks, compression)
}

func create2dArray(group *hdf5.Group, name string, dtype *hdf5.Datatype, nSamples int, compression int) (*hdf5.Dataset, error) {
	dims := []uint{0, uint(nSamples)}
	maxDims := []uint{uint(unlimitedDims), uint(nSamples)}
	chunks := []uint{64, uint(nSamples)}
	return createArray(group, name, dtype, dims, maxDims, chunks, compression)
}

func createArray(group *hdf5.Group, name string, dtype *hdf5.Datatype, dims []uint, maxDims []uint, chunks []uint, compression int) (*hdf5.Dataset, error) {
	fileSpace, err := hdf5.CreateSimpleDataspace(dims, maxDims)
	if err != nil {
		return nil, &ErrCreateDataset{Dataset: name, Err: err}
	}
	defer fileSpace.Close()

	plist, err := hdf5.NewPropList(hdf5.P_DATASET_CREATE)
	if err != nil {
		return nil, &ErrCreateDataset{Dataset: name, Err: err}
	}
	defer plist.Close()

	plist.SetChunk(chunks)
	if compression > 0 {
		plist.SetDeflate(compression)
	}

	dset, err := group.CreateDatasetWith(name, dtype, fileSpace, plist)
	if err != nil {
		return nil, &ErrCreateDataset{Dataset: name, Err: err}
	}
	return dset, nil
}

// appendRows extends a dataset along its first dimension and writes data,
// the flattened rows, at the end.
func appendRows[T any](dataset *hdf5.Dataset, data *[]T, rowsInFile int, rowShape []uint) error {
	nValues := uint(len(*data))
	rowSize := uint(1)
	for _, d := range rowShape {
		rowSize *= d
	}
	nRows := nValues / rowSize

	newSize := append([]uint{uint(rowsInFile) + nRows}, rowShape...)
	if err := dataset.Resize(newSize); err != nil {
		return err
	}
	filespace := dataset.Space()
	defer filespace.Close()

	start := make([]uint, len(newSize))
	start[0] = uint(rowsInFile)
	count := append([]uint{nRows}, rowShape...)
	if err := filespace.SelectHyperslab(start, nil, count, nil); err != nil {
		return err
	}

	dataspace, err := hdf5.CreateSimpleDataspace(count, nil)
	if err != nil {
		return err
	}
	defer dataspace.Close()

	return dataset.WriteSubset(data, dataspace, filespace)
}
