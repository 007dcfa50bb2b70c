package lh5

import "fmt"

// ErrCreateGroup represents an error when creating a group.
type ErrCreateGroup struct {
	GroupName string
	Err       error
}

func (e *ErrCreateGroup) Error() string {
	return fmt.Sprintf("error creating group %q: %v", e.GroupName, e.Err)
}

func (e *ErrCreateGroup) Unwrap() error {
	return e.Err
}

// ErrCreateDataset is returned when a dataset cannot be created or extended.
type ErrCreateDataset struct {
	Dataset string
	Err     error
}

func (e *ErrCreateDataset) Error() string {
	return fmt.Sprintf("error creating dataset %q: %v", e.Dataset, e.Err)
}

func (e *ErrCreateDataset) Unwrap() error {
	return e.Err
}
