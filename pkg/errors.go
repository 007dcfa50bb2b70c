package viewer

import (
	"errors"
	"fmt"
)

// ErrBrowsersNotReady is returned when the waveform browsers are requested
// before the background warm-up has finished.
var ErrBrowsersNotReady = errors.New("waveform browsers are not ready")

// SelectionError reports a period/run/cycle/index selection that does not
// resolve to an event.
type SelectionError struct {
	Selection Selection
	Reason    string
}

func (e *SelectionError) Error() string {
	return fmt.Sprintf("invalid selection %s: %s", e.Selection, e.Reason)
}

// MetadataLookupError represents a channel map, processing configuration or
// processing chain that cannot be resolved.
type MetadataLookupError struct {
	What string
	Key  string
	Err  error
}

func (e *MetadataLookupError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("no %s found for %q", e.What, e.Key)
	}
	return fmt.Sprintf("error looking up %s for %q: %v", e.What, e.Key, e.Err)
}

func (e *MetadataLookupError) Unwrap() error {
	return e.Err
}

// ErrOpenFile represents an error when opening a file.
type ErrOpenFile struct {
	Filename string
	Err      error
}

func (e *ErrOpenFile) Error() string {
	return fmt.Sprintf("error opening file %q: %v", e.Filename, e.Err)
}

func (e *ErrOpenFile) Unwrap() error {
	return e.Err
}

// ErrReadDataset represents an error when reading a dataset from a file.
type ErrReadDataset struct {
	Filename string
	Dataset  string
	Err      error
}

func (e *ErrReadDataset) Error() string {
	return fmt.Sprintf("error reading dataset %q from %q: %v", e.Dataset, e.Filename, e.Err)
}

func (e *ErrReadDataset) Unwrap() error {
	return e.Err
}

// ErrBuildBrowser represents a waveform browser that could not be constructed.
type ErrBuildBrowser struct {
	Channel  string
	ConfigID string
	Err      error
}

func (e *ErrBuildBrowser) Error() string {
	return fmt.Sprintf("error building browser for %s (config %q): %v", e.Channel, e.ConfigID, e.Err)
}

func (e *ErrBuildBrowser) Unwrap() error {
	return e.Err
}
