package viewer

import (
	"context"
	"fmt"
)

// Selection is a logical event coordinate. Period, Run and Cycle accept
// Wildcard; Index is a global row offset over the matching files.
type Selection struct {
	Period string
	Run    string
	Cycle  string
	Index  int
}

func (s Selection) String() string {
	return fmt.Sprintf("%s/%s/%s#%d", s.Period, s.Run, s.Cycle, s.Index)
}

// WithIndex returns a copy of the selection pointing at another index.
func (s Selection) WithIndex(index int) Selection {
	s.Index = index
	return s
}

// Location is a resolved event: the three tier files and the row inside them.
type Location struct {
	RawFile string
	DspFile string
	HitFile string
	Row     int
	Key     FileKey
}

// EventLocator resolves selections into tier files and row offsets. Row
// counts are memoized per raw-tier file for the lifetime of the locator.
type EventLocator struct {
	paths            TierPaths
	meta             Metadata
	store            DatasetReader
	baselineName     string
	rowCounts        map[string]int
	baselineChannels map[string]int
	rowCountReads    int
}

func NewEventLocator(paths TierPaths, meta Metadata, store DatasetReader, baselineChannel string) *EventLocator {
	return &EventLocator{
		paths:            paths,
		meta:             meta,
		store:            store,
		baselineName:     baselineChannel,
		rowCounts:        make(map[string]int),
		baselineChannels: make(map[string]int),
	}
}

func (l *EventLocator) Paths() TierPaths {
	return l.paths
}

// RowCountReads is the number of row counts read from files.
func (l *EventLocator) RowCountReads() int {
	return l.rowCountReads
}

// CachedRowCount returns the memoized row count of a raw-tier file.
func (l *EventLocator) CachedRowCount(rawFile string) (int, bool) {
	n, ok := l.rowCounts[rawFile]
	return n, ok
}

// CachedFiles lists the raw-tier files whose row count is memoized.
func (l *EventLocator) CachedFiles() []string {
	return sortedKeys(l.rowCounts)
}

// Locate walks the sorted candidates accumulating row counts and stops at the
// first file whose cumulative count exceeds the index. Files after it are
// never read.
func (l *EventLocator) Locate(ctx context.Context, sel Selection) (Location, error) {
	if sel.Index < 0 {
		return Location{}, &SelectionError{Selection: sel, Reason: "index must not be negative"}
	}
	files, err := l.paths.Candidates(sel.Period, sel.Run, sel.Cycle)
	if err != nil {
		return Location{}, err
	}
	if len(files) == 0 {
		return Location{}, &SelectionError{Selection: sel, Reason: "no files match"}
	}

	cumulative := 0
	for _, hitFile := range files {
		if err := ctx.Err(); err != nil {
			return Location{}, err
		}
		nRows, err := l.rowCount(ctx, hitFile)
		if err != nil {
			return Location{}, err
		}
		if cumulative+nRows > sel.Index {
			return l.location(hitFile, sel.Index-cumulative)
		}
		cumulative += nRows
	}
	reason := fmt.Sprintf("index out of range (%d events in %d files)", cumulative, len(files))
	return Location{}, &SelectionError{Selection: sel, Reason: reason}
}

func (l *EventLocator) location(hitFile string, row int) (Location, error) {
	key, err := ParseFileKey(hitFile)
	if err != nil {
		return Location{}, err
	}
	rawFile, err := l.paths.Substitute(hitFile, TierRaw)
	if err != nil {
		return Location{}, err
	}
	dspFile, err := l.paths.Substitute(hitFile, TierDsp)
	if err != nil {
		return Location{}, err
	}
	if configuration.Verbosity > 0 {
		message := fmt.Sprintf("Event located in %s row %d", key.Label(), row)
		logger.Info(message, "locator")
	}
	return Location{RawFile: rawFile, DspFile: dspFile, HitFile: hitFile, Row: row, Key: key}, nil
}

func (l *EventLocator) rowCount(ctx context.Context, hitFile string) (int, error) {
	rawFile, err := l.paths.Substitute(hitFile, TierRaw)
	if err != nil {
		return 0, err
	}
	if n, ok := l.rowCounts[rawFile]; ok {
		return n, nil
	}
	key, err := ParseFileKey(hitFile)
	if err != nil {
		return 0, err
	}
	baseline, err := l.baselineChannelFor(ctx, key.Period, key.Timestamp)
	if err != nil {
		return 0, err
	}
	n, err := l.store.ReadRowCount(rawFile, BaselineDataset(baseline))
	if err != nil {
		return 0, fmt.Errorf("error counting events: %w", err)
	}
	l.rowCountReads++
	l.rowCounts[rawFile] = n
	if configuration.Verbosity > 1 {
		message := fmt.Sprintf("%d events in %s", n, key.Label())
		logger.Info(message, "locator")
	}
	return n, nil
}

// baselineChannelFor resolves the monitor channel used to count rows. It is
// looked up once per period.
func (l *EventLocator) baselineChannelFor(ctx context.Context, period string, timestamp string) (int, error) {
	if id, ok := l.baselineChannels[period]; ok {
		return id, nil
	}
	chmap, err := l.meta.ChannelMapAt(ctx, timestamp)
	if err != nil {
		return 0, err
	}
	ch, ok := chmap.ByName(l.baselineName)
	if !ok {
		return 0, &MetadataLookupError{What: "baseline channel " + l.baselineName, Key: timestamp}
	}
	l.baselineChannels[period] = ch.DAQID
	return ch.DAQID, nil
}
