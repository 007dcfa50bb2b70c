package viewer

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

// fakeStore serves datasets from memory and counts the reads per kind.
type fakeStore struct {
	rowCounts      map[string]int // raw file -> rows
	energies       map[string]map[string][]float64
	waveforms      map[string][]float64
	rowCountReads  map[string]int
	scalarReads    int
	waveformReads  int
	failScalarFile string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		rowCounts:     make(map[string]int),
		energies:      make(map[string]map[string][]float64),
		waveforms:     make(map[string][]float64),
		rowCountReads: make(map[string]int),
	}
}

func (s *fakeStore) ReadRowCount(file string, dataset string) (int, error) {
	n, ok := s.rowCounts[file]
	if !ok {
		return 0, &ErrOpenFile{Filename: file, Err: os.ErrNotExist}
	}
	s.rowCountReads[file]++
	return n, nil
}

func (s *fakeStore) ReadScalar(file string, dataset string, row int) (float64, error) {
	if file == s.failScalarFile {
		return 0, &ErrReadDataset{Filename: file, Dataset: dataset, Err: os.ErrNotExist}
	}
	s.scalarReads++
	values, ok := s.energies[file][dataset]
	if !ok || row >= len(values) {
		return 0, nil
	}
	return values[row], nil
}

func (s *fakeStore) ReadWaveform(file string, dataset string, row int) ([]float64, error) {
	s.waveformReads++
	wf, ok := s.waveforms[dataset]
	if !ok {
		return make([]float64, 16), nil
	}
	out := make([]float64, len(wf))
	copy(out, wf)
	out[0] += float64(row)
	return out, nil
}

// fakeMeta returns a fixed channel map and configuration for every
// timestamp unless one is registered for it.
type fakeMeta struct {
	channels     []Channel
	byTimestamp  map[string][]Channel
	configs      map[string]ProcessingConfig
	config       ProcessingConfig
	chains       map[string]ChainDefinition
	mapRequests  int
	failChannels bool
}

func (m *fakeMeta) ChannelMapAt(ctx context.Context, timestamp string) (ChannelMap, error) {
	m.mapRequests++
	if m.failChannels {
		return ChannelMap{}, &MetadataLookupError{What: "channel map", Key: timestamp}
	}
	if chs, ok := m.byTimestamp[timestamp]; ok {
		return NewChannelMap(chs), nil
	}
	return NewChannelMap(m.channels), nil
}

func (m *fakeMeta) ProcessingConfigAt(ctx context.Context, timestamp string) (ProcessingConfig, error) {
	if c, ok := m.configs[timestamp]; ok {
		return c, nil
	}
	if m.config == nil {
		return nil, &MetadataLookupError{What: "processing configuration", Key: timestamp}
	}
	return m.config, nil
}

func (m *fakeMeta) ProcessingChain(ctx context.Context, configID string) (ChainDefinition, error) {
	def, ok := m.chains[configID]
	if !ok {
		def = testChain(configID)
	}
	return def, nil
}

// fakeHandle records how often it was positioned.
type fakeHandle struct {
	channel  string
	configID string
	file     string
	row      int
	finds    int
}

func (h *fakeHandle) Channel() string  { return h.channel }
func (h *fakeHandle) ConfigID() string { return h.configID }

func (h *fakeHandle) FindEntry(rawFile string, row int) error {
	h.file = rawFile
	h.row = row
	h.finds++
	return nil
}

func (h *fakeHandle) Entry() (string, int)               { return h.file, h.row }
func (h *fakeHandle) Line(param LineParameter) []float64 { return nil }
func (h *fakeHandle) TimeAxis() []float64                { return nil }

type fakeBuilder struct {
	builds map[string]int // "channel|config" -> constructions
	fail   map[string]error
}

func newFakeBuilder() *fakeBuilder {
	return &fakeBuilder{builds: make(map[string]int), fail: make(map[string]error)}
}

func (b *fakeBuilder) Build(ctx context.Context, channel string, configID string) (BrowserHandle, error) {
	if err, ok := b.fail[channel]; ok {
		return nil, &ErrBuildBrowser{Channel: channel, ConfigID: configID, Err: err}
	}
	b.builds[channel+"|"+configID]++
	return &fakeHandle{channel: channel, configID: configID, row: -1}, nil
}

func (b *fakeBuilder) total() int {
	n := 0
	for _, c := range b.builds {
		n += c
	}
	return n
}

func testChain(id string) ChainDefinition {
	return ChainDefinition{
		ID:              id,
		BaselineSamples: 4,
		PoleZeroTau:     400,
		TrapRise:        4,
		TrapFlat:        2,
		SamplePeriodNs:  16,
	}
}

func testChannels() []Channel {
	return []Channel{
		{Name: "BSLN01", DAQID: 1, System: "auxs", Usable: true},
		{Name: "V01", DAQID: 1001, System: SystemGeds, String: 1, Position: 1, Usable: true, Processable: true},
		{Name: "V02", DAQID: 1002, System: SystemGeds, String: 1, Position: 2, Usable: true, Processable: true},
		{Name: "B01", DAQID: 2001, System: SystemGeds, String: 2, Position: 1, Usable: true, Processable: false},
		{Name: "C01", DAQID: 2002, System: SystemGeds, String: 2, Position: 2, Usable: false, Processable: true},
		{Name: "P01", DAQID: 3001, System: SystemGeds, String: 3, Position: 1, Usable: true, Processable: true},
	}
}

// testTree creates empty tier files for every (period, run, timestamp) under
// a temporary root and returns the paths.
func testTree(t *testing.T, files []FileKey) TierPaths {
	t.Helper()
	root := t.TempDir()
	paths := TierPaths{
		Raw:        filepath.Join(root, "raw"),
		Dsp:        filepath.Join(root, "dsp"),
		Hit:        filepath.Join(root, "hit"),
		Experiment: "l200",
		DataType:   "phy",
		Extension:  "lh5",
	}
	for _, key := range files {
		for _, tier := range []Tier{TierRaw, TierDsp, TierHit} {
			key.Tier = tier
			path := paths.Path(key)
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				t.Fatalf("mkdir failed: %v", err)
			}
			if err := os.WriteFile(path, nil, 0o644); err != nil {
				t.Fatalf("write failed: %v", err)
			}
		}
	}
	return paths
}

func testKey(period string, run string, timestamp string) FileKey {
	return FileKey{
		Experiment: "l200",
		Period:     period,
		Run:        run,
		DataType:   "phy",
		Timestamp:  timestamp,
		Tier:       TierHit,
		Ext:        "lh5",
	}
}

func rawPath(paths TierPaths, key FileKey) string {
	key.Tier = TierRaw
	return paths.Path(key)
}

func hitPath(paths TierPaths, key FileKey) string {
	key.Tier = TierHit
	return paths.Path(key)
}
