package viewer

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// BrowserHandle is a positioned waveform reader for one channel and one
// processing configuration.
type BrowserHandle interface {
	Channel() string
	ConfigID() string
	// FindEntry moves the handle to a row of a raw-tier file and processes
	// the waveform stored there.
	FindEntry(rawFile string, row int) error
	Entry() (string, int)
	Line(param LineParameter) []float64
	TimeAxis() []float64
}

// BrowserBuilder constructs browser handles. Construction is expensive.
type BrowserBuilder interface {
	Build(ctx context.Context, channel string, configID string) (BrowserHandle, error)
}

// WaveformBrowser reads raw waveforms through a compiled processing chain.
type WaveformBrowser struct {
	channel  string
	configID string
	dataset  string
	chain    *Chain
	store    DatasetReader
	file     string
	row      int
	lines    map[LineParameter][]float64
	time     []float64
}

func (b *WaveformBrowser) Channel() string {
	return b.channel
}

func (b *WaveformBrowser) ConfigID() string {
	return b.configID
}

func (b *WaveformBrowser) Entry() (string, int) {
	return b.file, b.row
}

func (b *WaveformBrowser) FindEntry(rawFile string, row int) error {
	if rawFile == b.file && row == b.row && b.lines != nil {
		return nil
	}
	waveform, err := b.store.ReadWaveform(rawFile, b.dataset, row)
	if err != nil {
		return fmt.Errorf("error reading waveform of %s: %w", b.channel, err)
	}
	b.file = rawFile
	b.row = row
	b.lines = b.chain.Process(waveform)
	if len(b.time) != len(waveform) {
		b.time = b.chain.TimeAxis(len(waveform))
	}
	return nil
}

func (b *WaveformBrowser) Line(param LineParameter) []float64 {
	return b.lines[param]
}

func (b *WaveformBrowser) TimeAxis() []float64 {
	return b.time
}

// BrowserFactory builds WaveformBrowsers from the processing chains stored
// in the metadata service.
type BrowserFactory struct {
	meta  Metadata
	store DatasetReader
}

func NewBrowserFactory(meta Metadata, store DatasetReader) *BrowserFactory {
	return &BrowserFactory{meta: meta, store: store}
}

func (f *BrowserFactory) Build(ctx context.Context, channel string, configID string) (BrowserHandle, error) {
	daqID, err := parseChannelID(channel)
	if err != nil {
		return nil, &ErrBuildBrowser{Channel: channel, ConfigID: configID, Err: err}
	}
	def, err := f.meta.ProcessingChain(ctx, configID)
	if err != nil {
		return nil, &ErrBuildBrowser{Channel: channel, ConfigID: configID, Err: err}
	}
	chain, err := CompileChain(def)
	if err != nil {
		return nil, &ErrBuildBrowser{Channel: channel, ConfigID: configID, Err: err}
	}
	if configuration.Verbosity > 1 {
		message := fmt.Sprintf("Built browser for %s with config %s", channel, configID)
		logger.Info(message, "browser")
	}
	return &WaveformBrowser{
		channel:  channel,
		configID: configID,
		dataset:  WaveformDataset(daqID),
		chain:    chain,
		store:    f.store,
		row:      -1,
	}, nil
}

func parseChannelID(channel string) (int, error) {
	digits, found := strings.CutPrefix(channel, "ch")
	if !found {
		return 0, fmt.Errorf("channel %q does not start with ch", channel)
	}
	id, err := strconv.Atoi(digits)
	if err != nil {
		return 0, fmt.Errorf("invalid channel %q: %w", channel, err)
	}
	return id, nil
}
