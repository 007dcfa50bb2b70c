package viewer

import (
	"context"
	"fmt"
	"math"
)

// EventSnapshot is one resolved event. Energies holds a value for every
// channel of the map: nil when the channel is not processed, 0 when the
// stored reading is NaN.
type EventSnapshot struct {
	Location
	Selection   Selection
	ChannelMap  ChannelMap
	Processable []Channel
	Energies    map[string]*float64
}

func (s *EventSnapshot) Timestamp() string {
	return s.Key.Timestamp
}

func (s *EventSnapshot) Title() string {
	return fmt.Sprintf("file:%s idx:%d", s.Key.Label(), s.Row)
}

// Energy returns the energy of a channel and whether it was processed.
func (s *EventSnapshot) Energy(name string) (float64, bool) {
	e, ok := s.Energies[name]
	if !ok || e == nil {
		return 0, false
	}
	return *e, true
}

// ProcessableIDs returns the ch<daqid> names of the processable channels.
func (s *EventSnapshot) ProcessableIDs() []string {
	ids := make([]string, len(s.Processable))
	for i, ch := range s.Processable {
		ids[i] = ch.ID()
	}
	return ids
}

// SnapshotBuilder reads the channel map and energies of located events. The
// channel map is only fetched again when the file timestamp changes.
type SnapshotBuilder struct {
	meta            Metadata
	store           DatasetReader
	energyParameter string
	lastTimestamp   string
	lastMap         ChannelMap
	mapFetches      int
}

func NewSnapshotBuilder(meta Metadata, store DatasetReader, energyParameter string) *SnapshotBuilder {
	return &SnapshotBuilder{meta: meta, store: store, energyParameter: energyParameter}
}

// ChannelMapFetches is the number of channel maps requested from metadata.
func (b *SnapshotBuilder) ChannelMapFetches() int {
	return b.mapFetches
}

func (b *SnapshotBuilder) Build(ctx context.Context, sel Selection, loc Location) (*EventSnapshot, error) {
	chmap, err := b.channelMap(ctx, loc.Key.Timestamp)
	if err != nil {
		return nil, err
	}
	processable := chmap.Processable()
	isProcessable := make(map[string]bool, len(processable))
	for _, ch := range processable {
		isProcessable[ch.Name] = true
	}

	energies := make(map[string]*float64, chmap.Len())
	for _, ch := range chmap.Channels() {
		if !isProcessable[ch.Name] {
			energies[ch.Name] = nil
			continue
		}
		dataset := EnergyDataset(ch.DAQID, b.energyParameter)
		value, err := b.store.ReadScalar(loc.HitFile, dataset, loc.Row)
		if err != nil {
			return nil, fmt.Errorf("error reading energy of %s: %w", ch.Name, err)
		}
		// NaN means no signal in the channel
		if math.IsNaN(value) {
			value = 0
		}
		energies[ch.Name] = &value
	}

	if configuration.Verbosity > 1 {
		message := fmt.Sprintf("Read %d energies from %s", len(processable), loc.Key.Label())
		logger.Info(message, "snapshot")
	}
	return &EventSnapshot{
		Location:    loc,
		Selection:   sel,
		ChannelMap:  chmap,
		Processable: processable,
		Energies:    energies,
	}, nil
}

func (b *SnapshotBuilder) channelMap(ctx context.Context, timestamp string) (ChannelMap, error) {
	if b.mapFetches > 0 && timestamp == b.lastTimestamp {
		return b.lastMap, nil
	}
	chmap, err := b.meta.ChannelMapAt(ctx, timestamp)
	if err != nil {
		return ChannelMap{}, err
	}
	b.mapFetches++
	b.lastTimestamp = timestamp
	b.lastMap = chmap
	return chmap, nil
}
