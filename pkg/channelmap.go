package viewer

import (
	"fmt"

	"golang.org/x/exp/slices"
)

// SystemGeds is the system of the germanium detector channels.
const SystemGeds = "geds"

type Channel struct {
	Name        string `db:"Name"`
	DAQID       int    `db:"DAQID"`
	System      string `db:"System"`
	String      int    `db:"String"`
	Position    int    `db:"Position"`
	Usable      bool   `db:"Usable"`
	Processable bool   `db:"Processable"`
}

// ID is the name of the channel group inside tier files.
func (c Channel) ID() string {
	return fmt.Sprintf("ch%d", c.DAQID)
}

// RawPath is the key of the channel in the processing configuration.
func (c Channel) RawPath() string {
	return c.ID() + "/raw"
}

// ChannelMap is an immutable lookup of the channels valid at one timestamp.
// ByName, ByDAQID and ByPosition are unique keys, ByString and BySystem
// return every matching channel.
type ChannelMap struct {
	channels []Channel
	byName   map[string]int
	byDAQID  map[int]int
}

func NewChannelMap(channels []Channel) ChannelMap {
	sorted := make([]Channel, len(channels))
	copy(sorted, channels)
	slices.SortFunc(sorted, func(a, b Channel) int {
		if a.String != b.String {
			return a.String - b.String
		}
		if a.Position != b.Position {
			return a.Position - b.Position
		}
		if a.Name < b.Name {
			return -1
		}
		if a.Name > b.Name {
			return 1
		}
		return 0
	})
	m := ChannelMap{
		channels: sorted,
		byName:   make(map[string]int, len(sorted)),
		byDAQID:  make(map[int]int, len(sorted)),
	}
	for i, ch := range sorted {
		m.byName[ch.Name] = i
		m.byDAQID[ch.DAQID] = i
	}
	return m
}

func (m ChannelMap) Len() int {
	return len(m.channels)
}

// Channels returns every channel ordered by string and position.
func (m ChannelMap) Channels() []Channel {
	out := make([]Channel, len(m.channels))
	copy(out, m.channels)
	return out
}

func (m ChannelMap) ByName(name string) (Channel, bool) {
	i, ok := m.byName[name]
	if !ok {
		return Channel{}, false
	}
	return m.channels[i], true
}

func (m ChannelMap) ByDAQID(id int) (Channel, bool) {
	i, ok := m.byDAQID[id]
	if !ok {
		return Channel{}, false
	}
	return m.channels[i], true
}

// ByPosition returns the detector at a position of a string.
func (m ChannelMap) ByPosition(stringNo int, position int) (Channel, bool) {
	for _, ch := range m.channels {
		if ch.System == SystemGeds && ch.String == stringNo && ch.Position == position {
			return ch, true
		}
	}
	return Channel{}, false
}

// ByString returns the detectors mounted on a string ordered by position.
func (m ChannelMap) ByString(stringNo int) []Channel {
	var out []Channel
	for _, ch := range m.channels {
		if ch.System == SystemGeds && ch.String == stringNo {
			out = append(out, ch)
		}
	}
	return out
}

func (m ChannelMap) BySystem(system string) []Channel {
	var out []Channel
	for _, ch := range m.channels {
		if ch.System == system {
			out = append(out, ch)
		}
	}
	return out
}

// Strings returns the sorted string numbers holding at least one detector.
func (m ChannelMap) Strings() []int {
	var out []int
	for _, ch := range m.channels {
		if ch.System != SystemGeds {
			continue
		}
		if !slices.Contains(out, ch.String) {
			out = append(out, ch.String)
		}
	}
	slices.Sort(out)
	return out
}

// Processable returns the detectors flagged both usable and processable.
func (m ChannelMap) Processable() []Channel {
	var out []Channel
	for _, ch := range m.channels {
		if ch.System == SystemGeds && ch.Usable && ch.Processable {
			out = append(out, ch)
		}
	}
	return out
}

func (m ChannelMap) Equal(other ChannelMap) bool {
	return slices.Equal(m.channels, other.channels)
}
