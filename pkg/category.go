package viewer

import (
	"fmt"
	"strconv"
	"strings"
)

type CategoryKind int

const (
	CategoryAll CategoryKind = iota
	CategoryAboveThreshold
	CategoryString
)

// MaxExplodedChannels caps the panels drawn for the above-threshold category
// in the exploded layout.
const MaxExplodedChannels = 12

// PlotCategory selects which channels a renderer draws: all, the ones above
// the energy threshold, or the detectors of one string.
type PlotCategory struct {
	Kind     CategoryKind
	StringNo int
}

func ParsePlotCategory(s string) (PlotCategory, error) {
	value := strings.TrimSpace(strings.ToLower(s))
	switch value {
	case "all":
		return PlotCategory{Kind: CategoryAll}, nil
	case "above threshold", "above-threshold":
		return PlotCategory{Kind: CategoryAboveThreshold}, nil
	}
	digits, found := strings.CutPrefix(value, "string:")
	if !found {
		return PlotCategory{}, fmt.Errorf("unknown plot category %q", s)
	}
	n, err := strconv.Atoi(digits)
	if err != nil || n < 0 {
		return PlotCategory{}, fmt.Errorf("invalid string in plot category %q", s)
	}
	return PlotCategory{Kind: CategoryString, StringNo: n}, nil
}

func (c PlotCategory) String() string {
	switch c.Kind {
	case CategoryAboveThreshold:
		return "above threshold"
	case CategoryString:
		return fmt.Sprintf("String:%02d", c.StringNo)
	default:
		return "all"
	}
}

// CategoryOptions lists the categories available for a channel map.
func CategoryOptions(chmap ChannelMap) []PlotCategory {
	options := []PlotCategory{{Kind: CategoryAll}, {Kind: CategoryAboveThreshold}}
	for _, s := range chmap.Strings() {
		options = append(options, PlotCategory{Kind: CategoryString, StringNo: s})
	}
	return options
}

// Channels returns the processable channels of the snapshot that belong to
// the category, in string/position order.
func (c PlotCategory) Channels(snap *EventSnapshot, threshold float64) []Channel {
	var out []Channel
	for _, ch := range snap.Processable {
		switch c.Kind {
		case CategoryAboveThreshold:
			if e, ok := snap.Energy(ch.Name); !ok || e <= threshold {
				continue
			}
		case CategoryString:
			if ch.String != c.StringNo {
				continue
			}
		}
		out = append(out, ch)
	}
	return out
}
