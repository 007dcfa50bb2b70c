package main

import (
	"fmt"

	viewer "github.com/legend-exp/leds_go/pkg"
)

// plotGroup is one legend entry: a string in the "all" category, a detector
// otherwise.
type plotGroup struct {
	Label    string
	Color    int
	Channels []viewer.Channel
}

// plotGroups splits the channels of a category into legend entries.
func plotGroups(snap *viewer.EventSnapshot, category viewer.PlotCategory, threshold float64) []plotGroup {
	channels := category.Channels(snap, threshold)
	strings := snap.ChannelMap.Strings()
	colorOf := func(stringNo int) int {
		for i, s := range strings {
			if s == stringNo {
				return i
			}
		}
		return 0
	}

	var groups []plotGroup
	if category.Kind == viewer.CategoryAll {
		byString := make(map[int]int)
		for _, ch := range channels {
			i, ok := byString[ch.String]
			if !ok {
				i = len(groups)
				byString[ch.String] = i
				groups = append(groups, plotGroup{
					Label: viewer.PlotCategory{Kind: viewer.CategoryString, StringNo: ch.String}.String(),
					Color: colorOf(ch.String),
				})
			}
			groups[i].Channels = append(groups[i].Channels, ch)
		}
		return groups
	}
	for _, ch := range channels {
		groups = append(groups, plotGroup{
			Label:    ch.Name,
			Color:    colorOf(ch.String),
			Channels: []viewer.Channel{ch},
		})
	}
	return groups
}

// legendState tracks the legend entries hidden by the user. It belongs to
// the view and survives event changes; labels that disappear are ignored.
// Entries are addressed by the digits 1-9 within the current page.
type legendState struct {
	hidden   map[string]bool
	isolated string
	page     int
}

const legendPageSize = 9

func newLegendState() *legendState {
	return &legendState{hidden: make(map[string]bool)}
}

func (l *legendState) Visible(label string) bool {
	return !l.hidden[label]
}

// Toggle flips the visibility of one entry.
func (l *legendState) Toggle(label string) {
	l.isolated = ""
	if l.hidden[label] {
		delete(l.hidden, label)
		return
	}
	l.hidden[label] = true
}

// Isolate shows only label among labels. Isolating the isolated entry again
// shows every entry.
func (l *legendState) Isolate(label string, labels []string) {
	if l.isolated == label {
		l.Reset()
		return
	}
	l.hidden = make(map[string]bool, len(labels))
	for _, other := range labels {
		if other != label {
			l.hidden[other] = true
		}
	}
	l.isolated = label
}

func (l *legendState) Reset() {
	l.hidden = make(map[string]bool)
	l.isolated = ""
}

// NextPage moves to the next page of n entries, wrapping to the first.
func (l *legendState) NextPage(n int) {
	pages := (n + legendPageSize - 1) / legendPageSize
	if pages <= 1 {
		l.page = 0
		return
	}
	l.page = (l.page + 1) % pages
}

func (l *legendState) FirstPage() {
	l.page = 0
}

// Entry returns the label addressed by digit on the current page.
func (l *legendState) Entry(labels []string, digit int) (string, bool) {
	if digit < 1 || digit > legendPageSize {
		return "", false
	}
	i := l.page*legendPageSize + digit - 1
	if i >= len(labels) {
		return "", false
	}
	return labels[i], true
}

func groupLabels(groups []plotGroup) []string {
	labels := make([]string, len(groups))
	for i, g := range groups {
		labels[i] = g.Label
	}
	return labels
}

func renderLegend(groups []plotGroup, legend *legendState) string {
	parts := make([]string, 0, len(groups)+1)
	first := legend.page * legendPageSize
	for i, g := range groups {
		label := g.Label
		if i >= first && i < first+legendPageSize {
			label = fmt.Sprintf("%d:%s", i-first+1, g.Label)
		}
		style := colorStyle(g.Color)
		if !legend.Visible(g.Label) {
			style = dimStyle
		}
		parts = append(parts, style.Render("━ "+label))
	}
	if pages := (len(groups) + legendPageSize - 1) / legendPageSize; pages > 1 {
		parts = append(parts, dimStyle.Render(fmt.Sprintf("(page %d/%d)", legend.page+1, pages)))
	}
	return joinWrapped(parts, "  ")
}
