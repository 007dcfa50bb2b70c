package viewer

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/exp/slices"
)

// Transition is what happened to a channel during a pool refresh.
type Transition int

const (
	// TransitionKept: still required with the same configuration.
	TransitionKept Transition = iota
	// TransitionBuilt: newly required, no retired handle, constructed.
	TransitionBuilt
	// TransitionResurrected: newly required, promoted from the retired set.
	TransitionResurrected
	// TransitionReconfigured: still required with another configuration; the
	// old handle was retired and the new one resurrected or built.
	TransitionReconfigured
	// TransitionRetired: no longer required, moved to the retired set.
	TransitionRetired
)

func (t Transition) String() string {
	switch t {
	case TransitionKept:
		return "kept"
	case TransitionBuilt:
		return "built"
	case TransitionResurrected:
		return "resurrected"
	case TransitionReconfigured:
		return "reconfigured"
	case TransitionRetired:
		return "retired"
	default:
		return "unknown"
	}
}

type PoolStats struct {
	Builds        int
	Resurrections int
	Retirements   int
}

// BrowserPool keeps one active handle per required channel. Handles that stop
// being required, or whose configuration changes, are retired under
// (channel, config id) and promoted back without reconstruction when the same
// configuration is required again. Retired handles are never evicted.
//
// The pool is not safe for concurrent use.
type BrowserPool struct {
	builder          BrowserBuilder
	active           map[string]BrowserHandle
	retired          map[string]map[string]BrowserHandle
	currentConfigIDs map[string]string
	stats            PoolStats
}

func NewBrowserPool(builder BrowserBuilder) *BrowserPool {
	return &BrowserPool{
		builder:          builder,
		active:           make(map[string]BrowserHandle),
		retired:          make(map[string]map[string]BrowserHandle),
		currentConfigIDs: make(map[string]string),
	}
}

// Refresh brings the active set in line with the processable channels of the
// snapshot and moves every active handle to the snapshot row.
func (p *BrowserPool) Refresh(ctx context.Context, snap *EventSnapshot, configs ProcessingConfig) (map[string]BrowserHandle, error) {
	required := make(map[string]string, len(snap.Processable))
	for _, ch := range snap.Processable {
		configID, ok := configs[ch.RawPath()]
		if !ok {
			return nil, &ErrBuildBrowser{Channel: ch.ID(), Err: errors.New("no processing chain entry")}
		}
		required[ch.ID()] = configID
	}
	if _, err := p.Reconcile(ctx, required); err != nil {
		return nil, err
	}
	for _, channel := range sortedKeys(p.active) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := p.active[channel].FindEntry(snap.RawFile, snap.Row); err != nil {
			return nil, err
		}
	}
	return p.Active(), nil
}

// Reconcile applies the transitions for a required channel -> config id set
// and reports the transition taken by every channel it touched.
func (p *BrowserPool) Reconcile(ctx context.Context, required map[string]string) (map[string]Transition, error) {
	transitions := make(map[string]Transition, len(required))

	for _, channel := range sortedKeys(p.active) {
		if _, ok := required[channel]; !ok {
			p.retire(channel)
			transitions[channel] = TransitionRetired
		}
	}

	for _, channel := range sortedKeys(required) {
		if err := ctx.Err(); err != nil {
			return transitions, err
		}
		configID := required[channel]
		if _, ok := p.active[channel]; ok {
			if p.currentConfigIDs[channel] == configID {
				transitions[channel] = TransitionKept
				continue
			}
			p.retire(channel)
			if _, err := p.activate(ctx, channel, configID); err != nil {
				return transitions, err
			}
			transitions[channel] = TransitionReconfigured
			continue
		}
		t, err := p.activate(ctx, channel, configID)
		if err != nil {
			return transitions, err
		}
		transitions[channel] = t
	}

	if configuration.Verbosity > 0 {
		message := fmt.Sprintf("Browser pool: %d active, %d built, %d resurrected, %d retired",
			len(p.active), p.stats.Builds, p.stats.Resurrections, p.stats.Retirements)
		logger.Info(message, "pool")
	}
	return transitions, nil
}

// activate promotes a retired handle for (channel, configID) or builds one.
func (p *BrowserPool) activate(ctx context.Context, channel string, configID string) (Transition, error) {
	if bucket, ok := p.retired[channel]; ok {
		if handle, ok := bucket[configID]; ok {
			delete(bucket, configID)
			if len(bucket) == 0 {
				delete(p.retired, channel)
			}
			p.active[channel] = handle
			p.currentConfigIDs[channel] = configID
			p.stats.Resurrections++
			return TransitionResurrected, nil
		}
	}
	handle, err := p.builder.Build(ctx, channel, configID)
	if err != nil {
		return TransitionBuilt, err
	}
	p.active[channel] = handle
	p.currentConfigIDs[channel] = configID
	p.stats.Builds++
	return TransitionBuilt, nil
}

func (p *BrowserPool) retire(channel string) {
	handle := p.active[channel]
	configID := p.currentConfigIDs[channel]
	bucket, ok := p.retired[channel]
	if !ok {
		bucket = make(map[string]BrowserHandle)
		p.retired[channel] = bucket
	}
	bucket[configID] = handle
	delete(p.active, channel)
	delete(p.currentConfigIDs, channel)
	p.stats.Retirements++
}

// Active returns a copy of the active channel -> handle mapping.
func (p *BrowserPool) Active() map[string]BrowserHandle {
	out := make(map[string]BrowserHandle, len(p.active))
	for channel, handle := range p.active {
		out[channel] = handle
	}
	return out
}

func (p *BrowserPool) ConfigID(channel string) (string, bool) {
	id, ok := p.currentConfigIDs[channel]
	return id, ok
}

// Retired returns the handle retired for a channel under a configuration.
func (p *BrowserPool) Retired(channel string, configID string) (BrowserHandle, bool) {
	handle, ok := p.retired[channel][configID]
	return handle, ok
}

func (p *BrowserPool) RetiredCount() int {
	n := 0
	for _, bucket := range p.retired {
		n += len(bucket)
	}
	return n
}

func (p *BrowserPool) Stats() PoolStats {
	return p.stats
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
