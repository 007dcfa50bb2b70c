package viewer

import (
	"context"
	"errors"
	"testing"
	"time"
)

func testSession(t *testing.T) (*Session, *fakeStore, *fakeBuilder) {
	t.Helper()
	keys := []FileKey{
		testKey("p03", "r001", "20230311T235840Z"),
		testKey("p03", "r001", "20230312T005840Z"),
	}
	paths := testTree(t, keys)
	store := newFakeStore()
	store.rowCounts[rawPath(paths, keys[0])] = 3
	store.rowCounts[rawPath(paths, keys[1])] = 2
	for _, key := range keys {
		store.energies[hitPath(paths, key)] = map[string][]float64{
			EnergyDataset(1001, "cuspEmax_ctc_cal"): {100, 200, 300},
			EnergyDataset(1002, "cuspEmax_ctc_cal"): {1, 2, 3},
			EnergyDataset(3001, "cuspEmax_ctc_cal"): {5000, 6000, 7000},
		}
	}
	processable := NewChannelMap(testChannels()).Processable()
	meta := &fakeMeta{channels: testChannels(), config: configFor("A", processable...)}

	config := DefaultConfiguration()
	config.TierRaw = paths.Raw
	config.TierDsp = paths.Dsp
	config.TierHit = paths.Hit
	builder := newFakeBuilder()
	return NewSession(config, meta, store, builder), store, builder
}

func TestSessionNavigation(t *testing.T) {
	session, _, _ := testSession(t)
	ctx := context.Background()

	if session.Snapshot() != nil {
		t.Fatalf("expected no snapshot before the first selection")
	}
	snap, err := session.Jump(ctx, 2)
	if err != nil {
		t.Fatalf("Jump failed: %v", err)
	}
	if snap.Row != 2 || snap.Timestamp() != "20230311T235840Z" {
		t.Fatalf("unexpected event %s", snap.Title())
	}
	snap, err = session.Next(ctx)
	if err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	if snap.Row != 0 || snap.Timestamp() != "20230312T005840Z" {
		t.Fatalf("expected first row of the second file, got %s", snap.Title())
	}
	snap, err = session.Previous(ctx)
	if err != nil {
		t.Fatalf("Previous failed: %v", err)
	}
	if session.Selection().Index != 2 || snap.Row != 2 {
		t.Fatalf("expected index 2, got %d", session.Selection().Index)
	}
}

func TestSessionFailedSelectionKeepsState(t *testing.T) {
	session, _, _ := testSession(t)
	ctx := context.Background()

	before, err := session.Jump(ctx, 4)
	if err != nil {
		t.Fatalf("Jump failed: %v", err)
	}
	_, err = session.Next(ctx)
	var selErr *SelectionError
	if !errors.As(err, &selErr) {
		t.Fatalf("expected SelectionError past the last event, got %v", err)
	}
	if session.Snapshot() != before || session.Selection().Index != 4 {
		t.Fatalf("failed selection changed the session")
	}

	if _, err := session.Jump(ctx, 0); err != nil {
		t.Fatalf("Jump failed: %v", err)
	}
	if _, err := session.Previous(ctx); !errors.As(err, &selErr) {
		t.Fatalf("expected SelectionError before the first event, got %v", err)
	}
}

func TestSessionBrowsersBeforeWarm(t *testing.T) {
	session, _, _ := testSession(t)
	ctx := context.Background()
	if _, err := session.Jump(ctx, 0); err != nil {
		t.Fatalf("Jump failed: %v", err)
	}
	if _, err := session.Browsers(ctx); !errors.Is(err, ErrBrowsersNotReady) {
		t.Fatalf("expected ErrBrowsersNotReady, got %v", err)
	}
	if _, ok := session.PoolStats(); ok {
		t.Fatalf("expected no pool stats before warm-up")
	}
}

func TestSessionWarmThenBrowse(t *testing.T) {
	session, _, builder := testSession(t)
	ctx := context.Background()
	start := Selection{Period: Wildcard, Run: Wildcard, Cycle: Wildcard}

	select {
	case err := <-session.StartWarm(ctx, start):
		if err != nil {
			t.Fatalf("warm-up failed: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("warm-up did not finish")
	}
	if !session.Ready() {
		t.Fatalf("expected session to be ready")
	}
	warmBuilds := builder.total()
	if warmBuilds != 3 {
		t.Fatalf("expected 3 handles built during warm-up, got %d", warmBuilds)
	}
	// the warm-up does not touch the session caches
	if session.Locator().RowCountReads() != 0 {
		t.Fatalf("warm-up used the session locator")
	}

	if _, err := session.Jump(ctx, 3); err != nil {
		t.Fatalf("Jump failed: %v", err)
	}
	active, err := session.Browsers(ctx)
	if err != nil {
		t.Fatalf("Browsers failed: %v", err)
	}
	if len(active) != 3 || builder.total() != warmBuilds {
		t.Fatalf("expected warm handles reused, got %d active and %d builds", len(active), builder.total())
	}
	for channel, handle := range active {
		file, row := handle.Entry()
		if file != session.Snapshot().RawFile || row != 0 {
			t.Fatalf("%s positioned at %s row %d", channel, file, row)
		}
	}
	stats, ok := session.PoolStats()
	if !ok || stats.Builds != 3 {
		t.Fatalf("unexpected pool stats %+v", stats)
	}
}

func TestSessionWarmFailure(t *testing.T) {
	session, _, builder := testSession(t)
	builder.fail["ch1002"] = errors.New("no chain")

	err := <-session.StartWarm(context.Background(), Selection{Period: Wildcard, Run: Wildcard, Cycle: Wildcard})
	var buildErr *ErrBuildBrowser
	if !errors.As(err, &buildErr) {
		t.Fatalf("expected ErrBuildBrowser, got %v", err)
	}
	if session.Ready() {
		t.Fatalf("failed warm-up must not set the ready flag")
	}
}

func TestSessionPlayStopsOnCancel(t *testing.T) {
	session, _, _ := testSession(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if _, err := session.Jump(ctx, 0); err != nil {
		t.Fatalf("Jump failed: %v", err)
	}

	steps := 0
	err := session.Play(ctx, time.Millisecond, func(snap *EventSnapshot) error {
		steps++
		if steps == 2 {
			cancel()
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Play failed: %v", err)
	}
	if steps != 2 || session.Selection().Index != 2 {
		t.Fatalf("expected 2 steps, got %d (index %d)", steps, session.Selection().Index)
	}
	if session.Histogram().Total() == 0 {
		t.Fatalf("expected histogram entries from playback")
	}
}

func TestSessionPlayStopsAtEnd(t *testing.T) {
	session, _, _ := testSession(t)
	ctx := context.Background()
	if _, err := session.Jump(ctx, 3); err != nil {
		t.Fatalf("Jump failed: %v", err)
	}

	err := session.Play(ctx, 0, nil)
	var selErr *SelectionError
	if !errors.As(err, &selErr) {
		t.Fatalf("expected SelectionError at the end of the selection, got %v", err)
	}
	if session.Selection().Index != 4 {
		t.Fatalf("expected to stop on the last event, got index %d", session.Selection().Index)
	}
}

func TestSessionWaitWarmAfterCancel(t *testing.T) {
	session, _, builder := testSession(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := session.StartWarm(ctx, Selection{Period: Wildcard, Run: Wildcard, Cycle: Wildcard})
	session.WaitWarm()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	default:
		t.Fatalf("WaitWarm returned before the warm-up reported")
	}
	if session.Ready() || builder.total() != 0 {
		t.Fatalf("cancelled warm-up built %d handles", builder.total())
	}
}
