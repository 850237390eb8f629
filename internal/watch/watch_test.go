// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/pdiddy/fare-scout/internal/history"
	"github.com/pdiddy/fare-scout/internal/itinerary"
	"github.com/pdiddy/fare-scout/pkg/types"
)

type fakeDiscoverer struct {
	mu      sync.Mutex
	amounts map[string]float64
	errs    map[string]error
	calls   []string
}

func (f *fakeDiscoverer) Discover(_ context.Context, q types.ItineraryQuery) (types.DiscoveryResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, q.Key())
	if err := f.errs[q.Key()]; err != nil {
		return types.DiscoveryResult{Query: q}, err
	}
	res := types.DiscoveryResult{Query: q, Tier: types.TierNone, Reason: types.ReasonNoCandidates}
	if a, ok := f.amounts[q.Key()]; ok {
		res = types.DiscoveryResult{Query: q, Found: true, Amount: a, Tier: types.TierPerfect, Site: "aggregator"}
	}
	return res, nil
}

func (f *fakeDiscoverer) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func entry(id, date string) itinerary.Entry {
	return itinerary.Entry{ItineraryQuery: types.ItineraryQuery{
		ID: id, Origin: "SLC", Destination: "DEN", OutboundDate: date,
	}}
}

func staticSource(entries ...itinerary.Entry) Source {
	return func() ([]itinerary.Entry, error) { return entries, nil }
}

func newRunner(t *testing.T, d Discoverer, rec Recorder, src Source) *Runner {
	t.Helper()
	r := New(d, rec, src, types.WatchConfig{RecheckInterval: 6 * time.Hour}, nil)
	r.limiter = rate.NewLimiter(rate.Inf, 1)
	return r
}

func newStore(t *testing.T) *history.Store {
	t.Helper()
	s, err := history.NewStore(types.HistoryConfig{DataDir: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRunOnce(t *testing.T) {
	d := &fakeDiscoverer{
		amounts: map[string]float64{"a": 240},
		errs:    map[string]error{"c": errors.New("all sites unreachable")},
	}
	store := newStore(t)
	r := newRunner(t, d, store, staticSource(entry("a", "2024-08-04"), entry("b", "2024-08-05"), entry("c", "2024-08-06")))

	var seen []string
	r.OnOutcome = func(o Outcome) { seen = append(seen, o.Key) }

	rep, err := r.RunOnce(context.Background())
	require.NoError(t, err)
	require.Len(t, rep.Outcomes, 3)
	assert.Equal(t, []string{"a", "b", "c"}, seen)

	priced, notFound, skipped, failed := rep.Counts()
	assert.Equal(t, 1, priced)
	assert.Equal(t, 1, notFound)
	assert.Equal(t, 0, skipped)
	assert.Equal(t, 1, failed)

	latest, ok, err := store.Latest(context.Background(), "a")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 240.0, latest.Amount)

	_, ok, err = store.Latest(context.Background(), "c")
	require.NoError(t, err)
	assert.False(t, ok, "failed discoveries are not recorded")
}

func TestRunOnceSkipsRecentlyChecked(t *testing.T) {
	d := &fakeDiscoverer{amounts: map[string]float64{"a": 240, "b": 300}}
	store := newStore(t)
	now := time.Date(2024, 7, 1, 9, 0, 0, 0, time.UTC)

	_, _, err := store.Record(context.Background(), types.DiscoveryResult{
		Query: entry("a", "2024-08-04").ItineraryQuery, Found: true, Amount: 250, CheckedAt: now.Add(-time.Hour),
	})
	require.NoError(t, err)
	_, _, err = store.Record(context.Background(), types.DiscoveryResult{
		Query: entry("b", "2024-08-05").ItineraryQuery, Found: true, Amount: 300, CheckedAt: now.Add(-time.Hour),
	})
	require.NoError(t, err)

	b := entry("b", "2024-08-05")
	b.RecheckHours = 0.5
	r := newRunner(t, d, store, staticSource(entry("a", "2024-08-04"), b))
	r.now = func() time.Time { return now }

	rep, err := r.RunOnce(context.Background())
	require.NoError(t, err)
	require.Len(t, rep.Outcomes, 2)
	assert.True(t, rep.Outcomes[0].Skipped)
	assert.False(t, rep.Outcomes[1].Skipped, "per-entry recheck interval is shorter")
	assert.Equal(t, []string{"b"}, d.calls)
	assert.Equal(t, history.MovementNone, rep.Outcomes[1].Change.Movement)
}

func TestRunOnceReportsMovement(t *testing.T) {
	d := &fakeDiscoverer{amounts: map[string]float64{"a": 200}}
	store := newStore(t)
	r := New(d, store, staticSource(entry("a", "2024-08-04")), types.WatchConfig{RecheckInterval: -1}, nil)
	r.limiter = rate.NewLimiter(rate.Inf, 1)

	_, err := r.RunOnce(context.Background())
	require.NoError(t, err)

	d.amounts["a"] = 180
	rep, err := r.RunOnce(context.Background())
	require.NoError(t, err)
	require.Len(t, rep.Outcomes, 1)
	assert.Equal(t, history.MovementDecrease, rep.Outcomes[0].Change.Movement)
	assert.Equal(t, 200.0, rep.Outcomes[0].Change.Previous)
}

func TestRunOnceWithoutRecorder(t *testing.T) {
	d := &fakeDiscoverer{amounts: map[string]float64{"a": 200}}
	r := newRunner(t, d, nil, staticSource(entry("a", "2024-08-04")))

	rep, err := r.RunOnce(context.Background())
	require.NoError(t, err)
	require.Len(t, rep.Outcomes, 1)
	assert.True(t, rep.Outcomes[0].Result.Found)
}

func TestRunOnceSourceError(t *testing.T) {
	r := newRunner(t, &fakeDiscoverer{}, nil, FileSource(filepath.Join(t.TempDir(), "missing.yaml")))
	_, err := r.RunOnce(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestRunOnceCanceled(t *testing.T) {
	d := &fakeDiscoverer{}
	r := newRunner(t, d, nil, staticSource(entry("a", "2024-08-04")))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.RunOnce(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, d.count())
}

func TestFileSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "itineraries.yaml")
	body := "itineraries:\n" +
		"  - {id: active, origin: SLC, destination: DEN, outbound_date: \"2024-08-04\"}\n" +
		"  - {id: paused, origin: SLC, destination: DEN, outbound_date: \"2024-08-05\", enabled: false}\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	entries, err := FileSource(path)()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "active", entries[0].Key())
}

func TestScheduleInvalidSpec(t *testing.T) {
	r := newRunner(t, &fakeDiscoverer{}, nil, staticSource())
	err := r.Schedule(context.Background(), "not a schedule")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing schedule")
}

func TestScheduleRunsUntilCanceled(t *testing.T) {
	d := &fakeDiscoverer{amounts: map[string]float64{"a": 200}}
	r := newRunner(t, d, nil, staticSource(entry("a", "2024-08-04")))

	ctx, cancel := context.WithTimeout(context.Background(), 2500*time.Millisecond)
	defer cancel()

	require.NoError(t, r.Schedule(ctx, "@every 1s"))
	assert.GreaterOrEqual(t, d.count(), 1)
}
