package coordinator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"schedcal/internal/layout"
	"schedcal/internal/model"
	"schedcal/internal/timeutil"
)

// fakeScheduleBackend records queries and can fail, block, or serve canned
// blocks.
type fakeScheduleBackend struct {
	mu         sync.Mutex
	queries    []model.FilterSet
	blocks     []model.TimeBlock
	queryErr   error
	activeYear int
	activeSem  int
	// blockCh, when non-nil, is received from before answering a query; the
	// test releases requests in a chosen order.
	blockCh chan struct{}
}

func (b *fakeScheduleBackend) QuerySchedules(_ context.Context, filters model.FilterSet) ([]model.TimeBlock, error) {
	b.mu.Lock()
	b.queries = append(b.queries, filters)
	ch := b.blockCh
	blocks, err := b.blocks, b.queryErr
	b.mu.Unlock()

	if ch != nil {
		<-ch
	}
	return blocks, err
}

func (b *fakeScheduleBackend) ActiveSchoolYear(context.Context) (int, error) {
	return b.activeYear, nil
}

func (b *fakeScheduleBackend) ActiveSemester(context.Context) (int, error) {
	return b.activeSem, nil
}

func (b *fakeScheduleBackend) queryCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.queries)
}

func (b *fakeScheduleBackend) lastQuery() model.FilterSet {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.queries[len(b.queries)-1]
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func newTestCoordinator(backend ScheduleBackend) *FetchCoordinator {
	return NewFetchCoordinator(backend, timeutil.NewParser(0), layout.NewHeightFeed(600), 20*time.Millisecond)
}

func TestBurstOfFilterChangesIssuesOneFetch(t *testing.T) {
	backend := &fakeScheduleBackend{activeYear: 1, activeSem: 1}
	coord := newTestCoordinator(backend)
	defer coord.Close()

	coord.ApplyFilters(model.FilterSet{CourseID: 1})
	coord.ApplyFilters(model.FilterSet{CourseID: 2})
	coord.ApplyFilters(model.FilterSet{CourseID: 3})

	waitFor(t, time.Second, func() bool { return backend.queryCount() >= 1 })
	// Give a superseded timer a chance to misfire.
	time.Sleep(60 * time.Millisecond)

	if n := backend.queryCount(); n != 1 {
		t.Fatalf("issued %d fetches, want exactly 1", n)
	}
	if got := backend.lastQuery().CourseID; got != 3 {
		t.Errorf("fetch used course_id %d, want the last applied filter 3", got)
	}
}

func TestFetchDefaultFillsActiveYearAndSemester(t *testing.T) {
	backend := &fakeScheduleBackend{activeYear: 7, activeSem: 2}
	coord := newTestCoordinator(backend)
	defer coord.Close()

	coord.Refresh()
	waitFor(t, time.Second, func() bool { return !coord.Snapshot().Loading })

	q := backend.lastQuery()
	if q.SchoolYearID != 7 || q.SemesterID != 2 {
		t.Errorf("query filters = %+v, want default-filled year 7 / semester 2", q)
	}
	// Filled defaults persist into the filter state.
	f := coord.Filters()
	if f.SchoolYearID != 7 || f.SemesterID != 2 {
		t.Errorf("filters after fetch = %+v, defaults not written back", f)
	}
}

func TestFetchSuccessReplacesLayoutAndWindow(t *testing.T) {
	backend := &fakeScheduleBackend{
		activeYear: 1, activeSem: 1,
		blocks: []model.TimeBlock{
			{DayOfWeek: "Monday", StartTime: "09:00", EndTime: "10:00", Count: 1},
			{DayOfWeek: "Monday", StartTime: "09:30", EndTime: "11:00", Count: 1},
		},
	}
	coord := newTestCoordinator(backend)
	defer coord.Close()

	coord.Refresh()
	waitFor(t, time.Second, func() bool { return !coord.Snapshot().Loading })

	snap := coord.Snapshot()
	mon := snap.Layout.Events["Monday"]
	if len(mon) != 1 || mon[0].Start != 540 || mon[0].End != 660 || mon[0].Count != 2 {
		t.Errorf("unexpected merged layout: %+v", mon)
	}
	if snap.Window.StartMinute != 9*60 || snap.Window.EndMinute != 11*60 {
		t.Errorf("window = %+v, want 09:00-11:00", snap.Window)
	}
}

func TestFetchFailureRendersEmptyAndClearsLoading(t *testing.T) {
	backend := &fakeScheduleBackend{
		activeYear: 1, activeSem: 1,
		queryErr: errors.New("backend down"),
	}
	coord := newTestCoordinator(backend)
	defer coord.Close()

	coord.Refresh()
	waitFor(t, time.Second, func() bool { return !coord.Snapshot().Loading })

	snap := coord.Snapshot()
	for _, day := range model.DisplayDays {
		if len(snap.Layout.Events[day]) != 0 {
			t.Errorf("day %s not empty after failed fetch", day)
		}
	}
	if snap.Loading {
		t.Error("loading flag stuck after failure")
	}
}

func TestStaleResponseDiscarded(t *testing.T) {
	release := make(chan struct{})
	backend := &fakeScheduleBackend{
		activeYear: 1, activeSem: 1,
		blocks:  []model.TimeBlock{{DayOfWeek: "Monday", StartTime: "08:00", EndTime: "09:00", Count: 1}},
		blockCh: release,
	}
	coord := newTestCoordinator(backend)
	defer coord.Close()

	// First fetch fires and blocks inside the backend.
	coord.ApplyFilters(model.FilterSet{CourseID: 1})
	waitFor(t, time.Second, func() bool { return backend.queryCount() == 1 })

	// Second fetch supersedes it while it is in flight, with richer data.
	backend.mu.Lock()
	backend.blocks = []model.TimeBlock{
		{DayOfWeek: "Monday", StartTime: "08:00", EndTime: "09:00", Count: 1},
		{DayOfWeek: "Monday", StartTime: "10:00", EndTime: "11:00", Count: 1},
	}
	backend.mu.Unlock()
	coord.ApplyFilters(model.FilterSet{CourseID: 2})
	waitFor(t, time.Second, func() bool { return backend.queryCount() == 2 })

	// Release both: the newer request lands first, then the stale one.
	release <- struct{}{} // second request (FIFO order not guaranteed; release both)
	release <- struct{}{}

	waitFor(t, time.Second, func() bool { return !coord.Snapshot().Loading })
	time.Sleep(20 * time.Millisecond)

	// Whatever the completion order, the final state must reflect the newer
	// request's two blocks, not the older single-block payload.
	mon := coord.Snapshot().Layout.Events["Monday"]
	if len(mon) != 2 {
		t.Errorf("layout shows %d events; stale single-block response overwrote the newer result", len(mon))
	}
}

func TestCloseCancelsPendingFetch(t *testing.T) {
	backend := &fakeScheduleBackend{activeYear: 1, activeSem: 1}
	coord := newTestCoordinator(backend)

	coord.Refresh()
	coord.Close()
	time.Sleep(60 * time.Millisecond)

	if n := backend.queryCount(); n != 0 {
		t.Errorf("%d fetches fired after Close, want 0", n)
	}
}

func TestResizeRecomputesGeometry(t *testing.T) {
	backend := &fakeScheduleBackend{activeYear: 1, activeSem: 1}
	feed := layout.NewHeightFeed(0)
	coord := NewFetchCoordinator(backend, timeutil.NewParser(0), feed, 20*time.Millisecond)
	defer coord.Close()

	before := coord.Snapshot().Geometry
	feed.Report(2200) // default window is 11 hours: 200px per hour
	after := coord.Snapshot().Geometry

	if before.HourHeightPx == after.HourHeightPx {
		t.Fatal("geometry did not react to resize")
	}
	if after.HourHeightPx != 200 {
		t.Errorf("hourHeight = %.2f, want 200", after.HourHeightPx)
	}

	// Idempotent: re-reporting the same height changes nothing.
	feed.Report(2200)
	if again := coord.Snapshot().Geometry; again != after {
		t.Errorf("repeated resize report changed geometry: %+v -> %+v", after, again)
	}
}
