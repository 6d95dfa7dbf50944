package coordinator

import (
	"context"
	"sync"
	"time"

	"schedcal/internal/layout"
	appLog "schedcal/internal/log"
	"schedcal/internal/model"
	"schedcal/internal/timeutil"
)

// DefaultFetchDebounce absorbs bursts of filter changes (a user cycling
// through dropdown options) into a single query.
const DefaultFetchDebounce = 160 * time.Millisecond

// ScheduleBackend is the slice of the backend client the fetch coordinator
// needs.
type ScheduleBackend interface {
	QuerySchedules(ctx context.Context, filters model.FilterSet) ([]model.TimeBlock, error)
	ActiveSchoolYear(ctx context.Context) (int, error)
	ActiveSemester(ctx context.Context) (int, error)
}

// Snapshot is a consistent read of the coordinator's rendered state.
type Snapshot struct {
	Filters   model.FilterSet   `json:"filters"`
	Window    model.ViewWindow  `json:"window"`
	Layout    layout.Result     `json:"layout"`
	Geometry  layout.Geometry   `json:"geometry"`
	TimeSlots []int             `json:"time_slots"`
	Loading   bool              `json:"loading"`
}

// FetchCoordinator serializes rapid filter changes into at most one in-flight
// query per debounce window and keeps the merged layout current. Responses
// are stamped with a monotonic sequence; a response whose stamp has been
// superseded is discarded, so a slow older request can never overwrite a
// newer result.
type FetchCoordinator struct {
	backend  ScheduleBackend
	parser   *timeutil.Parser
	merger   *layout.Merger
	debounce *Debouncer

	unobserve func()

	mu              sync.Mutex
	filters         model.FilterSet
	raw             []model.TimeBlock
	window          model.ViewWindow
	result          layout.Result
	containerHeight int
	loading         bool
	seq             uint64
}

// NewFetchCoordinator wires a coordinator to its backend and size source.
// debounce <= 0 selects DefaultFetchDebounce.
func NewFetchCoordinator(backend ScheduleBackend, parser *timeutil.Parser, sizes layout.SizeObserver, debounce time.Duration) *FetchCoordinator {
	if debounce <= 0 {
		debounce = DefaultFetchDebounce
	}

	f := &FetchCoordinator{
		backend:  backend,
		parser:   parser,
		merger:   layout.NewMerger(parser),
		debounce: NewDebouncer(debounce),
		window:   layout.DefaultWindow(),
		loading:  true,
	}
	f.result = f.merger.Compute(nil)

	// Geometry recompute on resize is just storing the new height; the
	// snapshot derives sizing from it on demand, so repeated reports are
	// idempotent.
	f.unobserve = sizes.Observe(func(heightPx int) {
		f.mu.Lock()
		f.containerHeight = heightPx
		f.mu.Unlock()
	})

	return f
}

// ApplyFilters replaces the filter state and schedules a debounced refetch.
func (f *FetchCoordinator) ApplyFilters(filters model.FilterSet) {
	f.mu.Lock()
	f.filters = filters
	f.mu.Unlock()
	f.Refresh()
}

// Filters returns the current filter state, including any default-filled
// school year and semester.
func (f *FetchCoordinator) Filters() model.FilterSet {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.filters
}

// Refresh schedules a debounced fetch with the current filters. Calling it
// again within the quiet period supersedes the pending fetch.
func (f *FetchCoordinator) Refresh() {
	f.debounce.Trigger(func() {
		f.doFetch(context.Background())
	})
}

// doFetch runs one fetch cycle: default-fill unset year/semester filters,
// query, replace the raw set, and recompute window and layout. It always
// finalizes, so a failed fetch still leaves the view renderable (empty) and
// clears the loading flag.
func (f *FetchCoordinator) doFetch(ctx context.Context) {
	f.mu.Lock()
	f.loading = true
	f.seq++
	stamp := f.seq
	filters := f.filters
	f.mu.Unlock()

	if filters.SchoolYearID == 0 {
		if id, err := f.backend.ActiveSchoolYear(ctx); err == nil && id != 0 {
			filters.SchoolYearID = id
		} else if err != nil {
			appLog.Error("active school year lookup failed", err)
		}
	}
	if filters.SemesterID == 0 {
		if id, err := f.backend.ActiveSemester(ctx); err == nil && id != 0 {
			filters.SemesterID = id
		} else if err != nil {
			appLog.Error("active semester lookup failed", err)
		}
	}

	blocks, err := f.backend.QuerySchedules(ctx, filters)

	f.mu.Lock()
	defer f.mu.Unlock()

	if stamp != f.seq {
		// A newer fetch was issued while this one was in flight. Its
		// completion will finalize; this result is stale.
		appLog.Debug("discarding stale schedule response", "stamp", stamp, "current", f.seq)
		return
	}

	// Persist filled defaults so later queries carry them.
	f.filters = filters

	if err != nil {
		appLog.Warn("could not fetch schedules; rendering empty calendar", "reason", err)
		f.raw = nil
	} else {
		f.raw = blocks
	}

	f.window = layout.EstimateWindow(f.window, f.raw, f.parser)
	f.result = f.merger.Compute(f.raw)
	f.loading = false
}

// Snapshot derives the current renderable state. Geometry is recomputed from
// the latest window and container height on every call; it is pure, so this
// is safe to call at any frequency.
func (f *FetchCoordinator) Snapshot() Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()

	geom := layout.ComputeGeometry(f.window, float64(f.containerHeight))
	return Snapshot{
		Filters:   f.filters,
		Window:    f.window,
		Layout:    f.result,
		Geometry:  geom,
		TimeSlots: geom.TimeSlots(),
		Loading:   f.loading,
	}
}

// RawBlocks returns the last fetched raw set. Exports consume this rather
// than the positioned layout.
func (f *FetchCoordinator) RawBlocks() []model.TimeBlock {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.raw
}

// Close cancels any pending fetch timer and detaches the size observer.
// In-flight requests are not interrupted; their responses are discarded by
// the sequence stamp.
func (f *FetchCoordinator) Close() {
	f.debounce.Stop()
	if f.unobserve != nil {
		f.unobserve()
	}
	f.mu.Lock()
	f.seq++ // invalidate anything still in flight
	f.mu.Unlock()
}
