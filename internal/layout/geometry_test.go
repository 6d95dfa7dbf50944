package layout

import (
	"testing"

	"schedcal/internal/model"
	"schedcal/internal/timeutil"
)

func TestEstimateWindow(t *testing.T) {
	parser := timeutil.NewParser(0)
	prev := DefaultWindow()

	blocks := []model.TimeBlock{
		{StartTime: "08:30", EndTime: "10:00"},
		{StartTime: "13:15", EndTime: "16:45"},
	}
	w := EstimateWindow(prev, blocks, parser)

	if w.StartMinute != 8*60 {
		t.Errorf("start = %d, want %d (floor of 08:30 to the hour)", w.StartMinute, 8*60)
	}
	if w.EndMinute != 17*60 {
		t.Errorf("end = %d, want %d (ceil of 16:45 to the hour)", w.EndMinute, 17*60)
	}
}

func TestEstimateWindowClampsToInstitutionalBounds(t *testing.T) {
	parser := timeutil.NewParser(0)
	blocks := []model.TimeBlock{
		{StartTime: "05:00", EndTime: "23:30"},
	}
	w := EstimateWindow(DefaultWindow(), blocks, parser)

	if w.StartMinute != 6*60 {
		t.Errorf("start = %d, want clamp to 06:00", w.StartMinute)
	}
	if w.EndMinute != 22*60 {
		t.Errorf("end = %d, want clamp to 22:00", w.EndMinute)
	}
}

func TestEstimateWindowEmptyPreservesPrevious(t *testing.T) {
	parser := timeutil.NewParser(0)
	prev := model.ViewWindow{StartMinute: 9 * 60, EndMinute: 15 * 60}

	if w := EstimateWindow(prev, nil, parser); w != prev {
		t.Errorf("empty input changed window: %+v -> %+v", prev, w)
	}
}

func TestEstimateWindowContainsData(t *testing.T) {
	parser := timeutil.NewParser(0)
	blocks := []model.TimeBlock{
		{StartTime: "07:05", EndTime: "07:55"},
		{StartTime: "18:00", EndTime: "19:10"},
	}
	w := EstimateWindow(DefaultWindow(), blocks, parser)

	if w.StartMinute > parser.ToMinutes("07:05") {
		t.Errorf("window start %d after earliest block start", w.StartMinute)
	}
	if w.EndMinute < parser.ToMinutes("19:10") {
		t.Errorf("window end %d before latest block end", w.EndMinute)
	}
	if w.StartMinute < 6*60 || w.EndMinute > 22*60 || w.StartMinute >= w.EndMinute {
		t.Errorf("window invariant violated: %+v", w)
	}
}

func TestComputeGeometryHourHeightFloor(t *testing.T) {
	w := model.ViewWindow{StartMinute: 6 * 60, EndMinute: 22 * 60} // 16 hours

	for _, height := range []float64{0, 1, 100, 320, 639} {
		g := ComputeGeometry(w, height)
		if g.HourHeightPx < 40 {
			t.Errorf("container %.0f: hourHeight %.2f below 40px floor", height, g.HourHeightPx)
		}
	}

	// Tall container scales past the floor.
	g := ComputeGeometry(w, 1600)
	if g.HourHeightPx != 100 {
		t.Errorf("hourHeight = %.2f, want 100 for 1600px over 16h", g.HourHeightPx)
	}
	if g.SlotHeightPx != 50 {
		t.Errorf("slotHeight = %.2f, want half the hour height", g.SlotHeightPx)
	}
	if g.TotalGridHeight != 1600 {
		t.Errorf("totalGridHeight = %.2f, want 1600", g.TotalGridHeight)
	}
}

func TestComputeGeometryZeroHeightFallback(t *testing.T) {
	w := model.ViewWindow{StartMinute: 7 * 60, EndMinute: 18 * 60}
	g := ComputeGeometry(w, 0)
	if g.HourHeightPx != fallbackHourHeight {
		t.Errorf("hourHeight = %.2f, want fallback %d", g.HourHeightPx, fallbackHourHeight)
	}
}

func TestEventBoxClampsToWindow(t *testing.T) {
	w := model.ViewWindow{StartMinute: 8 * 60, EndMinute: 18 * 60}
	g := ComputeGeometry(w, 600) // 60px per hour

	ev := model.RenderEvent{Start: 7 * 60, End: 9 * 60, GroupCols: 1}
	box := g.EventBox(ev)

	if box.TopPx != 0 {
		t.Errorf("top = %.2f, want 0 for an event starting before the window", box.TopPx)
	}
	if box.HeightPx != 60 {
		t.Errorf("height = %.2f, want 60 (one visible hour)", box.HeightPx)
	}
}

func TestEventBoxHeightFloor(t *testing.T) {
	w := model.ViewWindow{StartMinute: 8 * 60, EndMinute: 18 * 60}
	g := ComputeGeometry(w, 600)

	// Entirely before the window: clamps to a degenerate span.
	ev := model.RenderEvent{Start: 6 * 60, End: 7 * 60, GroupCols: 1}
	if box := g.EventBox(ev); box.HeightPx != minEventHeightPx {
		t.Errorf("height = %.2f, want %dpx floor", box.HeightPx, minEventHeightPx)
	}
}

func TestEventBoxFullWidthSingleColumn(t *testing.T) {
	g := ComputeGeometry(DefaultWindow(), 600)
	box := g.EventBox(model.RenderEvent{Start: 9 * 60, End: 10 * 60, Col: 0, GroupCols: 1})

	if box.WidthPercent != 100 || box.LeftPercent != 0 {
		t.Errorf("box = left %.1f%% width %.1f%%, want 0%%/100%%", box.LeftPercent, box.WidthPercent)
	}
	if box.GapPx != eventGapPx {
		t.Errorf("gap = %.1f, want %d", box.GapPx, eventGapPx)
	}
}

func TestTimeSlots(t *testing.T) {
	w := model.ViewWindow{StartMinute: 9 * 60, EndMinute: 11 * 60}
	g := ComputeGeometry(w, 600)

	slots := g.TimeSlots()
	want := []int{540, 570, 600, 630}
	if len(slots) != len(want) {
		t.Fatalf("got %d slots %v, want %v", len(slots), slots, want)
	}
	for i := range want {
		if slots[i] != want[i] {
			t.Errorf("slot %d = %d, want %d", i, slots[i], want[i])
		}
	}
}

func TestHeightFeedObserveAndCancel(t *testing.T) {
	feed := NewHeightFeed(600)

	var got []int
	cancel := feed.Observe(func(h int) { got = append(got, h) })

	if len(got) != 1 || got[0] != 600 {
		t.Fatalf("expected immediate replay of last height, got %v", got)
	}

	feed.Report(720)
	feed.Report(0) // ignored
	feed.Report(-5)
	if len(got) != 2 || got[1] != 720 {
		t.Fatalf("after reports got %v, want [600 720]", got)
	}

	cancel()
	feed.Report(900)
	if len(got) != 2 {
		t.Errorf("observer fired after cancel: %v", got)
	}
	if feed.Last() != 900 {
		t.Errorf("Last() = %d, want 900", feed.Last())
	}
}
