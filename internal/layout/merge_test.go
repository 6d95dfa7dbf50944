package layout

import (
	"reflect"
	"testing"

	"schedcal/internal/model"
	"schedcal/internal/timeutil"
)

func newTestMerger() *Merger {
	return NewMerger(timeutil.NewParser(0))
}

func block(day, start, end string, count int, classes ...model.ClassOccurrence) model.TimeBlock {
	return model.TimeBlock{
		DayOfWeek: day,
		StartTime: start,
		EndTime:   end,
		Count:     count,
		Classes:   classes,
	}
}

func TestComputeMergesOverlapping(t *testing.T) {
	m := newTestMerger()
	res := m.Compute([]model.TimeBlock{
		block("Monday", "09:00", "10:00", 1, model.ClassOccurrence{ID: 1}),
		block("Monday", "09:30", "11:00", 1, model.ClassOccurrence{ID: 2}),
	})

	mon := res.Events["Monday"]
	if len(mon) != 1 {
		t.Fatalf("got %d events, want 1 merged event", len(mon))
	}
	ev := mon[0]
	if ev.Start != 540 || ev.End != 660 {
		t.Errorf("merged range = [%d, %d), want [540, 660)", ev.Start, ev.End)
	}
	if ev.Count != 2 {
		t.Errorf("merged count = %d, want 2", ev.Count)
	}
	if ev.Label != "2 classes" {
		t.Errorf("merged label = %q, want \"2 classes\"", ev.Label)
	}
	if len(ev.Classes) != 2 || ev.Classes[0].ID != 1 || ev.Classes[1].ID != 2 {
		t.Errorf("classes not concatenated in order: %+v", ev.Classes)
	}
}

func TestComputeTouchingBlocksDoNotMerge(t *testing.T) {
	m := newTestMerger()
	res := m.Compute([]model.TimeBlock{
		block("Monday", "09:00", "10:00", 1),
		block("Monday", "10:00", "11:00", 1),
	})

	mon := res.Events["Monday"]
	if len(mon) != 2 {
		t.Fatalf("got %d events, want 2 (half-open intervals do not merge)", len(mon))
	}
	if mon[0].End != 600 || mon[1].Start != 600 {
		t.Errorf("boundary mangled: [%d) then [%d", mon[0].End, mon[1].Start)
	}
}

func TestComputeEmptyInput(t *testing.T) {
	m := newTestMerger()
	res := m.Compute(nil)

	for _, day := range model.DisplayDays {
		if ev, ok := res.Events[day]; !ok || len(ev) != 0 {
			t.Errorf("day %s: want present empty event slice, got %v (present=%v)", day, ev, ok)
		}
		if gr, ok := res.Groups[day]; !ok || len(gr) != 0 {
			t.Errorf("day %s: want present empty group slice, got %v (present=%v)", day, gr, ok)
		}
	}
}

func TestComputeSortsUnorderedInput(t *testing.T) {
	m := newTestMerger()
	res := m.Compute([]model.TimeBlock{
		block("Tuesday", "14:00", "15:00", 1),
		block("Tuesday", "08:00", "09:30", 1),
		block("Tuesday", "09:00", "10:00", 1),
	})

	tue := res.Events["Tuesday"]
	if len(tue) != 2 {
		t.Fatalf("got %d events, want 2", len(tue))
	}
	if tue[0].Start != 480 || tue[0].End != 600 {
		t.Errorf("first merged event = [%d, %d), want [480, 600)", tue[0].Start, tue[0].End)
	}
	if tue[1].Start != 840 {
		t.Errorf("second event start = %d, want 840", tue[1].Start)
	}
}

// Output events within a day must be pairwise non-overlapping and cover the
// same minute union as the input.
func TestComputeOutputNonOverlappingAndCovering(t *testing.T) {
	m := newTestMerger()
	in := []model.TimeBlock{
		block("Friday", "07:30", "09:00", 2),
		block("Friday", "08:00", "08:30", 1),
		block("Friday", "08:45", "10:15", 1),
		block("Friday", "10:15", "11:00", 1),
		block("Friday", "13:00", "14:00", 3),
	}
	res := m.Compute(in)
	fri := res.Events["Friday"]

	for i := 1; i < len(fri); i++ {
		if fri[i].Start < fri[i-1].End {
			t.Errorf("events %d and %d overlap: [%d,%d) then [%d,%d)",
				i-1, i, fri[i-1].Start, fri[i-1].End, fri[i].Start, fri[i].End)
		}
	}

	parser := timeutil.NewParser(0)
	inputUnion := make(map[int]bool)
	for _, b := range in {
		for min := parser.ToMinutes(b.StartTime); min < parser.ToMinutes(b.EndTime); min++ {
			inputUnion[min] = true
		}
	}
	outputUnion := make(map[int]bool)
	for _, ev := range fri {
		for min := ev.Start; min < ev.End; min++ {
			outputUnion[min] = true
		}
	}
	if !reflect.DeepEqual(inputUnion, outputUnion) {
		t.Errorf("output union (%d minutes) differs from input union (%d minutes)",
			len(outputUnion), len(inputUnion))
	}
}

// A pass over already-merged output must be a fixed point: no further
// merging, same intervals and counts.
func TestComputeFixedPointOnMergedOutput(t *testing.T) {
	m := newTestMerger()
	first := m.Compute([]model.TimeBlock{
		block("Monday", "09:00", "10:00", 1),
		block("Monday", "09:30", "11:00", 1),
		block("Monday", "11:00", "12:00", 1),
	})

	rewrapped := make([]model.TimeBlock, 0)
	for _, ev := range first.Events["Monday"] {
		rewrapped = append(rewrapped, model.TimeBlock{
			DayOfWeek: "Monday",
			StartTime: timeutil.ToTimeString(ev.Start),
			EndTime:   timeutil.ToTimeString(ev.End),
			Count:     ev.Count,
			Label:     ev.Label,
			Classes:   ev.Classes,
		})
	}

	second := m.Compute(rewrapped)
	a, b := first.Events["Monday"], second.Events["Monday"]
	if len(a) != len(b) {
		t.Fatalf("second pass changed event count: %d -> %d", len(a), len(b))
	}
	for i := range a {
		if a[i].Start != b[i].Start || a[i].End != b[i].End || a[i].Count != b[i].Count {
			t.Errorf("event %d changed across passes: %+v -> %+v", i, a[i], b[i])
		}
	}
}

func TestComputeDeterministicIDs(t *testing.T) {
	in := []model.TimeBlock{
		block("Monday", "09:00", "10:00", 1),
		block("Wednesday", "09:00", "10:00", 1),
	}
	a := newTestMerger().Compute(in)
	b := newTestMerger().Compute(in)

	for _, day := range []string{"Monday", "Wednesday"} {
		if a.Events[day][0].ID != b.Events[day][0].ID {
			t.Errorf("day %s: ids differ across identical passes: %q vs %q",
				day, a.Events[day][0].ID, b.Events[day][0].ID)
		}
	}
	if a.Events["Monday"][0].ID == a.Events["Wednesday"][0].ID {
		t.Error("ids not unique within a pass")
	}
}

func TestComputeKeepsExplicitLabel(t *testing.T) {
	m := newTestMerger()
	in := block("Monday", "09:00", "10:00", 4)
	in.Label = "Block A"
	res := m.Compute([]model.TimeBlock{in})

	if got := res.Events["Monday"][0].Label; got != "Block A" {
		t.Errorf("label = %q, want provided label preserved", got)
	}
}

func TestComputeGroupsSingleColumn(t *testing.T) {
	m := newTestMerger()
	res := m.Compute([]model.TimeBlock{
		block("Monday", "09:00", "10:00", 1),
		block("Monday", "12:00", "13:00", 1),
	})

	if len(res.Groups["Monday"]) != 2 {
		t.Fatalf("got %d groups, want one group per merged event", len(res.Groups["Monday"]))
	}
	for _, ev := range res.Events["Monday"] {
		if ev.Col != 0 || ev.GroupCols != 1 {
			t.Errorf("event %s: col=%d groupCols=%d, want 0/1", ev.ID, ev.Col, ev.GroupCols)
		}
	}
}
