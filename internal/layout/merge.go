// Package layout turns raw backend time blocks into positioned calendar
// events: per-day interval merging, view-window estimation, and pixel
// geometry for a variable-height viewport.
package layout

import (
	"fmt"
	"sort"

	"schedcal/internal/model"
	"schedcal/internal/timeutil"
)

// Result is the output of one layout pass: merged events and overlap groups
// keyed by display day. Both maps always contain every display day, empty
// days included. A Result replaces its predecessor wholesale.
type Result struct {
	Events map[string][]model.RenderEvent   `json:"events"`
	Groups map[string][][]model.RenderEvent `json:"groups"`
}

// Merger groups per-day raw blocks into merged, non-overlapping render
// events. One Merger can be shared across passes; it carries only the
// time-string parser.
type Merger struct {
	parser *timeutil.Parser
}

// NewMerger creates a Merger using the given parser for "HH:MM" conversion.
func NewMerger(parser *timeutil.Parser) *Merger {
	return &Merger{parser: parser}
}

// Compute partitions blocks by day and merges strictly-overlapping intervals
// within each day. Half-open semantics: a block starting exactly when the
// previous one ends does not merge. Counts are summed and class lists
// concatenated in original relative order.
//
// Event ids are a deterministic pass-scoped sequence, so two passes over the
// same input produce identical output.
func (m *Merger) Compute(blocks []model.TimeBlock) Result {
	byDay := make(map[string][]model.RenderEvent)
	seq := 0

	for i := range blocks {
		item := &blocks[i]
		day := item.DayOfWeek

		ev := model.RenderEvent{
			ID:        fmt.Sprintf("%s-%s-%s-%d", day, item.StartTime, item.EndTime, seq),
			Label:     item.Label,
			Start:     m.parser.ToMinutes(item.StartTime),
			End:       m.parser.ToMinutes(item.EndTime),
			Count:     item.Count,
			Col:       0,
			GroupCols: 1,
			Classes:   item.Classes,
			Raw:       item,
		}
		seq++
		byDay[day] = append(byDay[day], ev)
	}

	out := Result{
		Events: make(map[string][]model.RenderEvent, len(model.DisplayDays)),
		Groups: make(map[string][][]model.RenderEvent, len(model.DisplayDays)),
	}

	for _, day := range model.DisplayDays {
		events := byDay[day]
		if len(events) == 0 {
			out.Events[day] = []model.RenderEvent{}
			out.Groups[day] = [][]model.RenderEvent{}
			continue
		}

		sort.SliceStable(events, func(i, j int) bool {
			if events[i].Start != events[j].Start {
				return events[i].Start < events[j].Start
			}
			return events[i].End < events[j].End
		})

		merged := mergeDay(events)

		// Every merged interval is its own overlap group: merging already
		// guarantees non-overlap within the day, so multi-column packing
		// never has anything to pack.
		groups := make([][]model.RenderEvent, 0, len(merged))
		for _, ev := range merged {
			groups = append(groups, []model.RenderEvent{ev})
		}

		out.Events[day] = merged
		out.Groups[day] = groups
	}

	return out
}

// mergeDay walks one day's start-sorted events, folding each event into the
// running accumulator while it strictly overlaps it.
func mergeDay(events []model.RenderEvent) []model.RenderEvent {
	merged := make([]model.RenderEvent, 0, len(events))
	current := cloneEvent(events[0])

	for _, next := range events[1:] {
		if next.Start < current.End {
			if next.End > current.End {
				current.End = next.End
			}
			current.Count += next.Count
			current.Classes = append(current.Classes, next.Classes...)
			continue
		}
		merged = append(merged, finishEvent(current))
		current = cloneEvent(next)
	}
	merged = append(merged, finishEvent(current))

	return merged
}

// cloneEvent copies an event with its own classes slice so accumulation never
// aliases the input blocks.
func cloneEvent(ev model.RenderEvent) model.RenderEvent {
	out := ev
	out.Classes = make([]model.ClassOccurrence, len(ev.Classes))
	copy(out.Classes, ev.Classes)
	return out
}

// finishEvent applies the default label once an accumulator's count is final.
func finishEvent(ev model.RenderEvent) model.RenderEvent {
	if ev.Label == "" {
		ev.Label = fmt.Sprintf("%d classes", ev.Count)
	}
	return ev
}
