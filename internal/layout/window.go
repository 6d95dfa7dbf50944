package layout

import (
	"schedcal/internal/model"
	"schedcal/internal/timeutil"
)

// Institutional day bounds: the window never extends outside 06:00-22:00.
const (
	earliestStartMinute = 6 * 60
	latestEndMinute     = 22 * 60
)

// DefaultWindow is the view window used before any data has been seen.
func DefaultWindow() model.ViewWindow {
	return model.ViewWindow{StartMinute: 7 * 60, EndMinute: 18 * 60}
}

// EstimateWindow recomputes the visible day window from the raw data set,
// rounded outward to whole hours and clamped to the institutional bounds.
// An empty set preserves prev rather than collapsing the window.
func EstimateWindow(prev model.ViewWindow, blocks []model.TimeBlock, parser *timeutil.Parser) model.ViewWindow {
	if len(blocks) == 0 {
		return prev
	}

	minStart := 24 * 60
	maxEnd := 0
	for _, b := range blocks {
		s := parser.ToMinutes(b.StartTime)
		e := parser.ToMinutes(b.EndTime)
		if s < minStart {
			minStart = s
		}
		if e > maxEnd {
			maxEnd = e
		}
	}

	start := (minStart / 60) * 60
	if start < earliestStartMinute {
		start = earliestStartMinute
	}
	end := ((maxEnd + 59) / 60) * 60
	if end > latestEndMinute {
		end = latestEndMinute
	}

	return model.ViewWindow{StartMinute: start, EndMinute: end}
}
