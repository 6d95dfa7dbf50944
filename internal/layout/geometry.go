package layout

import "schedcal/internal/model"

// Sizing constants. These mirror the web UI's grid: 30-minute slot rows, a
// 40px floor on the hour row so short windows stay legible, a 6px floor on
// event boxes so clamped events stay clickable, and a 6px horizontal gap
// between an event box and the column edge.
const (
	SlotMinutes        = 30
	minHourHeightPx    = 40
	fallbackHourHeight = 62
	minEventHeightPx   = 6
	eventGapPx         = 6
)

// Geometry is the pixel sizing derived from a view window and an observed
// container height. It is a pure function of its inputs; recompute it
// whenever either changes.
type Geometry struct {
	Window          model.ViewWindow `json:"window"`
	HourHeightPx    float64          `json:"hour_height_px"`
	SlotHeightPx    float64          `json:"slot_height_px"`
	TotalGridHeight float64          `json:"total_grid_height_px"`
}

// EventBox is the positioned rectangle for one render event. Vertical
// placement is in pixels; horizontal placement in percent of the day column,
// with GapPx subtracted from the rendered width.
type EventBox struct {
	TopPx        float64 `json:"top_px"`
	HeightPx     float64 `json:"height_px"`
	LeftPercent  float64 `json:"left_percent"`
	WidthPercent float64 `json:"width_percent"`
	GapPx        float64 `json:"gap_px"`
}

// ComputeGeometry derives sizing for the given window and container height.
// A zero or negative container height falls back to a nominal hour height
// instead of collapsing the grid.
func ComputeGeometry(window model.ViewWindow, containerHeightPx float64) Geometry {
	minutes := window.Minutes()
	if minutes < 60 {
		minutes = 60
	}
	hours := float64(minutes) / 60

	hourHeight := float64(fallbackHourHeight)
	if containerHeightPx > 0 {
		hourHeight = containerHeightPx / hours
	}
	if hourHeight < minHourHeightPx {
		hourHeight = minHourHeightPx
	}

	return Geometry{
		Window:          window,
		HourHeightPx:    hourHeight,
		SlotHeightPx:    hourHeight * SlotMinutes / 60,
		TotalGridHeight: float64(window.Minutes()) / 60 * hourHeight,
	}
}

// EventBox positions ev inside the day column, clamping events that start
// before or end after the visible window.
func (g Geometry) EventBox(ev model.RenderEvent) EventBox {
	visibleStart := ev.Start
	if visibleStart < g.Window.StartMinute {
		visibleStart = g.Window.StartMinute
	}
	visibleEnd := ev.End
	if visibleEnd > g.Window.EndMinute {
		visibleEnd = g.Window.EndMinute
	}

	top := float64(visibleStart-g.Window.StartMinute) / 60 * g.HourHeightPx
	height := float64(visibleEnd-visibleStart) / 60 * g.HourHeightPx
	if height < minEventHeightPx {
		height = minEventHeightPx
	}

	cols := ev.GroupCols
	if cols < 1 {
		cols = 1
	}
	width := 100 / float64(cols)
	left := float64(ev.Col) * width

	return EventBox{
		TopPx:        top,
		HeightPx:     height,
		LeftPercent:  left,
		WidthPercent: width,
		GapPx:        eventGapPx,
	}
}

// TimeSlots lists every SlotMinutes-spaced minute mark from the window start
// up to but excluding its end.
func (g Geometry) TimeSlots() []int {
	out := make([]int, 0, g.Window.Minutes()/SlotMinutes)
	for m := g.Window.StartMinute; m < g.Window.EndMinute; m += SlotMinutes {
		out = append(out, m)
	}
	return out
}
