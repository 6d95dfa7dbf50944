package export

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	"schedcal/internal/layout"
	"schedcal/internal/model"
	"schedcal/internal/timeutil"
)

const xlsxSheetName = "Weekly Schedule"

// BuildXLSX renders the merged layout as a timetable workbook: one row per
// 30-minute slot of the view window, one column per display day, events
// merged vertically across the slots they span.
func BuildXLSX(result layout.Result, window model.ViewWindow) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	idx, err := f.NewSheet(xlsxSheetName)
	if err != nil {
		return nil, fmt.Errorf("export: create sheet: %w", err)
	}
	f.SetActiveSheet(idx)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("export: drop default sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"4472C4"}},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return nil, fmt.Errorf("export: header style: %w", err)
	}
	eventStyle, err := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center", WrapText: true},
		Border: []excelize.Border{
			{Type: "left", Style: 1, Color: "999999"},
			{Type: "right", Style: 1, Color: "999999"},
			{Type: "top", Style: 1, Color: "999999"},
			{Type: "bottom", Style: 1, Color: "999999"},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("export: event style: %w", err)
	}

	if err := f.SetColWidth(xlsxSheetName, "A", "A", 16); err != nil {
		return nil, err
	}
	if err := f.SetColWidth(xlsxSheetName, "B", "G", 24); err != nil {
		return nil, err
	}

	headers := append([]string{"Time"}, model.DisplayDays...)
	for col, h := range headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(xlsxSheetName, cell, h); err != nil {
			return nil, err
		}
		if err := f.SetCellStyle(xlsxSheetName, cell, cell, headerStyle); err != nil {
			return nil, err
		}
	}

	// Slot rows. Row 2 holds the first slot of the window.
	slots := make([]int, 0, window.Minutes()/layout.SlotMinutes)
	for m := window.StartMinute; m < window.EndMinute; m += layout.SlotMinutes {
		slots = append(slots, m)
	}
	for i, m := range slots {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		label := timeutil.FormatRange(m, m+layout.SlotMinutes)
		if err := f.SetCellValue(xlsxSheetName, cell, label); err != nil {
			return nil, err
		}
	}

	for dayIdx, day := range model.DisplayDays {
		col := dayIdx + 2
		for _, ev := range result.Events[day] {
			startRow, endRow := slotRows(ev, window)
			if startRow < 0 {
				continue
			}
			top, err := excelize.CoordinatesToCellName(col, startRow)
			if err != nil {
				return nil, err
			}
			bottom, err := excelize.CoordinatesToCellName(col, endRow)
			if err != nil {
				return nil, err
			}
			if err := f.SetCellValue(xlsxSheetName, top, cellText(ev)); err != nil {
				return nil, err
			}
			if err := f.SetCellStyle(xlsxSheetName, top, bottom, eventStyle); err != nil {
				return nil, err
			}
			if endRow > startRow {
				if err := f.MergeCell(xlsxSheetName, top, bottom); err != nil {
					return nil, err
				}
			}
		}
	}

	return f.WriteToBuffer()
}

// slotRows maps an event onto its first and last occupied sheet rows,
// clamped to the window. startRow is -1 when the event lies entirely
// outside it.
func slotRows(ev model.RenderEvent, window model.ViewWindow) (startRow, endRow int) {
	start := ev.Start
	if start < window.StartMinute {
		start = window.StartMinute
	}
	end := ev.End
	if end > window.EndMinute {
		end = window.EndMinute
	}
	if start >= end {
		return -1, -1
	}
	firstSlot := (start - window.StartMinute) / layout.SlotMinutes
	lastSlot := (end - window.StartMinute - 1) / layout.SlotMinutes
	return firstSlot + 2, lastSlot + 2
}

func cellText(ev model.RenderEvent) string {
	if len(ev.Classes) == 1 {
		c := ev.Classes[0]
		if c.Room != "" {
			return fmt.Sprintf("%s\n%s\n%s", c.Title, c.Professor, c.Room)
		}
		return fmt.Sprintf("%s\n%s", c.Title, c.Professor)
	}
	return ev.Label
}
