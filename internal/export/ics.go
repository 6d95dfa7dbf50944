// Package export renders the merged weekly schedule as downloadable
// artifacts: an ICS feed with weekly recurrence rules, and an XLSX
// timetable grid.
package export

import (
	"fmt"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/teambition/rrule-go"

	"schedcal/internal/layout"
	"schedcal/internal/model"
	"schedcal/internal/timeutil"
)

// weekdayByName maps display-day names onto time and rrule weekdays.
var weekdayByName = map[string]struct {
	std time.Weekday
	rr  rrule.Weekday
}{
	"Monday":    {time.Monday, rrule.MO},
	"Tuesday":   {time.Tuesday, rrule.TU},
	"Wednesday": {time.Wednesday, rrule.WE},
	"Thursday":  {time.Thursday, rrule.TH},
	"Friday":    {time.Friday, rrule.FR},
	"Saturday":  {time.Saturday, rrule.SA},
	"Sunday":    {time.Sunday, rrule.SU},
}

// ICSOptions controls calendar generation.
type ICSOptions struct {
	// TermStart / TermEnd bound the recurrence. Each weekly meeting is
	// anchored to the first matching weekday on/after TermStart and recurs
	// until TermEnd inclusive.
	TermStart time.Time
	TermEnd   time.Time

	// Location is the timezone events are emitted in. Nil means time.Local.
	Location *time.Location

	// PerOccurrence expands each weekly meeting into dated single events
	// instead of one recurring VEVENT. Some older campus tools ignore RRULE.
	PerOccurrence bool

	// CalendarName is the X-WR-CALNAME shown by subscribing clients.
	CalendarName string
}

// BuildICS serializes the merged layout as an iCalendar document. Days with
// no events contribute nothing; an entirely empty layout yields a valid
// calendar with zero events.
func BuildICS(result layout.Result, opts ICSOptions) (string, error) {
	if opts.TermEnd.Before(opts.TermStart) {
		return "", fmt.Errorf("export: term end %s before start %s",
			opts.TermEnd.Format("2006-01-02"), opts.TermStart.Format("2006-01-02"))
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}

	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	if opts.CalendarName != "" {
		cal.SetXWRCalName(opts.CalendarName)
	}

	now := time.Now()

	for _, day := range model.DisplayDays {
		wd, ok := weekdayByName[day]
		if !ok {
			continue
		}
		for _, ev := range result.Events[day] {
			if ev.Start >= ev.End {
				continue
			}

			first := firstOnOrAfter(opts.TermStart, wd.std)
			dtstart := atMinute(first, ev.Start, opts.Location)
			dtend := atMinute(first, ev.End, opts.Location)
			until := atMinute(opts.TermEnd, ev.Start, opts.Location)

			rule, err := rrule.NewRRule(rrule.ROption{
				Freq:      rrule.WEEKLY,
				Byweekday: []rrule.Weekday{wd.rr},
				Dtstart:   dtstart,
				Until:     until,
			})
			if err != nil {
				return "", fmt.Errorf("export: build rule for %s: %w", ev.ID, err)
			}

			if opts.PerOccurrence {
				duration := dtend.Sub(dtstart)
				for i, occ := range rule.All() {
					ve := cal.AddEvent(fmt.Sprintf("%s-%d@schedcal", ev.ID, i))
					ve.SetDtStampTime(now)
					ve.SetStartAt(occ)
					ve.SetEndAt(occ.Add(duration))
					fillEvent(ve, ev)
				}
				continue
			}

			ve := cal.AddEvent(ev.ID + "@schedcal")
			ve.SetDtStampTime(now)
			ve.SetStartAt(dtstart)
			ve.SetEndAt(dtend)
			// OrigOptions.RRuleString emits only the rule body; String()
			// would prepend a DTSTART line inside the property value.
			ve.AddRrule(rule.OrigOptions.RRuleString())
			fillEvent(ve, ev)
		}
	}

	return cal.Serialize(), nil
}

func fillEvent(ve *ical.VEvent, ev model.RenderEvent) {
	ve.SetSummary(ev.Label)
	if len(ev.Classes) == 1 {
		c := ev.Classes[0]
		ve.SetSummary(c.Title)
		if c.Room != "" {
			ve.SetLocation(c.Room)
		}
		if c.Professor != "" {
			ve.SetDescription(c.Professor)
		}
		return
	}
	if len(ev.Classes) > 1 {
		desc := ""
		for i, c := range ev.Classes {
			if i > 0 {
				desc += "\n"
			}
			desc += fmt.Sprintf("%s (%s, %s)", c.Title, c.Professor, timeutil.FormatRange(
				descParser.ToMinutes(c.StartTime), descParser.ToMinutes(c.EndTime)))
		}
		ve.SetDescription(desc)
	}
}

// descParser formats class times inside merged-event descriptions.
var descParser = timeutil.NewParser(0)

// firstOnOrAfter returns the first date with the given weekday on or after
// day, at midnight in day's location.
func firstOnOrAfter(day time.Time, wd time.Weekday) time.Time {
	d := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	offset := (int(wd) - int(d.Weekday()) + 7) % 7
	return d.AddDate(0, 0, offset)
}

// atMinute places a minute-of-day on the given date in loc.
func atMinute(day time.Time, minute int, loc *time.Location) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), minute/60, minute%60, 0, 0, loc)
}
