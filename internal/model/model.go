package model

// DisplayDays is the fixed ordered list of calendar columns. Sunday is not
// rendered; the institution does not schedule classes on it.
var DisplayDays = []string{
	"Monday",
	"Tuesday",
	"Wednesday",
	"Thursday",
	"Friday",
	"Saturday",
}

// ClassOccurrence is a single scheduled class as reported by the backend.
// Identity is the ID; the layout engine never mutates occurrences, it only
// aggregates them into merged blocks.
type ClassOccurrence struct {
	ID             int    `json:"id"`
	Title          string `json:"title"`
	Professor      string `json:"professor"`
	Room           string `json:"room"`
	Section        string `json:"section,omitempty"`
	CapacityStatus string `json:"capacity_status,omitempty"`
	StartTime      string `json:"start_time"`
	EndTime        string `json:"end_time"`
}

// TimeBlock is one backend-reported chunk of schedule occupying a day/time
// range, possibly already aggregating multiple classes. Immutable once
// received.
type TimeBlock struct {
	DayOfWeek string            `json:"day_of_week"`
	StartTime string            `json:"start_time"` // "HH:MM", 24h
	EndTime   string            `json:"end_time"`
	Count     int               `json:"count"`
	Label     string            `json:"label"`
	Classes   []ClassOccurrence `json:"classes"`
}

// RenderEvent is the merged, positioned unit ultimately drawn on the
// calendar. Instances are created fresh on every layout pass and replaced
// wholesale, never patched.
type RenderEvent struct {
	ID        string            `json:"id"` // synthetic, unique within one pass
	Label     string            `json:"label"`
	Start     int               `json:"start"` // minutes from midnight
	End       int               `json:"end"`
	Count     int               `json:"count"`
	Col       int               `json:"col"`
	GroupCols int               `json:"groupCols"`
	Classes   []ClassOccurrence `json:"classes"`
	Raw       *TimeBlock        `json:"-"` // originating block, read-only
}

// ViewWindow is the visible minute-of-day range shared by the whole calendar.
// Invariant: 6*60 <= StartMinute < EndMinute <= 22*60 once data has been seen.
type ViewWindow struct {
	StartMinute int `json:"day_start_minute"`
	EndMinute   int `json:"day_end_minute"`
}

// Minutes returns the window span in minutes.
func (w ViewWindow) Minutes() int {
	return w.EndMinute - w.StartMinute
}

// FilterSet mirrors the schedule query parameters. Zero values are treated
// as "unset" and dropped from the query string.
type FilterSet struct {
	SchoolYearID int `json:"school_year_id"`
	SemesterID   int `json:"semester_id"`
	CourseID     int `json:"course_id"`
	ProfessorID  int `json:"professor_id"`
	StudentID    int `json:"student_id"`
	RoomID       int `json:"room_id"`
	SectionID    int `json:"section_id"`
	YearLevel    int `json:"year_level"`
}

// EditDraft is the in-progress edit form. Owned by the current edit session
// and discarded on close or save.
type EditDraft struct {
	ID          int    `json:"id"`
	SubjectID   int    `json:"subject_id"`
	ProfessorID int    `json:"professor_id"`
	Building    string `json:"building"`
	RoomID      int    `json:"room_id"`
	DayOfWeek   string `json:"day_of_week"`
	StartTime   string `json:"start_time"` // "HH:MM"
	EndTime     string `json:"end_time"`
	SectionID   int    `json:"section_id"`
	CourseID    int    `json:"course_id"`
	YearLevel   int    `json:"year_level"`
}

// TimingComplete reports whether the placement fields a conflict check
// depends on are all present. A check with missing timing is never sent.
func (d EditDraft) TimingComplete() bool {
	return d.DayOfWeek != "" && d.StartTime != "" && d.EndTime != ""
}

// ConflictResult is the backend's verdict on an EditDraft placement. It is
// replaced wholesale on every response and considered stale the moment any
// watched draft field changes again.
type ConflictResult struct {
	Conflict             bool `json:"conflict"`
	RoomConflict         bool `json:"room_conflict"`
	ProfessorConflict    bool `json:"professor_conflict"`
	ClassConflict        bool `json:"class_conflict"`
	RoomCapacityConflict bool `json:"room_capacity_conflict"`
}

// Room as returned by GET /rooms.
type Room struct {
	ID           int    `json:"id"`
	RoomNumber   string `json:"room_number"`
	BuildingName string `json:"building_name"`
	Capacity     int    `json:"capacity"`
	Type         string `json:"type"`
}

// Professor as returned by GET /professors/by-department/{id}.
type Professor struct {
	ID         int    `json:"id"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	MiddleName string `json:"middle_name"`
}

// SelectOption is a generic value/label pair for the edit-form dropdowns.
type SelectOption struct {
	Value int    `json:"value"`
	Label string `json:"label"`
}
