package api

import (
	"net/url"
	"strconv"

	"schedcal/internal/model"
)

// BuildQuery encodes a flat key to value map as a query string, silently
// dropping any key whose value is empty. Key order in the output follows
// url.Values encoding (sorted); the backend does not care about order.
func BuildQuery(params map[string]string) string {
	values := url.Values{}
	for key, val := range params {
		if val == "" {
			continue
		}
		values.Set(key, val)
	}
	return values.Encode()
}

// FilterParams flattens a FilterSet into query parameters. Zero-valued
// filters are unset and map to the empty string, which BuildQuery drops.
func FilterParams(f model.FilterSet) map[string]string {
	return map[string]string{
		"school_year_id": intParam(f.SchoolYearID),
		"semester_id":    intParam(f.SemesterID),
		"course_id":      intParam(f.CourseID),
		"professor_id":   intParam(f.ProfessorID),
		"student_id":     intParam(f.StudentID),
		"room_id":        intParam(f.RoomID),
		"section_id":     intParam(f.SectionID),
		"year_level":     intParam(f.YearLevel),
	}
}

func intParam(v int) string {
	if v == 0 {
		return ""
	}
	return strconv.Itoa(v)
}
