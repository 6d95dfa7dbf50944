package coordinator

import (
	"context"
	"fmt"

	"schedcal/internal/api"
	"schedcal/internal/model"
	"schedcal/internal/timeutil"
)

// OptionsBackend is the slice of the backend client the dropdown loaders
// need.
type OptionsBackend interface {
	Section(ctx context.Context, id int) (api.Section, error)
	Course(ctx context.Context, id int) (api.Course, error)
	FilteredSubjects(ctx context.Context, courseID, semesterID, yearLevel int) ([]api.Subject, error)
	ProfessorsByDepartment(ctx context.Context, departmentID int) ([]model.Professor, error)
	Rooms(ctx context.Context) ([]model.Room, error)
}

// EditOptions holds everything the edit form's dropdowns render.
type EditOptions struct {
	Subjects    []model.SelectOption `json:"subjects"`
	Professors  []model.SelectOption `json:"professors"`
	Buildings   []string             `json:"buildings"`
	Rooms       []model.Room         `json:"rooms"`
	TimeOptions []string             `json:"time_options"`
}

// LoadEditOptions resolves the dropdown data for a draft: the section's
// semester scopes the subject list, the course's department scopes the
// professor list, and buildings are deduped from the room list.
func LoadEditOptions(ctx context.Context, backend OptionsBackend, draft model.EditDraft) (EditOptions, error) {
	var out EditOptions

	section, err := backend.Section(ctx, draft.SectionID)
	if err != nil {
		return out, fmt.Errorf("load section %d: %w", draft.SectionID, err)
	}

	subjects, err := backend.FilteredSubjects(ctx, draft.CourseID, section.SemesterID, draft.YearLevel)
	if err != nil {
		return out, fmt.Errorf("load subjects for course %d: %w", draft.CourseID, err)
	}
	for _, s := range subjects {
		out.Subjects = append(out.Subjects, model.SelectOption{
			Value: s.ID,
			Label: fmt.Sprintf("%s - %s", s.SubjectCode, s.SubjectName),
		})
	}

	professors, err := ProfessorsForCourse(ctx, backend, draft.CourseID)
	if err != nil {
		return out, err
	}
	out.Professors = professors

	rooms, err := backend.Rooms(ctx)
	if err != nil {
		return out, fmt.Errorf("load rooms: %w", err)
	}
	out.Rooms = rooms
	out.Buildings = uniqueBuildings(rooms)

	out.TimeOptions = timeutil.TimeOptions()
	return out, nil
}

// ProfessorsForCourse resolves a course's department and lists its
// professors as "Last, First" options. The calendar's course filter uses
// this too: changing the course reloads the professor dropdown.
func ProfessorsForCourse(ctx context.Context, backend OptionsBackend, courseID int) ([]model.SelectOption, error) {
	course, err := backend.Course(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("load course %d: %w", courseID, err)
	}

	professors, err := backend.ProfessorsByDepartment(ctx, course.DepartmentID)
	if err != nil {
		return nil, fmt.Errorf("load professors for department %d: %w", course.DepartmentID, err)
	}

	out := make([]model.SelectOption, 0, len(professors))
	for _, p := range professors {
		out = append(out, model.SelectOption{
			Value: p.ID,
			Label: fmt.Sprintf("%s, %s", p.LastName, p.FirstName),
		})
	}
	return out, nil
}

// uniqueBuildings dedupes building names preserving first-seen order.
func uniqueBuildings(rooms []model.Room) []string {
	seen := make(map[string]bool, len(rooms))
	out := make([]string, 0)
	for _, r := range rooms {
		if r.BuildingName == "" || seen[r.BuildingName] {
			continue
		}
		seen[r.BuildingName] = true
		out = append(out, r.BuildingName)
	}
	return out
}
