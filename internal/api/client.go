// Package api is the HTTP client for the school-scheduling backend. It only
// wraps the REST surface the calendar consumes; all scheduling state lives
// server-side.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	appLog "schedcal/internal/log"
	"schedcal/internal/model"
)

// Sentinel errors for status mapping.
var (
	ErrNotFound = errors.New("resource not found")
)

// Client talks to the scheduling backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a Client for the given base URL. A nil httpClient gets
// the default one.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = DefaultHTTPClient()
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

// DefaultHTTPClient returns the client used when none is injected.
func DefaultHTTPClient() *http.Client {
	return &http.Client{Timeout: 15 * time.Second}
}

// dataEnvelope is the `{"data": ...}` wrapper some backend endpoints use.
type dataEnvelope[T any] struct {
	Data T `json:"data"`
}

// idEnvelope is the `{"data": {"id": N}}` shape of the active-* endpoints.
type idEnvelope struct {
	Data struct {
		ID int `json:"id"`
	} `json:"data"`
}

// ScheduleDetail is the single-schedule shape used to seed the edit draft.
// Times come back as "HH:MM:SS"; callers trim to "HH:MM".
type ScheduleDetail struct {
	ID          int    `json:"id"`
	SubjectID   int    `json:"subject_id"`
	ProfessorID int    `json:"professor_id"`
	RoomID      int    `json:"room_id"`
	Room        *struct {
		BuildingName string `json:"building_name"`
	} `json:"room"`
	DayOfWeek      string `json:"day_of_week"`
	StartTime      string `json:"start_time"`
	EndTime        string `json:"end_time"`
	ClassSectionID int    `json:"class_section_id"`
	ClassSection   *struct {
		CourseID  int `json:"course_id"`
		YearLevel int `json:"year_level"`
	} `json:"class_section"`
}

// ConflictRequest is the POST /schedules/check-conflict body.
type ConflictRequest struct {
	ProfessorID    int    `json:"professor_id"`
	RoomID         int    `json:"room_id"`
	ClassSectionID int    `json:"class_section_id"`
	DayOfWeek      string `json:"day_of_week"`
	StartTime      string `json:"start_time"`
	EndTime        string `json:"end_time"`
}

// UpdateRequest is the PUT /schedules/{id} body. Status is always
// "Finalized" when saved from the calendar.
type UpdateRequest struct {
	SubjectID   int    `json:"subject_id"`
	ProfessorID int    `json:"professor_id"`
	RoomID      int    `json:"room_id"`
	DayOfWeek   string `json:"day_of_week"`
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time"`
	Status      string `json:"status"`
}

// NamedItem is a generic {id, name} reference-list row.
type NamedItem struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Section row; SemesterID is what the edit form needs from it.
type Section struct {
	ID         int    `json:"id"`
	Name       string `json:"name"`
	SemesterID int    `json:"semester_id"`
	CourseID   int    `json:"course_id"`
	YearLevel  int    `json:"year_level"`
}

// Course row; DepartmentID drives the professor dropdown.
type Course struct {
	ID           int    `json:"id"`
	Name         string `json:"name"`
	DepartmentID int    `json:"department_id"`
}

// Subject row from the filtered-subjects endpoint.
type Subject struct {
	ID          int    `json:"id"`
	SubjectCode string `json:"subject_code"`
	SubjectName string `json:"subject_name"`
}

// QuerySchedules fetches the raw per-day time blocks matching filters.
// The body is a bare JSON array of blocks.
func (c *Client) QuerySchedules(ctx context.Context, filters model.FilterSet) ([]model.TimeBlock, error) {
	path := "/schedules/query"
	if q := BuildQuery(FilterParams(filters)); q != "" {
		path += "?" + q
	}

	var blocks []model.TimeBlock
	if err := c.getJSON(ctx, path, &blocks); err != nil {
		return nil, err
	}
	return blocks, nil
}

// GetSchedule fetches one schedule to populate the edit draft.
func (c *Client) GetSchedule(ctx context.Context, id int) (ScheduleDetail, error) {
	var out ScheduleDetail
	err := c.getJSON(ctx, fmt.Sprintf("/schedules/%d", id), &out)
	return out, err
}

// CheckConflict validates a draft placement against backend bookings.
func (c *Client) CheckConflict(ctx context.Context, req ConflictRequest) (model.ConflictResult, error) {
	var out model.ConflictResult
	err := c.sendJSON(ctx, http.MethodPost, "/schedules/check-conflict", req, &out)
	return out, err
}

// UpdateSchedule persists an edited schedule. Returns the backend's message,
// if any.
func (c *Client) UpdateSchedule(ctx context.Context, id int, req UpdateRequest) (string, error) {
	var out struct {
		Message string `json:"message"`
	}
	err := c.sendJSON(ctx, http.MethodPut, fmt.Sprintf("/schedules/%d", id), req, &out)
	return out.Message, err
}

// ActiveSchoolYear resolves the backend's current school year id, used to
// default-fill an unset filter.
func (c *Client) ActiveSchoolYear(ctx context.Context) (int, error) {
	var out idEnvelope
	if err := c.getJSON(ctx, "/master/active-school-year", &out); err != nil {
		return 0, err
	}
	return out.Data.ID, nil
}

// ActiveSemester resolves the backend's current semester id.
func (c *Client) ActiveSemester(ctx context.Context) (int, error) {
	var out idEnvelope
	if err := c.getJSON(ctx, "/master/active-semester", &out); err != nil {
		return 0, err
	}
	return out.Data.ID, nil
}

// SchoolYears lists selectable school years.
func (c *Client) SchoolYears(ctx context.Context) ([]NamedItem, error) {
	var out dataEnvelope[[]NamedItem]
	err := c.getJSON(ctx, "/master/school-years", &out)
	return out.Data, err
}

// Semesters lists selectable semesters.
func (c *Client) Semesters(ctx context.Context) ([]NamedItem, error) {
	var out dataEnvelope[[]NamedItem]
	err := c.getJSON(ctx, "/master/semesters", &out)
	return out.Data, err
}

// Courses lists all courses.
func (c *Client) Courses(ctx context.Context) ([]NamedItem, error) {
	var out dataEnvelope[[]NamedItem]
	err := c.getJSON(ctx, "/courses", &out)
	return out.Data, err
}

// Sections lists all class sections.
func (c *Client) Sections(ctx context.Context) ([]Section, error) {
	var out dataEnvelope[[]Section]
	err := c.getJSON(ctx, "/sections", &out)
	return out.Data, err
}

// Rooms lists all rooms; the edit form dedupes building names from it.
func (c *Client) Rooms(ctx context.Context) ([]model.Room, error) {
	var out dataEnvelope[[]model.Room]
	err := c.getJSON(ctx, "/rooms", &out)
	return out.Data, err
}

// Course fetches one course; its department id drives the professor list.
func (c *Client) Course(ctx context.Context, id int) (Course, error) {
	var out Course
	err := c.getJSON(ctx, fmt.Sprintf("/courses/%d", id), &out)
	return out, err
}

// Section fetches one section; its semester id scopes the subject list.
func (c *Client) Section(ctx context.Context, id int) (Section, error) {
	var out Section
	err := c.getJSON(ctx, fmt.Sprintf("/sections/%d", id), &out)
	return out, err
}

// ProfessorsByDepartment lists professors for a department.
func (c *Client) ProfessorsByDepartment(ctx context.Context, departmentID int) ([]model.Professor, error) {
	var out dataEnvelope[[]model.Professor]
	err := c.getJSON(ctx, fmt.Sprintf("/professors/by-department/%d", departmentID), &out)
	return out.Data, err
}

// FilteredSubjects lists a course's subjects narrowed to a semester and year
// level.
func (c *Client) FilteredSubjects(ctx context.Context, courseID, semesterID, yearLevel int) ([]Subject, error) {
	q := BuildQuery(map[string]string{
		"semester_id": fmt.Sprint(semesterID),
		"year_level":  fmt.Sprint(yearLevel),
	})
	var out dataEnvelope[[]Subject]
	err := c.getJSON(ctx, fmt.Sprintf("/courses/%d/filtered-subjects?%s", courseID, q), &out)
	return out.Data, err
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) sendJSON(ctx context.Context, method, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	return c.do(ctx, method, path, payload, out)
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, out any) error {
	if c.baseURL == "" {
		return errors.New("backend base URL is empty")
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	appLog.Debug("backend request", "method", method, "path", requestPath(path))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated:
		// continue
	case http.StatusNotFound:
		return ErrNotFound
	default:
		return fmt.Errorf("backend unexpected status: %d", resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("backend decode failed: %w", err)
	}
	return nil
}

// requestPath strips the query string for logging; filter values may carry
// student ids.
func requestPath(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		return path[:i]
	}
	return path
}
