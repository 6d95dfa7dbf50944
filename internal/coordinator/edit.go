package coordinator

import (
	"context"
	"errors"
	"sync"
	"time"

	"schedcal/internal/api"
	appLog "schedcal/internal/log"
	"schedcal/internal/model"
)

// DefaultConflictDebounce keeps rapid edit-form changes from spamming the
// conflict endpoint.
const DefaultConflictDebounce = 220 * time.Millisecond

var (
	// ErrConflict means the draft collides with an existing booking and the
	// save was refused before any network call.
	ErrConflict = errors.New("cannot save: schedule conflicts")
	// ErrSaveInFlight means a save is already running.
	ErrSaveInFlight = errors.New("save already in progress")
	// ErrNoSession means no edit session is open.
	ErrNoSession = errors.New("no edit session open")
)

// EditBackend is the slice of the backend client an edit session needs.
type EditBackend interface {
	GetSchedule(ctx context.Context, id int) (api.ScheduleDetail, error)
	CheckConflict(ctx context.Context, req api.ConflictRequest) (model.ConflictResult, error)
	UpdateSchedule(ctx context.Context, id int, req api.UpdateRequest) (string, error)
}

// watchedFields is the draft subset whose change invalidates the current
// conflict result and reschedules a check.
type watchedFields struct {
	professorID int
	roomID      int
	day         string
	start       string
	end         string
}

func watched(d model.EditDraft) watchedFields {
	return watchedFields{
		professorID: d.ProfessorID,
		roomID:      d.RoomID,
		day:         d.DayOfWeek,
		start:       d.StartTime,
		end:         d.EndTime,
	}
}

// EditSession owns one in-progress edit: the draft, its debounced conflict
// checking, and the single-flight save gate. The draft is discarded on close
// or save.
type EditSession struct {
	backend  EditBackend
	debounce *Debouncer

	// onSaved is called after a successful save, typically to schedule a
	// calendar refetch.
	onSaved func()

	mu       sync.Mutex
	open     bool
	draft    model.EditDraft
	conflict model.ConflictResult
	last     watchedFields
	checkSeq uint64
	saving   bool
}

// NewEditSession creates a session manager. debounce <= 0 selects
// DefaultConflictDebounce. onSaved may be nil.
func NewEditSession(backend EditBackend, debounce time.Duration, onSaved func()) *EditSession {
	if debounce <= 0 {
		debounce = DefaultConflictDebounce
	}
	return &EditSession{
		backend:  backend,
		debounce: NewDebouncer(debounce),
		onSaved:  onSaved,
	}
}

// Open fetches the schedule and seeds a fresh draft from it, replacing any
// session already open. Backend times arrive as "HH:MM:SS" and are trimmed
// to "HH:MM".
func (s *EditSession) Open(ctx context.Context, scheduleID int) (model.EditDraft, error) {
	detail, err := s.backend.GetSchedule(ctx, scheduleID)
	if err != nil {
		return model.EditDraft{}, err
	}

	draft := model.EditDraft{
		ID:          detail.ID,
		SubjectID:   detail.SubjectID,
		ProfessorID: detail.ProfessorID,
		RoomID:      detail.RoomID,
		DayOfWeek:   detail.DayOfWeek,
		StartTime:   trimSeconds(detail.StartTime),
		EndTime:     trimSeconds(detail.EndTime),
		SectionID:   detail.ClassSectionID,
	}
	if detail.Room != nil {
		draft.Building = detail.Room.BuildingName
	}
	if detail.ClassSection != nil {
		draft.CourseID = detail.ClassSection.CourseID
		draft.YearLevel = detail.ClassSection.YearLevel
	}

	s.mu.Lock()
	s.open = true
	s.draft = draft
	s.conflict = model.ConflictResult{}
	s.last = watched(draft)
	s.mu.Unlock()

	return draft, nil
}

// Draft returns the current draft and whether a session is open.
func (s *EditSession) Draft() (model.EditDraft, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft, s.open
}

// SetDraft replaces the draft. If any watched field (professor, room, day,
// start, end) changed, the pending conflict check is superseded and a new one
// scheduled after the quiet period. A draft with incomplete timing never
// issues a request.
func (s *EditSession) SetDraft(draft model.EditDraft) error {
	s.mu.Lock()
	if !s.open {
		s.mu.Unlock()
		return ErrNoSession
	}
	s.draft = draft
	now := watched(draft)
	changed := now != s.last
	s.last = now
	s.mu.Unlock()

	if changed {
		s.debounce.Trigger(func() {
			s.runCheck(context.Background())
		})
	}
	return nil
}

// runCheck issues one conflict check for the draft as it stands when the
// timer fires. Checks with missing day/start/end are suppressed entirely.
func (s *EditSession) runCheck(ctx context.Context) {
	s.mu.Lock()
	if !s.open || !s.draft.TimingComplete() {
		s.mu.Unlock()
		return
	}
	s.checkSeq++
	stamp := s.checkSeq
	draft := s.draft
	s.mu.Unlock()

	result, err := s.backend.CheckConflict(ctx, api.ConflictRequest{
		ProfessorID:    draft.ProfessorID,
		RoomID:         draft.RoomID,
		ClassSectionID: draft.SectionID,
		DayOfWeek:      draft.DayOfWeek,
		StartTime:      draft.StartTime,
		EndTime:        draft.EndTime,
	})

	s.mu.Lock()
	defer s.mu.Unlock()

	if stamp != s.checkSeq || !s.open {
		return
	}
	if err != nil {
		// Keep the last known result; the save gate stays as it was.
		appLog.Error("conflict check failed", err, "schedule_id", draft.ID)
		return
	}
	s.conflict = result
}

// Conflict returns the last known conflict result.
func (s *EditSession) Conflict() model.ConflictResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conflict
}

// Save persists the draft with status "Finalized". It is refused without a
// network call while the last known conflict result is positive, and is
// single-flight: a save started while another runs returns ErrSaveInFlight.
// The saving flag is reset on every path, including refusal.
func (s *EditSession) Save(ctx context.Context) error {
	s.mu.Lock()
	if !s.open {
		s.mu.Unlock()
		return ErrNoSession
	}
	if s.saving {
		s.mu.Unlock()
		return ErrSaveInFlight
	}
	s.saving = true
	draft := s.draft
	conflicted := s.conflict.Conflict
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.saving = false
		s.mu.Unlock()
	}()

	if conflicted {
		return ErrConflict
	}

	msg, err := s.backend.UpdateSchedule(ctx, draft.ID, api.UpdateRequest{
		SubjectID:   draft.SubjectID,
		ProfessorID: draft.ProfessorID,
		RoomID:      draft.RoomID,
		DayOfWeek:   draft.DayOfWeek,
		StartTime:   draft.StartTime,
		EndTime:     draft.EndTime,
		Status:      "Finalized",
	})
	if err != nil {
		return err
	}
	appLog.Info("schedule updated", "schedule_id", draft.ID, "message", msg)

	s.reset()
	if s.onSaved != nil {
		s.onSaved()
	}
	return nil
}

// Close discards the draft and invalidates any in-flight conflict check. The
// conflict result dies with the session.
func (s *EditSession) Close() {
	s.reset()
}

// Shutdown is Close plus permanent cancellation of the debounce timer; call
// it when the host is tearing down.
func (s *EditSession) Shutdown() {
	s.debounce.Stop()
	s.reset()
}

func (s *EditSession) reset() {
	s.mu.Lock()
	s.open = false
	s.draft = model.EditDraft{}
	s.conflict = model.ConflictResult{}
	s.checkSeq++ // invalidate in-flight checks
	s.mu.Unlock()
}

func trimSeconds(t string) string {
	if len(t) > 5 {
		return t[:5]
	}
	return t
}
