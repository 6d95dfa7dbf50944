// Package web serves the calendar UI and the JSON API the UI talks to:
// snapshot reads, filter updates, the edit session lifecycle, and exports.
package web

import (
	"crypto/subtle"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"schedcal/internal/api"
	"schedcal/internal/config"
	"schedcal/internal/coordinator"
	"schedcal/internal/export"
	appLog "schedcal/internal/log"
	"schedcal/internal/model"
)

// CaptureFunc renders the calendar page to PNG bytes. Wired up in cmd so the
// web package itself carries no Chromium dependency.
type CaptureFunc func() ([]byte, error)

// HeightSink receives viewport height reports from the UI. The coordinator
// observes the same feed, so every report flows through one mechanism.
type HeightSink interface {
	Report(heightPx int)
}

// Server exposes the schedule coordinator and edit session over HTTP.
type Server struct {
	cfg     *config.Config
	coord   *coordinator.FetchCoordinator
	session *coordinator.EditSession
	options coordinator.OptionsBackend
	sizes   HeightSink
	capture CaptureFunc
	mux     *http.ServeMux

	// Cached /preview.png bytes. Driving Chromium is expensive; a short TTL
	// keeps repeated dashboard polls cheap.
	previewMu    sync.RWMutex
	previewCache *previewCache
}

// previewCache holds the last captured PNG and its timestamp.
type previewCache struct {
	png       []byte
	updatedAt time.Time
}

//go:embed all:static
var embeddedStatic embed.FS

// NewServer constructs a Server. capture may be nil, in which case
// /preview.png reports 503.
func NewServer(cfg *config.Config, coord *coordinator.FetchCoordinator, session *coordinator.EditSession, options coordinator.OptionsBackend, sizes HeightSink, capture CaptureFunc) *Server {
	s := &Server{
		cfg:     cfg,
		coord:   coord,
		session: session,
		options: options,
		sizes:   sizes,
		capture: capture,
		mux:     http.NewServeMux(),
	}
	s.registerRoutes()
	return s
}

// Handler returns the routing handler, wrapped with basic auth when
// configured.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	return s.cfg.BasicAuth.Username != "" && s.cfg.BasicAuth.Password != ""
}

// basicAuthMiddleware guards every route except /health.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="SchedCal", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/health", s.handleHealth)

	s.mux.HandleFunc("GET /api/calendar", s.handleCalendar)
	s.mux.HandleFunc("POST /api/filters", s.handleFilters)
	s.mux.HandleFunc("POST /api/viewport", s.handleViewport)
	s.mux.HandleFunc("POST /api/refresh", s.handleRefresh)

	s.mux.HandleFunc("POST /api/edit/open", s.handleEditOpen)
	s.mux.HandleFunc("POST /api/edit/draft", s.handleEditDraft)
	s.mux.HandleFunc("GET /api/edit/conflict", s.handleEditConflict)
	s.mux.HandleFunc("GET /api/edit/professors", s.handleEditProfessors)
	s.mux.HandleFunc("POST /api/edit/save", s.handleEditSave)
	s.mux.HandleFunc("POST /api/edit/close", s.handleEditClose)

	s.mux.HandleFunc("GET /api/export.ics", s.handleExportICS)
	s.mux.HandleFunc("GET /api/export.xlsx", s.handleExportXLSX)

	s.mux.HandleFunc("GET /preview.png", s.handlePreview)

	s.mux.Handle("/", s.staticFileServer())
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleCalendar returns the full renderable state: filters, window, merged
// layout, geometry, and the loading flag.
func (s *Server) handleCalendar(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.coord.Snapshot())
}

// handleFilters replaces the filter set and schedules a debounced refetch.
// The response reflects the filters as submitted; default-filled year and
// semester appear in later snapshots once the fetch lands.
func (s *Server) handleFilters(w http.ResponseWriter, r *http.Request) {
	var filters model.FilterSet
	if err := json.NewDecoder(r.Body).Decode(&filters); err != nil {
		writeError(w, http.StatusBadRequest, "invalid filter payload")
		return
	}
	s.coord.ApplyFilters(filters)
	writeJSON(w, http.StatusAccepted, filters)
}

// handleViewport records a new container height from the UI.
func (s *Server) handleViewport(w http.ResponseWriter, r *http.Request) {
	var body struct {
		HeightPx int `json:"height_px"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid viewport payload")
		return
	}
	if body.HeightPx <= 0 {
		writeError(w, http.StatusBadRequest, "height_px must be positive")
		return
	}
	s.sizes.Report(body.HeightPx)
	writeJSON(w, http.StatusOK, s.coord.Snapshot().Geometry)
}

func (s *Server) handleRefresh(w http.ResponseWriter, _ *http.Request) {
	s.coord.Refresh()
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}

// editOpenResponse bundles the seeded draft with the dropdown options the
// edit form needs.
type editOpenResponse struct {
	Draft   model.EditDraft         `json:"draft"`
	Options coordinator.EditOptions `json:"options"`
}

func (s *Server) handleEditOpen(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ID int `json:"id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.ID <= 0 {
		writeError(w, http.StatusBadRequest, "invalid schedule id")
		return
	}

	draft, err := s.session.Open(r.Context(), body.ID)
	if err != nil {
		if errors.Is(err, api.ErrNotFound) {
			writeError(w, http.StatusNotFound, "schedule not found")
			return
		}
		appLog.Error("edit open failed", err, "id", body.ID)
		writeError(w, http.StatusBadGateway, "could not load schedule")
		return
	}

	opts, err := coordinator.LoadEditOptions(r.Context(), s.options, draft)
	if err != nil {
		// The draft is still editable; options degrade to empty lists.
		appLog.Warn("edit options load failed", "reason", err)
	}

	writeJSON(w, http.StatusOK, editOpenResponse{Draft: draft, Options: opts})
}

// handleEditDraft replaces the draft wholesale. Changing a watched placement
// field schedules a debounced conflict check.
func (s *Server) handleEditDraft(w http.ResponseWriter, r *http.Request) {
	var draft model.EditDraft
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		writeError(w, http.StatusBadRequest, "invalid draft payload")
		return
	}
	if err := s.session.SetDraft(draft); err != nil {
		writeError(w, http.StatusConflict, "no edit session open")
		return
	}
	writeJSON(w, http.StatusOK, s.session.Conflict())
}

func (s *Server) handleEditConflict(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.session.Conflict())
}

// handleEditProfessors reloads the professor dropdown after a course change.
func (s *Server) handleEditProfessors(w http.ResponseWriter, r *http.Request) {
	courseID, err := strconv.Atoi(r.URL.Query().Get("course_id"))
	if err != nil || courseID <= 0 {
		writeError(w, http.StatusBadRequest, "course_id is required")
		return
	}
	profs, err := coordinator.ProfessorsForCourse(r.Context(), s.options, courseID)
	if err != nil {
		appLog.Error("professor lookup failed", err, "course_id", courseID)
		writeError(w, http.StatusBadGateway, "could not load professors")
		return
	}
	writeJSON(w, http.StatusOK, profs)
}

func (s *Server) handleEditSave(w http.ResponseWriter, r *http.Request) {
	err := s.session.Save(r.Context())
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]string{"status": "saved"})
	case errors.Is(err, coordinator.ErrConflict):
		writeError(w, http.StatusConflict, "placement conflicts with an existing schedule")
	case errors.Is(err, coordinator.ErrSaveInFlight):
		writeError(w, http.StatusTooManyRequests, "save already in progress")
	case errors.Is(err, coordinator.ErrNoSession):
		writeError(w, http.StatusConflict, "no edit session open")
	default:
		appLog.Error("save failed", err)
		writeError(w, http.StatusBadGateway, "save failed")
	}
}

func (s *Server) handleEditClose(w http.ResponseWriter, _ *http.Request) {
	s.session.Close()
	writeJSON(w, http.StatusOK, map[string]string{"status": "closed"})
}

// handleExportICS serializes the current layout as an iCalendar feed bounded
// by the configured term. ?expand=1 emits dated single events instead of
// weekly recurrence rules.
func (s *Server) handleExportICS(w http.ResponseWriter, r *http.Request) {
	termStart, termEnd, err := s.termBounds()
	if err != nil {
		appLog.Error("export ics: bad term config", err)
		writeError(w, http.StatusInternalServerError, "term dates not configured")
		return
	}

	snap := s.coord.Snapshot()
	out, err := export.BuildICS(snap.Layout, export.ICSOptions{
		TermStart:     termStart,
		TermEnd:       termEnd,
		Location:      resolveLocationOrLocal(s.cfg.Timezone),
		PerOccurrence: r.URL.Query().Get("expand") == "1",
		CalendarName:  "Weekly Class Schedule",
	})
	if err != nil {
		appLog.Error("export ics failed", err)
		writeError(w, http.StatusInternalServerError, "export failed")
		return
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="schedule.ics"`)
	_, _ = w.Write([]byte(out))
}

func (s *Server) handleExportXLSX(w http.ResponseWriter, _ *http.Request) {
	snap := s.coord.Snapshot()
	buf, err := export.BuildXLSX(snap.Layout, snap.Window)
	if err != nil {
		appLog.Error("export xlsx failed", err)
		writeError(w, http.StatusInternalServerError, "export failed")
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="schedule.xlsx"`)
	_, _ = buf.WriteTo(w)
}

// handlePreview serves a PNG snapshot of the rendered calendar, captured
// through headless Chromium and cached briefly.
func (s *Server) handlePreview(w http.ResponseWriter, _ *http.Request) {
	if s.capture == nil {
		writeError(w, http.StatusServiceUnavailable, "preview capture not configured")
		return
	}

	const previewTTL = 30 * time.Second
	now := time.Now()

	s.previewMu.RLock()
	pc := s.previewCache
	s.previewMu.RUnlock()
	if pc != nil && now.Sub(pc.updatedAt) < previewTTL {
		servePNG(w, pc.png)
		return
	}

	png, err := s.capture()
	if err != nil {
		appLog.Error("preview capture failed", err)
		writeError(w, http.StatusInternalServerError, "capture failed")
		return
	}

	s.previewMu.Lock()
	s.previewCache = &previewCache{png: png, updatedAt: time.Now()}
	s.previewMu.Unlock()

	servePNG(w, png)
}

func servePNG(w http.ResponseWriter, png []byte) {
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(png)))
	_, _ = w.Write(png)
}

// termBounds parses the configured term dates.
func (s *Server) termBounds() (time.Time, time.Time, error) {
	loc := resolveLocationOrLocal(s.cfg.Timezone)
	start, err := time.ParseInLocation("2006-01-02", s.cfg.Term.Start, loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("term start: %w", err)
	}
	end, err := time.ParseInLocation("2006-01-02", s.cfg.Term.End, loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("term end: %w", err)
	}
	return start, end, nil
}

// staticFileServer serves the embedded UI from internal/web/static.
func (s *Server) staticFileServer() http.Handler {
	sub, err := fs.Sub(embeddedStatic, "static")
	if err != nil {
		appLog.Error("failed to initialize embedded static filesystem", err)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "static UI not available", http.StatusServiceUnavailable)
		})
	}

	fileServer := http.FileServer(http.FS(sub))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api" || strings.HasPrefix(r.URL.Path, "/api/") {
			http.NotFound(w, r)
			return
		}
		fileServer.ServeHTTP(w, r)
	})
}

func resolveLocationOrLocal(name string) *time.Location {
	if name == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		appLog.Error("failed to load timezone; falling back to local", err, "name", name)
		return time.Local
	}
	return loc
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
