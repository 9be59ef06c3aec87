package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/MrEthical07/goEMS/middleware"
	"github.com/MrEthical07/goEMS/navigation"
	"github.com/MrEthical07/goEMS/projects"
	"github.com/MrEthical07/goEMS/session"
)

type sessionResponse struct {
	User             *session.User             `json:"user"`
	IsLoggedIn       bool                      `json:"isLoggedIn"`
	LoginTime        string                    `json:"attendanceLoginTime,omitempty"`
	AttendanceRecord *session.AttendanceRecord `json:"attendanceRecord"`
	LogoutTime       string                    `json:"attendanceLogoutTime,omitempty"`
	Menu             []navigation.MenuItem     `json:"menu"`
}

func newSessionResponse(st session.State) sessionResponse {
	menu := navigation.Menu(st.User)
	if !st.LoggedIn() || menu == nil {
		menu = []navigation.MenuItem{}
	}
	return sessionResponse{
		User:             st.User,
		IsLoggedIn:       st.IsLoggedIn,
		LoginTime:        st.LoginTime,
		AttendanceRecord: st.AttendanceRecord,
		LogoutTime:       st.LogoutTime,
		Menu:             menu,
	}
}

type loginRequest struct {
	User  *session.User `json:"user"`
	Token string        `json:"token"`
}

type attendanceRequest struct {
	At     *time.Time                `json:"at"`
	Record *session.AttendanceRecord `json:"record"`
}

type projectRequest struct {
	ProjectName string `json:"project_name"`
	Description string `json:"description"`
	TeamID      string `json:"team_id"`
	ManagerID   string `json:"manager_id"`
	Status      string `json:"status"`
	Deadline    string `json:"deadline"`
}

func (h *Handler) healthz(w http.ResponseWriter, _ *http.Request) {
	writeSuccess(w, http.StatusOK, map[string]string{"state": "ok"})
}

func (h *Handler) loginPage(w http.ResponseWriter, _ *http.Request) {
	writeSuccess(w, http.StatusOK, map[string]string{"page": "login"})
}

func (h *Handler) session(w http.ResponseWriter, _ *http.Request) {
	writeSuccess(w, http.StatusOK, newSessionResponse(h.client.Session()))
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}
	if err := h.client.Login(r.Context(), req.User, req.Token); err != nil {
		h.writeMappedError(w, r, "login", err)
		return
	}
	writeSuccess(w, http.StatusOK, newSessionResponse(h.client.Session()))
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	h.client.Logout(r.Context())
	writeSuccess(w, http.StatusOK, newSessionResponse(h.client.Session()))
}

func (h *Handler) menu(w http.ResponseWriter, r *http.Request) {
	st, _ := middleware.StateFromContext(r.Context())
	menu := navigation.Menu(st.User)
	if menu == nil {
		menu = []navigation.MenuItem{}
	}
	writeSuccess(w, http.StatusOK, menu)
}

func (h *Handler) checkIn(w http.ResponseWriter, r *http.Request) {
	h.attendance(w, r, "check_in", h.client.CheckIn)
}

func (h *Handler) checkOut(w http.ResponseWriter, r *http.Request) {
	h.attendance(w, r, "check_out", h.client.CheckOut)
}

func (h *Handler) attendance(
	w http.ResponseWriter,
	r *http.Request,
	operation string,
	apply func(ctx context.Context, at time.Time, record *session.AttendanceRecord) error,
) {
	var req attendanceRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}
	at := h.now()
	if req.At != nil {
		at = *req.At
	}
	if err := apply(r.Context(), at, req.Record); err != nil {
		h.writeMappedError(w, r, operation, err)
		return
	}
	writeSuccess(w, http.StatusOK, newSessionResponse(h.client.Session()))
}

func (h *Handler) projectOptions(w http.ResponseWriter, r *http.Request) {
	teams, managers, err := h.client.Projects().FormOptions(r.Context())
	if err != nil {
		h.writeMappedError(w, r, "project_options", err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{
		"teams":    teams,
		"managers": managers,
	})
}

func (h *Handler) createProject(w http.ResponseWriter, r *http.Request) {
	var req projectRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}
	project, err := h.client.CreateProject(r.Context(), projects.Form{
		Name:        req.ProjectName,
		Description: req.Description,
		TeamID:      req.TeamID,
		ManagerID:   req.ManagerID,
		Status:      req.Status,
		Deadline:    req.Deadline,
	})
	if err != nil {
		h.writeMappedError(w, r, "create_project", err)
		return
	}
	writeSuccess(w, http.StatusCreated, project)
}

func (h *Handler) page(w http.ResponseWriter, r *http.Request) {
	st, _ := middleware.StateFromContext(r.Context())
	writeSuccess(w, http.StatusOK, map[string]any{
		"path": r.URL.Path,
		"menu": navigation.Menu(st.User),
	})
}

func (h *Handler) writeMappedError(w http.ResponseWriter, r *http.Request, operation string, err error) {
	status, code, msg := mapError(err)
	h.logger.Log(r.Context(), slogLevel(status), "request failed",
		"operation", operation,
		"request_id", requestIDFromContext(r.Context()),
		"code", code,
		"err", err,
	)
	writeError(w, status, code, msg)
}

func slogLevel(status int) slog.Level {
	switch {
	case status >= 500:
		return slog.LevelError
	case status >= 400:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}
