package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/starford/bujo/internal/models"
	"github.com/starford/bujo/internal/parser"
	"github.com/starford/bujo/internal/planservice"
)

// Handler holds API route handlers.
type Handler struct {
	svc *planservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *planservice.Service) *Handler {
	return &Handler{svc: svc}
}

// Projects handles GET /api/projects.
//
//	@Summary		List parsed projects
//	@Tags			plan
//	@Produce		json
//	@Param			group	query		string	false	"Group id"
//	@Success		200		{object}	ProjectsResponse
//	@Security		BearerAuth
//	@Router			/projects [get]
func (h *Handler) Projects(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, ProjectsResponse{Projects: h.svc.Projects(r.URL.Query().Get("group"))})
}

// Items handles GET /api/items.
//
//	@Summary		List flattened items
//	@Tags			plan
//	@Produce		json
//	@Param			group	query		string	false	"Group id"
//	@Param			bucket	query		string	false	"Item bucket"	Enums(all, future, expired, completed, abandoned)
//	@Success		200		{object}	ItemsResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/items [get]
func (h *Handler) Items(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	bucket, err := planservice.ParseBucket(q.Get("bucket"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("unknown bucket"))
		return
	}
	writeJSON(w, http.StatusOK, ItemsResponse{Items: h.svc.Items(q.Get("group"), bucket)})
}

// Agenda handles GET /api/items/agenda.
//
//	@Summary		Items from today on, grouped by date
//	@Tags			plan
//	@Produce		json
//	@Param			group	query		string	false	"Group id"
//	@Success		200		{object}	AgendaResponse
//	@Security		BearerAuth
//	@Router			/items/agenda [get]
func (h *Handler) Agenda(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, AgendaResponse{Days: h.svc.GroupedFuture(r.URL.Query().Get("group"))})
}

// Calendar handles GET /api/calendar.
//
//	@Summary		Calendar events
//	@Tags			views
//	@Produce		json
//	@Param			group	query		string	false	"Group id"
//	@Success		200		{object}	CalendarResponse
//	@Security		BearerAuth
//	@Router			/calendar [get]
func (h *Handler) Calendar(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, CalendarResponse{Events: h.svc.CalendarEvents(r.URL.Query().Get("group"))})
}

// Gantt handles GET /api/gantt.
//
//	@Summary		Gantt rows
//	@Tags			views
//	@Produce		json
//	@Param			group		query		string	false	"Group id"
//	@Param			showItems	query		bool	false	"Include item rows"
//	@Param			start		query		string	false	"Window start (YYYY-MM-DD)"
//	@Param			end			query		string	false	"Window end (YYYY-MM-DD)"
//	@Success		200			{object}	GanttResponse
//	@Failure		400			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/gantt [get]
func (h *Handler) Gantt(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	showItems := false
	if v := q.Get("showItems"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody("showItems must be a boolean"))
			return
		}
		showItems = b
	}

	filter := models.DateFilter{Start: q.Get("start"), End: q.Get("end")}
	for _, d := range []string{filter.Start, filter.End} {
		if d == "" {
			continue
		}
		if _, err := time.Parse(time.DateOnly, d); err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody("start and end must be YYYY-MM-DD"))
			return
		}
	}

	writeJSON(w, http.StatusOK, GanttResponse{Tasks: h.svc.GanttTasks(q.Get("group"), showItems, filter)})
}

// Groups handles GET /api/groups.
//
//	@Summary		Configured project groups
//	@Tags			plan
//	@Produce		json
//	@Success		200	{object}	GroupsResponse
//	@Security		BearerAuth
//	@Router			/groups [get]
func (h *Handler) Groups(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, GroupsResponse{Groups: h.svc.Groups()})
}

// Status handles GET /api/status.
//
//	@Summary		Plan cache state
//	@Tags			plan
//	@Produce		json
//	@Success		200	{object}	StatusResponse
//	@Security		BearerAuth
//	@Router			/status [get]
func (h *Handler) Status(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, StatusResponse{
		Summary:    h.svc.LastRefresh(),
		Refreshing: h.svc.Refreshing(),
	})
}

// Refresh handles POST /api/refresh.
//
//	@Summary		Start a background refresh
//	@Tags			plan
//	@Success		202	"Refresh started"
//	@Failure		409	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/refresh [post]
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.StartRefresh(context.WithoutCancel(r.Context())); err != nil {
		writeError(w, "refresh", err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// SetStatus handles POST /api/blocks/{id}/status.
//
//	@Summary		Mark an item completed or abandoned
//	@Tags			blocks
//	@Accept			json
//	@Param			id		path	string			true	"Block id"
//	@Param			body	body	StatusRequest	true	"New status"
//	@Success		204		"Block updated"
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/blocks/{id}/status [post]
func (h *Handler) SetStatus(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req StatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Status != models.StatusCompleted && req.Status != models.StatusAbandoned {
		writeJSON(w, http.StatusBadRequest, errorBody("status must be completed or abandoned"))
		return
	}
	if err := h.svc.SetItemStatus(r.Context(), chi.URLParam(r, "id"), req.Status); err != nil {
		writeError(w, "set status", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Reschedule handles POST /api/blocks/{id}/schedule.
//
//	@Summary		Move an item to a new date or time
//	@Tags			blocks
//	@Accept			json
//	@Param			id		path	string			true	"Block id"
//	@Param			body	body	ScheduleRequest	true	"New schedule"
//	@Success		204		"Block updated"
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/blocks/{id}/schedule [post]
func (h *Handler) Reschedule(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req ScheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Date == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("date is required"))
		return
	}
	sched := parser.Schedule{Date: req.Date, Start: req.Start, End: req.End, AllDay: req.AllDay}
	if err := h.svc.RescheduleItem(r.Context(), chi.URLParam(r, "id"), sched); err != nil {
		writeError(w, "reschedule", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
