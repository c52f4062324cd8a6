package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Serdarq1/calendar-api/internal/calendar"
	"github.com/Serdarq1/calendar-api/internal/ics"
)

func listCalendars(service calendar.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := requestUserID(r)
		if userID == "" {
			// Anonymous callers see an empty listing, not an error.
			writeJSON(w, http.StatusOK, map[string]any{"calendars": []calendar.CalendarRef{}})
			return
		}

		ctx, cancel := requestContext(r)
		defer cancel()

		refs, err := service.ListCalendars(ctx, userID)
		if err != nil {
			logRequestError(r.Context(), logger, "failed to list calendars", err, userID)
			writeError(w, http.StatusInternalServerError, "failed to load calendars")
			return
		}
		if refs == nil {
			refs = []calendar.CalendarRef{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"calendars": refs})
	}
}

func createCalendar(service calendar.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := requestUserID(r)

		var body struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		ctx, cancel := requestContext(r)
		defer cancel()

		ref, err := service.CreateCalendar(ctx, userID, calendar.CreateCalendarInput{ID: body.ID, Name: body.Name})
		switch {
		case errors.Is(err, calendar.ErrInvalidInput):
			writeError(w, http.StatusBadRequest, "name required")
		case err != nil:
			logRequestError(r.Context(), logger, "failed to create calendar", err, userID)
			writeError(w, http.StatusInternalServerError, "failed to create")
		default:
			writeJSON(w, http.StatusOK, map[string]any{"calendar": ref})
		}
	}
}

func getCalendar(service calendar.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := requestUserID(r)
		calendarID := chi.URLParam(r, "id")

		ctx, cancel := requestContext(r)
		defer cancel()

		detail, err := service.GetCalendar(ctx, userID, calendarID)
		switch {
		case errors.Is(err, calendar.ErrNotFound):
			writeError(w, http.StatusNotFound, "not found")
		case errors.Is(err, calendar.ErrForbidden):
			writeError(w, http.StatusForbidden, "forbidden")
		case err != nil:
			logRequestError(r.Context(), logger, "failed to load calendar", err, userID)
			writeError(w, http.StatusInternalServerError, "failed to load calendar")
		default:
			writeJSON(w, http.StatusOK, map[string]any{"calendar": detail})
		}
	}
}

func renameCalendar(service calendar.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := requestUserID(r)
		calendarID := chi.URLParam(r, "id")

		var body struct {
			Name string `json:"name"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		ctx, cancel := requestContext(r)
		defer cancel()

		name, err := service.RenameCalendar(ctx, userID, calendarID, body.Name)
		switch {
		case errors.Is(err, calendar.ErrInvalidInput):
			writeError(w, http.StatusBadRequest, "name required")
		case errors.Is(err, calendar.ErrNotFound):
			writeError(w, http.StatusNotFound, "calendar not found")
		case errors.Is(err, calendar.ErrForbidden):
			writeError(w, http.StatusForbidden, "forbidden")
		case err != nil:
			logRequestError(r.Context(), logger, "failed to rename calendar", err, userID)
			writeError(w, http.StatusInternalServerError, "failed to update")
		default:
			writeJSON(w, http.StatusOK, map[string]any{"ok": true, "name": name})
		}
	}
}

func deleteCalendar(service calendar.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := requestUserID(r)
		calendarID := chi.URLParam(r, "id")

		ctx, cancel := requestContext(r)
		defer cancel()

		err := service.DeleteCalendar(ctx, userID, calendarID)
		switch {
		case errors.Is(err, calendar.ErrForbidden):
			writeError(w, http.StatusForbidden, "forbidden")
		case err != nil:
			logRequestError(r.Context(), logger, "failed to delete calendar", err, userID)
			writeError(w, http.StatusInternalServerError, "failed to delete")
		default:
			writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
		}
	}
}

func inviteMember(service calendar.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := requestUserID(r)
		calendarID := chi.URLParam(r, "id")

		var body struct {
			Email string `json:"email"`
			Role  string `json:"role"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if strings.TrimSpace(body.Email) == "" {
			writeError(w, http.StatusBadRequest, "email required")
			return
		}

		ctx, cancel := requestContext(r)
		defer cancel()

		err := service.Invite(ctx, userID, calendarID, body.Email, calendar.Role(body.Role))
		switch {
		case errors.Is(err, calendar.ErrInvalidInput):
			writeError(w, http.StatusBadRequest, "invalid role")
		case errors.Is(err, calendar.ErrNotFound):
			writeError(w, http.StatusNotFound, "calendar not found")
		case errors.Is(err, calendar.ErrForbidden):
			writeError(w, http.StatusForbidden, "forbidden")
		case errors.Is(err, calendar.ErrUserNotFound):
			writeError(w, http.StatusNotFound, "user not found")
		case err != nil:
			logRequestError(r.Context(), logger, "failed to invite member", err, userID)
			writeError(w, http.StatusInternalServerError, "failed to invite")
		default:
			writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
		}
	}
}

func exportCalendar(service calendar.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := requestUserID(r)
		calendarID := chi.URLParam(r, "id")

		ctx, cancel := requestContext(r)
		defer cancel()

		detail, err := service.GetCalendar(ctx, userID, calendarID)
		switch {
		case errors.Is(err, calendar.ErrNotFound):
			writeError(w, http.StatusNotFound, "not found")
			return
		case errors.Is(err, calendar.ErrForbidden):
			writeError(w, http.StatusForbidden, "forbidden")
			return
		case err != nil:
			logRequestError(r.Context(), logger, "failed to load calendar", err, userID)
			writeError(w, http.StatusInternalServerError, "failed to export")
			return
		}

		views, err := service.ListEvents(ctx, userID, calendarID)
		if err != nil {
			logRequestError(r.Context(), logger, "failed to list events for export", err, userID)
			writeError(w, http.StatusInternalServerError, "failed to export")
			return
		}

		payload, err := ics.Export(detail.Name, views)
		if err != nil {
			logRequestError(r.Context(), logger, "failed to encode calendar export", err, userID)
			writeError(w, http.StatusInternalServerError, "failed to export")
			return
		}

		w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="`+calendarID+`.ics"`)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(payload)
	}
}
