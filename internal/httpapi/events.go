package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Serdarq1/calendar-api/internal/calendar"
)

func listEvents(service calendar.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := requestUserID(r)
		calendarID := r.URL.Query().Get("calendarId")

		ctx, cancel := requestContext(r)
		defer cancel()

		views, err := service.ListEvents(ctx, userID, calendarID)
		if err != nil {
			logRequestError(r.Context(), logger, "failed to list events", err, userID)
			writeError(w, http.StatusInternalServerError, "failed to load events")
			return
		}
		if views == nil {
			views = []calendar.EventView{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"events": views})
	}
}

func createEvent(service calendar.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := requestUserID(r)

		var body struct {
			ID         string `json:"id"`
			Title      string `json:"title"`
			Status     string `json:"status"`
			Date       string `json:"date"`
			Time       string `json:"time"`
			Type       string `json:"type"`
			CalendarID string `json:"calendar_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		ctx, cancel := requestContext(r)
		defer cancel()

		view, err := service.CreateEvent(ctx, userID, calendar.CreateEventInput{
			ID:         body.ID,
			CalendarID: body.CalendarID,
			Title:      body.Title,
			Status:     body.Status,
			Date:       body.Date,
			Time:       body.Time,
			Type:       calendar.EventType(body.Type),
		})
		switch {
		case errors.Is(err, calendar.ErrInvalidInput):
			writeError(w, http.StatusBadRequest, "missing required fields")
		case errors.Is(err, calendar.ErrForbidden):
			writeError(w, http.StatusForbidden, "not allowed")
		case err != nil:
			logRequestError(r.Context(), logger, "failed to create event", err, userID)
			writeError(w, http.StatusInternalServerError, "failed to create event")
		default:
			writeJSON(w, http.StatusOK, map[string]any{"event": view})
		}
	}
}

func getEvent(service calendar.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := requestUserID(r)
		eventID := chi.URLParam(r, "id")

		ctx, cancel := requestContext(r)
		defer cancel()

		view, err := service.GetEvent(ctx, userID, eventID)
		switch {
		case errors.Is(err, calendar.ErrNotFound):
			writeError(w, http.StatusNotFound, "not found")
		case errors.Is(err, calendar.ErrForbidden):
			writeError(w, http.StatusForbidden, "forbidden")
		case err != nil:
			logRequestError(r.Context(), logger, "failed to load event", err, userID)
			writeError(w, http.StatusInternalServerError, "failed to load event")
		default:
			writeJSON(w, http.StatusOK, map[string]any{"event": view})
		}
	}
}

func updateEvent(service calendar.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := requestUserID(r)
		eventID := chi.URLParam(r, "id")

		var body struct {
			Title  *string `json:"title"`
			Status *string `json:"status"`
			Date   *string `json:"date"`
			Time   *string `json:"time"`
			Type   *string `json:"type"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		patch := calendar.EventPatch{
			Title:  body.Title,
			Status: body.Status,
			Date:   body.Date,
			Time:   body.Time,
		}
		if body.Type != nil {
			eventType := calendar.EventType(*body.Type)
			patch.Type = &eventType
		}

		ctx, cancel := requestContext(r)
		defer cancel()

		view, err := service.UpdateEvent(ctx, userID, eventID, patch)
		switch {
		case errors.Is(err, calendar.ErrInvalidInput):
			writeError(w, http.StatusBadRequest, "invalid fields")
		case errors.Is(err, calendar.ErrNotFound):
			writeError(w, http.StatusNotFound, "not found")
		case errors.Is(err, calendar.ErrForbidden):
			writeError(w, http.StatusForbidden, "forbidden")
		case err != nil:
			logRequestError(r.Context(), logger, "failed to update event", err, userID)
			writeError(w, http.StatusInternalServerError, "failed to update")
		default:
			writeJSON(w, http.StatusOK, map[string]any{"event": view})
		}
	}
}

func deleteEvent(service calendar.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := requestUserID(r)
		eventID := chi.URLParam(r, "id")

		ctx, cancel := requestContext(r)
		defer cancel()

		err := service.DeleteEvent(ctx, userID, eventID)
		switch {
		case errors.Is(err, calendar.ErrForbidden):
			writeError(w, http.StatusForbidden, "forbidden")
		case err != nil:
			logRequestError(r.Context(), logger, "failed to delete event", err, userID)
			writeError(w, http.StatusInternalServerError, "failed to delete")
		default:
			writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
		}
	}
}
