package httpapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/Serdarq1/calendar-api/internal/auth"
	"github.com/Serdarq1/calendar-api/internal/calendar"
)

const serviceTimeout = 8 * time.Second

// RegisterRoutes mounts the calendar API. Every route except the calendar
// listing requires a verified identity; GET /calendars answers anonymous
// callers with an empty list instead of a 401.
func RegisterRoutes(r chi.Router, service calendar.Service, verifier auth.Verifier, logger *slog.Logger) {
	r.Group(func(r chi.Router) {
		r.Use(auth.OptionalMiddleware(verifier))
		r.Get("/calendars", listCalendars(service, logger))
	})

	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(verifier))

		r.Post("/calendars", createCalendar(service, logger))
		r.Get("/calendars/{id}", getCalendar(service, logger))
		r.Patch("/calendars/{id}", renameCalendar(service, logger))
		r.Delete("/calendars/{id}", deleteCalendar(service, logger))
		r.Post("/calendars/{id}/invite", inviteMember(service, logger))
		r.Get("/calendars/{id}/export", exportCalendar(service, logger))

		r.Get("/events", listEvents(service, logger))
		r.Post("/events", createEvent(service, logger))
		r.Get("/events/{id}", getEvent(service, logger))
		r.Patch("/events/{id}", updateEvent(service, logger))
		r.Delete("/events/{id}", deleteEvent(service, logger))

		r.Post("/profile", syncProfile(service, logger))
	})
}

func requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), serviceTimeout)
}

func requestUserID(r *http.Request) string {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		return ""
	}
	return user.UserID
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func logRequestError(ctx context.Context, logger *slog.Logger, message string, err error, userID string) {
	if logger == nil || err == nil {
		return
	}
	attrs := []any{
		slog.String("userId", userID),
		slog.Any("error", err),
	}
	if reqID := middleware.GetReqID(ctx); reqID != "" {
		attrs = append(attrs, slog.String("requestId", reqID))
	}
	logger.Error(message, attrs...)
}
