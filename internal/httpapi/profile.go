package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/Serdarq1/calendar-api/internal/calendar"
)

// syncProfile mirrors the identity record into the profiles table. Called by
// the client after every sign-in, so it must stay idempotent.
func syncProfile(service calendar.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := requestUserID(r)

		ctx, cancel := requestContext(r)
		defer cancel()

		if err := service.SyncProfile(ctx, userID); err != nil {
			logRequestError(r.Context(), logger, "failed to sync profile", err, userID)
			writeError(w, http.StatusInternalServerError, "failed to sync profile")
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	}
}
