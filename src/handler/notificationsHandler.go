package handler

import (
	"context"
	"net/http"
	"strconv"

	logger "github.com/sirupsen/logrus"

	"tradelab/src/auth"
	"tradelab/src/model"
)

type notificationLister interface {
	ListByUser(ctx context.Context, userID uint, limit int) ([]model.Notification, error)
	MarkRead(ctx context.Context, id uint) error
}

// ListNotificationsHandler returns the user's in-app notifications, newest
// first. Supports a limit query parameter.
func ListNotificationsHandler(store notificationLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := auth.GetUserFromContext(r.Context())
		if !ok || user == nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		limit := 0
		if limitParam := r.URL.Query().Get("limit"); limitParam != "" {
			parsed, err := strconv.Atoi(limitParam)
			if err != nil || parsed <= 0 {
				http.Error(w, "invalid limit", http.StatusBadRequest)
				return
			}
			limit = parsed
		}

		out, err := store.ListByUser(r.Context(), user.ID, limit)
		if err != nil {
			logger.WithError(err).Error("failed to list notifications")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusOK, out)
	}
}
