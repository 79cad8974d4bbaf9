package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"tradelab/src/alerts"
	"tradelab/src/auth"
	"tradelab/src/model"
)

type alertStore interface {
	Create(ctx context.Context, alert *model.Alert) error
	GetByID(ctx context.Context, id uint) (*model.Alert, error)
	ListByUser(ctx context.Context, userID uint) ([]model.Alert, error)
	Reactivate(ctx context.Context, id uint) error
	Delete(ctx context.Context, id uint) error
}

type createAlertPayload struct {
	Ticker         string   `json:"ticker"`
	IndicatorType  string   `json:"indicator_type"`
	Condition      string   `json:"condition"`
	ThresholdValue *float64 `json:"threshold_value,omitempty"`
}

var validAlertIndicators = map[string]bool{
	model.AlertIndicatorPrice:      true,
	model.AlertIndicatorRSI:        true,
	model.AlertIndicatorStochastic: true,
	model.AlertIndicatorMACD:       true,
	model.AlertIndicatorBBands:     true,
}

var validAlertConditions = map[string]bool{
	model.OperatorGreaterThan: true,
	model.OperatorLessThan:    true,
	model.OperatorCrossAbove:  true,
	model.OperatorCrossBelow:  true,
}

// thresholdRequired lists indicator types whose reference is a fixed value
// rather than another series.
var thresholdRequired = map[string]bool{
	model.AlertIndicatorPrice:      true,
	model.AlertIndicatorRSI:        true,
	model.AlertIndicatorStochastic: true,
}

// CreateAlertHandler registers a one-shot alert for the authenticated user.
func CreateAlertHandler(store alertStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := auth.GetUserFromContext(r.Context())
		if !ok || user == nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		var payload createAlertPayload
		decoder := json.NewDecoder(r.Body)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&payload); err != nil {
			http.Error(w, "Invalid payload", http.StatusBadRequest)
			return
		}

		if payload.Ticker == "" {
			http.Error(w, "ticker is required", http.StatusBadRequest)
			return
		}
		if !validAlertIndicators[payload.IndicatorType] {
			http.Error(w, "invalid indicator_type", http.StatusBadRequest)
			return
		}
		if !validAlertConditions[payload.Condition] {
			http.Error(w, "invalid condition", http.StatusBadRequest)
			return
		}
		if thresholdRequired[payload.IndicatorType] && payload.ThresholdValue == nil {
			http.Error(w, "threshold_value is required for this indicator", http.StatusBadRequest)
			return
		}

		alert := &model.Alert{
			UserID:         user.ID,
			Ticker:         payload.Ticker,
			IndicatorType:  payload.IndicatorType,
			Condition:      payload.Condition,
			ThresholdValue: payload.ThresholdValue,
			IsActive:       true,
		}

		if err := store.Create(r.Context(), alert); err != nil {
			logger.WithError(err).Error("failed to create alert")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusCreated, alert)
	}
}

// ListAlertsHandler lists the authenticated user's alerts.
func ListAlertsHandler(store alertStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := auth.GetUserFromContext(r.Context())
		if !ok || user == nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		out, err := store.ListByUser(r.Context(), user.ID)
		if err != nil {
			logger.WithError(err).Error("failed to list alerts")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusOK, out)
	}
}

// ReactivateAlertHandler turns a triggered alert back on.
func ReactivateAlertHandler(store alertStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		alert, ok := ownedAlertFromRequest(w, r, store)
		if !ok {
			return
		}

		if err := store.Reactivate(r.Context(), alert.ID); err != nil {
			logger.WithError(err).Error("failed to reactivate alert")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{"status": "reactivated"})
	}
}

// DeleteAlertHandler removes an alert.
func DeleteAlertHandler(store alertStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		alert, ok := ownedAlertFromRequest(w, r, store)
		if !ok {
			return
		}

		if err := store.Delete(r.Context(), alert.ID); err != nil {
			logger.WithError(err).Error("failed to delete alert")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

// CheckAlertsHandler triggers one alert batch on demand. Admin only; the
// scheduler runs the same batch periodically.
func CheckAlertsHandler(checker *alerts.Checker, db *gorm.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := auth.GetUserFromContext(r.Context())
		if !ok || user == nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		if user.Role != model.RoleAdmin {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}

		triggered, err := checker.CheckAndTrigger(r.Context(), db)
		if err != nil {
			logger.WithError(err).Error("manual alert batch failed")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusOK, map[string]int{"triggered": triggered})
	}
}

func ownedAlertFromRequest(w http.ResponseWriter, r *http.Request, store alertStore) (*model.Alert, bool) {
	user, ok := auth.GetUserFromContext(r.Context())
	if !ok || user == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return nil, false
	}

	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid alert id", http.StatusBadRequest)
		return nil, false
	}

	alert, err := store.GetByID(r.Context(), uint(id))
	if err != nil {
		http.Error(w, "alert not found", http.StatusNotFound)
		return nil, false
	}
	if alert.UserID != user.ID && user.Role != model.RoleAdmin {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return nil, false
	}
	return alert, true
}
