package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"

	"tradelab/src/auth"
	"tradelab/src/indicator"
	"tradelab/src/model"
)

type strategyStore interface {
	strategyGetter
	Create(ctx context.Context, s *model.Strategy) error
	ListByUser(ctx context.Context, userID uint) ([]model.Strategy, error)
}

type conditionPayload struct {
	ConditionType    string   `json:"condition_type"`
	Indicator        string   `json:"indicator"`
	CompareIndicator string   `json:"compare_indicator,omitempty"`
	Operator         string   `json:"operator"`
	Value            *float64 `json:"value,omitempty"`
	Logic            string   `json:"logic"`
	SortOrder        int      `json:"sort_order"`
}

type createStrategyPayload struct {
	Name            string             `json:"name"`
	Description     string             `json:"description"`
	InitialCapital  decimal.Decimal    `json:"initial_capital"`
	PositionSizePct decimal.Decimal    `json:"position_size_pct"`
	Conditions      []conditionPayload `json:"conditions"`
}

var validOperators = map[string]bool{
	model.OperatorGreaterThan:         true,
	model.OperatorLessThan:            true,
	model.OperatorGreaterEqual:        true,
	model.OperatorLessEqual:           true,
	model.OperatorEqual:               true,
	model.OperatorCrossAbove:          true,
	model.OperatorCrossBelow:          true,
	model.OperatorCrossAboveIndicator: true,
	model.OperatorCrossBelowIndicator: true,
}

// CreateStrategyHandler stores a new strategy with its condition list.
func CreateStrategyHandler(store strategyStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := auth.GetUserFromContext(r.Context())
		if !ok || user == nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		var payload createStrategyPayload
		decoder := json.NewDecoder(r.Body)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&payload); err != nil {
			http.Error(w, "Invalid payload", http.StatusBadRequest)
			return
		}

		if payload.Name == "" {
			http.Error(w, "name is required", http.StatusBadRequest)
			return
		}
		if payload.InitialCapital.LessThanOrEqual(decimal.Zero) {
			http.Error(w, "initial_capital must be positive", http.StatusBadRequest)
			return
		}
		if payload.PositionSizePct.LessThanOrEqual(decimal.Zero) || payload.PositionSizePct.GreaterThan(decimal.NewFromInt(100)) {
			http.Error(w, "position_size_pct must be in (0, 100]", http.StatusBadRequest)
			return
		}

		conditions := make([]model.StrategyCondition, 0, len(payload.Conditions))
		for i, c := range payload.Conditions {
			if msg, ok := validateCondition(c); !ok {
				http.Error(w, "condition "+strconv.Itoa(i)+": "+msg, http.StatusBadRequest)
				return
			}
			logic := c.Logic
			if logic == "" {
				logic = model.LogicAnd
			}
			conditions = append(conditions, model.StrategyCondition{
				ConditionType:    c.ConditionType,
				Indicator:        c.Indicator,
				CompareIndicator: c.CompareIndicator,
				Operator:         c.Operator,
				Value:            c.Value,
				Logic:            logic,
				SortOrder:        c.SortOrder,
			})
		}

		strat := &model.Strategy{
			UserID:          user.ID,
			Name:            payload.Name,
			Description:     payload.Description,
			InitialCapital:  payload.InitialCapital,
			PositionSizePct: payload.PositionSizePct,
			Active:          true,
			Conditions:      conditions,
		}

		if err := store.Create(r.Context(), strat); err != nil {
			logger.WithError(err).Error("failed to create strategy")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusCreated, strat)
	}
}

// ListStrategiesHandler lists the user's strategies with conditions.
func ListStrategiesHandler(store strategyStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := auth.GetUserFromContext(r.Context())
		if !ok || user == nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		out, err := store.ListByUser(r.Context(), user.ID)
		if err != nil {
			logger.WithError(err).Error("failed to list strategies")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusOK, out)
	}
}

// GetStrategyHandler returns one strategy the user owns.
func GetStrategyHandler(store strategyStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := auth.GetUserFromContext(r.Context())
		if !ok || user == nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			http.Error(w, "invalid strategy id", http.StatusBadRequest)
			return
		}

		strat, err := loadOwnedStrategy(r.Context(), store, uint(id), user)
		if err != nil {
			writeStrategyError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, strat)
	}
}

func validateCondition(c conditionPayload) (string, bool) {
	if c.ConditionType != model.ConditionTypeEntry && c.ConditionType != model.ConditionTypeExit {
		return "invalid condition_type", false
	}
	if !validOperators[c.Operator] {
		return "invalid operator", false
	}
	if c.Logic != "" && c.Logic != model.LogicAnd && c.Logic != model.LogicOr {
		return "invalid logic", false
	}
	if _, ok := indicator.Column(c.Indicator); !ok {
		return "unknown indicator", false
	}
	if c.CompareIndicator != "" {
		if _, ok := indicator.Column(c.CompareIndicator); !ok {
			return "unknown compare_indicator", false
		}
	}

	switch c.Operator {
	case model.OperatorCrossAboveIndicator, model.OperatorCrossBelowIndicator:
		// reference is another series; no fixed value needed
	default:
		if c.Value == nil {
			return "value is required", false
		}
	}
	return "", true
}
