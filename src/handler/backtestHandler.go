package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"tradelab/src/auth"
	"tradelab/src/backtest"
	"tradelab/src/model"
)

type strategyGetter interface {
	GetByID(ctx context.Context, id uint) (*model.Strategy, error)
}

type backtestRunStore interface {
	Create(ctx context.Context, run *model.BacktestRun) error
	GetByID(ctx context.Context, id string) (*model.BacktestRun, error)
	ListByStrategy(ctx context.Context, strategyID uint) ([]model.BacktestRun, error)
}

type runBacktestPayload struct {
	StrategyID uint   `json:"strategy_id"`
	Ticker     string `json:"ticker"`
	Period     int    `json:"period"`
}

const defaultBacktestPeriod = 365

// RunBacktestHandler executes a backtest for one of the user's strategies and
// persists the run before returning it.
func RunBacktestHandler(strategies strategyGetter, runs backtestRunStore, engine *backtest.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := auth.GetUserFromContext(r.Context())
		if !ok || user == nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		var payload runBacktestPayload
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
		if payload.Period <= 0 {
			payload.Period = defaultBacktestPeriod
		}

		strat, err := loadOwnedStrategy(r.Context(), strategies, payload.StrategyID, user)
		if err != nil {
			writeStrategyError(w, err)
			return
		}

		result, err := engine.Run(r.Context(), strat, payload.Ticker, payload.Period)
		if err != nil {
			if errors.Is(err, backtest.ErrDataUnavailable) {
				http.Error(w, "no historical data for ticker", http.StatusUnprocessableEntity)
				return
			}
			logger.WithError(err).Error("backtest run failed")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		run := result.ToRun(user.ID, payload.Period)

		if err := runs.Create(r.Context(), run); err != nil {
			logger.WithError(err).Error("failed to persist backtest run")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusCreated, run)
	}
}

// GetBacktestHandler returns a stored run by id.
func GetBacktestHandler(runs backtestRunStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := auth.GetUserFromContext(r.Context())
		if !ok || user == nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		run, err := runs.GetByID(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			http.Error(w, "Not Found", http.StatusNotFound)
			return
		}
		if run.UserID != user.ID && user.Role != model.RoleAdmin {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}

		writeJSON(w, http.StatusOK, run)
	}
}

// ListBacktestsHandler lists stored runs for one strategy, newest first.
func ListBacktestsHandler(strategies strategyGetter, runs backtestRunStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := auth.GetUserFromContext(r.Context())
		if !ok || user == nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		strategyID, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			http.Error(w, "invalid strategy id", http.StatusBadRequest)
			return
		}

		strat, err := loadOwnedStrategy(r.Context(), strategies, uint(strategyID), user)
		if err != nil {
			writeStrategyError(w, err)
			return
		}

		out, err := runs.ListByStrategy(r.Context(), strat.ID)
		if err != nil {
			logger.WithError(err).Error("failed to list backtest runs")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusOK, out)
	}
}

var (
	errStrategyNotFound = errors.New("strategy not found")
	errStrategyOwner    = errors.New("strategy belongs to another user")
)

func loadOwnedStrategy(ctx context.Context, strategies strategyGetter, id uint, user *model.User) (*model.Strategy, error) {
	strat, err := strategies.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errStrategyNotFound
		}
		return nil, err
	}
	if strat.UserID != user.ID && user.Role != model.RoleAdmin {
		return nil, errStrategyOwner
	}
	return strat, nil
}

func writeStrategyError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errStrategyNotFound):
		http.Error(w, "strategy not found", http.StatusNotFound)
	case errors.Is(err, errStrategyOwner):
		http.Error(w, "Forbidden", http.StatusForbidden)
	default:
		logger.WithError(err).Error("failed to load strategy")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.WithError(err).Error("failed to encode response")
	}
}
