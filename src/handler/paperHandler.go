package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"

	"tradelab/src/auth"
	"tradelab/src/papertrading"
)

type createPaperSessionPayload struct {
	StrategyID uint   `json:"strategy_id"`
	Ticker     string `json:"ticker"`
}

// executionPayload optionally overrides the execution price; without it the
// engine fills at the live quote.
type executionPayload struct {
	Price *decimal.Decimal `json:"price,omitempty"`
}

// CreatePaperSessionHandler starts a live simulation session for one of the
// user's strategies and returns its id.
func CreatePaperSessionHandler(strategies strategyGetter, sessions *papertrading.Registry, market papertrading.MarketData) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := auth.GetUserFromContext(r.Context())
		if !ok || user == nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		var payload createPaperSessionPayload
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

		strat, err := loadOwnedStrategy(r.Context(), strategies, payload.StrategyID, user)
		if err != nil {
			writeStrategyError(w, err)
			return
		}

		engine := papertrading.NewEngine(nil, strat, payload.Ticker, market)
		id := sessions.Add(engine)

		writeJSON(w, http.StatusCreated, map[string]string{"session_id": id})
	}
}

// PaperSignalsHandler evaluates the session's strategy against the latest
// data and reports whether an entry or exit signal is pending.
func PaperSignalsHandler(sessions *papertrading.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		engine, ok := sessionFromRequest(w, r, sessions)
		if !ok {
			return
		}

		signals, err := engine.CheckSignals(r.Context())
		if err != nil {
			logger.WithError(err).Error("signal check failed")
			http.Error(w, "signal check failed", http.StatusBadGateway)
			return
		}

		writeJSON(w, http.StatusOK, signals)
	}
}

// PaperEntryHandler opens a simulated position. A rejected entry (capital too
// small for one share) reports executed=false rather than an error.
func PaperEntryHandler(sessions *papertrading.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		engine, ok := sessionFromRequest(w, r, sessions)
		if !ok {
			return
		}

		payload, ok := decodeExecutionPayload(w, r)
		if !ok {
			return
		}

		trade, err := engine.ExecuteEntry(r.Context(), payload.Price)
		if err != nil {
			logger.WithError(err).Error("paper entry failed")
			http.Error(w, "entry failed", http.StatusBadGateway)
			return
		}
		if trade == nil {
			writeJSON(w, http.StatusOK, map[string]any{
				"executed": false,
				"reason":   "insufficient capital",
			})
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{"executed": true, "trade": trade})
	}
}

// PaperExitHandler closes every open position in the session.
func PaperExitHandler(sessions *papertrading.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		engine, ok := sessionFromRequest(w, r, sessions)
		if !ok {
			return
		}

		payload, ok := decodeExecutionPayload(w, r)
		if !ok {
			return
		}

		trades, err := engine.ExecuteExit(r.Context(), payload.Price)
		if err != nil {
			logger.WithError(err).Error("paper exit failed")
			http.Error(w, "exit failed", http.StatusBadGateway)
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{"trades": trades})
	}
}

// PaperMetricsHandler reports performance statistics for the session so far.
func PaperMetricsHandler(sessions *papertrading.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		engine, ok := sessionFromRequest(w, r, sessions)
		if !ok {
			return
		}

		metrics, err := engine.PerformanceMetrics(r.Context())
		if err != nil {
			logger.WithError(err).Error("paper metrics failed")
			http.Error(w, "metrics unavailable", http.StatusBadGateway)
			return
		}

		writeJSON(w, http.StatusOK, metrics)
	}
}

// RemovePaperSessionHandler discards a session and its in-memory state.
func RemovePaperSessionHandler(sessions *papertrading.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := sessionFromRequest(w, r, sessions); !ok {
			return
		}

		sessions.Remove(chi.URLParam(r, "id"))
		w.WriteHeader(http.StatusNoContent)
	}
}

func sessionFromRequest(w http.ResponseWriter, r *http.Request, sessions *papertrading.Registry) (*papertrading.Engine, bool) {
	user, ok := auth.GetUserFromContext(r.Context())
	if !ok || user == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return nil, false
	}

	engine, err := sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "session not found", http.StatusNotFound)
		return nil, false
	}
	return engine, true
}

func decodeExecutionPayload(w http.ResponseWriter, r *http.Request) (executionPayload, bool) {
	var payload executionPayload
	err := json.NewDecoder(r.Body).Decode(&payload)
	if err != nil && !errors.Is(err, io.EOF) {
		http.Error(w, "Invalid payload", http.StatusBadRequest)
		return executionPayload{}, false
	}
	return payload, true
}
