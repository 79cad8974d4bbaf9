package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"tradelab/src/alerts"
	"tradelab/src/auth"
	"tradelab/src/backtest"
	"tradelab/src/handler"
	"tradelab/src/marketdata"
	"tradelab/src/papertrading"
	"tradelab/src/repository"
)

// Deps bundles everything the HTTP API needs. Built once in main.
type Deps struct {
	DB            *gorm.DB
	Users         *repository.UserRepository
	Strategies    *repository.StrategyRepository
	Runs          *repository.BacktestRunRepository
	Alerts        *repository.AlertRepository
	Notifications *repository.NotificationRepository
	Market        *marketdata.Service
	Engine        *backtest.Engine
	Sessions      *papertrading.Registry
	Checker       *alerts.Checker
}

func StartServer(port string, deps Deps) {
	// Router with middleware
	r := chi.NewRouter()

	// Public routes
	r.Get("/healthcheck", func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("OK")); err != nil {
			logger.WithError(err).Error(" \"/health error")
		}
	})

	r.Route("/api", func(api chi.Router) {
		api.Use(auth.Middleware(deps.Users))

		api.Get("/me", handler.MeHandler())
		api.Post("/me/password", handler.ChangePasswordHandler())

		api.Post("/strategies", handler.CreateStrategyHandler(deps.Strategies))
		api.Get("/strategies", handler.ListStrategiesHandler(deps.Strategies))
		api.Get("/strategies/{id}", handler.GetStrategyHandler(deps.Strategies))
		api.Get("/strategies/{id}/backtests", handler.ListBacktestsHandler(deps.Strategies, deps.Runs))

		api.Post("/backtests", handler.RunBacktestHandler(deps.Strategies, deps.Runs, deps.Engine))
		api.Get("/backtests/{id}", handler.GetBacktestHandler(deps.Runs))

		api.Post("/paper-sessions", handler.CreatePaperSessionHandler(deps.Strategies, deps.Sessions, deps.Market))
		api.Get("/paper-sessions/{id}/signals", handler.PaperSignalsHandler(deps.Sessions))
		api.Post("/paper-sessions/{id}/entry", handler.PaperEntryHandler(deps.Sessions))
		api.Post("/paper-sessions/{id}/exit", handler.PaperExitHandler(deps.Sessions))
		api.Get("/paper-sessions/{id}/metrics", handler.PaperMetricsHandler(deps.Sessions))
		api.Delete("/paper-sessions/{id}", handler.RemovePaperSessionHandler(deps.Sessions))

		api.Post("/alerts", handler.CreateAlertHandler(deps.Alerts))
		api.Get("/alerts", handler.ListAlertsHandler(deps.Alerts))
		api.Post("/alerts/{id}/reactivate", handler.ReactivateAlertHandler(deps.Alerts))
		api.Delete("/alerts/{id}", handler.DeleteAlertHandler(deps.Alerts))
		api.Post("/alerts/check", handler.CheckAlertsHandler(deps.Checker, deps.DB))

		api.Get("/notifications", handler.ListNotificationsHandler(deps.Notifications))
	})

	// Graceful server
	// Server setup
	addr := ":" + port
	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	// Start server in goroutine
	go func() {
		logger.Infof("Listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("Server crashed")
		}
	}()

	// Shutdown on SIGINT or SIGTERM
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("Shutting down gracefully...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("Shutdown error")
	}
}
