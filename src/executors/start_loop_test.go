package executors

import (
	"context"
	"errors"
	"testing"

	"gorm.io/gorm"

	"tradelab/src/alerts"
	"tradelab/src/marketdata"
)

// Ensures a cycle refreshes prices before evaluating alerts.
func TestRunCycleOrder(t *testing.T) {
	oldCheck := checkAlerts
	oldRefresh := refreshPrices
	t.Cleanup(func() {
		checkAlerts = oldCheck
		refreshPrices = oldRefresh
	})

	var order []string
	refreshPrices = func(ctx context.Context, market *marketdata.Service, symbols []string) {
		order = append(order, "refresh")
		if len(symbols) != 2 || symbols[0] != "PETR4" {
			t.Fatalf("unexpected symbols passed to refresh: %v", symbols)
		}
	}
	checkAlerts = func(ctx context.Context, checker *alerts.Checker, db *gorm.DB) (int, error) {
		order = append(order, "alerts")
		return 2, nil
	}

	runCycle(context.Background(), nil, nil, &marketdata.Service{}, []string{"PETR4", "VALE3"})

	if len(order) != 2 || order[0] != "refresh" || order[1] != "alerts" {
		t.Fatalf("unexpected cycle order: %v", order)
	}
}

// Ensures an alert batch failure does not panic or stop subsequent cycles.
func TestRunCycleAlertFailureIsLogged(t *testing.T) {
	oldCheck := checkAlerts
	oldRefresh := refreshPrices
	t.Cleanup(func() {
		checkAlerts = oldCheck
		refreshPrices = oldRefresh
	})

	refreshPrices = func(ctx context.Context, market *marketdata.Service, symbols []string) {}
	checkAlerts = func(ctx context.Context, checker *alerts.Checker, db *gorm.DB) (int, error) {
		return 0, errors.New("db down")
	}

	runCycle(context.Background(), nil, nil, &marketdata.Service{}, nil)
	runCycle(context.Background(), nil, nil, &marketdata.Service{}, nil)
}

// Ensures a nil market service skips the refresh step but still checks alerts.
func TestRunCycleNilMarket(t *testing.T) {
	oldCheck := checkAlerts
	oldRefresh := refreshPrices
	t.Cleanup(func() {
		checkAlerts = oldCheck
		refreshPrices = oldRefresh
	})

	refreshPrices = func(ctx context.Context, market *marketdata.Service, symbols []string) {
		t.Fatalf("refresh must not run without a market service")
	}

	checked := false
	checkAlerts = func(ctx context.Context, checker *alerts.Checker, db *gorm.DB) (int, error) {
		checked = true
		return 0, nil
	}

	runCycle(context.Background(), nil, nil, nil, nil)

	if !checked {
		t.Fatalf("expected alert check to run")
	}
}
