package main

import (
	"context"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"

	"tradelab/cmd/backtestrun"
	"tradelab/cmd/pricesync"
	"tradelab/cmd/scheduler"
	"tradelab/src/database"
)

var Version string

func main() {
	app := cli.NewApp()
	app.Name = "Tradelab CMD"
	app.Usage = "The Tradelab command line interface"

	app.Commands = []cli.Command{
		schedulerCMD,
		priceSyncCMD,
		backtestCMD,
	}

	if err := app.Run(os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var (
	schedulerCMD = cli.Command{
		Name:        "scheduler",
		Usage:       "run the alert scheduler",
		Action:      schedulerAction,
		ArgsUsage:   "",
		Flags:       []cli.Flag{},
		Description: `Run the periodic alert evaluation loop`,
	}
	priceSyncCMD = cli.Command{
		Name:        "pricesync",
		Usage:       "run the daily price sync",
		Action:      priceSyncAction,
		ArgsUsage:   "",
		Flags:       []cli.Flag{},
		Description: `Ingest daily OHLCV candles for the watched symbols`,
	}
	backtestCMD = cli.Command{
		Name:      "backtest",
		Usage:     "run one backtest for a stored strategy",
		Action:    backtestAction,
		ArgsUsage: "",
		Flags: []cli.Flag{
			cli.UintFlag{Name: "strategy", Usage: "strategy id", Required: true},
			cli.StringFlag{Name: "ticker", Usage: "ticker symbol", Required: true},
			cli.IntFlag{Name: "period", Usage: "lookback period in days", Value: 365},
		},
		Description: `Replay a strategy against stored daily candles and persist the run`,
	}
)

func schedulerAction(_ *cli.Context) error {

	logrus.Info("Starting scheduler CMD")
	logrus.WithField("cmd", "scheduler")

	s := &scheduler.Scheduler{}
	err := s.Start()
	if err != nil {
		logrus.WithError(err).Error("Starting cmd")
		return err
	}

	return nil
}

// priceSyncAction ingests daily candles into ohlcv_daily.
func priceSyncAction(_ *cli.Context) error {

	logrus.Info("Starting price sync CMD")
	if err := database.InitMainDB(); err != nil {
		logrus.WithError(err).Fatal("Failed to connect to database")
	}

	sync := &pricesync.PriceSync{
		Log: logrus.WithField("cmd", "pricesync"),
		DB:  database.MainDB,
	}

	err := sync.Start()
	if err != nil {
		logrus.WithError(err).Error("Starting price sync CMD")
		return err
	}

	return nil
}

// backtestAction replays one strategy and stores the run.
func backtestAction(c *cli.Context) error {

	logrus.Info("Starting backtest CMD")
	if err := database.InitMainDB(); err != nil {
		logrus.WithError(err).Fatal("Failed to connect to database")
	}

	run := &backtestrun.BacktestRun{
		Log: logrus.WithField("cmd", "backtest"),
		DB:  database.MainDB,
	}

	err := run.Run(context.Background(), c.Uint("strategy"), c.String("ticker"), c.Int("period"))
	if err != nil {
		logrus.WithError(err).Error("Starting backtest CMD")
		return err
	}

	return nil
}
