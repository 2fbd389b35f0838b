// Kisan - learn, earn and track prices for your farm.
//
// An offline-first CLI for farmers: lessons and quizzes, crop quests, a coin
// leaderboard, reward vouchers, mandi prices and scheme guides.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/asteroid-belt/kisan/internal/cli"
	"github.com/asteroid-belt/kisan/internal/config"
	"github.com/asteroid-belt/kisan/internal/db"
	"github.com/asteroid-belt/kisan/internal/telemetry"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	cfg, err := config.Load()
	if err != nil {
		os.Exit(1)
	}

	paths := config.GetPaths(cfg)
	database, err := db.New(db.DefaultConfig(paths.Database))
	if err != nil {
		os.Exit(1)
	}

	// The tracking ID lives in the local user state.
	telemetryClient := telemetry.New(database)

	err = cli.Execute(ctx, telemetryClient)
	telemetryClient.Close()
	_ = database.Close()
	if err != nil {
		os.Exit(1)
	}
}
