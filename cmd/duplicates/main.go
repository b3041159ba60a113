package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	sonic "github.com/bytedance/sonic"
	"github.com/joho/godotenv"
	"github.com/riskibarqy/prediction-league/internal/app"
	"github.com/riskibarqy/prediction-league/internal/config"
	"github.com/riskibarqy/prediction-league/internal/platform/logging"
)

// Prints probable duplicate matches of one competition as JSON.
func main() {
	competitionID := flag.String("competition", "", "competition id to inspect")
	timeout := flag.Duration("timeout", time.Minute, "overall timeout")
	flag.Parse()

	if *competitionID == "" {
		fmt.Fprintln(os.Stderr, "usage: duplicates -competition <id>")
		os.Exit(2)
	}

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.NewJSON(cfg.LogLevel)
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	worker, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("build app", "error", err)
		os.Exit(1)
	}
	defer func() { _ = worker.Close(context.Background()) }()

	report, err := worker.Duplicates.Report(ctx, *competitionID)
	if err != nil {
		logger.Error("duplicate report failed", "competition_id", *competitionID, "error", err)
		os.Exit(1)
	}

	out, err := sonic.ConfigStd.MarshalIndent(report, "", "  ")
	if err != nil {
		logger.Error("encode report", "error", err)
		os.Exit(1)
	}
	fmt.Println(string(out))
}
