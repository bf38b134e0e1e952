package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"gitlab.com/dirk.krummacker/contacts-frontend/internal/client"
	"gitlab.com/dirk.krummacker/contacts-frontend/internal/config"
	"gitlab.com/dirk.krummacker/contacts-frontend/internal/logging"
	"go.uber.org/zap"
)

// Usage example on the command line:
// > CONTACTS_BASE_URL=http://localhost:8000/api/contacts/ go run main.go -timeout=2m
func main() {
	interval := flag.Duration("interval", 5*time.Second, "time between two attempts")
	timeout := flag.Duration("timeout", 5*time.Minute, "give up after this time")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "could not load configuration:", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	api := client.New(cfg.BaseURL, client.WithLogger(logger))
	if err := api.WaitUntilAvailable(ctx, *interval); err != nil {
		logger.Fatal("giving up", zap.Error(err))
	}
	logger.Info("contacts API is available", zap.String("base_url", api.BaseURL()))
}
