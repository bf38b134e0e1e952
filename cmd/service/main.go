package main

import (
	"database/sql"
	"fmt"
	"os"

	_ "github.com/go-sql-driver/mysql"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"gitlab.com/dirk.krummacker/contacts-frontend/internal/config"
	"gitlab.com/dirk.krummacker/contacts-frontend/internal/logging"
	"gitlab.com/dirk.krummacker/contacts-frontend/internal/service"
	"go.uber.org/zap"
)

// Usage example on the command line:
// > CONTACTS_ADDR=:8000 CONTACTS_DB_USER=dirk CONTACTS_DB_PASSWORD=bullo92 GIN_MODE=release CONTACTS_GIN_LOGGING=false go run main.go
func main() {
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

	sqlDB, err := sql.Open("mysql", cfg.DSN())
	if err != nil {
		logger.Fatal("could not open database", zap.Error(err))
	}
	defer sqlDB.Close()

	s, err := service.New(sqlDB, logger)
	if err != nil {
		logger.Fatal("could not prepare statements", zap.Error(err), zap.String("db_host", cfg.DBHost))
	}
	defer s.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewDBStatsCollector(sqlDB, cfg.DBName))
	router := s.SetupHttpRouter(cfg.GinLogging, reg)

	logger.Info("serving contacts API", zap.String("addr", cfg.Addr))
	if err := router.Run(cfg.Addr); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}
