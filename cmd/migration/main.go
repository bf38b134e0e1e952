package main

import (
	"flag"
	"fmt"
	"os"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"gitlab.com/dirk.krummacker/contacts-frontend/internal/config"
	"gitlab.com/dirk.krummacker/contacts-frontend/internal/logging"
	"gitlab.com/dirk.krummacker/contacts-frontend/internal/service"
	"go.uber.org/zap"
)

// Usage example on the command line:
// > CONTACTS_DB_HOST=localhost:3306 CONTACTS_DB_USER=dirk CONTACTS_DB_PASSWORD=bullo92 go run main.go -file=../../scripts/database.sql
func main() {
	filePtr := flag.String("file", "database.sql", "the sql file to execute")
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

	db, err := sqlx.Open("mysql", cfg.DSN())
	if err != nil {
		logger.Fatal("could not open database", zap.Error(err))
	}
	defer db.Close()

	readFile, err := os.Open(*filePtr) // nosemgrep
	if err != nil {
		logger.Fatal("could not open script", zap.Error(err))
	}
	defer readFile.Close()

	executed, err := service.ExecScript(db, readFile)
	if err != nil {
		logger.Fatal("migration failed", zap.String("file", *filePtr), zap.Int("executed", executed), zap.Error(err))
	}
	logger.Info("migration done", zap.String("file", *filePtr), zap.Int("executed", executed))
}
