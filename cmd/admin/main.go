// Command admin creates the administrator account. Missing credentials are
// read from the terminal.
package main

import (
	"bufio"
	"context"
	"log"
	"os"

	"github.com/dmitrijs2005/aiexplorer/internal/admin"
	"github.com/dmitrijs2005/aiexplorer/internal/dbx"
	"github.com/dmitrijs2005/aiexplorer/internal/logging"
	"github.com/dmitrijs2005/aiexplorer/internal/server/config"
	"github.com/dmitrijs2005/aiexplorer/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/aiexplorer/internal/server/services"
)

func main() {

	ctx := context.Background()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	db, err := dbx.Open("pgx", cfg.DatabaseDSN, dbx.PoolOptions{MaxOpenConns: 2})
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		log.Fatalf("migrations: %v", err)
	}

	us := services.NewUserService(db, rm, cfg, logging.NewJSON(os.Stderr, cfg.LogLevel))

	opts := admin.Options{Username: cfg.AdminUsername, Password: cfg.AdminPassword}
	if err := admin.Run(ctx, us, opts, bufio.NewReader(os.Stdin), os.Stdout); err != nil {
		log.Fatalf("%v", err)
	}

}
