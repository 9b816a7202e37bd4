package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"github.com/snowroute/snowroute/internal/backfill"
	"github.com/snowroute/snowroute/internal/database"
	"github.com/snowroute/snowroute/internal/log"
	"github.com/snowroute/snowroute/pkg/config"
)

func main() {
	cfgFile := flag.String("config", "config.yaml", "Path to YAML configuration file")
	station := flag.String("station", "", "Backfill a single station ID (default: all stations)")
	debug := flag.Bool("debug", false, "Turn on debugging output")
	flag.Parse()

	godotenv.Load()

	filename, _ := filepath.Abs(*cfgFile)
	cfg, err := config.Load(filename)
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if err := log.Init(*debug, cfg.Log.File); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	db := database.NewClient(cfg.Storage.ConnectionString, log.GetSugaredLogger())
	if err := db.Connect(); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	log.Info("Starting accumulation backfill...")
	runner := backfill.New(db, log.GetSugaredLogger())
	updated, err := runner.Run(context.Background(), *station)
	if err != nil {
		log.Fatalf("Backfill failed after %d update(s): %v", updated, err)
	}
	log.Infof("Backfill complete: updated %d weather record(s)", updated)
}
