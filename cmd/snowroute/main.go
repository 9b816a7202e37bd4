package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/joho/godotenv"

	"github.com/snowroute/snowroute/internal/app"
	"github.com/snowroute/snowroute/internal/log"
	"github.com/snowroute/snowroute/pkg/config"
)

const version = "1.0-" + runtime.GOOS + "/" + runtime.GOARCH

func main() {
	cfgFile := flag.String("config", "config.yaml", "Path to YAML configuration file")
	debug := flag.Bool("debug", false, "Turn on debugging output")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("snowroute %s\n", version)
		os.Exit(0)
	}

	// Optional .env file for API keys; absence is not an error.
	godotenv.Load()

	filename, _ := filepath.Abs(*cfgFile)
	cfg, err := config.Load(filename)
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Set up logging
	if err := log.Init(*debug, cfg.Log.File); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Create and run the application
	application := app.New(cfg, log.GetSugaredLogger())
	if err := application.Run(context.Background()); err != nil {
		log.Errorf("Application error: %v", err)
		os.Exit(1)
	}
}
