// Package snotel polls SNOTEL weather stations through the AWDB REST API
// and stores raw readings. Accumulation is never computed here; the API
// derives it on demand from the raw rows.
package snotel

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/snowroute/snowroute/internal/log"
	"github.com/snowroute/snowroute/internal/database"
	"github.com/snowroute/snowroute/pkg/config"
)

// Controller polls the configured stations on a fixed interval.
type Controller struct {
	ctx    context.Context
	wg     *sync.WaitGroup
	cfg    *config.Config
	logger *zap.SugaredLogger
	DB     *database.Client
	client http.Client
}

// NewController creates a new SNOTEL polling controller.
func NewController(ctx context.Context, wg *sync.WaitGroup, cfg *config.Config, db *database.Client, logger *zap.SugaredLogger) (*Controller, error) {
	if db == nil {
		return nil, fmt.Errorf("SNOTEL controller requires a database client")
	}
	if len(cfg.Stations) == 0 {
		return nil, fmt.Errorf("SNOTEL controller requires at least one station")
	}

	return &Controller{
		ctx:    ctx,
		wg:     wg,
		cfg:    cfg,
		logger: logger,
		DB:     db,
		client: http.Client{Timeout: 30 * time.Second},
	}, nil
}

// StartController starts the polling loop.
func (c *Controller) StartController() error {
	log.Info("Starting SNOTEL controller...")
	go c.pollPeriodically()
	return nil
}

func (c *Controller) pollPeriodically() {
	c.wg.Add(1)
	defer c.wg.Done()

	// time.Ticker only begins to fire after the interval has elapsed, so
	// run one poll now before starting it.
	c.pollAllStations()

	interval := c.cfg.WeatherInterval()
	log.Infof("Starting SNOTEL fetcher for %d station(s): every %v minutes", len(c.cfg.Stations), interval.Minutes())

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.pollAllStations()
		case <-c.ctx.Done():
			return
		}
	}
}

func (c *Controller) pollAllStations() {
	saved := 0
	for _, station := range c.cfg.Stations {
		rec, err := c.fetchStation(station)
		if err != nil {
			log.Errorf("error fetching SNOTEL data for %s: %v", station.Name, err)
			continue
		}

		if err := c.DB.InsertWeather(c.ctx, *rec); err != nil {
			log.Errorf("error saving SNOTEL data for %s: %v", station.Name, err)
			continue
		}

		c.logger.Debugw("saved station reading",
			"station", station.ID,
			"temperature_f", rec.TemperatureF,
			"snow_depth_inches", rec.SnowDepthIn,
			"total_precip_inches", rec.TotalPrecipIn,
			"measured_at", rec.MeasuredAt,
		)
		saved++
	}
	log.Infof("SNOTEL poll complete: saved %d of %d station(s)", saved, len(c.cfg.Stations))
}
