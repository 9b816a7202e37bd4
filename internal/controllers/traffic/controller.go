// Package traffic polls the Google Routes API for traffic-aware travel
// times on the configured routes and stores one sample per route per poll,
// including per-leg segment durations for routes with waypoints.
package traffic

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/snowroute/snowroute/internal/database"
	"github.com/snowroute/snowroute/internal/log"
	"github.com/snowroute/snowroute/pkg/config"
)

// Controller polls the configured routes on a fixed interval.
type Controller struct {
	ctx    context.Context
	wg     *sync.WaitGroup
	cfg    *config.Config
	logger *zap.SugaredLogger
	DB     *database.Client
	client http.Client
}

// NewController creates a new traffic polling controller.
func NewController(ctx context.Context, wg *sync.WaitGroup, cfg *config.Config, db *database.Client, logger *zap.SugaredLogger) (*Controller, error) {
	if db == nil {
		return nil, fmt.Errorf("traffic controller requires a database client")
	}
	if cfg.Traffic.APIKey == "" {
		return nil, fmt.Errorf("traffic controller requires an API key (set traffic.api_key or GOOGLE_MAPS_API_KEY)")
	}
	if len(cfg.ActiveRoutes()) == 0 {
		return nil, fmt.Errorf("traffic controller requires at least one active route")
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
	log.Info("Starting traffic controller...")
	go c.pollPeriodically()
	return nil
}

func (c *Controller) pollPeriodically() {
	c.wg.Add(1)
	defer c.wg.Done()

	// time.Ticker only begins to fire after the interval has elapsed, so
	// run one poll now before starting it.
	c.pollAllRoutes()

	interval := c.cfg.TrafficInterval()
	log.Infof("Starting traffic fetcher for %d route(s): every %v minutes", len(c.cfg.ActiveRoutes()), interval.Minutes())

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.pollAllRoutes()
		case <-c.ctx.Done():
			return
		}
	}
}

func (c *Controller) pollAllRoutes() {
	now := time.Now()
	saved := 0

	for _, route := range c.cfg.ActiveRoutes() {
		sample, err := c.fetchRoute(route, now)
		if err != nil {
			log.Errorf("error fetching travel time for %s: %v", route.Name, err)
			continue
		}

		if err := c.DB.InsertTravelTime(c.ctx, sample.record); err != nil {
			log.Errorf("error saving travel time for %s: %v", route.Name, err)
			continue
		}
		if len(sample.segments) > 0 {
			if err := c.DB.InsertSegments(c.ctx, sample.segments); err != nil {
				log.Errorf("error saving segments for %s: %v", route.Name, err)
			}
		}

		c.logger.Debugw("saved travel time",
			"route", route.ID,
			"current_min", sample.record.CurrentMin,
			"average_min", sample.record.AverageMin,
			"segments", len(sample.segments),
		)
		saved++
	}
	log.Infof("Traffic poll complete: saved %d of %d route(s)", saved, len(c.cfg.ActiveRoutes()))
}
