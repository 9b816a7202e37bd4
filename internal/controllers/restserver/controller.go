// Package restserver exposes the read-only HTTP API: route travel times,
// per-leg segments, and station weather with on-demand accumulation.
package restserver

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/snowroute/snowroute/internal/database"
	"github.com/snowroute/snowroute/internal/log"
	"github.com/snowroute/snowroute/pkg/config"
)

// Controller represents the REST server controller
type Controller struct {
	ctx      context.Context
	wg       *sync.WaitGroup
	cfg      *config.Config
	Server   http.Server
	DB       *database.Client
	logger   *zap.SugaredLogger
	handlers *Handlers
}

// NewController creates a new REST server controller
func NewController(ctx context.Context, wg *sync.WaitGroup, cfg *config.Config, db *database.Client, logger *zap.SugaredLogger) (*Controller, error) {
	if db == nil {
		return nil, fmt.Errorf("REST server requires a database client")
	}

	ctrl := &Controller{
		ctx:    ctx,
		wg:     wg,
		cfg:    cfg,
		DB:     db,
		logger: logger,
	}

	ctrl.handlers = NewHandlers(ctrl)

	router := ctrl.setupRouter()
	ctrl.Server.Addr = fmt.Sprintf("%v:%v", cfg.HTTP.ListenAddr, cfg.HTTP.Port)
	ctrl.Server.Handler = router
	ctrl.Server.ReadHeaderTimeout = 10 * time.Second

	return ctrl, nil
}

// StartController starts the REST server
func (c *Controller) StartController() error {
	log.Info("Starting REST server controller...")
	c.wg.Add(1)

	go func() {
		defer c.wg.Done()
		if err := c.Server.ListenAndServe(); err != http.ErrServerClosed {
			log.Errorf("REST server error: %v", err)
		}
	}()

	go func() {
		<-c.ctx.Done()
		log.Info("Shutting down the REST server...")
		c.Server.Shutdown(context.Background())
	}()

	return nil
}

// setupRouter configures the HTTP router with all endpoints
func (c *Controller) setupRouter() http.Handler {
	router := mux.NewRouter()

	router.Use(c.requestLogMiddleware)

	router.HandleFunc("/", c.handlers.GetIndex).Methods(http.MethodGet)
	router.HandleFunc("/routes", c.handlers.GetRoutes).Methods(http.MethodGet)
	router.HandleFunc("/routes/{route_id}/stats", c.handlers.GetRouteStats).Methods(http.MethodGet)
	router.HandleFunc("/current", c.handlers.GetCurrent).Methods(http.MethodGet)
	router.HandleFunc("/current/{route_id}", c.handlers.GetCurrentByRoute).Methods(http.MethodGet)
	router.HandleFunc("/history/{route_id}", c.handlers.GetHistory).Methods(http.MethodGet)
	router.HandleFunc("/segments/{route_id}", c.handlers.GetSegments).Methods(http.MethodGet)

	// Weather endpoints. The literal paths must register before the
	// station_id catch-all.
	router.HandleFunc("/weather/current", c.handlers.GetWeatherCurrent).Methods(http.MethodGet)
	router.HandleFunc("/weather/history", c.handlers.GetWeatherHistory).Methods(http.MethodGet)
	router.HandleFunc("/weather/{station_id}", c.handlers.GetStationWeather).Methods(http.MethodGet)

	// The API is read-only; CORS allows GET from the configured origins.
	corsOrigins := c.cfg.HTTP.CORSOrigins
	if len(corsOrigins) == 0 {
		corsOrigins = []string{"http://localhost:3000", "http://localhost:5173"}
	}

	return handlers.CORS(
		handlers.AllowedOrigins(corsOrigins),
		handlers.AllowedMethods([]string{http.MethodGet}),
		handlers.AllowedHeaders([]string{"*"}),
		handlers.AllowCredentials(),
	)(router)
}
