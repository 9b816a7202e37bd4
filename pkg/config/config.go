// Package config loads and validates the snowroute YAML configuration:
// tracked routes, weather stations, polling intervals, storage, and the
// HTTP read surface.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the complete configuration for the snowroute daemon.
type Config struct {
	Storage  StorageConfig  `yaml:"storage"`
	HTTP     HTTPConfig     `yaml:"http"`
	Log      LogConfig      `yaml:"log,omitempty"`
	Traffic  TrafficConfig  `yaml:"traffic,omitempty"`
	Weather  WeatherConfig  `yaml:"weather,omitempty"`
	Routes   []RouteConfig  `yaml:"routes,omitempty"`
	Stations []StationConfig `yaml:"stations,omitempty"`

	// ArchivedRoutes are not polled and are hidden from the route listing,
	// but their historical data stays queryable.
	ArchivedRoutes []string `yaml:"archived_routes,omitempty"`
}

// StorageConfig selects the database backend by connection string: a
// postgres:// URL selects PostgreSQL, anything else is treated as a SQLite
// file path.
type StorageConfig struct {
	ConnectionString string `yaml:"connection_string"`
}

// HTTPConfig configures the read-only API server.
type HTTPConfig struct {
	ListenAddr  string   `yaml:"listen_addr,omitempty"`
	Port        int      `yaml:"port,omitempty"`
	CORSOrigins []string `yaml:"cors_origins,omitempty"`
}

// LogConfig configures optional file logging with rotation.
type LogConfig struct {
	File string `yaml:"file,omitempty"`
}

// TrafficConfig configures the travel-time poller.
type TrafficConfig struct {
	APIEndpoint     string `yaml:"api_endpoint,omitempty"`
	APIKey          string `yaml:"api_key,omitempty"`
	IntervalMinutes int    `yaml:"interval_minutes,omitempty"`
}

// WeatherConfig configures the weather station poller.
type WeatherConfig struct {
	APIEndpoint     string `yaml:"api_endpoint,omitempty"`
	IntervalMinutes int    `yaml:"interval_minutes,omitempty"`
}

// RouteConfig is one tracked origin-destination pair. Waypoints split the
// route into legs for segment-level tracking.
type RouteConfig struct {
	ID          string           `yaml:"id"`
	Name        string           `yaml:"name"`
	Origin      string           `yaml:"origin"`
	Destination string           `yaml:"destination"`
	Waypoints   []WaypointConfig `yaml:"waypoints,omitempty"`
}

// WaypointConfig is an intermediate stop on a route.
type WaypointConfig struct {
	Location string `yaml:"location"`
	Name     string `yaml:"name"`
}

// StationConfig is one weather station to poll.
type StationConfig struct {
	ID        string `yaml:"id"`
	Name      string `yaml:"name"`
	Triplet   string `yaml:"triplet"`
	Elevation int    `yaml:"elevation,omitempty"`
	Type      string `yaml:"type,omitempty"` // "base" or "summit"
}

// Defaults applied when the config file leaves a value unset.
const (
	DefaultListenAddr      = "0.0.0.0"
	DefaultHTTPPort        = 8000
	DefaultPollInterval    = 15 // minutes
	DefaultWeatherEndpoint = "https://wcc.sc.egov.usda.gov/awdbRestApi/services/v1/data"
	DefaultRoutesEndpoint  = "https://routes.googleapis.com/directions/v2:computeRoutes"
)

// Load reads and validates a YAML configuration file.
func Load(filename string) (*Config, error) {
	raw, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Storage.ConnectionString == "" {
		return fmt.Errorf("storage.connection_string is required")
	}

	seen := make(map[string]bool)
	for _, r := range c.Routes {
		if r.ID == "" {
			return fmt.Errorf("route %q is missing an id", r.Name)
		}
		if seen[r.ID] {
			return fmt.Errorf("duplicate route id: %s", r.ID)
		}
		seen[r.ID] = true
		if r.Origin == "" || r.Destination == "" {
			return fmt.Errorf("route %s must have both origin and destination", r.ID)
		}
		for _, wp := range r.Waypoints {
			if wp.Location == "" || wp.Name == "" {
				return fmt.Errorf("route %s has a waypoint missing location or name", r.ID)
			}
		}
	}

	stations := make(map[string]bool)
	for _, s := range c.Stations {
		if s.ID == "" {
			return fmt.Errorf("station %q is missing an id", s.Name)
		}
		if stations[s.ID] {
			return fmt.Errorf("duplicate station id: %s", s.ID)
		}
		stations[s.ID] = true
		if s.Triplet == "" {
			return fmt.Errorf("station %s is missing its AWDB triplet", s.ID)
		}
	}

	for _, archived := range c.ArchivedRoutes {
		if !seen[archived] {
			return fmt.Errorf("archived route %s is not defined in routes", archived)
		}
	}

	return nil
}

func (c *Config) applyDefaults() {
	if c.HTTP.ListenAddr == "" {
		c.HTTP.ListenAddr = DefaultListenAddr
	}
	if c.HTTP.Port == 0 {
		c.HTTP.Port = DefaultHTTPPort
	}
	if c.Traffic.IntervalMinutes == 0 {
		c.Traffic.IntervalMinutes = DefaultPollInterval
	}
	if c.Weather.IntervalMinutes == 0 {
		c.Weather.IntervalMinutes = DefaultPollInterval
	}
	if c.Weather.APIEndpoint == "" {
		c.Weather.APIEndpoint = DefaultWeatherEndpoint
	}
	if c.Traffic.APIEndpoint == "" {
		c.Traffic.APIEndpoint = DefaultRoutesEndpoint
	}
	if c.Traffic.APIKey == "" {
		c.Traffic.APIKey = os.Getenv("GOOGLE_MAPS_API_KEY")
	}
}

// IsArchived reports whether a route is on the archived list.
func (c *Config) IsArchived(routeID string) bool {
	for _, id := range c.ArchivedRoutes {
		if id == routeID {
			return true
		}
	}
	return false
}

// ActiveRoutes returns the routes that should be polled.
func (c *Config) ActiveRoutes() []RouteConfig {
	active := make([]RouteConfig, 0, len(c.Routes))
	for _, r := range c.Routes {
		if !c.IsArchived(r.ID) {
			active = append(active, r)
		}
	}
	return active
}

// StationByID returns the configured station with the given id.
func (c *Config) StationByID(id string) (StationConfig, bool) {
	for _, s := range c.Stations {
		if s.ID == id {
			return s, true
		}
	}
	return StationConfig{}, false
}

// TrafficInterval returns the travel-time polling interval as a Duration.
func (c *Config) TrafficInterval() time.Duration {
	return time.Duration(c.Traffic.IntervalMinutes) * time.Minute
}

// WeatherInterval returns the weather polling interval as a Duration.
func (c *Config) WeatherInterval() time.Duration {
	return time.Duration(c.Weather.IntervalMinutes) * time.Minute
}
