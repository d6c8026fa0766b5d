package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds the application configuration.
type Config struct {
	Log      LogConfig      `yaml:"log"`
	DB       DBConfig       `yaml:"db"`
	Server   ServerConfig   `yaml:"server"`
	Location LocationConfig `yaml:"location"`
	Catalog  CatalogConfig  `yaml:"catalog"`
	Playback PlaybackConfig `yaml:"playback"`
	Session  SessionConfig  `yaml:"session"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Server   LogSettings `yaml:"server"`
	Requests LogSettings `yaml:"requests"`
	Events   LogSettings `yaml:"events"`
	Trace    bool        `yaml:"trace"`
}

// LogSettings holds settings for a specific logger.
type LogSettings struct {
	Path  string `yaml:"path"`
	Level string `yaml:"level"`
}

// DBConfig holds database settings.
type DBConfig struct {
	Path string `yaml:"path"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Address        string   `yaml:"address"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// LocationConfig holds settings for the position watch.
type LocationConfig struct {
	Provider          string        `yaml:"provider"` // "push", "mock"
	HighAccuracy      bool          `yaml:"high_accuracy"`
	MinDisplacement   Distance      `yaml:"min_displacement"`
	PermissionTimeout Duration      `yaml:"permission_timeout"`
	PermissionRetry   Duration      `yaml:"permission_retry"`
	Mock              MockGPSConfig `yaml:"mock"`
}

// MockGPSConfig holds settings for the simulated walker.
type MockGPSConfig struct {
	StartLat       float64      `yaml:"start_lat"`
	StartLon       float64      `yaml:"start_lon"`
	Route          [][2]float64 `yaml:"route"` // [lat, lon] waypoints
	SpeedMPS       float64      `yaml:"speed_mps"`
	Tick           Duration     `yaml:"tick"`
	DenyPermission bool         `yaml:"deny_permission"`
	FailEvery      int          `yaml:"fail_every"` // inject a position_unavailable every N ticks, 0 = never
	JitterMeters   float64      `yaml:"jitter_m"`
	LoopRoute      bool         `yaml:"loop_route"`
}

// CatalogConfig holds settings for the point catalog.
type CatalogConfig struct {
	Source          string   `yaml:"source"` // "sqlite", "file"
	File            string   `yaml:"file"`   // .geojson or .shp, used by "file" source and for seeding
	H3Resolution    int      `yaml:"h3_resolution"`
	DefaultRadiusKm float64  `yaml:"default_radius_km"`
	PageSize        int      `yaml:"page_size"`
	DefaultRadius   Distance `yaml:"default_activation_radius"`
}

// PlaybackConfig holds settings for media presentation.
type PlaybackConfig struct {
	Enabled  bool    `yaml:"enabled"`
	MediaDir string  `yaml:"media_dir"`
	Volume   float64 `yaml:"volume"`
}

// SessionConfig holds settings for the session event loop.
type SessionConfig struct {
	QueueSize int `yaml:"queue_size"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Log: LogConfig{
			Server: LogSettings{
				Path:  "./logs/server.log",
				Level: "INFO",
			},
			Requests: LogSettings{
				Path:  "./logs/requests.log",
				Level: "INFO",
			},
			Events: LogSettings{
				Path:  "./logs/events.log",
				Level: "INFO",
			},
		},
		DB: DBConfig{
			Path: "./data/geoguide.db",
		},
		Server: ServerConfig{
			Address: "localhost:1930",
		},
		Location: LocationConfig{
			Provider:          "push",
			HighAccuracy:      true,
			MinDisplacement:   Distance(1),
			PermissionTimeout: Duration(30 * time.Second),
			PermissionRetry:   Duration(5 * time.Second),
			Mock: MockGPSConfig{
				StartLat:     48.8584,
				StartLon:     2.2945,
				SpeedMPS:     1.4,
				Tick:         Duration(1 * time.Second),
				JitterMeters: 0,
				LoopRoute:    true,
			},
		},
		Catalog: CatalogConfig{
			Source:          "sqlite",
			H3Resolution:    7,
			DefaultRadiusKm: 5,
			PageSize:        50,
			DefaultRadius:   Distance(50),
		},
		Playback: PlaybackConfig{
			Enabled:  true,
			MediaDir: "./data/media",
			Volume:   1.0,
		},
		Session: SessionConfig{
			QueueSize: 64,
		},
	}
}

// Load loads the configuration from the given path.
// If the file does not exist, it creates it with default values.
// Environment variables (and a .env file next to the working directory) override file values.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	if _, err := os.Stat(path); err == nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	} else if err := Save(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to save config file: %w", err)
	}

	// .env is optional; existing process variables win.
	_ = godotenv.Load()
	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overrides selected fields from GEOGUIDE_* variables.
func applyEnv(cfg *Config) {
	if v := os.Getenv("GEOGUIDE_ADDRESS"); v != "" {
		cfg.Server.Address = v
	}
	if v := os.Getenv("GEOGUIDE_DB_PATH"); v != "" {
		cfg.DB.Path = v
	}
	if v := os.Getenv("GEOGUIDE_LOCATION_PROVIDER"); v != "" {
		cfg.Location.Provider = v
	}
	if v := os.Getenv("GEOGUIDE_CATALOG_FILE"); v != "" {
		cfg.Catalog.File = v
	}
	if v := os.Getenv("GEOGUIDE_LOG_LEVEL"); v != "" {
		cfg.Log.Server.Level = v
	}
	if v := os.Getenv("GEOGUIDE_PLAYBACK_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Playback.Enabled = b
		}
	}
}

// Validate checks value ranges that would otherwise fail deep inside a component.
func (c *Config) Validate() error {
	switch c.Location.Provider {
	case "push", "mock":
	default:
		return fmt.Errorf("invalid location.provider %q: must be 'push' or 'mock'", c.Location.Provider)
	}
	switch c.Catalog.Source {
	case "sqlite", "file":
	default:
		return fmt.Errorf("invalid catalog.source %q: must be 'sqlite' or 'file'", c.Catalog.Source)
	}
	if c.Catalog.Source == "file" && c.Catalog.File == "" {
		return fmt.Errorf("catalog.file is required when catalog.source is 'file'")
	}
	if c.Catalog.H3Resolution < 0 || c.Catalog.H3Resolution > 15 {
		return fmt.Errorf("invalid catalog.h3_resolution %d: must be within 0-15", c.Catalog.H3Resolution)
	}
	if c.Location.MinDisplacement < 0 {
		return fmt.Errorf("location.min_displacement must not be negative")
	}
	return nil
}

// Save writes the configuration to the path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(`# GeoGuide Configuration
# ---------------------
# Supported Units:
#   Duration: ns, us (or µs), ms, s, m, h, d (day), w (week)
#   Distance: m (meters), km (kilometers), ft (feet), mi (miles)

`)
	data = append(header, data...)

	reProvider := regexp.MustCompile(`(?m)^(\s+)provider:`)
	data = reProvider.ReplaceAll(data, []byte("${1}# Options: push, mock\n${1}provider:"))

	reSource := regexp.MustCompile(`(?m)^(\s+)source:`)
	data = reSource.ReplaceAll(data, []byte("${1}# Options: sqlite, file\n${1}source:"))

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// GenerateDefault creates a default config file at the given path.
// Returns nil if the file already exists.
func GenerateDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	return Save(path, DefaultConfig())
}
