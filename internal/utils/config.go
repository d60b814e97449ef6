package utils

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/benmeehan/pixie-bridge/internal/constants"
	"github.com/benmeehan/pixie-bridge/internal/drawing"
	"github.com/benmeehan/pixie-bridge/internal/metrics_collectors"
	"github.com/benmeehan/pixie-bridge/internal/models"
)

// Config represents the structure of the configuration file.
type Config struct {
	Log struct {
		Level  string `yaml:"level"`  // zerolog level name
		Format string `yaml:"format"` // "json" or "console"
		Caller bool   `yaml:"caller"` // Include caller file:line
	} `yaml:"log"`

	MQTT struct {
		Broker         string        `yaml:"broker"`          // MQTT broker address
		ClientID       string        `yaml:"client_id"`       // Client ID prefix, a uuid suffix is appended
		Username       string        `yaml:"username"`        // Broker username
		Password       string        `yaml:"password"`        // Broker password
		CACertificate  string        `yaml:"ca_certificate"`  // Path to the CA certificate
		QOS            int           `yaml:"qos"`             // QoS for subscriptions, responses and pushes
		KeepAlive      time.Duration `yaml:"keep_alive"`      // Keep-alive interval
		PublishTimeout time.Duration `yaml:"publish_timeout"` // Max wait for a publish acknowledgement
	} `yaml:"mqtt"`

	Database struct {
		URL          string `yaml:"url"`            // Postgres DSN
		MaxOpenConns int    `yaml:"max_open_conns"` // Connection pool ceiling
		Migrate      bool   `yaml:"migrate"`        // Create tables on startup
	} `yaml:"database"`

	Storage struct {
		Endpoint       string        `yaml:"endpoint"`        // Object storage host:port
		AccessKey      string        `yaml:"access_key"`      // Access key id
		SecretKey      string        `yaml:"secret_key"`      // Secret access key
		UseSSL         bool          `yaml:"use_ssl"`         // Use TLS for object storage
		PhotoBucket    string        `yaml:"photo_bucket"`    // Bucket holding photo originals
		FirmwareBucket string        `yaml:"firmware_bucket"` // Bucket holding firmware binaries
		PresignExpiry  time.Duration `yaml:"presign_expiry"`  // Lifetime of firmware download URLs
	} `yaml:"storage"`

	Spotify struct {
		ClientID     string `yaml:"client_id"`     // Music service application id
		ClientSecret string `yaml:"client_secret"` // Music service application secret
	} `yaml:"spotify"`

	Security struct {
		PairingSecret string `yaml:"pairing_secret"` // Key for pairing code derivation
		JWTSecret     string `yaml:"jwt_secret"`     // HS256 key for realtime and API bearer tokens
		JWTIssuer     string `yaml:"jwt_issuer"`     // Expected token issuer, empty to skip
		JWTAudience   string `yaml:"jwt_audience"`   // Expected token audience, empty to skip
		AdminKey      string `yaml:"admin_key"`      // Static key for the administrative add-path
	} `yaml:"security"`

	Router struct {
		Workers        int           `yaml:"workers"`         // Request handler goroutines
		QueueSize      int           `yaml:"queue_size"`      // Pending requests before Submit blocks
		HandlerTimeout time.Duration `yaml:"handler_timeout"` // Deadline for a single request
	} `yaml:"router"`

	Drawing struct {
		IdleTimeout    time.Duration            `yaml:"idle_timeout"`     // Sessions idle longer than this are closed
		SweepInterval  time.Duration            `yaml:"sweep_interval"`   // Idle session sweep period
		RateLimitSweep time.Duration            `yaml:"rate_limit_sweep"` // Expired window sweep period
		Limits         map[string]drawing.Limit `yaml:"limits"`           // Per-kind fixed windows
		RestoreLatest  bool                     `yaml:"restore_latest"`   // Start new sessions from the latest saved drawing
		AccessTTL      time.Duration            `yaml:"access_ttl"`       // Reuse of a realtime draw grant before re-checking
	} `yaml:"drawing"`

	HTTP struct {
		Listen         string        `yaml:"listen"`          // Listen address
		ReadTimeout    time.Duration `yaml:"read_timeout"`    // Request read timeout
		WriteTimeout   time.Duration `yaml:"write_timeout"`   // Response write timeout
		AllowedOrigins []string      `yaml:"allowed_origins"` // Websocket origins, empty allows any
	} `yaml:"http"`

	Services struct {
		Heartbeat struct {
			Enabled  bool          `yaml:"enabled"`  // Enable/disable the status heartbeat
			Interval time.Duration `yaml:"interval"` // Interval between status publishes
			QOS      int           `yaml:"qos"`      // MQTT QoS level for status messages
		} `yaml:"heartbeat"`

		Router struct {
			Enabled bool `yaml:"enabled"` // Enable/disable the device request router
		} `yaml:"router"`

		HTTP struct {
			Enabled bool `yaml:"enabled"` // Enable/disable the HTTP and websocket surface
		} `yaml:"http"`

		Drawing struct {
			Enabled bool `yaml:"enabled"` // Enable/disable the drawing session sweeps
		} `yaml:"drawing"`
	} `yaml:"services"`

	Middlewares struct {
		Recovery struct {
			Enabled bool `yaml:"enabled"` // Turn handler panics into errors
		} `yaml:"recovery"`
		Logging struct {
			Enabled bool `yaml:"enabled"` // Log every routed request
		} `yaml:"logging"`
	} `yaml:"middlewares"`

	Metrics metrics_collectors.MetricsConfig `yaml:"metrics"`
}

// LoadConfig loads the YAML configuration from filename, then applies the
// environment overrides for secrets and fills defaults. envFile is optional;
// a missing .env file is not an error.
func LoadConfig(filename, envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: loading %s: %v", models.ErrConfiguration, envFile, err)
		}
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", models.ErrConfiguration, filename, err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("%w: parsing %s: %v", models.ErrConfiguration, filename, err)
	}

	config.applyEnv()
	config.applyDefaults()
	return &config, nil
}

// applyEnv overrides secrets from the environment. Unset variables keep the file value.
func (c *Config) applyEnv() {
	overrides := map[string]*string{
		"PAIRING_SECRET":        &c.Security.PairingSecret,
		"AUTH_JWT_SECRET":       &c.Security.JWTSecret,
		"DATABASE_URL":          &c.Database.URL,
		"MQTT_USERNAME":         &c.MQTT.Username,
		"MQTT_PASSWORD":         &c.MQTT.Password,
		"MINIO_ACCESS_KEY":      &c.Storage.AccessKey,
		"MINIO_SECRET_KEY":      &c.Storage.SecretKey,
		"SPOTIFY_CLIENT_ID":     &c.Spotify.ClientID,
		"SPOTIFY_CLIENT_SECRET": &c.Spotify.ClientSecret,
	}
	for key, field := range overrides {
		if value, ok := os.LookupEnv(key); ok && value != "" {
			*field = value
		}
	}
}

func (c *Config) applyDefaults() {
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
	if c.MQTT.ClientID == "" {
		c.MQTT.ClientID = "pixie-bridge"
	}
	if c.MQTT.QOS == 0 {
		c.MQTT.QOS = 1
	}
	if c.MQTT.KeepAlive <= 0 {
		c.MQTT.KeepAlive = 30 * time.Second
	}
	if c.MQTT.PublishTimeout <= 0 {
		c.MQTT.PublishTimeout = 5 * time.Second
	}
	if c.Database.MaxOpenConns <= 0 {
		c.Database.MaxOpenConns = 10
	}
	if c.Storage.PhotoBucket == "" {
		c.Storage.PhotoBucket = constants.DefaultPhotoBucket
	}
	if c.Storage.FirmwareBucket == "" {
		c.Storage.FirmwareBucket = constants.DefaultFirmwareBucket
	}
	if c.Storage.PresignExpiry <= 0 {
		c.Storage.PresignExpiry = constants.DefaultPresignExpiry
	}
	if c.Router.Workers <= 0 {
		c.Router.Workers = 8
	}
	if c.Router.QueueSize <= 0 {
		c.Router.QueueSize = 64
	}
	if c.Router.HandlerTimeout <= 0 {
		c.Router.HandlerTimeout = 15 * time.Second
	}
	if c.Drawing.IdleTimeout <= 0 {
		c.Drawing.IdleTimeout = constants.DefaultSessionIdleTimeout
	}
	if c.Drawing.SweepInterval <= 0 {
		c.Drawing.SweepInterval = constants.DefaultSessionSweep
	}
	if c.Drawing.RateLimitSweep <= 0 {
		c.Drawing.RateLimitSweep = constants.DefaultRateLimitSweep
	}
	limits := drawing.DefaultLimits()
	for kind, l := range c.Drawing.Limits {
		if l.Max > 0 && l.Window > 0 {
			limits[kind] = l
		}
	}
	c.Drawing.Limits = limits
	if c.HTTP.Listen == "" {
		c.HTTP.Listen = ":8080"
	}
	if c.HTTP.ReadTimeout <= 0 {
		c.HTTP.ReadTimeout = 15 * time.Second
	}
	if c.HTTP.WriteTimeout <= 0 {
		c.HTTP.WriteTimeout = 15 * time.Second
	}
	if c.Services.Heartbeat.Interval <= 0 {
		c.Services.Heartbeat.Interval = 30 * time.Second
	}
	if c.Services.Heartbeat.QOS == 0 {
		c.Services.Heartbeat.QOS = 1
	}
}

// Validate reports missing values the bridge cannot start without.
func (c *Config) Validate() error {
	if c.Security.PairingSecret == "" {
		return fmt.Errorf("%w: pairing secret is not set (PAIRING_SECRET)", models.ErrConfiguration)
	}
	if c.Security.JWTSecret == "" {
		return fmt.Errorf("%w: jwt secret is not set (AUTH_JWT_SECRET)", models.ErrConfiguration)
	}
	if c.MQTT.Broker == "" {
		return fmt.Errorf("%w: mqtt broker is not set", models.ErrConfiguration)
	}
	if c.MQTT.QOS < 0 || c.MQTT.QOS > 2 {
		return fmt.Errorf("%w: mqtt qos must be 0, 1 or 2", models.ErrConfiguration)
	}
	return nil
}

// DrawingConfig converts the drawing section for drawing.NewEngine.
func (c *Config) DrawingConfig() drawing.Config {
	return drawing.Config{
		IdleTimeout:    c.Drawing.IdleTimeout,
		SweepInterval:  c.Drawing.SweepInterval,
		RateLimitSweep: c.Drawing.RateLimitSweep,
		Limits:         c.Drawing.Limits,
	}
}
