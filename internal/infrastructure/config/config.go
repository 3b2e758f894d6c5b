package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for HomeLink Core.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Database  DatabaseConfig  `yaml:"database"`
	API       APIConfig       `yaml:"api"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	Pairing   PairingConfig   `yaml:"pairing"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Logging   LoggingConfig   `yaml:"logging"`
	Security  SecurityConfig  `yaml:"security"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	TLS      TLSConfig        `yaml:"tls"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// TLSConfig contains TLS certificate settings.
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// APITimeoutConfig contains HTTP timeout settings (seconds).
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

// WebSocketConfig contains WebSocket server settings.
type WebSocketConfig struct {
	MaxMessageSize int `yaml:"max_message_size"`
	PingInterval   int `yaml:"ping_interval"`
	PongTimeout    int `yaml:"pong_timeout"`
}

// Pairing mode constants. The two flows are mutually exclusive and must
// never be mixed within a single deployment.
const (
	// PairingModeTwoStep is the canonical flow: the device verifies the PIN,
	// then an administrator names the client and assigns areas to complete.
	PairingModeTwoStep = "two_step"

	// PairingModeSingleStep auto-completes on PIN verification. The client is
	// named after the device and starts with no area assignments; the token
	// is returned in the verify response.
	PairingModeSingleStep = "single_step"
)

// PairingConfig contains pairing session settings.
type PairingConfig struct {
	// Mode selects the pairing flow: "two_step" (default) or "single_step".
	Mode string `yaml:"mode"`

	// SessionTTL is how long a pairing PIN stays valid (seconds).
	SessionTTL int `yaml:"session_ttl"`

	// SweepInterval is how often expired sessions are purged (seconds).
	SweepInterval int `yaml:"sweep_interval"`
}

// MQTTConfig contains settings for the optional MQTT event mirror.
type MQTTConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	QoS      int    `yaml:"qos"`
}

// TelemetryConfig contains settings for the optional InfluxDB telemetry sink.
type TelemetryConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// SecurityConfig contains security settings.
type SecurityConfig struct {
	JWT   JWTConfig   `yaml:"jwt"`
	Admin AdminConfig `yaml:"admin"`
}

// JWTConfig contains signed-token settings.
type JWTConfig struct {
	// Secret is the HMAC signing secret. Required, minimum 32 characters.
	Secret string `yaml:"secret"`

	// AdminTokenTTL is the administrator session lifetime (hours).
	AdminTokenTTL int `yaml:"admin_token_ttl"`

	// ClientTokenTTL is the paired-client credential lifetime (hours).
	// Client tokens are long-lived; revocation happens through the
	// persisted token ledger, not through expiry.
	ClientTokenTTL int `yaml:"client_token_ttl"`
}

// AdminConfig contains the single administrator account for this deployment.
type AdminConfig struct {
	Username string `yaml:"username"`

	// PasswordHash is an Argon2id PHC string, e.g. produced by
	// identity.HashPassword. Plaintext passwords are never configured.
	PasswordHash string `yaml:"password_hash"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: HOMELINK_SECTION_KEY
// For example: HOMELINK_DATABASE_PATH, HOMELINK_JWT_SECRET
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Default TTLs and intervals.
const (
	defaultSessionTTL     = 300   // 5-minute pairing window
	defaultSweepInterval  = 300   // sweep every 5 minutes
	defaultAdminTokenTTL  = 12    // hours
	defaultClientTokenTTL = 17520 // 2 years in hours
)

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:        "./data/homelink.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 8080,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		WebSocket: WebSocketConfig{
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		Pairing: PairingConfig{
			Mode:          PairingModeTwoStep,
			SessionTTL:    defaultSessionTTL,
			SweepInterval: defaultSweepInterval,
		},
		MQTT: MQTTConfig{
			Host:     "localhost",
			Port:     1883,
			ClientID: "homelink-core",
			QoS:      1,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Security: SecurityConfig{
			JWT: JWTConfig{
				AdminTokenTTL:  defaultAdminTokenTTL,
				ClientTokenTTL: defaultClientTokenTTL,
			},
			Admin: AdminConfig{
				Username: "admin",
			},
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: HOMELINK_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("HOMELINK_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	if v := os.Getenv("HOMELINK_API_HOST"); v != "" {
		cfg.API.Host = v
	}

	if v := os.Getenv("HOMELINK_MQTT_HOST"); v != "" {
		cfg.MQTT.Host = v
	}
	if v := os.Getenv("HOMELINK_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Username = v
	}
	if v := os.Getenv("HOMELINK_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Password = v
	}

	if v := os.Getenv("HOMELINK_TELEMETRY_TOKEN"); v != "" {
		cfg.Telemetry.Token = v
	}

	// Security - JWT secret (IMPORTANT: always override in production)
	if v := os.Getenv("HOMELINK_JWT_SECRET"); v != "" {
		cfg.Security.JWT.Secret = v
	}
	if v := os.Getenv("HOMELINK_ADMIN_PASSWORD_HASH"); v != "" {
		cfg.Security.Admin.PasswordHash = v
	}
}

// Validate checks the configuration for errors and security issues.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	if c.Pairing.Mode != PairingModeTwoStep && c.Pairing.Mode != PairingModeSingleStep {
		errs = append(errs, fmt.Sprintf("pairing.mode must be %q or %q", PairingModeTwoStep, PairingModeSingleStep))
	}
	if c.Pairing.SessionTTL <= 0 {
		errs = append(errs, "pairing.session_ttl must be positive")
	}

	if c.MQTT.Enabled && (c.MQTT.QoS < 0 || c.MQTT.QoS > 2) {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	// JWT secret is REQUIRED. Tokens gate physical access to the home:
	// a forgeable secret would let an attacker mint client credentials.
	const minJWTSecretLength = 32
	if c.Security.JWT.Secret == "" {
		errs = append(errs, "security.jwt.secret is required (set HOMELINK_JWT_SECRET environment variable)")
	} else if len(c.Security.JWT.Secret) < minJWTSecretLength {
		errs = append(errs, "security.jwt.secret must be at least 32 characters for adequate security")
	}

	if c.Security.Admin.Username == "" {
		errs = append(errs, "security.admin.username is required")
	}
	if c.Security.Admin.PasswordHash == "" {
		errs = append(errs, "security.admin.password_hash is required (set HOMELINK_ADMIN_PASSWORD_HASH environment variable)")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// SessionTTLDuration returns the pairing session lifetime as a Duration.
func (c *PairingConfig) SessionTTLDuration() time.Duration {
	return time.Duration(c.SessionTTL) * time.Second
}

// SweepIntervalDuration returns the sweep interval as a Duration.
func (c *PairingConfig) SweepIntervalDuration() time.Duration {
	return time.Duration(c.SweepInterval) * time.Second
}

// ReadDuration returns the read timeout as a Duration.
func (c *APITimeoutConfig) ReadDuration() time.Duration {
	return time.Duration(c.Read) * time.Second
}

// WriteDuration returns the write timeout as a Duration.
func (c *APITimeoutConfig) WriteDuration() time.Duration {
	return time.Duration(c.Write) * time.Second
}

// IdleDuration returns the idle timeout as a Duration.
func (c *APITimeoutConfig) IdleDuration() time.Duration {
	return time.Duration(c.Idle) * time.Second
}
