package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const EnvProduction = "production"

// developmentSecret mirrors issuer.DevelopmentSecret; config must not import
// the issuer package.
const developmentSecret = "development-only-booking-secret"

type Config struct {
	App       AppConfig       `yaml:"app"`
	HTTP      HTTPConfig      `yaml:"http"`
	GRPC      GRPCConfig      `yaml:"grpc"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Booking   BookingConfig   `yaml:"booking"`
	Flights   FlightsConfig   `yaml:"flights"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Log       LogConfig       `yaml:"log"`
}

type AppConfig struct {
	Env string `yaml:"env"`
	// PublicURL is the web frontend base used in email links.
	PublicURL string `yaml:"public_url"`
}

type HTTPConfig struct {
	Address               string   `yaml:"address"`
	SwaggerDir            string   `yaml:"swagger_dir"`
	AllowedOrigins        []string `yaml:"allowed_origins"`
	RequestTimeoutSeconds int      `yaml:"request_timeout_seconds"`
}

func (h HTTPConfig) RequestTimeout() time.Duration {
	return time.Duration(h.RequestTimeoutSeconds) * time.Second
}

type GRPCConfig struct {
	Address string `yaml:"address"`
}

type DatabaseConfig struct {
	Host        string `yaml:"host"`
	Port        int    `yaml:"port"`
	User        string `yaml:"user"`
	Password    string `yaml:"password"`
	Name        string `yaml:"name"`
	SSLMode     string `yaml:"ssl_mode"`
	MaxConns    int32  `yaml:"max_conns"`
	AutoMigrate bool   `yaml:"auto_migrate"`
}

// DSN returns a postgres:// URL. Credentials are escaped, so passwords can
// hold any character.
func (d DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   net.JoinHostPort(d.Host, strconv.Itoa(d.Port)),
		Path:   "/" + d.Name,
	}
	if d.SSLMode != "" {
		u.RawQuery = url.Values{"sslmode": {d.SSLMode}}.Encode()
	}
	return u.String()
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type KafkaConfig struct {
	Brokers            []string `yaml:"brokers"`
	BookingTopic       string   `yaml:"booking_topic"`
	NotificationsTopic string   `yaml:"notifications_topic"`
	GroupID            string   `yaml:"group_id"`
}

type BookingConfig struct {
	LookupSecret        string `yaml:"lookup_secret"`
	ForcePaymentSuccess bool   `yaml:"force_payment_success"`
	AdminKey            string `yaml:"admin_key"`
	AdminKeyBcrypt      string `yaml:"admin_key_bcrypt"`
	EmailLookupLimit    int    `yaml:"email_lookup_limit"`
}

type FlightsConfig struct {
	CacheTTLSeconds int `yaml:"cache_ttl_seconds"`
}

func (f FlightsConfig) CacheTTL() time.Duration {
	return time.Duration(f.CacheTTLSeconds) * time.Second
}

type RateLimitConfig struct {
	Enabled        bool `yaml:"enabled"`
	WindowSeconds  int  `yaml:"window_seconds"`
	LookupRequests int  `yaml:"lookup_requests"`
}

type LogConfig struct {
	Debug bool   `yaml:"debug"`
	Path  string `yaml:"path"`
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	return &cfg, nil
}

// applyEnv lets deployment secrets stay out of the config file.
func (c *Config) applyEnv() error {
	if v, ok := os.LookupEnv("APP_ENV"); ok {
		c.App.Env = v
	}
	if v, ok := os.LookupEnv("BOOKING_LOOKUP_SECRET"); ok {
		c.Booking.LookupSecret = v
	}
	if v, ok := os.LookupEnv("BOOKING_ADMIN_KEY"); ok {
		c.Booking.AdminKey = v
	}
	if v, ok := os.LookupEnv("BOOKING_FORCE_PAYMENT_SUCCESS"); ok {
		force, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid BOOKING_FORCE_PAYMENT_SUCCESS %q: %w", v, err)
		}
		c.Booking.ForcePaymentSuccess = force
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.App.Env == "" {
		c.App.Env = "development"
	}
	if c.HTTP.Address == "" {
		c.HTTP.Address = ":8080"
	}
	if c.HTTP.RequestTimeoutSeconds <= 0 {
		c.HTTP.RequestTimeoutSeconds = 10
	}
	if c.GRPC.Address == "" {
		c.GRPC.Address = ":9090"
	}
	if c.Database.MaxConns <= 0 {
		c.Database.MaxConns = 10
	}
	if c.Booking.EmailLookupLimit <= 0 {
		c.Booking.EmailLookupLimit = 20
	}
	if c.Flights.CacheTTLSeconds <= 0 {
		c.Flights.CacheTTLSeconds = 60
	}
	if c.RateLimit.WindowSeconds <= 0 {
		c.RateLimit.WindowSeconds = 60
	}
	if c.RateLimit.LookupRequests <= 0 {
		c.RateLimit.LookupRequests = 20
	}
}

func (c *Config) IsProduction() bool {
	return c.App.Env == EnvProduction
}

// ErrUnsafeProductionConfig is returned by Check for settings that must
// never reach production.
var ErrUnsafeProductionConfig = errors.New("unsafe production configuration")

// Check reports unsafe settings. In production they are returned as an
// error wrapping ErrUnsafeProductionConfig; elsewhere they are returned as
// warnings for the caller to log.
func (c *Config) Check() (warnings []string, err error) {
	if c.Booking.LookupSecret == "" || c.Booking.LookupSecret == developmentSecret {
		warnings = append(warnings, "booking lookup secret is not set; tokens are signed with the development-only secret")
	}
	if c.Booking.ForcePaymentSuccess {
		warnings = append(warnings, "payment success is forced; every booking is approved")
	}

	if c.IsProduction() && len(warnings) > 0 {
		return nil, fmt.Errorf("%w: %v", ErrUnsafeProductionConfig, warnings)
	}
	return warnings, nil
}
