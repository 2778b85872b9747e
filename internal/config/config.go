package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	HTTPAddr            string        `yaml:"http_addr"`
	GRPCAddr            string        `yaml:"grpc_addr"`
	DatabaseURL         string        `yaml:"database_url"`
	RedisAddr           string        `yaml:"redis_addr"`
	RedisPassword       string        `yaml:"redis_password"`
	BackendURL          string        `yaml:"backend_url"`
	BackendProbePath    string        `yaml:"backend_probe_path"`
	PollInterval        time.Duration `yaml:"poll_interval"`
	RequestTimeout      time.Duration `yaml:"request_timeout"`
	SessionTTL          time.Duration `yaml:"session_ttl"`
	SessionReapInterval time.Duration `yaml:"session_reap_interval"`
	ProbeInterval       time.Duration `yaml:"probe_interval"`
	AppointmentCapacity int           `yaml:"appointment_capacity"`
	RecentLabLimit      int           `yaml:"recent_lab_limit"`
	LabListLimit        int           `yaml:"lab_list_limit"`
	JWTSecret           string        `yaml:"jwt_secret"`
	JWTIssuer           string        `yaml:"jwt_issuer"`
	CookieSecret        string        `yaml:"cookie_secret"`
	CookieSecure        bool          `yaml:"cookie_secure"`
	ServiceAuthToken    string        `yaml:"service_auth_token"`
	LogLevel            string        `yaml:"log_level"`
	LogFormat           string        `yaml:"log_format"`
}

func Defaults() Config {
	return Config{
		HTTPAddr:            ":8050",
		GRPCAddr:            ":9050",
		BackendURL:          "http://localhost:8000",
		BackendProbePath:    "/active_patients",
		PollInterval:        10 * time.Second,
		RequestTimeout:      5 * time.Second,
		SessionTTL:          30 * time.Minute,
		SessionReapInterval: time.Minute,
		ProbeInterval:       30 * time.Second,
		AppointmentCapacity: 30,
		RecentLabLimit:      5,
		LabListLimit:        10,
		JWTSecret:           "dev-secret",
		JWTIssuer:           "healthdesk-dashboard",
		CookieSecret:        "dev-cookie-secret-change-me-0000",
		LogLevel:            "info",
		LogFormat:           "json",
	}
}

// Load builds the configuration from defaults, then the YAML file named by
// CONFIG_FILE (if any), then environment variables.
func Load() (Config, error) {
	return LoadFile(os.Getenv("CONFIG_FILE"))
}

func LoadFile(path string) (Config, error) {
	cfg := Defaults()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file: %w", err)
		}
	}
	cfg = applyEnv(cfg)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg Config) Config {
	cfg.HTTPAddr = getenv("HTTP_ADDR", cfg.HTTPAddr)
	cfg.GRPCAddr = getenv("GRPC_ADDR", cfg.GRPCAddr)
	cfg.DatabaseURL = getenv("DATABASE_URL", cfg.DatabaseURL)
	cfg.RedisAddr = getenv("REDIS_ADDR", cfg.RedisAddr)
	cfg.RedisPassword = getenv("REDIS_PASSWORD", cfg.RedisPassword)
	cfg.BackendURL = getenv("BACKEND_URL", cfg.BackendURL)
	cfg.BackendProbePath = getenv("BACKEND_PROBE_PATH", cfg.BackendProbePath)
	cfg.PollInterval = getenvDuration("POLL_INTERVAL", cfg.PollInterval)
	cfg.RequestTimeout = getenvDuration("REQUEST_TIMEOUT", cfg.RequestTimeout)
	cfg.SessionTTL = getenvDuration("SESSION_TTL", cfg.SessionTTL)
	cfg.SessionReapInterval = getenvDuration("SESSION_REAP_INTERVAL", cfg.SessionReapInterval)
	cfg.ProbeInterval = getenvDuration("PROBE_INTERVAL", cfg.ProbeInterval)
	cfg.AppointmentCapacity = getenvInt("APPOINTMENT_CAPACITY", cfg.AppointmentCapacity)
	cfg.RecentLabLimit = getenvInt("RECENT_LAB_LIMIT", cfg.RecentLabLimit)
	cfg.LabListLimit = getenvInt("LAB_LIST_LIMIT", cfg.LabListLimit)
	cfg.JWTSecret = getenv("JWT_SECRET", cfg.JWTSecret)
	cfg.JWTIssuer = getenv("JWT_ISSUER", cfg.JWTIssuer)
	cfg.CookieSecret = getenv("COOKIE_SECRET", cfg.CookieSecret)
	cfg.CookieSecure = getenvBool("COOKIE_SECURE", cfg.CookieSecure)
	cfg.ServiceAuthToken = getenv("SERVICE_AUTH_TOKEN", cfg.ServiceAuthToken)
	cfg.LogLevel = getenv("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = getenv("LOG_FORMAT", cfg.LogFormat)
	return cfg
}

func (c Config) Validate() error {
	if c.PollInterval <= 0 {
		return errors.New("poll interval must be positive")
	}
	if c.RequestTimeout <= 0 {
		return errors.New("request timeout must be positive")
	}
	if c.RequestTimeout >= c.PollInterval {
		return fmt.Errorf("request timeout %s must be shorter than poll interval %s", c.RequestTimeout, c.PollInterval)
	}
	if c.SessionTTL <= 0 {
		return errors.New("session ttl must be positive")
	}
	if c.AppointmentCapacity <= 0 {
		return errors.New("appointment capacity must be positive")
	}
	if c.RecentLabLimit <= 0 || c.LabListLimit <= 0 {
		return errors.New("list limits must be positive")
	}
	if c.BackendURL == "" {
		return errors.New("backend url required")
	}
	if c.JWTSecret == "" {
		return errors.New("jwt secret required")
	}
	if len(c.CookieSecret) < 32 {
		return errors.New("cookie secret must be at least 32 bytes")
	}
	return nil
}

func getenv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
	}
	if val := os.Getenv(key + "_SECONDS"); val != "" {
		if seconds, err := strconv.Atoi(val); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getenvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			return parsed
		}
	}
	return fallback
}
