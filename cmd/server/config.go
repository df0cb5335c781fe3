package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	storeDriverPostgres = "postgres"
	storeDriverMemory   = "memory"
)

type Config struct {
	App struct {
		Env string `mapstructure:"env"`
	} `mapstructure:"app"`
	Server struct {
		Host            string        `mapstructure:"host"`
		Port            int           `mapstructure:"port"`
		ReadTimeout     time.Duration `mapstructure:"read_timeout"`
		WriteTimeout    time.Duration `mapstructure:"write_timeout"`
		ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	} `mapstructure:"server"`
	Database struct {
		URL         string        `mapstructure:"url"`
		MaxConns    int           `mapstructure:"max_conns"`
		PingTimeout time.Duration `mapstructure:"ping_timeout"`
	} `mapstructure:"database"`
	Store struct {
		Driver   string `mapstructure:"driver"`
		SeedDemo bool   `mapstructure:"seed_demo"`
	} `mapstructure:"store"`
	Log struct {
		Level      string `mapstructure:"level"`
		Encoding   string `mapstructure:"encoding"`
		BufferSize int    `mapstructure:"buffer_size"`
	} `mapstructure:"log"`
	Security struct {
		InternalToken         string   `mapstructure:"internal_token"`
		InternalTokenFile     string   `mapstructure:"internal_token_file"`
		InternalTokenPrevious string   `mapstructure:"internal_token_previous"`
		InternalTrustedCIDRs  []string `mapstructure:"internal_trusted_cidrs"`
		JWTPublicKey          string   `mapstructure:"jwt_public_key"`
		JWTPublicKeyFile      string   `mapstructure:"jwt_public_key_file"`
		VisitorHashSecret     string   `mapstructure:"visitor_hash_secret"`
	} `mapstructure:"security"`
	CORS struct {
		AllowOrigins []string `mapstructure:"allow_origins"`
	} `mapstructure:"cors"`
	Promotion struct {
		TrendingWindow   time.Duration `mapstructure:"trending_window"`
		MaxWindowMinutes int           `mapstructure:"max_window_minutes"`
	} `mapstructure:"promotion"`
	ScanEvents struct {
		Retention time.Duration `mapstructure:"retention"`
	} `mapstructure:"scan_events"`
	RateLimit struct {
		ScansPerMinute int `mapstructure:"scans_per_minute"`
	} `mapstructure:"rate_limit"`
}

func loadConfig() (Config, error) {
	// A missing .env is the normal production case.
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("QRSELL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("database.url", "QRSELL_DATABASE_URL", "DATABASE_URL")

	v.SetDefault("app.env", "development")
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "10s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("database.url", "")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.ping_timeout", "3s")
	v.SetDefault("store.driver", storeDriverPostgres)
	v.SetDefault("store.seed_demo", false)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "json")
	v.SetDefault("log.buffer_size", 2000)
	v.SetDefault("security.internal_token", "")
	v.SetDefault("security.internal_token_file", "")
	v.SetDefault("security.internal_token_previous", "")
	v.SetDefault("security.internal_trusted_cidrs", []string{})
	v.SetDefault("security.jwt_public_key", "")
	v.SetDefault("security.jwt_public_key_file", "")
	v.SetDefault("security.visitor_hash_secret", "")
	v.SetDefault("cors.allow_origins", []string{"http://localhost:5173"})
	v.SetDefault("promotion.trending_window", "24h")
	v.SetDefault("promotion.max_window_minutes", 7*24*60)
	v.SetDefault("scan_events.retention", "720h")
	v.SetDefault("rate_limit.scans_per_minute", 30)

	if err := v.ReadInConfig(); err != nil {
		var notFoundErr viper.ConfigFileNotFoundError
		if !errors.As(err, &notFoundErr) {
			return Config{}, fmt.Errorf("read config file failed: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config failed: %w", err)
	}

	if strings.TrimSpace(cfg.Security.InternalToken) == "" && strings.TrimSpace(cfg.Security.InternalTokenFile) != "" {
		// #nosec G304 -- path is provided by operator config.
		raw, err := os.ReadFile(strings.TrimSpace(cfg.Security.InternalTokenFile))
		if err != nil {
			return Config{}, fmt.Errorf("read security.internal_token_file failed: %w", err)
		}
		cfg.Security.InternalToken = strings.TrimSpace(string(raw))
	}

	if err := validateConfig(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func validateConfig(cfg *Config) error {
	cfg.Store.Driver = strings.ToLower(strings.TrimSpace(cfg.Store.Driver))
	switch cfg.Store.Driver {
	case storeDriverPostgres:
		if cfg.Database.URL == "" {
			return errors.New("database.url is required")
		}
		if cfg.Database.MaxConns <= 0 {
			return errors.New("database.max_conns must be greater than 0")
		}
		if cfg.Database.PingTimeout <= 0 {
			return errors.New("database.ping_timeout must be greater than 0")
		}
	case storeDriverMemory:
	default:
		return fmt.Errorf("store.driver must be %q or %q", storeDriverPostgres, storeDriverMemory)
	}

	if cfg.Promotion.MaxWindowMinutes <= 0 {
		return errors.New("promotion.max_window_minutes must be greater than 0")
	}
	if cfg.Promotion.TrendingWindow <= 0 {
		return errors.New("promotion.trending_window must be greater than 0")
	}
	if cfg.ScanEvents.Retention < cfg.Promotion.TrendingWindow {
		return errors.New("scan_events.retention must cover promotion.trending_window")
	}
	if cfg.RateLimit.ScansPerMinute <= 0 {
		return errors.New("rate_limit.scans_per_minute must be greater than 0")
	}

	if len(cfg.CORS.AllowOrigins) == 0 {
		return errors.New("cors.allow_origins must not be empty")
	}
	for _, origin := range cfg.CORS.AllowOrigins {
		if strings.TrimSpace(origin) == "*" {
			return errors.New("cors.allow_origins must not contain wildcard *")
		}
	}

	return nil
}
