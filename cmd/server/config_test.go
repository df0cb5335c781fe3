package main

import (
	"testing"
	"time"
)

func validConfig() Config {
	var cfg Config
	cfg.Store.Driver = "Memory"
	cfg.Promotion.MaxWindowMinutes = 60
	cfg.Promotion.TrendingWindow = 24 * time.Hour
	cfg.ScanEvents.Retention = 48 * time.Hour
	cfg.RateLimit.ScansPerMinute = 30
	cfg.CORS.AllowOrigins = []string{"http://localhost:5173"}
	return cfg
}

func TestValidateConfigNormalisesDriver(t *testing.T) {
	cfg := validConfig()
	if err := validateConfig(&cfg); err != nil {
		t.Fatalf("validateConfig returned error: %v", err)
	}
	if cfg.Store.Driver != storeDriverMemory {
		t.Fatalf("expected driver %q, got %q", storeDriverMemory, cfg.Store.Driver)
	}
}

func TestValidateConfigRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "unknown driver", mutate: func(c *Config) { c.Store.Driver = "redis" }},
		{name: "postgres without url", mutate: func(c *Config) { c.Store.Driver = "postgres" }},
		{name: "retention shorter than trending", mutate: func(c *Config) { c.ScanEvents.Retention = time.Hour }},
		{name: "zero max window", mutate: func(c *Config) { c.Promotion.MaxWindowMinutes = 0 }},
		{name: "zero scan limit", mutate: func(c *Config) { c.RateLimit.ScansPerMinute = 0 }},
		{name: "wildcard origin", mutate: func(c *Config) { c.CORS.AllowOrigins = []string{"*"} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			if err := validateConfig(&cfg); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}
