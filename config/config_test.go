package config

import (
	"testing"
	"time"
)

// go test -v --run TestLoadDefaults
func TestLoadDefaults(t *testing.T) {
	t.Setenv("BLTP_CONFIG_DIR", t.TempDir())
	t.Setenv("PORT", "")
	t.Setenv("ENV", "")
	t.Setenv("BLTP_ENV", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Scheduler.IndexPeriod != 5*time.Minute {
		t.Errorf("index period = %s, want 5m", cfg.Scheduler.IndexPeriod)
	}
	if cfg.Scheduler.LiquidityPeriod != 30*time.Second {
		t.Errorf("liquidity period = %s, want 30s", cfg.Scheduler.LiquidityPeriod)
	}
	if cfg.AlphaVantage.CallDelay != 12*time.Second {
		t.Errorf("call delay = %s, want 12s", cfg.AlphaVantage.CallDelay)
	}
	if cfg.LiveFeed.Capacity != 20 {
		t.Errorf("livefeed capacity = %d, want 20", cfg.LiveFeed.Capacity)
	}
	if cfg.Market.MockBonds != 50 || cfg.Market.LiquidityStep != 5 {
		t.Errorf("market defaults = %+v", cfg.Market)
	}
}

// go test -v --run TestLoadEnvOverrides
func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("BLTP_CONFIG_DIR", t.TempDir())
	t.Setenv("PORT", "8088")
	t.Setenv("ALPHA_VANTAGE_API_KEY", "av-key")
	t.Setenv("GEMINI_API_KEY", "gm-key")
	t.Setenv("SCHEDULER_LIQUIDITY_PERIOD", "10s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Server.Port != 8088 {
		t.Errorf("port = %d, want 8088", cfg.Server.Port)
	}
	if cfg.Server.Addr() != ":8088" {
		t.Errorf("addr = %q", cfg.Server.Addr())
	}
	if cfg.AlphaVantage.APIKey != "av-key" || cfg.Gemini.APIKey != "gm-key" {
		t.Errorf("api keys not bound: %q %q", cfg.AlphaVantage.APIKey, cfg.Gemini.APIKey)
	}
	if cfg.Scheduler.LiquidityPeriod != 10*time.Second {
		t.Errorf("liquidity period = %s, want 10s", cfg.Scheduler.LiquidityPeriod)
	}
}

// go test -v --run TestValidate
func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Server:    ServerConfig{Port: 3001},
			Scheduler: SchedulerConfig{IndexPeriod: time.Minute, LiquidityPeriod: time.Second},
			LiveFeed:  LiveFeedConfig{Capacity: 20, MinInterval: 2 * time.Second, MaxInterval: 5 * time.Second},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(*Config) {}, false},
		{"zero port", func(c *Config) { c.Server.Port = 0 }, true},
		{"zero period", func(c *Config) { c.Scheduler.IndexPeriod = 0 }, true},
		{"zero capacity", func(c *Config) { c.LiveFeed.Capacity = 0 }, true},
		{"inverted interval", func(c *Config) { c.LiveFeed.MinInterval = 10 * time.Second }, true},
		{"negative delay", func(c *Config) { c.AlphaVantage.CallDelay = -time.Second }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

// go test -v --run TestPostgresDSN
func TestPostgresDSN(t *testing.T) {
	cfg := PostgresConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "postgres",
		Password: "pw",
		DBName:   "bltp",
		SSLMode:  "disable",
		TimeZone: "UTC",
	}

	want := "host=localhost port=5432 user=postgres password=pw dbname=bltp sslmode=disable TimeZone=UTC"
	if got := cfg.DSN("dev"); got != want {
		t.Errorf("DSN() = %q, want %q", got, want)
	}

	admin := "host=localhost port=5432 user=postgres password=pw dbname=postgres sslmode=disable TimeZone=UTC"
	if got := cfg.AdminDSN("dev"); got != admin {
		t.Errorf("AdminDSN() = %q, want %q", got, admin)
	}
}

// go test -v --run TestPostgresDSNProd
func TestPostgresDSNProd(t *testing.T) {
	params := map[string]string{
		"BLTP_DB_HOST":     "db.internal",
		"BLTP_DB_USER":     "journal",
		"BLTP_DB_PASSWORD": "secret",
	}
	orig := parameterLookup
	parameterLookup = func(name string, _ bool) string { return params[name] }
	t.Cleanup(func() { parameterLookup = orig })

	cfg := PostgresConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "postgres",
		Password: "pw",
		DBName:   "bltp",
		SSLMode:  "require",
	}

	want := "host=db.internal port=5432 user=journal password=secret dbname=bltp sslmode=require"
	if got := cfg.DSN("prod"); got != want {
		t.Errorf("DSN() = %q, want %q", got, want)
	}

	admin := "host=db.internal port=5432 user=journal password=secret dbname=postgres sslmode=require"
	if got := cfg.AdminDSN("prod"); got != admin {
		t.Errorf("AdminDSN() = %q, want %q", got, admin)
	}
}
