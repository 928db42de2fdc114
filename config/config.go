package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Env          string             `mapstructure:"env"` // "dev" or "prod"
	Server       ServerConfig       `mapstructure:"server"`
	AlphaVantage AlphaVantageConfig `mapstructure:"alphavantage"`
	Gemini       GeminiConfig       `mapstructure:"gemini"`
	Scheduler    SchedulerConfig    `mapstructure:"scheduler"`
	Market       MarketConfig       `mapstructure:"market"`
	LiveFeed     LiveFeedConfig     `mapstructure:"livefeed"`
	Log          LogConfig          `mapstructure:"log"`
	Postgres     PostgresConfig     `mapstructure:"postgres"`
	Redis        RedisConfig        `mapstructure:"redis"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// Addr returns the listen address for the HTTP server.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf(":%d", s.Port)
}

type AlphaVantageConfig struct {
	BaseURL     string        `mapstructure:"base_url"`
	APIKey      string        `mapstructure:"api_key"`
	APIKeyParam string        `mapstructure:"api_key_param"` // SSM parameter name used in prod
	Timeout     time.Duration `mapstructure:"timeout"`
	CallDelay   time.Duration `mapstructure:"call_delay"` // free tier: 5 calls/minute
}

type GeminiConfig struct {
	BaseURL     string        `mapstructure:"base_url"`
	APIKey      string        `mapstructure:"api_key"`
	APIKeyParam string        `mapstructure:"api_key_param"`
	Model       string        `mapstructure:"model"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

type SchedulerConfig struct {
	IndexPeriod     time.Duration `mapstructure:"index_period"`
	LiquidityPeriod time.Duration `mapstructure:"liquidity_period"`
}

type MarketConfig struct {
	MockBonds     int   `mapstructure:"mock_bonds"`
	LiquidityStep int   `mapstructure:"liquidity_step"`
	Seed          int64 `mapstructure:"seed"` // 0 seeds from the clock
}

type LiveFeedConfig struct {
	URL           string        `mapstructure:"url"` // empty: simulated feed
	Capacity      int           `mapstructure:"capacity"`
	MinInterval   time.Duration `mapstructure:"min_interval"`
	MaxInterval   time.Duration `mapstructure:"max_interval"`
	PrintInterval time.Duration `mapstructure:"print_interval"`
}

// LogConfig defines the logger configuration options.
type LogConfig struct {
	Level       string `mapstructure:"level"`       // log level: "debug", "info", "warn", "error"
	Format      string `mapstructure:"format"`      // log format: "json" or "console"
	OutputFile  string `mapstructure:"output_file"` // file path to store logs (optional)
	Environment string `mapstructure:"environment"` // environment: "dev" or "prod"
}

type RedisConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	Addr      string        `mapstructure:"addr"`
	Password  string        `mapstructure:"password"`
	DB        int           `mapstructure:"db"`
	KeyPrefix string        `mapstructure:"key_prefix"`
	Channel   string        `mapstructure:"channel"`
	TTL       time.Duration `mapstructure:"ttl"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "dev")

	v.SetDefault("server.port", 3001)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.read_timeout", 15*time.Second)
	// index and bond endpoints wait out the upstream rate limit
	v.SetDefault("server.write_timeout", 2*time.Minute)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("alphavantage.base_url", "https://www.alphavantage.co")
	v.SetDefault("alphavantage.api_key", "")
	v.SetDefault("alphavantage.api_key_param", "BLTP_ALPHA_VANTAGE_API_KEY")
	v.SetDefault("alphavantage.timeout", 10*time.Second)
	v.SetDefault("alphavantage.call_delay", 12*time.Second)

	v.SetDefault("gemini.base_url", "https://generativelanguage.googleapis.com")
	v.SetDefault("gemini.api_key", "")
	v.SetDefault("gemini.api_key_param", "BLTP_GEMINI_API_KEY")
	v.SetDefault("gemini.model", "gemini-pro")
	v.SetDefault("gemini.timeout", 30*time.Second)

	v.SetDefault("scheduler.index_period", 5*time.Minute)
	v.SetDefault("scheduler.liquidity_period", 30*time.Second)

	v.SetDefault("market.mock_bonds", 50)
	v.SetDefault("market.liquidity_step", 5)
	v.SetDefault("market.seed", 0)

	v.SetDefault("livefeed.url", "")
	v.SetDefault("livefeed.capacity", 20)
	v.SetDefault("livefeed.min_interval", 2*time.Second)
	v.SetDefault("livefeed.max_interval", 5*time.Second)
	v.SetDefault("livefeed.print_interval", 5*time.Second)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.output_file", "")
	v.SetDefault("log.environment", "dev")

	v.SetDefault("postgres.enabled", false)
	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "postgres")
	v.SetDefault("postgres.password", "")
	v.SetDefault("postgres.dbname", "bltp")
	v.SetDefault("postgres.sslmode", "disable")
	v.SetDefault("postgres.timezone", "UTC")
	v.SetDefault("postgres.max_open_conns", 10)
	v.SetDefault("postgres.max_idle_conns", 5)
	v.SetDefault("postgres.conn_max_lifetime", time.Hour)
	v.SetDefault("postgres.create_db", false)
	v.SetDefault("postgres.retention", 7*24*time.Hour)
	v.SetDefault("postgres.prune_period", time.Hour)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.key_prefix", "bltp")
	v.SetDefault("redis.channel", "bltp.events")
	v.SetDefault("redis.ttl", time.Hour)
}

// Load loads application configuration using Viper.
// It reads .env into the process environment, then config.yaml, and finally
// overrides with environment variables. Missing files are not an error.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, relying on environment variables")
	}

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config") // config.yaml
	v.SetConfigType("yaml")
	for _, dir := range configDirs() {
		v.AddConfigPath(dir)
	}

	// Support environment variables with dot notation (e.g., ALPHAVANTAGE_TIMEOUT)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Conventional names used by hosting platforms and .env files
	bindEnv(v, "server.port", "PORT", "SERVER_PORT")
	bindEnv(v, "alphavantage.api_key", "ALPHA_VANTAGE_API_KEY", "ALPHAVANTAGE_API_KEY")
	bindEnv(v, "gemini.api_key", "GEMINI_API_KEY")
	bindEnv(v, "env", "BLTP_ENV", "ENV")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.Env == "prod" {
		cfg.resolveSecrets()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects values the server cannot run with.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Scheduler.IndexPeriod <= 0 || c.Scheduler.LiquidityPeriod <= 0 {
		return errors.New("scheduler periods must be positive")
	}
	if c.AlphaVantage.CallDelay < 0 {
		return errors.New("alphavantage call_delay must not be negative")
	}
	if c.LiveFeed.Capacity < 1 {
		return fmt.Errorf("invalid livefeed capacity: %d", c.LiveFeed.Capacity)
	}
	if c.LiveFeed.MinInterval <= 0 || c.LiveFeed.MinInterval > c.LiveFeed.MaxInterval {
		return fmt.Errorf("invalid livefeed interval range: %s-%s",
			c.LiveFeed.MinInterval, c.LiveFeed.MaxInterval)
	}
	if c.LiveFeed.PrintInterval <= 0 {
		return errors.New("livefeed print_interval must be positive")
	}
	if c.Market.LiquidityStep < 0 {
		return errors.New("market liquidity_step must not be negative")
	}
	return nil
}

// resolveSecrets fills empty API keys from the AWS Parameter Store.
func (c *Config) resolveSecrets() {
	if c.AlphaVantage.APIKey == "" && c.AlphaVantage.APIKeyParam != "" {
		c.AlphaVantage.APIKey = parameterLookup(c.AlphaVantage.APIKeyParam, true)
	}
	if c.Gemini.APIKey == "" && c.Gemini.APIKeyParam != "" {
		c.Gemini.APIKey = parameterLookup(c.Gemini.APIKeyParam, true)
	}
}

func configDirs() []string {
	var dirs []string
	if dir := os.Getenv("BLTP_CONFIG_DIR"); dir != "" {
		dirs = append(dirs, dir)
	}

	ex, _ := os.Executable()
	if strings.Contains(ex, "go-build") {
		pwd, _ := os.Getwd()
		dirs = append(dirs, filepath.Join(pwd, "../../config"))
	} else if ex != "" {
		dirs = append(dirs, filepath.Join(filepath.Dir(ex), "../config"))
	}
	return append(dirs, "./config")
}

// bindEnv binds a config key to one or more environment variable names.
func bindEnv(v *viper.Viper, key string, envs ...string) {
	args := append([]string{key}, envs...)
	if err := v.BindEnv(args...); err != nil {
		log.Printf("could not bind env var for key %s: %v", key, err)
	}
}
