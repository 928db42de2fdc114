package config

import (
	"fmt"
	"time"
)

// PostgresConfig defines the configuration for connecting to the event journal database.
type PostgresConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
	TimeZone string `mapstructure:"timezone"`
	CreateDB bool   `mapstructure:"create_db"` // create DBName on startup when missing

	Retention   time.Duration `mapstructure:"retention"` // journal rows older than this are pruned
	PrunePeriod time.Duration `mapstructure:"prune_period"`

	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DSN builds a libpq connection string. In prod the host and credentials
// come from the AWS Parameter Store.
func (cfg *PostgresConfig) DSN(env string) string {
	host, user, password := cfg.credentials(env)
	return cfg.dsn(host, user, password, cfg.DBName)
}

// AdminDSN targets the maintenance database, used to create DBName. It uses
// the same host and credentials as DSN.
func (cfg *PostgresConfig) AdminDSN(env string) string {
	host, user, password := cfg.credentials(env)
	return cfg.dsn(host, user, password, "postgres")
}

func (cfg *PostgresConfig) credentials(env string) (host, user, password string) {
	if env != "prod" {
		return cfg.Host, cfg.User, cfg.Password
	}
	return parameterLookup("BLTP_DB_HOST", true),
		parameterLookup("BLTP_DB_USER", true),
		parameterLookup("BLTP_DB_PASSWORD", true)
}

func (cfg *PostgresConfig) dsn(host, user, password, dbname string) string {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		host, cfg.Port, user, password, dbname, cfg.SSLMode,
	)

	if cfg.TimeZone != "" {
		dsn += fmt.Sprintf(" TimeZone=%s", cfg.TimeZone)
	}

	return dsn
}
