package config

import (
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Security SecurityConfig `mapstructure:"security"`
	Crafting CraftingConfig `mapstructure:"crafting"`
	Energy   EnergyConfig   `mapstructure:"energy"`
	Seed     SeedConfig     `mapstructure:"seed"`
}

type ServerConfig struct {
	Port  int  `mapstructure:"port"`
	Debug bool `mapstructure:"debug"`
}

type DatabaseConfig struct {
	Mode         string        `mapstructure:"mode"` // sqlite | mysql | postgres
	SQLitePath   string        `mapstructure:"sqlite_path"`
	MySQLDSN     string        `mapstructure:"mysql_dsn" env:"LEDGER_MYSQL_DSN"`
	PostgresDSN  string        `mapstructure:"postgres_dsn" env:"LEDGER_POSTGRES_DSN"`
	MaxOpenConns int           `mapstructure:"max_open_conns"`
	MaxIdleConns int           `mapstructure:"max_idle_conns"`
	ConnMaxLife  time.Duration `mapstructure:"conn_max_life"`
}

type CacheConfig struct {
	RedisAddr       string        `mapstructure:"redis_addr" env:"LEDGER_REDIS_ADDR"`
	RedisPassword   string        `mapstructure:"redis_password" env:"LEDGER_REDIS_PASSWORD"`
	RedisDB         int           `mapstructure:"redis_db"`
	LocalGCInterval time.Duration `mapstructure:"local_gc_interval"`
}

type SecurityConfig struct {
	JWTSecret      string        `mapstructure:"jwt_secret" env:"LEDGER_JWT_SECRET"`
	SessionTTL     time.Duration `mapstructure:"session_ttl"`
	RateLimitRPS   float64       `mapstructure:"rate_limit_rps"`
	RateLimitBurst int           `mapstructure:"rate_limit_burst"`
	// AdminIPs lists addresses or CIDR ranges allowed on /admin routes.
	AdminIPs []string `mapstructure:"admin_ips" env:"LEDGER_ADMIN_IPS" envSeparator:","`
}

// CraftingConfig tunes the blacksmith anti-automation guards and optional energy costs.
type CraftingConfig struct {
	MinClaimElapsed time.Duration `mapstructure:"min_claim_elapsed"`
	MinHitRatio     float64       `mapstructure:"min_hit_ratio"`
	ForgeEnergyCost int           `mapstructure:"forge_energy_cost"`
	SmeltEnergyCost int           `mapstructure:"smelt_energy_cost"`
}

type EnergyConfig struct {
	// Timezone decides where the daily reset boundary falls.
	Timezone string `mapstructure:"timezone"`
}

type SeedConfig struct {
	Path string `mapstructure:"path"`
}

// Location resolves the configured reset timezone, falling back to UTC.
func (e EnergyConfig) Location() *time.Location {
	if e.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(e.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Load reads config from the given YAML file path.
// Secrets can be overridden from the environment after the file is read.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.debug", false)
	v.SetDefault("database.mode", "sqlite")
	v.SetDefault("database.sqlite_path", "./data/ledger.db")
	v.SetDefault("database.max_open_conns", 50)
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.conn_max_life", "1h")
	v.SetDefault("cache.local_gc_interval", "30s")
	v.SetDefault("security.session_ttl", "72h")
	v.SetDefault("security.rate_limit_rps", 100)
	v.SetDefault("security.rate_limit_burst", 200)
	v.SetDefault("security.admin_ips", []string{"127.0.0.1", "::1"})
	v.SetDefault("crafting.min_claim_elapsed", "2s")
	v.SetDefault("crafting.min_hit_ratio", 0.40)
	v.SetDefault("crafting.forge_energy_cost", 0)
	v.SetDefault("crafting.smelt_energy_cost", 0)
	v.SetDefault("energy.timezone", "UTC")
}

// applyEnv overlays env-tagged fields; unset variables leave the YAML values alone.
func applyEnv(cfg *Config) error {
	for _, target := range []interface{}{&cfg.Database, &cfg.Cache, &cfg.Security} {
		if err := env.Parse(target); err != nil {
			return err
		}
	}
	return nil
}
