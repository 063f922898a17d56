package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Env      string  `mapstructure:"env"`
	Port     string  `mapstructure:"port"`
	BotToken string  `mapstructure:"bot_token"`
	JWTKey   string  `mapstructure:"jwt_key"`
	Redis    Redis   `mapstructure:"redis"`
	Session  Session `mapstructure:"session"`
	Game     Game    `mapstructure:"game"`
	Log      Log     `mapstructure:"log"`
}

// Redis holds the connection settings for the state store.
type Redis struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Session controls the multi-device exclusivity window.
type Session struct {
	// Timeout is the sliding activity window. A second device syncing
	// within this window of the first device's last activity is denied.
	Timeout time.Duration `mapstructure:"timeout"`
	// SweepInterval is how often stale entries are garbage-collected.
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

// Game holds the sanity bounds applied to incoming sync snapshots.
type Game struct {
	MaxBalance  float64       `mapstructure:"max_balance"`
	MaxEarned   float64       `mapstructure:"max_earned"`
	MaxClicks   int64         `mapstructure:"max_clicks"`
	MaxUpgrade  int           `mapstructure:"max_upgrade"`
	LockTimeout time.Duration `mapstructure:"lock_timeout"`
}

// Log holds logger settings.
type Log struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from the environment, with a .env file as an
// optional local override. Missing values fall back to defaults suitable
// for development.
func Load() (*Config, error) {
	// Ignore error if the file doesn't exist (e.g. production)
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("env", "development")
	v.SetDefault("port", "8080")
	v.SetDefault("bot_token", "")
	v.SetDefault("jwt_key", "")
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("session.timeout", 15*time.Second)
	v.SetDefault("session.sweep_interval", 30*time.Second)
	v.SetDefault("game.max_balance", 1000.0)
	v.SetDefault("game.max_earned", 10000.0)
	v.SetDefault("game.max_clicks", 10000000)
	v.SetDefault("game.max_upgrade", 1000)
	v.SetDefault("game.lock_timeout", 3*time.Second)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
