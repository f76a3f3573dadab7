package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration values.
type Config struct {
	Port     string `mapstructure:"PORT"`
	Env      string `mapstructure:"ENV"`
	LogLevel string `mapstructure:"LOG_LEVEL"`

	DatabaseURL string `mapstructure:"DATABASE_URL"`

	RedisAddr     string        `mapstructure:"REDIS_ADDR"`
	RedisPassword string        `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int           `mapstructure:"REDIS_DB"`
	SessionTTL    time.Duration `mapstructure:"SESSION_TTL"`

	JWTSecret    string `mapstructure:"JWT_HMAC_SECRET"`
	StaticTokens string `mapstructure:"STATIC_TOKENS"`

	Timezone       string `mapstructure:"TIMEZONE"`
	HorizonDays    int    `mapstructure:"HORIZON_DAYS"`
	MaxHorizonDays int    `mapstructure:"MAX_HORIZON_DAYS"`
	SlotMinutes    int    `mapstructure:"SLOT_MINUTES"`
	DefaultDays    string `mapstructure:"DEFAULT_DAYS"`
	DefaultStart   string `mapstructure:"DEFAULT_START"`
	DefaultEnd     string `mapstructure:"DEFAULT_END"`

	CORSOrigins     string `mapstructure:"CORS_ORIGINS"`
	RateLimitPerMin int    `mapstructure:"RATE_LIMIT_PER_MIN"`

	GoogleClientID     string `mapstructure:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `mapstructure:"GOOGLE_CLIENT_SECRET"`
	GoogleRedirectURL  string `mapstructure:"GOOGLE_REDIRECT_URL"`
}

var keys = []string{
	"PORT", "ENV", "LOG_LEVEL", "DATABASE_URL",
	"REDIS_ADDR", "REDIS_PASSWORD", "REDIS_DB", "SESSION_TTL",
	"JWT_HMAC_SECRET", "STATIC_TOKENS",
	"TIMEZONE", "HORIZON_DAYS", "MAX_HORIZON_DAYS", "SLOT_MINUTES",
	"DEFAULT_DAYS", "DEFAULT_START", "DEFAULT_END",
	"CORS_ORIGINS", "RATE_LIMIT_PER_MIN",
	"GOOGLE_CLIENT_ID", "GOOGLE_CLIENT_SECRET", "GOOGLE_REDIRECT_URL",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("SESSION_TTL", "24h")
	v.SetDefault("JWT_HMAC_SECRET", "")
	v.SetDefault("STATIC_TOKENS", "")
	v.SetDefault("TIMEZONE", "UTC")
	v.SetDefault("HORIZON_DAYS", 28)
	v.SetDefault("MAX_HORIZON_DAYS", 56)
	v.SetDefault("SLOT_MINUTES", 60)
	v.SetDefault("DEFAULT_DAYS", "1,2,3,4,5")
	v.SetDefault("DEFAULT_START", "09:00")
	v.SetDefault("DEFAULT_END", "17:00")
	v.SetDefault("CORS_ORIGINS", "*")
	v.SetDefault("RATE_LIMIT_PER_MIN", 120)
	v.SetDefault("GOOGLE_CLIENT_ID", "")
	v.SetDefault("GOOGLE_CLIENT_SECRET", "")
	v.SetDefault("GOOGLE_REDIRECT_URL", "")
}

// Load reads .env (if present), an optional config.yaml and the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AutomaticEnv()
	setDefaults(v)
	// AutomaticEnv only covers keys viper already knows about when unmarshalling.
	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("config: read file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("config: DATABASE_URL required")
	}
	if c.HorizonDays < 1 {
		return fmt.Errorf("config: HORIZON_DAYS must be positive, got %d", c.HorizonDays)
	}
	if c.MaxHorizonDays < c.HorizonDays {
		return fmt.Errorf("config: MAX_HORIZON_DAYS %d below HORIZON_DAYS %d", c.MaxHorizonDays, c.HorizonDays)
	}
	if c.SlotMinutes < 5 || c.SlotMinutes > 24*60 {
		return fmt.Errorf("config: SLOT_MINUTES out of range: %d", c.SlotMinutes)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if _, err := c.DefaultWeekdays(); err != nil {
		return err
	}
	if c.CalendarEnabled() && c.JWTSecret == "" {
		return fmt.Errorf("config: JWT_HMAC_SECRET required to sign Google Calendar link state")
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("config: TIMEZONE %q: %w", c.Timezone, err)
	}
	return loc, nil
}

func (c *Config) SlotDuration() time.Duration {
	return time.Duration(c.SlotMinutes) * time.Minute
}

// DefaultWeekdays parses DEFAULT_DAYS ("1,2,3,4,5", Monday=1).
func (c *Config) DefaultWeekdays() ([]int, error) {
	var out []int
	for _, part := range splitList(c.DefaultDays) {
		d, err := strconv.Atoi(part)
		if err != nil || d < 1 || d > 7 {
			return nil, fmt.Errorf("config: DEFAULT_DAYS entry %q must be 1..7", part)
		}
		out = append(out, d)
	}
	return out, nil
}

func (c *Config) StaticTokenList() []string {
	return splitList(c.StaticTokens)
}

func (c *Config) CORSOriginList() []string {
	return splitList(c.CORSOrigins)
}

func (c *Config) CalendarEnabled() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != "" && c.GoogleRedirectURL != ""
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
