package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.uber.org/multierr"

	"github.com/arnavshah/leave-scheduler-go/pkg/models"
)

// EnvPaths are tried in order; the first .env found is loaded
var EnvPaths = []string{".env", "../.env", "../../.env"}

// Config is the process configuration of the server and the CLI
type Config struct {
	Port            string
	DatabaseURL     string
	DataPath        string
	JWTSecret       string
	APIMasterSecret string
	TokenTTL        time.Duration
	AdminUsername   string
	AdminPassword   string
	GinMode         string
	LogLevel        string
	LogFormat       string
	MetricsEnabled  bool

	// WeekendsHighDemand weighs Fridays and Saturdays as high-demand days
	WeekendsHighDemand bool

	// Defaults seed the scheduling policy until one is saved
	Defaults models.Configuration
}

// LoadDotEnv loads the first .env file found in EnvPaths. Existing
// environment variables win over the file.
func LoadDotEnv() {
	for _, p := range EnvPaths {
		if _, err := os.Stat(p); err == nil {
			_ = godotenv.Load(p)
			return
		}
	}
}

// Load reads .env then the environment
func Load() (*Config, error) {
	LoadDotEnv()
	return FromViper(NewViper())
}

// NewViper returns a viper instance bound to the environment with defaults set
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("port", "8000")
	v.SetDefault("database_url", "")
	v.SetDefault("data_path", "leave_scheduler.db")
	v.SetDefault("jwt_secret", "")
	v.SetDefault("api_master_secret", "")
	v.SetDefault("token_ttl", "24h")
	v.SetDefault("admin_username", "admin")
	v.SetDefault("admin_password", "admin123")
	v.SetDefault("gin_mode", "release")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")
	v.SetDefault("metrics_enabled", true)
	v.SetDefault("weekends_high_demand", true)
	v.SetDefault("default_soldiers_in_base", models.DefaultSoldiersInBase)
	v.SetDefault("default_min_consecutive_days", models.DefaultMinConsecutiveDays)
	v.SetDefault("default_max_consecutive_days", models.DefaultMaxConsecutiveDays)
	return v
}

// FromViper builds a Config from an already populated viper instance
func FromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Port:            v.GetString("port"),
		DatabaseURL:     v.GetString("database_url"),
		DataPath:        v.GetString("data_path"),
		JWTSecret:       v.GetString("jwt_secret"),
		APIMasterSecret: v.GetString("api_master_secret"),
		TokenTTL:        v.GetDuration("token_ttl"),
		AdminUsername:   v.GetString("admin_username"),
		AdminPassword:   v.GetString("admin_password"),
		GinMode:         v.GetString("gin_mode"),
		LogLevel:        v.GetString("log_level"),
		LogFormat:       v.GetString("log_format"),
		MetricsEnabled:  v.GetBool("metrics_enabled"),
		Defaults:        models.DefaultConfiguration(),

		WeekendsHighDemand: v.GetBool("weekends_high_demand"),
	}
	cfg.Defaults.SoldiersInBase = v.GetInt("default_soldiers_in_base")
	cfg.Defaults.MinConsecutiveDays = v.GetInt("default_min_consecutive_days")
	cfg.Defaults.MaxConsecutiveDaysInOneTrip = v.GetInt("default_max_consecutive_days")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every invalid setting
func (c *Config) Validate() error {
	var errs error
	if c.Port == "" {
		errs = multierr.Append(errs, fmt.Errorf("PORT must not be empty"))
	}
	if c.DatabaseURL == "" && c.DataPath == "" {
		errs = multierr.Append(errs, fmt.Errorf("either DATABASE_URL or DATA_PATH is required"))
	}
	switch c.GinMode {
	case "debug", "release", "test":
	default:
		errs = multierr.Append(errs, fmt.Errorf("GIN_MODE must be debug, release or test, got %q", c.GinMode))
	}
	if c.TokenTTL <= 0 {
		errs = multierr.Append(errs, fmt.Errorf("TOKEN_TTL must be positive"))
	}
	if c.Defaults.SoldiersInBase <= 0 {
		errs = multierr.Append(errs, fmt.Errorf("DEFAULT_SOLDIERS_IN_BASE must be greater than 0"))
	}
	if c.Defaults.MinConsecutiveDays <= 0 {
		errs = multierr.Append(errs, fmt.Errorf("DEFAULT_MIN_CONSECUTIVE_DAYS must be greater than 0"))
	}
	if c.Defaults.MaxConsecutiveDaysInOneTrip <= 0 {
		errs = multierr.Append(errs, fmt.Errorf("DEFAULT_MAX_CONSECUTIVE_DAYS must be greater than 0"))
	}
	return errs
}
