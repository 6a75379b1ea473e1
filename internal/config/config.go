// Package config loads every service tunable via spf13/viper: env vars with
// a GRIEVANCE_ prefix layered over an optional config file over defaults.
package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"

	"grievance/internal/grievance"
)

// Config is every setting the core and its HTTP surface consult at startup.
type Config struct {
	Database   DatabaseConfig
	Server     ServerConfig
	Escalation EscalationConfig
	Signoff    SignoffConfig
	Duplicate  DuplicateConfig
	AI         AIConfig
	SLADays    map[grievance.Category]int
	Redis      RedisConfig
	Auth       AuthConfig
	// DefaultDepartmentID is the fallback department for categories with no
	// explicit department mapping row; every complaint gets a department.
	DefaultDepartmentID int64
}

// AuthConfig carries the HMAC secret internal/httpauth verifies bearer
// tokens against.
type AuthConfig struct {
	JWTSecret string
}

type DatabaseConfig struct {
	DSN string // database.dsn (GRIEVANCE_DATABASE_DSN), used as given
}

type ServerConfig struct {
	Host string
	Port string
}

// EscalationConfig backs internal/escalation.Config's cron cadence and the
// safety threshold for stale FILED complaints.
type EscalationConfig struct {
	Cron                string
	StaleFiledThreshold time.Duration
}

// SignoffConfig is the citizen-response window after resolution.
type SignoffConfig struct {
	WindowHours int
}

// DuplicateConfig holds the duplicate.* options.
type DuplicateConfig struct {
	RadiusMeters   float64
	FlagThreshold  float64
	BlockThreshold float64
}

// AIConfig holds the ai.* options.
type AIConfig struct {
	ConfidenceThreshold float64
	Required            bool
	CallTimeout         time.Duration
}

// RedisConfig configures the escalation scheduler's singleton leader lock;
// empty Addr falls back to an in-process mutex
// (internal/escalation.NewLocalLock).
type RedisConfig struct {
	Addr string
}

// defaultSLADays is the per-category resolution window, in days.
var defaultSLADays = map[string]int{
	string(grievance.CategoryPothole):          3,
	string(grievance.CategoryStreetlight):      2,
	string(grievance.CategoryWaterShortage):    1,
	string(grievance.CategorySewerDrainage):    2,
	string(grievance.CategoryGarbage):          1,
	string(grievance.CategoryTrafficSignals):   1,
	string(grievance.CategoryParkMaintenance):  7,
	string(grievance.CategoryElectricalDamage): 3,
	string(grievance.CategoryOther):            14,
}

// Load reads configuration from (in ascending priority) defaults, an
// optional grievance.yaml/grievance.env config file, and GRIEVANCE_*
// environment variables.
func Load() *Config {
	v := viper.New()
	v.SetEnvPrefix("GRIEVANCE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName("grievance")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/grievance")
	_ = v.ReadInConfig() // absence of a config file is not fatal; env + defaults carry startup.

	v.SetDefault("database.dsn", "")
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "8080")
	v.SetDefault("escalation.cron", "@every 6h")
	v.SetDefault("escalation.stale_filed_threshold_hours", 48)
	v.SetDefault("signoff.window_hours", 72)
	v.SetDefault("duplicate.radius_meters", 500.0)
	v.SetDefault("duplicate.flag_threshold", 0.6)
	v.SetDefault("duplicate.block_threshold", 0.8)
	v.SetDefault("ai.confidence_threshold", 0.7)
	v.SetDefault("ai.required", false)
	v.SetDefault("ai.call_timeout_seconds", 10)
	v.SetDefault("redis.addr", "")
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("default_department_id", 1)
	for cat, days := range defaultSLADays {
		v.SetDefault("sla_days."+cat, days)
	}

	sla := make(map[grievance.Category]int, len(defaultSLADays))
	for cat := range defaultSLADays {
		sla[grievance.Category(cat)] = v.GetInt("sla_days." + cat)
	}

	return &Config{
		Database: DatabaseConfig{DSN: v.GetString("database.dsn")},
		Server: ServerConfig{
			Host: v.GetString("server.host"),
			Port: v.GetString("server.port"),
		},
		Escalation: EscalationConfig{
			Cron:                v.GetString("escalation.cron"),
			StaleFiledThreshold: time.Duration(v.GetInt("escalation.stale_filed_threshold_hours")) * time.Hour,
		},
		Signoff: SignoffConfig{WindowHours: v.GetInt("signoff.window_hours")},
		Duplicate: DuplicateConfig{
			RadiusMeters:   v.GetFloat64("duplicate.radius_meters"),
			FlagThreshold:  v.GetFloat64("duplicate.flag_threshold"),
			BlockThreshold: v.GetFloat64("duplicate.block_threshold"),
		},
		AI: AIConfig{
			ConfidenceThreshold: v.GetFloat64("ai.confidence_threshold"),
			Required:            v.GetBool("ai.required"),
			CallTimeout:         time.Duration(v.GetInt("ai.call_timeout_seconds")) * time.Second,
		},
		SLADays:             sla,
		Redis:               RedisConfig{Addr: v.GetString("redis.addr")},
		Auth:                AuthConfig{JWTSecret: v.GetString("auth.jwt_secret")},
		DefaultDepartmentID: v.GetInt64("default_department_id"),
	}
}

// SignoffWindowDuration is a convenience accessor for internal/escalation.Config.
func (c *Config) SignoffWindowDuration() time.Duration {
	return time.Duration(c.Signoff.WindowHours) * time.Hour
}
