// Package config resolves engine settings from the environment and an
// optional YAML file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/example/attendance-engine/internal/compliance"
	"github.com/example/attendance-engine/internal/importer"
	"github.com/example/attendance-engine/internal/logging"
	"github.com/example/attendance-engine/internal/persistence/sqlite"
)

const (
	envDriver     = "ATTENDANCE_DB_DRIVER"
	envDSN        = "ATTENDANCE_DB_DSN"
	envTimezone   = "ATTENDANCE_TIMEZONE"
	envConfigFile = "ATTENDANCE_CONFIG_FILE"
	envLogLevel   = "ATTENDANCE_LOG_LEVEL"
	envLogFormat  = "ATTENDANCE_LOG_FORMAT"

	defaultSQLiteDSN = "file:attendance.db"
)

// Config captures the resolved engine configuration.
type Config struct {
	DBDriver   string
	DBDSN      string
	Location   *time.Location
	LogLevel   slog.Level
	LogFormat  string
	ConfigFile string

	Thresholds compliance.Thresholds
	Import     ImportConfig
}

// ImportConfig tunes the bulk importer. Zero trailing counts use the sheet defaults.
type ImportConfig struct {
	AttendanceTrailing int
	OutreachTrailing   int
	WeekdayStart       importer.TimeOfDay
	WeekendStart       importer.TimeOfDay
}

// fileConfig is the YAML document layout. Thresholds omitted from the file
// keep their current values.
type fileConfig struct {
	Timezone   string                 `yaml:"timezone"`
	Thresholds *compliance.Thresholds `yaml:"thresholds"`
	Import     struct {
		AttendanceTrailing *int   `yaml:"attendance_trailing_columns"`
		OutreachTrailing   *int   `yaml:"outreach_trailing_columns"`
		WeekdayStart       string `yaml:"weekday_start"`
		WeekendStart       string `yaml:"weekend_start"`
	} `yaml:"import"`
}

// Load parses configuration values from the current process environment.
//
// Defaults apply first, then the YAML file named by ATTENDANCE_CONFIG_FILE,
// then the remaining variables. Missing and invalid variables are reported
// together.
func Load() (Config, error) {
	cfg := Config{
		DBDriver:   "sqlite",
		Location:   time.UTC,
		LogLevel:   slog.LevelInfo,
		LogFormat:  "text",
		Thresholds: compliance.DefaultThresholds(),
		Import: ImportConfig{
			WeekdayStart: importer.DefaultWeekdayStart,
			WeekendStart: importer.DefaultWeekendStart,
		},
	}

	missing := make([]string, 0, 1)
	invalid := make([]string, 0, 4)

	if path := strings.TrimSpace(os.Getenv(envConfigFile)); path != "" {
		cfg.ConfigFile = path
		if err := cfg.applyFile(path); err != nil {
			return Config{}, err
		}
	}

	if driver := strings.ToLower(strings.TrimSpace(os.Getenv(envDriver))); driver != "" {
		if dialect, err := sqlite.DialectFor(driver); err != nil {
			invalid = append(invalid, envDriver)
		} else {
			cfg.DBDriver = dialect.Driver
		}
	}

	cfg.DBDSN = strings.TrimSpace(os.Getenv(envDSN))
	if cfg.DBDSN == "" {
		if cfg.DBDriver == "sqlite" {
			cfg.DBDSN = defaultSQLiteDSN
		} else {
			missing = append(missing, envDSN)
		}
	}

	if tz := strings.TrimSpace(os.Getenv(envTimezone)); tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			invalid = append(invalid, envTimezone)
		} else {
			cfg.Location = loc
		}
	}

	if level := strings.TrimSpace(os.Getenv(envLogLevel)); level != "" {
		parsed, err := logging.ParseLevel(level)
		if err != nil {
			invalid = append(invalid, envLogLevel)
		} else {
			cfg.LogLevel = parsed
		}
	}

	if format := strings.ToLower(strings.TrimSpace(os.Getenv(envLogFormat))); format != "" {
		if format != "text" && format != "json" {
			invalid = append(invalid, envLogFormat)
		} else {
			cfg.LogFormat = format
		}
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("required environment variables are not set: %s", strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("invalid environment variable values: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}

func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("config file %s does not exist", path)
		}
		return fmt.Errorf("read config file: %w", err)
	}

	thresholds := c.Thresholds
	doc := fileConfig{Thresholds: &thresholds}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	if doc.Timezone != "" {
		loc, err := time.LoadLocation(doc.Timezone)
		if err != nil {
			return fmt.Errorf("config file %s: timezone: %w", path, err)
		}
		c.Location = loc
	}
	if err := thresholds.Validate(); err != nil {
		return fmt.Errorf("config file %s: %w", path, err)
	}
	c.Thresholds = thresholds
	if n := doc.Import.AttendanceTrailing; n != nil {
		if *n < 0 {
			return fmt.Errorf("config file %s: attendance_trailing_columns must not be negative", path)
		}
		c.Import.AttendanceTrailing = *n
	}
	if n := doc.Import.OutreachTrailing; n != nil {
		if *n < 0 {
			return fmt.Errorf("config file %s: outreach_trailing_columns must not be negative", path)
		}
		c.Import.OutreachTrailing = *n
	}
	if doc.Import.WeekdayStart != "" {
		t, err := importer.ParseTimeOfDay(doc.Import.WeekdayStart)
		if err != nil {
			return fmt.Errorf("config file %s: weekday_start: %w", path, err)
		}
		c.Import.WeekdayStart = t
	}
	if doc.Import.WeekendStart != "" {
		t, err := importer.ParseTimeOfDay(doc.Import.WeekendStart)
		if err != nil {
			return fmt.Errorf("config file %s: weekend_start: %w", path, err)
		}
		c.Import.WeekendStart = t
	}
	return nil
}

// Store returns the database configuration for sqlite.Open.
func (c Config) Store() sqlite.Config {
	store := sqlite.DefaultConfig(c.DBDSN)
	store.Driver = c.DBDriver
	if c.DBDriver != "sqlite" {
		store.MaxOpenConns = 10
		store.MaxIdleConns = 5
	}
	return store
}

// Schedule returns the start times used for imported meetings.
func (c Config) Schedule() *importer.Schedule {
	return importer.NewSchedule(c.Location, c.Import.WeekdayStart, c.Import.WeekendStart)
}
