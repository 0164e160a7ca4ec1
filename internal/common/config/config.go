package config

import (
	"os"
	"regexp"

	"github.com/amoylab/hydrowatch/pkg/helper"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type (
	// SuperAdminConfig represents the bootstrap super admin account
	SuperAdminConfig struct {
		Username string `yaml:"username"`
		Email    string `yaml:"email"`
		Password string `yaml:"password"`
	}

	// LoggerConfig represents the logger configuration
	LoggerConfig struct {
		Level      string `yaml:"level"`       // debug, info, warn, error
		Format     string `yaml:"format"`      // json, console
		Output     string `yaml:"output"`      // stdout, file
		FilePath   string `yaml:"file_path"`   // path to log file when output is file
		MaxSize    int    `yaml:"max_size"`    // max size of log file in MB
		MaxBackups int    `yaml:"max_backups"` // max number of backup files
		MaxAge     int    `yaml:"max_age"`     // max age of backup files in days
		Compress   bool   `yaml:"compress"`    // whether to compress backup files
		Color      bool   `yaml:"color"`       // whether to use color in console output
		Stacktrace bool   `yaml:"stacktrace"`  // whether to include stacktrace in error logs
		TimeZone   string `yaml:"time_zone"`   // time zone for log timestamps, e.g., "UTC", default is local
		TimeFormat string `yaml:"time_format"` // time format for log timestamps, default is "2006-01-02 15:04:05"
	}
)

// LoadConfig loads configuration from a YAML file with environment variable support
func LoadConfig[T any](filename string) (*T, string, error) {
	// Load .env file if exists
	_ = godotenv.Load()

	cfgPath, err := helper.ResolveConfigPath(filename)
	if err != nil {
		return nil, filename, err
	}
	data, err := os.ReadFile(cfgPath)
	if err != nil {
		return nil, cfgPath, err
	}

	cfg, err := ParseConfig[T](data)
	if err != nil {
		return nil, cfgPath, err
	}
	return cfg, cfgPath, nil
}

// ParseConfig resolves environment placeholders in data and unmarshals it.
// Types implementing Defaulter get their defaults applied afterwards.
func ParseConfig[T any](data []byte) (*T, error) {
	data = resolveEnv(data)
	var cfg T
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if d, ok := any(&cfg).(Defaulter); ok {
		d.ApplyDefaults()
	}
	return &cfg, nil
}

// Defaulter is implemented by configs that fill in zero values after loading
type Defaulter interface {
	ApplyDefaults()
}

var envPattern = regexp.MustCompile(`\$\{(\w+)(?::([^}]*))?\}`)

// resolveEnv replaces environment variable placeholders in YAML content
func resolveEnv(content []byte) []byte {
	return envPattern.ReplaceAllFunc(content, func(match []byte) []byte {
		matches := envPattern.FindSubmatch(match)
		envKey := string(matches[1])
		var defaultValue string

		if len(matches) > 2 {
			defaultValue = string(matches[2])
		}

		if value, exists := os.LookupEnv(envKey); exists {
			return []byte(value)
		}
		return []byte(defaultValue)
	})
}
