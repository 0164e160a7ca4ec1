package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

type (
	APIServerConfig struct {
		Server     ServerConfig     `yaml:"server"`
		Database   DatabaseConfig   `yaml:"database"`
		Logger     LoggerConfig     `yaml:"logger"`
		JWT        JWTConfig        `yaml:"jwt"`
		SuperAdmin SuperAdminConfig `yaml:"super_admin"`
		Mail       MailConfig       `yaml:"mail"`
		Realtime   RealtimeConfig   `yaml:"realtime"`
		Redis      RedisConfig      `yaml:"redis"`
		RabbitMQ   RabbitMQConfig   `yaml:"rabbitmq"`
		Scheduler  SchedulerConfig  `yaml:"scheduler"`
		RateLimit  RateLimitConfig  `yaml:"rate_limit"`
		CORS       CORSConfig       `yaml:"cors"`
		Metrics    MetricsConfig    `yaml:"metrics"`
		Tracing    TracingConfig    `yaml:"tracing"`
		I18n       I18nConfig       `yaml:"i18n"`
	}

	ServerConfig struct {
		Port            int           `yaml:"port"`
		Mode            string        `yaml:"mode"` // debug, release, test
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	}

	DatabaseConfig struct {
		Type            string        `yaml:"type"`     // mysql, postgres, sqlite
		Host            string        `yaml:"host"`     // localhost
		Port            int           `yaml:"port"`     // 3306 (for mysql), 5432 (for postgres)
		User            string        `yaml:"user"`     // root (for mysql), postgres (for postgres)
		Password        string        `yaml:"password"` // password
		DBName          string        `yaml:"dbname"`   // database name, file path for sqlite
		SSLMode         string        `yaml:"sslmode"`  // disable (for postgres)
		MaxOpenConns    int           `yaml:"max_open_conns"`
		MaxIdleConns    int           `yaml:"max_idle_conns"`
		ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	}

	JWTConfig struct {
		SecretKey string        `yaml:"secret_key"`
		Duration  time.Duration `yaml:"duration"`
	}

	// MailConfig configures outbound SMTP delivery
	MailConfig struct {
		Enabled  bool   `yaml:"enabled"` // when false mail is logged instead of sent
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		Username string `yaml:"username"`
		Password string `yaml:"password"`
		From     string `yaml:"from"`
		TLS      string `yaml:"tls"` // mandatory, opportunistic, none
		// VerifyURL is the frontend page users land on to enter their code
		VerifyURL   string `yaml:"verify_url"`
		MaxAttempts int    `yaml:"max_attempts"` // outbox retries before giving up
	}

	// RealtimeConfig configures the sensor reading feed
	RealtimeConfig struct {
		Broker       string                     `yaml:"broker"`     // memory, redis
		Channel      string                     `yaml:"channel"`    // pub/sub channel for redis
		BridgeKey    string                     `yaml:"bridge_key"` // shared secret for the sensor bridge
		AMQPEnabled  bool                       `yaml:"amqp_enabled"`
		PingInterval time.Duration              `yaml:"ping_interval"`
		AlertWindow  time.Duration              `yaml:"alert_window"`
		Thresholds   map[string]ThresholdConfig `yaml:"thresholds"`
	}

	// ThresholdConfig is the accepted range for one metric
	ThresholdConfig struct {
		Min *float64 `yaml:"min"`
		Max *float64 `yaml:"max"`
	}

	RedisConfig struct {
		Addr     string `yaml:"addr"`
		Username string `yaml:"username"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	}

	RabbitMQConfig struct {
		URL   string `yaml:"url"`
		Queue string `yaml:"queue"`
	}

	SchedulerConfig struct {
		Enabled        bool   `yaml:"enabled"`
		OutboxSpec     string `yaml:"outbox_spec"`
		OTPPurgeSpec   string `yaml:"otp_purge_spec"`
		ReminderSpec   string `yaml:"reminder_spec"`
		OutboxBatch    int    `yaml:"outbox_batch"`
		ReminderLayout string `yaml:"reminder_layout"` // fmt layout taking the event time then title
	}

	RateLimitConfig struct {
		Enabled           bool    `yaml:"enabled"`
		RequestsPerSecond float64 `yaml:"requests_per_second"`
		Burst             int     `yaml:"burst"`
	}

	CORSConfig struct {
		AllowOrigins []string `yaml:"allow_origins"`
	}

	MetricsConfig struct {
		Enabled   bool      `yaml:"enabled"`
		Namespace string    `yaml:"namespace"`
		Buckets   []float64 `yaml:"buckets"`
	}

	// TracingConfig represents OpenTelemetry tracing configuration
	TracingConfig struct {
		Enabled     bool              `yaml:"enabled"`
		ServiceName string            `yaml:"service_name"`
		Endpoint    string            `yaml:"endpoint"` // e.g. localhost:4317 or localhost:4318
		Protocol    string            `yaml:"protocol"` // grpc or http
		Insecure    bool              `yaml:"insecure"`
		SamplerRate float64           `yaml:"sampler_rate"` // 0.0~1.0
		Environment string            `yaml:"environment"`
		Headers     map[string]string `yaml:"headers"`
	}

	// I18nConfig represents the internationalization configuration
	I18nConfig struct {
		DefaultLang string `yaml:"default_lang"`
		Path        string `yaml:"path"` // optional directory overriding the embedded mail translations
	}
)

// ApplyDefaults fills in zero values
func (c *APIServerConfig) ApplyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 5235
	}
	if c.Server.ShutdownTimeout <= 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
	if c.Database.Type == "" {
		c.Database.Type = "sqlite"
	}
	if c.Database.Type == "sqlite" && c.Database.DBName == "" {
		c.Database.DBName = "./data/hydrowatch.db"
	}
	if c.Database.MaxOpenConns <= 0 {
		c.Database.MaxOpenConns = 20
	}
	if c.Database.MaxIdleConns <= 0 {
		c.Database.MaxIdleConns = 5
	}
	if c.Database.ConnMaxLifetime <= 0 {
		c.Database.ConnMaxLifetime = 30 * time.Minute
	}
	if c.JWT.Duration <= 0 {
		c.JWT.Duration = 24 * time.Hour
	}
	if c.Mail.MaxAttempts <= 0 {
		c.Mail.MaxAttempts = 5
	}
	if c.Mail.Port == 0 {
		c.Mail.Port = 587
	}
	if c.Realtime.Broker == "" {
		c.Realtime.Broker = "memory"
	}
	if c.Realtime.Channel == "" {
		c.Realtime.Channel = "hydrowatch:readings"
	}
	if c.Realtime.PingInterval <= 0 {
		c.Realtime.PingInterval = 30 * time.Second
	}
	if c.Realtime.AlertWindow <= 0 {
		c.Realtime.AlertWindow = 15 * time.Minute
	}
	if c.RabbitMQ.Queue == "" {
		c.RabbitMQ.Queue = "sensor.readings"
	}
	if c.Scheduler.OutboxSpec == "" {
		c.Scheduler.OutboxSpec = "@every 1m"
	}
	if c.Scheduler.OTPPurgeSpec == "" {
		c.Scheduler.OTPPurgeSpec = "@every 10m"
	}
	if c.Scheduler.ReminderSpec == "" {
		c.Scheduler.ReminderSpec = "0 7 * * *"
	}
	if c.Scheduler.OutboxBatch <= 0 {
		c.Scheduler.OutboxBatch = 50
	}
	if c.Scheduler.ReminderLayout == "" {
		c.Scheduler.ReminderLayout = "Today at %s: %s"
	}
	if c.RateLimit.RequestsPerSecond <= 0 {
		c.RateLimit.RequestsPerSecond = 5
	}
	if c.RateLimit.Burst <= 0 {
		c.RateLimit.Burst = 10
	}
	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = "hydrowatch"
	}
	if c.Tracing.ServiceName == "" {
		c.Tracing.ServiceName = "hydrowatch-apiserver"
	}
	if c.I18n.DefaultLang == "" {
		c.I18n.DefaultLang = "en"
	}
}

// GetDSN returns the database connection string
func (c *DatabaseConfig) GetDSN() string {
	switch c.Type {
	case "postgres":
		return c.getPostgresDSN()
	case "mysql":
		return c.getMySQLDSN()
	case "sqlite":
		// Ensure the directory for the SQLite database exists.
		// If the directory cannot be created, it's a fatal error.
		if err := os.MkdirAll(filepath.Dir(c.DBName), 0755); err != nil {
			panic(fmt.Errorf("failed to create directory for sqlite database: %w", err))
		}
		return c.DBName // For SQLite, DBName is the file path
	default:
		return ""
	}
}

// getPostgresDSN returns PostgreSQL connection string
func (c *DatabaseConfig) getPostgresDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode)
}

// getMySQLDSN returns MySQL connection string
func (c *DatabaseConfig) getMySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		c.User, c.Password, c.Host, c.Port, c.DBName)
}
