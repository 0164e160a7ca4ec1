package config

import (
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"
)

// Location points at the configuration key a problem was found under
type Location struct {
	Key string
}

// ValidationError represents a configuration validation error
type ValidationError struct {
	Message   string
	Locations []Location
}

func (e *ValidationError) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Message)
	sb.WriteString("\n\n")
	for _, loc := range e.Locations {
		sb.WriteString("--> ")
		sb.WriteString(loc.Key)
		sb.WriteString("\n")
	}
	return sb.String()
}

func invalid(key, format string, args ...any) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...), Locations: []Location{{Key: key}}}
}

// Validate checks an API server configuration after defaults were applied
func (c *APIServerConfig) Validate() error {
	errs := validateAPIServer(c)
	if len(errs) == 0 {
		return nil
	}
	var sb strings.Builder
	for i, err := range errs {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(err.Error())
	}
	return fmt.Errorf("%s", sb.String())
}

func validateAPIServer(c *APIServerConfig) []*ValidationError {
	var errs []*ValidationError

	switch c.Database.Type {
	case "sqlite", "postgres", "mysql":
	default:
		errs = append(errs, invalid("database.type", "unsupported database type %q", c.Database.Type))
	}
	if len(c.JWT.SecretKey) < 32 {
		errs = append(errs, invalid("jwt.secret_key", "jwt secret key must be at least 32 characters"))
	}

	sa := c.SuperAdmin
	if set := sa.Username != "" || sa.Email != "" || sa.Password != ""; set && (sa.Username == "" || sa.Email == "" || sa.Password == "") {
		errs = append(errs, invalid("super_admin", "super admin needs username, email and password together"))
	}
	if sa.Password != "" && len(sa.Password) < 8 {
		errs = append(errs, invalid("super_admin.password", "super admin password must be at least 8 characters"))
	}

	if c.Mail.Enabled {
		if c.Mail.Host == "" {
			errs = append(errs, invalid("mail.host", "mail host is required when mail is enabled"))
		}
		if c.Mail.From == "" {
			errs = append(errs, invalid("mail.from", "mail from address is required when mail is enabled"))
		}
	}
	switch strings.ToLower(c.Mail.TLS) {
	case "", "mandatory", "opportunistic", "none":
	default:
		errs = append(errs, invalid("mail.tls", "unknown tls policy %q", c.Mail.TLS))
	}

	switch c.Realtime.Broker {
	case "memory":
	case "redis":
		if c.Redis.Addr == "" {
			errs = append(errs, invalid("redis.addr", "redis address is required by the redis broker"))
		}
	default:
		errs = append(errs, invalid("realtime.broker", "unsupported realtime broker %q", c.Realtime.Broker))
	}
	if c.Realtime.AMQPEnabled && c.RabbitMQ.URL == "" {
		errs = append(errs, invalid("rabbitmq.url", "rabbitmq url is required when amqp is enabled"))
	}
	for metric, th := range c.Realtime.Thresholds {
		if th.Min != nil && th.Max != nil && *th.Min > *th.Max {
			errs = append(errs, invalid("realtime.thresholds."+metric, "min %v is above max %v", *th.Min, *th.Max))
		}
	}

	if c.Scheduler.Enabled {
		parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
		for key, spec := range map[string]string{
			"scheduler.outbox_spec":    c.Scheduler.OutboxSpec,
			"scheduler.otp_purge_spec": c.Scheduler.OTPPurgeSpec,
			"scheduler.reminder_spec":  c.Scheduler.ReminderSpec,
		} {
			if _, err := parser.Parse(spec); err != nil {
				errs = append(errs, invalid(key, "invalid cron spec %q: %v", spec, err))
			}
		}
	}

	if c.Tracing.SamplerRate < 0 || c.Tracing.SamplerRate > 1 {
		errs = append(errs, invalid("tracing.sampler_rate", "sampler rate must be between 0 and 1"))
	}
	return errs
}
