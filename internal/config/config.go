// Package config содержит логику чтения конфигурации сервиса Roomie.
package config

import (
	"flag"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config содержит параметры конфигурации сервиса Roomie.
type Config struct {
	RunAddress     string        `env:"RUN_ADDRESS"`
	DatabaseURI    string        `env:"DATABASE_URI"`
	TokenSecret    string        `env:"TOKEN_SECRET"`
	TokenTTL       time.Duration `env:"TOKEN_TTL"`
	ClientURL      string        `env:"CLIENT_URL"`
	AllowedOrigins []string      `env:"ALLOWED_ORIGINS" envSeparator:","`
	InviteTTL      time.Duration `env:"INVITE_TTL"`
	MailAPIAddress string        `env:"MAIL_API_ADDRESS"`
	MailAPIKey     string        `env:"MAIL_API_KEY"`
	MailFrom       string        `env:"MAIL_FROM"`
	RateLimitRPS   float64       `env:"RATE_LIMIT_RPS"`
	RateLimitBurst int           `env:"RATE_LIMIT_BURST"`
	SweepInterval  time.Duration `env:"SWEEP_INTERVAL"`
}

// Значения по умолчанию.
const (
	DefaultRunAddress     = "localhost:8080"
	DefaultTokenTTL       = 6 * time.Hour
	DefaultClientURL      = "http://localhost:5173"
	DefaultInviteTTL      = 48 * time.Hour
	DefaultMailFrom       = "Roomie <no-reply@roomie.local>"
	DefaultRateLimitRPS   = 5
	DefaultRateLimitBurst = 10
	DefaultSweepInterval  = 10 * time.Minute
)

// Parse считывает конфигурацию из флагов командной строки и переменных окружения.
// Переменные окружения имеют приоритет над флагами.
func Parse() (*Config, error) {
	cfg := &Config{}

	flag.StringVar(&cfg.RunAddress, "a", DefaultRunAddress, "address and port for HTTP server")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database URI")
	flag.StringVar(&cfg.TokenSecret, "s", "", "JWT signing secret")
	flag.DurationVar(&cfg.TokenTTL, "token-ttl", DefaultTokenTTL, "JWT lifetime")
	flag.StringVar(&cfg.ClientURL, "client-url", DefaultClientURL, "frontend URL used in invitation links")
	flag.Func("allowed-origins", "comma-separated list of extra CORS origins", func(s string) error {
		cfg.AllowedOrigins = splitList(s)
		return nil
	})
	flag.DurationVar(&cfg.InviteTTL, "invite-ttl", DefaultInviteTTL, "invitation lifetime")
	flag.StringVar(&cfg.MailAPIAddress, "m", "", "mail API address")
	flag.StringVar(&cfg.MailFrom, "mail-from", DefaultMailFrom, "sender address for outgoing mail")
	flag.Float64Var(&cfg.RateLimitRPS, "rate-limit-rps", DefaultRateLimitRPS, "auth requests per second per client")
	flag.IntVar(&cfg.RateLimitBurst, "rate-limit-burst", DefaultRateLimitBurst, "auth request burst per client")
	flag.DurationVar(&cfg.SweepInterval, "sweep-interval", DefaultSweepInterval, "interval between expired invitation sweeps")

	flag.Parse()

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if cfg.RunAddress == "" {
		cfg.RunAddress = DefaultRunAddress
	}
	if cfg.ClientURL == "" {
		cfg.ClientURL = DefaultClientURL
	}
	cfg.ClientURL = strings.TrimRight(cfg.ClientURL, "/")

	if cfg.TokenTTL <= 0 || cfg.InviteTTL <= 0 || cfg.SweepInterval <= 0 {
		return nil, fmt.Errorf("durations must be positive: token ttl %s, invite ttl %s, sweep interval %s",
			cfg.TokenTTL, cfg.InviteTTL, cfg.SweepInterval)
	}

	return cfg, nil
}

// Origins возвращает список разрешённых CORS-источников. CLIENT_URL разрешён всегда.
func (c *Config) Origins() []string {
	origins := []string{c.ClientURL}
	for _, o := range c.AllowedOrigins {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		if o != "" && !slices.Contains(origins, o) {
			origins = append(origins, o)
		}
	}
	return origins
}

func splitList(s string) []string {
	var res []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			res = append(res, part)
		}
	}
	return res
}
