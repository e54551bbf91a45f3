package main

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"storefront/internal/logger"
)

const (
	defaultListenAddr   = "localhost:8000"
	defaultLoggingLevel = logger.LevelInfo
	defaultEnvironment  = logger.EnvProduction
	defaultJWTIssuer    = "storefront"
)

type Config struct {
	// Default logging level
	LogLevel string

	// Address on which the storefront service will be run
	ListenAddr string

	// Database to connect to
	DatabaseDSN string

	// Redis address for the category cache and the rate limiter
	// If empty both features are disabled and the service runs on the database alone
	RedisAddr string

	// Mail gateway address and the recipient of catalog notifications
	// If either is empty notifications are disabled
	MailGatewayAddr string
	MailNotifyTo    string

	// Secret key
	// Some internal parts (like signing JWT tokens) uses symmetric encryption, so this key is used for that purpose
	SecretKey string

	// Issuer and audience claims for issued access tokens
	JWTIssuer   string
	JWTAudience string

	// Token lifetimes. Zero means the service defaults
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	// Failed login attempts before the account locks and how long the lock holds
	LockoutMaxFailures int
	LockoutDuration    time.Duration

	// Requests per window allowed on credential endpoints, per client address
	RateLimit  int
	RateWindow time.Duration

	// Environment
	Environment string
}

func NewConfig() *Config {
	return &Config{
		LogLevel:    defaultLoggingLevel,
		ListenAddr:  defaultListenAddr,
		JWTIssuer:   defaultJWTIssuer,
		Environment: defaultEnvironment,
	}
}

// Load variable from '.env' file (should be located at working directory)
func (c *Config) LoadDotEnv(getwd func() (string, error)) error {
	wd, err := getwd()
	if err != nil {
		return err
	}

	envMap, err := godotenv.Read(filepath.Join(wd, ".env"))

	switch {
	case err == nil:
		c.LoadEnv(func(key string) string {
			return envMap[key]
		})
		return nil
	case errors.Is(err, os.ErrNotExist):
		return nil
	default:
		return err
	}
}

func (c *Config) LoadEnv(getenv func(string) string) {
	// Set option to value if it not empty
	setString := func(o *string) func(value string) {
		return func(value string) {
			if value != "" {
				*o = value
			}
		}
	}
	setInt := func(o *int) func(value string) {
		return func(value string) {
			if v, err := strconv.Atoi(value); err == nil {
				*o = v
			}
		}
	}
	setDuration := func(o *time.Duration) func(value string) {
		return func(value string) {
			if v, err := time.ParseDuration(value); err == nil {
				*o = v
			}
		}
	}

	envMap := map[string]func(string){
		"RUN_ADDRESS":          setString(&c.ListenAddr),
		"DATABASE_URI":         setString(&c.DatabaseDSN),
		"REDIS_ADDR":           setString(&c.RedisAddr),
		"MAIL_GATEWAY_ADDRESS": setString(&c.MailGatewayAddr),
		"MAIL_NOTIFY_TO":       setString(&c.MailNotifyTo),
		"SECRET_KEY":           setString(&c.SecretKey),
		"JWT_ISSUER":           setString(&c.JWTIssuer),
		"JWT_AUDIENCE":         setString(&c.JWTAudience),
		"ACCESS_TOKEN_TTL":     setDuration(&c.AccessTokenTTL),
		"REFRESH_TOKEN_TTL":    setDuration(&c.RefreshTokenTTL),
		"LOCKOUT_MAX_FAILURES": setInt(&c.LockoutMaxFailures),
		"LOCKOUT_DURATION":     setDuration(&c.LockoutDuration),
		"RATE_LIMIT":           setInt(&c.RateLimit),
		"RATE_WINDOW":          setDuration(&c.RateWindow),
		"LOG_LEVEL":            setString(&c.LogLevel),
		"ENVIRONMENT":          setString(&c.Environment),
	}

	for key, parseFn := range envMap {
		parseFn(getenv(key))
	}
}

func (c *Config) ParseFlags(args []string) error {
	fs := pflag.NewFlagSet("storefront", pflag.ContinueOnError)

	fs.StringVarP(&c.ListenAddr, "address", "a", c.ListenAddr, "Server listen address")
	fs.StringVarP(&c.DatabaseDSN, "database", "d", c.DatabaseDSN, "Database connection string")
	fs.StringVar(&c.RedisAddr, "redis", c.RedisAddr, "Redis address (empty disables cache and rate limiting)")
	fs.StringVar(&c.MailGatewayAddr, "mail-gateway", c.MailGatewayAddr, "Mail gateway address")
	fs.StringVar(&c.MailNotifyTo, "mail-notify-to", c.MailNotifyTo, "Recipient of catalog notifications")
	fs.StringVarP(&c.SecretKey, "secret-key", "s", c.SecretKey, "Secret key")
	fs.StringVar(&c.JWTIssuer, "jwt-issuer", c.JWTIssuer, "Issuer claim for access tokens")
	fs.StringVar(&c.JWTAudience, "jwt-audience", c.JWTAudience, "Audience claim for access tokens")
	fs.DurationVar(&c.AccessTokenTTL, "access-ttl", c.AccessTokenTTL, "Access token lifetime")
	fs.DurationVar(&c.RefreshTokenTTL, "refresh-ttl", c.RefreshTokenTTL, "Refresh token lifetime")
	fs.IntVar(&c.LockoutMaxFailures, "lockout-max-failures", c.LockoutMaxFailures, "Failed logins before lockout")
	fs.DurationVar(&c.LockoutDuration, "lockout-duration", c.LockoutDuration, "How long a locked account stays locked")
	fs.IntVar(&c.RateLimit, "rate-limit", c.RateLimit, "Requests per window on credential endpoints")
	fs.DurationVar(&c.RateWindow, "rate-window", c.RateWindow, "Rate limiting window")
	fs.StringVarP(&c.LogLevel, "log-level", "l", c.LogLevel, "Logging level (debug, info, warn, error)")
	fs.StringVarP(&c.Environment, "environment", "e", c.Environment, "Environment (dev, prod)")

	return fs.Parse(args)
}
