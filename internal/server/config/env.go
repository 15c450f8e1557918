package config

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/dmitrijs2005/accountkeeper/internal/flagx"
	"github.com/joho/godotenv"
)

// Environment variable names read by parseEnv.
const (
	envHTTPAddr        = "ACCOUNTS_HTTP_ADDR"
	envDatabaseDSN     = "ACCOUNTS_DATABASE_DSN"
	envRedisURL        = "ACCOUNTS_REDIS_URL"
	envSecretKey       = "ACCOUNTS_SECRET_KEY"
	envPublicBaseURL   = "ACCOUNTS_PUBLIC_BASE_URL"
	envVerificationTTL = "ACCOUNTS_VERIFICATION_TTL"
	envResetTTL        = "ACCOUNTS_RESET_TTL"
	envSessionTTL      = "ACCOUNTS_SESSION_TTL"
	envRememberMeTTL   = "ACCOUNTS_REMEMBER_ME_TTL"
	envMailTransport   = "ACCOUNTS_MAIL_TRANSPORT"
	envMailFrom        = "ACCOUNTS_MAIL_FROM"
	envSMTPHost        = "ACCOUNTS_SMTP_HOST"
	envSMTPPort        = "ACCOUNTS_SMTP_PORT"
	envSMTPUser        = "ACCOUNTS_SMTP_USER"
	envSMTPPassword    = "ACCOUNTS_SMTP_PASSWORD"
	envSESRegion       = "ACCOUNTS_SES_REGION"
	envSESEndpoint     = "ACCOUNTS_SES_ENDPOINT"
	envSESAccessKey    = "ACCOUNTS_SES_ACCESS_KEY_ID"
	envSESSecretKey    = "ACCOUNTS_SES_SECRET_ACCESS_KEY"
	envLogLevel        = "ACCOUNTS_LOG_LEVEL"
	envLogFormat       = "ACCOUNTS_LOG_FORMAT"
)

// parseEnv loads a dotenv file (the -env flag, or ./.env when present) into
// the process environment without overriding variables that are already
// set, then copies every ACCOUNTS_* variable that is present into config.
// Malformed numbers and durations are logged and skipped.
func parseEnv(config *Config) {
	loadDotEnv(flagx.EnvFileFlags())

	setString(&config.EndpointAddrHTTP, envHTTPAddr)
	setString(&config.DatabaseDSN, envDatabaseDSN)
	setString(&config.RedisURL, envRedisURL)
	setString(&config.SecretKey, envSecretKey)
	setString(&config.PublicBaseURL, envPublicBaseURL)
	setDuration(&config.VerificationTokenTTL, envVerificationTTL)
	setDuration(&config.ResetTokenTTL, envResetTTL)
	setDuration(&config.SessionTTL, envSessionTTL)
	setDuration(&config.RememberMeTTL, envRememberMeTTL)
	setString(&config.MailTransport, envMailTransport)
	setString(&config.MailFrom, envMailFrom)
	setString(&config.SMTPHost, envSMTPHost)
	setInt(&config.SMTPPort, envSMTPPort)
	setString(&config.SMTPUser, envSMTPUser)
	setString(&config.SMTPPassword, envSMTPPassword)
	setString(&config.SESRegion, envSESRegion)
	setString(&config.SESEndpoint, envSESEndpoint)
	setString(&config.SESAccessKeyID, envSESAccessKey)
	setString(&config.SESSecretAccessKey, envSESSecretKey)
	setString(&config.LogLevel, envLogLevel)
	setString(&config.LogFormat, envLogFormat)
}

func loadDotEnv(path string) {
	if path == "" {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			slog.Warn("cannot read .env", "error", err)
		}
		return
	}
	if err := godotenv.Load(path); err != nil {
		panic(err)
	}
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		slog.Warn("invalid integer, keeping previous value", "key", key, "value", v)
		return
	}
	*dst = n
}

func setDuration(dst *time.Duration, key string) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		slog.Warn("invalid duration, keeping previous value", "key", key, "value", v)
		return
	}
	*dst = d
}
