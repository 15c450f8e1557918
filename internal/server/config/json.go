package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmitrijs2005/accountkeeper/internal/flagx"
	"github.com/dmitrijs2005/accountkeeper/internal/timex"
)

// JsonConfig is the on-disk shape of the JSON config file. Durations accept
// both "24h"-style strings and integer nanoseconds. Absent keys leave the
// corresponding Config field untouched.
type JsonConfig struct {
	EndpointAddrHTTP     *string         `json:"endpoint_addr_http"`
	DatabaseDSN          *string         `json:"database_dsn"`
	RedisURL             *string         `json:"redis_url"`
	SecretKey            *string         `json:"secret_key"`
	PublicBaseURL        *string         `json:"public_base_url"`
	VerificationTokenTTL *timex.Duration `json:"verification_token_ttl"`
	ResetTokenTTL        *timex.Duration `json:"reset_token_ttl"`
	SessionTTL           *timex.Duration `json:"session_ttl"`
	RememberMeTTL        *timex.Duration `json:"remember_me_ttl"`
	MailTransport        *string         `json:"mail_transport"`
	MailFrom             *string         `json:"mail_from"`
	SMTPHost             *string         `json:"smtp_host"`
	SMTPPort             *int            `json:"smtp_port"`
	SMTPUser             *string         `json:"smtp_user"`
	SMTPPassword         *string         `json:"smtp_password"`
	SESRegion            *string         `json:"ses_region"`
	SESEndpoint          *string         `json:"ses_endpoint"`
	SESAccessKeyID       *string         `json:"ses_access_key_id"`
	SESSecretAccessKey   *string         `json:"ses_secret_access_key"`
	LogLevel             *string         `json:"log_level"`
	LogFormat            *string         `json:"log_format"`
}

// parseJson overlays values from the JSON file named by -c/-config onto
// config. Without the flag nothing is loaded. An unreadable file or invalid
// JSON panics, as the server cannot start with a half-applied config.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	c.apply(config)
}

func (c *JsonConfig) apply(config *Config) {
	copyIf(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	copyIf(&config.DatabaseDSN, c.DatabaseDSN)
	copyIf(&config.RedisURL, c.RedisURL)
	copyIf(&config.SecretKey, c.SecretKey)
	copyIf(&config.PublicBaseURL, c.PublicBaseURL)
	copyDuration(&config.VerificationTokenTTL, c.VerificationTokenTTL)
	copyDuration(&config.ResetTokenTTL, c.ResetTokenTTL)
	copyDuration(&config.SessionTTL, c.SessionTTL)
	copyDuration(&config.RememberMeTTL, c.RememberMeTTL)
	copyIf(&config.MailTransport, c.MailTransport)
	copyIf(&config.MailFrom, c.MailFrom)
	copyIf(&config.SMTPHost, c.SMTPHost)
	copyIf(&config.SMTPPort, c.SMTPPort)
	copyIf(&config.SMTPUser, c.SMTPUser)
	copyIf(&config.SMTPPassword, c.SMTPPassword)
	copyIf(&config.SESRegion, c.SESRegion)
	copyIf(&config.SESEndpoint, c.SESEndpoint)
	copyIf(&config.SESAccessKeyID, c.SESAccessKeyID)
	copyIf(&config.SESSecretAccessKey, c.SESSecretAccessKey)
	copyIf(&config.LogLevel, c.LogLevel)
	copyIf(&config.LogFormat, c.LogFormat)
}

func copyIf[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

func copyDuration(dst *time.Duration, src *timex.Duration) {
	if src != nil {
		*dst = src.Duration
	}
}
