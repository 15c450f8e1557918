package config

import (
	"flag"
	"os"

	"github.com/dmitrijs2005/accountkeeper/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string     HTTP bind address (e.g., ":8080")
//	-d string     PostgreSQL DSN, or memory://
//	-r string     Redis URL for the session registry
//	-s string     session JWT HMAC secret
//	-b string     public base URL used in mailed links
//	-m string     mail transport: smtp, ses, log
//	-l string     log level
//	-vttl dur     verification token TTL (e.g. 24h)
//	-rttl dur     reset token TTL (e.g. 1h)
//
// Args are filtered with flagx.FilterArgs first so -c/-config and -env,
// handled elsewhere, do not trip this flag set.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d", "-r", "-s", "-b", "-m", "-l", "-vttl", "-rttl"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.RedisURL, "r", config.RedisURL, "redis URL")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")
	fs.StringVar(&config.PublicBaseURL, "b", config.PublicBaseURL, "public base URL")
	fs.StringVar(&config.MailTransport, "m", config.MailTransport, "mail transport (smtp, ses, log)")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")
	fs.DurationVar(&config.VerificationTokenTTL, "vttl", config.VerificationTokenTTL, "verification token validity")
	fs.DurationVar(&config.ResetTokenTTL, "rttl", config.ResetTokenTTL, "reset token validity")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}
