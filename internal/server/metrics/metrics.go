// Package metrics declares the Prometheus collectors of the account server.
//
// Every collector carries a "service" label. The exported vectors have it
// curried already (DefaultService until MustRegister names the service), so
// callers pass only the remaining labels.
package metrics

import "github.com/prometheus/client_golang/prometheus"

const DefaultService = "accountkeeper"

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"service", "method", "path", "status"},
	)

	httpRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)

	registrationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "account_registrations_total",
			Help: "Total number of registration attempts.",
		},
		[]string{"service", "result"},
	)

	loginsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "account_logins_total",
			Help: "Total number of login attempts.",
		},
		[]string{"service", "result"},
	)

	tokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "account_tokens_total",
			Help: "Verification and reset tokens issued, consumed or rejected.",
		},
		[]string{"service", "kind", "result"},
	)

	moderatedAccountsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "account_moderated_total",
			Help: "Accounts affected by administrative actions.",
		},
		[]string{"service", "action"},
	)

	mailsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "account_mails_total",
			Help: "Account mails handed to the sender.",
		},
		[]string{"service", "kind", "result"},
	)
)

// Curried views used by the rest of the server.
var (
	HTTPRequestsTotal          *prometheus.CounterVec
	HTTPRequestDurationSeconds *prometheus.HistogramVec
	RegistrationsTotal         *prometheus.CounterVec
	LoginsTotal                *prometheus.CounterVec
	TokensTotal                *prometheus.CounterVec
	ModeratedAccountsTotal     *prometheus.CounterVec
	MailsTotal                 *prometheus.CounterVec
)

// Label values.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"

	TokenVerification = "verification"
	TokenReset        = "reset"

	TokenIssued   = "issued"
	TokenConsumed = "consumed"
	TokenRejected = "rejected"

	MailVerification = "verification"
	MailReset        = "reset"
	MailSent         = "sent"
	MailFailed       = "failed"

	ActionBlock           = "block"
	ActionUnblock         = "unblock"
	ActionDelete          = "delete"
	ActionPurgeUnverified = "purge_unverified"
)

func init() {
	curry(DefaultService)
}

func curry(serviceName string) {
	l := prometheus.Labels{"service": serviceName}
	HTTPRequestsTotal = httpRequestsTotal.MustCurryWith(l)
	HTTPRequestDurationSeconds = httpRequestDurationSeconds.MustCurryWith(l).(*prometheus.HistogramVec)
	RegistrationsTotal = registrationsTotal.MustCurryWith(l)
	LoginsTotal = loginsTotal.MustCurryWith(l)
	TokensTotal = tokensTotal.MustCurryWith(l)
	ModeratedAccountsTotal = moderatedAccountsTotal.MustCurryWith(l)
	MailsTotal = mailsTotal.MustCurryWith(l)
}

// MustRegister labels every collector with serviceName and registers them
// with the default Prometheus registry. Call it once at startup.
func MustRegister(serviceName string) {
	curry(serviceName)

	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDurationSeconds,
		registrationsTotal,
		loginsTotal,
		tokensTotal,
		moderatedAccountsTotal,
		mailsTotal,
	)
}
