// Package server wires configuration, storage, sessions, mail and the HTTP
// transport into the account server, and runs it until a shutdown signal.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/accountkeeper/internal/logging"
	"github.com/dmitrijs2005/accountkeeper/internal/server/config"
	"github.com/dmitrijs2005/accountkeeper/internal/server/credentials"
	"github.com/dmitrijs2005/accountkeeper/internal/server/notify"
	"github.com/dmitrijs2005/accountkeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/accountkeeper/internal/server/services"
	"github.com/dmitrijs2005/accountkeeper/internal/server/sessions"
	"github.com/dmitrijs2005/accountkeeper/internal/timex"
	"github.com/redis/go-redis/v9"

	transport "github.com/dmitrijs2005/accountkeeper/internal/server/transport/http"
)

const (
	appName         = "Accounts"
	shutdownTimeout = 10 * time.Second
)

// openDB is a seam for tests.
var openDB = func(dsn string) (*sql.DB, error) {
	return sql.Open("pgx", dsn)
}

type App struct {
	config   *config.Config
	logger   logging.Logger
	db       *sql.DB
	redis    *redis.Client
	sessions *sessions.Manager
	service  *services.AccountService
}

func NewApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {
	app := &App{config: c, logger: logger}

	store, err := app.initStore(ctx)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("db init error: %w", err)
	}

	registry, err := app.initRegistry(ctx)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("session registry init error: %w", err)
	}
	app.sessions = sessions.NewManager([]byte(c.SecretKey), registry, timex.UTCNow)

	sender, err := newSender(ctx, c, logger)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("mail init error: %w", err)
	}

	opts := services.OptionsFromConfig(c)
	opts.Revoker = app.sessions
	app.service = services.NewAccountService(store, credentials.NewHasher(credentials.DefaultParams), sender,
		notify.NewMessages(c.PublicBaseURL, appName), logger, opts)

	return app, nil
}

func (app *App) initStore(ctx context.Context) (repomanager.Store, error) {
	if app.config.DatabaseDSN == config.MemoryDSN {
		app.logger.Warn(ctx, "using in-memory account store, data is lost on exit")
		return repomanager.NewMemoryStore(), nil
	}

	db, err := openDB(app.config.DatabaseDSN)
	if err != nil {
		return nil, err
	}
	app.db = db

	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	rm := repomanager.NewPostgresRepositoryManager(db)
	if err := rm.RunMigrations(ctx); err != nil {
		return nil, fmt.Errorf("migrations: %w", err)
	}

	return rm.Store(), nil
}

func (app *App) initRegistry(ctx context.Context) (sessions.Registry, error) {
	if app.config.RedisURL == "" {
		return sessions.NewMemoryRegistry(timex.UTCNow), nil
	}

	client, err := sessions.ConnectRedis(ctx, app.config.RedisURL)
	if err != nil {
		return nil, err
	}
	app.redis = client

	return sessions.NewRedisRegistry(client, app.config.RememberMeTTL), nil
}

func newSender(ctx context.Context, c *config.Config, logger logging.Logger) (notify.Sender, error) {
	switch c.MailTransport {
	case config.MailTransportSMTP:
		return notify.NewSMTPSender(notify.SMTPConfig{
			Host:     c.SMTPHost,
			Port:     c.SMTPPort,
			User:     c.SMTPUser,
			Password: c.SMTPPassword,
			From:     c.MailFrom,
		}, logger), nil
	case config.MailTransportSES:
		return notify.NewSESSender(ctx, notify.SESConfig{
			Region:          c.SESRegion,
			Endpoint:        c.SESEndpoint,
			AccessKeyID:     c.SESAccessKeyID,
			SecretAccessKey: c.SESSecretAccessKey,
			From:            c.MailFrom,
		}, logger)
	case config.MailTransportLog, "":
		return notify.NewLogSender(logger), nil
	default:
		return nil, fmt.Errorf("unknown mail transport %q", c.MailTransport)
	}
}

// Service exposes the lifecycle service for in-process callers such as the
// admin console.
func (app *App) Service() *services.AccountService {
	return app.service
}

// Close releases the database and Redis connections.
func (app *App) Close() error {
	var errs []error
	if app.db != nil {
		errs = append(errs, app.db.Close())
	}
	if app.redis != nil {
		errs = append(errs, app.redis.Close())
	}
	return errors.Join(errs...)
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) newHTTPServer() *http.Server {
	h := transport.NewHandler(app.service, app.sessions, app.logger,
		strings.HasPrefix(app.config.PublicBaseURL, "https://"))

	return &http.Server{
		Addr:              app.config.EndpointAddrHTTP,
		Handler:           transport.NewRouter(h, app.logger),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc, srv *http.Server) {
	app.logger.Info(ctx, "http server listening", "addr", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		app.logger.Error(ctx, "http server failed", "error", err)
		cancelFunc()
	}
}

// Run serves HTTP until ctx is cancelled or SIGINT/SIGTERM arrives, then
// shuts down gracefully and closes the backing connections.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	srv := app.newHTTPServer()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc, srv)
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		app.logger.Error(ctx, "http shutdown failed", "error", err)
	}
	wg.Wait()

	if err := app.Close(); err != nil {
		app.logger.Error(ctx, "close failed", "error", err)
	}
	app.logger.Info(ctx, "app stopped")
}
