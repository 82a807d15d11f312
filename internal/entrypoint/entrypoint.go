package entrypoint

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/mrlokans/librarydesk/internal/attendance"
	"github.com/mrlokans/librarydesk/internal/audit"
	"github.com/mrlokans/librarydesk/internal/auth"
	"github.com/mrlokans/librarydesk/internal/authz"
	"github.com/mrlokans/librarydesk/internal/catalog"
	"github.com/mrlokans/librarydesk/internal/circulation"
	"github.com/mrlokans/librarydesk/internal/config"
	"github.com/mrlokans/librarydesk/internal/covers"
	"github.com/mrlokans/librarydesk/internal/database"
	"github.com/mrlokans/librarydesk/internal/database/activity"
	attendancedb "github.com/mrlokans/librarydesk/internal/database/attendance"
	"github.com/mrlokans/librarydesk/internal/database/books"
	"github.com/mrlokans/librarydesk/internal/database/categories"
	circulationdb "github.com/mrlokans/librarydesk/internal/database/circulation"
	"github.com/mrlokans/librarydesk/internal/database/libraries"
	membersdb "github.com/mrlokans/librarydesk/internal/database/members"
	"github.com/mrlokans/librarydesk/internal/database/messages"
	"github.com/mrlokans/librarydesk/internal/database/notifications"
	http_controllers "github.com/mrlokans/librarydesk/internal/http"
	"github.com/mrlokans/librarydesk/internal/logging"
	"github.com/mrlokans/librarydesk/internal/mail"
	"github.com/mrlokans/librarydesk/internal/members"
	"github.com/mrlokans/librarydesk/internal/notify"
	"github.com/mrlokans/librarydesk/internal/reservations"
	"github.com/mrlokans/librarydesk/internal/scheduler"
	"github.com/mrlokans/librarydesk/internal/subscription"
	"github.com/mrlokans/librarydesk/internal/tasks"
)

// ShutdownFunc is called during graceful shutdown to clean up resources.
type ShutdownFunc func(ctx context.Context)

// Serve runs the HTTP server until SIGINT or SIGTERM, then shuts it down
// within the configured timeout.
func Serve(router http.Handler, cfg *config.Config, onShutdown ShutdownFunc) error {
	log := logging.WithComponent("server")
	timeout := time.Duration(cfg.Global.ShutdownTimeoutInSeconds) * time.Second

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err, ok := <-serveErr:
		if ok {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case sig := <-quit:
		log.Info().Str("signal", sig.String()).Dur("timeout", timeout).Msg("Shutting down server")
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server shutdown failed")
	}

	// Background workers stop after in-flight requests have drained.
	if onShutdown != nil {
		onShutdown(ctx)
	}

	log.Info().Msg("Server exiting")
	return nil
}

// Services groups the domain services built on top of one database.
type Services struct {
	Repos struct {
		Libraries *libraries.Repository
		Books     *books.Repository
		Users     *membersdb.Repository
	}
	Auditor       *audit.Service
	Notify        *notify.Service
	Subscriptions *subscription.Manager
	Catalog       *catalog.Service
	Members       *members.Service
	Circulation   *circulation.Service
	Reservations  *reservations.Service
	Attendance    *attendance.Service
	Email         *mail.EmailService
	Covers        *covers.Store
	SMTP          *mail.SMTPSender
}

// NewServices wires repositories and services. Mail goes out over SMTP
// when enabled and to the log otherwise.
func NewServices(db *database.Database, cfg *config.Config) (*Services, error) {
	s := &Services{}
	s.Repos.Libraries = libraries.NewRepository(db.DB)
	s.Repos.Books = books.NewRepository(db.DB)
	s.Repos.Users = membersdb.NewRepository(db.DB)
	loans := circulationdb.NewRepository(db.DB)
	visits := attendancedb.NewRepository(db.DB)

	var sender mail.Sender = mail.LogSender{}
	if cfg.Mail.Enabled {
		s.SMTP = mail.NewSMTPSender(mail.SMTPConfig{
			Host:     cfg.Mail.Host,
			Port:     cfg.Mail.Port,
			Username: cfg.Mail.Username,
			Password: cfg.Mail.Password,
			From:     cfg.Mail.From,
		})
		sender = s.SMTP
	}
	s.Email = mail.NewEmailService(sender, cfg.HTTP.BaseURL)

	store, err := covers.NewStore(cfg.Uploads.Dir, cfg.Uploads.MaxCoverSize)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cover store: %w", err)
	}
	s.Covers = store

	s.Auditor = audit.NewService(activity.NewRepository(db.DB))
	s.Notify = notify.NewService(messages.NewRepository(db.DB), notifications.NewRepository(db.DB), s.Repos.Users)
	s.Subscriptions = subscription.NewManager(s.Repos.Libraries, s.Repos.Books)
	s.Catalog = catalog.NewService(s.Repos.Books, categories.NewRepository(db.DB), s.Subscriptions, s.Covers, s.Auditor)
	s.Members = members.NewService(s.Repos.Users, loans, visits, s.Repos.Libraries, s.Email, s.Auditor, cfg.Auth.SetupTokenTTL)
	s.Circulation = circulation.NewService(loans, s.Repos.Users, s.Repos.Libraries, s.Notify, s.Auditor, s.Email,
		circulation.Config{
			LoanPeriodDays: cfg.Circulation.LoanPeriodDays,
			RenewalDays:    cfg.Circulation.RenewalDays,
		})
	s.Reservations = reservations.NewService(loans, s.Notify, s.Auditor)
	s.Attendance = attendance.NewService(visits, s.Repos.Users, s.Auditor)
	return s, nil
}

// Run starts the librarian desk and blocks until shutdown.
func Run(cfg *config.Config, version string) error {
	logging.Init(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
	log := logging.WithComponent("entrypoint")
	log.Info().Str("version", version).Msg("Starting librarydesk")

	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewDatabase(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing database")
		}
	}()

	svc, err := NewServices(db, cfg)
	if err != nil {
		return err
	}

	// Task queue
	var taskClient *tasks.Client
	var taskCtxCancel context.CancelFunc
	if cfg.Tasks.Enabled {
		taskClient, err = tasks.NewClient(cfg.Database.Path, tasks.Config{
			Workers:         cfg.Tasks.Workers,
			ReleaseAfter:    cfg.Tasks.ReleaseAfter,
			CleanupInterval: cfg.Tasks.CleanupInterval,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize task queue: %w", err)
		}
		defer func() {
			if err := taskClient.Close(); err != nil {
				log.Error().Err(err).Msg("Error closing task client")
			}
		}()

		taskClient.Register(
			tasks.NewSendEmailQueue(svc.Email),
			tasks.NewOverdueSweepQueue(svc.Circulation),
			tasks.NewCleanupActivityQueue(svc.Auditor),
		)
		svc.Email.UseQueue(taskClient)

		var taskCtx context.Context
		taskCtx, taskCtxCancel = context.WithCancel(context.Background())
		go taskClient.Start(taskCtx)
	} else {
		log.Warn().Msg("Task queue disabled, emails are sent inline")
	}

	// Periodic jobs
	var sched *scheduler.Scheduler
	if cfg.Scheduler.Enabled {
		sched, err = newScheduler(cfg, svc, taskClient)
		if err != nil {
			return err
		}
		sched.Start(context.Background())
	}

	// Authentication
	authService := auth.NewService(svc.Repos.Users, cfg.Auth)
	sqlDB, err := db.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get SQL DB for sessions: %w", err)
	}
	sessionManager, err := auth.NewSessionManager(sqlDB, cfg.Auth)
	if err != nil {
		return fmt.Errorf("failed to initialize session manager: %w", err)
	}
	enforcer, err := authz.NewEnforcer(cfg.Auth.PolicyPath)
	if err != nil {
		return err
	}
	csrfSecret, err := csrfSecret(cfg.Auth.SessionSecret)
	if err != nil {
		return err
	}

	router, err := http_controllers.NewRouter(http_controllers.RouterConfig{
		Database:       db,
		Auditor:        svc.Auditor,
		Version:        version,
		AuthService:    authService,
		SessionManager: sessionManager,
		Authorizer:     enforcer,
		AuthConfig:     cfg.Auth,
		CSRFSecret:     csrfSecret,
		Catalog:        svc.Catalog,
		Covers:         svc.Covers,
		Members:        svc.Members,
		Circulation:    svc.Circulation,
		Reservations:   svc.Reservations,
		Notify:         svc.Notify,
		Attendance:     svc.Attendance,
		Subscriptions:  svc.Subscriptions,
		TemplatesPath:  cfg.UI.TemplatesPath,
		StaticPath:     cfg.UI.StaticPath,
		MaxUploadSize:  cfg.Uploads.MaxCoverSize,
		MetricsEnabled: cfg.Metrics.Enabled,
		HealthChecks:   healthChecks(svc),
	})
	if err != nil {
		return fmt.Errorf("failed to build router: %w", err)
	}

	onShutdown := func(ctx context.Context) {
		router.Stop()
		if sched != nil {
			sched.Stop()
		}
		if taskClient != nil && taskCtxCancel != nil {
			taskClient.Stop(ctx)
			taskCtxCancel()
		}
		svc.Auditor.Wait()
	}

	return Serve(router, cfg, onShutdown)
}

// newScheduler registers the overdue sweep and activity cleanup. With a task
// queue the jobs only enqueue work, so retries and timeouts are the queue's.
func newScheduler(cfg *config.Config, svc *Services, taskClient *tasks.Client) (*scheduler.Scheduler, error) {
	sched := scheduler.New()

	sweep := func(ctx context.Context, now time.Time) error {
		if taskClient != nil {
			return taskClient.EnqueueOverdueSweep(ctx, now)
		}
		_, err := svc.Circulation.SweepOverdue(ctx, now)
		return err
	}
	if err := sched.Add(scheduler.Job{
		Name:     "overdue-sweep",
		Schedule: cfg.Circulation.OverdueSchedule,
		Timeout:  10 * time.Minute,
		Run:      sweep,
	}); err != nil {
		return nil, fmt.Errorf("overdue sweep: %w", err)
	}

	retention := cfg.Activity.RetentionDays
	if retention > 0 {
		cleanup := func(ctx context.Context, _ time.Time) error {
			if taskClient != nil {
				return taskClient.EnqueueActivityCleanup(ctx, retention)
			}
			_, err := svc.Auditor.DeleteOldEntries(time.Duration(retention) * 24 * time.Hour)
			return err
		}
		if err := sched.Add(scheduler.Job{
			Name:     "activity-cleanup",
			Schedule: cfg.Activity.CleanupSchedule,
			Timeout:  5 * time.Minute,
			Run:      cleanup,
		}); err != nil {
			return nil, fmt.Errorf("activity cleanup: %w", err)
		}
	}
	return sched, nil
}

func healthChecks(svc *Services) []http_controllers.HealthCheck {
	if svc.SMTP == nil {
		return nil
	}
	return []http_controllers.HealthCheck{{
		Name: "smtp",
		Check: func(context.Context) error {
			if svc.SMTP.State() == gobreaker.StateOpen {
				return errors.New("circuit open")
			}
			return nil
		},
	}}
}

// csrfSecret decodes the configured secret as hex, falling back to raw
// bytes. An empty secret is generated and is lost on restart.
func csrfSecret(configured string) ([]byte, error) {
	if configured != "" {
		if secret, err := hex.DecodeString(configured); err == nil {
			return secret, nil
		}
		return []byte(configured), nil
	}
	key, err := auth.NewCSRFKey()
	if err != nil {
		return nil, err
	}
	logging.Warn().Msg("Generated session secret (set AUTH_SESSION_SECRET to persist)")
	return key, nil
}
