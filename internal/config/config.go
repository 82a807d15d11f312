package config

import (
	"time"

	"github.com/spf13/viper"
)

type (
	Config struct {
		HTTP
		Global
		Database
		UI
		Uploads
		Auth
		Tasks
		Mail
		Circulation
		Scheduler
		Activity
		Logging
		Metrics
	}

	HTTP struct {
		Port    int32
		Host    string
		BaseURL string // Used in links sent by email
	}
	Global struct {
		ShutdownTimeoutInSeconds int
	}
	Database struct {
		Path string
	}
	UI struct {
		TemplatesPath string // Empty means use the embedded templates
		StaticPath    string
	}
	Uploads struct {
		Dir          string
		MaxCoverSize int64 // Bytes
	}
	Auth struct {
		SessionSecret   string
		SessionLifetime time.Duration
		SetupTokenTTL   time.Duration
		BcryptCost      int
		SecureCookies   bool // Set to false for local dev without HTTPS

		MaxLoginAttempts int           // Max failed attempts before lockout (default: 5)
		RateLimitWindow  time.Duration // Time window for counting attempts (default: 15m)
		LockoutDuration  time.Duration // How long to lock out (default: 30m)

		PolicyPath string // Casbin policy overriding the embedded one
	}
	Tasks struct {
		Enabled         bool
		Workers         int
		ReleaseAfter    time.Duration
		CleanupInterval time.Duration
	}
	Mail struct {
		Enabled  bool // When false, emails are written to the log instead of sent
		Host     string
		Port     int
		Username string
		Password string
		From     string
	}
	Circulation struct {
		LoanPeriodDays  int
		RenewalDays     int
		OverdueSchedule string // Cron format: "0 8 * * *" = daily at 08:00
	}
	Scheduler struct {
		Enabled bool
	}
	Activity struct {
		RetentionDays   int
		CleanupSchedule string
	}
	Logging struct {
		Level  string
		Format string // json or console
	}
	Metrics struct {
		Enabled bool
	}
)

func NewConfig() *Config {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("port", 8190)
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("base_url", "http://localhost:8190")
	v.SetDefault("shutdown_timeout_in_seconds", 5)
	v.SetDefault("database_path", DefaultDatabasePath)
	v.SetDefault("templates_path", "")
	v.SetDefault("static_path", "") // Embedded assets when empty
	v.SetDefault("uploads_dir", DefaultUploadsDir)
	v.SetDefault("uploads_max_cover_size", DefaultMaxCoverSize)

	// Auth defaults
	v.SetDefault("auth_session_secret", "")       // Auto-generated if empty
	v.SetDefault("auth_session_lifetime", "12h")  // One working day
	v.SetDefault("auth_setup_token_ttl", "72h")   // Member setup links
	v.SetDefault("auth_bcrypt_cost", 12)          // bcrypt cost factor
	v.SetDefault("auth_secure_cookies", true)     // HTTPS-only cookies
	v.SetDefault("auth_max_login_attempts", 5)    // Max failed attempts
	v.SetDefault("auth_rate_limit_window", "15m") // Window for counting attempts
	v.SetDefault("auth_lockout_duration", "30m")  // Lockout duration
	v.SetDefault("auth_policy_path", "")          // Embedded policy when empty

	// Task queue defaults
	v.SetDefault("tasks_enabled", true)
	v.SetDefault("task_workers", 2)
	v.SetDefault("task_release_after", "15m")
	v.SetDefault("task_cleanup_interval", "1h")

	// Mail defaults
	v.SetDefault("mail_enabled", false)
	v.SetDefault("mail_host", "localhost")
	v.SetDefault("mail_port", 587)
	v.SetDefault("mail_username", "")
	v.SetDefault("mail_password", "")
	v.SetDefault("mail_from", "library@localhost")

	// Circulation defaults
	v.SetDefault("loan_period_days", DefaultLoanPeriodDays)
	v.SetDefault("renewal_days", DefaultRenewalDays)
	v.SetDefault("overdue_schedule", "0 8 * * *") // Daily at 08:00
	v.SetDefault("scheduler_enabled", true)

	v.SetDefault("activity_retention_days", 365)
	v.SetDefault("activity_cleanup_schedule", "30 3 * * 0") // Sundays at 03:30

	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")
	v.SetDefault("metrics_enabled", true)

	return &Config{
		HTTP: HTTP{
			Port:    v.GetInt32("PORT"),
			Host:    v.GetString("HOST"),
			BaseURL: v.GetString("BASE_URL"),
		},
		Global: Global{
			ShutdownTimeoutInSeconds: v.GetInt("SHUTDOWN_TIMEOUT_IN_SECONDS"),
		},
		Database: Database{
			Path: v.GetString("DATABASE_PATH"),
		},
		UI: UI{
			TemplatesPath: v.GetString("TEMPLATES_PATH"),
			StaticPath:    v.GetString("STATIC_PATH"),
		},
		Uploads: Uploads{
			Dir:          v.GetString("UPLOADS_DIR"),
			MaxCoverSize: v.GetInt64("UPLOADS_MAX_COVER_SIZE"),
		},
		Auth: Auth{
			SessionSecret:    v.GetString("AUTH_SESSION_SECRET"),
			SessionLifetime:  v.GetDuration("AUTH_SESSION_LIFETIME"),
			SetupTokenTTL:    v.GetDuration("AUTH_SETUP_TOKEN_TTL"),
			BcryptCost:       v.GetInt("AUTH_BCRYPT_COST"),
			SecureCookies:    v.GetBool("AUTH_SECURE_COOKIES"),
			MaxLoginAttempts: v.GetInt("AUTH_MAX_LOGIN_ATTEMPTS"),
			RateLimitWindow:  v.GetDuration("AUTH_RATE_LIMIT_WINDOW"),
			LockoutDuration:  v.GetDuration("AUTH_LOCKOUT_DURATION"),
			PolicyPath:       v.GetString("AUTH_POLICY_PATH"),
		},
		Tasks: Tasks{
			Enabled:         v.GetBool("TASKS_ENABLED"),
			Workers:         v.GetInt("TASK_WORKERS"),
			ReleaseAfter:    v.GetDuration("TASK_RELEASE_AFTER"),
			CleanupInterval: v.GetDuration("TASK_CLEANUP_INTERVAL"),
		},
		Mail: Mail{
			Enabled:  v.GetBool("MAIL_ENABLED"),
			Host:     v.GetString("MAIL_HOST"),
			Port:     v.GetInt("MAIL_PORT"),
			Username: v.GetString("MAIL_USERNAME"),
			Password: v.GetString("MAIL_PASSWORD"),
			From:     v.GetString("MAIL_FROM"),
		},
		Circulation: Circulation{
			LoanPeriodDays:  v.GetInt("LOAN_PERIOD_DAYS"),
			RenewalDays:     v.GetInt("RENEWAL_DAYS"),
			OverdueSchedule: v.GetString("OVERDUE_SCHEDULE"),
		},
		Scheduler: Scheduler{
			Enabled: v.GetBool("SCHEDULER_ENABLED"),
		},
		Activity: Activity{
			RetentionDays:   v.GetInt("ACTIVITY_RETENTION_DAYS"),
			CleanupSchedule: v.GetString("ACTIVITY_CLEANUP_SCHEDULE"),
		},
		Logging: Logging{
			Level:  v.GetString("LOG_LEVEL"),
			Format: v.GetString("LOG_FORMAT"),
		},
		Metrics: Metrics{
			Enabled: v.GetBool("METRICS_ENABLED"),
		},
	}
}
