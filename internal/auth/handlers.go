package auth

import (
	"context"
	"errors"
	"html/template"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/librarydesk/internal/config"
	"github.com/mrlokans/librarydesk/internal/entities"
	"github.com/mrlokans/librarydesk/internal/logging"
)

const defaultLanding = "/librarian/"

// isLocalPath validates that a redirect path is local to prevent open redirect attacks.
func isLocalPath(path string) bool {
	if path == "" || !strings.HasPrefix(path, "/") {
		return false
	}
	// Protocol-relative URLs (//evil.com) and backslash tricks
	if strings.HasPrefix(path, "//") || strings.Contains(path, "\\") {
		return false
	}
	return !strings.Contains(path, "://")
}

// sanitizeRedirectPath returns a safe redirect path, defaulting to the librarian dashboard.
func sanitizeRedirectPath(path string) string {
	if isLocalPath(path) {
		return path
	}
	return defaultLanding
}

// refererPath strips scheme and host from a Referer header.
func refererPath(referer string) string {
	u, err := url.Parse(referer)
	if err != nil || u.Path == "" {
		return ""
	}
	if u.RawQuery != "" {
		return u.Path + "?" + u.RawQuery
	}
	return u.Path
}

// AuthAuditor records login activity.
type AuthAuditor interface {
	LogAuth(ctx context.Context, libraryID, userID uint, action, ipAddr string, err error)
}

// AuthController serves login, logout and account setup pages.
type AuthController struct {
	service        *Service
	sessionManager *SessionManager
	templates      *template.Template
	auditor        AuthAuditor
	rateLimiter    *RateLimiter
}

// NewAuthController creates the controller. templates may be nil, in which case
// pages are answered with their data as JSON.
func NewAuthController(service *Service, sessionManager *SessionManager, templates *template.Template,
	auditor AuthAuditor, cfg config.Auth) *AuthController {
	return &AuthController{
		service:        service,
		sessionManager: sessionManager,
		templates:      templates,
		auditor:        auditor,
		rateLimiter: NewRateLimiter(RateLimitConfig{
			MaxAttempts:     cfg.MaxLoginAttempts,
			WindowDuration:  cfg.RateLimitWindow,
			LockoutDuration: cfg.LockoutDuration,
		}),
	}
}

// RegisterRoutes registers authentication routes on the router.
func (ac *AuthController) RegisterRoutes(router gin.IRoutes) {
	router.GET("/login", ac.LoginPage)
	router.POST("/login", ac.Login)
	router.POST("/logout", ac.Logout)
	router.GET("/logout", ac.Logout)
	router.GET("/setup-account", ac.SetupAccountPage)
	router.POST("/setup-account", ac.SetupAccount)
}

// Stop cleans up the rate limiter goroutine.
func (ac *AuthController) Stop() {
	ac.rateLimiter.Stop()
}

// LoginPage renders the login form.
func (ac *AuthController) LoginPage(c *gin.Context) {
	if GetPrincipal(c) != nil {
		c.Redirect(http.StatusFound, defaultLanding)
		return
	}

	ac.render(c, http.StatusOK, "login.html", gin.H{
		"Title":     "Sign in",
		"Next":      sanitizeRedirectPath(c.Query("next")),
		"CSRFField": CSRFTokenField(c),
		"Error":     c.Query("error"),
		"Success":   c.Query("success"),
	})
}

// Login handles the login form submission.
func (ac *AuthController) Login(c *gin.Context) {
	email := strings.ToLower(strings.TrimSpace(c.PostForm("email")))
	password := c.PostForm("password")
	next := sanitizeRedirectPath(c.PostForm("next"))
	clientIP := c.ClientIP()

	fail := func(status int, msg string) {
		ac.render(c, status, "login.html", gin.H{
			"Title":     "Sign in",
			"Next":      next,
			"Email":     email,
			"CSRFField": CSRFTokenField(c),
			"Error":     msg,
		})
	}

	if allowed, retryAfter := ac.rateLimiter.Allow(clientIP, email); !allowed {
		c.Header("Retry-After", retryAfter.String())
		fail(http.StatusTooManyRequests, "Too many login attempts. Please try again later.")
		return
	}

	user, err := ac.service.Authenticate(email, password)
	if err != nil {
		ac.rateLimiter.RecordFailure(clientIP, email)

		msg := "Invalid email or password"
		switch {
		case errors.Is(err, ErrAccountLocked):
			msg = "Account is locked. Please try again later."
		case errors.Is(err, ErrAccountInactive):
			msg = "Your account is not active. Check your email for the setup link."
		case errors.Is(err, ErrUserNotFound), errors.Is(err, ErrWrongPassword):
		default:
			logging.Ctx(c.Request.Context()).Error().Err(err).Msg("Login failed")
		}
		fail(http.StatusUnauthorized, msg)
		return
	}

	ac.rateLimiter.RecordSuccess(clientIP, email)

	if err := ac.sessionManager.CreateSession(c.Request, user); err != nil {
		logging.Ctx(c.Request.Context()).Error().Err(err).Msg("Failed to create session")
		fail(http.StatusInternalServerError, "Failed to create session")
		return
	}

	ac.auditor.LogAuth(c.Request.Context(), user.LibraryID, user.ID, entities.ActivityLogin, clientIP, nil)

	if user.Role == entities.UserRoleMember && next == defaultLanding {
		next = "/"
	}
	c.Redirect(http.StatusFound, next)
}

// Logout destroys the session and redirects to login.
func (ac *AuthController) Logout(c *gin.Context) {
	if p := GetPrincipal(c); p != nil {
		ac.auditor.LogAuth(c.Request.Context(), p.LibraryID, p.UserID, entities.ActivityLogout, c.ClientIP(), nil)
	}
	_ = ac.sessionManager.DestroySession(c.Request)
	c.Redirect(http.StatusFound, "/login")
}

// SetupAccountPage shows the password form linked from the member setup email.
func (ac *AuthController) SetupAccountPage(c *gin.Context) {
	token := c.Query("token")
	user, err := ac.service.LookupSetupToken(token)
	if err != nil {
		ac.render(c, http.StatusBadRequest, "setup_account.html", gin.H{
			"Title": "Account setup",
			"Error": setupErrorMessage(err),
		})
		return
	}

	ac.render(c, http.StatusOK, "setup_account.html", gin.H{
		"Title":     "Account setup",
		"Token":     token,
		"Name":      user.FullName(),
		"Email":     user.Email,
		"CSRFField": CSRFTokenField(c),
	})
}

// SetupAccount sets the member's password and activates the account.
func (ac *AuthController) SetupAccount(c *gin.Context) {
	token := c.PostForm("token")
	password := c.PostForm("password")

	fail := func(msg string) {
		ac.render(c, http.StatusBadRequest, "setup_account.html", gin.H{
			"Title":     "Account setup",
			"Token":     token,
			"CSRFField": CSRFTokenField(c),
			"Error":     msg,
		})
	}

	if err := ConfirmPassword(password, c.PostForm("confirm_password")); err != nil {
		fail(setupErrorMessage(err))
		return
	}

	user, err := ac.service.CompleteSetup(token, password)
	if err != nil {
		fail(setupErrorMessage(err))
		return
	}

	l := logging.Ctx(c.Request.Context())
	l.Info().Str("user", user.Code.String()).Msg("Account setup completed")
	c.Redirect(http.StatusFound, "/login?success="+url.QueryEscape("Your account is ready. Please sign in."))
}

func setupErrorMessage(err error) string {
	switch {
	case errors.Is(err, ErrTokenExpired):
		return "This setup link has expired. Ask the library to resend it."
	case errors.Is(err, ErrInvalidToken):
		return "This setup link is invalid or has already been used."
	case errors.Is(err, ErrPasswordMismatch):
		return "Passwords do not match"
	case errors.Is(err, ErrPasswordTooShort):
		return "Password must be at least 12 characters"
	case errors.Is(err, ErrPasswordTooLong):
		return "Password exceeds maximum length of 72 characters"
	}
	logging.Error().Err(err).Msg("Account setup failed")
	return "Account setup failed. Please try again."
}

// render executes a page template, or answers with the data as JSON when no templates are loaded.
func (ac *AuthController) render(c *gin.Context, status int, name string, data gin.H) {
	if ac.templates == nil {
		delete(data, "CSRFField")
		c.JSON(status, data)
		return
	}

	c.Status(status)
	c.Header("Content-Type", "text/html; charset=utf-8")
	if err := ac.templates.ExecuteTemplate(c.Writer, name, data); err != nil {
		logging.Ctx(c.Request.Context()).Error().Err(err).Str("template", name).Msg("Template error")
	}
}
