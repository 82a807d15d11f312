package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/librarydesk/internal/auth"
	"github.com/mrlokans/librarydesk/internal/entities"
	"github.com/mrlokans/librarydesk/internal/logging"
	"github.com/mrlokans/librarydesk/internal/metrics"
)

// Router is the configured engine plus the pieces that need stopping on shutdown.
type Router struct {
	*gin.Engine
	auth *auth.AuthController
}

// Stop releases background resources held by the handlers.
func (r *Router) Stop() {
	if r.auth != nil {
		r.auth.Stop()
	}
}

// NewRouter creates and configures the HTTP router with all endpoints.
func NewRouter(cfg RouterConfig) (*Router, error) {
	router := gin.New()
	router.Use(logging.GinMiddleware())
	router.Use(gin.CustomRecovery(func(c *gin.Context, recovered any) {
		l := logging.Ctx(c.Request.Context())
		l.Error().Interface("panic", recovered).Str("path", c.Request.URL.Path).Msg("Recovered from panic")
		c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{Error: "An internal error occurred. Please try again."})
	}))
	if cfg.MetricsEnabled {
		router.Use(metrics.GinMiddleware())
	}

	// Apply security headers to all responses
	router.Use(auth.SecurityHeadersMiddleware())
	if cfg.AuthConfig.SecureCookies {
		router.Use(auth.StrictTransportSecurityMiddleware())
	}

	// CSRF must run before session so that session context is preserved
	router.Use(auth.CSRFMiddleware(cfg.CSRFSecret, cfg.AuthConfig.SecureCookies))
	router.Use(cfg.SessionManager.SessionLoadSave())

	mw := auth.NewMiddleware(cfg.AuthService, cfg.SessionManager, cfg.Authorizer)
	router.Use(mw.Handler())

	tmpl, err := LoadTemplates(cfg.TemplatesPath)
	if err != nil {
		return nil, err
	}
	router.SetHTMLTemplate(tmpl)
	router.StaticFS("/static", staticFileSystem(cfg.StaticPath))

	authController := auth.NewAuthController(cfg.AuthService, cfg.SessionManager, tmpl, cfg.Auditor, cfg.AuthConfig)
	authController.RegisterRoutes(router)

	// Public endpoints
	health := NewHealthController(cfg.Database, cfg.Version, cfg.HealthChecks...)
	router.GET("/health", health.Status)
	if cfg.MetricsEnabled {
		router.GET("/metrics", metrics.Handler())
	}
	if cfg.Covers != nil {
		router.GET("/covers/:file", NewCoversController(cfg.Covers).GetCover)
	}
	router.GET("/", home)

	if err := registerDesk(router, mw.RequireRole(), cfg); err != nil {
		return nil, err
	}

	router.NoRoute(func(c *gin.Context) {
		if auth.GetPrincipal(c) == nil || isAJAX(c) {
			respondNotFound(c, "Page")
			return
		}
		errorPage(c, http.StatusNotFound, "The page you requested does not exist.")
	})

	return &Router{Engine: router, auth: authController}, nil
}

// registerDesk mounts the librarian pages and AJAX endpoints under /librarian behind guard.
func registerDesk(router gin.IRouter, guard gin.HandlerFunc, cfg RouterConfig) error {
	if cfg.Catalog == nil || cfg.Members == nil || cfg.Circulation == nil || cfg.Reservations == nil ||
		cfg.Notify == nil || cfg.Attendance == nil || cfg.Subscriptions == nil || cfg.Auditor == nil {
		return errors.New("router: librarian desk services are not configured")
	}

	dashboard := NewDashboardController(cfg.Catalog, cfg.Members, cfg.Circulation, cfg.Reservations,
		cfg.Attendance, cfg.Notify, cfg.Subscriptions, cfg.Auditor)
	books := NewBooksController(cfg.Catalog, cfg.MaxUploadSize)
	categories := NewCategoriesController(cfg.Catalog)
	memberPages := NewMembersController(cfg.Members)
	borrowings := NewBorrowingsController(cfg.Circulation)
	reservationsCtl := NewReservationsController(cfg.Reservations)
	messagesCtl := NewMessagesController(cfg.Notify, cfg.Members)
	notificationsCtl := NewNotificationsController(cfg.Notify)
	attendanceCtl := NewAttendanceController(cfg.Attendance)
	activityCtl := NewActivityController(cfg.Auditor)
	subscriptionCtl := NewSubscriptionController(cfg.Subscriptions)

	desk := router.Group("/librarian", guard)

	// Pages
	desk.GET("", dashboard.DashboardPage)
	desk.GET("/", dashboard.DashboardPage)
	desk.GET("/books", books.BooksPage)
	desk.GET("/members", memberPages.MembersPage)
	desk.POST("/members", memberPages.CreateMember)
	desk.GET("/members/:id", memberPages.MemberPage)
	desk.GET("/members/:id/delete", memberPages.DeleteConfirmPage)
	desk.POST("/members/:id/delete", memberPages.DeleteMember)
	desk.POST("/members/:id/resend-setup", memberPages.ResendSetup)
	desk.GET("/borrowings", borrowings.HistoryPage)
	desk.GET("/reservations", reservationsCtl.ReservationsPage)
	desk.GET("/messages", messagesCtl.MessagesPage)
	desk.GET("/notifications", notificationsCtl.NotificationsPage)
	desk.GET("/attendance", attendanceCtl.AttendancePage)
	desk.GET("/attendance/history/:id", attendanceCtl.HistoryPage)
	desk.GET("/activity", activityCtl.ActivityPage)

	// AJAX
	ajax := desk.Group("/ajax")
	ajax.GET("/books", books.Handle)
	ajax.POST("/books", books.Handle)
	ajax.GET("/categories", categories.Handle)
	ajax.POST("/categories", categories.Handle)

	ajax.POST("/reservations/status", reservationsCtl.UpdateStatus)

	ajax.POST("/borrowings/issue", borrowings.Issue)
	ajax.POST("/borrowings/:id/return", borrowings.Return)
	ajax.POST("/borrowings/:id/renew", borrowings.Renew)

	ajax.GET("/messages", messagesCtl.List)
	ajax.POST("/messages", messagesCtl.Compose)
	ajax.GET("/messages/unread-count", messagesCtl.UnreadCount)
	ajax.POST("/messages/:id/read", messagesCtl.MarkRead)
	ajax.POST("/messages/:id/star", messagesCtl.ToggleStar)
	ajax.POST("/messages/:id/delete", messagesCtl.Delete)
	ajax.POST("/chat/send", messagesCtl.SendChat)
	ajax.GET("/chat/:code", messagesCtl.Conversation)

	ajax.GET("/notifications", notificationsCtl.List)
	ajax.POST("/notifications", notificationsCtl.Create)
	ajax.GET("/notifications/unread-count", notificationsCtl.UnreadCount)
	ajax.POST("/notifications/read-all", notificationsCtl.MarkAllRead)
	ajax.POST("/notifications/:id/read", notificationsCtl.MarkRead)

	ajax.POST("/attendance", attendanceCtl.Mark)

	ajax.GET("/subscription", subscriptionCtl.Details)
	return nil
}

// home sends librarians to the desk and everyone else to sign in.
// Members have no pages of their own in this service.
func home(c *gin.Context) {
	p := auth.GetPrincipal(c)
	switch {
	case p == nil:
		c.Redirect(http.StatusFound, "/login")
	case p.Role == entities.UserRoleMember:
		render(c, http.StatusOK, "home.html", gin.H{"Title": "Welcome"})
	default:
		c.Redirect(http.StatusFound, "/librarian/")
	}
}

func isAJAX(c *gin.Context) bool {
	return c.GetHeader("X-Requested-With") == "XMLHttpRequest" ||
		c.ContentType() == "application/json"
}
