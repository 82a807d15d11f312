package auth

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/librarydesk/internal/entities"
	"github.com/mrlokans/librarydesk/internal/logging"
)

// ContextKeyPrincipal holds the *Principal of the current request.
const ContextKeyPrincipal = "auth_principal"

// Principal is the authenticated user of a request, resolved once from the session.
type Principal struct {
	UserID      uint
	Code        entities.UserCode
	Role        entities.UserRole
	Name        string
	LibraryID   uint
	LibraryName string
}

// PrincipalFor builds a principal from a user loaded with its Library.
func PrincipalFor(user *entities.User) *Principal {
	return &Principal{
		UserID:      user.ID,
		Code:        user.Code,
		Role:        user.Role,
		Name:        user.FullName(),
		LibraryID:   user.LibraryID,
		LibraryName: user.Library.Name,
	}
}

// Authorizer decides whether a role may reach a route.
type Authorizer interface {
	Authorize(role entities.UserRole, path, method string) (bool, error)
}

// Middleware resolves sessions and guards routes.
type Middleware struct {
	service        *Service
	sessionManager *SessionManager
	authorizer     Authorizer
}

func NewMiddleware(service *Service, sessionManager *SessionManager, authorizer Authorizer) *Middleware {
	return &Middleware{
		service:        service,
		sessionManager: sessionManager,
		authorizer:     authorizer,
	}
}

// Handler loads the Principal for requests carrying a valid session.
// Requests without one pass through anonymously.
func (m *Middleware) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := m.sessionManager.GetUserID(c.Request)
		if userID == 0 {
			c.Next()
			return
		}

		p, err := m.service.Resolve(userID)
		if err != nil {
			// The account was removed or disabled after login.
			_ = m.sessionManager.DestroySession(c.Request)
			c.Next()
			return
		}
		c.Set(ContextKeyPrincipal, p)
		c.Next()
	}
}

// RequireRole rejects requests whose principal the authorizer does not allow on the route.
// Anonymous browser requests go to the login page.
func (m *Middleware) RequireRole() gin.HandlerFunc {
	return func(c *gin.Context) {
		p := GetPrincipal(c)
		if p == nil {
			if isAJAX(c) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
				return
			}
			c.Redirect(http.StatusFound, "/login?next="+url.QueryEscape(c.Request.URL.RequestURI()))
			c.Abort()
			return
		}

		allowed, err := m.authorizer.Authorize(p.Role, c.Request.URL.Path, c.Request.Method)
		if err != nil {
			logging.Ctx(c.Request.Context()).Error().Err(err).Msg("Authorization check failed")
		}
		if !allowed {
			if isAJAX(c) {
				c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Unauthorized"})
				return
			}
			c.AbortWithStatus(http.StatusForbidden)
			return
		}
		c.Next()
	}
}

// isAJAX reports whether the client expects JSON rather than a page.
func isAJAX(c *gin.Context) bool {
	if strings.Contains(c.Request.URL.Path, "/ajax/") {
		return true
	}
	if c.GetHeader("X-Requested-With") == "XMLHttpRequest" {
		return true
	}
	return strings.Contains(c.GetHeader("Accept"), "application/json")
}

// GetPrincipal returns the authenticated principal, or nil.
func GetPrincipal(c *gin.Context) *Principal {
	if v, exists := c.Get(ContextKeyPrincipal); exists {
		if p, ok := v.(*Principal); ok {
			return p
		}
	}
	return nil
}

// MustPrincipal returns the principal of a route guarded by RequireRole.
func MustPrincipal(c *gin.Context) *Principal {
	p := GetPrincipal(c)
	if p == nil {
		panic("auth: MustPrincipal called on an unauthenticated route")
	}
	return p
}
