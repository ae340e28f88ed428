package middleware

import (
	"chatspace/pkg/response"
	"fmt"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"gorm.io/gorm"
)

func GetJWTSecret() []byte {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		if os.Getenv("GIN_MODE") == "release" {
			panic("FATAL: JWT_SECRET environment variable is required in production mode")
		}
		secret = "default_super_secret_key" // Development fallback only — DO NOT use in production
	}
	return []byte(secret)
}

// SetTokenCookies sets access_token and refresh_token as HttpOnly cookies
func SetTokenCookies(c *gin.Context, accessToken, refreshToken string) {
	// Production (cross-origin): SameSiteNoneMode + Secure=true
	// Development (same-site):   SameSiteLaxMode  + Secure=false
	sameSite := http.SameSiteLaxMode
	secure := false
	if os.Getenv("GIN_MODE") == "release" {
		sameSite = http.SameSiteNoneMode
		secure = true
	}

	c.SetSameSite(sameSite)
	// access_token: 24h, path=/, domain="", secure, HttpOnly
	c.SetCookie("access_token", accessToken, 3600*24, "/", "", secure, true)
	// refresh_token: 7 days, path=/, domain="", secure, HttpOnly
	c.SetCookie("refresh_token", refreshToken, 3600*24*7, "/", "", secure, true)
}

// ClearTokenCookies removes access_token and refresh_token cookies
func ClearTokenCookies(c *gin.Context) {
	sameSite := http.SameSiteLaxMode
	secure := false
	if os.Getenv("GIN_MODE") == "release" {
		sameSite = http.SameSiteNoneMode
		secure = true
	}

	c.SetSameSite(sameSite)
	c.SetCookie("access_token", "", -1, "/", "", secure, true)
	c.SetCookie("refresh_token", "", -1, "/", "", secure, true)
}

// extractToken reads the access token from the cookie first, falling back to
// the Authorization header.
func extractToken(c *gin.Context) (string, error) {
	tokenString, cookieErr := c.Cookie("access_token")
	if cookieErr == nil && tokenString != "" {
		return tokenString, nil
	}

	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return "", fmt.Errorf("authorization is missing")
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", fmt.Errorf("invalid authorization format, expected 'Bearer <token>'")
	}
	return parts[1], nil
}

// ParseUserID validates a signed access token and returns the subject claim.
func ParseUserID(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return GetJWTSecret(), nil
	})
	if err != nil || !token.Valid {
		return "", fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", fmt.Errorf("invalid token claims")
	}

	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return "", fmt.Errorf("subject not found in token")
	}
	return sub, nil
}

// RequireAuth validates the JWT and stores the caller's user id in context.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, err := extractToken(c)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, err.Error()))
			return
		}

		userID, err := ParseUserID(tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, err.Error()))
			return
		}

		c.Set("userID", userID)
		c.Next()
	}
}

// OptionalAuth stores the caller's user id when a valid token is present but
// lets anonymous requests through. Used by endpoints with public variants,
// e.g. the room listing.
func OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if tokenString, err := extractToken(c); err == nil {
			if userID, err := ParseUserID(tokenString); err == nil {
				c.Set("userID", userID)
			}
		}
		c.Next()
	}
}

// RequireRole validates the JWT and checks the user holds one of the allowed roles
func RequireRole(allowedRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, err := extractToken(c)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, err.Error()))
			return
		}

		userID, err := ParseUserID(tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, err.Error()))
			return
		}
		c.Set("userID", userID)

		authz, err := getAuthzForUser(userID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "Failed to verify roles"))
			return
		}

		for _, allowed := range allowedRoles {
			for _, role := range authz.roles {
				if role == allowed {
					c.Next()
					return
				}
			}
		}

		c.AbortWithStatusJSON(http.StatusForbidden, response.Error(http.StatusForbidden, "Access denied: insufficient permissions"))
	}
}

// RequirePermission validates the JWT and checks the user's effective
// permission set (union over assigned roles) contains every required code.
func RequirePermission(requiredPerms ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, err := extractToken(c)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, err.Error()))
			return
		}

		userID, err := ParseUserID(tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, err.Error()))
			return
		}
		c.Set("userID", userID)

		authz, err := getAuthzForUser(userID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "Failed to verify permissions"))
			return
		}

		permSet := make(map[string]bool, len(authz.perms))
		for _, p := range authz.perms {
			permSet[p] = true
		}

		for _, required := range requiredPerms {
			if !permSet[required] {
				c.AbortWithStatusJSON(http.StatusForbidden, response.Error(http.StatusForbidden, "Access denied: missing permission '"+required+"'"))
				return
			}
		}

		c.Next()
	}
}

// --- Per-user authorization cache ---

// authzEntry stores a user's cached role names and permission codes with TTL.
// Keyed by user id so a role reassignment can be invalidated precisely.
type authzEntry struct {
	roles     []string
	perms     []string
	expiresAt time.Time
}

var (
	authzCache    sync.Map // userID -> authzEntry
	authzCacheTTL = 5 * time.Minute
)

// authzDB holds the database reference for authorization queries — set via InitAuthzMiddleware
var authzDB *gorm.DB

// InitAuthzMiddleware sets the DB reference for RequireRole/RequirePermission middleware
func InitAuthzMiddleware(db *gorm.DB) {
	authzDB = db
}

func getAuthzForUser(userID string) (authzEntry, error) {
	if entry, ok := authzCache.Load(userID); ok {
		cached := entry.(authzEntry)
		if time.Now().Before(cached.expiresAt) {
			return cached, nil
		}
	}

	if authzDB == nil {
		return authzEntry{}, fmt.Errorf("authorization middleware not initialized")
	}

	var roles []string
	err := authzDB.Raw(`
		SELECT r.name FROM roles r
		INNER JOIN user_roles ur ON ur.role_id = r.id
		WHERE ur.user_id = ?
	`, userID).Scan(&roles).Error
	if err != nil {
		return authzEntry{}, err
	}

	var perms []string
	err = authzDB.Raw(`
		SELECT DISTINCT p.code FROM permissions p
		INNER JOIN role_permissions rp ON rp.permission_id = p.id
		INNER JOIN user_roles ur ON ur.role_id = rp.role_id
		WHERE ur.user_id = ?
	`, userID).Scan(&perms).Error
	if err != nil {
		return authzEntry{}, err
	}

	entry := authzEntry{
		roles:     roles,
		perms:     perms,
		expiresAt: time.Now().Add(authzCacheTTL),
	}
	authzCache.Store(userID, entry)

	return entry, nil
}

// GetPermissionsForUser exposes cached permission fetching for handlers (e.g., /me endpoint)
func GetPermissionsForUser(userID string) ([]string, error) {
	entry, err := getAuthzForUser(userID)
	if err != nil {
		return nil, err
	}
	return entry.perms, nil
}

// ClearAuthzCache removes the cached entry for a specific user (or all users if empty).
// Call after assigning or revoking roles.
func ClearAuthzCache(userID string) {
	if userID == "" {
		authzCache.Range(func(key, _ interface{}) bool {
			authzCache.Delete(key)
			return true
		})
	} else {
		authzCache.Delete(userID)
	}
}
