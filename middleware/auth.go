package middleware

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/cppla/yatube/config"
	"github.com/cppla/yatube/models"
	"github.com/cppla/yatube/utils"
)

const (
	// ContextUserKey stores the signed-in *models.User inside the gin context.
	ContextUserKey = "current_user"
	// AccessTokenCookie carries the session token for browser requests.
	AccessTokenCookie = "access_token"
	// LoginPath is where anonymous visitors are sent.
	LoginPath = "/auth/login/"
)

// Authenticate resolves the session token into a user. Anonymous or invalid sessions pass through untouched.
func Authenticate(db *gorm.DB) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		token := TokenFromRequest(ctx)
		if token == "" || utils.IsTokenBlacklisted(token) {
			ctx.Next()
			return
		}

		claims, err := utils.ParseToken(token)
		if err != nil {
			ctx.Next()
			return
		}

		var user models.User
		if err := db.WithContext(ctx.Request.Context()).First(&user, claims.UserID).Error; err == nil {
			ctx.Set(ContextUserKey, &user)
		}
		ctx.Next()
	}
}

// TokenFromRequest reads the bearer header first, then the session cookie.
func TokenFromRequest(ctx *gin.Context) string {
	if header := ctx.GetHeader("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
	}
	if cookie, err := ctx.Cookie(AccessTokenCookie); err == nil {
		return cookie
	}
	return ""
}

// CurrentUser returns the signed-in user or nil.
func CurrentUser(ctx *gin.Context) *models.User {
	if v, ok := ctx.Get(ContextUserKey); ok {
		if user, ok := v.(*models.User); ok {
			return user
		}
	}
	return nil
}

// LoginRequired redirects anonymous visitors to the login page, keeping where they were heading in next.
func LoginRequired() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if CurrentUser(ctx) == nil {
			ctx.Redirect(http.StatusFound, LoginURL(ctx.Request.URL.RequestURI()))
			ctx.Abort()
			return
		}
		ctx.Next()
	}
}

// LoginURL builds /auth/login/?next=<path>, leaving slashes readable.
func LoginURL(next string) string {
	if next == "" {
		return LoginPath
	}
	return LoginPath + "?next=" + strings.ReplaceAll(url.QueryEscape(next), "%2F", "/")
}

// SafeNext returns next when it is a local absolute path, else "/".
func SafeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return "/"
	}
	return next
}

// IsAdmin reports whether the user is listed in AdminUsernames.
func IsAdmin(user *models.User) bool {
	if user == nil {
		return false
	}
	for _, name := range config.Get().AdminUsernames {
		if strings.EqualFold(name, user.Username) {
			return true
		}
	}
	return false
}

// AdminRequired guards JSON admin endpoints.
func AdminRequired() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		user := CurrentUser(ctx)
		if user == nil {
			utils.Error(ctx, http.StatusUnauthorized, 40101, "authentication required")
			return
		}
		if !IsAdmin(user) {
			utils.Error(ctx, http.StatusForbidden, 40301, "admin privileges required")
			return
		}
		ctx.Next()
	}
}
