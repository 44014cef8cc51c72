package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppla/yatube/config"
	"github.com/cppla/yatube/middleware"
	"github.com/cppla/yatube/testutil"
	"github.com/cppla/yatube/utils"
)

func TestLoginRequired(t *testing.T) {
	db := testutil.Setup(t)
	gin.SetMode(gin.TestMode)
	user := testutil.CreateUser(t, db, "leo")
	token := testutil.Token(t, user)
	revoked := testutil.Token(t, testutil.CreateUser(t, db, "gone"))
	utils.BlacklistToken(revoked, time.Now().Add(time.Hour))

	r := gin.New()
	r.Use(middleware.Authenticate(db))
	r.GET("/create/", middleware.LoginRequired(), func(c *gin.Context) {
		c.String(http.StatusOK, middleware.CurrentUser(c).Username)
	})

	tests := []struct {
		name         string
		cookie       *http.Cookie
		header       string
		wantStatus   int
		wantLocation string
		wantBody     string
	}{
		{"anonymous is redirected", nil, "", http.StatusFound, "/auth/login/?next=/create/", ""},
		{"garbage token is anonymous", &http.Cookie{Name: middleware.AccessTokenCookie, Value: "junk"}, "", http.StatusFound, "/auth/login/?next=/create/", ""},
		{"revoked token is anonymous", &http.Cookie{Name: middleware.AccessTokenCookie, Value: revoked}, "", http.StatusFound, "/auth/login/?next=/create/", ""},
		{"cookie session", &http.Cookie{Name: middleware.AccessTokenCookie, Value: token}, "", http.StatusOK, "", "leo"},
		{"bearer session", nil, "Bearer " + token, http.StatusOK, "", "leo"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/create/", nil)
			if tt.cookie != nil {
				req.AddCookie(tt.cookie)
			}
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()
			r.ServeHTTP(rr, req)

			assert.Equal(t, tt.wantStatus, rr.Code)
			assert.Equal(t, tt.wantLocation, rr.Header().Get("Location"))
			if tt.wantBody != "" {
				assert.Equal(t, tt.wantBody, rr.Body.String())
			}
		})
	}
}

func TestAdminRequired(t *testing.T) {
	db := testutil.Setup(t)
	gin.SetMode(gin.TestMode)
	admin := testutil.CreateUser(t, db, "admin")
	plain := testutil.CreateUser(t, db, "leo")

	r := gin.New()
	r.Use(middleware.Authenticate(db))
	r.DELETE("/api/v1/groups/x", middleware.AdminRequired(), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	do := func(token string) int {
		req := httptest.NewRequest(http.MethodDelete, "/api/v1/groups/x", nil)
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, req)
		return rr.Code
	}

	assert.Equal(t, http.StatusUnauthorized, do(""))
	assert.Equal(t, http.StatusForbidden, do(testutil.Token(t, plain)))
	assert.Equal(t, http.StatusNoContent, do(testutil.Token(t, admin)))
}

func TestLoginURLAndSafeNext(t *testing.T) {
	assert.Equal(t, "/auth/login/?next=/posts/3/edit/", middleware.LoginURL("/posts/3/edit/"))
	assert.Equal(t, "/auth/login/?next=/%3Fpage%3D2", middleware.LoginURL("/?page=2"))
	assert.Equal(t, "/auth/login/", middleware.LoginURL(""))

	assert.Equal(t, "/create/", middleware.SafeNext("/create/"))
	assert.Equal(t, "/", middleware.SafeNext("https://evil.example"))
	assert.Equal(t, "/", middleware.SafeNext("//evil.example"))
	assert.Equal(t, "/", middleware.SafeNext(""))
}

func TestPageViewRecorder(t *testing.T) {
	db := testutil.Setup(t)
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(middleware.PageViewRecorder(db))
	r.GET("/posts/:id/", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r.GET("/api/v1/stats", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	for _, path := range []string{"/posts/1/", "/posts/1/", "/api/v1/stats", "/missing"} {
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
	}

	var total int64
	require.NoError(t, db.Table("page_views").Select("COALESCE(SUM(count),0)").Where("path = ?", "/posts/1/").Scan(&total).Error)
	assert.EqualValues(t, 2, total)

	var rows int64
	require.NoError(t, db.Table("page_views").Count(&rows).Error)
	assert.EqualValues(t, 1, rows, "api and 404 responses are not recorded")
}

func TestRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.RequestID())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(utils.RequestIDKey)) })

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	generated := rr.Header().Get("X-Request-ID")
	assert.NotEmpty(t, generated)
	assert.Equal(t, generated, rr.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	assert.Equal(t, "abc-123", rr.Header().Get("X-Request-ID"))
}

func TestRateLimit(t *testing.T) {
	cfg := testutil.Config()
	cfg.RateLimitPerMinute = 2
	config.Set(cfg)
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.POST("/auth/login/", middleware.RateLimit("login-test"), func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/auth/login/", nil))
		codes = append(codes, rr.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusTooManyRequests, http.StatusTooManyRequests}, codes)
}
