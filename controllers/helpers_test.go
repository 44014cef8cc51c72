package controllers_test

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/cppla/yatube/middleware"
	"github.com/cppla/yatube/routes"
	"github.com/cppla/yatube/testutil"
)

func newServer(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	db := testutil.Setup(t)
	r, err := routes.SetupRouter(db)
	require.NoError(t, err)
	return r, db
}

// request performs a request; form may be nil and token empty for an anonymous visitor.
func request(r http.Handler, method, path string, form url.Values, token string) *httptest.ResponseRecorder {
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, path, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.AddCookie(&http.Cookie{Name: middleware.AccessTokenCookie, Value: token})
	}
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

func jsonRequest(r http.Handler, method, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

func countPosts(body string) int {
	return strings.Count(body, `<article class="post">`)
}
