package controllers

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cppla/yatube/config"
	"github.com/cppla/yatube/middleware"
	"github.com/cppla/yatube/utils"
)

// render executes an HTML template with the values every page layout reads.
func render(ctx *gin.Context, status int, name string, data gin.H) {
	if data == nil {
		data = gin.H{}
	}
	user := middleware.CurrentUser(ctx)
	data["current_user"] = user
	data["is_admin"] = middleware.IsAdmin(user)
	data["request_path"] = ctx.Request.URL.Path
	ctx.HTML(status, name, data)
}

// NotFound renders the 404 page.
func NotFound(ctx *gin.Context) {
	render(ctx, http.StatusNotFound, "404.html", gin.H{"title": "Page not found", "path": ctx.Request.URL.Path})
	ctx.Abort()
}

// serverError logs a store or rendering failure and shows the generic error page.
func serverError(ctx *gin.Context, err error) {
	utils.Logger.Error("request failed",
		zap.Error(err),
		zap.String("method", ctx.Request.Method),
		zap.String("path", ctx.Request.URL.Path),
		zap.String("request_id", ctx.GetString(utils.RequestIDKey)),
	)
	_ = ctx.Error(err)
	render(ctx, http.StatusInternalServerError, "error.html", gin.H{"title": "Server error"})
	ctx.Abort()
}

func pageSize() int {
	return config.Get().PostsPerPage
}

func parseID(raw string) (uint, bool) {
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

func postPath(id uint) string {
	return fmt.Sprintf("/posts/%d/", id)
}

// ProfilePath is the URL of a user's profile page.
func ProfilePath(username string) string {
	return "/profile/" + url.PathEscape(username) + "/"
}
