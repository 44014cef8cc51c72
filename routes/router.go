package routes

import (
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/cppla/yatube/config"
	"github.com/cppla/yatube/controllers"
	"github.com/cppla/yatube/middleware"
	"github.com/cppla/yatube/templates"
	"github.com/cppla/yatube/utils"
)

// SetupRouter wires routes, middlewares, templates and controllers.
func SetupRouter(db *gorm.DB) (*gin.Engine, error) {
	cfg := config.Get()
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.RedirectTrailingSlash = true

	// Access log goes to its own rolling file when GinPath is set, else to the app logger
	accessLog := utils.Logger
	if cfg.GinPath != "" {
		gl, err := utils.NewRollingFileLogger(cfg.GinPath, cfg.LogLevel, cfg.LogMaxSizeMB, cfg.LogMaxBackups, cfg.LogMaxAgeDays, cfg.LogCompress)
		if err != nil {
			return nil, err
		}
		accessLog = gl
	}
	r.Use(middleware.RequestID())
	r.Use(utils.Ginzap(accessLog, time.RFC3339, true))
	r.Use(utils.RecoveryWithZap(accessLog, true))
	r.Use(middleware.Metrics())

	tmpl, err := templates.Load(template.FuncMap{
		"markdown": utils.RenderText,
		"date":     func(t time.Time) string { return t.Format("2 Jan 2006") },
		"profile":  controllers.ProfilePath,
	})
	if err != nil {
		return nil, err
	}
	r.SetHTMLTemplate(tmpl)
	r.StaticFS("/static", http.FS(templates.Static()))

	r.Use(middleware.Authenticate(db))
	r.Use(middleware.PageViewRecorder(db))

	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authController := controllers.NewAuthController(db)
	postController := controllers.NewPostController(db)
	groupController := controllers.NewGroupController(db)
	statsController := controllers.NewStatsController(db)

	// Pages
	r.GET("/", postController.Index)
	r.GET("/group/:slug/", postController.GroupPosts)
	r.GET("/profile/:username/", postController.Profile)
	r.GET("/posts/:id/", postController.Detail)

	writes := r.Group("")
	writes.Use(middleware.LoginRequired())
	writes.GET("/create/", postController.CreateForm)
	writes.POST("/create/", middleware.RateLimit("posts"), postController.Create)
	writes.GET("/posts/:id/edit/", postController.EditForm)
	writes.POST("/posts/:id/edit/", middleware.RateLimit("posts"), postController.Edit)

	authGroup := r.Group("/auth")
	authGroup.GET("/signup/", authController.SignupPage)
	authGroup.POST("/signup/", middleware.RateLimit("auth"), authController.Signup)
	authGroup.GET("/login/", authController.LoginPage)
	authGroup.POST("/login/", middleware.RateLimit("auth"), authController.Login)
	authGroup.POST("/logout/", authController.Logout)
	authGroup.GET("/oauth/:provider/login", middleware.RateLimit("auth"), authController.OAuthRedirect)
	authGroup.GET("/oauth/:provider/callback", middleware.RateLimit("auth"), authController.OAuthCallback)

	// JSON API
	api := r.Group("/api/v1")
	api.Use(cors.New(corsConfig(cfg.AllowedOrigins)))
	// Preflight requests only reach the cors middleware through a matching route
	api.OPTIONS("/*path", func(ctx *gin.Context) { ctx.Status(http.StatusNoContent) })
	api.GET("/groups", groupController.ListGroups)
	api.GET("/stats", statsController.GetStats)
	api.GET("/posts/:id/stats", statsController.GetPostStats)

	admin := api.Group("")
	admin.Use(middleware.AdminRequired(), middleware.RateLimit("admin"))
	admin.POST("/groups", groupController.CreateGroup)
	admin.DELETE("/groups/:slug", groupController.DeleteGroup)

	r.NoRoute(func(ctx *gin.Context) {
		if strings.HasPrefix(ctx.Request.URL.Path, "/api/") {
			utils.Error(ctx, http.StatusNotFound, 40400, "api route not found")
			return
		}
		controllers.NotFound(ctx)
	})

	return r, nil
}

func corsConfig(origins []string) cors.Config {
	c := cors.Config{
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 1 && origins[0] == "*" {
		c.AllowAllOrigins = true
		// Wildcard origins cannot be combined with credentials
		c.AllowCredentials = false
	} else {
		c.AllowOrigins = origins
	}
	return c
}
