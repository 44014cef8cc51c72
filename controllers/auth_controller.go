package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
	"golang.org/x/oauth2/google"
	"gorm.io/gorm"

	"github.com/cppla/yatube/config"
	"github.com/cppla/yatube/forms"
	"github.com/cppla/yatube/middleware"
	"github.com/cppla/yatube/models"
	"github.com/cppla/yatube/utils"
)

// AuthController handles signup, login, logout and OAuth sign-in for the HTML site.
type AuthController struct {
	db *gorm.DB
}

// NewAuthController creates a new AuthController instance.
func NewAuthController(db *gorm.DB) *AuthController {
	return &AuthController{db: db}
}

type oauthUser struct {
	ID        string
	Username  string
	AvatarURL string
}

// startSession issues a token for user and stores it in the session cookie.
func startSession(ctx *gin.Context, user *models.User) error {
	token, err := utils.GenerateToken(user.ID, user.Username)
	if err != nil {
		return err
	}
	ctx.SetSameSite(http.SameSiteLaxMode)
	ctx.SetCookie(middleware.AccessTokenCookie, token, int(utils.TokenTTL().Seconds()), "/", "", config.Get().CookieSecure, true)
	return nil
}

// SignupPage shows the registration form.
func (a *AuthController) SignupPage(ctx *gin.Context) {
	render(ctx, http.StatusOK, "signup.html", gin.H{
		"title": "Sign up",
		"form":  &forms.SignupForm{Next: ctx.Query("next"), Errors: forms.FieldErrors{}},
	})
}

// Signup creates a local account and signs it in.
func (a *AuthController) Signup(ctx *gin.Context) {
	form := forms.BindSignupForm(ctx)
	db := a.db.WithContext(ctx.Request.Context())

	valid, err := form.IsValid(db)
	if err != nil {
		serverError(ctx, err)
		return
	}
	if !valid {
		render(ctx, http.StatusOK, "signup.html", gin.H{"title": "Sign up", "form": form})
		return
	}

	hash, err := utils.HashPassword(form.Password)
	if err != nil {
		serverError(ctx, fmt.Errorf("hash password: %w", err))
		return
	}
	user := models.User{Username: form.Username, PasswordHash: hash, Provider: "local"}
	if err := db.Create(&user).Error; err != nil {
		serverError(ctx, fmt.Errorf("create user: %w", err))
		return
	}
	utils.InvalidateByPrefix(statsCacheKey)

	if err := startSession(ctx, &user); err != nil {
		serverError(ctx, err)
		return
	}
	ctx.Redirect(http.StatusFound, middleware.SafeNext(form.Next))
}

// LoginPage shows the login form, carrying next through to the POST.
func (a *AuthController) LoginPage(ctx *gin.Context) {
	render(ctx, http.StatusOK, "login.html", gin.H{
		"title": "Log in",
		"form":  &forms.LoginForm{Next: ctx.Query("next"), Errors: forms.FieldErrors{}},
		"oauth": enabledProviders(),
	})
}

// Login checks the credentials and returns the user to next.
func (a *AuthController) Login(ctx *gin.Context) {
	form := forms.BindLoginForm(ctx)
	fail := func() {
		form.Password = ""
		render(ctx, http.StatusOK, "login.html", gin.H{"title": "Log in", "form": form, "oauth": enabledProviders()})
	}
	if len(form.Errors) > 0 {
		fail()
		return
	}

	var user models.User
	err := a.db.WithContext(ctx.Request.Context()).Where("username = ?", form.Username).First(&user).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		serverError(ctx, err)
		return
	}
	if err != nil || !utils.CheckPassword(user.PasswordHash, form.Password) {
		form.Errors.Add("__all__", "Please enter a correct username and password.")
		fail()
		return
	}

	if err := startSession(ctx, &user); err != nil {
		serverError(ctx, err)
		return
	}
	ctx.Redirect(http.StatusFound, middleware.SafeNext(form.Next))
}

// Logout revokes the current token until it would have expired and clears the cookie.
func (a *AuthController) Logout(ctx *gin.Context) {
	if token := middleware.TokenFromRequest(ctx); token != "" {
		expiresAt := time.Now().Add(utils.TokenTTL())
		if claims, err := utils.ParseToken(token); err == nil && claims.ExpiresAt != nil {
			expiresAt = claims.ExpiresAt.Time
		}
		utils.BlacklistToken(token, expiresAt)
	}
	ctx.SetSameSite(http.SameSiteLaxMode)
	ctx.SetCookie(middleware.AccessTokenCookie, "", -1, "/", "", config.Get().CookieSecure, true)
	ctx.Redirect(http.StatusFound, "/")
}

// OAuthRedirect sends the browser to the provider's consent page.
func (a *AuthController) OAuthRedirect(ctx *gin.Context) {
	cfg, err := oauthConfig(ctx.Param("provider"))
	if err != nil {
		render(ctx, http.StatusBadRequest, "error.html", gin.H{"title": "Sign-in unavailable", "message": err.Error()})
		return
	}

	state := uuid.NewString()
	utils.SaveState(state, middleware.SafeNext(ctx.Query("next")), 10*time.Minute)
	ctx.Redirect(http.StatusFound, cfg.AuthCodeURL(state))
}

// OAuthCallback exchanges the code, links or creates the local user and starts a session.
func (a *AuthController) OAuthCallback(ctx *gin.Context) {
	provider := strings.ToLower(ctx.Param("provider"))
	code := ctx.Query("code")
	state := ctx.Query("state")

	badRequest := func(msg string) {
		render(ctx, http.StatusBadRequest, "error.html", gin.H{"title": "Sign-in failed", "message": msg})
	}

	if code == "" || state == "" {
		badRequest("missing code or state")
		return
	}
	next, ok := utils.ConsumeState(state)
	if !ok {
		badRequest("invalid or expired state")
		return
	}
	cfg, err := oauthConfig(provider)
	if err != nil {
		badRequest(err.Error())
		return
	}

	reqCtx, cancel := context.WithTimeout(ctx.Request.Context(), 15*time.Second)
	defer cancel()
	token, err := cfg.Exchange(reqCtx, code)
	if err != nil {
		badRequest("failed to exchange code")
		return
	}

	client := cfg.Client(reqCtx, token)
	var info *oauthUser
	switch provider {
	case "github":
		info, err = fetchGitHubUser(client)
	case "google":
		info, err = fetchGoogleUser(client)
	}
	if err != nil {
		serverError(ctx, fmt.Errorf("fetch %s user: %w", provider, err))
		return
	}

	user, err := a.findOrCreateOAuthUser(ctx.Request.Context(), provider, info)
	if err != nil {
		serverError(ctx, fmt.Errorf("persist oauth user: %w", err))
		return
	}
	if err := startSession(ctx, user); err != nil {
		serverError(ctx, err)
		return
	}
	ctx.Redirect(http.StatusFound, middleware.SafeNext(next))
}

func oauthConfig(provider string) (*oauth2.Config, error) {
	cfg := config.Get()
	switch strings.ToLower(provider) {
	case "github":
		if cfg.GitHubClientID == "" || cfg.GitHubClientSecret == "" {
			return nil, fmt.Errorf("github oauth not configured")
		}
		return &oauth2.Config{
			ClientID:     cfg.GitHubClientID,
			ClientSecret: cfg.GitHubClientSecret,
			RedirectURL:  fmt.Sprintf("%s/auth/oauth/github/callback", cfg.OAuthRedirectBase),
			Scopes:       []string{"read:user"},
			Endpoint:     github.Endpoint,
		}, nil
	case "google":
		if cfg.GoogleClientID == "" || cfg.GoogleClientSecret == "" {
			return nil, fmt.Errorf("google oauth not configured")
		}
		return &oauth2.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  fmt.Sprintf("%s/auth/oauth/google/callback", cfg.OAuthRedirectBase),
			Scopes:       []string{"openid", "profile", "email"},
			Endpoint:     google.Endpoint,
		}, nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", provider)
	}
}

// enabledProviders lists the OAuth providers with credentials configured.
func enabledProviders() []string {
	var out []string
	for _, p := range []string{"github", "google"} {
		if _, err := oauthConfig(p); err == nil {
			out = append(out, p)
		}
	}
	return out
}

func (a *AuthController) findOrCreateOAuthUser(ctx context.Context, provider string, data *oauthUser) (*models.User, error) {
	db := a.db.WithContext(ctx)

	var user models.User
	err := db.Where("provider = ? AND provider_id = ?", provider, data.ID).First(&user).Error
	switch {
	case err == nil:
		if data.AvatarURL != user.AvatarURL {
			if err := db.Model(&user).Update("avatar_url", data.AvatarURL).Error; err != nil {
				return nil, err
			}
		}
		return &user, nil
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, err
	}

	username, err := a.ensureUniqueUsername(db, data.Username, provider, data.ID)
	if err != nil {
		return nil, err
	}
	user = models.User{
		Username:   username,
		Provider:   provider,
		ProviderID: data.ID,
		AvatarURL:  data.AvatarURL,
	}
	if err := db.Create(&user).Error; err != nil {
		return nil, err
	}
	utils.InvalidateByPrefix(statsCacheKey)
	return &user, nil
}

func fetchGitHubUser(client *http.Client) (*oauthUser, error) {
	var payload struct {
		ID        int64  `json:"id"`
		Login     string `json:"login"`
		AvatarURL string `json:"avatar_url"`
	}
	if err := getJSON(client, "https://api.github.com/user", &payload); err != nil {
		return nil, err
	}
	return &oauthUser{
		ID:        fmt.Sprintf("%d", payload.ID),
		Username:  payload.Login,
		AvatarURL: payload.AvatarURL,
	}, nil
}

func fetchGoogleUser(client *http.Client) (*oauthUser, error) {
	var payload struct {
		ID      string `json:"id"`
		Email   string `json:"email"`
		Picture string `json:"picture"`
	}
	if err := getJSON(client, "https://www.googleapis.com/oauth2/v2/userinfo", &payload); err != nil {
		return nil, err
	}
	return &oauthUser{
		ID:        payload.ID,
		Username:  strings.SplitN(payload.Email, "@", 2)[0],
		AvatarURL: payload.Picture,
	}, nil
}

func getJSON(client *http.Client, url string, out interface{}) error {
	resp, err := client.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: %s", url, resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func sanitizeUsername(input string) string {
	input = strings.ToLower(strings.TrimSpace(input))
	var builder strings.Builder
	for _, r := range input {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			builder.WriteRune(r)
		case r == '_' || r == '-' || r == '.':
			builder.WriteRune('_')
		}
	}
	return strings.Trim(builder.String(), "_")
}

func (a *AuthController) ensureUniqueUsername(db *gorm.DB, base, provider, id string) (string, error) {
	base = sanitizeUsername(base)
	if base == "" {
		base = sanitizeUsername(fmt.Sprintf("%s_%s", provider, id))
		if base == "" {
			base = fmt.Sprintf("user_%s", id)
		}
	}

	candidate := base
	for suffix := 1; ; suffix++ {
		var count int64
		if err := db.Model(&models.User{}).Where("username = ?", candidate).Count(&count).Error; err != nil {
			return "", err
		}
		if count == 0 {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s_%d", base, suffix)
	}
}
