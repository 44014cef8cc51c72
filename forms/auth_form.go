package forms

import (
	"strings"
	"unicode"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/cppla/yatube/models"
)

// SignupForm registers a local account.
type SignupForm struct {
	Username  string      `form:"username" binding:"required,max=150"`
	Password  string      `form:"password" binding:"required,min=8,max=128"`
	Password2 string      `form:"password2" binding:"required,eqfield=Password"`
	Next      string      `form:"next"`
	Errors    FieldErrors `form:"-"`
}

// LoginForm signs into a local account.
type LoginForm struct {
	Username string      `form:"username" binding:"required"`
	Password string      `form:"password" binding:"required"`
	Next     string      `form:"next"`
	Errors   FieldErrors `form:"-"`
}

func BindSignupForm(ctx *gin.Context) *SignupForm {
	form := &SignupForm{}
	form.Errors = bind(ctx, form)
	form.Username = strings.TrimSpace(form.Username)
	return form
}

func BindLoginForm(ctx *gin.Context) *LoginForm {
	form := &LoginForm{}
	form.Errors = bind(ctx, form)
	form.Username = strings.TrimSpace(form.Username)
	return form
}

// IsValid checks the username alphabet and that the name is still free.
func (f *SignupForm) IsValid(db *gorm.DB) (bool, error) {
	if f.Username != "" && !ValidUsername(f.Username) {
		f.Errors.Add("username", "Enter a valid username. This value may contain only letters, numbers, and @/./+/-/_ characters.")
	}
	if !f.Errors.Has("username") {
		var count int64
		if err := db.Model(&models.User{}).Where("username = ?", f.Username).Count(&count).Error; err != nil {
			return false, err
		}
		if count > 0 {
			f.Errors.Add("username", "A user with that username already exists.")
		}
	}
	return len(f.Errors) == 0, nil
}

// ValidUsername allows letters, digits and @ . + - _.
func ValidUsername(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || strings.ContainsRune("@.+-_", r) {
			continue
		}
		return false
	}
	return true
}
