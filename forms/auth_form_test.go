package forms_test

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppla/yatube/forms"
	"github.com/cppla/yatube/testutil"
)

func signupContext(values url.Values) *gin.Context {
	gin.SetMode(gin.TestMode)
	ctx, _ := gin.CreateTestContext(httptest.NewRecorder())
	req := httptest.NewRequest(http.MethodPost, "/auth/signup/", strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	ctx.Request = req
	return ctx
}

func TestSignupFormValidation(t *testing.T) {
	db := testutil.Setup(t)
	testutil.CreateUser(t, db, "taken")

	tests := []struct {
		name       string
		values     url.Values
		wantValid  bool
		errorField string
	}{
		{"valid", url.Values{"username": {"newbie"}, "password": {"longenough"}, "password2": {"longenough"}}, true, ""},
		{"mismatch", url.Values{"username": {"newbie"}, "password": {"longenough"}, "password2": {"different1"}}, false, "password2"},
		{"short password", url.Values{"username": {"newbie"}, "password": {"short"}, "password2": {"short"}}, false, "password"},
		{"bad characters", url.Values{"username": {"new bie!"}, "password": {"longenough"}, "password2": {"longenough"}}, false, "username"},
		{"taken", url.Values{"username": {"taken"}, "password": {"longenough"}, "password2": {"longenough"}}, false, "username"},
		{"missing username", url.Values{"password": {"longenough"}, "password2": {"longenough"}}, false, "username"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			form := forms.BindSignupForm(signupContext(tt.values))
			valid, err := form.IsValid(db)
			require.NoError(t, err)
			assert.Equal(t, tt.wantValid, valid, "errors: %v", form.Errors)
			if tt.errorField != "" {
				assert.True(t, form.Errors.Has(tt.errorField), "errors: %v", form.Errors)
			}
		})
	}
}

func TestLoginFormBinding(t *testing.T) {
	form := forms.BindLoginForm(signupContext(url.Values{"username": {" leo "}, "next": {"/create/"}}))
	assert.Equal(t, "leo", form.Username)
	assert.Equal(t, "/create/", form.Next)
	assert.True(t, form.Errors.Has("password"))
}

func TestValidUsername(t *testing.T) {
	assert.True(t, forms.ValidUsername("leo.tolstoy+1@x_y-z"))
	assert.True(t, forms.ValidUsername("лев"))
	assert.False(t, forms.ValidUsername("with space"))
	assert.False(t, forms.ValidUsername(""))
}
