package forms

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/cppla/yatube/models"
)

// ErrInvalidGroup is reported when the chosen group does not exist.
var ErrInvalidGroup = errors.New("invalid group")

const msgInvalidGroup = "Select a valid group."

// PostForm is the create/edit form for a post. Group holds the group id or "" for none.
type PostForm struct {
	Text   string      `form:"text" binding:"required"`
	Group  string      `form:"group"`
	Errors FieldErrors `form:"-"`

	group *models.Group
}

// BindPostForm reads the submitted fields. Binding failures become field errors, never a hard error.
func BindPostForm(ctx *gin.Context) *PostForm {
	form := &PostForm{}
	form.Errors = bind(ctx, form)
	return form
}

// PostFormFromPost prefills the form with an existing post.
func PostFormFromPost(post *models.Post) *PostForm {
	form := &PostForm{Text: post.Text, Errors: FieldErrors{}}
	if post.GroupID != nil {
		form.Group = strconv.FormatUint(uint64(*post.GroupID), 10)
	}
	return form
}

// IsValid trims the text and resolves the group. The error is only for storage failures.
func (f *PostForm) IsValid(db *gorm.DB) (bool, error) {
	if f.Errors == nil {
		f.Errors = FieldErrors{}
	}

	f.Text = strings.TrimSpace(f.Text)
	if f.Text == "" {
		f.Errors.Add("text", msgRequired)
	}

	group, err := resolveGroup(db, f.Group)
	switch {
	case errors.Is(err, ErrInvalidGroup):
		f.Errors.Add("group", msgInvalidGroup)
	case err != nil:
		return false, err
	}
	f.group = group

	return len(f.Errors) == 0, nil
}

// resolveGroup maps the submitted group id to a stored group. Blank means no group.
func resolveGroup(db *gorm.DB, raw string) (*models.Group, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return nil, ErrInvalidGroup
	}
	var group models.Group
	if err := db.First(&group, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidGroup
		}
		return nil, fmt.Errorf("load group %d: %w", id, err)
	}
	return &group, nil
}

// GroupID is the resolved group id, nil when no group was chosen. Valid only after IsValid.
func (f *PostForm) GroupID() *uint {
	if f.group == nil {
		return nil
	}
	id := f.group.ID
	return &id
}

// NewPost builds an unsaved post authored by author.
func (f *PostForm) NewPost(author *models.User) models.Post {
	return models.Post{Text: f.Text, AuthorID: author.ID, GroupID: f.GroupID()}
}

// Apply copies the editable fields onto post.
func (f *PostForm) Apply(post *models.Post) {
	post.Text = f.Text
	post.GroupID = f.GroupID()
	post.Group = f.group
}

// Selected reports whether the group option with id is the current choice; used by templates.
func (f *PostForm) Selected(id uint) bool {
	return f.Group == strconv.FormatUint(uint64(id), 10)
}
