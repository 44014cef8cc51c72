package models

import (
	"errors"
	"regexp"
	"time"

	"gorm.io/gorm"
)

// ErrGroupNotFound is returned when a slug does not resolve to a group.
var ErrGroupNotFound = errors.New("group not found")

var slugPattern = regexp.MustCompile(`^[-a-zA-Z0-9_]+$`)

// Group is a themed community posts can optionally belong to.
type Group struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Title       string    `gorm:"size:200;not null" json:"title"`
	Slug        string    `gorm:"size:50;uniqueIndex;not null" json:"slug"`
	Description string    `gorm:"type:text" json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

func (g Group) String() string {
	return g.Title
}

// ValidSlug reports whether s is usable as a group URL segment.
func ValidSlug(s string) bool {
	return len(s) <= 50 && slugPattern.MatchString(s)
}

// FindGroupBySlug loads a group or returns ErrGroupNotFound.
func FindGroupBySlug(db *gorm.DB, slug string) (*Group, error) {
	var group Group
	if err := db.Where("slug = ?", slug).First(&group).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGroupNotFound
		}
		return nil, err
	}
	return &group, nil
}

// DeleteGroup removes a group. Its posts survive with no group.
// It returns how many posts were detached.
func DeleteGroup(db *gorm.DB, group *Group) (int64, error) {
	var detached int64
	err := db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&Post{}).Where("group_id = ?", group.ID).Update("group_id", nil)
		if res.Error != nil {
			return res.Error
		}
		detached = res.RowsAffected
		return tx.Delete(group).Error
	})
	return detached, err
}
