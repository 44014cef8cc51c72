package models

import (
	"time"

	"gorm.io/gorm"
)

// Post is a short text entry by an author, optionally filed under a group.
type Post struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Text      string    `gorm:"type:text;not null" json:"text"`
	PubDate   time.Time `gorm:"index;not null" json:"pub_date"`
	AuthorID  uint      `gorm:"index;not null" json:"author_id"`
	GroupID   *uint     `gorm:"index" json:"group_id"`
	UpdatedAt time.Time `json:"updated_at"`
	Author    User      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"author"`
	Group     *Group    `gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL;" json:"group,omitempty"`
}

// BeforeCreate stamps the publication date once; edits never move it.
func (p *Post) BeforeCreate(tx *gorm.DB) error {
	if p.PubDate.IsZero() {
		p.PubDate = time.Now()
	}
	return nil
}

// String returns the first 15 characters of the text.
func (p Post) String() string {
	r := []rune(p.Text)
	if len(r) > 15 {
		return string(r[:15])
	}
	return p.Text
}

// IsAuthor reports whether user wrote the post.
func (p Post) IsAuthor(user *User) bool {
	return user != nil && p.AuthorID == user.ID
}

// NewestFirst orders posts by publication date descending. Ties fall back to id.
func NewestFirst(db *gorm.DB) *gorm.DB {
	return db.Order("pub_date DESC").Order("id DESC")
}

// InGroup limits a post query to one group.
func InGroup(groupID uint) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("group_id = ?", groupID)
	}
}

// ByAuthor limits a post query to one author.
func ByAuthor(authorID uint) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("author_id = ?", authorID)
	}
}
