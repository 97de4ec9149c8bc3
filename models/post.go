package models

import "time"

// Post represents a blog post written by a user inside one category.
type Post struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Title       string    `gorm:"size:200;not null" json:"title"`
	Content     string    `gorm:"type:text;not null" json:"content"`
	CategoryID  uint      `gorm:"index;not null" json:"category_id"`
	AuthorID    uint      `gorm:"index;not null" json:"author_id"`
	Tags        string    `gorm:"size:200" json:"tags"`
	IsPublished bool      `gorm:"index;not null;default:false" json:"is_published"`
	CreatedAt   time.Time `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Category    Category  `gorm:"constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;" json:"category"`
	Author      User      `gorm:"foreignKey:AuthorID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"author"`
	Comments    []Comment `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"comments"`

	// Not persisted; filled at query time for list views
	CommentCount int64 `gorm:"-" json:"comment_count"`
}
