package schemas

import (
	"time"

	"github.com/cppla/blogapi/models"
	"github.com/cppla/blogapi/utils"
)

// CommentSchema is used for comment reads and for comments nested in a post detail.
type CommentSchema struct {
	ID         uint       `json:"id"`
	Content    string     `json:"content"`
	CreatedAt  time.Time  `json:"created_at"`
	IsApproved bool       `json:"is_approved"`
	Author     UserSchema `json:"author"`
}

// NewCommentSchema projects a comment; Author must be preloaded.
func NewCommentSchema(c models.Comment) CommentSchema {
	return CommentSchema{
		ID:         c.ID,
		Content:    c.Content,
		CreatedAt:  c.CreatedAt,
		IsApproved: c.IsApproved,
		Author:     NewUserSchema(c.Author),
	}
}

// NewCommentSchemas projects a slice of comments, never returning nil.
func NewCommentSchemas(comments []models.Comment) []CommentSchema {
	out := make([]CommentSchema, 0, len(comments))
	for _, c := range comments {
		out = append(out, NewCommentSchema(c))
	}
	return out
}

// CommentCreateSchema accepts a new comment. The author is always the requester.
type CommentCreateSchema struct {
	Content string `json:"content" binding:"required"`
	PostID  uint   `json:"post_id" binding:"required,gt=0"`
}

// Apply copies sanitized input onto c.
func (in CommentCreateSchema) Apply(c *models.Comment) {
	c.Content = utils.Sanitize(in.Content)
	c.PostID = in.PostID
}

// CommentUpdateSchema accepts an edited comment body.
type CommentUpdateSchema struct {
	Content string `json:"content" binding:"required"`
}

// Apply copies sanitized input onto c.
func (in CommentUpdateSchema) Apply(c *models.Comment) {
	c.Content = utils.Sanitize(in.Content)
}
