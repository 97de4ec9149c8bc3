package schemas

import (
	"strings"
	"time"

	"github.com/cppla/blogapi/models"
	"github.com/cppla/blogapi/utils"
)

// PostListSchema is the lightweight list projection with an aggregate comment count.
type PostListSchema struct {
	ID           uint           `json:"id"`
	Title        string         `json:"title"`
	Category     CategorySchema `json:"category"`
	Author       UserSchema     `json:"author"`
	CreatedAt    time.Time      `json:"created_at"`
	IsPublished  bool           `json:"is_published"`
	Tags         string         `json:"tags"`
	CommentCount int64          `json:"comment_count"`
}

// NewPostListSchema projects a post; Author and Category must be preloaded and CommentCount filled.
func NewPostListSchema(p models.Post) PostListSchema {
	return PostListSchema{
		ID:           p.ID,
		Title:        p.Title,
		Category:     NewCategorySchema(p.Category),
		Author:       NewUserSchema(p.Author),
		CreatedAt:    p.CreatedAt,
		IsPublished:  p.IsPublished,
		Tags:         p.Tags,
		CommentCount: p.CommentCount,
	}
}

// PostDetailSchema is the full projection with nested comments.
type PostDetailSchema struct {
	ID          uint            `json:"id"`
	Title       string          `json:"title"`
	Content     string          `json:"content"`
	ContentHTML string          `json:"content_html"`
	Category    CategorySchema  `json:"category"`
	Author      UserSchema      `json:"author"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	IsPublished bool            `json:"is_published"`
	Tags        string          `json:"tags"`
	Comments    []CommentSchema `json:"comments"`
}

// NewPostDetailSchema projects a post with whatever comments were preloaded.
func NewPostDetailSchema(p models.Post) PostDetailSchema {
	return PostDetailSchema{
		ID:          p.ID,
		Title:       p.Title,
		Content:     p.Content,
		ContentHTML: utils.RenderMarkdown(p.Content),
		Category:    NewCategorySchema(p.Category),
		Author:      NewUserSchema(p.Author),
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
		IsPublished: p.IsPublished,
		Tags:        p.Tags,
		Comments:    NewCommentSchemas(p.Comments),
	}
}

// PostCreateSchema accepts only writable post fields; used for create and update.
// There is no author field: the author is always the requester.
type PostCreateSchema struct {
	Title       string  `json:"title" binding:"required,max=200"`
	Content     string  `json:"content" binding:"required"`
	CategoryID  uint    `json:"category_id" binding:"required,gt=0"`
	IsPublished *bool   `json:"is_published"`
	Tags        *string `json:"tags" binding:"omitempty,max=200"`
}

// Apply copies sanitized input onto p. Omitted optional fields fall back to their defaults.
func (in PostCreateSchema) Apply(p *models.Post) {
	p.Title = utils.SanitizePlain(in.Title)
	p.Content = utils.Sanitize(in.Content)
	p.CategoryID = in.CategoryID
	p.IsPublished = in.IsPublished != nil && *in.IsPublished
	p.Tags = ""
	if in.Tags != nil {
		p.Tags = strings.TrimSpace(utils.SanitizePlain(*in.Tags))
	}
}
