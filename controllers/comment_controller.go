package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/cppla/blogapi/config"
	"github.com/cppla/blogapi/filters"
	"github.com/cppla/blogapi/models"
	"github.com/cppla/blogapi/permissions"
	"github.com/cppla/blogapi/schemas"
	"github.com/cppla/blogapi/utils"
)

// CommentController is the viewset for post comments. Unapproved comments are invisible to it.
type CommentController struct {
	db *gorm.DB
}

// NewCommentController creates a new CommentController instance.
func NewCommentController(db *gorm.DB) *CommentController {
	return &CommentController{db: db}
}

func (c *CommentController) queryset(ctx *gin.Context, f filters.CommentFilters) *gorm.DB {
	q := c.db.WithContext(ctx.Request.Context()).Model(&models.Comment{})
	if f.Post != nil {
		q = q.Where("comments.post_id = ?", *f.Post)
	}
	return q.Where("comments.is_approved = ?", true).Session(&gorm.Session{})
}

// ListComments returns approved comments, optionally for a single post, oldest first.
func (c *CommentController) ListComments(ctx *gin.Context) {
	if _, ok := requireUser(ctx); !ok {
		return
	}
	f, err := filters.ParseCommentFilters(ctx)
	if err != nil {
		utils.ValidationError(ctx, 40030, err)
		return
	}
	page := filters.ParsePagination(ctx)
	q := c.queryset(ctx, f)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		internalError(ctx, 50030, "failed to count comments", err)
		return
	}

	var comments []models.Comment
	err = q.Preload("Author").
		Order("comments.created_at ASC, comments.id ASC").
		Offset(page.Offset()).
		Limit(page.PageSize).
		Find(&comments).Error
	if err != nil {
		internalError(ctx, 50031, "failed to list comments", err)
		return
	}
	utils.Success(ctx, schemas.NewPage(schemas.NewCommentSchemas(comments), page.Page, page.PageSize, total))
}

// GetComment returns one approved comment.
func (c *CommentController) GetComment(ctx *gin.Context) {
	if _, ok := requireUser(ctx); !ok {
		return
	}
	comment, ok := c.load(ctx, 40430, 50032)
	if !ok {
		return
	}
	utils.Success(ctx, schemas.NewCommentSchema(*comment))
}

// CreateComment adds a comment authored by the requester to a post they can see.
func (c *CommentController) CreateComment(ctx *gin.Context) {
	user, ok := requireUser(ctx)
	if !ok {
		return
	}
	var in schemas.CommentCreateSchema
	if err := ctx.ShouldBindJSON(&in); err != nil {
		utils.ValidationError(ctx, 40031, err)
		return
	}

	var comment models.Comment
	in.Apply(&comment)
	if comment.Content == "" {
		fieldError(ctx, 40032, "content", "may not be blank")
		return
	}

	var post models.Post
	err := c.db.WithContext(ctx.Request.Context()).First(&post, comment.PostID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		fieldError(ctx, 40032, "post_id", "post does not exist")
		return
	}
	if err != nil {
		internalError(ctx, 50033, "failed to load post", err)
		return
	}
	if !permissions.IsPublishedPost(user, &post) {
		utils.Error(ctx, http.StatusForbidden, 40330, "you cannot comment on this post")
		return
	}

	c.performCreate(&comment, user)
	if err := c.db.WithContext(ctx.Request.Context()).Create(&comment).Error; err != nil {
		internalError(ctx, 50034, "failed to create comment", err)
		return
	}
	if err := c.db.WithContext(ctx.Request.Context()).Preload("Author").First(&comment, comment.ID).Error; err != nil {
		internalError(ctx, 50035, "failed to load comment", err)
		return
	}
	invalidatePostCaches(comment.PostID)
	utils.Created(ctx, schemas.NewCommentSchema(comment))
}

// performCreate stamps server-assigned fields before the row is written.
func (c *CommentController) performCreate(comment *models.Comment, user *models.User) {
	comment.ID = 0
	comment.AuthorID = user.ID
	comment.Author = models.User{}
	comment.IsApproved = config.Get().CommentsAutoApprove
}

// UpdateComment edits the body of a comment owned by the requester.
func (c *CommentController) UpdateComment(ctx *gin.Context) {
	user, ok := requireUser(ctx)
	if !ok {
		return
	}
	comment, ok := c.load(ctx, 40431, 50036)
	if !ok {
		return
	}
	if !permissions.IsCommentAuthor(user, comment) {
		utils.Error(ctx, http.StatusForbidden, 40331, "you can only update your own comments")
		return
	}

	var in schemas.CommentUpdateSchema
	if err := ctx.ShouldBindJSON(&in); err != nil {
		utils.ValidationError(ctx, 40033, err)
		return
	}
	in.Apply(comment)
	if comment.Content == "" {
		fieldError(ctx, 40034, "content", "may not be blank")
		return
	}
	if err := c.db.WithContext(ctx.Request.Context()).Model(comment).Update("content", comment.Content).Error; err != nil {
		internalError(ctx, 50037, "failed to update comment", err)
		return
	}
	invalidatePostCaches(comment.PostID)
	utils.Success(ctx, schemas.NewCommentSchema(*comment))
}

// DeleteComment allows the comment owner or an admin to delete a comment.
func (c *CommentController) DeleteComment(ctx *gin.Context) {
	user, ok := requireUser(ctx)
	if !ok {
		return
	}
	comment, ok := c.load(ctx, 40432, 50038)
	if !ok {
		return
	}
	if !permissions.CanModifyComment(user, comment, config.Get().AdminUsernames) {
		utils.Error(ctx, http.StatusForbidden, 40332, "you can only delete your own comments")
		return
	}
	if err := c.db.WithContext(ctx.Request.Context()).Delete(&models.Comment{}, comment.ID).Error; err != nil {
		internalError(ctx, 50039, "failed to delete comment", err)
		return
	}
	invalidatePostCaches(comment.PostID)
	utils.Success(ctx, gin.H{"message": "comment deleted"})
}

// ApproveComment publishes a pending comment. Admin only; it is the one path that sees unapproved comments.
func (c *CommentController) ApproveComment(ctx *gin.Context) {
	user, ok := requireUser(ctx)
	if !ok {
		return
	}
	if !permissions.IsAdmin(user, config.Get().AdminUsernames) {
		utils.Error(ctx, http.StatusForbidden, 40333, "only admins can approve comments")
		return
	}
	id, ok := idParam(ctx, 40433, "comment")
	if !ok {
		return
	}

	var comment models.Comment
	if err := c.db.WithContext(ctx.Request.Context()).Preload("Author").First(&comment, id).Error; err != nil {
		lookupFailed(ctx, err, 40433, 50040, "comment")
		return
	}
	if !comment.IsApproved {
		if err := c.db.WithContext(ctx.Request.Context()).Model(&comment).Update("is_approved", true).Error; err != nil {
			internalError(ctx, 50041, "failed to approve comment", err)
			return
		}
		comment.IsApproved = true
		invalidatePostCaches(comment.PostID)
	}
	utils.Success(ctx, schemas.NewCommentSchema(comment))
}

// load resolves :id through the approved-only queryset, replying 404/500 itself on failure.
func (c *CommentController) load(ctx *gin.Context, notFoundCode, internalCode int) (*models.Comment, bool) {
	id, ok := idParam(ctx, notFoundCode, "comment")
	if !ok {
		return nil, false
	}
	f, err := filters.ParseCommentFilters(ctx)
	if err != nil {
		utils.ValidationError(ctx, 40035, err)
		return nil, false
	}
	var comment models.Comment
	if err := c.queryset(ctx, f).Preload("Author").First(&comment, id).Error; err != nil {
		lookupFailed(ctx, err, notFoundCode, internalCode, "comment")
		return nil, false
	}
	return &comment, true
}

// invalidatePostCaches drops cached post views that embed comments or comment counts.
func invalidatePostCaches(postID uint) {
	(&PostController{}).invalidate(postID)
}
