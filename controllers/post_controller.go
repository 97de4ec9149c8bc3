package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/cppla/blogapi/filters"
	"github.com/cppla/blogapi/models"
	"github.com/cppla/blogapi/permissions"
	"github.com/cppla/blogapi/schemas"
	"github.com/cppla/blogapi/utils"
)

const (
	postCacheNamespace    = "posts"
	postListCachePrefix   = "cache:posts:list:"
	postDetailCachePrefix = "cache:post:detail:"
)

// PostController is the viewset for blog posts with filtering and pagination.
type PostController struct {
	db *gorm.DB
}

// NewPostController creates a new PostController instance.
func NewPostController(db *gorm.DB) *PostController {
	return &PostController{db: db}
}

// queryset builds the filtered post query for op. Relations are attached separately by withRelations.
func (p *PostController) queryset(ctx *gin.Context, op operation, user *models.User, f filters.PostFilters) *gorm.DB {
	q := p.db.WithContext(ctx.Request.Context()).Model(&models.Post{})

	if f.Category != nil {
		q = q.Where("posts.category_id = ?", *f.Category)
	}
	if f.Tag != "" {
		q = q.Where("LOWER(posts.tags) LIKE ? ESCAPE '!'", likeContains(f.Tag))
	}
	if f.MyPosts {
		q = q.Where("posts.author_id = ?", user.ID)
	} else if op == opList {
		q = q.Where("posts.is_published = ?", true)
	}
	return q.Session(&gorm.Session{})
}

// withRelations preloads what the schema for op needs.
func withRelations(q *gorm.DB, op operation) *gorm.DB {
	q = q.Preload("Author").Preload("Category")
	if op == opRetrieve {
		q = q.Preload("Comments", func(db *gorm.DB) *gorm.DB {
			return db.Where("is_approved = ?", true).Order("created_at ASC, id ASC")
		}).Preload("Comments.Author")
	}
	return q
}

// annotateCommentCounts fills CommentCount with the number of approved comments per post.
func (p *PostController) annotateCommentCounts(ctx *gin.Context, posts []models.Post) error {
	if len(posts) == 0 {
		return nil
	}
	ids := make([]uint, 0, len(posts))
	for _, post := range posts {
		ids = append(ids, post.ID)
	}
	var rows []struct {
		PostID uint
		Total  int64
	}
	err := p.db.WithContext(ctx.Request.Context()).
		Model(&models.Comment{}).
		Select("post_id, COUNT(*) AS total").
		Where("post_id IN ? AND is_approved = ?", ids, true).
		Group("post_id").
		Scan(&rows).Error
	if err != nil {
		return err
	}
	counts := make(map[uint]int64, len(rows))
	for _, r := range rows {
		counts[r.PostID] = r.Total
	}
	for i := range posts {
		posts[i].CommentCount = counts[posts[i].ID]
	}
	return nil
}

// ListPosts returns published posts (or the requester's own with my_posts) using the list schema.
func (p *PostController) ListPosts(ctx *gin.Context) {
	user, ok := requireUser(ctx)
	if !ok {
		return
	}
	f, err := filters.ParsePostFilters(ctx)
	if err != nil {
		utils.ValidationError(ctx, 40010, err)
		return
	}
	page := filters.ParsePagination(ctx)

	// Only the shared, unsearched listing is cached; my_posts and tag results are per-user or unbounded
	cacheKey := ""
	if !f.MyPosts && f.Tag == "" {
		if gen, ok := utils.CacheGeneration(postCacheNamespace); ok {
			cacheKey = postListCacheKey(gen, f, page)
			if b, ok := utils.CacheGetBytes(cacheKey); ok {
				ctx.Data(http.StatusOK, "application/json", b)
				return
			}
		}
	}

	q := p.queryset(ctx, opList, user, f)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		internalError(ctx, 50010, "failed to count posts", err)
		return
	}

	var posts []models.Post
	err = withRelations(q, opList).
		Order("posts.created_at DESC, posts.id DESC").
		Offset(page.Offset()).
		Limit(page.PageSize).
		Find(&posts).Error
	if err != nil {
		internalError(ctx, 50011, "failed to list posts", err)
		return
	}
	if err := p.annotateCommentCounts(ctx, posts); err != nil {
		internalError(ctx, 50012, "failed to count comments", err)
		return
	}

	items := make([]schemas.PostListSchema, 0, len(posts))
	for _, post := range posts {
		items = append(items, schemas.NewPostListSchema(post))
	}
	payload := schemas.NewPage(items, page.Page, page.PageSize, total)
	if cacheKey != "" {
		utils.CacheSuccess(cacheKey, payload)
	}
	utils.Success(ctx, payload)
}

// GetPost returns a single post with its approved comments using the detail schema.
func (p *PostController) GetPost(ctx *gin.Context) {
	user, ok := requireUser(ctx)
	if !ok {
		return
	}
	id, ok := idParam(ctx, 40410, "post")
	if !ok {
		return
	}
	f, err := filters.ParsePostFilters(ctx)
	if err != nil {
		utils.ValidationError(ctx, 40011, err)
		return
	}

	cacheKey := ""
	if f.IsZero() {
		if gen, ok := utils.CacheGeneration(postCacheNamespace); ok {
			cacheKey = postDetailCacheKey(gen, id)
			if b, ok := utils.CacheGetBytes(cacheKey); ok {
				if p.stillVisible(ctx, user, id) {
					ctx.Data(http.StatusOK, "application/json", b)
					return
				}
				utils.CacheDelete(cacheKey)
			}
		}
	}

	var post models.Post
	if err := withRelations(p.queryset(ctx, opRetrieve, user, f), opRetrieve).First(&post, id).Error; err != nil {
		lookupFailed(ctx, err, 40410, 50013, "post")
		return
	}
	if !permissions.IsPublishedPost(user, &post) {
		utils.Error(ctx, http.StatusForbidden, 40310, "you do not have permission to view this post")
		return
	}

	payload := schemas.NewPostDetailSchema(post)
	// only published posts are cached, and those are visible to everyone
	if cacheKey != "" && post.IsPublished {
		utils.CacheSuccess(cacheKey, payload)
	}
	utils.Success(ctx, payload)
}

// CreatePost persists a new post authored by the requester regardless of the payload.
func (p *PostController) CreatePost(ctx *gin.Context) {
	user, ok := requireUser(ctx)
	if !ok {
		return
	}
	var in schemas.PostCreateSchema
	if err := ctx.ShouldBindJSON(&in); err != nil {
		utils.ValidationError(ctx, 40012, err)
		return
	}

	var post models.Post
	in.Apply(&post)
	if !p.validatePost(ctx, &post, 40013) {
		return
	}
	p.performCreate(&post, user)

	if err := p.db.WithContext(ctx.Request.Context()).Create(&post).Error; err != nil {
		internalError(ctx, 50014, "failed to create post", err)
		return
	}
	p.invalidate(post.ID)

	created, err := p.reload(ctx, post.ID)
	if err != nil {
		internalError(ctx, 50015, "failed to load post", err)
		return
	}
	utils.Created(ctx, schemas.NewPostDetailSchema(*created))
}

// performCreate stamps server-assigned fields before the row is written.
func (p *PostController) performCreate(post *models.Post, user *models.User) {
	post.ID = 0
	post.AuthorID = user.ID
	post.Author = models.User{}
}

// UpdatePost replaces the writable fields of a post owned by the requester.
func (p *PostController) UpdatePost(ctx *gin.Context) {
	user, ok := requireUser(ctx)
	if !ok {
		return
	}
	id, ok := idParam(ctx, 40411, "post")
	if !ok {
		return
	}
	f, err := filters.ParsePostFilters(ctx)
	if err != nil {
		utils.ValidationError(ctx, 40014, err)
		return
	}

	var post models.Post
	if err := p.queryset(ctx, opUpdate, user, f).First(&post, id).Error; err != nil {
		lookupFailed(ctx, err, 40411, 50016, "post")
		return
	}
	if !permissions.IsPostAuthor(user, &post) {
		utils.Error(ctx, http.StatusForbidden, 40311, "you can only update your own posts")
		return
	}

	var in schemas.PostCreateSchema
	if err := ctx.ShouldBindJSON(&in); err != nil {
		utils.ValidationError(ctx, 40015, err)
		return
	}
	in.Apply(&post)
	if !p.validatePost(ctx, &post, 40016) {
		return
	}

	err = p.db.WithContext(ctx.Request.Context()).Model(&post).Updates(map[string]interface{}{
		"title":        post.Title,
		"content":      post.Content,
		"category_id":  post.CategoryID,
		"is_published": post.IsPublished,
		"tags":         post.Tags,
	}).Error
	if err != nil {
		internalError(ctx, 50017, "failed to update post", err)
		return
	}
	p.invalidate(post.ID)

	updated, err := p.reload(ctx, post.ID)
	if err != nil {
		internalError(ctx, 50018, "failed to load post", err)
		return
	}
	utils.Success(ctx, schemas.NewPostDetailSchema(*updated))
}

// DeletePost removes a post owned by the requester together with its comments.
func (p *PostController) DeletePost(ctx *gin.Context) {
	user, ok := requireUser(ctx)
	if !ok {
		return
	}
	id, ok := idParam(ctx, 40412, "post")
	if !ok {
		return
	}
	f, err := filters.ParsePostFilters(ctx)
	if err != nil {
		utils.ValidationError(ctx, 40017, err)
		return
	}

	var post models.Post
	if err := p.queryset(ctx, opDelete, user, f).First(&post, id).Error; err != nil {
		lookupFailed(ctx, err, 40412, 50019, "post")
		return
	}
	if !permissions.IsPostAuthor(user, &post) {
		utils.Error(ctx, http.StatusForbidden, 40312, "you can only delete your own posts")
		return
	}

	err = p.db.WithContext(ctx.Request.Context()).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("post_id = ?", post.ID).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		return tx.Delete(&post).Error
	})
	if err != nil {
		internalError(ctx, 50020, "failed to delete post", err)
		return
	}
	p.invalidate(post.ID)
	utils.Success(ctx, gin.H{"message": "post deleted"})
}

// validatePost rejects blank fields left after sanitizing and unknown categories.
func (p *PostController) validatePost(ctx *gin.Context, post *models.Post, code int) bool {
	if post.Title == "" {
		fieldError(ctx, code, "title", "may not be blank")
		return false
	}
	if post.Content == "" {
		fieldError(ctx, code, "content", "may not be blank")
		return false
	}
	var category models.Category
	err := p.db.WithContext(ctx.Request.Context()).Select("id").First(&category, post.CategoryID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		fieldError(ctx, code, "category_id", "category does not exist")
		return false
	}
	if err != nil {
		internalError(ctx, 50021, "failed to load category", err)
		return false
	}
	return true
}

func (p *PostController) reload(ctx *gin.Context, id uint) (*models.Post, error) {
	var post models.Post
	q := p.db.WithContext(ctx.Request.Context()).Model(&models.Post{})
	if err := withRelations(q, opRetrieve).First(&post, id).Error; err != nil {
		return nil, err
	}
	return &post, nil
}

// stillVisible re-checks a cached detail against the current row. A payload written by a request
// that raced an unpublish must not be replayed to anyone but the author.
func (p *PostController) stillVisible(ctx *gin.Context, user *models.User, id uint) bool {
	var post models.Post
	err := p.db.WithContext(ctx.Request.Context()).
		Select("id", "is_published", "author_id").
		First(&post, id).Error
	return err == nil && permissions.IsPublishedPost(user, &post)
}

// invalidate retires every cached post view and frees the keys of postID.
func (p *PostController) invalidate(postID uint) {
	utils.BumpCacheGeneration(postCacheNamespace)
	utils.InvalidateByPrefix(postListCachePrefix)
	utils.InvalidateByPrefix(fmt.Sprintf("%s%d:", postDetailCachePrefix, postID))
}

func postListCacheKey(gen int64, f filters.PostFilters, page filters.Pagination) string {
	category := ""
	if f.Category != nil {
		category = strconv.FormatUint(uint64(*f.Category), 10)
	}
	return fmt.Sprintf("%sgen=%d:cat=%s:page=%d:size=%d", postListCachePrefix, gen, category, page.Page, page.PageSize)
}

func postDetailCacheKey(gen int64, id uint) string {
	return fmt.Sprintf("%s%d:gen=%d", postDetailCachePrefix, id, gen)
}
