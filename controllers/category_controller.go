package controllers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/cppla/blogapi/filters"
	"github.com/cppla/blogapi/models"
	"github.com/cppla/blogapi/schemas"
	"github.com/cppla/blogapi/utils"
)

const (
	categoryCacheNamespace = "categories"
	categoryCachePrefix    = "cache:categories:"
)

// CategoryController is the viewset for post categories.
type CategoryController struct {
	db *gorm.DB
}

// NewCategoryController creates a new CategoryController instance.
func NewCategoryController(db *gorm.DB) *CategoryController {
	return &CategoryController{db: db}
}

// ListCategories returns categories ordered by name.
func (c *CategoryController) ListCategories(ctx *gin.Context) {
	if _, ok := requireUser(ctx); !ok {
		return
	}
	page := filters.ParsePagination(ctx)
	cacheKey := ""
	if gen, ok := utils.CacheGeneration(categoryCacheNamespace); ok {
		cacheKey = fmt.Sprintf("%slist:gen=%d:page=%d:size=%d", categoryCachePrefix, gen, page.Page, page.PageSize)
		if b, ok := utils.CacheGetBytes(cacheKey); ok {
			ctx.Data(http.StatusOK, "application/json", b)
			return
		}
	}

	q := c.db.WithContext(ctx.Request.Context()).Model(&models.Category{}).Session(&gorm.Session{})
	var total int64
	if err := q.Count(&total).Error; err != nil {
		internalError(ctx, 50050, "failed to count categories", err)
		return
	}
	var categories []models.Category
	if err := q.Order("name ASC, id ASC").Offset(page.Offset()).Limit(page.PageSize).Find(&categories).Error; err != nil {
		internalError(ctx, 50051, "failed to list categories", err)
		return
	}

	items := make([]schemas.CategorySchema, 0, len(categories))
	for _, category := range categories {
		items = append(items, schemas.NewCategorySchema(category))
	}
	payload := schemas.NewPage(items, page.Page, page.PageSize, total)
	if cacheKey != "" {
		utils.CacheSuccess(cacheKey, payload)
	}
	utils.Success(ctx, payload)
}

// GetCategory returns one category.
func (c *CategoryController) GetCategory(ctx *gin.Context) {
	if _, ok := requireUser(ctx); !ok {
		return
	}
	category, ok := c.load(ctx, 40450, 50052)
	if !ok {
		return
	}
	utils.Success(ctx, schemas.NewCategorySchema(*category))
}

// CreateCategory adds a category with a unique name.
func (c *CategoryController) CreateCategory(ctx *gin.Context) {
	if _, ok := requireUser(ctx); !ok {
		return
	}
	var in schemas.CategoryInput
	if err := ctx.ShouldBindJSON(&in); err != nil {
		utils.ValidationError(ctx, 40050, err)
		return
	}
	var category models.Category
	in.Apply(&category)
	if !c.validateName(ctx, &category, 40051) {
		return
	}
	if err := c.db.WithContext(ctx.Request.Context()).Create(&category).Error; err != nil {
		internalError(ctx, 50053, "failed to create category", err)
		return
	}
	utils.BumpCacheGeneration(categoryCacheNamespace)
	utils.InvalidateByPrefix(categoryCachePrefix)
	utils.Created(ctx, schemas.NewCategorySchema(category))
}

// UpdateCategory replaces the name and description of a category.
func (c *CategoryController) UpdateCategory(ctx *gin.Context) {
	if _, ok := requireUser(ctx); !ok {
		return
	}
	category, ok := c.load(ctx, 40451, 50054)
	if !ok {
		return
	}
	var in schemas.CategoryInput
	if err := ctx.ShouldBindJSON(&in); err != nil {
		utils.ValidationError(ctx, 40052, err)
		return
	}
	in.Apply(category)
	if !c.validateName(ctx, category, 40053) {
		return
	}
	err := c.db.WithContext(ctx.Request.Context()).Model(category).Updates(map[string]interface{}{
		"name":        category.Name,
		"description": category.Description,
	}).Error
	if err != nil {
		internalError(ctx, 50055, "failed to update category", err)
		return
	}
	c.invalidate()
	utils.Success(ctx, schemas.NewCategorySchema(*category))
}

// DeleteCategory removes a category that no post refers to.
func (c *CategoryController) DeleteCategory(ctx *gin.Context) {
	if _, ok := requireUser(ctx); !ok {
		return
	}
	category, ok := c.load(ctx, 40452, 50056)
	if !ok {
		return
	}
	var inUse int64
	if err := c.db.WithContext(ctx.Request.Context()).Model(&models.Post{}).Where("category_id = ?", category.ID).Count(&inUse).Error; err != nil {
		internalError(ctx, 50057, "failed to check category usage", err)
		return
	}
	if inUse > 0 {
		utils.Error(ctx, http.StatusConflict, 40950, "category still has posts")
		return
	}
	if err := c.db.WithContext(ctx.Request.Context()).Delete(&models.Category{}, category.ID).Error; err != nil {
		internalError(ctx, 50058, "failed to delete category", err)
		return
	}
	c.invalidate()
	utils.Success(ctx, gin.H{"message": "category deleted"})
}

// validateName rejects blank names and names already taken by another category.
func (c *CategoryController) validateName(ctx *gin.Context, category *models.Category, code int) bool {
	if category.Name == "" {
		fieldError(ctx, code, "name", "may not be blank")
		return false
	}
	var existing models.Category
	err := c.db.WithContext(ctx.Request.Context()).
		Where("name = ? AND id <> ?", category.Name, category.ID).
		First(&existing).Error
	if err == nil {
		utils.Respond(ctx, http.StatusConflict, 40951, "category already exists",
			gin.H{"fields": map[string]string{"name": "category with this name already exists"}})
		return false
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		internalError(ctx, 50059, "failed to check category name", err)
		return false
	}
	return true
}

func (c *CategoryController) load(ctx *gin.Context, notFoundCode, internalCode int) (*models.Category, bool) {
	id, ok := idParam(ctx, notFoundCode, "category")
	if !ok {
		return nil, false
	}
	var category models.Category
	if err := c.db.WithContext(ctx.Request.Context()).First(&category, id).Error; err != nil {
		lookupFailed(ctx, err, notFoundCode, internalCode, "category")
		return nil, false
	}
	return &category, true
}

// invalidate drops category listings and post views, which embed the category.
func (c *CategoryController) invalidate() {
	utils.BumpCacheGeneration(categoryCacheNamespace)
	utils.BumpCacheGeneration(postCacheNamespace)
	utils.InvalidateByPrefix(categoryCachePrefix)
	utils.InvalidateByPrefix(postListCachePrefix)
	utils.InvalidateByPrefix(postDetailCachePrefix)
}
