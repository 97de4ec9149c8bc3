package schemas

import (
	"time"

	"github.com/cppla/blogapi/models"
	"github.com/cppla/blogapi/utils"
)

// CategorySchema is used for every category read.
type CategorySchema struct {
	ID          uint      `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewCategorySchema projects a category.
func NewCategorySchema(c models.Category) CategorySchema {
	return CategorySchema{
		ID:          c.ID,
		Name:        c.Name,
		Description: c.Description,
		CreatedAt:   c.CreatedAt,
	}
}

// CategoryInput accepts the writable category fields on create and update.
type CategoryInput struct {
	Name        string `json:"name" binding:"required,max=100"`
	Description string `json:"description"`
}

// Apply copies sanitized input onto c.
func (in CategoryInput) Apply(c *models.Category) {
	c.Name = utils.SanitizePlain(in.Name)
	c.Description = utils.Sanitize(in.Description)
}
