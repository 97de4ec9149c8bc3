package schemas

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cppla/blogapi/models"
)

func TestNewPage(t *testing.T) {
	p := NewPage([]int(nil), 2, 10, 21)
	assert.NotNil(t, p.Items)
	assert.Equal(t, PageMeta{Page: 2, PageSize: 10, Total: 21, TotalPages: 3}, p.Pagination)

	assert.Equal(t, 0, NewPage([]int{}, 1, 10, 0).Pagination.TotalPages)
}

func TestPostCreateSchemaApply(t *testing.T) {
	published := true
	tags := "  go, <b>web</b> "
	post := models.Post{ID: 7, AuthorID: 3, IsPublished: true}

	PostCreateSchema{
		Title:       " <i>Hello</i> ",
		Content:     "ok <script>alert(1)</script>",
		CategoryID:  2,
		IsPublished: &published,
		Tags:        &tags,
	}.Apply(&post)

	assert.Equal(t, "Hello", post.Title)
	assert.NotContains(t, post.Content, "<script")
	assert.Equal(t, uint(2), post.CategoryID)
	assert.True(t, post.IsPublished)
	assert.Equal(t, "go, web", post.Tags)
	assert.Equal(t, uint(3), post.AuthorID, "author is never taken from input")

	PostCreateSchema{Title: "t", Content: "c", CategoryID: 2}.Apply(&post)
	assert.False(t, post.IsPublished, "omitted is_published resets to unpublished")
	assert.Empty(t, post.Tags)
}

func TestCommentSchemasNeverNil(t *testing.T) {
	assert.NotNil(t, NewCommentSchemas(nil))
}

func TestNewPostDetailSchemaRendersMarkdown(t *testing.T) {
	d := NewPostDetailSchema(models.Post{ID: 1, Content: "**bold**"})
	assert.Contains(t, d.ContentHTML, "<strong>bold</strong>")
	assert.Equal(t, "**bold**", d.Content)
	assert.Empty(t, d.Comments)
}
