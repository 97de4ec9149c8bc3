package filters

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newContext(rawQuery string) *gin.Context {
	gin.SetMode(gin.TestMode)
	ctx, _ := gin.CreateTestContext(httptest.NewRecorder())
	ctx.Request = httptest.NewRequest("GET", "/api/posts?"+rawQuery, nil)
	return ctx
}

func TestParsePostFilters(t *testing.T) {
	f, err := ParsePostFilters(newContext(""))
	require.NoError(t, err)
	assert.True(t, f.IsZero())

	f, err = ParsePostFilters(newContext("category=3&tag=%20Go%20&my_posts=true"))
	require.NoError(t, err)
	require.NotNil(t, f.Category)
	assert.Equal(t, uint(3), *f.Category)
	assert.Equal(t, " Go ", f.Tag)
	assert.True(t, f.MyPosts)
	assert.False(t, f.IsZero())

	f, err = ParsePostFilters(newContext("my_posts=0"))
	require.NoError(t, err)
	assert.False(t, f.MyPosts)
}

func TestZeroIDFiltersAreIgnored(t *testing.T) {
	f, err := ParsePostFilters(newContext("category=0"))
	require.NoError(t, err)
	assert.Nil(t, f.Category)
	assert.True(t, f.IsZero())

	c, err := ParseCommentFilters(newContext("post=0"))
	require.NoError(t, err)
	assert.Nil(t, c.Post)
}

func TestParsePostFiltersRejectsMalformedValues(t *testing.T) {
	for _, q := range []string{"category=abc", "category=-1", "my_posts=maybe", "category=99999999999"} {
		t.Run(q, func(t *testing.T) {
			_, err := ParsePostFilters(newContext(q))
			assert.Error(t, err)
		})
	}
}

func TestParseCommentFilters(t *testing.T) {
	f, err := ParseCommentFilters(newContext("post=7"))
	require.NoError(t, err)
	require.NotNil(t, f.Post)
	assert.Equal(t, uint(7), *f.Post)

	f, err = ParseCommentFilters(newContext(""))
	require.NoError(t, err)
	assert.Nil(t, f.Post)

	_, err = ParseCommentFilters(newContext("post=x"))
	assert.Error(t, err)
}

func TestParsePagination(t *testing.T) {
	p := ParsePagination(newContext(""))
	assert.Equal(t, Pagination{Page: 1, PageSize: DefaultPageSize}, p)
	assert.Equal(t, 0, p.Offset())

	p = ParsePagination(newContext("page=3&page_size=20"))
	assert.Equal(t, Pagination{Page: 3, PageSize: 20}, p)
	assert.Equal(t, 40, p.Offset())

	p = ParsePagination(newContext("page=0&page_size=1000"))
	assert.Equal(t, Pagination{Page: 1, PageSize: DefaultPageSize}, p)
}

func TestFieldErrorNamesParameter(t *testing.T) {
	_, err := parseID("category", "99999999999")
	var fe *FieldError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "category", fe.FieldName())
}
