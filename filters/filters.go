// Package filters parses the typed query-parameter bags accepted by list endpoints.
//
// Raw values are bound as strings and validated with binding tags first, so a
// malformed value surfaces as a field-level validation error instead of a
// generic decode failure.
package filters

import (
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// PostFilters narrows the post list.
type PostFilters struct {
	Category *uint  // posts in this category id; 0 means no filter
	Tag      string // case-insensitive substring of the tags field
	MyPosts  bool   // only the requester's own posts, published or not
}

type rawPostFilters struct {
	Category string `form:"category" binding:"omitempty,number"`
	Tag      string `form:"tag" binding:"omitempty,max=200"`
	MyPosts  string `form:"my_posts" binding:"omitempty,boolean"`
}

// IsZero reports whether no post filter was supplied.
func (f PostFilters) IsZero() bool {
	return f.Category == nil && f.Tag == "" && !f.MyPosts
}

// CommentFilters narrows the comment list.
type CommentFilters struct {
	Post *uint // comments on this post id
}

type rawCommentFilters struct {
	Post string `form:"post" binding:"omitempty,number"`
}

// Pagination is the page window requested by the client.
type Pagination struct {
	Page     int
	PageSize int
}

// Offset returns the number of rows to skip.
func (p Pagination) Offset() int {
	return (p.Page - 1) * p.PageSize
}

// ParsePostFilters reads post filters from the request query string.
func ParsePostFilters(ctx *gin.Context) (PostFilters, error) {
	var raw rawPostFilters
	if err := ctx.ShouldBindQuery(&raw); err != nil {
		return PostFilters{}, err
	}
	var f PostFilters
	if raw.Category != "" {
		id, err := parseID("category", raw.Category)
		if err != nil {
			return PostFilters{}, err
		}
		if id != 0 {
			f.Category = &id
		}
	}
	f.Tag = raw.Tag
	if raw.MyPosts != "" {
		// already validated by the boolean tag
		f.MyPosts, _ = strconv.ParseBool(raw.MyPosts)
	}
	return f, nil
}

// ParseCommentFilters reads comment filters from the request query string.
func ParseCommentFilters(ctx *gin.Context) (CommentFilters, error) {
	var raw rawCommentFilters
	if err := ctx.ShouldBindQuery(&raw); err != nil {
		return CommentFilters{}, err
	}
	var f CommentFilters
	if raw.Post != "" {
		id, err := parseID("post", raw.Post)
		if err != nil {
			return CommentFilters{}, err
		}
		if id != 0 {
			f.Post = &id
		}
	}
	return f, nil
}

// ParsePagination reads page and page_size, silently falling back to defaults on bad input.
func ParsePagination(ctx *gin.Context) Pagination {
	p := Pagination{Page: 1, PageSize: DefaultPageSize}
	if n, err := strconv.Atoi(ctx.Query("page")); err == nil && n > 0 {
		p.Page = n
	}
	if n, err := strconv.Atoi(ctx.Query("page_size")); err == nil && n > 0 && n <= MaxPageSize {
		p.PageSize = n
	}
	return p
}

// FieldError reports a query parameter that passed tag validation but is still unusable.
type FieldError struct {
	Field string
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

func (e *FieldError) Unwrap() error { return e.Err }

// FieldName names the offending query parameter.
func (e *FieldError) FieldName() string { return e.Field }

func parseID(field, raw string) (uint, error) {
	n, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, &FieldError{Field: field, Err: err}
	}
	return uint(n), nil
}
