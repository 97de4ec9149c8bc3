// Package permissions holds the object-level checks applied by the controllers.
// Every predicate is pure: it only inspects the requester and the target object.
package permissions

import (
	"strings"

	"github.com/cppla/blogapi/models"
)

// IsPostAuthor reports whether user wrote post.
func IsPostAuthor(user *models.User, post *models.Post) bool {
	return user != nil && post != nil && user.ID != 0 && post.AuthorID == user.ID
}

// IsCommentAuthor reports whether user wrote comment.
func IsCommentAuthor(user *models.User, comment *models.Comment) bool {
	return user != nil && comment != nil && user.ID != 0 && comment.AuthorID == user.ID
}

// IsPublishedPost allows access when the post is published or user is its author.
func IsPublishedPost(user *models.User, post *models.Post) bool {
	return post != nil && (post.IsPublished || IsPostAuthor(user, post))
}

// IsAdmin reports whether user is listed in admins (case-insensitive).
func IsAdmin(user *models.User, admins []string) bool {
	if user == nil {
		return false
	}
	name := strings.TrimSpace(user.Username)
	if name == "" {
		return false
	}
	for _, a := range admins {
		if strings.EqualFold(strings.TrimSpace(a), name) {
			return true
		}
	}
	return false
}

// CanModifyComment allows the comment author or an admin.
func CanModifyComment(user *models.User, comment *models.Comment, admins []string) bool {
	return IsCommentAuthor(user, comment) || IsAdmin(user, admins)
}
