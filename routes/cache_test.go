package routes

import (
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/cppla/blogapi/config"
	"github.com/cppla/blogapi/models"
	"github.com/cppla/blogapi/utils"
)

// withCache backs the app's response cache with an in-process Redis.
func (a *testApp) withCache() *miniredis.Miniredis {
	a.t.Helper()
	mr := miniredis.RunT(a.t)
	rc := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	utils.SetRedis(rc)
	a.t.Cleanup(func() {
		utils.SetRedis(nil)
		rc.Close()
	})
	return mr
}

// onNextPostQuery runs fn once, right after the next posts query has loaded its relations.
func (a *testApp) onNextPostQuery(fn func()) {
	a.t.Helper()
	armed := true
	err := a.db.Callback().Query().After("gorm:preload").Register("test:after_posts_"+uuid.NewString(), func(tx *gorm.DB) {
		if !armed || tx.Statement.Table != "posts" {
			return
		}
		armed = false
		fn()
	})
	require.NoError(a.t, err)
}

func keysWithPrefix(mr *miniredis.Miniredis, prefix string) []string {
	var out []string
	for _, k := range mr.Keys() {
		if strings.HasPrefix(k, prefix) {
			out = append(out, k)
		}
	}
	return out
}

func TestCachedPostViewsFollowWrites(t *testing.T) {
	app := setupTestApp(t)
	mr := app.withCache()
	alice, aliceToken := app.user("alice")
	_, bobToken := app.user("bob")
	cat := app.category("tech")
	post := app.post(alice, cat, "cached", "go", true)
	detail := fmt.Sprintf("/api/posts/%d", post.ID)

	w, env := app.do(http.MethodGet, "/api/posts", bobToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, decode[pageOf[postItem]](t, env).Items, 1)
	w, _ = app.do(http.MethodGet, detail, bobToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotEmpty(t, keysWithPrefix(mr, "cache:posts:list:"))
	require.NotEmpty(t, keysWithPrefix(mr, "cache:post:detail:"))

	w, env = app.do(http.MethodGet, detail, bobToken, nil)
	require.Equal(t, http.StatusOK, w.Code, "served from cache")
	assert.Equal(t, "cached", decode[postItem](t, env).Title)

	w, _ = app.do(http.MethodPost, "/api/comments", bobToken, map[string]interface{}{"content": "nice", "post_id": post.ID})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	_, env = app.do(http.MethodGet, detail, bobToken, nil)
	assert.Len(t, decode[postItem](t, env).Comments, 1)
	_, env = app.do(http.MethodGet, "/api/posts", bobToken, nil)
	assert.Equal(t, int64(1), decode[pageOf[postItem]](t, env).Items[0].CommentCount)

	w, _ = app.do(http.MethodPut, fmt.Sprintf("/api/categories/%d", cat.ID), aliceToken, map[string]string{"name": "science"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	_, env = app.do(http.MethodGet, detail, bobToken, nil)
	assert.Equal(t, "science", decode[postItem](t, env).Category.Name)
	_, env = app.do(http.MethodGet, "/api/posts", bobToken, nil)
	assert.Equal(t, "science", decode[pageOf[postItem]](t, env).Items[0].Category.Name)

	unpublish := map[string]interface{}{"title": "cached", "content": "body", "category_id": cat.ID, "is_published": false}
	w, _ = app.do(http.MethodPut, detail, aliceToken, unpublish)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w, _ = app.do(http.MethodGet, detail, bobToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	_, env = app.do(http.MethodGet, "/api/posts", bobToken, nil)
	assert.Empty(t, decode[pageOf[postItem]](t, env).Items)
}

func TestApprovingCommentRefreshesCachedPost(t *testing.T) {
	app := setupTestApp(t, func(c *config.AppConfig) { c.CommentsAutoApprove = false })
	app.withCache()
	alice, _ := app.user("alice")
	_, bobToken := app.user("bob")
	_, adminToken := app.user("admin")
	post := app.post(alice, app.category("tech"), "moderated", "", true)
	detail := fmt.Sprintf("/api/posts/%d", post.ID)

	w, env := app.do(http.MethodPost, "/api/comments", bobToken, map[string]interface{}{"content": "pending", "post_id": post.ID})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	comment := decode[commentItem](t, env)

	_, env = app.do(http.MethodGet, detail, bobToken, nil)
	assert.Empty(t, decode[postItem](t, env).Comments)

	w, _ = app.do(http.MethodPost, fmt.Sprintf("/api/comments/%d/approve", comment.ID), adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	_, env = app.do(http.MethodGet, detail, bobToken, nil)
	assert.Len(t, decode[postItem](t, env).Comments, 1)
}

func TestFilteredPostViewsAreNotCached(t *testing.T) {
	app := setupTestApp(t)
	mr := app.withCache()
	alice, aliceToken := app.user("alice")
	post := app.post(alice, app.category("tech"), "draft", "go", false)

	for _, path := range []string{
		"/api/posts?my_posts=true",
		"/api/posts?tag=go",
		fmt.Sprintf("/api/posts/%d?tag=go", post.ID),
		fmt.Sprintf("/api/posts/%d", post.ID),
	} {
		w, _ := app.do(http.MethodGet, path, aliceToken, nil)
		require.Equal(t, http.StatusOK, w.Code, path)
	}
	assert.Empty(t, keysWithPrefix(mr, "cache:posts:list:"))
	assert.Empty(t, keysWithPrefix(mr, "cache:post:detail:"), "drafts and filtered reads stay uncached")
}

func TestUnpublishDuringDetailReadIsNotReplayed(t *testing.T) {
	app := setupTestApp(t)
	app.withCache()
	alice, aliceToken := app.user("alice")
	_, bobToken := app.user("bob")
	cat := app.category("tech")
	post := app.post(alice, cat, "racy", "", true)
	detail := fmt.Sprintf("/api/posts/%d", post.ID)

	// the author unpublishes after bob's read loaded the row but before it was cached
	app.onNextPostQuery(func() {
		w, _ := app.do(http.MethodPut, detail, aliceToken,
			map[string]interface{}{"title": "racy", "content": "body", "category_id": cat.ID, "is_published": false})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	})
	w, _ := app.do(http.MethodGet, detail, bobToken, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w, _ = app.do(http.MethodGet, detail, bobToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestUnpublishDuringListReadIsNotReplayed(t *testing.T) {
	app := setupTestApp(t)
	app.withCache()
	alice, aliceToken := app.user("alice")
	_, bobToken := app.user("bob")
	cat := app.category("tech")
	post := app.post(alice, cat, "racy", "", true)

	app.onNextPostQuery(func() {
		w, _ := app.do(http.MethodPut, fmt.Sprintf("/api/posts/%d", post.ID), aliceToken,
			map[string]interface{}{"title": "racy", "content": "body", "category_id": cat.ID, "is_published": false})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	})
	w, _ := app.do(http.MethodGet, "/api/posts", bobToken, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w, env := app.do(http.MethodGet, "/api/posts", bobToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	page := decode[pageOf[postItem]](t, env)
	assert.Empty(t, page.Items)
	assert.Zero(t, page.Pagination.Total)
}

func TestCachedDetailIsRecheckedAgainstTheRow(t *testing.T) {
	app := setupTestApp(t)
	mr := app.withCache()
	alice, aliceToken := app.user("alice")
	_, bobToken := app.user("bob")
	post := app.post(alice, app.category("tech"), "hidden later", "", true)
	detail := fmt.Sprintf("/api/posts/%d", post.ID)

	w, _ := app.do(http.MethodGet, detail, bobToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotEmpty(t, keysWithPrefix(mr, "cache:post:detail:"))

	// a write that skipped invalidation leaves a published payload behind
	require.NoError(t, app.db.Model(&models.Post{}).Where("id = ?", post.ID).Update("is_published", false).Error)

	w, _ = app.do(http.MethodGet, detail, bobToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Empty(t, keysWithPrefix(mr, "cache:post:detail:"), "stale entry is dropped")

	w, _ = app.do(http.MethodGet, detail, aliceToken, nil)
	assert.Equal(t, http.StatusOK, w.Code, "the author still sees the draft")
}
