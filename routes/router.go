package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/cppla/blogapi/auth"
	"github.com/cppla/blogapi/config"
	"github.com/cppla/blogapi/controllers"
	"github.com/cppla/blogapi/middleware"
	"github.com/cppla/blogapi/schemas"
	"github.com/cppla/blogapi/utils"
)

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(db *gorm.DB, tokens *auth.Service) *gin.Engine {
	cfg := config.Get()
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}
	utils.UseRequestFieldNames()

	r := gin.New()
	// Access logs go to their own rolling file; the app logger stays clean
	gl, err := utils.NewRollingFileLogger(cfg.GinPath, cfg.LogLevel, cfg.LogMaxSizeMB, cfg.LogMaxBackups, cfg.LogMaxAgeDays, cfg.LogCompress)
	if err == nil {
		r.Use(middleware.Ginzap(gl, time.RFC3339, true))
		r.Use(middleware.RecoveryWithZap(gl, false))
	} else {
		utils.Sugar.Warnw("gin access log disabled", "path", cfg.GinPath, "err", err)
		r.Use(middleware.RecoveryWithZap(utils.Logger, false))
	}

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 0 || (len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*") {
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok"})
	})

	endpoints := apiEndpoints(db, tokens)
	doc, err := buildOpenAPI(endpoints)
	if err != nil {
		// Every schema is a static Go type, so this only fails on a programming error
		utils.Sugar.Fatalw("failed to build openapi document", "err", err)
	}

	api := r.Group("/api")
	api.GET("/openapi.json", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, doc)
	})
	api.GET("/docs", serveDocs)

	limiter := middleware.NewIPRateLimiter(cfg.RateLimitPerMinute)
	public := api.Group("", limiter.Middleware())
	protected := api.Group("", middleware.AuthRequired(tokens), limiter.Middleware())
	for _, e := range endpoints {
		group := protected
		if e.public {
			group = public
		}
		group.Handle(e.method, e.path, e.handler)
	}

	r.NoRoute(func(ctx *gin.Context) {
		if strings.HasPrefix(ctx.Request.URL.Path, "/api/") {
			utils.Error(ctx, http.StatusNotFound, 40400, "api route not found")
			return
		}
		utils.Error(ctx, http.StatusNotFound, 40401, "not found")
	})

	return r
}

// apiEndpoints lists every /api route together with its documentation.
func apiEndpoints(db *gorm.DB, tokens *auth.Service) []endpoint {
	authController := controllers.NewAuthController(db, tokens)
	categoryController := controllers.NewCategoryController(db)
	postController := controllers.NewPostController(db)
	commentController := controllers.NewCommentController(db)

	postFilters := []*openapi3.Parameter{
		queryInt("category", "Filter posts by category ID"),
		queryString("tag", "Filter posts by tag"),
		queryBool("my_posts", "Show only the current user's posts"),
	}
	commentFilters := []*openapi3.Parameter{
		queryInt("post", "Filter comments by post ID"),
	}

	return []endpoint{
		{method: http.MethodPost, path: "/auth/register", tag: "auth", summary: "Register a local account", public: true,
			body: schemas.RegisterSchema{}, status: http.StatusCreated, resp: schemas.TokenSchema{}, handler: authController.Register},
		{method: http.MethodPost, path: "/auth/login", tag: "auth", summary: "Exchange credentials for a bearer token", public: true,
			body: schemas.LoginSchema{}, resp: schemas.TokenSchema{}, handler: authController.Login},
		{method: http.MethodGet, path: "/auth/oauth/:provider/login", tag: "auth", summary: "Start a GitHub or Google login", public: true,
			resp: map[string]string{}, handler: authController.OAuthRedirect},
		{method: http.MethodGet, path: "/auth/oauth/:provider/callback", tag: "auth", summary: "Finish a GitHub or Google login", public: true,
			query: []*openapi3.Parameter{queryString("code", "Authorization code"), queryString("state", "State issued by the login step")},
			resp: schemas.TokenSchema{}, handler: authController.OAuthCallback},
		{method: http.MethodPost, path: "/auth/logout", tag: "auth", summary: "Revoke the current bearer token",
			resp: map[string]string{}, handler: authController.Logout},
		{method: http.MethodGet, path: "/auth/me", tag: "auth", summary: "Describe the authenticated user",
			resp: schemas.MeSchema{}, handler: authController.Me},

		{method: http.MethodGet, path: "/categories", tag: "categories", summary: "List categories",
			query: paginationParams(), resp: schemas.Page[schemas.CategorySchema]{}, handler: categoryController.ListCategories},
		{method: http.MethodPost, path: "/categories", tag: "categories", summary: "Create a category",
			body: schemas.CategoryInput{}, status: http.StatusCreated, resp: schemas.CategorySchema{}, handler: categoryController.CreateCategory},
		{method: http.MethodGet, path: "/categories/:id", tag: "categories", summary: "Retrieve a category",
			resp: schemas.CategorySchema{}, handler: categoryController.GetCategory},
		{method: http.MethodPut, path: "/categories/:id", tag: "categories", summary: "Update a category",
			body: schemas.CategoryInput{}, resp: schemas.CategorySchema{}, handler: categoryController.UpdateCategory},
		{method: http.MethodDelete, path: "/categories/:id", tag: "categories", summary: "Delete a category",
			resp: map[string]string{}, handler: categoryController.DeleteCategory},

		{method: http.MethodGet, path: "/posts", tag: "posts", summary: "List published posts",
			query: append(postFilters, paginationParams()...), resp: schemas.Page[schemas.PostListSchema]{}, handler: postController.ListPosts},
		{method: http.MethodPost, path: "/posts", tag: "posts", summary: "Create a post authored by the requester",
			body: schemas.PostCreateSchema{}, status: http.StatusCreated, resp: schemas.PostDetailSchema{}, handler: postController.CreatePost},
		{method: http.MethodGet, path: "/posts/:id", tag: "posts", summary: "Retrieve a post with its comments",
			query: postFilters, resp: schemas.PostDetailSchema{}, handler: postController.GetPost},
		{method: http.MethodPut, path: "/posts/:id", tag: "posts", summary: "Update an own post",
			query: postFilters, body: schemas.PostCreateSchema{}, resp: schemas.PostDetailSchema{}, handler: postController.UpdatePost},
		{method: http.MethodDelete, path: "/posts/:id", tag: "posts", summary: "Delete an own post",
			query: postFilters, resp: map[string]string{}, handler: postController.DeletePost},

		{method: http.MethodGet, path: "/comments", tag: "comments", summary: "List approved comments",
			query: append(commentFilters, paginationParams()...), resp: schemas.Page[schemas.CommentSchema]{}, handler: commentController.ListComments},
		{method: http.MethodPost, path: "/comments", tag: "comments", summary: "Comment on a visible post",
			body: schemas.CommentCreateSchema{}, status: http.StatusCreated, resp: schemas.CommentSchema{}, handler: commentController.CreateComment},
		{method: http.MethodGet, path: "/comments/:id", tag: "comments", summary: "Retrieve an approved comment",
			query: commentFilters, resp: schemas.CommentSchema{}, handler: commentController.GetComment},
		{method: http.MethodPut, path: "/comments/:id", tag: "comments", summary: "Update an own comment",
			query: commentFilters, body: schemas.CommentUpdateSchema{}, resp: schemas.CommentSchema{}, handler: commentController.UpdateComment},
		{method: http.MethodDelete, path: "/comments/:id", tag: "comments", summary: "Delete an own comment",
			query: commentFilters, resp: map[string]string{}, handler: commentController.DeleteComment},
		{method: http.MethodPost, path: "/comments/:id/approve", tag: "comments", summary: "Approve a pending comment (admin)",
			resp: schemas.CommentSchema{}, handler: commentController.ApproveComment},
	}
}
