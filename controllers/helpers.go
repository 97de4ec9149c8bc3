package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/cppla/blogapi/middleware"
	"github.com/cppla/blogapi/models"
	"github.com/cppla/blogapi/utils"
)

// operation names the viewset action being served; it drives schema and queryset selection.
type operation string

const (
	opList     operation = "list"
	opRetrieve operation = "retrieve"
	opCreate   operation = "create"
	opUpdate   operation = "update"
	opDelete   operation = "delete"
)

// requireUser fetches the authenticated user; AuthRequired guarantees it, so a miss is a wiring bug.
func requireUser(ctx *gin.Context) (*models.User, bool) {
	user, ok := middleware.CurrentUser(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return nil, false
	}
	return user, true
}

// idParam parses the :id path segment. Non-numeric ids cannot match any row, so they are reported as not found.
func idParam(ctx *gin.Context, notFoundCode int, resource string) (uint, bool) {
	id, err := strconv.ParseUint(strings.TrimSpace(ctx.Param("id")), 10, 32)
	if err != nil || id == 0 {
		utils.Error(ctx, http.StatusNotFound, notFoundCode, resource+" not found")
		return 0, false
	}
	return uint(id), true
}

// lookupFailed maps a gorm lookup error onto 404 or 500 and logs the unexpected ones.
func lookupFailed(ctx *gin.Context, err error, notFoundCode, internalCode int, resource string) {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		utils.Error(ctx, http.StatusNotFound, notFoundCode, resource+" not found")
		return
	}
	utils.Sugar.Errorw("failed to load "+resource, "path", ctx.Request.URL.Path, "err", err)
	utils.Error(ctx, http.StatusInternalServerError, internalCode, "failed to load "+resource)
}

// internalError logs err and replies 500.
func internalError(ctx *gin.Context, code int, message string, err error) {
	utils.Sugar.Errorw(message, "path", ctx.Request.URL.Path, "err", err)
	utils.Error(ctx, http.StatusInternalServerError, code, message)
}

// fieldError replies 400 for a single field that failed a semantic check after binding.
func fieldError(ctx *gin.Context, code int, field, message string) {
	utils.Respond(ctx, http.StatusBadRequest, code, "validation error", gin.H{"fields": map[string]string{field: message}})
}

// likeContains builds a LIKE pattern matching value as a literal substring; pair it with ESCAPE '!'.
func likeContains(value string) string {
	r := strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")
	return "%" + r.Replace(strings.ToLower(value)) + "%"
}
