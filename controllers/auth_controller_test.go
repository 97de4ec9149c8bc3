package controllers

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/cppla/blogapi/config"
	"github.com/cppla/blogapi/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := config.OpenDatabase(config.AppConfig{
		DBDriver:    "sqlite",
		DatabaseURI: "file:" + uuid.NewString() + "?mode=memory&cache=shared",
		LogLevel:    "silent",
	})
	require.NoError(t, err)
	require.NoError(t, config.Migrate(db, models.All()...))
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })
	return db
}

func TestOAuthProviderNameIsCaseInsensitive(t *testing.T) {
	a := NewAuthController(newTestDB(t), nil)
	profile := &oauthUser{ID: "42", Username: "octocat", Email: "octo@example.com"}

	first, err := a.findOrCreateOAuthUser(context.Background(), "GitHub", profile)
	require.NoError(t, err)
	assert.Equal(t, "github", first.Provider)

	second, err := a.findOrCreateOAuthUser(context.Background(), "github", profile)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	var count int64
	require.NoError(t, a.db.Model(&models.User{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}
