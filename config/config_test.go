package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	c := Defaults()

	assert.Equal(t, "8080", c.AppPort)
	assert.Equal(t, 72, c.TokenTTLHours)
	assert.Equal(t, "mysql", c.DBDriver)
	assert.True(t, c.CommentsAutoApprove)
	assert.False(t, c.RedisEnabled)
	assert.Equal(t, []string{"*"}, c.AllowedOrigins)
	assert.Empty(t, c.AdminUsernames)
}

func TestEnvironmentOverridesDefaults(t *testing.T) {
	t.Setenv("APP_PORT", "9090")
	t.Setenv("COMMENTS_AUTO_APPROVE", "false")
	t.Setenv("ADMIN_USERNAMES", "root, ops ,")
	t.Setenv("DB_DRIVER", "sqlite")

	c := Defaults()

	assert.Equal(t, "9090", c.AppPort)
	assert.False(t, c.CommentsAutoApprove)
	assert.Equal(t, []string{"root", "ops"}, c.AdminUsernames)
	assert.Equal(t, "sqlite", c.DBDriver)
}

func TestSetReplacesActiveConfig(t *testing.T) {
	Set(AppConfig{JWTSecret: "s", AppPort: "1234"})
	assert.Equal(t, "1234", Get().AppPort)
}

func TestOpenDatabaseSqlite(t *testing.T) {
	conn, err := OpenDatabase(AppConfig{DBDriver: "sqlite", DatabaseURI: "file:config_test?mode=memory&cache=shared", LogLevel: "silent"})
	require.NoError(t, err)

	type widget struct {
		ID   uint
		Name string
	}
	require.NoError(t, Migrate(conn, &widget{}))
	require.NoError(t, conn.Create(&widget{Name: "a"}).Error)

	var count int64
	require.NoError(t, conn.Model(&widget{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestOpenDatabaseUnknownDriver(t *testing.T) {
	_, err := OpenDatabase(AppConfig{DBDriver: "oracle"})
	assert.Error(t, err)
}
