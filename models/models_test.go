package models

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppla/blogapi/config"
)

func TestMigrateCreatesForeignKeys(t *testing.T) {
	conn, err := config.OpenDatabase(config.AppConfig{
		DBDriver:    "sqlite",
		DatabaseURI: "file:" + uuid.NewString() + "?mode=memory&cache=shared",
		LogLevel:    "silent",
	})
	require.NoError(t, err)
	require.NoError(t, config.Migrate(conn, All()...))

	m := conn.Migrator()
	assert.True(t, m.HasConstraint(&Post{}, "Category"))
	assert.True(t, m.HasConstraint(&Post{}, "Author"))
	assert.True(t, m.HasConstraint(&Comment{}, "Post"))
	assert.True(t, m.HasConstraint(&Comment{}, "Author"))
	assert.True(t, m.HasConstraint(&AuthToken{}, "User"))
}
