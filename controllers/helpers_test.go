package controllers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLikeContainsEscapesWildcards(t *testing.T) {
	assert.Equal(t, "%go%", likeContains("Go"))
	assert.Equal(t, "%100!%%", likeContains("100%"))
	assert.Equal(t, "%a!_b%", likeContains("a_b"))
	assert.Equal(t, "%x!!y%", likeContains("x!y"))
}

func TestValidUsername(t *testing.T) {
	assert.True(t, validUsername("alice.b+c@d-e_f"))
	assert.False(t, validUsername("bad name"))
	assert.False(t, validUsername(""))
}

func TestSanitizeUsername(t *testing.T) {
	assert.Equal(t, "john_doe", sanitizeUsername(" John.Doe "))
	assert.Equal(t, "", sanitizeUsername("__"))
}

func TestSplitName(t *testing.T) {
	first, last := splitName("Ada King Lovelace")
	assert.Equal(t, "Ada", first)
	assert.Equal(t, "King Lovelace", last)

	first, last = splitName("Plato")
	assert.Equal(t, "Plato", first)
	assert.Empty(t, last)
}
