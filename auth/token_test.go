package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/cppla/blogapi/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(models.All()...))
	return db
}

func newTestUser(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()
	u := &models.User{Username: username}
	require.NoError(t, db.Create(u).Error)
	return u
}

func TestIssueAndAuthenticate(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db, "secret", time.Hour)
	alice := newTestUser(t, db, "alice")

	token, err := svc.Issue(context.Background(), alice)
	require.NoError(t, err)

	got, err := svc.Authenticate(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, alice.ID, got.ID)
	assert.Equal(t, "alice", got.Username)
}

func TestAuthenticateRejectsUnknownTokens(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db, "secret", time.Hour)
	alice := newTestUser(t, db, "alice")

	tests := map[string]string{
		"garbage":   "not-a-token",
		"empty":     "",
		"unsigned":  unsignedToken(t, alice.ID),
		"no stored": signed(t, "secret", Claims{UserID: alice.ID, RegisteredClaims: jwt.RegisteredClaims{ID: "missing"}}),
	}
	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			user, err := svc.Authenticate(context.Background(), token)
			assert.ErrorIs(t, err, ErrNoIdentity)
			assert.Nil(t, user)
		})
	}
}

func TestAuthenticateRejectsForeignSignature(t *testing.T) {
	db := newTestDB(t)
	alice := newTestUser(t, db, "alice")

	token, err := NewService(db, "other-secret", time.Hour).Issue(context.Background(), alice)
	require.NoError(t, err)

	_, err = NewService(db, "secret", time.Hour).Authenticate(context.Background(), token)
	assert.ErrorIs(t, err, ErrNoIdentity)
}

func TestAuthenticateRejectsCredentialOfAnotherUser(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db, "secret", time.Hour)
	alice := newTestUser(t, db, "alice")
	bob := newTestUser(t, db, "bob")

	token, err := svc.Issue(context.Background(), alice)
	require.NoError(t, err)
	claims, err := svc.parse(token)
	require.NoError(t, err)

	// same jti, different user id: the stored credential does not belong to bob
	forged := signed(t, "secret", Claims{
		UserID: bob.ID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        claims.ID,
			ExpiresAt: claims.ExpiresAt,
		},
	})
	_, err = svc.Authenticate(context.Background(), forged)
	assert.ErrorIs(t, err, ErrNoIdentity)
}

func TestRevoke(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db, "secret", time.Hour)
	alice := newTestUser(t, db, "alice")

	token, err := svc.Issue(context.Background(), alice)
	require.NoError(t, err)

	require.NoError(t, svc.Revoke(context.Background(), token))
	_, err = svc.Authenticate(context.Background(), token)
	assert.ErrorIs(t, err, ErrNoIdentity)

	assert.ErrorIs(t, svc.Revoke(context.Background(), token), ErrNoIdentity, "second revoke finds nothing")
}

func TestExpiryAndPurge(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db, "secret", time.Hour)
	alice := newTestUser(t, db, "alice")

	token, err := svc.Issue(context.Background(), alice)
	require.NoError(t, err)

	svc.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = svc.Authenticate(context.Background(), token)
	assert.ErrorIs(t, err, ErrNoIdentity)

	n, err := svc.PurgeExpired(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	var count int64
	require.NoError(t, db.Model(&models.AuthToken{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestPasswordHashing(t *testing.T) {
	PasswordCost = bcrypt.MinCost
	hash, err := HashPassword("correct horse")
	require.NoError(t, err)

	assert.True(t, CheckPassword(hash, "correct horse"))
	assert.False(t, CheckPassword(hash, "wrong"))
	assert.False(t, CheckPassword("", ""), "accounts without a password never match")
}

func signed(t *testing.T, secret string, claims Claims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func unsignedToken(t *testing.T, userID uint) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		UserID:           userID,
		RegisteredClaims: jwt.RegisteredClaims{ID: "x"},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	return s
}
