// Package auth resolves bearer tokens to users.
//
// A bearer token is an HS256 JWT whose "jti" names exactly one stored
// AuthToken row owned by the same user. Both the signature and the stored
// credential must check out; deleting the row revokes the token before it
// expires.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/cppla/blogapi/models"
)

// ErrNoIdentity is returned whenever a token does not resolve to exactly one user.
var ErrNoIdentity = errors.New("no identity resolved")

// Claims defines JWT claims used in the application.
type Claims struct {
	UserID   uint   `json:"user_id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Service issues, verifies and revokes bearer tokens.
type Service struct {
	db     *gorm.DB
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewService creates a token service signing with secret; tokens live for ttl.
func NewService(db *gorm.DB, secret string, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = 72 * time.Hour
	}
	return &Service{db: db, secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue stores a new credential for user and returns the signed bearer token.
func (s *Service) Issue(ctx context.Context, user *models.User) (string, error) {
	now := s.now()
	cred := models.AuthToken{
		Key:       uuid.NewString(),
		UserID:    user.ID,
		ExpiresAt: now.Add(s.ttl),
	}
	if err := s.db.WithContext(ctx).Create(&cred).Error; err != nil {
		return "", fmt.Errorf("store credential: %w", err)
	}

	claims := Claims{
		UserID:   user.ID,
		Username: user.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        cred.Key,
			Subject:   user.Username,
			ExpiresAt: jwt.NewNumericDate(cred.ExpiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Authenticate resolves token to its user. Any failure, including an ambiguous match, yields ErrNoIdentity.
func (s *Service) Authenticate(ctx context.Context, token string) (*models.User, error) {
	claims, err := s.parse(token, jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoIdentity, err)
	}

	var creds []models.AuthToken
	err = s.db.WithContext(ctx).
		Preload("User").
		Where("token_key = ? AND user_id = ?", claims.ID, claims.UserID).
		Limit(2).
		Find(&creds).Error
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoIdentity, err)
	}
	if len(creds) != 1 {
		return nil, fmt.Errorf("%w: %d credentials matched", ErrNoIdentity, len(creds))
	}
	if !creds[0].ExpiresAt.After(s.now()) {
		return nil, fmt.Errorf("%w: credential expired", ErrNoIdentity)
	}
	if creds[0].User.ID == 0 {
		return nil, fmt.Errorf("%w: credential owner missing", ErrNoIdentity)
	}
	user := creds[0].User
	return &user, nil
}

// Revoke deletes the credential behind token. Expired tokens can still be revoked.
func (s *Service) Revoke(ctx context.Context, token string) error {
	claims, err := s.parse(token, jwt.WithoutClaimsValidation())
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNoIdentity, err)
	}
	res := s.db.WithContext(ctx).Where("token_key = ? AND user_id = ?", claims.ID, claims.UserID).Delete(&models.AuthToken{})
	if res.Error != nil {
		return fmt.Errorf("revoke credential: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNoIdentity
	}
	return nil
}

// PurgeExpired removes credentials whose expiry has passed and returns how many were deleted.
func (s *Service) PurgeExpired(ctx context.Context) (int64, error) {
	res := s.db.WithContext(ctx).Where("expires_at <= ?", s.now()).Delete(&models.AuthToken{})
	return res.RowsAffected, res.Error
}

func (s *Service) parse(token string, opts ...jwt.ParserOption) (*Claims, error) {
	opts = append(opts, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, opts...)
	if err != nil {
		return nil, err
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, errors.New("invalid token claims")
	}
	if claims.ID == "" || claims.UserID == 0 {
		return nil, errors.New("token missing identity claims")
	}
	return claims, nil
}
