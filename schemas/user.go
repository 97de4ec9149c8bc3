package schemas

import "github.com/cppla/blogapi/models"

// UserSchema is the public profile embedded wherever a user is shown.
type UserSchema struct {
	ID        uint   `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// NewUserSchema projects a user onto its public profile.
func NewUserSchema(u models.User) UserSchema {
	return UserSchema{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
	}
}

// RegisterSchema is the payload for local account registration.
type RegisterSchema struct {
	Username  string `json:"username" binding:"required,min=3,max=64"`
	Email     string `json:"email" binding:"omitempty,email"`
	Password  string `json:"password" binding:"required,min=8,max=72"`
	FirstName string `json:"first_name" binding:"max=150"`
	LastName  string `json:"last_name" binding:"max=150"`
}

// LoginSchema is the payload for password login.
type LoginSchema struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// TokenSchema is returned whenever a bearer token is issued.
type TokenSchema struct {
	Token   string     `json:"token"`
	User    UserSchema `json:"user"`
	IsAdmin bool       `json:"is_admin"`
}

// MeSchema describes the authenticated requester.
type MeSchema struct {
	UserSchema
	IsAdmin bool `json:"is_admin"`
}
