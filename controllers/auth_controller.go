package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
	"golang.org/x/oauth2/google"
	"gorm.io/gorm"

	"github.com/cppla/blogapi/auth"
	"github.com/cppla/blogapi/config"
	"github.com/cppla/blogapi/middleware"
	"github.com/cppla/blogapi/models"
	"github.com/cppla/blogapi/permissions"
	"github.com/cppla/blogapi/schemas"
	"github.com/cppla/blogapi/utils"
)

// AuthController handles account registration, token issuance and third-party login.
type AuthController struct {
	db     *gorm.DB
	tokens *auth.Service
	client *http.Client
}

// NewAuthController creates an AuthController.
func NewAuthController(db *gorm.DB, tokens *auth.Service) *AuthController {
	return &AuthController{db: db, tokens: tokens, client: &http.Client{Timeout: 10 * time.Second}}
}

// Register creates a local account with a bcrypt password and returns a fresh token.
func (a *AuthController) Register(ctx *gin.Context) {
	var req schemas.RegisterSchema
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.ValidationError(ctx, 40001, err)
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	if !validUsername(req.Username) {
		fieldError(ctx, 40002, "username", "letters, digits and @.+-_ only")
		return
	}

	var existing int64
	if err := a.db.WithContext(ctx.Request.Context()).Model(&models.User{}).Where("username = ?", req.Username).Count(&existing).Error; err != nil {
		internalError(ctx, 50001, "failed to check username", err)
		return
	}
	if existing > 0 {
		utils.Respond(ctx, http.StatusConflict, 40901, "username already exists",
			gin.H{"fields": map[string]string{"username": "a user with that username already exists"}})
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		internalError(ctx, 50002, "failed to hash password", err)
		return
	}

	user := models.User{
		Username:     req.Username,
		Email:        strings.TrimSpace(req.Email),
		FirstName:    utils.SanitizePlain(req.FirstName),
		LastName:     utils.SanitizePlain(req.LastName),
		PasswordHash: hash,
	}
	if err := a.db.WithContext(ctx.Request.Context()).Create(&user).Error; err != nil {
		internalError(ctx, 50003, "failed to create user", err)
		return
	}

	a.respondWithToken(ctx, &user, http.StatusCreated)
}

// Login verifies user credentials and issues a bearer token.
func (a *AuthController) Login(ctx *gin.Context) {
	var req schemas.LoginSchema
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.ValidationError(ctx, 40003, err)
		return
	}

	var user models.User
	if err := a.db.WithContext(ctx.Request.Context()).Where("username = ?", strings.TrimSpace(req.Username)).First(&user).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			internalError(ctx, 50004, "failed to load user", err)
			return
		}
		utils.Error(ctx, http.StatusUnauthorized, 40106, "invalid username or password")
		return
	}
	if !auth.CheckPassword(user.PasswordHash, req.Password) {
		utils.Error(ctx, http.StatusUnauthorized, 40106, "invalid username or password")
		return
	}

	a.respondWithToken(ctx, &user, http.StatusOK)
}

// Logout revokes the bearer token used for this request.
func (a *AuthController) Logout(ctx *gin.Context) {
	token := middleware.CurrentToken(ctx)
	if token == "" {
		utils.Error(ctx, http.StatusUnauthorized, 40107, "missing bearer token")
		return
	}
	if err := a.tokens.Revoke(ctx.Request.Context(), token); err != nil {
		if errors.Is(err, auth.ErrNoIdentity) {
			utils.Error(ctx, http.StatusUnauthorized, 40105, "invalid token")
			return
		}
		internalError(ctx, 50007, "failed to revoke token", err)
		return
	}
	utils.Success(ctx, gin.H{"message": "logged out"})
}

// Me returns the current authenticated user's information.
func (a *AuthController) Me(ctx *gin.Context) {
	user, ok := requireUser(ctx)
	if !ok {
		return
	}
	utils.Success(ctx, schemas.MeSchema{
		UserSchema: schemas.NewUserSchema(*user),
		IsAdmin:    permissions.IsAdmin(user, config.Get().AdminUsernames),
	})
}

// OAuthRedirect generates a provider-specific authorization URL.
func (a *AuthController) OAuthRedirect(ctx *gin.Context) {
	provider := strings.ToLower(ctx.Param("provider"))
	cfg, err := a.oauthConfig(provider)
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40004, err.Error())
		return
	}

	state := uuid.NewString()
	utils.SaveState(state, 10*time.Minute)

	url := cfg.AuthCodeURL(state, oauth2.AccessTypeOffline)
	utils.Success(ctx, gin.H{"authorization_url": url, "state": state})
}

// OAuthCallback exchanges the authorization code for a user identity and issues a bearer token.
func (a *AuthController) OAuthCallback(ctx *gin.Context) {
	provider := strings.ToLower(ctx.Param("provider"))
	code := ctx.Query("code")
	state := ctx.Query("state")

	if code == "" || state == "" {
		utils.Error(ctx, http.StatusBadRequest, 40005, "missing code or state")
		return
	}
	if !utils.ConsumeState(state) {
		utils.Error(ctx, http.StatusBadRequest, 40006, "invalid or expired state")
		return
	}

	cfg, err := a.oauthConfig(provider)
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40004, err.Error())
		return
	}

	exchangeCtx := context.WithValue(ctx.Request.Context(), oauth2.HTTPClient, a.client)
	token, err := cfg.Exchange(exchangeCtx, code)
	if err != nil {
		utils.Sugar.Warnw("oauth code exchange failed", "provider", provider, "err", err)
		utils.Error(ctx, http.StatusBadRequest, 40007, "failed to exchange code")
		return
	}

	info, err := a.fetchOAuthUser(ctx.Request.Context(), provider, token)
	if err != nil {
		internalError(ctx, 50005, "failed to fetch provider profile", err)
		return
	}

	user, err := a.findOrCreateOAuthUser(ctx.Request.Context(), provider, info)
	if err != nil {
		internalError(ctx, 50006, "failed to persist user", err)
		return
	}

	a.respondWithToken(ctx, user, http.StatusOK)
}

func (a *AuthController) respondWithToken(ctx *gin.Context, user *models.User, status int) {
	token, err := a.tokens.Issue(ctx.Request.Context(), user)
	if err != nil {
		internalError(ctx, 50008, "failed to generate token", err)
		return
	}
	payload := schemas.TokenSchema{
		Token:   token,
		User:    schemas.NewUserSchema(*user),
		IsAdmin: permissions.IsAdmin(user, config.Get().AdminUsernames),
	}
	if status == http.StatusCreated {
		utils.Created(ctx, payload)
		return
	}
	utils.Success(ctx, payload)
}

// validUsername allows letters, digits and @.+-_ like most account systems.
func validUsername(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case strings.ContainsRune("@.+-_", r):
		default:
			return false
		}
	}
	return true
}

func (a *AuthController) oauthConfig(provider string) (*oauth2.Config, error) {
	cfg := config.Get()
	switch strings.ToLower(provider) {
	case "github":
		if cfg.GitHubClientID == "" || cfg.GitHubClientSecret == "" {
			return nil, fmt.Errorf("github oauth not configured")
		}
		return &oauth2.Config{
			ClientID:     cfg.GitHubClientID,
			ClientSecret: cfg.GitHubClientSecret,
			RedirectURL:  fmt.Sprintf("%s/api/auth/oauth/github/callback", cfg.OAuthRedirectBase),
			Scopes:       []string{"read:user", "user:email"},
			Endpoint:     github.Endpoint,
		}, nil
	case "google":
		if cfg.GoogleClientID == "" || cfg.GoogleClientSecret == "" {
			return nil, fmt.Errorf("google oauth not configured")
		}
		return &oauth2.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  fmt.Sprintf("%s/api/auth/oauth/google/callback", cfg.OAuthRedirectBase),
			Scopes:       []string{"openid", "profile", "email"},
			Endpoint:     google.Endpoint,
		}, nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", provider)
	}
}

type oauthUser struct {
	ID        string
	Username  string
	FirstName string
	LastName  string
	Email     string
}

func (a *AuthController) fetchOAuthUser(ctx context.Context, provider string, token *oauth2.Token) (*oauthUser, error) {
	switch strings.ToLower(provider) {
	case "github":
		return a.fetchGitHubUser(ctx, token)
	case "google":
		return a.fetchGoogleUser(ctx, token)
	default:
		return nil, fmt.Errorf("unsupported provider: %s", provider)
	}
}

// findOrCreateOAuthUser keys accounts on the lowercased provider and its user id.
func (a *AuthController) findOrCreateOAuthUser(ctx context.Context, provider string, data *oauthUser) (*models.User, error) {
	provider = strings.ToLower(provider)
	db := a.db.WithContext(ctx)
	var user models.User
	err := db.Where("provider = ? AND provider_id = ?", provider, data.ID).First(&user).Error
	if err == nil {
		if email := strings.TrimSpace(data.Email); email != "" && email != user.Email {
			if err := db.Model(&user).Update("email", email).Error; err != nil {
				return nil, err
			}
		}
		return &user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	user = models.User{
		Username:   a.ensureUniqueUsername(ctx, data.Username, provider, data.ID),
		Email:      strings.TrimSpace(data.Email),
		FirstName:  utils.SanitizePlain(data.FirstName),
		LastName:   utils.SanitizePlain(data.LastName),
		Provider:   provider,
		ProviderID: data.ID,
	}
	if err := db.Create(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (a *AuthController) getJSON(ctx context.Context, url string, token *oauth2.Token, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s failed: %s", url, resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (a *AuthController) fetchGitHubUser(ctx context.Context, token *oauth2.Token) (*oauthUser, error) {
	var payload struct {
		ID    int64  `json:"id"`
		Login string `json:"login"`
		Name  string `json:"name"`
	}
	if err := a.getJSON(ctx, "https://api.github.com/user", token, &payload); err != nil {
		return nil, err
	}

	var emails []struct {
		Email    string `json:"email"`
		Primary  bool   `json:"primary"`
		Verified bool   `json:"verified"`
	}
	email := ""
	if err := a.getJSON(ctx, "https://api.github.com/user/emails", token, &emails); err == nil {
		for _, e := range emails {
			if e.Primary && e.Verified {
				email = e.Email
				break
			}
		}
		if email == "" && len(emails) > 0 {
			email = emails[0].Email
		}
	}

	first, last := splitName(payload.Name)
	return &oauthUser{
		ID:        fmt.Sprintf("%d", payload.ID),
		Username:  payload.Login,
		FirstName: first,
		LastName:  last,
		Email:     email,
	}, nil
}

func (a *AuthController) fetchGoogleUser(ctx context.Context, token *oauth2.Token) (*oauthUser, error) {
	var payload struct {
		ID         string `json:"id"`
		Email      string `json:"email"`
		GivenName  string `json:"given_name"`
		FamilyName string `json:"family_name"`
	}
	if err := a.getJSON(ctx, "https://www.googleapis.com/oauth2/v2/userinfo", token, &payload); err != nil {
		return nil, err
	}
	username := payload.Email
	if at := strings.IndexByte(username, '@'); at > 0 {
		username = username[:at]
	}
	return &oauthUser{
		ID:        payload.ID,
		Username:  username,
		FirstName: payload.GivenName,
		LastName:  payload.FamilyName,
		Email:     payload.Email,
	}, nil
}

func splitName(name string) (string, string) {
	name = strings.TrimSpace(name)
	if i := strings.IndexByte(name, ' '); i > 0 {
		return name[:i], strings.TrimSpace(name[i+1:])
	}
	return name, ""
}

func sanitizeUsername(input string) string {
	input = strings.ToLower(strings.TrimSpace(input))
	if input == "" {
		return ""
	}
	var builder strings.Builder
	for _, r := range input {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			builder.WriteRune(r)
		case r == '_' || r == '-' || r == '.':
			builder.WriteRune('_')
		}
	}
	return strings.Trim(builder.String(), "_")
}

func (a *AuthController) ensureUniqueUsername(ctx context.Context, base, provider, id string) string {
	base = sanitizeUsername(base)
	if base == "" {
		base = sanitizeUsername(fmt.Sprintf("%s_%s", provider, id))
		if base == "" {
			base = fmt.Sprintf("user_%s", id)
		}
	}

	candidate := base
	for suffix := 1; ; suffix++ {
		var count int64
		if err := a.db.WithContext(ctx).Model(&models.User{}).Where("username = ?", candidate).Count(&count).Error; err != nil {
			return candidate
		}
		if count == 0 {
			return candidate
		}
		candidate = fmt.Sprintf("%s_%d", base, suffix)
	}
}
