package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"shutterhub/internal/cache"
	"shutterhub/internal/middleware"
	"shutterhub/internal/models"
	"shutterhub/internal/repository"
	"shutterhub/internal/validation"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrInvalidCredentials is wrapped by the error returned for a bad email/password pair.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrAccountSuspended is wrapped by the FORBIDDEN error returned to suspended users.
	ErrAccountSuspended = errors.New("account suspended")
	// ErrRealtimeUnavailable is returned when websocket tickets cannot be stored.
	ErrRealtimeUnavailable = errors.New("realtime service unavailable")
)

// WSTicketTTL is how long a websocket ticket can be redeemed.
const WSTicketTTL = 60 * time.Second

// AuthErrorKind is the coarse class of an authentication failure shown to users.
type AuthErrorKind string

const (
	AuthErrorInvalidCredentials AuthErrorKind = "invalid_credentials"
	AuthErrorSuspended          AuthErrorKind = "suspended"
	AuthErrorPermission         AuthErrorKind = "permission"
	AuthErrorValidation         AuthErrorKind = "validation"
	AuthErrorUnavailable        AuthErrorKind = "unavailable"
)

// ClassifyAuthError maps an auth failure onto a kind using typed errors and codes only.
func ClassifyAuthError(err error) AuthErrorKind {
	if err == nil {
		return ""
	}
	switch {
	case errors.Is(err, ErrAccountSuspended):
		return AuthErrorSuspended
	case errors.Is(err, ErrInvalidCredentials),
		errors.Is(err, middleware.ErrInvalidToken),
		errors.Is(err, middleware.ErrWrongTokenType),
		errors.Is(err, middleware.ErrMissingToken),
		errors.Is(err, middleware.ErrMalformedHeader):
		return AuthErrorInvalidCredentials
	}
	switch models.ErrorCode(err) {
	case models.CodeValidation, models.CodeConflict:
		return AuthErrorValidation
	case models.CodeForbidden:
		return AuthErrorPermission
	case models.CodeUnauthorized:
		return AuthErrorInvalidCredentials
	}
	return AuthErrorUnavailable
}

// AuthConfig holds the token settings of AuthService.
type AuthConfig struct {
	Secret     string
	Issuer     string
	Audience   string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// TokenPair is returned by signup, login and refresh.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

// AuthResult is a token pair with the signed-in user.
type AuthResult struct {
	Tokens  TokenPair       `json:"tokens"`
	User    *models.User    `json:"user"`
	Profile *models.Profile `json:"profile"`
}

// SignupInput is the payload of Signup.
type SignupInput struct {
	Email    string
	Password string
	Username string
}

// AuthService issues and revokes tokens and builds sessions.
type AuthService struct {
	users      repository.UserRepository
	rdb        *redis.Client
	cfg        AuthConfig
	gate       *PostingGate
	bcryptCost int
	now        func() time.Time
}

// NewAuthService creates an AuthService. rdb may be nil; revocation and tickets are then
// unavailable.
func NewAuthService(users repository.UserRepository, rdb *redis.Client, cfg AuthConfig) *AuthService {
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = 15 * time.Minute
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = 7 * 24 * time.Hour
	}
	return &AuthService{
		users:      users,
		rdb:        rdb,
		cfg:        cfg,
		gate:       NewPostingGate(users),
		bcryptCost: bcrypt.DefaultCost,
		now:        time.Now,
	}
}

// Verifier returns the token verifier matching the issued tokens.
func (s *AuthService) Verifier() middleware.TokenVerifier {
	return middleware.TokenVerifier{
		Secret:   []byte(s.cfg.Secret),
		Issuer:   s.cfg.Issuer,
		Audience: s.cfg.Audience,
	}
}

// Signup creates a user with its profile and signs it in.
func (s *AuthService) Signup(ctx context.Context, in SignupInput) (*AuthResult, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	username := strings.TrimSpace(in.Username)

	if err := validation.ValidateCredentials(username, email, in.Password); err != nil {
		return nil, models.NewValidationError(strings.ReplaceAll(err.Error(), "\n", "; "))
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.bcryptCost)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	user := &models.User{Email: email, Password: string(hash)}
	profile := &models.Profile{Username: username, DisplayName: username}
	if err := s.users.Create(ctx, user, profile); err != nil {
		return nil, err
	}
	user.Profile = profile

	tokens, err := s.issue(user.ID)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Tokens: *tokens, User: user, Profile: profile}, nil
}

// Login checks credentials and returns a fresh token pair. Suspended users may sign in;
// the session reports that they cannot post.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, models.NewValidationError("Email and password are required")
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, invalidCredentials()
		}
		return nil, err
	}
	if cmpErr := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); cmpErr != nil {
		return nil, invalidCredentials()
	}

	tokens, err := s.issue(user.ID)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Tokens: *tokens, User: user, Profile: user.Profile}, nil
}

// Refresh exchanges a refresh token for a new pair and revokes the old refresh token.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*AuthResult, error) {
	claims, err := s.Verifier().Parse(refreshToken, middleware.TokenTypeRefresh)
	if err != nil {
		return nil, &models.AppError{Code: models.CodeUnauthorized, Message: "Invalid refresh token", Err: err}
	}
	revoked, err := s.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	if revoked {
		return nil, &models.AppError{Code: models.CodeUnauthorized, Message: "Refresh token has been revoked", Err: middleware.ErrInvalidToken}
	}
	userID, err := claims.UserID()
	if err != nil {
		return nil, &models.AppError{Code: models.CodeUnauthorized, Message: "Invalid refresh token", Err: err}
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, invalidCredentials()
		}
		return nil, err
	}

	if err := s.Revoke(ctx, claims.ID, claims.ExpiresIn(s.now())); err != nil {
		return nil, models.NewInternalError(err)
	}

	tokens, err := s.issue(user.ID)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Tokens: *tokens, User: user, Profile: user.Profile}, nil
}

// Logout revokes the access token of sess until it expires.
func (s *AuthService) Logout(ctx context.Context, sess *Session) error {
	if sess == nil || sess.TokenID == "" {
		return nil
	}
	ttl := sess.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return nil
	}
	if err := s.Revoke(ctx, sess.TokenID, ttl); err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// Revoke blacklists a token id for ttl. It is a no-op without Redis.
func (s *AuthService) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if s.rdb == nil || jti == "" || ttl <= 0 {
		return nil
	}
	return s.rdb.Set(ctx, middleware.BlacklistKey(jti), "1", ttl).Err()
}

// IsRevoked reports whether jti was blacklisted.
func (s *AuthService) IsRevoked(ctx context.Context, jti string) (bool, error) {
	if s.rdb == nil {
		return false, nil
	}
	n, err := s.rdb.Exists(ctx, middleware.BlacklistKey(jti)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Authenticate validates an access token and checks it was not revoked. A Redis failure
// fails open.
func (s *AuthService) Authenticate(ctx context.Context, accessToken string) (*middleware.TokenClaims, error) {
	claims, err := s.Verifier().Parse(accessToken, middleware.TokenTypeAccess)
	if err != nil {
		return nil, &models.AppError{Code: models.CodeUnauthorized, Message: "Invalid or expired token", Err: err}
	}
	revoked, err := s.IsRevoked(ctx, claims.ID)
	if err != nil {
		middleware.Logger.WarnContext(ctx, "token blacklist check failed", "error", err)
	}
	if revoked {
		return nil, &models.AppError{Code: models.CodeUnauthorized, Message: "Token has been revoked", Err: middleware.ErrInvalidToken}
	}
	return claims, nil
}

// LoadSession builds the Session for validated claims. Roles are cached in Redis.
func (s *AuthService) LoadSession(ctx context.Context, claims *middleware.TokenClaims) (*Session, error) {
	userID, err := claims.UserID()
	if err != nil {
		return nil, &models.AppError{Code: models.CodeUnauthorized, Message: "Invalid token subject", Err: err}
	}
	profile, err := s.users.GetProfile(ctx, userID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, models.NewUnauthorizedError("User no longer exists")
		}
		return nil, err
	}
	profile, err = s.gate.settle(ctx, profile)
	if err != nil && !errors.Is(err, ErrAccountSuspended) {
		return nil, err
	}

	var roles []string
	err = cache.Aside(ctx, cache.UserRolesKey(userID), &roles, cache.UserRolesTTL, func() error {
		var ferr error
		roles, ferr = s.users.ListRoles(ctx, userID)
		return ferr
	})
	if err != nil {
		return nil, err
	}

	sess := &Session{UserID: userID, Profile: profile, Roles: roles, TokenID: claims.ID}
	if claims.ExpiresAt != nil {
		sess.ExpiresAt = claims.ExpiresAt.Time
	}
	return sess, nil
}

// IssueWSTicket stores a single-use websocket ticket for userID.
func (s *AuthService) IssueWSTicket(ctx context.Context, userID uint) (string, error) {
	if s.rdb == nil {
		return "", models.NewInternalError(ErrRealtimeUnavailable)
	}
	ticket := uuid.NewString()
	if err := s.rdb.Set(ctx, middleware.WSTicketKey(ticket), strconv.FormatUint(uint64(userID), 10), WSTicketTTL).Err(); err != nil {
		return "", models.NewInternalError(err)
	}
	return ticket, nil
}

// RedeemWSTicket consumes a ticket and returns its user id.
func (s *AuthService) RedeemWSTicket(ctx context.Context, ticket string) (uint, error) {
	if strings.TrimSpace(ticket) == "" {
		return 0, models.NewUnauthorizedError("Missing websocket ticket")
	}
	if s.rdb == nil {
		return 0, models.NewInternalError(ErrRealtimeUnavailable)
	}
	raw, err := s.rdb.GetDel(ctx, middleware.WSTicketKey(ticket)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, models.NewUnauthorizedError("Invalid or expired websocket ticket")
	}
	if err != nil {
		return 0, models.NewInternalError(err)
	}
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return 0, models.NewUnauthorizedError("Invalid websocket ticket")
	}
	return uint(id), nil
}

func (s *AuthService) issue(userID uint) (*TokenPair, error) {
	if s.cfg.Secret == "" {
		return nil, models.NewInternalError(errors.New("JWT secret not configured"))
	}
	access, err := s.sign(userID, middleware.TokenTypeAccess, s.cfg.AccessTTL)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	refresh, err := s.sign(userID, middleware.TokenTypeRefresh, s.cfg.RefreshTTL)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.cfg.AccessTTL / time.Second),
	}, nil
}

func (s *AuthService) sign(userID uint, typ string, ttl time.Duration) (string, error) {
	now := s.now()
	claims := middleware.TokenClaims{
		Type: typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(userID), 10),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ID:        uuid.NewString(),
		},
	}
	if s.cfg.Issuer != "" {
		claims.Issuer = s.cfg.Issuer
	}
	if s.cfg.Audience != "" {
		claims.Audience = jwt.ClaimStrings{s.cfg.Audience}
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.Secret))
	if err != nil {
		return "", fmt.Errorf("sign %s token: %w", typ, err)
	}
	return signed, nil
}

func invalidCredentials() error {
	return &models.AppError{Code: models.CodeUnauthorized, Message: "Invalid credentials", Err: ErrInvalidCredentials}
}
