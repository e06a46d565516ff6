package services

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/pierdell/mediaforge-backend/internal/data/repos"
	types "github.com/pierdell/mediaforge-backend/internal/domain"
	"github.com/pierdell/mediaforge-backend/internal/platform/dbctx"
	dberrors "github.com/pierdell/mediaforge-backend/internal/platform/errors"
	"github.com/pierdell/mediaforge-backend/internal/platform/logger"
)

// apiKeyPrefix is the fixed literal every issued API key starts with
// (spec.md §6 "if_<base64url>").
const apiKeyPrefix = "if_"

// apiKeyPrefixLen is how many raw bytes of an API key are kept visible
// as its display prefix (spec.md §6 "if_<base64url>").
const apiKeyPrefixLen = 8

// JWTClaims carries the bearer's user id as the JWT subject plus a
// fixed `type:"access"` discriminator, so a future refresh-token scheme
// can share the signing key without its tokens passing as access
// tokens. Generalized from the teacher's authService (HS256,
// RegisteredClaims-only).
type JWTClaims struct {
	TokenType string `json:"type"`
	jwt.RegisteredClaims
}

// AuthService implements registration, password login, JWT issuance and
// verification, and API key issuance/verification (spec.md §6 auth
// surface), grounded on the teacher's authService transaction and
// bcrypt/JWT discipline, trimmed to this module's single-access-token
// scheme (no refresh tokens, no OAuth).
type AuthService struct {
	db        *gorm.DB
	log       *logger.Logger
	users     repos.UserRepo
	apiKeys   repos.APIKeyRepo
	jwtSecret string
	accessTTL time.Duration
}

func NewAuthService(db *gorm.DB, log *logger.Logger, users repos.UserRepo, apiKeys repos.APIKeyRepo, jwtSecret string, accessTTL time.Duration) *AuthService {
	return &AuthService{
		db:        db,
		log:       log.With("service", "AuthService"),
		users:     users,
		apiKeys:   apiKeys,
		jwtSecret: jwtSecret,
		accessTTL: accessTTL,
	}
}

// Register creates a user with a bcrypt-hashed password. Email
// uniqueness is enforced by the users table's case-insensitive index;
// a duplicate surfaces as ErrConflict.
func (s *AuthService) Register(ctx context.Context, email, password, displayName string) (*types.User, error) {
	email = strings.TrimSpace(email)
	if email == "" || len(password) < 8 {
		return nil, fmt.Errorf("%w: email required and password must be at least 8 characters", dberrors.ErrInputInvalid)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &types.User{
		ID:             uuid.New(),
		Email:          email,
		HashedPassword: string(hashed),
		DisplayName:    strings.TrimSpace(displayName),
		Active:         true,
	}

	var created *types.User
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		u, cErr := s.users.Create(dbc, user)
		if cErr != nil {
			if isUniqueViolation(cErr) {
				return fmt.Errorf("%w: email already registered", dberrors.ErrConflict)
			}
			return cErr
		}
		created = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// Login verifies email/password and issues a JWT access token.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, *types.User, error) {
	user, err := s.users.GetByEmail(dbctx.Context{Ctx: ctx}, email)
	if err != nil {
		return "", nil, fmt.Errorf("%w: invalid credentials", dberrors.ErrAuthInvalid)
	}
	if !user.Active {
		return "", nil, fmt.Errorf("%w: account disabled", dberrors.ErrForbidden)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(password)); err != nil {
		return "", nil, fmt.Errorf("%w: invalid credentials", dberrors.ErrAuthInvalid)
	}

	token, err := s.issueToken(user)
	if err != nil {
		return "", nil, err
	}
	return token, user, nil
}

func (s *AuthService) issueToken(user *types.User) (string, error) {
	claims := JWTClaims{
		TokenType: "access",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(s.accessTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.jwtSecret))
}

// VerifyToken parses and validates a bearer token, returning the
// authenticated user id. Used by the HTTP auth middleware and the
// WebSocket upgrade handlers' `?token=` query parameter (spec.md §6).
func (s *AuthService) VerifyToken(tokenString string) (uuid.UUID, error) {
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" {
		return uuid.Nil, dberrors.ErrAuthMissing
	}
	parsed, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(t *jwt.Token) (interface{}, error) {
		return []byte(s.jwtSecret), nil
	})
	if err != nil || !parsed.Valid {
		return uuid.Nil, fmt.Errorf("%w: %v", dberrors.ErrAuthInvalid, err)
	}
	claims, ok := parsed.Claims.(*JWTClaims)
	if !ok {
		return uuid.Nil, dberrors.ErrAuthInvalid
	}
	if claims.TokenType != "access" {
		return uuid.Nil, fmt.Errorf("%w: not an access token", dberrors.ErrAuthInvalid)
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: malformed subject", dberrors.ErrAuthInvalid)
	}
	return userID, nil
}

// IssueAPIKey mints a new `if_<base64url>` key, persisting only its
// SHA-256 digest and display prefix (spec.md §6); the raw value is
// returned once and never stored.
func (s *AuthService) IssueAPIKey(ctx context.Context, userID uuid.UUID, label string) (raw string, key *types.APIKey, err error) {
	secret := make([]byte, 32)
	if _, rErr := rand.Read(secret); rErr != nil {
		return "", nil, fmt.Errorf("generate api key: %w", rErr)
	}
	encoded := base64.RawURLEncoding.EncodeToString(secret)
	raw = "if_" + encoded

	record := &types.APIKey{
		ID:      uuid.New(),
		UserID:  userID,
		Prefix:  raw[:apiKeyPrefixLen+len(apiKeyPrefix)],
		KeyHash: hashAPIKey(raw),
		Label:   label,
	}
	created, err := s.apiKeys.Create(dbctx.Context{Ctx: ctx}, record)
	if err != nil {
		return "", nil, err
	}
	return raw, created, nil
}

// VerifyAPIKey looks up a raw key by its digest and returns the owning
// user id, touching last_used_at on success.
func (s *AuthService) VerifyAPIKey(ctx context.Context, raw string) (uuid.UUID, error) {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, apiKeyPrefix) || len(raw) <= apiKeyPrefixLen+len(apiKeyPrefix) {
		return uuid.Nil, dberrors.ErrAuthInvalid
	}
	prefix := raw[:apiKeyPrefixLen+len(apiKeyPrefix)]
	dbc := dbctx.Context{Ctx: ctx}
	key, err := s.apiKeys.GetByPrefix(dbc, prefix)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: unknown key", dberrors.ErrAuthInvalid)
	}
	if key.KeyHash != hashAPIKey(raw) {
		return uuid.Nil, fmt.Errorf("%w: key mismatch", dberrors.ErrAuthInvalid)
	}
	_ = s.apiKeys.TouchLastUsed(dbc, key.ID)
	return key.UserID, nil
}

func hashAPIKey(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// isUniqueViolation is a best-effort heuristic over the Postgres/SQLite
// driver error text; both drivers surface unique violations as a
// substring rather than a typed sentinel we can type-assert on.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") || strings.Contains(msg, "duplicate")
}
