package repos

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/pierdell/mediaforge-backend/internal/domain"
	"github.com/pierdell/mediaforge-backend/internal/platform/dbctx"
	"github.com/pierdell/mediaforge-backend/internal/platform/logger"
)

type UserRepo interface {
	Create(dbc dbctx.Context, user *types.User) (*types.User, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.User, error)
	GetByEmail(dbc dbctx.Context, email string) (*types.User, error)
	Update(dbc dbctx.Context, user *types.User) error
}

type userRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUserRepo(db *gorm.DB, log *logger.Logger) UserRepo {
	return &userRepo{db: db, log: log.With("repo", "UserRepo")}
}

func (r *userRepo) Create(dbc dbctx.Context, user *types.User) (*types.User, error) {
	if err := tx(r.db, dbc.Tx).WithContext(dbc.Ctx).Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

func (r *userRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.User, error) {
	var u types.User
	if err := tx(r.db, dbc.Tx).WithContext(dbc.Ctx).Where("id = ?", id).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByEmail matches case-insensitively (email uniqueness is
// case-insensitive per spec.md §3).
func (r *userRepo) GetByEmail(dbc dbctx.Context, email string) (*types.User, error) {
	var u types.User
	err := tx(r.db, dbc.Tx).WithContext(dbc.Ctx).
		Where("lower(email) = lower(?)", strings.TrimSpace(email)).
		First(&u).Error
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *userRepo) Update(dbc dbctx.Context, user *types.User) error {
	return tx(r.db, dbc.Tx).WithContext(dbc.Ctx).Save(user).Error
}

type APIKeyRepo interface {
	Create(dbc dbctx.Context, key *types.APIKey) (*types.APIKey, error)
	GetByPrefix(dbc dbctx.Context, prefix string) (*types.APIKey, error)
	ListByUser(dbc dbctx.Context, userID uuid.UUID) ([]*types.APIKey, error)
	Delete(dbc dbctx.Context, id uuid.UUID) error
	TouchLastUsed(dbc dbctx.Context, id uuid.UUID) error
}

type apiKeyRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAPIKeyRepo(db *gorm.DB, log *logger.Logger) APIKeyRepo {
	return &apiKeyRepo{db: db, log: log.With("repo", "APIKeyRepo")}
}

// HashRawKey computes the digest stored server-side for a raw `if_...`
// API key; the raw value itself is never persisted (spec.md §6).
func HashRawKey(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

func (r *apiKeyRepo) Create(dbc dbctx.Context, key *types.APIKey) (*types.APIKey, error) {
	if err := tx(r.db, dbc.Tx).WithContext(dbc.Ctx).Create(key).Error; err != nil {
		return nil, err
	}
	return key, nil
}

func (r *apiKeyRepo) GetByPrefix(dbc dbctx.Context, prefix string) (*types.APIKey, error) {
	var k types.APIKey
	if err := tx(r.db, dbc.Tx).WithContext(dbc.Ctx).Where("prefix = ?", prefix).First(&k).Error; err != nil {
		return nil, err
	}
	return &k, nil
}

func (r *apiKeyRepo) ListByUser(dbc dbctx.Context, userID uuid.UUID) ([]*types.APIKey, error) {
	var out []*types.APIKey
	if err := tx(r.db, dbc.Tx).WithContext(dbc.Ctx).Where("user_id = ?", userID).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *apiKeyRepo) Delete(dbc dbctx.Context, id uuid.UUID) error {
	return tx(r.db, dbc.Tx).WithContext(dbc.Ctx).Delete(&types.APIKey{}, "id = ?", id).Error
}

func (r *apiKeyRepo) TouchLastUsed(dbc dbctx.Context, id uuid.UUID) error {
	return tx(r.db, dbc.Tx).WithContext(dbc.Ctx).
		Model(&types.APIKey{}).
		Where("id = ?", id).
		Update("last_used_at", gorm.Expr("now()")).Error
}
