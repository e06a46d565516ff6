package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is component C's identity entity. Passwords are never stored
// plaintext; HashedPassword holds a bcrypt hash.
type User struct {
	ID              uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Email           string         `gorm:"column:email;not null;uniqueIndex:idx_users_email_lower" json:"email"`
	HashedPassword  string         `gorm:"column:hashed_password;not null" json:"-"`
	DisplayName     string         `gorm:"column:display_name;not null" json:"display_name"`
	Active          bool           `gorm:"column:active;not null;default:true" json:"active"`
	Superuser       bool           `gorm:"column:superuser;not null;default:false" json:"superuser"`
	CreatedAt       time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt       time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (User) TableName() string { return "users" }

// APIKey is the server-side record for an `if_<base64url>` key: only the
// SHA-256 digest of the raw key and a display prefix are persisted, per
// spec.md §6.
type APIKey struct {
	ID         uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID     uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	Prefix     string         `gorm:"column:prefix;not null" json:"prefix"`
	KeyHash    string         `gorm:"column:key_hash;not null;uniqueIndex" json:"-"`
	Label      string         `gorm:"column:label" json:"label,omitempty"`
	LastUsedAt *time.Time     `gorm:"column:last_used_at" json:"last_used_at,omitempty"`
	CreatedAt  time.Time      `gorm:"not null;default:now()" json:"created_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (APIKey) TableName() string { return "api_keys" }
