package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ProjectRole is strictly linear: OWNER > ADMIN > EDITOR > VIEWER.
type ProjectRole string

const (
	RoleOwner  ProjectRole = "OWNER"
	RoleAdmin  ProjectRole = "ADMIN"
	RoleEditor ProjectRole = "EDITOR"
	RoleViewer ProjectRole = "VIEWER"
)

// roleRank orders roles for the ">= minimum role" authorization check in
// spec.md §6.
var roleRank = map[ProjectRole]int{
	RoleViewer: 0,
	RoleEditor: 1,
	RoleAdmin:  2,
	RoleOwner:  3,
}

// AtLeast reports whether r meets or exceeds min in the role hierarchy.
// An unrecognized role never satisfies any minimum.
func (r ProjectRole) AtLeast(min ProjectRole) bool {
	rr, ok := roleRank[r]
	if !ok {
		return false
	}
	mr, ok := roleRank[min]
	if !ok {
		return false
	}
	return rr >= mr
}

// Project is the tenant boundary (component C). Owns members, media,
// datasets, and prompt templates; deleting a project cascades to all.
type Project struct {
	ID        uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Slug      string         `gorm:"column:slug;not null;uniqueIndex" json:"slug"`
	Name      string         `gorm:"column:name;not null" json:"name"`
	Settings  datatypes.JSON `gorm:"column:settings;type:jsonb" json:"settings,omitempty"`
	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Project) TableName() string { return "projects" }

// ProjectMember is unique per (project, user).
type ProjectMember struct {
	ID        uuid.UUID   `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	ProjectID uuid.UUID   `gorm:"type:uuid;not null;uniqueIndex:idx_project_member_unique" json:"project_id"`
	UserID    uuid.UUID   `gorm:"type:uuid;not null;uniqueIndex:idx_project_member_unique" json:"user_id"`
	Role      ProjectRole `gorm:"column:role;not null" json:"role"`
	CreatedAt time.Time   `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time   `gorm:"not null;default:now()" json:"updated_at"`
}

func (ProjectMember) TableName() string { return "project_members" }

// PromptTemplate is a project-scoped custom VLM prompt, referenced by
// Media.CustomPromptID during indexing (spec.md 4.D).
type PromptTemplate struct {
	ID        uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	ProjectID uuid.UUID      `gorm:"type:uuid;not null;index" json:"project_id"`
	Name      string         `gorm:"column:name;not null" json:"name"`
	Prompt    string         `gorm:"column:prompt;not null" json:"prompt"`
	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (PromptTemplate) TableName() string { return "prompt_templates" }
