package models

import (
	"time"

	"gorm.io/gorm"
)

type UserRole string

const (
	RoleLearner UserRole = "learner"
	RoleAuthor  UserRole = "author"
	RoleAdmin   UserRole = "admin"
)

// User mirrors the identity provider's account record. IDs come from Casdoor
// so the primary key is the provider's string subject, not a serial.
type User struct {
	ID       string   `json:"id" gorm:"primaryKey;size:255"`
	FullName string   `json:"full_name" gorm:"not null;size:100"`
	Email    string   `json:"email" gorm:"uniqueIndex;not null;size:255"`
	Role     UserRole `json:"role" gorm:"default:learner;size:20"`

	AvatarURL *string `json:"avatar_url" gorm:"size:500"`
	Language  string  `json:"language" gorm:"default:en;size:10"`

	IsActive    bool       `json:"is_active" gorm:"default:true"`
	LastLoginAt *time.Time `json:"last_login_at"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

func (User) TableName() string {
	return "users"
}
