package models

import (
	"time"
)

// Role is the access level of a user account.
type Role string

const (
	RoleConsumer Role = "consumer"
	RoleVendor   Role = "vendor"
	RoleAdmin    Role = "admin"
)

// User represents the users table
// DB: users
type User struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	Email     string     `gorm:"column:email;size:255;not null;uniqueIndex:users_email_key" json:"email"`
	Password  string     `gorm:"column:password;size:255;not null" json:"-"`
	Name      *string    `gorm:"column:name;size:100" json:"name,omitempty"`
	Role      Role       `gorm:"column:role;size:20;not null;default:'consumer'" json:"role"`
	IsActive  bool       `gorm:"column:is_active;not null;default:true" json:"isActive"`
	LastLogin *time.Time `gorm:"column:last_login" json:"lastLogin,omitempty"`
	CreatedAt time.Time  `gorm:"column:created_at;not null" json:"createdAt"`
	UpdatedAt time.Time  `gorm:"column:updated_at;not null" json:"updatedAt"`

	// Relations
	Vendor *Vendor `gorm:"foreignKey:UserID" json:"vendor,omitempty"`
}

func (User) TableName() string {
	return "users"
}
