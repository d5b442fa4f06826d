package models

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

type UserRole string

const (
	UserRoleUser  UserRole = "user"
	UserRoleAdmin UserRole = "admin"
)

// User is a Telegram account known to the service. The primary key is the
// Telegram user id, not a generated one.
type User struct {
	ID           int64     `json:"id" gorm:"primaryKey;autoIncrement:false"`
	FullName     string    `json:"fullName" gorm:"column:full_name"`
	Username     string    `json:"username" gorm:"column:username"`
	Role         string    `json:"role" gorm:"column:role;not null;default:'user'"`
	Password     string    `json:"-" gorm:"-:all"` // Temporary field for password handling
	PasswordHash string    `json:"-" gorm:"column:password_hash"`
	RegisteredAt time.Time `json:"registeredAt" gorm:"column:registered_at;autoCreateTime"`
}

// TableName specifies the table name
func (User) TableName() string {
	return "users"
}

// HashPassword hashes the temporary Password field into PasswordHash.
// Only admins log in to the HTTP API, so most rows never set it.
func (u *User) HashPassword() error {
	if u.Password == "" {
		return nil
	}
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(u.Password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hashedPassword)
	return nil
}

func (u *User) CheckPassword(password string) error {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password))
}

func (u *User) IsAdmin() bool {
	return u.Role == string(UserRoleAdmin)
}
