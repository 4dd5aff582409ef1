package entity

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

// 用户角色
const (
	RoleAdmin        = "admin"
	RoleManager      = "manager"
	RoleMerchandiser = "merchandiser"
)

func IsValidRole(role string) bool {
	return role == RoleAdmin || role == RoleManager || role == RoleMerchandiser
}

// User 用户
type User struct {
	ID           string     `json:"id" gorm:"primaryKey;size:32"`
	Email        string     `json:"email" gorm:"size:200;uniqueIndex;not null"`
	FullName     string     `json:"full_name" gorm:"size:200"`
	Phone        string     `json:"phone" gorm:"size:50"`
	Department   string     `json:"department" gorm:"size:100"`
	Role         string     `json:"role" gorm:"size:20;not null;default:merchandiser"`
	IsActive     bool       `json:"is_active" gorm:"default:true"`
	PasswordHash string     `json:"-" gorm:"size:100"`
	LastLoginAt  *time.Time `json:"last_login_at"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

func (User) TableName() string {
	return "user_profiles"
}

// SetPassword 设置密码哈希
func (u *User) SetPassword(password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hash)
	return nil
}

// CheckPassword 校验密码
func (u *User) CheckPassword(password string) bool {
	if u.PasswordHash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
