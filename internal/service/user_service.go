package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/farihafhf/provabook-3-sub000/internal/entity"
	"github.com/farihafhf/provabook-3-sub000/internal/repository"
)

// UserService 用户管理
type UserService struct {
	repos *repository.Repositories
}

func NewUserService(repos *repository.Repositories) *UserService {
	return &UserService{repos: repos}
}

// CreateUserRequest 管理员创建用户
type CreateUserRequest struct {
	FullName   string `json:"full_name" binding:"required,max=200"`
	Email      string `json:"email" binding:"required,email"`
	Password   string `json:"password" binding:"required,min=8"`
	Role       string `json:"role" binding:"required,oneof=admin manager merchandiser"`
	Phone      string `json:"phone" binding:"max=50"`
	Department string `json:"department" binding:"max=100"`
}

// UpdateUserRequest 管理员修改用户
type UpdateUserRequest struct {
	FullName   *string `json:"full_name"`
	Role       *string `json:"role" binding:"omitempty,oneof=admin manager merchandiser"`
	IsActive   *bool   `json:"is_active"`
	Phone      *string `json:"phone"`
	Department *string `json:"department"`
}

// List 用户列表
func (s *UserService) List(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.User, int64, error) {
	return s.repos.User.FindAll(ctx, page, pageSize, filters)
}

// Get 用户详情
func (s *UserService) Get(ctx context.Context, id string) (*entity.User, error) {
	return s.repos.User.FindByID(ctx, id)
}

// Create 创建用户
func (s *UserService) Create(ctx context.Context, actor Actor, req *CreateUserRequest) (*entity.User, error) {
	if !actor.IsAdmin() {
		return nil, forbiddenf("only admins can create users")
	}
	if !entity.IsValidRole(req.Role) {
		return nil, NewValidationError("role", fmt.Sprintf("invalid role %q", req.Role))
	}
	user := &entity.User{
		Email:      normalizeEmail(req.Email),
		FullName:   strings.TrimSpace(req.FullName),
		Phone:      req.Phone,
		Department: req.Department,
		Role:       req.Role,
		IsActive:   true,
	}
	if err := user.SetPassword(req.Password); err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	if err := s.repos.User.Create(ctx, user); err != nil {
		return nil, uniqueOr(err, "email %s is already registered", user.Email)
	}
	return user, nil
}

// Update 修改用户；管理员不能停用或降级自己
func (s *UserService) Update(ctx context.Context, actor Actor, id string, req *UpdateUserRequest) (*entity.User, error) {
	if !actor.IsAdmin() {
		return nil, forbiddenf("only admins can update users")
	}
	user, err := s.repos.User.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Role != nil {
		if !entity.IsValidRole(*req.Role) {
			return nil, NewValidationError("role", fmt.Sprintf("invalid role %q", *req.Role))
		}
		if user.ID == actor.UserID && *req.Role != entity.RoleAdmin {
			return nil, NewValidationError("role", "you cannot remove your own admin role")
		}
		user.Role = *req.Role
	}
	if req.IsActive != nil {
		if user.ID == actor.UserID && !*req.IsActive {
			return nil, NewValidationError("is_active", "you cannot deactivate yourself")
		}
		user.IsActive = *req.IsActive
	}
	if req.FullName != nil {
		user.FullName = strings.TrimSpace(*req.FullName)
	}
	setString(&user.Phone, req.Phone)
	setString(&user.Department, req.Department)

	if err := s.repos.User.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	return user, nil
}
