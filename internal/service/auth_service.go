package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/farihafhf/provabook-3-sub000/internal/config"
	"github.com/farihafhf/provabook-3-sub000/internal/entity"
	"github.com/farihafhf/provabook-3-sub000/internal/repository"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AuthService 认证服务
type AuthService struct {
	repos  *repository.Repositories
	tokens TokenStore
	cfg    config.JWTConfig
	now    func() time.Time
}

// NewAuthService 创建认证服务
func NewAuthService(repos *repository.Repositories, tokens TokenStore, cfg config.JWTConfig) *AuthService {
	return &AuthService{
		repos:  repos,
		tokens: tokens,
		cfg:    cfg,
		now:    time.Now,
	}
}

// TokenPair Token对
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// LoginResult 登录结果
type LoginResult struct {
	User *entity.User `json:"user"`
	TokenPair
}

// RegisterRequest 注册
type RegisterRequest struct {
	FullName   string `json:"full_name" binding:"required,max=200"`
	Email      string `json:"email" binding:"required,email"`
	Password   string `json:"password" binding:"required,min=8"`
	Phone      string `json:"phone" binding:"max=50"`
	Department string `json:"department" binding:"max=100"`
}

// LoginRequest 登录
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// RefreshRequest 刷新/登出
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register 注册为跟单
func (s *AuthService) Register(ctx context.Context, req *RegisterRequest) (*LoginResult, error) {
	user := &entity.User{
		Email:      normalizeEmail(req.Email),
		FullName:   strings.TrimSpace(req.FullName),
		Phone:      req.Phone,
		Department: req.Department,
		Role:       entity.RoleMerchandiser,
		IsActive:   true,
	}
	if err := user.SetPassword(req.Password); err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	if err := s.repos.User.Create(ctx, user); err != nil {
		return nil, uniqueOr(err, "email %s is already registered", user.Email)
	}
	return s.issue(ctx, user)
}

// Login 邮箱密码登录
func (s *AuthService) Login(ctx context.Context, req *LoginRequest) (*LoginResult, error) {
	user, err := s.repos.User.FindByEmail(ctx, normalizeEmail(req.Email))
	if errors.Is(err, repository.ErrNotFound) {
		return nil, unauthorizedf("invalid email or password")
	}
	if err != nil {
		return nil, err
	}
	if !user.CheckPassword(req.Password) {
		return nil, unauthorizedf("invalid email or password")
	}
	if !user.IsActive {
		return nil, forbiddenf("account is disabled")
	}

	now := s.now()
	user.LastLoginAt = &now
	if err := s.repos.User.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("update last login: %w", err)
	}
	return s.issue(ctx, user)
}

func (s *AuthService) issue(ctx context.Context, user *entity.User) (*LoginResult, error) {
	pair, err := s.generateTokenPair(ctx, user)
	if err != nil {
		return nil, err
	}
	return &LoginResult{User: user, TokenPair: *pair}, nil
}

// generateTokenPair 生成Token对，refresh token 的 jti 记录在 TokenStore
func (s *AuthService) generateTokenPair(ctx context.Context, user *entity.User) (*TokenPair, error) {
	now := s.now()

	accessClaims := jwt.MapClaims{
		"sub":   user.ID,
		"uid":   user.ID,
		"name":  user.FullName,
		"email": user.Email,
		"role":  user.Role,
		"iss":   s.cfg.Issuer,
		"iat":   now.Unix(),
		"exp":   now.Add(s.cfg.AccessTokenExpire).Unix(),
		"jti":   uuid.New().String(),
	}
	accessToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, accessClaims).SignedString([]byte(s.cfg.Secret))
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}

	refreshJti := uuid.New().String()
	refreshClaims := jwt.MapClaims{
		"sub":  user.ID,
		"type": "refresh",
		"iss":  s.cfg.Issuer,
		"iat":  now.Unix(),
		"exp":  now.Add(s.cfg.RefreshTokenExpire).Unix(),
		"jti":  refreshJti,
	}
	refreshToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, refreshClaims).SignedString([]byte(s.cfg.Secret))
	if err != nil {
		return nil, fmt.Errorf("sign refresh token: %w", err)
	}

	if s.tokens != nil {
		if err := s.tokens.Save(ctx, refreshJti, user.ID, s.cfg.RefreshTokenExpire); err != nil {
			return nil, fmt.Errorf("save refresh token: %w", err)
		}
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(s.cfg.AccessTokenExpire.Seconds()),
	}, nil
}

// parseRefresh 解析 refresh token，返回 jti 和 sub
func (s *AuthService) parseRefresh(raw string) (string, string, error) {
	token, err := jwt.Parse(raw, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.cfg.Secret), nil
	})
	if err != nil || !token.Valid {
		return "", "", unauthorizedf("invalid refresh token")
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || claims["type"] != "refresh" {
		return "", "", unauthorizedf("invalid token type")
	}
	jti, _ := claims["jti"].(string)
	sub, _ := claims["sub"].(string)
	if jti == "" || sub == "" {
		return "", "", unauthorizedf("invalid token claims")
	}
	return jti, sub, nil
}

// RefreshToken 刷新Token，旧 refresh token 单次有效
func (s *AuthService) RefreshToken(ctx context.Context, raw string) (*TokenPair, error) {
	jti, sub, err := s.parseRefresh(raw)
	if err != nil {
		return nil, err
	}

	userID := sub
	if s.tokens != nil {
		userID, err = s.tokens.Consume(ctx, jti)
		if err != nil {
			return nil, unauthorizedf("refresh token expired or invalid")
		}
		if userID != sub {
			return nil, unauthorizedf("refresh token expired or invalid")
		}
	}

	user, err := s.repos.User.FindByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, unauthorizedf("user not found")
	}
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, forbiddenf("account is disabled")
	}
	return s.generateTokenPair(ctx, user)
}

// Logout 吊销 refresh token
func (s *AuthService) Logout(ctx context.Context, raw string) error {
	jti, _, err := s.parseRefresh(raw)
	if err != nil {
		return err
	}
	if s.tokens == nil {
		return nil
	}
	return s.tokens.Revoke(ctx, jti)
}

// GetCurrentUser 获取当前用户
func (s *AuthService) GetCurrentUser(ctx context.Context, userID string) (*entity.User, error) {
	return s.repos.User.FindByID(ctx, userID)
}
