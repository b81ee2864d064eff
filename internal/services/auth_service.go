package services

import (
	"fmt"

	"github.com/studyhub-io/studyhub/internal/models"
	"github.com/studyhub-io/studyhub/internal/repositories"
	"github.com/studyhub-io/studyhub/middleware/jwt"
	"github.com/studyhub-io/studyhub/pkg/utils"
)

// AuthService 认证服务
type AuthService struct {
	userRepo *repositories.UserRepository
	tokens   *jwt.TokenManager
}

// NewAuthService 创建认证服务实例
func NewAuthService(userRepo *repositories.UserRepository, tokens *jwt.TokenManager) *AuthService {
	return &AuthService{
		userRepo: userRepo,
		tokens:   tokens,
	}
}

// RegisterRequest 注册请求
type RegisterRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginRequest 登录请求
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// AuthResponse 认证响应
type AuthResponse struct {
	Token string   `json:"token"`
	User  *UserDTO `json:"user"`
}

// UserDTO 用户数据传输对象
type UserDTO struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Nickname string `json:"nickname"`
}

func toUserDTO(user *models.User) *UserDTO {
	if user == nil {
		return nil
	}
	return &UserDTO{
		ID:       user.ID,
		Username: user.Username,
		Email:    user.Email,
		Nickname: user.Nickname,
	}
}

// Register 注册用户
func (s *AuthService) Register(req *RegisterRequest) (*AuthResponse, error) {
	// 验证输入
	if !utils.ValidateUsername(req.Username) {
		return nil, fmt.Errorf("%w: invalid username format", ErrInvalidInput)
	}
	if !utils.ValidateEmail(req.Email) {
		return nil, fmt.Errorf("%w: invalid email format", ErrInvalidInput)
	}
	if !utils.ValidatePassword(req.Password) {
		return nil, fmt.Errorf("%w: password too short", ErrInvalidInput)
	}

	// 检查用户名和邮箱是否已存在
	if _, err := s.userRepo.GetByUsername(req.Username); err == nil {
		return nil, fmt.Errorf("%w: username already exists", ErrConflict)
	}
	if _, err := s.userRepo.GetByEmail(req.Email); err == nil {
		return nil, fmt.Errorf("%w: email already exists", ErrConflict)
	}

	// 密码哈希
	hashPassword, err := utils.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hashPassword,
		Nickname:     req.Username,
	}

	if err := s.userRepo.Create(user); err != nil {
		return nil, err
	}

	token, err := s.tokens.GenerateToken(user.ID, user.Username, user.Email)
	if err != nil {
		return nil, err
	}

	return &AuthResponse{
		Token: token,
		User:  toUserDTO(user),
	}, nil
}

// Login 登录用户，邮箱+密码换取 token
func (s *AuthService) Login(req *LoginRequest) (*AuthResponse, error) {
	user, err := s.userRepo.GetByEmail(req.Email)
	if err != nil {
		return nil, fmt.Errorf("%w: email or password incorrect", ErrUnauthenticated)
	}

	if !utils.CheckPassword(user.PasswordHash, req.Password) {
		return nil, fmt.Errorf("%w: email or password incorrect", ErrUnauthenticated)
	}

	token, err := s.tokens.GenerateToken(user.ID, user.Username, user.Email)
	if err != nil {
		return nil, err
	}

	return &AuthResponse{
		Token: token,
		User:  toUserDTO(user),
	}, nil
}

// Identify 校验 token 并返回对应用户，WebSocket 握手后的 auth 帧走这里
func (s *AuthService) Identify(token string) (*models.User, error) {
	claims, err := s.tokens.ParseToken(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}

	user, err := s.userRepo.GetByEmail(claims.UserEmail)
	if err != nil {
		return nil, fmt.Errorf("%w: unknown user", ErrUnauthenticated)
	}
	return user, nil
}
