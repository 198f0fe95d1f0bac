package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"agro-crm/internal/apierror"
	"agro-crm/internal/database"
	"agro-crm/internal/dto"
	"agro-crm/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Claims are the custom claims of every access token.
type Claims struct {
	UserID uint            `json:"user_id"`
	Email  string          `json:"email"`
	Role   models.UserRole `json:"role"`
	jwt.RegisteredClaims
}

type AuthService struct {
	db     *gorm.DB
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewAuthService(db *gorm.DB, secret string, expirationHours int) *AuthService {
	return &AuthService{
		db:     db,
		secret: []byte(secret),
		ttl:    time.Duration(expirationHours) * time.Hour,
		now:    time.Now,
	}
}

func renderUser(u *models.User) dto.UserResponse {
	return dto.UserResponse{ID: u.ID, Email: u.Email, Role: string(u.Role)}
}

// Login checks the credentials and issues an HS256 token.
func (s *AuthService) Login(ctx context.Context, req dto.LoginRequest) (*dto.LoginResponse, *models.User, error) {
	var user models.User
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, apierror.Unauthorized("invalid credentials")
		}
		return nil, nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, nil, apierror.Unauthorized("invalid credentials")
	}

	token, err := s.issue(&user)
	if err != nil {
		return nil, nil, fmt.Errorf("sign token: %w", err)
	}
	return &dto.LoginResponse{
		Message:   "login successful",
		Token:     token,
		TokenType: "bearer",
		ExpiresIn: int(s.ttl.Seconds()),
		User:      renderUser(&user),
	}, &user, nil
}

func (s *AuthService) issue(u *models.User) (string, error) {
	now := s.now()
	claims := Claims{
		UserID: u.ID,
		Email:  u.Email,
		Role:   u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   fmt.Sprint(u.ID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// ParseToken verifies a bearer token and returns its claims.
func (s *AuthService) ParseToken(raw string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil || !token.Valid {
		return nil, apierror.Unauthorized("invalid or expired token")
	}
	return claims, nil
}

func (s *AuthService) CreateUser(ctx context.Context, actor *uint, req dto.CreateUserRequest) (*dto.UserResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	role := models.UserRole(req.Role)
	if role == "" {
		role = models.RoleConsultant
	}

	var n int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("email = ?", email).Count(&n).Error; err != nil {
		return nil, err
	}
	if n > 0 {
		return nil, apierror.Conflict("email already registered")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user := models.User{Email: email, PasswordHash: string(hash), Role: role}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	database.CreateAuditLog(ctx, s.db, actor, "user", user.ID, "create", "user "+user.Email+" created")
	out := renderUser(&user)
	return &out, nil
}

func (s *AuthService) Me(ctx context.Context, id uint) (*dto.UserResponse, error) {
	user, err := s.User(ctx, id)
	if err != nil {
		return nil, err
	}
	out := renderUser(user)
	return &out, nil
}

// User loads the account behind a token or session.
func (s *AuthService) User(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, notFound(err, "user")
	}
	return &user, nil
}
