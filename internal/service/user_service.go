package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"taskboard/internal/auth"
	"taskboard/internal/domain"
	"taskboard/internal/repository"
)

// RegisterInput carries the fields accepted on registration.
type RegisterInput struct {
	Name     string `json:"name" validate:"required,min=2"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// LoginInput carries the fields accepted on login.
type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// UserService handles account lifecycle and credential verification.
type UserService interface {
	Register(ctx context.Context, in RegisterInput) (*domain.User, error)
	Login(ctx context.Context, in LoginInput) (string, *domain.User, error)
	EnsureAdmin(ctx context.Context, name, email, password string) error
	ListUsers(ctx context.Context, page, limit int) ([]domain.User, Pagination, error)
}

type userService struct {
	users    repository.UserRepository
	validate *validator.Validate
	secret   string
	tokenTTL time.Duration
}

func NewUserService(users repository.UserRepository, secret string, tokenTTL time.Duration) UserService {
	if tokenTTL <= 0 {
		tokenTTL = 24 * time.Hour
	}
	return &userService{
		users:    users,
		validate: validator.New(),
		secret:   secret,
		tokenTTL: tokenTTL,
	}
}

func (s *userService) Register(ctx context.Context, in RegisterInput) (*domain.User, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)

	if err := s.validate.Struct(in); err != nil {
		return nil, validationError(err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &domain.User{
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: string(hash),
		Role:         domain.RoleUser,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	return sanitizeUser(user), nil
}

func (s *userService) Login(ctx context.Context, in LoginInput) (string, *domain.User, error) {
	in.Email = strings.TrimSpace(in.Email)

	if err := s.validate.Struct(in); err != nil {
		return "", nil, validationError(err)
	}

	user, err := s.users.GetByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, fmt.Errorf("lookup user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.Password)); err != nil {
		return "", nil, ErrInvalidCredentials
	}

	token, err := auth.Sign(user, s.secret, s.tokenTTL)
	if err != nil {
		return "", nil, fmt.Errorf("sign token: %w", err)
	}

	return token, sanitizeUser(user), nil
}

// EnsureAdmin creates the administrator account if it does not exist yet.
// An existing account with the given email is left untouched.
func (s *userService) EnsureAdmin(ctx context.Context, name, email, password string) error {
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil
	} else if !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("lookup admin: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	admin := &domain.User{
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		Role:         domain.RoleAdmin,
	}
	if err := s.users.Create(ctx, admin); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil
		}
		return fmt.Errorf("create admin: %w", err)
	}
	return nil
}

func (s *userService) ListUsers(ctx context.Context, page, limit int) ([]domain.User, Pagination, error) {
	page, limit = normalizePage(page, limit)

	users, err := s.users.List(ctx, limit, (page-1)*limit)
	if err != nil {
		return nil, Pagination{}, fmt.Errorf("list users: %w", err)
	}
	total, err := s.users.Count(ctx)
	if err != nil {
		return nil, Pagination{}, fmt.Errorf("count users: %w", err)
	}

	for i := range users {
		users[i].PasswordHash = ""
	}
	return users, newPagination(page, limit, total), nil
}

func sanitizeUser(user *domain.User) *domain.User {
	if user == nil {
		return nil
	}
	clean := *user
	clean.PasswordHash = ""
	return &clean
}
