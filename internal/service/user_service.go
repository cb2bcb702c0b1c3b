package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"casetrack/internal/domain"
	"casetrack/internal/store"
)

type UserService struct {
	store *store.Store
	now   func() time.Time
}

func NewUserService(st *store.Store) *UserService {
	return &UserService{store: st, now: time.Now}
}

type CreateUserInput struct {
	Email string
	Name  string
	Role  domain.Role
}

func (s *UserService) Create(ctx context.Context, actor Actor, in CreateUserInput) (*domain.User, error) {
	if actor.Role != domain.RoleAdmin {
		return nil, fmt.Errorf("%w: only an admin may create users", domain.ErrForbidden)
	}
	email := strings.TrimSpace(strings.ToLower(in.Email))
	if email == "" {
		return nil, fmt.Errorf("%w: email required", domain.ErrInvalidRequest)
	}
	if !in.Role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", domain.ErrInvalidRequest, in.Role)
	}

	now := s.now().UTC()
	usr := &domain.User{
		Email:     email,
		Name:      strings.TrimSpace(in.Name),
		Role:      in.Role,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.Users().Create(ctx, usr); err != nil {
		return nil, err
	}
	return usr, nil
}

func (s *UserService) Get(ctx context.Context, id domain.UserID) (*domain.User, error) {
	usr, err := s.store.Users().GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", domain.ErrUserNotFound, id)
		}
		return nil, err
	}
	return usr, nil
}

func (s *UserService) List(ctx context.Context) ([]domain.User, error) {
	return s.store.Users().List(ctx)
}

// SetActive enables or disables a user. Disabled caseworkers keep their current
// cases but cannot receive new assignments.
func (s *UserService) SetActive(ctx context.Context, actor Actor, id domain.UserID, active bool) (*domain.User, error) {
	if actor.Role != domain.RoleAdmin {
		return nil, fmt.Errorf("%w: only an admin may change user status", domain.ErrForbidden)
	}
	if err := s.store.Users().SetActive(ctx, id, active); err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", domain.ErrUserNotFound, id)
		}
		return nil, err
	}
	return s.Get(ctx, id)
}
