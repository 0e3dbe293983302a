package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/complyx/complyx/internal/validation"
	"github.com/complyx/complyx/pkg/schema"
)

func requireAdmin(c Caller, what string) error {
	if c.User == nil || !c.User.IsActive || !c.User.IsAdmin() {
		return fmt.Errorf("%s is admin-only: %w", what, schema.ErrAccessDenied)
	}
	return nil
}

// Authenticate resolves an active user by id for the transport layer.
func (s *Service) Authenticate(id string) (*schema.User, error) {
	if id == "" {
		return nil, schema.ErrUnauthenticated
	}
	u, err := s.store.GetUser(id)
	if err != nil {
		return nil, fmt.Errorf("user %s: %w", id, schema.ErrUnauthenticated)
	}
	if !u.IsActive {
		return nil, fmt.Errorf("user %s is inactive: %w", id, schema.ErrUnauthenticated)
	}
	return u, nil
}

// CreateUser registers a user. Admin only.
func (s *Service) CreateUser(ctx context.Context, c Caller, in schema.UserInput) (*schema.User, error) {
	_, end := s.span(ctx, "user.create", c)
	defer end()

	if err := requireAdmin(c, "user management"); err != nil {
		return nil, err
	}
	if err := validation.Struct(&in); err != nil {
		return nil, err
	}

	now := s.clock()
	u := &schema.User{
		ID:                    s.newID(),
		Username:              strings.TrimSpace(in.Username),
		Email:                 in.Email,
		FullName:              in.FullName,
		Role:                  in.Role,
		Department:            in.Department,
		AreasOfResponsibility: in.AreasOfResponsibility,
		IsActive:              true,
		CreatedAt:             now,
		UpdatedAt:             now,
	}
	if err := s.store.CreateUser(u); err != nil {
		return nil, err
	}
	s.logger.Info("user created", zap.String("user_id", u.ID), zap.String("role", string(u.Role)))
	return u, nil
}

// ListUsers returns every user. Admin only.
func (s *Service) ListUsers(ctx context.Context, c Caller) ([]schema.User, error) {
	_, end := s.span(ctx, "user.list", c)
	defer end()

	if err := requireAdmin(c, "user management"); err != nil {
		return nil, err
	}
	return s.store.ListUsers()
}

// Me returns the caller's own profile.
func (s *Service) Me(_ context.Context, c Caller) (*schema.User, error) {
	if c.User == nil {
		return nil, schema.ErrUnauthenticated
	}
	return s.store.GetUser(c.User.ID)
}

// UpdateUser edits a profile. Admins may change anything; users may only
// change their own email and full name.
func (s *Service) UpdateUser(ctx context.Context, c Caller, id string, upd schema.UserUpdate) (*schema.User, error) {
	_, end := s.span(ctx, "user.update", c)
	defer end()

	if c.User == nil {
		return nil, schema.ErrUnauthenticated
	}
	self := c.User.ID == id
	if !c.User.IsAdmin() {
		if !self {
			return nil, fmt.Errorf("cannot edit another user: %w", schema.ErrAccessDenied)
		}
		if upd.Role != nil || upd.Department != nil || upd.AreasOfResponsibility != nil {
			return nil, fmt.Errorf("only email and full name are self-editable: %w", schema.ErrAccessDenied)
		}
	}
	if err := validation.Struct(&upd); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u, err := s.store.GetUser(id)
	if err != nil {
		return nil, err
	}
	if upd.Email != nil {
		u.Email = *upd.Email
	}
	if upd.FullName != nil {
		u.FullName = *upd.FullName
	}
	if upd.Role != nil {
		if self && *upd.Role != schema.RoleAdmin {
			return nil, validation.Errorf("admins cannot demote themselves")
		}
		u.Role = *upd.Role
	}
	if upd.Department != nil {
		u.Department = *upd.Department
	}
	if upd.AreasOfResponsibility != nil {
		u.AreasOfResponsibility = *upd.AreasOfResponsibility
	}
	u.UpdatedAt = s.clock()
	if err := s.store.PutUser(u); err != nil {
		return nil, err
	}
	return u, nil
}

// DeactivateUser disables a user. Admins cannot deactivate themselves.
func (s *Service) DeactivateUser(ctx context.Context, c Caller, id string) (*schema.User, error) {
	_, end := s.span(ctx, "user.deactivate", c)
	defer end()

	if err := requireAdmin(c, "user management"); err != nil {
		return nil, err
	}
	if c.User.ID == id {
		return nil, validation.Errorf("cannot deactivate yourself")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u, err := s.store.GetUser(id)
	if err != nil {
		return nil, err
	}
	u.IsActive = false
	u.UpdatedAt = s.clock()
	if err := s.store.PutUser(u); err != nil {
		return nil, err
	}
	s.logger.Info("user deactivated", zap.String("user_id", id), zap.String("by", c.User.ID))
	return u, nil
}

// Bootstrap creates an admin when the user registry is empty. It returns
// nil when users already exist.
func (s *Service) Bootstrap(username, email string) (*schema.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.store.ListUsers()
	if err != nil {
		return nil, err
	}
	if len(users) > 0 {
		return nil, nil
	}

	now := s.clock()
	u := &schema.User{
		ID:        s.newID(),
		Username:  username,
		Email:     email,
		FullName:  "Administrator",
		Role:      schema.RoleAdmin,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.CreateUser(u); err != nil {
		return nil, err
	}
	s.logger.Warn("bootstrap admin created", zap.String("user_id", u.ID), zap.String("username", username))
	return u, nil
}
