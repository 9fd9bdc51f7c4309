package users

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/comanda-pos/comanda/internal/shared"
)

// RepositoryPort defines data access methods for users.
type RepositoryPort interface {
	ListUsers(ctx context.Context) ([]User, error)
	GetUser(ctx context.Context, id int64) (User, error)
	CreateUser(ctx context.Context, user User, passwordHash string) (User, error)
	UpdateRole(ctx context.Context, id int64, role shared.Role) error
	DeleteUser(ctx context.Context, id int64) error
}

// Service handles user business logic.
type Service struct {
	repo   RepositoryPort
	logger *slog.Logger
	cost   int
	audit  shared.AuditRecorder
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger, cost: bcrypt.DefaultCost}
}

// SetAudit sets the audit trail for account changes.
func (s *Service) SetAudit(a shared.AuditRecorder) { s.audit = a }

func (s *Service) record(ctx context.Context, action string, id int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, shared.AuditLog{Action: action, Entity: "user", EntityID: id, Meta: meta}); err != nil {
		s.logger.Error("audit user change", slog.String("action", action), slog.Int64("user_id", id), slog.Any("error", err))
	}
}

// ListUsers returns all users.
func (s *Service) ListUsers(ctx context.Context) ([]User, error) {
	return s.repo.ListUsers(ctx)
}

// CreateUser validates and stores a new staff account.
func (s *Service) CreateUser(ctx context.Context, in CreateInput) (User, error) {
	username := strings.TrimSpace(in.Username)
	if username == "" || in.Password == "" {
		return User{}, fmt.Errorf("%w: username and password are required", shared.ErrValidation)
	}
	role, ok := shared.ParseRole(in.Role)
	if !ok {
		return User{}, fmt.Errorf("%w: unknown role %q", shared.ErrValidation, in.Role)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return User{}, err
	}
	user, err := s.repo.CreateUser(ctx, User{Username: username, Name: strings.TrimSpace(in.Name), Role: role}, string(hash))
	if err != nil {
		if errors.Is(err, ErrDuplicateUsername) {
			return User{}, fmt.Errorf("%w: %s", shared.ErrValidation, err.Error())
		}
		return User{}, err
	}
	s.logger.Info("user created", slog.Int64("user_id", user.ID), slog.String("role", string(role)))
	return user, nil
}

// ChangeRole assigns a new role to a user.
func (s *Service) ChangeRole(ctx context.Context, id int64, raw string) error {
	role, ok := shared.ParseRole(raw)
	if !ok {
		return fmt.Errorf("%w: unknown role %q", shared.ErrValidation, raw)
	}
	if err := s.repo.UpdateRole(ctx, id, role); err != nil {
		return err
	}
	s.logger.Info("user role changed", slog.Int64("user_id", id), slog.String("role", string(role)))
	s.record(ctx, "change_role", id, map[string]any{"role": string(role)})
	return nil
}

// DeleteUser removes an account. Administrators cannot delete themselves.
func (s *Service) DeleteUser(ctx context.Context, actor shared.Actor, id int64) error {
	if actor.UserID == id {
		return fmt.Errorf("%w: you cannot delete your own account", shared.ErrValidation)
	}
	user, err := s.repo.GetUser(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteUser(ctx, id); err != nil {
		return err
	}
	s.record(ctx, "delete", id, map[string]any{"username": user.Username})
	return nil
}
