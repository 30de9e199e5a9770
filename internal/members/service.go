package members

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/jcalloway/tillpoint-backend/pkg/db/models"
	pkgerrors "github.com/jcalloway/tillpoint-backend/pkg/errors"
)

// Service exposes member lookup and back-office maintenance.
type Service interface {
	List(ctx context.Context) ([]models.Member, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Member, error)
	Lookup(ctx context.Context, phone string) (*models.Member, error)
	Register(ctx context.Context, name, phone string) (*models.Member, error)
	AdjustPoints(ctx context.Context, id uuid.UUID, delta int) (*models.Member, error)
	SetFrozen(ctx context.Context, id uuid.UUID, frozen bool) (*models.Member, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("members repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) List(ctx context.Context) ([]models.Member, error) {
	return s.repo.List(ctx)
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Member, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *service) Lookup(ctx context.Context, phone string) (*models.Member, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "phone is required")
	}
	return s.repo.FindByPhone(ctx, phone)
}

func (s *service) Register(ctx context.Context, name, phone string) (*models.Member, error) {
	name = strings.TrimSpace(name)
	phone = strings.TrimSpace(phone)
	if name == "" || phone == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name and phone are required")
	}
	if existing, err := s.repo.FindByPhone(ctx, phone); err == nil && existing != nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "phone already registered")
	}
	member := &models.Member{
		ID:    uuid.New(),
		Name:  name,
		Phone: phone,
	}
	if err := s.repo.Create(ctx, member); err != nil {
		return nil, err
	}
	return member, nil
}

// AdjustPoints applies a manual balance correction. The balance never goes
// below zero.
func (s *service) AdjustPoints(ctx context.Context, id uuid.UUID, delta int) (*models.Member, error) {
	member, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	next := member.Points + delta
	if next < 0 {
		next = 0
	}
	if err := s.repo.SetPoints(ctx, id, next); err != nil {
		return nil, err
	}
	member.Points = next
	return member, nil
}

func (s *service) SetFrozen(ctx context.Context, id uuid.UUID, frozen bool) (*models.Member, error) {
	member, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.repo.SetFrozen(ctx, id, frozen); err != nil {
		return nil, err
	}
	member.Frozen = frozen
	return member, nil
}
