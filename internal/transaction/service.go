package transaction

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=transaction
type Repository interface {
	CreateTransaction(ctx context.Context, tx *Transaction) error
	GetTransaction(ctx context.Context, id uuid.UUID) (*Transaction, error)
	ListTransactions(ctx context.Context, filter ListFilter) ([]*Transaction, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status Status) error
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

type CreateParams struct {
	CondominiumID uuid.UUID
	Type          Type
	Status        Status
	Amount        int64
	DueDate       time.Time
	PaymentID     string
	Description   string
}

type ListFilter struct {
	CondominiumID *uuid.UUID
	Status        *Status
	Reconciled    *bool
	StartDate     *time.Time
	EndDate       *time.Time
}

func (s *Service) Create(ctx context.Context, params CreateParams) (*Transaction, error) {
	if params.CondominiumID == uuid.Nil {
		return nil, fmt.Errorf("%w: condominium id is required", ErrValidation)
	}

	if params.Amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", ErrValidation)
	}

	if params.Status == "" {
		params.Status = StatusPending
	}

	tx := &Transaction{
		CondominiumID: params.CondominiumID,
		Type:          params.Type,
		Status:        params.Status,
		Amount:        params.Amount,
		DueDate:       params.DueDate,
		PaymentID:     params.PaymentID,
		Description:   params.Description,
	}
	if err := s.repo.CreateTransaction(ctx, tx); err != nil {
		return nil, err
	}

	return tx, nil
}

func (s *Service) List(ctx context.Context, filter ListFilter) ([]*Transaction, error) {
	return s.repo.ListTransactions(ctx, filter)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Transaction, error) {
	return s.repo.GetTransaction(ctx, id)
}

func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, status Status) error {
	return s.repo.UpdateStatus(ctx, id, status)
}
