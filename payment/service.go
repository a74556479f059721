package payment

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/billbatista/zensplit/balance"
	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, p Payment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Payment, error)
	ListForUser(ctx context.Context, email string, ledgerID uuid.NullUUID) ([]Payment, error)
	UpdateStatus(ctx context.Context, p Payment) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// Directory tells whether an email belongs to a registered user.
type Directory interface {
	EmailExists(ctx context.Context, email string) (bool, error)
}

// Members lists the member emails of a ledger on behalf of viewer, failing
// when viewer is not a member.
type Members interface {
	Members(ctx context.Context, ledgerID uuid.UUID, viewer string) ([]string, error)
}

type Service struct {
	repo      Repository
	directory Directory
	members   Members
	logger    *slog.Logger
	now       func() time.Time
}

func NewService(repo Repository, directory Directory, members Members, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:      repo,
		directory: directory,
		members:   members,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

type DeclareInput struct {
	LedgerID    uuid.NullUUID
	Payer       string
	Payee       string
	Amount      float64
	Note        string
	RequestedBy string
}

// Declare records a pending payment. Payer and payee must be registered and,
// for a ledger payment, members of that ledger along with the requester.
func (s *Service) Declare(ctx context.Context, in DeclareInput) (*Payment, error) {
	p, err := NewPayment(in.LedgerID, in.Payer, in.Payee, in.Amount, in.Note, in.RequestedBy)
	if err != nil {
		return nil, err
	}

	for _, email := range []string{p.Payer, p.Payee} {
		ok, err := s.directory.EmailExists(ctx, email)
		if err != nil {
			return nil, fmt.Errorf("looking up user: %w", err)
		}
		if !ok {
			return nil, ErrUnknownUser
		}
	}

	if p.LedgerID.Valid {
		members, err := s.members.Members(ctx, p.LedgerID.UUID, p.CreatedBy)
		if err != nil {
			return nil, err
		}
		if !slices.Contains(members, p.Payer) || !slices.Contains(members, p.Payee) {
			return nil, ErrPartyNotMember
		}
	}

	if err := s.repo.Create(ctx, *p); err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "payment declared", "payment_id", p.ID, "payer", p.Payer, "payee", p.Payee, "amount", p.Amount)
	return p, nil
}

func (s *Service) List(ctx context.Context, email string, ledgerID uuid.NullUUID) ([]Payment, error) {
	return s.repo.ListForUser(ctx, balance.NormalizeEmail(email), ledgerID)
}

func (s *Service) Verify(ctx context.Context, id uuid.UUID, by string) (*Payment, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := p.Verify(by, s.now()); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateStatus(ctx, *p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) Cancel(ctx context.Context, id uuid.UUID, by string) (*Payment, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := p.Cancel(by); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateStatus(ctx, *p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID, by string) error {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := p.CanDelete(by); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}
