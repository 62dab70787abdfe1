// Package withdrawals reconciles seller payout requests against the wallet
// ledger and finalizes them through a transfer capability.
package withdrawals

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/easyshop-backend/internal/ledger"
	"github.com/angelmondragon/easyshop-backend/pkg/checkout"
	"github.com/angelmondragon/easyshop-backend/pkg/db/models"
	"github.com/angelmondragon/easyshop-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/easyshop-backend/pkg/errors"
	"github.com/angelmondragon/easyshop-backend/pkg/logger"
	"github.com/angelmondragon/easyshop-backend/pkg/outbox"
	"github.com/angelmondragon/easyshop-backend/pkg/outbox/payloads"
	pkgstripe "github.com/angelmondragon/easyshop-backend/pkg/stripe"
)

const defaultTransferTimeout = 15 * time.Second

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// TransferClient pays out to a connected account and returns the transfer id.
type TransferClient interface {
	Transfer(ctx context.Context, input pkgstripe.TransferInput) (string, error)
}

// Balance is the seller payout view. Available never drops below zero.
type Balance struct {
	TotalAmount        decimal.Decimal     `json:"totalAmount"`
	PendingAmount      decimal.Decimal     `json:"pendingAmount"`
	WithdrawAmount     decimal.Decimal     `json:"withdrawAmount"`
	AvailableAmount    decimal.Decimal     `json:"availableAmount"`
	PendingWithdrawals []models.Withdrawal `json:"pendingWithdrawals"`
	SuccessWithdrawals []models.Withdrawal `json:"successWithdrawals"`
}

// Service exposes the withdrawal reconciler.
type Service interface {
	AvailableBalance(ctx context.Context, sellerID uuid.UUID) (*Balance, error)
	RequestWithdrawal(ctx context.Context, sellerID uuid.UUID, amount decimal.Decimal) (*models.Withdrawal, error)
	ListPending(ctx context.Context) ([]models.Withdrawal, error)
	ConfirmWithdrawal(ctx context.Context, withdrawalID uuid.UUID) (*models.Withdrawal, error)
}

// Options tune the transfer call.
type Options struct {
	Currency        string
	TransferTimeout time.Duration
	Logger          *logger.Logger
}

type service struct {
	repo      Repository
	ledger    ledger.Repository
	tx        txRunner
	outbox    outboxPublisher
	transfers TransferClient
	opts      Options
}

// NewService wires the reconciler.
func NewService(repo Repository, ledgerRepo ledger.Repository, tx txRunner, outbox outboxPublisher, transfers TransferClient, opts Options) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("withdrawals repository required")
	}
	if ledgerRepo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if transfers == nil {
		return nil, fmt.Errorf("transfer client required")
	}
	if opts.TransferTimeout <= 0 {
		opts.TransferTimeout = defaultTransferTimeout
	}
	if opts.Currency == "" {
		opts.Currency = "usd"
	}
	return &service{
		repo:      repo,
		ledger:    ledgerRepo,
		tx:        tx,
		outbox:    outbox,
		transfers: transfers,
		opts:      opts,
	}, nil
}

func (s *service) AvailableBalance(ctx context.Context, sellerID uuid.UUID) (*Balance, error) {
	if sellerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "seller identity missing")
	}
	balance, err := computeBalance(ctx, s.repo, s.ledger, sellerID)
	if err != nil {
		return nil, err
	}

	rows, err := s.repo.ListBySeller(ctx, sellerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list withdrawals")
	}
	balance.PendingWithdrawals = []models.Withdrawal{}
	balance.SuccessWithdrawals = []models.Withdrawal{}
	for _, row := range rows {
		switch row.Status {
		case enums.WithdrawalStatusPending:
			balance.PendingWithdrawals = append(balance.PendingWithdrawals, row)
		case enums.WithdrawalStatusSuccess:
			balance.SuccessWithdrawals = append(balance.SuccessWithdrawals, row)
		}
	}
	return balance, nil
}

// RequestWithdrawal re-derives the available balance inside the transaction
// that inserts the pending row, with the seller row locked.
func (s *service) RequestWithdrawal(ctx context.Context, sellerID uuid.UUID, amount decimal.Decimal) (*models.Withdrawal, error) {
	if sellerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "seller identity missing")
	}
	if !amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be a positive number")
	}
	// wallet columns are numeric(12,2); finer amounts would be rounded on insert
	if !amount.Equal(amount.Truncate(2)) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must have at most 2 decimal places")
	}

	var created *models.Withdrawal
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := repo.LockSeller(ctx, sellerID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "seller not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lock seller")
		}

		balance, err := computeBalance(ctx, repo, s.ledger.WithTx(tx), sellerID)
		if err != nil {
			return err
		}
		if amount.GreaterThan(balance.AvailableAmount) {
			return pkgerrors.New(pkgerrors.CodeValidation, "insufficient available balance").WithDetails(map[string]any{
				"requested": amount.String(),
				"available": balance.AvailableAmount.String(),
			})
		}

		row := &models.Withdrawal{
			SellerID: sellerID,
			Amount:   amount,
			Status:   enums.WithdrawalStatusPending,
		}
		if err := repo.Create(ctx, row); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create withdrawal")
		}
		created = row

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventWithdrawalRequested,
			AggregateType: enums.AggregateWithdrawal,
			AggregateID:   row.ID,
			Actor:         &outbox.ActorRef{ID: sellerID, Role: enums.ActorRoleSeller.String()},
			Data: payloads.WithdrawalRequestedEvent{
				WithdrawalID: row.ID,
				SellerID:     sellerID,
				Amount:       amount,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *service) ListPending(ctx context.Context) ([]models.Withdrawal, error) {
	rows, err := s.repo.ListPending(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list pending withdrawals")
	}
	return rows, nil
}

// ConfirmWithdrawal transfers the funds and then flips the request to
// success. A failed transfer leaves the request pending so the operator can
// retry; the transfer is keyed by the withdrawal id.
func (s *service) ConfirmWithdrawal(ctx context.Context, withdrawalID uuid.UUID) (*models.Withdrawal, error) {
	if withdrawalID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "withdrawal id required")
	}

	row, err := s.repo.Find(ctx, withdrawalID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "withdrawal not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load withdrawal")
	}
	if row.Status == enums.WithdrawalStatusSuccess {
		return row, nil
	}

	acct, err := s.repo.FindStripeAccount(ctx, row.SellerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "seller payout account not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load payout account")
	}

	transferCtx, cancel := context.WithTimeout(ctx, s.opts.TransferTimeout)
	defer cancel()
	transferID, err := s.transfers.Transfer(transferCtx, pkgstripe.TransferInput{
		AmountCents:    checkout.ToMinorUnits(row.Amount),
		Currency:       s.opts.Currency,
		Destination:    acct.StripeAccountID,
		IdempotencyKey: "withdrawal-" + row.ID.String(),
	})
	if err != nil {
		if s.opts.Logger != nil {
			logCtx := s.opts.Logger.WithSellerID(ctx, row.SellerID.String())
			s.opts.Logger.Error(s.opts.Logger.WithField(logCtx, "withdrawal_id", row.ID.String()), "payout transfer failed", err)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "transfer to seller account")
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		updated, err := repo.MarkSuccess(ctx, row.ID, transferID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mark withdrawal paid")
		}
		if updated == 0 {
			return nil
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventWithdrawalConfirmed,
			AggregateType: enums.AggregateWithdrawal,
			AggregateID:   row.ID,
			Actor:         &outbox.ActorRef{Role: enums.ActorRoleAdmin.String()},
			Data: payloads.WithdrawalConfirmedEvent{
				WithdrawalID: row.ID,
				SellerID:     row.SellerID,
				Amount:       row.Amount,
				TransferID:   transferID,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	row.Status = enums.WithdrawalStatusSuccess
	row.TransferID = &transferID
	return row, nil
}

func computeBalance(ctx context.Context, repo Repository, ledgerRepo ledger.Repository, sellerID uuid.UUID) (*Balance, error) {
	total, err := ledgerRepo.SumSeller(ctx, sellerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "sum seller wallet")
	}
	pending, err := repo.SumByStatus(ctx, sellerID, enums.WithdrawalStatusPending)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "sum pending withdrawals")
	}
	withdrawn, err := repo.SumByStatus(ctx, sellerID, enums.WithdrawalStatusSuccess)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "sum completed withdrawals")
	}
	available := total.Sub(pending.Add(withdrawn))
	if available.IsNegative() {
		available = decimal.Zero
	}
	return &Balance{
		TotalAmount:     total,
		PendingAmount:   pending,
		WithdrawAmount:  withdrawn,
		AvailableAmount: available,
	}, nil
}
