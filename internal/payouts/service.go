// Package payouts links sellers to Stripe connected accounts.
package payouts

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/easyshop-backend/pkg/db/models"
	"github.com/angelmondragon/easyshop-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/easyshop-backend/pkg/errors"
	"github.com/angelmondragon/easyshop-backend/pkg/logger"
	"github.com/angelmondragon/easyshop-backend/pkg/outbox"
	"github.com/angelmondragon/easyshop-backend/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// AccountClient creates Express accounts and onboarding links.
type AccountClient interface {
	CreateExpressAccount(ctx context.Context, email, country string) (string, error)
	CreateAccountLink(ctx context.Context, accountID, refreshURL, returnURL string) (string, error)
}

// Service exposes seller payout onboarding.
type Service interface {
	CreateOnboardingLink(ctx context.Context, sellerID uuid.UUID) (string, error)
	ActivateAccount(ctx context.Context, sellerID uuid.UUID, code string) error
}

type Options struct {
	FrontendURL string
	Country     string
	Logger      *logger.Logger
}

type service struct {
	repo     Repository
	tx       txRunner
	outbox   outboxPublisher
	accounts AccountClient
	opts     Options
	newCode  func() string
}

func NewService(repo Repository, tx txRunner, outbox outboxPublisher, accounts AccountClient, opts Options) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("payouts repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if accounts == nil {
		return nil, fmt.Errorf("account client required")
	}
	opts.FrontendURL = strings.TrimRight(strings.TrimSpace(opts.FrontendURL), "/")
	if opts.FrontendURL == "" {
		return nil, fmt.Errorf("frontend url required")
	}
	if opts.Country == "" {
		opts.Country = "US"
	}
	return &service{
		repo:     repo,
		tx:       tx,
		outbox:   outbox,
		accounts: accounts,
		opts:     opts,
		newCode:  uuid.NewString,
	}, nil
}

// CreateOnboardingLink creates a fresh Express account for the seller and
// returns the hosted onboarding URL. A previous link is replaced.
func (s *service) CreateOnboardingLink(ctx context.Context, sellerID uuid.UUID) (string, error) {
	if sellerID == uuid.Nil {
		return "", pkgerrors.New(pkgerrors.CodeUnauthorized, "seller identity missing")
	}
	seller, err := s.repo.FindSeller(ctx, sellerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", pkgerrors.New(pkgerrors.CodeNotFound, "seller not found")
		}
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load seller")
	}

	accountID, err := s.accounts.CreateExpressAccount(ctx, seller.Email, s.opts.Country)
	if err != nil {
		s.logFailure(ctx, sellerID, "create connected account failed", err)
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create connected account")
	}

	code := s.newCode()
	url, err := s.accounts.CreateAccountLink(ctx, accountID,
		s.opts.FrontendURL+"/payment/stripe/refresh",
		s.opts.FrontendURL+"/payment/stripe/"+code,
	)
	if err != nil {
		s.logFailure(ctx, sellerID, "create account link failed", err)
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create account link")
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.repo.WithTx(tx).ReplaceAccount(ctx, &models.StripeAccount{
			SellerID:        sellerID,
			StripeAccountID: accountID,
			Code:            code,
		})
	})
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "store connected account")
	}
	return url, nil
}

// ActivateAccount consumes the code from the onboarding return URL. Codes
// issued to other sellers are reported as unknown.
func (s *service) ActivateAccount(ctx context.Context, sellerID uuid.UUID, code string) error {
	if sellerID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "seller identity missing")
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "activation code required")
	}

	acct, err := s.repo.FindAccountByCode(ctx, code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "invalid activation code")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load connected account")
	}
	if acct.SellerID != sellerID {
		return pkgerrors.New(pkgerrors.CodeNotFound, "invalid activation code")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		updated, err := s.repo.WithTx(tx).ActivateSeller(ctx, sellerID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "activate seller payments")
		}
		if updated == 0 {
			return pkgerrors.New(pkgerrors.CodeNotFound, "seller not found")
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPayoutAccountActivated,
			AggregateType: enums.AggregateSeller,
			AggregateID:   sellerID,
			Actor:         &outbox.ActorRef{ID: sellerID, Role: enums.ActorRoleSeller.String()},
			Data: payloads.PayoutAccountActivatedEvent{
				SellerID:        sellerID,
				StripeAccountID: acct.StripeAccountID,
			},
		})
	})
}

func (s *service) logFailure(ctx context.Context, sellerID uuid.UUID, msg string, err error) {
	if s.opts.Logger == nil {
		return
	}
	s.opts.Logger.Error(s.opts.Logger.WithSellerID(ctx, sellerID.String()), msg, err)
}
