// Package settlement posts wallet entries once a customer order is paid.
package settlement

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/easyshop-backend/internal/ledger"
	"github.com/angelmondragon/easyshop-backend/pkg/db"
	"github.com/angelmondragon/easyshop-backend/pkg/db/models"
	"github.com/angelmondragon/easyshop-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/easyshop-backend/pkg/errors"
	"github.com/angelmondragon/easyshop-backend/pkg/logger"
	"github.com/angelmondragon/easyshop-backend/pkg/metrics"
)

const (
	shopEntryConstraint   = "uq_shop_wallet_entries_order"
	sellerEntryConstraint = "uq_seller_wallet_entries_order_seller"
)

// Settler is the surface the order aggregator depends on. Observe is called
// only after the transaction that ran Settle has committed.
type Settler interface {
	Settle(ctx context.Context, tx *gorm.DB, input SettleInput) (*Settlement, error)
	Observe(ctx context.Context, settled *Settlement)
}

// SettleInput describes a freshly paid order.
type SettleInput struct {
	Order     *models.CustomerOrder
	SubOrders []models.SellerOrder
	At        time.Time
}

// Posting is one wallet entry written by Settle.
type Posting struct {
	Scope  enums.WalletScope
	Amount decimal.Decimal
}

// Settlement is what Settle wrote for one order.
type Settlement struct {
	OrderID  uuid.UUID
	Month    int
	Year     int
	Postings []Posting
}

// Engine writes one shop entry for the full order price and one seller entry
// per sub-order, tagged with the calendar month and year of At.
type Engine struct {
	repo    ledger.Repository
	ledger  ledger.Service
	metrics *metrics.SettlementMetrics
	logg    *logger.Logger
}

// NewEngine wires the engine to the wallet ledger.
func NewEngine(repo ledger.Repository, m *metrics.SettlementMetrics, logg *logger.Logger) (*Engine, error) {
	if repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	svc, err := ledger.NewService(repo)
	if err != nil {
		return nil, err
	}
	return &Engine{repo: repo, ledger: svc, metrics: m, logg: logg}, nil
}

// Settle must run inside the caller's transaction. A second settlement of the
// same order violates the wallet unique constraints and surfaces as CONFLICT.
func (e *Engine) Settle(ctx context.Context, tx *gorm.DB, input SettleInput) (*Settlement, error) {
	if input.Order == nil || input.Order.ID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order is required")
	}
	if input.At.IsZero() {
		input.At = time.Now().UTC()
	}
	month, year := int(input.At.Month()), input.At.Year()
	svc := e.ledger.WithRepository(e.repo.WithTx(tx))
	settled := &Settlement{OrderID: input.Order.ID, Month: month, Year: year}

	// zero-value postings carry no money and are skipped
	if !input.Order.Price.IsZero() {
		if _, err := svc.RecordShopCredit(ctx, ledger.ShopCreditInput{
			OrderID: input.Order.ID,
			Amount:  input.Order.Price,
			Month:   month,
			Year:    year,
		}); err != nil {
			return nil, mapPostingError(err, shopEntryConstraint, "post shop wallet entry")
		}
		settled.Postings = append(settled.Postings, Posting{Scope: enums.WalletScopeShop, Amount: input.Order.Price})
	}

	for _, sub := range input.SubOrders {
		if sub.OrderID != input.Order.ID {
			return nil, pkgerrors.New(pkgerrors.CodeConsistency, "sub-order belongs to a different order")
		}
		if sub.Price.IsZero() {
			continue
		}
		if _, err := svc.RecordSellerCredit(ctx, ledger.SellerCreditInput{
			SellerID: sub.SellerID,
			OrderID:  input.Order.ID,
			Amount:   sub.Price,
			Month:    month,
			Year:     year,
		}); err != nil {
			return nil, mapPostingError(err, sellerEntryConstraint, "post seller wallet entry")
		}
		settled.Postings = append(settled.Postings, Posting{Scope: enums.WalletScopeSeller, Amount: sub.Price})
	}
	return settled, nil
}

// Observe records committed postings in metrics and the log. A rolled back
// settlement must never reach it.
func (e *Engine) Observe(ctx context.Context, settled *Settlement) {
	if settled == nil {
		return
	}
	for _, p := range settled.Postings {
		e.metrics.ObservePosting(string(p.Scope), p.Amount)
	}
	if e.logg != nil {
		logCtx := e.logg.WithFields(ctx, map[string]any{
			"order_id": settled.OrderID.String(),
			"postings": len(settled.Postings),
			"period":   fmt.Sprintf("%d-%02d", settled.Year, settled.Month),
		})
		e.logg.Info(logCtx, "settlement posted")
	}
}

func mapPostingError(err error, constraint, msg string) error {
	if pkgerrors.As(err) != nil {
		return err
	}
	if db.IsUniqueViolation(err, constraint) {
		return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "order already settled")
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, msg)
}
