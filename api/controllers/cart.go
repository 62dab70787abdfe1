package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/easyshop-backend/internal/cart"
	"github.com/angelmondragon/easyshop-backend/pkg/logger"
)

func CartSummary(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return unavailable(logg, "cart")
	}
	return handle(logg, func(r *http.Request) (any, error) {
		customerID, err := callerID(r)
		if err != nil {
			return nil, err
		}
		return svc.Summary(r.Context(), customerID)
	})
}

func CartAdd(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return unavailable(logg, "cart")
	}
	return handleCreated(logg, func(r *http.Request) (any, error) {
		customerID, err := callerID(r)
		if err != nil {
			return nil, err
		}
		input, err := decode[cart.AddToCartInput](r)
		if err != nil {
			return nil, err
		}
		return svc.AddToCart(r.Context(), customerID, input)
	})
}

func CartRemove(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return cartLineAction(svc, logg, func(ctx context.Context, customerID, itemID uuid.UUID) error {
		return svc.RemoveFromCart(ctx, customerID, itemID)
	})
}

func CartIncrement(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return cartLineAction(svc, logg, func(ctx context.Context, customerID, itemID uuid.UUID) error {
		return svc.IncrementQuantity(ctx, customerID, itemID)
	})
}

func CartDecrement(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return cartLineAction(svc, logg, func(ctx context.Context, customerID, itemID uuid.UUID) error {
		return svc.DecrementQuantity(ctx, customerID, itemID)
	})
}

// cartLineAction runs fn against the cart line in the path and answers with
// the refreshed summary.
func cartLineAction(svc cart.Service, logg *logger.Logger, fn func(ctx context.Context, customerID, itemID uuid.UUID) error) http.HandlerFunc {
	if svc == nil {
		return unavailable(logg, "cart")
	}
	return handle(logg, func(r *http.Request) (any, error) {
		customerID, itemID, err := callerAndPath(r, "cartItemId")
		if err != nil {
			return nil, err
		}
		if err := fn(r.Context(), customerID, itemID); err != nil {
			return nil, err
		}
		return svc.Summary(r.Context(), customerID)
	})
}
