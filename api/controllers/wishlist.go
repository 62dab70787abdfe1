package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/easyshop-backend/internal/wishlist"
	"github.com/angelmondragon/easyshop-backend/pkg/logger"
)

type wishlistAddRequest struct {
	ProductID uuid.UUID `json:"productId" validate:"required"`
}

func WishlistList(svc wishlist.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return unavailable(logg, "wishlist")
	}
	return handle(logg, func(r *http.Request) (any, error) {
		customerID, err := callerID(r)
		if err != nil {
			return nil, err
		}
		return svc.List(r.Context(), customerID)
	})
}

func WishlistAdd(svc wishlist.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return unavailable(logg, "wishlist")
	}
	return handleCreated(logg, func(r *http.Request) (any, error) {
		customerID, err := callerID(r)
		if err != nil {
			return nil, err
		}
		req, err := decode[wishlistAddRequest](r)
		if err != nil {
			return nil, err
		}
		return svc.Add(r.Context(), customerID, req.ProductID)
	})
}

func WishlistRemove(svc wishlist.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return unavailable(logg, "wishlist")
	}
	return handle(logg, func(r *http.Request) (any, error) {
		customerID, itemID, err := callerAndPath(r, "itemId")
		if err != nil {
			return nil, err
		}
		if err := svc.Remove(r.Context(), customerID, itemID); err != nil {
			return nil, err
		}
		return map[string]string{"id": itemID.String()}, nil
	})
}
