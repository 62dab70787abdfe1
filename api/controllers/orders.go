package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/easyshop-backend/api/validators"
	"github.com/angelmondragon/easyshop-backend/internal/cart"
	"github.com/angelmondragon/easyshop-backend/internal/orders"
	"github.com/angelmondragon/easyshop-backend/pkg/db/models"
	"github.com/angelmondragon/easyshop-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/easyshop-backend/pkg/errors"
	"github.com/angelmondragon/easyshop-backend/pkg/logger"
)

type cartSummarizer interface {
	Summary(ctx context.Context, customerID uuid.UUID) (*cart.Summary, error)
}

type paymentIntentCreator interface {
	CreatePaymentIntent(ctx context.Context, customerID, orderID uuid.UUID) (string, error)
}

type shippingInfoRequest struct {
	Name     string `json:"name" validate:"required,max=120"`
	Address  string `json:"address" validate:"required,max=255"`
	Phone    string `json:"phone" validate:"required,max=32"`
	Post     string `json:"post" validate:"max=16"`
	Province string `json:"province" validate:"max=64"`
	City     string `json:"city" validate:"max=64"`
	Area     string `json:"area" validate:"max=64"`
}

type placeOrderRequest struct {
	ShippingInfo shippingInfoRequest `json:"shippingInfo" validate:"required"`
}

func (s shippingInfoRequest) model() models.ShippingInfo {
	return models.ShippingInfo{
		Name:     validators.SanitizeString(s.Name, 120),
		Address:  validators.SanitizeString(s.Address, 255),
		Phone:    validators.SanitizeString(s.Phone, 32),
		Post:     validators.SanitizeString(s.Post, 16),
		Province: validators.SanitizeString(s.Province, 64),
		City:     validators.SanitizeString(s.City, 64),
		Area:     validators.SanitizeString(s.Area, 64),
	}
}

// PlaceOrder converts the caller's in-stock cart lines into an order. Groups
// and totals are recomputed from the live cart, never taken from the client.
func PlaceOrder(svc orders.Service, carts cartSummarizer, logg *logger.Logger) http.HandlerFunc {
	if svc == nil || carts == nil {
		return unavailable(logg, "orders")
	}
	return handleCreated(logg, func(r *http.Request) (any, error) {
		customerID, err := callerID(r)
		if err != nil {
			return nil, err
		}
		req, err := decode[placeOrderRequest](r)
		if err != nil {
			return nil, err
		}

		summary, err := carts.Summary(r.Context(), customerID)
		if err != nil {
			return nil, err
		}
		if len(summary.Groups) == 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart has no purchasable items")
		}

		result, err := svc.PlaceOrder(r.Context(), orders.InputFromCart(customerID, req.ShippingInfo.model(), summary))
		if err != nil {
			return nil, err
		}
		if logg != nil {
			logg.Info(logg.WithOrderID(r.Context(), result.OrderID.String()), "order placed")
		}
		return result, nil
	})
}

func ListCustomerOrders(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return unavailable(logg, "orders")
	}
	return handle(logg, func(r *http.Request) (any, error) {
		customerID, err := callerID(r)
		if err != nil {
			return nil, err
		}
		params, err := pageParams(r)
		if err != nil {
			return nil, err
		}
		filters, err := customerOrderFilters(r)
		if err != nil {
			return nil, err
		}
		return svc.ListCustomerOrders(r.Context(), customerID, params, filters)
	})
}

func customerOrderFilters(r *http.Request) (orders.CustomerOrderFilters, error) {
	status, ok, err := validators.ParseQueryFilter(r, "status", enums.ParseDeliveryStatus)
	if err != nil || !ok {
		return orders.CustomerOrderFilters{}, err
	}
	return orders.CustomerOrderFilters{DeliveryStatus: &status}, nil
}

func CustomerOrderDetail(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return unavailable(logg, "orders")
	}
	return handle(logg, func(r *http.Request) (any, error) {
		customerID, orderID, err := callerAndPath(r, "orderId")
		if err != nil {
			return nil, err
		}
		return svc.GetCustomerOrder(r.Context(), customerID, orderID)
	})
}

func CustomerDashboard(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return unavailable(logg, "orders")
	}
	return handle(logg, func(r *http.Request) (any, error) {
		customerID, err := callerID(r)
		if err != nil {
			return nil, err
		}
		return svc.CustomerDashboard(r.Context(), customerID)
	})
}

func CreatePaymentIntent(svc paymentIntentCreator, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return unavailable(logg, "payments")
	}
	return handle(logg, func(r *http.Request) (any, error) {
		customerID, orderID, err := callerAndPath(r, "orderId")
		if err != nil {
			return nil, err
		}
		secret, err := svc.CreatePaymentIntent(r.Context(), customerID, orderID)
		if err != nil {
			return nil, err
		}
		return map[string]string{"clientSecret": secret}, nil
	})
}
