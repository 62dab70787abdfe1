package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/easyshop-backend/internal/orders"
	"github.com/angelmondragon/easyshop-backend/internal/payouts"
	"github.com/angelmondragon/easyshop-backend/internal/withdrawals"
	"github.com/angelmondragon/easyshop-backend/pkg/logger"
)

func SellerListOrders(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return unavailable(logg, "orders")
	}
	return handle(logg, func(r *http.Request) (any, error) {
		sellerID, err := callerID(r)
		if err != nil {
			return nil, err
		}
		params, err := pageParams(r)
		if err != nil {
			return nil, err
		}
		return svc.ListSellerOrders(r.Context(), sellerID, params)
	})
}

func SellerOrderDetail(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return unavailable(logg, "orders")
	}
	return handle(logg, func(r *http.Request) (any, error) {
		sellerID, sellerOrderID, err := callerAndPath(r, "sellerOrderId")
		if err != nil {
			return nil, err
		}
		return svc.GetSellerOrder(r.Context(), sellerID, sellerOrderID)
	})
}

// SellerUpdateOrderStatus moves one seller sub-order along its delivery flow.
func SellerUpdateOrderStatus(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return unavailable(logg, "orders")
	}
	return handle(logg, func(r *http.Request) (any, error) {
		sellerID, sellerOrderID, err := callerAndPath(r, "sellerOrderId")
		if err != nil {
			return nil, err
		}
		status, err := decodeStatus(r)
		if err != nil {
			return nil, err
		}
		if err := svc.UpdateSellerOrderStatus(r.Context(), sellerID, sellerOrderID, status); err != nil {
			return nil, err
		}
		return map[string]string{"sellerOrderId": sellerOrderID.String(), "deliveryStatus": status.String()}, nil
	})
}

func SellerBalance(svc withdrawals.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return unavailable(logg, "withdrawals")
	}
	return handle(logg, func(r *http.Request) (any, error) {
		sellerID, err := callerID(r)
		if err != nil {
			return nil, err
		}
		return svc.AvailableBalance(r.Context(), sellerID)
	})
}

type withdrawalRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

func SellerRequestWithdrawal(svc withdrawals.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return unavailable(logg, "withdrawals")
	}
	return handleCreated(logg, func(r *http.Request) (any, error) {
		sellerID, err := callerID(r)
		if err != nil {
			return nil, err
		}
		req, err := decode[withdrawalRequest](r)
		if err != nil {
			return nil, err
		}
		return svc.RequestWithdrawal(r.Context(), sellerID, req.Amount)
	})
}

func SellerStripeConnect(svc payouts.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return unavailable(logg, "payouts")
	}
	return handle(logg, func(r *http.Request) (any, error) {
		sellerID, err := callerID(r)
		if err != nil {
			return nil, err
		}
		url, err := svc.CreateOnboardingLink(r.Context(), sellerID)
		if err != nil {
			return nil, err
		}
		return map[string]string{"url": url}, nil
	})
}

// SellerStripeActivate finishes onboarding once Stripe redirects back with
// the activation code.
func SellerStripeActivate(svc payouts.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return unavailable(logg, "payouts")
	}
	return handle(logg, func(r *http.Request) (any, error) {
		sellerID, err := callerID(r)
		if err != nil {
			return nil, err
		}
		code := strings.TrimSpace(chi.URLParam(r, "code"))
		if err := svc.ActivateAccount(r.Context(), sellerID, code); err != nil {
			return nil, err
		}
		return map[string]string{"paymentStatus": "active"}, nil
	})
}
