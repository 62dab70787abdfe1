package controllers

import (
	"net/http"

	"github.com/angelmondragon/easyshop-backend/internal/orders"
	"github.com/angelmondragon/easyshop-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/easyshop-backend/pkg/errors"
	"github.com/angelmondragon/easyshop-backend/pkg/logger"
)

func AdminListOrders(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return unavailable(logg, "orders")
	}
	return handle(logg, func(r *http.Request) (any, error) {
		params, err := pageParams(r)
		if err != nil {
			return nil, err
		}
		return svc.ListAdminOrders(r.Context(), params)
	})
}

func AdminOrderDetail(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return unavailable(logg, "orders")
	}
	return handle(logg, func(r *http.Request) (any, error) {
		orderID, err := pathUUID(r, "orderId")
		if err != nil {
			return nil, err
		}
		return svc.GetAdminOrder(r.Context(), orderID)
	})
}

func AdminUpdateOrderStatus(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return unavailable(logg, "orders")
	}
	return handle(logg, func(r *http.Request) (any, error) {
		orderID, err := pathUUID(r, "orderId")
		if err != nil {
			return nil, err
		}
		status, err := decodeStatus(r)
		if err != nil {
			return nil, err
		}
		if err := svc.UpdateDeliveryStatus(r.Context(), orderID, status); err != nil {
			return nil, err
		}
		return map[string]string{"orderId": orderID.String(), "deliveryStatus": status.String()}, nil
	})
}

// AdminConfirmPayment marks an order paid by hand and settles it. Repeating
// the call on a paid order reports alreadyPaid without posting again.
func AdminConfirmPayment(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return unavailable(logg, "orders")
	}
	return handle(logg, func(r *http.Request) (any, error) {
		orderID, err := pathUUID(r, "orderId")
		if err != nil {
			return nil, err
		}
		return svc.ConfirmPayment(r.Context(), orderID)
	})
}

type statusRequest struct {
	Status string `json:"status" validate:"required"`
}

func decodeStatus(r *http.Request) (enums.DeliveryStatus, error) {
	req, err := decode[statusRequest](r)
	if err != nil {
		return "", err
	}
	status, err := enums.ParseDeliveryStatus(req.Status)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid delivery status").
			WithDetails(map[string]any{"status": req.Status})
	}
	return status, nil
}
