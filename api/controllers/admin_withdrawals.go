package controllers

import (
	"net/http"

	"github.com/angelmondragon/easyshop-backend/internal/withdrawals"
	"github.com/angelmondragon/easyshop-backend/pkg/logger"
)

func AdminListWithdrawals(svc withdrawals.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return unavailable(logg, "withdrawals")
	}
	return handle(logg, func(r *http.Request) (any, error) {
		return svc.ListPending(r.Context())
	})
}

// AdminConfirmWithdrawal pays out a pending withdrawal through Stripe.
func AdminConfirmWithdrawal(svc withdrawals.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return unavailable(logg, "withdrawals")
	}
	return handle(logg, func(r *http.Request) (any, error) {
		id, err := pathUUID(r, "withdrawalId")
		if err != nil {
			return nil, err
		}
		return svc.ConfirmWithdrawal(r.Context(), id)
	})
}
