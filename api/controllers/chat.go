package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/easyshop-backend/api/middleware"
	"github.com/angelmondragon/easyshop-backend/api/validators"
	"github.com/angelmondragon/easyshop-backend/internal/chat"
	"github.com/angelmondragon/easyshop-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/easyshop-backend/pkg/errors"
	"github.com/angelmondragon/easyshop-backend/pkg/logger"
)

const (
	defaultConversationLimit = 50
	maxConversationLimit     = 200
)

type customerMessageRequest struct {
	SellerID uuid.UUID `json:"sellerId" validate:"required"`
	Message  string    `json:"message" validate:"required"`
}

type sellerMessageRequest struct {
	CustomerID uuid.UUID `json:"customerId" validate:"required"`
	Message    string    `json:"message" validate:"required"`
}

type adminMessageRequest struct {
	Message string `json:"message" validate:"required"`
}

func chatSender(r *http.Request) (chat.Sender, error) {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		return chat.Sender{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "caller context missing")
	}
	return chat.Sender{ID: p.EntityID, Name: p.Name}, nil
}

// sendMessage decodes a T and hands it to send. The answer is 201 whether or
// not the recipient was online; the delivered flag tells the client which.
func sendMessage[T any](svc chat.Service, logg *logger.Logger, send func(ctx context.Context, from chat.Sender, req T) (*chat.SendResult, error)) http.HandlerFunc {
	if svc == nil {
		return unavailable(logg, "chat")
	}
	return handleCreated(logg, func(r *http.Request) (any, error) {
		from, err := chatSender(r)
		if err != nil {
			return nil, err
		}
		req, err := decode[T](r)
		if err != nil {
			return nil, err
		}
		return send(r.Context(), from, req)
	})
}

func ChatCustomerToSeller(svc chat.Service, logg *logger.Logger) http.HandlerFunc {
	return sendMessage(svc, logg, func(ctx context.Context, from chat.Sender, req customerMessageRequest) (*chat.SendResult, error) {
		return svc.SendCustomerToSeller(ctx, from, req.SellerID, req.Message)
	})
}

func ChatSellerToCustomer(svc chat.Service, logg *logger.Logger) http.HandlerFunc {
	return sendMessage(svc, logg, func(ctx context.Context, from chat.Sender, req sellerMessageRequest) (*chat.SendResult, error) {
		return svc.SendSellerToCustomer(ctx, from, req.CustomerID, req.Message)
	})
}

func ChatSellerToAdmin(svc chat.Service, logg *logger.Logger) http.HandlerFunc {
	return sendMessage(svc, logg, func(ctx context.Context, from chat.Sender, req adminMessageRequest) (*chat.SendResult, error) {
		return svc.SendSellerToAdmin(ctx, from, req.Message)
	})
}

func ChatAdminToSeller(svc chat.Service, logg *logger.Logger) http.HandlerFunc {
	return sendMessage(svc, logg, func(ctx context.Context, from chat.Sender, req customerMessageRequest) (*chat.SendResult, error) {
		return svc.SendAdminToSeller(ctx, from, req.SellerID, req.Message)
	})
}

// ChatCustomerConversation returns the caller's history with one seller.
func ChatCustomerConversation(svc chat.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return unavailable(logg, "chat")
	}
	return handle(logg, func(r *http.Request) (any, error) {
		customerID, sellerID, err := callerAndPath(r, "sellerId")
		if err != nil {
			return nil, err
		}
		limit, err := validators.ParseQueryInt(r, "limit", defaultConversationLimit, 1, maxConversationLimit)
		if err != nil {
			return nil, err
		}
		return svc.Conversation(r.Context(), enums.ChatChannelSellerCustomer, customerID.String(), sellerID.String(), limit)
	})
}
