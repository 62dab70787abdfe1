// Package chat persists marketplace messages and hands them to the realtime
// relay for live delivery.
package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/easyshop-backend/pkg/db/models"
	"github.com/angelmondragon/easyshop-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/easyshop-backend/pkg/errors"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200
	maxMessageLength    = 4000
)

// Relay is the live delivery path. Its result only says whether the
// recipient was online.
type Relay interface {
	SendSellerMessage(ctx context.Context, customerID string, payload any) bool
	SendCustomerMessage(ctx context.Context, sellerID string, payload any) bool
	SendMessageAdminToSeller(ctx context.Context, sellerID string, payload any) bool
	SendMessageSellerToAdmin(ctx context.Context, payload any) bool
}

// Sender identifies who is writing.
type Sender struct {
	ID   uuid.UUID
	Name string
}

// SendResult carries the stored message and whether it reached a live
// connection.
type SendResult struct {
	Message   models.ChatMessage `json:"message"`
	Delivered bool               `json:"delivered"`
}

type Service interface {
	SendCustomerToSeller(ctx context.Context, from Sender, sellerID uuid.UUID, text string) (*SendResult, error)
	SendSellerToCustomer(ctx context.Context, from Sender, customerID uuid.UUID, text string) (*SendResult, error)
	SendAdminToSeller(ctx context.Context, from Sender, sellerID uuid.UUID, text string) (*SendResult, error)
	SendSellerToAdmin(ctx context.Context, from Sender, text string) (*SendResult, error)
	Conversation(ctx context.Context, channel enums.ChatChannel, a, b string, limit int) ([]models.ChatMessage, error)
}

type service struct {
	repo  Repository
	relay Relay
	now   func() time.Time
}

func NewService(repo Repository, relay Relay) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("chat repository required")
	}
	if relay == nil {
		return nil, fmt.Errorf("chat relay required")
	}
	return &service{repo: repo, relay: relay, now: time.Now}, nil
}

func (s *service) SendCustomerToSeller(ctx context.Context, from Sender, sellerID uuid.UUID, text string) (*SendResult, error) {
	if err := s.requireSeller(ctx, sellerID); err != nil {
		return nil, err
	}
	msg, err := s.store(ctx, enums.ChatChannelSellerCustomer, from, from.ID.String(), sellerID.String(), text)
	if err != nil {
		return nil, err
	}
	return &SendResult{Message: *msg, Delivered: s.relay.SendCustomerMessage(ctx, sellerID.String(), msg)}, nil
}

func (s *service) SendSellerToCustomer(ctx context.Context, from Sender, customerID uuid.UUID, text string) (*SendResult, error) {
	if customerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "receiver id required")
	}
	msg, err := s.store(ctx, enums.ChatChannelSellerCustomer, from, from.ID.String(), customerID.String(), text)
	if err != nil {
		return nil, err
	}
	return &SendResult{Message: *msg, Delivered: s.relay.SendSellerMessage(ctx, customerID.String(), msg)}, nil
}

func (s *service) SendAdminToSeller(ctx context.Context, from Sender, sellerID uuid.UUID, text string) (*SendResult, error) {
	if err := s.requireSeller(ctx, sellerID); err != nil {
		return nil, err
	}
	msg, err := s.store(ctx, enums.ChatChannelAdminSeller, from, "", sellerID.String(), text)
	if err != nil {
		return nil, err
	}
	return &SendResult{Message: *msg, Delivered: s.relay.SendMessageAdminToSeller(ctx, sellerID.String(), msg)}, nil
}

func (s *service) SendSellerToAdmin(ctx context.Context, from Sender, text string) (*SendResult, error) {
	msg, err := s.store(ctx, enums.ChatChannelAdminSeller, from, from.ID.String(), "", text)
	if err != nil {
		return nil, err
	}
	return &SendResult{Message: *msg, Delivered: s.relay.SendMessageSellerToAdmin(ctx, msg)}, nil
}

// Conversation lists recent history between two parties. The admin side is
// addressed with the empty id.
func (s *service) Conversation(ctx context.Context, channel enums.ChatChannel, a, b string, limit int) ([]models.ChatMessage, error) {
	if !channel.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid chat channel")
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	rows, err := s.repo.Conversation(ctx, channel, a, b, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load conversation")
	}
	return rows, nil
}

func (s *service) requireSeller(ctx context.Context, sellerID uuid.UUID) error {
	if sellerID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "receiver id required")
	}
	ok, err := s.repo.SellerExists(ctx, sellerID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load seller")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeNotFound, "seller not found")
	}
	return nil
}

func (s *service) store(ctx context.Context, channel enums.ChatChannel, from Sender, senderID, receiverID, text string) (*models.ChatMessage, error) {
	if from.ID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "sender identity missing")
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "message is required")
	}
	if len(text) > maxMessageLength {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "message too long").WithDetails(map[string]any{"max": maxMessageLength})
	}
	name := strings.TrimSpace(from.Name)
	if name == "" {
		name = "anonymous"
	}

	msg := &models.ChatMessage{
		ID:         uuid.New(),
		Channel:    channel,
		SenderID:   senderID,
		SenderName: name,
		ReceiverID: receiverID,
		Message:    text,
		Status:     enums.MessageStatusUnseen,
		CreatedAt:  s.now().UTC(),
	}
	if err := s.repo.Create(ctx, msg); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "store chat message")
	}
	return msg, nil
}
