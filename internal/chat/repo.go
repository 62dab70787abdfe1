package chat

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/easyshop-backend/pkg/db/models"
	"github.com/angelmondragon/easyshop-backend/pkg/enums"
)

type Repository interface {
	Create(ctx context.Context, msg *models.ChatMessage) error
	Conversation(ctx context.Context, channel enums.ChatChannel, a, b string, limit int) ([]models.ChatMessage, error)
	SellerExists(ctx context.Context, sellerID uuid.UUID) (bool, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, msg *models.ChatMessage) error {
	return r.db.WithContext(ctx).Create(msg).Error
}

// Conversation returns the latest messages exchanged between a and b in
// either direction, oldest first.
func (r *repository) Conversation(ctx context.Context, channel enums.ChatChannel, a, b string, limit int) ([]models.ChatMessage, error) {
	var rows []models.ChatMessage
	err := r.db.WithContext(ctx).
		Where("channel = ?", channel).
		Where("(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)", a, b, b, a).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}
	return rows, nil
}

func (r *repository) SellerExists(ctx context.Context, sellerID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Seller{}).Where("id = ?", sellerID).Count(&count).Error
	return count > 0, err
}
