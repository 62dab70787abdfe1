package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/easyshop-backend/pkg/enums"
)

// ChatMessage is one persisted message. Admin ids are stored as the empty
// string, matching the single admin inbox.
type ChatMessage struct {
	ID         uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Channel    enums.ChatChannel   `gorm:"column:channel;type:text;not null" json:"channel"`
	SenderID   string              `gorm:"column:sender_id;not null;default:''" json:"senderId"`
	SenderName string              `gorm:"column:sender_name;not null" json:"senderName"`
	ReceiverID string              `gorm:"column:receiver_id;not null;default:''" json:"receiverId"`
	Message    string              `gorm:"column:message;not null" json:"message"`
	Status     enums.MessageStatus `gorm:"column:status;type:text;not null;default:'unseen'" json:"status"`
	CreatedAt  time.Time           `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
}

func (m *ChatMessage) BeforeCreate(*gorm.DB) error {
	ensureID(&m.ID)
	return nil
}
