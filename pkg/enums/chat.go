package enums

// ChatChannel separates the two persisted conversation kinds.
type ChatChannel string

const (
	ChatChannelSellerCustomer ChatChannel = "seller_customer"
	ChatChannelAdminSeller    ChatChannel = "admin_seller"
)

func (c ChatChannel) IsValid() bool {
	return c == ChatChannelSellerCustomer || c == ChatChannelAdminSeller
}

// MessageStatus tracks whether a chat message has been read.
type MessageStatus string

const (
	MessageStatusUnseen MessageStatus = "unseen"
	MessageStatusSeen   MessageStatus = "seen"
)
