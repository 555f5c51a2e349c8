package models

import "time"

// MessageType classifies who authored a chat message and why.
type MessageType string

const (
	MessageTypeUser                 MessageType = "user_message"
	MessageTypeSystem               MessageType = "system_message"
	MessageTypeGiveawayAnnouncement MessageType = "giveaway_announcement"
	MessageTypeGiveawayResults      MessageType = "giveaway_results"
)

// Valid reports whether the message type is one of the known kinds.
func (t MessageType) Valid() bool {
	switch t {
	case MessageTypeUser, MessageTypeSystem, MessageTypeGiveawayAnnouncement, MessageTypeGiveawayResults:
		return true
	}
	return false
}

const (
	// MaxContentLength bounds message content, in runes, after sanitizing.
	MaxContentLength = 1000

	// MaxFetchLimit caps how many messages one get request may return.
	MaxFetchLimit = 100
)

// Message is a persisted chat message.
type Message struct {
	ID          string      `json:"id"`
	RoomID      string      `json:"room_id"`
	UserID      int64       `json:"user_id"`
	Content     string      `json:"content"`
	MessageType MessageType `json:"message_type"`
	CreatedAt   time.Time   `json:"created_at"`
}

// MessageWithSender is a message joined with the sender's display fields.
type MessageWithSender struct {
	Message
	SenderUsername string `json:"sender_username"`
	SenderLevel    int    `json:"sender_level"`
	SenderIsAdmin  bool   `json:"sender_is_admin"`
}

// SendRequest is the payload of the chat surface's send action.
type SendRequest struct {
	RoomID      string      `json:"room_id" binding:"required"`
	Content     string      `json:"content" binding:"required"`
	MessageType MessageType `json:"message_type"`
}

// GetMessagesRequest is the payload of the chat surface's get_messages action.
type GetMessagesRequest struct {
	RoomID string `json:"room_id" binding:"required"`
	Limit  int    `json:"limit"`
}
