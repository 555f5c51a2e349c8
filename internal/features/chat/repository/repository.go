package repository

import (
	"context"

	"github.com/Haiikyu/reveelbox-sub002/internal/features/chat/models"
)

// ChatRepository persists and retrieves chat messages.
type ChatRepository interface {
	Create(ctx context.Context, message *models.Message) (*models.MessageWithSender, error)

	// ListRecent returns up to limit messages for the room, newest first.
	ListRecent(ctx context.Context, roomID string, limit int) ([]*models.MessageWithSender, error)

	// ListRecentByUser returns the sender's latest messages, newest first.
	// Feeds the duplicate-content spam heuristic.
	ListRecentByUser(ctx context.Context, userID int64, limit int) ([]*models.Message, error)
}
