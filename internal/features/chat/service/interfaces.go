package service

import (
	"context"

	"github.com/Haiikyu/reveelbox-sub002/internal/features/chat/models"
	usermodels "github.com/Haiikyu/reveelbox-sub002/internal/features/user/models"
)

// ChatService is the chat message gateway: it sanitizes, authorizes,
// persists and retrieves room messages.
type ChatService interface {
	// Send posts a message authored by the caller.
	Send(ctx context.Context, sender *usermodels.Profile, input *models.SendRequest) (*models.MessageWithSender, error)

	// Get returns the most recent messages of a room, oldest first.
	Get(ctx context.Context, roomID string, limit int) ([]*models.MessageWithSender, error)

	// PostSystem persists a platform-authored message (announcements,
	// results, cancellations) on behalf of the given actor. Internal:
	// bypasses rate limiting and spam heuristics but not sanitizing.
	PostSystem(ctx context.Context, actorID int64, roomID, content string, messageType models.MessageType) (*models.MessageWithSender, error)
}
