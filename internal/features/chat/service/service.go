package service

import (
	"context"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	apperrors "github.com/Haiikyu/reveelbox-sub002/internal/common/errors"
	"github.com/Haiikyu/reveelbox-sub002/internal/common/logger"
	"github.com/Haiikyu/reveelbox-sub002/internal/common/permissions"
	"github.com/Haiikyu/reveelbox-sub002/internal/common/ratelimit"
	"github.com/Haiikyu/reveelbox-sub002/internal/features/chat/models"
	"github.com/Haiikyu/reveelbox-sub002/internal/features/chat/repository"
	usermodels "github.com/Haiikyu/reveelbox-sub002/internal/features/user/models"
)

const defaultFetchLimit = 50

type chatService struct {
	repo    repository.ChatRepository
	limiter ratelimit.Limiter
}

func NewChatService(repo repository.ChatRepository, limiter ratelimit.Limiter) ChatService {
	return &chatService{repo: repo, limiter: limiter}
}

func (s *chatService) Send(ctx context.Context, sender *usermodels.Profile, input *models.SendRequest) (*models.MessageWithSender, error) {
	messageType := input.MessageType
	if messageType == "" {
		messageType = models.MessageTypeUser
	}
	if !messageType.Valid() {
		return nil, apperrors.NewValidationError("message_type", "unknown message type")
	}

	if !permissions.Can(sender, permissions.CapSendMessage) {
		return nil, apperrors.NewPermissionError(string(permissions.CapSendMessage)).WithUserID(sender.ID)
	}
	if messageType != models.MessageTypeUser && !permissions.Can(sender, permissions.CapSendSystemMessage) {
		return nil, apperrors.NewPermissionError(string(permissions.CapSendSystemMessage)).WithUserID(sender.ID)
	}

	content, err := validateContent(input.Content)
	if err != nil {
		return nil, err
	}

	if err := s.limiter.Allow(ctx, sender.ID, "send_message"); err != nil {
		return nil, err
	}

	if messageType == models.MessageTypeUser {
		recent, err := s.repo.ListRecentByUser(ctx, sender.ID, recentHistoryMessages)
		if err != nil {
			return nil, apperrors.NewDatabaseError("list recent messages", err)
		}
		history := make([]string, 0, len(recent))
		for _, m := range recent {
			history = append(history, m.Content)
		}
		if err := checkSpam(content, history); err != nil {
			logger.Warn().
				Int64("user_id", sender.ID).
				Str("room_id", input.RoomID).
				Msg("Message rejected by spam heuristics")
			return nil, err
		}
	}

	return s.persist(ctx, sender.ID, input.RoomID, content, messageType)
}

func (s *chatService) PostSystem(ctx context.Context, actorID int64, roomID, content string, messageType models.MessageType) (*models.MessageWithSender, error) {
	sanitized, err := validateContent(content)
	if err != nil {
		return nil, err
	}
	return s.persist(ctx, actorID, roomID, sanitized, messageType)
}

func (s *chatService) Get(ctx context.Context, roomID string, limit int) ([]*models.MessageWithSender, error) {
	if roomID == "" {
		return nil, apperrors.NewValidationError("room_id", "cannot be empty")
	}
	if limit <= 0 {
		limit = defaultFetchLimit
	}
	if limit > models.MaxFetchLimit {
		limit = models.MaxFetchLimit
	}

	messages, err := s.repo.ListRecent(ctx, roomID, limit)
	if err != nil {
		return nil, apperrors.NewDatabaseError("list messages", err)
	}

	// Fetched newest first; callers expect chronological order.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

func (s *chatService) persist(ctx context.Context, userID int64, roomID, content string, messageType models.MessageType) (*models.MessageWithSender, error) {
	if roomID == "" {
		return nil, apperrors.NewValidationError("room_id", "cannot be empty")
	}

	message := &models.Message{
		ID:          uuid.New().String(),
		RoomID:      roomID,
		UserID:      userID,
		Content:     content,
		MessageType: messageType,
		CreatedAt:   time.Now(),
	}

	created, err := s.repo.Create(ctx, message)
	if err != nil {
		return nil, apperrors.NewDatabaseError("create message", err)
	}
	return created, nil
}

func validateContent(content string) (string, error) {
	sanitized := sanitizeContent(content)
	if sanitized == "" {
		return "", apperrors.NewValidationError("content", "cannot be empty")
	}
	if utf8.RuneCountInString(sanitized) > models.MaxContentLength {
		return "", apperrors.NewValidationError("content", "exceeds maximum length")
	}
	return sanitized, nil
}
