package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Haiikyu/reveelbox-sub002/internal/features/chat/models"
	"github.com/Haiikyu/reveelbox-sub002/internal/features/chat/repository"
)

type chatRepository struct {
	db *sql.DB
}

func NewChatRepository(db *sql.DB) repository.ChatRepository {
	return &chatRepository{db: db}
}

func (r *chatRepository) Create(ctx context.Context, message *models.Message) (*models.MessageWithSender, error) {
	const query = `
		WITH inserted AS (
			INSERT INTO chat_messages (id, room_id, user_id, content, message_type, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id, room_id, user_id, content, message_type, created_at
		)
		SELECT i.id, i.room_id, i.user_id, i.content, i.message_type, i.created_at,
		       p.username, p.level, p.is_admin
		FROM inserted i
		JOIN profiles p ON p.id = i.user_id`

	m := &models.MessageWithSender{}
	err := r.db.QueryRowContext(ctx, query,
		message.ID, message.RoomID, message.UserID, message.Content, message.MessageType, message.CreatedAt,
	).Scan(&m.ID, &m.RoomID, &m.UserID, &m.Content, &m.MessageType, &m.CreatedAt,
		&m.SenderUsername, &m.SenderLevel, &m.SenderIsAdmin)
	if err != nil {
		return nil, fmt.Errorf("failed to create message: %w", err)
	}
	return m, nil
}

func (r *chatRepository) ListRecent(ctx context.Context, roomID string, limit int) ([]*models.MessageWithSender, error) {
	const query = `
		SELECT m.id, m.room_id, m.user_id, m.content, m.message_type, m.created_at,
		       p.username, p.level, p.is_admin
		FROM chat_messages m
		JOIN profiles p ON p.id = m.user_id
		WHERE m.room_id = $1
		ORDER BY m.created_at DESC
		LIMIT $2`

	rows, err := r.db.QueryContext(ctx, query, roomID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	var messages []*models.MessageWithSender
	for rows.Next() {
		m := &models.MessageWithSender{}
		if err := rows.Scan(&m.ID, &m.RoomID, &m.UserID, &m.Content, &m.MessageType, &m.CreatedAt,
			&m.SenderUsername, &m.SenderLevel, &m.SenderIsAdmin); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

func (r *chatRepository) ListRecentByUser(ctx context.Context, userID int64, limit int) ([]*models.Message, error) {
	const query = `
		SELECT id, room_id, user_id, content, message_type, created_at
		FROM chat_messages
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2`

	rows, err := r.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list user messages: %w", err)
	}
	defer rows.Close()

	var messages []*models.Message
	for rows.Next() {
		m := &models.Message{}
		if err := rows.Scan(&m.ID, &m.RoomID, &m.UserID, &m.Content, &m.MessageType, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}
