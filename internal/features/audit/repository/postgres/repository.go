package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/Haiikyu/reveelbox-sub002/internal/features/audit/models"
	"github.com/Haiikyu/reveelbox-sub002/internal/features/audit/repository"
)

type auditRepository struct {
	db *sql.DB
}

func NewAuditRepository(db *sql.DB) repository.AuditRepository {
	return &auditRepository{db: db}
}

func (r *auditRepository) Create(ctx context.Context, entry *models.Entry) error {
	details, err := json.Marshal(entry.Details)
	if err != nil {
		return fmt.Errorf("failed to marshal details: %w", err)
	}

	const query = `
		INSERT INTO audit_log (id, giveaway_id, action, actor_id, details, ip_address, user_agent, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err = r.db.ExecContext(ctx, query,
		entry.ID, entry.GiveawayID, entry.Action, entry.ActorID,
		details, entry.IPAddress, entry.UserAgent, entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create audit entry: %w", err)
	}
	return nil
}

func (r *auditRepository) ListByGiveaway(ctx context.Context, giveawayID string) ([]*models.Entry, error) {
	const query = `
		SELECT id, giveaway_id, action, actor_id, details, ip_address, user_agent, created_at
		FROM audit_log
		WHERE giveaway_id = $1
		ORDER BY created_at ASC`

	rows, err := r.db.QueryContext(ctx, query, giveawayID)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}
	defer rows.Close()

	var entries []*models.Entry
	for rows.Next() {
		e := &models.Entry{}
		var details []byte
		if err := rows.Scan(&e.ID, &e.GiveawayID, &e.Action, &e.ActorID, &details, &e.IPAddress, &e.UserAgent, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		if len(details) > 0 {
			if err := json.Unmarshal(details, &e.Details); err != nil {
				return nil, fmt.Errorf("failed to unmarshal details: %w", err)
			}
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
