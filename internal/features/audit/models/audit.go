package models

import "time"

// Action names an audited privileged operation.
type Action string

const (
	ActionGiveawayCreated   Action = "giveaway_created"
	ActionParticipantJoined Action = "participant_joined"
	ActionCaptchaFailed     Action = "captcha_failed"
	ActionGiveawayCompleted Action = "giveaway_completed"
	ActionGiveawayCancelled Action = "giveaway_cancelled"
)

// Entry is one row of the append-only audit trail. Entries are never updated
// or deleted; entries written before a failure point are retained.
type Entry struct {
	ID         string                 `json:"id"`
	GiveawayID *string                `json:"giveaway_id,omitempty"`
	Action     Action                 `json:"action"`
	ActorID    int64                  `json:"actor_id"`
	Details    map[string]interface{} `json:"details,omitempty"`
	IPAddress  string                 `json:"ip_address,omitempty"`
	UserAgent  string                 `json:"user_agent,omitempty"`
	CreatedAt  time.Time              `json:"created_at"`
}

// SystemActorID marks entries produced by the expiry sweeper rather than a
// human caller.
const SystemActorID int64 = 0
