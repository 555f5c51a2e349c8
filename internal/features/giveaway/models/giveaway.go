package models

import "time"

// GiveawayStatus represents the lifecycle state of a giveaway. A giveaway
// starts active and ends either completed or cancelled; terminal states are
// never left.
type GiveawayStatus string

const (
	GiveawayStatusActive    GiveawayStatus = "active"
	GiveawayStatusCompleted GiveawayStatus = "completed"
	GiveawayStatusCancelled GiveawayStatus = "cancelled"
)

// Validation bounds for giveaway creation.
const (
	MaxTitleLength     = 200
	MinTotalAmount     = 1
	MaxTotalAmount     = 1_000_000
	MinWinnersCount    = 1
	MaxWinnersCount    = 100
	MinDurationMinutes = 1
	MaxDurationMinutes = 1440
)

// Giveaway is an admin-funded, time-boxed prize drawing in a chat room.
type Giveaway struct {
	ID              string         `json:"id"`
	RoomID          string         `json:"room_id"`
	CreatorID       int64          `json:"creator_id"`
	Title           string         `json:"title"`
	TotalAmount     int64          `json:"total_amount"`
	WinnersCount    int            `json:"winners_count"`
	DurationMinutes int            `json:"duration_minutes"`
	Status          GiveawayStatus `json:"status"`
	CreatedAt       time.Time      `json:"created_at"`
	EndsAt          time.Time      `json:"ends_at"`
	AnnouncementMsg *string        `json:"announcement_message_id,omitempty"`
	ResultsMsg      *string        `json:"results_message_id,omitempty"`
	CompletedAt     *time.Time     `json:"completed_at,omitempty"`
}

// HasEnded reports whether the giveaway's deadline has passed.
func (g *Giveaway) HasEnded() bool {
	return time.Now().After(g.EndsAt)
}

// IsActive reports whether the giveaway can still be joined or finalized.
func (g *Giveaway) IsActive() bool {
	return g.Status == GiveawayStatusActive
}

// Participant is one user's captcha-verified entry into a giveaway. The
// (giveaway_id, user_id) pair is unique at the persistence layer.
type Participant struct {
	ID              string     `json:"id"`
	GiveawayID      string     `json:"giveaway_id"`
	UserID          int64      `json:"user_id"`
	CaptchaVerified bool       `json:"captcha_verified"`
	CaptchaToken    string     `json:"-"`
	VerifiedAt      *time.Time `json:"verified_at,omitempty"`
	IPAddress       string     `json:"-"`
	UserAgent       string     `json:"-"`
	CreatedAt       time.Time  `json:"created_at"`
}

// EligibleParticipant is a verified participant who meets the level floor,
// as gathered at completion time. Ordering is the join order and is part of
// the published selection input.
type EligibleParticipant struct {
	ParticipantID string `json:"participant_id"`
	UserID        int64  `json:"user_id"`
}

// Winner is one drawn position of a completed giveaway, carrying the seed
// and hash that let a third party replay the draw.
type Winner struct {
	ID            string    `json:"id"`
	GiveawayID    string    `json:"giveaway_id"`
	UserID        int64     `json:"user_id"`
	AmountWon     int64     `json:"amount_won"`
	Position      int       `json:"position"`
	SelectionHash string    `json:"selection_hash"`
	SelectionSeed string    `json:"selection_seed"`
	CreatedAt     time.Time `json:"created_at"`
}

// CreateRequest is the payload of the giveaway surface's create action.
type CreateRequest struct {
	RoomID          string `json:"room_id" binding:"required"`
	Title           string `json:"title" binding:"required"`
	TotalAmount     int64  `json:"total_amount" binding:"required"`
	WinnersCount    int    `json:"winners_count" binding:"required"`
	DurationMinutes int    `json:"duration_minutes" binding:"required"`
}

// JoinRequest is the payload of the giveaway surface's join action.
type JoinRequest struct {
	GiveawayID   string `json:"giveaway_id" binding:"required"`
	CaptchaToken string `json:"captcha_token"`
}

// CreateResponse returns the created giveaway and its announcement message.
type CreateResponse struct {
	Giveaway              *Giveaway `json:"giveaway"`
	AnnouncementMessageID string    `json:"announcement_message_id"`
}

// JoinResponse returns the new participant and the room state a client needs
// to render the countdown.
type JoinResponse struct {
	ParticipantID    string    `json:"participant_id"`
	ParticipantCount int64     `json:"participant_count"`
	EndsAt           time.Time `json:"ends_at"`
}

// CompleteResponse returns the finalized giveaway with its published draw.
type CompleteResponse struct {
	Giveaway         *Giveaway `json:"giveaway"`
	Winners          []*Winner `json:"winners"`
	SelectionSeed    string    `json:"selection_seed"`
	TotalDistributed int64     `json:"total_distributed"`
}

// DetailsResponse is the read view of a giveaway.
type DetailsResponse struct {
	Giveaway         *Giveaway `json:"giveaway"`
	ParticipantCount int64     `json:"participant_count"`
	Winners          []*Winner `json:"winners,omitempty"`
}

// SweepOutcome reports what the expiry sweeper did with one overdue giveaway.
type SweepOutcome struct {
	GiveawayID string `json:"giveaway_id"`
	Outcome    string `json:"outcome"` // completed, cancelled or failed
	Winners    int    `json:"winners,omitempty"`
	Reason     string `json:"reason,omitempty"`
	Err        string `json:"error,omitempty"`
}
