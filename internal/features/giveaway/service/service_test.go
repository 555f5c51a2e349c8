package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Haiikyu/reveelbox-sub002/internal/common/errors"
	"github.com/Haiikyu/reveelbox-sub002/internal/common/ratelimit"
	auditmodels "github.com/Haiikyu/reveelbox-sub002/internal/features/audit/models"
	auditservice "github.com/Haiikyu/reveelbox-sub002/internal/features/audit/service"
	chatmodels "github.com/Haiikyu/reveelbox-sub002/internal/features/chat/models"
	"github.com/Haiikyu/reveelbox-sub002/internal/features/giveaway/models"
	"github.com/Haiikyu/reveelbox-sub002/internal/features/giveaway/repository"
	usermodels "github.com/Haiikyu/reveelbox-sub002/internal/features/user/models"
	userrepo "github.com/Haiikyu/reveelbox-sub002/internal/features/user/repository"
	"github.com/Haiikyu/reveelbox-sub002/internal/platform/captcha"
)

// fakeGiveawayRepo mirrors the persistence-layer contracts the SQL
// implementation relies on: the unique (giveaway_id, user_id) index and the
// conditional status flips.
type fakeGiveawayRepo struct {
	mu           sync.Mutex
	giveaways    map[string]*models.Giveaway
	participants map[string][]*models.Participant
	joined       map[string]bool // "giveawayID/userID"
	winners      map[string][]*models.Winner
	profiles     *fakeProfileRepo

	createWinnersErr error
}

func newFakeGiveawayRepo(profiles *fakeProfileRepo) *fakeGiveawayRepo {
	return &fakeGiveawayRepo{
		giveaways:    make(map[string]*models.Giveaway),
		participants: make(map[string][]*models.Participant),
		joined:       make(map[string]bool),
		winners:      make(map[string][]*models.Winner),
		profiles:     profiles,
	}
}

func (f *fakeGiveawayRepo) Create(ctx context.Context, g *models.Giveaway) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	clone := *g
	f.giveaways[g.ID] = &clone
	return nil
}

func (f *fakeGiveawayRepo) GetByID(ctx context.Context, id string) (*models.Giveaway, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	g, ok := f.giveaways[id]
	if !ok {
		return nil, repository.ErrGiveawayNotFound
	}
	clone := *g
	return &clone, nil
}

func (f *fakeGiveawayRepo) SetAnnouncementMessage(ctx context.Context, id, messageID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.giveaways[id].AnnouncementMsg = &messageID
	return nil
}

func (f *fakeGiveawayRepo) SetResultsMessage(ctx context.Context, id, messageID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.giveaways[id].ResultsMsg = &messageID
	return nil
}

func (f *fakeGiveawayRepo) AddParticipant(ctx context.Context, p *models.Participant) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := fmt.Sprintf("%s/%d", p.GiveawayID, p.UserID)
	if f.joined[key] {
		return repository.ErrAlreadyJoined
	}
	f.joined[key] = true
	f.participants[p.GiveawayID] = append(f.participants[p.GiveawayID], p)
	return nil
}

func (f *fakeGiveawayRepo) CountVerifiedParticipants(ctx context.Context, giveawayID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, p := range f.participants[giveawayID] {
		if p.CaptchaVerified {
			n++
		}
	}
	return n, nil
}

func (f *fakeGiveawayRepo) ListEligibleParticipants(ctx context.Context, giveawayID string, minLevel int) ([]models.EligibleParticipant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.EligibleParticipant, 0)
	for _, p := range f.participants[giveawayID] {
		if !p.CaptchaVerified {
			continue
		}
		profile := f.profiles.get(p.UserID)
		if profile == nil || profile.Level < minLevel || profile.IsBanned {
			continue
		}
		out = append(out, models.EligibleParticipant{ParticipantID: p.ID, UserID: p.UserID})
	}
	return out, nil
}

func (f *fakeGiveawayRepo) MarkCompleted(ctx context.Context, id string, completedAt time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	g, ok := f.giveaways[id]
	if !ok || g.Status != models.GiveawayStatusActive {
		return false, nil
	}
	g.Status = models.GiveawayStatusCompleted
	g.CompletedAt = &completedAt
	return true, nil
}

func (f *fakeGiveawayRepo) MarkCancelled(ctx context.Context, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	g, ok := f.giveaways[id]
	if !ok || g.Status != models.GiveawayStatusActive {
		return false, nil
	}
	g.Status = models.GiveawayStatusCancelled
	return true, nil
}

func (f *fakeGiveawayRepo) CreateWinners(ctx context.Context, winners []*models.Winner) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createWinnersErr != nil {
		return f.createWinnersErr
	}
	for _, w := range winners {
		f.winners[w.GiveawayID] = append(f.winners[w.GiveawayID], w)
	}
	return nil
}

func (f *fakeGiveawayRepo) ListWinners(ctx context.Context, giveawayID string) ([]*models.Winner, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*models.Winner(nil), f.winners[giveawayID]...), nil
}

func (f *fakeGiveawayRepo) ListExpiredActive(ctx context.Context, now time.Time) ([]*models.Giveaway, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*models.Giveaway, 0)
	for _, g := range f.giveaways {
		if g.Status == models.GiveawayStatusActive && now.After(g.EndsAt) {
			clone := *g
			out = append(out, &clone)
		}
	}
	return out, nil
}

type credit struct {
	userID     int64
	amount     int64
	reason     string
	giveawayID string
}

type fakeProfileRepo struct {
	mu       sync.Mutex
	profiles map[int64]*usermodels.Profile
	credits  []credit
}

func newFakeProfileRepo() *fakeProfileRepo {
	return &fakeProfileRepo{profiles: make(map[int64]*usermodels.Profile)}
}

func (f *fakeProfileRepo) add(p *usermodels.Profile) *usermodels.Profile {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.profiles[p.ID] = p
	return p
}

func (f *fakeProfileRepo) get(userID int64) *usermodels.Profile {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.profiles[userID]
}

func (f *fakeProfileRepo) GetByID(ctx context.Context, userID int64) (*usermodels.Profile, error) {
	if p := f.get(userID); p != nil {
		return p, nil
	}
	return nil, userrepo.ErrProfileNotFound
}

func (f *fakeProfileRepo) CreditBalance(ctx context.Context, userID, amount int64, reason, giveawayID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.profiles[userID].CoinsBalance += amount
	f.credits = append(f.credits, credit{userID, amount, reason, giveawayID})
	return nil
}

// fakeChat records system posts; the giveaway service never calls Send or Get.
type fakeChat struct {
	mu    sync.Mutex
	posts []*chatmodels.MessageWithSender
}

func (f *fakeChat) Send(ctx context.Context, sender *usermodels.Profile, input *chatmodels.SendRequest) (*chatmodels.MessageWithSender, error) {
	panic("not used")
}

func (f *fakeChat) Get(ctx context.Context, roomID string, limit int) ([]*chatmodels.MessageWithSender, error) {
	panic("not used")
}

func (f *fakeChat) PostSystem(ctx context.Context, actorID int64, roomID, content string, messageType chatmodels.MessageType) (*chatmodels.MessageWithSender, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	msg := &chatmodels.MessageWithSender{Message: chatmodels.Message{
		ID:          uuid.New().String(),
		RoomID:      roomID,
		UserID:      actorID,
		Content:     content,
		MessageType: messageType,
		CreatedAt:   time.Now(),
	}}
	f.posts = append(f.posts, msg)
	return msg, nil
}

func (f *fakeChat) lastPost() *chatmodels.MessageWithSender {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.posts) == 0 {
		return nil
	}
	return f.posts[len(f.posts)-1]
}

type fakeAuditRepo struct {
	mu      sync.Mutex
	entries []auditmodels.Entry
}

func (f *fakeAuditRepo) Create(ctx context.Context, entry *auditmodels.Entry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, *entry)
	return nil
}

func (f *fakeAuditRepo) ListByGiveaway(ctx context.Context, giveawayID string) ([]*auditmodels.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*auditmodels.Entry, 0)
	for i := range f.entries {
		if f.entries[i].GiveawayID != nil && *f.entries[i].GiveawayID == giveawayID {
			clone := f.entries[i]
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (f *fakeAuditRepo) byAction(action auditmodels.Action) []auditmodels.Entry {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]auditmodels.Entry, 0)
	for _, e := range f.entries {
		if e.Action == action {
			out = append(out, e)
		}
	}
	return out
}

type fixture struct {
	svc      GiveawayService
	repo     *fakeGiveawayRepo
	profiles *fakeProfileRepo
	chat     *fakeChat
	audit    *fakeAuditRepo
	admin    *usermodels.Profile
}

func newFixture(t *testing.T, verifier captcha.Verifier) *fixture {
	t.Helper()
	profiles := newFakeProfileRepo()
	repo := newFakeGiveawayRepo(profiles)
	chat := &fakeChat{}
	audit := &fakeAuditRepo{}
	// No rules: abuse throttling has its own tests and would get in the
	// way of the repeated calls these scenarios make.
	svc := NewGiveawayService(repo, profiles, chat, auditservice.NewRecorder(audit), audit, verifier,
		ratelimit.NewMemoryLimiter(map[string]ratelimit.Rule{}))
	admin := profiles.add(&usermodels.Profile{ID: 1, Username: "admin", Level: 99, IsAdmin: true})
	return &fixture{svc: svc, repo: repo, profiles: profiles, chat: chat, audit: audit, admin: admin}
}

func (fx *fixture) createGiveaway(t *testing.T, total int64, winners, durationMinutes int) *models.Giveaway {
	t.Helper()
	resp, err := fx.svc.Create(context.Background(), fx.admin, &models.CreateRequest{
		RoomID:          "main",
		Title:           "Friday drop",
		TotalAmount:     total,
		WinnersCount:    winners,
		DurationMinutes: durationMinutes,
	}, RequestMeta{IPAddress: "10.0.0.1", UserAgent: "test"})
	require.NoError(t, err)
	return resp.Giveaway
}

func (fx *fixture) joinAs(t *testing.T, giveawayID string, userID int64) {
	t.Helper()
	fx.profiles.add(&usermodels.Profile{ID: userID, Username: fmt.Sprintf("user%d", userID), Level: 10})
	_, err := fx.svc.Join(context.Background(), fx.profiles.get(userID), &models.JoinRequest{
		GiveawayID:   giveawayID,
		CaptchaToken: "tok",
	}, RequestMeta{})
	require.NoError(t, err)
}

func TestCreateAnnouncesAndAudits(t *testing.T) {
	fx := newFixture(t, captcha.Static(true))

	g := fx.createGiveaway(t, 1000, 3, 10)

	assert.Equal(t, models.GiveawayStatusActive, g.Status)
	assert.WithinDuration(t, time.Now().Add(10*time.Minute), g.EndsAt, 2*time.Second)
	require.NotNil(t, g.AnnouncementMsg)

	post := fx.chat.lastPost()
	require.NotNil(t, post)
	assert.Equal(t, chatmodels.MessageTypeGiveawayAnnouncement, post.MessageType)
	assert.Equal(t, *g.AnnouncementMsg, post.ID)
	assert.Contains(t, post.Content, "Friday drop")

	require.Len(t, fx.audit.byAction(auditmodels.ActionGiveawayCreated), 1)
}

func TestCreateRequiresAdmin(t *testing.T) {
	fx := newFixture(t, captcha.Static(true))
	member := fx.profiles.add(&usermodels.Profile{ID: 2, Level: 50})

	_, err := fx.svc.Create(context.Background(), member, &models.CreateRequest{
		RoomID:          "main",
		Title:           "nope",
		TotalAmount:     100,
		WinnersCount:    1,
		DurationMinutes: 10,
	}, RequestMeta{})

	requireCode(t, err, apperrors.ErrCodeForbidden)
}

func TestCreateValidatesBounds(t *testing.T) {
	fx := newFixture(t, captcha.Static(true))

	invalid := []models.CreateRequest{
		{RoomID: "main", Title: "t", TotalAmount: 0, WinnersCount: 1, DurationMinutes: 10},
		{RoomID: "main", Title: "t", TotalAmount: models.MaxTotalAmount + 1, WinnersCount: 1, DurationMinutes: 10},
		{RoomID: "main", Title: "t", TotalAmount: 100, WinnersCount: 0, DurationMinutes: 10},
		{RoomID: "main", Title: "t", TotalAmount: 100, WinnersCount: models.MaxWinnersCount + 1, DurationMinutes: 10},
		{RoomID: "main", Title: "t", TotalAmount: 100, WinnersCount: 1, DurationMinutes: 0},
		{RoomID: "main", Title: "t", TotalAmount: 100, WinnersCount: 1, DurationMinutes: models.MaxDurationMinutes + 1},
		{RoomID: "main", Title: strings.Repeat("x", models.MaxTitleLength+1), TotalAmount: 100, WinnersCount: 1, DurationMinutes: 10},
		{RoomID: "main", Title: "   ", TotalAmount: 100, WinnersCount: 1, DurationMinutes: 10},
	}
	for _, req := range invalid {
		r := req
		_, err := fx.svc.Create(context.Background(), fx.admin, &r, RequestMeta{})
		requireCode(t, err, apperrors.ErrCodeValidation)
	}
}

func TestJoinCountsVerifiedParticipants(t *testing.T) {
	fx := newFixture(t, captcha.Static(true))
	g := fx.createGiveaway(t, 1000, 3, 10)

	for i := int64(10); i < 13; i++ {
		fx.profiles.add(&usermodels.Profile{ID: i, Level: 10})
		resp, err := fx.svc.Join(context.Background(), fx.profiles.get(i), &models.JoinRequest{
			GiveawayID:   g.ID,
			CaptchaToken: "tok",
		}, RequestMeta{})
		require.NoError(t, err)
		assert.Equal(t, i-9, resp.ParticipantCount)
		assert.Equal(t, g.EndsAt.Unix(), resp.EndsAt.Unix())
	}
	require.Len(t, fx.audit.byAction(auditmodels.ActionParticipantJoined), 3)
}

func TestJoinRejectsDuplicate(t *testing.T) {
	fx := newFixture(t, captcha.Static(true))
	g := fx.createGiveaway(t, 1000, 1, 10)
	fx.joinAs(t, g.ID, 10)

	_, err := fx.svc.Join(context.Background(), fx.profiles.get(10), &models.JoinRequest{
		GiveawayID:   g.ID,
		CaptchaToken: "tok",
	}, RequestMeta{})

	requireCode(t, err, apperrors.ErrCodeAlreadyJoined)
}

func TestJoinRejectsLowLevelAndBanned(t *testing.T) {
	fx := newFixture(t, captcha.Static(true))
	g := fx.createGiveaway(t, 1000, 1, 10)

	low := fx.profiles.add(&usermodels.Profile{ID: 20, Level: 4})
	_, err := fx.svc.Join(context.Background(), low, &models.JoinRequest{GiveawayID: g.ID, CaptchaToken: "tok"}, RequestMeta{})
	requireCode(t, err, apperrors.ErrCodeForbidden)

	banned := fx.profiles.add(&usermodels.Profile{ID: 21, Level: 40, IsBanned: true})
	_, err = fx.svc.Join(context.Background(), banned, &models.JoinRequest{GiveawayID: g.ID, CaptchaToken: "tok"}, RequestMeta{})
	requireCode(t, err, apperrors.ErrCodeForbidden)
}

func TestJoinFailedCaptchaLeavesNoParticipant(t *testing.T) {
	fx := newFixture(t, captcha.Static(false))
	g := fx.createGiveaway(t, 1000, 1, 10)
	user := fx.profiles.add(&usermodels.Profile{ID: 10, Level: 10})

	_, err := fx.svc.Join(context.Background(), user, &models.JoinRequest{
		GiveawayID:   g.ID,
		CaptchaToken: "bad",
	}, RequestMeta{IPAddress: "10.0.0.9"})

	requireCode(t, err, apperrors.ErrCodeCaptchaFailed)
	count, _ := fx.repo.CountVerifiedParticipants(context.Background(), g.ID)
	assert.Zero(t, count)

	// The failed attempt still lands on the audit trail.
	failed := fx.audit.byAction(auditmodels.ActionCaptchaFailed)
	require.Len(t, failed, 1)
	assert.Equal(t, "10.0.0.9", failed[0].IPAddress)
}

func TestJoinRejectsNonActiveGiveaway(t *testing.T) {
	fx := newFixture(t, captcha.Static(true))
	g := fx.createGiveaway(t, 1000, 1, 10)
	require.NoError(t, fx.svc.Cancel(context.Background(), fx.admin, g.ID, RequestMeta{}))

	user := fx.profiles.add(&usermodels.Profile{ID: 10, Level: 10})
	_, err := fx.svc.Join(context.Background(), user, &models.JoinRequest{GiveawayID: g.ID, CaptchaToken: "tok"}, RequestMeta{})

	requireCode(t, err, apperrors.ErrCodeInvalidState)
}

func TestJoinUnknownGiveaway(t *testing.T) {
	fx := newFixture(t, captcha.Static(true))
	user := fx.profiles.add(&usermodels.Profile{ID: 10, Level: 10})

	_, err := fx.svc.Join(context.Background(), user, &models.JoinRequest{GiveawayID: uuid.New().String(), CaptchaToken: "tok"}, RequestMeta{})

	requireCode(t, err, apperrors.ErrCodeGiveawayNotFound)
}

func TestCompletePaysTiersAndPublishesDraw(t *testing.T) {
	fx := newFixture(t, captcha.Static(true))
	g := fx.createGiveaway(t, 1000, 3, 10)
	for i := int64(10); i < 15; i++ {
		fx.joinAs(t, g.ID, i)
	}

	resp, err := fx.svc.Complete(context.Background(), fx.admin, g.ID, RequestMeta{})
	require.NoError(t, err)

	require.Len(t, resp.Winners, 3)
	assert.Equal(t, models.GiveawayStatusCompleted, resp.Giveaway.Status)
	assert.NotNil(t, resp.Giveaway.CompletedAt)
	assert.Equal(t, int64(800), resp.TotalDistributed)
	assert.Len(t, resp.SelectionSeed, 64)

	seen := make(map[int64]bool)
	for i, w := range resp.Winners {
		assert.Equal(t, i+1, w.Position)
		assert.Equal(t, []int64{400, 250, 150}[i], w.AmountWon)
		assert.Equal(t, resp.SelectionSeed, w.SelectionSeed)
		assert.False(t, seen[w.UserID], "duplicate winner")
		seen[w.UserID] = true
	}

	// Every winner got exactly one ledger credit matching the position
	// amount.
	require.Len(t, fx.profiles.credits, 3)
	for i, c := range fx.profiles.credits {
		assert.Equal(t, resp.Winners[i].UserID, c.userID)
		assert.Equal(t, resp.Winners[i].AmountWon, c.amount)
		assert.Equal(t, "giveaway_prize", c.reason)
		assert.Equal(t, g.ID, c.giveawayID)
	}

	post := fx.chat.lastPost()
	require.NotNil(t, post)
	assert.Equal(t, chatmodels.MessageTypeGiveawayResults, post.MessageType)
	assert.Contains(t, post.Content, resp.SelectionSeed)

	completed := fx.audit.byAction(auditmodels.ActionGiveawayCompleted)
	require.Len(t, completed, 1)
	assert.Equal(t, resp.SelectionSeed, completed[0].Details["selection_seed"])
	assert.Equal(t, int64(800), completed[0].Details["total_distributed"])
}

func TestCompleteExcludesBannedAtCompletionTime(t *testing.T) {
	fx := newFixture(t, captcha.Static(true))
	g := fx.createGiveaway(t, 1000, 3, 10)
	for i := int64(10); i < 14; i++ {
		fx.joinAs(t, g.ID, i)
	}
	// Eligibility is evaluated at draw time, not join time.
	fx.profiles.get(12).IsBanned = true

	resp, err := fx.svc.Complete(context.Background(), fx.admin, g.ID, RequestMeta{})
	require.NoError(t, err)

	for _, w := range resp.Winners {
		assert.NotEqual(t, int64(12), w.UserID)
	}
}

func TestCompleteRequiresEnoughEligible(t *testing.T) {
	fx := newFixture(t, captcha.Static(true))
	g := fx.createGiveaway(t, 1000, 5, 10)
	for i := int64(10); i < 13; i++ {
		fx.joinAs(t, g.ID, i)
	}

	_, err := fx.svc.Complete(context.Background(), fx.admin, g.ID, RequestMeta{})

	requireCode(t, err, apperrors.ErrCodeInsufficientParticipants)
	stored, _ := fx.repo.GetByID(context.Background(), g.ID)
	assert.Equal(t, models.GiveawayStatusActive, stored.Status)
	assert.Empty(t, fx.profiles.credits)
}

func TestCompleteTwiceFailsSecondAttempt(t *testing.T) {
	fx := newFixture(t, captcha.Static(true))
	g := fx.createGiveaway(t, 1000, 1, 10)
	fx.joinAs(t, g.ID, 10)

	_, err := fx.svc.Complete(context.Background(), fx.admin, g.ID, RequestMeta{})
	require.NoError(t, err)

	_, err = fx.svc.Complete(context.Background(), fx.admin, g.ID, RequestMeta{})
	requireCode(t, err, apperrors.ErrCodeInvalidState)
	require.Len(t, fx.profiles.credits, 1)
}

func TestCompleteCreditsNothingWhenWinnerRowsFail(t *testing.T) {
	fx := newFixture(t, captcha.Static(true))
	g := fx.createGiveaway(t, 1000, 2, 10)
	for i := int64(10); i < 14; i++ {
		fx.joinAs(t, g.ID, i)
	}
	fx.repo.createWinnersErr = fmt.Errorf("insert failed")

	_, err := fx.svc.Complete(context.Background(), fx.admin, g.ID, RequestMeta{})

	requireCode(t, err, apperrors.ErrCodeDatabaseError)
	// No payout without its verification record.
	assert.Empty(t, fx.profiles.credits)
	stored, _ := fx.repo.ListWinners(context.Background(), g.ID)
	assert.Empty(t, stored)
}

func TestConcurrentCompleteCreditsOnce(t *testing.T) {
	fx := newFixture(t, captcha.Static(true))
	g := fx.createGiveaway(t, 1000, 2, 10)
	for i := int64(10); i < 14; i++ {
		fx.joinAs(t, g.ID, i)
	}

	const attempts = 8
	errs := make([]error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = fx.svc.Complete(context.Background(), fx.admin, g.ID, RequestMeta{})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			requireCode(t, err, apperrors.ErrCodeInvalidState)
		}
	}
	assert.Equal(t, 1, succeeded)
	// The payout happened exactly once: two winners, two credits.
	assert.Len(t, fx.profiles.credits, 2)
}

func TestConcurrentJoinAdmitsOnce(t *testing.T) {
	fx := newFixture(t, captcha.Static(true))
	g := fx.createGiveaway(t, 1000, 1, 10)
	user := fx.profiles.add(&usermodels.Profile{ID: 10, Level: 10})

	const attempts = 4
	errs := make([]error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = fx.svc.Join(context.Background(), user, &models.JoinRequest{
				GiveawayID:   g.ID,
				CaptchaToken: "tok",
			}, RequestMeta{})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			requireCode(t, err, apperrors.ErrCodeAlreadyJoined)
		}
	}
	assert.Equal(t, 1, succeeded)
	count, _ := fx.repo.CountVerifiedParticipants(context.Background(), g.ID)
	assert.Equal(t, int64(1), count)
}

func TestCancelPostsNoticeAndAudits(t *testing.T) {
	fx := newFixture(t, captcha.Static(true))
	g := fx.createGiveaway(t, 1000, 1, 10)

	require.NoError(t, fx.svc.Cancel(context.Background(), fx.admin, g.ID, RequestMeta{}))

	stored, _ := fx.repo.GetByID(context.Background(), g.ID)
	assert.Equal(t, models.GiveawayStatusCancelled, stored.Status)
	assert.Empty(t, fx.profiles.credits)

	post := fx.chat.lastPost()
	require.NotNil(t, post)
	assert.Equal(t, chatmodels.MessageTypeSystem, post.MessageType)

	require.Len(t, fx.audit.byAction(auditmodels.ActionGiveawayCancelled), 1)

	// Terminal states stay terminal.
	err := fx.svc.Cancel(context.Background(), fx.admin, g.ID, RequestMeta{})
	requireCode(t, err, apperrors.ErrCodeInvalidState)
}

func TestGetReturnsWinnersOnlyWhenCompleted(t *testing.T) {
	fx := newFixture(t, captcha.Static(true))
	g := fx.createGiveaway(t, 1000, 1, 10)
	fx.joinAs(t, g.ID, 10)

	details, err := fx.svc.Get(context.Background(), g.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), details.ParticipantCount)
	assert.Empty(t, details.Winners)

	_, err = fx.svc.Complete(context.Background(), fx.admin, g.ID, RequestMeta{})
	require.NoError(t, err)

	details, err = fx.svc.Get(context.Background(), g.ID)
	require.NoError(t, err)
	require.Len(t, details.Winners, 1)
	assert.Equal(t, int64(1000), details.Winners[0].AmountWon)
}

func TestAuditTrailIsAdminOnlyAndOrdered(t *testing.T) {
	fx := newFixture(t, captcha.Static(true))
	g := fx.createGiveaway(t, 1000, 1, 10)
	fx.joinAs(t, g.ID, 10)
	_, err := fx.svc.Complete(context.Background(), fx.admin, g.ID, RequestMeta{})
	require.NoError(t, err)

	member := fx.profiles.get(10)
	_, err = fx.svc.AuditTrail(context.Background(), member, g.ID)
	requireCode(t, err, apperrors.ErrCodeForbidden)

	entries, err := fx.svc.AuditTrail(context.Background(), fx.admin, g.ID)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, auditmodels.ActionGiveawayCreated, entries[0].Action)
	assert.Equal(t, auditmodels.ActionParticipantJoined, entries[1].Action)
	assert.Equal(t, auditmodels.ActionGiveawayCompleted, entries[2].Action)
	for _, e := range entries {
		assert.NotEmpty(t, e.ID)
		assert.False(t, e.CreatedAt.IsZero())
	}
}

func requireCode(t *testing.T, err error, code apperrors.ErrorCode) {
	t.Helper()
	require.Error(t, err)
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, code, appErr.Code)
}
