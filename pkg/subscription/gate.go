package subscription

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"
)

const (
	StatusActive = "active"

	// DownloadTTL is how long a recorded download can be fetched again
	DownloadTTL = 7 * 24 * time.Hour
)

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrInvalidQuality    = errors.New("invalid quality")
	ErrQualityNotAllowed = errors.New("quality requires a premium plan")
	ErrQuotaExceeded     = errors.New("daily download limit reached")
)

// SubscriptionState is the stored subscription row the gate reads
type SubscriptionState struct {
	Plan           string
	Status         string
	EndDate        *time.Time
	WatchTimeLimit int
}

// Download is a download about to be recorded
type Download struct {
	ID        uint
	UserID    uint
	VideoID   uint
	Quality   Quality
	FileSize  int64
	CreatedAt time.Time
	ExpiresAt time.Time
}

type Store interface {
	UserExists(ctx context.Context, userID uint) (bool, error)
	// CurrentSubscription returns the most recent row by creation time, nil when none
	CurrentSubscription(ctx context.Context, userID uint) (*SubscriptionState, error)
	CountDownloadsSince(ctx context.Context, userID uint, since time.Time) (int64, error)
	// InsertDownload reserves one unit of the day's quota and writes the record
	// atomically. It returns ErrQuotaExceeded when the day's count already
	// reached limit. A negative limit disables the cap.
	InsertDownload(ctx context.Context, d *Download, day string, limit int) error
}

// Limit marshals Unlimited as "unlimited"
type Limit int

func (l Limit) MarshalJSON() ([]byte, error) {
	if l < 0 {
		return []byte(`"unlimited"`), nil
	}
	return []byte(strconv.Itoa(int(l))), nil
}

func (l *Limit) UnmarshalJSON(data []byte) error {
	if string(data) == `"unlimited"` {
		*l = Unlimited
		return nil
	}
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*l = Limit(n)
	return nil
}

type Eligibility struct {
	CanDownload        bool      `json:"canDownload"`
	NeedsPremium       bool      `json:"needsPremium"`
	Plan               PlanType  `json:"plan"`
	IsPremium          bool      `json:"isPremium"`
	DownloadsToday     Limit     `json:"downloadsToday"`
	MaxDownloads       Limit     `json:"maxDownloads"`
	Remaining          Limit     `json:"remaining"`
	AvailableQualities []Quality `json:"availableQualities"`
	WatchTimeLimit     Limit     `json:"watchTimeLimit"`
}

type Gate struct {
	store Store
	now   func() time.Time
	loc   *time.Location
}

type Option func(*Gate)

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(g *Gate) { g.now = now }
}

// WithLocation sets the zone whose midnight starts a new quota day
func WithLocation(loc *time.Location) Option {
	return func(g *Gate) { g.loc = loc }
}

func NewGate(store Store, opts ...Option) *Gate {
	g := &Gate{
		store: store,
		now:   time.Now,
		loc:   time.Local,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// StartOfDay returns local midnight for t
func (g *Gate) StartOfDay(t time.Time) time.Time {
	t = t.In(g.loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, g.loc)
}

// DayKey is the quota bucket for t
func (g *Gate) DayKey(t time.Time) string {
	return t.In(g.loc).Format("2006-01-02")
}

// CurrentPlan resolves the user's effective plan. Missing, cancelled, expired
// or unrecognised rows all resolve to the free plan.
func (g *Gate) CurrentPlan(ctx context.Context, userID uint) (PlanType, error) {
	state, err := g.store.CurrentSubscription(ctx, userID)
	if err != nil {
		return FreePlan, fmt.Errorf("could not load subscription: %w", err)
	}
	return g.planFromState(userID, state), nil
}

func (g *Gate) planFromState(userID uint, state *SubscriptionState) PlanType {
	if state == nil || state.Status != StatusActive {
		return FreePlan
	}
	if state.EndDate != nil && !state.EndDate.After(g.now()) {
		return FreePlan
	}
	plan, err := ParsePlan(state.Plan)
	if err != nil {
		log.Printf("User %d has unrecognised plan %q, treating as free", userID, state.Plan)
		return FreePlan
	}
	return plan
}

// Check reports download eligibility without touching the quota
func (g *Gate) Check(ctx context.Context, userID uint) (Eligibility, error) {
	exists, err := g.store.UserExists(ctx, userID)
	if err != nil {
		return Eligibility{}, fmt.Errorf("could not load user: %w", err)
	}
	if !exists {
		return Eligibility{}, ErrUserNotFound
	}

	plan, err := g.CurrentPlan(ctx, userID)
	if err != nil {
		return Eligibility{}, err
	}
	limits := GetPlanLimits(plan)

	e := Eligibility{
		Plan:               plan,
		IsPremium:          limits.UnlimitedDownloads,
		AvailableQualities: limits.Qualities,
		WatchTimeLimit:     Limit(limits.WatchTimeMinutes),
	}

	if limits.UnlimitedDownloads {
		e.CanDownload = true
		e.DownloadsToday = Unlimited
		e.MaxDownloads = Unlimited
		e.Remaining = Unlimited
		return e, nil
	}

	count, err := g.store.CountDownloadsSince(ctx, userID, g.StartOfDay(g.now()))
	if err != nil {
		return Eligibility{}, fmt.Errorf("could not count downloads: %w", err)
	}

	e.DownloadsToday = Limit(count)
	e.MaxDownloads = Limit(limits.DailyDownloads)
	if count >= int64(limits.DailyDownloads) {
		e.NeedsPremium = true
		e.Remaining = 0
		return e, nil
	}

	e.CanDownload = true
	e.Remaining = Limit(int64(limits.DailyDownloads) - count)
	return e, nil
}

// Authorize checks eligibility for one download at the given quality
func (g *Gate) Authorize(ctx context.Context, userID uint, quality Quality) (Eligibility, error) {
	if _, err := ParseQuality(string(quality)); err != nil {
		return Eligibility{}, err
	}

	e, err := g.Check(ctx, userID)
	if err != nil {
		return e, err
	}

	if !e.Plan.AllowsQuality(quality) {
		e.CanDownload = false
		e.NeedsPremium = true
		return e, ErrQualityNotAllowed
	}
	if !e.CanDownload {
		return e, ErrQuotaExceeded
	}
	return e, nil
}

// RecordDownload authorizes and records a download in one step. The quota
// is enforced again by the store, so concurrent requests cannot overrun it.
func (g *Gate) RecordDownload(ctx context.Context, userID, videoID uint, quality Quality, fileSize int64) (*Download, error) {
	e, err := g.Authorize(ctx, userID, quality)
	if err != nil {
		return nil, err
	}

	now := g.now()
	d := &Download{
		UserID:    userID,
		VideoID:   videoID,
		Quality:   quality,
		FileSize:  fileSize,
		CreatedAt: now,
		ExpiresAt: now.Add(DownloadTTL),
	}

	limit := Unlimited
	if !e.IsPremium {
		limit = int(e.MaxDownloads)
	}

	if err := g.store.InsertDownload(ctx, d, g.DayKey(now), limit); err != nil {
		if errors.Is(err, ErrQuotaExceeded) {
			return nil, err
		}
		return nil, fmt.Errorf("could not record download: %w", err)
	}
	return d, nil
}
