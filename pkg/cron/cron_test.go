package cron

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vidshare_backend/internal/model"
	"vidshare_backend/internal/repository"
	"vidshare_backend/internal/testutil"
	"vidshare_backend/pkg/subscription"
)

type warning struct {
	email    string
	daysLeft int
}

type fakeMailer struct {
	sent []warning
}

func (m *fakeMailer) SendSubscriptionExpiryWarning(email, name, planName string, expiryDate time.Time, daysLeft int) error {
	m.sent = append(m.sent, warning{email: email, daysLeft: daysLeft})
	return nil
}

func TestCheckExpiringSubscriptions(t *testing.T) {
	db := testutil.NewTestDB(t)
	subs := repository.NewSubscriptionRepository(db)
	ctx := context.Background()

	now := time.Date(2026, 5, 10, 9, 0, 0, 0, time.UTC)

	// bronze lasts 30 days, so starting 23 days ago leaves 7
	week := testutil.CreateUser(t, db, "week")
	_, err := subs.Activate(ctx, repository.Activation{UserID: week.ID, Plan: subscription.BronzePlan, Start: now.AddDate(0, 0, -23)})
	require.NoError(t, err)

	soon := testutil.CreateUser(t, db, "soon")
	_, err = subs.Activate(ctx, repository.Activation{UserID: soon.ID, Plan: subscription.BronzePlan, Start: now.AddDate(0, 0, -27)})
	require.NoError(t, err)

	later := testutil.CreateUser(t, db, "later")
	_, err = subs.Activate(ctx, repository.Activation{UserID: later.ID, Plan: subscription.BronzePlan, Start: now.AddDate(0, 0, -10)})
	require.NoError(t, err)

	mailer := &fakeMailer{}
	assert.Equal(t, 2, checkExpiringSubscriptions(ctx, subs, mailer, now))
	assert.ElementsMatch(t, []warning{
		{email: "week@example.com", daysLeft: 7},
		{email: "soon@example.com", daysLeft: 3},
	}, mailer.sent)
}

func TestExpireSubscriptions(t *testing.T) {
	db := testutil.NewTestDB(t)
	subs := repository.NewSubscriptionRepository(db)
	ctx := context.Background()

	now := time.Date(2026, 5, 10, 9, 0, 0, 0, time.UTC)
	user := testutil.CreateUser(t, db, "lapsed")
	_, err := subs.Activate(ctx, repository.Activation{UserID: user.ID, Plan: subscription.SilverPlan, Start: now.AddDate(0, 0, -31)})
	require.NoError(t, err)

	expireSubscriptions(ctx, subs, now)

	latest, err := subs.Latest(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SubscriptionExpired, latest.Status)
}

func TestCleanupDownloads(t *testing.T) {
	db := testutil.NewTestDB(t)
	downloads := repository.NewDownloadRepository(db)
	user := testutil.CreateUser(t, db, "dl")
	video := testutil.CreateVideo(t, db, user, "a.mp4")

	now := time.Date(2026, 5, 10, 0, 15, 0, 0, time.UTC)
	require.NoError(t, db.Create(&model.DailyDownloadCounter{UserID: user.ID, Day: "2026-05-01", Count: 1}).Error)
	require.NoError(t, db.Create(&model.DailyDownloadCounter{UserID: user.ID, Day: "2026-05-09", Count: 1}).Error)
	require.NoError(t, db.Create(&model.DownloadRecord{UserID: user.ID, VideoID: video.ID, Quality: "480p", ExpiresAt: now.Add(-time.Hour)}).Error)
	require.NoError(t, db.Create(&model.DownloadRecord{UserID: user.ID, VideoID: video.ID, Quality: "480p", ExpiresAt: now.Add(time.Hour)}).Error)

	gate := subscription.NewGate(repository.NewGateStore(db), subscription.WithLocation(time.UTC))
	cleanupDownloads(context.Background(), downloads, gate, now)

	var counters int64
	db.Model(&model.DailyDownloadCounter{}).Count(&counters)
	assert.Equal(t, int64(1), counters)

	var records int64
	db.Model(&model.DownloadRecord{}).Count(&records)
	assert.Equal(t, int64(1), records)
}

func TestInitSweepCronStops(t *testing.T) {
	var calls int32
	c, err := InitSweepCron("@every 1h", SweepJob{Name: "test", Sweep: func() int {
		atomic.AddInt32(&calls, 1)
		return 0
	}})
	require.NoError(t, err)
	assert.Len(t, c.Entries(), 1)

	<-c.Stop().Done()

	_, err = InitSweepCron("not a spec", SweepJob{Name: "bad", Sweep: func() int { return 0 }})
	assert.Error(t, err)
}

func TestRunSweep(t *testing.T) {
	assert.Equal(t, 3, runSweep(SweepJob{Name: "otp", Sweep: func() int { return 3 }}))
}
