package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vidshare_backend/internal/model"
	"vidshare_backend/internal/repository"
	"vidshare_backend/internal/testutil"
	"vidshare_backend/pkg/subscription"
)

func TestSubscriptionRepository_ActivateSupersedesActiveRow(t *testing.T) {
	db := testutil.NewTestDB(t)
	user := testutil.CreateUser(t, db, "alice")
	repo := repository.NewSubscriptionRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.CreateFree(ctx, user.ID, time.Now()))

	sub, err := repo.Activate(ctx, repository.Activation{
		UserID:          user.ID,
		Plan:            subscription.GoldPlan,
		StripeSessionID: "cs_test_1",
		Start:           time.Now(),
	})
	require.NoError(t, err)
	assert.Equal(t, "GOLD", sub.Plan)
	assert.Equal(t, subscription.Unlimited, sub.WatchTimeLimit)
	require.NotNil(t, sub.EndDate)

	var active int64
	db.Model(&model.UserSubscription{}).Where("user_id = ? AND status = ?", user.ID, model.SubscriptionActive).Count(&active)
	assert.Equal(t, int64(1), active)

	state, err := repo.CurrentSubscription(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "GOLD", state.Plan)

	// webhook retries must not create a second row
	again, err := repo.Activate(ctx, repository.Activation{
		UserID:          user.ID,
		Plan:            subscription.GoldPlan,
		StripeSessionID: "cs_test_1",
		Start:           time.Now(),
	})
	require.NoError(t, err)
	assert.Equal(t, sub.ID, again.ID)

	var total int64
	db.Model(&model.UserSubscription{}).Where("user_id = ?", user.ID).Count(&total)
	assert.Equal(t, int64(2), total)
}

func TestSubscriptionRepository_CurrentSubscriptionNone(t *testing.T) {
	db := testutil.NewTestDB(t)
	user := testutil.CreateUser(t, db, "bob")

	state, err := repository.NewSubscriptionRepository(db).CurrentSubscription(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Nil(t, state)
}

func TestSubscriptionRepository_CancelActive(t *testing.T) {
	db := testutil.NewTestDB(t)
	user := testutil.CreateUser(t, db, "carol")
	repo := repository.NewSubscriptionRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.CreateFree(ctx, user.ID, time.Now()))
	_, err := repo.CancelActive(ctx, user.ID)
	assert.ErrorIs(t, err, repository.ErrNoActiveSubscription)

	_, err = repo.Activate(ctx, repository.Activation{UserID: user.ID, Plan: subscription.SilverPlan, Start: time.Now()})
	require.NoError(t, err)

	cancelled, err := repo.CancelActive(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "SILVER", cancelled.Plan)

	state, err := repo.CurrentSubscription(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SubscriptionCancelled, state.Status)
}

func TestSubscriptionRepository_ExpirePastEnd(t *testing.T) {
	db := testutil.NewTestDB(t)
	user := testutil.CreateUser(t, db, "dave")
	repo := repository.NewSubscriptionRepository(db)
	ctx := context.Background()

	start := time.Now().AddDate(0, 0, -40)
	_, err := repo.Activate(ctx, repository.Activation{UserID: user.ID, Plan: subscription.BronzePlan, Start: start})
	require.NoError(t, err)

	n, err := repo.ExpirePastEnd(ctx, time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	state, err := repo.CurrentSubscription(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SubscriptionExpired, state.Status)
}

func TestSubscriptionRepository_RenewalReopensExpiredRow(t *testing.T) {
	db := testutil.NewTestDB(t)
	user := testutil.CreateUser(t, db, "frank")
	repo := repository.NewSubscriptionRepository(db)
	ctx := context.Background()

	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	_, err := repo.Activate(ctx, repository.Activation{
		UserID:      user.ID,
		Plan:        subscription.GoldPlan,
		StripeSubID: "sub_1",
		Start:       start,
	})
	require.NoError(t, err)

	// a 31-day January outlives the 30-day row before stripe renews
	n, err := repo.ExpirePastEnd(ctx, start.AddDate(0, 0, 30).Add(time.Hour))
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	renewedAt := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	periodEnd := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, repo.UpdateEndByStripeID(ctx, "sub_1", periodEnd, renewedAt))

	state, err := repo.CurrentSubscription(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SubscriptionActive, state.Status)

	gate := subscription.NewGate(repository.NewGateStore(db),
		subscription.WithClock(func() time.Time { return renewedAt.Add(24 * time.Hour) }),
		subscription.WithLocation(time.UTC))
	plan, err := gate.CurrentPlan(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, subscription.GoldPlan, plan)

	t.Run("cancelled rows stay cancelled", func(t *testing.T) {
		_, err := repo.CancelByStripeID(ctx, "sub_1")
		require.NoError(t, err)
		require.NoError(t, repo.UpdateEndByStripeID(ctx, "sub_1", periodEnd.AddDate(0, 1, 0), renewedAt))

		state, err := repo.CurrentSubscription(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, model.SubscriptionCancelled, state.Status)
	})

	t.Run("an end already in the past does not reopen", func(t *testing.T) {
		other := testutil.CreateUser(t, db, "grace")
		_, err := repo.Activate(ctx, repository.Activation{UserID: other.ID, Plan: subscription.SilverPlan, StripeSubID: "sub_2", Start: start})
		require.NoError(t, err)
		_, err = repo.ExpirePastEnd(ctx, start.AddDate(0, 2, 0))
		require.NoError(t, err)

		require.NoError(t, repo.UpdateEndByStripeID(ctx, "sub_2", start.AddDate(0, 1, 0), start.AddDate(0, 2, 0)))
		state, err := repo.CurrentSubscription(ctx, other.ID)
		require.NoError(t, err)
		assert.Equal(t, model.SubscriptionExpired, state.Status)
	})
}

func TestGateStore_EndToEnd(t *testing.T) {
	db := testutil.NewTestDB(t)
	user := testutil.CreateUser(t, db, "erin")
	video := testutil.CreateVideo(t, db, user, "clip.mp4")
	ctx := context.Background()

	now := time.Date(2026, 10, 17, 10, 0, 0, 0, time.UTC)
	gate := subscription.NewGate(repository.NewGateStore(db),
		subscription.WithClock(func() time.Time { return now }),
		subscription.WithLocation(time.UTC))

	e, err := gate.Check(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, e.CanDownload)

	_, err = gate.RecordDownload(ctx, user.ID, video.ID, subscription.Quality480p, 1024)
	require.NoError(t, err)

	e, err = gate.Check(ctx, user.ID)
	require.NoError(t, err)
	assert.False(t, e.CanDownload)
	assert.True(t, e.NeedsPremium)
	assert.Equal(t, subscription.Limit(1), e.DownloadsToday)

	_, err = gate.Check(ctx, user.ID+100)
	assert.ErrorIs(t, err, subscription.ErrUserNotFound)
}
