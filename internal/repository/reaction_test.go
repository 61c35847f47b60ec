package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vidshare_backend/internal/model"
	"vidshare_backend/internal/testutil"
)

func TestReactionToggle_Video(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewReactionRepository(db)
	ctx := context.Background()

	owner := testutil.CreateUser(t, db, "owner")
	viewer := testutil.CreateUser(t, db, "viewer")
	video := testutil.CreateVideo(t, db, owner, "v.mp4")

	res, err := repo.Toggle(ctx, viewer.ID, model.TargetVideo, video.ID, model.ReactionLike)
	require.NoError(t, err)
	assert.Equal(t, model.ReactionLike, res.Kind)
	assert.Equal(t, int64(1), res.Likes)

	// switch to dislike
	res, err = repo.Toggle(ctx, viewer.ID, model.TargetVideo, video.ID, model.ReactionDislike)
	require.NoError(t, err)
	assert.Equal(t, model.ReactionDislike, res.Kind)
	assert.Equal(t, int64(0), res.Likes)
	assert.Equal(t, int64(1), res.Dislikes)

	// same kind again removes it
	res, err = repo.Toggle(ctx, viewer.ID, model.TargetVideo, video.ID, model.ReactionDislike)
	require.NoError(t, err)
	assert.Equal(t, model.ReactionKind(""), res.Kind)
	assert.Equal(t, int64(0), res.Dislikes)

	kind, err := repo.KindFor(ctx, viewer.ID, model.TargetVideo, video.ID)
	require.NoError(t, err)
	assert.Empty(t, kind)

	_, err = repo.Toggle(ctx, viewer.ID, model.TargetVideo, 9999, model.ReactionLike)
	assert.ErrorIs(t, err, ErrTargetNotFound)
}

func TestReactionToggle_SecondDislikeHidesComment(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewReactionRepository(db)
	ctx := context.Background()

	owner := testutil.CreateUser(t, db, "owner")
	video := testutil.CreateVideo(t, db, owner, "v.mp4")
	comment := &model.Comment{VideoID: video.ID, UserID: owner.ID, Body: "hello"}
	require.NoError(t, db.Create(comment).Error)

	a := testutil.CreateUser(t, db, "a")
	b := testutil.CreateUser(t, db, "b")

	res, err := repo.Toggle(ctx, a.ID, model.TargetComment, comment.ID, model.ReactionDislike)
	require.NoError(t, err)
	assert.False(t, res.Hidden)

	res, err = repo.Toggle(ctx, b.ID, model.TargetComment, comment.ID, model.ReactionDislike)
	require.NoError(t, err)
	assert.True(t, res.Hidden)
	assert.Equal(t, int64(2), res.Dislikes)

	var stored model.Comment
	require.NoError(t, db.First(&stored, comment.ID).Error)
	assert.True(t, stored.Hidden)
}
