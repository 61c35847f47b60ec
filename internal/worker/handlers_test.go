package worker

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vidshare_backend/internal/model"
	"vidshare_backend/internal/repository"
	"vidshare_backend/internal/testutil"
	"vidshare_backend/pkg/email"
	"vidshare_backend/pkg/subscription"
	"vidshare_backend/pkg/tasks"
	"vidshare_backend/pkg/utils/storage"
)

type fakeObjects struct {
	uploaded map[string]int
	deleted  []string
}

func (f *fakeObjects) Upload(ctx context.Context, key string, body io.Reader, contentType string) (string, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	if f.uploaded == nil {
		f.uploaded = map[string]int{}
	}
	f.uploaded[key] = len(data)
	return "https://cdn.example.com/" + key, nil
}

func (f *fakeObjects) Delete(ctx context.Context, key string) error {
	f.deleted = append(f.deleted, key)
	return nil
}

type fakeMailer struct {
	to   []string
	sent []email.InvoiceData
}

func (m *fakeMailer) SendInvoiceEmail(to string, data email.InvoiceData) error {
	m.to = append(m.to, to)
	m.sent = append(m.sent, data)
	return nil
}

var mp4Bytes = []byte{0, 0, 0, 0x18, 'f', 't', 'y', 'p', 'i', 's', 'o', 'm', 0, 0, 0, 0, 1, 2, 3, 4}

func newStorage(t *testing.T, files map[string][]byte) *storage.LocalStorage {
	t.Helper()
	root := t.TempDir()
	s := storage.NewLocalStorage(root)
	require.NoError(t, os.MkdirAll(s.VideoDir(), 0o755))
	for name, data := range files {
		require.NoError(t, os.WriteFile(filepath.Join(s.VideoDir(), name), data, 0o644))
	}
	return s
}

func probeTask(t *testing.T, videoID uint) *asynq.Task {
	task, err := tasks.NewProbeVideoTask(videoID)
	require.NoError(t, err)
	return task
}

func TestHandleProbeVideoTask_Ready(t *testing.T) {
	db := testutil.NewTestDB(t)
	owner := testutil.CreateUser(t, db, "alice")
	video := testutil.CreateVideo(t, db, owner, "good.mp4")
	require.NoError(t, db.Model(video).Update("status", model.VideoStatusProcessing).Error)

	objects := &fakeObjects{}
	h := NewTaskHandler(db, newStorage(t, map[string][]byte{"good.mp4": mp4Bytes}), WithObjectStore(objects))

	require.NoError(t, h.HandleProbeVideoTask(context.Background(), probeTask(t, video.ID)))

	var got model.Video
	require.NoError(t, db.First(&got, video.ID).Error)
	assert.Equal(t, model.VideoStatusReady, got.Status)
	assert.Equal(t, int64(len(mp4Bytes)), got.Size)
	assert.Equal(t, "video/mp4", got.ContentType)
	assert.Equal(t, "users/alice/videos/good.mp4", got.ObjectKey)
	assert.Equal(t, len(mp4Bytes), objects.uploaded["users/alice/videos/good.mp4"])
}

func TestHandleProbeVideoTask_BadSignature(t *testing.T) {
	db := testutil.NewTestDB(t)
	owner := testutil.CreateUser(t, db, "bob")
	video := testutil.CreateVideo(t, db, owner, "fake.mp4")

	h := NewTaskHandler(db, newStorage(t, map[string][]byte{"fake.mp4": []byte("definitely not a movie")}))

	err := h.HandleProbeVideoTask(context.Background(), probeTask(t, video.ID))
	require.Error(t, err)
	assert.True(t, errors.Is(err, asynq.SkipRetry))

	var got model.Video
	require.NoError(t, db.First(&got, video.ID).Error)
	assert.Equal(t, model.VideoStatusFailed, got.Status)
}

func TestHandleSendInvoiceTask(t *testing.T) {
	db := testutil.NewTestDB(t)
	user := testutil.CreateUser(t, db, "carol")

	start := time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)
	sub, err := repository.NewSubscriptionRepository(db).Activate(context.Background(), repository.Activation{
		UserID: user.ID,
		Plan:   subscription.SilverPlan,
		Start:  start,
	})
	require.NoError(t, err)

	mailer := &fakeMailer{}
	h := NewTaskHandler(db, newStorage(t, nil), WithMailer(mailer))

	task, err := tasks.NewSendInvoiceTask(sub.ID)
	require.NoError(t, err)
	_, err = NewInline(h).Enqueue(task)
	require.NoError(t, err)

	require.Len(t, mailer.sent, 1)
	assert.Equal(t, "carol@example.com", mailer.to[0])
	inv := mailer.sent[0]
	assert.Equal(t, "silver", inv.PlanName)
	assert.Equal(t, float64(50), inv.Price)
	assert.Equal(t, "10 minutes per video", inv.WatchLimit)
	assert.Contains(t, inv.InvoiceNumber, "INV-20260304-")
	require.NotNil(t, inv.ValidUntil)
	assert.True(t, inv.ValidUntil.Equal(start.AddDate(0, 0, 30)))
}

func TestHandleCleanupUploadsTask(t *testing.T) {
	db := testutil.NewTestDB(t)
	files := newStorage(t, map[string][]byte{"old.mp4": mp4Bytes})
	objects := &fakeObjects{}
	h := NewTaskHandler(db, files, WithObjectStore(objects))

	task, err := tasks.NewCleanupUploadsTask(tasks.CleanupUploadsPayload{
		FileName:     "old.mp4",
		ObjectKey:    "users/a/videos/old.mp4",
		ThumbnailKey: "users/a/videos/old/thumbnails/x.webp",
	})
	require.NoError(t, err)

	info, err := NewInline(h).Enqueue(task)
	require.NoError(t, err)
	assert.Equal(t, tasks.TypeCleanupUploads, info.Type)

	_, err = files.Resolve("old.mp4")
	assert.ErrorIs(t, err, storage.ErrFileNotFound)
	assert.Equal(t, []string{"users/a/videos/old.mp4", "users/a/videos/old/thumbnails/x.webp"}, objects.deleted)

	// already gone is fine
	_, err = NewInline(h).Enqueue(task)
	assert.NoError(t, err)
}
