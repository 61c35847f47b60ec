package controller

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vidshare_backend/internal/middleware"
	"vidshare_backend/internal/model"
	"vidshare_backend/internal/testutil"
	"vidshare_backend/pkg/subscription"
	"vidshare_backend/pkg/tasks"
)

func (e *testEnv) upload(token string, fields map[string]string, fileName string, content []byte) *http.Response {
	e.t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(e.t, w.WriteField(k, v))
	}
	if fileName != "" {
		part, err := w.CreateFormFile("video", fileName)
		require.NoError(e.t, err)
		_, err = part.Write(content)
		require.NoError(e.t, err)
	}
	require.NoError(e.t, w.Close())

	req := httptest.NewRequest("POST", "/api/videos", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := e.app.Test(req, -1)
	require.NoError(e.t, err)
	return resp
}

func TestUploadVideo(t *testing.T) {
	env := newTestEnv(t)
	token := env.token(testutil.CreateUser(t, env.db, "creator"))

	resp := env.upload(token, map[string]string{"title": "My First Vlog", "tags": "travel, food"}, "vlog.mp4", mp4Bytes("frames"))
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var video model.Video
	require.NoError(t, env.db.Last(&video).Error)
	// the inline queue probes before the response is written
	assert.Equal(t, model.VideoStatusReady, video.Status)
	assert.Equal(t, "my-first-vlog", video.Slug)
	assert.Equal(t, int64(len(mp4Bytes("frames"))), video.Size)
	assert.FileExists(t, filepath.Join(env.files.VideoDir(), video.FileName))

	t.Run("content that is not mp4 is rejected", func(t *testing.T) {
		resp := env.upload(token, map[string]string{"title": "Fake"}, "fake.mp4", []byte("plain text pretending"))
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	})

	t.Run("unsupported extension", func(t *testing.T) {
		resp := env.upload(token, map[string]string{"title": "Doc"}, "notes.txt", []byte("hello"))
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	})

	t.Run("title is required", func(t *testing.T) {
		resp := env.upload(token, nil, "vlog.mp4", mp4Bytes("frames"))
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	})

	t.Run("shorts are capped at a minute", func(t *testing.T) {
		resp := env.upload(token, map[string]string{"title": "Long short", "is_short": "true", "duration": "90"}, "s.mp4", mp4Bytes("x"))
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	})

	t.Run("missing file", func(t *testing.T) {
		resp := env.upload(token, map[string]string{"title": "Nothing"}, "", nil)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	})
}

func TestListAndGetVideo(t *testing.T) {
	env := newTestEnv(t)
	owner := testutil.CreateUser(t, env.db, "owner")
	ready := testutil.CreateVideo(t, env.db, owner, "a.mp4")
	hidden := testutil.CreateVideo(t, env.db, owner, "b.mp4")
	require.NoError(t, env.db.Model(hidden).Update("status", model.VideoStatusRemoved).Error)

	resp, body := env.do("GET", "/api/videos", nil, "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(1), body["total"])

	resp, body = env.do("GET", fmt.Sprintf("/api/videos/%d", ready.ID), nil, env.token(owner))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	video := body["video"].(map[string]interface{})
	assert.Equal(t, float64(1), video["views"])
	assert.Equal(t, false, video["in_watch_later"])
	assert.Equal(t, "owner", video["channel"].(map[string]interface{})["username"])

	resp, _ = env.do("GET", fmt.Sprintf("/api/videos/%d", hidden.ID), nil, "")
	assert.Equal(t, fiber.StatusGone, resp.StatusCode)

	resp, _ = env.do("GET", "/api/videos/9999", nil, "")
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestStreamVideo_WatchTimeHeader(t *testing.T) {
	env := newTestEnv(t)
	owner := testutil.CreateUser(t, env.db, "owner")
	video := testutil.CreateVideo(t, env.db, owner, "s.mp4")
	content := env.writeVideo(video, "stream")
	path := fmt.Sprintf("/api/videos/%d/stream", video.ID)

	resp, _ := env.do("GET", path, nil, "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "5", resp.Header.Get(middleware.WatchTimeHeader))
	assert.Equal(t, "bytes", resp.Header.Get(fiber.HeaderAcceptRanges))
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, content, data)

	resp, body := env.do("GET", path+"?quality=720p", nil, "")
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	assert.Equal(t, true, body["needsPremium"])

	gold := testutil.CreateUser(t, env.db, "gold")
	env.makePremium(gold, subscription.GoldPlan)
	resp, _ = env.do("GET", path+"?quality=720p", nil, env.token(gold))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "-1", resp.Header.Get(middleware.WatchTimeHeader))

	t.Run("failed videos do not stream", func(t *testing.T) {
		broken := testutil.CreateVideo(t, env.db, owner, "broken.mp4")
		require.NoError(t, env.db.Model(broken).Update("status", model.VideoStatusFailed).Error)
		resp, _ := env.do("GET", fmt.Sprintf("/api/videos/%d/stream", broken.ID), nil, "")
		assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
	})

	t.Run("missing file", func(t *testing.T) {
		lost := testutil.CreateVideo(t, env.db, owner, "lost.mp4")
		resp, _ := env.do("GET", fmt.Sprintf("/api/videos/%d/stream", lost.ID), nil, "")
		assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	})
}

func TestDeleteVideo(t *testing.T) {
	env := newTestEnv(t)
	owner := testutil.CreateUser(t, env.db, "owner")
	other := testutil.CreateUser(t, env.db, "other")
	video := testutil.CreateVideo(t, env.db, owner, "del.mp4")
	env.writeVideo(video, "bye")
	path := fmt.Sprintf("/api/videos/%d", video.ID)

	resp, _ := env.do("DELETE", path, nil, env.token(other))
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp, _ = env.do("DELETE", path, nil, env.token(owner))
	require.Equal(t, fiber.StatusNoContent, resp.StatusCode)

	_, err := os.Stat(filepath.Join(env.files.VideoDir(), video.FileName))
	assert.True(t, os.IsNotExist(err))

	resp, _ = env.do("GET", path, nil, "")
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestDeleteVideo_QueuesCleanup(t *testing.T) {
	env := newTestEnv(t)
	queue := &recordingQueue{}
	InitVideoController(env.files, queue)

	owner := testutil.CreateUser(t, env.db, "owner")
	video := testutil.CreateVideo(t, env.db, owner, "q.mp4")

	resp, _ := env.do("DELETE", fmt.Sprintf("/api/videos/%d", video.ID), nil, env.token(owner))
	require.Equal(t, fiber.StatusNoContent, resp.StatusCode)
	assert.Equal(t, []string{tasks.TypeCleanupUploads}, queue.types())
}

func TestRecordViewAndHistory(t *testing.T) {
	env := newTestEnv(t)
	owner := testutil.CreateUser(t, env.db, "owner")
	viewer := testutil.CreateUser(t, env.db, "viewer")
	video := testutil.CreateVideo(t, env.db, owner, "h.mp4")
	token := env.token(viewer)

	resp, body := env.do("POST", fmt.Sprintf("/api/videos/%d/view", video.ID), nil, token)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(5), body["watchTimeLimit"])

	// repeat views keep a single entry
	resp, _ = env.do("POST", fmt.Sprintf("/api/videos/%d/view", video.ID), nil, token)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, body = env.do("GET", "/api/history", nil, token)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Len(t, body["history"], 1)

	resp, _ = env.do("DELETE", "/api/history", nil, token)
	require.Equal(t, fiber.StatusNoContent, resp.StatusCode)

	resp, body = env.do("GET", "/api/history", nil, token)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Empty(t, body["history"])

	resp, _ = env.do("POST", fmt.Sprintf("/api/videos/%d/view", video.ID), nil, "")
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
}

func TestWatchLater(t *testing.T) {
	env := newTestEnv(t)
	owner := testutil.CreateUser(t, env.db, "owner")
	video := testutil.CreateVideo(t, env.db, owner, "w.mp4")
	token := env.token(testutil.CreateUser(t, env.db, "viewer"))

	for i := 0; i < 2; i++ {
		resp, _ := env.do("POST", fmt.Sprintf("/api/videos/%d/watch-later", video.ID), nil, token)
		require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	}

	resp, body := env.do("GET", "/api/watch-later", nil, token)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Len(t, body["watch_later"], 1)
}

func TestChannels(t *testing.T) {
	env := newTestEnv(t)
	owner := testutil.CreateUser(t, env.db, "creator")
	fan := testutil.CreateUser(t, env.db, "fan")
	testutil.CreateVideo(t, env.db, owner, "ch.mp4")

	resp, _ := env.do("POST", "/api/channels/creator/subscribe", nil, env.token(owner))
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	for i := 0; i < 2; i++ {
		resp, _ = env.do("POST", "/api/channels/creator/subscribe", nil, env.token(fan))
		require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	}

	resp, body := env.do("GET", fmt.Sprintf("/api/channels/%d", owner.ID), nil, env.token(fan))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(1), body["subscribers"])
	assert.Equal(t, float64(1), body["videos"])
	assert.Equal(t, true, body["subscribed"])

	resp, body = env.do("GET", "/api/subscriptions/channels", nil, env.token(fan))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Len(t, body["channels"], 1)
	assert.Len(t, body["videos"], 1)

	resp, _ = env.do("GET", "/api/channels/nobody", nil, "")
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}
