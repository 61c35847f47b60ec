package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"vidshare_backend/internal/middleware"
	"vidshare_backend/internal/model"
	"vidshare_backend/internal/repository"
	"vidshare_backend/internal/testutil"
	"vidshare_backend/internal/worker"
	"vidshare_backend/pkg/subscription"
	"vidshare_backend/pkg/tasks"
	"vidshare_backend/pkg/utils/jwt"
	"vidshare_backend/pkg/utils/storage"
)

type recordingQueue struct {
	tasks []*asynq.Task
}

func (q *recordingQueue) Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	q.tasks = append(q.tasks, task)
	return &asynq.TaskInfo{Type: task.Type(), Payload: task.Payload()}, nil
}

func (q *recordingQueue) types() []string {
	var out []string
	for _, t := range q.tasks {
		out = append(out, t.Type())
	}
	return out
}

type testEnv struct {
	t     *testing.T
	db    *gorm.DB
	app   *fiber.App
	files *storage.LocalStorage
	gate  *subscription.Gate
	subs  *repository.SubscriptionRepository
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := testutil.NewTestDB(t)
	jwt.SetSecret("test-secret")

	files := storage.NewLocalStorage(t.TempDir())
	gate := subscription.NewGate(repository.NewGateStore(db))
	subs := repository.NewSubscriptionRepository(db)

	InitVideoController(files, worker.NewInline(worker.NewTaskHandler(db, files)))
	InitSettingsController(nil)
	InitReactionController(repository.NewReactionRepository(db))
	InitCommentController(nil)
	InitSubscriptionController(subs, gate, StripeSettings{FrontendURL: "http://localhost"})
	InitDownloadController(gate, repository.NewDownloadRepository(db), nil, 0)
	InitAuthController(nil, subs, gate)

	env := &testEnv{t: t, db: db, files: files, gate: gate, subs: subs}
	env.app = newTestApp(gate)
	return env
}

func newTestApp(gate *subscription.Gate) *fiber.App {
	app := fiber.New()
	api := app.Group("/api")
	auth := middleware.AuthMiddleware()
	optional := middleware.OptionalAuth()
	plan := middleware.ResolvePlan(gate)

	api.Post("/auth/otp/request", RequestOTP)
	api.Post("/auth/otp/verify", VerifyOTP)
	api.Get("/theme", optional, GetTheme)

	api.Get("/videos", optional, ListVideos)
	api.Post("/videos", auth, UploadVideo)
	api.Get("/videos/:id", optional, GetVideo)
	api.Delete("/videos/:id", auth, middleware.CheckVideoOwnership(), DeleteVideo)
	api.Get("/videos/:id/stream", optional, plan, middleware.WatchTimeLimit(), middleware.RequireQuality(), StreamVideo)
	api.Post("/videos/:id/view", optional, plan, RecordView)
	api.Post("/videos/:id/like", auth, React(model.TargetVideo, model.ReactionLike))
	api.Get("/videos/:id/comments", ListComments)
	api.Post("/videos/:id/comments", auth, CreateComment)
	api.Post("/videos/:id/download", auth, DownloadVideo)
	api.Post("/videos/:id/watch-later", auth, AddWatchLater)

	api.Put("/comments/:id", auth, middleware.CheckCommentOwnership(), UpdateComment)
	api.Post("/comments/:id/dislike", auth, React(model.TargetComment, model.ReactionDislike))
	api.Post("/comments/:id/translate", TranslateComment)

	api.Get("/downloads", auth, ListDownloads)
	api.Get("/downloads/eligibility", auth, GetDownloadEligibility)
	api.Get("/downloads/:recordId/file", auth, DownloadFile)

	api.Get("/history", auth, GetHistory)
	api.Delete("/history", auth, ClearHistory)
	api.Get("/watch-later", auth, GetWatchLater)

	api.Get("/channels/:id", optional, GetChannel)
	api.Post("/channels/:id/subscribe", auth, SubscribeChannel)
	api.Get("/subscriptions/channels", auth, GetSubscriptionFeed)

	api.Get("/plans", ListPlans)
	api.Get("/plans/my", auth, GetMyPlan)
	api.Post("/plans/checkout", auth, Checkout)

	api.Post("/reports", auth, CreateReport)
	api.Get("/admin/reports", auth, middleware.RequireAdmin(), ListReports)
	api.Post("/admin/reports/:id/resolve", auth, middleware.RequireAdmin(), ResolveReport)

	api.Get("/dashboard/stats", auth, GetDashboardStats)
	return app
}

func (e *testEnv) token(u *model.User) string {
	e.t.Helper()
	token, err := jwt.GenerateToken(u.ID, u.Email, u.Username, u.IsAdmin)
	require.NoError(e.t, err)
	return token
}

// do sends a JSON request and decodes a JSON response body when present
func (e *testEnv) do(method, path string, body interface{}, token string) (*http.Response, map[string]interface{}) {
	e.t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(e.t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := e.app.Test(req, -1)
	require.NoError(e.t, err)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(e.t, err)
	resp.Body = io.NopCloser(bytes.NewReader(raw))

	out := map[string]interface{}{}
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(e.t, json.Unmarshal(raw, &out))
	}
	return resp, out
}

func mp4Bytes(payload string) []byte {
	return append([]byte{0x00, 0x00, 0x00, 0x18, 'f', 't', 'y', 'p', 'i', 's', 'o', 'm'}, []byte(payload)...)
}

// writeVideo puts a playable file for v into the video directory
func (e *testEnv) writeVideo(v *model.Video, payload string) []byte {
	e.t.Helper()
	require.NoError(e.t, os.MkdirAll(e.files.VideoDir(), 0o755))
	data := mp4Bytes(payload)
	require.NoError(e.t, os.WriteFile(filepath.Join(e.files.VideoDir(), v.FileName), data, 0o644))
	return data
}

func (e *testEnv) makePremium(u *model.User, plan subscription.PlanType) {
	e.t.Helper()
	_, err := e.subs.Activate(context.Background(), repository.Activation{UserID: u.ID, Plan: plan, Start: time.Now()})
	require.NoError(e.t, err)
}

var _ tasks.TaskEnqueuer = (*recordingQueue)(nil)
