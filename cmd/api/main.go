package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"vidshare_backend/internal/controller"
	"vidshare_backend/internal/middleware"
	"vidshare_backend/internal/model"
	"vidshare_backend/internal/repository"
	"vidshare_backend/internal/worker"
	"vidshare_backend/pkg/config"
	"vidshare_backend/pkg/cron"
	"vidshare_backend/pkg/database"
	"vidshare_backend/pkg/email"
	"vidshare_backend/pkg/otp"
	"vidshare_backend/pkg/seed"
	"vidshare_backend/pkg/subscription"
	"vidshare_backend/pkg/tasks"
	"vidshare_backend/pkg/translate"
	"vidshare_backend/pkg/utils/cloudflare"
	"vidshare_backend/pkg/utils/jwt"
	"vidshare_backend/pkg/utils/storage"
)

type routeDeps struct {
	gate            *subscription.Gate
	otpLimiter      *middleware.RateLimiter
	downloadLimiter *middleware.RateLimiter
}

func setupRoutes(app *fiber.App, deps routeDeps) {
	api := app.Group("/api")
	plan := middleware.ResolvePlan(deps.gate)

	// Auth Routes
	auth := api.Group("/auth")
	auth.Post("/register", controller.Register)
	auth.Post("/login", controller.Login)
	auth.Post("/otp/request", deps.otpLimiter.Handler(), controller.RequestOTP)
	auth.Post("/otp/verify", deps.otpLimiter.Handler(), controller.VerifyOTP)

	api.Get("/theme", middleware.OptionalAuth(), controller.GetTheme)
	api.Get("/states", controller.GetStates)
	api.Get("/plans", controller.ListPlans)

	// Public video routes
	videos := api.Group("/videos", middleware.OptionalAuth())
	videos.Get("/", controller.ListVideos)
	videos.Get("/:id", controller.GetVideo)
	videos.Get("/:id/stream", plan, middleware.WatchTimeLimit(), middleware.RequireQuality(), controller.StreamVideo)
	videos.Post("/:id/view", plan, controller.RecordView)
	videos.Get("/:id/comments", controller.ListComments)

	channels := api.Group("/channels", middleware.OptionalAuth())
	channels.Get("/:id", controller.GetChannel)
	channels.Get("/:id/videos", controller.ListChannelVideos)

	api.Post("/comments/:id/translate", controller.TranslateComment)

	// Stripe webhook
	api.Post("/webhook/stripe", controller.HandleStripeWebhook)

	// Protected Routes
	protected := api.Group("/", middleware.AuthMiddleware())
	protected.Get("/me", controller.GetMe)

	myVideos := protected.Group("/videos")
	myVideos.Post("/", controller.UploadVideo)
	myVideos.Put("/:id", middleware.CheckVideoOwnership(), controller.UpdateVideo)
	myVideos.Delete("/:id", middleware.CheckVideoOwnership(), controller.DeleteVideo)
	myVideos.Post("/:id/thumbnail", middleware.CheckVideoOwnership(), controller.UploadThumbnail)
	myVideos.Post("/:id/like", controller.React(model.TargetVideo, model.ReactionLike))
	myVideos.Post("/:id/dislike", controller.React(model.TargetVideo, model.ReactionDislike))
	myVideos.Post("/:id/comments", controller.CreateComment)
	myVideos.Post("/:id/watch-later", controller.AddWatchLater)
	myVideos.Delete("/:id/watch-later", controller.RemoveWatchLater)
	myVideos.Post("/:id/download", deps.downloadLimiter.Handler(), controller.DownloadVideo)

	comments := protected.Group("/comments")
	comments.Put("/:id", middleware.CheckCommentOwnership(), controller.UpdateComment)
	comments.Delete("/:id", middleware.CheckCommentOwnership(), controller.DeleteComment)
	comments.Post("/:id/like", controller.React(model.TargetComment, model.ReactionLike))
	comments.Post("/:id/dislike", controller.React(model.TargetComment, model.ReactionDislike))

	history := protected.Group("/history")
	history.Get("/", controller.GetHistory)
	history.Delete("/", controller.ClearHistory)
	history.Delete("/:videoId", controller.DeleteHistoryEntry)

	protected.Get("/watch-later", controller.GetWatchLater)

	subscribe := protected.Group("/channels")
	subscribe.Post("/:id/subscribe", controller.SubscribeChannel)
	subscribe.Delete("/:id/subscribe", controller.UnsubscribeChannel)
	protected.Get("/subscriptions/channels", controller.GetSubscriptionFeed)

	downloads := protected.Group("/downloads")
	downloads.Get("/", controller.ListDownloads)
	downloads.Get("/eligibility", controller.GetDownloadEligibility)
	downloads.Get("/:recordId/file", deps.downloadLimiter.Handler(), controller.DownloadFile)

	plans := protected.Group("/plans")
	plans.Get("/my", controller.GetMyPlan)
	plans.Post("/checkout", controller.Checkout)
	plans.Post("/cancel", controller.CancelSubscription)

	protected.Post("/reports", controller.CreateReport)

	// Dashboard routes
	protected.Get("/dashboard/stats", controller.GetDashboardStats)

	// Settings routes
	settings := protected.Group("/settings")
	settings.Get("/profile", controller.GetProfile)
	settings.Put("/profile", controller.UpdateProfile)
	settings.Post("/avatar", controller.UploadAvatar)

	// Admin routes
	admin := protected.Group("/admin", middleware.RequireAdmin())
	admin.Get("/stats", controller.GetAdminStats)
	admin.Get("/reports", controller.ListReports)
	admin.Post("/reports/:id/resolve", controller.ResolveReport)
}

func connectRedis(cfg config.RedisConfig) *redis.Client {
	if cfg.Addr == "" {
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Printf("Redis unavailable at %s, using in-memory stores: %v", cfg.Addr, err)
		client.Close()
		return nil
	}

	log.Println("Redis connected successfully!")
	return client
}

func main() {
	cfg := config.Load()
	jwt.SetSecret(cfg.JWT.Secret)

	database.InitDB(cfg.Database)
	if err := database.MigrateDatabase(model.All()...); err != nil {
		log.Printf("Migration warning: %v", err)
	}

	prices := seed.PriceIDs{}
	for _, p := range subscription.PaidPlans {
		prices[p] = os.Getenv("STRIPE_PRICE_" + string(p))
	}
	if err := seed.SeedPlans(database.GetDB(), prices); err != nil {
		log.Printf("Could not seed plans: %v", err)
	}

	if err := email.InitEmailService(cfg.Email.APIKey, email.WithAPIURL(cfg.Email.APIURL), email.WithFrom(cfg.Email.From)); err != nil {
		log.Printf("Email service disabled: %v", err)
	}

	db := database.GetDB()
	subs := repository.NewSubscriptionRepository(db)
	downloads := repository.NewDownloadRepository(db)
	gate := subscription.NewGate(repository.NewGateStore(db), subscription.WithLocation(cfg.Gate.Location()))
	files := storage.NewLocalStorage(cfg.Storage.UploadDir)

	var (
		objects    controller.ObjectStore
		presign    controller.Presigner
		workerOpts []worker.Option
	)
	r2, err := cloudflare.NewR2(context.Background(), cloudflare.R2Config{
		AccountID: cfg.Storage.R2AccountID,
		AccessKey: cfg.Storage.R2AccessKey,
		SecretKey: cfg.Storage.R2SecretKey,
		Bucket:    cfg.Storage.R2Bucket,
		PublicURL: cfg.Storage.R2PublicURL,
	})
	if err != nil {
		log.Printf("Object storage disabled: %v", err)
	} else {
		objects = r2
		presign = r2
		workerOpts = append(workerOpts, worker.WithObjectStore(r2))
	}

	var expiryMailer cron.ExpiryMailer
	otpSenders := map[otp.Channel]otp.Sender{
		otp.ChannelEmail: otp.LogSender{Channel: otp.ChannelEmail},
		otp.ChannelSMS:   otp.LogSender{Channel: otp.ChannelSMS},
	}
	if email.GlobalEmailService != nil {
		otpSenders[otp.ChannelEmail] = &otp.EmailSender{Mailer: email.GlobalEmailService, TTL: otp.DefaultTTL}
		workerOpts = append(workerOpts, worker.WithMailer(email.GlobalEmailService))
		expiryMailer = email.GlobalEmailService
	}
	if cfg.SMS.APIURL != "" {
		otpSenders[otp.ChannelSMS] = otp.NewSMSSender(cfg.SMS.APIURL, cfg.SMS.APIKey, cfg.SMS.From)
	}

	rdb := connectRedis(cfg.Redis)

	var (
		otpStore   otp.Store
		sweepJobs  []cron.SweepJob
		queue      tasks.TaskEnqueuer
		taskClient *asynq.Client
	)
	if rdb != nil {
		otpStore = otp.NewRedisStore(rdb)
		taskClient = asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		queue = taskClient
	} else {
		mem := otp.NewMemoryStore(time.Now)
		otpStore = mem
		sweepJobs = append(sweepJobs, cron.SweepJob{Name: "otp", Sweep: mem.Sweep})
		queue = worker.NewInline(worker.NewTaskHandler(db, files, workerOpts...))
		log.Println("No task queue configured, running background tasks inline")
	}

	otpLimiter := middleware.NewRateLimiter(cfg.Server.RateLimit/10, 5)
	downloadLimiter := middleware.NewRateLimiter(cfg.Server.RateLimit, cfg.Server.RateBurst)
	sweepJobs = append(sweepJobs,
		cron.SweepJob{Name: "otp rate limiter", Sweep: otpLimiter.Cleanup},
		cron.SweepJob{Name: "download rate limiter", Sweep: downloadLimiter.Cleanup},
	)

	controller.InitAuthController(otp.NewService(otpStore, otpSenders), subs, gate)
	controller.InitSettingsController(objects)
	controller.InitVideoController(files, queue)
	controller.InitReactionController(repository.NewReactionRepository(db))
	var libreMirror translate.Provider
	if cfg.Translate.MirrorURL != "" {
		libreMirror = translate.NewLibreMirror(cfg.Translate.MirrorURL)
	}
	translator := translate.NewChain(
		translate.NewLibreTranslate(cfg.Translate.LibreURL, cfg.Translate.LibreAPIKey),
		libreMirror,
		translate.NewMyMemory(cfg.Translate.MyMemoryURL, cfg.Email.From),
		translate.NewLingva(cfg.Translate.LingvaURL),
		translate.NewGoogleWeb(cfg.Translate.GoogleURL),
	)
	log.Printf("Translation providers: %v", translator.Providers())
	controller.InitCommentController(translator)
	controller.InitSubscriptionController(subs, gate, controller.StripeSettings{
		SecretKey:     cfg.Stripe.SecretKey,
		WebhookSecret: cfg.Stripe.WebhookSecret,
		FrontendURL:   cfg.Server.FrontendURL,
	})
	controller.InitDownloadController(gate, downloads, presign, cfg.Storage.PresignExpiry)

	sweeper, err := cron.InitSweepCron("@every 1m", sweepJobs...)
	if err != nil {
		log.Fatal("Could not start sweep cron:", err)
	}
	expiryCron := cron.InitSubscriptionExpiryCron(subs, expiryMailer)
	cleanupCron := cron.InitDownloadCleanupCron(downloads, gate)

	app := fiber.New(fiber.Config{
		BodyLimit: 512 * 1024 * 1024,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:  cfg.Server.FrontendURL,
		ExposeHeaders: middleware.WatchTimeHeader + ", Content-Disposition",
	}))

	setupRoutes(app, routeDeps{
		gate:            gate,
		otpLimiter:      otpLimiter,
		downloadLimiter: downloadLimiter,
	})

	go func() {
		log.Printf("Server is running on port %s", cfg.Server.Port)
		if err := app.Listen(":" + cfg.Server.Port); err != nil {
			log.Fatal(err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down...")
	for _, c := range []interface{ Stop() context.Context }{sweeper, expiryCron, cleanupCron} {
		<-c.Stop().Done()
	}
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
	if taskClient != nil {
		taskClient.Close()
	}
	if rdb != nil {
		rdb.Close()
	}
}
