package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/hibiken/asynq"
	"gorm.io/gorm"

	"vidshare_backend/internal/model"
	"vidshare_backend/pkg/email"
	"vidshare_backend/pkg/subscription"
	"vidshare_backend/pkg/tasks"
	"vidshare_backend/pkg/utils/cloudflare"
	"vidshare_backend/pkg/utils/storage"
	"vidshare_backend/pkg/utils/validation"
)

// ObjectStore is the subset of cloudflare.R2 the worker needs
type ObjectStore interface {
	Upload(ctx context.Context, key string, body io.Reader, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
}

type InvoiceMailer interface {
	SendInvoiceEmail(to string, data email.InvoiceData) error
}

type TaskHandler struct {
	db      *gorm.DB
	storage *storage.LocalStorage
	objects ObjectStore
	mailer  InvoiceMailer
}

type Option func(*TaskHandler)

func WithObjectStore(o ObjectStore) Option {
	return func(h *TaskHandler) { h.objects = o }
}

func WithMailer(m InvoiceMailer) Option {
	return func(h *TaskHandler) { h.mailer = m }
}

func NewTaskHandler(db *gorm.DB, files *storage.LocalStorage, opts ...Option) *TaskHandler {
	h := &TaskHandler{db: db, storage: files}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *TaskHandler) Mux() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(tasks.TypeProbeVideo, h.HandleProbeVideoTask)
	mux.HandleFunc(tasks.TypeSendInvoice, h.HandleSendInvoiceTask)
	mux.HandleFunc(tasks.TypeCleanupUploads, h.HandleCleanupUploadsTask)
	return mux
}

// HandleProbeVideoTask checks the uploaded file, records its size and marks
// the video ready. Files that fail the container check are marked failed and
// not retried.
func (h *TaskHandler) HandleProbeVideoTask(ctx context.Context, t *asynq.Task) error {
	var p tasks.ProbeVideoPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("failed to unmarshal task payload: %w", err)
	}

	var video model.Video
	if err := h.db.WithContext(ctx).Preload("User").First(&video, p.VideoID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("video %d not found: %w", p.VideoID, asynq.SkipRetry)
		}
		return fmt.Errorf("failed to load video: %w", err)
	}

	log.Printf("Probing video %d (%s)", video.ID, video.FileName)

	f, info, err := h.storage.OpenVerified(video.FileName)
	if err != nil {
		log.Printf("Video %d failed probe: %v", video.ID, err)
		if updErr := h.setStatus(ctx, video.ID, model.VideoStatusFailed, nil); updErr != nil {
			return updErr
		}
		return fmt.Errorf("probe video %d: %v: %w", video.ID, err, asynq.SkipRetry)
	}
	defer f.Close()

	contentType := validation.ContentTypeFor(video.FileName)

	updates := map[string]interface{}{
		"size":         info.Size(),
		"content_type": contentType,
	}

	if h.objects != nil {
		key := cloudflare.VideoKey(video.User.Username, video.FileName)
		if _, err := h.objects.Upload(ctx, key, f, contentType); err != nil {
			return fmt.Errorf("failed to upload video %d: %w", video.ID, err)
		}
		updates["object_key"] = key
	}

	if err := h.setStatus(ctx, video.ID, model.VideoStatusReady, updates); err != nil {
		return err
	}

	log.Printf("Video %d is ready (%d bytes)", video.ID, info.Size())
	return nil
}

func (h *TaskHandler) setStatus(ctx context.Context, videoID uint, status model.VideoStatus, updates map[string]interface{}) error {
	if updates == nil {
		updates = map[string]interface{}{}
	}
	updates["status"] = status
	if err := h.db.WithContext(ctx).Model(&model.Video{}).Where("id = ?", videoID).Updates(updates).Error; err != nil {
		return fmt.Errorf("failed to update video status: %w", err)
	}
	return nil
}

// HandleSendInvoiceTask emails the invoice for a paid subscription
func (h *TaskHandler) HandleSendInvoiceTask(ctx context.Context, t *asynq.Task) error {
	var p tasks.SendInvoicePayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("failed to unmarshal task payload: %w", err)
	}

	if h.mailer == nil {
		log.Printf("Email service not configured, skipping invoice for subscription %d", p.SubscriptionID)
		return nil
	}

	var sub model.UserSubscription
	if err := h.db.WithContext(ctx).Preload("User").First(&sub, p.SubscriptionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("subscription %d not found: %w", p.SubscriptionID, asynq.SkipRetry)
		}
		return fmt.Errorf("failed to load subscription: %w", err)
	}

	if err := h.mailer.SendInvoiceEmail(sub.User.Email, BuildInvoice(&sub)); err != nil {
		return fmt.Errorf("failed to send invoice: %w", err)
	}

	log.Printf("Invoice sent for subscription %d to %s", sub.ID, sub.User.Email)
	return nil
}

// BuildInvoice renders the invoice fields for a subscription row
func BuildInvoice(sub *model.UserSubscription) email.InvoiceData {
	plan, err := subscription.ParsePlan(sub.Plan)
	if err != nil {
		plan = subscription.FreePlan
	}
	limits := subscription.GetPlanLimits(plan)

	watch := "Unlimited"
	if limits.WatchTimeMinutes != subscription.Unlimited {
		watch = fmt.Sprintf("%d minutes per video", limits.WatchTimeMinutes)
	}

	return email.InvoiceData{
		InvoiceNumber: fmt.Sprintf("INV-%s-%06d", sub.StartDate.Format("20060102"), sub.ID),
		Name:          sub.User.DisplayName(),
		PlanName:      strings.ToLower(string(plan)),
		Price:         limits.Price,
		Currency:      "inr",
		PaidAt:        sub.StartDate,
		ValidUntil:    sub.EndDate,
		WatchLimit:    watch,
	}
}

// HandleCleanupUploadsTask removes files left behind by a deleted video
func (h *TaskHandler) HandleCleanupUploadsTask(ctx context.Context, t *asynq.Task) error {
	var p tasks.CleanupUploadsPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("failed to unmarshal task payload: %w", err)
	}

	if p.FileName != "" {
		if err := h.storage.Remove(p.FileName); err != nil && !errors.Is(err, storage.ErrFileNotFound) {
			return fmt.Errorf("failed to remove %s: %w", p.FileName, err)
		}
	}

	if h.objects != nil {
		for _, key := range []string{p.ObjectKey, p.ThumbnailKey} {
			if key == "" {
				continue
			}
			if err := h.objects.Delete(ctx, key); err != nil {
				return err
			}
		}
	}
	return nil
}
