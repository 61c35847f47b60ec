package tasks

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	TypeProbeVideo     = "video:probe"
	TypeSendInvoice    = "email:invoice"
	TypeCleanupUploads = "video:cleanup"
)

type ProbeVideoPayload struct {
	VideoID uint
}

func NewProbeVideoTask(videoID uint) (*asynq.Task, error) {
	payload, err := json.Marshal(ProbeVideoPayload{VideoID: videoID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeProbeVideo, payload, asynq.MaxRetry(3)), nil
}

type SendInvoicePayload struct {
	SubscriptionID uint
}

func NewSendInvoiceTask(subscriptionID uint) (*asynq.Task, error) {
	payload, err := json.Marshal(SendInvoicePayload{SubscriptionID: subscriptionID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeSendInvoice, payload, asynq.MaxRetry(5)), nil
}

type CleanupUploadsPayload struct {
	FileName     string
	ObjectKey    string
	ThumbnailKey string
}

// NewCleanupUploadsTask removes a deleted video's files from local and object storage
func NewCleanupUploadsTask(p CleanupUploadsPayload) (*asynq.Task, error) {
	payload, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeCleanupUploads, payload), nil
}
