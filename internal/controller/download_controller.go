package controller

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"time"

	"github.com/gofiber/fiber/v2"

	"vidshare_backend/internal/model"
	"vidshare_backend/internal/repository"
	"vidshare_backend/pkg/database"
	"vidshare_backend/pkg/subscription"
	"vidshare_backend/pkg/utils/cloudflare"
	"vidshare_backend/pkg/utils/jwt"
	"vidshare_backend/pkg/utils/storage"
	"vidshare_backend/pkg/utils/validation"
)

// Presigner serves downloads of videos mirrored to object storage
type Presigner interface {
	Stat(ctx context.Context, key string) (int64, error)
	PresignGet(ctx context.Context, key, fileName string, ttl time.Duration) (string, error)
}

var (
	downloadGate *subscription.Gate
	downloadRepo *repository.DownloadRepository
	presigner    Presigner
	presignTTL   = 15 * time.Minute
)

func InitDownloadController(gate *subscription.Gate, downloads *repository.DownloadRepository, p Presigner, ttl time.Duration) {
	downloadGate = gate
	downloadRepo = downloads
	presigner = p
	if ttl > 0 {
		presignTTL = ttl
	}
}

type DownloadInput struct {
	Quality string `json:"quality"`
}

// gateError maps gate denials to responses; nil means err was not a denial
func gateError(c *fiber.Ctx, err error, e subscription.Eligibility) error {
	switch {
	case errors.Is(err, subscription.ErrUserNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "User not found",
		})
	case errors.Is(err, subscription.ErrInvalidQuality):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid quality",
		})
	case errors.Is(err, subscription.ErrQualityNotAllowed):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error":        "This quality requires a premium plan",
			"needsPremium": true,
			"eligibility":  e,
		})
	case errors.Is(err, subscription.ErrQuotaExceeded):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error":        "Daily download limit reached. Upgrade to premium for unlimited downloads",
			"needsPremium": true,
			"eligibility":  e,
		})
	}
	return nil
}

// GetDownloadEligibility reports whether the caller can download now
func GetDownloadEligibility(c *fiber.Ctx) error {
	claims := c.Locals("user").(*jwt.Claims)

	e, err := downloadGate.Check(c.UserContext(), claims.UserID)
	if err != nil {
		if resp := gateError(c, err, e); resp != nil {
			return resp
		}
		log.Printf("Eligibility check failed for user %d: %v", claims.UserID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not check download eligibility",
		})
	}

	return c.JSON(e)
}

// DownloadVideo authorizes a download, verifies the file and records it
func DownloadVideo(c *fiber.Ctx) error {
	claims := c.Locals("user").(*jwt.Claims)
	id, ok := paramID(c, "id")
	if !ok {
		return badID(c)
	}

	input := new(DownloadInput)
	if len(c.Body()) > 0 {
		if err := c.BodyParser(input); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid input",
			})
		}
	}
	if input.Quality == "" {
		input.Quality = c.Query("quality", string(subscription.Quality480p))
	}

	quality, err := subscription.ParseQuality(input.Quality)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid quality",
		})
	}

	ctx := c.UserContext()
	if e, err := downloadGate.Authorize(ctx, claims.UserID, quality); err != nil {
		if resp := gateError(c, err, e); resp != nil {
			return resp
		}
		log.Printf("Authorize failed for user %d: %v", claims.UserID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not check download eligibility",
		})
	}

	var video model.Video
	if err := database.GetDB().First(&video, id).Error; err != nil || video.Status == model.VideoStatusRemoved {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Video not found",
		})
	}

	// the mirrored object passed the signature check before upload, so only
	// its presence and size are checked here
	var size int64
	if video.ObjectKey != "" && presigner != nil {
		size, err = presigner.Stat(ctx, video.ObjectKey)
		if err == nil && size < validation.SignatureLength {
			err = validation.ErrHeaderTooShort
		}
		if err != nil {
			return videoFileError(c, video.ID, err)
		}
	} else {
		f, info, err := videoStorage.OpenVerified(video.FileName)
		if err != nil {
			return videoFileError(c, video.ID, err)
		}
		f.Close()
		size = info.Size()
	}

	d, err := downloadGate.RecordDownload(ctx, claims.UserID, video.ID, quality, size)
	if err != nil {
		if resp := gateError(c, err, subscription.Eligibility{}); resp != nil {
			return resp
		}
		log.Printf("Could not record download for user %d: %v", claims.UserID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not record download",
		})
	}

	eligibility, err := downloadGate.Check(ctx, claims.UserID)
	if err != nil {
		log.Printf("Eligibility refresh failed for user %d: %v", claims.UserID, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"downloadUrl": fmt.Sprintf("/api/downloads/%d/file", d.ID),
		"record": fiber.Map{
			"id":         d.ID,
			"video_id":   d.VideoID,
			"quality":    d.Quality,
			"file_size":  d.FileSize,
			"created_at": d.CreatedAt,
			"expires_at": d.ExpiresAt,
		},
		"eligibility": eligibility,
	})
}

func videoFileError(c *fiber.Ctx, videoID uint, err error) error {
	if errors.Is(err, storage.ErrFileNotFound) || errors.Is(err, storage.ErrInvalidName) ||
		errors.Is(err, cloudflare.ErrObjectNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Video file not found",
		})
	}
	if validation.IsBadContainer(err) {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error": "Video file is not a valid video",
		})
	}
	log.Printf("Could not open video %d: %v", videoID, err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": "Could not read video file",
	})
}

func ListDownloads(c *fiber.Ctx) error {
	claims := c.Locals("user").(*jwt.Claims)

	records, err := downloadRepo.ListByUser(c.UserContext(), claims.UserID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not fetch downloads",
		})
	}

	now := time.Now()
	items := make([]fiber.Map, 0, len(records))
	for _, r := range records {
		items = append(items, fiber.Map{
			"id":         r.ID,
			"video_id":   r.VideoID,
			"title":      r.Video.Title,
			"quality":    r.Quality,
			"file_size":  r.FileSize,
			"created_at": r.CreatedAt,
			"expires_at": r.ExpiresAt,
			"expired":    now.After(r.ExpiresAt),
		})
	}

	return c.JSON(fiber.Map{"downloads": items})
}

func downloadFileName(v *model.Video, quality string) string {
	base := v.Slug
	if base == "" {
		base = fmt.Sprintf("video-%d", v.ID)
	}
	return fmt.Sprintf("%s-%s%s", base, quality, filepath.Ext(v.FileName))
}

// DownloadFile serves a recorded download to its owner until it expires
func DownloadFile(c *fiber.Ctx) error {
	claims := c.Locals("user").(*jwt.Claims)
	id, ok := paramID(c, "recordId")
	if !ok {
		return badID(c)
	}

	record, err := downloadRepo.FindForUser(c.UserContext(), id, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrDownloadNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Download not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not fetch download",
		})
	}

	if time.Now().After(record.ExpiresAt) {
		return c.Status(fiber.StatusGone).JSON(fiber.Map{
			"error": "Download link expired",
		})
	}
	if record.Video.ID == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Video not found",
		})
	}

	name := downloadFileName(&record.Video, record.Quality)

	if record.Video.ObjectKey != "" && presigner != nil {
		url, err := presigner.PresignGet(c.UserContext(), record.Video.ObjectKey, name, presignTTL)
		if err == nil {
			return c.Redirect(url, fiber.StatusFound)
		}
		log.Printf("Presign failed for %s, serving local copy: %v", record.Video.ObjectKey, err)
	}

	f, info, err := videoStorage.OpenVerified(record.Video.FileName)
	if err != nil {
		return videoFileError(c, record.Video.ID, err)
	}

	c.Attachment(name)
	c.Set(fiber.HeaderContentType, validation.ContentTypeFor(record.Video.FileName))
	return c.SendStream(f, int(info.Size()))
}
