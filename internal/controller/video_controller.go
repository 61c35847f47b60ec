package controller

import (
	"errors"
	"log"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/hibiken/asynq"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"vidshare_backend/internal/middleware"
	"vidshare_backend/internal/model"
	"vidshare_backend/pkg/database"
	"vidshare_backend/pkg/subscription"
	"vidshare_backend/pkg/tasks"
	"vidshare_backend/pkg/utils/storage"
	"vidshare_backend/pkg/utils/validation"
)

var (
	videoStorage *storage.LocalStorage
	taskQueue    tasks.TaskEnqueuer
)

func InitVideoController(files *storage.LocalStorage, queue tasks.TaskEnqueuer) {
	videoStorage = files
	taskQueue = queue
}

// enqueue logs failures; background work never fails the request
func enqueue(task *asynq.Task, err error) {
	if err != nil {
		log.Printf("Could not build task: %v", err)
		return
	}
	if taskQueue == nil {
		log.Printf("No task queue configured, dropping %s", task.Type())
		return
	}
	if _, err := taskQueue.Enqueue(task); err != nil {
		log.Printf("Could not enqueue %s: %v", task.Type(), err)
	}
}

func videoResponse(v *model.Video) fiber.Map {
	return fiber.Map{
		"id":            v.ID,
		"title":         v.Title,
		"slug":          v.Slug,
		"description":   v.Description,
		"thumbnail_url": v.ThumbnailURL,
		"is_short":      v.IsShort,
		"duration":      v.Duration,
		"views":         v.Views,
		"likes":         v.Likes,
		"dislikes":      v.Dislikes,
		"status":        v.Status,
		"tags":          v.Tags,
		"created_at":    v.CreatedAt,
		"channel":       v.User.GetPublicProfile(),
	}
}

func ListVideos(c *fiber.Ctx) error {
	p := pagination(c)

	query := database.GetDB().Model(&model.Video{}).Where("status = ?", model.VideoStatusReady)
	if shorts := c.Query("shorts"); shorts != "" {
		query = query.Where("is_short = ?", shorts == "true")
	}
	if q := strings.TrimSpace(c.Query("q")); q != "" {
		like := "%" + strings.ToLower(q) + "%"
		query = query.Where("LOWER(title) LIKE ? OR LOWER(description) LIKE ?", like, like)
	}

	var total int64
	query.Count(&total)

	var videos []model.Video
	if err := query.Preload("User").
		Order("created_at DESC").
		Offset(p.Offset()).Limit(p.Limit).
		Find(&videos).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not fetch videos",
		})
	}

	items := make([]fiber.Map, 0, len(videos))
	for i := range videos {
		items = append(items, videoResponse(&videos[i]))
	}

	return c.JSON(fiber.Map{
		"videos": items,
		"total":  total,
		"page":   p.Page,
		"limit":  p.Limit,
	})
}

func findVideo(c *fiber.Ctx) (*model.Video, error) {
	id, ok := paramID(c, "id")
	if !ok {
		return nil, badID(c)
	}

	var video model.Video
	if err := database.GetDB().Preload("User").First(&video, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Video not found",
			})
		}
		return nil, c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not fetch video",
		})
	}

	if video.Status == model.VideoStatusRemoved {
		return nil, c.Status(fiber.StatusGone).JSON(fiber.Map{
			"error": "Video was removed",
		})
	}
	return &video, nil
}

// GetVideo returns a video and counts a view
func GetVideo(c *fiber.Ctx) error {
	video, err := findVideo(c)
	if video == nil {
		return err
	}

	database.GetDB().Model(&model.Video{}).Where("id = ?", video.ID).
		UpdateColumn("views", gorm.Expr("views + 1"))
	video.Views++

	resp := videoResponse(video)
	if claims := claimsFrom(c); claims != nil {
		var reaction model.Reaction
		if err := database.GetDB().
			Where("user_id = ? AND target_type = ? AND target_id = ?", claims.UserID, model.TargetVideo, video.ID).
			First(&reaction).Error; err == nil {
			resp["my_reaction"] = reaction.Kind
		}

		var later int64
		database.GetDB().Model(&model.WatchLater{}).
			Where("user_id = ? AND video_id = ?", claims.UserID, video.ID).Count(&later)
		resp["in_watch_later"] = later > 0
	}

	return c.JSON(fiber.Map{"video": resp})
}

// StreamVideo serves the file with Range support. The watch time limit
// header is set by middleware.WatchTimeLimit.
func StreamVideo(c *fiber.Ctx) error {
	video, err := findVideo(c)
	if video == nil {
		return err
	}

	if !video.IsPlayable() {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "Video is not playable",
		})
	}

	f, _, err := videoStorage.OpenVerified(video.FileName)
	if err != nil {
		if errors.Is(err, storage.ErrFileNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Video file not found",
			})
		}
		log.Printf("Could not open video %d: %v", video.ID, err)
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error": "Video file is not a valid video",
		})
	}
	path := f.Name()
	f.Close()

	c.Set(fiber.HeaderContentType, validation.ContentTypeFor(video.FileName))
	c.Set(fiber.HeaderAcceptRanges, "bytes")
	return c.SendFile(path)
}

type VideoUpdateInput struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Tags        *string `json:"tags"`
}

func UpdateVideo(c *fiber.Ctx) error {
	video := c.Locals("video").(*model.Video)

	input := new(VideoUpdateInput)
	if err := c.BodyParser(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid input",
		})
	}

	updates := map[string]interface{}{}
	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" || len(title) > MaxTitleLength {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Title is required and must be at most 100 characters",
			})
		}
		updates["title"] = title
	}
	if input.Description != nil {
		updates["description"] = *input.Description
	}
	if input.Tags != nil {
		updates["tags"] = parseTags(*input.Tags)
	}

	if len(updates) > 0 {
		if err := database.GetDB().Model(video).Updates(updates).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Could not update video",
			})
		}
	}

	return c.JSON(fiber.Map{
		"message": "Video updated successfully",
		"video":   videoResponse(video),
	})
}

// DeleteVideo soft deletes the row and queues file cleanup
func DeleteVideo(c *fiber.Ctx) error {
	video := c.Locals("video").(*model.Video)

	if err := database.GetDB().Delete(video).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not delete video",
		})
	}

	payload := tasks.CleanupUploadsPayload{
		FileName:  video.FileName,
		ObjectKey: video.ObjectKey,
	}
	if objectStore != nil && video.ThumbnailURL != "" {
		payload.ThumbnailKey = objectStore.KeyFromURL(video.ThumbnailURL)
	}
	enqueue(tasks.NewCleanupUploadsTask(payload))

	return c.SendStatus(fiber.StatusNoContent)
}

// RecordView bumps the caller's watch history entry for the video
func RecordView(c *fiber.Ctx) error {
	claims := claimsFrom(c)
	id, ok := paramID(c, "id")
	if !ok {
		return badID(c)
	}

	var count int64
	database.GetDB().Model(&model.Video{}).Where("id = ?", id).Count(&count)
	if count == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Video not found",
		})
	}

	if claims == nil {
		return c.SendStatus(fiber.StatusNoContent)
	}

	entry := model.WatchHistory{UserID: claims.UserID, VideoID: id, WatchedAt: time.Now()}
	err := database.GetDB().Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "video_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"watched_at"}),
	}).Create(&entry).Error
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not record view",
		})
	}

	return c.JSON(fiber.Map{
		"message":        "View recorded",
		"watchTimeLimit": subscription.Limit(subscription.GetPlanLimits(middleware.PlanFrom(c)).WatchTimeMinutes),
	})
}

// ListChannelVideos lists ready videos of one channel
func ListChannelVideos(c *fiber.Ctx) error {
	var owner model.User
	if err := findChannel(c.Params("id"), &owner); err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Channel not found",
		})
	}

	p := pagination(c)
	var videos []model.Video
	database.GetDB().
		Where("user_id = ? AND status = ?", owner.ID, model.VideoStatusReady).
		Order("created_at DESC").
		Offset(p.Offset()).Limit(p.Limit).
		Find(&videos)

	items := make([]fiber.Map, 0, len(videos))
	for i := range videos {
		videos[i].User = owner
		items = append(items, videoResponse(&videos[i]))
	}

	return c.JSON(fiber.Map{"videos": items})
}
