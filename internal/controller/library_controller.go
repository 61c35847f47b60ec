package controller

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm/clause"

	"vidshare_backend/internal/model"
	"vidshare_backend/pkg/database"
	"vidshare_backend/pkg/utils/jwt"
)

func GetHistory(c *fiber.Ctx) error {
	claims := c.Locals("user").(*jwt.Claims)
	p := pagination(c)

	var entries []model.WatchHistory
	if err := database.GetDB().
		Where("user_id = ?", claims.UserID).
		Preload("Video.User").
		Order("watched_at DESC").
		Offset(p.Offset()).Limit(p.Limit).
		Find(&entries).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not fetch history",
		})
	}

	items := make([]fiber.Map, 0, len(entries))
	for i := range entries {
		// soft deleted videos do not preload
		if entries[i].Video.ID == 0 {
			continue
		}
		items = append(items, fiber.Map{
			"watched_at": entries[i].WatchedAt,
			"video":      videoResponse(&entries[i].Video),
		})
	}

	return c.JSON(fiber.Map{"history": items})
}

func ClearHistory(c *fiber.Ctx) error {
	claims := c.Locals("user").(*jwt.Claims)

	if err := database.GetDB().Where("user_id = ?", claims.UserID).
		Delete(&model.WatchHistory{}).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not clear history",
		})
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func DeleteHistoryEntry(c *fiber.Ctx) error {
	claims := c.Locals("user").(*jwt.Claims)
	videoID, ok := paramID(c, "videoId")
	if !ok {
		return badID(c)
	}

	res := database.GetDB().Where("user_id = ? AND video_id = ?", claims.UserID, videoID).
		Delete(&model.WatchHistory{})
	if res.Error != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not delete history entry",
		})
	}
	if res.RowsAffected == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "History entry not found",
		})
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func GetWatchLater(c *fiber.Ctx) error {
	claims := c.Locals("user").(*jwt.Claims)
	p := pagination(c)

	var entries []model.WatchLater
	if err := database.GetDB().
		Where("user_id = ?", claims.UserID).
		Preload("Video.User").
		Order("created_at DESC").
		Offset(p.Offset()).Limit(p.Limit).
		Find(&entries).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not fetch watch later list",
		})
	}

	items := make([]fiber.Map, 0, len(entries))
	for i := range entries {
		if entries[i].Video.ID == 0 {
			continue
		}
		items = append(items, fiber.Map{
			"added_at": entries[i].CreatedAt,
			"video":    videoResponse(&entries[i].Video),
		})
	}

	return c.JSON(fiber.Map{"watch_later": items})
}

// AddWatchLater is idempotent
func AddWatchLater(c *fiber.Ctx) error {
	claims := c.Locals("user").(*jwt.Claims)
	videoID, ok := paramID(c, "id")
	if !ok {
		return badID(c)
	}

	var count int64
	database.GetDB().Model(&model.Video{}).Where("id = ?", videoID).Count(&count)
	if count == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Video not found",
		})
	}

	entry := model.WatchLater{UserID: claims.UserID, VideoID: videoID}
	if err := database.GetDB().Clauses(clause.OnConflict{DoNothing: true}).
		Create(&entry).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not save to watch later",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Added to watch later",
	})
}

func RemoveWatchLater(c *fiber.Ctx) error {
	claims := c.Locals("user").(*jwt.Claims)
	videoID, ok := paramID(c, "id")
	if !ok {
		return badID(c)
	}

	if err := database.GetDB().Where("user_id = ? AND video_id = ?", claims.UserID, videoID).
		Delete(&model.WatchLater{}).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not remove from watch later",
		})
	}

	return c.SendStatus(fiber.StatusNoContent)
}
