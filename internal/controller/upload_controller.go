package controller

import (
	"encoding/json"
	"log"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"gorm.io/datatypes"

	"vidshare_backend/internal/model"
	"vidshare_backend/pkg/database"
	"vidshare_backend/pkg/tasks"
	"vidshare_backend/pkg/utils/cloudflare"
	"vidshare_backend/pkg/utils/image"
	"vidshare_backend/pkg/utils/jwt"
	"vidshare_backend/pkg/utils/validation"
)

const (
	MaxTitleLength = 100
	// ShortMaxSeconds is the longest clip accepted as a short
	ShortMaxSeconds = 60
)

func parseTags(raw string) datatypes.JSON {
	var tags []string
	for _, t := range strings.Split(raw, ",") {
		if t = strings.TrimSpace(strings.ToLower(t)); t != "" {
			tags = append(tags, t)
		}
	}
	if len(tags) == 0 {
		return nil
	}
	data, _ := json.Marshal(tags)
	return datatypes.JSON(data)
}

// UploadVideo stores a multipart video and queues it for probing
func UploadVideo(c *fiber.Ctx) error {
	claims := c.Locals("user").(*jwt.Claims)

	title := strings.TrimSpace(c.FormValue("title"))
	if title == "" || len(title) > MaxTitleLength {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Title is required and must be at most 100 characters",
		})
	}

	file, err := c.FormFile("video")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "No file uploaded",
		})
	}
	if err := validation.ValidateVideo(file); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	src, err := file.Open()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Could not read upload",
		})
	}
	err = validation.SniffVideo(src, file.Filename)
	src.Close()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	duration, _ := strconv.Atoi(c.FormValue("duration"))
	isShort := c.FormValue("is_short") == "true"
	if isShort && duration > ShortMaxSeconds {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Shorts must be 60 seconds or less",
		})
	}

	fileName := videoStorage.NewVideoName(file.Filename)
	if _, err := videoStorage.Save(file, fileName); err != nil {
		log.Printf("Could not save upload: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not save file",
		})
	}

	video := model.Video{
		UserID:      claims.UserID,
		Title:       title,
		Description: c.FormValue("description"),
		FileName:    fileName,
		ContentType: validation.ContentTypeFor(file.Filename),
		IsShort:     isShort,
		Duration:    duration,
		Size:        file.Size,
		Status:      model.VideoStatusProcessing,
		Tags:        parseTags(c.FormValue("tags")),
	}

	if err := database.GetDB().Create(&video).Error; err != nil {
		videoStorage.Remove(fileName)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not save video",
		})
	}

	enqueue(tasks.NewProbeVideoTask(video.ID))

	// the inline queue may already have finished probing
	database.GetDB().Preload("User").First(&video, video.ID)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Video uploaded successfully",
		"video":   videoResponse(&video),
	})
}

// UploadThumbnail replaces a video's thumbnail with a webp rendition
func UploadThumbnail(c *fiber.Ctx) error {
	claims := c.Locals("user").(*jwt.Claims)
	video := c.Locals("video").(*model.Video)

	if objectStore == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "Image storage is not configured",
		})
	}

	file, err := c.FormFile("thumbnail")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "No file uploaded",
		})
	}
	if err := validation.ValidateThumbnail(file); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	buf, contentType, err := image.ProcessThumbnail(file)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Could not process image",
		})
	}

	key := cloudflare.ThumbnailKey(claims.Username, video.Slug, ".webp")
	url, err := objectStore.Upload(c.UserContext(), key, buf, contentType)
	if err != nil {
		log.Printf("Thumbnail upload failed for video %d: %v", video.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not upload thumbnail",
		})
	}

	if video.ThumbnailURL != "" {
		if err := objectStore.Delete(c.UserContext(), objectStore.KeyFromURL(video.ThumbnailURL)); err != nil {
			log.Printf("Could not delete old thumbnail: %v", err)
		}
	}

	if err := database.GetDB().Model(video).Update("thumbnail_url", url).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not save thumbnail",
		})
	}

	return c.JSON(fiber.Map{
		"message":       "Thumbnail uploaded successfully",
		"thumbnail_url": url,
	})
}
