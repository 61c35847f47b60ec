package controller

import (
	"context"
	"fmt"
	"io"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gosimple/slug"

	"vidshare_backend/internal/model"
	"vidshare_backend/pkg/database"
	"vidshare_backend/pkg/utils/cloudflare"
	"vidshare_backend/pkg/utils/image"
	"vidshare_backend/pkg/utils/jwt"
	"vidshare_backend/pkg/utils/location"
	"vidshare_backend/pkg/utils/validation"
)

// ObjectStore is the subset of cloudflare.R2 the controllers use for images
type ObjectStore interface {
	Upload(ctx context.Context, key string, body io.Reader, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
	KeyFromURL(url string) string
}

var objectStore ObjectStore

func InitSettingsController(objects ObjectStore) {
	objectStore = objects
}

type ProfileUpdateInput struct {
	Name               *string `json:"name"`
	ChannelName        *string `json:"channel_name"`
	ChannelSlug        *string `json:"channel_slug"`
	ChannelDescription *string `json:"channel_description"`
	PhoneNumber        *string `json:"phone_number"`
	City               *string `json:"city"`
	State              *string `json:"state"`
}

func UpdateProfile(c *fiber.Ctx) error {
	claims := c.Locals("user").(*jwt.Claims)
	input := new(ProfileUpdateInput)

	if err := c.BodyParser(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid input",
		})
	}

	var user model.User
	if err := database.GetDB().First(&user, claims.UserID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "User not found",
		})
	}

	updates := map[string]interface{}{}
	if input.Name != nil {
		updates["name"] = *input.Name
	}
	if input.ChannelName != nil {
		updates["channel_name"] = *input.ChannelName
	}
	if input.ChannelDescription != nil {
		updates["channel_description"] = *input.ChannelDescription
	}
	if input.PhoneNumber != nil {
		updates["phone_number"] = *input.PhoneNumber
	}
	if input.City != nil {
		updates["city"] = *input.City
	}
	if input.State != nil {
		state, ok := location.Normalize(*input.State)
		if !ok && state != "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Unknown state",
			})
		}
		updates["state"] = state
	}
	if input.ChannelSlug != nil {
		channelSlug := slug.Make(*input.ChannelSlug)
		if channelSlug == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid channel slug",
			})
		}
		var taken int64
		database.GetDB().Model(&model.User{}).
			Where("channel_slug = ? AND id <> ?", channelSlug, user.ID).
			Count(&taken)
		if taken > 0 {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": "Channel slug already in use",
			})
		}
		updates["channel_slug"] = channelSlug
	}

	if len(updates) > 0 {
		if err := database.GetDB().Model(&user).Updates(updates).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Could not update profile",
			})
		}
	}

	return c.JSON(fiber.Map{
		"message": "Profile updated successfully",
		"user":    user.GetPublicProfile(),
	})
}

func GetProfile(c *fiber.Ctx) error {
	claims := c.Locals("user").(*jwt.Claims)

	var user model.User
	if err := database.GetDB().First(&user, claims.UserID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "User not found",
		})
	}

	return c.JSON(user.GetPublicProfile())
}

func UploadAvatar(c *fiber.Ctx) error {
	claims := c.Locals("user").(*jwt.Claims)

	if objectStore == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "Image storage is not configured",
		})
	}

	var user model.User
	if err := database.GetDB().First(&user, claims.UserID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "User not found",
		})
	}

	file, err := c.FormFile("avatar")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "No avatar image provided",
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

	key := cloudflare.ThumbnailKey(user.Username, "avatar", ".webp")
	avatarURL, err := objectStore.Upload(c.UserContext(), key, buf, contentType)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": fmt.Sprintf("Could not upload avatar: %v", err),
		})
	}

	if user.Avatar != "" {
		if err := objectStore.Delete(c.UserContext(), objectStore.KeyFromURL(user.Avatar)); err != nil {
			log.Printf("Error deleting old avatar: %v", err)
		}
	}

	if err := database.GetDB().Model(&user).Update("avatar", avatarURL).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not update avatar",
		})
	}

	return c.JSON(fiber.Map{
		"message": "Avatar uploaded successfully",
		"avatar":  avatarURL,
	})
}

// GetStates lists Indian states with their region flag
func GetStates(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"states": location.GetStates(),
	})
}
