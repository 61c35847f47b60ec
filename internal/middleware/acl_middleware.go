package middleware

import (
	"vidshare_backend/internal/model"
	"vidshare_backend/pkg/database"

	"github.com/gofiber/fiber/v2"
)

// CheckVideoOwnership allows the request only for the uploader of :id (or an admin)
func CheckVideoOwnership() fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, ok := CurrentUser(c)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Unauthorized",
			})
		}

		var video model.Video
		if err := database.DB.First(&video, c.Params("id")).Error; err != nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Video not found",
			})
		}

		if video.UserID != claims.UserID && !claims.IsAdmin {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "You don't have permission to modify this video",
			})
		}

		c.Locals("video", &video)
		return c.Next()
	}
}

// CheckCommentOwnership allows the request only for the author of :id (or an admin)
func CheckCommentOwnership() fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, ok := CurrentUser(c)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Unauthorized",
			})
		}

		var comment model.Comment
		if err := database.DB.First(&comment, c.Params("id")).Error; err != nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Comment not found",
			})
		}

		if comment.UserID != claims.UserID && !claims.IsAdmin {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "You don't have permission to modify this comment",
			})
		}

		c.Locals("comment", &comment)
		return c.Next()
	}
}
