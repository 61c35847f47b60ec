package controller

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"vidshare_backend/internal/model"
	"vidshare_backend/internal/repository"
	"vidshare_backend/pkg/utils/jwt"
)

var reactionRepo *repository.ReactionRepository

func InitReactionController(reactions *repository.ReactionRepository) {
	reactionRepo = reactions
}

// React returns a handler that toggles kind on the :id target
func React(target model.TargetType, kind model.ReactionKind) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims := c.Locals("user").(*jwt.Claims)
		id, ok := paramID(c, "id")
		if !ok {
			return badID(c)
		}

		result, err := reactionRepo.Toggle(c.UserContext(), claims.UserID, target, id, kind)
		if err != nil {
			if errors.Is(err, repository.ErrTargetNotFound) {
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
					"error": "Target not found",
				})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Could not save reaction",
			})
		}

		return c.JSON(fiber.Map{
			"reaction": result.Kind,
			"likes":    result.Likes,
			"dislikes": result.Dislikes,
			"hidden":   result.Hidden,
		})
	}
}
