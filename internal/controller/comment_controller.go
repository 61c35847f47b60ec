package controller

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"vidshare_backend/internal/model"
	"vidshare_backend/pkg/database"
	"vidshare_backend/pkg/translate"
	"vidshare_backend/pkg/utils/jwt"
	"vidshare_backend/pkg/utils/validation"
)

const translateTimeout = 15 * time.Second

type Translator interface {
	Translate(ctx context.Context, text, source, target string) (*translate.Result, error)
}

var translator Translator

func InitCommentController(t Translator) {
	translator = t
}

type CommentInput struct {
	Body     string `json:"body"`
	Language string `json:"language"`
}

func ListComments(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badID(c)
	}

	p := pagination(c)
	var comments []model.Comment
	if err := database.GetDB().
		Where("video_id = ? AND hidden = ?", id, false).
		Preload("User").
		Order("created_at DESC").
		Offset(p.Offset()).Limit(p.Limit).
		Find(&comments).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not fetch comments",
		})
	}

	items := make([]fiber.Map, 0, len(comments))
	for i := range comments {
		items = append(items, commentResponse(&comments[i]))
	}

	return c.JSON(fiber.Map{"comments": items})
}

func commentResponse(cm *model.Comment) fiber.Map {
	return fiber.Map{
		"id":         cm.ID,
		"video_id":   cm.VideoID,
		"body":       cm.Body,
		"language":   cm.Language,
		"city":       cm.City,
		"likes":      cm.Likes,
		"dislikes":   cm.Dislikes,
		"created_at": cm.CreatedAt,
		"updated_at": cm.UpdatedAt,
		"user":       cm.User.GetPublicProfile(),
	}
}

// CreateComment posts a comment tagged with the author's city
func CreateComment(c *fiber.Ctx) error {
	claims := c.Locals("user").(*jwt.Claims)
	id, ok := paramID(c, "id")
	if !ok {
		return badID(c)
	}

	input := new(CommentInput)
	if err := c.BodyParser(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid input",
		})
	}

	body, err := validation.ValidateComment(input.Body)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	var video model.Video
	if err := database.GetDB().Select("id", "status").First(&video, id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Video not found",
		})
	}
	if video.Status == model.VideoStatusRemoved {
		return c.Status(fiber.StatusGone).JSON(fiber.Map{
			"error": "Video was removed",
		})
	}

	var user model.User
	if err := database.GetDB().First(&user, claims.UserID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "User not found",
		})
	}

	comment := model.Comment{
		VideoID:  video.ID,
		UserID:   user.ID,
		Body:     body,
		Language: strings.ToLower(strings.TrimSpace(input.Language)),
		City:     user.City,
	}
	if err := database.GetDB().Create(&comment).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not save comment",
		})
	}
	comment.User = user

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Comment posted",
		"comment": commentResponse(&comment),
	})
}

func UpdateComment(c *fiber.Ctx) error {
	claims := c.Locals("user").(*jwt.Claims)
	comment := c.Locals("comment").(*model.Comment)

	if comment.UserID != claims.UserID {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Only the author can edit a comment",
		})
	}

	input := new(CommentInput)
	if err := c.BodyParser(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid input",
		})
	}

	body, err := validation.ValidateComment(input.Body)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	if err := database.GetDB().Model(comment).Update("body", body).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not update comment",
		})
	}
	comment.Body = body

	return c.JSON(fiber.Map{
		"message": "Comment updated",
		"comment": comment,
	})
}

func DeleteComment(c *fiber.Ctx) error {
	comment := c.Locals("comment").(*model.Comment)

	if err := database.GetDB().Delete(comment).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not delete comment",
		})
	}

	return c.SendStatus(fiber.StatusNoContent)
}

type TranslateInput struct {
	Target string `json:"target"`
	Source string `json:"source"`
}

// TranslateComment runs the comment body through the provider chain
func TranslateComment(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badID(c)
	}

	input := new(TranslateInput)
	if err := c.BodyParser(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid input",
		})
	}
	target := strings.ToLower(strings.TrimSpace(input.Target))
	if target == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Target language is required",
		})
	}

	var comment model.Comment
	if err := database.GetDB().Where("hidden = ?", false).First(&comment, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Comment not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not fetch comment",
		})
	}

	if translator == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "Translation is not configured",
		})
	}

	source := input.Source
	if source == "" {
		source = comment.Language
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), translateTimeout)
	defer cancel()

	result, err := translator.Translate(ctx, comment.Body, source, target)
	if err != nil {
		log.Printf("Translation failed for comment %d: %v", comment.ID, err)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": "Translation service unavailable",
		})
	}

	return c.JSON(fiber.Map{
		"commentId":      comment.ID,
		"original":       comment.Body,
		"translatedText": result.Text,
		"provider":       result.Provider,
		"target":         result.Target,
	})
}
