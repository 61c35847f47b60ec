package controller

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm/clause"

	"vidshare_backend/internal/model"
	"vidshare_backend/pkg/database"
	"vidshare_backend/pkg/utils/jwt"
)

// findChannel accepts a numeric user id or a channel slug
func findChannel(ref string, owner *model.User) error {
	db := database.GetDB()
	if id, err := strconv.ParseUint(ref, 10, 32); err == nil {
		return db.First(owner, id).Error
	}
	return db.Where("channel_slug = ? OR username = ?", ref, ref).First(owner).Error
}

func GetChannel(c *fiber.Ctx) error {
	var owner model.User
	if err := findChannel(c.Params("id"), &owner); err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Channel not found",
		})
	}

	var subscribers, videos int64
	database.GetDB().Model(&model.ChannelSubscription{}).Where("channel_id = ?", owner.ID).Count(&subscribers)
	database.GetDB().Model(&model.Video{}).
		Where("user_id = ? AND status = ?", owner.ID, model.VideoStatusReady).Count(&videos)

	resp := fiber.Map{
		"channel":     owner.GetPublicProfile(),
		"subscribers": subscribers,
		"videos":      videos,
	}

	if claims := claimsFrom(c); claims != nil {
		var mine int64
		database.GetDB().Model(&model.ChannelSubscription{}).
			Where("channel_id = ? AND subscriber_id = ?", owner.ID, claims.UserID).Count(&mine)
		resp["subscribed"] = mine > 0
	}

	return c.JSON(resp)
}

func SubscribeChannel(c *fiber.Ctx) error {
	claims := c.Locals("user").(*jwt.Claims)

	var owner model.User
	if err := findChannel(c.Params("id"), &owner); err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Channel not found",
		})
	}
	if owner.ID == claims.UserID {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "You cannot subscribe to your own channel",
		})
	}

	sub := model.ChannelSubscription{SubscriberID: claims.UserID, ChannelID: owner.ID}
	if err := database.GetDB().Clauses(clause.OnConflict{DoNothing: true}).Create(&sub).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not subscribe",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Subscribed",
	})
}

func UnsubscribeChannel(c *fiber.Ctx) error {
	claims := c.Locals("user").(*jwt.Claims)

	var owner model.User
	if err := findChannel(c.Params("id"), &owner); err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Channel not found",
		})
	}

	if err := database.GetDB().
		Where("subscriber_id = ? AND channel_id = ?", claims.UserID, owner.ID).
		Delete(&model.ChannelSubscription{}).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not unsubscribe",
		})
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// GetSubscriptionFeed lists the newest videos of the channels the caller follows
func GetSubscriptionFeed(c *fiber.Ctx) error {
	claims := c.Locals("user").(*jwt.Claims)
	p := pagination(c)
	db := database.GetDB()

	var subs []model.ChannelSubscription
	if err := db.Where("subscriber_id = ?", claims.UserID).Preload("Channel").Find(&subs).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not fetch subscriptions",
		})
	}

	channels := make([]map[string]interface{}, 0, len(subs))
	ids := make([]uint, 0, len(subs))
	for i := range subs {
		channels = append(channels, subs[i].Channel.GetPublicProfile())
		ids = append(ids, subs[i].ChannelID)
	}

	items := []fiber.Map{}
	if len(ids) > 0 {
		var videos []model.Video
		db.Where("user_id IN ? AND status = ?", ids, model.VideoStatusReady).
			Preload("User").
			Order("created_at DESC").
			Offset(p.Offset()).Limit(p.Limit).
			Find(&videos)
		for i := range videos {
			items = append(items, videoResponse(&videos[i]))
		}
	}

	return c.JSON(fiber.Map{
		"channels": channels,
		"videos":   items,
	})
}
