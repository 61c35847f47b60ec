package controller

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"vidshare_backend/internal/model"
	"vidshare_backend/pkg/database"
	"vidshare_backend/pkg/subscription"
	"vidshare_backend/pkg/utils/jwt"
)

// DashboardStats summarises a creator's channel
type DashboardStats struct {
	TotalVideos    int64       `json:"total_videos"`
	ReadyVideos    int64       `json:"ready_videos"`
	TotalViews     int64       `json:"total_views"`
	TotalLikes     int64       `json:"total_likes"`
	TotalDownloads int64       `json:"total_downloads"`
	Subscribers    int64       `json:"subscribers"`
	TopVideos      []TopVideo  `json:"top_videos"`
	DailyStats     []DailyStat `json:"daily_stats"`
}

type TopVideo struct {
	ID           uint   `json:"id"`
	Title        string `json:"title"`
	Views        int64  `json:"views"`
	Likes        int64  `json:"likes"`
	IsShort      bool   `json:"is_short"`
	ThumbnailURL string `json:"thumbnail_url"`
}

type DailyStat struct {
	Date        string `json:"date"`
	NewVideos   int64  `json:"new_videos"`
	Downloads   int64  `json:"downloads"`
	Subscribers int64  `json:"subscribers"`
}

const dashboardDays = 7

// GetDashboardStats returns the caller's channel statistics
func GetDashboardStats(c *fiber.Ctx) error {
	claims := c.Locals("user").(*jwt.Claims)
	db := database.GetDB()

	var stats DashboardStats

	db.Model(&model.Video{}).
		Where("user_id = ?", claims.UserID).
		Count(&stats.TotalVideos)

	db.Model(&model.Video{}).
		Where("user_id = ? AND status = ?", claims.UserID, model.VideoStatusReady).
		Count(&stats.ReadyVideos)

	var totals struct {
		Views int64
		Likes int64
	}
	db.Model(&model.Video{}).
		Select("COALESCE(SUM(views), 0) AS views, COALESCE(SUM(likes), 0) AS likes").
		Where("user_id = ?", claims.UserID).
		Scan(&totals)
	stats.TotalViews = totals.Views
	stats.TotalLikes = totals.Likes

	db.Model(&model.DownloadRecord{}).
		Joins("JOIN videos ON download_records.video_id = videos.id").
		Where("videos.user_id = ?", claims.UserID).
		Count(&stats.TotalDownloads)

	db.Model(&model.ChannelSubscription{}).
		Where("channel_id = ?", claims.UserID).
		Count(&stats.Subscribers)

	var top []TopVideo
	db.Model(&model.Video{}).
		Select("id, title, views, likes, is_short, thumbnail_url").
		Where("user_id = ? AND status = ?", claims.UserID, model.VideoStatusReady).
		Order("views DESC").
		Limit(5).
		Scan(&top)
	stats.TopVideos = top

	today := time.Now()
	start := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, today.Location())
	for i := dashboardDays - 1; i >= 0; i-- {
		from := start.AddDate(0, 0, -i)
		to := from.AddDate(0, 0, 1)
		stat := DailyStat{Date: from.Format("2006-01-02")}

		db.Model(&model.Video{}).
			Where("user_id = ? AND created_at >= ? AND created_at < ?", claims.UserID, from, to).
			Count(&stat.NewVideos)

		db.Model(&model.DownloadRecord{}).
			Joins("JOIN videos ON download_records.video_id = videos.id").
			Where("videos.user_id = ? AND download_records.created_at >= ? AND download_records.created_at < ?",
				claims.UserID, from, to).
			Count(&stat.Downloads)

		db.Model(&model.ChannelSubscription{}).
			Where("channel_id = ? AND created_at >= ? AND created_at < ?", claims.UserID, from, to).
			Count(&stat.Subscribers)

		stats.DailyStats = append(stats.DailyStats, stat)
	}

	return c.JSON(stats)
}

// GetAdminStats gives moderators a platform overview
func GetAdminStats(c *fiber.Ctx) error {
	db := database.GetDB()

	var users, videos, pending, activeSubs int64
	db.Model(&model.User{}).Count(&users)
	db.Model(&model.Video{}).Count(&videos)
	db.Model(&model.Report{}).Where("status = ?", model.ReportPending).Count(&pending)
	db.Model(&model.UserSubscription{}).
		Where("status = ? AND plan <> ?", model.SubscriptionActive, subscription.FreePlan).
		Count(&activeSubs)

	return c.JSON(fiber.Map{
		"users":                users,
		"videos":               videos,
		"pending_reports":      pending,
		"active_subscriptions": activeSubs,
	})
}
