package controller

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"vidshare_backend/internal/model"
	"vidshare_backend/pkg/database"
	"vidshare_backend/pkg/utils/jwt"
)

type ReportInput struct {
	TargetType string `json:"target_type"`
	TargetID   uint   `json:"target_id"`
	Reason     string `json:"reason"`
	Details    string `json:"details"`
}

type ResolveInput struct {
	Action string `json:"action"` // dismiss or action
}

func targetExists(db *gorm.DB, target model.TargetType, id uint) bool {
	var count int64
	switch target {
	case model.TargetVideo:
		db.Model(&model.Video{}).Where("id = ?", id).Count(&count)
	case model.TargetComment:
		db.Model(&model.Comment{}).Where("id = ?", id).Count(&count)
	}
	return count > 0
}

// CreateReport files a report; a reporter can hold one pending report per target
func CreateReport(c *fiber.Ctx) error {
	claims := c.Locals("user").(*jwt.Claims)

	input := new(ReportInput)
	if err := c.BodyParser(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid input",
		})
	}

	target := model.TargetType(strings.ToLower(input.TargetType))
	if target != model.TargetVideo && target != model.TargetComment {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Target type must be video or comment",
		})
	}
	reason := model.ReportReason(strings.ToLower(input.Reason))
	if !model.ValidReportReasons[reason] {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid report reason",
		})
	}

	db := database.GetDB()
	if !targetExists(db, target, input.TargetID) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Reported content not found",
		})
	}

	var pending int64
	db.Model(&model.Report{}).
		Where("reporter_id = ? AND target_type = ? AND target_id = ? AND status = ?",
			claims.UserID, target, input.TargetID, model.ReportPending).
		Count(&pending)
	if pending > 0 {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "You already reported this content",
		})
	}

	report := model.Report{
		ReporterID: claims.UserID,
		TargetType: target,
		TargetID:   input.TargetID,
		Reason:     reason,
		Details:    strings.TrimSpace(input.Details),
		Status:     model.ReportPending,
	}
	if err := db.Create(&report).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not save report",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Report submitted",
		"report":  report,
	})
}

func ListReports(c *fiber.Ctx) error {
	p := pagination(c)
	status := c.Query("status", string(model.ReportPending))

	var reports []model.Report
	if err := database.GetDB().
		Where("status = ?", status).
		Order("created_at ASC").
		Offset(p.Offset()).Limit(p.Limit).
		Find(&reports).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not fetch reports",
		})
	}

	return c.JSON(fiber.Map{"reports": reports})
}

// ResolveReport closes a pending report. Actioning hides a comment or
// removes a video and closes every other pending report on the same target.
func ResolveReport(c *fiber.Ctx) error {
	claims := c.Locals("user").(*jwt.Claims)
	id, ok := paramID(c, "id")
	if !ok {
		return badID(c)
	}

	input := new(ResolveInput)
	if err := c.BodyParser(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid input",
		})
	}

	var status model.ReportStatus
	switch input.Action {
	case "dismiss":
		status = model.ReportDismissed
	case "action":
		status = model.ReportActioned
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Action must be dismiss or action",
		})
	}

	var report model.Report
	err := database.GetDB().Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&report, id).Error; err != nil {
			return err
		}
		if report.Status != model.ReportPending {
			return errReportClosed
		}

		now := time.Now()
		reviewer := claims.UserID
		scope := tx.Model(&model.Report{}).Where("id = ?", report.ID)
		if status == model.ReportActioned {
			switch report.TargetType {
			case model.TargetComment:
				if err := tx.Model(&model.Comment{}).Where("id = ?", report.TargetID).
					Update("hidden", true).Error; err != nil {
					return err
				}
			case model.TargetVideo:
				if err := tx.Model(&model.Video{}).Where("id = ?", report.TargetID).
					Update("status", model.VideoStatusRemoved).Error; err != nil {
					return err
				}
			}
			scope = tx.Model(&model.Report{}).
				Where("target_type = ? AND target_id = ? AND status = ?", report.TargetType, report.TargetID, model.ReportPending)
		}

		if err := scope.Updates(map[string]interface{}{
			"status":      status,
			"reviewer_id": reviewer,
			"reviewed_at": now,
		}).Error; err != nil {
			return err
		}

		report.Status = status
		report.ReviewerID = &reviewer
		report.ReviewedAt = &now
		return nil
	})
	if err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Report not found",
			})
		case errors.Is(err, errReportClosed):
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": "Report was already resolved",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not resolve report",
		})
	}

	return c.JSON(fiber.Map{
		"message": "Report resolved",
		"report":  report,
	})
}

var errReportClosed = errors.New("report already resolved")
