package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ReportReason string

const (
	ReasonSpam           ReportReason = "spam"
	ReasonHarassment     ReportReason = "harassment"
	ReasonHate           ReportReason = "hate"
	ReasonViolence       ReportReason = "violence"
	ReasonSexual         ReportReason = "sexual"
	ReasonCopyright      ReportReason = "copyright"
	ReasonMisinformation ReportReason = "misinformation"
	ReasonOther          ReportReason = "other"
)

var ValidReportReasons = map[ReportReason]bool{
	ReasonSpam:           true,
	ReasonHarassment:     true,
	ReasonHate:           true,
	ReasonViolence:       true,
	ReasonSexual:         true,
	ReasonCopyright:      true,
	ReasonMisinformation: true,
	ReasonOther:          true,
}

type ReportStatus string

const (
	ReportPending   ReportStatus = "pending"
	ReportDismissed ReportStatus = "dismissed"
	ReportActioned  ReportStatus = "actioned"
)

type Report struct {
	gorm.Model
	ReporterID uint           `json:"reporter_id" gorm:"index;not null"`
	TargetType TargetType     `json:"target_type" gorm:"size:20;index:idx_report_target;not null"`
	TargetID   uint           `json:"target_id" gorm:"index:idx_report_target;not null"`
	Reason     ReportReason   `json:"reason" gorm:"size:30;not null"`
	Details    string         `json:"details" gorm:"type:text"`
	Status     ReportStatus   `json:"status" gorm:"size:20;index;default:'pending'"`
	ReviewerID *uint          `json:"reviewer_id"`
	ReviewedAt *time.Time     `json:"reviewed_at"`
	Metadata   datatypes.JSON `json:"metadata"`
}
