package models

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	NotificationEnrollmentCreated = "enrollment.created"
	NotificationCourseCompleted   = "course.completed"
	NotificationCertificateIssued = "certificate.issued"
)

type Notification struct {
	gorm.Model
	UserID    uint   `gorm:"index;not null"`
	EventType string `gorm:"not null"`
	Payload   datatypes.JSON
}
