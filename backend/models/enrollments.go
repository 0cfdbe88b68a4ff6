package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	EnrollmentStatusEnrolled   = "enrolled"
	EnrollmentStatusInProgress = "in_progress"
	EnrollmentStatusCompleted  = "completed"
)

// Enrollment records a user's access to a course. Progress is written only by
// the progress aggregator and is never edited by hand.
type Enrollment struct {
	gorm.Model
	UserID      uint `gorm:"not null;uniqueIndex:idx_enrollment_user_course"`
	CourseID    uint `gorm:"not null;uniqueIndex:idx_enrollment_user_course"`
	EnrolledAt  time.Time
	ExpiryDate  *time.Time
	Progress    float64 `gorm:"default:0"` // 0-100, two decimals
	Status      string  `gorm:"default:enrolled"`
	CompletedAt *time.Time
}

// LessonProgress tracks one user's state for one lesson within a course.
// IsCompleted only ever transitions false to true.
type LessonProgress struct {
	gorm.Model
	UserID         uint `gorm:"not null;uniqueIndex:idx_lesson_progress"`
	LessonID       uint `gorm:"not null;uniqueIndex:idx_lesson_progress"`
	CourseID       uint `gorm:"not null;uniqueIndex:idx_lesson_progress"`
	TotalTimeSpent int  `gorm:"default:0"` // seconds, monotone non-decreasing
	IsCompleted    bool `gorm:"default:false"`
	LastAccessed   time.Time
}
