package services

import (
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"project/backend/models"
)

// LessonTracker records per-user, per-lesson completion and time spent. It
// knows nothing about course structure beyond the course foreign key it
// stores; callers are responsible for triggering progress recomputation when
// MarkComplete reports a state change.
type LessonTracker struct {
	DB *gorm.DB
}

func NewLessonTracker(db *gorm.DB) *LessonTracker {
	return &LessonTracker{DB: db}
}

// MarkComplete sets the lesson completed for the user, creating the progress
// row if absent. Idempotent; a completed lesson is never flipped back. The
// returned bool reports whether state actually changed.
func (t *LessonTracker) MarkComplete(userID, lessonID, courseID uint) (bool, error) {
	var lesson models.Lesson
	if err := t.DB.First(&lesson, lessonID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, ErrLessonNotFound
		}
		return false, err
	}

	changed := false
	err := t.DB.Transaction(func(tx *gorm.DB) error {
		progress := models.LessonProgress{
			UserID:       userID,
			LessonID:     lessonID,
			CourseID:     courseID,
			IsCompleted:  true,
			LastAccessed: time.Now(),
		}
		// The conflict clause absorbs a racing duplicate insert on the
		// (user, lesson, course) unique index.
		result := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&progress)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected > 0 {
			changed = true
			return nil
		}

		var existing models.LessonProgress
		if err := tx.Where("user_id = ? AND lesson_id = ? AND course_id = ?", userID, lessonID, courseID).
			First(&existing).Error; err != nil {
			return err
		}
		if existing.IsCompleted {
			return nil
		}
		changed = true
		return tx.Model(&existing).Updates(map[string]interface{}{
			"is_completed":  true,
			"last_accessed": time.Now(),
		}).Error
	})
	return changed, err
}

// RecordTime adds deltaSeconds to the accumulated time and bumps
// last_accessed. Completion state is untouched.
func (t *LessonTracker) RecordTime(userID, lessonID, courseID uint, deltaSeconds int) error {
	if deltaSeconds < 0 {
		return ErrInvalidTimeDelta
	}

	var lesson models.Lesson
	if err := t.DB.First(&lesson, lessonID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrLessonNotFound
		}
		return err
	}

	return t.DB.Transaction(func(tx *gorm.DB) error {
		var progress models.LessonProgress
		err := tx.Where("user_id = ? AND lesson_id = ? AND course_id = ?", userID, lessonID, courseID).
			First(&progress).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			progress = models.LessonProgress{
				UserID:         userID,
				LessonID:       lessonID,
				CourseID:       courseID,
				TotalTimeSpent: deltaSeconds,
				LastAccessed:   time.Now(),
			}
			return tx.Create(&progress).Error
		}
		if err != nil {
			return err
		}
		return tx.Model(&progress).Updates(map[string]interface{}{
			"total_time_spent": gorm.Expr("total_time_spent + ?", deltaSeconds),
			"last_accessed":    time.Now(),
		}).Error
	})
}

// IsCompleted reports whether the user has completed the lesson. Absence of a
// progress row means not completed.
func (t *LessonTracker) IsCompleted(userID, lessonID uint) bool {
	var count int64
	t.DB.Model(&models.LessonProgress{}).
		Where("user_id = ? AND lesson_id = ? AND is_completed = ?", userID, lessonID, true).
		Count(&count)
	return count > 0
}
