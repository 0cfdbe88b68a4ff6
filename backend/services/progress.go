package services

import (
	"errors"
	"log"
	"math"
	"time"

	"gorm.io/gorm"

	"project/backend/config"
	"project/backend/models"
)

// Aggregator is the single writer of Enrollment.Progress. It recomputes the
// completion percentage from scratch on every call, so it is safe to invoke
// defensively after any mutating event.
type Aggregator struct {
	DB      *gorm.DB
	Cfg     *config.Config
	Graph   *ContentGraph
	Lessons *LessonTracker
	Issuer  *CertificateIssuer
	Notify  Notifier
	Log     *log.Logger
}

func NewAggregator(db *gorm.DB, cfg *config.Config, graph *ContentGraph, lessons *LessonTracker, issuer *CertificateIssuer, notify Notifier, logger *log.Logger) *Aggregator {
	return &Aggregator{DB: db, Cfg: cfg, Graph: graph, Lessons: lessons, Issuer: issuer, Notify: notify, Log: logger}
}

// Recompute derives the enrollment's completion percentage from current
// lesson and quiz facts and writes it. The enrollment must already exist;
// recomputing never creates one. Crossing the completion threshold triggers
// certificate issuance and a notification as side effects whose failures are
// logged, never rolled back into the progress write.
func (a *Aggregator) Recompute(userID, courseID uint) (float64, error) {
	items, err := a.Graph.ItemsForCourse(courseID)
	if err != nil {
		return 0, err
	}

	var enrollment models.Enrollment
	if err := a.DB.Where("user_id = ? AND course_id = ?", userID, courseID).
		First(&enrollment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, ErrEnrollmentNotFound
		}
		return 0, err
	}

	total := len(items)
	if total == 0 {
		// An empty course can never show complete.
		if err := a.DB.Model(&enrollment).Update("progress", 0).Error; err != nil {
			return 0, err
		}
		return 0, nil
	}

	var lessonIDs, quizIDs []uint
	for _, item := range items {
		switch item.Type {
		case models.ItemTypeLesson:
			lessonIDs = append(lessonIDs, item.ID)
		case models.ItemTypeQuiz:
			quizIDs = append(quizIDs, item.ID)
		}
	}

	var completedLessons int64
	if len(lessonIDs) > 0 {
		if err := a.DB.Model(&models.LessonProgress{}).
			Where("user_id = ? AND lesson_id IN ? AND is_completed = ?", userID, lessonIDs, true).
			Count(&completedLessons).Error; err != nil {
			return 0, err
		}
	}

	// A quiz counts once when at least one passing, completed, non-expired
	// attempt exists; further passes never double-count.
	var completedQuizzes int64
	if len(quizIDs) > 0 {
		if err := a.DB.Model(&models.QuizAttempt{}).
			Where("user_id = ? AND quiz_id IN ? AND is_passed = ? AND completed_at IS NOT NULL AND is_expired = ?",
				userID, quizIDs, true, false).
			Distinct("quiz_id").
			Count(&completedQuizzes).Error; err != nil {
			return 0, err
		}
	}

	percentage := float64(completedLessons+completedQuizzes) / float64(total) * 100
	percentage = math.Round(percentage*100) / 100
	if percentage < 0 {
		percentage = 0
	}
	if percentage > 100 {
		percentage = 100
	}

	previous := enrollment.Progress
	crossed := previous < a.Cfg.CompletionThreshold && percentage >= a.Cfg.CompletionThreshold

	updates := map[string]interface{}{"progress": percentage}
	switch {
	case percentage >= a.Cfg.CompletionThreshold:
		updates["status"] = models.EnrollmentStatusCompleted
		if enrollment.CompletedAt == nil {
			now := time.Now()
			updates["completed_at"] = &now
		}
	case percentage > 0:
		updates["status"] = models.EnrollmentStatusInProgress
	}
	if err := a.DB.Model(&enrollment).Updates(updates).Error; err != nil {
		return 0, err
	}

	if crossed {
		a.onCompletion(&enrollment)
	}

	return percentage, nil
}

func (a *Aggregator) onCompletion(enrollment *models.Enrollment) {
	if a.Issuer != nil {
		if _, err := a.Issuer.IssueIfEligible(enrollment.ID); err != nil {
			a.Log.Printf("issue certificate for enrollment %d: %v", enrollment.ID, err)
		}
	}
	if a.Notify != nil {
		var course models.Course
		title := ""
		if err := a.DB.First(&course, enrollment.CourseID).Error; err == nil {
			title = course.Title
		}
		a.Notify.Send(enrollment.UserID, models.NotificationCourseCompleted, map[string]interface{}{
			"course_id":    enrollment.CourseID,
			"course_title": title,
		})
	}
}
