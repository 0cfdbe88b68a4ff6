package controllers

import (
	"errors"
	"project/backend/config"
	"project/backend/models"
	"project/backend/services"
	"project/backend/utils"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type LessonsController struct {
	DB         *gorm.DB
	Cfg        *config.Config
	Tracker    *services.LessonTracker
	Aggregator *services.Aggregator
}

func NewLessonsController(db *gorm.DB, cfg *config.Config, tracker *services.LessonTracker, agg *services.Aggregator) *LessonsController {
	return &LessonsController{DB: db, Cfg: cfg, Tracker: tracker, Aggregator: agg}
}

func (lc *LessonsController) GetLesson(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, lc.Cfg)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	lessonID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid lesson ID",
		})
	}

	var lesson models.Lesson
	if err := lc.DB.First(&lesson, lessonID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Lesson not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not query database",
		})
	}

	return c.JSON(fiber.Map{
		"lesson":    lesson,
		"completed": lc.Tracker.IsCompleted(userID, lesson.ID),
	})
}

// requireEnrollment loads the caller's enrollment for the course. Completion
// and time tracking are only recorded for enrolled users.
func (lc *LessonsController) requireEnrollment(userID, courseID uint) (*models.Enrollment, error) {
	var enrollment models.Enrollment
	if err := lc.DB.Where("user_id = ? AND course_id = ?", userID, courseID).First(&enrollment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, services.ErrEnrollmentNotFound
		}
		return nil, err
	}
	return &enrollment, nil
}

// MarkComplete records a lesson completion and refreshes the
// enrollment progress when the completion is new. Re-marking an
// already completed lesson is a no-op.
func (lc *LessonsController) MarkComplete(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, lc.Cfg)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	lessonID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid lesson ID",
		})
	}

	var input struct {
		CourseID uint `json:"course_id"`
	}
	if err := c.BodyParser(&input); err != nil || input.CourseID == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "course_id is required",
		})
	}

	enrollment, err := lc.requireEnrollment(userID, input.CourseID)
	if err != nil {
		if errors.Is(err, services.ErrEnrollmentNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Enrollment not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not query database",
		})
	}

	changed, err := lc.Tracker.MarkComplete(userID, uint(lessonID), input.CourseID)
	if err != nil {
		if errors.Is(err, services.ErrLessonNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Lesson not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not update lesson progress",
		})
	}

	progress := enrollment.Progress
	if changed {
		progress, err = lc.Aggregator.Recompute(userID, input.CourseID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Could not recompute progress",
			})
		}
	}

	return c.JSON(fiber.Map{
		"message":  "Lesson completed",
		"changed":  changed,
		"progress": progress,
	})
}

func (lc *LessonsController) RecordTime(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, lc.Cfg)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	lessonID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid lesson ID",
		})
	}

	var input struct {
		CourseID     uint `json:"course_id"`
		DeltaSeconds int  `json:"delta_seconds"`
	}
	if err := c.BodyParser(&input); err != nil || input.CourseID == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "course_id is required",
		})
	}

	if _, err := lc.requireEnrollment(userID, input.CourseID); err != nil {
		if errors.Is(err, services.ErrEnrollmentNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Enrollment not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not query database",
		})
	}

	if err := lc.Tracker.RecordTime(userID, uint(lessonID), input.CourseID, input.DeltaSeconds); err != nil {
		if errors.Is(err, services.ErrInvalidTimeDelta) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "delta_seconds must not be negative",
			})
		}
		if errors.Is(err, services.ErrLessonNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Lesson not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not record time",
		})
	}

	return c.JSON(fiber.Map{
		"message": "Time recorded",
	})
}
