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

type ProgressController struct {
	DB         *gorm.DB
	Cfg        *config.Config
	Aggregator *services.Aggregator
}

func NewProgressController(db *gorm.DB, cfg *config.Config, agg *services.Aggregator) *ProgressController {
	return &ProgressController{DB: db, Cfg: cfg, Aggregator: agg}
}

func (pc *ProgressController) GetMyProgress(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, pc.Cfg)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	courseID, err := strconv.Atoi(c.Params("courseId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid course ID",
		})
	}

	var enrollment models.Enrollment
	if err := pc.DB.Where("user_id = ? AND course_id = ?", userID, courseID).First(&enrollment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Enrollment not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not query database",
		})
	}

	var lessonProgress []models.LessonProgress
	pc.DB.Where("user_id = ? AND course_id = ?", userID, courseID).Find(&lessonProgress)

	lessons := make([]fiber.Map, 0, len(lessonProgress))
	for _, lp := range lessonProgress {
		lessons = append(lessons, fiber.Map{
			"lesson_id":        lp.LessonID,
			"is_completed":     lp.IsCompleted,
			"total_time_spent": lp.TotalTimeSpent,
			"last_accessed":    lp.LastAccessed,
		})
	}

	return c.JSON(fiber.Map{
		"course_id":    enrollment.CourseID,
		"progress":     enrollment.Progress,
		"status":       enrollment.Status,
		"completed_at": enrollment.CompletedAt,
		"lessons":      lessons,
	})
}

// RecomputeProgress re-derives the enrollment percentage from stored
// completions. Useful after course content changes shift the denominator.
func (pc *ProgressController) RecomputeProgress(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, pc.Cfg)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	courseID, err := strconv.Atoi(c.Params("courseId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid course ID",
		})
	}

	progress, err := pc.Aggregator.Recompute(userID, uint(courseID))
	if err != nil {
		switch {
		case errors.Is(err, services.ErrEnrollmentNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Enrollment not found",
			})
		case errors.Is(err, services.ErrCourseNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Course not found",
			})
		default:
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Could not recompute progress",
			})
		}
	}

	return c.JSON(fiber.Map{
		"course_id": courseID,
		"progress":  progress,
	})
}
