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

type QuizzesController struct {
	DB         *gorm.DB
	Cfg        *config.Config
	Grader     *services.Grader
	Aggregator *services.Aggregator
}

func NewQuizzesController(db *gorm.DB, cfg *config.Config, grader *services.Grader, agg *services.Aggregator) *QuizzesController {
	return &QuizzesController{DB: db, Cfg: cfg, Grader: grader, Aggregator: agg}
}

// GetQuiz returns the quiz with its questions and options. Correct
// answer flags are stripped so the payload is safe to hand to students.
func (qc *QuizzesController) GetQuiz(c *fiber.Ctx) error {
	if _, err := utils.ExtractUserIDFromToken(c, qc.Cfg); err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	quizID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid quiz ID",
		})
	}

	var quiz models.Quiz
	if err := qc.DB.Preload("Questions.Options").First(&quiz, quizID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Quiz not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not query database",
		})
	}

	questions := make([]fiber.Map, 0, len(quiz.Questions))
	for _, question := range quiz.Questions {
		options := make([]fiber.Map, 0, len(question.Options))
		for _, option := range question.Options {
			options = append(options, fiber.Map{
				"id":   option.ID,
				"text": option.Text,
			})
		}
		questions = append(questions, fiber.Map{
			"id":      question.ID,
			"prompt":  question.Prompt,
			"type":    question.QuestionType,
			"points":  question.Points,
			"options": options,
		})
	}

	return c.JSON(fiber.Map{
		"id":            quiz.ID,
		"title":         quiz.Title,
		"passing_grade": quiz.PassingGrade,
		"max_attempts":  quiz.MaxAttempts,
		"questions":     questions,
	})
}

func (qc *QuizzesController) SubmitAttempt(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, qc.Cfg)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	quizID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid quiz ID",
		})
	}

	var input struct {
		CourseID uint                   `json:"course_id"`
		Answers  []services.AnswerInput `json:"answers"`
	}
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Cannot parse JSON",
		})
	}

	// An attempt taken in a course context must come from an enrolled user;
	// checking up front keeps unenrolled submissions from burning attempts.
	if input.CourseID != 0 {
		var enrollment models.Enrollment
		if err := qc.DB.Where("user_id = ? AND course_id = ?", userID, input.CourseID).First(&enrollment).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
					"error": "Enrollment not found",
				})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Could not query database",
			})
		}
	}

	result, err := qc.Grader.Submit(userID, uint(quizID), input.CourseID, input.Answers)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrQuizNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Quiz not found",
			})
		case errors.Is(err, services.ErrInvalidSubmission):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Submission references questions outside this quiz",
			})
		case errors.Is(err, services.ErrAttemptLimit):
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": "Attempt limit reached",
			})
		default:
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Could not grade attempt",
			})
		}
	}

	if input.CourseID != 0 {
		if _, err := qc.Aggregator.Recompute(userID, input.CourseID); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Could not recompute progress",
			})
		}
	}

	return c.JSON(fiber.Map{
		"attempt_id":              result.AttemptID,
		"attempt_number":          result.AttemptNumber,
		"score":                   result.Score,
		"total_points":            result.TotalPoints,
		"is_passed":               result.IsPassed,
		"manual_grading_required": result.ManualGradingRequired,
	})
}

func (qc *QuizzesController) GetMyAttempts(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, qc.Cfg)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	quizID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid quiz ID",
		})
	}

	var attempts []models.QuizAttempt
	qc.DB.Where("user_id = ? AND quiz_id = ?", userID, quizID).
		Order("attempt_number asc").Find(&attempts)

	result := make([]fiber.Map, 0, len(attempts))
	for _, attempt := range attempts {
		result = append(result, fiber.Map{
			"id":             attempt.ID,
			"attempt_number": attempt.AttemptNumber,
			"score":          attempt.Score,
			"is_passed":      attempt.IsPassed,
			"started_at":     attempt.StartedAt,
			"completed_at":   attempt.CompletedAt,
		})
	}

	return c.JSON(result)
}

// GetQuizAttempts lists every student attempt for a quiz, including
// the answers that still need manual grading.
func (qc *QuizzesController) GetQuizAttempts(c *fiber.Ctx) error {
	quizID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid quiz ID",
		})
	}

	var quiz models.Quiz
	if err := qc.DB.First(&quiz, quizID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Quiz not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not query database",
		})
	}

	var attempts []models.QuizAttempt
	qc.DB.Preload("Answers").Where("quiz_id = ?", quizID).
		Order("user_id asc, attempt_number asc").Find(&attempts)

	result := make([]fiber.Map, 0, len(attempts))
	for _, attempt := range attempts {
		pending := make([]fiber.Map, 0)
		for _, answer := range attempt.Answers {
			if answer.RequiresManual {
				pending = append(pending, fiber.Map{
					"question_id": answer.QuestionID,
					"text_answer": answer.TextAnswer,
				})
			}
		}
		result = append(result, fiber.Map{
			"id":             attempt.ID,
			"user_id":        attempt.UserID,
			"attempt_number": attempt.AttemptNumber,
			"score":          attempt.Score,
			"is_passed":      attempt.IsPassed,
			"completed_at":   attempt.CompletedAt,
			"pending_manual": pending,
		})
	}

	return c.JSON(fiber.Map{
		"quiz_id":  quiz.ID,
		"title":    quiz.Title,
		"attempts": result,
	})
}

func (qc *QuizzesController) GradeAnswer(c *fiber.Ctx) error {
	graderID, err := utils.ExtractUserIDFromToken(c, qc.Cfg)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	attemptID, err := strconv.Atoi(c.Params("attemptId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid attempt ID",
		})
	}

	var input struct {
		QuestionID    uint    `json:"question_id"`
		AwardedPoints float64 `json:"awarded_points"`
	}
	if err := c.BodyParser(&input); err != nil || input.QuestionID == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "question_id is required",
		})
	}

	attempt, err := qc.Grader.ApplyManualScore(uint(attemptID), input.QuestionID, input.AwardedPoints, graderID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrAttemptNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Attempt not found",
			})
		case errors.Is(err, services.ErrNotManuallyGraded):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Question is not manually graded",
			})
		default:
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Could not apply manual score",
			})
		}
	}

	if attempt.CourseID != 0 {
		if _, err := qc.Aggregator.Recompute(attempt.UserID, attempt.CourseID); err != nil {
			if errors.Is(err, services.ErrEnrollmentNotFound) {
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
					"error": "Enrollment not found",
				})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Could not recompute progress",
			})
		}
	}

	return c.JSON(fiber.Map{
		"message":   "Manual score applied",
		"score":     attempt.Score,
		"is_passed": attempt.IsPassed,
	})
}

func (qc *QuizzesController) CreateQuiz(c *fiber.Ctx) error {
	var input struct {
		Title                string   `json:"title"`
		PassingGrade         *float64 `json:"passing_grade"`
		MaxAttempts          *int     `json:"max_attempts"`
		PointsCutAfterRetake *float64 `json:"points_cut_after_retake"`
	}
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Cannot parse JSON",
		})
	}
	if input.Title == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Title is required",
		})
	}

	quiz := models.Quiz{
		Title:                input.Title,
		PassingGrade:         qc.Cfg.DefaultPassingGrade,
		MaxAttempts:          input.MaxAttempts,
		PointsCutAfterRetake: input.PointsCutAfterRetake,
	}
	if input.PassingGrade != nil {
		quiz.PassingGrade = *input.PassingGrade
	}

	if err := qc.DB.Create(&quiz).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not create quiz",
		})
	}

	return c.JSON(fiber.Map{
		"message": "Quiz created",
		"quiz":    quiz,
	})
}

func (qc *QuizzesController) AddQuestion(c *fiber.Ctx) error {
	quizID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid quiz ID",
		})
	}

	var input struct {
		Prompt       string  `json:"prompt"`
		QuestionType string  `json:"question_type"`
		Points       float64 `json:"points"`
		Options      []struct {
			Text      string `json:"text"`
			IsCorrect bool   `json:"is_correct"`
		} `json:"options"`
	}
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Cannot parse JSON",
		})
	}

	switch input.QuestionType {
	case models.QuestionTypeMCQ, models.QuestionTypeTrueFalse, models.QuestionTypeEssay:
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid question type",
		})
	}

	var quiz models.Quiz
	if err := qc.DB.First(&quiz, quizID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Quiz not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not query database",
		})
	}

	question := models.Question{
		QuizID:       quiz.ID,
		Prompt:       input.Prompt,
		QuestionType: input.QuestionType,
		Points:       input.Points,
	}
	if question.Points <= 0 {
		question.Points = 1
	}
	for _, option := range input.Options {
		question.Options = append(question.Options, models.Option{
			Text:      option.Text,
			IsCorrect: option.IsCorrect,
		})
	}

	if err := qc.DB.Create(&question).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not create question",
		})
	}

	return c.JSON(fiber.Map{
		"message":  "Question created",
		"question": question,
	})
}
