package services

import (
	"encoding/json"
	"errors"
	"sort"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"project/backend/config"
	"project/backend/models"
)

// AnswerInput is one submitted answer for one question.
type AnswerInput struct {
	QuestionID        uint   `json:"question_id"`
	SelectedOptionIDs []uint `json:"selected_option_ids"`
	TextAnswer        string `json:"text_answer"`
}

// GradeResult is returned after a submission has been graded and persisted.
type GradeResult struct {
	AttemptID             uint    `json:"attempt_id"`
	AttemptNumber         int     `json:"attempt_number"`
	Score                 float64 `json:"score"`
	TotalPoints           float64 `json:"total_points"`
	IsPassed              bool    `json:"is_passed"`
	ManualGradingRequired []uint  `json:"manual_grading_required"`
}

// Grader evaluates quiz submissions and persists one append-only attempt per
// submission, enforcing the quiz's retake limit.
type Grader struct {
	DB  *gorm.DB
	Cfg *config.Config
}

func NewGrader(db *gorm.DB, cfg *config.Config) *Grader {
	return &Grader{DB: db, Cfg: cfg}
}

// Submit grades one submission for the user and persists the attempt together
// with a per-question answer snapshot. Concurrent submissions racing for the
// same attempt ordinal are rejected by the unique
// (user_id, quiz_id, attempt_number) index rather than silently duplicated.
func (g *Grader) Submit(userID, quizID, courseID uint, answers []AnswerInput) (*GradeResult, error) {
	var quiz models.Quiz
	if err := g.DB.Preload("Questions.Options").First(&quiz, quizID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrQuizNotFound
		}
		return nil, err
	}

	questions := make(map[uint]*models.Question, len(quiz.Questions))
	for i := range quiz.Questions {
		questions[quiz.Questions[i].ID] = &quiz.Questions[i]
	}
	for _, answer := range answers {
		if _, ok := questions[answer.QuestionID]; !ok {
			return nil, ErrInvalidSubmission
		}
	}

	var result *GradeResult
	err := g.DB.Transaction(func(tx *gorm.DB) error {
		var priorAttempts int64
		if err := tx.Model(&models.QuizAttempt{}).
			Where("user_id = ? AND quiz_id = ?", userID, quizID).
			Count(&priorAttempts).Error; err != nil {
			return err
		}
		if quiz.MaxAttempts != nil && int(priorAttempts) >= *quiz.MaxAttempts {
			return ErrAttemptLimit
		}

		attemptNumber := int(priorAttempts) + 1
		factor := retakeFactor(&quiz, attemptNumber)

		now := time.Now()
		attempt := models.QuizAttempt{
			QuizID:        quizID,
			UserID:        userID,
			CourseID:      courseID,
			StartedAt:     now,
			CompletedAt:   &now,
			AttemptNumber: attemptNumber,
		}

		var score float64
		var manualRequired []uint
		answerRows := make([]models.QuizAttemptAnswer, 0, len(answers))

		for _, answer := range answers {
			question := questions[answer.QuestionID]
			row := models.QuizAttemptAnswer{
				QuestionID:    question.ID,
				UserAnswerIDs: mustJSON(sortedIDs(answer.SelectedOptionIDs)),
			}

			if question.QuestionType == models.QuestionTypeEssay {
				// Essay answers never earn automatic points; they go to the
				// manual grading queue.
				row.RequiresManual = true
				row.TextAnswer = answer.TextAnswer
				row.CorrectAnswerIDs = mustJSON([]uint{})
				manualRequired = append(manualRequired, question.ID)
			} else {
				correctIDs := correctOptionIDs(question)
				row.CorrectAnswerIDs = mustJSON(correctIDs)
				if sameIDSet(answer.SelectedOptionIDs, correctIDs) {
					row.IsCorrect = true
					score += question.Points * factor
				}
			}
			answerRows = append(answerRows, row)
		}

		attempt.AutoScore = score
		attempt.Score = score

		totalPoints := g.passDenominator(&quiz, factor)
		attempt.IsPassed = passed(score, totalPoints, quiz.PassingGrade)

		if err := tx.Create(&attempt).Error; err != nil {
			return err
		}
		for i := range answerRows {
			answerRows[i].QuizAttemptID = attempt.ID
		}
		if len(answerRows) > 0 {
			if err := tx.Create(&answerRows).Error; err != nil {
				return err
			}
		}

		result = &GradeResult{
			AttemptID:             attempt.ID,
			AttemptNumber:         attemptNumber,
			Score:                 score,
			TotalPoints:           totalPoints,
			IsPassed:              attempt.IsPassed,
			ManualGradingRequired: manualRequired,
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// Lost the race for this attempt ordinal; the other submission won.
			return nil, ErrAttemptLimit
		}
		return nil, err
	}
	return result, nil
}

// ApplyManualScore records instructor-awarded points for an essay question of
// an attempt and re-evaluates the attempt's total score and pass state.
// Grades are keyed by (attempt, question), so repeating the call replaces the
// previous grade instead of adding to it.
func (g *Grader) ApplyManualScore(attemptID, questionID uint, awardedPoints float64, gradedBy uint) (*models.QuizAttempt, error) {
	var attempt models.QuizAttempt
	err := g.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&attempt, attemptID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrAttemptNotFound
			}
			return err
		}

		var answer models.QuizAttemptAnswer
		if err := tx.Where("quiz_attempt_id = ? AND question_id = ?", attemptID, questionID).
			First(&answer).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrInvalidSubmission
			}
			return err
		}
		if !answer.RequiresManual {
			return ErrNotManuallyGraded
		}

		grade := models.ManualGrade{
			QuizAttemptID: attemptID,
			QuestionID:    questionID,
			AwardedPoints: awardedPoints,
			GradedBy:      gradedBy,
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "quiz_attempt_id"}, {Name: "question_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"awarded_points", "graded_by", "updated_at"}),
		}).Create(&grade).Error; err != nil {
			return err
		}

		var manualTotal float64
		if err := tx.Model(&models.ManualGrade{}).
			Where("quiz_attempt_id = ?", attemptID).
			Select("COALESCE(SUM(awarded_points), 0)").
			Scan(&manualTotal).Error; err != nil {
			return err
		}

		var quiz models.Quiz
		if err := tx.Preload("Questions").First(&quiz, attempt.QuizID).Error; err != nil {
			return err
		}

		attempt.Score = attempt.AutoScore + manualTotal
		factor := retakeFactor(&quiz, attempt.AttemptNumber)
		totalPoints := g.manualPassDenominator(&quiz, factor)
		attempt.IsPassed = passed(attempt.Score, totalPoints, quiz.PassingGrade)

		return tx.Model(&attempt).Updates(map[string]interface{}{
			"score":     attempt.Score,
			"is_passed": attempt.IsPassed,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return &attempt, nil
}

// retakeFactor is the per-question point multiplier for this attempt. The
// penalty applies from the second attempt on and never drives points negative.
func retakeFactor(quiz *models.Quiz, attemptNumber int) float64 {
	if attemptNumber <= 1 || quiz.PointsCutAfterRetake == nil {
		return 1
	}
	factor := 1 - *quiz.PointsCutAfterRetake/100
	if factor < 0 {
		return 0
	}
	return factor
}

// passDenominator sums the points of the quiz's machine-gradable questions.
// The base totals are used unless the deployment opted into penalized totals.
func (g *Grader) passDenominator(quiz *models.Quiz, factor float64) float64 {
	var total float64
	for _, question := range quiz.Questions {
		if question.QuestionType == models.QuestionTypeEssay {
			continue
		}
		total += question.Points
	}
	if g.Cfg.PenalizedPassDenominator {
		total *= factor
	}
	return total
}

// manualPassDenominator includes essay questions, since their points become
// reachable once manual grades land.
func (g *Grader) manualPassDenominator(quiz *models.Quiz, factor float64) float64 {
	var total float64
	for _, question := range quiz.Questions {
		total += question.Points
	}
	if g.Cfg.PenalizedPassDenominator {
		total *= factor
	}
	return total
}

func passed(score, totalPoints, passingGrade float64) bool {
	if totalPoints <= 0 {
		return false
	}
	return score/totalPoints*100 >= passingGrade
}

func correctOptionIDs(question *models.Question) []uint {
	ids := make([]uint, 0)
	for _, option := range question.Options {
		if option.IsCorrect {
			ids = append(ids, option.ID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// sameIDSet is order-independent exact set equality; partial credit is not
// supported.
func sameIDSet(submitted, correct []uint) bool {
	if len(correct) == 0 {
		return false
	}
	set := make(map[uint]bool, len(submitted))
	for _, id := range submitted {
		set[id] = true
	}
	if len(set) != len(correct) {
		return false
	}
	for _, id := range correct {
		if !set[id] {
			return false
		}
	}
	return true
}

func sortedIDs(ids []uint) []uint {
	out := make([]uint, len(ids))
	copy(out, ids)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func mustJSON(v interface{}) datatypes.JSON {
	raw, _ := json.Marshal(v)
	return datatypes.JSON(raw)
}
