package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"project/backend/models"
)

// seedMCQQuiz creates a quiz with one multi-select question worth 4 points
// whose correct set is the first two of three options.
func seedMCQQuiz(t *testing.T, db *gorm.DB, maxAttempts *int) (models.Quiz, models.Question) {
	t.Helper()

	quiz := models.Quiz{Title: "SQL Basics", PassingGrade: 50, MaxAttempts: maxAttempts}
	require.NoError(t, db.Create(&quiz).Error)

	question := models.Question{
		QuizID:       quiz.ID,
		QuestionType: models.QuestionTypeMCQ,
		Prompt:       "Which statements read data?",
		Points:       4,
		Options: []models.Option{
			{Text: "SELECT", IsCorrect: true},
			{Text: "WITH", IsCorrect: true},
			{Text: "DROP", IsCorrect: false},
		},
	}
	require.NoError(t, db.Create(&question).Error)
	return quiz, question
}

func TestSubmitRequiresExactOptionSet(t *testing.T) {
	db := newTestDB(t)
	grader := NewGrader(db, newTestConfig())
	user := seedUser(t, db, "alice")
	quiz, question := seedMCQQuiz(t, db, nil)

	a, b, c := question.Options[0].ID, question.Options[1].ID, question.Options[2].ID

	cases := []struct {
		name     string
		selected []uint
		score    float64
	}{
		{"subset earns nothing", []uint{a}, 0},
		{"superset earns nothing", []uint{a, b, c}, 0},
		{"exact set earns full points", []uint{b, a}, 4},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			result, err := grader.Submit(user.ID, quiz.ID, 0, []AnswerInput{
				{QuestionID: question.ID, SelectedOptionIDs: tc.selected},
			})
			require.NoError(t, err)
			assert.Equal(t, tc.score, result.Score)
			assert.Equal(t, float64(4), result.TotalPoints)
		})
	}
}

func TestSubmitRejectsForeignQuestion(t *testing.T) {
	db := newTestDB(t)
	grader := NewGrader(db, newTestConfig())
	user := seedUser(t, db, "alice")
	quiz, _ := seedMCQQuiz(t, db, nil)

	other := models.Quiz{Title: "Other"}
	require.NoError(t, db.Create(&other).Error)
	foreign := models.Question{QuizID: other.ID, QuestionType: models.QuestionTypeMCQ, Points: 1}
	require.NoError(t, db.Create(&foreign).Error)

	_, err := grader.Submit(user.ID, quiz.ID, 0, []AnswerInput{
		{QuestionID: foreign.ID, SelectedOptionIDs: []uint{1}},
	})
	assert.ErrorIs(t, err, ErrInvalidSubmission)

	// A rejected submission must not burn an attempt.
	var count int64
	db.Model(&models.QuizAttempt{}).Where("user_id = ?", user.ID).Count(&count)
	assert.Equal(t, int64(0), count)
}

func TestSubmitEnforcesAttemptLimit(t *testing.T) {
	db := newTestDB(t)
	grader := NewGrader(db, newTestConfig())
	user := seedUser(t, db, "alice")
	max := 2
	quiz, question := seedMCQQuiz(t, db, &max)

	answers := []AnswerInput{{QuestionID: question.ID, SelectedOptionIDs: []uint{question.Options[2].ID}}}

	first, err := grader.Submit(user.ID, quiz.ID, 0, answers)
	require.NoError(t, err)
	assert.Equal(t, 1, first.AttemptNumber)

	second, err := grader.Submit(user.ID, quiz.ID, 0, answers)
	require.NoError(t, err)
	assert.Equal(t, 2, second.AttemptNumber)

	_, err = grader.Submit(user.ID, quiz.ID, 0, answers)
	assert.ErrorIs(t, err, ErrAttemptLimit)
}

func TestSubmitAppliesRetakePenalty(t *testing.T) {
	db := newTestDB(t)
	grader := NewGrader(db, newTestConfig())
	user := seedUser(t, db, "alice")
	quiz, question := seedMCQQuiz(t, db, nil)

	cut := 50.0
	require.NoError(t, db.Model(&quiz).Update("points_cut_after_retake", &cut).Error)

	correct := []AnswerInput{{QuestionID: question.ID, SelectedOptionIDs: []uint{question.Options[0].ID, question.Options[1].ID}}}

	first, err := grader.Submit(user.ID, quiz.ID, 0, correct)
	require.NoError(t, err)
	assert.Equal(t, float64(4), first.Score)
	assert.True(t, first.IsPassed)

	// Second attempt earns half points; denominator stays at base totals,
	// so 2/4 = 50% still meets the passing grade.
	second, err := grader.Submit(user.ID, quiz.ID, 0, correct)
	require.NoError(t, err)
	assert.Equal(t, float64(2), second.Score)
	assert.Equal(t, float64(4), second.TotalPoints)
	assert.True(t, second.IsPassed)
}

func TestSubmitPenalizedDenominatorOptIn(t *testing.T) {
	db := newTestDB(t)
	cfg := newTestConfig()
	cfg.PenalizedPassDenominator = true
	grader := NewGrader(db, cfg)
	user := seedUser(t, db, "alice")
	quiz, question := seedMCQQuiz(t, db, nil)

	cut := 50.0
	require.NoError(t, db.Model(&quiz).Update("points_cut_after_retake", &cut).Error)

	correct := []AnswerInput{{QuestionID: question.ID, SelectedOptionIDs: []uint{question.Options[0].ID, question.Options[1].ID}}}

	_, err := grader.Submit(user.ID, quiz.ID, 0, correct)
	require.NoError(t, err)

	second, err := grader.Submit(user.ID, quiz.ID, 0, correct)
	require.NoError(t, err)
	assert.Equal(t, float64(2), second.Score)
	assert.Equal(t, float64(2), second.TotalPoints)
	assert.True(t, second.IsPassed)
}

func TestSubmitSnapshotsCorrectSet(t *testing.T) {
	db := newTestDB(t)
	grader := NewGrader(db, newTestConfig())
	user := seedUser(t, db, "alice")
	quiz, question := seedMCQQuiz(t, db, nil)

	result, err := grader.Submit(user.ID, quiz.ID, 0, []AnswerInput{
		{QuestionID: question.ID, SelectedOptionIDs: []uint{question.Options[0].ID}},
	})
	require.NoError(t, err)

	var answer models.QuizAttemptAnswer
	require.NoError(t, db.Where("quiz_attempt_id = ?", result.AttemptID).First(&answer).Error)
	assert.JSONEq(t,
		mustJSON([]uint{question.Options[0].ID, question.Options[1].ID}).String(),
		answer.CorrectAnswerIDs.String())
}

func TestEssayGoesToManualGrading(t *testing.T) {
	db := newTestDB(t)
	grader := NewGrader(db, newTestConfig())
	user := seedUser(t, db, "alice")

	quiz := models.Quiz{Title: "Essay Quiz", PassingGrade: 50}
	require.NoError(t, db.Create(&quiz).Error)
	essay := models.Question{QuizID: quiz.ID, QuestionType: models.QuestionTypeEssay, Prompt: "Explain normalization", Points: 5}
	require.NoError(t, db.Create(&essay).Error)

	result, err := grader.Submit(user.ID, quiz.ID, 0, []AnswerInput{
		{QuestionID: essay.ID, TextAnswer: "It reduces redundancy."},
	})
	require.NoError(t, err)
	assert.Equal(t, float64(0), result.Score)
	assert.False(t, result.IsPassed)
	assert.Equal(t, []uint{essay.ID}, result.ManualGradingRequired)

	var answer models.QuizAttemptAnswer
	require.NoError(t, db.Where("quiz_attempt_id = ?", result.AttemptID).First(&answer).Error)
	assert.True(t, answer.RequiresManual)
	assert.Equal(t, "It reduces redundancy.", answer.TextAnswer)
}

func TestApplyManualScoreReplacesPriorGrade(t *testing.T) {
	db := newTestDB(t)
	grader := NewGrader(db, newTestConfig())
	user := seedUser(t, db, "alice")
	instructor := seedUser(t, db, "bob")

	quiz := models.Quiz{Title: "Essay Quiz", PassingGrade: 50}
	require.NoError(t, db.Create(&quiz).Error)
	essay := models.Question{QuizID: quiz.ID, QuestionType: models.QuestionTypeEssay, Points: 5}
	require.NoError(t, db.Create(&essay).Error)

	result, err := grader.Submit(user.ID, quiz.ID, 0, []AnswerInput{
		{QuestionID: essay.ID, TextAnswer: "answer"},
	})
	require.NoError(t, err)

	attempt, err := grader.ApplyManualScore(result.AttemptID, essay.ID, 5, instructor.ID)
	require.NoError(t, err)
	assert.Equal(t, float64(5), attempt.Score)
	assert.True(t, attempt.IsPassed)

	// Re-grading replaces the previous grade instead of adding to it.
	attempt, err = grader.ApplyManualScore(result.AttemptID, essay.ID, 2, instructor.ID)
	require.NoError(t, err)
	assert.Equal(t, float64(2), attempt.Score)
	assert.False(t, attempt.IsPassed)

	var grades int64
	db.Model(&models.ManualGrade{}).Where("quiz_attempt_id = ?", result.AttemptID).Count(&grades)
	assert.Equal(t, int64(1), grades)
}

func TestApplyManualScoreRejectsAutoGradedQuestion(t *testing.T) {
	db := newTestDB(t)
	grader := NewGrader(db, newTestConfig())
	user := seedUser(t, db, "alice")
	quiz, question := seedMCQQuiz(t, db, nil)

	result, err := grader.Submit(user.ID, quiz.ID, 0, []AnswerInput{
		{QuestionID: question.ID, SelectedOptionIDs: []uint{question.Options[0].ID}},
	})
	require.NoError(t, err)

	_, err = grader.ApplyManualScore(result.AttemptID, question.ID, 3, 1)
	assert.ErrorIs(t, err, ErrNotManuallyGraded)
}

func TestSameIDSetEmptyCorrectNeverMatches(t *testing.T) {
	assert.False(t, sameIDSet(nil, nil))
	assert.False(t, sameIDSet([]uint{}, []uint{}))
	assert.True(t, sameIDSet([]uint{2, 1}, []uint{1, 2}))
	assert.False(t, sameIDSet([]uint{1, 1, 2}, []uint{1}))
}
