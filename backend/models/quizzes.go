package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Quiz struct {
	gorm.Model
	Title                string `gorm:"not null"`
	Description          string
	PassingGrade         float64  `gorm:"default:50"` // percentage
	MaxAttempts          *int     // nil = unlimited
	PointsCutAfterRetake *float64 // percentage deducted per attempt beyond the first
	Questions            []Question
}

const (
	QuestionTypeMCQ       = "mcq"
	QuestionTypeTrueFalse = "true_false"
	QuestionTypeEssay     = "essay" // free text, graded manually
)

type Question struct {
	gorm.Model
	QuizID       uint    `gorm:"index;not null"`
	QuestionType string  `gorm:"default:mcq"`
	Prompt       string  `gorm:"type:text"`
	Points       float64 `gorm:"default:1"`
	Position     int     `gorm:"default:0"`
	Options      []Option
}

type Option struct {
	gorm.Model
	QuestionID uint `gorm:"index;not null"`
	Text       string
	IsCorrect  bool `gorm:"default:false"`
	Position   int  `gorm:"default:0"`
}

// QuizAttempt rows are append-only history; a submission never mutates a
// prior attempt. The unique (user, quiz, attempt_number) index rejects two
// racing submissions claiming the same ordinal.
type QuizAttempt struct {
	gorm.Model
	QuizID        uint `gorm:"index;not null;uniqueIndex:idx_attempt_ordinal"`
	UserID        uint `gorm:"index;not null;uniqueIndex:idx_attempt_ordinal"`
	CourseID      uint `gorm:"index;not null"`
	Score         float64
	AutoScore     float64 // machine-graded portion; Score = AutoScore + manual grades
	StartedAt     time.Time
	CompletedAt   *time.Time
	IsPassed      bool `gorm:"default:false"`
	IsExpired     bool `gorm:"default:false"`
	AttemptNumber int  `gorm:"not null;uniqueIndex:idx_attempt_ordinal"`
	Answers       []QuizAttemptAnswer
}

// QuizAttemptAnswer snapshots the correct option set at grading time so later
// edits to Options never change historical grading.
type QuizAttemptAnswer struct {
	gorm.Model
	QuizAttemptID    uint           `gorm:"index;not null"`
	QuestionID       uint           `gorm:"not null"`
	UserAnswerIDs    datatypes.JSON // []uint
	CorrectAnswerIDs datatypes.JSON // []uint
	TextAnswer       string         `gorm:"type:text"` // essay submissions
	IsCorrect        bool           `gorm:"default:false"`
	RequiresManual   bool           `gorm:"default:false"`
}

// ManualGrade holds instructor-awarded points for essay questions, keyed by
// (attempt, question) so re-submitting a grade replaces rather than adds.
type ManualGrade struct {
	gorm.Model
	QuizAttemptID uint    `gorm:"not null;uniqueIndex:idx_manual_grade"`
	QuestionID    uint    `gorm:"not null;uniqueIndex:idx_manual_grade"`
	AwardedPoints float64 `gorm:"default:0"`
	GradedBy      uint
}
