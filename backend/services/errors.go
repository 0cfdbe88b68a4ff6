package services

import "errors"

var (
	ErrCourseNotFound     = errors.New("course not found")
	ErrLessonNotFound     = errors.New("lesson not found")
	ErrQuizNotFound       = errors.New("quiz not found")
	ErrAttemptNotFound    = errors.New("attempt not found")
	ErrEnrollmentNotFound = errors.New("enrollment not found")
	ErrInvalidSubmission  = errors.New("answer references a question outside the quiz")
	ErrAttemptLimit       = errors.New("no attempts left for this quiz")
	ErrInvalidTimeDelta   = errors.New("time delta must not be negative")
	ErrNotManuallyGraded  = errors.New("question is not flagged for manual grading")
	ErrInvalidPrice       = errors.New("checkout total is not a whole currency amount")
)
