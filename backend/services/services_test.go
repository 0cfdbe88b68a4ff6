package services

import (
	"io"
	"log"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"project/backend/config"
	"project/backend/models"
	"project/backend/utils"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, utils.Migrate(db))
	return db
}

func newTestConfig() *config.Config {
	return &config.Config{
		CompletionThreshold: 100,
		DefaultPassingGrade: 50,
		CertificateBaseURL:  "https://certs.test",
	}
}

func newTestLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

// recordingNotifier captures events instead of sending email.
type recordingNotifier struct {
	events []recordedEvent
}

type recordedEvent struct {
	UserID uint
	Type   string
}

func (n *recordingNotifier) Send(userID uint, eventType string, payload map[string]interface{}) {
	n.events = append(n.events, recordedEvent{UserID: userID, Type: eventType})
}

func (n *recordingNotifier) countOf(eventType string) int {
	count := 0
	for _, event := range n.events {
		if event.Type == eventType {
			count++
		}
	}
	return count
}

// newStack builds the full progress pipeline against the given database.
func newStack(t *testing.T, db *gorm.DB, cfg *config.Config) (*Aggregator, *CertificateIssuer, *recordingNotifier) {
	t.Helper()

	notifier := &recordingNotifier{}
	logger := newTestLogger()
	graph := NewContentGraph(db)
	tracker := NewLessonTracker(db)
	issuer := NewCertificateIssuer(db, URLRenderer{BaseURL: cfg.CertificateBaseURL}, notifier, logger)
	aggregator := NewAggregator(db, cfg, graph, tracker, issuer, notifier, logger)
	return aggregator, issuer, notifier
}

func seedUser(t *testing.T, db *gorm.DB, name string) models.User {
	t.Helper()

	user := models.User{
		Username:     name,
		Email:        name + "@example.com",
		PasswordHash: "x",
		Name:         name,
		Role:         "student",
	}
	require.NoError(t, db.Create(&user).Error)
	return user
}

// seedCourse creates a published course with one section holding the given
// number of lessons, in order.
func seedCourse(t *testing.T, db *gorm.DB, lessonCount int) (models.Course, []models.Lesson) {
	t.Helper()

	course := models.Course{Title: "Intro to Databases", Status: "published", Price: 4900}
	require.NoError(t, db.Create(&course).Error)

	section := models.Section{CourseID: course.ID, Title: "Week 1", Position: 1}
	require.NoError(t, db.Create(&section).Error)

	lessons := make([]models.Lesson, 0, lessonCount)
	for i := 0; i < lessonCount; i++ {
		lesson := models.Lesson{Title: "Lesson"}
		require.NoError(t, db.Create(&lesson).Error)
		require.NoError(t, db.Create(&models.SectionItem{
			SectionID: section.ID,
			ItemType:  models.ItemTypeLesson,
			ItemID:    lesson.ID,
			Position:  i + 1,
		}).Error)
		lessons = append(lessons, lesson)
	}
	return course, lessons
}

// attachQuiz adds a quiz as the last item of the course's first section.
func attachQuiz(t *testing.T, db *gorm.DB, course models.Course, quiz *models.Quiz) {
	t.Helper()

	require.NoError(t, db.Create(quiz).Error)

	var section models.Section
	require.NoError(t, db.Where("course_id = ?", course.ID).First(&section).Error)

	var count int64
	db.Model(&models.SectionItem{}).Where("section_id = ?", section.ID).Count(&count)
	require.NoError(t, db.Create(&models.SectionItem{
		SectionID: section.ID,
		ItemType:  models.ItemTypeQuiz,
		ItemID:    quiz.ID,
		Position:  int(count) + 1,
	}).Error)
}

func seedEnrollment(t *testing.T, db *gorm.DB, userID, courseID uint) models.Enrollment {
	t.Helper()

	enrollment := models.Enrollment{
		UserID:   userID,
		CourseID: courseID,
		Status:   models.EnrollmentStatusEnrolled,
	}
	require.NoError(t, db.Create(&enrollment).Error)
	return enrollment
}
