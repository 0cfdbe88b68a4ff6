package routes

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"project/backend/config"
	"project/backend/models"
	"project/backend/utils"
)

func newTestApp(t *testing.T) (*fiber.App, *gorm.DB, *config.Config) {
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

	cfg := &config.Config{
		JWTSecret:           "test-secret",
		CompletionThreshold: 100,
		DefaultPassingGrade: 50,
		CertificateBaseURL:  "https://certs.test",
	}

	app := fiber.New()
	SetupRoutes(app, db, cfg, log.New(io.Discard, "", 0))
	return app, db, cfg
}

func doJSON(t *testing.T, app *fiber.App, method, path, token string, payload interface{}) (int, map[string]interface{}) {
	t.Helper()

	var body *bytes.Buffer
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewBuffer(raw)
	} else {
		body = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", token)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	var result map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&result)
	return resp.StatusCode, result
}

func registerUser(t *testing.T, app *fiber.App, username string) (string, uint) {
	t.Helper()

	status, result := doJSON(t, app, "POST", "/api/auth/register", "", map[string]interface{}{
		"username": username,
		"email":    username + "@example.com",
		"password": "password123",
		"name":     username,
	})
	require.Equal(t, fiber.StatusOK, status)
	token := result["token"].(string)
	userID := uint(result["user"].(map[string]interface{})["id"].(float64))
	return token, userID
}

func TestRegisterValidation(t *testing.T) {
	app, _, _ := newTestApp(t)

	status, _ := doJSON(t, app, "POST", "/api/auth/register", "", map[string]interface{}{
		"username": "al",
		"email":    "not-an-email",
		"password": "short",
	})
	assert.Equal(t, fiber.StatusUnprocessableEntity, status)
}

func TestLoginWrongPassword(t *testing.T) {
	app, _, _ := newTestApp(t)
	registerUser(t, app, "alice")

	status, _ := doJSON(t, app, "POST", "/api/auth/login", "", map[string]interface{}{
		"username": "alice",
		"password": "wrong-password",
	})
	assert.Equal(t, fiber.StatusUnauthorized, status)
}

func TestStaffRoutesRequireRole(t *testing.T) {
	app, _, _ := newTestApp(t)
	token, _ := registerUser(t, app, "student1")

	status, _ := doJSON(t, app, "POST", "/api/admin/courses/", token, map[string]interface{}{
		"title": "Sneaky Course",
	})
	assert.Equal(t, fiber.StatusForbidden, status)
}

// TestMarkCompleteRequiresEnrollment: completing a lesson in a course the
// user never bought is rejected and leaves no progress row behind.
func TestMarkCompleteRequiresEnrollment(t *testing.T) {
	app, db, _ := newTestApp(t)
	token, _ := registerUser(t, app, "drifter")

	course := models.Course{Title: "Locked Course", Status: "published", Price: 4900}
	require.NoError(t, db.Create(&course).Error)
	lesson := models.Lesson{Title: "Members Only"}
	require.NoError(t, db.Create(&lesson).Error)

	status, _ := doJSON(t, app, "POST", fmt.Sprintf("/api/lessons/%d/complete", lesson.ID), token, map[string]interface{}{
		"course_id": course.ID,
	})
	assert.Equal(t, fiber.StatusNotFound, status)

	var rows int64
	db.Model(&models.LessonProgress{}).Count(&rows)
	assert.Equal(t, int64(0), rows)
}

// TestSubmitAttemptRequiresEnrollment: a quiz submission in a course context
// without an enrollment is rejected before any attempt is recorded.
func TestSubmitAttemptRequiresEnrollment(t *testing.T) {
	app, db, _ := newTestApp(t)
	token, _ := registerUser(t, app, "lurker")

	course := models.Course{Title: "Locked Course", Status: "published", Price: 4900}
	require.NoError(t, db.Create(&course).Error)
	quiz := models.Quiz{
		Title:        "Gatekeeper",
		PassingGrade: 50,
		Questions: []models.Question{
			{
				QuestionType: models.QuestionTypeMCQ,
				Prompt:       "Knock knock?",
				Points:       2,
				Options: []models.Option{
					{Text: "Who is there", IsCorrect: true},
				},
			},
		},
	}
	require.NoError(t, db.Create(&quiz).Error)

	status, _ := doJSON(t, app, "POST", fmt.Sprintf("/api/quizzes/%d/attempts", quiz.ID), token, map[string]interface{}{
		"course_id": course.ID,
		"answers": []map[string]interface{}{
			{"question_id": quiz.Questions[0].ID, "selected_option_ids": []uint{quiz.Questions[0].Options[0].ID}},
		},
	})
	assert.Equal(t, fiber.StatusNotFound, status)

	var attempts int64
	db.Model(&models.QuizAttempt{}).Count(&attempts)
	assert.Equal(t, int64(0), attempts)
}

// TestStudentJourney walks one student from payment to certificate: webhook
// enrollment, lesson completion, quiz pass, full progress, one verifiable
// certificate.
func TestStudentJourney(t *testing.T) {
	app, db, _ := newTestApp(t)

	instructorToken, instructorID := registerUser(t, app, "instructor")
	require.NoError(t, db.Model(&models.User{}).Where("id = ?", instructorID).Update("role", "instructor").Error)

	studentToken, studentID := registerUser(t, app, "student")

	// Instructor builds a course: one lesson, one quiz.
	status, result := doJSON(t, app, "POST", "/api/admin/courses/", instructorToken, map[string]interface{}{
		"title":      "Go for Beginners",
		"short_desc": "An introduction",
		"price":      4900,
	})
	require.Equal(t, fiber.StatusOK, status)
	courseID := uint(result["course"].(map[string]interface{})["ID"].(float64))

	status, result = doJSON(t, app, "POST", fmt.Sprintf("/api/admin/courses/%d/sections", courseID), instructorToken, map[string]interface{}{
		"title": "Getting Started",
	})
	require.Equal(t, fiber.StatusOK, status)
	sectionID := uint(result["section"].(map[string]interface{})["ID"].(float64))

	status, result = doJSON(t, app, "POST", "/api/admin/courses/lessons", instructorToken, map[string]interface{}{
		"title": "Installing Go",
	})
	require.Equal(t, fiber.StatusOK, status)
	lessonID := uint(result["lesson"].(map[string]interface{})["ID"].(float64))

	status, _ = doJSON(t, app, "POST", fmt.Sprintf("/api/admin/courses/sections/%d/items", sectionID), instructorToken, map[string]interface{}{
		"item_type": "lesson",
		"item_id":   lessonID,
	})
	require.Equal(t, fiber.StatusOK, status)

	status, result = doJSON(t, app, "POST", "/api/admin/quizzes/", instructorToken, map[string]interface{}{
		"title": "Checkpoint",
	})
	require.Equal(t, fiber.StatusOK, status)
	quizID := uint(result["quiz"].(map[string]interface{})["ID"].(float64))

	status, result = doJSON(t, app, "POST", fmt.Sprintf("/api/admin/quizzes/%d/questions", quizID), instructorToken, map[string]interface{}{
		"prompt":        "Which command builds a module?",
		"question_type": "mcq",
		"points":        2,
		"options": []map[string]interface{}{
			{"text": "go build", "is_correct": true},
			{"text": "go fmt", "is_correct": false},
		},
	})
	require.Equal(t, fiber.StatusOK, status)
	question := result["question"].(map[string]interface{})
	questionID := uint(question["ID"].(float64))
	options := question["Options"].([]interface{})
	correctOptionID := uint(options[0].(map[string]interface{})["ID"].(float64))

	status, _ = doJSON(t, app, "POST", fmt.Sprintf("/api/admin/courses/sections/%d/items", sectionID), instructorToken, map[string]interface{}{
		"item_type": "quiz",
		"item_id":   quizID,
	})
	require.Equal(t, fiber.StatusOK, status)

	status, _ = doJSON(t, app, "PUT", fmt.Sprintf("/api/admin/courses/%d", courseID), instructorToken, map[string]interface{}{
		"status": "published",
	})
	require.Equal(t, fiber.StatusOK, status)

	// Gateway webhook enrolls the student. Delivered twice on purpose.
	webhook := map[string]interface{}{
		"type": "payment_intent.succeeded",
		"data": map[string]interface{}{
			"object": map[string]interface{}{
				"id":     "pi_journey",
				"amount": 4900,
				"metadata": map[string]interface{}{
					"user_id":    fmt.Sprintf("%d", studentID),
					"course_ids": fmt.Sprintf("%d", courseID),
				},
			},
		},
	}
	status, _ = doJSON(t, app, "POST", "/api/webhooks/stripe", "", webhook)
	require.Equal(t, fiber.StatusOK, status)
	status, _ = doJSON(t, app, "POST", "/api/webhooks/stripe", "", webhook)
	require.Equal(t, fiber.StatusOK, status)

	var enrollments int64
	db.Model(&models.Enrollment{}).Where("user_id = ?", studentID).Count(&enrollments)
	require.Equal(t, int64(1), enrollments)

	// Lesson done: half the course.
	status, result = doJSON(t, app, "POST", fmt.Sprintf("/api/lessons/%d/complete", lessonID), studentToken, map[string]interface{}{
		"course_id": courseID,
	})
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, float64(50), result["progress"])

	// Quiz passed: course complete.
	status, result = doJSON(t, app, "POST", fmt.Sprintf("/api/quizzes/%d/attempts", quizID), studentToken, map[string]interface{}{
		"course_id": courseID,
		"answers": []map[string]interface{}{
			{"question_id": questionID, "selected_option_ids": []uint{correctOptionID}},
		},
	})
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, true, result["is_passed"])

	status, result = doJSON(t, app, "GET", fmt.Sprintf("/api/progress/%d", courseID), studentToken, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, float64(100), result["progress"])
	assert.Equal(t, "completed", result["status"])

	var certificate models.Certificate
	require.NoError(t, db.First(&certificate).Error)

	status, result = doJSON(t, app, "GET", "/api/certificates/verify/"+certificate.CertificateCode, "", nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, true, result["is_valid"])
	assert.Equal(t, "student", result["student_name"])
	assert.Equal(t, "Go for Beginners", result["course_title"])
}
