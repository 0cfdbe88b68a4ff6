package services

import (
	"encoding/json"
	"fmt"
	"log"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"project/backend/config"
	"project/backend/models"
)

// Notifier is the fire-and-forget notification sink. Implementations must
// never block the caller on delivery.
type Notifier interface {
	Send(userID uint, eventType string, payload map[string]interface{})
}

// EmailNotifier persists a notification row and duplicates it as an email via
// SendGrid. Email delivery runs in the background; failures are logged only.
type EmailNotifier struct {
	DB  *gorm.DB
	Cfg *config.Config
	Log *log.Logger
}

func NewEmailNotifier(db *gorm.DB, cfg *config.Config, logger *log.Logger) *EmailNotifier {
	return &EmailNotifier{DB: db, Cfg: cfg, Log: logger}
}

func (n *EmailNotifier) Send(userID uint, eventType string, payload map[string]interface{}) {
	raw, err := json.Marshal(payload)
	if err != nil {
		n.Log.Printf("notification payload for %s: %v", eventType, err)
		return
	}

	notification := models.Notification{
		UserID:    userID,
		EventType: eventType,
		Payload:   datatypes.JSON(raw),
	}
	if err := n.DB.Create(&notification).Error; err != nil {
		n.Log.Printf("store notification %s for user %d: %v", eventType, userID, err)
	}

	if n.Cfg.SendgridAPIKey == "" {
		return
	}
	go n.sendEmail(userID, eventType, payload)
}

func (n *EmailNotifier) sendEmail(userID uint, eventType string, payload map[string]interface{}) {
	var user models.User
	if err := n.DB.First(&user, userID).Error; err != nil {
		n.Log.Printf("email notification %s: user %d: %v", eventType, userID, err)
		return
	}

	subject, body := emailContent(eventType, payload)
	from := mail.NewEmail("Learning Platform", n.Cfg.EmailSender)
	to := mail.NewEmail(user.Name, user.Email)
	message := mail.NewSingleEmail(from, subject, to, body, body)

	client := sendgrid.NewSendClient(n.Cfg.SendgridAPIKey)
	response, err := client.Send(message)
	if err != nil {
		n.Log.Printf("send email %s to user %d: %v", eventType, userID, err)
		return
	}
	if response.StatusCode >= 400 {
		n.Log.Printf("send email %s to user %d: status %d", eventType, userID, response.StatusCode)
	}
}

func emailContent(eventType string, payload map[string]interface{}) (string, string) {
	switch eventType {
	case models.NotificationEnrollmentCreated:
		return "You are enrolled", fmt.Sprintf("You now have access to %v. Good luck!", payload["course_title"])
	case models.NotificationCourseCompleted:
		return "Course completed", fmt.Sprintf("Congratulations, you finished %v.", payload["course_title"])
	case models.NotificationCertificateIssued:
		return "Your certificate is ready", fmt.Sprintf("Certificate %v has been issued.", payload["certificate_code"])
	default:
		return eventType, "You have a new notification."
	}
}
