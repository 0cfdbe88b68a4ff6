package services

import (
	"log"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"project/backend/config"
	"project/backend/models"
)

// Reconciler turns payment-gateway webhook events into durable Payment and
// Enrollment state. It is idempotent under at-least-once delivery because
// payments are upserted by their natural key and enrollments are
// first-or-created, never reset.
type Reconciler struct {
	DB     *gorm.DB
	Cfg    *config.Config
	Agg    *Aggregator
	Notify Notifier
	Log    *log.Logger
}

func NewReconciler(db *gorm.DB, cfg *config.Config, agg *Aggregator, notify Notifier, logger *log.Logger) *Reconciler {
	return &Reconciler{DB: db, Cfg: cfg, Agg: agg, Notify: notify, Log: logger}
}

// HandleEvent dispatches a normalized webhook event. Unknown event types are
// acknowledged and ignored.
func (r *Reconciler) HandleEvent(event *WebhookEvent) error {
	switch event.Type {
	case EventPaymentSucceeded:
		return r.HandlePaymentSucceeded(event)
	case EventChargeRefunded:
		return r.HandleChargeRefunded(event)
	default:
		r.Log.Printf("ignoring webhook event type %q", event.Type)
		return nil
	}
}

// HandlePaymentSucceeded records one completed payment per covered course and
// enrolls the user where they are not already enrolled. Malformed events are
// logged and discarded so the gateway stops retrying an unfixable payload.
// A failure for one course never aborts the remaining courses; the first
// error is returned so the gateway redelivers, which the upserts make cheap.
func (r *Reconciler) HandlePaymentSucceeded(event *WebhookEvent) error {
	if event.UserID == 0 || len(event.CourseIDs) == 0 {
		r.Log.Printf("discarding webhook event %q (intent %s): missing user_id or course_ids",
			event.Type, event.PaymentIntentID)
		return nil
	}
	if r.Cfg.StripeWebhookURL != "" && event.WebhookURL != "" && event.WebhookURL != r.Cfg.StripeWebhookURL {
		r.Log.Printf("discarding webhook event %q (intent %s): endpoint mismatch %q",
			event.Type, event.PaymentIntentID, event.WebhookURL)
		return nil
	}

	// Equal split across the checkout's courses.
	perCourseAmount := event.Amount / float64(len(event.CourseIDs))

	var firstErr error
	for _, courseID := range event.CourseIDs {
		if err := r.reconcileCourse(event, courseID, perCourseAmount); err != nil {
			r.Log.Printf("reconcile intent %s course %d: %v", event.PaymentIntentID, courseID, err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (r *Reconciler) reconcileCourse(event *WebhookEvent, courseID uint, amount float64) error {
	var created bool
	var enrollment models.Enrollment

	err := r.DB.Transaction(func(tx *gorm.DB) error {
		payment := models.Payment{
			UserID:          event.UserID,
			CourseID:        courseID,
			PaymentIntentID: event.PaymentIntentID,
			Amount:          amount,
			Status:          models.PaymentStatusCompleted,
			Method:          event.Method,
			TransactionID:   event.TransactionID,
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "payment_intent_id"}, {Name: "course_id"}, {Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"status", "amount", "method", "transaction_id", "updated_at",
			}),
		}).Create(&payment).Error; err != nil {
			return err
		}

		// Never re-enroll or reset an existing enrollment.
		result := tx.Where("user_id = ? AND course_id = ?", event.UserID, courseID).
			Attrs(models.Enrollment{
				EnrolledAt: time.Now(),
				Status:     models.EnrollmentStatusEnrolled,
			}).
			FirstOrCreate(&enrollment)
		if result.Error != nil {
			return result.Error
		}
		created = result.RowsAffected > 0
		return nil
	})
	if err != nil {
		return err
	}

	if created {
		if _, err := r.Agg.Recompute(event.UserID, courseID); err != nil {
			r.Log.Printf("initialize progress for user %d course %d: %v", event.UserID, courseID, err)
		}
		if r.Notify != nil {
			var course models.Course
			title := ""
			if err := r.DB.First(&course, courseID).Error; err == nil {
				title = course.Title
			}
			r.Notify.Send(event.UserID, models.NotificationEnrollmentCreated, map[string]interface{}{
				"course_id":    courseID,
				"course_title": title,
			})
		}
	}
	return nil
}

// HandleChargeRefunded marks the matching payments refunded. Enrollment and
// progress are left untouched; a refund does not erase learning history.
func (r *Reconciler) HandleChargeRefunded(event *WebhookEvent) error {
	if event.PaymentIntentID == "" {
		r.Log.Printf("discarding refund event: missing payment intent reference")
		return nil
	}

	result := r.DB.Model(&models.Payment{}).
		Where("payment_intent_id = ?", event.PaymentIntentID).
		Update("status", models.PaymentStatusRefunded)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		r.Log.Printf("refund for unknown intent %s", event.PaymentIntentID)
	}
	return nil
}
