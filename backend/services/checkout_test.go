package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"project/backend/models"
)

func TestHandleNotificationSettlementEnrolls(t *testing.T) {
	db := newTestDB(t)
	cfg := newTestConfig()
	reconciler, notifier := newTestReconciler(t, db, cfg)
	checkout := NewCheckoutService(db, cfg, newTestLogger())
	user := seedUser(t, db, "alice")
	courseA, _ := seedCourse(t, db, 1)
	courseB, _ := seedCourse(t, db, 1)

	// Pending rows as CreateCheckout would have written them.
	for _, course := range []models.Course{courseA, courseB} {
		require.NoError(t, db.Create(&models.Payment{
			UserID:          user.ID,
			CourseID:        course.ID,
			PaymentIntentID: "order-abc",
			Amount:          49,
			Status:          models.PaymentStatusPending,
			Method:          "midtrans",
		}).Error)
	}

	err := checkout.HandleNotification(map[string]interface{}{
		"order_id":           "order-abc",
		"transaction_status": "settlement",
		"transaction_id":     "mt_1",
	}, reconciler)
	require.NoError(t, err)

	var completed int64
	db.Model(&models.Payment{}).
		Where("payment_intent_id = ? AND status = ?", "order-abc", models.PaymentStatusCompleted).
		Count(&completed)
	assert.Equal(t, int64(2), completed)

	var enrollments int64
	db.Model(&models.Enrollment{}).Where("user_id = ?", user.ID).Count(&enrollments)
	assert.Equal(t, int64(2), enrollments)
	assert.Equal(t, 2, notifier.countOf(models.NotificationEnrollmentCreated))
}

func TestCreateCheckoutRejectsFractionalTotal(t *testing.T) {
	db := newTestDB(t)
	cfg := newTestConfig()
	checkout := NewCheckoutService(db, cfg, newTestLogger())
	user := seedUser(t, db, "alice")

	course := models.Course{Title: "Oddly Priced", Status: "published", Price: 4950}
	require.NoError(t, db.Create(&course).Error)

	_, err := checkout.CreateCheckout(&user, []uint{course.ID})
	assert.ErrorIs(t, err, ErrInvalidPrice)

	// No pending rows survive a rejected checkout.
	var payments int64
	db.Model(&models.Payment{}).Count(&payments)
	assert.Equal(t, int64(0), payments)
}

func TestHandleNotificationExpireFailsPending(t *testing.T) {
	db := newTestDB(t)
	cfg := newTestConfig()
	reconciler, _ := newTestReconciler(t, db, cfg)
	checkout := NewCheckoutService(db, cfg, newTestLogger())
	user := seedUser(t, db, "alice")
	course, _ := seedCourse(t, db, 1)

	require.NoError(t, db.Create(&models.Payment{
		UserID:          user.ID,
		CourseID:        course.ID,
		PaymentIntentID: "order-exp",
		Status:          models.PaymentStatusPending,
	}).Error)

	err := checkout.HandleNotification(map[string]interface{}{
		"order_id":           "order-exp",
		"transaction_status": "expire",
	}, reconciler)
	require.NoError(t, err)

	var payment models.Payment
	require.NoError(t, db.Where("payment_intent_id = ?", "order-exp").First(&payment).Error)
	assert.Equal(t, models.PaymentStatusFailed, payment.Status)

	var enrollments int64
	db.Model(&models.Enrollment{}).Count(&enrollments)
	assert.Equal(t, int64(0), enrollments)
}

func TestHandleNotificationUnknownOrder(t *testing.T) {
	db := newTestDB(t)
	cfg := newTestConfig()
	reconciler, _ := newTestReconciler(t, db, cfg)
	checkout := NewCheckoutService(db, cfg, newTestLogger())

	err := checkout.HandleNotification(map[string]interface{}{
		"order_id":           "order-missing",
		"transaction_status": "settlement",
	}, reconciler)
	assert.NoError(t, err)
}

func TestHandleNotificationIncompletePayload(t *testing.T) {
	db := newTestDB(t)
	cfg := newTestConfig()
	reconciler, _ := newTestReconciler(t, db, cfg)
	checkout := NewCheckoutService(db, cfg, newTestLogger())

	assert.NoError(t, checkout.HandleNotification(map[string]interface{}{"order_id": "x"}, reconciler))
}
