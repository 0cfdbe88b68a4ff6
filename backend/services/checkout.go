package services

import (
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"
	midtrans "github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/snap"
	"gorm.io/gorm"

	"project/backend/config"
	"project/backend/models"
)

// CheckoutSession is what the client needs to complete a hosted payment.
type CheckoutSession struct {
	OrderID     string  `json:"order_id"`
	Token       string  `json:"token"`
	RedirectURL string  `json:"redirect_url"`
	Amount      float64 `json:"amount"`
}

// CheckoutService creates hosted-checkout transactions with the Midtrans Snap
// API and translates its status notifications into the reconciler's webhook
// events, so both gateways drive enrollment through the same path.
type CheckoutService struct {
	DB   *gorm.DB
	Cfg  *config.Config
	Log  *log.Logger
	snap snap.Client
}

func NewCheckoutService(db *gorm.DB, cfg *config.Config, logger *log.Logger) *CheckoutService {
	s := &CheckoutService{DB: db, Cfg: cfg, Log: logger}
	if cfg.MidtransServerKey != "" {
		s.snap.New(cfg.MidtransServerKey, midtrans.Sandbox)
	}
	return s
}

// CreateCheckout opens one Snap transaction covering the given published
// courses and records a pending payment per course under the order id. The
// reconciler's upsert later flips these rows to completed.
func (s *CheckoutService) CreateCheckout(user *models.User, courseIDs []uint) (*CheckoutSession, error) {
	if len(courseIDs) == 0 {
		return nil, errors.New("no courses in checkout")
	}

	var courses []models.Course
	if err := s.DB.Where("id IN ? AND status = ?", courseIDs, "published").Find(&courses).Error; err != nil {
		return nil, err
	}
	if len(courses) != len(courseIDs) {
		return nil, ErrCourseNotFound
	}

	var total int64
	for _, course := range courses {
		total += course.Price
	}
	// Snap charges in whole currency units; a fractional total would be
	// silently truncated, charging less than the recorded payment rows.
	if total%100 != 0 {
		return nil, ErrInvalidPrice
	}

	orderID := "order-" + uuid.New().String()
	for _, course := range courses {
		payment := models.Payment{
			UserID:          user.ID,
			CourseID:        course.ID,
			PaymentIntentID: orderID,
			Amount:          float64(course.Price) / 100,
			Currency:        course.Currency,
			Status:          models.PaymentStatusPending,
			Method:          "midtrans",
		}
		if err := s.DB.Create(&payment).Error; err != nil {
			return nil, err
		}
	}

	req := &snap.Request{
		TransactionDetails: midtrans.TransactionDetails{
			OrderID:  orderID,
			GrossAmt: total / 100,
		},
		CustomerDetail: &midtrans.CustomerDetails{
			FName: user.Name,
			Email: user.Email,
		},
	}

	resp, snapErr := s.snap.CreateTransaction(req)
	if snapErr != nil {
		return nil, fmt.Errorf("create snap transaction: %w", snapErr)
	}

	return &CheckoutSession{
		OrderID:     orderID,
		Token:       resp.Token,
		RedirectURL: resp.RedirectURL,
		Amount:      float64(total) / 100,
	}, nil
}

// HandleNotification processes a Midtrans status notification. Settled
// transactions are replayed through the reconciler as a payment-succeeded
// event reconstructed from the pending payment rows of the order.
func (s *CheckoutService) HandleNotification(body map[string]interface{}, reconciler *Reconciler) error {
	orderID, ok1 := body["order_id"].(string)
	status, ok2 := body["transaction_status"].(string)
	if !ok1 || !ok2 {
		s.Log.Printf("discarding midtrans notification: incomplete payload")
		return nil
	}

	switch status {
	case "capture", "settlement":
		event, err := s.eventForOrder(orderID, body)
		if err != nil {
			return err
		}
		if event == nil {
			s.Log.Printf("midtrans notification for unknown order %s", orderID)
			return nil
		}
		return reconciler.HandlePaymentSucceeded(event)

	case "expire", "cancel", "deny":
		return s.DB.Model(&models.Payment{}).
			Where("payment_intent_id = ? AND status = ?", orderID, models.PaymentStatusPending).
			Update("status", models.PaymentStatusFailed).Error

	default:
		s.Log.Printf("midtrans status %q for order %s not processed", status, orderID)
		return nil
	}
}

func (s *CheckoutService) eventForOrder(orderID string, body map[string]interface{}) (*WebhookEvent, error) {
	var payments []models.Payment
	if err := s.DB.Where("payment_intent_id = ?", orderID).Find(&payments).Error; err != nil {
		return nil, err
	}
	if len(payments) == 0 {
		return nil, nil
	}

	event := &WebhookEvent{
		Type:            EventPaymentSucceeded,
		PaymentIntentID: orderID,
		UserID:          payments[0].UserID,
		Method:          "midtrans",
	}
	if txn, ok := body["transaction_id"].(string); ok {
		event.TransactionID = txn
	}
	for _, payment := range payments {
		event.CourseIDs = append(event.CourseIDs, payment.CourseID)
		event.Amount += payment.Amount
	}
	return event, nil
}
