package models

import "gorm.io/gorm"

const (
	PaymentStatusPending   = "pending"
	PaymentStatusCompleted = "completed"
	PaymentStatusFailed    = "failed"
	PaymentStatusRefunded  = "refunded"
)

// Payment is upserted by the natural key (payment_intent_id, course_id,
// user_id) so duplicate webhook deliveries never create a second row.
type Payment struct {
	gorm.Model
	UserID          uint   `gorm:"not null;uniqueIndex:idx_payment_natural_key"`
	CourseID        uint   `gorm:"not null;uniqueIndex:idx_payment_natural_key"`
	PaymentIntentID string `gorm:"not null;uniqueIndex:idx_payment_natural_key"`
	Amount          float64
	Currency        string `gorm:"default:usd"`
	Status          string `gorm:"default:pending"`
	Method          string
	TransactionID   string
}
