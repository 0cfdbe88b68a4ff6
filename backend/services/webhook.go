package services

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Gateway event types the reconciler understands.
const (
	EventPaymentSucceeded = "payment_intent.succeeded"
	EventChargeRefunded   = "charge.refunded"
)

// WebhookEvent is the normalized form of a gateway webhook payload.
type WebhookEvent struct {
	Type            string
	PaymentIntentID string
	Amount          float64 // major currency units
	UserID          uint
	CourseIDs       []uint
	Method          string
	TransactionID   string
	WebhookURL      string
}

// ParseWebhookEvent normalizes a gateway-shaped JSON payload. The event type
// defaults to payment_intent.succeeded when absent (sandbox payloads omit
// it), the object lives under data.object or object, amounts arrive in the
// smallest currency unit, and metadata carries user_id plus a comma-separated
// course_ids list. Missing metadata is not an error here; the reconciler
// decides whether to discard.
func ParseWebhookEvent(body []byte) (*WebhookEvent, error) {
	var raw map[string]interface{}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("decode webhook payload: %w", err)
	}

	event := &WebhookEvent{Type: EventPaymentSucceeded}
	if typ, ok := raw["type"].(string); ok && typ != "" {
		event.Type = typ
	}

	object := raw
	if data, ok := raw["data"].(map[string]interface{}); ok {
		if inner, ok := data["object"].(map[string]interface{}); ok {
			object = inner
		}
	} else if inner, ok := raw["object"].(map[string]interface{}); ok {
		object = inner
	}

	if amount, ok := toFloat(object["amount"]); ok {
		event.Amount = amount / 100
	}
	if intent, ok := object["payment_intent"].(string); ok && intent != "" {
		event.PaymentIntentID = intent
	} else if id, ok := object["id"].(string); ok {
		event.PaymentIntentID = id
	}
	if method, ok := object["payment_method_types"].([]interface{}); ok && len(method) > 0 {
		if first, ok := method[0].(string); ok {
			event.Method = first
		}
	}
	if txn, ok := object["latest_charge"].(string); ok {
		event.TransactionID = txn
	}

	metadata, _ := object["metadata"].(map[string]interface{})
	if metadata != nil {
		if id, ok := toFloat(metadata["user_id"]); ok {
			event.UserID = uint(id)
		} else if s, ok := metadata["user_id"].(string); ok {
			if parsed, err := strconv.ParseUint(s, 10, 64); err == nil {
				event.UserID = uint(parsed)
			}
		}
		if s, ok := metadata["course_ids"].(string); ok {
			for _, part := range strings.Split(s, ",") {
				part = strings.TrimSpace(part)
				if part == "" {
					continue
				}
				if parsed, err := strconv.ParseUint(part, 10, 64); err == nil {
					event.CourseIDs = append(event.CourseIDs, uint(parsed))
				}
			}
		}
		if url, ok := metadata["webhook_url"].(string); ok {
			event.WebhookURL = url
		}
	}

	return event, nil
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
