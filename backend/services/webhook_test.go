package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseWebhookEventFullPayload(t *testing.T) {
	body := []byte(`{
		"type": "payment_intent.succeeded",
		"data": {
			"object": {
				"id": "pi_123",
				"amount": 4900,
				"payment_method_types": ["card"],
				"latest_charge": "ch_789",
				"metadata": {
					"user_id": "7",
					"course_ids": "3, 5",
					"webhook_url": "https://api.example.com/webhooks/stripe"
				}
			}
		}
	}`)

	event, err := ParseWebhookEvent(body)
	require.NoError(t, err)
	assert.Equal(t, EventPaymentSucceeded, event.Type)
	assert.Equal(t, "pi_123", event.PaymentIntentID)
	assert.Equal(t, float64(49), event.Amount)
	assert.Equal(t, uint(7), event.UserID)
	assert.Equal(t, []uint{3, 5}, event.CourseIDs)
	assert.Equal(t, "card", event.Method)
	assert.Equal(t, "ch_789", event.TransactionID)
	assert.Equal(t, "https://api.example.com/webhooks/stripe", event.WebhookURL)
}

func TestParseWebhookEventDefaultsType(t *testing.T) {
	body := []byte(`{
		"object": {
			"id": "pi_456",
			"amount": 1000,
			"metadata": {"user_id": 2, "course_ids": "9"}
		}
	}`)

	event, err := ParseWebhookEvent(body)
	require.NoError(t, err)
	assert.Equal(t, EventPaymentSucceeded, event.Type)
	assert.Equal(t, "pi_456", event.PaymentIntentID)
	assert.Equal(t, float64(10), event.Amount)
	assert.Equal(t, uint(2), event.UserID)
	assert.Equal(t, []uint{9}, event.CourseIDs)
}

func TestParseWebhookEventPrefersPaymentIntentField(t *testing.T) {
	body := []byte(`{
		"type": "charge.refunded",
		"data": {"object": {"id": "ch_1", "payment_intent": "pi_777"}}
	}`)

	event, err := ParseWebhookEvent(body)
	require.NoError(t, err)
	assert.Equal(t, EventChargeRefunded, event.Type)
	assert.Equal(t, "pi_777", event.PaymentIntentID)
}

func TestParseWebhookEventMissingMetadataIsNotAnError(t *testing.T) {
	event, err := ParseWebhookEvent([]byte(`{"data": {"object": {"id": "pi_1"}}}`))
	require.NoError(t, err)
	assert.Equal(t, uint(0), event.UserID)
	assert.Empty(t, event.CourseIDs)
}

func TestParseWebhookEventBadJSON(t *testing.T) {
	_, err := ParseWebhookEvent([]byte(`{not json`))
	assert.Error(t, err)
}

func TestParseWebhookEventSkipsMalformedCourseIDs(t *testing.T) {
	body := []byte(`{"object": {"id": "pi_1", "metadata": {"user_id": 1, "course_ids": "3,abc, ,4"}}}`)

	event, err := ParseWebhookEvent(body)
	require.NoError(t, err)
	assert.Equal(t, []uint{3, 4}, event.CourseIDs)
}
