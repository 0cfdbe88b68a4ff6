package controllers

import (
	"errors"
	"project/backend/config"
	"project/backend/models"
	"project/backend/services"
	"project/backend/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type PaymentsController struct {
	DB         *gorm.DB
	Cfg        *config.Config
	Reconciler *services.Reconciler
	Checkout   *services.CheckoutService
}

func NewPaymentsController(db *gorm.DB, cfg *config.Config, reconciler *services.Reconciler, checkout *services.CheckoutService) *PaymentsController {
	return &PaymentsController{DB: db, Cfg: cfg, Reconciler: reconciler, Checkout: checkout}
}

// StripeWebhook ingests payment-processor events. Malformed payloads are
// acknowledged with 200 so the processor stops retrying them; persistence
// failures return 500 so the event is redelivered.
func (pc *PaymentsController) StripeWebhook(c *fiber.Ctx) error {
	event, err := services.ParseWebhookEvent(c.Body())
	if err != nil {
		return c.JSON(fiber.Map{"received": true})
	}

	if err := pc.Reconciler.HandleEvent(event); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not process event",
		})
	}

	return c.JSON(fiber.Map{"received": true})
}

// MidtransNotification handles payment status callbacks from the Midtrans
// gateway and replays settled orders through the reconciler.
func (pc *PaymentsController) MidtransNotification(c *fiber.Ctx) error {
	var body map[string]interface{}
	if err := c.BodyParser(&body); err != nil {
		return c.JSON(fiber.Map{"received": true})
	}

	if err := pc.Checkout.HandleNotification(body, pc.Reconciler); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not process notification",
		})
	}

	return c.JSON(fiber.Map{"received": true})
}

func (pc *PaymentsController) CreateCheckout(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, pc.Cfg)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	var input struct {
		CourseIDs []uint `json:"course_ids"`
	}
	if err := c.BodyParser(&input); err != nil || len(input.CourseIDs) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "course_ids is required",
		})
	}

	var user models.User
	if err := pc.DB.First(&user, userID).Error; err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	session, err := pc.Checkout.CreateCheckout(&user, input.CourseIDs)
	if err != nil {
		if errors.Is(err, services.ErrCourseNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "One or more courses are not available",
			})
		}
		if errors.Is(err, services.ErrInvalidPrice) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Checkout total must be a whole currency amount",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not create checkout session",
		})
	}

	return c.JSON(fiber.Map{
		"order_id":     session.OrderID,
		"amount":       session.Amount,
		"redirect_url": session.RedirectURL,
		"token":        session.Token,
	})
}

func (pc *PaymentsController) GetMyPayments(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, pc.Cfg)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	var payments []models.Payment
	pc.DB.Where("user_id = ?", userID).Order("created_at desc").Find(&payments)

	result := make([]fiber.Map, 0, len(payments))
	for _, payment := range payments {
		result = append(result, fiber.Map{
			"id":                payment.ID,
			"course_id":         payment.CourseID,
			"amount":            payment.Amount,
			"status":            payment.Status,
			"method":            payment.Method,
			"payment_intent_id": payment.PaymentIntentID,
			"created_at":        payment.CreatedAt,
		})
	}

	return c.JSON(result)
}
