package controllers

import (
	"project/backend/config"
	"project/backend/models"
	"project/backend/services"
	"project/backend/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type CertificatesController struct {
	DB     *gorm.DB
	Cfg    *config.Config
	Issuer *services.CertificateIssuer
}

func NewCertificatesController(db *gorm.DB, cfg *config.Config, issuer *services.CertificateIssuer) *CertificatesController {
	return &CertificatesController{DB: db, Cfg: cfg, Issuer: issuer}
}

func (cc *CertificatesController) GetMyCertificates(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, cc.Cfg)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	var enrollments []models.Enrollment
	cc.DB.Where("user_id = ?", userID).Find(&enrollments)

	result := make([]fiber.Map, 0)
	for _, enrollment := range enrollments {
		var certificate models.Certificate
		if err := cc.DB.Where("enrollment_id = ?", enrollment.ID).First(&certificate).Error; err != nil {
			continue
		}
		var course models.Course
		cc.DB.First(&course, enrollment.CourseID)
		result = append(result, fiber.Map{
			"certificate_code": certificate.CertificateCode,
			"course_title":     course.Title,
			"file_url":         certificate.FileURL,
			"issued_at":        certificate.IssuedAt,
		})
	}

	return c.JSON(result)
}

// VerifyCertificate is public; anyone holding a certificate code can
// check its authenticity.
func (cc *CertificatesController) VerifyCertificate(c *fiber.Ctx) error {
	code := c.Params("code")
	if code == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Certificate code is required",
		})
	}

	result, err := cc.Issuer.Verify(code)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not verify certificate",
		})
	}
	if !result.IsValid {
		return c.JSON(fiber.Map{"is_valid": false})
	}

	return c.JSON(fiber.Map{
		"is_valid":     result.IsValid,
		"student_name": result.StudentName,
		"course_title": result.CourseTitle,
		"issued_at":    result.IssuedAt,
	})
}
