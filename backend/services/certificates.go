package services

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"project/backend/models"
)

// CertificateData is the payload handed to the rendering collaborator.
type CertificateData struct {
	StudentName string
	CourseTitle string
	Code        string
	IssuedAt    time.Time
}

// CertificateRenderer produces the certificate artifact and returns a
// reference to where it is stored. Actual PDF rendering is an external
// collaborator; the issuer only persists the returned reference.
type CertificateRenderer interface {
	Render(template string, data CertificateData) (string, error)
}

// URLRenderer points certificates at an external rendering/storage service by
// deterministic URL. It stands in for the PDF collaborator.
type URLRenderer struct {
	BaseURL string
}

func (r URLRenderer) Render(template string, data CertificateData) (string, error) {
	base := strings.TrimRight(r.BaseURL, "/")
	return fmt.Sprintf("%s/%s/%s.pdf", base, template, data.Code), nil
}

// VerificationResult is the public answer for a certificate-code lookup.
type VerificationResult struct {
	IsValid     bool      `json:"is_valid"`
	StudentName string    `json:"student_name,omitempty"`
	CourseTitle string    `json:"course_title,omitempty"`
	IssuedAt    time.Time `json:"issued_at,omitempty"`
}

// CertificateIssuer issues at most one certificate per enrollment.
type CertificateIssuer struct {
	DB       *gorm.DB
	Renderer CertificateRenderer
	Notify   Notifier
	Log      *log.Logger
}

func NewCertificateIssuer(db *gorm.DB, renderer CertificateRenderer, notify Notifier, logger *log.Logger) *CertificateIssuer {
	return &CertificateIssuer{DB: db, Renderer: renderer, Notify: notify, Log: logger}
}

// IssueIfEligible returns the existing certificate if one was already issued
// for the enrollment, otherwise mints a collision-checked code, renders the
// artifact and persists the certificate. Calling it again after completion
// never produces a second certificate.
func (ci *CertificateIssuer) IssueIfEligible(enrollmentID uint) (*models.Certificate, error) {
	var existing models.Certificate
	err := ci.DB.Where("enrollment_id = ?", enrollmentID).First(&existing).Error
	if err == nil {
		return &existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	var enrollment models.Enrollment
	if err := ci.DB.First(&enrollment, enrollmentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEnrollmentNotFound
		}
		return nil, err
	}

	var user models.User
	if err := ci.DB.First(&user, enrollment.UserID).Error; err != nil {
		return nil, err
	}
	var course models.Course
	if err := ci.DB.First(&course, enrollment.CourseID).Error; err != nil {
		return nil, err
	}

	code, err := ci.newCode()
	if err != nil {
		return nil, err
	}

	issuedAt := time.Now()
	fileURL, err := ci.Renderer.Render("course_completion", CertificateData{
		StudentName: user.Name,
		CourseTitle: course.Title,
		Code:        code,
		IssuedAt:    issuedAt,
	})
	if err != nil {
		return nil, fmt.Errorf("render certificate: %w", err)
	}

	certificate := models.Certificate{
		EnrollmentID:    enrollmentID,
		CertificateCode: code,
		FileURL:         fileURL,
		IssuedAt:        issuedAt,
	}
	if err := ci.DB.Create(&certificate).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// A concurrent recompute issued it first; return that one.
			if lookupErr := ci.DB.Where("enrollment_id = ?", enrollmentID).First(&existing).Error; lookupErr == nil {
				return &existing, nil
			}
		}
		return nil, err
	}

	if ci.Notify != nil {
		ci.Notify.Send(enrollment.UserID, models.NotificationCertificateIssued, map[string]interface{}{
			"certificate_code": code,
			"course_title":     course.Title,
		})
	}

	return &certificate, nil
}

// Verify answers the public certificate-code lookup.
func (ci *CertificateIssuer) Verify(code string) (*VerificationResult, error) {
	var certificate models.Certificate
	err := ci.DB.Where("certificate_code = ?", code).First(&certificate).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &VerificationResult{IsValid: false}, nil
	}
	if err != nil {
		return nil, err
	}

	var enrollment models.Enrollment
	if err := ci.DB.First(&enrollment, certificate.EnrollmentID).Error; err != nil {
		return nil, err
	}
	var user models.User
	if err := ci.DB.First(&user, enrollment.UserID).Error; err != nil {
		return nil, err
	}
	var course models.Course
	if err := ci.DB.First(&course, enrollment.CourseID).Error; err != nil {
		return nil, err
	}

	return &VerificationResult{
		IsValid:     true,
		StudentName: user.Name,
		CourseTitle: course.Title,
		IssuedAt:    certificate.IssuedAt,
	}, nil
}

// newCode mints a human-shareable code and checks it against existing ones.
func (ci *CertificateIssuer) newCode() (string, error) {
	for i := 0; i < 5; i++ {
		id := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", ""))
		code := fmt.Sprintf("CERT-%s-%s", id[:6], id[6:12])

		var count int64
		if err := ci.DB.Model(&models.Certificate{}).
			Where("certificate_code = ?", code).
			Count(&count).Error; err != nil {
			return "", err
		}
		if count == 0 {
			return code, nil
		}
	}
	return "", errors.New("could not generate a unique certificate code")
}
