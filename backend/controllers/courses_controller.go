package controllers

import (
	"errors"
	"project/backend/config"
	"project/backend/models"
	"project/backend/services"
	"project/backend/utils"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type CoursesController struct {
	DB    *gorm.DB
	Cfg   *config.Config
	Graph *services.ContentGraph
}

func NewCoursesController(db *gorm.DB, cfg *config.Config, graph *services.ContentGraph) *CoursesController {
	return &CoursesController{DB: db, Cfg: cfg, Graph: graph}
}

func (cc *CoursesController) GetCatalog(c *fiber.Ctx) error {
	title := c.Query("title")

	query := cc.DB.Model(&models.Course{}).Where("status = ?", "published")
	if title != "" {
		query = query.Where("title LIKE ?", "%"+title+"%")
	}

	var courses []models.Course
	if err := query.Order("id asc").Find(&courses).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not query database",
		})
	}

	result := make([]fiber.Map, 0, len(courses))
	for _, course := range courses {
		result = append(result, fiber.Map{
			"id":         course.ID,
			"title":      course.Title,
			"short_desc": course.ShortDesc,
			"price":      course.Price,
			"currency":   course.Currency,
			"logo_url":   course.LogoURL,
		})
	}

	return c.JSON(result)
}

func (cc *CoursesController) GetMyCourses(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, cc.Cfg)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	var enrollments []models.Enrollment
	cc.DB.Where("user_id = ?", userID).Order("enrolled_at desc").Find(&enrollments)

	result := make([]fiber.Map, 0, len(enrollments))
	for _, enrollment := range enrollments {
		var course models.Course
		if err := cc.DB.First(&course, enrollment.CourseID).Error; err != nil {
			continue
		}
		result = append(result, fiber.Map{
			"id":          course.ID,
			"title":       course.Title,
			"progress":    enrollment.Progress,
			"status":      enrollment.Status,
			"enrolled_at": enrollment.EnrolledAt,
			"expiry_date": enrollment.ExpiryDate,
		})
	}

	return c.JSON(result)
}

func (cc *CoursesController) GetCourseDetails(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, cc.Cfg)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	courseID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid course ID",
		})
	}

	var course models.Course
	if err := cc.DB.Preload("Sections.Items").First(&course, courseID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Course not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not query database",
		})
	}

	sections := make([]fiber.Map, 0, len(course.Sections))
	for _, section := range course.Sections {
		items := make([]fiber.Map, 0, len(section.Items))
		for _, item := range section.Items {
			entry := fiber.Map{
				"type":     item.ItemType,
				"item_id":  item.ItemID,
				"position": item.Position,
			}
			switch item.ItemType {
			case models.ItemTypeLesson:
				var lesson models.Lesson
				if err := cc.DB.First(&lesson, item.ItemID).Error; err == nil {
					entry["title"] = lesson.Title
				}
			case models.ItemTypeQuiz:
				var quiz models.Quiz
				if err := cc.DB.First(&quiz, item.ItemID).Error; err == nil {
					entry["title"] = quiz.Title
				}
			}
			items = append(items, entry)
		}
		sections = append(sections, fiber.Map{
			"id":       section.ID,
			"title":    section.Title,
			"position": section.Position,
			"items":    items,
		})
	}

	var enrollment models.Enrollment
	var progress interface{}
	if err := cc.DB.Where("user_id = ? AND course_id = ?", userID, courseID).First(&enrollment).Error; err == nil {
		progress = fiber.Map{
			"progress":    enrollment.Progress,
			"status":      enrollment.Status,
			"enrolled_at": enrollment.EnrolledAt,
		}
	}

	return c.JSON(fiber.Map{
		"course": fiber.Map{
			"id":          course.ID,
			"title":       course.Title,
			"short_desc":  course.ShortDesc,
			"description": course.Description,
			"status":      course.Status,
			"price":       course.Price,
			"currency":    course.Currency,
			"logo_url":    course.LogoURL,
			"sections":    sections,
		},
		"enrollment": progress,
	})
}

func (cc *CoursesController) CreateCourse(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, cc.Cfg)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	var input struct {
		Title       string `json:"title"`
		ShortDesc   string `json:"short_desc"`
		Description string `json:"description"`
		Price       int64  `json:"price"`
		Currency    string `json:"currency"`
		LogoURL     string `json:"logo_url"`
	}
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Cannot parse JSON",
		})
	}
	if input.Title == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Title is required",
		})
	}

	course := models.Course{
		Title:       input.Title,
		ShortDesc:   input.ShortDesc,
		Description: input.Description,
		Status:      "draft",
		Price:       input.Price,
		Currency:    input.Currency,
		LogoURL:     input.LogoURL,
		AuthorID:    userID,
	}
	if course.Currency == "" {
		course.Currency = "usd"
	}

	if err := cc.DB.Create(&course).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not create course",
		})
	}

	return c.JSON(fiber.Map{
		"message": "Course created",
		"course":  course,
	})
}

func (cc *CoursesController) UpdateCourse(c *fiber.Ctx) error {
	courseID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid course ID",
		})
	}

	var input struct {
		Title       string `json:"title"`
		ShortDesc   string `json:"short_desc"`
		Description string `json:"description"`
		Status      string `json:"status"`
		Price       *int64 `json:"price"`
		LogoURL     string `json:"logo_url"`
	}
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Cannot parse JSON",
		})
	}

	var course models.Course
	if err := cc.DB.First(&course, courseID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Course not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not query database",
		})
	}

	if input.Title != "" {
		course.Title = input.Title
	}
	if input.ShortDesc != "" {
		course.ShortDesc = input.ShortDesc
	}
	if input.Description != "" {
		course.Description = input.Description
	}
	if input.Status != "" {
		switch input.Status {
		case "draft", "published", "archived":
			course.Status = input.Status
		default:
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid status",
			})
		}
	}
	if input.Price != nil {
		course.Price = *input.Price
	}
	if input.LogoURL != "" {
		course.LogoURL = input.LogoURL
	}

	if err := cc.DB.Save(&course).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not update course",
		})
	}

	return c.JSON(fiber.Map{
		"message": "Course updated",
		"course":  course,
	})
}

func (cc *CoursesController) AddSection(c *fiber.Ctx) error {
	courseID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid course ID",
		})
	}

	var input struct {
		Title    string `json:"title"`
		Position *int   `json:"position"`
	}
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Cannot parse JSON",
		})
	}

	var course models.Course
	if err := cc.DB.First(&course, courseID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Course not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not query database",
		})
	}

	position := 0
	if input.Position != nil {
		position = *input.Position
	} else {
		var count int64
		cc.DB.Model(&models.Section{}).Where("course_id = ?", courseID).Count(&count)
		position = int(count) + 1
	}

	section := models.Section{
		CourseID: uint(courseID),
		Title:    input.Title,
		Position: position,
	}
	if err := cc.DB.Create(&section).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not create section",
		})
	}

	return c.JSON(fiber.Map{
		"message": "Section created",
		"section": section,
	})
}

func (cc *CoursesController) AddSectionItem(c *fiber.Ctx) error {
	sectionID, err := strconv.Atoi(c.Params("sectionId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid section ID",
		})
	}

	var input struct {
		ItemType string `json:"item_type"`
		ItemID   uint   `json:"item_id"`
		Position *int   `json:"position"`
	}
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Cannot parse JSON",
		})
	}

	var section models.Section
	if err := cc.DB.First(&section, sectionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Section not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not query database",
		})
	}

	switch input.ItemType {
	case models.ItemTypeLesson:
		var lesson models.Lesson
		if err := cc.DB.First(&lesson, input.ItemID).Error; err != nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Lesson not found",
			})
		}
	case models.ItemTypeQuiz:
		var quiz models.Quiz
		if err := cc.DB.First(&quiz, input.ItemID).Error; err != nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Quiz not found",
			})
		}
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid item type",
		})
	}

	position := 0
	if input.Position != nil {
		position = *input.Position
	} else {
		var count int64
		cc.DB.Model(&models.SectionItem{}).Where("section_id = ?", sectionID).Count(&count)
		position = int(count) + 1
	}

	item := models.SectionItem{
		SectionID: uint(sectionID),
		ItemType:  input.ItemType,
		ItemID:    input.ItemID,
		Position:  position,
	}
	if err := cc.DB.Create(&item).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not create section item",
		})
	}

	return c.JSON(fiber.Map{
		"message": "Section item created",
		"item":    item,
	})
}

func (cc *CoursesController) CreateLesson(c *fiber.Ctx) error {
	var input struct {
		Title           string `json:"title"`
		Description     string `json:"description"`
		Content         string `json:"content"`
		VideoURL        string `json:"video_url"`
		DurationSeconds int    `json:"duration_seconds"`
	}
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Cannot parse JSON",
		})
	}
	if input.Title == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Title is required",
		})
	}

	lesson := models.Lesson{
		Title:           input.Title,
		Description:     input.Description,
		Content:         input.Content,
		VideoURL:        input.VideoURL,
		DurationSeconds: input.DurationSeconds,
	}
	if err := cc.DB.Create(&lesson).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not create lesson",
		})
	}

	return c.JSON(fiber.Map{
		"message": "Lesson created",
		"lesson":  lesson,
	})
}
