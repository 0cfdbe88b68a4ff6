package services

import (
	"errors"

	"gorm.io/gorm"

	"project/backend/models"
)

// CourseItem is one completable unit of a course, either a lesson or a quiz.
type CourseItem struct {
	Type string // models.ItemTypeLesson or models.ItemTypeQuiz
	ID   uint
}

// ContentGraph is the read-only, flattened view of a course's structure used
// as the denominator for progress computation.
type ContentGraph struct {
	DB *gorm.DB
}

func NewContentGraph(db *gorm.DB) *ContentGraph {
	return &ContentGraph{DB: db}
}

// ItemsForCourse walks the course's sections in section order and each
// section's items in item order, flattening into one sequence. A course with
// no sections yields an empty (non-nil) slice.
func (g *ContentGraph) ItemsForCourse(courseID uint) ([]CourseItem, error) {
	var course models.Course
	if err := g.DB.First(&course, courseID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCourseNotFound
		}
		return nil, err
	}

	var sections []models.Section
	if err := g.DB.Where("course_id = ?", courseID).
		Order("position asc, id asc").
		Find(&sections).Error; err != nil {
		return nil, err
	}

	items := make([]CourseItem, 0)
	for _, section := range sections {
		var rows []models.SectionItem
		if err := g.DB.Where("section_id = ?", section.ID).
			Order("position asc, id asc").
			Find(&rows).Error; err != nil {
			return nil, err
		}
		for _, row := range rows {
			items = append(items, CourseItem{Type: row.ItemType, ID: row.ItemID})
		}
	}

	return items, nil
}
