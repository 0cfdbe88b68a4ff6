package models

import "gorm.io/gorm"

type Course struct {
	gorm.Model
	Title       string `gorm:"not null"`
	ShortDesc   string
	Description string
	Status      string `gorm:"default:draft"` // draft, published, archived
	Price       int64  `gorm:"default:0"`     // smallest currency unit
	Currency    string `gorm:"default:usd"`
	AuthorID    uint
	LogoURL     string
	Sections    []Section
}

type Section struct {
	gorm.Model
	CourseID uint `gorm:"index;not null"`
	Title    string
	Position int `gorm:"default:0"`
	Items    []SectionItem
}

// Item types a SectionItem can reference.
const (
	ItemTypeLesson = "lesson"
	ItemTypeQuiz   = "quiz"
)

// SectionItem is the ordered join between a section and the lesson or quiz
// it contains. ItemType is always one of ItemTypeLesson or ItemTypeQuiz.
type SectionItem struct {
	gorm.Model
	SectionID uint   `gorm:"index;not null"`
	ItemType  string `gorm:"not null"`
	ItemID    uint   `gorm:"not null"`
	Position  int    `gorm:"default:0"`
}

type Lesson struct {
	gorm.Model
	Title           string `gorm:"not null"`
	Description     string
	Content         string `gorm:"type:text"`
	VideoURL        string
	DurationSeconds int `gorm:"default:0"`
}
