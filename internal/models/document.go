package models

import (
	"time"

	"github.com/google/uuid"
)

// Document types stored in the documents table.
const (
	DocTypeResume = "resume"
	DocTypeJD     = "job_description"
)

type Document struct {
	ID               uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	Filename         string    `gorm:"type:text" json:"filename"`
	OriginalFileName string    `gorm:"type:text" json:"original_filename"`
	DocType          string    `gorm:"type:text;not null;index" json:"doc_type"`
	FilePath         string    `gorm:"type:text" json:"file_path"`
	// Extracted plain text, persisted so matching never re-parses the
	// PDF.
	RawText   string    `gorm:"type:text" json:"-"`
	CreatedAt time.Time `gorm:"type:timestamp;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"type:timestamp;default:now()" json:"updated_at"`
}

func (d *Document) TableName() string {
	return "documents"
}
