package model

import (
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// Document represents a parsed source document
type Document struct {
	ID        int64     `json:"id,omitempty"`
	RID       uuid.UUID `json:"rid,omitempty"`
	Title     string    `json:"title"`
	Source    string    `json:"source,omitempty"`
	Text      string    `json:"text,omitempty" db:"-"` // Extracted text, used for processing but not stored in the database
	Metadata  Metadata  `json:"metadata,omitempty"`
	CreatedAt time.Time `json:"created_at,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// NewDocument creates a Document for the given source path and extracted text.
// The title defaults to the filename without its extension.
func NewDocument(sourcePath string, text string) *Document {
	filename := filepath.Base(sourcePath)
	title := filename[:len(filename)-len(filepath.Ext(filename))]
	if title == "" {
		title = filename
	}

	return &Document{
		Title:  title,
		Source: sourcePath,
		Text:   text,
	}
}
