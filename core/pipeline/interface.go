package pipeline

import "github.com/siherrmann/panoptes/model"

// ParseFunc turns a document file path into a parsed Document with its
// extracted plain text
type ParseFunc func(path string) (*model.Document, error)

// ExtractFunc returns the raw NER mentions found in text
type ExtractFunc func(text string) ([]*model.Mention, error)

// EmbedFunc generates an embedding vector for text
type EmbedFunc func(text string) ([]float32, error)
