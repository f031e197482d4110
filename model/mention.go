package model

// Mention is a single surface-form occurrence of a named entity found by NER
type Mention struct {
	Text       string   `json:"text"`
	Label      string   `json:"label"`
	Confidence float64  `json:"confidence"`
	Metadata   Metadata `json:"metadata,omitempty"`
}
