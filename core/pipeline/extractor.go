package pipeline

import (
	"fmt"
	"strings"

	"github.com/knights-analytics/hugot"
	"github.com/knights-analytics/hugot/pipelines"
	"github.com/siherrmann/panoptes/helper"
	"github.com/siherrmann/panoptes/model"
)

// DefaultMentionExtractor creates a mention extractor using a NER model.
// Uses distilbert-NER by default for named entity recognition.
// Mentions are filtered to the given entity type allow-list and minimum
// confidence; NER labels are mapped to the allow-list vocabulary
// (PER becomes PERSON, LOC becomes GPE).
func DefaultMentionExtractor(modelName string, entityTypes []string, minConfidence float64) (ExtractFunc, error) {
	// Prepare model (download if needed)
	modelPath, err := helper.PrepareModel(modelName, "model.onnx")
	if err != nil {
		return nil, err
	}

	// Initialize hugot session with Go backend
	session, err := hugot.NewGoSession()
	if err != nil {
		return nil, fmt.Errorf("failed to create hugot session: %w", err)
	}

	// Create token classification pipeline for NER
	config := hugot.TokenClassificationConfig{
		ModelPath: modelPath,
		Name:      "ner-pipeline",
		Options: []hugot.TokenClassificationOption{
			pipelines.WithSimpleAggregation(),
			pipelines.WithIgnoreLabels([]string{"O"}), // Ignore non-entity tokens
		},
	}
	nerPipeline, err := hugot.NewPipeline(session, config)
	if err != nil {
		if destroyErr := session.Destroy(); destroyErr != nil {
			return nil, fmt.Errorf("failed to create NER pipeline: %w (cleanup error: %v)", err, destroyErr)
		}
		return nil, fmt.Errorf("failed to create NER pipeline: %w", err)
	}

	allowed := make(map[string]bool, len(entityTypes))
	for _, t := range entityTypes {
		allowed[t] = true
	}

	return func(text string) ([]*model.Mention, error) {
		result, err := nerPipeline.RunPipeline([]string{text})
		if err != nil {
			return nil, fmt.Errorf("failed to run NER: %w", err)
		}

		if len(result.Entities) == 0 {
			return nil, nil
		}

		var mentions []*model.Mention
		for _, entity := range result.Entities[0] {
			label := canonicalLabel(normalizeEntityLabel(entity.Entity))
			confidence := float64(entity.Score)
			if !allowed[label] || confidence < minConfidence {
				continue
			}

			mentions = append(mentions, &model.Mention{
				Text:       strings.TrimSpace(entity.Word),
				Label:      label,
				Confidence: confidence,
				Metadata: model.Metadata{
					"start": entity.Start,
					"end":   entity.End,
				},
			})
		}

		return mentions, nil
	}, nil
}

// normalizeEntityLabel removes B- and I- prefixes from NER labels
func normalizeEntityLabel(label string) string {
	// Remove BIO tagging prefixes (B- for beginning, I- for inside)
	if strings.HasPrefix(label, "B-") {
		return label[2:]
	}
	if strings.HasPrefix(label, "I-") {
		return label[2:]
	}
	return label
}

// canonicalLabel maps NER model labels onto the entity type vocabulary
func canonicalLabel(label string) string {
	switch label {
	case "PER", "PERSON":
		return string(model.EntityTypePerson)
	case "ORG", "ORGANISATION", "ORGANIZATION":
		return string(model.EntityTypeOrg)
	case "LOC", "GPE", "LOCATION":
		return string(model.EntityTypeGPE)
	}
	return label
}
