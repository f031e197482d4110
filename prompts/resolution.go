// Package prompts builds the deterministic prompt templates for entity
// resolution and knowledge-base disambiguation. Mention lists are
// deduplicated and sorted alphabetically before embedding so identical
// inputs always produce identical prompts.
package prompts

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/siherrmann/panoptes/model"
)

const resolutionSystemTemplate = `You are an entity resolution expert. Given a text and a set of named-entity mentions extracted by an NER system, your job is to:

1. Identify any additional references to %s entities that the NER system may have missed, including titles, descriptions, abbreviations, and pronouns that clearly refer to a specific entity.
2. Group every mention (extracted + newly identified) that refers to the same real-world entity.
3. Choose the best canonical name for each group (prefer the most complete, commonly-used proper name).

Return **only** valid JSON matching this schema, with no commentary:

{
  "entities": [
    {
      "canonical_name": "<best proper name>",
      "entity_type": "<%s>",
      "mentions": ["<mention1>", "<mention2>", ...]
    }
  ]
}

Rules:
- entity_type must be one of: %s.
- Every extracted mention must appear in exactly one group.
- Do NOT invent entities that are not referenced in the text.
- Mentions should be the exact surface forms found in the text.`

// ResolutionSystemPrompt returns the resolution system instructions for the
// given entity type allow-list.
func ResolutionSystemPrompt(entityTypes []string) string {
	return fmt.Sprintf(
		resolutionSystemTemplate,
		strings.Join(entityTypes, ", "),
		strings.Join(entityTypes, " | "),
		strings.Join(entityTypes, ", "),
	)
}

// BuildResolutionPrompt builds the resolution user payload from the document
// text and the raw NER mentions. Mention texts are deduplicated and sorted
// alphabetically.
func BuildResolutionPrompt(text string, mentions []*model.Mention) string {
	unique := map[string]bool{}
	for _, m := range mentions {
		unique[m.Text] = true
	}
	texts := make([]string, 0, len(unique))
	for t := range unique {
		texts = append(texts, t)
	}
	sort.Strings(texts)

	// Mentions can contain quotes, so let the JSON encoder handle escaping
	mentionLines, _ := json.Marshal(texts)

	return fmt.Sprintf("Text:\n\"\"\"\n%s\n\"\"\"\n\nExtracted NER mentions:\n%s", text, mentionLines)
}
