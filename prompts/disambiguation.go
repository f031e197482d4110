package prompts

import (
	"fmt"
	"strings"

	"github.com/siherrmann/panoptes/model"
)

// DisambiguationSystemPrompt instructs the model to pick one candidate per
// ambiguous entity and answer with a name-to-identifier JSON mapping.
const DisambiguationSystemPrompt = `You are a Wikidata entity linking expert. You will receive:
1. An excerpt from the source document for context.
2. The full list of entities found in the document.
3. A set of ambiguous entities with their Wikidata candidate matches.

Your job is to pick the single best Wikidata item for each ambiguous entity, using the document context and co-occurring entities to inform your choice.

Return **only** valid JSON matching this schema, with no commentary:

{
  "links": {
    "<canonical_name>": "<QID or null>"
  }
}

Rules:
- Pick the candidate whose description best matches the document context.
- If no candidate is a reasonable match, map the entity to null.
- Do NOT invent QIDs that are not in the candidate lists.`

// MaxContextLength is the default character ceiling for the document excerpt
// embedded in disambiguation prompts.
const MaxContextLength = 2000

// TruncationMarker is appended to a document excerpt that was cut
const TruncationMarker = " [...]"

// TruncateContext cuts text to at most limit characters, appending the
// truncation marker when the text was cut.
func TruncateContext(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + TruncationMarker
}

// BuildDisambiguationPrompt builds the user payload for one batched
// disambiguation call covering all ambiguous entities. The document excerpt
// is truncated to contextLimit characters, and the full entity name list is
// included as cross-entity context.
func BuildDisambiguationPrompt(documentText string, allEntityNames []string, ambiguous []model.AmbiguousEntity, contextLimit int) string {
	excerpt := TruncateContext(documentText, contextLimit)
	entityList := strings.Join(allEntityNames, ", ")

	sections := make([]string, 0, len(ambiguous))
	for i, entry := range ambiguous {
		candidateLines := make([]string, 0, len(entry.Candidates))
		for _, c := range entry.Candidates {
			candidateLines = append(candidateLines, fmt.Sprintf("  - %s: %s (%s)", c.ID, c.Label, c.Description))
		}
		sections = append(sections, fmt.Sprintf(
			"%d. %s (%s)\n   Candidates:\n%s",
			i+1,
			entry.CanonicalName,
			entry.EntityType,
			strings.Join(candidateLines, "\n"),
		))
	}

	return fmt.Sprintf(
		"Document excerpt:\n\"\"\"\n%s\n\"\"\"\n\nAll entities in document: %s\n\nPick the best Wikidata match for each entity:\n\n%s",
		excerpt,
		entityList,
		strings.Join(sections, "\n\n"),
	)
}
