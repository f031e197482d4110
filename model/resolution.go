package model

import (
	"fmt"
	"sort"
	"strings"
)

// ResolutionResult is the full resolution output for a document
type ResolutionResult struct {
	Entities []*ResolvedEntity `json:"entities"`
}

// Display formats the result for human-readable output.
// Entities are grouped into one section per entity type in the fixed
// EntityTypeOrder; empty sections are omitted and entities within a section
// are sorted alphabetically by canonical name. Each entry shows the canonical
// name with its comma-joined mentions, plus indented sub-lines for the
// knowledge-base identifier and type labels when present.
func (r *ResolutionResult) Display() string {
	grouped := map[EntityType][]*ResolvedEntity{}
	for _, entity := range r.Entities {
		grouped[entity.Type] = append(grouped[entity.Type], entity)
	}

	var lines []string
	for _, entityType := range EntityTypeOrder {
		entities := grouped[entityType]
		if len(entities) == 0 {
			continue
		}

		lines = append(lines, fmt.Sprintf("\n%v", entityType))
		lines = append(lines, strings.Repeat("-", len(entityType)))

		sort.Slice(entities, func(i, j int) bool {
			return entities[i].CanonicalName < entities[j].CanonicalName
		})
		for _, e := range entities {
			lines = append(lines, fmt.Sprintf("  %v: %v", e.CanonicalName, strings.Join(e.Mentions, ", ")))
			if e.KBRef != nil {
				lines = append(lines, fmt.Sprintf("    wikidata: %v", e.KBRef.WikidataID))
			}
			if len(e.InstanceOf) > 0 {
				labels := make([]string, 0, len(e.InstanceOf))
				for _, t := range e.InstanceOf {
					labels = append(labels, t.Label)
				}
				lines = append(lines, fmt.Sprintf("    types: %v", strings.Join(labels, ", ")))
			}
		}
	}

	return strings.Join(lines, "\n")
}
