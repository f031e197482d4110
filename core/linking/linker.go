// Package linking enriches resolved entities with knowledge-base identifiers
// and type descriptors in five stages: search, classify, batched
// disambiguation, validation and bulk type fetch. Every stage boundary is a
// degradation boundary: failures reduce enrichment but never abort the
// pipeline. This is deliberately asymmetric with the resolution engine,
// whose single call is a hard failure boundary.
package linking

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/siherrmann/panoptes/llm"
	"github.com/siherrmann/panoptes/model"
	"github.com/siherrmann/panoptes/prompts"
)

// Linker enriches resolved entities with knowledge-base references and types
type Linker struct {
	search       SearchFunc
	fetchTypes   TypeFetchFunc
	complete     llm.CompleteFunc
	contextLimit int
	log          *slog.Logger
}

// NewLinker creates a linker with the given collaborators
func NewLinker(search SearchFunc, fetchTypes TypeFetchFunc, complete llm.CompleteFunc, logger *slog.Logger) *Linker {
	return &Linker{
		search:       search,
		fetchTypes:   fetchTypes,
		complete:     complete,
		contextLimit: prompts.MaxContextLength,
		log:          logger,
	}
}

// Link enriches all entities in result with knowledge-base identifiers and
// instance-of types. The input result is never mutated; enriched copies are
// returned in the original order. Link never fails: entities that cannot be
// enriched stay unlinked.
func (l *Linker) Link(ctx context.Context, result *model.ResolutionResult, documentText string) *model.ResolutionResult {
	if len(result.Entities) == 0 {
		return result
	}

	// Stage 1: search candidates per distinct canonical name
	candidatesByName := l.searchAll(ctx, result.Entities)

	// Stage 2: classify into auto-linked (single candidate), unlinked (none)
	// and ambiguous (several, queued for one batched disambiguation)
	autoLinked := map[string]string{}
	var ambiguous []model.AmbiguousEntity

	for _, entity := range result.Entities {
		candidates := candidatesByName[entity.CanonicalName]
		switch {
		case len(candidates) == 1:
			// Accept the singleton match without verification to save a
			// model call, at a small false-positive risk
			autoLinked[entity.CanonicalName] = candidates[0].ID
		case len(candidates) > 1:
			ambiguous = append(ambiguous, model.AmbiguousEntity{
				CanonicalName: entity.CanonicalName,
				EntityType:    entity.Type,
				Candidates:    candidates,
			})
		}
	}

	// Stages 3 and 4: one disambiguation call for the whole ambiguous batch,
	// answers validated against the offered candidate sets
	llmLinked := map[string]string{}
	if len(ambiguous) > 0 {
		llmLinked = l.disambiguate(ctx, documentText, result.Entities, ambiguous)
	}

	idByName := make(map[string]string, len(autoLinked)+len(llmLinked))
	for name, id := range autoLinked {
		idByName[name] = id
	}
	for name, id := range llmLinked {
		idByName[name] = id
	}

	// Stage 5: one bulk type fetch over the union of linked identifiers
	typesByID := l.fetchAllTypes(ctx, idByName)

	// Build enriched copies preserving the original ordering
	enriched := make([]*model.ResolvedEntity, 0, len(result.Entities))
	for _, entity := range result.Entities {
		id := idByName[entity.CanonicalName]
		enriched = append(enriched, entity.WithLink(id, typesByID[id]))
	}

	return &model.ResolutionResult{Entities: enriched}
}

// searchAll issues one bounded search per distinct canonical name. Searches
// are independent and fan out concurrently; a failed search yields zero
// candidates for that name and never aborts the batch.
func (l *Linker) searchAll(ctx context.Context, entities []*model.ResolvedEntity) map[string][]model.Candidate {
	names := make([]string, 0, len(entities))
	seen := map[string]bool{}
	for _, entity := range entities {
		if !seen[entity.CanonicalName] {
			seen[entity.CanonicalName] = true
			names = append(names, entity.CanonicalName)
		}
	}

	candidatesByName := make(map[string][]model.Candidate, len(names))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, name := range names {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			candidates, err := l.search(ctx, name)
			if err != nil {
				l.log.Warn("Knowledge-base search failed", slog.String("name", name), slog.Any("error", err))
				candidates = nil
			}
			mu.Lock()
			candidatesByName[name] = candidates
			mu.Unlock()
		}(name)
	}
	wg.Wait()

	return candidatesByName
}

// disambiguate issues a single model call covering the entire ambiguous
// batch and validates every returned identifier against the candidate set
// offered for that entity. Any parse or schema failure degrades the whole
// batch to unlinked.
func (l *Linker) disambiguate(ctx context.Context, documentText string, allEntities []*model.ResolvedEntity, ambiguous []model.AmbiguousEntity) map[string]string {
	allNames := make([]string, 0, len(allEntities))
	for _, entity := range allEntities {
		allNames = append(allNames, entity.CanonicalName)
	}

	userPrompt := prompts.BuildDisambiguationPrompt(documentText, allNames, ambiguous, l.contextLimit)

	raw, err := l.complete(ctx, prompts.DisambiguationSystemPrompt, userPrompt)
	if err != nil {
		l.log.Warn("Disambiguation call failed, batch stays unlinked", slog.Any("error", err))
		return map[string]string{}
	}

	var payload struct {
		Links map[string]*string `json:"links"`
	}
	if err := json.Unmarshal([]byte(llm.ExtractJSON(raw)), &payload); err != nil {
		l.log.Warn("Disambiguation response did not parse, batch stays unlinked", slog.Any("error", err))
		return map[string]string{}
	}

	offered := make(map[string]map[string]bool, len(ambiguous))
	for _, entry := range ambiguous {
		ids := make(map[string]bool, len(entry.Candidates))
		for _, c := range entry.Candidates {
			ids[c.ID] = true
		}
		offered[entry.CanonicalName] = ids
	}

	validated := map[string]string{}
	for name, id := range payload.Links {
		if id == nil {
			continue
		}
		if offered[name] != nil && offered[name][*id] {
			validated[name] = *id
			continue
		}
		// Defend against fabricated identifiers
		l.log.Warn("Disambiguation returned identifier outside the candidate set",
			slog.String("name", name),
			slog.String("id", *id),
		)
	}

	return validated
}

// fetchAllTypes collects the distinct linked identifiers and fetches their
// instance-of types in at most one call. A failed fetch yields empty type
// lists for all entities.
func (l *Linker) fetchAllTypes(ctx context.Context, idByName map[string]string) map[string][]model.TypeDescriptor {
	seen := map[string]bool{}
	ids := make([]string, 0, len(idByName))
	for _, id := range idByName {
		if id != "" && !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return map[string][]model.TypeDescriptor{}
	}

	typesByID, err := l.fetchTypes(ctx, ids)
	if err != nil {
		l.log.Warn("Type fetch failed, entities keep empty type lists", slog.Any("error", err))
		return map[string][]model.TypeDescriptor{}
	}

	return typesByID
}
